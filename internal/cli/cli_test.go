package cli

import (
	"bytes"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/stridelink/internal/app"
)

func ptr(v uint64) *uint64 { return &v }

func TestParse(t *testing.T) {
	t.Setenv("STRIDELINK_CONFIG", "")
	t.Setenv("STRIDELINK_LOG_LEVEL", "")
	t.Setenv("STRIDELINK_LOG_FORMAT", "")
	t.Setenv("NO_COLOR", "")

	testCases := []struct {
		name string
		args []string
		want app.Config
	}{
		{
			name: "defaults",
			args: nil,
			want: app.Config{ConfigPath: app.DefaultConfigPath, LogFormat: "text", LogLevel: "info"},
		},
		{
			name: "positional build file",
			args: []string{"user/stridelink.hcl"},
			want: app.Config{ConfigPath: "user/stridelink.hcl", LogFormat: "text", LogLevel: "info"},
		},
		{
			name: "config flag wins over positional",
			args: []string{"-c", "a.hcl", "b.hcl"},
			want: app.Config{ConfigPath: "a.hcl", LogFormat: "text", LogLevel: "info"},
		},
		{
			name: "overrides",
			args: []string{
				"-apps-dir", "src/bin",
				"-template", "src/linker.ld",
				"-origin", "0x80400000",
				"-stride", "0x20000",
				"-command", `["make", app]`,
				"-timeout", "90s",
				"-plan",
				"-recover-stale",
				"-no-color",
				"-log-level", "DEBUG",
				"-log-format", "json",
			},
			want: app.Config{
				ConfigPath:   app.DefaultConfigPath,
				AppsDir:      "src/bin",
				TemplatePath: "src/linker.ld",
				Origin:       ptr(0x80400000),
				Stride:       ptr(0x20000),
				Command:      `["make", app]`,
				Timeout:      90 * time.Second,
				Plan:         true,
				RecoverStale: true,
				NoColor:      true,
				LogFormat:    "json",
				LogLevel:     "debug",
			},
		},
		{
			name: "decimal origin",
			args: []string{"-origin", "4096"},
			want: app.Config{ConfigPath: app.DefaultConfigPath, Origin: ptr(4096), LogFormat: "text", LogLevel: "info"},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// --- Arrange ---
			out := &bytes.Buffer{}

			// --- Act ---
			cfg, shouldExit, err := Parse(tc.args, out)

			// --- Assert ---
			require.NoError(t, err)
			require.False(t, shouldExit)
			if diff := cmp.Diff(tc.want, *cfg); diff != "" {
				t.Errorf("Parse() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestParse_Errors(t *testing.T) {
	t.Setenv("STRIDELINK_LOG_LEVEL", "")
	t.Setenv("STRIDELINK_LOG_FORMAT", "")

	testCases := []struct {
		name    string
		args    []string
		message string
	}{
		{name: "unknown flag", args: []string{"-bogus"}, message: "flag provided but not defined"},
		{name: "bad log level", args: []string{"-log-level", "loud"}, message: "invalid log-level"},
		{name: "bad log format", args: []string{"-log-format", "xml"}, message: "invalid log-format"},
		{name: "bad origin", args: []string{"-origin", "0xZZ"}, message: "invalid -origin"},
		{name: "zero stride", args: []string{"-stride", "0"}, message: "stride must be greater than zero"},
		{name: "negative timeout", args: []string{"-timeout", "-1s"}, message: "timeout must not be negative"},
		{name: "two build files", args: []string{"a.hcl", "b.hcl"}, message: "at most one build file"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// --- Act ---
			cfg, shouldExit, err := Parse(tc.args, &bytes.Buffer{})

			// --- Assert ---
			require.Error(t, err)
			assert.Nil(t, cfg)
			assert.False(t, shouldExit)

			var exitErr *ExitError
			require.ErrorAs(t, err, &exitErr)
			assert.Equal(t, app.ExitUsage, exitErr.Code)
			assert.Contains(t, exitErr.Message, tc.message)
		})
	}
}

func TestParse_Help(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	out := &bytes.Buffer{}

	// --- Act ---
	cfg, shouldExit, err := Parse([]string{"-h"}, out)

	// --- Assert ---
	require.NoError(t, err)
	assert.True(t, shouldExit)
	assert.Nil(t, cfg)
	assert.Contains(t, out.String(), "Usage:")
	assert.Contains(t, out.String(), "-recover-stale")
}

func TestParse_EnvironmentDefaults(t *testing.T) {
	// --- Arrange ---
	t.Setenv("STRIDELINK_CONFIG", "env.hcl")
	t.Setenv("STRIDELINK_LOG_LEVEL", "warn")
	t.Setenv("STRIDELINK_LOG_FORMAT", "json")
	t.Setenv("NO_COLOR", "1")

	// --- Act ---
	cfg, _, err := Parse(nil, &bytes.Buffer{})
	require.NoError(t, err)

	// --- Assert ---
	assert.Equal(t, "env.hcl", cfg.ConfigPath)
	assert.Equal(t, "warn", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.True(t, cfg.NoColor)

	// Flags still win.
	cfg, _, err = Parse([]string{"-log-level", "error", "other.hcl"}, &bytes.Buffer{})
	require.NoError(t, err)
	assert.Equal(t, "error", cfg.LogLevel)
	assert.Equal(t, "other.hcl", cfg.ConfigPath)
}
