// Package testutil holds the fixtures shared by the system tests. A Project is
// a throwaway build tree; Run drives the full app over it.
package testutil

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/vk/stridelink/internal/app"
	"github.com/vk/stridelink/internal/hcl"
)

// LinkerScript is a linker script in the shape of an rCore user library's,
// with its base address at the default origin.
const LinkerScript = `OUTPUT_ARCH(riscv)
ENTRY(_start)

BASE_ADDRESS = 0x80400000;

SECTIONS
{
    . = BASE_ADDRESS;
    .text : {
        *(.text.entry)
        *(.text .text.*)
    }
    .rodata : { *(.rodata .rodata.*) }
    .data : { *(.data .data.*) }
    .bss : { *(.bss .bss.*) }
}
`

// SafeBuffer is a thread-safe buffer for capturing log output in tests.
type SafeBuffer struct {
	b  bytes.Buffer
	mu sync.Mutex
}

// Write implements the io.Writer interface for SafeBuffer.
func (b *SafeBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.b.Write(p)
}

// String implements the fmt.Stringer interface for SafeBuffer.
func (b *SafeBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.b.String()
}

// Project is a temporary build tree.
type Project struct {
	Root string
}

// NewProject creates a project with src/linker.ld holding LinkerScript, one
// source file per app under src/bin, and the given extra files (paths
// relative to the root).
func NewProject(t *testing.T, apps []string, files map[string]string) *Project {
	t.Helper()

	root := t.TempDir()
	p := &Project{Root: root}
	p.Write(t, "src/linker.ld", LinkerScript)
	require.NoError(t, os.MkdirAll(p.Path("src/bin"), 0o755))
	for _, app := range apps {
		p.Write(t, filepath.Join("src/bin", app), "#![no_std]\n")
	}
	for name, content := range files {
		p.Write(t, name, content)
	}
	return p
}

// Path returns the absolute path of a project file.
func (p *Project) Path(rel string) string {
	return filepath.Join(p.Root, rel)
}

// Write creates or replaces a project file.
func (p *Project) Write(t *testing.T, rel, content string) {
	t.Helper()
	path := p.Path(rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

// Read returns the content of a project file.
func (p *Project) Read(t *testing.T, rel string) string {
	t.Helper()
	data, err := os.ReadFile(p.Path(rel))
	require.NoError(t, err)
	return string(data)
}

// LogOnDemand dumps captured logs at the end of the test when
// STRIDELINK_TEST_LOGS=true.
func LogOnDemand(t *testing.T, logs *SafeBuffer) {
	t.Helper()
	t.Cleanup(func() {
		if os.Getenv("STRIDELINK_TEST_LOGS") == "true" {
			t.Logf("--- Full Log Output for %s ---\n%s", t.Name(), logs.String())
		}
	})
}

// HarnessResult holds the outcomes of a system test run.
type HarnessResult struct {
	Output    string
	LogOutput string
	Err       error
}

// Run builds the project with the build file at stridelink.hcl and the
// given configuration. ConfigPath, NoColor and the log settings are filled
// in by the harness.
func Run(ctx context.Context, t *testing.T, p *Project, cfg app.Config) *HarnessResult {
	t.Helper()

	cfg.ConfigPath = p.Path("stridelink.hcl")
	cfg.NoColor = true
	cfg.LogLevel = "debug"
	appConfig, err := app.NewConfig(cfg)
	require.NoError(t, err)

	out := &SafeBuffer{}
	logs := &SafeBuffer{}
	LogOnDemand(t, logs)

	testApp, err := app.NewApp(out, logs, appConfig, hcl.NewLoader())
	if err == nil {
		err = testApp.Run(ctx)
	}

	return &HarnessResult{
		Output:    out.String(),
		LogOutput: logs.String(),
		Err:       err,
	}
}
