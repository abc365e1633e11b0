//go:build unix

package system

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/stridelink/internal/app"
	"github.com/vk/stridelink/internal/testutil"
)

// Test for: numeric layout values, a custom token and toolchain env all
// reach the build.
func TestHCLFeatures_LayoutTokenAndEnv(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	hcl := `
layout {
  origin = 4096
  stride = 256
}

template {
  token = "@BASE@"
}

toolchain {
  command = ["sh", "-c", "echo $PROFILE ${index} $STRIDELINK_BASE_ADDRESS >> builds.log && grep -q '${base_address}' src/linker.ld"]
  env = {
    PROFILE = "release"
  }
}
`
	p := testutil.NewProject(t, []string{"a.rs", "b.rs"}, map[string]string{"stridelink.hcl": hcl})
	script := "BASE_ADDRESS = @BASE@;\n"
	p.Write(t, "src/linker.ld", script)

	// --- Act ---
	result := testutil.Run(context.Background(), t, p, app.Config{})

	// --- Assert ---
	require.NoError(t, result.Err)
	assert.Equal(t, "release 0 0x1000\nrelease 1 0x1100\n", p.Read(t, "builds.log"))
	assert.Equal(t, script, p.Read(t, "src/linker.ld"))
}

// Test for: the layout cap rejects a run with too many applications before
// anything is built.
func TestHCLFeatures_MaxApps(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	hcl := `
layout {
  max_apps = 1
}

toolchain {
  command = ["sh", "-c", "echo ${app} >> builds.log"]
}
`
	p := testutil.NewProject(t, []string{"a.rs", "b.rs"}, map[string]string{"stridelink.hcl": hcl})

	// --- Act ---
	result := testutil.Run(context.Background(), t, p, app.Config{})

	// --- Assert ---
	require.Error(t, result.Err)
	assert.NoFileExists(t, p.Path("builds.log"))
	assert.Equal(t, testutil.LinkerScript, p.Read(t, "src/linker.ld"))
}

// Test for: unknown variables in the command are rejected when the build
// file is loaded.
func TestHCLFeatures_UnknownVariable(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	hcl := `
toolchain {
  command = ["make", target]
}
`
	p := testutil.NewProject(t, []string{"a.rs"}, map[string]string{"stridelink.hcl": hcl})

	// --- Act ---
	result := testutil.Run(context.Background(), t, p, app.Config{})

	// --- Assert ---
	require.Error(t, result.Err)
	assert.Equal(t, app.ExitUsage, app.ExitCode(result.Err))
	assert.Contains(t, result.Err.Error(), "target")
}

// Test for: an artifact block without a path is a configuration error
// reported before anything is built.
func TestHCLFeatures_ArtifactWithoutPath(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	hcl := `
toolchain {
  command = ["sh", "-c", "echo ${app} >> builds.log"]
}

artifact {
  verify = true
}
`
	p := testutil.NewProject(t, []string{"a.rs"}, map[string]string{"stridelink.hcl": hcl})

	// --- Act ---
	result := testutil.Run(context.Background(), t, p, app.Config{})

	// --- Assert ---
	require.Error(t, result.Err)
	assert.Equal(t, app.ExitUsage, app.ExitCode(result.Err))
	assert.Contains(t, result.Err.Error(), "artifact.path is required")
	assert.NoFileExists(t, p.Path("builds.log"))
}
