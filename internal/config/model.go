package config

import (
	"time"

	"github.com/hashicorp/hcl/v2"
)

// Defaults mirror the layout of a classic rCore user-program build.
const (
	DefaultOrigin       uint64 = 0x80400000
	DefaultStride       uint64 = 0x20000
	DefaultTemplatePath        = "src/linker.ld"
	DefaultAppsDir             = "src/bin"
	DefaultCommand             = `["cargo", "build", "--bin", app, "--release"]`
)

// StepVariables lists the variable names a per-step expression may use.
var StepVariables = []string{"app", "index", "base_address"}

// Model is the unified representation of a build run's configuration.
type Model struct {
	// Source is the file the model was loaded from, empty for defaults.
	Source    string
	Layout    Layout
	Template  Template
	Apps      Apps
	Toolchain Toolchain
	Artifact  *Artifact
	Manifest  *Manifest
	Report    *Report
}

// Layout holds the address constants.
type Layout struct {
	Origin  uint64
	Stride  uint64
	MaxApps int
}

// Template locates the shared linker script.
type Template struct {
	Path string
	// Token is the text substituted in each step. Empty means the origin
	// rendered as 0x-prefixed hex.
	Token string
}

// Apps locates the application sources.
type Apps struct {
	Dir string
}

// Toolchain describes the external build command.
type Toolchain struct {
	// Command evaluates to the argv of one build.
	Command hcl.Expression
	Dir     string
	Timeout time.Duration
	Env     map[string]string
}

// Artifact locates the binary a build produces.
type Artifact struct {
	// Path evaluates to the artifact's file path.
	Path   hcl.Expression
	Verify bool
}

// Manifest configures the generated application manifest.
type Manifest struct {
	Path   string
	ElfDir string
}

// Report configures the address report.
type Report struct {
	Path string
}
