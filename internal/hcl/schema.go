package hcl

import (
	"github.com/hashicorp/hcl/v2"
)

// fileRoot decodes every top-level block of a build file. All blocks are
// optional; omitted settings keep their defaults.
type fileRoot struct {
	Layout    *layoutBlock    `hcl:"layout,block"`
	Template  *templateBlock  `hcl:"template,block"`
	Apps      *appsBlock      `hcl:"apps,block"`
	Toolchain *toolchainBlock `hcl:"toolchain,block"`
	Artifact  *artifactBlock  `hcl:"artifact,block"`
	Manifest  *manifestBlock  `hcl:"manifest,block"`
	Report    *reportBlock    `hcl:"report,block"`
}

type layoutBlock struct {
	// Origin and Stride accept a number or a prefixed string such as "0x80400000".
	Origin  hcl.Expression `hcl:"origin,optional"`
	Stride  hcl.Expression `hcl:"stride,optional"`
	MaxApps *int           `hcl:"max_apps,optional"`
}

type templateBlock struct {
	Path  *string `hcl:"path,optional"`
	Token *string `hcl:"token,optional"`
}

type appsBlock struct {
	Dir *string `hcl:"dir,optional"`
}

type toolchainBlock struct {
	Command hcl.Expression    `hcl:"command,optional"`
	Dir     *string           `hcl:"dir,optional"`
	Timeout *string           `hcl:"timeout,optional"`
	Env     map[string]string `hcl:"env,optional"`
}

type artifactBlock struct {
	// Path is required; translate enforces it.
	Path   hcl.Expression `hcl:"path,optional"`
	Verify *bool          `hcl:"verify,optional"`
}

type manifestBlock struct {
	Path   string `hcl:"path"`
	ElfDir string `hcl:"elf_dir"`
}

type reportBlock struct {
	Path string `hcl:"path"`
}
