// Package driver turns the ordered list of applications into built binaries,
// one at a time. Each build step computes the application's base address,
// patches the shared linker script, invokes the toolchain and restores the
// script before the next step starts.
//
// A failed toolchain run is recorded and the run continues. Any failure to
// read, patch or restore the script aborts the run, because every remaining
// step depends on the script being intact.
package driver
