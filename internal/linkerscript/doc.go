// Package linkerscript owns the shared linker-script template. A single
// script with one substitutable base-address token is time-shared by every
// build in a run: Patch snapshots it, substitutes the token, runs the build
// and restores the snapshot on every exit path, so that after the run the
// script is byte-identical to what it was before.
//
// Store abstracts the script's storage. FileStore is the on-disk
// implementation (with a <path>.bak mirror of the snapshot and a <path>.lock
// run lock); MemStore is an in-memory implementation with fault injection
// for tests.
package linkerscript
