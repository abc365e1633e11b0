// Package app contains the application logic of a build run. It wires the
// loaded configuration to discovery, the driver and the optional outputs
// (report, manifest), decoupled from any specific entrypoint like a CLI.
package app
