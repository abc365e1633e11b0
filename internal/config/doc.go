// Package config defines the format-agnostic model of a build run, along
// with the interfaces (Loader, Converter) for loading it and for evaluating
// the per-application expressions it carries.
//
// Concrete implementations of the interfaces, such as for HCL, are provided
// in separate packages.
package config
