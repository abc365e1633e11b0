// Package hcl provides the concrete HCL implementation for the configuration
// loading and expression evaluation interfaces defined in the `config`
// package. It is responsible for parsing the build file, translating it into
// the model, and evaluating the per-application expressions with cty.
package hcl
