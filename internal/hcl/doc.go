// Package hcl provides the concrete HCL implementation of the config.Loader
// interface. It is responsible for file parsing, expression evaluation
// (with a small standard function library), and translation of `soil` and
// `scenario` blocks into the format-agnostic model.
package hcl
