// Package config defines the format-agnostic model of a scenario file, along
// with the Loader interface that concrete formats implement.
//
// The `config.Model` is the single source of truth for the `scenario`
// package, which resolves it into validated run configurations. Concrete
// implementations of the interface, such as for HCL and YAML, are provided
// in separate packages.
//
// Every optional field is a pointer so that "not set" can be told apart
// from zero and resolved against soil presets and defaults later.
package config
