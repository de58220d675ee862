// Package app contains the batch driver. It loads scenario files, resolves
// every run, executes each one on its own harness and engine on a bounded
// worker pool, and reports the outcomes. It is decoupled from any specific
// entrypoint like a CLI.
package app
