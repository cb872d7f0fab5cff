// Package errors defines the structured error types used across the
// emulator core.
//
// Errors carry a processing phase and a kind so callers can distinguish
// load-time structural problems (always fatal), run-time protocol
// violations (always fatal) and the terminal unimplemented-symbol case.
// Load-time missing-implementation conditions are deliberately NOT errors:
// they are reported on the diagnostic (log) channel and deferred until the
// point of actual use.
package errors
