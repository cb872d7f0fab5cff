// Package cpu defines the contract with the ARM execution engine.
//
// The engine itself is an external component (typically a JIT recompiler
// reached across a language boundary); this package only fixes the
// register/status/trap protocol the rest of the core relies on, plus
// helpers for transferring control that keep the program counter and the
// Thumb mode flag consistent.
package cpu
