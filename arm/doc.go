// Package arm defines the A32 instruction encodings, call-stub byte
// templates and status-register bit positions the dynamic linker depends
// on.
//
// These are exact bit patterns of the target instruction set. Compiled
// guest binaries embed the stub templates verbatim, and the linker both
// verifies and reproduces them bit-for-bit, so nothing in this package may
// be approximated.
package arm
