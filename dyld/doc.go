// Package dyld is the dynamic linker at the heart of the emulator.
//
// iPhone OS's dynamic linker is its namesake. Guest applications reference
// functions, constants and classes from system frameworks, but the
// original framework binaries are never loaded. Instead this linker
// rewrites the call stubs compiled into each binary so that calls route
// either into host-native reimplementations (via supervisor-call traps) or
// into other loaded guest code (by restoring the stub and fixing up its
// resolved-pointer cell).
//
// Linking of functions is lazy: a stub's target is resolved the first time
// the stub is actually invoked. Missing implementations discovered at load
// time are diagnostics, not errors; the system is designed to run binaries
// whose framework surface is only partially reimplemented, so failure
// surfaces at the point of actual use.
package dyld
