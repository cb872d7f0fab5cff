// Package interp implements the cpu.Engine contract for the
// control-transfer instruction subset: supervisor calls, bx lr returns and
// the undefined-instruction guard.
//
// It exists so the linker, trap dispatch and run loop can be exercised
// without a native recompiler. It is NOT an ARM interpreter: any
// instruction outside the subset advances the program counter and does
// nothing, and Thumb execution is unsupported. Production deployments
// plug in a real engine behind cpu.Engine.
package interp
