package cpu

import (
	armruntime "github.com/pockethle/arm-runtime"
)

// Outcome reports why a Run call stopped.
type Outcome struct {
	// SVC is the trap code carried by the svc instruction. Only meaningful
	// when Trapped is true.
	SVC uint32

	// Trapped is true when execution stopped at an svc instruction and
	// false when the tick budget was exhausted. In the latter case the
	// remaining tick count is exactly zero.
	Trapped bool
}

// Engine is the execution engine for 32-bit ARM guest code.
//
// Implementations hold 16 general registers and a status register, and
// execute guest code until either the tick budget runs out or a supervisor
// call traps. Any other stop reason indicates engine/host disagreement
// about the trap protocol and must abort the process immediately rather
// than surface through Outcome.
//
// After an svc trap, the program counter points at the instruction
// following the svc; callers recover the trap site as PC minus the
// instruction width.
type Engine interface {
	// Regs returns a snapshot of the 16 general registers.
	Regs() [16]uint32
	// SetRegs replaces all 16 general registers.
	SetRegs(regs [16]uint32)

	// CPSR returns the status register.
	CPSR() uint32
	// SetCPSR replaces the status register.
	SetCPSR(cpsr uint32)

	// InvalidateCacheRange must be called whenever guest code bytes are
	// mutated, so any internal just-in-time translation stays consistent
	// with memory.
	InvalidateCacheRange(base, size uint32)

	// Run executes guest code, decrementing *ticks as it goes, until the
	// budget is exhausted or an svc instruction traps. On a Trapped
	// outcome the remaining budget may be nonzero; otherwise it is zero.
	Run(mem armruntime.Memory, ticks *uint64) Outcome
}
