package interp

import (
	"fmt"

	armruntime "github.com/pockethle/arm-runtime"
	"github.com/pockethle/arm-runtime/arm"
	"github.com/pockethle/arm-runtime/cpu"
)

// Invalidation records one cache-invalidation request.
type Invalidation struct {
	Base uint32
	Size uint32
}

// Engine is a minimal, single-stepping implementation of cpu.Engine.
// The zero value is not ready; use New.
type Engine struct {
	regs          [16]uint32
	cpsr          uint32
	invalidations []Invalidation
}

// New returns an engine in user mode with all registers zeroed.
func New() *Engine {
	return &Engine{cpsr: arm.CPSRUser}
}

func (e *Engine) Regs() [16]uint32 { return e.regs }

func (e *Engine) SetRegs(regs [16]uint32) { e.regs = regs }

func (e *Engine) CPSR() uint32 { return e.cpsr }

func (e *Engine) SetCPSR(cpsr uint32) { e.cpsr = cpsr }

// InvalidateCacheRange records the request. The interpreter reads
// instructions straight from guest memory, so recording is all the
// coherency it needs; tests assert against the log.
func (e *Engine) InvalidateCacheRange(base, size uint32) {
	e.invalidations = append(e.invalidations, Invalidation{Base: base, Size: size})
}

// Invalidations returns the cache-invalidation log.
func (e *Engine) Invalidations() []Invalidation { return e.invalidations }

// Run executes instructions one tick apiece until the budget is exhausted
// or an svc traps. On a trap the program counter is left after the svc
// instruction, per the cpu.Engine contract.
func (e *Engine) Run(mem armruntime.Memory, ticks *uint64) cpu.Outcome {
	for *ticks > 0 {
		if e.cpsr&arm.CPSRThumb != 0 {
			panic(fmt.Sprintf("interp: thumb execution not supported (pc=%#x)", e.regs[arm.RegPC]))
		}

		instr := mem.ReadU32(e.regs[arm.RegPC])
		*ticks--

		if imm, ok := arm.SVCImm(instr); ok {
			e.regs[arm.RegPC] += 4
			return cpu.Outcome{SVC: imm, Trapped: true}
		}

		switch instr {
		case arm.RetInstr:
			lr := e.regs[arm.RegLR]
			e.regs[arm.RegPC] = lr &^ 1
			if lr&1 != 0 {
				e.cpsr |= arm.CPSRThumb
			} else {
				e.cpsr &^= arm.CPSRThumb
			}
		case arm.TrapInstr:
			panic(fmt.Sprintf("interp: undefined instruction executed at %#x", e.regs[arm.RegPC]))
		default:
			// Outside the control-transfer subset: no-op.
			e.regs[arm.RegPC] += 4
		}
	}
	return cpu.Outcome{}
}
