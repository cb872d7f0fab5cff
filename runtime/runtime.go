package runtime

import (
	armruntime "github.com/pockethle/arm-runtime"
	"github.com/pockethle/arm-runtime/abi"
	"github.com/pockethle/arm-runtime/arm"
	"github.com/pockethle/arm-runtime/cpu"
	"github.com/pockethle/arm-runtime/dyld"
	"github.com/pockethle/arm-runtime/errors"
	"github.com/pockethle/arm-runtime/macho"
)

// Runtime is one emulated process: its memory, execution engine, dynamic
// linker and loaded binaries. It is not safe for concurrent use; callers
// owning multiple goroutines must serialize access externally.
type Runtime struct {
	mem      armruntime.Memory
	alloc    armruntime.Allocator
	eng      cpu.Engine
	objc     dyld.ObjCRuntime
	dyld     *dyld.Dyld
	registry *dyld.Registry
	bins     []*macho.Binary
}

var _ dyld.Environment = (*Runtime)(nil)

// New assembles a runtime around an execution engine and guest memory.
// Host symbols resolve through the given registry; a nil registry leaves
// every symbol to guest-to-guest resolution.
func New(eng cpu.Engine, mem armruntime.Memory, alloc armruntime.Allocator, objc dyld.ObjCRuntime, registry *dyld.Registry) *Runtime {
	if registry == nil {
		registry = dyld.NewRegistry()
	}
	return &Runtime{
		mem:      mem,
		alloc:    alloc,
		eng:      eng,
		objc:     objc,
		dyld:     dyld.New(registry),
		registry: registry,
	}
}

// RegisterExports adds a host export list behind all previously registered
// ones. Symbols already resolved through the linked-function table are
// unaffected; lists must be registered before the first call that should
// resolve through them.
func (r *Runtime) RegisterExports(list dyld.FunctionExports) {
	r.registry.Append(list)
}

// Mem implements dyld.Environment.
func (r *Runtime) Mem() armruntime.Memory { return r.mem }

// CPU implements dyld.Environment.
func (r *Runtime) CPU() cpu.Engine { return r.eng }

// Dyld exposes the process's dynamic linker.
func (r *Runtime) Dyld() *dyld.Dyld { return r.dyld }

// Binaries returns the loaded binaries in load order.
func (r *Runtime) Binaries() []*macho.Binary { return r.bins }

// LoadBinary appends a parsed binary. The first binary loaded is treated
// as the application binary; the rest are dynamic libraries.
func (r *Runtime) LoadBinary(bin *macho.Binary) {
	r.bins = append(r.bins, bin)
}

// InitialLink runs the linker over everything loaded so far. Must be
// called exactly once, after the last LoadBinary and before any guest
// code executes.
func (r *Runtime) InitialLink() error {
	return r.dyld.DoInitialLinking(r.bins, r.mem, r.alloc, r.objc)
}

// Step runs guest code for at most ticks instructions, servicing traps as
// they arrive. It reports whether control came back to the host through
// the return-to-host routine; false means the tick budget ran out with
// guest execution still in flight and the PC parked wherever it got to.
func (r *Runtime) Step(ticks uint64) (returned bool, err error) {
	remaining := ticks
	for {
		out := r.eng.Run(r.mem, &remaining)
		if !out.Trapped {
			if remaining != 0 {
				return false, errors.ProtocolViolation(errors.PhaseExec, r.eng.Regs()[arm.RegPC],
					"engine stopped untrapped with %d ticks left", remaining)
			}
			return false, nil
		}
		if out.SVC == dyld.SVCReturnToHost {
			return true, nil
		}

		// The engine leaves the PC just past the trapping instruction.
		svcPC := r.eng.Regs()[arm.RegPC] - 4
		fn, err := r.dyld.SVCHandler(r.bins, r.mem, r.eng, svcPC, out.SVC)
		if err != nil {
			return false, err
		}
		if fn != nil {
			// Service the call here; the guest then falls through to the
			// return slot behind the svc.
			fn(r)
			continue
		}
		// The stub was relinked to guest code; re-enter it so the restored
		// instructions complete the call.
		cpu.Branch(r.eng, abi.FromAddrAndThumbFlag(svcPC, false))
	}
}

// CallGuestFunction transfers control to a guest function and runs it to
// completion. The link register is pointed at the return-to-host routine,
// so an ordinary return from the function hands control back here. The
// engine's PC and LR are restored afterwards, letting host code call
// guest functions from inside a host function servicing a trap.
//
// ticksPerStep bounds each engine invocation, not the call as a whole;
// the loop keeps running until the guest returns or linking fails.
func (r *Runtime) CallGuestFunction(fn abi.GuestFunction, ticksPerStep uint64) error {
	if ticksPerStep == 0 {
		return errors.InvalidInput(errors.PhaseExec, "tick budget must be positive")
	}

	oldPC, oldLR := cpu.BranchWithLink(r.eng, fn, r.dyld.ReturnToHostRoutine())
	for {
		returned, err := r.Step(ticksPerStep)
		if err != nil {
			return err
		}
		if returned {
			break
		}
	}

	cpu.Branch(r.eng, oldPC)
	regs := r.eng.Regs()
	regs[arm.RegLR] = oldLR.AddrWithThumbBit()
	r.eng.SetRegs(regs)
	return nil
}
