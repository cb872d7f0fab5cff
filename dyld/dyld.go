package dyld

import (
	"strconv"
	"strings"

	"go.uber.org/zap"

	armruntime "github.com/pockethle/arm-runtime"
	"github.com/pockethle/arm-runtime/abi"
	"github.com/pockethle/arm-runtime/arm"
	"github.com/pockethle/arm-runtime/cpu"
	"github.com/pockethle/arm-runtime/errors"
	"github.com/pockethle/arm-runtime/macho"
)

// Supervisor-call code space. Codes below the dynamic base are reserved;
// codes at and above it index the linked-host-function table.
const (
	// SVCLazyLink is reserved for invoking the lazy linker.
	SVCLazyLink uint32 = 0
	// SVCReturnToHost is reserved for the return-to-host routine. The run
	// loop intercepts it before trap dispatch ever sees it.
	SVCReturnToHost uint32 = 1
	// SVCLinkedFunctionsBase is the first code assigned to linked host
	// functions. The range grows upward, one code per resolved function.
	SVCLinkedFunctionsBase uint32 = SVCReturnToHost + 1
)

// LinkedFunction is one entry of the linked-host-function table: a
// resolved host implementation and the symbol it answers for. Entry i
// services trap code SVCLinkedFunctionsBase+i. Entries are never removed
// or reordered; guest code embeds the codes directly.
type LinkedFunction struct {
	Symbol string
	Func   HostFunction
}

// Dyld performs initial linking of loaded binaries, lazily resolves
// call-stub targets on first use, and dispatches trap codes to host
// functions.
//
// One Dyld instance is constructed at process start and passed by
// reference to every subsystem that needs it. It assumes single-writer
// access: callers owning multiple execution contexts must serialize calls
// into it externally.
type Dyld struct {
	registry     *Registry
	linked       []LinkedFunction
	returnToHost abi.GuestFunction
	initialized  bool
}

// New creates a linker resolving host symbols through the given registry.
func New(registry *Registry) *Dyld {
	if registry == nil {
		registry = NewRegistry()
	}
	return &Dyld{registry: registry}
}

// ReturnToHostRoutine returns the canonical guest entry point that
// transfers control back to the host. It is the value to place in the
// link register whenever host code must regain control after a guest
// call. Initial linking must have run.
func (d *Dyld) ReturnToHostRoutine() abi.GuestFunction {
	if !d.initialized {
		panic("dyld: initial linking has not run")
	}
	return d.returnToHost
}

// LinkedFunctions returns a snapshot of the linked-host-function table.
func (d *Dyld) LinkedFunctions() []LinkedFunction {
	out := make([]LinkedFunction, len(d.linked))
	copy(out, d.linked)
	return out
}

// DoInitialLinking performs the linking-related tasks that must happen
// right after the binaries are loaded and before any guest code runs:
// it writes the return-to-host trampoline, registers the application
// binary's Objective-C metadata, installs lazy-linking stubs and resolves
// non-lazy bindings.
//
// bins[0] is the application binary; the rest are dynamic libraries.
// Currently only the application binary is assumed to contain Objective-C
// things.
func (d *Dyld) DoInitialLinking(bins []*macho.Binary, mem armruntime.Memory, alloc armruntime.Allocator, objc ObjCRuntime) error {
	if d.initialized {
		return errors.AlreadyInitialized("dynamic linker")
	}
	if len(bins) == 0 {
		return errors.InvalidInput(errors.PhaseLink, "no binaries loaded")
	}

	// The trampoline is allocated exactly once per process lifetime. When
	// a return-to-host occurs it is the host's responsibility to move the
	// PC elsewhere, so the undefined instruction behind the svc must never
	// execute.
	routine := alloc.Alloc(8, 4)
	mem.WriteU32(routine, arm.SVC(SVCReturnToHost))
	mem.WriteU32(routine+4, arm.TrapInstr)
	d.returnToHost = abi.FromAddrWithThumbBit(routine)
	d.initialized = true

	objc.RegisterBinarySelectors(bins[0], mem)
	objc.RegisterHostSelectors(mem)

	for _, bin := range bins {
		if err := d.setupLazyLinking(bin, mem); err != nil {
			return err
		}
		// Must happen before RegisterBinaryClasses, else superclass
		// pointers will be wrong.
		if err := d.doNonLazyLinking(bin, mem, objc); err != nil {
			return err
		}
	}

	objc.RegisterBinaryClasses(bins[0], mem)
	objc.RegisterBinaryCategories(bins[0], mem)
	return nil
}

// setupLazyLinking rewrites every call stub of a binary so that its first
// invocation traps into the lazy linker.
//
// The stubs already exist in the binary: instead of calling an external
// function directly, compiled code calls a stub which jumps through a
// resolved-pointer cell. Each stub's first instruction becomes an svc
// carrying the lazy-link code, and the following slot becomes a return so
// that once the lazy-link handler has done its work the stub falls through
// to a trivial return without the handler touching the program counter.
func (d *Dyld) setupLazyLinking(bin *macho.Binary, mem armruntime.Memory) error {
	stubs := bin.StubSection()
	if stubs == nil {
		return nil
	}
	info := stubs.Indirect
	if info == nil {
		return errors.MalformedSection(bin.Name, stubs.Name, "missing indirect symbol info")
	}

	template := arm.StubTemplateFor(info.EntrySize)
	if template == nil {
		return errors.MalformedSection(bin.Name, stubs.Name,
			"unsupported stub entry size "+itoa(info.EntrySize))
	}
	if stubs.Size%info.EntrySize != 0 {
		return errors.MalformedSection(bin.Name, stubs.Name, "size not a multiple of entry size")
	}

	count := stubs.Size / info.EntrySize
	for i := uint32(0); i < count; i++ {
		addr := stubs.Addr + i*info.EntrySize

		// The stub must be byte-identical to the compiler's template;
		// anything else means the binary is not in the expected form.
		for j, want := range template {
			if got := mem.ReadU32(addr + uint32(j)*4); got != want {
				return errors.TemplateMismatch(bin.Name, addr, j, got, want)
			}
		}

		mem.WriteU32(addr, arm.SVC(SVCLazyLink))
		// Make the stub return once the svc is done, so the handler never
		// has to update the PC manually.
		mem.WriteU32(addr+4, arm.RetInstr)
		if info.EntrySize == arm.PICStubEntrySize {
			// Preceded by a return; executing this means something has
			// gone wrong.
			mem.WriteU32(addr+8, arm.TrapInstr)
		}
		// The trailing resolved-pointer cell is left intact for the
		// lazy-link handler's slow path.
	}
	return nil
}

// doNonLazyLinking resolves the symbols a binary needs bound upfront,
// usually constants, Objective-C classes or vtable pointers.
//
// Since this linking cannot be delayed, missing implementations cannot be
// deferred to the point of use either; everything unhandled is logged so
// there is at least some indication of why the emulator might crash later.
func (d *Dyld) doNonLazyLinking(bin *macho.Binary, mem armruntime.Memory, objc ObjCRuntime) error {
	for _, rel := range bin.ExternalRelocations {
		var ptr uint32
		if name, ok := strings.CutPrefix(rel.Symbol, objcClassPrefix); ok {
			ptr = objc.LinkClass(name, false, mem)
		} else if name, ok := strings.CutPrefix(rel.Symbol, objcMetaclassPrefix); ok {
			ptr = objc.LinkClass(name, true, mem)
		} else {
			Logger().Warn("unhandled external relocation",
				zap.String("symbol", rel.Symbol),
				zap.Uint32("addr", rel.Addr),
				zap.String("binary", bin.Name))
			continue
		}
		mem.WriteU32(rel.Addr, ptr)
	}

	ptrs := bin.Section(macho.SectNonLazyPtrs)
	if ptrs == nil {
		return nil
	}
	info := ptrs.Indirect
	if info == nil {
		return errors.MalformedSection(bin.Name, ptrs.Name, "missing indirect symbol info")
	}
	if info.EntrySize != 4 {
		return errors.MalformedSection(bin.Name, ptrs.Name,
			"unexpected entry size "+itoa(info.EntrySize))
	}
	if ptrs.Size%info.EntrySize != 0 {
		return errors.MalformedSection(bin.Name, ptrs.Name, "size not a multiple of entry size")
	}

	count := ptrs.Size / info.EntrySize
	for i := uint32(0); i < count; i++ {
		symbol, ok := info.Symbol(int(i))
		if !ok {
			continue
		}
		Logger().Warn("unhandled non-lazy symbol",
			zap.String("symbol", symbol),
			zap.Uint32("addr", ptrs.Addr+i*info.EntrySize),
			zap.String("binary", bin.Name))
	}

	// TODO: internal relocations are not resolved anywhere yet.
	return nil
}

// SVCHandler dispatches a trap code encountered during CPU emulation,
// given the address of the trapping svc instruction.
//
// A non-nil HostFunction must be invoked by the caller now that linking is
// done; execution then resumes naturally at the return instruction behind
// the svc. A nil HostFunction with a nil error means the stub was relinked
// to guest code and execution must simply resume at svcPC. The
// return-to-host code never reaches this dispatcher; the run loop
// intercepts it as a distinct, higher-level signal.
func (d *Dyld) SVCHandler(bins []*macho.Binary, mem armruntime.Memory, eng cpu.Engine, svcPC, svc uint32) (HostFunction, error) {
	switch {
	case svc == SVCLazyLink:
		return d.doLazyLink(bins, mem, eng, svcPC)
	case svc == SVCReturnToHost:
		return nil, errors.ProtocolViolation(errors.PhaseDispatch, svcPC,
			"return-to-host trap reached the linker dispatcher")
	default:
		idx := svc - SVCLinkedFunctionsBase
		if idx >= uint32(len(d.linked)) {
			return nil, errors.OutOfRange(svcPC, svc, len(d.linked))
		}
		return d.linked[idx].Func, nil
	}
}

// doLazyLink resolves the call stub trapping at svcPC. Host-implemented
// resolution wins over guest-to-guest resolution; a symbol absent from
// both is terminal, since once guest code has attempted the call no
// further deferral is possible.
func (d *Dyld) doLazyLink(bins []*macho.Binary, mem armruntime.Memory, eng cpu.Engine, svcPC uint32) (HostFunction, error) {
	var stubBin *macho.Binary
	var stubs *macho.Section
	for _, bin := range bins {
		if s := bin.StubSection(); s != nil && s.Contains(svcPC) {
			stubBin, stubs = bin, s
			break
		}
	}
	if stubs == nil {
		return nil, errors.ProtocolViolation(errors.PhaseLink, svcPC,
			"lazy-link trap outside any call-stub section")
	}

	info := stubs.Indirect
	offset := svcPC - stubs.Addr
	if offset%info.EntrySize != 0 {
		return nil, errors.New(errors.PhaseLink, errors.KindProtocolViolation).
			Binary(stubBin.Name).Addr(svcPC).
			Detail("faulting address not aligned to the %d-byte stub entry size", info.EntrySize).
			Build()
	}
	idx := int(offset / info.EntrySize)

	symbol, ok := info.Symbol(idx)
	if !ok {
		return nil, errors.New(errors.PhaseLink, errors.KindProtocolViolation).
			Binary(stubBin.Name).Addr(svcPC).
			Detail("lazily-invoked stub %d has no bound symbol", idx).
			Build()
	}

	if fn, ok := d.registry.Lookup(symbol); ok {
		// Allocate a trap code for this host function and rewrite the
		// stub to call it directly from now on.
		code := SVCLinkedFunctionsBase + uint32(len(d.linked))

		if got := mem.ReadU32(svcPC + 4); got != arm.RetInstr {
			return nil, errors.ProtocolViolation(errors.PhaseLink, svcPC+4,
				"stub return slot was overwritten: %#08x", got)
		}
		mem.WriteU32(svcPC, arm.SVC(code))
		eng.InvalidateCacheRange(svcPC, 4)
		d.linked = append(d.linked, LinkedFunction{Symbol: symbol, Func: fn})

		Logger().Debug("linked host function",
			zap.String("symbol", symbol),
			zap.Uint32("svc", code),
			zap.Uint32("stub", svcPC))

		// Hand the function back so the caller can invoke it as part of
		// handling this very trap, without re-entering guest code.
		return fn, nil
	}

	for _, dylib := range bins {
		if dylib == stubBin {
			continue
		}
		addr, ok := dylib.ExportedSymbols[symbol]
		if !ok {
			continue
		}

		// Restore the original stub instructions, undoing the lazy-trap
		// installation.
		template := arm.StubTemplateFor(info.EntrySize)
		for j, instr := range template {
			mem.WriteU32(svcPC+uint32(j)*4, instr)
		}
		eng.InvalidateCacheRange(svcPC, uint32(len(template))*4)

		// Point the resolved-pointer cell at the target, in the
		// addressing form the restored code expects.
		cell := svcPC + uint32(len(template))*4
		if info.EntrySize == arm.StubEntrySize {
			mem.WriteU32(cell, addr)
		} else {
			// The PC-relative form accounts for the fetch pipeline.
			mem.WriteU32(cell, addr-(svcPC+arm.PipelineOffset))
		}

		Logger().Info("linked guest symbol",
			zap.String("symbol", symbol),
			zap.Uint32("target", addr),
			zap.String("binary", dylib.Name),
			zap.Uint32("stub", svcPC))

		// No host function: the caller must restart execution at svcPC
		// and let the corrected stub complete the call itself.
		return nil, nil
	}

	return nil, &errors.UnimplementedSymbolError{Symbol: symbol, Binary: stubBin.Name, Addr: svcPC}
}

func itoa(v uint32) string {
	return strconv.FormatUint(uint64(v), 10)
}
