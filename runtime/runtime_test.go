package runtime_test

import (
	"errors"
	"testing"

	armruntime "github.com/pockethle/arm-runtime"
	"github.com/pockethle/arm-runtime/abi"
	"github.com/pockethle/arm-runtime/arm"
	"github.com/pockethle/arm-runtime/dyld"
	rterrors "github.com/pockethle/arm-runtime/errors"
	"github.com/pockethle/arm-runtime/interp"
	"github.com/pockethle/arm-runtime/macho"
	"github.com/pockethle/arm-runtime/mem"
	"github.com/pockethle/arm-runtime/runtime"
)

const (
	memBase  = 0x100
	memSize  = 0x20000
	stubBase = 0x3000
)

type nopObjC struct{}

func (nopObjC) RegisterBinarySelectors(*macho.Binary, armruntime.Memory)  {}
func (nopObjC) RegisterHostSelectors(armruntime.Memory)                   {}
func (nopObjC) RegisterBinaryClasses(*macho.Binary, armruntime.Memory)    {}
func (nopObjC) RegisterBinaryCategories(*macho.Binary, armruntime.Memory) {}
func (nopObjC) LinkClass(string, bool, armruntime.Memory) uint32          { return 0 }

// newProcess wires up a runtime whose application binary carries one plain
// call stub per symbol, starting at stubBase.
func newProcess(t *testing.T, exports dyld.FunctionExports, symbols []string) (*runtime.Runtime, *interp.Engine, *mem.RAM) {
	t.Helper()

	m := mem.New(memBase, memSize)
	eng := interp.New()
	var reg *dyld.Registry
	if exports != nil {
		reg = dyld.NewRegistry(exports)
	}
	r := runtime.New(eng, m, m, nopObjC{}, reg)

	for i := range symbols {
		m.WriteWords(stubBase+uint32(i)*arm.StubEntrySize, arm.StubTemplate[:])
	}
	r.LoadBinary(&macho.Binary{
		Name: "app",
		Sections: []macho.Section{{
			Name: macho.SectSymbolStubs,
			Addr: stubBase,
			Size: uint32(len(symbols)) * arm.StubEntrySize,
			Indirect: &macho.IndirectSymbolInfo{
				EntrySize: arm.StubEntrySize,
				Symbols:   symbols,
			},
		}},
	})
	return r, eng, m
}

func TestCallGuestFunctionResolvesHostSymbol(t *testing.T) {
	calls := 0
	exports := dyld.FunctionExports{
		{Symbol: "_host_add", Func: func(env dyld.Environment) {
			calls++
			regs := env.CPU().Regs()
			regs[0] += regs[1]
			env.CPU().SetRegs(regs)
		}},
	}
	r, eng, m := newProcess(t, exports, []string{"_host_add"})
	if err := r.InitialLink(); err != nil {
		t.Fatal(err)
	}

	regs := eng.Regs()
	regs[0], regs[1] = 5, 3
	regs[arm.RegPC] = 0x4000
	regs[arm.RegLR] = 0x4101 // Thumb return address, must survive untouched
	eng.SetRegs(regs)

	stub := abi.FromAddrAndThumbFlag(stubBase, false)
	if err := r.CallGuestFunction(stub, 16); err != nil {
		t.Fatal(err)
	}

	if calls != 1 {
		t.Errorf("host function ran %d times, want 1", calls)
	}
	if got := eng.Regs()[0]; got != 8 {
		t.Errorf("r0 = %d after host call, want 8", got)
	}
	if got := eng.Regs()[arm.RegPC]; got != 0x4000 {
		t.Errorf("pc = %#x after call, want restored %#x", got, 0x4000)
	}
	if got := eng.Regs()[arm.RegLR]; got != 0x4101 {
		t.Errorf("lr = %#x after call, want restored %#x", got, 0x4101)
	}
	if got := m.ReadU32(stubBase); got != arm.SVC(dyld.SVCLinkedFunctionsBase) {
		t.Errorf("stub word 0 = %#08x, want direct trap %#08x",
			got, arm.SVC(dyld.SVCLinkedFunctionsBase))
	}

	// A second call goes through the rewritten stub and must not grow the
	// linked-function table.
	if err := r.CallGuestFunction(stub, 16); err != nil {
		t.Fatal(err)
	}
	if calls != 2 {
		t.Errorf("host function ran %d times after second call, want 2", calls)
	}
	if n := len(r.Dyld().LinkedFunctions()); n != 1 {
		t.Errorf("linked-function table has %d entries, want 1", n)
	}
}

func TestStepReentersRelinkedStub(t *testing.T) {
	r, eng, m := newProcess(t, nil, []string{"_lib_fn"})
	r.LoadBinary(&macho.Binary{
		Name:            "lib",
		ExportedSymbols: map[string]uint32{"_lib_fn": 0x2000},
	})
	if err := r.InitialLink(); err != nil {
		t.Fatal(err)
	}

	regs := eng.Regs()
	regs[arm.RegPC] = stubBase
	eng.SetRegs(regs)

	// One tick traps into the lazy linker; the remaining two execute the
	// restored stub from its start.
	returned, err := r.Step(3)
	if err != nil {
		t.Fatal(err)
	}
	if returned {
		t.Fatal("budget-bounded Step reported a return to host")
	}

	if got := m.ReadU32(stubBase); got != arm.StubTemplate[0] {
		t.Errorf("stub word 0 = %#08x, want restored template %#08x", got, arm.StubTemplate[0])
	}
	if got := m.ReadU32(stubBase + 8); got != 0x2000 {
		t.Errorf("resolved-pointer cell = %#x, want export address 0x2000", got)
	}
	if got := eng.Regs()[arm.RegPC]; got != stubBase+8 {
		t.Errorf("pc = %#x, want %#x after re-entering the restored stub", got, uint32(stubBase+8))
	}
}

func TestCallGuestFunctionUnimplementedSymbol(t *testing.T) {
	r, _, _ := newProcess(t, nil, []string{"_missing"})
	if err := r.InitialLink(); err != nil {
		t.Fatal(err)
	}

	err := r.CallGuestFunction(abi.FromAddrAndThumbFlag(stubBase, false), 8)
	var unimpl *rterrors.UnimplementedSymbolError
	if !errors.As(err, &unimpl) {
		t.Fatalf("CallGuestFunction returned %v, want UnimplementedSymbolError", err)
	}
	if unimpl.Symbol != "_missing" || unimpl.Addr != stubBase {
		t.Errorf("error carries symbol %q at %#x, want %q at %#x",
			unimpl.Symbol, unimpl.Addr, "_missing", uint32(stubBase))
	}
}

func TestRegisterExportsResolvesAppendedList(t *testing.T) {
	r, _, _ := newProcess(t, dyld.FunctionExports{}, []string{"_late"})
	called := false
	r.RegisterExports(dyld.FunctionExports{
		{Symbol: "_late", Func: func(dyld.Environment) { called = true }},
	})
	if err := r.InitialLink(); err != nil {
		t.Fatal(err)
	}

	if err := r.CallGuestFunction(abi.FromAddrAndThumbFlag(stubBase, false), 8); err != nil {
		t.Fatal(err)
	}
	if !called {
		t.Error("appended export list was not consulted during lazy linking")
	}
}

func TestStepRejectsUnknownTrapCode(t *testing.T) {
	r, eng, m := newProcess(t, nil, nil)
	if err := r.InitialLink(); err != nil {
		t.Fatal(err)
	}

	m.WriteU32(0x5000, arm.SVC(7))
	regs := eng.Regs()
	regs[arm.RegPC] = 0x5000
	eng.SetRegs(regs)

	_, err := r.Step(4)
	want := &rterrors.Error{Phase: rterrors.PhaseDispatch, Kind: rterrors.KindOutOfRange}
	if !errors.Is(err, want) {
		t.Fatalf("Step returned %v, want out-of-range dispatch error", err)
	}
}

func TestCallGuestFunctionRejectsZeroBudget(t *testing.T) {
	r, _, _ := newProcess(t, nil, nil)
	if err := r.InitialLink(); err != nil {
		t.Fatal(err)
	}

	err := r.CallGuestFunction(abi.FromAddrAndThumbFlag(0x2000, false), 0)
	want := &rterrors.Error{Phase: rterrors.PhaseExec, Kind: rterrors.KindInvalidInput}
	if !errors.Is(err, want) {
		t.Fatalf("CallGuestFunction returned %v, want invalid-input error", err)
	}
}
