package main

import (
	"fmt"
	"os"

	"github.com/davecgh/go-spew/spew"

	armruntime "github.com/pockethle/arm-runtime"
	"github.com/pockethle/arm-runtime/abi"
	"github.com/pockethle/arm-runtime/arm"
	"github.com/pockethle/arm-runtime/disasm"
	"github.com/pockethle/arm-runtime/dyld"
	"github.com/pockethle/arm-runtime/interp"
	"github.com/pockethle/arm-runtime/macho"
	"github.com/pockethle/arm-runtime/mem"
	"github.com/pockethle/arm-runtime/runtime"
)

// The built-in image: an application binary whose call stubs reference two
// host-implemented symbols and one symbol exported by a companion library.
const (
	demoMemBase  = 0x1000
	demoMemSize  = 1 << 20
	demoStubBase = 0x4000
	demoLibEntry = 0x8000
)

var demoStubSymbols = []string{"_add", "_mul", "_lib_counter"}

var demoExports = dyld.FunctionExports{
	{Symbol: "_add", Func: func(env dyld.Environment) {
		regs := env.CPU().Regs()
		regs[0] += regs[1]
		env.CPU().SetRegs(regs)
	}},
	{Symbol: "_mul", Func: func(env dyld.Environment) {
		regs := env.CPU().Regs()
		regs[0] *= regs[1]
		env.CPU().SetRegs(regs)
	}},
}

// noObjC satisfies the linker's Objective-C boundary for images that carry
// no Objective-C metadata.
type noObjC struct{}

func (noObjC) RegisterBinarySelectors(*macho.Binary, armruntime.Memory)  {}
func (noObjC) RegisterHostSelectors(armruntime.Memory)                   {}
func (noObjC) RegisterBinaryClasses(*macho.Binary, armruntime.Memory)    {}
func (noObjC) RegisterBinaryCategories(*macho.Binary, armruntime.Memory) {}
func (noObjC) LinkClass(string, bool, armruntime.Memory) uint32          { return 0 }

type demoProcess struct {
	rt  *runtime.Runtime
	eng *interp.Engine
	ram *mem.RAM
}

func stubAddr(idx int) uint32 {
	return demoStubBase + uint32(idx)*arm.StubEntrySize
}

func buildDemoProcess() (*demoProcess, error) {
	ram := mem.New(demoMemBase, demoMemSize)
	eng := interp.New()

	for i := range demoStubSymbols {
		ram.WriteWords(stubAddr(i), arm.StubTemplate[:])
	}
	ram.WriteU32(demoLibEntry, arm.RetInstr)

	rt := runtime.New(eng, ram, ram, noObjC{}, dyld.NewRegistry(demoExports))
	rt.LoadBinary(&macho.Binary{
		Name: "app",
		Sections: []macho.Section{{
			Name: macho.SectSymbolStubs,
			Addr: demoStubBase,
			Size: uint32(len(demoStubSymbols)) * arm.StubEntrySize,
			Indirect: &macho.IndirectSymbolInfo{
				EntrySize: arm.StubEntrySize,
				Symbols:   demoStubSymbols,
			},
		}},
	})
	rt.LoadBinary(&macho.Binary{
		Name:            "libdemo",
		ExportedSymbols: map[string]uint32{"_lib_counter": demoLibEntry},
	})

	if err := rt.InitialLink(); err != nil {
		return nil, err
	}
	return &demoProcess{rt: rt, eng: eng, ram: ram}, nil
}

// callStub calls the idx-th application stub with r0 and r1 loaded, and
// returns the r0 the guest left behind.
func (p *demoProcess) callStub(idx int, r0, r1 uint32, ticks uint64) (uint32, error) {
	regs := p.eng.Regs()
	regs[0], regs[1] = r0, r1
	p.eng.SetRegs(regs)

	fn := abi.FromAddrAndThumbFlag(stubAddr(idx), false)
	if err := p.rt.CallGuestFunction(fn, ticks); err != nil {
		return 0, err
	}
	return p.eng.Regs()[0], nil
}

// relinkStub drives one bounded step into the idx-th stub so the lazy
// linker rewrites it in place, and returns the resolved-pointer cell.
func (p *demoProcess) relinkStub(idx int) (uint32, error) {
	regs := p.eng.Regs()
	regs[arm.RegPC] = stubAddr(idx)
	p.eng.SetRegs(regs)
	if _, err := p.rt.Step(1); err != nil {
		return 0, err
	}
	return p.ram.ReadU32(stubAddr(idx) + 8), nil
}

func runDemo(ticks uint64, a, b uint32) error {
	p, err := buildDemoProcess()
	if err != nil {
		return err
	}

	fmt.Printf("Image: %d binaries, %d call stubs, return-to-host at %s\n",
		len(p.rt.Binaries()), len(demoStubSymbols), p.rt.Dyld().ReturnToHostRoutine())

	sum, err := p.callStub(0, a, b, ticks)
	if err != nil {
		return err
	}
	fmt.Printf("_add(%d, %d) = %d\n", a, b, sum)

	product, err := p.callStub(1, a, b, ticks)
	if err != nil {
		return err
	}
	fmt.Printf("_mul(%d, %d) = %d\n", a, b, product)

	// The library symbol resolves guest-to-guest: the lazy linker rewrites
	// the stub in place instead of handing back a host function.
	cell, err := p.relinkStub(2)
	if err != nil {
		return err
	}
	fmt.Printf("_lib_counter relinked: resolved-pointer cell = %#x\n", cell)

	fmt.Println("\nLinked host functions:")
	for i, lf := range p.rt.Dyld().LinkedFunctions() {
		fmt.Printf("  svc %d  %s\n", dyld.SVCLinkedFunctionsBase+uint32(i), lf.Symbol)
	}
	return nil
}

func runInspect() error {
	p, err := buildDemoProcess()
	if err != nil {
		return err
	}

	for _, bin := range p.rt.Binaries() {
		stubs := bin.StubSection()
		if stubs == nil {
			continue
		}
		labels := make(map[uint32]string)
		for i := range stubs.Indirect.Symbols {
			if s, ok := stubs.Indirect.Symbol(i); ok {
				labels[stubs.Addr+uint32(i)*stubs.Indirect.EntrySize] = s
			}
		}
		fmt.Printf("%s %s:\n", bin.Name, stubs.Name)
		code := p.ram.Read(stubs.Addr, stubs.Size)
		if err := disasm.Fprint(os.Stdout, code, stubs.Addr, labels); err != nil {
			return err
		}
		fmt.Println()
	}

	fmt.Println("Loaded binaries:")
	spew.Dump(p.rt.Binaries())
	return nil
}
