// Package armruntime provides the execution core of a high-level emulator
// for 32-bit ARM iPhone OS applications.
//
// Guest applications reference functions, constants and classes from system
// frameworks, but the original framework binaries are never loaded. Instead,
// the dynamic linker rewrites the call stubs left in compiled binaries so
// that calls route either into host-native reimplementations or into other
// loaded guest code. The handoff between guest execution and host logic is
// trap-based: rewritten stubs contain supervisor-call instructions whose
// immediates identify the host-side handler.
//
// # Architecture Overview
//
// The library is organized into several packages with distinct
// responsibilities:
//
//	armruntime/          Root package with core Memory and Allocator interfaces
//	├── runtime/         High-level API: run loop and host/guest control transfer
//	├── dyld/            The dynamic linker: stub rewriting, lazy resolution, trap dispatch
//	├── cpu/             Execution engine contract and branch helpers
//	├── arm/             A32 instruction encodings, stub templates, CPSR bits
//	├── abi/             Guest function references (address + Thumb entry mode)
//	├── macho/           Read-only model of parsed Mach-O images
//	├── mem/             Guest address space implementation
//	├── interp/          Minimal interpreter for the control-transfer subset
//	├── disasm/          A32 disassembly of stub regions (capstone)
//	└── errors/          Structured error types for debugging
//
// # Quick Start
//
// Wire up a runtime, link the loaded binaries, and call a guest function:
//
//	rt := runtime.New(engine, guestMem, guestMem, objcRuntime,
//	    dyld.NewRegistry(myFrameworkExports))
//	rt.LoadBinary(appBinary)
//	rt.LoadBinary(libBinary)
//
//	if err := rt.InitialLink(); err != nil {
//	    log.Fatal(err)
//	}
//	if err := rt.CallGuestFunction(entryPoint, 10000); err != nil {
//	    log.Fatal(err)
//	}
//
// # Thread Safety
//
// The linker models a single logical guest CPU core advancing cooperatively:
// exactly one trap is resolved at a time, and stub rewriting is never
// concurrent with execution of the same stub. Callers owning multiple
// execution contexts must serialize calls into the linker externally.
package armruntime
