package arm

// General register numbers with an architectural role.
const (
	RegSP = 13 // stack pointer
	RegLR = 14 // link register
	RegPC = 15 // program counter
)

// CPSR bit positions.
const (
	// CPSRThumb is set while the CPU executes in the compact (Thumb)
	// instruction encoding.
	CPSRThumb uint32 = 0x00000020

	// CPSRUser is set while the CPU runs at the unprivileged level.
	CPSRUser uint32 = 0x00000010
)

// PipelineOffset is the A32 fetch pipeline offset: reading PC from guest
// code yields the current instruction's address plus 8. Position-independent
// stubs bake this constant into their address arithmetic.
const PipelineOffset = 8

// Call-stub entry sizes in bytes. Both layouts end with a 4-byte data cell
// holding the resolved-pointer value.
const (
	StubEntrySize    = 12 // two instructions + data cell
	PICStubEntrySize = 16 // three instructions + data cell
)

// StubTemplate is the instruction prefix of a __symbol_stub4 entry:
//
//	ldr ip, [pc]  ; load the cell that follows
//	ldr pc, [ip]  ; jump through the resolved pointer
var StubTemplate = [2]uint32{0xe59fc000, 0xe59cf000}

// PICStubTemplate is the instruction prefix of a __picsymbolstub4 entry,
// which computes the pointer location PC-relatively:
//
//	ldr ip, [pc, #4]
//	add ip, pc, ip
//	ldr pc, [ip]
var PICStubTemplate = [3]uint32{0xe59fc004, 0xe08fc00c, 0xe59cf000}

// StubTemplateFor returns the expected instruction words for a stub entry
// of the given size, or nil if the size matches neither known layout.
func StubTemplateFor(entrySize uint32) []uint32 {
	switch entrySize {
	case StubEntrySize:
		return StubTemplate[:]
	case PICStubEntrySize:
		return PICStubTemplate[:]
	default:
		return nil
	}
}
