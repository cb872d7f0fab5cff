package arm

import "fmt"

// SVCMax is the largest immediate an A32 svc instruction can carry.
const SVCMax uint32 = 0x00ffffff

// RetInstr is "bx lr": return to the address in the link register,
// switching instruction mode according to its low bit.
const RetInstr uint32 = 0xe12fff1e

// TrapInstr is a permanently-undefined instruction. The linker plants it
// where execution must never reach; hitting it faults the CPU rather than
// running stale bytes.
const TrapInstr uint32 = 0xe7ffdefe

// SVC encodes an A32 supervisor call carrying imm as its trap code.
// imm must fit in 24 bits.
func SVC(imm uint32) uint32 {
	if imm > SVCMax {
		panic(fmt.Sprintf("arm: svc immediate %#x exceeds 24 bits", imm))
	}
	return 0xef000000 | imm
}

// SVCImm reports whether instr is an svc encoding (with the
// always-execute condition) and, if so, extracts its immediate.
func SVCImm(instr uint32) (uint32, bool) {
	if instr&0xff000000 != 0xef000000 {
		return 0, false
	}
	return instr & SVCMax, true
}
