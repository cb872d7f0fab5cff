// Package disasm renders ARM-mode guest code as assembly listings for
// diagnostics. It exists for inspection tooling; nothing in the execution
// path depends on it.
package disasm

import (
	"fmt"
	"io"

	"github.com/bnagy/gapstone"
)

// Fprint disassembles ARM-mode code loaded at addr and writes a listing to
// w. labels maps guest addresses to names printed as "name:" lines before
// the instruction at that address, so call stubs and function entry points
// read like a linker map.
//
// Words the decoder cannot interpret (the permanently-undefined guard
// instruction, embedded pointer cells) are emitted as raw data rather than
// aborting the listing.
func Fprint(w io.Writer, code []byte, addr uint32, labels map[uint32]string) error {
	engine, err := gapstone.New(gapstone.CS_ARCH_ARM, gapstone.CS_MODE_ARM)
	if err != nil {
		return err
	}
	defer engine.Close()

	if err := engine.SetOption(gapstone.CS_OPT_SKIPDATA, gapstone.CS_OPT_ON); err != nil {
		return err
	}

	insns, err := engine.Disasm(code, uint64(addr), 0)
	if err != nil {
		return err
	}

	for _, insn := range insns {
		if name, ok := labels[uint32(insn.Address)]; ok {
			fmt.Fprintf(w, "%s:\n", name)
		}
		fmt.Fprintf(w, "%8x:\t%s\t%s\n", insn.Address, insn.Mnemonic, insn.OpStr)
	}
	return nil
}
