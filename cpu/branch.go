package cpu

import (
	"github.com/pockethle/arm-runtime/abi"
	"github.com/pockethle/arm-runtime/arm"
)

// PCWithThumbBit computes the currently-executing function reference: the
// program counter merged with the Thumb flag extracted from the status
// register.
func PCWithThumbBit(e Engine) abi.GuestFunction {
	regs := e.Regs()
	thumb := e.CPSR()&arm.CPSRThumb != 0
	return abi.FromAddrAndThumbFlag(regs[arm.RegPC], thumb)
}

// Branch sets the program counter and the Thumb flag for executing a guest
// function. The link register is untouched.
func Branch(e Engine, to abi.GuestFunction) {
	regs := e.Regs()
	regs[arm.RegPC] = to.Addr()
	e.SetRegs(regs)

	cpsr := e.CPSR() &^ arm.CPSRThumb
	if to.IsThumb() {
		cpsr |= arm.CPSRThumb
	}
	e.SetCPSR(cpsr)
}

// BranchWithLink branches like Branch but also overwrites the link
// register, returning the previous program counter and previous link
// register as function references so the caller can remember where
// execution was before transferring it.
func BranchWithLink(e Engine, to, newLR abi.GuestFunction) (oldPC, oldLR abi.GuestFunction) {
	oldPC = PCWithThumbBit(e)
	oldLR = abi.FromAddrWithThumbBit(e.Regs()[arm.RegLR])

	Branch(e, to)

	regs := e.Regs()
	regs[arm.RegLR] = newLR.AddrWithThumbBit()
	e.SetRegs(regs)
	return oldPC, oldLR
}
