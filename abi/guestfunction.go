package abi

import "fmt"

// GuestFunction is a guest code entry point: a virtual address plus one bit
// recording whether the target must be entered in the compact (Thumb)
// encoding mode.
//
// The mode bit is carried separately from the address. It is merged into
// the address's low bit only at defined encode boundaries: writing a return
// address into the link register, or reading the program counter together
// with the status register's mode flag. Everywhere else the address stays
// representable without the bit baked in.
type GuestFunction struct {
	addr  uint32
	thumb bool
}

// FromAddrAndThumbFlag builds a reference from a clean address and an
// explicit mode flag, as when pairing PC with the status register.
func FromAddrAndThumbFlag(addr uint32, thumb bool) GuestFunction {
	return GuestFunction{addr: addr, thumb: thumb}
}

// FromAddrWithThumbBit decodes a link-register style value whose low bit
// carries the mode.
func FromAddrWithThumbBit(addr uint32) GuestFunction {
	return GuestFunction{addr: addr &^ 1, thumb: addr&1 != 0}
}

// Addr returns the address without the mode bit.
func (f GuestFunction) Addr() uint32 {
	return f.addr
}

// AddrWithThumbBit returns the address with the mode merged into the low
// bit, the form the link register expects.
func (f GuestFunction) AddrWithThumbBit() uint32 {
	if f.thumb {
		return f.addr | 1
	}
	return f.addr
}

// IsThumb reports whether the target must be entered in Thumb mode.
func (f GuestFunction) IsThumb() bool {
	return f.thumb
}

func (f GuestFunction) String() string {
	if f.thumb {
		return fmt.Sprintf("%#x (thumb)", f.addr)
	}
	return fmt.Sprintf("%#x", f.addr)
}
