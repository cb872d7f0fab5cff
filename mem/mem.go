package mem

import (
	"encoding/binary"
	"fmt"
)

// RAM is a guest memory segment starting at Base. Guest words are
// little-endian, matching the target's byte order.
//
// Allocation is bump-only: addresses are never reused, which suits the
// process-lifetime objects this core allocates (the return-to-host
// trampoline, runtime-created objects).
type RAM struct {
	base  uint32
	bytes []byte
	brk   uint32 // next free address
}

// New maps size bytes of zeroed guest memory at base.
func New(base, size uint32) *RAM {
	return &RAM{
		base:  base,
		bytes: make([]byte, size),
		brk:   base,
	}
}

// Base returns the lowest mapped guest address.
func (m *RAM) Base() uint32 { return m.base }

// Size returns the mapped size in bytes.
func (m *RAM) Size() uint32 { return uint32(len(m.bytes)) }

func (m *RAM) slice(addr, size uint32) []byte {
	off := addr - m.base
	if addr < m.base || uint64(off)+uint64(size) > uint64(len(m.bytes)) {
		panic(fmt.Sprintf("mem: access of %d bytes at unmapped address %#x", size, addr))
	}
	return m.bytes[off : off+size]
}

func (m *RAM) ReadU8(addr uint32) uint8 { return m.slice(addr, 1)[0] }

func (m *RAM) ReadU16(addr uint32) uint16 {
	return binary.LittleEndian.Uint16(m.slice(addr, 2))
}

func (m *RAM) ReadU32(addr uint32) uint32 {
	return binary.LittleEndian.Uint32(m.slice(addr, 4))
}

func (m *RAM) WriteU8(addr uint32, v uint8) { m.slice(addr, 1)[0] = v }

func (m *RAM) WriteU16(addr uint32, v uint16) {
	binary.LittleEndian.PutUint16(m.slice(addr, 2), v)
}

func (m *RAM) WriteU32(addr uint32, v uint32) {
	binary.LittleEndian.PutUint32(m.slice(addr, 4), v)
}

// Read returns a copy of size bytes starting at addr.
func (m *RAM) Read(addr, size uint32) []byte {
	out := make([]byte, size)
	copy(out, m.slice(addr, size))
	return out
}

// Write copies data into guest memory starting at addr.
func (m *RAM) Write(addr uint32, data []byte) {
	copy(m.slice(addr, uint32(len(data))), data)
}

// Alloc returns a fresh guest address of at least size bytes with the
// requested alignment. align must be a power of two; zero means 4.
func (m *RAM) Alloc(size, align uint32) uint32 {
	if align == 0 {
		align = 4
	}
	addr := (m.brk + align - 1) &^ (align - 1)
	// Force the range check now rather than on first access.
	_ = m.slice(addr, size)
	m.brk = addr + size
	return addr
}

// WriteWords writes consecutive 32-bit words starting at addr.
func (m *RAM) WriteWords(addr uint32, words []uint32) {
	for i, w := range words {
		m.WriteU32(addr+uint32(i)*4, w)
	}
}
