package armruntime

// Memory is byte-addressable guest memory keyed by 32-bit virtual address.
//
// Bounds are deliberately not validated on behalf of callers: the linker and
// run loop trust the addresses found in loaded binaries, and implementations
// panic on access outside mapped memory. Ownership of address validation
// lives with the address space implementation, not with this core.
type Memory interface {
	ReadU8(addr uint32) uint8
	ReadU16(addr uint32) uint16
	ReadU32(addr uint32) uint32
	WriteU8(addr uint32, v uint8)
	WriteU16(addr uint32, v uint16)
	WriteU32(addr uint32, v uint32)

	// Read returns a copy of size bytes starting at addr.
	Read(addr, size uint32) []byte
	// Write copies data into guest memory starting at addr.
	Write(addr uint32, data []byte)
}

// Allocator hands out fresh guest addresses.
type Allocator interface {
	Alloc(size, align uint32) uint32
}
