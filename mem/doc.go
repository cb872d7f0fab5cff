// Package mem implements the guest address space: a contiguous,
// little-endian RAM segment with typed accessors and a bump allocator.
//
// Access outside the mapped segment panics. The linker and run loop trust
// the addresses found in loaded binaries; validating them is this
// package's job, and a violation means the image or the core is broken,
// not the caller's input.
package mem
