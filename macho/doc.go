// Package macho models the parts of a parsed Mach-O image the dynamic
// linker consumes: sections, exported symbols and external relocations.
//
// Parsing the binary format itself is out of scope; a loader fills these
// structures in and they are read-only afterwards, except for the stub byte
// regions, which the linker rewrites exactly once per stub.
package macho
