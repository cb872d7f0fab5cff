package macho

// Section names of interest to the dynamic linker, as emitted for compiled
// iPhone OS binaries.
const (
	SectSymbolStubs    = "__symbol_stub4"
	SectPICSymbolStubs = "__picsymbolstub4"
	SectNonLazyPtrs    = "__nl_symbol_ptr"
	SectLazyPtrs       = "__la_symbol_ptr"
)

// IndirectSymbolInfo describes a section's indirect-symbol binding: the
// fixed per-entry size and, per index, the mangled undefined symbol bound
// to that entry.
type IndirectSymbolInfo struct {
	EntrySize uint32

	// Symbols[i] is the mangled symbol bound to entry i. The empty string
	// means the entry has no symbol to resolve: it is already concrete, or
	// intentionally unused.
	Symbols []string
}

// Symbol returns the bound symbol for an entry index, if any.
func (info *IndirectSymbolInfo) Symbol(idx int) (string, bool) {
	if idx < 0 || idx >= len(info.Symbols) || info.Symbols[idx] == "" {
		return "", false
	}
	return info.Symbols[idx], true
}

// Section is one loaded section of a binary.
type Section struct {
	Name string
	Addr uint32
	Size uint32

	// Indirect is present on sections subject to indirect-symbol binding
	// (call stubs, non-lazy pointer tables).
	Indirect *IndirectSymbolInfo
}

// Contains reports whether addr falls inside the section's address range.
func (s *Section) Contains(addr uint32) bool {
	return addr >= s.Addr && addr < s.Addr+s.Size
}

// Relocation is one external relocation: the guest address a resolved
// pointer must be written to, and the symbol it refers to.
type Relocation struct {
	Addr   uint32
	Symbol string
}

// Binary is the parsed, loaded form of a Mach-O image.
type Binary struct {
	Name                string
	Sections            []Section
	ExportedSymbols     map[string]uint32
	ExternalRelocations []Relocation
}

// Section returns the named section, or nil.
func (b *Binary) Section(name string) *Section {
	for i := range b.Sections {
		if b.Sections[i].Name == name {
			return &b.Sections[i]
		}
	}
	return nil
}

// StubSection returns the binary's call-stub section in whichever layout
// it uses, or nil if the binary exposes none.
func (b *Binary) StubSection() *Section {
	if s := b.Section(SectSymbolStubs); s != nil {
		return s
	}
	return b.Section(SectPICSymbolStubs)
}
