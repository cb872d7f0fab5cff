package errors

import (
	"fmt"
	"strings"
)

// Phase indicates where in processing the error occurred
type Phase string

const (
	PhaseLoad     Phase = "load"     // binary loading and stub installation
	PhaseLink     Phase = "link"     // lazy and non-lazy symbol resolution
	PhaseDispatch Phase = "dispatch" // trap-code dispatch
	PhaseExec     Phase = "exec"     // run loop / engine contract
)

// Kind categorizes the error
type Kind string

const (
	KindTemplateMismatch   Kind = "template_mismatch"
	KindProtocolViolation  Kind = "protocol_violation"
	KindUnresolvedSymbol   Kind = "unresolved_symbol"
	KindOutOfRange         Kind = "out_of_range"
	KindNotInitialized     Kind = "not_initialized"
	KindAlreadyInitialized Kind = "already_initialized"
	KindInvalidInput       Kind = "invalid_input"
	KindMalformedSection   Kind = "malformed_section"
)

// Error is the structured error type used throughout the emulator core
type Error struct {
	Cause  error
	Phase  Phase
	Kind   Kind
	Binary string // name of the involved binary, if known
	Symbol string // mangled symbol name, if known
	Addr   uint32 // guest address, printed when nonzero
	Detail string
}

// Error implements the error interface
func (e *Error) Error() string {
	var b strings.Builder

	b.WriteByte('[')
	b.WriteString(string(e.Phase))
	b.WriteString("] ")
	b.WriteString(string(e.Kind))

	if e.Symbol != "" {
		b.WriteString(": symbol ")
		b.WriteString(fmt.Sprintf("%q", e.Symbol))
	}
	if e.Detail != "" {
		if e.Symbol != "" {
			b.WriteString(" - ")
		} else {
			b.WriteString(": ")
		}
		b.WriteString(e.Detail)
	}
	if e.Addr != 0 {
		b.WriteString(fmt.Sprintf(" at %#x", e.Addr))
	}
	if e.Binary != "" {
		b.WriteString(fmt.Sprintf(" in %q", e.Binary))
	}
	if e.Cause != nil {
		b.WriteString(" (caused by: ")
		b.WriteString(e.Cause.Error())
		b.WriteByte(')')
	}

	return b.String()
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Phase == t.Phase && e.Kind == t.Kind
	}
	return false
}

// Builder provides structured error construction
type Builder struct {
	err Error
}

// New creates a new error builder
func New(phase Phase, kind Kind) *Builder {
	return &Builder{
		err: Error{
			Phase: phase,
			Kind:  kind,
		},
	}
}

// Binary sets the involved binary's name
func (b *Builder) Binary(name string) *Builder {
	b.err.Binary = name
	return b
}

// Symbol sets the mangled symbol name
func (b *Builder) Symbol(sym string) *Builder {
	b.err.Symbol = sym
	return b
}

// Addr sets the guest address involved
func (b *Builder) Addr(addr uint32) *Builder {
	b.err.Addr = addr
	return b
}

// Cause sets the underlying error
func (b *Builder) Cause(err error) *Builder {
	b.err.Cause = err
	return b
}

// Detail sets the human-readable detail message
func (b *Builder) Detail(msg string, args ...any) *Builder {
	if len(args) > 0 {
		b.err.Detail = fmt.Sprintf(msg, args...)
	} else {
		b.err.Detail = msg
	}
	return b
}

// Build returns the constructed error
func (b *Builder) Build() *Error {
	return &b.err
}

// Convenience constructors for common error patterns

// TemplateMismatch reports stub bytes that do not match the expected
// instruction template. The binary is not in the compiled form this linker
// understands, which is always fatal at load time.
func TemplateMismatch(binary string, addr uint32, index int, got, want uint32) *Error {
	return &Error{
		Phase:  PhaseLoad,
		Kind:   KindTemplateMismatch,
		Binary: binary,
		Addr:   addr,
		Detail: fmt.Sprintf("stub word %d is %#08x, template expects %#08x", index, got, want),
	}
}

// MalformedSection reports entry-size or layout assumptions a section
// fails to satisfy.
func MalformedSection(binary, section, detail string) *Error {
	return &Error{
		Phase:  PhaseLoad,
		Kind:   KindMalformedSection,
		Binary: binary,
		Detail: fmt.Sprintf("section %s: %s", section, detail),
	}
}

// ProtocolViolation reports a trap-protocol breach: memory or code
// corruption, or an internal bug. Never recoverable.
func ProtocolViolation(phase Phase, addr uint32, detail string, args ...any) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindProtocolViolation,
		Addr:   addr,
		Detail: fmt.Sprintf(detail, args...),
	}
}

// OutOfRange reports a trap code referencing a host-function slot that was
// never allocated.
func OutOfRange(addr uint32, code uint32, tableLen int) *Error {
	return &Error{
		Phase:  PhaseDispatch,
		Kind:   KindOutOfRange,
		Addr:   addr,
		Detail: fmt.Sprintf("trap code %d references slot beyond table of %d entries", code, tableLen),
	}
}

// NotInitialized reports use of the linker before initial linking.
func NotInitialized(component string) *Error {
	return &Error{
		Phase:  PhaseLink,
		Kind:   KindNotInitialized,
		Detail: fmt.Sprintf("%s not initialized", component),
	}
}

// AlreadyInitialized reports a second initial-linking attempt.
func AlreadyInitialized(component string) *Error {
	return &Error{
		Phase:  PhaseLink,
		Kind:   KindAlreadyInitialized,
		Detail: fmt.Sprintf("%s already initialized", component),
	}
}

// InvalidInput creates an invalid input error
func InvalidInput(phase Phase, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidInput,
		Detail: detail,
	}
}

// UnimplementedSymbolError is returned when a lazily-invoked call resolves
// to a symbol absent from both the host registry and every loaded binary's
// exports. This is the only point where a missing symbol becomes terminal:
// once guest code has actually attempted the call, failure can no longer be
// deferred.
type UnimplementedSymbolError struct {
	Symbol string
	Binary string // binary whose stub faulted
	Addr   uint32 // faulting stub address
}

func (e *UnimplementedSymbolError) Error() string {
	return fmt.Sprintf("call to unimplemented function %s (stub at %#x in %q)",
		e.Symbol, e.Addr, e.Binary)
}

// Is reports whether target matches this error type
func (e *UnimplementedSymbolError) Is(target error) bool {
	_, ok := target.(*UnimplementedSymbolError)
	return ok
}
