package dyld

import (
	armruntime "github.com/pockethle/arm-runtime"
	"github.com/pockethle/arm-runtime/cpu"
)

// Environment is the host-side view a host function receives while
// servicing a guest call.
type Environment interface {
	Mem() armruntime.Memory
	CPU() cpu.Engine
}

// HostFunction is a host-native reimplementation of a framework function,
// invoked directly instead of the original compiled implementation.
type HostFunction func(env Environment)

// Export binds a mangled symbol name to its host implementation. For C
// functions the mangled name is the plain name prefixed with an
// underscore.
type Export struct {
	Symbol string
	Func   HostFunction
}

// FunctionExports lists the functions exported by one host framework
// implementation, in declaration order. Each framework module exposes a
// value of this type, e.g.:
//
//	var Functions = dyld.FunctionExports{
//	    {Symbol: "_NSLog", Func: nsLog},
//	    {Symbol: "_NSStringFromClass", Func: nsStringFromClass},
//	}
type FunctionExports []Export

// Registry is an ordered collection of independently-defined export
// lists. Lookup scans the lists in registration order and returns the
// first match, so when several lists carry the same symbol the
// earliest-registered list wins. That ordering is fixed at construction
// and determines which candidate implementation answers a given symbol.
type Registry struct {
	lists []FunctionExports
}

// NewRegistry builds a registry from export lists in priority order.
func NewRegistry(lists ...FunctionExports) *Registry {
	return &Registry{lists: lists}
}

// Append adds a list behind all previously registered ones.
func (r *Registry) Append(list FunctionExports) {
	r.lists = append(r.lists, list)
}

// Lookup returns the host implementation of a mangled symbol, scanning
// lists in registration order.
func (r *Registry) Lookup(symbol string) (HostFunction, bool) {
	for _, list := range r.lists {
		for _, exp := range list {
			if exp.Symbol == symbol {
				return exp.Func, true
			}
		}
	}
	return nil, false
}
