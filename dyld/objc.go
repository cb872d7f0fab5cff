package dyld

import (
	armruntime "github.com/pockethle/arm-runtime"
	"github.com/pockethle/arm-runtime/macho"
)

// Name-mangling prefixes that mark a relocation as an Objective-C class or
// metaclass reference.
const (
	objcClassPrefix     = "_OBJC_CLASS_$_"
	objcMetaclassPrefix = "_OBJC_METACLASS_$_"
)

// ObjCRuntime is the linker's boundary with the Objective-C runtime's
// class/selector registry. The linker invokes the registration entry
// points in a fixed order during initial linking: binary selectors, host
// selectors, then (after all binaries are linked) classes and categories.
// Class-pointer relocations resolve through LinkClass strictly after
// selector registration and strictly before class registration, so
// superclass pointers never reference not-yet-registered classes.
type ObjCRuntime interface {
	RegisterBinarySelectors(bin *macho.Binary, mem armruntime.Memory)
	RegisterHostSelectors(mem armruntime.Memory)
	RegisterBinaryClasses(bin *macho.Binary, mem armruntime.Memory)
	RegisterBinaryCategories(bin *macho.Binary, mem armruntime.Memory)

	// LinkClass resolves the named class (or metaclass) to a guest-side
	// object, creating it if necessary, and returns its guest address.
	LinkClass(name string, metaclass bool, mem armruntime.Memory) uint32
}
