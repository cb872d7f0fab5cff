// Package runtime drives emulated execution: it owns the run loop that
// alternates between the execution engine and host-side trap handling,
// and it is the control-transfer boundary host code uses to call into
// guest functions.
//
// A Runtime aggregates the guest memory, the execution engine, the
// dynamic linker and the loaded binaries. It implements dyld.Environment,
// so host functions invoked during trap dispatch see the same process
// state the run loop operates on.
package runtime
