// Package abi holds the guest calling-convention types shared by the CPU
// contract, the dynamic linker and the run loop.
package abi
