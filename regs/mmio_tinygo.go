//go:build tinygo

package regs

import (
	"runtime/volatile"
	"unsafe"
)

// MMIO is the Bus of the running microcontroller.
type MMIO struct{}

// Reg8 returns the memory-mapped register at addr.
func (MMIO) Reg8(addr uintptr) Register8 {
	return (*volatile.Register8)(unsafe.Pointer(addr))
}
