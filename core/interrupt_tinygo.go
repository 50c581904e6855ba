//go:build tinygo

package core

import (
	"device/avr"
	"runtime/interrupt"
)

// disableInterrupts disables interrupts and returns the previous state
func disableInterrupts() interrupt.State {
	return interrupt.Disable()
}

// restoreInterrupts restores the interrupt state
func restoreInterrupts(state interrupt.State) {
	interrupt.Restore(state)
}

// EnableGlobalInterrupts sets the I-bit (sei)
func EnableGlobalInterrupts() {
	avr.Asm("sei")
}

// DisableGlobalInterrupts clears the I-bit (cli)
func DisableGlobalInterrupts() {
	avr.Asm("cli")
}

// GlobalInterruptsEnabled reports the SREG I-bit
func GlobalInterruptsEnabled() bool {
	return avr.SREG.HasBits(1 << 7)
}
