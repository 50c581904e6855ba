//go:build !tinygo

package core

import "sync/atomic"

// State is the saved global interrupt flag on regular Go
type State uintptr

// globalInterrupts simulates the SREG I-bit. It starts cleared, as after reset.
var globalInterrupts atomic.Bool

// disableInterrupts clears the simulated I-bit and returns the previous state
func disableInterrupts() State {
	if globalInterrupts.Swap(false) {
		return 1
	}
	return 0
}

// restoreInterrupts restores the simulated I-bit
func restoreInterrupts(state State) {
	globalInterrupts.Store(state != 0)
}

// EnableGlobalInterrupts sets the simulated I-bit (sei)
func EnableGlobalInterrupts() {
	globalInterrupts.Store(true)
}

// DisableGlobalInterrupts clears the simulated I-bit (cli)
func DisableGlobalInterrupts() {
	globalInterrupts.Store(false)
}

// GlobalInterruptsEnabled reports the simulated I-bit. Simulated peripherals
// only dispatch handlers while it is set.
func GlobalInterruptsEnabled() bool {
	return globalInterrupts.Load()
}
