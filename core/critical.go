package core

// Critical runs fn with interrupts disabled and restores the previous
// interrupt state afterwards, including when fn panics. Calls nest.
//
// Any 16-bit timer register (TCNTn, OCRnx, ICRn) that is written or read both
// from the main program and from an interrupt handler of the same timer must
// be accessed inside Critical: the two byte accesses share the timer's TEMP
// register and a handler running in between corrupts the value.
func Critical(fn func()) {
	state := disableInterrupts()
	defer restoreInterrupts(state)
	fn()
}
