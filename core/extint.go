// External interrupt support
// Sense control, enable and pending flags for the INTn pins
package core

import (
	"errors"

	"avrtools/regs"
)

var (
	// ErrNoLine is returned for an INTn number the variant does not have
	ErrNoLine = errors.New("extint: no such external interrupt line")

	// ErrInvalidEvent is returned for a sense control value above 3
	ErrInvalidEvent = errors.New("extint: invalid event type")
)

// ExtIntEvent is the ISCn1:0 sense control value.
type ExtIntEvent uint8

const (
	ExtIntLowLevel    ExtIntEvent = 0x00
	ExtIntAnyEdge     ExtIntEvent = 0x01
	ExtIntFallingEdge ExtIntEvent = 0x02
	ExtIntRisingEdge  ExtIntEvent = 0x03
)

// ExtIntRegisters is the external interrupt register set. EICRB is nil on
// variants with four lines or fewer.
type ExtIntRegisters struct {
	EICRA regs.Register8 // sense control for lines 0-3
	EICRB regs.Register8 // sense control for lines 4-7
	EIMSK regs.Register8
	EIFR  regs.Register8
	Lines uint8
}

// ExtInts is the external interrupt controller.
type ExtInts struct {
	r ExtIntRegisters
}

// NewExtInts binds the controller to its registers.
func NewExtInts(r ExtIntRegisters) *ExtInts {
	return &ExtInts{r: r}
}

// Lines returns the number of INTn lines.
func (e *ExtInts) Lines() uint8 {
	return e.r.Lines
}

// Line returns a handle for INTn.
func (e *ExtInts) Line(n uint8) (*ExtInt, error) {
	if n >= e.r.Lines {
		return nil, ErrNoLine
	}
	return &ExtInt{ctl: e, n: n}, nil
}

// SetEventType selects what on INTn raises the interrupt.
func (e *ExtInts) SetEventType(n uint8, ev ExtIntEvent) error {
	if n >= e.r.Lines {
		return ErrNoLine
	}
	if ev > ExtIntRisingEdge {
		return ErrInvalidEvent
	}

	reg := e.r.EICRA
	pos := n * 2
	if n >= 4 {
		if e.r.EICRB == nil {
			return ErrNoLine
		}
		reg = e.r.EICRB
		pos = (n - 4) * 2
	}
	reg.ReplaceBits(uint8(ev), 0x03, pos)
	RecordEvent(EvtExtIntType, n, uint16(ev), 0)
	return nil
}

// EventType decodes the sense control bits of INTn.
func (e *ExtInts) EventType(n uint8) (ExtIntEvent, error) {
	if n >= e.r.Lines {
		return 0, ErrNoLine
	}
	if n < 4 {
		return ExtIntEvent(e.r.EICRA.Get() >> (n * 2) & 0x03), nil
	}
	if e.r.EICRB == nil {
		return 0, ErrNoLine
	}
	return ExtIntEvent(e.r.EICRB.Get() >> ((n - 4) * 2) & 0x03), nil
}

// Enable unmasks INTn.
func (e *ExtInts) Enable(n uint8) error {
	if n >= e.r.Lines {
		return ErrNoLine
	}
	e.r.EIMSK.SetBits(1 << n)
	return nil
}

// Disable masks INTn.
func (e *ExtInts) Disable(n uint8) error {
	if n >= e.r.Lines {
		return ErrNoLine
	}
	e.r.EIMSK.ClearBits(1 << n)
	return nil
}

// ClearPending clears the INTFn flag. EIFR is write-one-to-clear.
func (e *ExtInts) ClearPending(n uint8) error {
	if n >= e.r.Lines {
		return ErrNoLine
	}
	e.r.EIFR.Set(1 << n)
	return nil
}

// Pending reports whether INTFn is set.
func (e *ExtInts) Pending(n uint8) bool {
	if n >= e.r.Lines {
		return false
	}
	return e.r.EIFR.HasBits(1 << n)
}

// ExtInt is a handle for one INTn line.
type ExtInt struct {
	ctl *ExtInts
	n   uint8
}

// Number returns n of INTn.
func (l *ExtInt) Number() uint8 {
	return l.n
}

// SetEventType selects what raises the interrupt.
func (l *ExtInt) SetEventType(ev ExtIntEvent) error {
	return l.ctl.SetEventType(l.n, ev)
}

// Enable unmasks the line.
func (l *ExtInt) Enable() {
	l.ctl.Enable(l.n)
}

// Disable masks the line.
func (l *ExtInt) Disable() {
	l.ctl.Disable(l.n)
}

// ClearPending clears a pending event.
func (l *ExtInt) ClearPending() {
	l.ctl.ClearPending(l.n)
}

// Pending reports a pending event.
func (l *ExtInt) Pending() bool {
	return l.ctl.Pending(l.n)
}
