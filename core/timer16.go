// 16-bit Timer/Counter support
// Drives the waveform generation, clock select, compare and interrupt
// registers of timers 1, 3, 4 and 5
package core

import (
	"errors"

	"avrtools/regs"
)

var (
	// ErrFixedTop is returned by SetTopValue when the active mode counts to a
	// constant TOP. Nothing is written.
	ErrFixedTop = errors.New("timer16: active mode has a fixed TOP value")

	// ErrReservedMode is returned by SetTopValue when the mode bits hold the
	// reserved pattern. Nothing is written.
	ErrReservedMode = errors.New("timer16: reserved waveform generation mode")

	// ErrNoChannel is returned when compare channel C is used on a variant
	// that does not have it.
	ErrNoChannel = errors.New("timer16: compare channel not present on this variant")

	// ErrInvalidChannel is returned when a single-channel operation gets zero
	// or several channels.
	ErrInvalidChannel = errors.New("timer16: invalid compare channel")
)

// ClockSource is the CSn2:0 clock select value.
type ClockSource uint8

const (
	ClockOff             ClockSource = 0x00
	ClockPrescale1       ClockSource = 0x01
	ClockPrescale8       ClockSource = 0x02
	ClockPrescale64      ClockSource = 0x03
	ClockPrescale256     ClockSource = 0x04
	ClockPrescale1024    ClockSource = 0x05
	ClockExternalFalling ClockSource = 0x06
	ClockExternalRising  ClockSource = 0x07
)

// Divider returns the prescale ratio for internal clock sources and 0 for
// off and external sources.
func (cs ClockSource) Divider() uint16 {
	switch cs {
	case ClockPrescale1:
		return 1
	case ClockPrescale8:
		return 8
	case ClockPrescale64:
		return 64
	case ClockPrescale256:
		return 256
	case ClockPrescale1024:
		return 1024
	}
	return 0
}

// CompareChannel selects compare registers and output pins. Channels are
// bit flags and can be or'ed for ForceOutputCompareMatch.
type CompareChannel uint8

const (
	ChannelA CompareChannel = 0x01
	ChannelB CompareChannel = 0x02
	ChannelC CompareChannel = 0x04
)

// PwmPinMode is the behaviour of an OCnx output pin. The on-match and PWM
// names share bit patterns; what the pattern does depends on the counting
// mode, and pairing the two is up to the caller.
type PwmPinMode uint8

const (
	PinOff PwmPinMode = iota
	PinToggleOnMatch
	PinClearOnMatch
	PinSetOnMatch
	PinPWMNormal
	PinPWMInverted
)

// comBits returns the 2-bit COMnx code for pm
func (pm PwmPinMode) comBits() uint8 {
	switch pm {
	case PinToggleOnMatch:
		return 0x01
	case PinClearOnMatch, PinPWMNormal:
		return 0x02
	case PinSetOnMatch, PinPWMInverted:
		return 0x03
	}
	return 0x00
}

// TimerInterrupt is a set of TIMSKn / TIFRn bits. Values can be or'ed.
type TimerInterrupt uint8

const (
	IntOverflow     TimerInterrupt = 0x01
	IntCompareA     TimerInterrupt = 0x02
	IntCompareB     TimerInterrupt = 0x04
	IntCompareC     TimerInterrupt = 0x08
	IntInputCapture TimerInterrupt = 0x20
)

// Register bit positions, identical for every 16-bit timer
const (
	bitWGM0 = 0 // WGMn1:0 in TCCRnA
	bitCOMC = 2 // COMnC1:0 in TCCRnA
	bitCOMB = 4
	bitCOMA = 6
	bitCS   = 0 // CSn2:0 in TCCRnB
	bitWGM2 = 3 // WGMn3:2 in TCCRnB
	bitFOCC = 5 // FOCnx in TCCRnC
	bitFOCB = 6
	bitFOCA = 7
)

// Timer16Registers is the register set of one physical 16-bit timer. OCRC
// is the only register a variant may lack.
type Timer16Registers struct {
	Unit  uint8 // timer number, used for logging only
	TCCRA regs.Register8
	TCCRB regs.Register8
	TCCRC regs.Register8
	TCNT  regs.Register16
	OCRA  regs.Register16
	OCRB  regs.Register16
	OCRC  regs.Opt16
	ICR   regs.Register16
	TIMSK regs.Register8
	TIFR  regs.Register8
}

// Timer16 drives one 16-bit Timer/Counter.
//
// No state is cached: every query decodes the live registers, so changes
// made by interrupt handlers are always seen. Timer16 does no locking of its
// own; see Critical and Atomic for 16-bit registers shared with handlers.
// The engine does not reset the hardware either, so after construction the
// timer is in whatever state reset or earlier code left it.
type Timer16 struct {
	r Timer16Registers
}

// NewTimer16 binds a timer to its register set.
func NewTimer16(r Timer16Registers) *Timer16 {
	return &Timer16{r: r}
}

// Unit returns the timer number given at construction.
func (t *Timer16) Unit() uint8 {
	return t.r.Unit
}

// HasChannelC reports whether compare channel C is wired on this variant.
func (t *Timer16) HasChannelC() bool {
	return t.r.OCRC.IsPresent()
}

// SetMode selects the waveform generation mode. The 4 mode bits are split:
// WGMn1:0 live in TCCRnA bits 0-1 and WGMn3:2 in TCCRnB bits 3-4. Only
// those 4 bits are touched. The reserved code is not checked for.
func (t *Timer16) SetMode(m TimerMode) {
	t.r.TCCRB.ReplaceBits(uint8(m)>>2&0x03, 0x03, bitWGM2)
	t.r.TCCRA.ReplaceBits(uint8(m)&0x03, 0x03, bitWGM0)
	RecordEvent(EvtSetMode, t.r.Unit, uint16(m), 0)
}

// Mode decodes the waveform generation mode from the live registers.
func (t *Timer16) Mode() TimerMode {
	lo := t.r.TCCRA.Get() >> bitWGM0 & 0x03
	hi := t.r.TCCRB.Get() >> bitWGM2 & 0x03
	return TimerMode(hi<<2 | lo)
}

// SelectClockSource starts, stops or reclocks the timer. The change takes
// effect from the next timer clock.
func (t *Timer16) SelectClockSource(cs ClockSource) {
	t.r.TCCRB.ReplaceBits(uint8(cs)&0x07, 0x07, bitCS)
	RecordEvent(EvtSetClock, t.r.Unit, uint16(cs), 0)
}

// ClockSource decodes the clock select bits.
func (t *Timer16) ClockSource() ClockSource {
	return ClockSource(t.r.TCCRB.Get() >> bitCS & 0x07)
}

// SetCounter overwrites TCNTn. Choosing a mode with a suitable TOP value is
// usually the better tool.
func (t *Timer16) SetCounter(v uint16) {
	t.r.TCNT.Set(v)
}

// Counter returns TCNTn.
func (t *Timer16) Counter() uint16 {
	return t.r.TCNT.Get()
}

// SetTopValue writes the TOP value to OCRnA or ICRn, whichever the active
// mode counts to. The mode must be selected first. Fixed-TOP modes return
// ErrFixedTop and leave every register alone.
func (t *Timer16) SetTopValue(v uint16) error {
	m := t.Mode()
	info, ok := LookupMode(m)
	if !ok {
		RecordEvent(EvtTopRejected, t.r.Unit, uint16(m), v)
		return ErrReservedMode
	}

	switch info.Top {
	case TopOCRA:
		t.r.OCRA.Set(v)
	case TopICR:
		t.r.ICR.Set(v)
	default:
		RecordEvent(EvtTopRejected, t.r.Unit, uint16(m), v)
		DebugPrintln("[T16] timer " + itoa(int(t.r.Unit)) + ": mode " + info.Name +
			" has fixed TOP " + hex16(info.FixedTop) + ", ignoring " + hex16(v))
		return ErrFixedTop
	}
	RecordEvent(EvtSetTop, t.r.Unit, uint16(m), v)
	return nil
}

// TopValue returns the value the counter counts to in the active mode. Fixed
// modes return their constant without touching a register. The reserved
// pattern reads as 0xFFFF.
func (t *Timer16) TopValue() uint16 {
	info, ok := LookupMode(t.Mode())
	if !ok {
		return 0xFFFF
	}
	switch info.Top {
	case TopOCRA:
		return t.r.OCRA.Get()
	case TopICR:
		return t.r.ICR.Get()
	}
	return info.FixedTop
}

// compareReg resolves a single channel to its OCRnx register. This is the
// only place channel C's register is dereferenced.
func (t *Timer16) compareReg(ch CompareChannel) (regs.Register16, error) {
	switch ch {
	case ChannelA:
		return t.r.OCRA, nil
	case ChannelB:
		return t.r.OCRB, nil
	case ChannelC:
		r, ok := t.r.OCRC.Get()
		if !ok {
			return nil, ErrNoChannel
		}
		return r, nil
	}
	return nil, ErrInvalidChannel
}

// SetCompareMatchValue writes OCRnx. In modes that use OCRnA as TOP, writing
// channel A also moves TOP.
func (t *Timer16) SetCompareMatchValue(ch CompareChannel, v uint16) error {
	r, err := t.compareReg(ch)
	if err != nil {
		return err
	}
	r.Set(v)
	return nil
}

// CompareMatchValue reads OCRnx.
func (t *Timer16) CompareMatchValue(ch CompareChannel) (uint16, error) {
	r, err := t.compareReg(ch)
	if err != nil {
		return 0, err
	}
	return r.Get(), nil
}

// comOffset returns the position of the channel's COMnx1:0 field in TCCRnA
func (t *Timer16) comOffset(ch CompareChannel) (uint8, error) {
	switch ch {
	case ChannelA:
		return bitCOMA, nil
	case ChannelB:
		return bitCOMB, nil
	case ChannelC:
		if !t.r.OCRC.IsPresent() {
			return 0, ErrNoChannel
		}
		return bitCOMC, nil
	}
	return 0, ErrInvalidChannel
}

// SetPwmPinMode sets how the channel's OCnx pin reacts to compare matches.
// Only the channel's own 2-bit field is changed. The pin must be configured
// as an output separately.
func (t *Timer16) SetPwmPinMode(ch CompareChannel, pm PwmPinMode) error {
	off, err := t.comOffset(ch)
	if err != nil {
		return err
	}
	t.r.TCCRA.ReplaceBits(pm.comBits(), 0x03, off)
	RecordEvent(EvtSetPinMode, t.r.Unit, uint16(ch), uint16(pm))
	return nil
}

// PwmPinMode decodes the channel's COMnx field. Codes shared with a PWM
// alias come back under their on-match name.
func (t *Timer16) PwmPinMode(ch CompareChannel) (PwmPinMode, error) {
	off, err := t.comOffset(ch)
	if err != nil {
		return PinOff, err
	}
	return PwmPinMode(t.r.TCCRA.Get() >> off & 0x03), nil
}

// ForceOutputCompareMatch strobes FOCnx for every channel in chs, driving
// the pins as if a compare match had happened. It is only meaningful in
// normal and CTC modes and does not raise interrupt flags.
func (t *Timer16) ForceOutputCompareMatch(chs CompareChannel) error {
	var v uint8
	if chs&ChannelA != 0 {
		v |= 1 << bitFOCA
	}
	if chs&ChannelB != 0 {
		v |= 1 << bitFOCB
	}
	if chs&ChannelC != 0 {
		if !t.r.OCRC.IsPresent() {
			return ErrNoChannel
		}
		v |= 1 << bitFOCC
	}
	t.r.TCCRC.Set(v)
	RecordEvent(EvtForceMatch, t.r.Unit, uint16(chs), 0)
	return nil
}

// EnableInterrupts sets the given bits in TIMSKn. A handler must be
// installed for every vector enabled.
func (t *Timer16) EnableInterrupts(f TimerInterrupt) {
	t.r.TIMSK.SetBits(uint8(f))
}

// DisableInterrupts clears the given bits in TIMSKn.
func (t *Timer16) DisableInterrupts(f TimerInterrupt) {
	t.r.TIMSK.ClearBits(uint8(f))
}

// EnabledInterrupts returns TIMSKn.
func (t *Timer16) EnabledInterrupts() TimerInterrupt {
	return TimerInterrupt(t.r.TIMSK.Get())
}

// ClearPendingInterruptEvents clears the given pending flags. TIFRn is
// write-one-to-clear, so this is a single plain write: a read-modify-write
// would also clear every other flag that happens to be pending.
func (t *Timer16) ClearPendingInterruptEvents(f TimerInterrupt) {
	t.r.TIFR.Set(uint8(f))
}

// PendingInterruptEvents returns TIFRn.
func (t *Timer16) PendingInterruptEvents() TimerInterrupt {
	return TimerInterrupt(t.r.TIFR.Get())
}

// Atomic runs fn inside Critical.
func (t *Timer16) Atomic(fn func(t *Timer16)) {
	Critical(func() { fn(t) })
}
