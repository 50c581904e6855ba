//go:build !tinygo

// Package sim models AVR peripherals on top of a regs.Memory so that code
// written against the core package can run and be tested on a host.
//
// The models follow the datasheet closely enough for configuration code:
// counting, TOP handling, flag raising and vector dispatch. They skip
// double buffering of OCRnx in PWM modes, input capture and pin waveforms.
package sim

import (
	"strconv"

	"avrtools/core"
	"avrtools/mcu"
	"avrtools/regs"
)

// vectorOrder is the timer vector priority, highest first.
var vectorOrder = []core.TimerInterrupt{
	core.IntInputCapture,
	core.IntCompareA,
	core.IntCompareB,
	core.IntCompareC,
	core.IntOverflow,
}

// Timer16 is the hardware side of a 16-bit Timer/Counter.
type Timer16 struct {
	mem      *regs.Memory
	l        mcu.Timer16Layout
	acc      uint32 // CPU cycles not yet turned into timer clocks
	down     bool   // dual-slope direction
	handlers map[core.TimerInterrupt]func()

	// Unhandled counts interrupts that fired without a handler installed.
	Unhandled uint32
}

// NewTimer16 attaches a model to the registers described by l.
func NewTimer16(mem *regs.Memory, l mcu.Timer16Layout) *Timer16 {
	return &Timer16{
		mem:      mem,
		l:        l,
		handlers: make(map[core.TimerInterrupt]func()),
	}
}

// Handle installs fn as the handler for one interrupt source.
func (s *Timer16) Handle(src core.TimerInterrupt, fn func()) {
	s.handlers[src] = fn
}

func (s *Timer16) mode() core.ModeInfo {
	lo := s.mem.Peek(s.l.TCCRA) & 0x03
	hi := s.mem.Peek(s.l.TCCRA+1) >> 3 & 0x03
	info, ok := core.LookupMode(core.TimerMode(hi<<2 | lo))
	if !ok {
		info, _ = core.LookupMode(core.ModeNormal)
	}
	return info
}

func (s *Timer16) clock() core.ClockSource {
	return core.ClockSource(s.mem.Peek(s.l.TCCRA+1) & 0x07)
}

func (s *Timer16) top(info core.ModeInfo) uint16 {
	switch info.Top {
	case core.TopOCRA:
		return s.mem.Peek16(s.l.OCRA)
	case core.TopICR:
		return s.mem.Peek16(s.l.ICR)
	}
	return info.FixedTop
}

// Step advances the model by cycles CPU clocks, honouring the prescaler,
// and dispatches pending interrupts after every timer clock.
func (s *Timer16) Step(cycles uint32) {
	div := uint32(s.clock().Divider())
	if div == 0 {
		return
	}
	s.acc += cycles
	for s.acc >= div {
		s.acc -= div
		s.Tick()
		s.Dispatch()
	}
}

// Edge feeds one transition on the Tn pin. It counts only when the clock
// source selects that edge.
func (s *Timer16) Edge(rising bool) {
	cs := s.clock()
	if (rising && cs == core.ClockExternalRising) || (!rising && cs == core.ClockExternalFalling) {
		s.Tick()
		s.Dispatch()
	}
}

// Tick advances the counter by one timer clock and raises flags.
func (s *Timer16) Tick() {
	info := s.mode()
	top := s.top(info)
	cnt := s.mem.Peek16(s.l.TCNT)
	var flags core.TimerInterrupt

	if info.Shape == core.SingleSlope {
		switch {
		case cnt == top:
			cnt = 0
			if (info.Mode != core.ModeCTCOCRA && info.Mode != core.ModeCTCICR) || top == 0xFFFF {
				flags |= core.IntOverflow
			}
		case cnt == 0xFFFF:
			// counter was written above TOP; it runs to MAX and wraps
			cnt = 0
			flags |= core.IntOverflow
		default:
			cnt++
		}
		if cnt == top && info.Top == core.TopICR {
			flags |= core.IntInputCapture
		}
	} else {
		if s.down {
			if cnt > 0 {
				cnt--
			}
			if cnt == 0 {
				s.down = false
				flags |= core.IntOverflow
			}
		} else {
			if cnt < top {
				cnt++
			}
			if cnt >= top {
				s.down = true
				if info.Top == core.TopICR {
					flags |= core.IntInputCapture
				}
			}
		}
	}

	s.mem.Poke16(s.l.TCNT, cnt)
	if cnt == s.mem.Peek16(s.l.OCRA) {
		flags |= core.IntCompareA
	}
	if cnt == s.mem.Peek16(s.l.OCRB) {
		flags |= core.IntCompareB
	}
	if s.l.OCRC != 0 && cnt == s.mem.Peek16(s.l.OCRC) {
		flags |= core.IntCompareC
	}
	s.Raise(flags)
}

// Raise sets flags in TIFRn the way the hardware does.
func (s *Timer16) Raise(flags core.TimerInterrupt) {
	s.mem.Poke(s.l.TIFR, s.mem.Peek(s.l.TIFR)|uint8(flags))
}

// Dispatch runs the handlers of enabled, pending sources while global
// interrupts are on. Entering a vector clears its flag and the I-bit; the
// handler's return restores the I-bit.
func (s *Timer16) Dispatch() {
	for core.GlobalInterruptsEnabled() {
		pending := core.TimerInterrupt(s.mem.Peek(s.l.TIFR) & s.mem.Peek(s.l.TIMSK))
		var src core.TimerInterrupt
		for _, v := range vectorOrder {
			if pending&v != 0 {
				src = v
				break
			}
		}
		if src == 0 {
			return
		}

		fn, ok := s.handlers[src]
		if !ok {
			// a real part would jump to __bad_interrupt and reset
			s.Unhandled++
			core.DebugAsync("[SIM] timer " + strconv.Itoa(int(s.l.Unit)) + ": no handler for " + src.String())
			s.mem.Poke(s.l.TIFR, s.mem.Peek(s.l.TIFR)&^uint8(src))
			continue
		}
		s.mem.Poke(s.l.TIFR, s.mem.Peek(s.l.TIFR)&^uint8(src))
		core.DisableGlobalInterrupts()
		fn()
		core.EnableGlobalInterrupts()
	}
}
