//go:build !tinygo

package sim

import (
	"avrtools/core"
	"avrtools/mcu"
	"avrtools/regs"
)

// Board is a simulated microcontroller: a data space with the variant's
// flag registers, timer and USART models, port pins and external
// interrupt edge detection.
type Board struct {
	Variant *mcu.Variant
	Mem     *regs.Memory
	Timers  map[uint8]*Timer16
	USARTs  map[uint8]*USART

	ext      [12]uint8 // externally driven levels per port
	driven   [12]uint8 // bits with an external driver
	levels   []bool    // last INTn pin levels
	lowLevel uint8     // level-triggered lines currently held low
	handlers map[uint8]func()
}

// NewBoard powers up a simulated variant.
func NewBoard(v *mcu.Variant) *Board {
	b := &Board{
		Variant:  v,
		Mem:      regs.NewMemory(),
		Timers:   make(map[uint8]*Timer16),
		USARTs:   make(map[uint8]*USART),
		levels:   make([]bool, v.ExtInt.Lines),
		handlers: make(map[uint8]func()),
	}
	for _, addr := range v.FlagRegisters() {
		b.Mem.MarkW1C(addr)
	}
	for _, l := range v.Timers {
		b.Timers[l.Unit] = NewTimer16(b.Mem, l)
	}
	for _, l := range v.USARTs {
		b.USARTs[l.Unit] = NewUSART(b.Mem, l)
	}
	for _, p := range v.Ports {
		b.hookPort(p)
	}
	for n := range b.levels {
		b.levels[n] = b.Level(v.ExtInt.Pins[n])
	}
	return b
}

func (b *Board) hookPort(p mcu.PortLayout) {
	idx := p.Name - 'A'
	ddr, port := p.PIN+1, p.PIN+2
	b.Mem.Hook(p.PIN, func(cell *uint8) uint8 {
		return b.portLevels(idx, ddr, port)
	}, func(cell *uint8, v uint8) {
		b.Mem.Poke(port, b.Mem.Peek(port)^v)
		b.sampleExtInts()
	})
	// pull-ups and outputs move INTn pins too; the edge is latched here and
	// serviced on the next DispatchExtInts
	store := func(cell *uint8, v uint8) {
		*cell = v
		b.sampleExtInts()
	}
	b.Mem.Hook(ddr, nil, store)
	b.Mem.Hook(port, nil, store)
}

// portLevels computes what PINx reads: outputs read back PORTx, driven
// inputs read the driver, undriven inputs float to their pull-up state.
func (b *Board) portLevels(idx uint8, ddr, port uintptr) uint8 {
	dir := b.Mem.Peek(ddr)
	out := b.Mem.Peek(port)
	in := b.ext[idx]&b.driven[idx] | out&^b.driven[idx]
	return out&dir | in&^dir
}

// Level returns the level of pin without touching the bus counters.
func (b *Board) Level(pin core.GPIOPin) bool {
	for _, p := range b.Variant.Ports {
		if p.Name-'A' == pin.Port() {
			return b.portLevels(pin.Port(), p.PIN+1, p.PIN+2)&(1<<pin.Bit()) != 0
		}
	}
	return false
}

// Step advances every timer by cycles CPU clocks.
func (b *Board) Step(cycles uint32) {
	for _, t := range b.Timers {
		t.Step(cycles)
	}
}

// Drive sets the external level on an input pin and runs external
// interrupt detection.
func (b *Board) Drive(pin core.GPIOPin, high bool) {
	idx, mask := pin.Port(), uint8(1)<<pin.Bit()
	b.driven[idx] |= mask
	if high {
		b.ext[idx] |= mask
	} else {
		b.ext[idx] &^= mask
	}
	b.senseExtInts()
}

// Release removes the external driver from pin.
func (b *Board) Release(pin core.GPIOPin) {
	b.driven[pin.Port()] &^= uint8(1) << pin.Bit()
	b.senseExtInts()
}

// HandleExtInt installs the INTn handler.
func (b *Board) HandleExtInt(n uint8, fn func()) {
	b.handlers[n] = fn
}

func (b *Board) senseExtInts() {
	b.sampleExtInts()
	b.DispatchExtInts()
}

// sampleExtInts compares every INTn pin with its last level and latches
// INTFn or the low-level state according to the sense control bits.
func (b *Board) sampleExtInts() {
	ei := b.Variant.ExtInt
	for n := uint8(0); n < ei.Lines; n++ {
		level := b.Level(ei.Pins[n])
		prev := b.levels[n]
		b.levels[n] = level

		var sense uint8
		if n < 4 {
			sense = b.Mem.Peek(ei.EICRA) >> (n * 2) & 0x03
		} else {
			sense = b.Mem.Peek(ei.EICRB) >> ((n - 4) * 2) & 0x03
		}

		var fire bool
		switch core.ExtIntEvent(sense) {
		case core.ExtIntLowLevel:
			// level interrupts never set INTFn
			if !level {
				b.lowLevel |= 1 << n
			} else {
				b.lowLevel &^= 1 << n
			}
		case core.ExtIntAnyEdge:
			fire = level != prev
		case core.ExtIntFallingEdge:
			fire = prev && !level
		case core.ExtIntRisingEdge:
			fire = !prev && level
		}
		if fire {
			b.Mem.Poke(ei.EIFR, b.Mem.Peek(ei.EIFR)|1<<n)
		}
	}
}

// DispatchExtInts runs handlers for enabled, pending INTn while global
// interrupts are on. INT0 has the highest priority. A line held low in
// level mode runs its handler once per call.
func (b *Board) DispatchExtInts() {
	ei := b.Variant.ExtInt
	level := b.lowLevel
	for core.GlobalInterruptsEnabled() {
		pending := (b.Mem.Peek(ei.EIFR) | level) & b.Mem.Peek(ei.EIMSK)
		if pending == 0 {
			return
		}
		var n uint8
		for pending&(1<<n) == 0 {
			n++
		}
		level &^= 1 << n
		b.Mem.Poke(ei.EIFR, b.Mem.Peek(ei.EIFR)&^(1<<n))
		if fn, ok := b.handlers[n]; ok {
			core.DisableGlobalInterrupts()
			fn()
			core.EnableGlobalInterrupts()
		}
	}
}
