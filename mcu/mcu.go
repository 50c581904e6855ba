// Package mcu describes where the peripherals of each supported AVR variant
// live in the data space, and builds core peripheral handles from that.
package mcu

import (
	"errors"
	"sort"

	"avrtools/core"
	"avrtools/regs"
)

// ErrNoPeripheral is returned when a variant lacks the requested unit.
var ErrNoPeripheral = errors.New("mcu: no such peripheral on this variant")

// Timer16Layout gives the data-space addresses of one 16-bit timer. The
// 16-bit registers are addressed by their low byte.
type Timer16Layout struct {
	Unit  uint8
	TCCRA uintptr
	TCNT  uintptr // TCCRnB and TCCRnC follow TCCRnA
	ICR   uintptr
	OCRA  uintptr
	OCRB  uintptr
	OCRC  uintptr // 0 when the timer has no channel C
	TIMSK uintptr
	TIFR  uintptr
}

// USARTLayout gives the addresses of one USART.
type USARTLayout struct {
	Unit  uint8
	UCSRA uintptr // UCSRnB, UCSRnC follow
	UBRR  uintptr
	UDR   uintptr
}

// PortLayout gives the PINx address of a port; DDRx and PORTx follow it.
type PortLayout struct {
	Name byte
	PIN  uintptr
}

// ExtIntLayout gives the external interrupt registers.
type ExtIntLayout struct {
	EICRA uintptr
	EICRB uintptr // 0 when lines 4-7 do not exist
	EIMSK uintptr
	EIFR  uintptr
	Lines uint8
	Pins  []core.GPIOPin // INTn pin, indexed by n
}

// Variant is one microcontroller model.
type Variant struct {
	Name   string
	CPUHz  uint32 // default oscillator frequency of the usual boards
	Timers []Timer16Layout
	USARTs []USARTLayout
	Ports  []PortLayout
	ExtInt ExtIntLayout
}

// timer16At builds the layout of a timer whose TCCRnA is at base. All
// 16-bit timers share the same register order.
func timer16At(unit uint8, base, timsk, tifr uintptr, channelC bool) Timer16Layout {
	l := Timer16Layout{
		Unit:  unit,
		TCCRA: base,
		TCNT:  base + 0x04,
		ICR:   base + 0x06,
		OCRA:  base + 0x08,
		OCRB:  base + 0x0A,
		TIMSK: timsk,
		TIFR:  tifr,
	}
	if channelC {
		l.OCRC = base + 0x0C
	}
	return l
}

func pin(port byte, bit uint8) core.GPIOPin {
	return core.MakePin(port-'A', bit)
}

// ATmega328P as found on the Arduino Uno and Nano.
var ATmega328P = &Variant{
	Name:  "atmega328p",
	CPUHz: 16000000,
	Timers: []Timer16Layout{
		timer16At(1, 0x80, 0x6F, 0x36, false),
	},
	USARTs: []USARTLayout{
		{Unit: 0, UCSRA: 0xC0, UBRR: 0xC4, UDR: 0xC6},
	},
	Ports: []PortLayout{
		{'B', 0x23}, {'C', 0x26}, {'D', 0x29},
	},
	ExtInt: ExtIntLayout{
		EICRA: 0x69, EIMSK: 0x3D, EIFR: 0x3C, Lines: 2,
		Pins: []core.GPIOPin{pin('D', 2), pin('D', 3)},
	},
}

// ATmega2560 as found on the Arduino Mega.
var ATmega2560 = &Variant{
	Name:  "atmega2560",
	CPUHz: 16000000,
	Timers: []Timer16Layout{
		timer16At(1, 0x80, 0x6F, 0x36, true),
		timer16At(3, 0x90, 0x71, 0x38, true),
		timer16At(4, 0xA0, 0x72, 0x39, true),
		timer16At(5, 0x120, 0x73, 0x3A, true),
	},
	USARTs: []USARTLayout{
		{Unit: 0, UCSRA: 0xC0, UBRR: 0xC4, UDR: 0xC6},
		{Unit: 1, UCSRA: 0xC8, UBRR: 0xCC, UDR: 0xCE},
		{Unit: 2, UCSRA: 0xD0, UBRR: 0xD4, UDR: 0xD6},
		{Unit: 3, UCSRA: 0x130, UBRR: 0x134, UDR: 0x136},
	},
	Ports: []PortLayout{
		{'A', 0x20}, {'B', 0x23}, {'C', 0x26}, {'D', 0x29},
		{'E', 0x2C}, {'F', 0x2F}, {'G', 0x32}, {'H', 0x100},
		{'J', 0x103}, {'K', 0x106}, {'L', 0x109},
	},
	ExtInt: ExtIntLayout{
		EICRA: 0x69, EICRB: 0x6A, EIMSK: 0x3D, EIFR: 0x3C, Lines: 8,
		Pins: []core.GPIOPin{
			pin('D', 0), pin('D', 1), pin('D', 2), pin('D', 3),
			pin('E', 4), pin('E', 5), pin('E', 6), pin('E', 7),
		},
	},
}

var variants = map[string]*Variant{
	ATmega328P.Name: ATmega328P,
	ATmega2560.Name: ATmega2560,
}

// Lookup returns a variant by name.
func Lookup(name string) (*Variant, bool) {
	v, ok := variants[name]
	return v, ok
}

// Names returns the supported variant names, sorted.
func Names() []string {
	names := make([]string, 0, len(variants))
	for n := range variants {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// TimerLayout returns the layout of 16-bit timer unit.
func (v *Variant) TimerLayout(unit uint8) (Timer16Layout, error) {
	for _, l := range v.Timers {
		if l.Unit == unit {
			return l, nil
		}
	}
	return Timer16Layout{}, ErrNoPeripheral
}

// USARTLayout returns the layout of USART unit.
func (v *Variant) USARTLayout(unit uint8) (USARTLayout, error) {
	for _, l := range v.USARTs {
		if l.Unit == unit {
			return l, nil
		}
	}
	return USARTLayout{}, ErrNoPeripheral
}

// Timer16Registers resolves timer unit's register set on bus. This is the
// only place an absent channel C is decided.
func (v *Variant) Timer16Registers(bus regs.Bus, unit uint8) (core.Timer16Registers, error) {
	l, err := v.TimerLayout(unit)
	if err != nil {
		return core.Timer16Registers{}, err
	}
	r := core.Timer16Registers{
		Unit:  unit,
		TCCRA: bus.Reg8(l.TCCRA),
		TCCRB: bus.Reg8(l.TCCRA + 1),
		TCCRC: bus.Reg8(l.TCCRA + 2),
		TCNT:  regs.Reg16(bus, l.TCNT),
		OCRA:  regs.Reg16(bus, l.OCRA),
		OCRB:  regs.Reg16(bus, l.OCRB),
		OCRC:  regs.Absent(),
		ICR:   regs.Reg16(bus, l.ICR),
		TIMSK: bus.Reg8(l.TIMSK),
		TIFR:  bus.Reg8(l.TIFR),
	}
	if l.OCRC != 0 {
		r.OCRC = regs.Present(regs.Reg16(bus, l.OCRC))
	}
	return r, nil
}

// Timer16 builds the engine for timer unit.
func (v *Variant) Timer16(bus regs.Bus, unit uint8) (*core.Timer16, error) {
	r, err := v.Timer16Registers(bus, unit)
	if err != nil {
		return nil, err
	}
	return core.NewTimer16(r), nil
}

// USART builds USART unit, clocked from the variant's default frequency.
func (v *Variant) USART(bus regs.Bus, unit uint8) (*core.USART, error) {
	l, err := v.USARTLayout(unit)
	if err != nil {
		return nil, err
	}
	return core.NewUSART(core.USARTRegisters{
		Unit:  unit,
		UCSRA: bus.Reg8(l.UCSRA),
		UCSRB: bus.Reg8(l.UCSRA + 1),
		UCSRC: bus.Reg8(l.UCSRA + 2),
		UBRR:  regs.Reg16(bus, l.UBRR),
		UDR:   bus.Reg8(l.UDR),
	}, v.CPUHz), nil
}

// ExtInts builds the external interrupt controller.
func (v *Variant) ExtInts(bus regs.Bus) *core.ExtInts {
	r := core.ExtIntRegisters{
		EICRA: bus.Reg8(v.ExtInt.EICRA),
		EIMSK: bus.Reg8(v.ExtInt.EIMSK),
		EIFR:  bus.Reg8(v.ExtInt.EIFR),
		Lines: v.ExtInt.Lines,
	}
	if v.ExtInt.EICRB != 0 {
		r.EICRB = bus.Reg8(v.ExtInt.EICRB)
	}
	return core.NewExtInts(r)
}

// PortRegisters resolves every port, indexed from port A.
func (v *Variant) PortRegisters(bus regs.Bus) []core.PortRegisters {
	out := make([]core.PortRegisters, 12)
	for _, p := range v.Ports {
		out[p.Name-'A'] = core.PortRegisters{
			PIN:  bus.Reg8(p.PIN),
			DDR:  bus.Reg8(p.PIN + 1),
			PORT: bus.Reg8(p.PIN + 2),
		}
	}
	return out
}

// GPIO builds the GPIO driver.
func (v *Variant) GPIO(bus regs.Bus) *core.AVRGPIO {
	return core.NewAVRGPIO(v.PortRegisters(bus))
}

// FlagRegisters lists the write-one-to-clear flag registers, for setting up
// a simulated data space.
func (v *Variant) FlagRegisters() []uintptr {
	flags := []uintptr{v.ExtInt.EIFR}
	for _, t := range v.Timers {
		flags = append(flags, t.TIFR)
	}
	return flags
}

// Pin parses a datasheet pin name such as "PB5" or "b5".
func (v *Variant) Pin(name string) (core.GPIOPin, bool) {
	if len(name) == 3 && (name[0] == 'P' || name[0] == 'p') {
		name = name[1:]
	}
	if len(name) != 2 || name[1] < '0' || name[1] > '7' {
		return 0, false
	}
	port := name[0]
	if port >= 'a' && port <= 'z' {
		port -= 'a' - 'A'
	}
	for _, p := range v.Ports {
		if p.Name == port {
			return core.MakePin(port-'A', name[1]-'0'), true
		}
	}
	return 0, false
}
