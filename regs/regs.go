// Package regs provides the register primitives peripheral code is written
// against. On tinygo builds the registers are memory mapped; on regular Go
// they live in a simulated data space (see Memory).
package regs

// Register8 is an 8-bit special function register. The method set matches
// tinygo's *volatile.Register8 so either can be used.
type Register8 interface {
	Get() uint8
	Set(value uint8)
	SetBits(value uint8)
	ClearBits(value uint8)
	HasBits(value uint8) bool
	ReplaceBits(value uint8, mask uint8, pos uint8)
}

// Register16 is a 16-bit register. On AVR every 16-bit access is two bus
// accesses through the shared TEMP byte, so a read or write can be torn by
// an interrupt handler touching any 16-bit register of the same timer.
type Register16 interface {
	Get() uint16
	Set(value uint16)
}

// Bus hands out 8-bit registers by data-space address.
type Bus interface {
	Reg8(addr uintptr) Register8
}

// Reg16 returns the 16-bit register whose low byte lives at addrL and high
// byte at addrL+1.
func Reg16(b Bus, addrL uintptr) Register16 {
	return Pair16{L: b.Reg8(addrL), H: b.Reg8(addrL + 1)}
}

// Pair16 is a 16-bit register made of two byte registers.
type Pair16 struct {
	L Register8
	H Register8
}

// Set writes the high byte first, which latches it into TEMP; the low byte
// write then commits both bytes.
func (p Pair16) Set(value uint16) {
	p.H.Set(uint8(value >> 8))
	p.L.Set(uint8(value))
}

// Get reads the low byte first, which latches the high byte into TEMP.
func (p Pair16) Get() uint16 {
	lo := p.L.Get()
	hi := p.H.Get()
	return uint16(hi)<<8 | uint16(lo)
}

// Opt16 is a 16-bit register that may be missing on some hardware variants
// (compare channel C exists on the ATmega2560 but not on the ATmega328P).
type Opt16 struct {
	reg Register16
	ok  bool
}

// Present wraps a register that exists.
func Present(r Register16) Opt16 {
	return Opt16{reg: r, ok: r != nil}
}

// Absent marks a register the variant does not have.
func Absent() Opt16 {
	return Opt16{}
}

// Get returns the register and whether it exists.
func (o Opt16) Get() (Register16, bool) {
	return o.reg, o.ok
}

// IsPresent reports whether the register exists.
func (o Opt16) IsPresent() bool {
	return o.ok
}
