// GPIO (General Purpose Input/Output) support
// Whole-port and single-pin access through the PINx/DDRx/PORTx registers
package core

import "avrtools/regs"

// PortRegisters is the register triple of one I/O port. Ports a variant
// lacks are left zero.
type PortRegisters struct {
	PIN  regs.Register8 // input levels; writing 1 toggles PORTx
	DDR  regs.Register8 // direction, 1 = output
	PORT regs.Register8 // output level, or pull-up enable for inputs
}

// Port drives a whole 8-bit I/O port.
type Port struct {
	r PortRegisters
}

// NewPort binds a port to its registers.
func NewPort(r PortRegisters) *Port {
	return &Port{r: r}
}

// SetDirection sets DDRx; 1 bits are outputs.
func (p *Port) SetDirection(outputs uint8) {
	p.r.DDR.Set(outputs)
}

// Direction returns DDRx.
func (p *Port) Direction() uint8 {
	return p.r.DDR.Get()
}

// Write sets PORTx. For input bits this enables or disables pull-ups.
func (p *Port) Write(v uint8) {
	p.r.PORT.Set(v)
}

// Output returns PORTx.
func (p *Port) Output() uint8 {
	return p.r.PORT.Get()
}

// Read returns the pin levels from PINx.
func (p *Port) Read() uint8 {
	return p.r.PIN.Get()
}

// Toggle inverts the PORTx bits in mask with a single PINx write.
func (p *Port) Toggle(mask uint8) {
	p.r.PIN.Set(mask)
}

// SetPullups turns inputs in mask into pulled-up inputs.
func (p *Port) SetPullups(mask uint8) {
	p.r.DDR.ClearBits(mask)
	p.r.PORT.SetBits(mask)
}

// AVRGPIO implements GPIODriver over the ports of an AVR variant.
// Single-bit updates are read-modify-write and are not safe against
// interrupt handlers writing the same port; wrap them in Critical.
type AVRGPIO struct {
	ports [12]*Port // A..L
}

// NewAVRGPIO builds a driver from per-port registers indexed from port A.
// Entries with a nil DDR register are ports the variant lacks.
func NewAVRGPIO(ports []PortRegisters) *AVRGPIO {
	d := &AVRGPIO{}
	for i, r := range ports {
		if i >= len(d.ports) {
			break
		}
		if r.DDR != nil {
			d.ports[i] = NewPort(r)
		}
	}
	return d
}

// Port returns the port with the given index (0 = A), or nil.
func (d *AVRGPIO) Port(idx uint8) *Port {
	if int(idx) >= len(d.ports) {
		return nil
	}
	return d.ports[idx]
}

func (d *AVRGPIO) lookup(pin GPIOPin) (*Port, uint8, error) {
	p := d.Port(pin.Port())
	if p == nil {
		return nil, 0, ErrInvalidPin
	}
	return p, 1 << pin.Bit(), nil
}

// ConfigureOutput makes pin an output.
func (d *AVRGPIO) ConfigureOutput(pin GPIOPin) error {
	p, mask, err := d.lookup(pin)
	if err != nil {
		return err
	}
	p.r.DDR.SetBits(mask)
	return nil
}

// ConfigureInput makes pin a floating input.
func (d *AVRGPIO) ConfigureInput(pin GPIOPin) error {
	p, mask, err := d.lookup(pin)
	if err != nil {
		return err
	}
	p.r.DDR.ClearBits(mask)
	p.r.PORT.ClearBits(mask)
	return nil
}

// ConfigureInputPullUp makes pin an input with its pull-up enabled.
func (d *AVRGPIO) ConfigureInputPullUp(pin GPIOPin) error {
	p, mask, err := d.lookup(pin)
	if err != nil {
		return err
	}
	p.SetPullups(mask)
	return nil
}

// ConfigureInputPullDown always fails: AVR ports only have pull-ups.
func (d *AVRGPIO) ConfigureInputPullDown(pin GPIOPin) error {
	if _, _, err := d.lookup(pin); err != nil {
		return err
	}
	return ErrNoPullDown
}

// SetPin drives an output high or low.
func (d *AVRGPIO) SetPin(pin GPIOPin, value bool) error {
	p, mask, err := d.lookup(pin)
	if err != nil {
		return err
	}
	if value {
		p.r.PORT.SetBits(mask)
	} else {
		p.r.PORT.ClearBits(mask)
	}
	return nil
}

// TogglePin inverts an output pin.
func (d *AVRGPIO) TogglePin(pin GPIOPin) error {
	p, mask, err := d.lookup(pin)
	if err != nil {
		return err
	}
	p.Toggle(mask)
	return nil
}

// GetPin reads the level of pin.
func (d *AVRGPIO) GetPin(pin GPIOPin) (bool, error) {
	p, mask, err := d.lookup(pin)
	if err != nil {
		return false, err
	}
	return p.r.PIN.HasBits(mask), nil
}

// ReadPin reads the level of pin, returning false for invalid pins.
func (d *AVRGPIO) ReadPin(pin GPIOPin) bool {
	v, _ := d.GetPin(pin)
	return v
}
