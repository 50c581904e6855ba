// USART support
// Asynchronous byte transmit/receive and a formatted I/O adapter
package core

import (
	"fmt"

	"avrtools/regs"
)

// USART frame formats, the UCSRnC value for asynchronous mode
type Frame uint8

const (
	Frame5N1 Frame = 0x00
	Frame6N1 Frame = 0x02
	Frame7N1 Frame = 0x04
	Frame8N1 Frame = 0x06
	Frame5N2 Frame = 0x08
	Frame6N2 Frame = 0x0A
	Frame7N2 Frame = 0x0C
	Frame8N2 Frame = 0x0E
	Frame5E1 Frame = 0x20
	Frame6E1 Frame = 0x22
	Frame7E1 Frame = 0x24
	Frame8E1 Frame = 0x26
	Frame5E2 Frame = 0x28
	Frame6E2 Frame = 0x2A
	Frame7E2 Frame = 0x2C
	Frame8E2 Frame = 0x2E
	Frame5O1 Frame = 0x30
	Frame6O1 Frame = 0x32
	Frame7O1 Frame = 0x34
	Frame8O1 Frame = 0x36
	Frame5O2 Frame = 0x38
	Frame6O2 Frame = 0x3A
	Frame7O2 Frame = 0x3C
	Frame8O2 Frame = 0x3E
)

// UCSRnA bits
const (
	USARTReceiveComplete  = 1 << 7 // RXCn
	USARTTransmitComplete = 1 << 6 // TXCn
	USARTDataEmpty        = 1 << 5 // UDREn
	USARTFrameError       = 1 << 4 // FEn
	USARTDataOverrun      = 1 << 3 // DORn
	USARTParityError      = 1 << 2 // UPEn
	usartDoubleSpeed      = 1 << 1 // U2Xn
)

// UCSRnB bits
const (
	usartRXCIE = 1 << 7
	usartTXCIE = 1 << 6
	usartUDRIE = 1 << 5
	usartRXEN  = 1 << 4
	usartTXEN  = 1 << 3
)

// USARTErrorMask covers the receive error flags in UCSRnA
const USARTErrorMask = USARTParityError | USARTDataOverrun | USARTFrameError

// USARTRegisters is the register set of one USART.
type USARTRegisters struct {
	Unit  uint8
	UCSRA regs.Register8
	UCSRB regs.Register8
	UCSRC regs.Register8
	UBRR  regs.Register16
	UDR   regs.Register8
}

// USARTConfig holds the line settings.
type USARTConfig struct {
	Baud  uint32 // default 9600
	Frame Frame  // default 8N1 (zero value is 5N1, so set explicitly)

	// Echo sends every byte read by the formatted reader back out.
	Echo bool

	// CRLF sends "\r\n" for every "\n" written that is not already
	// preceded by "\r".
	CRLF bool
}

// USART is one asynchronous serial port.
type USART struct {
	r     USARTRegisters
	cpuHz uint32
	echo  bool
	crlf  bool
	last  byte
}

// NewUSART binds a USART to its registers. cpuHz is the oscillator
// frequency the baud rate divisor is computed from.
func NewUSART(r USARTRegisters, cpuHz uint32) *USART {
	return &USART{r: r, cpuHz: cpuHz}
}

// BaudDivisor returns the UBRRn value for double speed operation, rounded to
// the nearest integer.
func BaudDivisor(cpuHz, baud uint32) uint16 {
	div := baud * 8
	ubrr := cpuHz/div - 1
	if cpuHz%div > div/2 {
		ubrr++
	}
	return uint16(ubrr)
}

// Configure enables receiver and transmitter in double speed mode with the
// given baud rate and frame format.
func (u *USART) Configure(cfg USARTConfig) {
	if cfg.Baud == 0 {
		cfg.Baud = 9600
	}
	u.echo = cfg.Echo
	u.crlf = cfg.CRLF

	u.r.UCSRA.Set(usartDoubleSpeed)
	u.r.UCSRB.Set(usartRXEN | usartTXEN)
	u.r.UCSRC.Set(uint8(cfg.Frame))
	ubrr := BaudDivisor(u.cpuHz, cfg.Baud)
	u.r.UBRR.Set(ubrr)
	RecordEvent(EvtUSARTInit, u.r.Unit, ubrr, uint16(cfg.Frame))
}

// SetInterrupts enables or disables the receive complete, transmit complete
// and data register empty interrupts.
func (u *USART) SetInterrupts(rxComplete, txComplete, udrEmpty bool) {
	var set, clear uint8
	for _, b := range []struct {
		on  bool
		bit uint8
	}{{rxComplete, usartRXCIE}, {txComplete, usartTXCIE}, {udrEmpty, usartUDRIE}} {
		if b.on {
			set |= b.bit
		} else {
			clear |= b.bit
		}
	}
	u.r.UCSRB.Set(u.r.UCSRB.Get()&^clear | set)
}

// ReceiveErrors returns the parity, overrun and frame error flags of the
// byte currently in the receive buffer. Read it before ReadByte.
func (u *USART) ReceiveErrors() uint8 {
	return u.r.UCSRA.Get() & USARTErrorMask
}

// Buffered reports whether a received byte is waiting.
func (u *USART) Buffered() bool {
	return u.r.UCSRA.HasBits(USARTReceiveComplete)
}

// WriteByte waits for the transmit buffer and loads b.
func (u *USART) WriteByte(b byte) error {
	for !u.r.UCSRA.HasBits(USARTDataEmpty) {
	}
	u.r.UDR.Set(b)
	return nil
}

// TryWriteByte loads b if the transmit buffer is free and reports whether it
// did.
func (u *USART) TryWriteByte(b byte) bool {
	if !u.r.UCSRA.HasBits(USARTDataEmpty) {
		return false
	}
	u.r.UDR.Set(b)
	return true
}

// ReadByte waits for a received byte.
func (u *USART) ReadByte() (byte, error) {
	for !u.r.UCSRA.HasBits(USARTReceiveComplete) {
	}
	return u.r.UDR.Get(), nil
}

// TryReadByte returns a received byte if one is waiting.
func (u *USART) TryReadByte() (byte, bool) {
	if !u.r.UCSRA.HasBits(USARTReceiveComplete) {
		return 0, false
	}
	return u.r.UDR.Get(), true
}

// Write implements io.Writer, translating line endings when CRLF is set.
func (u *USART) Write(p []byte) (int, error) {
	for _, c := range p {
		if u.crlf && c == '\n' && u.last != '\r' {
			u.WriteByte('\r')
		}
		u.WriteByte(c)
		u.last = c
	}
	return len(p), nil
}

// Read implements io.Reader. It waits for the first byte and then returns
// whatever else is already buffered.
func (u *USART) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	n := 0
	c, _ := u.ReadByte()
	for {
		if u.echo {
			u.WriteByte(c)
		}
		p[n] = c
		n++
		if n == len(p) {
			return n, nil
		}
		var ok bool
		if c, ok = u.TryReadByte(); !ok {
			return n, nil
		}
	}
}

// Printf writes formatted output to the port.
func (u *USART) Printf(format string, args ...interface{}) (int, error) {
	return fmt.Fprintf(u, format, args...)
}

// Scanf reads formatted input from the port.
func (u *USART) Scanf(format string, args ...interface{}) (int, error) {
	return fmt.Fscanf(u, format, args...)
}
