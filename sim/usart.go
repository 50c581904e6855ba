//go:build !tinygo

package sim

import (
	"avrtools/core"
	"avrtools/mcu"
	"avrtools/regs"
)

// USART is the hardware side of a USART: transmitted bytes are collected,
// received bytes come from a queue. The transmitter is always ready.
type USART struct {
	tx []byte
	rx []byte

	// OnTransmit, when set, sees every byte written to UDRn. Those bytes are
	// then not kept for Output.
	OnTransmit func(b byte)
}

// NewUSART hooks UCSRnA and UDRn of the USART described by l.
func NewUSART(mem *regs.Memory, l mcu.USARTLayout) *USART {
	u := &USART{}
	mem.Hook(l.UCSRA, func(cell *uint8) uint8 {
		v := *cell&^(core.USARTReceiveComplete|core.USARTTransmitComplete) | core.USARTDataEmpty
		if len(u.rx) > 0 {
			v |= core.USARTReceiveComplete
		}
		return v
	}, nil)
	mem.Hook(l.UDR, func(cell *uint8) uint8 {
		if len(u.rx) == 0 {
			return *cell
		}
		*cell = u.rx[0]
		u.rx = u.rx[1:]
		return *cell
	}, func(cell *uint8, v uint8) {
		if u.OnTransmit != nil {
			u.OnTransmit(v)
			return
		}
		u.tx = append(u.tx, v)
	})
	return u
}

// Feed queues bytes as if they had arrived on RXDn.
func (u *USART) Feed(p []byte) {
	u.rx = append(u.rx, p...)
}

// Output returns everything transmitted so far.
func (u *USART) Output() []byte {
	return u.tx
}

// TakeOutput returns and forgets everything transmitted so far.
func (u *USART) TakeOutput() []byte {
	out := u.tx
	u.tx = nil
	return out
}
