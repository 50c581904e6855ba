// Package softpwm is the firmware of the timer example boards: a 50 Hz
// software PWM signal generated from timer 1 in CTC mode, for an LED or an
// RC servo. Compare match A (TOP) raises the pin, compare match B lowers it.
// The duty cycle sweeps from 5% to 10% and starts over.
package softpwm

import (
	"avrtools/core"
)

// Timing for a 16 MHz part at prescale 8: one count is 0.5 us.
const (
	Top      = 39999 // 20 ms period
	OffStart = 2000  // 1 ms high, 5% duty
	OffStep  = 200
	OffMax   = 4000 // 2 ms high, 10% duty
	Baud     = 9600
)

// App holds the example's peripherals and interrupt counters.
type App struct {
	timer *core.Timer16
	gpio  core.GPIODriver
	pin   core.GPIOPin
	usart *core.USART

	off   uint16
	compA uint16 // written from the compare A vector
	compB uint16 // written from the compare B vector
}

// New binds the example to a timer, an output pin and a console USART.
func New(timer *core.Timer16, gpio core.GPIODriver, pin core.GPIOPin, usart *core.USART) *App {
	return &App{
		timer: timer,
		gpio:  gpio,
		pin:   pin,
		usart: usart,
		off:   OffStart,
	}
}

// Start raises the pin, greets on the console and starts the timer. Global
// interrupts are left to the caller.
func (a *App) Start() error {
	if err := a.gpio.ConfigureOutput(a.pin); err != nil {
		return err
	}
	a.gpio.SetPin(a.pin, true)

	a.usart.Configure(core.USARTConfig{Baud: Baud, Frame: core.Frame8N1, CRLF: true})
	a.usart.Printf("starting program...\n")

	t := a.timer
	t.SetMode(core.ModeCTCOCRA)
	if err := t.SetTopValue(Top); err != nil {
		return err
	}
	if err := t.SetCompareMatchValue(core.ChannelB, a.off); err != nil {
		return err
	}
	t.ClearPendingInterruptEvents(core.IntCompareA | core.IntCompareB)
	t.EnableInterrupts(core.IntCompareA | core.IntCompareB)
	t.SelectClockSource(core.ClockPrescale8)
	return nil
}

// OnCompareA runs from the TIMERn_COMPA vector: the counter just wrapped.
func (a *App) OnCompareA() {
	a.gpio.SetPin(a.pin, true)
	a.compA++
}

// OnCompareB runs from the TIMERn_COMPB vector.
func (a *App) OnCompareB() {
	a.gpio.SetPin(a.pin, false)
	a.compB++
}

// Counts returns the interrupt counters.
func (a *App) Counts() (compA, compB uint16) {
	core.Critical(func() {
		compA, compB = a.compA, a.compB
	})
	return
}

// OffValue returns the compare B value currently programmed.
func (a *App) OffValue() uint16 {
	return a.off
}

// Report prints the interrupt counters on the console.
func (a *App) Report() {
	compA, compB := a.Counts()
	a.usart.Printf("CompA-Interrupts: %d, CompB-Interrupts: %d\n", compA, compB)
}

// Advance widens the pulse by one step, wrapping back to 5% past 10%.
func (a *App) Advance() {
	a.off += OffStep
	if a.off > OffMax {
		a.off = OffStart
	}
	a.timer.SetCompareMatchValue(core.ChannelB, a.off)
}
