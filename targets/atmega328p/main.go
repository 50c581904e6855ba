//go:build atmega328p

// Software PWM example for the Arduino Uno/Nano: connect an LED or an RC servo to PC1
// and a terminal to USART0 at 9600 baud.
package main

import (
	"device/avr"
	"runtime/interrupt"
	"time"

	"avrtools/core"
	"avrtools/mcu"
	"avrtools/regs"
	"avrtools/targets/softpwm"
)

var app *softpwm.App

func main() {
	bus := regs.MMIO{}
	v := mcu.ATmega328P

	timer, err := v.Timer16(bus, 1)
	if err != nil {
		halt()
	}
	usart, err := v.USART(bus, 0)
	if err != nil {
		halt()
	}
	pin, _ := v.Pin("PC1")

	core.SetDebugWriter(func(s string) {
		usart.Printf("%s\n", s)
	})

	core.SetGPIODriver(v.GPIO(bus))
	app = softpwm.New(timer, core.MustGPIO(), pin, usart)
	interrupt.New(avr.IRQ_TIMER1_COMPA, func(interrupt.Interrupt) {
		app.OnCompareA()
	})
	interrupt.New(avr.IRQ_TIMER1_COMPB, func(interrupt.Interrupt) {
		app.OnCompareB()
	})

	if err := app.Start(); err != nil {
		core.SetDebugEnabled(true)
		core.DebugPrintln("[PWM] start failed: " + err.Error())
		core.DumpEvents()
		halt()
	}
	core.EnableGlobalInterrupts()

	for {
		app.Report()
		time.Sleep(time.Second)
		app.Advance()
	}
}

func halt() {
	for {
		time.Sleep(time.Hour)
	}
}
