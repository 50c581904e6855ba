//go:build atmega2560

// Software PWM example for the Arduino Mega: connect an LED or an RC servo to PC1
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
	v := mcu.ATmega2560

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
	startMirror(v, bus)
	core.EnableGlobalInterrupts()

	for {
		app.Report()
		time.Sleep(time.Second)
		app.Advance()
		mirror()
	}
}

// startMirror runs the same pulse train as hardware PWM on OC4A (PH3,
// Arduino pin 6) for comparison on a scope.
func startMirror(v *mcu.Variant, bus regs.Bus) {
	timer4, err := v.Timer16(bus, 4)
	if err != nil {
		return
	}
	oc4a, _ := v.Pin("PH3")
	core.MustGPIO().ConfigureOutput(oc4a)

	core.SetPWMDriver(core.NewTimerPWM(timer4))
	if _, err := core.MustPWM().ConfigureHardwarePWM(core.ChannelA, (softpwm.Top+1)*8); err != nil {
		core.DebugPrintln("[PWM] mirror: " + err.Error())
		return
	}
	mirrorOn = true
	mirror()
}

var mirrorOn bool

func mirror() {
	if !mirrorOn {
		return
	}
	duty := uint32(app.OffValue()) * core.PWMMax / (softpwm.Top + 1)
	core.MustPWM().SetDutyCycle(core.ChannelA, core.PWMValue(duty))
}

func halt() {
	for {
		time.Sleep(time.Hour)
	}
}
