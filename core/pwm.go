// Hardware PWM on the OCnx outputs of a 16-bit timer
// Fast PWM with ICRn as TOP, so every compare channel is usable and the
// period is independent of the duty cycles
package core

import (
	"errors"
)

// ErrPWMPeriod is returned when no prescaler can produce the period
var ErrPWMPeriod = errors.New("pwm: period out of range")

// minPWMTop is the smallest TOP the hardware allows (2-bit resolution)
const minPWMTop = 3

var pwmPrescalers = []ClockSource{
	ClockPrescale1, ClockPrescale8, ClockPrescale64, ClockPrescale256, ClockPrescale1024,
}

// TimerPWM implements PWMDriver on one Timer16. TOP and the prescaler are
// read back from the timer, so duty cycles follow a timer reprogrammed
// behind its back.
type TimerPWM struct {
	t      *Timer16
	active CompareChannel
}

// NewTimerPWM wraps t. The timer is not touched until the first
// ConfigureHardwarePWM.
func NewTimerPWM(t *Timer16) *TimerPWM {
	return &TimerPWM{t: t}
}

// pwmPeriod picks the finest prescaler that fits cycleTicks into 16 bits.
func pwmPeriod(cycleTicks uint32) (ClockSource, uint16, error) {
	for _, cs := range pwmPrescalers {
		div := uint32(cs.Divider())
		counts := cycleTicks / div
		if counts == 0 {
			break
		}
		if counts-1 < minPWMTop {
			break
		}
		if counts <= 0x10000 {
			return cs, uint16(counts - 1), nil
		}
	}
	return ClockOff, 0, ErrPWMPeriod
}

// ConfigureHardwarePWM sets up ch with a zero duty cycle. The first channel
// configured fixes the period for the whole timer; later channels share it
// and get the actual period back.
func (p *TimerPWM) ConfigureHardwarePWM(ch CompareChannel, cycleTicks uint32) (uint32, error) {
	if _, err := p.t.comOffset(ch); err != nil {
		return 0, err
	}
	if p.active == 0 {
		cs, top, err := pwmPeriod(cycleTicks)
		if err != nil {
			DebugPrintln("[PWM] timer " + itoa(int(p.t.Unit())) + ": no prescaler for " +
				utoa(cycleTicks) + " ticks")
			return 0, err
		}
		t := p.t
		t.SelectClockSource(ClockOff)
		t.SetMode(ModeFastPWMICR)
		if err := t.SetTopValue(top); err != nil {
			return 0, err
		}
		t.SetCounter(0)
		t.SelectClockSource(cs)
	}
	p.active |= ch
	if err := p.SetDutyCycle(ch, 0); err != nil {
		return 0, err
	}
	return p.Period(), nil
}

// SetDutyCycle maps value onto 0..TOP. Zero disconnects the output so the
// pin rests at its PORT level, since OCRnx = 0 would still give a one-count
// pulse every period.
func (p *TimerPWM) SetDutyCycle(ch CompareChannel, value PWMValue) error {
	if p.active&ch == 0 || ch&(ch-1) != 0 {
		return ErrInvalidChannel
	}
	if value > PWMMax {
		value = PWMMax
	}
	if value == 0 {
		return p.t.SetPwmPinMode(ch, PinOff)
	}
	ocr := uint32(value) * uint32(p.t.TopValue()) / PWMMax
	if err := p.t.SetCompareMatchValue(ch, uint16(ocr)); err != nil {
		return err
	}
	return p.t.SetPwmPinMode(ch, PinPWMNormal)
}

// GetMaxValue returns PWMMax
func (p *TimerPWM) GetMaxValue() uint32 {
	return PWMMax
}

// DisablePWM disconnects ch. The timer is stopped once no channel is left.
func (p *TimerPWM) DisablePWM(ch CompareChannel) error {
	if p.active&ch == 0 || ch&(ch-1) != 0 {
		return ErrInvalidChannel
	}
	if err := p.t.SetPwmPinMode(ch, PinOff); err != nil {
		return err
	}
	p.active &^= ch
	if p.active == 0 {
		p.t.SelectClockSource(ClockOff)
	}
	return nil
}

// Period returns the period in CPU clocks, or 0 before configuration
func (p *TimerPWM) Period() uint32 {
	if p.active == 0 {
		return 0
	}
	return (uint32(p.t.TopValue()) + 1) * uint32(p.t.ClockSource().Divider())
}
