package core

import "errors"

// ErrNoPullDown is returned by drivers whose inputs only have pull-ups.
var ErrNoPullDown = errors.New("gpio: pull-down resistors not available")

// ErrInvalidPin is returned for pins on ports the variant does not have.
var ErrInvalidPin = errors.New("gpio: invalid pin")

// GPIOPin identifies a hardware GPIO pin: port index * 8 + bit.
type GPIOPin uint8

// MakePin builds a pin id from a port index (0 = port A) and a bit.
func MakePin(port uint8, bit uint8) GPIOPin {
	return GPIOPin(port<<3 | bit&0x07)
}

// Port returns the port index of the pin.
func (p GPIOPin) Port() uint8 {
	return uint8(p) >> 3
}

// Bit returns the bit number of the pin within its port.
func (p GPIOPin) Bit() uint8 {
	return uint8(p) & 0x07
}

// String returns the datasheet name, e.g. "PB5".
func (p GPIOPin) String() string {
	return string([]byte{'P', 'A' + p.Port(), '0' + p.Bit()})
}

// GPIODriver is the abstract GPIO interface that application code uses.
// Platform-specific implementations handle actual hardware control.
type GPIODriver interface {
	// ConfigureOutput configures a pin as a digital output
	// Returns error if pin is invalid
	ConfigureOutput(pin GPIOPin) error

	// ConfigureInput configures a pin as a floating digital input
	ConfigureInput(pin GPIOPin) error

	// ConfigureInputPullUp configures a pin as a digital input with pull-up resistor
	ConfigureInputPullUp(pin GPIOPin) error

	// ConfigureInputPullDown configures a pin as a digital input with pull-down resistor
	ConfigureInputPullDown(pin GPIOPin) error

	// SetPin sets the pin to high (true) or low (false)
	SetPin(pin GPIOPin, value bool) error

	// TogglePin inverts an output pin
	TogglePin(pin GPIOPin) error

	// GetPin reads the current pin state
	GetPin(pin GPIOPin) (bool, error)

	// ReadPin reads the current pin state (alias for GetPin for convenience)
	ReadPin(pin GPIOPin) bool
}

// Global singleton used by application code.
var gpioDriver GPIODriver

// SetGPIODriver is called by target-specific code to register its driver.
func SetGPIODriver(d GPIODriver) {
	gpioDriver = d
}

// MustGPIO returns the configured driver or panics if missing.
func MustGPIO() GPIODriver {
	if gpioDriver == nil {
		panic("GPIO driver not configured")
	}
	return gpioDriver
}
