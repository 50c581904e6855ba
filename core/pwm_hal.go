package core

// PWMValue is the duty cycle value (0 to PWMMax)
type PWMValue uint32

// PWMMax is the full-on duty cycle value
const PWMMax = 255

// PWMDriver is the abstract hardware PWM interface: one period shared by
// several compare outputs, each with its own duty cycle.
type PWMDriver interface {
	// ConfigureHardwarePWM configures a compare output for PWM
	// cycleTicks: PWM period in CPU clocks
	// Returns the actual cycle ticks used (may be adjusted for hardware constraints)
	ConfigureHardwarePWM(ch CompareChannel, cycleTicks uint32) (uint32, error)

	// SetDutyCycle sets the PWM duty cycle of an output
	// value: 0 (fully off) to GetMaxValue() (fully on)
	SetDutyCycle(ch CompareChannel, value PWMValue) error

	// GetMaxValue returns the maximum PWM value
	GetMaxValue() uint32

	// DisablePWM disconnects the output; the pin returns to GPIO control
	DisablePWM(ch CompareChannel) error
}

// Global singleton used by core code.
var pwmDriver PWMDriver

// SetPWMDriver is called by target-specific code to register its driver.
func SetPWMDriver(d PWMDriver) {
	pwmDriver = d
}

// MustPWM returns the configured driver or panics if missing.
func MustPWM() PWMDriver {
	if pwmDriver == nil {
		panic("PWM driver not configured")
	}
	return pwmDriver
}
