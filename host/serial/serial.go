// Package serial opens the board console: the USART the firmware prints its
// status lines on and reads its Scanf input from.
package serial

import (
	"errors"
	"io"
	"os"
)

// Port represents a serial port interface
// Implementations:
// - Native serial (using github.com/tarm/serial)
// - Raw terminal device (using github.com/mattn/go-tty)
// - Pipe, an in-memory port fed by a simulated USART
type Port interface {
	io.ReadWriteCloser

	// Flush flushes any buffered data
	Flush() error
}

// Config holds serial port configuration
type Config struct {
	// Device path (e.g., "/dev/ttyUSB0", "COM3")
	Device string

	// Baud rate, must match the firmware's USART setting
	Baud int

	// Read timeout in milliseconds (0 = blocking)
	ReadTimeout int
}

// DefaultConfig returns the configuration for the example firmware, which
// runs USART0 at 9600 baud 8N1.
func DefaultConfig(device string) *Config {
	return &Config{
		Device:      device,
		Baud:        9600,
		ReadTimeout: 100,
	}
}

// IsClosed reports whether err came from using a port after Close. A read
// blocked when the port is closed fails this way too.
func IsClosed(err error) bool {
	return errors.Is(err, io.ErrClosedPipe) || errors.Is(err, os.ErrClosed)
}
