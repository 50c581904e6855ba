//go:build !wasm

package serial

import (
	"fmt"

	"github.com/mattn/go-tty"
)

// TTYPort is a device opened as a raw terminal through go-tty. Line
// settings are left as the device has them, which suits USB CDC adapters
// that ignore the baud rate.
type TTYPort struct {
	tty     *tty.TTY
	restore func() error
	device  string
}

// OpenTTY opens cfg.Device as a raw terminal. Baud and ReadTimeout are not
// applied.
func OpenTTY(cfg *Config) (Port, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	t, err := tty.OpenDevice(cfg.Device)
	if err != nil {
		return nil, fmt.Errorf("failed to open tty %s: %w", cfg.Device, err)
	}
	restore, err := t.Raw()
	if err != nil {
		t.Close()
		return nil, fmt.Errorf("failed to set raw mode on %s: %w", cfg.Device, err)
	}
	return &TTYPort{tty: t, restore: restore, device: cfg.Device}, nil
}

// Device returns the path the port was opened on
func (p *TTYPort) Device() string {
	return p.device
}

func (p *TTYPort) Read(b []byte) (int, error) {
	return p.tty.Input().Read(b)
}

func (p *TTYPort) Write(b []byte) (int, error) {
	return p.tty.Output().Write(b)
}

// Close restores the terminal settings and closes the device
func (p *TTYPort) Close() error {
	if p.restore != nil {
		p.restore()
		p.restore = nil
	}
	return p.tty.Close()
}

// Flush is a no-op; go-tty writes are unbuffered
func (p *TTYPort) Flush() error {
	return nil
}
