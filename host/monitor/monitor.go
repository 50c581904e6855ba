// Package monitor follows the board console: it splits what the firmware
// prints into lines and forwards input typed on the host.
package monitor

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"sync"

	"avrtools/host/serial"
)

// maxLine bounds a line without a terminator; longer runs are flushed as is.
const maxLine = 256

// Monitor copies console lines from a port to an output.
type Monitor struct {
	port   serial.Port
	out    io.Writer
	prefix string

	mu      sync.Mutex
	partial []byte
	lines   uint64
	stop    chan struct{}
	stopped bool
}

// New creates a monitor writing every received line to out, preceded by
// prefix.
func New(port serial.Port, out io.Writer, prefix string) *Monitor {
	return &Monitor{
		port:   port,
		out:    out,
		prefix: prefix,
		stop:   make(chan struct{}),
	}
}

// Run reads the port until Stop is called or the port is closed. A read
// that returns no data with io.EOF is a serial read timeout and is retried.
// A trailing partial line is flushed before returning.
func (m *Monitor) Run() error {
	buf := make([]byte, 64)
	defer m.flushPartial()
	for {
		select {
		case <-m.stop:
			return nil
		default:
		}

		n, err := m.port.Read(buf)
		if n > 0 {
			if werr := m.feed(buf[:n]); werr != nil {
				return werr
			}
		}
		if err == nil || errors.Is(err, io.EOF) {
			continue
		}
		if m.isStopped() || serial.IsClosed(err) {
			return nil
		}
		return fmt.Errorf("console read: %w", err)
	}
}

// Stop closes the port, which ends a Run blocked in Read. Calling it again
// does nothing.
func (m *Monitor) Stop() error {
	m.mu.Lock()
	if m.stopped {
		m.mu.Unlock()
		return nil
	}
	m.stopped = true
	close(m.stop)
	m.mu.Unlock()
	return m.port.Close()
}

func (m *Monitor) isStopped() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stopped
}

// Lines returns the number of lines forwarded so far.
func (m *Monitor) Lines() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lines
}

// Send writes one line of input to the board. The firmware's Scanf reads up
// to the newline.
func (m *Monitor) Send(line string) error {
	if _, err := io.WriteString(m.port, line+"\n"); err != nil {
		return fmt.Errorf("console write: %w", err)
	}
	return nil
}

func (m *Monitor) feed(p []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.partial = append(m.partial, p...)
	for {
		i := bytes.IndexByte(m.partial, '\n')
		if i < 0 {
			break
		}
		if err := m.emit(m.partial[:i]); err != nil {
			return err
		}
		m.partial = m.partial[i+1:]
	}
	if len(m.partial) >= maxLine {
		err := m.emit(m.partial)
		m.partial = m.partial[:0]
		return err
	}
	return nil
}

func (m *Monitor) flushPartial() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.partial) > 0 {
		m.emit(m.partial)
		m.partial = nil
	}
}

// emit writes one line; caller holds mu.
func (m *Monitor) emit(line []byte) error {
	line = bytes.TrimRight(line, "\r")
	m.lines++
	_, err := fmt.Fprintf(m.out, "%s%s\n", m.prefix, line)
	return err
}
