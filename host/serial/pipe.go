package serial

import (
	"io"
	"sync"
)

// Pipe is an in-memory Port. The device side pushes bytes with Deliver and
// collects what the host wrote with Take; the host side uses the Port
// methods. A simulated board's USART is attached this way.
type Pipe struct {
	mu     sync.Mutex
	cond   *sync.Cond
	rx     []byte // device to host
	tx     []byte // host to device
	closed bool
}

// NewPipe returns an open, empty pipe.
func NewPipe() *Pipe {
	p := &Pipe{}
	p.cond = sync.NewCond(&p.mu)
	return p
}

// Deliver queues bytes for the host to read.
func (p *Pipe) Deliver(b ...byte) {
	p.mu.Lock()
	p.rx = append(p.rx, b...)
	p.mu.Unlock()
	p.cond.Broadcast()
}

// Take returns and forgets everything the host wrote.
func (p *Pipe) Take() []byte {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := p.tx
	p.tx = nil
	return out
}

// Read blocks until data is available or the pipe is closed. Once closed
// and drained it returns io.ErrClosedPipe.
func (p *Pipe) Read(b []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for len(p.rx) == 0 && !p.closed {
		p.cond.Wait()
	}
	if len(p.rx) == 0 {
		return 0, io.ErrClosedPipe
	}
	n := copy(b, p.rx)
	p.rx = p.rx[n:]
	return n, nil
}

func (p *Pipe) Write(b []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return 0, io.ErrClosedPipe
	}
	p.tx = append(p.tx, b...)
	return len(b), nil
}

// Close wakes any blocked reader; buffered input can still be drained.
func (p *Pipe) Close() error {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()
	p.cond.Broadcast()
	return nil
}

// Flush drops unread input.
func (p *Pipe) Flush() error {
	p.mu.Lock()
	p.rx = nil
	p.mu.Unlock()
	return nil
}
