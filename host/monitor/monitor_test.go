package monitor

import (
	"bytes"
	"io"
	"strings"
	"testing"
	"time"

	"avrtools/host/serial"
)

func TestRunSplitsLines(t *testing.T) {
	p := serial.NewPipe()
	var out bytes.Buffer
	m := New(p, &out, "board: ")

	p.Deliver([]byte("starting program...\r\nenter a num")...)
	p.Deliver([]byte("ber: \r\n3 ok\r\nno newline")...)
	p.Close()

	if err := m.Run(); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	want := "board: starting program...\nboard: enter a number: \nboard: 3 ok\nboard: no newline\n"
	if out.String() != want {
		t.Errorf("Expected %q, got %q", want, out.String())
	}
	if m.Lines() != 4 {
		t.Errorf("Expected 4 lines, got %d", m.Lines())
	}
}

func TestLongLineIsFlushed(t *testing.T) {
	p := serial.NewPipe()
	var out bytes.Buffer
	m := New(p, &out, "")

	p.Deliver(bytes.Repeat([]byte{'x'}, maxLine)...)
	p.Close()
	m.Run()

	if strings.Count(out.String(), "\n") != 1 || len(out.String()) != maxLine+1 {
		t.Errorf("Expected one flushed line of %d bytes, got %q", maxLine, out.String())
	}
}

func TestSend(t *testing.T) {
	p := serial.NewPipe()
	m := New(p, &bytes.Buffer{}, "")
	if err := m.Send("42"); err != nil {
		t.Fatalf("Send failed: %v", err)
	}
	if got := string(p.Take()); got != "42\n" {
		t.Errorf("Expected '42\\n', got %q", got)
	}
}

func TestStop(t *testing.T) {
	p := serial.NewPipe()
	m := New(p, &bytes.Buffer{}, "")
	m.Stop()
	m.Stop()
	if err := m.Run(); err != nil {
		t.Errorf("Expected clean return after Stop, got %v", err)
	}
}

// timeoutPort answers like an os.File opened with VTIME: (0, io.EOF) when
// the read times out, then the queued chunks, then a closed error.
type timeoutPort struct {
	chunks []string
	reads  int
}

func (p *timeoutPort) Read(b []byte) (int, error) {
	p.reads++
	if p.reads%2 == 1 {
		return 0, io.EOF
	}
	if len(p.chunks) == 0 {
		return 0, io.ErrClosedPipe
	}
	n := copy(b, p.chunks[0])
	p.chunks = p.chunks[1:]
	return n, nil
}

func (p *timeoutPort) Write(b []byte) (int, error) { return len(b), nil }
func (p *timeoutPort) Close() error                { return nil }
func (p *timeoutPort) Flush() error                { return nil }

func TestRunRetriesReadTimeout(t *testing.T) {
	p := &timeoutPort{chunks: []string{"CompA-Interrupts: 50\r\n", "CompB-Interrupts: 50\r\n"}}
	var out bytes.Buffer
	m := New(p, &out, "")

	if err := m.Run(); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	want := "CompA-Interrupts: 50\nCompB-Interrupts: 50\n"
	if out.String() != want {
		t.Errorf("Expected %q after %d reads, got %q", want, p.reads, out.String())
	}
}

func TestStopInterruptsBlockedRead(t *testing.T) {
	p := serial.NewPipe()
	m := New(p, &bytes.Buffer{}, "")
	done := make(chan error, 1)
	go func() { done <- m.Run() }()

	time.Sleep(10 * time.Millisecond)
	if err := m.Stop(); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Expected clean return, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Run still blocked after Stop")
	}
}
