package core

import (
	"testing"

	"avrtools/regs"
)

const (
	ucsr0a = 0xC0
	ucsr0b = 0xC1
	ucsr0c = 0xC2
	ubrr0  = 0xC4
	udr0   = 0xC6
)

// loopbackUSART hooks UDR0 so writes are captured and reads come from rx
func loopbackUSART(rx []byte) (*USART, *regs.Memory, *[]byte) {
	mem := regs.NewMemory()
	var tx []byte
	mem.Hook(ucsr0a, func(cell *uint8) uint8 {
		v := *cell | USARTDataEmpty
		if len(rx) > 0 {
			v |= USARTReceiveComplete
		}
		return v
	}, nil)
	mem.Hook(udr0, func(cell *uint8) uint8 {
		c := rx[0]
		rx = rx[1:]
		return c
	}, func(cell *uint8, v uint8) {
		tx = append(tx, v)
	})

	u := NewUSART(USARTRegisters{
		UCSRA: mem.Reg8(ucsr0a),
		UCSRB: mem.Reg8(ucsr0b),
		UCSRC: mem.Reg8(ucsr0c),
		UBRR:  regs.Reg16(mem, ubrr0),
		UDR:   mem.Reg8(udr0),
	}, 16000000)
	return u, mem, &tx
}

func TestBaudDivisor(t *testing.T) {
	testCases := []struct {
		baud uint32
		want uint16
	}{
		{9600, 207},
		{57600, 34},
		{115200, 16},
		{250000, 7},
	}
	for _, tc := range testCases {
		if got := BaudDivisor(16000000, tc.baud); got != tc.want {
			t.Errorf("Baud %d: expected UBRR %d, got %d", tc.baud, tc.want, got)
		}
	}
}

func TestUSARTConfigure(t *testing.T) {
	u, mem, _ := loopbackUSART(nil)
	u.Configure(USARTConfig{Frame: Frame7E2})

	if mem.Peek(ucsr0a) != 0x02 {
		t.Errorf("Expected U2X0 set, got %#x", mem.Peek(ucsr0a))
	}
	if mem.Peek(ucsr0b) != 0x18 {
		t.Errorf("Expected RXEN0|TXEN0, got %#x", mem.Peek(ucsr0b))
	}
	if mem.Peek(ucsr0c) != uint8(Frame7E2) {
		t.Errorf("Expected frame %#x, got %#x", Frame7E2, mem.Peek(ucsr0c))
	}
	if mem.Peek16(ubrr0) != 207 {
		t.Errorf("Expected default 9600 baud divisor 207, got %d", mem.Peek16(ubrr0))
	}
}

func TestUSARTInterrupts(t *testing.T) {
	u, mem, _ := loopbackUSART(nil)
	u.Configure(USARTConfig{Frame: Frame8N1})

	u.SetInterrupts(true, false, true)
	if mem.Peek(ucsr0b) != 0xB8 {
		t.Errorf("Expected UCSR0B 0xB8, got %#x", mem.Peek(ucsr0b))
	}
	u.SetInterrupts(false, true, false)
	if mem.Peek(ucsr0b) != 0x58 {
		t.Errorf("Expected UCSR0B 0x58, got %#x", mem.Peek(ucsr0b))
	}
}

func TestUSARTPrintfCRLF(t *testing.T) {
	u, _, tx := loopbackUSART(nil)
	u.Configure(USARTConfig{Frame: Frame8N1, CRLF: true})

	u.Printf("CompA-Interrupts: %d\n", 50)
	u.Printf("already\r\n")
	want := "CompA-Interrupts: 50\r\nalready\r\n"
	if string(*tx) != want {
		t.Errorf("Expected %q, got %q", want, string(*tx))
	}
}

func TestUSARTScanfEcho(t *testing.T) {
	u, _, tx := loopbackUSART([]byte("42 abc\n"))
	u.Configure(USARTConfig{Frame: Frame8N1, Echo: true})

	var n int
	var s string
	if _, err := u.Scanf("%d %s", &n, &s); err != nil {
		t.Fatalf("Scanf failed: %v", err)
	}
	if n != 42 || s != "abc" {
		t.Errorf("Expected 42 abc, got %d %s", n, s)
	}
	if string(*tx) == "" || string(*tx)[:6] != "42 abc" {
		t.Errorf("Expected input echoed, got %q", string(*tx))
	}
}

func TestUSARTNonBlocking(t *testing.T) {
	u, mem, tx := loopbackUSART([]byte{0x55})
	u.Configure(USARTConfig{Frame: Frame8N1})

	if !u.Buffered() {
		t.Fatal("Expected a byte buffered")
	}
	b, ok := u.TryReadByte()
	if !ok || b != 0x55 {
		t.Errorf("Expected 0x55, got %#x %v", b, ok)
	}
	if _, ok := u.TryReadByte(); ok {
		t.Error("Expected empty receive buffer")
	}
	if !u.TryWriteByte('x') || string(*tx) != "x" {
		t.Errorf("Expected 'x' transmitted, got %q", string(*tx))
	}

	mem.Poke(ucsr0a, USARTFrameError|USARTParityError)
	if got := u.ReceiveErrors(); got != USARTFrameError|USARTParityError {
		t.Errorf("Expected FE|UPE, got %#x", got)
	}
}
