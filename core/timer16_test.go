package core

import (
	"testing"

	"avrtools/regs"
)

// Timer 1 register addresses
const (
	tccr1a = 0x80
	tccr1b = 0x81
	tccr1c = 0x82
	tcnt1  = 0x84
	icr1   = 0x86
	ocr1a  = 0x88
	ocr1b  = 0x8A
	ocr1c  = 0x8C
	timsk1 = 0x6F
	tifr1  = 0x36
)

// newTestTimer builds timer 1 over a fresh simulated data space
func newTestTimer(channelC bool) (*Timer16, *regs.Memory) {
	mem := regs.NewMemory()
	mem.MarkW1C(tifr1)
	r := Timer16Registers{
		Unit:  1,
		TCCRA: mem.Reg8(tccr1a),
		TCCRB: mem.Reg8(tccr1b),
		TCCRC: mem.Reg8(tccr1c),
		TCNT:  regs.Reg16(mem, tcnt1),
		OCRA:  regs.Reg16(mem, ocr1a),
		OCRB:  regs.Reg16(mem, ocr1b),
		OCRC:  regs.Absent(),
		ICR:   regs.Reg16(mem, icr1),
		TIMSK: mem.Reg8(timsk1),
		TIFR:  mem.Reg8(tifr1),
	}
	if channelC {
		r.OCRC = regs.Present(regs.Reg16(mem, ocr1c))
	}
	return NewTimer16(r), mem
}

func TestModeTable(t *testing.T) {
	modes := Modes()
	if len(modes) != 15 {
		t.Fatalf("Expected 15 modes, got %d", len(modes))
	}

	for _, info := range modes {
		if info.Mode == ModeReserved {
			t.Errorf("Reserved mode listed")
		}
		if info.Name == "" {
			t.Errorf("Mode %d has no name", info.Mode)
		}
		if info.Top == TopFixed && info.FixedTop == 0 {
			t.Errorf("Mode %s: fixed TOP without a value", info.Name)
		}
		m, ok := ModeByName(info.Name)
		if !ok || m != info.Mode {
			t.Errorf("ModeByName(%q) = %d, %v", info.Name, m, ok)
		}
	}

	if _, ok := LookupMode(ModeReserved); ok {
		t.Error("Expected reserved mode to be rejected")
	}
	if _, ok := LookupMode(0x10); ok {
		t.Error("Expected out-of-range mode to be rejected")
	}
	if ModeReserved.Valid() {
		t.Error("Expected reserved mode to be invalid")
	}
}

func TestModeTableRows(t *testing.T) {
	testCases := []struct {
		mode  TimerMode
		top   TopSource
		fixed uint16
		shape Slope
	}{
		{ModeNormal, TopFixed, 0xFFFF, SingleSlope},
		{ModePWMPhaseCorrect8Bit, TopFixed, 0x00FF, DualSlope},
		{ModePWMPhaseCorrect9Bit, TopFixed, 0x01FF, DualSlope},
		{ModePWMPhaseCorrect10Bit, TopFixed, 0x03FF, DualSlope},
		{ModeCTCOCRA, TopOCRA, 0, SingleSlope},
		{ModeFastPWM8Bit, TopFixed, 0x00FF, SingleSlope},
		{ModeFastPWM9Bit, TopFixed, 0x01FF, SingleSlope},
		{ModeFastPWM10Bit, TopFixed, 0x03FF, SingleSlope},
		{ModePWMPhaseFreqCorrectICR, TopICR, 0, DualSlope},
		{ModePWMPhaseFreqCorrectOCRA, TopOCRA, 0, DualSlope},
		{ModePWMPhaseCorrectICR, TopICR, 0, DualSlope},
		{ModePWMPhaseCorrectOCRA, TopOCRA, 0, DualSlope},
		{ModeCTCICR, TopICR, 0, SingleSlope},
		{ModeFastPWMICR, TopICR, 0, SingleSlope},
		{ModeFastPWMOCRA, TopOCRA, 0, SingleSlope},
	}

	for _, tc := range testCases {
		t.Run(tc.mode.String(), func(t *testing.T) {
			info, ok := LookupMode(tc.mode)
			if !ok {
				t.Fatalf("Mode %d not found", tc.mode)
			}
			if info.Top != tc.top || info.Shape != tc.shape {
				t.Errorf("Expected top=%d shape=%d, got top=%d shape=%d", tc.top, tc.shape, info.Top, info.Shape)
			}
			if tc.top == TopFixed && info.FixedTop != tc.fixed {
				t.Errorf("Expected fixed TOP %#x, got %#x", tc.fixed, info.FixedTop)
			}
		})
	}
}

func TestSetModeRoundTrip(t *testing.T) {
	for _, info := range Modes() {
		t.Run(info.Name, func(t *testing.T) {
			tc, mem := newTestTimer(true)

			// unrelated bits must survive
			mem.Poke(tccr1a, 0xFC)
			mem.Poke(tccr1b, 0xE7)

			tc.SetMode(info.Mode)
			if got := tc.Mode(); got != info.Mode {
				t.Errorf("Expected mode %d, got %d", info.Mode, got)
			}
			if got := mem.Peek(tccr1a) &^ 0x03; got != 0xFC {
				t.Errorf("TCCR1A non-mode bits changed: %#x", got)
			}
			if got := mem.Peek(tccr1b) &^ 0x18; got != 0xE7 {
				t.Errorf("TCCR1B non-mode bits changed: %#x", got)
			}

			tc.SetPwmPinMode(ChannelA, PinPWMInverted)
			tc.SetPwmPinMode(ChannelB, PinToggleOnMatch)
			tc.SetPwmPinMode(ChannelC, PinClearOnMatch)
			tc.SetCompareMatchValue(ChannelB, 0x1234)
			tc.SelectClockSource(ClockPrescale1024)
			tc.SelectClockSource(ClockExternalRising)
			if got := tc.Mode(); got != info.Mode {
				t.Errorf("Mode changed by unrelated writes: expected %d, got %d", info.Mode, got)
			}
		})
	}
}

func TestSetModeBitSplit(t *testing.T) {
	tc, mem := newTestTimer(false)

	tc.SetMode(ModeFastPWMOCRA)
	if mem.Peek(tccr1a) != 0x03 || mem.Peek(tccr1b) != 0x18 {
		t.Errorf("Expected TCCR1A=0x03 TCCR1B=0x18, got %#x %#x", mem.Peek(tccr1a), mem.Peek(tccr1b))
	}

	tc.SetMode(ModeCTCOCRA)
	if mem.Peek(tccr1a) != 0x00 || mem.Peek(tccr1b) != 0x08 {
		t.Errorf("Expected TCCR1A=0x00 TCCR1B=0x08, got %#x %#x", mem.Peek(tccr1a), mem.Peek(tccr1b))
	}
}

func TestClockSource(t *testing.T) {
	tc, mem := newTestTimer(false)
	tc.SetMode(ModeFastPWMICR)

	for cs := ClockOff; cs <= ClockExternalRising; cs++ {
		tc.SelectClockSource(cs)
		if got := tc.ClockSource(); got != cs {
			t.Errorf("Expected clock source %d, got %d", cs, got)
		}
		if got := mem.Peek(tccr1b) & 0x07; got != uint8(cs) {
			t.Errorf("Expected CS bits %d, got %d", cs, got)
		}
	}
	if tc.Mode() != ModeFastPWMICR {
		t.Errorf("Clock select disturbed mode: %d", tc.Mode())
	}

	if ClockPrescale64.Divider() != 64 || ClockExternalFalling.Divider() != 0 {
		t.Error("Unexpected prescale divider")
	}
}

func TestFixedTopModes(t *testing.T) {
	for _, info := range Modes() {
		if info.Top != TopFixed {
			continue
		}
		t.Run(info.Name, func(t *testing.T) {
			tc, mem := newTestTimer(true)
			tc.SetMode(info.Mode)
			mem.Poke16(ocr1a, 0x1111)
			mem.Poke16(icr1, 0x2222)

			before := mem.Snapshot()
			if err := tc.SetTopValue(0xABCD); err != ErrFixedTop {
				t.Errorf("Expected ErrFixedTop, got %v", err)
			}
			if after := mem.Snapshot(); after != before {
				t.Error("SetTopValue changed registers in a fixed-TOP mode")
			}

			mem.ResetCounters()
			if got := tc.TopValue(); got != info.FixedTop {
				t.Errorf("Expected TOP %#x, got %#x", info.FixedTop, got)
			}
			if mem.Loads[ocr1a] != 0 || mem.Loads[icr1] != 0 {
				t.Error("TopValue read a register in a fixed-TOP mode")
			}
		})
	}
}

func TestProgrammableTopModes(t *testing.T) {
	values := []uint16{0, 1, 0x00FF, 0x0100, 39999, 0x8000, 0xFFFE, 0xFFFF}

	for _, info := range Modes() {
		if info.Top == TopFixed {
			continue
		}
		t.Run(info.Name, func(t *testing.T) {
			tc, mem := newTestTimer(false)
			tc.SetMode(info.Mode)

			for _, v := range values {
				tc.TopValue()
				if err := tc.SetTopValue(v); err != nil {
					t.Fatalf("SetTopValue(%#x) failed: %v", v, err)
				}
				if got := tc.TopValue(); got != v {
					t.Errorf("Expected TOP %#x, got %#x", v, got)
				}

				addr := uintptr(ocr1a)
				if info.Top == TopICR {
					addr = icr1
				}
				if got := mem.Peek16(addr); got != v {
					t.Errorf("Expected register %#x to hold %#x, got %#x", addr, v, got)
				}
			}
		})
	}
}

func TestReservedMode(t *testing.T) {
	tc, mem := newTestTimer(false)
	tc.SetMode(ModeReserved)
	if tc.Mode() != ModeReserved {
		t.Fatalf("Expected raw reserved pattern to read back, got %d", tc.Mode())
	}

	before := mem.Snapshot()
	if err := tc.SetTopValue(100); err != ErrReservedMode {
		t.Errorf("Expected ErrReservedMode, got %v", err)
	}
	if mem.Snapshot() != before {
		t.Error("SetTopValue wrote registers in reserved mode")
	}
	if got := tc.TopValue(); got != 0xFFFF {
		t.Errorf("Expected 0xFFFF, got %#x", got)
	}
}

func TestCompareMatchValues(t *testing.T) {
	tc, mem := newTestTimer(true)

	testCases := []struct {
		ch   CompareChannel
		addr uintptr
	}{
		{ChannelA, ocr1a},
		{ChannelB, ocr1b},
		{ChannelC, ocr1c},
	}
	for i, tc2 := range testCases {
		v := uint16(0x1000*(i+1) + 0x34)
		if err := tc.SetCompareMatchValue(tc2.ch, v); err != nil {
			t.Fatalf("SetCompareMatchValue(%d) failed: %v", tc2.ch, err)
		}
		if got := mem.Peek16(tc2.addr); got != v {
			t.Errorf("Expected %#x at %#x, got %#x", v, tc2.addr, got)
		}
		got, err := tc.CompareMatchValue(tc2.ch)
		if err != nil || got != v {
			t.Errorf("Expected %#x, got %#x (%v)", v, got, err)
		}
	}

	if err := tc.SetCompareMatchValue(ChannelA|ChannelB, 1); err != ErrInvalidChannel {
		t.Errorf("Expected ErrInvalidChannel, got %v", err)
	}
	if _, err := tc.CompareMatchValue(0); err != ErrInvalidChannel {
		t.Errorf("Expected ErrInvalidChannel, got %v", err)
	}
}

func TestCompareAMovesTop(t *testing.T) {
	tc, _ := newTestTimer(false)
	tc.SetMode(ModeCTCOCRA)
	tc.SetCompareMatchValue(ChannelA, 500)
	if got := tc.TopValue(); got != 500 {
		t.Errorf("Expected TOP to follow OCR1A, got %d", got)
	}
}

func TestAbsentChannelC(t *testing.T) {
	tc, mem := newTestTimer(false)
	if tc.HasChannelC() {
		t.Fatal("Expected no channel C")
	}

	before := mem.Snapshot()
	if err := tc.SetCompareMatchValue(ChannelC, 10); err != ErrNoChannel {
		t.Errorf("Expected ErrNoChannel, got %v", err)
	}
	if _, err := tc.CompareMatchValue(ChannelC); err != ErrNoChannel {
		t.Errorf("Expected ErrNoChannel, got %v", err)
	}
	if err := tc.SetPwmPinMode(ChannelC, PinSetOnMatch); err != ErrNoChannel {
		t.Errorf("Expected ErrNoChannel, got %v", err)
	}
	if err := tc.ForceOutputCompareMatch(ChannelA | ChannelC); err != ErrNoChannel {
		t.Errorf("Expected ErrNoChannel, got %v", err)
	}
	if mem.Snapshot() != before {
		t.Error("Absent channel C operations wrote registers")
	}
}

func TestPwmPinModeEncoding(t *testing.T) {
	testCases := []struct {
		pm   PwmPinMode
		bits uint8
	}{
		{PinOff, 0x0},
		{PinToggleOnMatch, 0x1},
		{PinClearOnMatch, 0x2},
		{PinSetOnMatch, 0x3},
		{PinPWMNormal, 0x2},
		{PinPWMInverted, 0x3},
	}

	for _, c := range testCases {
		tc, mem := newTestTimer(true)
		tc.SetPwmPinMode(ChannelA, c.pm)
		tc.SetPwmPinMode(ChannelB, c.pm)
		tc.SetPwmPinMode(ChannelC, c.pm)
		want := c.bits<<6 | c.bits<<4 | c.bits<<2
		if got := mem.Peek(tccr1a); got != want {
			t.Errorf("Pin mode %d: expected TCCR1A %#x, got %#x", c.pm, want, got)
		}
	}
}

func TestPwmPinModeIsolation(t *testing.T) {
	all := []PwmPinMode{PinOff, PinToggleOnMatch, PinClearOnMatch, PinSetOnMatch, PinPWMNormal, PinPWMInverted}

	pairs := []struct {
		name          string
		mutate, fixed CompareChannel
	}{
		{"A keeps B", ChannelA, ChannelB},
		{"B keeps A", ChannelB, ChannelA},
		{"C keeps A", ChannelC, ChannelA},
		{"A keeps C", ChannelA, ChannelC},
	}

	for _, p := range pairs {
		t.Run(p.name, func(t *testing.T) {
			for _, known := range []PwmPinMode{PinToggleOnMatch, PinSetOnMatch} {
				tc, _ := newTestTimer(true)
				tc.SetMode(ModeFastPWM10Bit)
				tc.SetPwmPinMode(p.fixed, known)
				want, _ := tc.PwmPinMode(p.fixed)

				for _, pm := range all {
					tc.SetPwmPinMode(p.mutate, pm)
					if got, _ := tc.PwmPinMode(p.fixed); got != want {
						t.Errorf("Setting %d on channel %d changed channel %d: expected %d, got %d",
							pm, p.mutate, p.fixed, want, got)
					}
					if got, _ := tc.PwmPinMode(p.mutate); got.comBits() != pm.comBits() {
						t.Errorf("Channel %d: expected code %d, got %d", p.mutate, pm.comBits(), got)
					}
				}
				if tc.Mode() != ModeFastPWM10Bit {
					t.Errorf("Pin mode changes disturbed the mode: %d", tc.Mode())
				}
			}
		})
	}
}

func TestForceOutputCompareMatch(t *testing.T) {
	tc, mem := newTestTimer(true)

	testCases := []struct {
		chs  CompareChannel
		want uint8
	}{
		{ChannelA, 0x80},
		{ChannelB, 0x40},
		{ChannelC, 0x20},
		{ChannelA | ChannelB, 0xC0},
		{ChannelA | ChannelB | ChannelC, 0xE0},
		{0, 0x00},
	}
	for _, c := range testCases {
		mem.ResetCounters()
		if err := tc.ForceOutputCompareMatch(c.chs); err != nil {
			t.Fatalf("ForceOutputCompareMatch(%d) failed: %v", c.chs, err)
		}
		if got := mem.Peek(tccr1c); got != c.want {
			t.Errorf("Channels %d: expected TCCR1C %#x, got %#x", c.chs, c.want, got)
		}
		if mem.Stores[tccr1c] != 1 || mem.Loads[tccr1c] != 0 {
			t.Errorf("Expected a single plain write, got %d loads %d stores", mem.Loads[tccr1c], mem.Stores[tccr1c])
		}
	}
}

func TestEnableDisableInterrupts(t *testing.T) {
	tc, mem := newTestTimer(true)
	mem.Poke(timsk1, 0x21)

	tc.EnableInterrupts(IntCompareA | IntCompareB)
	if got := mem.Peek(timsk1); got != 0x27 {
		t.Errorf("Expected TIMSK1 0x27, got %#x", got)
	}
	tc.DisableInterrupts(IntCompareA | IntCompareB)
	if got := mem.Peek(timsk1); got != 0x21 {
		t.Errorf("Expected TIMSK1 back to 0x21, got %#x", got)
	}
	if tc.EnabledInterrupts() != IntOverflow|IntInputCapture {
		t.Errorf("Unexpected enabled set %#x", tc.EnabledInterrupts())
	}
}

func TestClearPendingInterruptEvents(t *testing.T) {
	all := IntOverflow | IntCompareA | IntCompareB | IntCompareC | IntInputCapture

	testCases := []struct {
		name  string
		clear TimerInterrupt
	}{
		{"none", 0},
		{"overflow", IntOverflow},
		{"compare A and B", IntCompareA | IntCompareB},
		{"input capture", IntInputCapture},
		{"all", all},
	}

	for _, c := range testCases {
		t.Run(c.name, func(t *testing.T) {
			tc, mem := newTestTimer(true)
			mem.Poke(tifr1, uint8(all))

			tc.ClearPendingInterruptEvents(c.clear)
			want := all &^ c.clear
			if got := tc.PendingInterruptEvents(); got != want {
				t.Errorf("Expected pending %#x, got %#x", want, got)
			}
			if mem.Loads[tifr1] != 1 {
				t.Errorf("Expected TIFR1 never read before the write, got %d loads", mem.Loads[tifr1])
			}
		})
	}
}

func TestCounter(t *testing.T) {
	tc, mem := newTestTimer(false)
	tc.SetCounter(0xBEEF)
	if mem.Peek16(tcnt1) != 0xBEEF || tc.Counter() != 0xBEEF {
		t.Errorf("Expected counter 0xBEEF, got %#x", tc.Counter())
	}
}

func TestCTCScenario(t *testing.T) {
	tc, _ := newTestTimer(false)

	tc.SetMode(ModeCTCOCRA)
	if err := tc.SetTopValue(39999); err != nil {
		t.Fatalf("SetTopValue failed: %v", err)
	}
	tc.SelectClockSource(ClockPrescale8)
	tc.EnableInterrupts(IntCompareA | IntCompareB)

	if got := tc.TopValue(); got != 39999 {
		t.Errorf("Expected TOP 39999, got %d", got)
	}
	if got := tc.Mode(); got != ModeCTCOCRA {
		t.Errorf("Expected mode ctc-ocra, got %s", got)
	}
	info, _ := LookupMode(tc.Mode())
	if info.Top != TopOCRA {
		t.Errorf("Expected TOP from OCR1A, got %d", info.Top)
	}
	if tc.ClockSource() != ClockPrescale8 {
		t.Errorf("Expected prescale 8, got %d", tc.ClockSource())
	}
	if tc.EnabledInterrupts() != IntCompareA|IntCompareB {
		t.Errorf("Unexpected interrupt mask %#x", tc.EnabledInterrupts())
	}
}

func TestConfigEventsRecorded(t *testing.T) {
	ClearEvents()
	defer ClearEvents()

	tc, _ := newTestTimer(false)
	tc.SetMode(ModeFastPWM8Bit)
	tc.SetTopValue(10)

	evts := Events()
	if len(evts) != 2 {
		t.Fatalf("Expected 2 events, got %d", len(evts))
	}
	if evts[0].Kind != EvtSetMode || evts[1].Kind != EvtTopRejected {
		t.Errorf("Unexpected events %+v", evts)
	}
	if evts[1].Value2 != 10 {
		t.Errorf("Expected rejected value 10, got %d", evts[1].Value2)
	}
}
