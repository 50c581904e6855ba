package core

// TimerMode is a waveform generation mode, the WGMn3:0 bit pattern of a
// 16-bit Timer/Counter.
type TimerMode uint8

const (
	ModeNormal                  TimerMode = 0x00
	ModePWMPhaseCorrect8Bit     TimerMode = 0x01
	ModePWMPhaseCorrect9Bit     TimerMode = 0x02
	ModePWMPhaseCorrect10Bit    TimerMode = 0x03
	ModeCTCOCRA                 TimerMode = 0x04
	ModeFastPWM8Bit             TimerMode = 0x05
	ModeFastPWM9Bit             TimerMode = 0x06
	ModeFastPWM10Bit            TimerMode = 0x07
	ModePWMPhaseFreqCorrectICR  TimerMode = 0x08
	ModePWMPhaseFreqCorrectOCRA TimerMode = 0x09
	ModePWMPhaseCorrectICR      TimerMode = 0x0A
	ModePWMPhaseCorrectOCRA     TimerMode = 0x0B
	ModeCTCICR                  TimerMode = 0x0C
	ModeReserved                TimerMode = 0x0D // reserved by the hardware
	ModeFastPWMICR              TimerMode = 0x0E
	ModeFastPWMOCRA             TimerMode = 0x0F
)

// TopSource says where a mode takes its TOP value from.
type TopSource uint8

const (
	TopFixed TopSource = iota // constant, see ModeInfo.FixedTop
	TopOCRA                   // compare register A
	TopICR                    // input capture register
)

// Slope is the counting shape of a mode.
type Slope uint8

const (
	SingleSlope Slope = iota // count up, restart from BOTTOM after TOP
	DualSlope                // count up to TOP, then down to BOTTOM
)

// ModeInfo is one row of the mode table.
type ModeInfo struct {
	Mode     TimerMode
	Name     string
	Top      TopSource
	FixedTop uint16 // only meaningful when Top == TopFixed
	Shape    Slope
}

// modeTable is indexed by the 4-bit mode code. The reserved code has an
// empty Name and is rejected by LookupMode.
var modeTable = [16]ModeInfo{
	{ModeNormal, "normal", TopFixed, 0xFFFF, SingleSlope},
	{ModePWMPhaseCorrect8Bit, "pwm-phase-correct-8bit", TopFixed, 0x00FF, DualSlope},
	{ModePWMPhaseCorrect9Bit, "pwm-phase-correct-9bit", TopFixed, 0x01FF, DualSlope},
	{ModePWMPhaseCorrect10Bit, "pwm-phase-correct-10bit", TopFixed, 0x03FF, DualSlope},
	{ModeCTCOCRA, "ctc-ocra", TopOCRA, 0, SingleSlope},
	{ModeFastPWM8Bit, "fast-pwm-8bit", TopFixed, 0x00FF, SingleSlope},
	{ModeFastPWM9Bit, "fast-pwm-9bit", TopFixed, 0x01FF, SingleSlope},
	{ModeFastPWM10Bit, "fast-pwm-10bit", TopFixed, 0x03FF, SingleSlope},
	{ModePWMPhaseFreqCorrectICR, "pwm-phase-freq-correct-icr", TopICR, 0, DualSlope},
	{ModePWMPhaseFreqCorrectOCRA, "pwm-phase-freq-correct-ocra", TopOCRA, 0, DualSlope},
	{ModePWMPhaseCorrectICR, "pwm-phase-correct-icr", TopICR, 0, DualSlope},
	{ModePWMPhaseCorrectOCRA, "pwm-phase-correct-ocra", TopOCRA, 0, DualSlope},
	{ModeCTCICR, "ctc-icr", TopICR, 0, SingleSlope},
	{ModeReserved, "", TopFixed, 0xFFFF, SingleSlope},
	{ModeFastPWMICR, "fast-pwm-icr", TopICR, 0, SingleSlope},
	{ModeFastPWMOCRA, "fast-pwm-ocra", TopOCRA, 0, SingleSlope},
}

// LookupMode returns the table row for m. It reports false for the
// reserved code and for values outside 4 bits.
func LookupMode(m TimerMode) (ModeInfo, bool) {
	if m > 0x0F || m == ModeReserved {
		return ModeInfo{}, false
	}
	return modeTable[m], true
}

// Modes returns the 15 valid rows in code order.
func Modes() []ModeInfo {
	out := make([]ModeInfo, 0, 15)
	for _, info := range modeTable {
		if info.Mode != ModeReserved {
			out = append(out, info)
		}
	}
	return out
}

// ModeByName finds a mode by its table name.
func ModeByName(name string) (TimerMode, bool) {
	for _, info := range modeTable {
		if info.Name != "" && info.Name == name {
			return info.Mode, true
		}
	}
	return 0, false
}

// Valid reports whether m is one of the 15 defined modes.
func (m TimerMode) Valid() bool {
	_, ok := LookupMode(m)
	return ok
}

// String returns the table name, or "reserved"/"invalid".
func (m TimerMode) String() string {
	if info, ok := LookupMode(m); ok {
		return info.Name
	}
	if m == ModeReserved {
		return "reserved"
	}
	return "invalid"
}
