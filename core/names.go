package core

// Names used by configuration files and the host tools

var clockNames = [8]string{
	"off", "prescale1", "prescale8", "prescale64",
	"prescale256", "prescale1024", "external-falling", "external-rising",
}

// String returns the configuration name of cs.
func (cs ClockSource) String() string {
	if int(cs) < len(clockNames) {
		return clockNames[cs]
	}
	return "invalid"
}

// ClockSourceByName parses a clock source name.
func ClockSourceByName(name string) (ClockSource, bool) {
	for i, n := range clockNames {
		if n == name {
			return ClockSource(i), true
		}
	}
	return 0, false
}

var pinModeNames = [6]string{
	"off", "toggle", "clear", "set", "pwm-normal", "pwm-inverted",
}

// String returns the configuration name of pm.
func (pm PwmPinMode) String() string {
	if int(pm) < len(pinModeNames) {
		return pinModeNames[pm]
	}
	return "invalid"
}

// PwmPinModeByName parses a pin mode name.
func PwmPinModeByName(name string) (PwmPinMode, bool) {
	for i, n := range pinModeNames {
		if n == name {
			return PwmPinMode(i), true
		}
	}
	return 0, false
}

// ChannelByName parses "a", "b" or "c".
func ChannelByName(name string) (CompareChannel, bool) {
	switch name {
	case "a", "A":
		return ChannelA, true
	case "b", "B":
		return ChannelB, true
	case "c", "C":
		return ChannelC, true
	}
	return 0, false
}

// String returns the channel letters, e.g. "AB".
func (ch CompareChannel) String() string {
	s := ""
	for i, l := range "ABC" {
		if ch&(1<<i) != 0 {
			s += string(l)
		}
	}
	if s == "" {
		return "none"
	}
	return s
}

var interruptNames = []struct {
	name string
	bit  TimerInterrupt
}{
	{"overflow", IntOverflow},
	{"compare-a", IntCompareA},
	{"compare-b", IntCompareB},
	{"compare-c", IntCompareC},
	{"input-capture", IntInputCapture},
}

// InterruptByName parses one interrupt source name.
func InterruptByName(name string) (TimerInterrupt, bool) {
	for _, n := range interruptNames {
		if n.name == name {
			return n.bit, true
		}
	}
	return 0, false
}

// String lists the sources in f separated by '|'.
func (f TimerInterrupt) String() string {
	s := ""
	for _, n := range interruptNames {
		if f&n.bit != 0 {
			if s != "" {
				s += "|"
			}
			s += n.name
		}
	}
	if s == "" {
		return "none"
	}
	return s
}
