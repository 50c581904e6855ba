package repl

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"avrtools/config"
	"avrtools/core"
	"avrtools/host/serial"
	"avrtools/mcu"
	"avrtools/sim"
)

// Session drives one 16-bit timer of a simulated board from REPL commands.
// USART0 of the board is exposed as a serial.Pipe so the console monitor
// can follow it like a real port.
type Session struct {
	variant *mcu.Variant
	board   *sim.Board
	timer   *core.Timer16
	layout  mcu.Timer16Layout
	pwm     map[uint8]*core.TimerPWM
	console *serial.Pipe
	out     io.Writer
	reg     *Registry

	fired map[uint8]map[core.TimerInterrupt]uint32
}

// NewSession powers up a simulated v and selects its first timer.
func NewSession(v *mcu.Variant, out io.Writer) (*Session, error) {
	s := &Session{
		variant: v,
		board:   sim.NewBoard(v),
		console: serial.NewPipe(),
		out:     out,
		reg:     NewRegistry(),
		fired:   make(map[uint8]map[core.TimerInterrupt]uint32),
		pwm:     make(map[uint8]*core.TimerPWM),
	}
	if u, ok := s.board.USARTs[0]; ok {
		u.OnTransmit = func(b byte) { s.console.Deliver(b) }
	}
	for unit, t := range s.board.Timers {
		counts := make(map[core.TimerInterrupt]uint32)
		s.fired[unit] = counts
		for _, src := range []core.TimerInterrupt{
			core.IntOverflow, core.IntCompareA, core.IntCompareB,
			core.IntCompareC, core.IntInputCapture,
		} {
			src := src
			t.Handle(src, func() { counts[src]++ })
		}
	}
	if err := s.selectTimer(v.Timers[0].Unit); err != nil {
		return nil, err
	}
	s.registerCommands()
	return s, nil
}

// Execute runs one command line.
func (s *Session) Execute(line string) error {
	return s.reg.Execute(line)
}

// Registry returns the command set.
func (s *Session) Registry() *Registry { return s.reg }

// Board returns the simulated board.
func (s *Session) Board() *sim.Board { return s.board }

// Timer returns the selected timer.
func (s *Session) Timer() *core.Timer16 { return s.timer }

// Console returns the host side of USART0.
func (s *Session) Console() *serial.Pipe { return s.console }

// Fired returns how many times src ran on the selected timer.
func (s *Session) Fired(src core.TimerInterrupt) uint32 {
	return s.fired[s.timer.Unit()][src]
}

func (s *Session) selectTimer(unit uint8) error {
	l, err := s.variant.TimerLayout(unit)
	if err != nil {
		return fmt.Errorf("timer %d: %w", unit, err)
	}
	t, err := s.variant.Timer16(s.board.Mem, unit)
	if err != nil {
		return err
	}
	s.timer, s.layout = t, l
	if _, ok := s.pwm[unit]; !ok {
		s.pwm[unit] = core.NewTimerPWM(t)
	}
	return nil
}

func (s *Session) printf(format string, args ...interface{}) {
	fmt.Fprintf(s.out, format, args...)
}

func parseUint16(arg string) (uint16, error) {
	v, err := strconv.ParseUint(arg, 0, 16)
	if err != nil {
		return 0, fmt.Errorf("bad value %q: %w", arg, err)
	}
	return uint16(v), nil
}

func parseChannel(arg string) (core.CompareChannel, error) {
	ch, ok := core.ChannelByName(strings.ToLower(arg))
	if !ok {
		return 0, fmt.Errorf("%w: %q", core.ErrInvalidChannel, arg)
	}
	return ch, nil
}

func parseInterrupts(args []string) (core.TimerInterrupt, error) {
	var f core.TimerInterrupt
	for _, a := range args {
		bit, ok := core.InterruptByName(a)
		if !ok {
			return 0, fmt.Errorf("unknown interrupt %q", a)
		}
		f |= bit
	}
	return f, nil
}

func (s *Session) registerCommands() {
	s.reg.Register(Command{Name: "timer", Usage: "[unit]", Help: "select or show the timer", Handler: s.cmdTimer})
	s.reg.Register(Command{Name: "modes", Help: "list waveform generation modes", Handler: s.cmdModes})
	s.reg.Register(Command{Name: "mode", Usage: "[name]", Help: "set or show the waveform mode", Handler: s.cmdMode})
	s.reg.Register(Command{Name: "clock", Usage: "[name]", Help: "set or show the clock source", Handler: s.cmdClock})
	s.reg.Register(Command{Name: "top", Usage: "[value]", Help: "set or show TOP", Handler: s.cmdTop})
	s.reg.Register(Command{Name: "counter", Usage: "[value]", Help: "set or show TCNTn", Handler: s.cmdCounter})
	s.reg.Register(Command{Name: "ocr", Usage: "<a|b|c> [value]", Help: "set or show a compare value", MinArgs: 1, Handler: s.cmdOCR})
	s.reg.Register(Command{Name: "pin", Usage: "<a|b|c> [mode]", Help: "set or show a compare output mode", MinArgs: 1, Handler: s.cmdPin})
	s.reg.Register(Command{Name: "irq", Usage: "[on|off <names...>]", Help: "enable, disable or show interrupts", Handler: s.cmdIRQ})
	s.reg.Register(Command{Name: "clear", Usage: "<names...>", Help: "clear pending interrupt flags", MinArgs: 1, Handler: s.cmdClear})
	s.reg.Register(Command{Name: "force", Usage: "<a|b|c...>", Help: "force output compare", MinArgs: 1, Handler: s.cmdForce})
	s.reg.Register(Command{Name: "pwm", Usage: "<a|b|c> <period-ticks>", Help: "start hardware PWM on a compare output", MinArgs: 2, Handler: s.cmdPWM})
	s.reg.Register(Command{Name: "duty", Usage: "<a|b|c> <0-255>", Help: "set a PWM duty cycle", MinArgs: 2, Handler: s.cmdDuty})
	s.reg.Register(Command{Name: "sei", Help: "enable global interrupts", Handler: func([]string) error {
		core.EnableGlobalInterrupts()
		return nil
	}})
	s.reg.Register(Command{Name: "cli", Help: "disable global interrupts", Handler: func([]string) error {
		core.DisableGlobalInterrupts()
		return nil
	}})
	s.reg.Register(Command{Name: "send", Usage: "<text...>", Help: "type a line into USART0", MinArgs: 1, Handler: s.cmdSend})
	s.reg.Register(Command{Name: "step", Usage: "<cycles>", Help: "run the board for CPU cycles", MinArgs: 1, Handler: s.cmdStep})
	s.reg.Register(Command{Name: "regs", Help: "dump the timer registers", Handler: s.cmdRegs})
	s.reg.Register(Command{Name: "load", Usage: "<file>", Help: "apply a JSON timer config", MinArgs: 1, Handler: s.cmdLoad})
	s.reg.Register(Command{Name: "events", Help: "dump the configuration event log", Handler: func([]string) error {
		core.DumpEvents()
		return nil
	}})
	s.reg.Register(Command{Name: "help", Help: "show this help", Handler: func([]string) error {
		s.printf("Available commands:\n%s", s.reg.Help())
		return nil
	}})
	s.reg.Register(Command{Name: "quit", Help: "exit", Handler: func([]string) error {
		return ErrQuit
	}})
	s.reg.Alias("?", "help")
	s.reg.Alias("exit", "quit")
	s.reg.Alias("q", "quit")
}

func (s *Session) cmdTimer(args []string) error {
	if len(args) > 0 {
		unit, err := strconv.ParseUint(args[0], 10, 8)
		if err != nil {
			return fmt.Errorf("bad timer %q", args[0])
		}
		if err := s.selectTimer(uint8(unit)); err != nil {
			return err
		}
	}
	units := make([]string, 0, len(s.variant.Timers))
	for _, l := range s.variant.Timers {
		units = append(units, strconv.Itoa(int(l.Unit)))
	}
	s.printf("timer %d (%s has %s)\n", s.timer.Unit(), s.variant.Name, strings.Join(units, ","))
	return nil
}

func (s *Session) cmdModes([]string) error {
	for _, info := range core.Modes() {
		top := "0x" + strconv.FormatUint(uint64(info.FixedTop), 16)
		switch info.Top {
		case core.TopOCRA:
			top = "OCRnA"
		case core.TopICR:
			top = "ICRn"
		}
		s.printf("  %2d  %-28s TOP=%s\n", info.Mode, info.Name, top)
	}
	return nil
}

func (s *Session) cmdMode(args []string) error {
	if len(args) > 0 {
		m, ok := core.ModeByName(args[0])
		if !ok {
			code, err := strconv.ParseUint(args[0], 0, 8)
			if err != nil || code > 0x0F {
				return fmt.Errorf("unknown mode %q (see 'modes')", args[0])
			}
			m = core.TimerMode(code)
		}
		s.timer.SetMode(m)
	}
	m := s.timer.Mode()
	s.printf("mode %d %s\n", m, m)
	return nil
}

func (s *Session) cmdClock(args []string) error {
	if len(args) > 0 {
		cs, ok := core.ClockSourceByName(args[0])
		if !ok {
			return fmt.Errorf("unknown clock source %q", args[0])
		}
		s.timer.SelectClockSource(cs)
	}
	s.printf("clock %s\n", s.timer.ClockSource())
	return nil
}

func (s *Session) cmdTop(args []string) error {
	if len(args) > 0 {
		v, err := parseUint16(args[0])
		if err != nil {
			return err
		}
		if err := s.timer.SetTopValue(v); err != nil {
			return fmt.Errorf("top in mode %s: %w", s.timer.Mode(), err)
		}
	}
	s.printf("top %d\n", s.timer.TopValue())
	return nil
}

func (s *Session) cmdCounter(args []string) error {
	if len(args) > 0 {
		v, err := parseUint16(args[0])
		if err != nil {
			return err
		}
		s.timer.SetCounter(v)
	}
	s.printf("counter %d\n", s.timer.Counter())
	return nil
}

func (s *Session) cmdOCR(args []string) error {
	ch, err := parseChannel(args[0])
	if err != nil {
		return err
	}
	if len(args) > 1 {
		v, err := parseUint16(args[1])
		if err != nil {
			return err
		}
		if err := s.timer.SetCompareMatchValue(ch, v); err != nil {
			return fmt.Errorf("ocr %s: %w", ch, err)
		}
	}
	v, err := s.timer.CompareMatchValue(ch)
	if err != nil {
		return fmt.Errorf("ocr %s: %w", ch, err)
	}
	s.printf("ocr %s %d\n", ch, v)
	return nil
}

func (s *Session) cmdPin(args []string) error {
	ch, err := parseChannel(args[0])
	if err != nil {
		return err
	}
	if len(args) > 1 {
		pm, ok := core.PwmPinModeByName(args[1])
		if !ok {
			return fmt.Errorf("unknown pin mode %q", args[1])
		}
		if err := s.timer.SetPwmPinMode(ch, pm); err != nil {
			return fmt.Errorf("pin %s: %w", ch, err)
		}
	}
	pm, err := s.timer.PwmPinMode(ch)
	if err != nil {
		return fmt.Errorf("pin %s: %w", ch, err)
	}
	s.printf("pin %s %s\n", ch, pm)
	return nil
}

func (s *Session) cmdIRQ(args []string) error {
	if len(args) > 0 {
		f, err := parseInterrupts(args[1:])
		if err != nil {
			return err
		}
		switch args[0] {
		case "on":
			s.timer.EnableInterrupts(f)
		case "off":
			s.timer.DisableInterrupts(f)
		default:
			return fmt.Errorf("%w: irq [on|off <names...>]", ErrUsage)
		}
	}
	s.printf("enabled %s pending %s global %v\n",
		s.timer.EnabledInterrupts(), s.timer.PendingInterruptEvents(), core.GlobalInterruptsEnabled())
	counts := s.fired[s.timer.Unit()]
	for _, src := range []core.TimerInterrupt{
		core.IntOverflow, core.IntCompareA, core.IntCompareB, core.IntCompareC, core.IntInputCapture,
	} {
		if n := counts[src]; n > 0 {
			s.printf("  %s fired %d\n", src, n)
		}
	}
	return nil
}

func (s *Session) cmdClear(args []string) error {
	f, err := parseInterrupts(args)
	if err != nil {
		return err
	}
	s.timer.ClearPendingInterruptEvents(f)
	s.printf("pending %s\n", s.timer.PendingInterruptEvents())
	return nil
}

func (s *Session) cmdForce(args []string) error {
	var chs core.CompareChannel
	for _, a := range args {
		ch, err := parseChannel(a)
		if err != nil {
			return err
		}
		chs |= ch
	}
	if err := s.timer.ForceOutputCompareMatch(chs); err != nil {
		return fmt.Errorf("force %s: %w", chs, err)
	}
	return nil
}

func (s *Session) cmdPWM(args []string) error {
	ch, err := parseChannel(args[0])
	if err != nil {
		return err
	}
	ticks, err := strconv.ParseUint(args[1], 0, 32)
	if err != nil {
		return fmt.Errorf("bad period %q", args[1])
	}
	actual, err := s.pwm[s.timer.Unit()].ConfigureHardwarePWM(ch, uint32(ticks))
	if err != nil {
		return fmt.Errorf("pwm %s: %w", ch, err)
	}
	s.printf("pwm %s period %d ticks (%s, TOP %d)\n", ch, actual, s.timer.ClockSource(), s.timer.TopValue())
	return nil
}

func (s *Session) cmdDuty(args []string) error {
	ch, err := parseChannel(args[0])
	if err != nil {
		return err
	}
	v, err := strconv.ParseUint(args[1], 0, 8)
	if err != nil {
		return fmt.Errorf("bad duty %q (0-%d)", args[1], core.PWMMax)
	}
	if err := s.pwm[s.timer.Unit()].SetDutyCycle(ch, core.PWMValue(v)); err != nil {
		return fmt.Errorf("duty %s: %w", ch, err)
	}
	ocr, _ := s.timer.CompareMatchValue(ch)
	s.printf("duty %s %d/%d ocr %d\n", ch, v, core.PWMMax, ocr)
	return nil
}

func (s *Session) cmdSend(args []string) error {
	if _, err := io.WriteString(s.console, strings.Join(args, " ")+"\n"); err != nil {
		return fmt.Errorf("send: %w", err)
	}
	s.pumpConsole()
	return nil
}

// pumpConsole moves what the host wrote to the console into USART0's
// receive queue.
func (s *Session) pumpConsole() {
	u, ok := s.board.USARTs[0]
	if !ok {
		return
	}
	if in := s.console.Take(); len(in) > 0 {
		u.Feed(in)
	}
}

func (s *Session) cmdStep(args []string) error {
	n, err := strconv.ParseUint(args[0], 0, 32)
	if err != nil {
		return fmt.Errorf("bad cycle count %q", args[0])
	}
	s.pumpConsole()
	s.board.Step(uint32(n))
	s.printf("counter %d pending %s\n", s.timer.Counter(), s.timer.PendingInterruptEvents())
	return nil
}

func (s *Session) cmdRegs([]string) error {
	mem, l, n := s.board.Mem, s.layout, s.timer.Unit()
	s.printf("TCCR%dA=0x%02X TCCR%dB=0x%02X TCCR%dC=0x%02X\n",
		n, mem.Peek(l.TCCRA), n, mem.Peek(l.TCCRA+1), n, mem.Peek(l.TCCRA+2))
	s.printf("TCNT%d=0x%04X ICR%d=0x%04X\n", n, mem.Peek16(l.TCNT), n, mem.Peek16(l.ICR))
	s.printf("OCR%dA=0x%04X OCR%dB=0x%04X", n, mem.Peek16(l.OCRA), n, mem.Peek16(l.OCRB))
	if l.OCRC != 0 {
		s.printf(" OCR%dC=0x%04X", n, mem.Peek16(l.OCRC))
	}
	s.printf("\nTIMSK%d=0x%02X TIFR%d=0x%02X\n", n, mem.Peek(l.TIMSK), n, mem.Peek(l.TIFR))
	return nil
}

func (s *Session) cmdLoad(args []string) error {
	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("load: %w", err)
	}
	cfg, err := config.LoadConfig(data)
	if err != nil {
		return fmt.Errorf("load %s: %w", args[0], err)
	}
	return s.Apply(cfg)
}

// Apply programs cfg into the board, selecting the timer it names.
func (s *Session) Apply(cfg *config.TimerConfig) error {
	if cfg.Variant != s.variant.Name {
		return fmt.Errorf("config is for %s, board is %s", cfg.Variant, s.variant.Name)
	}
	if err := s.selectTimer(cfg.Timer); err != nil {
		return err
	}
	if err := cfg.Apply(s.timer); err != nil {
		return fmt.Errorf("apply: %w", err)
	}
	s.printf("timer %d: mode %s clock %s top %d\n",
		s.timer.Unit(), s.timer.Mode(), s.timer.ClockSource(), s.timer.TopValue())
	return nil
}

// IsQuit reports whether err asks the read loop to stop.
func IsQuit(err error) bool {
	return errors.Is(err, ErrQuit)
}
