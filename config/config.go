// Package config loads timer setups from JSON and programs them into a
// Timer16 in the order the hardware needs.
package config

import (
	"encoding/json"
	"fmt"
	"sort"

	"avrtools/core"
	"avrtools/mcu"
)

// TimerConfig describes one 16-bit timer setup.
type TimerConfig struct {
	Variant    string            `json:"variant"`
	Timer      uint8             `json:"timer"`
	Mode       string            `json:"mode"`
	Clock      string            `json:"clock"`
	Top        *uint16           `json:"top,omitempty"`
	Compare    map[string]uint16 `json:"compare,omitempty"`
	Pins       map[string]string `json:"pins,omitempty"`
	Interrupts []string          `json:"interrupts,omitempty"`
}

// LoadConfig parses a JSON configuration and returns a TimerConfig
func LoadConfig(jsonData []byte) (*TimerConfig, error) {
	var config TimerConfig

	err := json.Unmarshal(jsonData, &config)
	if err != nil {
		return nil, err
	}

	// Apply defaults
	applyDefaults(&config)

	return &config, nil
}

// applyDefaults fills in missing configuration values with the reset state
func applyDefaults(config *TimerConfig) {
	if config.Variant == "" {
		config.Variant = mcu.ATmega328P.Name
	}
	if config.Timer == 0 {
		config.Timer = 1
	}
	if config.Mode == "" {
		config.Mode = core.ModeNormal.String()
	}
	if config.Clock == "" {
		config.Clock = core.ClockOff.String()
	}
}

// CTCExample returns the 20 ms software PWM setup: CTC on OCR1A with TOP
// 39999 at prescale 8 (16 MHz), compare A and B interrupts.
func CTCExample() *TimerConfig {
	top := uint16(39999)
	return &TimerConfig{
		Variant:    mcu.ATmega328P.Name,
		Timer:      1,
		Mode:       core.ModeCTCOCRA.String(),
		Clock:      core.ClockPrescale8.String(),
		Top:        &top,
		Compare:    map[string]uint16{"b": 2000},
		Interrupts: []string{"compare-a", "compare-b"},
	}
}

// Resolve returns the variant the config targets.
func (c *TimerConfig) Resolve() (*mcu.Variant, error) {
	v, ok := mcu.Lookup(c.Variant)
	if !ok {
		return nil, fmt.Errorf("unknown variant %q", c.Variant)
	}
	if _, err := v.TimerLayout(c.Timer); err != nil {
		return nil, fmt.Errorf("timer %d on %s: %w", c.Timer, v.Name, err)
	}
	return v, nil
}

// Validate checks every name in the config without touching hardware.
func (c *TimerConfig) Validate() error {
	if _, err := c.Resolve(); err != nil {
		return err
	}
	mode, ok := core.ModeByName(c.Mode)
	if !ok {
		return fmt.Errorf("unknown mode %q", c.Mode)
	}
	if c.Top != nil {
		if info, ok := core.LookupMode(mode); !ok || info.Top == core.TopFixed {
			return fmt.Errorf("top %d in mode %s: %w", *c.Top, c.Mode, core.ErrFixedTop)
		}
	}
	if _, ok := core.ClockSourceByName(c.Clock); !ok {
		return fmt.Errorf("unknown clock source %q", c.Clock)
	}
	for ch := range c.Compare {
		if _, ok := core.ChannelByName(ch); !ok {
			return fmt.Errorf("unknown compare channel %q", ch)
		}
	}
	for ch, pm := range c.Pins {
		if _, ok := core.ChannelByName(ch); !ok {
			return fmt.Errorf("unknown compare channel %q", ch)
		}
		if _, ok := core.PwmPinModeByName(pm); !ok {
			return fmt.Errorf("unknown pin mode %q", pm)
		}
	}
	for _, name := range c.Interrupts {
		if _, ok := core.InterruptByName(name); !ok {
			return fmt.Errorf("unknown interrupt %q", name)
		}
	}
	return nil
}

func (c *TimerConfig) usesChannelC() bool {
	for _, names := range [][]string{sortedKeys(c.Compare), sortedKeys(c.Pins)} {
		for _, name := range names {
			if ch, _ := core.ChannelByName(name); ch == core.ChannelC {
				return true
			}
		}
	}
	return false
}

// sortedKeys keeps register write order stable between runs
func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Apply programs t. The timer is stopped first, the mode is set before TOP
// because TOP routing depends on it, pending flags are cleared before
// interrupts are enabled, and the clock is started last. A config rejected
// by Validate or naming channel C on a timer without it leaves t untouched.
func (c *TimerConfig) Apply(t *core.Timer16) error {
	if err := c.Validate(); err != nil {
		return err
	}
	if !t.HasChannelC() && c.usesChannelC() {
		return fmt.Errorf("channel c on timer %d: %w", t.Unit(), core.ErrNoChannel)
	}
	mode, _ := core.ModeByName(c.Mode)
	clock, _ := core.ClockSourceByName(c.Clock)

	t.SelectClockSource(core.ClockOff)
	t.SetMode(mode)

	if c.Top != nil {
		if err := t.SetTopValue(*c.Top); err != nil {
			return fmt.Errorf("top %d in mode %s: %w", *c.Top, c.Mode, err)
		}
	}

	for _, name := range sortedKeys(c.Compare) {
		ch, _ := core.ChannelByName(name)
		if err := t.SetCompareMatchValue(ch, c.Compare[name]); err != nil {
			return fmt.Errorf("compare %s: %w", name, err)
		}
	}

	for _, name := range sortedKeys(c.Pins) {
		ch, _ := core.ChannelByName(name)
		pm, _ := core.PwmPinModeByName(c.Pins[name])
		if err := t.SetPwmPinMode(ch, pm); err != nil {
			return fmt.Errorf("pin %s: %w", name, err)
		}
	}

	var irqs core.TimerInterrupt
	for _, name := range c.Interrupts {
		bit, _ := core.InterruptByName(name)
		irqs |= bit
	}
	if irqs != 0 {
		t.ClearPendingInterruptEvents(irqs)
		t.EnableInterrupts(irqs)
	}

	t.SelectClockSource(clock)
	return nil
}
