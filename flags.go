// Copyright 2024 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package gpiod

import (
	"fmt"
	"strings"
)

// Flags is a set of electrical options applied when a line is requested.
type Flags uint32

const (
	OpenDrain    Flags = 1 << 0
	OpenSource   Flags = 1 << 1
	ActiveLow    Flags = 1 << 2
	BiasDisable  Flags = 1 << 3
	BiasPullDown Flags = 1 << 4
	BiasPullUp   Flags = 1 << 5

	allFlags = OpenDrain | OpenSource | ActiveLow | BiasDisable | BiasPullDown | BiasPullUp
)

var flagNames = []struct {
	f    Flags
	name string
}{
	{OpenDrain, "open_drain"},
	{OpenSource, "open_source"},
	{ActiveLow, "active_low"},
	{BiasDisable, "bias_disable"},
	{BiasPullDown, "bias_pull_down"},
	{BiasPullUp, "bias_pull_up"},
}

// String returns the flag names joined by '|', e.g. "active_low|bias_pull_up".
func (f Flags) String() string {
	if f == 0 {
		return "none"
	}
	var parts []string
	for _, n := range flagNames {
		if f&n.f != 0 {
			parts = append(parts, n.name)
		}
	}
	if rest := f &^ allFlags; rest != 0 {
		parts = append(parts, fmt.Sprintf("0x%x", uint32(rest)))
	}
	return strings.Join(parts, "|")
}

// ParseFlags is the reverse of Flags.String. Names may be separated by '|',
// ',' or spaces and are case insensitive.
func ParseFlags(s string) (Flags, error) {
	var f Flags
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return r == '|' || r == ',' || r == ' '
	})
	for _, field := range fields {
		field = strings.ToLower(field)
		if field == "none" {
			continue
		}
		found := false
		for _, n := range flagNames {
			if n.name == field {
				f |= n.f
				found = true
				break
			}
		}
		if !found {
			return 0, fmt.Errorf("gpiod: unknown flag %q", field)
		}
	}
	return f, nil
}

// BiasFlags returns the subset of f that selects a bias.
func (f Flags) BiasFlags() Flags {
	return f & (BiasDisable | BiasPullDown | BiasPullUp)
}

// validate applies the checks the core owns. Bias conflicts are left to the
// backend.
func (f Flags) validate(op string) error {
	if f&^allFlags != 0 {
		return newError(op, InvalidFlags, fmt.Sprintf("unknown flags 0x%x", uint32(f&^allFlags)))
	}
	if f&OpenDrain != 0 && f&OpenSource != 0 {
		return newError(op, InvalidFlags, "open_drain and open_source are exclusive")
	}
	return nil
}

func mergeFlags(flags []Flags) Flags {
	var f Flags
	for _, v := range flags {
		f |= v
	}
	return f
}

// Direction is the configured direction of a line.
type Direction int

const (
	DirectionUnknown Direction = iota
	DirectionInput
	DirectionOutput
)

func (d Direction) String() string {
	switch d {
	case DirectionInput:
		return "input"
	case DirectionOutput:
		return "output"
	default:
		return "unknown"
	}
}

// ActiveState is the polarity of a line.
type ActiveState int

const (
	ActiveStateUnknown ActiveState = iota
	ActiveStateHigh
	ActiveStateLow
)

func (a ActiveState) String() string {
	switch a {
	case ActiveStateHigh:
		return "high"
	case ActiveStateLow:
		return "low"
	default:
		return "unknown"
	}
}

// Bias is the pull resistor configuration of a line.
type Bias int

const (
	BiasUnknown Bias = iota
	BiasAsIs
	BiasDisabled
	BiasPulledUp
	BiasPulledDown
)

func (b Bias) String() string {
	switch b {
	case BiasAsIs:
		return "as_is"
	case BiasDisabled:
		return "disable"
	case BiasPulledUp:
		return "pull_up"
	case BiasPulledDown:
		return "pull_down"
	default:
		return "unknown"
	}
}

// Mode is what a line is requested for.
type Mode int

const (
	ModeNone Mode = iota
	ModeInput
	ModeOutput
	ModeRisingEdge
	ModeFallingEdge
	ModeBothEdges
)

func (m Mode) String() string {
	switch m {
	case ModeInput:
		return "input"
	case ModeOutput:
		return "output"
	case ModeRisingEdge:
		return "rising"
	case ModeFallingEdge:
		return "falling"
	case ModeBothEdges:
		return "both"
	default:
		return "none"
	}
}

// ParseMode is the reverse of Mode.String.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(s) {
	case "input", "in":
		return ModeInput, nil
	case "output", "out":
		return ModeOutput, nil
	case "rising", "rising_edge":
		return ModeRisingEdge, nil
	case "falling", "falling_edge":
		return ModeFallingEdge, nil
	case "both", "both_edges":
		return ModeBothEdges, nil
	}
	return ModeNone, fmt.Errorf("gpiod: unknown mode %q", s)
}

// IsEvent reports whether m monitors edges.
func (m Mode) IsEvent() bool {
	return m == ModeRisingEdge || m == ModeFallingEdge || m == ModeBothEdges
}
