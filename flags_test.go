// Copyright 2024 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package gpiod

import (
	"errors"
	"fmt"
	"syscall"
	"testing"
	"time"
)

func TestFlagsString(t *testing.T) {
	data := []struct {
		f    Flags
		want string
	}{
		{0, "none"},
		{ActiveLow, "active_low"},
		{OpenDrain | BiasPullUp, "open_drain|bias_pull_up"},
		{BiasDisable | 1<<8, "bias_disable|0x100"},
	}
	for _, line := range data {
		if got := line.f.String(); got != line.want {
			t.Errorf("%#x.String() = %q, want %q", uint32(line.f), got, line.want)
		}
	}
}

func TestParseFlags(t *testing.T) {
	f, err := ParseFlags("active_low|BIAS_PULL_UP, open_source")
	if err != nil {
		t.Fatal(err)
	}
	if f != ActiveLow|BiasPullUp|OpenSource {
		t.Errorf("ParseFlags() = %s", f)
	}
	if f, err := ParseFlags(""); f != 0 || err != nil {
		t.Errorf("ParseFlags(\"\") = %s, %v", f, err)
	}
	if f, err := ParseFlags("none"); f != 0 || err != nil {
		t.Errorf("ParseFlags(none) = %s, %v", f, err)
	}
	if _, err := ParseFlags("pull_sideways"); err == nil {
		t.Error("ParseFlags accepted an unknown name")
	}
	// The bit values are part of the API.
	if OpenDrain != 1 || OpenSource != 2 || ActiveLow != 4 || BiasDisable != 8 || BiasPullDown != 16 || BiasPullUp != 32 {
		t.Error("flag bit values changed")
	}
}

func TestParseMode(t *testing.T) {
	for _, m := range []Mode{ModeInput, ModeOutput, ModeRisingEdge, ModeFallingEdge, ModeBothEdges} {
		got, err := ParseMode(m.String())
		if got != m || err != nil {
			t.Errorf("ParseMode(%q) = %s, %v", m.String(), got, err)
		}
	}
	if _, err := ParseMode("sideways"); err == nil {
		t.Error("ParseMode accepted an unknown mode")
	}
}

func TestStrings(t *testing.T) {
	data := []struct {
		s    fmt.Stringer
		want string
	}{
		{DirectionInput, "input"},
		{DirectionOutput, "output"},
		{DirectionUnknown, "unknown"},
		{ActiveStateHigh, "high"},
		{ActiveStateLow, "low"},
		{ActiveStateUnknown, "unknown"},
		{BiasAsIs, "as_is"},
		{BiasDisabled, "disable"},
		{BiasPulledUp, "pull_up"},
		{BiasPulledDown, "pull_down"},
		{BiasUnknown, "unknown"},
		{EventRisingEdge, "rising_edge"},
		{EventFallingEdge, "falling_edge"},
	}
	for _, line := range data {
		if got := line.s.String(); got != line.want {
			t.Errorf("String() = %q, want %q", got, line.want)
		}
	}
}

func TestEventTime(t *testing.T) {
	e := Event{Timestamp: 3*time.Second + 250*time.Millisecond}
	if sec, nsec := e.Timespec(); sec != 3 || nsec != 250000000 {
		t.Errorf("Timespec() = %d, %d", sec, nsec)
	}
	if s := e.Seconds(); s != 3.25 {
		t.Errorf("Seconds() = %f", s)
	}
}

func TestErrors(t *testing.T) {
	err := newError("Line.Value", ReleasedHandleUse, "line 3 not requested")
	if !errors.Is(err, ReleasedHandleUse) || errors.Is(err, IOError) {
		t.Errorf("errors.Is mismatch for %v", err)
	}
	if got := err.Error(); got != "gpiod: Line.Value: released handle use: line 3 not requested" {
		t.Errorf("Error() = %q", got)
	}
	if KindOf(errors.New("other")) != 0 {
		t.Error("KindOf(foreign error) != 0")
	}
	if KindOf(fmt.Errorf("wrapped: %w", err)) != ReleasedHandleUse {
		t.Error("KindOf does not unwrap")
	}

	data := []struct {
		err  error
		def  Kind
		want Kind
	}{
		{syscall.EBUSY, IOError, LineUnavailable},
		{fmt.Errorf("open /dev/gpiochip0: %w", syscall.EBUSY), IOError, LineUnavailable},
		{syscall.EIO, IOError, IOError},
		{syscall.ENOENT, OpenFailure, OpenFailure},
		{NoEventPending, IOError, NoEventPending},
		{fmt.Errorf("x: %w", ModeError), IOError, ModeError},
	}
	for i, line := range data {
		got := wrapBackend("op", line.def, line.err)
		if KindOf(got) != line.want {
			t.Errorf("#%d: wrapBackend(%v) = %v, want %s", i, line.err, got, line.want)
		}
		if errors.Is(got, syscall.EBUSY) {
			t.Errorf("#%d: errno leaked through %v", i, got)
		}
	}
	if KindOf(wrapRequest("op", syscall.EINVAL)) != InvalidFlags {
		t.Error("EINVAL on request is not InvalidFlags")
	}
	if wrapBackend("op", IOError, nil) != nil {
		t.Error("wrapBackend(nil) != nil")
	}
}

func TestParseNumeral(t *testing.T) {
	data := []struct {
		s  string
		n  uint
		ok bool
	}{
		{"0", 0, true},
		{"4", 4, true},
		{"017", 17, true},
		{"", 0, false},
		{"-1", 0, false},
		{"+1", 0, false},
		{"4 ", 0, false},
		{"gpiochip4", 0, false},
		{"99999999999999999999999", 0, false},
	}
	for _, line := range data {
		n, ok := parseNumeral(line.s)
		if n != line.n || ok != line.ok {
			t.Errorf("parseNumeral(%q) = %d, %t", line.s, n, ok)
		}
	}
}
