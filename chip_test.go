// Copyright 2024 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package gpiod_test

import (
	"errors"
	"testing"

	"periph.io/x/gpiod"
	"periph.io/x/gpiod/gpiosim"
)

func newSim(t *testing.T, banks ...*gpiosim.Bank) *gpiosim.Sim {
	t.Helper()
	opts := []gpiosim.Option{}
	for _, b := range banks {
		opts = append(opts, gpiosim.WithBank(b))
	}
	s, err := gpiosim.NewSim(opts...)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func openSim(t *testing.T, numLines int) (*gpiosim.Sim, *gpiod.Chip) {
	t.Helper()
	s := newSim(t, gpiosim.NewBank("test", numLines,
		gpiosim.WithNamedLine(3, "LED0"),
		gpiosim.WithNamedLine(5, "BUTTON1"),
	))
	c, err := gpiod.OpenFrom(s, "gpiochip0")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(c.Close)
	return s, c
}

func TestOpen(t *testing.T) {
	s := newSim(t, gpiosim.NewBank("first", 4), gpiosim.NewBank("second", 8))
	if err := gpiod.Register(s); err != nil {
		t.Fatal(err)
	}
	defer func() { _ = gpiod.Unregister(s.String()) }()
	if err := gpiod.Register(s); err == nil {
		t.Error("registering twice succeeded")
	}

	c, err := gpiod.Open("gpiochip1")
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()
	if name, _ := c.Name(); name != "gpiochip1" {
		t.Errorf("Name() = %q", name)
	}
	if label, _ := c.Label(); label != "second" {
		t.Errorf("Label() = %q", label)
	}
	if n, _ := c.NumLines(); n != 8 {
		t.Errorf("NumLines() = %d", n)
	}
	if c.Backend() != s.String() {
		t.Errorf("Backend() = %q", c.Backend())
	}

	// "1" is not a chip name; it resolves through the numeral fallback.
	byNum, err := gpiod.Open("1")
	if err != nil {
		t.Fatal(err)
	}
	defer byNum.Close()
	if idx, _ := byNum.Index(); idx != 1 {
		t.Errorf("Index() = %d", idx)
	}

	for _, id := range []string{"gpiochip9", "9", "1x", "-1", ""} {
		if _, err := gpiod.Open(id); !errors.Is(err, gpiod.OpenFailure) {
			t.Errorf("Open(%q) = %v", id, err)
		}
	}
}

func TestOpenFrom(t *testing.T) {
	s := newSim(t, gpiosim.NewBank("x", 1))
	if _, err := gpiod.OpenFrom(s, "gpiochip7"); gpiod.KindOf(err) != gpiod.OpenFailure {
		t.Errorf("OpenFrom = %v", err)
	}
	c, err := gpiod.OpenFrom(s, "0")
	if err != nil {
		t.Fatal(err)
	}
	c.Close()
}

func TestChipLine(t *testing.T) {
	_, c := openSim(t, 8)
	for _, o := range []int{0, 3, 7} {
		l, err := c.Line(o)
		if err != nil {
			t.Fatal(err)
		}
		if got, _ := l.Offset(); got != o {
			t.Errorf("Line(%d).Offset() = %d", o, got)
		}
		again, _ := c.Line(o)
		if again != l {
			t.Errorf("Line(%d) returned a new handle", o)
		}
	}
	for _, o := range []int{-1, 8, 100} {
		if _, err := c.Line(o); !errors.Is(err, gpiod.InvalidOffset) {
			t.Errorf("Line(%d) = %v", o, err)
		}
	}
	l, _ := c.Line(3)
	if name, _ := l.Name(); name != "LED0" {
		t.Errorf("Name() = %q", name)
	}
	if used, _ := l.IsUsed(); used {
		t.Error("free line reported used")
	}
}

func TestChipLines(t *testing.T) {
	_, c := openSim(t, 70)
	b, err := c.Lines(4, 1, 6)
	if err != nil {
		t.Fatal(err)
	}
	if got := b.Offsets(); len(got) != 3 || got[0] != 4 || got[1] != 1 || got[2] != 6 {
		t.Errorf("Offsets() = %v", got)
	}
	// Duplicate offsets are rejected, not merged.
	if _, err := c.Lines(18, 18); !errors.Is(err, gpiod.InvalidOffset) {
		t.Errorf("Lines(18, 18) = %v", err)
	}
	if _, err := c.Lines(1, 70); !errors.Is(err, gpiod.InvalidOffset) {
		t.Errorf("Lines(1, 70) = %v", err)
	}
	if _, err := c.Lines(); !errors.Is(err, gpiod.BulkSizeMismatch) {
		t.Errorf("Lines() = %v", err)
	}
	if _, err := c.AllLines(); !errors.Is(err, gpiod.BulkSizeMismatch) {
		t.Errorf("AllLines() on 70 lines = %v", err)
	}
	offsets := make([]int, gpiod.MaxBulkLines)
	for i := range offsets {
		offsets[i] = i
	}
	if b, err := c.Lines(offsets...); err != nil || b.NumLines() != gpiod.MaxBulkLines {
		t.Errorf("Lines(0..63) = %v", err)
	}
}

func TestFindLine(t *testing.T) {
	_, c := openSim(t, 8)
	l, err := c.FindLine("BUTTON1")
	if err != nil || l == nil {
		t.Fatalf("FindLine(BUTTON1) = %v, %v", l, err)
	}
	if o, _ := l.Offset(); o != 5 {
		t.Errorf("Offset() = %d", o)
	}
	l, err = c.FindLine("nope")
	if l != nil || err != nil {
		t.Errorf("FindLine(nope) = %v, %v", l, err)
	}
}

func TestChipClose(t *testing.T) {
	s, c := openSim(t, 8)
	l, _ := c.Line(2)
	if err := l.RequestOutput("test", 1); err != nil {
		t.Fatal(err)
	}
	c.Close()
	c.Close()
	if v, _ := s.Chips[0].Level(2); v != 0 {
		t.Error("closing the chip did not release its lines")
	}
	if _, err := c.Name(); !errors.Is(err, gpiod.ReleasedHandleUse) {
		t.Errorf("Name() after Close = %v", err)
	}
	if _, err := c.Line(0); !errors.Is(err, gpiod.ReleasedHandleUse) {
		t.Errorf("Line() after Close = %v", err)
	}
	if _, err := l.Value(); !errors.Is(err, gpiod.ReleasedHandleUse) {
		t.Errorf("Value() after Close = %v", err)
	}
	if err := l.SetValue(0); !errors.Is(err, gpiod.ReleasedHandleUse) {
		t.Errorf("SetValue() after Close = %v", err)
	}
	if _, err := l.Name(); !errors.Is(err, gpiod.ReleasedHandleUse) {
		t.Errorf("Name() after Close = %v", err)
	}
	l.Release()
}
