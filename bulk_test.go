// Copyright 2024 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package gpiod_test

import (
	"errors"
	"testing"
	"time"

	"periph.io/x/gpiod"
)

func equal(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestScenarioC(t *testing.T) {
	_, c := openSim(t, 32)
	b, err := c.Lines(18, 19)
	if err != nil {
		t.Fatal(err)
	}
	if err := b.RequestOutput("leds", []int{0, 1}); err != nil {
		t.Fatal(err)
	}
	if v, _ := b.Values(); !equal(v, []int{0, 1}) {
		t.Errorf("Values() = %v", v)
	}
	if err := b.SetValues([]int{1, 1}); err != nil {
		t.Fatal(err)
	}
	if v, err := b.Values(); !equal(v, []int{1, 1}) || err != nil {
		t.Errorf("Values() = %v, %v", v, err)
	}
}

func TestBulkOrder(t *testing.T) {
	s, c := openSim(t, 16)
	b, _ := c.Lines(9, 2, 14, 0, 5)
	if err := b.RequestOutput("test", make([]int, 5)); err != nil {
		t.Fatal(err)
	}
	for _, want := range [][]int{{1, 0, 0, 1, 1}, {0, 1, 1, 0, 1}, {1, 1, 1, 1, 1}} {
		if err := b.SetValues(want); err != nil {
			t.Fatal(err)
		}
		got, err := b.Values()
		if err != nil || !equal(got, want) {
			t.Errorf("Values() = %v, %v, want %v", got, err, want)
		}
		for i, o := range b.Offsets() {
			if lvl, _ := s.Chips[0].Level(o); lvl != want[i] {
				t.Errorf("line %d at level %d, want %d", o, lvl, want[i])
			}
		}
	}
	// Non-zero values are normalized to 1.
	if err := b.SetValues([]int{5, 0, -1, 0, 0}); err != nil {
		t.Fatal(err)
	}
	if got, _ := b.Values(); !equal(got, []int{1, 0, 1, 0, 0}) {
		t.Errorf("Values() = %v", got)
	}
}

func TestBulkErrors(t *testing.T) {
	_, c := openSim(t, 8)
	b, _ := c.Lines(1, 2, 3)
	if _, err := b.Values(); !errors.Is(err, gpiod.ReleasedHandleUse) {
		t.Errorf("Values() on free bulk = %v", err)
	}
	if err := b.RequestOutput("test", []int{0, 1}); !errors.Is(err, gpiod.BulkSizeMismatch) {
		t.Errorf("RequestOutput with 2 values = %v", err)
	}
	if _, err := b.Line(3); !errors.Is(err, gpiod.InvalidOffset) {
		t.Errorf("Line(3) = %v", err)
	}
	if l, err := b.Line(1); err != nil {
		t.Fatal(err)
	} else if o, _ := l.Offset(); o != 2 {
		t.Errorf("Line(1).Offset() = %d", o)
	}

	// All or nothing: a held member fails the whole request.
	l3, _ := c.Line(3)
	if err := l3.RequestInput("other"); err != nil {
		t.Fatal(err)
	}
	if err := b.RequestInput("test"); !errors.Is(err, gpiod.LineUnavailable) {
		t.Errorf("RequestInput with a held member = %v", err)
	}
	l1, _ := c.Line(1)
	if l1.Mode() != gpiod.ModeNone {
		t.Error("failed bulk request left a member requested")
	}
	l3.Release()

	if err := b.RequestInput("test"); err != nil {
		t.Fatal(err)
	}
	if err := b.SetValues([]int{1, 1, 1}); !errors.Is(err, gpiod.ModeError) {
		t.Errorf("SetValues() on inputs = %v", err)
	}
	if err := b.SetValues([]int{1}); !errors.Is(err, gpiod.BulkSizeMismatch) {
		t.Errorf("SetValues() with 1 value = %v", err)
	}
	b.Release()
	b.Release()
	if _, err := b.Values(); !errors.Is(err, gpiod.ReleasedHandleUse) {
		t.Errorf("Values() after Release = %v", err)
	}
}

func TestBulkPartialRelease(t *testing.T) {
	s, c := openSim(t, 8)
	b, _ := c.Lines(0, 1)
	if err := b.RequestOutput("test", []int{1, 1}); err != nil {
		t.Fatal(err)
	}
	l0, _ := b.Line(0)
	l0.Release()
	if _, err := l0.Value(); !errors.Is(err, gpiod.ReleasedHandleUse) {
		t.Errorf("released member Value() = %v", err)
	}
	l1, _ := b.Line(1)
	if v, err := l1.Value(); v != 1 || err != nil {
		t.Errorf("remaining member Value() = %d, %v", v, err)
	}
	if err := l1.SetValue(0); err != nil {
		t.Fatal(err)
	}
	// The backend request lives until its last member is released.
	if err := l0.RequestInput("alone"); !errors.Is(err, gpiod.LineUnavailable) {
		t.Errorf("request while the bulk request is held = %v", err)
	}
	l1.Release()
	if v, _ := s.Chips[0].Level(0); v != 0 {
		t.Errorf("released bulk still drives line 0")
	}
	if err := l0.RequestInput("alone"); err != nil {
		t.Fatal(err)
	}
}

func TestBulkMixedRequests(t *testing.T) {
	_, c := openSim(t, 8)
	l0, _ := c.Line(0)
	l1, _ := c.Line(1)
	if err := l0.RequestOutput("a", 1); err != nil {
		t.Fatal(err)
	}
	if err := l1.RequestOutput("b", 0); err != nil {
		t.Fatal(err)
	}
	b, _ := c.Lines(1, 0)
	if v, err := b.Values(); !equal(v, []int{0, 1}) || err != nil {
		t.Errorf("Values() = %v, %v", v, err)
	}
	if err := b.SetValues([]int{1, 0}); err != nil {
		t.Fatal(err)
	}
	if v, _ := b.Values(); !equal(v, []int{1, 0}) {
		t.Errorf("Values() = %v", v)
	}
}

func TestBulkEvents(t *testing.T) {
	s, c := openSim(t, 8)
	b, _ := c.Lines(2, 6)
	if _, err := b.EventWait(0); !errors.Is(err, gpiod.ReleasedHandleUse) {
		t.Errorf("EventWait() on free bulk = %v", err)
	}
	if err := b.RequestBothEdgesEvents("buttons"); err != nil {
		t.Fatal(err)
	}
	if ok, err := b.EventWait(0); ok || err != nil {
		t.Errorf("EventWait(0) = %t, %v", ok, err)
	}
	l6, _ := b.Line(1)
	if _, err := l6.EventWait(0); !errors.Is(err, gpiod.ModeError) {
		t.Errorf("member EventWait() = %v", err)
	}
	_ = s.Chips[0].SetPull(6, 1)
	_ = s.Chips[0].SetPull(2, 1)
	for _, want := range []int{6, 2} {
		if ok, err := b.EventWait(time.Second); !ok || err != nil {
			t.Fatalf("EventWait() = %t, %v", ok, err)
		}
		e, err := b.EventRead()
		if err != nil || e.Offset != want || e.Type != gpiod.EventRisingEdge {
			t.Errorf("EventRead() = %v, %v, want rising edge on %d", e, err, want)
		}
	}
	if fd, err := b.EventFd(); fd < 0 || err != nil {
		t.Errorf("EventFd() = %d, %v", fd, err)
	}
}
