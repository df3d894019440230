//go:build linux

// Copyright 2016 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package sysfs

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"syscall"
	"testing"

	"periph.io/x/gpiod"
)

// fakeRoot lays out a /sys/class/gpio tree with two chips and lines 32..35
// already exported.
func fakeRoot(t *testing.T) string {
	root := t.TempDir()
	write := func(path, s string) {
		path = filepath.Join(root, path)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(s), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	write("export", "")
	write("unexport", "")
	write("gpiochip32/base", "32\n")
	write("gpiochip32/ngpio", "8\n")
	write("gpiochip32/label", "pinctrl\n")
	write("gpiochip0/base", "0\n")
	write("gpiochip0/ngpio", "32\n")
	write("gpiochip0/label", "soc\n")
	for _, n := range []string{"32", "33", "34", "35"} {
		write("gpio"+n+"/value", "0\n")
		write("gpio"+n+"/direction", "in\n")
		write("gpio"+n+"/active_low", "0\n")
		write("gpio"+n+"/edge", "none\n")
	}
	return root
}

func read(t *testing.T, path string) string {
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	return strings.TrimSpace(string(b))
}

func TestChipNames(t *testing.T) {
	b := &Backend{Root: fakeRoot(t)}
	names, err := b.ChipNames()
	if err != nil {
		t.Fatal(err)
	}
	if strings.Join(names, ",") != "gpiochip0,gpiochip32" {
		t.Errorf("ChipNames() = %v", names)
	}
	c, err := b.OpenByNumber(1)
	if err != nil {
		t.Fatal(err)
	}
	want := gpiod.ChipInfo{Name: "gpiochip32", Label: "pinctrl", Index: 1, NumLines: 8}
	if got := c.Info(); got != want {
		t.Errorf("Info() = %+v, want %+v", got, want)
	}
	if _, err := b.OpenByNumber(2); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("OpenByNumber(2) = %v", err)
	}
	if _, err := b.OpenByName("gpiochip7"); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("OpenByName(gpiochip7) = %v", err)
	}
	if _, err := b.OpenByName("../gpiochip0"); err == nil {
		t.Error("OpenByName accepted a path")
	}
}

func TestLineInfo(t *testing.T) {
	root := fakeRoot(t)
	c, err := (&Backend{Root: root}).OpenByName("gpiochip32")
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(root, "gpio33/active_low"), []byte("1\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	info, err := c.LineInfo(1)
	if err != nil {
		t.Fatal(err)
	}
	if !info.Used || info.Consumer != "sysfs" || info.Direction != gpiod.DirectionInput || info.ActiveState != gpiod.ActiveStateLow {
		t.Errorf("LineInfo(1) = %+v", info)
	}
	info, err = c.LineInfo(6)
	if err != nil {
		t.Fatal(err)
	}
	if info.Used || info.Offset != 6 || info.Direction != gpiod.DirectionUnknown {
		t.Errorf("LineInfo(6) = %+v", info)
	}
}

func TestRequestOutput(t *testing.T) {
	root := fakeRoot(t)
	c, err := (&Backend{Root: root}).OpenByName("gpiochip32")
	if err != nil {
		t.Fatal(err)
	}
	r, err := c.Request(&gpiod.Request{Offsets: []int{0, 2}, Mode: gpiod.ModeOutput, Flags: gpiod.ActiveLow, Values: []int{1, 0}})
	if err != nil {
		t.Fatal(err)
	}
	// Active low: logical 1 is written as a raw low.
	if d := read(t, filepath.Join(root, "gpio32/direction")); d != "low" {
		t.Errorf("gpio32 direction = %q", d)
	}
	if d := read(t, filepath.Join(root, "gpio34/direction")); d != "high" {
		t.Errorf("gpio34 direction = %q", d)
	}
	if a := read(t, filepath.Join(root, "gpio32/active_low")); a != "1" {
		t.Errorf("gpio32 active_low = %q", a)
	}
	if err := r.SetValues([]int{1}, []int{1}); err != nil {
		t.Fatal(err)
	}
	if v := read(t, filepath.Join(root, "gpio34/value")); v != "1" {
		t.Errorf("gpio34 value = %q", v)
	}
	v, err := r.Values([]int{1, 0})
	if err != nil || v[0] != 1 || v[1] != 0 {
		t.Errorf("Values() = %v, %v", v, err)
	}
	if _, err := c.Request(&gpiod.Request{Offsets: []int{2}, Mode: gpiod.ModeInput}); !errors.Is(err, syscall.EBUSY) {
		t.Errorf("second request = %v", err)
	}
	if _, err := r.WaitEvent(0); err != gpiod.ModeError {
		t.Errorf("WaitEvent() on output = %v", err)
	}
	if err := r.Close(); err != nil {
		t.Fatal(err)
	}
	// Lines exported by someone else stay exported.
	if u := read(t, filepath.Join(root, "unexport")); u != "" {
		t.Errorf("unexport = %q", u)
	}
	r, err = c.Request(&gpiod.Request{Offsets: []int{2}, Mode: gpiod.ModeInput})
	if err != nil {
		t.Fatal(err)
	}
	_ = r.Close()
}

func TestRequestEdges(t *testing.T) {
	root := fakeRoot(t)
	c, err := (&Backend{Root: root}).OpenByName("gpiochip32")
	if err != nil {
		t.Fatal(err)
	}
	r, err := c.Request(&gpiod.Request{Offsets: []int{3}, Mode: gpiod.ModeBothEdges})
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()
	if e := read(t, filepath.Join(root, "gpio35/edge")); e != "both" {
		t.Errorf("edge = %q", e)
	}
	// A regular file never signals POLLPRI.
	if ok, err := r.WaitEvent(0); ok || err != nil {
		t.Errorf("WaitEvent() = %t, %v", ok, err)
	}
	if _, err := r.ReadEvent(); err != gpiod.NoEventPending {
		t.Errorf("ReadEvent() = %v", err)
	}
	if fd, err := r.Fd(); fd < 0 || err != nil {
		t.Errorf("Fd() = %d, %v", fd, err)
	}
}

func TestRequestFlags(t *testing.T) {
	c, err := (&Backend{Root: fakeRoot(t)}).OpenByName("gpiochip32")
	if err != nil {
		t.Fatal(err)
	}
	for _, f := range []gpiod.Flags{gpiod.BiasPullUp, gpiod.BiasDisable, gpiod.OpenDrain} {
		if _, err := c.Request(&gpiod.Request{Offsets: []int{0}, Mode: gpiod.ModeInput, Flags: f}); !errors.Is(err, gpiod.InvalidFlags) {
			t.Errorf("Request(%s) = %v", f, err)
		}
	}
}

func TestExport(t *testing.T) {
	root := fakeRoot(t)
	c, err := (&Backend{Root: root}).OpenByName("gpiochip0")
	if err != nil {
		t.Fatal(err)
	}
	// The kernel would create gpio5; the fake tree doesn't.
	if _, err := c.Request(&gpiod.Request{Offsets: []int{5}, Mode: gpiod.ModeInput}); err == nil {
		t.Fatal("Request() succeeded without a value file")
	}
	if e := read(t, filepath.Join(root, "export")); e != "5" {
		t.Errorf("export = %q", e)
	}
	if u := read(t, filepath.Join(root, "unexport")); u != "5" {
		t.Errorf("unexport = %q", u)
	}
}
