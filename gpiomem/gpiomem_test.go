//go:build linux

// Copyright 2024 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package gpiomem

import (
	"errors"
	"os"
	"path/filepath"
	"syscall"
	"testing"

	"github.com/warthog618/gpio"

	"periph.io/x/gpiod"
)

func TestChipNames(t *testing.T) {
	dir := t.TempDir()
	b := Backend{Path: filepath.Join(dir, "gpiomem")}
	if names, err := b.ChipNames(); len(names) != 0 || err != nil {
		t.Fatalf("ChipNames() = %v, %v", names, err)
	}
	if err := os.WriteFile(b.Path, nil, 0o600); err != nil {
		t.Fatal(err)
	}
	names, err := b.ChipNames()
	if err != nil || len(names) != 1 || names[0] != ChipName {
		t.Fatalf("ChipNames() = %v, %v", names, err)
	}
}

func TestOpenUnknown(t *testing.T) {
	b := Backend{}
	if _, err := b.OpenByName("gpiochip0"); !errors.Is(err, syscall.ENOENT) {
		t.Errorf("OpenByName() = %v", err)
	}
	if _, err := b.OpenByNumber(1); !errors.Is(err, syscall.ENOENT) {
		t.Errorf("OpenByNumber() = %v", err)
	}
}

func TestDirection(t *testing.T) {
	data := []struct {
		m    gpio.Mode
		want gpiod.Direction
	}{
		{gpio.Input, gpiod.DirectionInput},
		{gpio.Output, gpiod.DirectionOutput},
		{gpio.Alt0, gpiod.DirectionUnknown},
	}
	for _, line := range data {
		if got := direction(line.m); got != line.want {
			t.Errorf("direction(%d) = %s, want %s", line.m, got, line.want)
		}
	}
}

func TestCheckFlags(t *testing.T) {
	for _, f := range []gpiod.Flags{0, gpiod.ActiveLow, gpiod.BiasPullUp, gpiod.ActiveLow | gpiod.BiasDisable} {
		if err := checkFlags(f); err != nil {
			t.Errorf("checkFlags(%s) = %v", f, err)
		}
	}
	if err := checkFlags(gpiod.OpenDrain); !errors.Is(err, gpiod.InvalidFlags) {
		t.Errorf("checkFlags(open_drain) = %v", err)
	}
	if err := checkFlags(gpiod.BiasPullUp | gpiod.BiasPullDown); !errors.Is(err, syscall.EINVAL) {
		t.Errorf("checkFlags(conflicting bias) = %v", err)
	}
}

func TestBias(t *testing.T) {
	data := []struct {
		f    gpiod.Flags
		want gpiod.Bias
	}{
		{0, gpiod.BiasAsIs},
		{gpiod.BiasPullUp, gpiod.BiasPulledUp},
		{gpiod.BiasPullDown, gpiod.BiasPulledDown},
		{gpiod.BiasDisable | gpiod.ActiveLow, gpiod.BiasDisabled},
	}
	for _, line := range data {
		if got := bias(line.f); got != line.want {
			t.Errorf("bias(%s) = %s, want %s", line.f, got, line.want)
		}
	}
}

func TestLevel(t *testing.T) {
	r := request{}
	if r.level(1) != gpio.High || r.level(0) != gpio.Low || r.value(gpio.High) != 1 {
		t.Error("active high inversion")
	}
	r.activeLow = true
	if r.level(1) != gpio.Low || r.level(0) != gpio.High || r.value(gpio.High) != 0 {
		t.Error("active low inversion")
	}
}
