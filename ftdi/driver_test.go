// Copyright 2016 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package ftdi

import (
	"errors"
	"testing"

	"periph.io/x/d2xx"
	"periph.io/x/d2xx/d2xxtest"

	"periph.io/x/gpiod"
)

// bitbang records the bit-bang traffic of a fake FT232R.
type bitbang struct {
	d2xxtest.Fake
	mode  byte
	mask  byte
	out   byte
	pins  byte // input levels
	modes int
}

func (b *bitbang) SetBitMode(mask, mode byte) d2xx.Err {
	b.mask, b.mode = mask, mode
	b.modes++
	return 0
}

func (b *bitbang) GetBitMode() (byte, d2xx.Err) {
	return b.pins&^b.mask | b.out&b.mask, 0
}

func (b *bitbang) Write(p []byte) (int, d2xx.Err) {
	if len(p) != 0 {
		b.out = p[len(p)-1]
	}
	return len(p), 0
}

func newBackend(t *testing.T, n int) (*Backend, []*bitbang) {
	devs := make([]*bitbang, n)
	for i := range devs {
		devs[i] = &bitbang{Fake: d2xxtest.Fake{DevType: uint32(DevTypeFT232R), Vid: 0x0403, Pid: 0x6001}}
	}
	b := &Backend{
		numDevices: func() (int, error) { return n, nil },
		open: func(i int) (d2xx.Handle, d2xx.Err) {
			if i < 0 || i >= n {
				t.Fatalf("unexpected index %d", i)
			}
			return devs[i], 0
		},
	}
	return b, devs
}

func TestDriver(t *testing.T) {
	b, _ := newBackend(t, 1)
	d := driver{backend: b}
	defer func() { _ = gpiod.Unregister("ftdi") }()
	if ok, err := d.Init(); !ok || err != nil {
		t.Fatalf("Init() = %t, %v", ok, err)
	}
	_ = gpiod.Unregister("ftdi")

	empty, _ := newBackend(t, 0)
	d = driver{backend: empty}
	if ok, err := d.Init(); ok || err == nil {
		t.Fatalf("Init() = %t, %v", ok, err)
	}
}

func TestChipNames(t *testing.T) {
	b, _ := newBackend(t, 2)
	names, err := b.ChipNames()
	if err != nil || len(names) != 2 || names[0] != "ftdi0" || names[1] != "ftdi1" {
		t.Fatalf("ChipNames() = %v, %v", names, err)
	}
	for _, name := range []string{"ftdi2", "gpiochip0", "ftdi", "ftdi-1"} {
		if _, err := b.OpenByName(name); err == nil {
			t.Errorf("OpenByName(%q) succeeded", name)
		}
	}
}

func TestChip(t *testing.T) {
	b, devs := newBackend(t, 2)
	chip, err := gpiod.OpenFrom(b, "1")
	if err != nil {
		t.Fatal(err)
	}
	defer chip.Close()
	if s := chip.String(); s != "ftdi1 [FT232R]" {
		t.Errorf("String() = %q", s)
	}
	if n, _ := chip.NumLines(); n != 8 {
		t.Errorf("NumLines() = %d", n)
	}
	if devs[1].mode != byte(bitModeAsyncBitbang) || devs[1].mask != 0 {
		t.Errorf("mode %#x mask %#x after open", devs[1].mode, devs[1].mask)
	}
	rts, err := chip.FindLine("RTS")
	if err != nil || rts == nil {
		t.Fatalf("FindLine(RTS) = %v, %v", rts, err)
	}
	if o, _ := rts.Offset(); o != 2 {
		t.Errorf("RTS offset %d", o)
	}
	if bias, _ := rts.Bias(); bias != gpiod.BiasPulledUp {
		t.Errorf("input bias %s", bias)
	}
}

func TestOutput(t *testing.T) {
	b, devs := newBackend(t, 1)
	dev := devs[0]
	chip, err := gpiod.OpenFrom(b, "ftdi0")
	if err != nil {
		t.Fatal(err)
	}
	defer chip.Close()
	bulk, err := chip.Lines(0, 4)
	if err != nil {
		t.Fatal(err)
	}
	if err := bulk.RequestOutput("test", []int{1, 1}, gpiod.ActiveLow); err != nil {
		t.Fatal(err)
	}
	if dev.mask != 0x11 || dev.out&0x11 != 0 {
		t.Errorf("mask %08b out %08b", dev.mask, dev.out)
	}
	if err := bulk.SetValues([]int{0, 1}); err != nil {
		t.Fatal(err)
	}
	if dev.out&0x11 != 0x01 {
		t.Errorf("out %08b", dev.out)
	}
	v, err := bulk.Values()
	if err != nil || v[0] != 0 || v[1] != 1 {
		t.Errorf("Values() = %v, %v", v, err)
	}
	l, _ := chip.Line(4)
	if used, _ := l.IsUsed(); !used {
		t.Error("line 4 not used")
	}
	if c, _ := l.Consumer(); c != "test" {
		t.Errorf("Consumer() = %q", c)
	}
	if d, _ := l.Direction(); d != gpiod.DirectionOutput {
		t.Errorf("Direction() = %s", d)
	}
	bulk.Release()
	if dev.mask != 0 {
		t.Errorf("mask %08b after release", dev.mask)
	}
}

func TestInput(t *testing.T) {
	b, devs := newBackend(t, 1)
	dev := devs[0]
	dev.pins = 0x08
	chip, err := gpiod.OpenFrom(b, "ftdi0")
	if err != nil {
		t.Fatal(err)
	}
	defer chip.Close()
	cts, _ := chip.Line(3)
	if err := cts.RequestInput("test", gpiod.BiasPullUp); err != nil {
		t.Fatal(err)
	}
	if v, err := cts.Value(); v != 1 || err != nil {
		t.Errorf("Value() = %d, %v", v, err)
	}
	dev.pins = 0
	if v, err := cts.Value(); v != 0 || err != nil {
		t.Errorf("Value() = %d, %v", v, err)
	}
	modes := dev.modes
	cts.Release()
	if dev.modes != modes {
		t.Error("releasing an input changed the bit mode")
	}

	ri, _ := chip.Line(7)
	if err := ri.RequestInput("test", gpiod.BiasPullDown); !errors.Is(err, gpiod.InvalidFlags) {
		t.Errorf("RequestInput(pull down) = %v", err)
	}
	if err := ri.RequestRisingEdgeEvents("test"); err == nil {
		t.Error("edge request succeeded")
	}
	if err := ri.RequestInput("a"); err != nil {
		t.Fatal(err)
	}
	if err := ri.RequestInput("b"); !errors.Is(err, gpiod.LineUnavailable) {
		t.Errorf("second request = %v", err)
	}
}
