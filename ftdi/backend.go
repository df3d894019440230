// Copyright 2018 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package ftdi

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"

	"periph.io/x/d2xx"

	"periph.io/x/gpiod"
)

// numLines is the width of the DBus.
const numLines = 8

// Backend exposes the DBus of each connected FTDI device as a chip of 8
// lines named ftdi0, ftdi1, ...
//
// Lines are driven in asynchronous bit-bang mode. Edge detection and any
// bias other than the internal pull-up are not supported.
type Backend struct {
	// open and numDevices are mocked in tests.
	open       func(i int) (d2xx.Handle, d2xx.Err)
	numDevices func() (int, error)
}

// NewBackend returns a Backend over the d2xx driver.
func NewBackend() *Backend {
	b := &Backend{open: d2xx.Open, numDevices: numDevices}
	b.resetLog()
	return b
}

func (b *Backend) String() string {
	return "ftdi"
}

func (b *Backend) ChipNames() ([]string, error) {
	n, err := b.numDevices()
	if err != nil {
		return nil, err
	}
	out := make([]string, n)
	for i := range out {
		out[i] = "ftdi" + strconv.Itoa(i)
	}
	return out, nil
}

func (b *Backend) OpenByName(name string) (gpiod.ChipConn, error) {
	s := strings.TrimPrefix(name, "ftdi")
	n, err := strconv.ParseUint(s, 10, 0)
	if s == name || err != nil {
		return nil, fmt.Errorf("ftdi: no device %q", name)
	}
	return b.OpenByNumber(uint(n))
}

func (b *Backend) OpenByNumber(n uint) (gpiod.ChipConn, error) {
	num, err := b.numDevices()
	if err != nil {
		return nil, err
	}
	if n >= uint(num) {
		return nil, fmt.Errorf("ftdi: no device %d", n)
	}
	h, err := openHandle(b.open, int(n))
	if err != nil {
		return nil, err
	}
	if err := h.Init(); err != nil {
		// The device could be in an unexpected state, so try resetting it first.
		if err := h.Reset(); err != nil {
			_ = h.Close()
			return nil, err
		}
		if err := h.Init(); err != nil {
			_ = h.Close()
			return nil, err
		}
	}
	// All the DBus lines start as inputs.
	if err := h.SetBitMode(0, bitModeAsyncBitbang); err != nil {
		_ = h.Close()
		return nil, err
	}
	c := &chip{
		h:     h,
		names: h.t.lineNames(),
		info: gpiod.ChipInfo{
			Name:     "ftdi" + strconv.FormatUint(uint64(n), 10),
			Label:    h.t.String(),
			Index:    int(n),
			NumLines: numLines,
		},
	}
	log.Debugf("%s: %s %04x:%04x", c.info.Name, h.t, h.venID, h.devID)
	return c, nil
}

// chip is an opened device in bit-bang mode.
type chip struct {
	h     *handle
	info  gpiod.ChipInfo
	names [numLines]string

	mu       sync.Mutex
	dmask    uint8 // outputs
	dvalue   uint8 // last value written
	consumer [numLines]string
	held     uint8
}

func (c *chip) Info() gpiod.ChipInfo {
	return c.info
}

func (c *chip) LineInfo(offset int) (gpiod.LineInfo, error) {
	if offset < 0 || offset >= numLines {
		return gpiod.LineInfo{}, fmt.Errorf("ftdi: invalid line %d", offset)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	bit := uint8(1) << uint(offset)
	info := gpiod.LineInfo{
		Offset:      offset,
		Name:        c.names[offset],
		Consumer:    c.consumer[offset],
		Used:        c.held&bit != 0,
		Direction:   gpiod.DirectionInput,
		ActiveState: gpiod.ActiveStateHigh,
		Bias:        gpiod.BiasPulledUp,
	}
	if c.dmask&bit != 0 {
		info.Direction = gpiod.DirectionOutput
		info.Bias = gpiod.BiasAsIs
	}
	return info, nil
}

func (c *chip) Request(req *gpiod.Request) (gpiod.RequestConn, error) {
	if req.Mode.IsEvent() {
		return nil, errors.New("ftdi: edge detection is not supported")
	}
	// EEPROM has a PullDownEnable flag but it can't be changed at runtime.
	if f := req.Flags &^ (gpiod.ActiveLow | gpiod.BiasPullUp); f != 0 {
		return nil, fmt.Errorf("ftdi: %s not supported: %w", f, gpiod.InvalidFlags)
	}
	var bits uint8
	for _, o := range req.Offsets {
		if o < 0 || o >= numLines {
			return nil, fmt.Errorf("ftdi: invalid line %d", o)
		}
		bits |= 1 << uint(o)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.held&bits != 0 {
		return nil, fmt.Errorf("ftdi: lines %08b: %w", c.held&bits, syscall.EBUSY)
	}
	r := &request{c: c, offsets: append([]int(nil), req.Offsets...), bits: bits, activeLow: req.Flags&gpiod.ActiveLow != 0, output: req.Mode == gpiod.ModeOutput}
	mask := c.dmask &^ bits
	value := c.dvalue
	if r.output {
		mask |= bits
		for i, o := range r.offsets {
			v := 0
			if i < len(req.Values) {
				v = req.Values[i]
			}
			value = r.physical(value, o, v)
		}
	}
	if mask != c.dmask {
		if err := c.h.SetBitMode(mask, bitModeAsyncBitbang); err != nil {
			return nil, err
		}
		c.dmask = mask
	}
	if r.output {
		if _, err := c.h.Write([]byte{value}); err != nil {
			return nil, err
		}
		c.dvalue = value
	}
	c.held |= bits
	for _, o := range r.offsets {
		c.consumer[o] = req.Consumer
	}
	return r, nil
}

func (c *chip) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.h == nil {
		return nil
	}
	err := c.h.SetBitMode(0, bitModeReset)
	if cerr := c.h.Close(); err == nil {
		err = cerr
	}
	c.h = nil
	return err
}

// request is a set of DBus lines.
type request struct {
	c         *chip
	offsets   []int
	bits      uint8
	activeLow bool
	output    bool
}

// physical returns value with line o set to the raw level of v.
func (r *request) physical(value uint8, o, v int) uint8 {
	bit := uint8(1) << uint(o)
	if (v != 0) != r.activeLow {
		return value | bit
	}
	return value &^ bit
}

func (r *request) Values(idx []int) ([]int, error) {
	r.c.mu.Lock()
	defer r.c.mu.Unlock()
	if r.c.h == nil {
		return nil, errors.New("ftdi: device closed")
	}
	b, err := r.c.h.GetBitMode()
	if err != nil {
		return nil, err
	}
	out := make([]int, len(idx))
	for k, i := range idx {
		high := b&(1<<uint(r.offsets[i])) != 0
		if high != r.activeLow {
			out[k] = 1
		}
	}
	return out, nil
}

func (r *request) SetValues(idx, values []int) error {
	if !r.output {
		return gpiod.ModeError
	}
	r.c.mu.Lock()
	defer r.c.mu.Unlock()
	if r.c.h == nil {
		return errors.New("ftdi: device closed")
	}
	value := r.c.dvalue
	for k, i := range idx {
		value = r.physical(value, r.offsets[i], values[k])
	}
	if _, err := r.c.h.Write([]byte{value}); err != nil {
		return err
	}
	r.c.dvalue = value
	return nil
}

func (r *request) WaitEvent(time.Duration) (bool, error) {
	return false, gpiod.ModeError
}

func (r *request) ReadEvent() (gpiod.Event, error) {
	return gpiod.Event{}, gpiod.ModeError
}

func (r *request) Fd() (int, error) {
	return -1, gpiod.ModeError
}

// Close turns the lines back into inputs.
func (r *request) Close() error {
	r.c.mu.Lock()
	defer r.c.mu.Unlock()
	if r.bits == 0 {
		return nil
	}
	c := r.c
	c.held &^= r.bits
	for _, o := range r.offsets {
		c.consumer[o] = ""
	}
	var err error
	if mask := c.dmask &^ r.bits; mask != c.dmask && c.h != nil {
		err = c.h.SetBitMode(mask, bitModeAsyncBitbang)
		c.dmask = mask
	}
	r.bits = 0
	return err
}

var _ gpiod.Backend = &Backend{}
