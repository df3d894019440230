//go:build linux

// Copyright 2024 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package gpiomem

import (
	"fmt"
	"os"
	"strconv"
	"sync"
	"syscall"
	"time"

	"github.com/warthog618/gpio"
	"golang.org/x/sys/unix"

	"periph.io/x/gpiod"
	"periph.io/x/gpiod/internal/eventq"
)

const (
	// ChipName is the name of the only chip.
	ChipName = "gpiomem"
	// DefaultPath is the device mapped by github.com/warthog618/gpio.
	DefaultPath = "/dev/gpiomem"

	label = "bcm2835-gpiomem"
)

// Backend maps the GPIO registers. The mapping is shared by all the open
// chips.
type Backend struct {
	// Path is only used to detect the device. DefaultPath when empty.
	Path string

	mu   sync.Mutex
	refs int
	held [gpio.MaxGPIOPin]*request
}

func (b *Backend) String() string {
	return "gpiomem"
}

func (b *Backend) path() string {
	if b.Path == "" {
		return DefaultPath
	}
	return b.Path
}

// ChipNames returns ChipName when the device exists.
func (b *Backend) ChipNames() ([]string, error) {
	if _, err := os.Stat(b.path()); err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("gpiomem: %w", err)
	}
	return []string{ChipName}, nil
}

func (b *Backend) OpenByName(name string) (gpiod.ChipConn, error) {
	if name != ChipName {
		return nil, fmt.Errorf("gpiomem: no chip %q: %w", name, syscall.ENOENT)
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.refs == 0 {
		if err := gpio.Open(); err != nil {
			return nil, fmt.Errorf("gpiomem: %w", err)
		}
	}
	b.refs++
	return &chip{b: b}, nil
}

func (b *Backend) OpenByNumber(n uint) (gpiod.ChipConn, error) {
	if n != 0 {
		return nil, fmt.Errorf("gpiomem: no chip %d: %w", n, syscall.ENOENT)
	}
	return b.OpenByName(ChipName)
}

type chip struct {
	b      *Backend
	closed bool
}

func (c *chip) Info() gpiod.ChipInfo {
	return gpiod.ChipInfo{Name: ChipName, Label: label, NumLines: gpio.MaxGPIOPin}
}

func (c *chip) LineInfo(offset int) (gpiod.LineInfo, error) {
	if offset < 0 || offset >= gpio.MaxGPIOPin {
		return gpiod.LineInfo{}, fmt.Errorf("gpiomem: line %d: %w", offset, syscall.EINVAL)
	}
	c.b.mu.Lock()
	defer c.b.mu.Unlock()
	info := gpiod.LineInfo{
		Offset:      offset,
		Name:        "GPIO" + strconv.Itoa(offset),
		Direction:   direction(gpio.NewPin(offset).Mode()),
		ActiveState: gpiod.ActiveStateHigh,
		Bias:        gpiod.BiasUnknown,
	}
	if r := c.b.held[offset]; r != nil {
		info.Used = true
		info.Consumer = r.consumer
		if r.activeLow {
			info.ActiveState = gpiod.ActiveStateLow
		}
		info.Bias = r.bias
	}
	return info, nil
}

func (c *chip) Request(req *gpiod.Request) (gpiod.RequestConn, error) {
	if err := checkFlags(req.Flags); err != nil {
		return nil, err
	}
	c.b.mu.Lock()
	defer c.b.mu.Unlock()
	for _, o := range req.Offsets {
		if o < 0 || o >= gpio.MaxGPIOPin {
			return nil, fmt.Errorf("gpiomem: line %d: %w", o, syscall.EINVAL)
		}
		if c.b.held[o] != nil {
			return nil, fmt.Errorf("gpiomem: line %d: %w", o, syscall.EBUSY)
		}
	}
	r := &request{
		b:         c.b,
		consumer:  req.Consumer,
		mode:      req.Mode,
		activeLow: req.Flags&gpiod.ActiveLow != 0,
		bias:      bias(req.Flags),
	}
	if req.Mode.IsEvent() {
		r.q = eventq.New(eventq.DefaultSize)
	}
	for i, o := range req.Offsets {
		p := gpio.NewPin(o)
		r.pins = append(r.pins, p)
		switch r.bias {
		case gpiod.BiasPulledUp:
			p.PullUp()
		case gpiod.BiasPulledDown:
			p.PullDown()
		case gpiod.BiasDisabled:
			p.PullNone()
		}
		if req.Mode == gpiod.ModeOutput {
			p.Write(r.level(req.Values[i]))
			p.Output()
			continue
		}
		p.Input()
		if edge, ok := edges[req.Mode]; ok {
			if err := p.Watch(edge, r.handle); err != nil {
				r.closeLocked()
				return nil, fmt.Errorf("gpiomem: watching line %d: %w", o, err)
			}
		}
	}
	for _, o := range req.Offsets {
		c.b.held[o] = r
	}
	return r, nil
}

func (c *chip) Close() error {
	c.b.mu.Lock()
	defer c.b.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	if c.b.refs--; c.b.refs == 0 {
		return gpio.Close()
	}
	return nil
}

var edges = map[gpiod.Mode]gpio.Edge{
	gpiod.ModeRisingEdge:  gpio.EdgeRising,
	gpiod.ModeFallingEdge: gpio.EdgeFalling,
	gpiod.ModeBothEdges:   gpio.EdgeBoth,
}

type request struct {
	b         *Backend
	consumer  string
	mode      gpiod.Mode
	activeLow bool
	bias      gpiod.Bias
	pins      []*gpio.Pin
	q         *eventq.Queue
}

// level returns the raw level of the logical value v.
func (r *request) level(v int) gpio.Level {
	return gpio.Level((v != 0) != r.activeLow)
}

func (r *request) value(l gpio.Level) int {
	if bool(l) != r.activeLow {
		return 1
	}
	return 0
}

// handle is called by the watcher goroutine. With both edges the level is
// read back, so it may miss the type of a short pulse.
func (r *request) handle(p *gpio.Pin) {
	e := gpiod.Event{Type: gpiod.EventRisingEdge, Offset: p.Pin(), Timestamp: monotonic()}
	switch r.mode {
	case gpiod.ModeFallingEdge:
		e.Type = gpiod.EventFallingEdge
	case gpiod.ModeBothEdges:
		if r.value(p.Read()) == 0 {
			e.Type = gpiod.EventFallingEdge
		}
	}
	if !r.q.Push(e) {
		log.Warnf("event queue full, dropped %s", e)
	}
}

func (r *request) Values(idx []int) ([]int, error) {
	out := make([]int, len(idx))
	for k, i := range idx {
		out[k] = r.value(r.pins[i].Read())
	}
	return out, nil
}

func (r *request) SetValues(idx, values []int) error {
	if r.mode != gpiod.ModeOutput {
		return gpiod.ModeError
	}
	for k, i := range idx {
		r.pins[i].Write(r.level(values[k]))
	}
	return nil
}

func (r *request) WaitEvent(timeout time.Duration) (bool, error) {
	if r.q == nil {
		return false, gpiod.ModeError
	}
	return r.q.Wait(timeout)
}

func (r *request) ReadEvent() (gpiod.Event, error) {
	if r.q == nil {
		return gpiod.Event{}, gpiod.ModeError
	}
	e, ok := r.q.Pop()
	if !ok {
		return gpiod.Event{}, gpiod.NoEventPending
	}
	return e, nil
}

func (r *request) Fd() (int, error) {
	if r.q == nil {
		return -1, gpiod.ModeError
	}
	return r.q.Fd()
}

// Close stops watching the lines and turns outputs back into inputs.
func (r *request) Close() error {
	r.b.mu.Lock()
	defer r.b.mu.Unlock()
	return r.closeLocked()
}

func (r *request) closeLocked() error {
	for _, p := range r.pins {
		if r.q != nil {
			p.Unwatch()
		}
		p.Input()
		if r.b.held[p.Pin()] == r {
			r.b.held[p.Pin()] = nil
		}
	}
	r.pins = nil
	if r.q != nil {
		return r.q.Close()
	}
	return nil
}

func direction(m gpio.Mode) gpiod.Direction {
	switch m {
	case gpio.Input:
		return gpiod.DirectionInput
	case gpio.Output:
		return gpiod.DirectionOutput
	}
	// Alternate functions.
	return gpiod.DirectionUnknown
}

// checkFlags rejects the drive modes the SoC can't do.
func checkFlags(f gpiod.Flags) error {
	if f&(gpiod.OpenDrain|gpiod.OpenSource) != 0 {
		return fmt.Errorf("gpiomem: %s not supported: %w", f&(gpiod.OpenDrain|gpiod.OpenSource), gpiod.InvalidFlags)
	}
	if f.BiasFlags()&(f.BiasFlags()-1) != 0 {
		return fmt.Errorf("gpiomem: conflicting bias %s: %w", f.BiasFlags(), syscall.EINVAL)
	}
	return nil
}

func bias(f gpiod.Flags) gpiod.Bias {
	switch {
	case f&gpiod.BiasPullUp != 0:
		return gpiod.BiasPulledUp
	case f&gpiod.BiasPullDown != 0:
		return gpiod.BiasPulledDown
	case f&gpiod.BiasDisable != 0:
		return gpiod.BiasDisabled
	}
	return gpiod.BiasAsIs
}

func monotonic() time.Duration {
	var ts unix.Timespec
	if err := unix.ClockGettime(unix.CLOCK_MONOTONIC, &ts); err != nil {
		return 0
	}
	return time.Duration(ts.Nano())
}

var _ gpiod.Backend = &Backend{}
