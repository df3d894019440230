// Copyright 2024 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package gpiosim

import (
	"errors"
	"fmt"
	"syscall"
	"time"

	"periph.io/x/gpiod"
	"periph.io/x/gpiod/internal/eventq"
)

var errClosed = errors.New("gpiosim: request closed")

// chipConn is one open handle on a simulated chip.
type chipConn struct {
	c      *Chip
	reqs   []*simRequest
	closed bool
}

func (cc *chipConn) Info() gpiod.ChipInfo {
	return gpiod.ChipInfo{
		Name:     cc.c.name,
		Label:    cc.c.cfg.Label,
		Index:    cc.c.index,
		NumLines: len(cc.c.lines),
	}
}

func (cc *chipConn) LineInfo(offset int) (gpiod.LineInfo, error) {
	c := cc.c
	c.sim.mu.Lock()
	defer c.sim.mu.Unlock()
	if err := c.check(offset); err != nil {
		return gpiod.LineInfo{}, err
	}
	l := &c.lines[offset]
	info := gpiod.LineInfo{
		Offset:      offset,
		Name:        c.cfg.Names[offset],
		Direction:   gpiod.DirectionInput,
		ActiveState: gpiod.ActiveStateHigh,
		Bias:        gpiod.BiasAsIs,
	}
	if h, ok := c.cfg.Hogs[offset]; ok {
		info.Used = true
		info.Consumer = h.Consumer
		if h.Direction != HogDirectionInput {
			info.Direction = gpiod.DirectionOutput
		}
		return info, nil
	}
	if l.req == nil {
		return info, nil
	}
	info.Used = true
	info.Consumer = l.req.consumer
	if l.req.mode == gpiod.ModeOutput {
		info.Direction = gpiod.DirectionOutput
	}
	if l.flags&gpiod.ActiveLow != 0 {
		info.ActiveState = gpiod.ActiveStateLow
	}
	switch {
	case l.flags&gpiod.BiasPullUp != 0:
		info.Bias = gpiod.BiasPulledUp
	case l.flags&gpiod.BiasPullDown != 0:
		info.Bias = gpiod.BiasPulledDown
	case l.flags&gpiod.BiasDisable != 0:
		info.Bias = gpiod.BiasDisabled
	}
	info.OpenDrain = l.flags&gpiod.OpenDrain != 0
	info.OpenSource = l.flags&gpiod.OpenSource != 0
	return info, nil
}

func (cc *chipConn) Request(req *gpiod.Request) (gpiod.RequestConn, error) {
	c := cc.c
	c.sim.mu.Lock()
	defer c.sim.mu.Unlock()
	if cc.closed {
		return nil, errClosed
	}
	if n := bits(req.Flags.BiasFlags()); n > 1 {
		return nil, fmt.Errorf("gpiosim: conflicting bias %s: %w", req.Flags.BiasFlags(), syscall.EINVAL)
	}
	if req.Flags&(gpiod.OpenDrain|gpiod.OpenSource) != 0 && req.Mode != gpiod.ModeOutput {
		return nil, fmt.Errorf("gpiosim: drive flags on %s request: %w", req.Mode, syscall.EINVAL)
	}
	for _, o := range req.Offsets {
		if err := c.check(o); err != nil {
			return nil, err
		}
		if _, ok := c.cfg.Hogs[o]; ok || c.lines[o].req != nil {
			return nil, fmt.Errorf("gpiosim: %s line %d: %w", c.name, o, syscall.EBUSY)
		}
	}
	r := &simRequest{
		cc:       cc,
		mode:     req.Mode,
		consumer: req.Consumer,
		offsets:  append([]int(nil), req.Offsets...),
	}
	if req.Mode.IsEvent() {
		r.q = eventq.New(0)
	}
	for i, o := range req.Offsets {
		l := &c.lines[o]
		l.req = r
		l.flags = req.Flags
		switch {
		case req.Flags&gpiod.BiasPullUp != 0:
			l.pull = 1
		case req.Flags&gpiod.BiasPullDown != 0:
			l.pull = 0
		}
		if req.Mode == gpiod.ModeOutput {
			l.driven = physical(req.Values[i], req.Flags)
		}
	}
	cc.reqs = append(cc.reqs, r)
	return r, nil
}

func (cc *chipConn) Close() error {
	if cc.closed {
		return nil
	}
	for _, r := range cc.reqs {
		_ = r.Close()
	}
	cc.reqs = nil
	cc.closed = true
	return nil
}

func bits(f gpiod.Flags) int {
	n := 0
	for ; f != 0; f &= f - 1 {
		n++
	}
	return n
}

func physical(v int, f gpiod.Flags) int {
	if v != 0 {
		v = 1
	}
	if f&gpiod.ActiveLow != 0 {
		v ^= 1
	}
	return v
}

// simRequest is a granted request on a simulated chip.
type simRequest struct {
	cc       *chipConn
	mode     gpiod.Mode
	consumer string
	offsets  []int
	q        *eventq.Queue
	closed   bool
}

func (r *simRequest) Values(idx []int) ([]int, error) {
	c := r.cc.c
	c.sim.mu.Lock()
	defer c.sim.mu.Unlock()
	if r.closed {
		return nil, errClosed
	}
	out := make([]int, len(idx))
	for i, j := range idx {
		o := r.offsets[j]
		out[i] = physical(c.level(o), c.lines[o].flags)
	}
	return out, nil
}

func (r *simRequest) SetValues(idx, values []int) error {
	c := r.cc.c
	c.sim.mu.Lock()
	defer c.sim.mu.Unlock()
	if r.closed {
		return errClosed
	}
	if r.mode != gpiod.ModeOutput {
		return fmt.Errorf("gpiosim: set on %s request: %w", r.mode, syscall.EPERM)
	}
	for i, j := range idx {
		l := &c.lines[r.offsets[j]]
		l.driven = physical(values[i], l.flags)
	}
	return nil
}

func (r *simRequest) WaitEvent(timeout time.Duration) (bool, error) {
	if r.q == nil {
		return false, fmt.Errorf("gpiosim: wait on %s request: %w", r.mode, syscall.EPERM)
	}
	return r.q.Wait(timeout)
}

func (r *simRequest) ReadEvent() (gpiod.Event, error) {
	if r.q == nil {
		return gpiod.Event{}, fmt.Errorf("gpiosim: read on %s request: %w", r.mode, syscall.EPERM)
	}
	e, ok := r.q.Pop()
	if !ok {
		return gpiod.Event{}, gpiod.NoEventPending
	}
	return e, nil
}

func (r *simRequest) Fd() (int, error) {
	if r.q == nil {
		return -1, fmt.Errorf("gpiosim: descriptor of %s request: %w", r.mode, syscall.EPERM)
	}
	return r.q.Fd()
}

func (r *simRequest) Close() error {
	c := r.cc.c
	c.sim.mu.Lock()
	defer c.sim.mu.Unlock()
	if r.closed {
		return nil
	}
	r.closed = true
	for _, o := range r.offsets {
		l := &c.lines[o]
		if l.req == r {
			l.req = nil
			l.flags = 0
		}
	}
	if r.q != nil {
		return r.q.Close()
	}
	return nil
}
