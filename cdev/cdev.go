//go:build linux

// Copyright 2024 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package cdev

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/warthog618/go-gpiocdev"

	"periph.io/x/gpiod"
	"periph.io/x/gpiod/internal/eventq"
)

// Backend opens chips through go-gpiocdev.
type Backend struct{}

func (b *Backend) String() string {
	return "cdev"
}

// ChipNames returns the gpiochip devices found in /dev.
func (b *Backend) ChipNames() ([]string, error) {
	return gpiocdev.Chips(), nil
}

func (b *Backend) OpenByName(name string) (gpiod.ChipConn, error) {
	if name == "" {
		return nil, errors.New("cdev: empty chip name")
	}
	c, err := gpiocdev.NewChip(name)
	if err != nil {
		return nil, fmt.Errorf("cdev: %w", err)
	}
	return newChip(c), nil
}

func (b *Backend) OpenByNumber(n uint) (gpiod.ChipConn, error) {
	return b.OpenByName("gpiochip" + strconv.FormatUint(uint64(n), 10))
}

type chip struct {
	c    *gpiocdev.Chip
	info gpiod.ChipInfo
}

func newChip(c *gpiocdev.Chip) *chip {
	info := gpiod.ChipInfo{Name: c.Name, Label: c.Label, NumLines: c.Lines()}
	if n, err := strconv.Atoi(strings.TrimPrefix(c.Name, "gpiochip")); err == nil {
		info.Index = n
	}
	return &chip{c: c, info: info}
}

func (c *chip) Info() gpiod.ChipInfo {
	return c.info
}

func (c *chip) LineInfo(offset int) (gpiod.LineInfo, error) {
	li, err := c.c.LineInfo(offset)
	if err != nil {
		return gpiod.LineInfo{}, fmt.Errorf("cdev: %s line info %d: %w", c.info.Name, offset, err)
	}
	return convertLineInfo(li), nil
}

func (c *chip) Request(req *gpiod.Request) (gpiod.RequestConn, error) {
	r := &request{values: make([]int, len(req.Offsets))}
	opts := requestOptions(req)
	if req.Mode == gpiod.ModeOutput {
		copy(r.values, req.Values)
	}
	if req.Mode.IsEvent() {
		r.q = eventq.New(eventq.DefaultSize)
		opts = append(opts, gpiocdev.WithEventHandler(r.handle))
	}
	l, err := c.c.RequestLines(req.Offsets, opts...)
	if err != nil {
		if r.q != nil {
			_ = r.q.Close()
		}
		return nil, fmt.Errorf("cdev: %s request %v: %w", c.info.Name, req.Offsets, err)
	}
	r.l = l
	return r, nil
}

func (c *chip) Close() error {
	return c.c.Close()
}

// request wraps a go-gpiocdev request. SetValues on a subset of the lines
// rewrites the others from the last values set.
type request struct {
	l      *gpiocdev.Lines
	q      *eventq.Queue
	mu     sync.Mutex
	values []int
}

func (r *request) handle(e gpiocdev.LineEvent) {
	ev, ok := convertEvent(e)
	if !ok {
		return
	}
	if !r.q.Push(ev) {
		log.Warnf("event queue full, dropped event on line %d", e.Offset)
	}
}

func (r *request) Values(idx []int) ([]int, error) {
	all := make([]int, len(r.values))
	if err := r.l.Values(all); err != nil {
		return nil, fmt.Errorf("cdev: get values: %w", err)
	}
	out := make([]int, len(idx))
	for k, i := range idx {
		out[k] = all[i]
	}
	return out, nil
}

func (r *request) SetValues(idx, values []int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	next := append([]int(nil), r.values...)
	for k, i := range idx {
		next[i] = values[k]
	}
	if err := r.l.SetValues(next); err != nil {
		return fmt.Errorf("cdev: set values: %w", err)
	}
	r.values = next
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

func (r *request) Close() error {
	err := r.l.Close()
	if r.q != nil {
		if n := r.q.Dropped(); n != 0 {
			log.Debugf("closing request with %d dropped events", n)
		}
		_ = r.q.Close()
	}
	return err
}

var _ gpiod.Backend = &Backend{}
