// Copyright 2024 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package gpiod

import (
	"fmt"
	"strconv"
	"strings"
)

// Chip is an open GPIO controller.
//
// A Chip owns the connection to its backend and the Line objects derived from
// it. Once closed, every Line and Bulk derived from it reports
// ReleasedHandleUse.
//
// A Chip is not safe for concurrent use.
type Chip struct {
	backend string
	conn    ChipConn
	info    ChipInfo
	lines   []*Line
	reqs    map[*request]struct{}
	closed  bool
}

// Open opens the chip identified by id.
//
// Every registered backend is first asked to open id as a chip name. If that
// fails and id is a decimal number, every backend is then asked to open it as
// a chip number.
func Open(id string) (*Chip, error) {
	return open("Open", id, Backends())
}

// OpenFrom is like Open but only searches b.
func OpenFrom(b Backend, id string) (*Chip, error) {
	return open("OpenFrom", id, []Backend{b})
}

func open(op, id string, bs []Backend) (*Chip, error) {
	if len(bs) == 0 {
		return nil, newError(op, OpenFailure, "no backend registered")
	}
	var errs []string
	for _, b := range bs {
		conn, err := b.OpenByName(id)
		if err == nil {
			return newChip(b, conn), nil
		}
		errs = append(errs, fmt.Sprintf("%s: %v", b, err))
	}
	if n, ok := parseNumeral(id); ok {
		for _, b := range bs {
			conn, err := b.OpenByNumber(n)
			if err == nil {
				return newChip(b, conn), nil
			}
			errs = append(errs, fmt.Sprintf("%s #%d: %v", b, n, err))
		}
	}
	return nil, newError(op, OpenFailure, fmt.Sprintf("%q: %s", id, strings.Join(errs, "; ")))
}

// parseNumeral accepts only a string made entirely of decimal digits.
func parseNumeral(s string) (uint, bool) {
	if s == "" {
		return 0, false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0, false
		}
	}
	n, err := strconv.ParseUint(s, 10, 0)
	if err != nil {
		return 0, false
	}
	return uint(n), true
}

func newChip(b Backend, conn ChipConn) *Chip {
	info := conn.Info()
	if info.NumLines < 0 {
		info.NumLines = 0
	}
	c := &Chip{
		backend: b.String(),
		conn:    conn,
		info:    info,
		lines:   make([]*Line, info.NumLines),
		reqs:    map[*request]struct{}{},
	}
	log.Debugf("opened %s (%s, %d lines) through %s", info.Name, info.Label, info.NumLines, c.backend)
	return c
}

// Name returns the name of the chip, e.g. "gpiochip0".
func (c *Chip) Name() (string, error) {
	if c.closed {
		return "", newError("Chip.Name", ReleasedHandleUse, "chip closed")
	}
	return c.info.Name, nil
}

// Label returns the label of the chip. It may be empty.
func (c *Chip) Label() (string, error) {
	if c.closed {
		return "", newError("Chip.Label", ReleasedHandleUse, "chip closed")
	}
	return c.info.Label, nil
}

// NumLines returns the number of lines of the chip.
func (c *Chip) NumLines() (int, error) {
	if c.closed {
		return 0, newError("Chip.NumLines", ReleasedHandleUse, "chip closed")
	}
	return c.info.NumLines, nil
}

// Index returns the system wide number of the chip.
func (c *Chip) Index() (int, error) {
	if c.closed {
		return 0, newError("Chip.Index", ReleasedHandleUse, "chip closed")
	}
	return c.info.Index, nil
}

// Backend returns the name of the backend the chip was opened through.
func (c *Chip) Backend() string {
	return c.backend
}

func (c *Chip) String() string {
	if c.info.Label == "" {
		return c.info.Name
	}
	return c.info.Name + " [" + c.info.Label + "]"
}

// Line returns the line at offset. The line is not requested.
//
// Calling Line twice with the same offset returns the same *Line.
func (c *Chip) Line(offset int) (*Line, error) {
	return c.line("Chip.Line", offset)
}

func (c *Chip) line(op string, offset int) (*Line, error) {
	if c.closed {
		return nil, newError(op, ReleasedHandleUse, "chip closed")
	}
	if offset < 0 || offset >= c.info.NumLines {
		return nil, newError(op, InvalidOffset, fmt.Sprintf("offset %d not in [0, %d)", offset, c.info.NumLines))
	}
	if l := c.lines[offset]; l != nil {
		return l, nil
	}
	l := &Line{chip: c, offset: offset, info: LineInfo{Offset: offset}}
	if err := l.refresh(); err != nil {
		log.Debugf("%s: line %d: %v", c.info.Name, offset, err)
	}
	c.lines[offset] = l
	return l, nil
}

// Lines returns a bulk over the lines at offsets, in that order.
//
// Offsets must be unique and there must be between 1 and MaxBulkLines of
// them.
func (c *Chip) Lines(offsets ...int) (*Bulk, error) {
	const op = "Chip.Lines"
	if c.closed {
		return nil, newError(op, ReleasedHandleUse, "chip closed")
	}
	if len(offsets) == 0 || len(offsets) > MaxBulkLines {
		return nil, newError(op, BulkSizeMismatch, fmt.Sprintf("%d offsets, want 1 to %d", len(offsets), MaxBulkLines))
	}
	seen := make(map[int]struct{}, len(offsets))
	lines := make([]*Line, 0, len(offsets))
	for _, o := range offsets {
		if _, ok := seen[o]; ok {
			return nil, newError(op, InvalidOffset, fmt.Sprintf("duplicate offset %d", o))
		}
		seen[o] = struct{}{}
		l, err := c.line(op, o)
		if err != nil {
			return nil, err
		}
		lines = append(lines, l)
	}
	return &Bulk{chip: c, lines: lines}, nil
}

// AllLines returns a bulk over every line of the chip.
//
// Chips with more than MaxBulkLines lines fail with BulkSizeMismatch.
func (c *Chip) AllLines() (*Bulk, error) {
	if c.closed {
		return nil, newError("Chip.AllLines", ReleasedHandleUse, "chip closed")
	}
	offsets := make([]int, c.info.NumLines)
	for i := range offsets {
		offsets[i] = i
	}
	return c.Lines(offsets...)
}

// FindLine returns the first line named name.
//
// It returns nil and no error when no line has that name.
func (c *Chip) FindLine(name string) (*Line, error) {
	const op = "Chip.FindLine"
	if c.closed {
		return nil, newError(op, ReleasedHandleUse, "chip closed")
	}
	for i := 0; i < c.info.NumLines; i++ {
		if l := c.lines[i]; l != nil && l.info.Name == name {
			return l, nil
		}
		info, err := c.conn.LineInfo(i)
		if err != nil {
			return nil, wrapBackend(op, IOError, err)
		}
		if info.Name == name {
			return c.line(op, i)
		}
	}
	return nil, nil
}

// Close releases every line requested through the chip and closes the
// connection to the backend.
//
// Calling Close more than once is a no-op.
func (c *Chip) Close() {
	if c.closed {
		return
	}
	for r := range c.reqs {
		r.close()
	}
	c.closed = true
	if err := c.conn.Close(); err != nil {
		log.Warnf("%s: close: %v", c.info.Name, err)
	}
	log.Debugf("closed %s", c.info.Name)
}
