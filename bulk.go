// Copyright 2024 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package gpiod

import (
	"fmt"
	"time"
)

// Bulk is an ordered set of unique lines of one chip.
//
// Requests made through a Bulk cover every member in a single backend
// request. Members can still be released one at a time.
type Bulk struct {
	chip  *Chip
	lines []*Line
}

// NumLines returns the number of lines in the bulk.
func (b *Bulk) NumLines() int {
	return len(b.lines)
}

// Offsets returns the chip offsets of the members, in bulk order.
func (b *Bulk) Offsets() []int {
	out := make([]int, len(b.lines))
	for i, l := range b.lines {
		out[i] = l.offset
	}
	return out
}

// Line returns the member at index.
func (b *Bulk) Line(index int) (*Line, error) {
	const op = "Bulk.Line"
	if b.chip.closed {
		return nil, newError(op, ReleasedHandleUse, "chip closed")
	}
	if index < 0 || index >= len(b.lines) {
		return nil, newError(op, InvalidOffset, fmt.Sprintf("index %d not in [0, %d)", index, len(b.lines)))
	}
	return b.lines[index], nil
}

// RequestInput requests every member as an input.
func (b *Bulk) RequestInput(consumer string, flags ...Flags) error {
	_, err := b.chip.request("Bulk.RequestInput", b.lines, ModeInput, consumer, mergeFlags(flags), nil)
	return err
}

// RequestOutput requests every member as an output. values holds the
// initial level of each member, in bulk order.
func (b *Bulk) RequestOutput(consumer string, values []int, flags ...Flags) error {
	const op = "Bulk.RequestOutput"
	if len(values) != len(b.lines) {
		return newError(op, BulkSizeMismatch, fmt.Sprintf("%d values for %d lines", len(values), len(b.lines)))
	}
	_, err := b.chip.request(op, b.lines, ModeOutput, consumer, mergeFlags(flags), values)
	return err
}

// RequestRisingEdgeEvents requests every member as a rising edge source
// sharing one event stream.
func (b *Bulk) RequestRisingEdgeEvents(consumer string, flags ...Flags) error {
	_, err := b.chip.request("Bulk.RequestRisingEdgeEvents", b.lines, ModeRisingEdge, consumer, mergeFlags(flags), nil)
	return err
}

// RequestFallingEdgeEvents requests every member as a falling edge source
// sharing one event stream.
func (b *Bulk) RequestFallingEdgeEvents(consumer string, flags ...Flags) error {
	_, err := b.chip.request("Bulk.RequestFallingEdgeEvents", b.lines, ModeFallingEdge, consumer, mergeFlags(flags), nil)
	return err
}

// RequestBothEdgesEvents requests every member as an edge source for both
// edges sharing one event stream.
func (b *Bulk) RequestBothEdgesEvents(consumer string, flags ...Flags) error {
	_, err := b.chip.request("Bulk.RequestBothEdgesEvents", b.lines, ModeBothEdges, consumer, mergeFlags(flags), nil)
	return err
}

// Values returns the level of every member, in bulk order.
//
// Members requested together are read with a single backend call.
func (b *Bulk) Values() ([]int, error) {
	const op = "Bulk.Values"
	if b.chip.closed {
		return nil, newError(op, ReleasedHandleUse, "chip closed")
	}
	groups, order, err := b.group(op)
	if err != nil {
		return nil, err
	}
	out := make([]int, len(b.lines))
	for _, r := range order {
		g := groups[r]
		v, err := r.conn.Values(g.idx)
		if err != nil {
			return nil, wrapBackend(op, IOError, err)
		}
		for i, pos := range g.pos {
			out[pos] = v[i]
		}
	}
	return out, nil
}

// SetValues drives every member. Every member must be requested as an
// output; this is checked before anything is written.
func (b *Bulk) SetValues(values []int) error {
	const op = "Bulk.SetValues"
	if b.chip.closed {
		return newError(op, ReleasedHandleUse, "chip closed")
	}
	if len(values) != len(b.lines) {
		return newError(op, BulkSizeMismatch, fmt.Sprintf("%d values for %d lines", len(values), len(b.lines)))
	}
	groups, order, err := b.group(op)
	if err != nil {
		return err
	}
	for _, r := range order {
		if r.mode != ModeOutput {
			return newError(op, ModeError, fmt.Sprintf("line %d requested as %s", r.members[groups[r].idx[0]].offset, r.mode))
		}
	}
	for _, r := range order {
		g := groups[r]
		v := make([]int, len(g.pos))
		for i, pos := range g.pos {
			if values[pos] != 0 {
				v[i] = 1
			}
		}
		if err := r.conn.SetValues(g.idx, v); err != nil {
			return wrapBackend(op, IOError, err)
		}
	}
	return nil
}

type bulkGroup struct {
	idx []int // indexes within the request
	pos []int // positions within the bulk
}

// group splits the members by the request holding them. order preserves the
// first appearance of each request.
func (b *Bulk) group(op string) (map[*request]*bulkGroup, []*request, error) {
	groups := map[*request]*bulkGroup{}
	var order []*request
	for pos, l := range b.lines {
		if l.req == nil {
			return nil, nil, newError(op, ReleasedHandleUse, fmt.Sprintf("line %d not requested", l.offset))
		}
		g, ok := groups[l.req]
		if !ok {
			g = &bulkGroup{}
			groups[l.req] = g
			order = append(order, l.req)
		}
		g.idx = append(g.idx, l.idx)
		g.pos = append(g.pos, pos)
	}
	return groups, order, nil
}

// eventRequest returns the request shared by every member, which must be an
// event request.
func (b *Bulk) eventRequest(op string) (*request, error) {
	if b.chip.closed {
		return nil, newError(op, ReleasedHandleUse, "chip closed")
	}
	var r *request
	for _, l := range b.lines {
		if l.req == nil {
			return nil, newError(op, ReleasedHandleUse, fmt.Sprintf("line %d not requested", l.offset))
		}
		if r == nil {
			r = l.req
		} else if l.req != r {
			return nil, newError(op, ModeError, "members do not share one request")
		}
	}
	if !r.mode.IsEvent() {
		return nil, newError(op, ModeError, fmt.Sprintf("bulk requested as %s", r.mode))
	}
	return r, nil
}

// EventWait waits for an edge event on any member. See Line.EventWait.
func (b *Bulk) EventWait(timeout time.Duration) (bool, error) {
	const op = "Bulk.EventWait"
	r, err := b.eventRequest(op)
	if err != nil {
		return false, err
	}
	ok, err := r.conn.WaitEvent(timeout)
	if err != nil {
		return false, wrapBackend(op, IOError, err)
	}
	return ok, nil
}

// EventRead consumes one pending event of any member. Event.Offset tells
// which.
func (b *Bulk) EventRead() (Event, error) {
	const op = "Bulk.EventRead"
	r, err := b.eventRequest(op)
	if err != nil {
		return Event{}, err
	}
	e, err := r.conn.ReadEvent()
	if err != nil {
		return Event{}, wrapBackend(op, IOError, err)
	}
	return e, nil
}

// EventFd returns the descriptor of the shared event stream.
func (b *Bulk) EventFd() (int, error) {
	const op = "Bulk.EventFd"
	r, err := b.eventRequest(op)
	if err != nil {
		return -1, err
	}
	fd, err := r.conn.Fd()
	if err != nil {
		return -1, wrapBackend(op, IOError, err)
	}
	return fd, nil
}

// Release releases every member. Calling it again is a no-op.
func (b *Bulk) Release() {
	for _, l := range b.lines {
		l.Release()
	}
}
