// Copyright 2024 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package gpiod

import (
	"fmt"
	"time"
)

// Line is one line of a Chip.
//
// A Line is free until it is requested through one of the Request methods,
// and becomes free again when released. Property accessors return the
// information cached at the last refresh; call Update to re-read it.
//
// A Line is not safe for concurrent use.
type Line struct {
	chip   *Chip
	offset int
	info   LineInfo
	req    *request
	idx    int
}

func (l *Line) String() string {
	if l.info.Name != "" {
		return fmt.Sprintf("%s(%d)", l.info.Name, l.offset)
	}
	return fmt.Sprintf("%s.%d", l.chip.info.Name, l.offset)
}

// Chip returns the chip the line belongs to.
func (l *Line) Chip() *Chip {
	return l.chip
}

func (l *Line) alive(op string) error {
	if l.chip.closed {
		return newError(op, ReleasedHandleUse, "chip closed")
	}
	return nil
}

// requested returns the request of l or ReleasedHandleUse.
func (l *Line) requested(op string) (*request, error) {
	if err := l.alive(op); err != nil {
		return nil, err
	}
	if l.req == nil {
		return nil, newError(op, ReleasedHandleUse, fmt.Sprintf("line %d not requested", l.offset))
	}
	return l.req, nil
}

// RequestInput requests the line as an input.
func (l *Line) RequestInput(consumer string, flags ...Flags) error {
	_, err := l.chip.request("Line.RequestInput", []*Line{l}, ModeInput, consumer, mergeFlags(flags), nil)
	return err
}

// RequestOutput requests the line as an output driven to value.
func (l *Line) RequestOutput(consumer string, value int, flags ...Flags) error {
	_, err := l.chip.request("Line.RequestOutput", []*Line{l}, ModeOutput, consumer, mergeFlags(flags), []int{value})
	return err
}

// RequestRisingEdgeEvents requests the line as an input reporting rising
// edges.
func (l *Line) RequestRisingEdgeEvents(consumer string, flags ...Flags) error {
	_, err := l.chip.request("Line.RequestRisingEdgeEvents", []*Line{l}, ModeRisingEdge, consumer, mergeFlags(flags), nil)
	return err
}

// RequestFallingEdgeEvents requests the line as an input reporting falling
// edges.
func (l *Line) RequestFallingEdgeEvents(consumer string, flags ...Flags) error {
	_, err := l.chip.request("Line.RequestFallingEdgeEvents", []*Line{l}, ModeFallingEdge, consumer, mergeFlags(flags), nil)
	return err
}

// RequestBothEdgesEvents requests the line as an input reporting both edges.
func (l *Line) RequestBothEdgesEvents(consumer string, flags ...Flags) error {
	_, err := l.chip.request("Line.RequestBothEdgesEvents", []*Line{l}, ModeBothEdges, consumer, mergeFlags(flags), nil)
	return err
}

// Mode returns what the line is currently requested for, or ModeNone.
func (l *Line) Mode() Mode {
	if l.req == nil || l.chip.closed {
		return ModeNone
	}
	return l.req.mode
}

// Value returns the logical level of the line, 0 or 1.
func (l *Line) Value() (int, error) {
	const op = "Line.Value"
	r, err := l.requested(op)
	if err != nil {
		return 0, err
	}
	v, err := r.conn.Values([]int{l.idx})
	if err != nil {
		return 0, wrapBackend(op, IOError, err)
	}
	return v[0], nil
}

// SetValue drives the line. Any non-zero value drives it active.
func (l *Line) SetValue(v int) error {
	const op = "Line.SetValue"
	r, err := l.requested(op)
	if err != nil {
		return err
	}
	if r.mode != ModeOutput {
		return newError(op, ModeError, fmt.Sprintf("line %d requested as %s", l.offset, r.mode))
	}
	if v != 0 {
		v = 1
	}
	return wrapBackend(op, IOError, r.conn.SetValues([]int{l.idx}, []int{v}))
}

// eventRequest returns the request of l if it is a single line event
// request.
func (l *Line) eventRequest(op string) (*request, error) {
	r, err := l.requested(op)
	if err != nil {
		return nil, err
	}
	if !r.mode.IsEvent() {
		return nil, newError(op, ModeError, fmt.Sprintf("line %d requested as %s", l.offset, r.mode))
	}
	if !r.single() {
		return nil, newError(op, ModeError, fmt.Sprintf("line %d shares its event stream with %d lines, use the bulk", l.offset, len(r.members)))
	}
	return r, nil
}

// EventWait waits for an edge event.
//
// A negative timeout waits forever and a zero timeout polls. It returns
// false when the timeout expires.
func (l *Line) EventWait(timeout time.Duration) (bool, error) {
	const op = "Line.EventWait"
	r, err := l.eventRequest(op)
	if err != nil {
		return false, err
	}
	ok, err := r.conn.WaitEvent(timeout)
	if err != nil {
		return false, wrapBackend(op, IOError, err)
	}
	return ok, nil
}

// EventRead consumes one pending event. It never blocks and returns
// NoEventPending when no event is queued.
func (l *Line) EventRead() (Event, error) {
	const op = "Line.EventRead"
	r, err := l.eventRequest(op)
	if err != nil {
		return Event{}, err
	}
	e, err := r.conn.ReadEvent()
	if err != nil {
		return Event{}, wrapBackend(op, IOError, err)
	}
	return e, nil
}

// EventFd returns a descriptor that becomes readable when an event is
// pending.
func (l *Line) EventFd() (int, error) {
	const op = "Line.EventFd"
	r, err := l.eventRequest(op)
	if err != nil {
		return -1, err
	}
	fd, err := r.conn.Fd()
	if err != nil {
		return -1, wrapBackend(op, IOError, err)
	}
	return fd, nil
}

// Release returns the line to the free state. It is a no-op on a line that
// is not requested.
func (l *Line) Release() {
	r := l.req
	if r == nil {
		return
	}
	r.release(l)
	if !l.chip.closed {
		if err := l.refresh(); err != nil {
			log.Debugf("%s: line %d: refresh after release: %v", l.chip.info.Name, l.offset, err)
		}
	}
	log.Debugf("%s: released line %d", l.chip.info.Name, l.offset)
}

// Update re-reads the line information from the backend.
func (l *Line) Update() error {
	const op = "Line.Update"
	if err := l.alive(op); err != nil {
		return err
	}
	return wrapBackend(op, IOError, l.refresh())
}

func (l *Line) refresh() error {
	info, err := l.chip.conn.LineInfo(l.offset)
	if err != nil {
		return err
	}
	info.Offset = l.offset
	l.info = info
	return nil
}

// Offset returns the offset of the line within its chip.
func (l *Line) Offset() (int, error) {
	if err := l.alive("Line.Offset"); err != nil {
		return 0, err
	}
	return l.offset, nil
}

// Name returns the name of the line. It may be empty.
func (l *Line) Name() (string, error) {
	if err := l.alive("Line.Name"); err != nil {
		return "", err
	}
	return l.info.Name, nil
}

// Consumer returns the consumer label of the holder of the line, if any.
func (l *Line) Consumer() (string, error) {
	if err := l.alive("Line.Consumer"); err != nil {
		return "", err
	}
	return l.info.Consumer, nil
}

// Direction returns the direction of the line.
func (l *Line) Direction() (Direction, error) {
	if err := l.alive("Line.Direction"); err != nil {
		return DirectionUnknown, err
	}
	return l.info.Direction, nil
}

// ActiveState returns the polarity of the line.
func (l *Line) ActiveState() (ActiveState, error) {
	if err := l.alive("Line.ActiveState"); err != nil {
		return ActiveStateUnknown, err
	}
	return l.info.ActiveState, nil
}

// Bias returns the bias of the line.
func (l *Line) Bias() (Bias, error) {
	if err := l.alive("Line.Bias"); err != nil {
		return BiasUnknown, err
	}
	return l.info.Bias, nil
}

// IsUsed reports whether the line is held, by this process or another.
func (l *Line) IsUsed() (bool, error) {
	if err := l.alive("Line.IsUsed"); err != nil {
		return false, err
	}
	return l.info.Used, nil
}

func (l *Line) IsOpenDrain() (bool, error) {
	if err := l.alive("Line.IsOpenDrain"); err != nil {
		return false, err
	}
	return l.info.OpenDrain, nil
}

func (l *Line) IsOpenSource() (bool, error) {
	if err := l.alive("Line.IsOpenSource"); err != nil {
		return false, err
	}
	return l.info.OpenSource, nil
}
