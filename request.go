// Copyright 2024 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package gpiod

import "fmt"

// request is a granted backend request shared by the lines it covers.
//
// The backend request is closed when the last member is released.
type request struct {
	chip    *Chip
	conn    RequestConn
	mode    Mode
	members []*Line
	refs    int
}

// request asks the backend for lines in a single request. On failure no line
// changes state.
func (c *Chip) request(op string, lines []*Line, mode Mode, consumer string, flags Flags, values []int) (*request, error) {
	if c.closed {
		return nil, newError(op, ReleasedHandleUse, "chip closed")
	}
	if err := flags.validate(op); err != nil {
		return nil, err
	}
	offsets := make([]int, len(lines))
	for i, l := range lines {
		if l.req != nil {
			return nil, newError(op, LineUnavailable, fmt.Sprintf("line %d already requested as %s", l.offset, l.req.mode))
		}
		offsets[i] = l.offset
	}
	req := &Request{Offsets: offsets, Consumer: consumer, Mode: mode, Flags: flags}
	if mode == ModeOutput {
		req.Values = make([]int, len(values))
		for i, v := range values {
			if v != 0 {
				req.Values[i] = 1
			}
		}
	}
	conn, err := c.conn.Request(req)
	if err != nil {
		return nil, wrapRequest(op, err)
	}
	r := &request{chip: c, conn: conn, mode: mode, members: lines, refs: len(lines)}
	for i, l := range lines {
		l.req = r
		l.idx = i
	}
	c.reqs[r] = struct{}{}
	for _, l := range lines {
		if err := l.refresh(); err != nil {
			log.Debugf("%s: line %d: refresh after request: %v", c.info.Name, l.offset, err)
		}
	}
	log.Debugf("%s: requested %v as %s for %q (%s)", c.info.Name, offsets, mode, consumer, flags)
	return r, nil
}

// release drops l from r.
func (r *request) release(l *Line) {
	l.req = nil
	l.idx = 0
	r.refs--
	if r.refs > 0 {
		return
	}
	r.closeConn()
}

// close drops every remaining member. It is used when the chip is closed.
func (r *request) close() {
	for _, l := range r.members {
		if l.req == r {
			l.req = nil
			l.idx = 0
		}
	}
	r.refs = 0
	r.closeConn()
}

func (r *request) closeConn() {
	if r.conn == nil {
		return
	}
	if err := r.conn.Close(); err != nil {
		log.Warnf("%s: release: %v", r.chip.info.Name, err)
	}
	r.conn = nil
	delete(r.chip.reqs, r)
}

// single reports whether r covers exactly one line.
func (r *request) single() bool {
	return len(r.members) == 1
}
