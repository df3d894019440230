// Copyright 2024 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package eventq is a bounded queue of edge events with a pollable
// descriptor, for backends that receive events in a goroutine.
package eventq

import (
	"errors"
	"os"
	"sync"
	"time"

	"periph.io/x/gpiod"
)

// DefaultSize is the capacity used by New when size is not positive.
const DefaultSize = 1024

var errClosed = errors.New("eventq: closed")

// Queue holds events until they are popped.
//
// Push may be called from any goroutine. When the queue is full new events
// are dropped and counted in Dropped.
type Queue struct {
	mu      sync.Mutex
	events  []gpiod.Event
	size    int
	dropped uint64
	wake    chan struct{}
	r, w    *os.File
	closed  bool
}

// New returns a queue holding at most size events.
func New(size int) *Queue {
	if size <= 0 {
		size = DefaultSize
	}
	return &Queue{size: size}
}

// Push appends e. It reports false if e was dropped.
func (q *Queue) Push(e gpiod.Event) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return false
	}
	if len(q.events) >= q.size {
		q.dropped++
		return false
	}
	q.events = append(q.events, e)
	if q.w != nil {
		_, _ = q.w.Write([]byte{1})
	}
	if q.wake != nil {
		close(q.wake)
		q.wake = nil
	}
	return true
}

// Len returns the number of queued events.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.events)
}

// Dropped returns the number of events lost to a full queue.
func (q *Queue) Dropped() uint64 {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.dropped
}

// Wait waits until an event is queued. A negative timeout waits forever and
// a zero timeout only checks.
func (q *Queue) Wait(timeout time.Duration) (bool, error) {
	var deadline <-chan time.Time
	if timeout > 0 {
		t := time.NewTimer(timeout)
		defer t.Stop()
		deadline = t.C
	}
	for {
		q.mu.Lock()
		if q.closed {
			q.mu.Unlock()
			return false, errClosed
		}
		if len(q.events) > 0 {
			q.mu.Unlock()
			return true, nil
		}
		if timeout == 0 {
			q.mu.Unlock()
			return false, nil
		}
		if q.wake == nil {
			q.wake = make(chan struct{})
		}
		c := q.wake
		q.mu.Unlock()

		select {
		case <-c:
		case <-deadline:
			return false, nil
		}
	}
}

// Pop removes the oldest event. It reports false when the queue is empty.
func (q *Queue) Pop() (gpiod.Event, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.events) == 0 {
		return gpiod.Event{}, false
	}
	e := q.events[0]
	q.events[0] = gpiod.Event{}
	q.events = q.events[1:]
	if q.r != nil {
		var b [1]byte
		_, _ = q.r.Read(b[:])
	}
	return e, true
}

// Fd returns a descriptor that is readable while events are queued.
//
// The descriptor is created on first use. It must not be read by the caller.
func (q *Queue) Fd() (int, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return -1, errClosed
	}
	if q.r == nil {
		r, w, err := os.Pipe()
		if err != nil {
			return -1, err
		}
		if len(q.events) > 0 {
			if _, err := w.Write(make([]byte, len(q.events))); err != nil {
				_ = r.Close()
				_ = w.Close()
				return -1, err
			}
		}
		q.r, q.w = r, w
	}
	return int(q.r.Fd()), nil
}

// Close discards queued events and closes the descriptor. Waiters return an
// error. Calling Close more than once is a no-op.
func (q *Queue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return nil
	}
	q.closed = true
	q.events = nil
	if q.wake != nil {
		close(q.wake)
		q.wake = nil
	}
	var err error
	if q.r != nil {
		err = q.r.Close()
		if err2 := q.w.Close(); err == nil {
			err = err2
		}
		q.r, q.w = nil, nil
	}
	return err
}
