// Copyright 2024 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package gpiod

import (
	"fmt"
	"time"
)

// EventType is the kind of edge an Event records.
type EventType int

const (
	EventRisingEdge EventType = iota + 1
	EventFallingEdge
)

func (t EventType) String() string {
	switch t {
	case EventRisingEdge:
		return "rising_edge"
	case EventFallingEdge:
		return "falling_edge"
	default:
		return "unknown"
	}
}

// Event is one edge read from a line or bulk.
//
// Timestamp is taken from the monotonic clock of the facility. It is only
// meaningful relative to other events of the same chip.
type Event struct {
	Type      EventType
	Timestamp time.Duration
	// Offset is the chip offset of the line that changed.
	Offset int
}

// Timespec returns the timestamp split in whole seconds and the nanosecond
// remainder.
func (e Event) Timespec() (sec int64, nsec int64) {
	return int64(e.Timestamp / time.Second), int64(e.Timestamp % time.Second)
}

// Seconds returns the timestamp as fractional seconds.
func (e Event) Seconds() float64 {
	return e.Timestamp.Seconds()
}

func (e Event) String() string {
	return fmt.Sprintf("%s@%d %s", e.Type, e.Offset, e.Timestamp)
}
