// Copyright 2024 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package gpiod

import (
	"errors"
	"sync"
	"time"

	"periph.io/x/gpiod/internal/logging"
)

// MaxBulkLines is the largest number of lines a single Bulk may hold.
const MaxBulkLines = 64

// Backend is a facility able to enumerate and open GPIO chips.
//
// Implementations live in the subpackages of this module: gpioioctl,
// gpiocdev, sysfs, ftdi and gpiosim.
type Backend interface {
	String() string
	// ChipNames returns the names of the chips currently present, in
	// enumeration order.
	ChipNames() ([]string, error)
	OpenByName(name string) (ChipConn, error)
	OpenByNumber(n uint) (ChipConn, error)
}

// ChipInfo is the fixed description of a chip, read once when it is opened.
type ChipInfo struct {
	Name     string
	Label    string
	Index    int
	NumLines int
}

// LineInfo is the state of a line as reported by the facility.
type LineInfo struct {
	Offset      int
	Name        string
	Consumer    string
	Used        bool
	Direction   Direction
	ActiveState ActiveState
	Bias        Bias
	OpenDrain   bool
	OpenSource  bool
}

// Request describes one facility request covering one or more lines of a
// chip.
type Request struct {
	Offsets  []int
	Consumer string
	Mode     Mode
	Flags    Flags
	// Values holds the initial output value of each offset when Mode is
	// ModeOutput. It is nil otherwise.
	Values []int
}

// ChipConn is an open chip of a Backend.
type ChipConn interface {
	Info() ChipInfo
	LineInfo(offset int) (LineInfo, error)
	Request(req *Request) (RequestConn, error)
	Close() error
}

// RequestConn is a granted Request.
//
// idx arguments are indexes into Request.Offsets, not line offsets.
type RequestConn interface {
	Values(idx []int) ([]int, error)
	SetValues(idx, values []int) error
	// WaitEvent waits until an event is pending. A negative timeout waits
	// forever, zero polls.
	WaitEvent(timeout time.Duration) (bool, error)
	// ReadEvent consumes one pending event. It returns NoEventPending when
	// nothing is queued.
	ReadEvent() (Event, error)
	Fd() (int, error)
	Close() error
}

var (
	mu       sync.Mutex
	backends []Backend
	log      = logging.For("gpiod")
)

// Register adds a backend to the set searched by Open and NewChipIter.
//
// Backends are searched in registration order.
func Register(b Backend) error {
	mu.Lock()
	defer mu.Unlock()
	for _, r := range backends {
		if r.String() == b.String() {
			return errors.New("gpiod: backend " + b.String() + " already registered")
		}
	}
	backends = append(backends, b)
	log.Debugf("registered backend %s", b)
	return nil
}

// Unregister removes a backend previously added with Register.
func Unregister(name string) error {
	mu.Lock()
	defer mu.Unlock()
	for i, r := range backends {
		if r.String() == name {
			copy(backends[i:], backends[i+1:])
			backends[len(backends)-1] = nil
			backends = backends[:len(backends)-1]
			return nil
		}
	}
	return errors.New("gpiod: backend " + name + " not registered")
}

// Backends returns the registered backends.
func Backends() []Backend {
	mu.Lock()
	defer mu.Unlock()
	out := make([]Backend, len(backends))
	copy(out, backends)
	return out
}
