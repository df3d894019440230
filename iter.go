// Copyright 2024 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package gpiod

import "fmt"

// ChipIter walks the chips of one or more backends.
//
// The chip names are read when the iterator is created; the chips themselves
// are opened one at a time as the iterator advances. An iterator cannot be
// restarted.
type ChipIter struct {
	entries []iterEntry
	pos     int
	owned   *Chip
	closed  bool
}

type iterEntry struct {
	b    Backend
	name string
}

// NewChipIter returns an iterator over the chips of every registered
// backend.
func NewChipIter() (*ChipIter, error) {
	return NewChipIterFrom(Backends()...)
}

// NewChipIterFrom returns an iterator over the chips of bs, in order.
func NewChipIterFrom(bs ...Backend) (*ChipIter, error) {
	it := &ChipIter{}
	for _, b := range bs {
		names, err := b.ChipNames()
		if err != nil {
			return nil, wrapBackend("NewChipIter", IOError, fmt.Errorf("%s: %w", b, err))
		}
		for _, n := range names {
			it.entries = append(it.entries, iterEntry{b: b, name: n})
		}
	}
	return it, nil
}

// Next opens the next chip. The caller owns the returned chip and must close
// it.
//
// Next returns nil, nil once every chip was visited. When a chip fails to
// open, the error is returned and the following call moves on to the next
// chip.
func (it *ChipIter) Next() (*Chip, error) {
	it.dropOwned()
	return it.advance()
}

// NextClosing is like Next but the iterator keeps ownership of the chip: it
// is closed by the following call to Next, NextClosing or Close.
func (it *ChipIter) NextClosing() (*Chip, error) {
	it.dropOwned()
	c, err := it.advance()
	it.owned = c
	return c, err
}

func (it *ChipIter) advance() (*Chip, error) {
	if it.closed || it.pos >= len(it.entries) {
		return nil, nil
	}
	e := it.entries[it.pos]
	it.pos++
	conn, err := e.b.OpenByName(e.name)
	if err != nil {
		log.Warnf("skipping %s of %s: %v", e.name, e.b, err)
		return nil, wrapBackend("ChipIter.Next", OpenFailure, fmt.Errorf("%s: %w", e.name, err))
	}
	return newChip(e.b, conn), nil
}

func (it *ChipIter) dropOwned() {
	if it.owned != nil {
		it.owned.Close()
		it.owned = nil
	}
}

// Close closes the chip owned by the iterator, if any. Chips returned by
// Next are left open. Calling Close more than once is a no-op.
func (it *ChipIter) Close() {
	if it.closed {
		return
	}
	it.dropOwned()
	it.closed = true
}
