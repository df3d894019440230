// Copyright 2024 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package gpiosim

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/google/uuid"

	"periph.io/x/gpiod"
	"periph.io/x/gpiod/internal/logging"
)

var log = logging.For("gpiosim")

// Sim is a set of simulated chips. It implements gpiod.Backend.
//
// Chips are named "gpiochipN" where N is the chip index, starting at the
// base given with WithBase.
type Sim struct {
	name  string
	base  int
	banks []*Bank
	start time.Time

	mu     sync.Mutex
	Chips  []*Chip
	closed bool
}

// Option configures a Sim.
type Option func(*Sim)

// WithName sets the backend name of the simulator. Without it a random name
// is used, so several simulators can be registered at once.
func WithName(name string) Option {
	return func(s *Sim) { s.name = name }
}

// WithBase sets the index of the first chip.
func WithBase(base int) Option {
	return func(s *Sim) { s.base = base }
}

// WithBank adds a chip.
func WithBank(b *Bank) Option {
	return func(s *Sim) { s.banks = append(s.banks, b) }
}

// NewSim builds a simulator.
func NewSim(options ...Option) (*Sim, error) {
	s := &Sim{start: time.Now()}
	for _, o := range options {
		o(s)
	}
	if s.name == "" {
		s.name = "gpiosim-" + uuid.New().String()
	}
	if len(s.banks) == 0 {
		return nil, errors.New("gpiosim: no bank")
	}
	for i, b := range s.banks {
		c := &Chip{sim: s, cfg: *b, index: s.base + i}
		if err := c.init(); err != nil {
			return nil, err
		}
		s.Chips = append(s.Chips, c)
	}
	return s, nil
}

func (s *Sim) String() string {
	return s.name
}

// ChipNames implements gpiod.Backend.
func (s *Sim) ChipNames() ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, nil
	}
	out := make([]string, len(s.Chips))
	for i, c := range s.Chips {
		out[i] = c.name
	}
	return out, nil
}

// OpenByName implements gpiod.Backend.
func (s *Sim) OpenByName(name string) (gpiod.ChipConn, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, syscall.ENOENT
	}
	for _, c := range s.Chips {
		if c.name == name {
			return &chipConn{c: c}, nil
		}
	}
	return nil, fmt.Errorf("gpiosim: no chip named %q: %w", name, syscall.ENOENT)
}

// OpenByNumber implements gpiod.Backend.
func (s *Sim) OpenByNumber(n uint) (gpiod.ChipConn, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, syscall.ENOENT
	}
	for _, c := range s.Chips {
		if c.index == int(n) {
			return &chipConn{c: c}, nil
		}
	}
	return nil, fmt.Errorf("gpiosim: no chip number %d: %w", n, syscall.ENOENT)
}

// Close removes the chips. Open chip handles keep working until closed but
// no new chip can be opened.
func (s *Sim) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func (s *Sim) now() time.Duration {
	return time.Since(s.start)
}

// Chip is one simulated chip.
type Chip struct {
	sim   *Sim
	cfg   Bank
	name  string
	index int
	lines []simLine
}

type simLine struct {
	pull   int // level the line idles at, physical
	driven int // level driven by an output request, physical
	req    *simRequest
	flags  gpiod.Flags
}

func (c *Chip) init() error {
	if c.cfg.NumLines <= 0 || c.cfg.NumLines > 1024 {
		return fmt.Errorf("gpiosim: bank %q: invalid line count %d", c.cfg.Label, c.cfg.NumLines)
	}
	if c.cfg.Label == "" {
		c.cfg.Label = "sim-" + strings.SplitN(uuid.New().String(), "-", 2)[0]
	}
	c.name = fmt.Sprintf("gpiochip%d", c.index)
	c.lines = make([]simLine, c.cfg.NumLines)
	for o, h := range c.cfg.Hogs {
		if o < 0 || o >= c.cfg.NumLines {
			return fmt.Errorf("gpiosim: bank %q: hog offset %d out of range", c.cfg.Label, o)
		}
		if h.Direction == HogDirectionOutputHigh {
			c.lines[o].pull = 1
		}
	}
	return nil
}

// Name returns the chip name, e.g. "gpiochip0".
func (c *Chip) Name() string {
	return c.name
}

// Label returns the chip label.
func (c *Chip) Label() string {
	return c.cfg.Label
}

// Index returns the chip index.
func (c *Chip) Index() int {
	return c.index
}

// Config returns the bank the chip was built from.
func (c *Chip) Config() Bank {
	return c.cfg
}

func (c *Chip) check(offset int) error {
	if offset < 0 || offset >= len(c.lines) {
		return fmt.Errorf("gpiosim: %s: offset %d out of range: %w", c.name, offset, syscall.EINVAL)
	}
	return nil
}

// Level returns the physical level of the line: the level driven by an
// output request, or the pull otherwise.
func (c *Chip) Level(offset int) (int, error) {
	c.sim.mu.Lock()
	defer c.sim.mu.Unlock()
	if err := c.check(offset); err != nil {
		return 0, err
	}
	return c.level(offset), nil
}

func (c *Chip) level(offset int) int {
	l := &c.lines[offset]
	if l.req != nil && l.req.mode == gpiod.ModeOutput {
		return l.driven
	}
	return l.pull
}

// Pull returns the level the line is pulled to.
func (c *Chip) Pull(offset int) (int, error) {
	c.sim.mu.Lock()
	defer c.sim.mu.Unlock()
	if err := c.check(offset); err != nil {
		return 0, err
	}
	return c.lines[offset].pull, nil
}

// SetPull pulls the line to level. An input requested for edges reports the
// resulting transition.
func (c *Chip) SetPull(offset, level int) error {
	c.sim.mu.Lock()
	defer c.sim.mu.Unlock()
	if err := c.check(offset); err != nil {
		return err
	}
	if level != 0 {
		level = 1
	}
	c.setPull(offset, level)
	return nil
}

func (c *Chip) setPull(offset, level int) {
	l := &c.lines[offset]
	before := c.level(offset)
	l.pull = level
	after := c.level(offset)
	if before == after || l.req == nil || !l.req.mode.IsEvent() {
		return
	}
	rising := after == 1
	if l.flags&gpiod.ActiveLow != 0 {
		rising = !rising
	}
	e := gpiod.Event{Type: gpiod.EventFallingEdge, Timestamp: c.sim.now(), Offset: offset}
	if rising {
		e.Type = gpiod.EventRisingEdge
	}
	switch {
	case l.req.mode == gpiod.ModeRisingEdge && !rising:
		return
	case l.req.mode == gpiod.ModeFallingEdge && rising:
		return
	}
	if !l.req.q.Push(e) {
		log.Warnf("%s: event queue full, dropped %s", c.name, e)
	}
}

// Pullup pulls the line high.
func (c *Chip) Pullup(offset int) error {
	return c.SetPull(offset, 1)
}

// Pulldown pulls the line low.
func (c *Chip) Pulldown(offset int) error {
	return c.SetPull(offset, 0)
}

// Toggle inverts the pull of the line.
func (c *Chip) Toggle(offset int) error {
	c.sim.mu.Lock()
	defer c.sim.mu.Unlock()
	if err := c.check(offset); err != nil {
		return err
	}
	c.setPull(offset, c.lines[offset].pull^1)
	return nil
}

// Simpleton is a simulator with a single chip of unnamed lines.
type Simpleton struct {
	*Sim
}

// NewSimpleton returns a simulator with one chip of numLines lines.
func NewSimpleton(numLines int) (*Simpleton, error) {
	s, err := NewSim(WithBank(NewBank("simpleton", numLines)))
	if err != nil {
		return nil, err
	}
	return &Simpleton{s}, nil
}

// ChipName returns the name of the chip, e.g. "gpiochip0".
func (s *Simpleton) ChipName() string {
	return s.Chips[0].name
}

func (s *Simpleton) Level(offset int) (int, error) {
	return s.Chips[0].Level(offset)
}

func (s *Simpleton) SetPull(offset, level int) error {
	return s.Chips[0].SetPull(offset, level)
}

func (s *Simpleton) Toggle(offset int) error {
	return s.Chips[0].Toggle(offset)
}
