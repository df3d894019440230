//go:build linux

// Copyright 2016 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package sysfs

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/sys/unix"

	"periph.io/x/gpiod"
)

// DefaultRoot is where the kernel exposes GPIO sysfs.
const DefaultRoot = "/sys/class/gpio"

// Backend drives GPIO lines through the legacy sysfs interface.
//
// Uses gpio sysfs as described at
// https://www.kernel.org/doc/Documentation/gpio/sysfs.txt
//
// The main drawbacks of GPIO sysfs are that it doesn't expose the internal
// pull resistors or the drive mode, and lines have no names. Requests using
// those flags fail with gpiod.InvalidFlags.
//
// Chips are named after their sysfs directory, gpiochipN where N is the
// number of the first line. Chip numbers passed to OpenByNumber are the
// position of the chip in ChipNames.
type Backend struct {
	// Root is DefaultRoot when empty.
	Root string
}

func (b *Backend) String() string {
	return "sysfs"
}

func (b *Backend) root() string {
	if b.Root == "" {
		return DefaultRoot
	}
	return b.Root
}

// ChipNames returns the chips sorted by their first line number.
func (b *Backend) ChipNames() ([]string, error) {
	items, err := filepath.Glob(filepath.Join(b.root(), "gpiochip*"))
	if err != nil {
		return nil, fmt.Errorf("sysfs: %w", err)
	}
	type entry struct {
		name string
		base int
	}
	var entries []entry
	for _, item := range items {
		base, err := readInt(filepath.Join(item, "base"))
		if err != nil {
			log.Debugf("%s: %v", item, err)
			continue
		}
		entries = append(entries, entry{filepath.Base(item), base})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].base < entries[j].base })
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.name)
	}
	return out, nil
}

func (b *Backend) OpenByName(name string) (gpiod.ChipConn, error) {
	if name == "" || strings.ContainsRune(name, '/') {
		return nil, fmt.Errorf("sysfs: invalid chip name %q", name)
	}
	names, err := b.ChipNames()
	if err != nil {
		return nil, err
	}
	for i, n := range names {
		if n == name {
			return b.openChip(name, i)
		}
	}
	return nil, fmt.Errorf("sysfs: chip %s: %w", name, os.ErrNotExist)
}

func (b *Backend) OpenByNumber(n uint) (gpiod.ChipConn, error) {
	names, err := b.ChipNames()
	if err != nil {
		return nil, err
	}
	if n >= uint(len(names)) {
		return nil, fmt.Errorf("sysfs: chip %d: %w", n, os.ErrNotExist)
	}
	return b.openChip(names[n], int(n))
}

func (b *Backend) openChip(name string, index int) (*chip, error) {
	dir := filepath.Join(b.root(), name)
	base, err := readInt(filepath.Join(dir, "base"))
	if err != nil {
		return nil, fmt.Errorf("sysfs: %s: %w", name, err)
	}
	number, err := readInt(filepath.Join(dir, "ngpio"))
	if err != nil {
		return nil, fmt.Errorf("sysfs: %s: %w", name, err)
	}
	label, err := readString(filepath.Join(dir, "label"))
	if err != nil {
		log.Debugf("%s: %v", name, err)
	}
	return &chip{
		root: b.root(),
		base: base,
		info: gpiod.ChipInfo{Name: name, Label: label, Index: index, NumLines: number},
		held: map[int]bool{},
	}, nil
}

type chip struct {
	root string
	base int
	info gpiod.ChipInfo

	mu   sync.Mutex
	held map[int]bool
}

func (c *chip) Info() gpiod.ChipInfo {
	return c.info
}

func (c *chip) lineRoot(offset int) string {
	return filepath.Join(c.root, "gpio"+strconv.Itoa(c.base+offset))
}

// LineInfo reports exported lines as used by "sysfs".
func (c *chip) LineInfo(offset int) (gpiod.LineInfo, error) {
	info := gpiod.LineInfo{Offset: offset, ActiveState: gpiod.ActiveStateHigh, Bias: gpiod.BiasUnknown}
	root := c.lineRoot(offset)
	d, err := readString(filepath.Join(root, "direction"))
	if errors.Is(err, os.ErrNotExist) {
		return info, nil
	}
	if err != nil {
		return gpiod.LineInfo{}, fmt.Errorf("sysfs: line %d: %w", offset, err)
	}
	info.Used = true
	info.Consumer = "sysfs"
	switch d {
	case "in":
		info.Direction = gpiod.DirectionInput
	case "out":
		info.Direction = gpiod.DirectionOutput
	}
	if v, err := readInt(filepath.Join(root, "active_low")); err == nil && v != 0 {
		info.ActiveState = gpiod.ActiveStateLow
	}
	return info, nil
}

func (c *chip) Request(req *gpiod.Request) (gpiod.RequestConn, error) {
	if f := req.Flags &^ gpiod.ActiveLow; f != 0 {
		return nil, fmt.Errorf("sysfs: %s not supported: %w", f, gpiod.InvalidFlags)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, o := range req.Offsets {
		if c.held[o] {
			return nil, fmt.Errorf("sysfs: line %d: %w", o, unix.EBUSY)
		}
	}
	r := &request{c: c, edges: req.Mode.IsEvent()}
	for i, o := range req.Offsets {
		p := &pin{number: c.base + o, offset: o, root: c.lineRoot(o)}
		r.pins = append(r.pins, p)
		v := 0
		if i < len(req.Values) {
			v = req.Values[i]
		}
		if err := p.configure(c.root, req.Mode, req.Flags&gpiod.ActiveLow != 0, v); err != nil {
			r.closeLocked()
			return nil, err
		}
	}
	for _, o := range req.Offsets {
		c.held[o] = true
	}
	return r, nil
}

func (c *chip) Close() error {
	return nil
}

// pin is one exported line.
type pin struct {
	number   int
	offset   int
	root     string
	exported bool
	fValue   *os.File
	buf      [4]byte
}

// open opens the value file, exporting the line first when needed.
func (p *pin) open(sysRoot string) error {
	var err error
	// It's possible it had been exported already.
	if p.fValue, err = os.OpenFile(filepath.Join(p.root, "value"), os.O_RDWR, 0); err == nil {
		return nil
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("sysfs: need more access, try as root or setup udev rules: %w", err)
	}
	if err = writeFile(filepath.Join(sysRoot, "export"), strconv.Itoa(p.number)); err != nil && !errors.Is(err, unix.EBUSY) {
		if os.IsPermission(err) {
			err = fmt.Errorf("need more access, try as root or setup udev rules: %w", err)
		}
		return fmt.Errorf("sysfs: exporting %d: %w", p.number, err)
	}
	p.exported = true
	// udev may still be changing the file mode after the export.
	for start := time.Now(); time.Since(start) < exportWait; {
		if p.fValue, err = os.OpenFile(filepath.Join(p.root, "value"), os.O_RDWR, 0); err == nil || !os.IsPermission(err) {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	if err != nil {
		return fmt.Errorf("sysfs: line %d: %w", p.number, err)
	}
	return nil
}

var exportWait = 5 * time.Second

func (p *pin) configure(sysRoot string, mode gpiod.Mode, activeLow bool, value int) error {
	if err := p.open(sysRoot); err != nil {
		return err
	}
	al := "0"
	if activeLow {
		al = "1"
	}
	if err := writeFile(filepath.Join(p.root, "active_low"), al); err != nil {
		return fmt.Errorf("sysfs: line %d: %w", p.number, err)
	}
	edge := "none"
	dir := "in"
	switch mode {
	case gpiod.ModeOutput:
		// "high" and "low" set the raw level along with the direction.
		if (value != 0) != activeLow {
			dir = "high"
		} else {
			dir = "low"
		}
	case gpiod.ModeRisingEdge:
		edge = "rising"
	case gpiod.ModeFallingEdge:
		edge = "falling"
	case gpiod.ModeBothEdges:
		edge = "both"
	}
	// Always push none to flush accumulated edges.
	if mode != gpiod.ModeOutput {
		_ = writeFile(filepath.Join(p.root, "edge"), "none")
	}
	if err := writeFile(filepath.Join(p.root, "direction"), dir); err != nil {
		return fmt.Errorf("sysfs: line %d: %w", p.number, err)
	}
	if mode.IsEvent() {
		if err := writeFile(filepath.Join(p.root, "edge"), edge); err != nil {
			return fmt.Errorf("sysfs: line %d: %w", p.number, err)
		}
		// Reading the value clears the pending state reported by poll.
		_, _ = p.read()
	}
	return nil
}

func (p *pin) read() (int, error) {
	if _, err := p.fValue.Seek(0, 0); err != nil {
		return 0, err
	}
	n, err := p.fValue.Read(p.buf[:])
	if err != nil {
		return 0, err
	}
	if n == 0 {
		return 0, errors.New("empty value")
	}
	switch p.buf[0] {
	case '0':
		return 0, nil
	case '1':
		return 1, nil
	}
	return 0, fmt.Errorf("invalid value %q", p.buf[:n])
}

func (p *pin) write(v int) error {
	if _, err := p.fValue.Seek(0, 0); err != nil {
		return err
	}
	b := []byte{'0'}
	if v != 0 {
		b[0] = '1'
	}
	_, err := p.fValue.Write(b)
	return err
}

func (p *pin) close(sysRoot string) error {
	var err error
	if p.fValue != nil {
		if mode, _ := readString(filepath.Join(p.root, "edge")); mode != "" && mode != "none" {
			_ = writeFile(filepath.Join(p.root, "edge"), "none")
		}
		err = p.fValue.Close()
		p.fValue = nil
	}
	if p.exported {
		if uerr := writeFile(filepath.Join(sysRoot, "unexport"), strconv.Itoa(p.number)); uerr != nil && err == nil {
			err = uerr
		}
		p.exported = false
	}
	return err
}

// request is a set of exported lines.
type request struct {
	c     *chip
	pins  []*pin
	edges bool
	mu    sync.Mutex
}

func (r *request) Values(idx []int) ([]int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]int, len(idx))
	for k, i := range idx {
		v, err := r.pins[i].read()
		if err != nil {
			return nil, fmt.Errorf("sysfs: line %d: %w", r.pins[i].number, err)
		}
		out[k] = v
	}
	return out, nil
}

func (r *request) SetValues(idx, values []int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for k, i := range idx {
		if err := r.pins[i].write(values[k]); err != nil {
			return fmt.Errorf("sysfs: line %d: %w", r.pins[i].number, err)
		}
	}
	return nil
}

// ready polls the value files for an edge. It returns the index of the
// first pin with a pending edge or -1.
func (r *request) ready(timeout time.Duration) (int, error) {
	fds := make([]unix.PollFd, len(r.pins))
	for i, p := range r.pins {
		fds[i] = unix.PollFd{Fd: int32(p.fValue.Fd()), Events: unix.POLLPRI | unix.POLLERR}
	}
	ms := -1
	if timeout >= 0 {
		ms = int(timeout / time.Millisecond)
	}
	start := time.Now()
	for {
		n, err := unix.Poll(fds, ms)
		if err == nil {
			if n == 0 {
				return -1, nil
			}
			for i := range fds {
				if fds[i].Revents&unix.POLLPRI != 0 {
					return i, nil
				}
			}
			return -1, nil
		}
		if err != unix.EINTR {
			return -1, err
		}
		// A signal occurred.
		if timeout >= 0 {
			if ms = int((timeout - time.Since(start)) / time.Millisecond); ms <= 0 {
				return -1, nil
			}
		}
	}
}

func (r *request) WaitEvent(timeout time.Duration) (bool, error) {
	if !r.edges {
		return false, gpiod.ModeError
	}
	i, err := r.ready(timeout)
	if err != nil {
		return false, fmt.Errorf("sysfs: poll: %w", err)
	}
	return i >= 0, nil
}

// ReadEvent reads the value of the line that triggered to tell the edge.
func (r *request) ReadEvent() (gpiod.Event, error) {
	if !r.edges {
		return gpiod.Event{}, gpiod.ModeError
	}
	i, err := r.ready(0)
	if err != nil {
		return gpiod.Event{}, fmt.Errorf("sysfs: poll: %w", err)
	}
	if i < 0 {
		return gpiod.Event{}, gpiod.NoEventPending
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	p := r.pins[i]
	v, err := p.read()
	if err != nil {
		return gpiod.Event{}, fmt.Errorf("sysfs: line %d: %w", p.number, err)
	}
	e := gpiod.Event{Type: gpiod.EventFallingEdge, Offset: p.offset, Timestamp: monotonic()}
	if v == 1 {
		e.Type = gpiod.EventRisingEdge
	}
	return e, nil
}

// Fd returns the value file of a single line request. It signals edges with
// POLLPRI.
func (r *request) Fd() (int, error) {
	if !r.edges {
		return -1, gpiod.ModeError
	}
	if len(r.pins) != 1 {
		return -1, fmt.Errorf("sysfs: no single descriptor for %d lines", len(r.pins))
	}
	return int(r.pins[0].fValue.Fd()), nil
}

func (r *request) Close() error {
	r.c.mu.Lock()
	defer r.c.mu.Unlock()
	return r.closeLocked()
}

func (r *request) closeLocked() error {
	var err error
	for _, p := range r.pins {
		if perr := p.close(r.c.root); perr != nil && err == nil {
			err = perr
		}
		delete(r.c.held, p.offset)
	}
	r.pins = nil
	return err
}

func monotonic() time.Duration {
	var ts unix.Timespec
	if err := unix.ClockGettime(unix.CLOCK_MONOTONIC, &ts); err != nil {
		return 0
	}
	return time.Duration(ts.Nano())
}

// readInt reads a pseudo-file (sysfs) that is known to contain an integer and
// returns the parsed number.
func readInt(path string) (int, error) {
	s, err := readString(path)
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(s)
}

func readString(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	var b [64]byte
	n, err := f.Read(b[:])
	if err != nil {
		return "", err
	}
	raw := strings.TrimSuffix(string(b[:n]), "\n")
	if raw == "" {
		return "", errors.New("invalid value")
	}
	return raw, nil
}

// writeFile writes s to an existing attribute file.
func writeFile(path, s string) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_TRUNC, 0)
	if err != nil {
		return err
	}
	_, err = f.Write([]byte(s))
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	return err
}

var _ gpiod.Backend = &Backend{}
