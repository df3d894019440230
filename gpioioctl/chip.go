// Copyright 2024 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package gpioioctl

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"periph.io/x/gpiod"
)

// DefaultDir is where the kernel exposes GPIO character devices.
const DefaultDir = "/dev"

var errUnsupported = errors.New("gpioioctl: GPIO character devices are only available on linux")

// Backend opens /dev/gpiochip* character devices with the uAPI v2 ioctls.
type Backend struct {
	// Dir holds the gpiochip devices. DefaultDir is used when empty.
	Dir string
}

func (b *Backend) String() string {
	return "gpioioctl"
}

func (b *Backend) dir() string {
	if b.Dir == "" {
		return DefaultDir
	}
	return b.Dir
}

// ChipNames returns the gpiochip devices sorted by chip number.
//
// On some boards a chip is also reachable through a symlink with another
// number (on a Pi 5, gpiochip4 points to gpiochip0). Only the first name
// resolving to a device is kept.
func (b *Backend) ChipNames() ([]string, error) {
	items, err := filepath.Glob(filepath.Join(b.dir(), "gpiochip*"))
	if err != nil {
		return nil, fmt.Errorf("gpioioctl: %w", err)
	}
	type entry struct {
		name string
		n    int
	}
	var entries []entry
	for _, item := range items {
		name := filepath.Base(item)
		n, ok := chipNumber(name)
		if !ok {
			continue
		}
		entries = append(entries, entry{name, n})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].n < entries[j].n })
	seen := map[string]struct{}{}
	var out []string
	for _, e := range entries {
		target, err := filepath.EvalSymlinks(filepath.Join(b.dir(), e.name))
		if err != nil {
			log.Debugf("%s: %v", e.name, err)
			continue
		}
		if _, ok := seen[target]; ok {
			continue
		}
		seen[target] = struct{}{}
		out = append(out, e.name)
	}
	return out, nil
}

// chipNumber parses the N of "gpiochipN".
func chipNumber(name string) (int, bool) {
	s := strings.TrimPrefix(name, "gpiochip")
	if s == name || s == "" {
		return 0, false
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}

// OpenByName opens a chip by device name ("gpiochip0") or by path
// ("/dev/gpiochip0").
func (b *Backend) OpenByName(name string) (gpiod.ChipConn, error) {
	if name == "" {
		return nil, errors.New("gpioioctl: empty chip name")
	}
	path := name
	if !strings.ContainsRune(name, '/') {
		path = filepath.Join(b.dir(), name)
	}
	return openChip(path)
}

// OpenByNumber opens /dev/gpiochipN.
func (b *Backend) OpenByNumber(n uint) (gpiod.ChipConn, error) {
	return openChip(filepath.Join(b.dir(), "gpiochip"+strconv.FormatUint(uint64(n), 10)))
}

// chip is an open gpiochip device.
type chip struct {
	path string
	file *os.File
	fd   uintptr
	info gpiod.ChipInfo
}

func openChip(path string) (*chip, error) {
	if !supported {
		return nil, fmt.Errorf("opening gpio chip %s: %w", path, errUnsupported)
	}
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return nil, fmt.Errorf("opening gpio chip %s failed: %w", path, err)
	}
	c := &chip{path: path, file: f, fd: f.Fd()}
	var info gpiochip_info
	if err := ioctl_gpiochip_info(c.fd, &info); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("gpiochip info %s: %w", path, err)
	}
	c.info.Name = cstring(info.name[:])
	c.info.Label = cstring(info.label[:])
	c.info.NumLines = int(info.lines)
	c.info.Index, _ = chipNumber(c.info.Name)
	return c, nil
}

func (c *chip) Info() gpiod.ChipInfo {
	return c.info
}

func (c *chip) LineInfo(offset int) (gpiod.LineInfo, error) {
	var li gpio_v2_line_info
	li.offset = uint32(offset)
	if err := ioctl_gpio_v2_line_info(c.fd, &li); err != nil {
		return gpiod.LineInfo{}, fmt.Errorf("%s: line info %d: %w", c.info.Name, offset, err)
	}
	return decodeLineInfo(&li), nil
}

func (c *chip) Request(req *gpiod.Request) (gpiod.RequestConn, error) {
	lr, err := newLineRequest(req, req.Consumer)
	if err != nil {
		return nil, err
	}
	if err := ioctl_gpio_v2_line_request(c.fd, lr); err != nil {
		return nil, fmt.Errorf("%s: line request %v: %w", c.info.Name, req.Offsets, err)
	}
	return &lineRequest{fd: int(lr.fd), n: len(req.Offsets), events: req.Mode.IsEvent()}, nil
}

func (c *chip) Close() error {
	if c.file == nil {
		return nil
	}
	err := c.file.Close()
	c.file = nil
	return err
}

// lineRequest is the anonymous descriptor returned by a line request.
type lineRequest struct {
	fd     int
	n      int
	events bool
	buf    []byte
}

func (r *lineRequest) Values(idx []int) ([]int, error) {
	var data gpio_v2_line_values
	for _, i := range idx {
		data.mask |= 1 << uint(i)
	}
	if err := ioctl_get_gpio_v2_line_values(uintptr(r.fd), &data); err != nil {
		return nil, fmt.Errorf("get values: %w", err)
	}
	out := make([]int, len(idx))
	for k, i := range idx {
		if data.bits&(1<<uint(i)) != 0 {
			out[k] = 1
		}
	}
	return out, nil
}

func (r *lineRequest) SetValues(idx, values []int) error {
	var data gpio_v2_line_values
	for k, i := range idx {
		data.mask |= 1 << uint(i)
		if values[k] != 0 {
			data.bits |= 1 << uint(i)
		}
	}
	if err := ioctl_set_gpio_v2_line_values(uintptr(r.fd), &data); err != nil {
		return fmt.Errorf("set values: %w", err)
	}
	return nil
}

func (r *lineRequest) WaitEvent(timeout time.Duration) (bool, error) {
	if !r.events {
		return false, gpiod.ModeError
	}
	return waitReadable(r.fd, timeout)
}

func (r *lineRequest) ReadEvent() (gpiod.Event, error) {
	if !r.events {
		return gpiod.Event{}, gpiod.ModeError
	}
	ok, err := waitReadable(r.fd, 0)
	if err != nil {
		return gpiod.Event{}, err
	}
	if !ok {
		return gpiod.Event{}, gpiod.NoEventPending
	}
	if r.buf == nil {
		r.buf = make([]byte, sizeofEvent)
	}
	n, err := readFd(r.fd, r.buf)
	if err != nil {
		return gpiod.Event{}, fmt.Errorf("read event: %w", err)
	}
	if n != sizeofEvent {
		return gpiod.Event{}, fmt.Errorf("read event: short read of %d bytes", n)
	}
	return decodeEvent(r.buf)
}

func (r *lineRequest) Fd() (int, error) {
	return r.fd, nil
}

func (r *lineRequest) Close() error {
	if r.fd < 0 {
		return nil
	}
	err := closeFd(r.fd)
	r.fd = -1
	return err
}
