// Copyright 2024 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package gpioioctl

// This file contains definitions and methods for using the GPIO IOCTL calls.
//
// Documentation for the ioctl() API is at:
//
// https://docs.kernel.org/userspace-api/gpio/index.html

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"time"
	"unsafe"

	"periph.io/x/gpiod"
)

// From the linux /usr/include/asm-generic/ioctl.h file.
const (
	_IOC_NONE  = 0
	_IOC_WRITE = 1
	_IOC_READ  = 2

	_IOC_NRBITS   = 8
	_IOC_TYPEBITS = 8
	_IOC_SIZEBITS = 14

	_IOC_NRSHIFT   = 0
	_IOC_TYPESHIFT = _IOC_NRSHIFT + _IOC_NRBITS
	_IOC_SIZESHIFT = _IOC_TYPESHIFT + _IOC_TYPEBITS
	_IOC_DIRSHIFT  = _IOC_SIZESHIFT + _IOC_SIZEBITS
)

func _IOC(dir, typ, nr, size uintptr) uintptr {
	return dir<<_IOC_DIRSHIFT |
		typ<<_IOC_TYPESHIFT |
		nr<<_IOC_NRSHIFT |
		size<<_IOC_SIZESHIFT
}

func _IOR(typ, nr, size uintptr) uintptr {
	return _IOC(_IOC_READ, typ, nr, size)
}

func _IOWR(typ, nr, size uintptr) uintptr {
	return _IOC(_IOC_READ|_IOC_WRITE, typ, nr, size)
}

// From the /usr/include/linux/gpio.h header file.
const (
	_GPIO_MAX_NAME_SIZE         = 32
	_GPIO_V2_LINE_NUM_ATTRS_MAX = 10
	_GPIO_V2_LINES_MAX          = 64

	_GPIO_V2_LINE_FLAG_USED           uint64 = 1 << 0
	_GPIO_V2_LINE_FLAG_ACTIVE_LOW     uint64 = 1 << 1
	_GPIO_V2_LINE_FLAG_INPUT          uint64 = 1 << 2
	_GPIO_V2_LINE_FLAG_OUTPUT         uint64 = 1 << 3
	_GPIO_V2_LINE_FLAG_EDGE_RISING    uint64 = 1 << 4
	_GPIO_V2_LINE_FLAG_EDGE_FALLING   uint64 = 1 << 5
	_GPIO_V2_LINE_FLAG_OPEN_DRAIN     uint64 = 1 << 6
	_GPIO_V2_LINE_FLAG_OPEN_SOURCE    uint64 = 1 << 7
	_GPIO_V2_LINE_FLAG_BIAS_PULL_UP   uint64 = 1 << 8
	_GPIO_V2_LINE_FLAG_BIAS_PULL_DOWN uint64 = 1 << 9
	_GPIO_V2_LINE_FLAG_BIAS_DISABLED  uint64 = 1 << 10

	_GPIO_V2_LINE_EVENT_RISING_EDGE  uint32 = 1
	_GPIO_V2_LINE_EVENT_FALLING_EDGE uint32 = 2

	_GPIO_V2_LINE_ATTR_ID_FLAGS         uint32 = 1
	_GPIO_V2_LINE_ATTR_ID_OUTPUT_VALUES uint32 = 2
	_GPIO_V2_LINE_ATTR_ID_DEBOUNCE      uint32 = 3
)

type gpiochip_info struct {
	name  [_GPIO_MAX_NAME_SIZE]byte
	label [_GPIO_MAX_NAME_SIZE]byte
	lines uint32
}

type gpio_v2_line_attribute struct {
	id      uint32
	padding uint32
	// value is a union whose interpretation depends on id.
	value uint64
}

type gpio_v2_line_config_attribute struct {
	attr gpio_v2_line_attribute
	mask uint64
}

type gpio_v2_line_config struct {
	flags     uint64
	num_attrs uint32
	padding   [5]uint32
	attrs     [_GPIO_V2_LINE_NUM_ATTRS_MAX]gpio_v2_line_config_attribute
}

type gpio_v2_line_request struct {
	offsets           [_GPIO_V2_LINES_MAX]uint32
	consumer          [_GPIO_MAX_NAME_SIZE]byte
	config            gpio_v2_line_config
	num_lines         uint32
	event_buffer_size uint32
	padding           [5]uint32
	fd                int32
}

type gpio_v2_line_values struct {
	bits uint64
	mask uint64
}

type gpio_v2_line_info struct {
	name      [_GPIO_MAX_NAME_SIZE]byte
	consumer  [_GPIO_MAX_NAME_SIZE]byte
	offset    uint32
	num_attrs uint32
	flags     uint64
	attrs     [_GPIO_V2_LINE_NUM_ATTRS_MAX]gpio_v2_line_attribute
	padding   [4]uint32
}

// Fields are exported for binary.Read.
type gpio_v2_line_event struct {
	Timestamp_ns uint64
	Id           uint32
	Offset       uint32
	Seqno        uint32
	LineSeqno    uint32
	Padding      [6]uint32
}

var sizeofEvent = int(unsafe.Sizeof(gpio_v2_line_event{}))

var (
	_GPIO_GET_CHIPINFO_IOCTL       = _IOR(0xb4, 0x01, unsafe.Sizeof(gpiochip_info{}))
	_GPIO_V2_GET_LINEINFO_IOCTL    = _IOWR(0xb4, 0x05, unsafe.Sizeof(gpio_v2_line_info{}))
	_GPIO_V2_GET_LINE_IOCTL        = _IOWR(0xb4, 0x07, unsafe.Sizeof(gpio_v2_line_request{}))
	_GPIO_V2_LINE_SET_CONFIG_IOCTL = _IOWR(0xb4, 0x0d, unsafe.Sizeof(gpio_v2_line_config{}))
	_GPIO_V2_LINE_GET_VALUES_IOCTL = _IOWR(0xb4, 0x0e, unsafe.Sizeof(gpio_v2_line_values{}))
	_GPIO_V2_LINE_SET_VALUES_IOCTL = _IOWR(0xb4, 0x0f, unsafe.Sizeof(gpio_v2_line_values{}))
)

func ioctl_gpiochip_info(fd uintptr, data *gpiochip_info) error {
	return ioctl(fd, _GPIO_GET_CHIPINFO_IOCTL, unsafe.Pointer(data))
}

func ioctl_gpio_v2_line_info(fd uintptr, data *gpio_v2_line_info) error {
	return ioctl(fd, _GPIO_V2_GET_LINEINFO_IOCTL, unsafe.Pointer(data))
}

func ioctl_gpio_v2_line_request(fd uintptr, data *gpio_v2_line_request) error {
	return ioctl(fd, _GPIO_V2_GET_LINE_IOCTL, unsafe.Pointer(data))
}

func ioctl_get_gpio_v2_line_values(fd uintptr, data *gpio_v2_line_values) error {
	return ioctl(fd, _GPIO_V2_LINE_GET_VALUES_IOCTL, unsafe.Pointer(data))
}

func ioctl_set_gpio_v2_line_values(fd uintptr, data *gpio_v2_line_values) error {
	return ioctl(fd, _GPIO_V2_LINE_SET_VALUES_IOCTL, unsafe.Pointer(data))
}

// cstring returns the NUL terminated string held in b.
func cstring(b []byte) string {
	if i := bytes.IndexByte(b, 0); i >= 0 {
		b = b[:i]
	}
	return string(b)
}

// lineFlags encodes a request mode and flags as uAPI line flags.
func lineFlags(mode gpiod.Mode, f gpiod.Flags) uint64 {
	var flags uint64
	switch mode {
	case gpiod.ModeOutput:
		flags |= _GPIO_V2_LINE_FLAG_OUTPUT
	case gpiod.ModeRisingEdge:
		flags |= _GPIO_V2_LINE_FLAG_INPUT | _GPIO_V2_LINE_FLAG_EDGE_RISING
	case gpiod.ModeFallingEdge:
		flags |= _GPIO_V2_LINE_FLAG_INPUT | _GPIO_V2_LINE_FLAG_EDGE_FALLING
	case gpiod.ModeBothEdges:
		flags |= _GPIO_V2_LINE_FLAG_INPUT | _GPIO_V2_LINE_FLAG_EDGE_RISING | _GPIO_V2_LINE_FLAG_EDGE_FALLING
	default:
		flags |= _GPIO_V2_LINE_FLAG_INPUT
	}
	if f&gpiod.ActiveLow != 0 {
		flags |= _GPIO_V2_LINE_FLAG_ACTIVE_LOW
	}
	if f&gpiod.OpenDrain != 0 {
		flags |= _GPIO_V2_LINE_FLAG_OPEN_DRAIN
	}
	if f&gpiod.OpenSource != 0 {
		flags |= _GPIO_V2_LINE_FLAG_OPEN_SOURCE
	}
	// Conflicting bias flags are passed through; the kernel rejects them
	// with EINVAL.
	if f&gpiod.BiasPullUp != 0 {
		flags |= _GPIO_V2_LINE_FLAG_BIAS_PULL_UP
	}
	if f&gpiod.BiasPullDown != 0 {
		flags |= _GPIO_V2_LINE_FLAG_BIAS_PULL_DOWN
	}
	if f&gpiod.BiasDisable != 0 {
		flags |= _GPIO_V2_LINE_FLAG_BIAS_DISABLED
	}
	return flags
}

// newLineRequest builds the uAPI request for req.
func newLineRequest(req *gpiod.Request, consumer string) (*gpio_v2_line_request, error) {
	if len(req.Offsets) == 0 || len(req.Offsets) > _GPIO_V2_LINES_MAX {
		return nil, fmt.Errorf("gpioioctl: %d lines in one request", len(req.Offsets))
	}
	var lr gpio_v2_line_request
	if consumer == "" {
		consumer = defaultConsumer
	}
	copy(lr.consumer[:_GPIO_MAX_NAME_SIZE-1], consumer)
	for i, o := range req.Offsets {
		lr.offsets[i] = uint32(o)
	}
	lr.num_lines = uint32(len(req.Offsets))
	lr.config.flags = lineFlags(req.Mode, req.Flags)
	if req.Mode == gpiod.ModeOutput {
		var bits, mask uint64
		for i := range req.Offsets {
			mask |= 1 << uint(i)
			if i < len(req.Values) && req.Values[i] != 0 {
				bits |= 1 << uint(i)
			}
		}
		lr.config.attrs[0] = gpio_v2_line_config_attribute{
			attr: gpio_v2_line_attribute{id: _GPIO_V2_LINE_ATTR_ID_OUTPUT_VALUES, value: bits},
			mask: mask,
		}
		lr.config.num_attrs = 1
	}
	return &lr, nil
}

// decodeLineInfo converts the uAPI line info.
func decodeLineInfo(li *gpio_v2_line_info) gpiod.LineInfo {
	info := gpiod.LineInfo{
		Offset:      int(li.offset),
		Name:        cstring(li.name[:]),
		Consumer:    cstring(li.consumer[:]),
		Used:        li.flags&_GPIO_V2_LINE_FLAG_USED != 0,
		ActiveState: gpiod.ActiveStateHigh,
		Bias:        gpiod.BiasAsIs,
		OpenDrain:   li.flags&_GPIO_V2_LINE_FLAG_OPEN_DRAIN != 0,
		OpenSource:  li.flags&_GPIO_V2_LINE_FLAG_OPEN_SOURCE != 0,
	}
	switch {
	case li.flags&_GPIO_V2_LINE_FLAG_OUTPUT != 0:
		info.Direction = gpiod.DirectionOutput
	case li.flags&_GPIO_V2_LINE_FLAG_INPUT != 0:
		info.Direction = gpiod.DirectionInput
	}
	if li.flags&_GPIO_V2_LINE_FLAG_ACTIVE_LOW != 0 {
		info.ActiveState = gpiod.ActiveStateLow
	}
	switch {
	case li.flags&_GPIO_V2_LINE_FLAG_BIAS_PULL_UP != 0:
		info.Bias = gpiod.BiasPulledUp
	case li.flags&_GPIO_V2_LINE_FLAG_BIAS_PULL_DOWN != 0:
		info.Bias = gpiod.BiasPulledDown
	case li.flags&_GPIO_V2_LINE_FLAG_BIAS_DISABLED != 0:
		info.Bias = gpiod.BiasDisabled
	}
	return info
}

// decodeEvent converts one gpio_v2_line_event read from a request.
func decodeEvent(b []byte) (gpiod.Event, error) {
	var ev gpio_v2_line_event
	if err := binary.Read(bytes.NewReader(b), binary.LittleEndian, &ev); err != nil {
		return gpiod.Event{}, fmt.Errorf("gpioioctl: decoding event: %w", err)
	}
	e := gpiod.Event{Timestamp: time.Duration(ev.Timestamp_ns), Offset: int(ev.Offset)}
	switch ev.Id {
	case _GPIO_V2_LINE_EVENT_RISING_EDGE:
		e.Type = gpiod.EventRisingEdge
	case _GPIO_V2_LINE_EVENT_FALLING_EDGE:
		e.Type = gpiod.EventFallingEdge
	default:
		return gpiod.Event{}, fmt.Errorf("gpioioctl: unknown event id %d", ev.Id)
	}
	return e, nil
}
