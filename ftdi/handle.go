// Copyright 2021 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package ftdi

import (
	"errors"

	"periph.io/x/d2xx"
)

// bitMode is used by SetBitMode to change the chip behavior.
type bitMode uint8

const (
	// Resets all Pins to their default value
	bitModeReset bitMode = 0x00
	// Sets the DBus to asynchronous bit-bang.
	bitModeAsyncBitbang bitMode = 0x01
)

// numDevices returns the number of detected devices.
func numDevices() (int, error) {
	num, e := d2xx.CreateDeviceInfoList()
	if e != 0 {
		return 0, toErr("GetNumDevices initialization failed", e)
	}
	return num, nil
}

func openHandle(opener func(i int) (d2xx.Handle, d2xx.Err), i int) (*handle, error) {
	h, e := opener(i)
	if e != 0 {
		return nil, toErr("Open", e)
	}
	d := &handle{h: h}
	t, vid, did, e := h.GetDeviceInfo()
	if e != 0 {
		_ = d.Close()
		return nil, toErr("GetDeviceInfo", e)
	}
	d.t = DevType(t)
	d.venID = vid
	d.devID = did
	return d, nil
}

// handle is a thin wrapper around the low level d2xx device handle to make it
// more go-idiomatic.
//
// The content of the struct is immutable after initialization.
type handle struct {
	h     d2xx.Handle
	t     DevType
	venID uint16
	devID uint16
}

func (h *handle) Close() error {
	return toErr("Close", h.h.Close())
}

// Init is the general setup for common devices.
//
// It tries first the 'happy path' which doesn't reset the device. By doing so,
// the goal is to reduce the amount of glitches on the GPIO pins, on a best
// effort basis. On all devices, the GPIOs are still reset as inputs, since
// there is no way to determine if each GPIO is an input or output.
func (h *handle) Init() error {
	// Driver: maximum packet size. Note that this clears any data in the buffer,
	// so it is good to do it immediately after a reset. The 'out' parameter is
	// ignored.
	if e := h.h.SetUSBParameters(65536, 0); e != 0 {
		return toErr("SetUSBParameters", e)
	}
	if e := h.h.SetTimeouts(15000, 15000); e != 0 {
		return toErr("SetTimeouts", e)
	}
	// Disable event/error characters.
	if e := h.h.SetChars(0, false, 0, false); e != 0 {
		return toErr("SetChars", e)
	}
	// Latency timer at 1ms.
	if e := h.h.SetLatencyTimer(1); e != 0 {
		return toErr("SetLatencyTimer", e)
	}
	return nil
}

// Reset resets the device.
func (h *handle) Reset() error {
	if e := h.h.ResetDevice(); e != 0 {
		return toErr("Reset", e)
	}
	if err := h.SetBitMode(0, bitModeReset); err != nil {
		return err
	}
	// USB/driver: Flush any pending read buffer that had been sent by the device
	// before it reset. Do not return any error there, as the device may spew a
	// read error right after being initialized.
	_ = h.Flush()
	return nil
}

// GetBitMode returns the instantaneous value of the DBus pins.
func (h *handle) GetBitMode() (byte, error) {
	l, e := h.h.GetBitMode()
	if e != 0 {
		return 0, toErr("GetBitMode", e)
	}
	return l, nil
}

// SetBitMode change the mode of operation of the device.
//
// mask sets which pins are inputs (0) and outputs (1).
func (h *handle) SetBitMode(mask byte, mode bitMode) error {
	return toErr("SetBitMode", h.h.SetBitMode(mask, byte(mode)))
}

// Flush flushes any data left in the read buffer.
func (h *handle) Flush() error {
	var buf [128]byte
	for {
		p, err := h.Read(buf[:])
		if err != nil {
			return err
		}
		if p == 0 {
			return nil
		}
	}
}

// Read returns as much as available in the read buffer without blocking.
func (h *handle) Read(b []byte) (int, error) {
	p, e := h.h.GetQueueStatus()
	if p == 0 || e != 0 {
		return int(p), toErr("Read/GetQueueStatus", e)
	}
	v := int(p)
	if v > len(b) {
		v = len(b)
	}
	n, e := h.h.Read(b[:v])
	return n, toErr("Read", e)
}

// Write blocks until all data is written.
func (h *handle) Write(b []byte) (int, error) {
	for offset := 0; offset != len(b); {
		p, e := h.h.Write(b[offset:])
		if e != 0 {
			return offset + p, toErr("Write", e)
		}
		offset += p
	}
	return len(b), nil
}

func toErr(s string, e d2xx.Err) error {
	if e == 0 {
		return nil
	}
	return errors.New("ftdi: " + s + ": " + e.String())
}
