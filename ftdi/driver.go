// Copyright 2018 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package ftdi

import (
	"errors"

	"periph.io/x/conn/v3/driver/driverreg"
	"periph.io/x/d2xx"

	"periph.io/x/gpiod"
	"periph.io/x/gpiod/internal/logging"
)

var log = logging.For("ftdi")

// driver implements driver.Impl.
type driver struct {
	backend *Backend
}

func (d *driver) String() string {
	return "ftdi"
}

func (d *driver) Prerequisites() []string {
	return nil
}

func (d *driver) After() []string {
	return nil
}

// Init registers the backend when at least one device is connected.
func (d *driver) Init() (bool, error) {
	names, err := d.backend.ChipNames()
	if err != nil {
		return true, err
	}
	if len(names) == 0 {
		return false, errors.New("no FTDI device found")
	}
	return true, gpiod.Register(d.backend)
}

func init() {
	if d2xx.Available {
		drv.backend = NewBackend()
		driverreg.MustRegister(&drv)
	}
}

var drv driver
