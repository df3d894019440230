//go:build linux

// Copyright 2024 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package gpiomem

import (
	"errors"

	"periph.io/x/conn/v3/driver/driverreg"

	"periph.io/x/gpiod"
	"periph.io/x/gpiod/internal/logging"
)

var log = logging.For("gpiomem")

type driverGPIO struct {
	backend Backend
}

func (d *driverGPIO) String() string {
	return "gpiomem"
}

func (d *driverGPIO) Prerequisites() []string {
	return nil
}

func (d *driverGPIO) After() []string {
	return []string{"gpioioctl", "cdev"}
}

// Init registers the backend on a Raspberry Pi without GPIO character
// devices.
func (d *driverGPIO) Init() (bool, error) {
	if len(gpiod.Backends()) != 0 {
		return false, errors.New("a GPIO character device backend is loaded")
	}
	names, err := d.backend.ChipNames()
	if err != nil {
		return true, err
	}
	if len(names) == 0 {
		return false, errors.New("no " + d.backend.path())
	}
	return true, gpiod.Register(&d.backend)
}

func init() {
	driverreg.MustRegister(&drvGPIO)
}

var drvGPIO driverGPIO
