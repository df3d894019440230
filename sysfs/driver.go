//go:build linux

// Copyright 2016 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package sysfs

import (
	"errors"
	"os"
	"path/filepath"

	"periph.io/x/conn/v3/driver/driverreg"

	"periph.io/x/gpiod"
	"periph.io/x/gpiod/internal/logging"
)

var log = logging.For("sysfs")

// driverGPIO implements periph.Driver.
type driverGPIO struct {
	backend Backend
}

func (d *driverGPIO) String() string {
	return "sysfs-gpio"
}

func (d *driverGPIO) Prerequisites() []string {
	return nil
}

func (d *driverGPIO) After() []string {
	return []string{"gpioioctl", "cdev", "gpiomem"}
}

// Init registers the sysfs backend when no character device backend loaded.
func (d *driverGPIO) Init() (bool, error) {
	if bs := gpiod.Backends(); len(bs) != 0 {
		return false, errors.New("a GPIO character device backend is loaded")
	}
	names, err := d.backend.ChipNames()
	if err != nil {
		return true, err
	}
	if len(names) == 0 {
		return false, errors.New("no GPIO pin found")
	}
	if _, err := os.Stat(filepath.Join(d.backend.root(), "export")); err != nil {
		if os.IsPermission(err) {
			return true, errors.New("need more access, try as root or setup udev rules")
		}
		return true, err
	}
	return true, gpiod.Register(&d.backend)
}

func init() {
	driverreg.MustRegister(&drvGPIO)
}

var drvGPIO driverGPIO
