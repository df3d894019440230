//go:build linux

// Copyright 2024 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package cdev

import (
	"errors"

	"periph.io/x/conn/v3/driver/driverreg"

	"periph.io/x/gpiod"
	"periph.io/x/gpiod/gpioioctl"
	"periph.io/x/gpiod/internal/logging"
)

var log = logging.For("cdev")

type driverCdev struct {
	backend Backend
}

func (d *driverCdev) String() string {
	return "cdev"
}

func (d *driverCdev) Prerequisites() []string {
	return nil
}

func (d *driverCdev) After() []string {
	return []string{"gpioioctl"}
}

func (d *driverCdev) Init() (bool, error) {
	if gpioioctl.Loaded() {
		return false, errors.New("gpioioctl backend already loaded")
	}
	names, _ := d.backend.ChipNames()
	if len(names) == 0 {
		return false, errors.New("no GPIO chips found")
	}
	if err := gpiod.Register(&d.backend); err != nil {
		return true, err
	}
	log.Debugf("found %v", names)
	return true, nil
}

func init() {
	driverreg.MustRegister(&driverCdev{})
}
