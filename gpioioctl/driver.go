// Copyright 2024 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package gpioioctl

import (
	"errors"
	"fmt"
	"os"
	"path"

	"periph.io/x/conn/v3/driver/driverreg"

	"periph.io/x/gpiod"
	"periph.io/x/gpiod/internal/logging"
)

var log = logging.For("gpioioctl")

// defaultConsumer is used for requests made without a consumer. It lets
// utility programs like gpioinfo find out who holds a line.
var defaultConsumer string

// driverGPIO implements periph.Driver.
type driverGPIO struct {
	backend Backend
}

func (d *driverGPIO) String() string {
	return "gpioioctl"
}

func (d *driverGPIO) Prerequisites() []string {
	return nil
}

func (d *driverGPIO) After() []string {
	return nil
}

// Init registers the character device backend when at least one chip is
// present.
//
// https://docs.kernel.org/userspace-api/gpio/chardev.html
func (d *driverGPIO) Init() (bool, error) {
	if !supported {
		return false, errors.New("gpioioctl: not supported on this OS")
	}
	names, err := d.backend.ChipNames()
	if err != nil {
		return true, err
	}
	if len(names) == 0 {
		return false, errors.New("no GPIO chips found")
	}
	if err := gpiod.Register(&d.backend); err != nil {
		return true, fmt.Errorf("gpioioctl: %w", err)
	}
	log.Debugf("found %v", names)
	return true, nil
}

var drvGPIO driverGPIO

func init() {
	s := fmt.Sprintf("%s@%d", path.Base(os.Args[0]), os.Getpid())
	if len(s) >= _GPIO_MAX_NAME_SIZE {
		s = s[:_GPIO_MAX_NAME_SIZE-1]
	}
	defaultConsumer = s

	driverreg.MustRegister(&drvGPIO)
}

// Loaded reports whether the driver registered its backend.
func Loaded() bool {
	for _, b := range gpiod.Backends() {
		if b == gpiod.Backend(&drvGPIO.backend) {
			return true
		}
	}
	return false
}

var _ gpiod.Backend = &Backend{}
