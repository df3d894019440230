// Copyright 2016 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package host loads the gpiod backends and the periph pin adapter.
package host

import (
	"github.com/sirupsen/logrus"
	"periph.io/x/conn/v3/driver/driverreg"

	// Make sure the backends and the pin adapter are registered.
	_ "periph.io/x/gpiod/cdev"
	_ "periph.io/x/gpiod/ftdi"
	_ "periph.io/x/gpiod/gpioioctl"
	_ "periph.io/x/gpiod/gpiomem"
	_ "periph.io/x/gpiod/gpiopin"
	_ "periph.io/x/gpiod/sysfs"

	"periph.io/x/gpiod/internal/logging"
)

// Init calls driverreg.Init() and returns it as-is.
//
// The only difference is that by calling host.Init(), you are guaranteed to
// have all the backends implemented in this library to be implicitly loaded.
func Init() (*driverreg.State, error) {
	return driverreg.Init()
}

// SetLogLevel sets the level of the log output of all the packages of this
// module. The default is logrus.WarnLevel.
func SetLogLevel(level logrus.Level) {
	logging.SetLevel(level)
}
