// Copyright 2024 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package gpioioctl is the gpiod backend for the Linux GPIO character
// device, driven through the uAPI v2 ioctls.
//
// https://docs.kernel.org/userspace-api/gpio/index.html
//
// The driver registers itself with periph.io/x/conn/v3/driver/driverreg and
// adds a Backend to gpiod when /dev holds at least one gpiochip device. A
// Backend can also be used directly:
//
//	chip, err := gpiod.OpenFrom(&gpioioctl.Backend{}, "gpiochip0")
//
// All the lines of a bulk are requested in one ioctl, so their values are
// read and written in a single operation.
package gpioioctl
