// Copyright 2016 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package sysfs is a gpiod backend over the deprecated /sys/class/gpio
// interface, for kernels without the GPIO character device.
//
// GPIO sysfs is often the only way to do edge triggered interrupts on old
// kernels. Doing this requires cooperation from a driver in the kernel.
package sysfs
