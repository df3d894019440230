// Copyright 2024 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package gpiomem is a gpiod backend for the Broadcom SoC of the Raspberry Pi
// through the memory mapped /dev/gpiomem device, using
// github.com/warthog618/gpio.
//
// It exposes a single chip named "gpiomem" with the 54 BCM GPIO lines named
// GPIO0 to GPIO53. It is only loaded when no character device backend is
// available. Edge events rely on the sysfs interrupt interface and are
// delivered through a queue.
package gpiomem
