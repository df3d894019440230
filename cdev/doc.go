// Copyright 2024 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package cdev is a gpiod backend for the Linux GPIO character device built
// on github.com/warthog618/go-gpiocdev.
//
// The driver only registers itself when the gpioioctl backend did not load,
// so a host has a single backend enumerating /dev/gpiochip*. The Backend can
// always be used directly with gpiod.OpenFrom.
//
// Edge events are delivered by the library on its own goroutine and queued
// until read, so EventFd returns a descriptor owned by the queue rather than
// the kernel request.
package cdev
