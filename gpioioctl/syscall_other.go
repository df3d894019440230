//go:build !linux

// Copyright 2024 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package gpioioctl

import (
	"time"
	"unsafe"
)

const supported = false

func ioctl(fd, req uintptr, arg unsafe.Pointer) error {
	return errUnsupported
}

func closeFd(fd int) error {
	return errUnsupported
}

func waitReadable(fd int, timeout time.Duration) (bool, error) {
	return false, errUnsupported
}

func readFd(fd int, b []byte) (int, error) {
	return 0, errUnsupported
}
