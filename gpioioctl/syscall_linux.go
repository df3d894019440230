// Copyright 2024 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package gpioioctl

import (
	"errors"
	"time"
	"unsafe"

	"golang.org/x/sys/unix"
)

const supported = true

func ioctl(fd, req uintptr, arg unsafe.Pointer) error {
	_, _, ep := unix.Syscall(unix.SYS_IOCTL, fd, req, uintptr(arg))
	if ep != 0 {
		return ep
	}
	return nil
}

func closeFd(fd int) error {
	return unix.Close(fd)
}

// waitReadable waits for fd to become readable. A negative timeout waits
// forever, zero polls. Interrupted waits resume with the time left.
func waitReadable(fd int, timeout time.Duration) (bool, error) {
	var deadline time.Time
	if timeout > 0 {
		deadline = time.Now().Add(timeout)
	}
	pfd := []unix.PollFd{{Fd: int32(fd), Events: unix.POLLIN}}
	for {
		var ts *unix.Timespec
		if timeout >= 0 {
			left := time.Duration(0)
			if timeout > 0 {
				if left = time.Until(deadline); left < 0 {
					left = 0
				}
			}
			t := unix.NsecToTimespec(int64(left))
			ts = &t
		}
		n, err := unix.Ppoll(pfd, ts, nil)
		if errors.Is(err, unix.EINTR) {
			continue
		}
		if err != nil {
			return false, err
		}
		if n == 0 {
			return false, nil
		}
		if pfd[0].Revents&(unix.POLLERR|unix.POLLNVAL) != 0 {
			return false, unix.EIO
		}
		return true, nil
	}
}

func readFd(fd int, b []byte) (int, error) {
	for {
		n, err := unix.Read(fd, b)
		if errors.Is(err, unix.EINTR) {
			continue
		}
		return n, err
	}
}
