// Copyright 2021 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

//go:build periph_host_ftdi_debug

package ftdi

import (
	"periph.io/x/d2xx"
	"periph.io/x/d2xx/d2xxtest"
)

// resetLog wraps the handles to log every d2xx call when the build tag
// periph_host_ftdi_debug is specified.
func (b *Backend) resetLog() {
	open := b.open
	b.open = func(i int) (d2xx.Handle, d2xx.Err) {
		h, e := open(i)
		if e != 0 {
			return h, e
		}
		return &d2xxtest.Log{H: h, Printf: log.Debugf}, e
	}
}
