// Copyright 2024 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package gpiod models GPIO chips and lines as handles with an explicit
// request state.
//
// A Chip is opened by name or number through one of the registered
// backends. Lines of the chip are obtained with Line, Lines, FindLine or
// AllLines and are free until requested as an input, an output or an edge
// event source. A requested line is read with Value, driven with SetValue
// and, for event requests, waited on with EventWait and drained with
// EventRead. Closing a chip releases every line requested through it.
//
// Backends live in the subpackages of this module. Importing
// periph.io/x/gpiod/host and calling host.Init loads the ones available on
// the running system:
//
//	if _, err := host.Init(); err != nil {
//		log.Fatal(err)
//	}
//	chip, err := gpiod.Open("gpiochip0")
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer chip.Close()
//	led, err := chip.Line(17)
//	...
//	if err := led.RequestOutput("blink", 1); err != nil {
//		log.Fatal(err)
//	}
//
// Handles are not safe for concurrent use.
package gpiod

// Version returns the version of the module.
func Version() string {
	return "1.0.0"
}
