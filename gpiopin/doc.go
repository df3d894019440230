// Copyright 2024 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package gpiopin exposes gpiod lines as periph.io/x/conn/v3 gpio pins.
//
// Its driver runs after the gpiod backends and registers every named line of
// every chip in gpioreg, so existing periph code can use them:
//
//	if _, err := host.Init(); err != nil {
//		log.Fatal(err)
//	}
//	led := gpioreg.ByName("GPIO17")
//	led.Out(gpio.High)
package gpiopin
