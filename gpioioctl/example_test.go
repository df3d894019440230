// Copyright 2024 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package gpioioctl_test

import (
	"fmt"
	"log"

	"periph.io/x/gpiod"
	"periph.io/x/gpiod/gpioioctl"
)

func Example() {
	chip, err := gpiod.OpenFrom(&gpioioctl.Backend{}, "gpiochip0")
	if err != nil {
		log.Fatal(err)
	}
	defer chip.Close()
	fmt.Println(chip)

	// Read three lines in one operation.
	b, err := chip.Lines(17, 27, 22)
	if err != nil {
		log.Fatal(err)
	}
	if err := b.RequestInput("example", gpiod.BiasPullUp); err != nil {
		log.Fatal(err)
	}
	defer b.Release()
	values, err := b.Values()
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println(values)
}
