// Copyright 2018 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package ftdi_test

import (
	"log"

	"periph.io/x/gpiod"
	"periph.io/x/gpiod/ftdi"
)

func Example() {
	chip, err := gpiod.OpenFrom(ftdi.NewBackend(), "ftdi0")
	if err != nil {
		log.Fatal(err)
	}
	defer chip.Close()
	dtr, err := chip.FindLine("DTR")
	if err != nil || dtr == nil {
		log.Fatal("no DTR line")
	}
	// DTR is active low on most boards.
	if err := dtr.RequestOutput("example", 1, gpiod.ActiveLow); err != nil {
		log.Fatal(err)
	}
	defer dtr.Release()
}
