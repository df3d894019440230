// Copyright 2024 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package gpiod_test

import (
	"fmt"
	"log"
	"time"

	"periph.io/x/gpiod"
	"periph.io/x/gpiod/gpiosim"
)

func Example() {
	sim, err := gpiosim.NewSim(gpiosim.WithBank(gpiosim.NewBank("demo", 8,
		gpiosim.WithNamedLine(3, "LED0"),
		gpiosim.WithNamedLine(5, "BUTTON1"),
	)))
	if err != nil {
		log.Fatal(err)
	}
	defer sim.Close()

	chip, err := gpiod.OpenFrom(sim, "0")
	if err != nil {
		log.Fatal(err)
	}
	defer chip.Close()

	led, err := chip.FindLine("LED0")
	if err != nil || led == nil {
		log.Fatal("no LED0")
	}
	if err := led.RequestOutput("example", 1); err != nil {
		log.Fatal(err)
	}
	v, _ := led.Value()
	fmt.Println("LED0:", v)

	button, _ := chip.FindLine("BUTTON1")
	if err := button.RequestFallingEdgeEvents("example", gpiod.BiasPullUp); err != nil {
		log.Fatal(err)
	}
	_ = sim.Chips[0].Pulldown(5)
	if ok, _ := button.EventWait(time.Second); ok {
		e, _ := button.EventRead()
		fmt.Println("BUTTON1:", e.Type)
	}
	// Output:
	// LED0: 1
	// BUTTON1: falling_edge
}

func ExampleChipIter() {
	sim, err := gpiosim.NewSim(
		gpiosim.WithBank(gpiosim.NewBank("left", 8)),
		gpiosim.WithBank(gpiosim.NewBank("right", 42)),
	)
	if err != nil {
		log.Fatal(err)
	}
	defer sim.Close()

	it, err := gpiod.NewChipIterFrom(sim)
	if err != nil {
		log.Fatal(err)
	}
	defer it.Close()
	for {
		c, err := it.NextClosing()
		if err != nil {
			continue
		}
		if c == nil {
			break
		}
		n, _ := c.NumLines()
		fmt.Printf("%s: %d lines\n", c, n)
	}
	// Output:
	// gpiochip0 [left]: 8 lines
	// gpiochip1 [right]: 42 lines
}
