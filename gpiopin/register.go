// Copyright 2024 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package gpiopin

import (
	"errors"
	"fmt"
	"os"
	"path"
	"sync"

	"periph.io/x/conn/v3/driver/driverreg"
	"periph.io/x/conn/v3/gpio/gpioreg"

	"periph.io/x/gpiod"
	"periph.io/x/gpiod/internal/logging"
)

var log = logging.For("gpiopin")

// Consumer is used for the requests made by registered pins.
var Consumer = path.Base(os.Args[0])

// RegisterChip adds the named lines of c to gpioreg and returns the
// registered pins.
//
// Lines without a reasonable name are skipped. A name already registered is
// prefixed with the chip name ("gpiochip1-2712_WAKE"); if that is still not
// unique the line is skipped.
func RegisterChip(c *gpiod.Chip) ([]*Pin, error) {
	chipName, err := c.Name()
	if err != nil {
		return nil, err
	}
	n, err := c.NumLines()
	if err != nil {
		return nil, err
	}
	registered := make(map[string]struct{})
	for _, p := range gpioreg.All() {
		registered[p.Name()] = struct{}{}
	}
	var out []*Pin
	for i := 0; i < n; i++ {
		l, err := c.Line(i)
		if err != nil {
			return out, err
		}
		name, err := l.Name()
		if err != nil {
			return out, err
		}
		if name == "" || name == "_" || name == "-" {
			continue
		}
		if _, ok := registered[name]; ok {
			// On the Pi5, there are at least two chips that export "2712_WAKE".
			name = chipName + "-" + name
			if _, found := registered[name]; found {
				log.Debugf("%s: skipping duplicate line %s", chipName, name)
				continue
			}
		}
		p := New(l, name, Consumer)
		if err := gpioreg.Register(p); err != nil {
			log.Warnf("%s: registering %s: %v", chipName, name, err)
			continue
		}
		registered[name] = struct{}{}
		out = append(out, p)
	}
	return out, nil
}

// Unregister removes pins from gpioreg and releases their lines.
func Unregister(pins []*Pin) error {
	var errs []error
	for _, p := range pins {
		p.Close()
		if err := gpioreg.Unregister(p.Name()); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// driver registers the lines of every chip of the gpiod backends.
type driver struct {
	mu    sync.Mutex
	chips []*gpiod.Chip
}

func (d *driver) String() string {
	return "gpiopin"
}

func (d *driver) Prerequisites() []string {
	return nil
}

func (d *driver) After() []string {
	return []string{"gpioioctl", "cdev", "gpiomem", "sysfs-gpio", "ftdi"}
}

func (d *driver) Init() (bool, error) {
	if len(gpiod.Backends()) == 0 {
		return false, errors.New("no gpiod backend loaded")
	}
	it, err := gpiod.NewChipIter()
	if err != nil {
		return true, err
	}
	defer it.Close()
	d.mu.Lock()
	defer d.mu.Unlock()
	for {
		c, err := it.Next()
		if err != nil {
			// The iterator moved past the chip.
			continue
		}
		if c == nil {
			break
		}
		pins, err := RegisterChip(c)
		if err != nil {
			c.Close()
			return true, fmt.Errorf("gpiopin: %s: %w", c, err)
		}
		log.Debugf("%s: registered %d lines", c, len(pins))
		d.chips = append(d.chips, c)
	}
	return len(d.chips) > 0, nil
}

var drv driver

func init() {
	driverreg.MustRegister(&drv)
}
