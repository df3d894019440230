// Copyright 2024 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package gpiod

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"

	"gopkg.in/yaml.v2"
)

// BulkConfig describes a bulk request in YAML:
//
//	chip: gpiochip0
//	consumer: relays
//	lines: [RELAY1, RELAY2, "17"]
//	mode: output
//	flags: [active_low]
//	values: [0, 1, 0]
//
// Lines are matched by name first; an entry that is not the name of a line
// and is a decimal number is used as an offset.
type BulkConfig struct {
	Chip     string   `yaml:"chip"`
	Consumer string   `yaml:"consumer"`
	Lines    []string `yaml:"lines"`
	Mode     string   `yaml:"mode"`
	Flags    []string `yaml:"flags"`
	Values   []int    `yaml:"values"`
}

// LoadBulkConfig decodes a BulkConfig.
func LoadBulkConfig(r io.Reader) (*BulkConfig, error) {
	c := &BulkConfig{Mode: "input"}
	if err := yaml.NewDecoder(r).Decode(c); err != nil {
		return nil, fmt.Errorf("gpiod: decoding bulk config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// LoadBulkConfigFile decodes the BulkConfig stored in path.
func LoadBulkConfigFile(path string) (*BulkConfig, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("gpiod: reading bulk config %q: %w", path, err)
	}
	defer func() { _ = f.Close() }()
	return LoadBulkConfig(f)
}

// Validate checks the fields that do not need a chip.
func (c *BulkConfig) Validate() error {
	if c.Chip == "" {
		return errors.New("gpiod: bulk config: chip is required")
	}
	if len(c.Lines) == 0 {
		return errors.New("gpiod: bulk config: no lines")
	}
	m, err := ParseMode(c.Mode)
	if err != nil {
		return fmt.Errorf("gpiod: bulk config: %w", err)
	}
	if m == ModeOutput && c.Values != nil && len(c.Values) != len(c.Lines) {
		return fmt.Errorf("gpiod: bulk config: %d values for %d lines", len(c.Values), len(c.Lines))
	}
	if _, err := c.flags(); err != nil {
		return fmt.Errorf("gpiod: bulk config: %w", err)
	}
	return nil
}

func (c *BulkConfig) flags() (Flags, error) {
	var f Flags
	for _, s := range c.Flags {
		v, err := ParseFlags(s)
		if err != nil {
			return 0, err
		}
		f |= v
	}
	return f, nil
}

// Request opens the chip, resolves the lines and requests them.
//
// On success the caller owns the chip; closing it releases the bulk. An
// output request without values drives every line inactive.
func (c *BulkConfig) Request() (*Chip, *Bulk, error) {
	if err := c.Validate(); err != nil {
		return nil, nil, err
	}
	m, _ := ParseMode(c.Mode)
	flags, _ := c.flags()
	chip, err := Open(c.Chip)
	if err != nil {
		return nil, nil, err
	}
	b, err := c.request(chip, m, flags)
	if err != nil {
		chip.Close()
		return nil, nil, err
	}
	return chip, b, nil
}

func (c *BulkConfig) request(chip *Chip, m Mode, flags Flags) (*Bulk, error) {
	offsets := make([]int, 0, len(c.Lines))
	for _, name := range c.Lines {
		l, err := chip.FindLine(name)
		if err != nil {
			return nil, err
		}
		if l != nil {
			offsets = append(offsets, l.offset)
			continue
		}
		n, err := strconv.Atoi(name)
		if err != nil {
			return nil, newError("BulkConfig.Request", InvalidOffset, fmt.Sprintf("no line named %q on %s", name, chip))
		}
		offsets = append(offsets, n)
	}
	b, err := chip.Lines(offsets...)
	if err != nil {
		return nil, err
	}
	switch m {
	case ModeInput:
		err = b.RequestInput(c.Consumer, flags)
	case ModeOutput:
		values := c.Values
		if values == nil {
			values = make([]int, len(offsets))
		}
		err = b.RequestOutput(c.Consumer, values, flags)
	case ModeRisingEdge:
		err = b.RequestRisingEdgeEvents(c.Consumer, flags)
	case ModeFallingEdge:
		err = b.RequestFallingEdgeEvents(c.Consumer, flags)
	case ModeBothEdges:
		err = b.RequestBothEdgesEvents(c.Consumer, flags)
	}
	if err != nil {
		return nil, err
	}
	return b, nil
}
