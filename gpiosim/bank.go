// Copyright 2024 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package gpiosim

// Bank describes one simulated chip.
type Bank struct {
	// NumLines is the number of lines of the chip.
	NumLines int

	// Label is the label of the chip. A random one is used when empty.
	Label string

	// Names of lines. Names do not need to be unique.
	Names map[int]string

	// Hogs are lines that appear held by another consumer.
	Hogs map[int]Hog
}

// NewBank returns a Bank with numLines lines.
func NewBank(label string, numLines int, options ...BankOption) *Bank {
	b := &Bank{Label: label, NumLines: numLines}
	for _, o := range options {
		o(b)
	}
	return b
}

// BankOption configures a Bank.
type BankOption func(*Bank)

// WithNamedLine names the line at offset.
func WithNamedLine(offset int, name string) BankOption {
	return func(b *Bank) {
		if b.Names == nil {
			b.Names = map[int]string{}
		}
		b.Names[offset] = name
	}
}

// WithHoggedLine marks the line at offset as held by consumer.
func WithHoggedLine(offset int, consumer string, dir HogDirection) BankOption {
	return func(b *Bank) {
		if b.Hogs == nil {
			b.Hogs = map[int]Hog{}
		}
		b.Hogs[offset] = Hog{Consumer: consumer, Direction: dir}
	}
}

// Hog is another user of a line.
type Hog struct {
	Consumer  string
	Direction HogDirection
}

// HogDirection is the direction a hogged line is held in.
type HogDirection int

const (
	HogDirectionInput HogDirection = iota
	HogDirectionOutputLow
	HogDirectionOutputHigh
)
