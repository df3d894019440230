// Copyright 2024 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package gpiopin

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/pin"

	"periph.io/x/gpiod"
)

// waitSlice bounds each wait on the line so Halt is noticed.
const waitSlice = 50 * time.Millisecond

// Pin exposes a gpiod line as a periph gpio.PinIO.
//
// The line is requested on first use: In requests it as input or as an edge
// source, Out as output. Switching direction releases the previous request.
type Pin struct {
	line     *gpiod.Line
	name     string
	consumer string
	halted   atomic.Int32

	mu   sync.Mutex
	pull gpio.Pull
	edge gpio.Edge
}

// New returns a Pin over l. Requests use consumer.
func New(l *gpiod.Line, name, consumer string) *Pin {
	return &Pin{line: l, name: name, consumer: consumer, pull: gpio.PullNoChange}
}

// Line returns the underlying line.
func (p *Pin) Line() *gpiod.Line {
	return p.line
}

// String implements conn.Resource.
func (p *Pin) String() string {
	return p.name
}

// Halt interrupts a pending WaitForEdge.
func (p *Pin) Halt() error {
	p.halted.Add(1)
	return nil
}

// Name implements pin.Pin.
func (p *Pin) Name() string {
	return p.name
}

// Number returns the line offset on its chip. Implements pin.Pin.
func (p *Pin) Number() int {
	o, _ := p.line.Offset()
	return o
}

// Deprecated: Use PinFunc.Func. Will be removed in v4. Function implements pin.Pin.
func (p *Pin) Function() string {
	return string(p.Func())
}

// Func implements pin.PinFunc.
func (p *Pin) Func() pin.Func {
	switch p.line.Mode() {
	case gpiod.ModeInput, gpiod.ModeRisingEdge, gpiod.ModeFallingEdge, gpiod.ModeBothEdges:
		if p.Read() {
			return gpio.IN_HIGH
		}
		return gpio.IN_LOW
	case gpiod.ModeOutput:
		if p.Read() {
			return gpio.OUT_HIGH
		}
		return gpio.OUT_LOW
	}
	return pin.FuncNone
}

// SupportedFuncs implements pin.PinFunc.
func (p *Pin) SupportedFuncs() []pin.Func {
	return []pin.Func{gpio.IN, gpio.OUT}
}

// SetFunc implements pin.PinFunc.
func (p *Pin) SetFunc(f pin.Func) error {
	switch f {
	case gpio.IN:
		return p.In(gpio.PullNoChange, gpio.NoEdge)
	case gpio.OUT_HIGH:
		return p.Out(gpio.High)
	case gpio.OUT, gpio.OUT_LOW:
		return p.Out(gpio.Low)
	default:
		return p.wrap(errors.New("unsupported function"))
	}
}

// In implements gpio.PinIn.
func (p *Pin) In(pull gpio.Pull, edge gpio.Edge) error {
	var flags gpiod.Flags
	switch pull {
	case gpio.Float:
		flags = gpiod.BiasDisable
	case gpio.PullDown:
		flags = gpiod.BiasPullDown
	case gpio.PullUp:
		flags = gpiod.BiasPullUp
	case gpio.PullNoChange:
	default:
		return p.wrap(fmt.Errorf("unknown pull %s", pull))
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.line.Release()
	var err error
	switch edge {
	case gpio.NoEdge:
		err = p.line.RequestInput(p.consumer, flags)
	case gpio.RisingEdge:
		err = p.line.RequestRisingEdgeEvents(p.consumer, flags)
	case gpio.FallingEdge:
		err = p.line.RequestFallingEdgeEvents(p.consumer, flags)
	case gpio.BothEdges:
		err = p.line.RequestBothEdgesEvents(p.consumer, flags)
	default:
		err = fmt.Errorf("unknown edge %s", edge)
	}
	if err != nil {
		return p.wrap(err)
	}
	p.pull = pull
	p.edge = edge
	return nil
}

// Read implements gpio.PinIn.
//
// An unrequested line is requested as input first.
func (p *Pin) Read() gpio.Level {
	if p.line.Mode() == gpiod.ModeNone {
		if err := p.In(gpio.PullNoChange, gpio.NoEdge); err != nil {
			log.Debug(err)
			return gpio.Low
		}
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	v, err := p.line.Value()
	if err != nil {
		log.Debug(p.wrap(err))
		return gpio.Low
	}
	return v == 1
}

// WaitForEdge implements gpio.PinIn.
//
// A negative timeout waits forever. The event is consumed.
func (p *Pin) WaitForEdge(timeout time.Duration) bool {
	halted := p.halted.Load()
	var deadline time.Time
	if timeout >= 0 {
		deadline = time.Now().Add(timeout)
	}
	for {
		slice := waitSlice
		if timeout >= 0 {
			if left := time.Until(deadline); left < slice {
				slice = left
			}
			if slice < 0 {
				slice = 0
			}
		}
		ok, err := p.wait(slice)
		if err != nil {
			log.Debug(p.wrap(err))
			return false
		}
		if ok {
			return true
		}
		if p.halted.Load() != halted {
			return false
		}
		if timeout >= 0 && !time.Now().Before(deadline) {
			return false
		}
	}
}

func (p *Pin) wait(timeout time.Duration) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	ok, err := p.line.EventWait(timeout)
	if !ok || err != nil {
		return false, err
	}
	if _, err := p.line.EventRead(); err != nil {
		return false, err
	}
	return true, nil
}

// Pull implements gpio.PinIn.
func (p *Pin) Pull() gpio.Pull {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.pull
}

// DefaultPull implements gpio.PinIn.
//
// The reset bias is not exposed by the kernel.
func (p *Pin) DefaultPull() gpio.Pull {
	return gpio.PullNoChange
}

// Out implements gpio.PinOut.
func (p *Pin) Out(l gpio.Level) error {
	v := 0
	if l {
		v = 1
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.line.Mode() != gpiod.ModeOutput {
		p.line.Release()
		if err := p.line.RequestOutput(p.consumer, v); err != nil {
			return p.wrap(err)
		}
		p.pull = gpio.PullNoChange
		p.edge = gpio.NoEdge
		return nil
	}
	if err := p.line.SetValue(v); err != nil {
		return p.wrap(err)
	}
	return nil
}

// PWM implements gpio.PinOut.
//
// This is not supported.
func (p *Pin) PWM(gpio.Duty, physic.Frequency) error {
	return p.wrap(errors.New("pwm is not supported"))
}

// Close releases the line.
func (p *Pin) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.line.Release()
	p.pull = gpio.PullNoChange
	p.edge = gpio.NoEdge
}

func (p *Pin) MarshalJSON() ([]byte, error) {
	p.mu.Lock()
	edge := p.edge
	pull := p.pull
	p.mu.Unlock()
	consumer, _ := p.line.Consumer()
	return json.Marshal(struct {
		Line     int    `json:"Line"`
		Name     string `json:"Name"`
		Consumer string `json:"Consumer"`
		Mode     string `json:"Mode"`
		Pull     string `json:"Pull"`
		Edge     string `json:"Edge"`
	}{
		Line:     p.Number(),
		Name:     p.name,
		Consumer: consumer,
		Mode:     p.line.Mode().String(),
		Pull:     pull.String(),
		Edge:     edge.String(),
	})
}

func (p *Pin) wrap(err error) error {
	return fmt.Errorf("gpiopin (%s): %w", p, err)
}

// Ensure that Interfaces for these types are implemented fully.
var _ gpio.PinIO = &Pin{}
var _ gpio.PinIn = &Pin{}
var _ gpio.PinOut = &Pin{}
var _ pin.PinFunc = &Pin{}
