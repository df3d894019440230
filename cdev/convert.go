//go:build linux

// Copyright 2024 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package cdev

import (
	"github.com/warthog618/go-gpiocdev"

	"periph.io/x/gpiod"
)

// requestOptions translates a request into go-gpiocdev options.
//
// Conflicting bias flags are all passed down and rejected by the kernel.
func requestOptions(req *gpiod.Request) []gpiocdev.LineReqOption {
	var opts []gpiocdev.LineReqOption
	if req.Consumer != "" {
		opts = append(opts, gpiocdev.WithConsumer(req.Consumer))
	}
	switch req.Mode {
	case gpiod.ModeOutput:
		values := make([]int, len(req.Offsets))
		copy(values, req.Values)
		opts = append(opts, gpiocdev.AsOutput(values...))
	case gpiod.ModeRisingEdge:
		opts = append(opts, gpiocdev.AsInput, gpiocdev.WithRisingEdge)
	case gpiod.ModeFallingEdge:
		opts = append(opts, gpiocdev.AsInput, gpiocdev.WithFallingEdge)
	case gpiod.ModeBothEdges:
		opts = append(opts, gpiocdev.AsInput, gpiocdev.WithBothEdges)
	default:
		opts = append(opts, gpiocdev.AsInput)
	}
	f := req.Flags
	if f&gpiod.ActiveLow != 0 {
		opts = append(opts, gpiocdev.AsActiveLow)
	}
	if f&gpiod.OpenDrain != 0 {
		opts = append(opts, gpiocdev.AsOpenDrain)
	}
	if f&gpiod.OpenSource != 0 {
		opts = append(opts, gpiocdev.AsOpenSource)
	}
	if f&gpiod.BiasDisable != 0 {
		opts = append(opts, gpiocdev.WithBiasDisabled)
	}
	if f&gpiod.BiasPullDown != 0 {
		opts = append(opts, gpiocdev.WithPullDown)
	}
	if f&gpiod.BiasPullUp != 0 {
		opts = append(opts, gpiocdev.WithPullUp)
	}
	return opts
}

func convertLineInfo(li gpiocdev.LineInfo) gpiod.LineInfo {
	info := gpiod.LineInfo{
		Offset:      li.Offset,
		Name:        li.Name,
		Consumer:    li.Consumer,
		Used:        li.Used,
		ActiveState: gpiod.ActiveStateHigh,
		Bias:        gpiod.BiasAsIs,
		OpenDrain:   li.Config.Drive == gpiocdev.LineDriveOpenDrain,
		OpenSource:  li.Config.Drive == gpiocdev.LineDriveOpenSource,
	}
	switch li.Config.Direction {
	case gpiocdev.LineDirectionInput:
		info.Direction = gpiod.DirectionInput
	case gpiocdev.LineDirectionOutput:
		info.Direction = gpiod.DirectionOutput
	}
	if li.Config.ActiveLow {
		info.ActiveState = gpiod.ActiveStateLow
	}
	switch li.Config.Bias {
	case gpiocdev.LineBiasDisabled:
		info.Bias = gpiod.BiasDisabled
	case gpiocdev.LineBiasPullUp:
		info.Bias = gpiod.BiasPulledUp
	case gpiocdev.LineBiasPullDown:
		info.Bias = gpiod.BiasPulledDown
	}
	return info
}

func convertEvent(e gpiocdev.LineEvent) (gpiod.Event, bool) {
	ev := gpiod.Event{Timestamp: e.Timestamp, Offset: e.Offset}
	switch e.Type {
	case gpiocdev.LineEventRisingEdge:
		ev.Type = gpiod.EventRisingEdge
	case gpiocdev.LineEventFallingEdge:
		ev.Type = gpiod.EventFallingEdge
	default:
		return gpiod.Event{}, false
	}
	return ev, true
}
