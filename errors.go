// Copyright 2024 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package gpiod

import (
	"errors"
	"syscall"
)

// Kind classifies a failure reported by this package.
//
// A Kind is itself an error so callers can test for it with errors.Is:
//
//	if errors.Is(err, gpiod.LineUnavailable) { ... }
type Kind int

const (
	// OpenFailure means neither the name nor the numeral fallback opened a chip.
	OpenFailure Kind = iota + 1
	// InvalidOffset means an offset or bulk index is out of range, or repeated.
	InvalidOffset
	// LineUnavailable means the line is already held by a consumer.
	LineUnavailable
	// ReleasedHandleUse means the line is not requested or its chip is closed.
	ReleasedHandleUse
	// BulkSizeMismatch means a values or offsets list does not fit the bulk.
	BulkSizeMismatch
	// ModeError means the operation is not valid in the current request state.
	ModeError
	// IOError is any other failure of the underlying facility.
	IOError
	// InvalidFlags means the request flags cannot be combined.
	InvalidFlags
	// NoEventPending means EventRead was called with no event queued.
	NoEventPending
)

var kindNames = map[Kind]string{
	OpenFailure:       "open failure",
	InvalidOffset:     "invalid offset",
	LineUnavailable:   "line unavailable",
	ReleasedHandleUse: "released handle use",
	BulkSizeMismatch:  "bulk size mismatch",
	ModeError:         "mode error",
	IOError:           "i/o error",
	InvalidFlags:      "invalid flags",
	NoEventPending:    "no event pending",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return "unknown error"
}

// Error implements error.
func (k Kind) Error() string {
	return "gpiod: " + k.String()
}

// Error is the error type returned by every failing operation of this
// package.
//
// Detail describes the failure of the underlying facility, when there is one.
// The facility error itself is not retained.
type Error struct {
	Op     string
	Kind   Kind
	Detail string
}

func (e *Error) Error() string {
	s := "gpiod: " + e.Op + ": " + e.Kind.String()
	if e.Detail != "" {
		s += ": " + e.Detail
	}
	return s
}

// Is reports whether target is the Kind of e.
func (e *Error) Is(target error) bool {
	k, ok := target.(Kind)
	return ok && k == e.Kind
}

// KindOf returns the Kind of err, or 0 if err was not produced by this
// package.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	var k Kind
	if errors.As(err, &k) {
		return k
	}
	return 0
}

func newError(op string, kind Kind, detail string) error {
	return &Error{Op: op, Kind: kind, Detail: detail}
}

// wrapBackend converts a backend failure into an *Error.
//
// A backend may return a Kind (or an *Error) to choose the classification
// itself; otherwise a busy errno becomes LineUnavailable and everything else
// becomes def.
func wrapBackend(op string, def Kind, err error) error {
	if err == nil {
		return nil
	}
	kind := def
	switch {
	case KindOf(err) != 0:
		kind = KindOf(err)
	case errors.Is(err, syscall.EBUSY):
		kind = LineUnavailable
	}
	return &Error{Op: op, Kind: kind, Detail: detailOf(err)}
}

// wrapRequest is wrapBackend for line requests, where an invalid argument
// errno means the facility refused the flags.
func wrapRequest(op string, err error) error {
	if KindOf(err) == 0 && errors.Is(err, syscall.EINVAL) {
		return &Error{Op: op, Kind: InvalidFlags, Detail: err.Error()}
	}
	return wrapBackend(op, IOError, err)
}

func detailOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Detail
	}
	var k Kind
	if errors.As(err, &k) && err == error(k) {
		return ""
	}
	return err.Error()
}
