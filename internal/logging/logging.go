// Copyright 2024 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package logging holds the logger shared by every package of the module.
//
// Entries carry a "prefix" field naming the emitting package, which the
// prefixed text formatter renders in front of the message.
package logging

import (
	"sync"

	prefixed "github.com/BertoldVdb/logrus-prefixed-formatter"
	"github.com/sirupsen/logrus"
)

var (
	once   sync.Once
	logger *logrus.Logger
)

// Logger returns the shared logger. It defaults to the warning level.
func Logger() *logrus.Logger {
	once.Do(func() {
		logger = logrus.New()
		logger.SetLevel(logrus.WarnLevel)
		f := new(prefixed.TextFormatter)
		f.TimestampFormat = "2006-01-02 15:04:05"
		f.FullTimestamp = true
		f.PrefixPadding = 12
		f.SpacePadding = 50
		logger.SetFormatter(f)
	})
	return logger
}

// For returns an entry tagged with prefix.
func For(prefix string) *logrus.Entry {
	return Logger().WithField("prefix", prefix)
}

// SetLevel changes the level of the shared logger.
func SetLevel(level logrus.Level) {
	Logger().SetLevel(level)
}
