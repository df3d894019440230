// Copyright 2016 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package host

import (
	"testing"

	"github.com/sirupsen/logrus"

	"periph.io/x/gpiod/internal/logging"
)

func TestSetLogLevel(t *testing.T) {
	defer SetLogLevel(logrus.WarnLevel)
	SetLogLevel(logrus.DebugLevel)
	if l := logging.Logger().GetLevel(); l != logrus.DebugLevel {
		t.Errorf("level = %s", l)
	}
}
