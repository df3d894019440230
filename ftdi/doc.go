// Copyright 2017 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package ftdi is a gpiod backend for the DBus of FTDI USB bridges
// (FT232R, FT232H and friends) in asynchronous bit-bang mode.
//
// Use build tag periph_host_ftdi_debug to log every d2xx call at debug level.
//
// # More details
//
// See https://periph.io/device/ftdi/ for how to configure the host to be able
// to use this driver.
//
// # Datasheets
//
// http://www.ftdichip.com/Support/Documents/AppNotes/AN_232R-01_Bit_Bang_Mode_Available_For_FT232R_and_Ft245R.pdf
//
// http://www.ftdichip.com/Support/Documents/DataSheets/ICs/DS_FT232R.pdf
package ftdi
