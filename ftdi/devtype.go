// Copyright 2017 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package ftdi

// DevType is the FTDI device type.
type DevType uint32

const (
	DevTypeFTBM DevType = iota // 0
	DevTypeFTAM
	DevTypeFT100AX
	DevTypeUnknown // 3
	DevTypeFT2232C
	DevTypeFT232R // 5
	DevTypeFT2232H
	DevTypeFT4232H
	DevTypeFT232H // 8
	DevTypeFTXSeries
	DevTypeFT4222H0
	DevTypeFT4222H1_2
	DevTypeFT4222H3
	DevTypeFT4222Prog
	DevTypeFT900
	DevTypeFT930
	DevTypeFTUMFTPD3A
)

const devTypeName = "FTBMFTAMFT100AXUnknownFT2232CFT232RFT2232HFT4232HFT232HFTXSeriesFT4222H0FT4222H1/2FT4222H3FT4222ProgFT900FT930FTUMFTPD3A"

var devTypeIndex = [...]uint8{0, 4, 8, 15, 22, 29, 35, 42, 49, 55, 64, 72, 82, 90, 100, 105, 110, 120}

func (d DevType) String() string {
	if d >= DevType(len(devTypeIndex)-1) {
		d = DevTypeUnknown
	}
	return devTypeName[devTypeIndex[d]:devTypeIndex[d+1]]
}

// lineNames returns the names of the DBus lines. FT232R boards are marked
// with the UART names of the pins.
func (d DevType) lineNames() [8]string {
	if d == DevTypeFT232R {
		return [...]string{"TX", "RX", "RTS", "CTS", "DTR", "DSR", "DCD", "RI"}
	}
	return [...]string{"D0", "D1", "D2", "D3", "D4", "D5", "D6", "D7"}
}
