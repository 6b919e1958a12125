// Copyright (c) 2026, The LossTest Authors.
// All rights reserved.
//
// Redistribution and use in source and binary forms, with or without
// modification, are permitted provided that the following conditions are met:
// 1. Redistributions of source code must retain the above copyright
//    notice, this list of conditions and the following disclaimer.
// 2. Redistributions in binary form must reproduce the above copyright
//    notice, this list of conditions and the following disclaimer in the
//    documentation and/or other materials provided with the distribution.
// 3. Neither the name of the copyright holder nor the
//    names of its contributors may be used to endorse or promote products
//    derived from this software without specific prior written permission.
//
// THIS SOFTWARE IS PROVIDED BY THE COPYRIGHT HOLDERS AND CONTRIBUTORS "AS IS"
// AND ANY EXPRESS OR IMPLIED WARRANTIES, INCLUDING, BUT NOT LIMITED TO, THE
// IMPLIED WARRANTIES OF MERCHANTABILITY AND FITNESS FOR A PARTICULAR PURPOSE
// ARE DISCLAIMED. IN NO EVENT SHALL THE COPYRIGHT HOLDER OR CONTRIBUTORS BE
// LIABLE FOR ANY DIRECT, INDIRECT, INCIDENTAL, SPECIAL, EXEMPLARY, OR
// CONSEQUENTIAL DAMAGES (INCLUDING, BUT NOT LIMITED TO, PROCUREMENT OF
// SUBSTITUTE GOODS OR SERVICES; LOSS OF USE, DATA, OR PROFITS; OR BUSINESS
// INTERRUPTION) HOWEVER CAUSED AND ON ANY THEORY OF LIABILITY, WHETHER IN
// CONTRACT, STRICT LIABILITY, OR TORT (INCLUDING NEGLIGENCE OR OTHERWISE)
// ARISING IN ANY WAY OUT OF THE USE OF THIS SOFTWARE, EVEN IF ADVISED OF THE
// POSSIBILITY OF SUCH DAMAGE.

// Package types defines the basic shared types of the loss-test engine.
package types

import (
	"math"

	"github.com/simonlingoogle/go-simplelogger"
)

// NodeId is the numeric identity a device advertises under (0..999).
type NodeId = uint16

// ChannelId identifies one logical advertising channel.
type ChannelId int

const (
	Channel2M     ChannelId = 0 // extended advertising, 1M primary / 2M secondary
	Channel1M     ChannelId = 1 // extended advertising, 1M primary / 1M secondary
	ChannelCoded  ChannelId = 2 // extended advertising, Coded S=8 both
	ChannelLegacy ChannelId = 3 // legacy (4.x) advertising
	ChannelStatus ChannelId = 4 // human-readable status broadcast

	// DataChannelCount counts the channels carrying test traffic.
	DataChannelCount = 4
	// ChannelCount counts all advertising sets, status included.
	ChannelCount = 5
)

func (c ChannelId) String() string {
	switch c {
	case Channel2M:
		return "2M"
	case Channel1M:
		return "1M"
	case ChannelCoded:
		return "Coded"
	case ChannelLegacy:
		return "BT4"
	case ChannelStatus:
		return "Peek"
	default:
		simplelogger.Panicf("unknown channel id: %d", int(c))
		return ""
	}
}

// Phy is a BLE PHY identifier as carried in extended advertising reports.
type Phy uint8

const (
	PhyNone    Phy = 0
	Phy1M      Phy = 1
	Phy2M      Phy = 2
	PhyCoded   Phy = 3 // Coded, S=8
	PhyCodedS2 Phy = 4 // Coded, S=2
)

var phyNames = []string{"NA", "1M", "2M", "S8", "S2"}

func (p Phy) String() string {
	if int(p) >= len(phyNames) {
		return "NA"
	}
	return phyNames[p]
}

// Role identifies one of the mutually exclusive operating modes.
type Role int

const (
	RoleNone       Role = 0
	RoleSender     Role = 1
	RoleScanner    Role = 2
	RoleNumberCast Role = 3
	RoleEnvMonitor Role = 4
)

func (r Role) String() string {
	switch r {
	case RoleNone:
		return "none"
	case RoleSender:
		return "sender"
	case RoleScanner:
		return "scanner"
	case RoleNumberCast:
		return "numcast"
	case RoleEnvMonitor:
		return "envmon"
	default:
		simplelogger.Panicf("unknown role: %d", int(r))
		return ""
	}
}

// TaskStatus reports how the arbiter slot looks from one role's viewpoint.
type TaskStatus int

const (
	TaskIdle    TaskStatus = 0
	TaskRunning TaskStatus = 1
	TaskBlocked TaskStatus = 2
)

func (s TaskStatus) String() string {
	switch s {
	case TaskIdle:
		return "idle"
	case TaskRunning:
		return "running"
	case TaskBlocked:
		return "blocked"
	default:
		simplelogger.Panicf("unknown task status: %d", int(s))
		return ""
	}
}

// ScanMethod selects which PHYs the receiver listens on.
type ScanMethod int

const (
	ScanCombined  ScanMethod = 0 // 1M and Coded interleaved
	Scan1MOnly    ScanMethod = 1
	ScanCodedOnly ScanMethod = 2
)

func (m ScanMethod) String() string {
	switch m {
	case ScanCombined:
		return "combined"
	case Scan1MOnly:
		return "1m-only"
	case ScanCodedOnly:
		return "coded-only"
	default:
		simplelogger.Panicf("unknown scan method: %d", int(m))
		return ""
	}
}

// AdvInterval is the min/max advertising interval of one interval class,
// in milliseconds.
type AdvInterval struct {
	MinMs uint32
	MaxMs uint32
}

// IntervalClass indexes the table of supported advertising interval pairs.
type IntervalClass int

var advIntervals = []AdvInterval{
	{30, 60},
	{60, 120},
	{90, 180},
	{100, 150},
	{200, 300},
	{300, 450},
	{500, 650},
	{750, 950},
	{1000, 1200},
	{2000, 2400},
	{3000, 3600},
}

// IntervalSecond is the class used for countdown and idle broadcasts.
const IntervalSecond IntervalClass = 8

// IntervalClassCount returns the number of supported interval classes.
func IntervalClassCount() int {
	return len(advIntervals)
}

// Interval returns the advertising interval bounds of the class.
func (ic IntervalClass) Interval() AdvInterval {
	if ic < 0 || int(ic) >= len(advIntervals) {
		simplelogger.Panicf("invalid interval class: %d", int(ic))
	}
	return advIntervals[ic]
}

// TotalCounts enumerates the selectable per-round packet targets.
var TotalCounts = []uint16{500, 1000, 2000, 5000, 10000, 20000, 50000}

const (
	// ManufacturerID marks loss-test advertising payloads.
	ManufacturerID uint16 = 0xFFFF
	// FormID distinguishes the test payload layout.
	FormID uint16 = 0
	// BurstCount is the number of advertising events in one burst.
	BurstCount = 250
)

// Progress-counter sentinels carried in the PreCnt payload field.
const (
	PreCntPreset    int16 = math.MinInt16 // idle / no round in progress
	PreCntBurstDone int16 = 0             // burst finished, flow count valid
	PreCntRoundDone int16 = math.MaxInt16 // whole round finished
)

// TxPowerUnset marks a TX power value that was never measured.
const TxPowerUnset int8 = math.MaxInt8
