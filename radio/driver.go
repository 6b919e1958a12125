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

// Package radio abstracts the advertising and scanning hardware the
// loss-test engine drives.
package radio

import "github.com/cheetahray/losstest/types"

// AdvParams configures one advertising set.
type AdvParams struct {
	IntervalMinMs  uint32
	IntervalMaxMs  uint32
	Legacy         bool
	Anonymous      bool
	IncludeTxPower bool
	PrimaryPhy     types.Phy
	SecondaryPhy   types.Phy
	ChannelMap     uint8
}

// Reception describes one received advertisement as delivered by the
// scanner hardware.
type Reception struct {
	PrimaryPhy   types.Phy
	SecondaryPhy types.Phy
	Rssi         int16
	TxPower      int8
	Data         []byte
}

// Driver is the hardware interface. Implementations must be safe for use
// from the engine goroutine concurrently with reception delivery.
type Driver interface {
	// CreateSet allocates advertising set, idempotent per set.
	CreateSet(set int) error
	// SetParams reconfigures the set's timing, PHYs and channel map.
	SetParams(set int, p AdvParams) error
	// SetData replaces the set's advertising payload.
	SetData(set int, data []byte) error
	// Start begins advertising. durationMs 0 means no time limit; a
	// nonzero maxEvents makes the set one-shot, reporting completion
	// through the sent callback.
	Start(set int, durationMs uint32, maxEvents uint16) error
	// Stop halts advertising on the set.
	Stop(set int) error
	// SetTxPower requests a TX power and returns the value the hardware
	// actually selected.
	SetTxPower(dbm int8) (int8, error)
	// StartScan begins passive scanning with the given method. Starting
	// while scanning switches the method.
	StartScan(method types.ScanMethod) error
	// StopScan halts scanning.
	StopScan() error
	// SetReceiver installs the reception callback.
	SetReceiver(fn func(rx Reception))
	// SetSentHandler installs the callback reporting a finished one-shot
	// burst and the number of events actually sent.
	SetSentHandler(fn func(set int, numSent int))
}
