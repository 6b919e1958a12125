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

package radio

import (
	"sync"

	"github.com/pkg/errors"

	"github.com/cheetahray/losstest/types"
)

// SimSet is the observable state of one simulated advertising set.
type SimSet struct {
	Params    AdvParams
	Data      []byte
	Active    bool
	MaxEvents uint16
	Duration  uint32
	Starts    int
}

// SimDriver is an in-memory Driver for tests and the demo binary. Tests
// script it by injecting receptions and completing bursts.
type SimDriver struct {
	mu          sync.Mutex
	sets        map[int]*SimSet
	txPower     int8
	scanning    bool
	scanMethod  types.ScanMethod
	receiver    func(rx Reception)
	sentHandler func(set int, numSent int)
}

// NewSimDriver creates an idle simulated radio.
func NewSimDriver() *SimDriver {
	return &SimDriver{
		sets: map[int]*SimSet{},
	}
}

func (d *SimDriver) CreateSet(set int) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.sets[set]; !ok {
		d.sets[set] = &SimSet{}
	}
	return nil
}

func (d *SimDriver) SetParams(set int, p AdvParams) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	s, ok := d.sets[set]
	if !ok {
		return errors.Errorf("set %d not created", set)
	}
	s.Params = p
	return nil
}

func (d *SimDriver) SetData(set int, data []byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	s, ok := d.sets[set]
	if !ok {
		return errors.Errorf("set %d not created", set)
	}
	s.Data = append([]byte(nil), data...)
	return nil
}

func (d *SimDriver) Start(set int, durationMs uint32, maxEvents uint16) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	s, ok := d.sets[set]
	if !ok {
		return errors.Errorf("set %d not created", set)
	}
	s.Active = true
	s.Duration = durationMs
	s.MaxEvents = maxEvents
	s.Starts++
	return nil
}

func (d *SimDriver) Stop(set int) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	s, ok := d.sets[set]
	if !ok {
		return errors.Errorf("set %d not created", set)
	}
	s.Active = false
	return nil
}

func (d *SimDriver) SetTxPower(dbm int8) (int8, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.txPower = dbm
	return dbm, nil
}

func (d *SimDriver) StartScan(method types.ScanMethod) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.scanning = true
	d.scanMethod = method
	return nil
}

func (d *SimDriver) StopScan() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.scanning = false
	return nil
}

func (d *SimDriver) SetReceiver(fn func(rx Reception)) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.receiver = fn
}

func (d *SimDriver) SetSentHandler(fn func(set int, numSent int)) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.sentHandler = fn
}

// Inject delivers a reception to the installed receiver, as the scanner
// hardware would. Drops it silently when not scanning.
func (d *SimDriver) Inject(rx Reception) {
	d.mu.Lock()
	fn := d.receiver
	scanning := d.scanning
	d.mu.Unlock()
	if scanning && fn != nil {
		fn(rx)
	}
}

// CompleteBurst reports the end of a one-shot burst on the set.
func (d *SimDriver) CompleteBurst(set int, numSent int) {
	d.mu.Lock()
	if s, ok := d.sets[set]; ok {
		s.Active = false
	}
	fn := d.sentHandler
	d.mu.Unlock()
	if fn != nil {
		fn(set, numSent)
	}
}

// Set returns a copy of the observable state of one set.
func (d *SimDriver) Set(set int) SimSet {
	d.mu.Lock()
	defer d.mu.Unlock()
	if s, ok := d.sets[set]; ok {
		cp := *s
		cp.Data = append([]byte(nil), s.Data...)
		return cp
	}
	return SimSet{}
}

// Scanning reports the current scanning state and method.
func (d *SimDriver) Scanning() (bool, types.ScanMethod) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.scanning, d.scanMethod
}

// TxPower returns the last requested TX power.
func (d *SimDriver) TxPower() int8 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.txPower
}
