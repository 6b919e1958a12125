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

// Package losstest implements the over-the-air packet-loss measurement
// engine: the sender and scanner round protocols and the auxiliary
// number-cast and environment-monitor roles.
package losstest

import (
	"sync"

	"github.com/pkg/errors"

	"github.com/cheetahray/losstest/advert"
	"github.com/cheetahray/losstest/logger"
	"github.com/cheetahray/losstest/packet"
	"github.com/cheetahray/losstest/radio"
	"github.com/cheetahray/losstest/task"
	"github.com/cheetahray/losstest/types"
)

// BaseName is the product name broadcast on the status channel.
const BaseName = "Turnkey LossTest"

// Params configures one measurement round.
type Params struct {
	TxPowerDbm      int8                `yaml:"txpower"`
	IntervalClass   types.IntervalClass `yaml:"interval"`
	CountIndex      int                 `yaml:"count"`
	Phy2M           bool                `yaml:"phy-2m"`
	Phy1M           bool                `yaml:"phy-1m"`
	PhyCoded        bool                `yaml:"phy-coded"`
	PhyLegacy       bool                `yaml:"phy-legacy"`
	IgnoreResponses bool                `yaml:"ignore-responses"`
	InhibitCh37     bool                `yaml:"inhibit-ch37"`
	InhibitCh38     bool                `yaml:"inhibit-ch38"`
	InhibitCh39     bool                `yaml:"inhibit-ch39"`
	Anonymous       bool                `yaml:"anonymous"`
}

// DefaultParams returns the parameters of a plain full-PHY round.
func DefaultParams() Params {
	return Params{
		IntervalClass: 3,
		CountIndex:    0,
		Phy2M:         true,
		Phy1M:         true,
		PhyCoded:      true,
		PhyLegacy:     true,
		Anonymous:     true,
	}
}

// Validate rejects parameter combinations the engine cannot run.
func (p Params) Validate() error {
	if p.IntervalClass < 0 || int(p.IntervalClass) >= types.IntervalClassCount() {
		return errors.Errorf("interval class %d out of range", int(p.IntervalClass))
	}
	if p.CountIndex < 0 || p.CountIndex >= len(types.TotalCounts) {
		return errors.Errorf("count index %d out of range", p.CountIndex)
	}
	if !p.Phy2M && !p.Phy1M && !p.PhyCoded && !p.PhyLegacy {
		return errors.New("no PHY enabled")
	}
	return nil
}

// TotalCount resolves the per-channel packet target of the round.
func (p Params) TotalCount() uint16 {
	return types.TotalCounts[p.CountIndex]
}

// ChannelEnabled reports whether the data channel takes part in the round.
func (p Params) ChannelEnabled(ch types.ChannelId) bool {
	switch ch {
	case types.Channel2M:
		return p.Phy2M
	case types.Channel1M:
		return p.Phy1M
	case types.ChannelCoded:
		return p.PhyCoded
	case types.ChannelLegacy:
		return p.PhyLegacy
	default:
		return false
	}
}

// EnabledChannels lists the data channels of the round in channel order.
func (p Params) EnabledChannels() []types.ChannelId {
	var chans []types.ChannelId
	for ch := types.ChannelId(0); int(ch) < types.DataChannelCount; ch++ {
		if p.ChannelEnabled(ch) {
			chans = append(chans, ch)
		}
	}
	return chans
}

// ScanMethod derives the listening method from the enabled PHYs: Coded
// together with anything else needs the combined method, Coded alone the
// coded-only one, anything else plain 1M.
func (p Params) ScanMethod() types.ScanMethod {
	other := p.Phy2M || p.Phy1M || p.PhyLegacy
	switch {
	case p.PhyCoded && other:
		return types.ScanCombined
	case p.PhyCoded:
		return types.ScanCodedOnly
	default:
		return types.Scan1MOnly
	}
}

func (p Params) advConfig(ic types.IntervalClass) advert.Config {
	return advert.Config{
		IntervalClass: ic,
		Anonymous:     p.Anonymous,
		InhibitCh37:   p.InhibitCh37,
		InhibitCh38:   p.InhibitCh38,
		InhibitCh39:   p.InhibitCh39,
	}
}

// Role is one of the mutually exclusive protocol drivers.
type Role interface {
	Kind() types.Role
	// Iterate runs one protocol cycle. Positive means keep going, zero
	// a finished round, negative an aborted one.
	Iterate() int
}

// Core bundles the collaborators shared by every role: identity, time
// base, radio, channel manager and role arbiter.
type Core struct {
	Node     types.NodeId
	UniqueID uint64
	Clock    Clock
	Driver   radio.Driver
	Adv      *advert.Manager
	Arbiter  *task.Arbiter

	mu      sync.Mutex
	roleSrc advert.PayloadSource
	onSent  func(set int, numSent int)
}

// NewCore wires a Core over the driver and installs the idle identity:
// device names and the burst-completion plumbing.
func NewCore(node types.NodeId, uniqueID uint64, clk Clock, drv radio.Driver, arb *task.Arbiter) *Core {
	c := &Core{
		Node:     node,
		UniqueID: uniqueID,
		Clock:    clk,
		Driver:   drv,
		Arbiter:  arb,
	}
	c.Adv = advert.NewManager(drv, c)
	c.Adv.SetDeviceNames(node, BaseName)
	drv.SetSentHandler(func(set int, numSent int) {
		c.Adv.HandleSent(set)
		c.mu.Lock()
		fn := c.onSent
		c.mu.Unlock()
		if fn != nil {
			fn(set, numSent)
		}
	})
	return c
}

// setRoleSource points default payload generation at the active role.
// A nil src falls back to the idle identity payloads.
func (c *Core) setRoleSource(src advert.PayloadSource) {
	c.mu.Lock()
	c.roleSrc = src
	c.mu.Unlock()
	c.Adv.SetPayloadSource(c)
}

func (c *Core) setSentHook(fn func(set int, numSent int)) {
	c.mu.Lock()
	c.onSent = fn
	c.mu.Unlock()
}

// Payload implements advert.PayloadSource, delegating to the active role
// when one is installed.
func (c *Core) Payload(ch types.ChannelId) []byte {
	c.mu.Lock()
	src := c.roleSrc
	c.mu.Unlock()
	if src != nil {
		return src.Payload(ch)
	}
	return c.idlePayload(ch)
}

// presetInfo is the idle test payload: no round in progress, flow count
// parked at 255 so receivers never treat it as live traffic.
func (c *Core) presetInfo() packet.DeviceInfo {
	return packet.DeviceInfo{
		ManufacturerID: types.ManufacturerID,
		FormID:         types.FormID,
		PreCnt:         types.PreCntPreset,
		FlowCnt:        255,
		UniqueID:       c.UniqueID,
	}
}

func (c *Core) idlePayload(ch types.ChannelId) []byte {
	switch ch {
	case types.ChannelLegacy:
		d := packet.DeviceInfoLegacy{DeviceInfo: c.presetInfo(), ShortName: c.Adv.Name(ch)}
		ad := packet.AppendAdElement(nil, packet.AdTypeFlags, []byte{packet.AdFlagNoBrEdr})
		return packet.AppendAdElement(ad, packet.AdTypeManufacturer, d.Serialize())
	case types.ChannelStatus:
		ad := packet.AppendAdElement(nil, packet.AdTypeFlags, []byte{packet.AdFlagNoBrEdr})
		return packet.AppendAdElement(ad, packet.AdTypeCompleteName, []byte(c.Adv.Name(ch)))
	default:
		d := c.presetInfo()
		ad := packet.AppendAdElement(nil, packet.AdTypeFlags, []byte{packet.AdFlagNoBrEdr})
		ad = packet.AppendAdElement(ad, packet.AdTypeManufacturer, d.Serialize())
		return packet.AppendAdElement(ad, packet.AdTypeShortName, []byte(c.Adv.Name(ch)))
	}
}

// Run claims the arbiter slot for r and iterates until the round ends,
// aborts, or the slot is taken away, then releases the slot. Returns the
// last iterate value.
func (c *Core) Run(r Role) (int, error) {
	if c.Arbiter.Trigger(r.Kind(), 1) != r.Kind() {
		return 0, errors.Wrapf(types.ErrBusy, "cannot start %v", r.Kind())
	}
	defer c.Arbiter.Trigger(r.Kind(), -1)

	rv := 1
	for rv > 0 && c.Arbiter.Trigger(r.Kind(), 0) == r.Kind() {
		rv = r.Iterate()
	}
	c.setRoleSource(nil)
	c.setSentHook(nil)
	logger.Debugf("%v finished: %d", r.Kind(), rv)
	return rv, nil
}

// nodeFromUniqueID recovers the advertised node number a sender encodes
// in the low bits of its unique id.
func nodeFromUniqueID(uid uint64) types.NodeId {
	return types.NodeId(uid&0xFFFF) % 1000
}

// MakeUniqueID builds a unique id carrying the node number in its low
// bits, the way senders broadcast it.
func MakeUniqueID(seed uint64, node types.NodeId) uint64 {
	return (seed &^ 0xFFFF) | uint64(node)
}
