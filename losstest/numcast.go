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

package losstest

import (
	"sync"

	"github.com/pkg/errors"

	"github.com/cheetahray/losstest/logger"
	"github.com/cheetahray/losstest/packet"
	"github.com/cheetahray/losstest/radio"
	"github.com/cheetahray/losstest/types"
)

// numcastBurstEvents is the one-shot length of a manual number cast.
const numcastBurstEvents = 10

// NumberCaster broadcasts a 64-bit value on the enabled channels and
// listens for remote casts, tracking their signal strength in a short
// ring.
type NumberCaster struct {
	c      *Core
	params Params
	abort  func() bool
	value  uint64
	manual bool

	mu         sync.Mutex
	rssi       *RssiTracker
	remoteVal  uint64
	remoteUID  uint64
	remoteSeen bool
	burstsLeft int
}

// NewNumberCaster prepares the number-cast role. In manual mode each
// enabled channel sends one short one-shot; otherwise the value is
// broadcast continuously until the role is released.
func NewNumberCaster(c *Core, params Params, value uint64, manual bool, abort func() bool) (*NumberCaster, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	n := &NumberCaster{
		c:      c,
		params: params,
		abort:  abort,
		value:  value,
		manual: manual,
		rssi:   NewRssiTracker(c.Clock, numcastRssiSlots, numcastRssiExpiryMs),
	}

	c.setRoleSource(n)
	c.setSentHook(n.handleSent)
	maxEvents := uint16(0)
	if manual {
		maxEvents = numcastBurstEvents
	}
	for _, ch := range params.EnabledChannels() {
		if err := c.Adv.Update(ch, params.advConfig(types.IntervalSecond), nil, 0, maxEvents); err != nil {
			return nil, err
		}
		n.burstsLeft++
	}

	c.Driver.SetReceiver(n.handleReception)
	if err := c.Driver.StartScan(params.ScanMethod()); err != nil {
		return nil, errors.Wrap(err, "start scan")
	}

	logger.Infof("number cast (node %03d) value %d", c.Node, value)
	return n, nil
}

func (n *NumberCaster) Kind() types.Role {
	return types.RoleNumberCast
}

// Payload implements advert.PayloadSource. The legacy channel embeds the
// value behind the marker in its tail; the extended channels carry the
// dedicated number-cast form.
func (n *NumberCaster) Payload(ch types.ChannelId) []byte {
	ad := packet.AppendAdElement(nil, packet.AdTypeFlags, []byte{packet.AdFlagNoBrEdr})
	switch ch {
	case types.ChannelLegacy:
		d := packet.DeviceInfoLegacy{
			DeviceInfo:    n.c.presetInfo(),
			HasNumberCast: true,
			NumberCastVal: n.value,
		}
		return packet.AppendAdElement(ad, packet.AdTypeManufacturer, d.Serialize())
	case types.ChannelStatus:
		return n.c.idlePayload(ch)
	default:
		cast := packet.NumberCast{
			ManufacturerID: types.ManufacturerID,
			FormID:         types.FormID,
			Value:          n.value,
		}
		return packet.AppendAdElement(ad, packet.AdTypeManufacturer, cast.Serialize())
	}
}

func (n *NumberCaster) handleSent(set int, numSent int) {
	if !n.manual {
		return
	}
	n.mu.Lock()
	if n.burstsLeft > 0 {
		n.burstsLeft--
	}
	n.mu.Unlock()
}

func (n *NumberCaster) handleReception(rx radio.Reception) {
	ch, ok := packet.ClassifyPhy(rx.PrimaryPhy, rx.SecondaryPhy)
	if !ok {
		return
	}
	mfg := packet.FindManufacturerData(rx.Data)
	if mfg == nil {
		return
	}

	if ch == types.ChannelLegacy {
		var l packet.DeviceInfoLegacy
		if l.Deserialize(mfg) == 0 || !l.Valid() || !l.HasNumberCast {
			return
		}
		n.mu.Lock()
		n.remoteVal = l.NumberCastVal
		n.remoteUID = l.UniqueID
		n.remoteSeen = true
		n.mu.Unlock()
		n.rssi.Record(rx.Rssi)
		return
	}

	var cast packet.NumberCast
	if cast.Deserialize(mfg) == 0 || !cast.Valid() {
		return
	}
	n.mu.Lock()
	n.remoteVal = cast.Value
	n.remoteSeen = true
	n.mu.Unlock()
	n.rssi.Record(rx.Rssi)
}

// Remote returns the last value heard from another caster.
func (n *NumberCaster) Remote() (value uint64, node types.NodeId, seen bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.remoteVal, nodeFromUniqueID(n.remoteUID), n.remoteSeen
}

// Rssi returns the aggregate over the recent remote-cast samples.
func (n *NumberCaster) Rssi() (avg, min, max int8) {
	return n.rssi.Compute()
}

// Iterate reports the reception aggregate once per second. In manual
// mode the role ends when the one-shots have gone out.
func (n *NumberCaster) Iterate() int {
	if n.abort != nil && n.abort() {
		_ = n.c.Driver.StopScan()
		logger.Warnf("number cast aborted (node %03d)", n.c.Node)
		return -1
	}

	if n.manual {
		n.mu.Lock()
		done := n.burstsLeft == 0
		n.mu.Unlock()
		if done {
			logger.Infof("number cast sent (node %03d)", n.c.Node)
			return 0
		}
	}

	avg, min, max := n.rssi.Compute()
	n.mu.Lock()
	val, seen := n.remoteVal, n.remoteSeen
	n.mu.Unlock()
	if seen {
		logger.Debugf("numcast remote value %d rssi %d(%d..%d)", val, avg, min, max)
	}

	if !waitMs(n.c.Clock, 1000, n.abort) {
		_ = n.c.Driver.StopScan()
		logger.Warnf("number cast aborted (node %03d)", n.c.Node)
		return -1
	}
	return 1
}
