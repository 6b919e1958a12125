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

	"github.com/cheetahray/losstest/packet"
	"github.com/cheetahray/losstest/radio"
	"github.com/cheetahray/losstest/task"
	"github.com/cheetahray/losstest/types"
)

// fakeClock advances instantly on sleep, so the protocol loops run their
// full timelines without wall time passing. The afterSleep hook lets a
// test script receptions into the middle of a wait loop.
type fakeClock struct {
	mu         sync.Mutex
	nowMs      int64
	afterSleep func(ms int64)
}

func (c *fakeClock) NowMs() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.nowMs
}

func (c *fakeClock) SleepMs(ms int64) {
	c.mu.Lock()
	if ms > 0 {
		c.nowMs += ms
	}
	hook := c.afterSleep
	c.mu.Unlock()
	if hook != nil {
		hook(ms)
	}
}

func (c *fakeClock) setHook(fn func(ms int64)) {
	c.mu.Lock()
	c.afterSleep = fn
	c.mu.Unlock()
}

func newTestCore(node types.NodeId) (*Core, *radio.SimDriver, *fakeClock) {
	drv := radio.NewSimDriver()
	clk := &fakeClock{}
	c := NewCore(node, MakeUniqueID(0xC0FFEE0000000000, node), clk, drv, task.NewArbiter())
	return c, drv, clk
}

// channelPhys returns the over-the-air PHY pair a data channel is
// received with.
func channelPhys(ch types.ChannelId) (pri, sec types.Phy) {
	switch ch {
	case types.Channel2M:
		return types.Phy1M, types.Phy2M
	case types.ChannelCoded:
		return types.PhyCoded, types.PhyCoded
	case types.ChannelLegacy:
		return types.Phy1M, types.PhyNone
	default:
		return types.Phy1M, types.Phy1M
	}
}

// testReception frames a DeviceInfo the way a remote sender broadcasts
// it on the channel.
func testReception(ch types.ChannelId, d packet.DeviceInfo, rssi int16, txPwr int8) radio.Reception {
	var mfg []byte
	if ch == types.ChannelLegacy {
		l := packet.DeviceInfoLegacy{DeviceInfo: d, ShortName: "LossTst999"}
		mfg = l.Serialize()
	} else {
		mfg = d.Serialize()
	}
	ad := packet.AppendAdElement(nil, packet.AdTypeFlags, []byte{packet.AdFlagNoBrEdr})
	ad = packet.AppendAdElement(ad, packet.AdTypeManufacturer, mfg)
	pri, sec := channelPhys(ch)
	return radio.Reception{
		PrimaryPhy:   pri,
		SecondaryPhy: sec,
		Rssi:         rssi,
		TxPower:      txPwr,
		Data:         ad,
	}
}

func testInfo(uid uint64, preCnt int16, flowCnt uint16) packet.DeviceInfo {
	return packet.DeviceInfo{
		ManufacturerID: types.ManufacturerID,
		FormID:         types.FormID,
		PreCnt:         preCnt,
		FlowCnt:        flowCnt,
		UniqueID:       uid,
	}
}
