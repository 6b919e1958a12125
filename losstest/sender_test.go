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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cheetahray/losstest/packet"
	"github.com/cheetahray/losstest/types"
)

func senderTestParams() Params {
	p := DefaultParams()
	p.IntervalClass = 0
	p.CountIndex = 0 // 500 packets, two bursts
	p.Phy2M, p.PhyCoded, p.PhyLegacy = false, false, false
	p.TxPowerDbm = 8
	p.IgnoreResponses = true
	return p
}

func TestSenderRound(t *testing.T) {
	c, drv, _ := newTestCore(7)

	s, err := NewSender(c, senderTestParams(), nil)
	require.NoError(t, err)
	assert.Equal(t, int8(8), drv.TxPower())

	// preset broadcast running on the enabled channel and status channel
	assert.True(t, drv.Set(int(types.Channel1M)).Active)
	assert.True(t, drv.Set(int(types.ChannelStatus)).Active)
	scanning, _ := drv.Scanning()
	assert.True(t, scanning)

	require.Equal(t, 1, s.Iterate())
	st := s.Status()[types.Channel1M]
	assert.Equal(t, uint16(250), st.Sent)
	assert.Equal(t, uint16(500), st.Target)
	assert.Equal(t, uint16(1), s.forms[types.Channel1M].FlowCnt)
	assert.Equal(t, types.PreCntBurstDone, s.forms[types.Channel1M].PreCnt)

	require.Equal(t, 1, s.Iterate())
	assert.Equal(t, uint16(500), s.Status()[types.Channel1M].Sent)

	require.Equal(t, 0, s.Iterate())
	assert.Equal(t, types.PreCntRoundDone, s.forms[types.Channel1M].PreCnt)

	// final broadcast carries the round-done marker
	mfg := packet.FindManufacturerData(drv.Set(int(types.Channel1M)).Data)
	require.NotNil(t, mfg)
	var d packet.DeviceInfo
	require.NotZero(t, d.Deserialize(mfg))
	assert.Equal(t, types.PreCntRoundDone, d.PreCnt)
	assert.Equal(t, uint16(2), d.FlowCnt)
}

func TestSenderStatusChannel(t *testing.T) {
	c, drv, _ := newTestCore(7)

	_, err := NewSender(c, senderTestParams(), nil)
	require.NoError(t, err)

	data := drv.Set(int(types.ChannelStatus)).Data
	assert.Contains(t, string(data), "Turnkey LossTest(PEEK 007)")
	assert.Contains(t, string(data), "SND:007 P:1M/1M R:0/500 T:8")
	assert.Contains(t, string(data), "SND:007 P:1M/2M R:0/0 T:8")
}

func TestSenderGroupAlternation(t *testing.T) {
	c, _, _ := newTestCore(7)

	p := senderTestParams()
	p.Phy2M, p.PhyCoded = true, true
	s, err := NewSender(c, p, nil)
	require.NoError(t, err)

	// equal progress keeps the extended group first
	assert.Equal(t, []types.ChannelId{types.Channel2M, types.Channel1M}, s.selectGroup())

	require.Equal(t, 1, s.Iterate())
	// the extended group now leads, the coded channel catches up
	assert.Equal(t, []types.ChannelId{types.ChannelCoded}, s.selectGroup())

	require.Equal(t, 1, s.Iterate())
	assert.Equal(t, uint16(250), s.Status()[types.ChannelCoded].Sent)
	assert.Equal(t, []types.ChannelId{types.Channel2M, types.Channel1M}, s.selectGroup())
}

func TestSenderMarksChannelDoneMidRound(t *testing.T) {
	c, drv, _ := newTestCore(7)

	p := senderTestParams()
	p.PhyCoded = true
	s, err := NewSender(c, p, nil)
	require.NoError(t, err)

	// 1M 250, coded 250, 1M 500: the 1M channel reaches its target while
	// the coded channel still has a burst to go
	for i := 0; i < 3; i++ {
		require.Equal(t, 1, s.Iterate())
	}
	assert.Equal(t, uint16(500), s.Status()[types.Channel1M].Sent)
	assert.Equal(t, types.PreCntRoundDone, s.forms[types.Channel1M].PreCnt)
	assert.NotEqual(t, types.PreCntRoundDone, s.forms[types.ChannelCoded].PreCnt)

	// the wire already carries the round-done marker for the done channel
	mfg := packet.FindManufacturerData(drv.Set(int(types.Channel1M)).Data)
	require.NotNil(t, mfg)
	var d packet.DeviceInfo
	require.NotZero(t, d.Deserialize(mfg))
	assert.Equal(t, types.PreCntRoundDone, d.PreCnt)

	require.Equal(t, 1, s.Iterate())
	require.Equal(t, 0, s.Iterate())
}

func TestSenderCountdownAnnouncesFlow(t *testing.T) {
	c, drv, clk := newTestCore(7)

	s, err := NewSender(c, senderTestParams(), nil)
	require.NoError(t, err)

	// capture the payload broadcast during the countdown steps
	var flowAtCountdown uint16
	captured := false
	clk.setHook(func(ms int64) {
		if captured {
			return
		}
		mfg := packet.FindManufacturerData(drv.Set(int(types.Channel1M)).Data)
		if mfg == nil {
			return
		}
		var d packet.DeviceInfo
		if d.Deserialize(mfg) != 0 && d.PreCnt >= -3 && d.PreCnt < 0 {
			flowAtCountdown = d.FlowCnt
			captured = true
		}
	})
	require.Equal(t, 1, s.Iterate())
	clk.setHook(nil)

	// the countdown announces the flow of the burst it precedes
	require.True(t, captured)
	assert.Equal(t, uint16(1), flowAtCountdown)
}

func TestSenderAck(t *testing.T) {
	c, _, _ := newTestCore(7)

	p := senderTestParams()
	p.IgnoreResponses = false
	s, err := NewSender(c, p, nil)
	require.NoError(t, err)

	require.Equal(t, 1, s.Iterate())
	require.Equal(t, types.PreCntBurstDone, s.forms[types.Channel1M].PreCnt)
	assert.False(t, s.allAcked([]types.ChannelId{types.Channel1M}))

	// a foreign payload is no acknowledgment
	other := testInfo(MakeUniqueID(0, 9), types.PreCntBurstDone, 1)
	s.handleReception(testReception(types.Channel1M, other, -50, 8))
	assert.False(t, s.allAcked([]types.ChannelId{types.Channel1M}))

	// the echoed burst report is
	s.handleReception(testReception(types.Channel1M, s.forms[types.Channel1M], -50, 8))
	assert.True(t, s.allAcked([]types.ChannelId{types.Channel1M}))
}

func TestSenderAbort(t *testing.T) {
	c, drv, _ := newTestCore(7)

	stop := false
	s, err := NewSender(c, senderTestParams(), func() bool { return stop })
	require.NoError(t, err)

	require.Equal(t, 1, s.Iterate())
	stop = true
	require.Equal(t, -1, s.Iterate())

	assert.Equal(t, types.PreCntRoundDone, s.forms[types.Channel1M].PreCnt)
	assert.Equal(t, uint32(abortedAdvMs), drv.Set(int(types.Channel1M)).Duration)

	// the burst end after an aborted round rewrites the flow count into
	// the packet total and rebroadcasts it
	drv.CompleteBurst(int(types.Channel1M), types.BurstCount)
	assert.Equal(t, uint16(250), s.forms[types.Channel1M].FlowCnt)
	assert.Equal(t, uint32(flowRewriteAdvMs), drv.Set(int(types.Channel1M)).Duration)

	mfg := packet.FindManufacturerData(drv.Set(int(types.Channel1M)).Data)
	require.NotNil(t, mfg)
	var d packet.DeviceInfo
	require.NotZero(t, d.Deserialize(mfg))
	assert.Equal(t, uint16(250), d.FlowCnt)
}

func TestSenderFlowOverflowMarker(t *testing.T) {
	c, drv, _ := newTestCore(7)

	s, err := NewSender(c, senderTestParams(), nil)
	require.NoError(t, err)

	s.mu.Lock()
	s.finalized = true
	s.forms[types.Channel1M].FlowCnt = 201
	s.mu.Unlock()

	drv.CompleteBurst(int(types.Channel1M), types.BurstCount)
	assert.Equal(t, uint16(256), s.forms[types.Channel1M].FlowCnt)
}
