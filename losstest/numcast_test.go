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
	"github.com/cheetahray/losstest/radio"
	"github.com/cheetahray/losstest/types"
)

func TestNumberCastPayloads(t *testing.T) {
	c, drv, _ := newTestCore(7)

	n, err := NewNumberCaster(c, DefaultParams(), 0xDEADBEEF, false, nil)
	require.NoError(t, err)

	mfg := packet.FindManufacturerData(drv.Set(int(types.Channel1M)).Data)
	require.NotNil(t, mfg)
	var cast packet.NumberCast
	require.NotZero(t, cast.Deserialize(mfg))
	assert.True(t, cast.Valid())
	assert.Equal(t, uint64(0xDEADBEEF), cast.Value)

	mfg = packet.FindManufacturerData(drv.Set(int(types.ChannelLegacy)).Data)
	require.NotNil(t, mfg)
	var l packet.DeviceInfoLegacy
	require.NotZero(t, l.Deserialize(mfg))
	assert.True(t, l.HasNumberCast)
	assert.Equal(t, uint64(0xDEADBEEF), l.NumberCastVal)

	// continuous casts never end on their own
	assert.Equal(t, 1, n.Iterate())
}

func TestNumberCastManual(t *testing.T) {
	c, drv, _ := newTestCore(7)

	p := DefaultParams()
	p.PhyCoded, p.PhyLegacy = false, false
	n, err := NewNumberCaster(c, p, 42, true, nil)
	require.NoError(t, err)

	set := drv.Set(int(types.Channel2M))
	assert.Equal(t, uint16(numcastBurstEvents), set.MaxEvents)

	assert.Equal(t, 1, n.Iterate())
	drv.CompleteBurst(int(types.Channel2M), numcastBurstEvents)
	assert.Equal(t, 1, n.Iterate())
	drv.CompleteBurst(int(types.Channel1M), numcastBurstEvents)
	assert.Equal(t, 0, n.Iterate())
}

func TestNumberCastReception(t *testing.T) {
	c, drv, clk := newTestCore(7)
	remoteUID := MakeUniqueID(0, 9)

	n, err := NewNumberCaster(c, DefaultParams(), 1, false, nil)
	require.NoError(t, err)

	_, _, seen := n.Remote()
	require.False(t, seen)

	cast := packet.NumberCast{ManufacturerID: types.ManufacturerID, FormID: types.FormID, Value: 777}
	ad := packet.AppendAdElement(nil, packet.AdTypeFlags, []byte{packet.AdFlagNoBrEdr})
	ad = packet.AppendAdElement(ad, packet.AdTypeManufacturer, cast.Serialize())
	drv.Inject(radio.Reception{
		PrimaryPhy:   types.Phy1M,
		SecondaryPhy: types.Phy1M,
		Rssi:         -55,
		Data:         ad,
	})

	val, _, seen := n.Remote()
	assert.True(t, seen)
	assert.Equal(t, uint64(777), val)
	avg, _, _ := n.Rssi()
	assert.Equal(t, int8(-55), avg)

	// the legacy form also carries the caster's identity
	legacy := packet.DeviceInfoLegacy{
		DeviceInfo:    testInfo(remoteUID, types.PreCntPreset, 255),
		HasNumberCast: true,
		NumberCastVal: 888,
	}
	ad = packet.AppendAdElement(nil, packet.AdTypeFlags, []byte{packet.AdFlagNoBrEdr})
	ad = packet.AppendAdElement(ad, packet.AdTypeManufacturer, legacy.Serialize())
	drv.Inject(radio.Reception{
		PrimaryPhy:   types.Phy1M,
		SecondaryPhy: types.PhyNone,
		Rssi:         -60,
		Data:         ad,
	})

	val, node, seen := n.Remote()
	assert.True(t, seen)
	assert.Equal(t, uint64(888), val)
	assert.Equal(t, types.NodeId(9), node)

	clk.SleepMs(recomputeThrottleMs + 1)
	avg, min, max := n.Rssi()
	assert.Equal(t, int8(-57), avg)
	assert.Equal(t, int8(-60), min)
	assert.Equal(t, int8(-55), max)
}
