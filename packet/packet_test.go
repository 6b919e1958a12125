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

package packet

import (
	"encoding/hex"
	"math"
	"testing"

	"github.com/cheetahray/losstest/types"
	"github.com/stretchr/testify/assert"
)

func TestSerializeDeviceInfo(t *testing.T) {
	dataExpected, _ := hex.DecodeString("ffff0000fdfffa000102030405060708")
	d := &DeviceInfo{
		ManufacturerID: types.ManufacturerID,
		FormID:         types.FormID,
		PreCnt:         -3,
		FlowCnt:        250,
		UniqueID:       0x0102030405060708,
	}
	assert.Equal(t, dataExpected, d.Serialize())
}

func TestDeserializeDeviceInfo(t *testing.T) {
	data, _ := hex.DecodeString("ffff0000ff7fc8001122334455667788")
	var d DeviceInfo
	n := d.Deserialize(data)
	assert.Equal(t, DeviceInfoLen, n)
	assert.True(t, d.Valid())
	assert.Equal(t, types.PreCntRoundDone, d.PreCnt)
	assert.Equal(t, uint16(200), d.FlowCnt)
	assert.Equal(t, uint64(0x1122334455667788), d.UniqueID)

	short, _ := hex.DecodeString("ffff0000")
	assert.Equal(t, 0, d.Deserialize(short))
}

func TestDeserializeDeviceInfoForeign(t *testing.T) {
	data, _ := hex.DecodeString("4c000200008000001122334455667788")
	var d DeviceInfo
	n := d.Deserialize(data)
	assert.Equal(t, DeviceInfoLen, n)
	assert.False(t, d.Valid())
}

func TestSerializeLegacyWithName(t *testing.T) {
	dataExpected, _ := hex.DecodeString("ffff000000800000" + "0000000000000000" + "4c6f7373547374303037")
	d := &DeviceInfoLegacy{
		DeviceInfo: DeviceInfo{
			ManufacturerID: types.ManufacturerID,
			FormID:         types.FormID,
			PreCnt:         math.MinInt16,
		},
		ShortName: "LossTst007",
	}
	assert.Equal(t, dataExpected, d.Serialize())

	var d2 DeviceInfoLegacy
	n := d2.Deserialize(dataExpected)
	assert.Equal(t, DeviceInfoLegacyLen, n)
	assert.False(t, d2.HasNumberCast)
	assert.Equal(t, "LossTst007", d2.ShortName)
	assert.Equal(t, types.PreCntPreset, d2.PreCnt)
}

func TestSerializeLegacyWithNumberCast(t *testing.T) {
	dataExpected, _ := hex.DecodeString("ffff000000800000" + "0000000000000000" + "ffff" + "efbeadde00000000")
	d := &DeviceInfoLegacy{
		DeviceInfo: DeviceInfo{
			ManufacturerID: types.ManufacturerID,
			FormID:         types.FormID,
			PreCnt:         math.MinInt16,
		},
		HasNumberCast: true,
		NumberCastVal: 0xdeadbeef,
	}
	assert.Equal(t, dataExpected, d.Serialize())

	var d2 DeviceInfoLegacy
	n := d2.Deserialize(dataExpected)
	assert.Equal(t, DeviceInfoLegacyLen, n)
	assert.True(t, d2.HasNumberCast)
	assert.Equal(t, uint64(0xdeadbeef), d2.NumberCastVal)
	assert.Equal(t, "", d2.ShortName)
}

func TestSerializeNumberCast(t *testing.T) {
	dataExpected, _ := hex.DecodeString("ffff00004523010000000000")
	n := &NumberCast{
		ManufacturerID: types.ManufacturerID,
		FormID:         types.FormID,
		Value:          0x12345,
	}
	assert.Equal(t, dataExpected, n.Serialize())

	var n2 NumberCast
	consumed := n2.Deserialize(dataExpected)
	assert.Equal(t, NumberCastLen, consumed)
	assert.True(t, n2.Valid())
	assert.Equal(t, uint64(0x12345), n2.Value)
}

func TestWalkAdElements(t *testing.T) {
	data, _ := hex.DecodeString("020104" + "04ffffff07" + "0508426f6172")
	var els []AdElement
	WalkAdElements(data, func(el AdElement) bool {
		els = append(els, el)
		return true
	})
	assert.Equal(t, 3, len(els))
	assert.Equal(t, AdTypeFlags, els[0].Type)
	assert.Equal(t, []byte{0x04}, els[0].Value)
	assert.Equal(t, AdTypeManufacturer, els[1].Type)
	assert.Equal(t, AdTypeShortName, els[2].Type)
	assert.Equal(t, []byte("Boar"), els[2].Value)
}

func TestWalkAdElementsTruncated(t *testing.T) {
	data, _ := hex.DecodeString("020104" + "10ff1122")
	count := 0
	WalkAdElements(data, func(el AdElement) bool {
		count++
		return true
	})
	assert.Equal(t, 1, count)
}

func TestFindManufacturerData(t *testing.T) {
	mfg, _ := hex.DecodeString("ffff07")
	data := AppendAdElement(nil, AdTypeFlags, []byte{AdFlagNoBrEdr})
	data = AppendAdElement(data, AdTypeManufacturer, mfg)
	assert.Equal(t, mfg, FindManufacturerData(data))
	assert.Nil(t, FindManufacturerData(data[:3]))
}

func TestClassifyPhy(t *testing.T) {
	ch, ok := ClassifyPhy(types.Phy1M, types.Phy2M)
	assert.True(t, ok)
	assert.Equal(t, types.Channel2M, ch)

	ch, ok = ClassifyPhy(types.Phy1M, types.Phy1M)
	assert.True(t, ok)
	assert.Equal(t, types.Channel1M, ch)

	ch, ok = ClassifyPhy(types.PhyCoded, types.PhyCoded)
	assert.True(t, ok)
	assert.Equal(t, types.ChannelCoded, ch)

	ch, ok = ClassifyPhy(types.Phy1M, types.PhyNone)
	assert.True(t, ok)
	assert.Equal(t, types.ChannelLegacy, ch)

	_, ok = ClassifyPhy(types.Phy2M, types.Phy2M)
	assert.False(t, ok)
	_, ok = ClassifyPhy(types.PhyCoded, types.Phy1M)
	assert.False(t, ok)
}
