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

// Package packet implements the wire formats carried in loss-test
// advertising payloads.
package packet

import (
	"encoding/binary"

	"github.com/cheetahray/losstest/types"
)

const (
	DeviceInfoLen       = 16
	LegacyTailLen       = 10
	DeviceInfoLegacyLen = DeviceInfoLen + LegacyTailLen
	NumberCastLen       = 12
)

// numberCastMarker flags a legacy tail that carries a number-cast value
// instead of a short device name.
const numberCastMarker uint16 = 0xFFFF

// DeviceInfo is the test payload broadcast on the extended channels.
// All fields are little-endian on the wire except UniqueID, which the
// firmware lays out big-endian.
type DeviceInfo struct {
	ManufacturerID uint16
	FormID         uint16
	PreCnt         int16
	FlowCnt        uint16
	UniqueID       uint64
}

// Serialize returns the 16-byte wire form.
func (d *DeviceInfo) Serialize() []byte {
	msg := make([]byte, DeviceInfoLen)
	binary.LittleEndian.PutUint16(msg[0:2], d.ManufacturerID)
	binary.LittleEndian.PutUint16(msg[2:4], d.FormID)
	binary.LittleEndian.PutUint16(msg[4:6], uint16(d.PreCnt))
	binary.LittleEndian.PutUint16(msg[6:8], d.FlowCnt)
	binary.BigEndian.PutUint64(msg[8:16], d.UniqueID)
	return msg
}

// Deserialize reads the 16-byte wire form, returning the number of bytes
// consumed, or 0 when data is too short.
func (d *DeviceInfo) Deserialize(data []byte) int {
	if len(data) < DeviceInfoLen {
		return 0
	}
	d.ManufacturerID = binary.LittleEndian.Uint16(data[0:2])
	d.FormID = binary.LittleEndian.Uint16(data[2:4])
	d.PreCnt = int16(binary.LittleEndian.Uint16(data[4:6]))
	d.FlowCnt = binary.LittleEndian.Uint16(data[6:8])
	d.UniqueID = binary.BigEndian.Uint64(data[8:16])
	return DeviceInfoLen
}

// Valid reports whether the payload carries the loss-test identity.
func (d *DeviceInfo) Valid() bool {
	return d.ManufacturerID == types.ManufacturerID && d.FormID == types.FormID
}

// DeviceInfoLegacy is the 26-byte payload broadcast on the legacy (4.x)
/// channel: a DeviceInfo followed by a 10-byte tail holding either a short
// device name or a marked number-cast value.
type DeviceInfoLegacy struct {
	DeviceInfo
	ShortName     string
	HasNumberCast bool
	NumberCastVal uint64
}

func (d *DeviceInfoLegacy) Serialize() []byte {
	msg := make([]byte, DeviceInfoLegacyLen)
	copy(msg, d.DeviceInfo.Serialize())
	tail := msg[DeviceInfoLen:]
	if d.HasNumberCast {
		binary.LittleEndian.PutUint16(tail[0:2], numberCastMarker)
		binary.LittleEndian.PutUint64(tail[2:10], d.NumberCastVal)
	} else {
		copy(tail, d.ShortName)
	}
	return msg
}

func (d *DeviceInfoLegacy) Deserialize(data []byte) int {
	if len(data) < DeviceInfoLegacyLen {
		return 0
	}
	if d.DeviceInfo.Deserialize(data) == 0 {
		return 0
	}
	tail := data[DeviceInfoLen:DeviceInfoLegacyLen]
	if binary.LittleEndian.Uint16(tail[0:2]) == numberCastMarker {
		d.HasNumberCast = true
		d.NumberCastVal = binary.LittleEndian.Uint64(tail[2:10])
		d.ShortName = ""
	} else {
		d.HasNumberCast = false
		d.NumberCastVal = 0
		end := 0
		for end < LegacyTailLen && tail[end] != 0 {
			end++
		}
		d.ShortName = string(tail[:end])
	}
	return DeviceInfoLegacyLen
}

// NumberCast is the 12-byte payload of the number-cast role.
type NumberCast struct {
	ManufacturerID uint16
	FormID         uint16
	Value          uint64
}

func (n *NumberCast) Serialize() []byte {
	msg := make([]byte, NumberCastLen)
	binary.LittleEndian.PutUint16(msg[0:2], n.ManufacturerID)
	binary.LittleEndian.PutUint16(msg[2:4], n.FormID)
	binary.LittleEndian.PutUint64(msg[4:12], n.Value)
	return msg
}

func (n *NumberCast) Deserialize(data []byte) int {
	if len(data) < NumberCastLen {
		return 0
	}
	n.ManufacturerID = binary.LittleEndian.Uint16(data[0:2])
	n.FormID = binary.LittleEndian.Uint16(data[2:4])
	n.Value = binary.LittleEndian.Uint64(data[4:12])
	return NumberCastLen
}

// Valid reports whether the payload carries the loss-test identity.
func (n *NumberCast) Valid() bool {
	return n.ManufacturerID == types.ManufacturerID && n.FormID == types.FormID
}

// ClassifyPhy maps the primary/secondary PHY pair of a received
// advertisement onto the logical channel it was sent on. Exactly four
// combinations are recognized.
func ClassifyPhy(pri, sec types.Phy) (types.ChannelId, bool) {
	switch {
	case pri == types.Phy1M && sec == types.Phy2M:
		return types.Channel2M, true
	case pri == types.Phy1M && sec == types.Phy1M:
		return types.Channel1M, true
	case pri == types.PhyCoded && sec == types.PhyCoded:
		return types.ChannelCoded, true
	case pri == types.Phy1M && sec == types.PhyNone:
		return types.ChannelLegacy, true
	}
	return 0, false
}
