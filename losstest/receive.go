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
	"github.com/cheetahray/losstest/packet"
	"github.com/cheetahray/losstest/radio"
	"github.com/cheetahray/losstest/types"
)

// flowCntMax is the highest flow count receivers treat as live traffic.
// Payloads above it (idle presets, overflow markers) are ignored.
const flowCntMax = 201

// recvRecord tracks the stream of one remote sender on one channel.
type recvRecord struct {
	uid    uint64
	priPhy types.Phy
	secPhy types.Phy
	txPwr  int8
	flow   uint16

	subTotal   uint16
	rssi       rssiRunning
	echo       []byte // the burst-report payload, kept for the ack echo
	dumped     bool   // burst report logged
	doneLogged bool   // completion logged
	complete   bool
	lastPreCnt int16
	lastSeenMs int64
}

// sameSender compares everything that identifies the sending stream,
// up to but excluding the flow count: a known sender starting a fresh
// flow is not a new sender.
func (r *recvRecord) sameSender(uid uint64, pri, sec types.Phy, txPwr int8) bool {
	return r.uid == uid && r.priPhy == pri && r.secPhy == sec && r.txPwr == txPwr
}

func (r *recvRecord) status(ch types.ChannelId, target uint16) ReceiverStatus {
	return ReceiverStatus{
		Node:          nodeFromUniqueID(r.uid),
		Channel:       ch,
		Received:      r.subTotal,
		Target:        target,
		RssiCur:       int16(r.rssi.cur),
		RssiMin:       int16(r.rssi.min),
		RssiMax:       int16(r.rssi.max),
		RemoteTxPower: r.txPwr,
	}
}

// parseTestPayload extracts and validates the test payload of one
// reception, returning the channel it was sent on. ok is false for
// foreign or malformed advertisements.
func parseTestPayload(rx radio.Reception) (d packet.DeviceInfo, ch types.ChannelId, ok bool) {
	ch, ok = packet.ClassifyPhy(rx.PrimaryPhy, rx.SecondaryPhy)
	if !ok {
		return d, ch, false
	}
	mfg := packet.FindManufacturerData(rx.Data)
	if mfg == nil {
		return d, ch, false
	}
	if ch == types.ChannelLegacy {
		var l packet.DeviceInfoLegacy
		if l.Deserialize(mfg) == 0 || !l.Valid() {
			return d, ch, false
		}
		return l.DeviceInfo, ch, true
	}
	if d.Deserialize(mfg) == 0 || !d.Valid() {
		return d, ch, false
	}
	return d, ch, true
}
