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
	"fmt"
	"math"
	"strconv"

	"github.com/cheetahray/losstest/types"
)

// peekMsgMax bounds one status-channel message.
const peekMsgMax = 64

// channelPhyNames gives the human-readable PHY pair of a data channel.
func channelPhyNames(ch types.ChannelId) (pri, sec string) {
	switch ch {
	case types.Channel2M:
		return "1M", "2M"
	case types.Channel1M:
		return "1M", "1M"
	case types.ChannelCoded:
		return "S8", "S8"
	case types.ChannelLegacy:
		return "BLE", "v4"
	default:
		return "NA", "NA"
	}
}

// rssiString renders an RSSI reading, empty when outside the int8 range.
func rssiString(v int16) string {
	if v >= math.MaxInt8 || v <= math.MinInt8 {
		return ""
	}
	return strconv.Itoa(int(v))
}

// txPowerString renders a TX power, empty when never measured.
func txPowerString(v int8) string {
	if v == types.TxPowerUnset {
		return ""
	}
	return strconv.Itoa(int(v))
}

// peekBytes frames a status message: the first two bytes carry the
// manufacturer id, the text follows, clipped to the message bound.
func peekBytes(msg string) []byte {
	buf := make([]byte, 0, peekMsgMax)
	buf = append(buf, 0xFF, 0xFF)
	buf = append(buf, msg...)
	if len(buf) > peekMsgMax {
		buf = buf[:peekMsgMax]
	}
	return buf
}

// SenderStatus describes one channel's sending progress.
type SenderStatus struct {
	Node       types.NodeId
	Channel    types.ChannelId
	Sent       uint16
	Target     uint16 // 0 when the channel sits out the round
	TxPowerDbm int8
}

// Peek renders the status-channel message of a sending channel. The
// legacy channel drops the slash between its PHY labels.
func (st SenderStatus) Peek() []byte {
	pri, sec := channelPhyNames(st.Channel)
	sep := "/"
	if st.Channel == types.ChannelLegacy {
		sep = ""
	}
	return peekBytes(fmt.Sprintf("SND:%03d P:%s%s%s R:%d/%d T:%d",
		st.Node, pri, sep, sec, st.Sent, st.Target, st.TxPowerDbm))
}

// ReceiverStatus describes one channel's reception state, as seen by a
// scanner watching a remote sender.
type ReceiverStatus struct {
	Node          types.NodeId // the remote sender
	Channel       types.ChannelId
	Received      uint16
	Target        uint16
	RssiCur       int16
	RssiMin       int16
	RssiMax       int16
	RemoteTxPower int8
}

// Peek renders the status-channel message of a receiving channel.
func (st ReceiverStatus) Peek() []byte {
	pri, sec := channelPhyNames(st.Channel)
	sep := "/"
	if st.Channel == types.ChannelLegacy {
		sep = ""
	}
	return peekBytes(fmt.Sprintf("RCV:%03d P:%s%s%s R:%d/%d S:%s(%s..%s) T:%s",
		st.Node, pri, sep, sec, st.Received, st.Target,
		rssiString(st.RssiCur), rssiString(st.RssiMin), rssiString(st.RssiMax),
		txPowerString(st.RemoteTxPower)))
}

// SenderLogLine is the one-time log written when a sender's burst report
// first arrives on a channel.
func (st ReceiverStatus) SenderLogLine() string {
	pri, sec := channelPhyNames(st.Channel)
	return fmt.Sprintf("SENDER:%03d P:%s/%s R:%d/%d S:%s(%s..%s) T:%s",
		st.Node, pri, sec, st.Received, st.Target,
		rssiString(st.RssiCur), rssiString(st.RssiMin), rssiString(st.RssiMax),
		txPowerString(st.RemoteTxPower))
}

// LogLine is the log written when a channel's round completes.
func (st ReceiverStatus) LogLine() string {
	pri, sec := channelPhyNames(st.Channel)
	return fmt.Sprintf("RCV:%03d P:%s/%s R:%d/%d S:%s(%s..%s) T:%s",
		st.Node, pri, sec, st.Received, st.Target,
		rssiString(st.RssiCur), rssiString(st.RssiMin), rssiString(st.RssiMax),
		txPowerString(st.RemoteTxPower))
}
