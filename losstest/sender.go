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

// Timing constants of the sender cycle, in milliseconds.
const (
	countdownStepMs  = 1000
	preBurstGapMs    = 100
	ackWaitMs        = 100
	settleMs         = 500
	abortedAdvMs     = 3000
	flowRewriteAdvMs = 5000
)

// Sender drives the transmitting side of a round: countdown, burst,
// burst report, ack wait, repeated per channel group until every enabled
// channel reaches the round target.
type Sender struct {
	c      *Core
	params Params
	abort  func() bool

	mu        sync.Mutex
	forms     [types.DataChannelCount]packet.DeviceInfo
	subTotal  [types.DataChannelCount]uint16
	acked     [types.DataChannelCount]bool
	done      [types.DataChannelCount]bool
	totalNum  uint16
	txPwr     int8
	finalized bool
}

// NewSender prepares the transmitting role: TX power, reset payload
// forms, preset broadcast on every enabled channel, and the ack
// listener. The abort predicate is polled at every wait point of the
// cycle; nil means never abort.
func NewSender(c *Core, params Params, abort func() bool) (*Sender, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	s := &Sender{
		c:      c,
		params: params,
		abort:  abort,
	}
	s.totalNum = params.TotalCount()

	actual, err := c.Driver.SetTxPower(params.TxPowerDbm)
	if err != nil {
		return nil, errors.Wrap(err, "set tx power")
	}
	s.txPwr = actual

	for ch := range s.forms {
		s.forms[ch] = packet.DeviceInfo{
			ManufacturerID: types.ManufacturerID,
			FormID:         types.FormID,
			PreCnt:         types.PreCntPreset,
			FlowCnt:        0,
			UniqueID:       c.UniqueID,
		}
	}

	c.setRoleSource(s)
	c.setSentHook(s.handleSent)
	for _, ch := range params.EnabledChannels() {
		if err := c.Adv.Update(ch, params.advConfig(types.IntervalSecond), nil, 0, 0); err != nil {
			return nil, err
		}
	}
	if err := s.publishStatus(); err != nil {
		return nil, err
	}

	// listen for the scanner's echo acknowledgments
	c.Driver.SetReceiver(s.handleReception)
	if err := c.Driver.StartScan(params.ScanMethod()); err != nil {
		return nil, errors.Wrap(err, "start ack scan")
	}

	logger.Infof("packet loss test (node %03d) **** SND side ****", c.Node)
	return s, nil
}

func (s *Sender) Kind() types.Role {
	return types.RoleSender
}

// Payload implements advert.PayloadSource with the channel's current
// form, or the four peek messages for the status channel.
func (s *Sender) Payload(ch types.ChannelId) []byte {
	s.mu.Lock()
	defer s.mu.Unlock()

	ad := packet.AppendAdElement(nil, packet.AdTypeFlags, []byte{packet.AdFlagNoBrEdr})
	switch ch {
	case types.ChannelLegacy:
		d := packet.DeviceInfoLegacy{DeviceInfo: s.forms[ch], ShortName: s.c.Adv.Name(ch)}
		return packet.AppendAdElement(ad, packet.AdTypeManufacturer, d.Serialize())
	case types.ChannelStatus:
		ad = packet.AppendAdElement(ad, packet.AdTypeCompleteName, []byte(s.c.Adv.Name(ch)))
		for dch := types.ChannelId(0); int(dch) < types.DataChannelCount; dch++ {
			st := s.statusLocked(dch)
			ad = packet.AppendAdElement(ad, packet.AdTypeManufacturer, st.Peek())
		}
		return ad
	default:
		if int(ch) < types.DataChannelCount {
			return packet.AppendAdElement(ad, packet.AdTypeManufacturer, s.forms[ch].Serialize())
		}
		return ad
	}
}

func (s *Sender) statusLocked(ch types.ChannelId) SenderStatus {
	target := uint16(0)
	if s.params.ChannelEnabled(ch) {
		target = s.totalNum
	}
	return SenderStatus{
		Node:       s.c.Node,
		Channel:    ch,
		Sent:       s.subTotal[ch],
		Target:     target,
		TxPowerDbm: s.txPwr,
	}
}

// Status reports the four per-channel progress records.
func (s *Sender) Status() [types.DataChannelCount]SenderStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out [types.DataChannelCount]SenderStatus
	for ch := range out {
		out[ch] = s.statusLocked(types.ChannelId(ch))
	}
	return out
}

// handleReception watches for echoed burst reports. An inbound test
// payload byte-identical to one of our own forms is the scanner's
// acknowledgment for that channel.
func (s *Sender) handleReception(rx radio.Reception) {
	d, ch, ok := parseTestPayload(rx)
	if !ok || int(ch) >= types.DataChannelCount {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if d == s.forms[ch] {
		s.acked[ch] = true
	}
}

// handleSent runs on burst completion. After an aborted round the flow
// count is rewritten into a packet total (or an overflow marker) and the
// final payload is broadcast once more so scanners can settle.
func (s *Sender) handleSent(set int, numSent int) {
	if set < 0 || set >= types.DataChannelCount {
		return
	}
	ch := types.ChannelId(set)

	s.mu.Lock()
	finalized := s.finalized && s.params.ChannelEnabled(ch)
	if finalized {
		f := s.forms[ch].FlowCnt
		if f <= 200 {
			s.forms[ch].FlowCnt = f * types.BurstCount
		} else {
			s.forms[ch].FlowCnt = 256
		}
	}
	s.mu.Unlock()

	if finalized {
		if err := s.c.Adv.Update(ch, s.params.advConfig(types.IntervalSecond), nil, flowRewriteAdvMs, 0); err != nil {
			logger.Errorf("rebroadcast after abort on %v: %v", ch, err)
		}
	}
}

func (s *Sender) aborted() bool {
	return s.abort != nil && s.abort()
}

func (s *Sender) setPreCnt(chans []types.ChannelId, v int16) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, ch := range chans {
		s.forms[ch].PreCnt = v
	}
}

func (s *Sender) bumpFlow(chans []types.ChannelId) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, ch := range chans {
		s.forms[ch].FlowCnt++
	}
}

func (s *Sender) addSubTotals(chans []types.ChannelId, n uint16) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, ch := range chans {
		s.subTotal[ch] += n
	}
}

func (s *Sender) clearAcks(chans []types.ChannelId) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, ch := range chans {
		s.acked[ch] = false
	}
}

func (s *Sender) allAcked(chans []types.ChannelId) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, ch := range chans {
		if !s.acked[ch] {
			return false
		}
	}
	return true
}

func (s *Sender) refreshPayloads(chans []types.ChannelId) {
	for _, ch := range chans {
		if err := s.c.Adv.SetPayload(ch, nil); err != nil {
			logger.Errorf("refresh payload %v: %v", ch, err)
		}
	}
}

func (s *Sender) publishStatus() error {
	return s.c.Adv.Update(types.ChannelStatus, s.params.advConfig(types.IntervalSecond), nil, 0, 0)
}

// selectGroup picks the channels of this cycle. The Coded channel runs
// alone; 2M, 1M and legacy run together; whichever group trails gets the
// next burst.
func (s *Sender) selectGroup() []types.ChannelId {
	s.mu.Lock()
	defer s.mu.Unlock()

	var groupA []types.ChannelId
	for _, ch := range []types.ChannelId{types.Channel2M, types.Channel1M, types.ChannelLegacy} {
		if s.params.ChannelEnabled(ch) {
			groupA = append(groupA, ch)
		}
	}
	if !s.params.PhyCoded {
		return groupA
	}
	groupB := []types.ChannelId{types.ChannelCoded}
	if len(groupA) == 0 {
		return groupB
	}

	subA := uint16(0)
	switch {
	case s.params.Phy2M && s.params.Phy1M:
		subA = s.subTotal[types.Channel2M]
		if s.subTotal[types.Channel1M] < subA {
			subA = s.subTotal[types.Channel1M]
		}
	case s.params.Phy2M:
		subA = s.subTotal[types.Channel2M]
	case s.params.Phy1M:
		subA = s.subTotal[types.Channel1M]
	default:
		subA = s.subTotal[types.ChannelLegacy]
	}
	if subA <= s.subTotal[types.ChannelCoded] {
		return groupA
	}
	return groupB
}

func (s *Sender) roundComplete() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, ch := range s.params.EnabledChannels() {
		if s.subTotal[ch] < s.totalNum {
			return false
		}
	}
	return true
}

// Iterate runs one sender cycle: group selection, countdown, burst,
// burst report, ack wait. Returns 1 to continue, 0 when the round target
// is reached, -1 when aborted.
func (s *Sender) Iterate() int {
	if s.aborted() {
		return s.finishAborted()
	}
	if s.roundComplete() {
		return s.finishComplete()
	}
	active := s.selectGroup()

	// countdown, one broadcast step per second, announcing the upcoming
	// flow
	s.bumpFlow(active)
	for step := int16(-3); step <= -1; step++ {
		s.setPreCnt(active, step)
		for _, ch := range active {
			if err := s.c.Adv.Update(ch, s.params.advConfig(types.IntervalSecond), nil, 0, 0); err != nil {
				logger.Errorf("countdown broadcast %v: %v", ch, err)
			}
		}
		if !waitMs(s.c.Clock, countdownStepMs, s.abort) {
			return s.finishAborted()
		}
	}

	if !waitMs(s.c.Clock, preBurstGapMs, s.abort) {
		return s.finishAborted()
	}

	// one-shot burst at the configured interval class; the payload's
	// progress counter carries the seconds left and is refreshed once
	// per second while the burst runs
	iv := s.params.IntervalClass.Interval()
	burstMs := int64(types.BurstCount) * int64(iv.MaxMs)
	secsLeft := int16(burstMs/1000) + 1
	s.setPreCnt(active, secsLeft)
	for _, ch := range active {
		if err := s.c.Adv.Update(ch, s.params.advConfig(s.params.IntervalClass), nil, 0, types.BurstCount); err != nil {
			logger.Errorf("burst start %v: %v", ch, err)
		}
	}
	for remain := secsLeft; remain > 0; remain-- {
		s.setPreCnt(active, remain)
		s.refreshPayloads(active)
		if !waitMs(s.c.Clock, countdownStepMs, s.abort) {
			return s.finishAborted()
		}
	}

	// burst report: flow count now tells receivers how many bursts ran
	s.addSubTotals(active, types.BurstCount)
	s.setPreCnt(active, types.PreCntBurstDone)
	s.clearAcks(active)
	for _, ch := range active {
		if err := s.c.Adv.Update(ch, s.params.advConfig(types.IntervalSecond), nil, 0, 0); err != nil {
			logger.Errorf("burst report %v: %v", ch, err)
		}
	}
	if err := s.publishStatus(); err != nil {
		logger.Errorf("publish status: %v", err)
	}

	// response wait; the ignore flag joins the loop condition, so when
	// set the wait runs to its deadline with ack tracking unused
	ackDeadline := s.c.Clock.NowMs() + ackWaitMs
	for s.c.Clock.NowMs() < ackDeadline && (s.params.IgnoreResponses || !s.allAcked(active)) {
		if s.aborted() {
			return s.finishAborted()
		}
		s.c.Clock.SleepMs(pollSliceMs)
	}

	s.markDone()
	return 1
}

// markDone parks channels that reached the round target: their progress
// counter switches to the round-done marker and the final payload goes
// out while the rest of the round continues.
func (s *Sender) markDone() {
	s.mu.Lock()
	var newly []types.ChannelId
	for _, ch := range s.params.EnabledChannels() {
		if !s.done[ch] && s.subTotal[ch] >= s.totalNum {
			s.done[ch] = true
			s.forms[ch].PreCnt = types.PreCntRoundDone
			newly = append(newly, ch)
		}
	}
	s.mu.Unlock()

	for _, ch := range newly {
		if err := s.c.Adv.Update(ch, s.params.advConfig(types.IntervalSecond), nil, 0, 0); err != nil {
			logger.Errorf("round-done broadcast %v: %v", ch, err)
		}
	}
}

// finishComplete finalizes a round that reached its target: every
// enabled channel broadcasts the round-done marker, then the radio
// settles.
func (s *Sender) finishComplete() int {
	enabled := s.params.EnabledChannels()
	s.setPreCnt(enabled, types.PreCntRoundDone)
	for _, ch := range enabled {
		if err := s.c.Adv.Update(ch, s.params.advConfig(types.IntervalSecond), nil, 0, 0); err != nil {
			logger.Errorf("final broadcast %v: %v", ch, err)
		}
	}
	if err := s.publishStatus(); err != nil {
		logger.Errorf("publish status: %v", err)
	}
	waitMs(s.c.Clock, settleMs, nil)
	waitMs(s.c.Clock, settleMs, nil)
	logger.Infof("sender round complete (node %03d)", s.c.Node)
	return 0
}

// finishAborted finalizes an interrupted round: every enabled channel is
// forced to the round-done marker and broadcast briefly so scanners do
// not wait out their full timeouts.
func (s *Sender) finishAborted() int {
	s.mu.Lock()
	s.finalized = true
	s.mu.Unlock()

	enabled := s.params.EnabledChannels()
	s.setPreCnt(enabled, types.PreCntRoundDone)
	for _, ch := range enabled {
		if err := s.c.Adv.Update(ch, s.params.advConfig(types.IntervalSecond), nil, abortedAdvMs, 0); err != nil {
			logger.Errorf("abort broadcast %v: %v", ch, err)
		}
	}
	logger.Warnf("sender round aborted (node %03d)", s.c.Node)
	return -1
}
