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

// Timing constants of the scanner cycle, in milliseconds.
const (
	heartbeatCombinedMs = 10 * 1000
	heartbeatCodedMs    = 30 * 1000
	firstRoundFactor    = 5
	idleFlushMs         = 800
	roundDoneWaitMs     = 10 * 1000
	echoAdvMs           = 1000
	combinedExtraMs     = 3000
	recentActivityMs    = 5000
)

// Scanner drives the receiving side of a round: it waits for a sender's
// countdown, opens a reception window sized to the expected burst,
// counts what arrives, acknowledges burst reports and publishes its own
// progress on the status channel.
type Scanner struct {
	c      *Core
	params Params
	abort  func() bool

	mu          sync.Mutex
	method      types.ScanMethod
	firstRound  bool
	recs        [types.DataChannelCount]*recvRecord
	subTotal    [types.DataChannelCount]uint16
	lastRxMs    int64
	sawTraffic  bool
	notice      int16
	noticeSeen  bool
	noticeCh    types.ChannelId
	echoPending [types.DataChannelCount]bool
	echoes      [types.DataChannelCount][]byte
}

// NewScanner prepares the receiving role: reception records cleared, the
// round scan method derived from the enabled PHYs, the receiver hooked
// up and scanning started.
func NewScanner(c *Core, params Params, abort func() bool) (*Scanner, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	s := &Scanner{
		c:          c,
		params:     params,
		abort:      abort,
		method:     params.ScanMethod(),
		firstRound: true,
	}

	c.setRoleSource(s)
	c.Driver.SetReceiver(s.handleReception)
	if err := c.Driver.StartScan(s.method); err != nil {
		return nil, errors.Wrap(err, "start scan")
	}
	if err := s.publishStatus(); err != nil {
		return nil, err
	}

	logger.Infof("packet loss test (node %03d) **** RCV side ****", c.Node)
	return s, nil
}

func (s *Scanner) Kind() types.Role {
	return types.RoleScanner
}

// Payload implements advert.PayloadSource: the status channel carries
// the four reception peek messages, the rest keep the idle identity.
func (s *Scanner) Payload(ch types.ChannelId) []byte {
	if ch != types.ChannelStatus {
		return s.c.idlePayload(ch)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	ad := packet.AppendAdElement(nil, packet.AdTypeFlags, []byte{packet.AdFlagNoBrEdr})
	ad = packet.AppendAdElement(ad, packet.AdTypeCompleteName, []byte(s.c.Adv.Name(ch)))
	for dch := types.ChannelId(0); int(dch) < types.DataChannelCount; dch++ {
		ad = packet.AppendAdElement(ad, packet.AdTypeManufacturer, s.statusLocked(dch).Peek())
	}
	return ad
}

func (s *Scanner) statusLocked(ch types.ChannelId) ReceiverStatus {
	rec := s.recs[ch]
	target := uint16(0)
	switch {
	case rec != nil && rec.flow > 0:
		// the announced flow tracks the sender's actual progress
		target = rec.flow * types.BurstCount
	case s.params.ChannelEnabled(ch):
		target = s.params.TotalCount()
	}
	if rec == nil {
		return ReceiverStatus{
			Channel:       ch,
			Target:        target,
			RssiCur:       int16(rssiInvalid),
			RssiMin:       int16(rssiInvalid),
			RssiMax:       int16(rssiInvalid),
			RemoteTxPower: types.TxPowerUnset,
		}
	}
	st := rec.status(ch, target)
	st.Received = s.subTotal[ch]
	return st
}

// Status reports the four per-channel reception records.
func (s *Scanner) Status() [types.DataChannelCount]ReceiverStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out [types.DataChannelCount]ReceiverStatus
	for ch := range out {
		out[ch] = s.statusLocked(types.ChannelId(ch))
	}
	return out
}

func (s *Scanner) handleReception(rx radio.Reception) {
	d, ch, ok := parseTestPayload(rx)
	if !ok || int(ch) >= types.DataChannelCount {
		return
	}
	if !s.params.ChannelEnabled(ch) {
		return
	}
	if d.FlowCnt > flowCntMax {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.c.Clock.NowMs()
	s.lastRxMs = now
	s.sawTraffic = true

	rec := s.recs[ch]
	fresh := rec == nil || !rec.sameSender(d.UniqueID, rx.PrimaryPhy, rx.SecondaryPhy, rx.TxPower)
	if fresh {
		rec = &recvRecord{
			uid:    d.UniqueID,
			priPhy: rx.PrimaryPhy,
			secPhy: rx.SecondaryPhy,
			txPwr:  rx.TxPower,
			flow:   d.FlowCnt,
			rssi:   newRssiRunning(),
		}
		s.recs[ch] = rec
		s.subTotal[ch] = 0
		logger.Infof("sender %03d detected on %v", nodeFromUniqueID(d.UniqueID), ch)
	}

	// every flow carries its own rolling stats; any valid packet
	// announcing a new flow restarts them
	newFlow := !fresh && rec.flow != d.FlowCnt
	if newFlow {
		rec.flow = d.FlowCnt
		rec.rssi = newRssiRunning()
	}

	switch {
	case d.PreCnt == types.PreCntPreset:
		if newFlow {
			// same sender, new flow: restart the count, keep the log
			// bookkeeping
			rec.subTotal = 0
			rec.complete = false
			s.subTotal[ch] = 0
		}

	case d.PreCnt >= -3 && d.PreCnt < 0:
		// countdown: a burst starts in -PreCnt seconds
		s.notice = d.PreCnt
		s.noticeSeen = true
		s.noticeCh = ch

	case d.PreCnt == types.PreCntBurstDone:
		if !rec.dumped {
			rec.dumped = true
			logger.Infof("%s", s.statusLocked(ch).SenderLogLine())
		}
		if !s.params.IgnoreResponses {
			s.echoes[ch] = d.Serialize()
			s.echoPending[ch] = true
		}

	case d.PreCnt == types.PreCntRoundDone:
		rec.complete = true
		if !rec.doneLogged {
			rec.doneLogged = true
			logger.Infof("%s", s.statusLocked(ch).LogLine())
		}

	default: // positive: burst traffic
		rec.subTotal++
		s.subTotal[ch]++
		s.notice = 0
		s.noticeSeen = true
		s.noticeCh = ch
	}

	rec.rssi.add(rx.Rssi)
	rec.lastPreCnt = d.PreCnt
	rec.lastSeenMs = now
}

func (s *Scanner) aborted() bool {
	return s.abort != nil && s.abort()
}

// takeNotice consumes a pending countdown notice and returns the wait
// it implies, in milliseconds.
func (s *Scanner) takeNotice() (int64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.noticeSeen {
		return 0, false
	}
	s.noticeSeen = false
	return int64(-s.notice) * 1000, true
}

// windowMethod picks the listening method for the upcoming window from
// the channels heard from recently.
func (s *Scanner) windowMethod() types.ScanMethod {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.c.Clock.NowMs()
	coded, other := false, false
	for ch := types.ChannelId(0); int(ch) < types.DataChannelCount; ch++ {
		rec := s.recs[ch]
		if rec == nil || now-rec.lastSeenMs > recentActivityMs {
			continue
		}
		if ch == types.ChannelCoded {
			coded = true
		} else {
			other = true
		}
	}
	switch {
	case coded && other:
		return types.ScanCombined
	case coded:
		return types.ScanCodedOnly
	case other:
		return types.Scan1MOnly
	default:
		return s.method
	}
}

// windowMs sizes the reception window to the expected burst duration.
// Single-PHY methods see every event and get double slack; the combined
// method splits its time and gets a fixed extension.
func (s *Scanner) windowMs(method types.ScanMethod) int64 {
	iv := s.params.IntervalClass.Interval()
	base := int64(types.BurstCount) * int64(iv.MaxMs)
	if method == types.ScanCombined {
		return base + combinedExtraMs
	}
	return base * 2
}

// allComplete reports whether the round is over: at least one channel
// carried a flow and every channel that did has seen its round-done
// marker. Channels never heard from sit the round out.
func (s *Scanner) allComplete() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	heard := false
	for _, ch := range s.params.EnabledChannels() {
		rec := s.recs[ch]
		if rec == nil || rec.flow == 0 {
			continue
		}
		if !rec.complete {
			return false
		}
		heard = true
	}
	return heard
}

// flushEchoes broadcasts the pending burst-report acknowledgments, each
// as a short one-shot carrying the sender's own payload back.
func (s *Scanner) flushEchoes() {
	for ch := types.ChannelId(0); int(ch) < types.DataChannelCount; ch++ {
		s.mu.Lock()
		pending := s.echoPending[ch]
		echo := s.echoes[ch]
		s.echoPending[ch] = false
		s.mu.Unlock()
		if !pending {
			continue
		}
		ad := packet.AppendAdElement(nil, packet.AdTypeFlags, []byte{packet.AdFlagNoBrEdr})
		ad = packet.AppendAdElement(ad, packet.AdTypeManufacturer, echo)
		if err := s.c.Adv.Update(ch, s.params.advConfig(types.IntervalSecond), ad, echoAdvMs, 0); err != nil {
			logger.Errorf("echo ack on %v: %v", ch, err)
		}
	}
}

func (s *Scanner) publishStatus() error {
	return s.c.Adv.Update(types.ChannelStatus, s.params.advConfig(types.IntervalSecond), nil, 0, 0)
}

func (s *Scanner) beginWindow() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sawTraffic = false
	s.lastRxMs = s.c.Clock.NowMs()
}

func (s *Scanner) idleFlush() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sawTraffic && s.c.Clock.NowMs()-s.lastRxMs > idleFlushMs
}

// Iterate runs one scanner cycle: heartbeat wait for a countdown, the
// reception window, acknowledgment and status publication. Returns 1 to
// continue, 0 when every channel heard from finished its round, -1 when
// aborted or when the heartbeat expires without any sender activity.
func (s *Scanner) Iterate() int {
	if s.aborted() {
		return s.finishAborted()
	}

	period := int64(heartbeatCombinedMs)
	if s.method == types.ScanCodedOnly {
		period = heartbeatCodedMs
	}
	if s.firstRound {
		period *= firstRoundFactor
	}

	deadline := s.c.Clock.NowMs() + period
	var cntdnMs int64
	for {
		if s.allComplete() {
			return s.finishComplete()
		}
		var got bool
		if cntdnMs, got = s.takeNotice(); got {
			break
		}
		if s.c.Clock.NowMs() >= deadline {
			_ = s.c.Driver.StopScan()
			_ = s.c.Adv.StopAll()
			logger.Warnf("scanner heartbeat expired, no sender activity (node %03d)", s.c.Node)
			return -1
		}
		if s.aborted() {
			return s.finishAborted()
		}
		s.c.Clock.SleepMs(pollSliceMs)
	}

	// a round is live: go quiet and listen
	if err := s.c.Adv.StopAll(); err != nil {
		logger.Errorf("stop advertising: %v", err)
	}

	method := s.windowMethod()
	if err := s.c.Driver.StartScan(method); err != nil {
		logger.Errorf("start window scan: %v", err)
	}
	s.beginWindow()

	wdeadline := s.c.Clock.NowMs() + s.windowMs(method) + cntdnMs
	for s.c.Clock.NowMs() < wdeadline {
		if s.aborted() {
			return s.finishAborted()
		}
		s.flushEchoes()
		if s.idleFlush() {
			break
		}
		s.c.Clock.SleepMs(pollSliceMs)
	}
	s.flushEchoes()

	if err := s.publishStatus(); err != nil {
		logger.Errorf("publish status: %v", err)
	}
	if err := s.c.Driver.StartScan(s.method); err != nil {
		logger.Errorf("resume scan: %v", err)
	}

	s.mu.Lock()
	s.firstRound = false
	s.mu.Unlock()
	return 1
}

// finishComplete wraps up a finished round: the sender's round-done
// broadcasts get their settle time, scanning stops and the final status
// stays on the air.
func (s *Scanner) finishComplete() int {
	if !waitMs(s.c.Clock, roundDoneWaitMs, s.abort) {
		return s.finishAborted()
	}
	_ = s.c.Driver.StopScan()
	if err := s.publishStatus(); err != nil {
		logger.Errorf("publish status: %v", err)
	}
	logger.Infof("scanner round complete (node %03d)", s.c.Node)
	return 0
}

func (s *Scanner) finishAborted() int {
	_ = s.c.Driver.StopScan()
	_ = s.c.Adv.StopAll()
	logger.Warnf("scanner aborted (node %03d)", s.c.Node)
	return -1
}
