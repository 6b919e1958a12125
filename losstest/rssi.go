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
	"math"
	"sync"
)

// rssiInvalid marks a reading outside the plausible receiver range.
const rssiInvalid int8 = math.MinInt8

// Ring sizes and sample lifetimes of the two tracker users.
const (
	numcastRssiSlots    = 32
	numcastRssiExpiryMs = 5 * 1000
	envRssiSlots        = 256
	envRssiExpiryMs     = 60 * 1000
)

// recomputeThrottleMs limits how often the aggregate gets refreshed.
const recomputeThrottleMs = 50

type rssiSample struct {
	expiresMs int64
	rssi      int8
}

// RssiTracker keeps timed samples in a fixed ring and aggregates
// average/min/max over the ones that have not expired yet. Safe for a
// recording reception callback concurrent with a computing role loop.
type RssiTracker struct {
	mu         sync.Mutex
	clk        Clock
	samples    []rssiSample
	next       int
	expiryMs   int64
	lastCalcMs int64

	avg, min, max int8
}

// NewRssiTracker creates a tracker of the given ring size and sample
// lifetime.
func NewRssiTracker(clk Clock, slots int, expiryMs int64) *RssiTracker {
	return &RssiTracker{
		clk:        clk,
		samples:    make([]rssiSample, slots),
		expiryMs:   expiryMs,
		lastCalcMs: -(1 << 40),
	}
}

// Record stores one sample, overwriting the oldest slot when the ring is
// full. Readings above +20 dBm cannot come from a real receiver and are
// dropped.
func (t *RssiTracker) Record(rssi int16) {
	if rssi > 20 {
		return
	}
	if rssi < math.MinInt8 {
		rssi = math.MinInt8
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.samples[t.next] = rssiSample{expiresMs: t.clk.NowMs() + t.expiryMs, rssi: int8(rssi)}
	t.next = (t.next + 1) % len(t.samples)
}

// Compute returns average/min/max over the unexpired samples, or zeros
// when none are left. Recomputation is throttled; calls inside the
// throttle window return the previous aggregate.
func (t *RssiTracker) Compute() (avg, min, max int8) {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.clk.NowMs()
	if now-t.lastCalcMs < recomputeThrottleMs {
		return t.avg, t.min, t.max
	}
	t.lastCalcMs = now

	sum, count := 0, 0
	minv, maxv := int8(20), int8(-127)
	for _, s := range t.samples {
		if s.expiresMs == 0 || s.expiresMs <= now {
			continue
		}
		sum += int(s.rssi)
		count++
		if s.rssi < minv {
			minv = s.rssi
		}
		if s.rssi > maxv {
			maxv = s.rssi
		}
	}
	if count == 0 {
		t.avg = 0
	} else {
		t.avg = int8(sum / count)
	}
	if minv == 20 {
		minv = 0
	}
	if maxv == -127 {
		maxv = 0
	}
	t.min, t.max = minv, maxv
	return t.avg, t.min, t.max
}

// rssiRunning tracks the current/min/max and running average of one
// reception record.
type rssiRunning struct {
	cur, min, max int8
	acc           int64
	n             int64
}

func newRssiRunning() rssiRunning {
	return rssiRunning{cur: rssiInvalid, min: 20, max: -127}
}

func (r *rssiRunning) add(rssi int16) {
	if rssi > 20 || rssi < math.MinInt8 {
		r.cur = rssiInvalid
		return
	}
	v := int8(rssi)
	r.cur = v
	if r.min == 20 || v < r.min {
		r.min = v
	}
	if r.max == -127 || v > r.max {
		r.max = v
	}
	r.acc += int64(v)
	r.n++
}

func (r *rssiRunning) avg() int8 {
	if r.n == 0 {
		return rssiInvalid
	}
	return int8(r.acc / r.n)
}
