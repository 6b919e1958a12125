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

import "time"

// Clock is the monotonic millisecond time base of the protocol loops.
type Clock interface {
	NowMs() int64
	SleepMs(ms int64)
}

type sysClock struct {
	start time.Time
}

// NewClock returns the wall clock used outside of tests.
func NewClock() Clock {
	return &sysClock{start: time.Now()}
}

func (c *sysClock) NowMs() int64 {
	return time.Since(c.start).Milliseconds()
}

func (c *sysClock) SleepMs(ms int64) {
	if ms > 0 {
		time.Sleep(time.Duration(ms) * time.Millisecond)
	}
}

// pollSliceMs is the granularity of abort polling inside the wait loops.
const pollSliceMs = 10

// waitUntil blocks on clk until the deadline, polling abort between
// slices. Returns false when aborted before the deadline.
func waitUntil(clk Clock, deadlineMs int64, abort func() bool) bool {
	for {
		if abort != nil && abort() {
			return false
		}
		now := clk.NowMs()
		if now >= deadlineMs {
			return true
		}
		step := deadlineMs - now
		if step > pollSliceMs {
			step = pollSliceMs
		}
		clk.SleepMs(step)
	}
}

// waitMs is waitUntil with a relative duration.
func waitMs(clk Clock, ms int64, abort func() bool) bool {
	return waitUntil(clk, clk.NowMs()+ms, abort)
}
