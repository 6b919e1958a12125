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
	"github.com/pkg/errors"

	"github.com/cheetahray/losstest/logger"
	"github.com/cheetahray/losstest/packet"
	"github.com/cheetahray/losstest/radio"
	"github.com/cheetahray/losstest/types"
)

// EnvMonitor listens passively on every PHY and keeps a one-minute
// signal-strength window per channel. It never transmits test traffic.
type EnvMonitor struct {
	c     *Core
	abort func() bool
	rings [types.DataChannelCount]*RssiTracker
}

// EnvSnapshot is the aggregate of one channel's window.
type EnvSnapshot struct {
	Avg, Min, Max int8
}

// NewEnvMonitor starts the environment monitor: combined scanning with
// a long sample window on each channel.
func NewEnvMonitor(c *Core, abort func() bool) (*EnvMonitor, error) {
	m := &EnvMonitor{c: c, abort: abort}
	for ch := range m.rings {
		m.rings[ch] = NewRssiTracker(c.Clock, envRssiSlots, envRssiExpiryMs)
	}

	c.setRoleSource(nil)
	c.Driver.SetReceiver(m.handleReception)
	if err := c.Driver.StartScan(types.ScanCombined); err != nil {
		return nil, errors.Wrap(err, "start scan")
	}

	logger.Infof("environment monitor (node %03d)", c.Node)
	return m, nil
}

func (m *EnvMonitor) Kind() types.Role {
	return types.RoleEnvMonitor
}

// handleReception samples every classifiable advertisement, loss-test
// traffic or not. The monitor measures the band, not the protocol.
func (m *EnvMonitor) handleReception(rx radio.Reception) {
	ch, ok := packet.ClassifyPhy(rx.PrimaryPhy, rx.SecondaryPhy)
	if !ok || int(ch) >= types.DataChannelCount {
		return
	}
	m.rings[ch].Record(rx.Rssi)
}

// Snapshot returns the current aggregate of every channel window.
func (m *EnvMonitor) Snapshot() [types.DataChannelCount]EnvSnapshot {
	var out [types.DataChannelCount]EnvSnapshot
	for ch := range m.rings {
		out[ch].Avg, out[ch].Min, out[ch].Max = m.rings[ch].Compute()
	}
	return out
}

// Iterate logs each channel's window aggregate once per second.
func (m *EnvMonitor) Iterate() int {
	if m.abort != nil && m.abort() {
		_ = m.c.Driver.StopScan()
		logger.Warnf("environment monitor stopped (node %03d)", m.c.Node)
		return -1
	}

	for ch := types.ChannelId(0); int(ch) < types.DataChannelCount; ch++ {
		avg, min, max := m.rings[ch].Compute()
		logger.Debugf("env %v rssi %d(%d..%d)", ch, avg, min, max)
	}

	if !waitMs(m.c.Clock, 1000, m.abort) {
		_ = m.c.Driver.StopScan()
		logger.Warnf("environment monitor stopped (node %03d)", m.c.Node)
		return -1
	}
	return 1
}
