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

	"github.com/cheetahray/losstest/radio"
	"github.com/cheetahray/losstest/types"
)

func TestEnvMonitor(t *testing.T) {
	c, drv, _ := newTestCore(3)

	m, err := NewEnvMonitor(c, nil)
	require.NoError(t, err)
	scanning, method := drv.Scanning()
	require.True(t, scanning)
	require.Equal(t, types.ScanCombined, method)

	// the monitor samples any classifiable advertisement, not just test
	// traffic
	drv.Inject(radio.Reception{PrimaryPhy: types.Phy1M, SecondaryPhy: types.Phy1M, Rssi: -40, Data: []byte{0x02, 0x01, 0x04}})
	drv.Inject(radio.Reception{PrimaryPhy: types.Phy1M, SecondaryPhy: types.Phy1M, Rssi: -60, Data: nil})
	drv.Inject(radio.Reception{PrimaryPhy: types.PhyCoded, SecondaryPhy: types.PhyCoded, Rssi: -80, Data: nil})

	// unclassifiable PHY pairs are dropped
	drv.Inject(radio.Reception{PrimaryPhy: types.Phy2M, SecondaryPhy: types.Phy2M, Rssi: -10, Data: nil})

	snap := m.Snapshot()
	assert.Equal(t, EnvSnapshot{Avg: -50, Min: -60, Max: -40}, snap[types.Channel1M])
	assert.Equal(t, EnvSnapshot{Avg: -80, Min: -80, Max: -80}, snap[types.ChannelCoded])
	assert.Equal(t, EnvSnapshot{}, snap[types.Channel2M])

	assert.Equal(t, 1, m.Iterate())
}

func TestEnvMonitorAbort(t *testing.T) {
	c, drv, _ := newTestCore(3)

	m, err := NewEnvMonitor(c, func() bool { return true })
	require.NoError(t, err)

	assert.Equal(t, -1, m.Iterate())
	scanning, _ := drv.Scanning()
	assert.False(t, scanning)
}
