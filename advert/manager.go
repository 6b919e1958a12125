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

// Package advert manages the lifecycle of the advertising channel sets.
package advert

import (
	"fmt"
	"sync"

	"github.com/pkg/errors"

	"github.com/cheetahray/losstest/logger"
	"github.com/cheetahray/losstest/radio"
	"github.com/cheetahray/losstest/types"
)

// SetState is the lifecycle state of one advertising set.
type SetState int

const (
	StateUninitialized SetState = iota
	StateConfigured
	StateDataSet
	StateStarted
	StateStopped
)

func (s SetState) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateConfigured:
		return "configured"
	case StateDataSet:
		return "data-set"
	case StateStarted:
		return "started"
	case StateStopped:
		return "stopped"
	default:
		return fmt.Sprintf("state-%d", int(s))
	}
}

// PayloadSource produces the default advertising payload of a channel,
// from the owning role's current state.
type PayloadSource interface {
	Payload(ch types.ChannelId) []byte
}

// Config holds the per-channel parameters of one (re)configuration.
type Config struct {
	IntervalClass types.IntervalClass
	Anonymous     bool
	InhibitCh37   bool
	InhibitCh38   bool
	InhibitCh39   bool
}

// Manager owns the five logical advertising channels and tracks each
// set's lifecycle explicitly. All radio failures are wrapped and
// returned, never panicked on.
type Manager struct {
	mu     sync.Mutex
	drv    radio.Driver
	src    PayloadSource
	states [types.ChannelCount]SetState
	names  [types.ChannelCount]string
}

// NewManager creates a Manager over the driver. src provides default
// payloads and may be nil until SetPayloadSource is called.
func NewManager(drv radio.Driver, src PayloadSource) *Manager {
	return &Manager{drv: drv, src: src}
}

// SetPayloadSource replaces the default-payload provider.
func (m *Manager) SetPayloadSource(src PayloadSource) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.src = src
}

func checkChannel(ch types.ChannelId) error {
	if ch < 0 || int(ch) >= types.ChannelCount {
		return errors.Wrapf(types.ErrInvalidChannel, "channel %d", int(ch))
	}
	return nil
}

// ChannelMap derives the advertising channel map from the three inhibit
// flags. Inhibiting everything falls back to all channels enabled.
func ChannelMap(inhibit37, inhibit38, inhibit39 bool) uint8 {
	channelMap := uint8(0x07)
	if inhibit37 {
		channelMap &^= 0x01
	}
	if inhibit38 {
		channelMap &^= 0x02
	}
	if inhibit39 {
		channelMap &^= 0x04
	}
	if channelMap == 0 {
		logger.Warnf("all advertising channels inhibited, using all channels")
		channelMap = 0x07
	}
	return channelMap
}

func advParams(ch types.ChannelId, cfg Config) radio.AdvParams {
	iv := cfg.IntervalClass.Interval()
	p := radio.AdvParams{
		IntervalMinMs:  iv.MinMs,
		IntervalMaxMs:  iv.MaxMs,
		Anonymous:      cfg.Anonymous,
		IncludeTxPower: true,
		ChannelMap:     ChannelMap(cfg.InhibitCh37, cfg.InhibitCh38, cfg.InhibitCh39),
	}
	switch ch {
	case types.Channel2M:
		p.PrimaryPhy, p.SecondaryPhy = types.Phy1M, types.Phy2M
	case types.Channel1M:
		p.PrimaryPhy, p.SecondaryPhy = types.Phy1M, types.Phy1M
	case types.ChannelCoded:
		p.PrimaryPhy, p.SecondaryPhy = types.PhyCoded, types.PhyCoded
	case types.ChannelLegacy:
		p.Legacy = true
		p.Anonymous = false
		p.PrimaryPhy, p.SecondaryPhy = types.Phy1M, types.PhyNone
	case types.ChannelStatus:
		p.Anonymous = false
		p.PrimaryPhy, p.SecondaryPhy = types.Phy1M, types.Phy1M
	}
	return p
}

// Configure creates the set on first use and applies the channel's
// parameters. Reconfiguring a started set is rejected.
func (m *Manager) Configure(ch types.ChannelId, cfg Config) error {
	if err := checkChannel(ch); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.states[ch] == StateStarted {
		return errors.Wrapf(types.ErrInvalidState, "channel %v is started", ch)
	}
	if m.states[ch] == StateUninitialized {
		if err := m.drv.CreateSet(int(ch)); err != nil {
			return errors.Wrapf(err, "create set %v", ch)
		}
	}
	if err := m.drv.SetParams(int(ch), advParams(ch, cfg)); err != nil {
		return errors.Wrapf(err, "set params %v", ch)
	}
	if m.states[ch] == StateUninitialized {
		m.states[ch] = StateConfigured
	}
	return nil
}

// SetPayload replaces the channel's advertising data. A nil payload
// regenerates the channel's default content from the payload source.
// Updating the payload of a started set is allowed.
func (m *Manager) SetPayload(ch types.ChannelId, data []byte) error {
	if err := checkChannel(ch); err != nil {
		return err
	}
	if data == nil {
		// the source may call back into the Manager, so it runs unlocked
		m.mu.Lock()
		src := m.src
		m.mu.Unlock()
		if src == nil {
			return errors.Wrapf(types.ErrNotInitialized, "no payload source for channel %v", ch)
		}
		data = src.Payload(ch)
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.states[ch] == StateUninitialized {
		return errors.Wrapf(types.ErrNotInitialized, "channel %v", ch)
	}
	if err := m.drv.SetData(int(ch), data); err != nil {
		return errors.Wrapf(err, "set data %v", ch)
	}
	if m.states[ch] == StateConfigured {
		m.states[ch] = StateDataSet
	}
	return nil
}

// Start begins advertising the channel. durationMs 0 means unlimited;
// maxEvents nonzero makes the broadcast one-shot.
func (m *Manager) Start(ch types.ChannelId, durationMs uint32, maxEvents uint16) error {
	if err := checkChannel(ch); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	switch m.states[ch] {
	case StateDataSet, StateStopped:
	case StateStarted:
		return errors.Wrapf(types.ErrInvalidState, "channel %v already started", ch)
	default:
		return errors.Wrapf(types.ErrInvalidState, "channel %v has no data", ch)
	}
	if err := m.drv.Start(int(ch), durationMs, maxEvents); err != nil {
		return errors.Wrapf(err, "start %v", ch)
	}
	m.states[ch] = StateStarted
	return nil
}

// Stop halts the channel. Stopping a channel that is not advertising is
// a no-op.
func (m *Manager) Stop(ch types.ChannelId) error {
	if err := checkChannel(ch); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.states[ch] != StateStarted {
		return nil
	}
	if err := m.drv.Stop(int(ch)); err != nil {
		return errors.Wrapf(err, "stop %v", ch)
	}
	m.states[ch] = StateStopped
	return nil
}

// StopAll halts every channel, returning the first error seen.
func (m *Manager) StopAll() error {
	var firstErr error
	for ch := types.ChannelId(0); int(ch) < types.ChannelCount; ch++ {
		if err := m.Stop(ch); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// State returns the channel's lifecycle state.
func (m *Manager) State(ch types.ChannelId) SetState {
	m.mu.Lock()
	defer m.mu.Unlock()
	if ch < 0 || int(ch) >= types.ChannelCount {
		return StateUninitialized
	}
	return m.states[ch]
}

// HandleSent marks a one-shot channel stopped after the radio reports
// its burst finished. Called from the driver's sent callback.
func (m *Manager) HandleSent(set int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if set >= 0 && set < types.ChannelCount && m.states[set] == StateStarted {
		m.states[set] = StateStopped
	}
}

// Update runs the full reconfigure chain for one channel: stop if
// running, apply params, set the payload (nil means default), start.
func (m *Manager) Update(ch types.ChannelId, cfg Config, data []byte, durationMs uint32, maxEvents uint16) error {
	if err := m.Stop(ch); err != nil {
		return err
	}
	if err := m.Configure(ch, cfg); err != nil {
		return err
	}
	if err := m.SetPayload(ch, data); err != nil {
		return err
	}
	return m.Start(ch, durationMs, maxEvents)
}

// SetDeviceNames derives each channel's advertised device name from the
// node id and the product base name.
func (m *Manager) SetDeviceNames(node types.NodeId, baseName string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	extName := fmt.Sprintf("LossTst(%03d)", node)
	m.names[types.Channel2M] = extName
	m.names[types.Channel1M] = extName
	m.names[types.ChannelCoded] = extName
	m.names[types.ChannelLegacy] = fmt.Sprintf("LossTst%03d", node)
	if len(baseName) > 19 {
		baseName = baseName[:19]
	}
	m.names[types.ChannelStatus] = fmt.Sprintf("%s(PEEK %03d)", baseName, node)
}

// Name returns the channel's advertised device name.
func (m *Manager) Name(ch types.ChannelId) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if ch < 0 || int(ch) >= types.ChannelCount {
		return ""
	}
	return m.names[ch]
}
