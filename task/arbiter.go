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

// Package task arbitrates which role owns the radio.
package task

import (
	"sync"

	"github.com/cheetahray/losstest/types"
)

// Arbiter holds the single active-role slot. Only one role may drive the
// radio at a time; the CLI goroutine and the round driver may both call
// into it.
type Arbiter struct {
	mu     sync.Mutex
	active types.Role
}

// NewArbiter returns an idle arbiter.
func NewArbiter() *Arbiter {
	return &Arbiter{}
}

// Trigger claims, releases, or queries the slot and returns the active
// role afterwards. delta > 0 claims role when the slot is idle; delta < 0
// releases it when role is the holder; delta == 0 queries. A claim that
// loses returns the current holder unchanged, so callers detect failure
// by comparing the result against their own role.
func (a *Arbiter) Trigger(role types.Role, delta int) types.Role {
	a.mu.Lock()
	defer a.mu.Unlock()

	switch {
	case delta > 0:
		if a.active == types.RoleNone {
			a.active = role
		}
	case delta < 0:
		if a.active == role {
			a.active = types.RoleNone
		}
	}
	return a.active
}

// Status reports the slot from role's viewpoint.
func (a *Arbiter) Status(role types.Role) types.TaskStatus {
	a.mu.Lock()
	defer a.mu.Unlock()

	switch a.active {
	case types.RoleNone:
		return types.TaskIdle
	case role:
		return types.TaskRunning
	default:
		return types.TaskBlocked
	}
}
