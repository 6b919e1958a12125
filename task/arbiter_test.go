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

package task

import (
	"testing"

	"github.com/cheetahray/losstest/types"
	"github.com/stretchr/testify/assert"
)

func TestArbiterClaimRelease(t *testing.T) {
	a := NewArbiter()
	assert.Equal(t, types.RoleNone, a.Trigger(types.RoleNone, 0))
	assert.Equal(t, types.TaskIdle, a.Status(types.RoleSender))

	assert.Equal(t, types.RoleSender, a.Trigger(types.RoleSender, 1))
	assert.Equal(t, types.TaskRunning, a.Status(types.RoleSender))
	assert.Equal(t, types.TaskBlocked, a.Status(types.RoleScanner))

	// a losing claim leaves the holder in place
	assert.Equal(t, types.RoleSender, a.Trigger(types.RoleScanner, 1))
	assert.Equal(t, types.RoleSender, a.Trigger(types.RoleSender, 0))

	// release by a non-holder is a no-op
	assert.Equal(t, types.RoleSender, a.Trigger(types.RoleScanner, -1))

	assert.Equal(t, types.RoleNone, a.Trigger(types.RoleSender, -1))
	assert.Equal(t, types.TaskIdle, a.Status(types.RoleScanner))
}

func TestArbiterReclaimAfterRelease(t *testing.T) {
	a := NewArbiter()
	assert.Equal(t, types.RoleScanner, a.Trigger(types.RoleScanner, 1))
	assert.Equal(t, types.RoleNone, a.Trigger(types.RoleScanner, -1))
	assert.Equal(t, types.RoleEnvMonitor, a.Trigger(types.RoleEnvMonitor, 1))
	assert.Equal(t, types.TaskRunning, a.Status(types.RoleEnvMonitor))
}
