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

package cli

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cheetahray/losstest/losstest"
	"github.com/cheetahray/losstest/radio"
	"github.com/cheetahray/losstest/task"
	"github.com/cheetahray/losstest/types"
)

func TestParseBytes(t *testing.T) {
	var cmd Command
	err := parseBytes([]byte("wrongcmd"), &cmd)
	assert.NotNil(t, err)

	assert.Nil(t, parseBytes([]byte("sender"), &cmd))
	assert.NotNil(t, cmd.Sender)
	assert.Nil(t, parseBytes([]byte("sender le2m le1m"), &cmd))
	assert.True(t, cmd.Sender != nil && len(cmd.Sender.Phys) == 2)
	assert.Nil(t, parseBytes([]byte("sender coded count 2000"), &cmd))
	assert.True(t, cmd.Sender != nil && cmd.Sender.Count.Val == 2000)
	assert.Nil(t, parseBytes([]byte("sender interval 5 txpower -8 noack"), &cmd))
	assert.True(t, cmd.Sender.Interval.Val == 5 && cmd.Sender.TxPower.Val == "-8" && cmd.Sender.NoAck != nil)
	assert.Nil(t, parseBytes([]byte("sender legacy anon"), &cmd))
	assert.True(t, cmd.Sender != nil && cmd.Sender.Anon != nil)

	assert.Nil(t, parseBytes([]byte("scanner"), &cmd))
	assert.NotNil(t, cmd.Scanner)
	assert.Nil(t, parseBytes([]byte("scanner coded itv 2 c 500 noack"), &cmd))
	assert.True(t, cmd.Scanner != nil && cmd.Scanner.Interval.Val == 2 && cmd.Scanner.Count.Val == 500)

	assert.Nil(t, parseBytes([]byte("numcast 12345"), &cmd))
	assert.True(t, cmd.NumCast != nil && cmd.NumCast.Value == 12345 && cmd.NumCast.Once == nil)
	assert.Nil(t, parseBytes([]byte("numcast 7 once"), &cmd))
	assert.True(t, cmd.NumCast != nil && cmd.NumCast.Once != nil)
	assert.NotNil(t, parseBytes([]byte("numcast"), &cmd))

	assert.True(t, parseBytes([]byte("envmon"), &cmd) == nil && cmd.EnvMon != nil)
	assert.True(t, parseBytes([]byte("abort"), &cmd) == nil && cmd.Abort != nil)
	assert.True(t, parseBytes([]byte("status"), &cmd) == nil && cmd.Status != nil)
	assert.True(t, parseBytes([]byte("exit"), &cmd) == nil && cmd.Exit != nil)

	assert.Nil(t, parseBytes([]byte("params"), &cmd))
	assert.True(t, cmd.Params != nil && cmd.Params.Load == nil)
	assert.Nil(t, parseBytes([]byte("params load \"preset.yaml\""), &cmd))
	assert.True(t, cmd.Params != nil && cmd.Params.Load != nil)

	assert.Nil(t, parseBytes([]byte("txpower"), &cmd))
	assert.True(t, cmd.TxPower != nil && cmd.TxPower.Val == nil)
	assert.Nil(t, parseBytes([]byte("txpower -4"), &cmd))
	assert.True(t, cmd.TxPower != nil && *cmd.TxPower.Val == "-4")

	assert.True(t, parseBytes([]byte("log"), &cmd) == nil && cmd.LogLevel != nil)
	assert.True(t, parseBytes([]byte("log debug"), &cmd) == nil && cmd.LogLevel.Level == "debug")

	assert.True(t, parseBytes([]byte("help"), &cmd) == nil && cmd.Help != nil)
	assert.True(t, parseBytes([]byte("help sender"), &cmd) == nil && cmd.Help.HelpTopic == "sender")
}

func newTestRunner() *CmdRunner {
	drv := radio.NewSimDriver()
	core := losstest.NewCore(7, losstest.MakeUniqueID(0, 7), losstest.NewClock(), drv, task.NewArbiter())
	return NewCmdRunner(core)
}

func handle(t *testing.T, rt *CmdRunner, cmdline string) string {
	var buf bytes.Buffer
	require.NoError(t, rt.HandleCommand(cmdline, &buf))
	return buf.String()
}

func TestCmdRunnerParams(t *testing.T) {
	rt := newTestRunner()

	out := handle(t, rt, "params")
	assert.Contains(t, out, "interval: 3")
	assert.Contains(t, out, "Done")

	out = handle(t, rt, "txpower -4")
	assert.Contains(t, out, "Done")
	assert.Equal(t, int8(-4), rt.Params().TxPowerDbm)

	out = handle(t, rt, "txpower")
	assert.Contains(t, out, "-4")

	out = handle(t, rt, "params load \"no-such-file.yaml\"")
	assert.Contains(t, out, "Error")
}

func TestCmdRunnerRoundParams(t *testing.T) {
	rt := newTestRunner()

	p, err := rt.roundParams([]PhyFlag{{Val: "coded"}}, &IntervalFlag{Val: 5}, &CountFlag{Val: 2000}, nil, &NoAckFlag{}, nil)
	require.NoError(t, err)
	assert.Equal(t, []types.ChannelId{types.ChannelCoded}, p.EnabledChannels())
	assert.Equal(t, types.IntervalClass(5), p.IntervalClass)
	assert.Equal(t, uint16(2000), p.TotalCount())
	assert.True(t, p.IgnoreResponses)

	_, err = rt.roundParams(nil, nil, &CountFlag{Val: 123}, nil, nil, nil)
	assert.Error(t, err)

	_, err = rt.roundParams(nil, &IntervalFlag{Val: 99}, nil, nil, nil, nil)
	assert.Error(t, err)
}

func TestCmdRunnerStatusIdle(t *testing.T) {
	rt := newTestRunner()

	out := handle(t, rt, "status")
	assert.Contains(t, out, "idle, node 007")
}

func TestCmdRunnerAbortIdle(t *testing.T) {
	rt := newTestRunner()

	out := handle(t, rt, "abort")
	assert.Contains(t, out, "nothing running")
}

func TestCmdRunnerUnknownCommand(t *testing.T) {
	rt := newTestRunner()

	out := handle(t, rt, "frobnicate")
	assert.True(t, strings.HasPrefix(out, "Error"))
}

func TestCmdRunnerExit(t *testing.T) {
	rt := newTestRunner()

	var buf bytes.Buffer
	err := rt.HandleCommand("exit", &buf)
	assert.ErrorIs(t, err, ErrExit)
}

func TestCmdRunnerHelp(t *testing.T) {
	rt := newTestRunner()

	out := handle(t, rt, "help")
	assert.Contains(t, out, "sender")
	assert.Contains(t, out, "scanner")

	out = handle(t, rt, "help numcast")
	assert.Contains(t, out, "64-bit value")
}

func TestCmdRunnerPrompt(t *testing.T) {
	rt := newTestRunner()
	assert.Equal(t, Prompt, rt.GetPrompt())
}
