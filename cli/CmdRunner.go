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

// Package cli implements the loss-test console. It parses and executes
// CLI commands against the measurement engine.
package cli

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/cheetahray/losstest/logger"
	"github.com/cheetahray/losstest/losstest"
	"github.com/cheetahray/losstest/types"
)

const (
	Prompt = "> "
)

// ErrExit is returned from HandleCommand after the exit command ran.
var ErrExit = errors.New("exit")

type CommandContext struct {
	*Command
	rt              *CmdRunner
	err             error
	output          io.Writer
	isBackgroundCmd bool
}

func (cc *CommandContext) outputStr(msg string) {
	_, _ = fmt.Fprint(cc.output, msg)
}

func (cc *CommandContext) outputf(format string, args ...interface{}) {
	_, _ = fmt.Fprintf(cc.output, format, args...)
}

func (cc *CommandContext) errorf(format string, args ...interface{}) {
	cc.error(errors.Errorf(format, args...))
}

func (cc *CommandContext) error(err error) {
	if err != nil {
		if cc.err != nil { // if previous error, print it now and keep the last.
			cc.outputf("Error: %s\n", cc.err)
		}
		cc.err = err
	}
}

// Err returns the last error that occurred during command execution.
func (cc *CommandContext) Err() error {
	return cc.err
}

func (cc *CommandContext) outputItemsAsYaml(items interface{}) {
	var itemsYaml yaml.Node

	err := itemsYaml.Encode(items)
	logger.PanicIfError(err)

	for _, content := range itemsYaml.Content {
		content.Style = yaml.FlowStyle
	}

	data, err := yaml.Marshal(&itemsYaml)
	logger.PanicIfError(err)

	_, err = cc.output.Write(data)
	logger.PanicIfError(err)
}

// CmdRunner executes console commands against the engine core. One role
// runs at a time, on its own goroutine, until it finishes or the abort
// command interrupts it.
type CmdRunner struct {
	core *losstest.Core
	help Help

	mu      sync.Mutex
	params  losstest.Params
	stopReq bool
	active  types.Role
	sender  *losstest.Sender
	scanner *losstest.Scanner
	caster  *losstest.NumberCaster
	monitor *losstest.EnvMonitor
	exited  bool
}

func NewCmdRunner(core *losstest.Core) *CmdRunner {
	return &CmdRunner{
		core:   core,
		help:   newHelp(),
		params: losstest.DefaultParams(),
	}
}

func (rt *CmdRunner) HandleCommand(cmdline string, output io.Writer) error {
	cmd := Command{}
	if err := parseBytes([]byte(cmdline), &cmd); err != nil {
		if _, err := fmt.Fprintf(output, "Error: %v\n", err); err != nil {
			return err
		}
		return nil
	}
	rt.execute(&cmd, output)

	rt.mu.Lock()
	exited := rt.exited
	rt.mu.Unlock()
	if exited {
		return ErrExit
	}
	return nil
}

func (rt *CmdRunner) GetPrompt() string {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	if rt.active == types.RoleNone {
		return Prompt
	}
	return fmt.Sprintf("%v%s", rt.active, Prompt)
}

// Params returns the runner's current round parameters.
func (rt *CmdRunner) Params() losstest.Params {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	return rt.params
}

// SetParams replaces the round parameters used by the next role.
func (rt *CmdRunner) SetParams(p losstest.Params) {
	rt.mu.Lock()
	rt.params = p
	rt.mu.Unlock()
}

func (rt *CmdRunner) execute(cmd *Command, output io.Writer) {
	cc := &CommandContext{
		Command:         cmd,
		rt:              rt,
		output:          output,
		isBackgroundCmd: isBackgroundCommand(cmd),
	}

	defer func() {
		if cc.Err() != nil {
			cc.outputf("Error: %v\n", cc.Err())
		} else if !cc.isBackgroundCmd {
			cc.outputf("Done\n")
		} else {
			cc.outputf("Started\n")
		}
	}()

	defer func() {
		rerr := recover()

		if rerr != nil {
			if err, ok := rerr.(error); ok {
				cc.err = errors.Wrapf(err, "panic: %v", err)
			} else {
				cc.err = errors.Errorf("panic: %v", rerr)
			}
		}
	}()

	if cmd.Sender != nil {
		rt.executeSender(cc, cmd.Sender)
	} else if cmd.Scanner != nil {
		rt.executeScanner(cc, cmd.Scanner)
	} else if cmd.NumCast != nil {
		rt.executeNumCast(cc, cmd.NumCast)
	} else if cmd.EnvMon != nil {
		rt.executeEnvMon(cc, cmd.EnvMon)
	} else if cmd.Abort != nil {
		rt.executeAbort(cc, cmd.Abort)
	} else if cmd.Status != nil {
		rt.executeStatus(cc, cmd.Status)
	} else if cmd.Params != nil {
		rt.executeParams(cc, cmd.Params)
	} else if cmd.TxPower != nil {
		rt.executeTxPower(cc, cmd.TxPower)
	} else if cmd.LogLevel != nil {
		rt.executeLogLevel(cc, cmd.LogLevel)
	} else if cmd.Help != nil {
		rt.executeHelp(cc, cmd.Help)
	} else if cmd.Exit != nil {
		rt.executeExit(cc, cmd.Exit)
	} else {
		logger.Panicf("unimplemented command: %#v", cmd)
	}
}

// abortRequested is the abort predicate handed to every role.
func (rt *CmdRunner) abortRequested() bool {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	return rt.stopReq
}

// claimIdle reserves the runner for a new role. The arbiter guards the
// radio; this guards the runner's own bookkeeping.
func (rt *CmdRunner) claimIdle(kind types.Role) error {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	if rt.active != types.RoleNone {
		return errors.Wrapf(types.ErrBusy, "%v is running, abort it first", rt.active)
	}
	rt.active = kind
	rt.stopReq = false
	return nil
}

func (rt *CmdRunner) roleDone() {
	rt.mu.Lock()
	rt.active = types.RoleNone
	rt.stopReq = false
	rt.sender = nil
	rt.scanner = nil
	rt.caster = nil
	rt.monitor = nil
	rt.mu.Unlock()
}

func (rt *CmdRunner) runRole(role losstest.Role) {
	go func() {
		defer rt.roleDone()
		if _, err := rt.core.Run(role); err != nil {
			logger.Errorf("%v: %v", role.Kind(), err)
		}
	}()
}

// roundParams merges the command's flags into the runner's parameters.
// Naming any PHY deselects the ones not named.
func (rt *CmdRunner) roundParams(phys []PhyFlag, interval *IntervalFlag, count *CountFlag,
	txPower *TxPowerFlag, noAck *NoAckFlag, anon *AnonFlag) (losstest.Params, error) {
	p := rt.Params()
	if len(phys) > 0 {
		p.Phy2M, p.Phy1M, p.PhyCoded, p.PhyLegacy = false, false, false, false
		for _, phy := range phys {
			switch phy.Val {
			case "le2m":
				p.Phy2M = true
			case "le1m":
				p.Phy1M = true
			case "coded":
				p.PhyCoded = true
			case "legacy":
				p.PhyLegacy = true
			}
		}
	}
	if interval != nil {
		p.IntervalClass = types.IntervalClass(interval.Val)
	}
	if count != nil {
		idx := -1
		for i, total := range types.TotalCounts {
			if int(total) == count.Val {
				idx = i
			}
		}
		if idx < 0 {
			return p, errors.Errorf("count %d not supported, use one of %v", count.Val, types.TotalCounts)
		}
		p.CountIndex = idx
	}
	if txPower != nil {
		dbm, err := strconv.Atoi(txPower.Val)
		if err != nil {
			return p, errors.Wrapf(err, "tx power %q", txPower.Val)
		}
		p.TxPowerDbm = int8(dbm)
	}
	if noAck != nil {
		p.IgnoreResponses = true
	}
	if anon != nil {
		p.Anonymous = true
	}
	if err := p.Validate(); err != nil {
		return p, err
	}
	return p, nil
}

func (rt *CmdRunner) executeSender(cc *CommandContext, cmd *SenderCmd) {
	p, err := rt.roundParams(cmd.Phys, cmd.Interval, cmd.Count, cmd.TxPower, cmd.NoAck, cmd.Anon)
	if err != nil {
		cc.error(err)
		return
	}
	if err := rt.claimIdle(types.RoleSender); err != nil {
		cc.error(err)
		return
	}
	s, err := losstest.NewSender(rt.core, p, rt.abortRequested)
	if err != nil {
		rt.roleDone()
		cc.error(err)
		return
	}
	rt.mu.Lock()
	rt.params = p
	rt.sender = s
	rt.mu.Unlock()
	rt.runRole(s)
}

func (rt *CmdRunner) executeScanner(cc *CommandContext, cmd *ScannerCmd) {
	p, err := rt.roundParams(cmd.Phys, cmd.Interval, cmd.Count, nil, cmd.NoAck, nil)
	if err != nil {
		cc.error(err)
		return
	}
	if err := rt.claimIdle(types.RoleScanner); err != nil {
		cc.error(err)
		return
	}
	s, err := losstest.NewScanner(rt.core, p, rt.abortRequested)
	if err != nil {
		rt.roleDone()
		cc.error(err)
		return
	}
	rt.mu.Lock()
	rt.params = p
	rt.scanner = s
	rt.mu.Unlock()
	rt.runRole(s)
}

func (rt *CmdRunner) executeNumCast(cc *CommandContext, cmd *NumCastCmd) {
	if cmd.Value < 0 {
		cc.errorf("cast value must not be negative")
		return
	}
	if err := rt.claimIdle(types.RoleNumberCast); err != nil {
		cc.error(err)
		return
	}
	n, err := losstest.NewNumberCaster(rt.core, rt.Params(), uint64(cmd.Value), cmd.Once != nil, rt.abortRequested)
	if err != nil {
		rt.roleDone()
		cc.error(err)
		return
	}
	rt.mu.Lock()
	rt.caster = n
	rt.mu.Unlock()
	rt.runRole(n)
}

func (rt *CmdRunner) executeEnvMon(cc *CommandContext, cmd *EnvMonCmd) {
	if err := rt.claimIdle(types.RoleEnvMonitor); err != nil {
		cc.error(err)
		return
	}
	m, err := losstest.NewEnvMonitor(rt.core, rt.abortRequested)
	if err != nil {
		rt.roleDone()
		cc.error(err)
		return
	}
	rt.mu.Lock()
	rt.monitor = m
	rt.mu.Unlock()
	rt.runRole(m)
}

func (rt *CmdRunner) executeAbort(cc *CommandContext, cmd *AbortCmd) {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	if rt.active == types.RoleNone {
		cc.outputf("nothing running\n")
		return
	}
	rt.stopReq = true
}

func (rt *CmdRunner) executeStatus(cc *CommandContext, cmd *StatusCmd) {
	rt.mu.Lock()
	sender, scanner, caster, monitor := rt.sender, rt.scanner, rt.caster, rt.monitor
	rt.mu.Unlock()

	var lines []string
	switch {
	case sender != nil:
		for _, st := range sender.Status() {
			lines = append(lines, string(st.Peek()[2:]))
		}
	case scanner != nil:
		for _, st := range scanner.Status() {
			lines = append(lines, st.LogLine())
		}
	case caster != nil:
		if value, node, seen := caster.Remote(); seen {
			avg, min, max := caster.Rssi()
			lines = append(lines, fmt.Sprintf("CAST:%03d V:%d S:%d(%d..%d)", node, value, avg, min, max))
		} else {
			lines = append(lines, "CAST: no remote cast heard")
		}
	case monitor != nil:
		for ch, snap := range monitor.Snapshot() {
			lines = append(lines, fmt.Sprintf("ENV:%v S:%d(%d..%d)",
				types.ChannelId(ch), snap.Avg, snap.Min, snap.Max))
		}
	default:
		lines = append(lines, fmt.Sprintf("idle, node %03d", rt.core.Node))
	}

	cc.outputItemsAsYaml(lines)
}

func (rt *CmdRunner) executeParams(cc *CommandContext, cmd *ParamsCmd) {
	if cmd.Load != nil {
		filename := strings.Trim(*cmd.Load, "\"")
		p, err := losstest.LoadParams(filename)
		if err != nil {
			cc.error(err)
			return
		}
		rt.mu.Lock()
		rt.params = p
		rt.mu.Unlock()
		return
	}

	out, err := rt.Params().Render()
	if err != nil {
		cc.error(err)
		return
	}
	cc.outputStr(out)
}

func (rt *CmdRunner) executeTxPower(cc *CommandContext, cmd *TxPowerCmd) {
	if cmd.Val == nil {
		cc.outputf("%d\n", rt.Params().TxPowerDbm)
		return
	}
	dbm, err := strconv.Atoi(*cmd.Val)
	if err != nil {
		cc.error(errors.Wrapf(err, "tx power %q", *cmd.Val))
		return
	}
	rt.mu.Lock()
	rt.params.TxPowerDbm = int8(dbm)
	rt.mu.Unlock()
}

func (rt *CmdRunner) executeLogLevel(cc *CommandContext, cmd *LogLevelCmd) {
	if cmd.Level == "" {
		cc.outputf("%v\n", logger.GetLevel())
		return
	}
	level, err := logger.ParseLevel(cmd.Level)
	if err != nil {
		cc.error(err)
		return
	}
	logger.SetLevel(level)
}

func (rt *CmdRunner) executeHelp(cc *CommandContext, cmd *HelpCmd) {
	if len(cmd.HelpTopic) > 0 {
		cc.outputStr(rt.help.outputCommandHelp(cmd.HelpTopic))
	} else {
		cc.outputStr(rt.help.outputGeneralHelp())
	}
}

func (rt *CmdRunner) executeExit(cc *CommandContext, cmd *ExitCmd) {
	rt.mu.Lock()
	rt.stopReq = true
	rt.exited = true
	rt.mu.Unlock()
}
