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

// losstest is the interactive console of the over-the-air packet loss
// tester. It wires the measurement engine to a radio driver and hands
// control to the command line.
package main

import (
	"flag"
	"math/rand"
	"time"

	"github.com/cheetahray/losstest/cli"
	"github.com/cheetahray/losstest/cli/runcli"
	"github.com/cheetahray/losstest/logger"
	"github.com/cheetahray/losstest/losstest"
	"github.com/cheetahray/losstest/radio"
	"github.com/cheetahray/losstest/task"
	"github.com/cheetahray/losstest/types"
)

type MainArgs struct {
	Node      int
	ParamFile string
	LogLevel  string
	EchoInput bool
}

var (
	args MainArgs
)

func parseArgs() {
	flag.IntVar(&args.Node, "node", 0, "set the node number (1..999) broadcast in test traffic. 0 picks a random one.")
	flag.StringVar(&args.ParamFile, "params", "", "load round parameters from a YAML preset file")
	flag.StringVar(&args.LogLevel, "log", "info", "set logging level: trace, debug, info, warn, error.")
	flag.BoolVar(&args.EchoInput, "echo", false, "echo input commands to stdout (useful for scripted runs)")

	flag.Parse()
}

func main() {
	parseArgs()

	level, err := logger.ParseLevel(args.LogLevel)
	logger.FatalIfError(err)
	logger.SetLevel(level)

	rnd := rand.New(rand.NewSource(time.Now().UnixNano()))
	node := types.NodeId(args.Node)
	if node == 0 {
		node = types.NodeId(1 + rnd.Intn(999))
	}
	if node < 1 || node > 999 {
		logger.Fatalf("node number %d out of range 1..999", node)
	}

	drv := radio.NewSimDriver()
	core := losstest.NewCore(node, losstest.MakeUniqueID(rnd.Uint64(), node), losstest.NewClock(), drv, task.NewArbiter())
	rt := cli.NewCmdRunner(core)

	if args.ParamFile != "" {
		p, err := losstest.LoadParams(args.ParamFile)
		logger.FatalIfError(err)
		rt.SetParams(p)
	}

	logger.Infof("loss tester up, node %03d", node)

	cliOptions := runcli.DefaultCliOptions()
	cliOptions.EchoInput = args.EchoInput
	err = runcli.RunCli(rt, cliOptions)
	if err != nil && err != cli.ErrExit {
		logger.Fatalf("console: %v", err)
	}
}
