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
	"github.com/alecthomas/participle"
)

// noinspection GoStructTag
type Command struct {
	Abort    *AbortCmd    `  @@` //nolint
	EnvMon   *EnvMonCmd   `| @@` //nolint
	Exit     *ExitCmd     `| @@` //nolint
	Help     *HelpCmd     `| @@` //nolint
	LogLevel *LogLevelCmd `| @@` //nolint
	NumCast  *NumCastCmd  `| @@` //nolint
	Params   *ParamsCmd   `| @@` //nolint
	Scanner  *ScannerCmd  `| @@` //nolint
	Sender   *SenderCmd   `| @@` //nolint
	Status   *StatusCmd   `| @@` //nolint
	TxPower  *TxPowerCmd  `| @@` //nolint
}

// noinspection GoStructTag
type PhyFlag struct {
	Val string `@("le2m"|"le1m"|"coded"|"legacy")` //nolint
}

// noinspection GoStructTag
type IntervalFlag struct {
	Val int `("interval"|"itv") @Int` //nolint
}

// noinspection GoStructTag
type CountFlag struct {
	Val int `("count"|"c") @Int` //nolint
}

// noinspection GoStructTag
type TxPowerFlag struct {
	Val string `("txpower"|"tx") @(["-"] Int)` //nolint
}

// noinspection GoStructTag
type NoAckFlag struct {
	Dummy struct{} `"noack"` //nolint
}

// noinspection GoStructTag
type AnonFlag struct {
	Dummy struct{} `"anon"` //nolint
}

// noinspection GoStructTag
type SenderCmd struct {
	Cmd      struct{}      `"sender"` //nolint
	Phys     []PhyFlag     `( @@`     //nolint
	Interval *IntervalFlag `| @@`     //nolint
	Count    *CountFlag    `| @@`     //nolint
	TxPower  *TxPowerFlag  `| @@`     //nolint
	NoAck    *NoAckFlag    `| @@`     //nolint
	Anon     *AnonFlag     `| @@ )*`  //nolint
}

// noinspection GoStructTag
type ScannerCmd struct {
	Cmd      struct{}      `"scanner"` //nolint
	Phys     []PhyFlag     `( @@`      //nolint
	Interval *IntervalFlag `| @@`      //nolint
	Count    *CountFlag    `| @@`      //nolint
	NoAck    *NoAckFlag    `| @@ )*`   //nolint
}

// noinspection GoStructTag
type NumCastCmd struct {
	Cmd   struct{}  `"numcast"` //nolint
	Value int64     `@Int`      //nolint
	Once  *OnceFlag `[ @@ ]`    //nolint
}

// noinspection GoStructTag
type OnceFlag struct {
	Dummy struct{} `"once"` //nolint
}

// noinspection GoStructTag
type EnvMonCmd struct {
	Cmd struct{} `"envmon"` //nolint
}

// noinspection GoStructTag
type AbortCmd struct {
	Cmd struct{} `"abort"` //nolint
}

// noinspection GoStructTag
type StatusCmd struct {
	Cmd struct{} `"status"` //nolint
}

// noinspection GoStructTag
type ParamsCmd struct {
	Cmd  struct{} `"params"`          //nolint
	Load *string  `[ "load" @String ]` //nolint
}

// noinspection GoStructTag
type TxPowerCmd struct {
	Cmd struct{} `"txpower"`        //nolint
	Val *string  `[ @(["-"] Int) ]` //nolint
}

type LogLevelCmd struct {
	Cmd   struct{} `"log"`                                                   //nolint
	Level string   `[@( "trace"|"debug"|"info"|"warn"|"error"|"off" )]` //nolint
}

// noinspection GoStructTag
type ExitCmd struct {
	Cmd struct{} `"exit"` //nolint
}

// noinspection GoStructTag
type HelpCmd struct {
	Cmd       struct{} `"help"`       //nolint
	HelpTopic string   `[ (@Ident) ]` //nolint
}

var (
	commandParser = participle.MustBuild(&Command{})
)

func parseBytes(b []byte, cmd *Command) error {
	err := commandParser.ParseBytes(b, cmd)
	return err
}
