// Copyright 2018 The OPA Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

// Package instruction defines a closed sum type over the WASM opcodes
// the rewriter and encoder need to produce or consume.
package instruction

import "github.com/externref-go/rewriter/internal/wasm/opcode"

// Instruction is implemented by every concrete instruction type.
type Instruction interface {
	// Op returns the opcode of the instruction.
	Op() opcode.Opcode
	// ImmediateArgs returns the instruction's immediates, for pretty
	// printing and debugging; it is never used to drive encoding.
	ImmediateArgs() []interface{}
}

// NoImmediateArgs is embedded by instructions that carry no immediates.
type NoImmediateArgs struct{}

// ImmediateArgs implements Instruction.
func (NoImmediateArgs) ImmediateArgs() []interface{} { return nil }
