// Copyright 2018 The OPA Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

package instruction

import "github.com/externref-go/rewriter/internal/wasm/opcode"

// I32Load represents the WASM i32.load instruction.
type I32Load struct {
	Offset uint32
	Align  uint32
}

// Op returns the opcode of the instruction.
func (I32Load) Op() opcode.Opcode { return opcode.I32Load }

// ImmediateArgs returns the alignment hint and byte offset.
func (i I32Load) ImmediateArgs() []interface{} { return []interface{}{i.Align, i.Offset} }

// I32Store represents the WASM i32.store instruction.
type I32Store struct {
	Offset uint32
	Align  uint32
}

// Op returns the opcode of the instruction.
func (I32Store) Op() opcode.Opcode { return opcode.I32Store }

// ImmediateArgs returns the alignment hint and byte offset.
func (i I32Store) ImmediateArgs() []interface{} { return []interface{}{i.Align, i.Offset} }

// MemorySize represents the WASM memory.size instruction.
type MemorySize struct{ NoImmediateArgs }

// Op returns the opcode of the instruction.
func (MemorySize) Op() opcode.Opcode { return opcode.MemorySize }

// MemoryGrow represents the WASM memory.grow instruction.
type MemoryGrow struct{ NoImmediateArgs }

// Op returns the opcode of the instruction.
func (MemoryGrow) Op() opcode.Opcode { return opcode.MemoryGrow }
