// Copyright 2018 The OPA Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

package instruction

import (
	"github.com/externref-go/rewriter/internal/wasm/opcode"
	"github.com/externref-go/rewriter/internal/wasm/types"
)

// Unreachable represents the WASM unreachable instruction.
type Unreachable struct{ NoImmediateArgs }

// Op returns the opcode of the instruction.
func (Unreachable) Op() opcode.Opcode { return opcode.Unreachable }

// Nop represents the WASM nop instruction.
type Nop struct{ NoImmediateArgs }

// Op returns the opcode of the instruction.
func (Nop) Op() opcode.Opcode { return opcode.Nop }

// Return represents the WASM return instruction.
type Return struct{ NoImmediateArgs }

// Op returns the opcode of the instruction.
func (Return) Op() opcode.Opcode { return opcode.Return }

// Block represents a structured block. BlockType is nil for a block
// with no result, otherwise it names the single result type the
// rewriter may need to retype in lock-step with a producing
// instruction (spec 4.5, "block type rewriting").
type Block struct {
	BlockType *types.ValueType
	Instrs    []Instruction
}

// Op returns the opcode of the instruction.
func (Block) Op() opcode.Opcode { return opcode.Block }

// ImmediateArgs returns the block's declared result type, if any.
func (b Block) ImmediateArgs() []interface{} {
	if b.BlockType == nil {
		return nil
	}
	return []interface{}{*b.BlockType}
}

// Loop represents a structured loop. Semantics mirror Block.
type Loop struct {
	BlockType *types.ValueType
	Instrs    []Instruction
}

// Op returns the opcode of the instruction.
func (Loop) Op() opcode.Opcode { return opcode.Loop }

// ImmediateArgs returns the loop's declared result type, if any.
func (l Loop) ImmediateArgs() []interface{} {
	if l.BlockType == nil {
		return nil
	}
	return []interface{}{*l.BlockType}
}

// If represents a structured if/else. Else may be empty.
type If struct {
	BlockType *types.ValueType
	Then      []Instruction
	Else      []Instruction
}

// Op returns the opcode of the instruction.
func (If) Op() opcode.Opcode { return opcode.If }

// ImmediateArgs returns the if's declared result type, if any.
func (i If) ImmediateArgs() []interface{} {
	if i.BlockType == nil {
		return nil
	}
	return []interface{}{*i.BlockType}
}

// Br represents the WASM br instruction.
type Br struct {
	Index uint32
}

// Op returns the opcode of the instruction.
func (Br) Op() opcode.Opcode { return opcode.Br }

// ImmediateArgs returns the target label's relative depth.
func (b Br) ImmediateArgs() []interface{} { return []interface{}{b.Index} }

// BrIf represents the WASM br_if instruction.
type BrIf struct {
	Index uint32
}

// Op returns the opcode of the instruction.
func (BrIf) Op() opcode.Opcode { return opcode.BrIf }

// ImmediateArgs returns the target label's relative depth.
func (b BrIf) ImmediateArgs() []interface{} { return []interface{}{b.Index} }

// BrTable represents the WASM br_table instruction.
type BrTable struct {
	Targets []uint32
	Default uint32
}

// Op returns the opcode of the instruction.
func (BrTable) Op() opcode.Opcode { return opcode.BrTable }

// ImmediateArgs returns the jump table and its default target.
func (b BrTable) ImmediateArgs() []interface{} { return []interface{}{b.Targets, b.Default} }

// Call represents the WASM call instruction.
type Call struct {
	Index uint32
}

// Op returns the opcode of the instruction.
func (Call) Op() opcode.Opcode { return opcode.Call }

// ImmediateArgs returns the callee's function index.
func (c Call) ImmediateArgs() []interface{} { return []interface{}{c.Index} }

// CallIndirect represents the WASM call_indirect instruction.
type CallIndirect struct {
	TypeIndex  uint32
	TableIndex uint32
}

// Op returns the opcode of the instruction.
func (CallIndirect) Op() opcode.Opcode { return opcode.CallIndirect }

// ImmediateArgs returns the callee's type and table index.
func (c CallIndirect) ImmediateArgs() []interface{} {
	return []interface{}{c.TypeIndex, c.TableIndex}
}
