// Copyright 2018 The OPA Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

package instruction

import "github.com/externref-go/rewriter/internal/wasm/opcode"

// GetLocal represents the WASM local.get instruction.
type GetLocal struct {
	Index uint32
}

// Op returns the opcode of the instruction.
func (GetLocal) Op() opcode.Opcode { return opcode.GetLocal }

// ImmediateArgs returns the local index read.
func (g GetLocal) ImmediateArgs() []interface{} { return []interface{}{g.Index} }

// SetLocal represents the WASM local.set instruction.
type SetLocal struct {
	Index uint32
}

// Op returns the opcode of the instruction.
func (SetLocal) Op() opcode.Opcode { return opcode.SetLocal }

// ImmediateArgs returns the local index written.
func (s SetLocal) ImmediateArgs() []interface{} { return []interface{}{s.Index} }

// TeeLocal represents the WASM local.tee instruction: like SetLocal,
// but leaves the stored value on the stack.
type TeeLocal struct {
	Index uint32
}

// Op returns the opcode of the instruction.
func (TeeLocal) Op() opcode.Opcode { return opcode.TeeLocal }

// ImmediateArgs returns the local index written.
func (t TeeLocal) ImmediateArgs() []interface{} { return []interface{}{t.Index} }

// GetGlobal represents the WASM global.get instruction.
type GetGlobal struct {
	Index uint32
}

// Op returns the opcode of the instruction.
func (GetGlobal) Op() opcode.Opcode { return opcode.GetGlobal }

// ImmediateArgs returns the global index read.
func (g GetGlobal) ImmediateArgs() []interface{} { return []interface{}{g.Index} }

// SetGlobal represents the WASM global.set instruction.
type SetGlobal struct {
	Index uint32
}

// Op returns the opcode of the instruction.
func (SetGlobal) Op() opcode.Opcode { return opcode.SetGlobal }

// ImmediateArgs returns the global index written.
func (s SetGlobal) ImmediateArgs() []interface{} { return []interface{}{s.Index} }
