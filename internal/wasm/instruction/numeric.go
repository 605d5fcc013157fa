// Copyright 2018 The OPA Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

package instruction

import (
	"github.com/externref-go/rewriter/internal/wasm/opcode"
)

// I32Const represents the WASM i32.const instruction.
type I32Const struct {
	Value int32
}

// Op returns the opcode of the instruction.
func (I32Const) Op() opcode.Opcode {
	return opcode.I32Const
}

// ImmediateArgs returns the i32 value to push onto the stack.
func (i I32Const) ImmediateArgs() []interface{} {
	return []interface{}{i.Value}
}

// I64Const represents the WASM i64.const instruction.
type I64Const struct {
	Value int64
}

// Op returns the opcode of the instruction.
func (I64Const) Op() opcode.Opcode {
	return opcode.I64Const
}

// ImmediateArgs returns the i64 value to push onto the stack.
func (i I64Const) ImmediateArgs() []interface{} {
	return []interface{}{i.Value}
}

// F32Const represents the WASM f32.const instruction.
type F32Const struct {
	Value float32
}

// Op returns the opcode of the instruction.
func (F32Const) Op() opcode.Opcode { return opcode.F32Const }

// ImmediateArgs returns the f32 value to push onto the stack.
func (i F32Const) ImmediateArgs() []interface{} { return []interface{}{i.Value} }

// F64Const represents the WASM f64.const instruction.
type F64Const struct {
	Value float64
}

// Op returns the opcode of the instruction.
func (F64Const) Op() opcode.Opcode { return opcode.F64Const }

// ImmediateArgs returns the f64 value to push onto the stack.
func (i F64Const) ImmediateArgs() []interface{} { return []interface{}{i.Value} }

// I32Eqz represents the WASM i32.eqz instruction.
type I32Eqz struct {
	NoImmediateArgs
}

// Op returns the opcode of the instruction.
func (I32Eqz) Op() opcode.Opcode {
	return opcode.I32Eqz
}

// I32Eq represents the WASM i32.eq instruction.
type I32Eq struct{ NoImmediateArgs }

// Op returns the opcode of the instruction.
func (I32Eq) Op() opcode.Opcode { return opcode.I32Eq }

// I32Ne represents the WASM i32.ne instruction.
type I32Ne struct{ NoImmediateArgs }

// Op returns the opcode of the instruction.
func (I32Ne) Op() opcode.Opcode { return opcode.I32Ne }

// I32LtS represents the WASM i32.lt_s instruction.
type I32LtS struct{ NoImmediateArgs }

// Op returns the opcode of the instruction.
func (I32LtS) Op() opcode.Opcode { return opcode.I32LtS }

// I32GtS represents the WASM i32.gt_s instruction.
type I32GtS struct{ NoImmediateArgs }

// Op returns the opcode of the instruction.
func (I32GtS) Op() opcode.Opcode { return opcode.I32GtS }

// I32Add represents the WASM i32.add instruction.
type I32Add struct{ NoImmediateArgs }

// Op returns the opcode of the instruction.
func (I32Add) Op() opcode.Opcode { return opcode.I32Add }

// I32Sub represents the WASM i32.sub instruction.
type I32Sub struct{ NoImmediateArgs }

// Op returns the opcode of the instruction.
func (I32Sub) Op() opcode.Opcode { return opcode.I32Sub }

// I32Mul represents the WASM i32.mul instruction.
type I32Mul struct{ NoImmediateArgs }

// Op returns the opcode of the instruction.
func (I32Mul) Op() opcode.Opcode { return opcode.I32Mul }

// I64Eqz represents the WASM i64.eqz instruction.
type I64Eqz struct{ NoImmediateArgs }

// Op returns the opcode of the instruction.
func (I64Eqz) Op() opcode.Opcode { return opcode.I64Eqz }

// I64Eq represents the WASM i64.eq instruction.
type I64Eq struct{ NoImmediateArgs }

// Op returns the opcode of the instruction.
func (I64Eq) Op() opcode.Opcode { return opcode.I64Eq }

// I64Ne represents the WASM i64.ne instruction.
type I64Ne struct{ NoImmediateArgs }

// Op returns the opcode of the instruction.
func (I64Ne) Op() opcode.Opcode { return opcode.I64Ne }

// I64Add represents the WASM i64.add instruction.
type I64Add struct{ NoImmediateArgs }

// Op returns the opcode of the instruction.
func (I64Add) Op() opcode.Opcode { return opcode.I64Add }

// I64Sub represents the WASM i64.sub instruction.
type I64Sub struct{ NoImmediateArgs }

// Op returns the opcode of the instruction.
func (I64Sub) Op() opcode.Opcode { return opcode.I64Sub }

// I64Mul represents the WASM i64.mul instruction.
type I64Mul struct{ NoImmediateArgs }

// Op returns the opcode of the instruction.
func (I64Mul) Op() opcode.Opcode { return opcode.I64Mul }
