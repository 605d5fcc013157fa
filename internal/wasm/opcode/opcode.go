// Copyright 2018 The OPA Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

// Package opcode defines the WASM instruction opcodes used by the
// instruction and encoding packages.
//
// Opcode is a uint16: single-byte opcodes occupy the low byte with the
// high byte zero; the handful of table/reftype opcodes hidden behind the
// 0xFC prefix byte are represented as 0xFC00|subopcode so the whole
// opcode space stays a flat, comparable value.
package opcode

import "fmt"

// Opcode identifies a WASM instruction.
type Opcode uint16

// Control instructions.
const (
	Unreachable Opcode = 0x00
	Nop         Opcode = 0x01
	Block       Opcode = 0x02
	Loop        Opcode = 0x03
	If          Opcode = 0x04
	Else        Opcode = 0x05
	End         Opcode = 0x0B
	Br          Opcode = 0x0C
	BrIf        Opcode = 0x0D
	BrTable     Opcode = 0x0E
	Return      Opcode = 0x0F
	Call        Opcode = 0x10
	CallIndirect Opcode = 0x11
)

// Parametric instructions.
const (
	Drop     Opcode = 0x1A
	Select   Opcode = 0x1B
	SelectT  Opcode = 0x1C
)

// Variable instructions.
const (
	GetLocal  Opcode = 0x20
	SetLocal  Opcode = 0x21
	TeeLocal  Opcode = 0x22
	GetGlobal Opcode = 0x23
	SetGlobal Opcode = 0x24
)

// Reference-types proposal: table and reference instructions.
const (
	TableGet  Opcode = 0x25
	TableSet  Opcode = 0x26
	RefNull   Opcode = 0xD0
	RefIsNull Opcode = 0xD1
	RefFunc   Opcode = 0xD2
)

// Memory instructions (only the subset the rewriter needs to pass
// through untouched).
const (
	I32Load    Opcode = 0x28
	I64Load    Opcode = 0x29
	I32Store   Opcode = 0x36
	I64Store   Opcode = 0x37
	MemorySize Opcode = 0x3F
	MemoryGrow Opcode = 0x40
)

// Numeric instructions.
const (
	I32Const Opcode = 0x41
	I64Const Opcode = 0x42
	F32Const Opcode = 0x43
	F64Const Opcode = 0x44

	I32Eqz Opcode = 0x45
	I32Eq  Opcode = 0x46
	I32Ne  Opcode = 0x47
	I32LtS Opcode = 0x48
	I32GtS Opcode = 0x4A
	I32LeS Opcode = 0x4C
	I32GeS Opcode = 0x4E

	I64Eqz Opcode = 0x50
	I64Eq  Opcode = 0x51
	I64Ne  Opcode = 0x52

	I32Add Opcode = 0x6A
	I32Sub Opcode = 0x6B
	I32Mul Opcode = 0x6C

	I64Add Opcode = 0x7C
	I64Sub Opcode = 0x7D
	I64Mul Opcode = 0x7E
)

// prefixFC marks the encoding namespace behind the 0xFC prefix byte
// (table.init/copy/grow/size/fill and a few numeric conversions).
const prefixFC = 0xFC00

// 0xFC-prefixed table instructions.
const (
	TableInit Opcode = prefixFC | 0x0C
	ElemDrop  Opcode = prefixFC | 0x0D
	TableCopy Opcode = prefixFC | 0x0E
	TableGrow Opcode = prefixFC | 0x0F
	TableSize Opcode = prefixFC | 0x10
	TableFill Opcode = prefixFC | 0x11
)

// Prefixed reports whether op is encoded behind the 0xFC prefix byte.
func (op Opcode) Prefixed() bool {
	return op&prefixFC == prefixFC && op != 0
}

// Byte returns the single encoded byte for a non-prefixed opcode.
func (op Opcode) Byte() byte {
	return byte(op)
}

// Sub returns the sub-opcode varuint following the 0xFC prefix byte.
func (op Opcode) Sub() uint32 {
	return uint32(op &^ prefixFC)
}

func (op Opcode) String() string {
	if name, ok := names[op]; ok {
		return name
	}
	return fmt.Sprintf("opcode(0x%04x)", uint16(op))
}

var names = map[Opcode]string{
	Unreachable: "unreachable", Nop: "nop", Block: "block", Loop: "loop",
	If: "if", Else: "else", End: "end", Br: "br", BrIf: "br_if",
	BrTable: "br_table", Return: "return", Call: "call", CallIndirect: "call_indirect",
	Drop: "drop", Select: "select", SelectT: "select_t",
	GetLocal: "local.get", SetLocal: "local.set", TeeLocal: "local.tee",
	GetGlobal: "global.get", SetGlobal: "global.set",
	TableGet: "table.get", TableSet: "table.set",
	RefNull: "ref.null", RefIsNull: "ref.is_null", RefFunc: "ref.func",
	I32Load: "i32.load", I64Load: "i64.load", I32Store: "i32.store", I64Store: "i64.store",
	MemorySize: "memory.size", MemoryGrow: "memory.grow",
	I32Const: "i32.const", I64Const: "i64.const", F32Const: "f32.const", F64Const: "f64.const",
	I32Eqz: "i32.eqz", I32Eq: "i32.eq", I32Ne: "i32.ne",
	I32LtS: "i32.lt_s", I32GtS: "i32.gt_s", I32LeS: "i32.le_s", I32GeS: "i32.ge_s",
	I64Eqz: "i64.eqz", I64Eq: "i64.eq", I64Ne: "i64.ne",
	I32Add: "i32.add", I32Sub: "i32.sub", I32Mul: "i32.mul",
	I64Add: "i64.add", I64Sub: "i64.sub", I64Mul: "i64.mul",
	TableInit: "table.init", ElemDrop: "elem.drop", TableCopy: "table.copy",
	TableGrow: "table.grow", TableSize: "table.size", TableFill: "table.fill",
}
