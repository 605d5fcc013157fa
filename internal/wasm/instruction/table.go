// Copyright 2018 The OPA Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

package instruction

import (
	"github.com/externref-go/rewriter/internal/wasm/opcode"
	"github.com/externref-go/rewriter/internal/wasm/types"
)

// TableGet represents the WASM table.get instruction: reads the
// reference stored at the i32 index on top of the stack.
type TableGet struct {
	Table uint32
}

// Op returns the opcode of the instruction.
func (TableGet) Op() opcode.Opcode { return opcode.TableGet }

// ImmediateArgs returns the table index.
func (t TableGet) ImmediateArgs() []interface{} { return []interface{}{t.Table} }

// TableSet represents the WASM table.set instruction: stores the
// reference on top of the stack at the i32 index below it.
type TableSet struct {
	Table uint32
}

// Op returns the opcode of the instruction.
func (TableSet) Op() opcode.Opcode { return opcode.TableSet }

// ImmediateArgs returns the table index.
func (t TableSet) ImmediateArgs() []interface{} { return []interface{}{t.Table} }

// TableGrow represents the WASM table.grow instruction: grows the table
// by n elements, filling new entries with the init reference, and
// leaves the previous size (or -1 on failure) on the stack.
type TableGrow struct {
	Table uint32
}

// Op returns the opcode of the instruction.
func (TableGrow) Op() opcode.Opcode { return opcode.TableGrow }

// ImmediateArgs returns the table index.
func (t TableGrow) ImmediateArgs() []interface{} { return []interface{}{t.Table} }

// TableSize represents the WASM table.size instruction.
type TableSize struct {
	Table uint32
}

// Op returns the opcode of the instruction.
func (TableSize) Op() opcode.Opcode { return opcode.TableSize }

// ImmediateArgs returns the table index.
func (t TableSize) ImmediateArgs() []interface{} { return []interface{}{t.Table} }

// TableFill represents the WASM table.fill instruction.
type TableFill struct {
	Table uint32
}

// Op returns the opcode of the instruction.
func (TableFill) Op() opcode.Opcode { return opcode.TableFill }

// ImmediateArgs returns the table index.
func (t TableFill) ImmediateArgs() []interface{} { return []interface{}{t.Table} }

// RefNull represents the WASM ref.null instruction: pushes the null
// reference of the given reference type.
type RefNull struct {
	Type types.ValueType
}

// Op returns the opcode of the instruction.
func (RefNull) Op() opcode.Opcode { return opcode.RefNull }

// ImmediateArgs returns the reference type of the null pushed.
func (r RefNull) ImmediateArgs() []interface{} { return []interface{}{r.Type} }

// RefIsNull represents the WASM ref.is_null instruction.
type RefIsNull struct{ NoImmediateArgs }

// Op returns the opcode of the instruction.
func (RefIsNull) Op() opcode.Opcode { return opcode.RefIsNull }

// RefFunc represents the WASM ref.func instruction.
type RefFunc struct {
	Index uint32
}

// Op returns the opcode of the instruction.
func (RefFunc) Op() opcode.Opcode { return opcode.RefFunc }

// ImmediateArgs returns the referenced function's index.
func (r RefFunc) ImmediateArgs() []interface{} { return []interface{}{r.Index} }
