// Copyright 2018 The OPA Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

// Package types defines the WASM value types, including the reference
// types proposal's externref and funcref.
package types

import "fmt"

// ValueType represents a WASM value type as encoded in the binary format.
type ValueType byte

// Value types defined by the MVP and the reference-types proposal.
const (
	I32       ValueType = 0x7F
	I64       ValueType = 0x7E
	F32       ValueType = 0x7D
	F64       ValueType = 0x7C
	Funcref   ValueType = 0x70
	Externref ValueType = 0x6F
)

// IsReference returns true if t is one of the reference types.
func (t ValueType) IsReference() bool {
	return t == Funcref || t == Externref
}

// IsNumeric returns true if t is one of the numeric types.
func (t ValueType) IsNumeric() bool {
	return t == I32 || t == I64 || t == F32 || t == F64
}

func (t ValueType) String() string {
	switch t {
	case I32:
		return "i32"
	case I64:
		return "i64"
	case F32:
		return "f32"
	case F64:
		return "f64"
	case Funcref:
		return "funcref"
	case Externref:
		return "externref"
	default:
		return fmt.Sprintf("valuetype(0x%02x)", byte(t))
	}
}
