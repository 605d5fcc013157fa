// Copyright 2018 The OPA Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

package encoding

import (
	"encoding/binary"
	"io"
	"math"

	"github.com/pkg/errors"

	"github.com/externref-go/rewriter/internal/leb128"
	"github.com/externref-go/rewriter/internal/wasm/instruction"
	"github.com/externref-go/rewriter/internal/wasm/opcode"
	"github.com/externref-go/rewriter/internal/wasm/types"
)

const (
	blockTypeEmpty = 0x40
	terminatorEnd  = 0x0B
	terminatorElse = 0x05
	fcPrefix       = 0xFC
)

// decodeExpr decodes an instruction sequence terminated by End, as used
// by global initializers, segment offsets and function bodies.
func decodeExpr(r io.Reader) ([]instruction.Instruction, error) {
	instrs, term, err := decodeInstrSeq(r)
	if err != nil {
		return nil, err
	}
	if term != terminatorEnd {
		return nil, errors.New("expr terminated by else outside if")
	}
	return instrs, nil
}

func decodeInstrSeq(r io.Reader) ([]instruction.Instruction, byte, error) {
	var instrs []instruction.Instruction
	for {
		b, err := readByte(r)
		if err != nil {
			return nil, 0, err
		}
		if b == terminatorEnd || b == terminatorElse {
			return instrs, b, nil
		}
		instr, err := decodeInstr(r, b)
		if err != nil {
			return nil, 0, err
		}
		instrs = append(instrs, instr)
	}
}

func decodeBlockType(r io.Reader) (*types.ValueType, error) {
	b, err := readByte(r)
	if err != nil {
		return nil, err
	}
	if b == blockTypeEmpty {
		return nil, nil
	}
	vt := types.ValueType(b)
	return &vt, nil
}

func decodeInstr(r io.Reader, opByte byte) (instruction.Instruction, error) {
	if opByte == fcPrefix {
		sub, err := leb128.ReadVarUint32(r)
		if err != nil {
			return nil, err
		}
		return decodeFCInstr(r, opcode.Opcode(0xFC00|sub))
	}

	switch opcode.Opcode(opByte) {
	case opcode.Unreachable:
		return instruction.Unreachable{}, nil
	case opcode.Nop:
		return instruction.Nop{}, nil
	case opcode.Return:
		return instruction.Return{}, nil
	case opcode.Block:
		bt, err := decodeBlockType(r)
		if err != nil {
			return nil, err
		}
		instrs, term, err := decodeInstrSeq(r)
		if err != nil {
			return nil, err
		}
		if term != terminatorEnd {
			return nil, errors.New("block terminated by else")
		}
		return instruction.Block{BlockType: bt, Instrs: instrs}, nil
	case opcode.Loop:
		bt, err := decodeBlockType(r)
		if err != nil {
			return nil, err
		}
		instrs, term, err := decodeInstrSeq(r)
		if err != nil {
			return nil, err
		}
		if term != terminatorEnd {
			return nil, errors.New("loop terminated by else")
		}
		return instruction.Loop{BlockType: bt, Instrs: instrs}, nil
	case opcode.If:
		bt, err := decodeBlockType(r)
		if err != nil {
			return nil, err
		}
		then, term, err := decodeInstrSeq(r)
		if err != nil {
			return nil, err
		}
		var els []instruction.Instruction
		if term == terminatorElse {
			els, term, err = decodeInstrSeq(r)
			if err != nil {
				return nil, err
			}
			if term != terminatorEnd {
				return nil, errors.New("if/else terminated by else")
			}
		}
		return instruction.If{BlockType: bt, Then: then, Else: els}, nil
	case opcode.Br:
		idx, err := leb128.ReadVarUint32(r)
		return instruction.Br{Index: idx}, err
	case opcode.BrIf:
		idx, err := leb128.ReadVarUint32(r)
		return instruction.BrIf{Index: idx}, err
	case opcode.BrTable:
		n, err := leb128.ReadVarUint32(r)
		if err != nil {
			return nil, err
		}
		targets := make([]uint32, n)
		for i := range targets {
			targets[i], err = leb128.ReadVarUint32(r)
			if err != nil {
				return nil, err
			}
		}
		def, err := leb128.ReadVarUint32(r)
		return instruction.BrTable{Targets: targets, Default: def}, err
	case opcode.Call:
		idx, err := leb128.ReadVarUint32(r)
		return instruction.Call{Index: idx}, err
	case opcode.CallIndirect:
		typeIdx, err := leb128.ReadVarUint32(r)
		if err != nil {
			return nil, err
		}
		tableIdx, err := leb128.ReadVarUint32(r)
		return instruction.CallIndirect{TypeIndex: typeIdx, TableIndex: tableIdx}, err
	case opcode.Drop:
		return instruction.Drop{}, nil
	case opcode.Select:
		return instruction.Select{}, nil
	case opcode.GetLocal:
		idx, err := leb128.ReadVarUint32(r)
		return instruction.GetLocal{Index: idx}, err
	case opcode.SetLocal:
		idx, err := leb128.ReadVarUint32(r)
		return instruction.SetLocal{Index: idx}, err
	case opcode.TeeLocal:
		idx, err := leb128.ReadVarUint32(r)
		return instruction.TeeLocal{Index: idx}, err
	case opcode.GetGlobal:
		idx, err := leb128.ReadVarUint32(r)
		return instruction.GetGlobal{Index: idx}, err
	case opcode.SetGlobal:
		idx, err := leb128.ReadVarUint32(r)
		return instruction.SetGlobal{Index: idx}, err
	case opcode.TableGet:
		idx, err := leb128.ReadVarUint32(r)
		return instruction.TableGet{Table: idx}, err
	case opcode.TableSet:
		idx, err := leb128.ReadVarUint32(r)
		return instruction.TableSet{Table: idx}, err
	case opcode.RefNull:
		vt, err := readValType(r)
		return instruction.RefNull{Type: vt}, err
	case opcode.RefIsNull:
		return instruction.RefIsNull{}, nil
	case opcode.RefFunc:
		idx, err := leb128.ReadVarUint32(r)
		return instruction.RefFunc{Index: idx}, err
	case opcode.I32Load:
		align, offset, err := readMemarg(r)
		return instruction.I32Load{Align: align, Offset: offset}, err
	case opcode.I32Store:
		align, offset, err := readMemarg(r)
		return instruction.I32Store{Align: align, Offset: offset}, err
	case opcode.MemorySize:
		if _, err := readByte(r); err != nil {
			return nil, err
		}
		return instruction.MemorySize{}, nil
	case opcode.MemoryGrow:
		if _, err := readByte(r); err != nil {
			return nil, err
		}
		return instruction.MemoryGrow{}, nil
	case opcode.I32Const:
		v, err := leb128.ReadVarInt32(r)
		return instruction.I32Const{Value: v}, err
	case opcode.I64Const:
		v, err := leb128.ReadVarInt64(r)
		return instruction.I64Const{Value: v}, err
	case opcode.F32Const:
		var buf [4]byte
		if _, err := io.ReadFull(r, buf[:]); err != nil {
			return nil, err
		}
		return instruction.F32Const{Value: math.Float32frombits(binary.LittleEndian.Uint32(buf[:]))}, nil
	case opcode.F64Const:
		var buf [8]byte
		if _, err := io.ReadFull(r, buf[:]); err != nil {
			return nil, err
		}
		return instruction.F64Const{Value: math.Float64frombits(binary.LittleEndian.Uint64(buf[:]))}, nil
	case opcode.I32Eqz:
		return instruction.I32Eqz{}, nil
	case opcode.I32Eq:
		return instruction.I32Eq{}, nil
	case opcode.I32Ne:
		return instruction.I32Ne{}, nil
	case opcode.I32LtS:
		return instruction.I32LtS{}, nil
	case opcode.I32GtS:
		return instruction.I32GtS{}, nil
	case opcode.I32Add:
		return instruction.I32Add{}, nil
	case opcode.I32Sub:
		return instruction.I32Sub{}, nil
	case opcode.I32Mul:
		return instruction.I32Mul{}, nil
	case opcode.I64Eqz:
		return instruction.I64Eqz{}, nil
	case opcode.I64Eq:
		return instruction.I64Eq{}, nil
	case opcode.I64Ne:
		return instruction.I64Ne{}, nil
	case opcode.I64Add:
		return instruction.I64Add{}, nil
	case opcode.I64Sub:
		return instruction.I64Sub{}, nil
	case opcode.I64Mul:
		return instruction.I64Mul{}, nil
	default:
		return nil, errors.Errorf("unsupported opcode 0x%02x", opByte)
	}
}

func decodeFCInstr(r io.Reader, op opcode.Opcode) (instruction.Instruction, error) {
	switch op {
	case opcode.TableGrow:
		idx, err := leb128.ReadVarUint32(r)
		return instruction.TableGrow{Table: idx}, err
	case opcode.TableSize:
		idx, err := leb128.ReadVarUint32(r)
		return instruction.TableSize{Table: idx}, err
	case opcode.TableFill:
		idx, err := leb128.ReadVarUint32(r)
		return instruction.TableFill{Table: idx}, err
	default:
		return nil, errors.Errorf("unsupported 0xFC opcode %v", op)
	}
}

func readMemarg(r io.Reader) (align, offset uint32, err error) {
	align, err = leb128.ReadVarUint32(r)
	if err != nil {
		return 0, 0, err
	}
	offset, err = leb128.ReadVarUint32(r)
	return align, offset, err
}

func encodeExpr(w io.Writer, instrs []instruction.Instruction) error {
	if err := encodeInstrs(w, instrs); err != nil {
		return err
	}
	return writeByte(w, terminatorEnd)
}

func encodeInstrs(w io.Writer, instrs []instruction.Instruction) error {
	for _, instr := range instrs {
		if err := encodeInstr(w, instr); err != nil {
			return err
		}
	}
	return nil
}

func encodeBlockType(w io.Writer, bt *types.ValueType) error {
	if bt == nil {
		return writeByte(w, blockTypeEmpty)
	}
	return writeValType(w, *bt)
}

func encodeInstr(w io.Writer, instr instruction.Instruction) error {
	switch ins := instr.(type) {
	case instruction.Unreachable:
		return writeByte(w, byte(opcode.Unreachable))
	case instruction.Nop:
		return writeByte(w, byte(opcode.Nop))
	case instruction.Return:
		return writeByte(w, byte(opcode.Return))
	case instruction.Block:
		if err := writeByte(w, byte(opcode.Block)); err != nil {
			return err
		}
		if err := encodeBlockType(w, ins.BlockType); err != nil {
			return err
		}
		if err := encodeInstrs(w, ins.Instrs); err != nil {
			return err
		}
		return writeByte(w, terminatorEnd)
	case instruction.Loop:
		if err := writeByte(w, byte(opcode.Loop)); err != nil {
			return err
		}
		if err := encodeBlockType(w, ins.BlockType); err != nil {
			return err
		}
		if err := encodeInstrs(w, ins.Instrs); err != nil {
			return err
		}
		return writeByte(w, terminatorEnd)
	case instruction.If:
		if err := writeByte(w, byte(opcode.If)); err != nil {
			return err
		}
		if err := encodeBlockType(w, ins.BlockType); err != nil {
			return err
		}
		if err := encodeInstrs(w, ins.Then); err != nil {
			return err
		}
		if len(ins.Else) > 0 {
			if err := writeByte(w, terminatorElse); err != nil {
				return err
			}
			if err := encodeInstrs(w, ins.Else); err != nil {
				return err
			}
		}
		return writeByte(w, terminatorEnd)
	case instruction.Br:
		if err := writeByte(w, byte(opcode.Br)); err != nil {
			return err
		}
		return leb128.WriteVarUint32(w, ins.Index)
	case instruction.BrIf:
		if err := writeByte(w, byte(opcode.BrIf)); err != nil {
			return err
		}
		return leb128.WriteVarUint32(w, ins.Index)
	case instruction.BrTable:
		if err := writeByte(w, byte(opcode.BrTable)); err != nil {
			return err
		}
		if err := leb128.WriteVarUint32(w, uint32(len(ins.Targets))); err != nil {
			return err
		}
		for _, t := range ins.Targets {
			if err := leb128.WriteVarUint32(w, t); err != nil {
				return err
			}
		}
		return leb128.WriteVarUint32(w, ins.Default)
	case instruction.Call:
		if err := writeByte(w, byte(opcode.Call)); err != nil {
			return err
		}
		return leb128.WriteVarUint32(w, ins.Index)
	case instruction.CallIndirect:
		if err := writeByte(w, byte(opcode.CallIndirect)); err != nil {
			return err
		}
		if err := leb128.WriteVarUint32(w, ins.TypeIndex); err != nil {
			return err
		}
		return leb128.WriteVarUint32(w, ins.TableIndex)
	case instruction.Drop:
		return writeByte(w, byte(opcode.Drop))
	case instruction.Select:
		return writeByte(w, byte(opcode.Select))
	case instruction.GetLocal:
		if err := writeByte(w, byte(opcode.GetLocal)); err != nil {
			return err
		}
		return leb128.WriteVarUint32(w, ins.Index)
	case instruction.SetLocal:
		if err := writeByte(w, byte(opcode.SetLocal)); err != nil {
			return err
		}
		return leb128.WriteVarUint32(w, ins.Index)
	case instruction.TeeLocal:
		if err := writeByte(w, byte(opcode.TeeLocal)); err != nil {
			return err
		}
		return leb128.WriteVarUint32(w, ins.Index)
	case instruction.GetGlobal:
		if err := writeByte(w, byte(opcode.GetGlobal)); err != nil {
			return err
		}
		return leb128.WriteVarUint32(w, ins.Index)
	case instruction.SetGlobal:
		if err := writeByte(w, byte(opcode.SetGlobal)); err != nil {
			return err
		}
		return leb128.WriteVarUint32(w, ins.Index)
	case instruction.TableGet:
		if err := writeByte(w, byte(opcode.TableGet)); err != nil {
			return err
		}
		return leb128.WriteVarUint32(w, ins.Table)
	case instruction.TableSet:
		if err := writeByte(w, byte(opcode.TableSet)); err != nil {
			return err
		}
		return leb128.WriteVarUint32(w, ins.Table)
	case instruction.TableGrow:
		if err := writeByte(w, fcPrefix); err != nil {
			return err
		}
		if err := leb128.WriteVarUint32(w, opcode.TableGrow.Sub()); err != nil {
			return err
		}
		return leb128.WriteVarUint32(w, ins.Table)
	case instruction.TableSize:
		if err := writeByte(w, fcPrefix); err != nil {
			return err
		}
		if err := leb128.WriteVarUint32(w, opcode.TableSize.Sub()); err != nil {
			return err
		}
		return leb128.WriteVarUint32(w, ins.Table)
	case instruction.TableFill:
		if err := writeByte(w, fcPrefix); err != nil {
			return err
		}
		if err := leb128.WriteVarUint32(w, opcode.TableFill.Sub()); err != nil {
			return err
		}
		return leb128.WriteVarUint32(w, ins.Table)
	case instruction.RefNull:
		if err := writeByte(w, byte(opcode.RefNull)); err != nil {
			return err
		}
		return writeValType(w, ins.Type)
	case instruction.RefIsNull:
		return writeByte(w, byte(opcode.RefIsNull))
	case instruction.RefFunc:
		if err := writeByte(w, byte(opcode.RefFunc)); err != nil {
			return err
		}
		return leb128.WriteVarUint32(w, ins.Index)
	case instruction.I32Load:
		if err := writeByte(w, byte(opcode.I32Load)); err != nil {
			return err
		}
		return writeMemarg(w, ins.Align, ins.Offset)
	case instruction.I32Store:
		if err := writeByte(w, byte(opcode.I32Store)); err != nil {
			return err
		}
		return writeMemarg(w, ins.Align, ins.Offset)
	case instruction.MemorySize:
		if err := writeByte(w, byte(opcode.MemorySize)); err != nil {
			return err
		}
		return writeByte(w, 0)
	case instruction.MemoryGrow:
		if err := writeByte(w, byte(opcode.MemoryGrow)); err != nil {
			return err
		}
		return writeByte(w, 0)
	case instruction.I32Const:
		if err := writeByte(w, byte(opcode.I32Const)); err != nil {
			return err
		}
		return leb128.WriteVarInt32(w, ins.Value)
	case instruction.I64Const:
		if err := writeByte(w, byte(opcode.I64Const)); err != nil {
			return err
		}
		return leb128.WriteVarInt64(w, ins.Value)
	case instruction.F32Const:
		if err := writeByte(w, byte(opcode.F32Const)); err != nil {
			return err
		}
		var buf [4]byte
		binary.LittleEndian.PutUint32(buf[:], math.Float32bits(ins.Value))
		_, err := w.Write(buf[:])
		return err
	case instruction.F64Const:
		if err := writeByte(w, byte(opcode.F64Const)); err != nil {
			return err
		}
		var buf [8]byte
		binary.LittleEndian.PutUint64(buf[:], math.Float64bits(ins.Value))
		_, err := w.Write(buf[:])
		return err
	case instruction.I32Eqz:
		return writeByte(w, byte(opcode.I32Eqz))
	case instruction.I32Eq:
		return writeByte(w, byte(opcode.I32Eq))
	case instruction.I32Ne:
		return writeByte(w, byte(opcode.I32Ne))
	case instruction.I32LtS:
		return writeByte(w, byte(opcode.I32LtS))
	case instruction.I32GtS:
		return writeByte(w, byte(opcode.I32GtS))
	case instruction.I32Add:
		return writeByte(w, byte(opcode.I32Add))
	case instruction.I32Sub:
		return writeByte(w, byte(opcode.I32Sub))
	case instruction.I32Mul:
		return writeByte(w, byte(opcode.I32Mul))
	case instruction.I64Eqz:
		return writeByte(w, byte(opcode.I64Eqz))
	case instruction.I64Eq:
		return writeByte(w, byte(opcode.I64Eq))
	case instruction.I64Ne:
		return writeByte(w, byte(opcode.I64Ne))
	case instruction.I64Add:
		return writeByte(w, byte(opcode.I64Add))
	case instruction.I64Sub:
		return writeByte(w, byte(opcode.I64Sub))
	case instruction.I64Mul:
		return writeByte(w, byte(opcode.I64Mul))
	default:
		return errors.Errorf("unsupported instruction %T", instr)
	}
}

func writeMemarg(w io.Writer, align, offset uint32) error {
	if err := leb128.WriteVarUint32(w, align); err != nil {
		return err
	}
	return leb128.WriteVarUint32(w, offset)
}
