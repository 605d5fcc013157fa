// Copyright 2018 The OPA Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

package encoding

import (
	"bytes"
	"io"

	"github.com/pkg/errors"

	"github.com/externref-go/rewriter/internal/leb128"
	"github.com/externref-go/rewriter/internal/wasm/module"
	"github.com/externref-go/rewriter/internal/wasm/types"
)

// ReadModule decodes a binary WASM module from r.
func ReadModule(r io.Reader) (*module.Module, error) {
	var hdr [8]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return nil, errors.Wrap(err, "read preamble")
	}
	if !bytes.Equal(hdr[:4], magic[:]) {
		return nil, errors.New("bad magic number")
	}
	if !bytes.Equal(hdr[4:], version[:]) {
		return nil, errors.New("unsupported binary version")
	}

	m := &module.Module{Version: module.PreambleVersion}

	for {
		id, err := readByte(r)
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Wrap(err, "read section id")
		}
		size, err := leb128.ReadVarUint32(r)
		if err != nil {
			return nil, errors.Wrap(err, "read section size")
		}
		body, err := readBytes(r, size)
		if err != nil {
			return nil, errors.Wrap(err, "read section body")
		}
		sr := bytes.NewReader(body)
		if err := decodeSection(m, sectionID(id), sr); err != nil {
			return nil, errors.Wrapf(err, "decode section %d", id)
		}
	}

	return m, nil
}

func decodeSection(m *module.Module, id sectionID, r *bytes.Reader) error {
	switch id {
	case sectionCustom:
		name, err := readName(r)
		if err != nil {
			return err
		}
		data := make([]byte, r.Len())
		if _, err := io.ReadFull(r, data); err != nil {
			return err
		}
		m.Customs = append(m.Customs, module.CustomSection{Name: name, Data: data})
		return nil
	case sectionType:
		return decodeTypeSection(m, r)
	case sectionImport:
		return decodeImportSection(m, r)
	case sectionFunc:
		return decodeFunctionSection(m, r)
	case sectionTable:
		return decodeTableSection(m, r)
	case sectionMemory:
		return decodeMemorySection(m, r)
	case sectionGlobal:
		return decodeGlobalSection(m, r)
	case sectionExport:
		return decodeExportSection(m, r)
	case sectionStart:
		idx, err := leb128.ReadVarUint32(r)
		if err != nil {
			return err
		}
		m.Start.FuncIndex = &idx
		return nil
	case sectionElem:
		return decodeElementSection(m, r)
	case sectionCode:
		return decodeCodeSection(m, r)
	case sectionData:
		return decodeDataSection(m, r)
	default:
		return errors.Errorf("unknown section id %d", id)
	}
}

func decodeTypeSection(m *module.Module, r io.Reader) error {
	n, err := leb128.ReadVarUint32(r)
	if err != nil {
		return err
	}
	for i := uint32(0); i < n; i++ {
		tag, err := readByte(r)
		if err != nil {
			return err
		}
		if tag != funcTypeTag {
			return errors.Errorf("unexpected functype tag 0x%02x", tag)
		}
		params, err := decodeValTypeVec(r)
		if err != nil {
			return err
		}
		results, err := decodeValTypeVec(r)
		if err != nil {
			return err
		}
		m.Type.Functions = append(m.Type.Functions, module.FunctionType{Params: params, Results: results})
	}
	return nil
}

func decodeValTypeVec(r io.Reader) ([]types.ValueType, error) {
	n, err := leb128.ReadVarUint32(r)
	if err != nil {
		return nil, err
	}
	out := make([]types.ValueType, n)
	for i := range out {
		out[i], err = readValType(r)
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}

func decodeImportSection(m *module.Module, r io.Reader) error {
	n, err := leb128.ReadVarUint32(r)
	if err != nil {
		return err
	}
	for i := uint32(0); i < n; i++ {
		mod, err := readName(r)
		if err != nil {
			return err
		}
		name, err := readName(r)
		if err != nil {
			return err
		}
		kind, err := readByte(r)
		if err != nil {
			return err
		}
		var desc module.ImportDescriptor
		switch module.ImportExportType(kind) {
		case module.FunctionImportType:
			idx, err := leb128.ReadVarUint32(r)
			if err != nil {
				return err
			}
			desc = module.FunctionImport{Func: idx}
		case module.TableImportType:
			elem, err := readValType(r)
			if err != nil {
				return err
			}
			min, max, err := readLimits(r)
			if err != nil {
				return err
			}
			desc = module.TableImport{Type: module.TableType{ElemType: elem, Lim: module.Limits{Min: min, Max: max}}}
		case module.MemoryImportType:
			min, max, err := readLimits(r)
			if err != nil {
				return err
			}
			desc = module.MemoryImport{Lim: module.Limits{Min: min, Max: max}}
		case module.GlobalImportType:
			vt, err := readValType(r)
			if err != nil {
				return err
			}
			mb, err := readByte(r)
			if err != nil {
				return err
			}
			desc = module.GlobalImport{Type: vt, Mutable: mb != 0}
		default:
			return errors.Errorf("unknown import kind %d", kind)
		}
		m.Import.Imports = append(m.Import.Imports, module.Import{Module: mod, Name: name, Descriptor: desc})
	}
	return nil
}

func decodeFunctionSection(m *module.Module, r io.Reader) error {
	n, err := leb128.ReadVarUint32(r)
	if err != nil {
		return err
	}
	for i := uint32(0); i < n; i++ {
		idx, err := leb128.ReadVarUint32(r)
		if err != nil {
			return err
		}
		m.Function.TypeIndices = append(m.Function.TypeIndices, idx)
	}
	return nil
}

func decodeTableSection(m *module.Module, r io.Reader) error {
	n, err := leb128.ReadVarUint32(r)
	if err != nil {
		return err
	}
	for i := uint32(0); i < n; i++ {
		elem, err := readValType(r)
		if err != nil {
			return err
		}
		min, max, err := readLimits(r)
		if err != nil {
			return err
		}
		m.Table.Tables = append(m.Table.Tables, module.Table{Type: module.TableType{ElemType: elem, Lim: module.Limits{Min: min, Max: max}}})
	}
	return nil
}

func decodeMemorySection(m *module.Module, r io.Reader) error {
	n, err := leb128.ReadVarUint32(r)
	if err != nil {
		return err
	}
	for i := uint32(0); i < n; i++ {
		min, max, err := readLimits(r)
		if err != nil {
			return err
		}
		m.Memory.Memories = append(m.Memory.Memories, module.Memory{Lim: module.Limits{Min: min, Max: max}})
	}
	return nil
}

func decodeGlobalSection(m *module.Module, r io.Reader) error {
	n, err := leb128.ReadVarUint32(r)
	if err != nil {
		return err
	}
	for i := uint32(0); i < n; i++ {
		vt, err := readValType(r)
		if err != nil {
			return err
		}
		mb, err := readByte(r)
		if err != nil {
			return err
		}
		init, err := decodeExpr(r)
		if err != nil {
			return err
		}
		m.Global.Globals = append(m.Global.Globals, module.Global{Type: vt, Mutable: mb != 0, Init: module.Expr{Instrs: init}})
	}
	return nil
}

func decodeExportSection(m *module.Module, r io.Reader) error {
	n, err := leb128.ReadVarUint32(r)
	if err != nil {
		return err
	}
	for i := uint32(0); i < n; i++ {
		name, err := readName(r)
		if err != nil {
			return err
		}
		kind, err := readByte(r)
		if err != nil {
			return err
		}
		idx, err := leb128.ReadVarUint32(r)
		if err != nil {
			return err
		}
		m.Export.Exports = append(m.Export.Exports, module.Export{
			Name:       name,
			Descriptor: module.ExportDescriptor{Type: module.ImportExportType(kind), Index: idx},
		})
	}
	return nil
}

func decodeElementSection(m *module.Module, r io.Reader) error {
	n, err := leb128.ReadVarUint32(r)
	if err != nil {
		return err
	}
	for i := uint32(0); i < n; i++ {
		tableIdx, err := leb128.ReadVarUint32(r)
		if err != nil {
			return err
		}
		offset, err := decodeExpr(r)
		if err != nil {
			return err
		}
		cnt, err := leb128.ReadVarUint32(r)
		if err != nil {
			return err
		}
		indices := make([]uint32, cnt)
		for j := range indices {
			indices[j], err = leb128.ReadVarUint32(r)
			if err != nil {
				return err
			}
		}
		m.Element.Segments = append(m.Element.Segments, module.ElementSegment{
			TableIndex: tableIdx,
			Offset:     module.Expr{Instrs: offset},
			Indices:    indices,
		})
	}
	return nil
}

func decodeCodeSection(m *module.Module, r io.Reader) error {
	n, err := leb128.ReadVarUint32(r)
	if err != nil {
		return err
	}
	for i := uint32(0); i < n; i++ {
		size, err := leb128.ReadVarUint32(r)
		if err != nil {
			return err
		}
		body, err := readBytes(r, size)
		if err != nil {
			return err
		}
		m.Code.Segments = append(m.Code.Segments, module.CodeSegment{Code: body})
	}
	return nil
}

func decodeDataSection(m *module.Module, r io.Reader) error {
	n, err := leb128.ReadVarUint32(r)
	if err != nil {
		return err
	}
	for i := uint32(0); i < n; i++ {
		idx, err := leb128.ReadVarUint32(r)
		if err != nil {
			return err
		}
		offset, err := decodeExpr(r)
		if err != nil {
			return err
		}
		size, err := leb128.ReadVarUint32(r)
		if err != nil {
			return err
		}
		init, err := readBytes(r, size)
		if err != nil {
			return err
		}
		m.Data.Segments = append(m.Data.Segments, module.DataSegment{
			Index:  idx,
			Offset: module.Expr{Instrs: offset},
			Init:   init,
		})
	}
	return nil
}

// CodeEntries decodes every segment in the code section into its locals
// and instruction IR. Callers that only need to rewrite a subset of
// functions should decode lazily instead; this entry point exists for
// callers (and tests) that want the whole module's bodies at once.
func CodeEntries(m *module.Module) ([]module.CodeEntry, error) {
	entries := make([]module.CodeEntry, len(m.Code.Segments))
	for i, seg := range m.Code.Segments {
		entry, err := DecodeCodeEntry(seg.Code)
		if err != nil {
			return nil, errors.Wrapf(err, "function %d", i)
		}
		entries[i] = entry
	}
	return entries, nil
}

// DecodeCodeEntry decodes a single function body's raw bytes (as stored
// in a code section segment, without its own leading size varuint) into
// its locals and instruction IR.
func DecodeCodeEntry(code []byte) (module.CodeEntry, error) {
	r := bytes.NewReader(code)
	n, err := leb128.ReadVarUint32(r)
	if err != nil {
		return module.CodeEntry{}, err
	}
	locals := make([]module.LocalDeclaration, n)
	for i := range locals {
		cnt, err := leb128.ReadVarUint32(r)
		if err != nil {
			return module.CodeEntry{}, err
		}
		vt, err := readValType(r)
		if err != nil {
			return module.CodeEntry{}, err
		}
		locals[i] = module.LocalDeclaration{Count: cnt, Type: vt}
	}
	body, err := decodeExpr(r)
	if err != nil {
		return module.CodeEntry{}, err
	}
	return module.CodeEntry{Func: module.Function{Locals: locals, Expr: module.Expr{Instrs: body}}}, nil
}
