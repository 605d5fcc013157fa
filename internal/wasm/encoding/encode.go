// Copyright 2018 The OPA Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

package encoding

import (
	"bytes"
	"io"

	"github.com/externref-go/rewriter/internal/leb128"
	"github.com/externref-go/rewriter/internal/wasm/module"
	"github.com/externref-go/rewriter/internal/wasm/types"
)

// WriteModule encodes m as a binary WASM module to w.
func WriteModule(w io.Writer, m *module.Module) error {
	if _, err := w.Write(magic[:]); err != nil {
		return err
	}
	if _, err := w.Write(version[:]); err != nil {
		return err
	}

	sections := []struct {
		id   sectionID
		body func() ([]byte, error)
	}{
		{sectionType, func() ([]byte, error) { return encodeTypeSection(m) }},
		{sectionImport, func() ([]byte, error) { return encodeImportSection(m) }},
		{sectionFunc, func() ([]byte, error) { return encodeFunctionSection(m) }},
		{sectionTable, func() ([]byte, error) { return encodeTableSection(m) }},
		{sectionMemory, func() ([]byte, error) { return encodeMemorySection(m) }},
		{sectionGlobal, func() ([]byte, error) { return encodeGlobalSection(m) }},
		{sectionExport, func() ([]byte, error) { return encodeExportSection(m) }},
	}
	for _, s := range sections {
		if err := writeOptionalSection(w, s.id, s.body); err != nil {
			return err
		}
	}

	if m.Start.FuncIndex != nil {
		var buf bytes.Buffer
		if err := leb128.WriteVarUint32(&buf, *m.Start.FuncIndex); err != nil {
			return err
		}
		if err := writeSection(w, sectionStart, buf.Bytes()); err != nil {
			return err
		}
	}

	if err := writeOptionalSection(w, sectionElem, func() ([]byte, error) { return encodeElementSection(m) }); err != nil {
		return err
	}
	if err := writeOptionalSection(w, sectionCode, func() ([]byte, error) { return encodeCodeSection(m) }); err != nil {
		return err
	}
	if err := writeOptionalSection(w, sectionData, func() ([]byte, error) { return encodeDataSection(m) }); err != nil {
		return err
	}

	for _, c := range m.Customs {
		var buf bytes.Buffer
		if err := writeName(&buf, c.Name); err != nil {
			return err
		}
		if _, err := buf.Write(c.Data); err != nil {
			return err
		}
		if err := writeSection(w, sectionCustom, buf.Bytes()); err != nil {
			return err
		}
	}

	return nil
}

func writeSection(w io.Writer, id sectionID, body []byte) error {
	if err := writeByte(w, byte(id)); err != nil {
		return err
	}
	if err := leb128.WriteVarUint32(w, uint32(len(body))); err != nil {
		return err
	}
	_, err := w.Write(body)
	return err
}

func writeOptionalSection(w io.Writer, id sectionID, body func() ([]byte, error)) error {
	b, err := body()
	if err != nil {
		return err
	}
	if b == nil {
		return nil
	}
	return writeSection(w, id, b)
}

func encodeTypeSection(m *module.Module) ([]byte, error) {
	if len(m.Type.Functions) == 0 {
		return nil, nil
	}
	var buf bytes.Buffer
	if err := leb128.WriteVarUint32(&buf, uint32(len(m.Type.Functions))); err != nil {
		return nil, err
	}
	for _, ft := range m.Type.Functions {
		if err := writeByte(&buf, funcTypeTag); err != nil {
			return nil, err
		}
		if err := encodeValTypeVec(&buf, ft.Params); err != nil {
			return nil, err
		}
		if err := encodeValTypeVec(&buf, ft.Results); err != nil {
			return nil, err
		}
	}
	return buf.Bytes(), nil
}

func encodeValTypeVec(w io.Writer, vts []types.ValueType) error {
	if err := leb128.WriteVarUint32(w, uint32(len(vts))); err != nil {
		return err
	}
	for _, vt := range vts {
		if err := writeValType(w, vt); err != nil {
			return err
		}
	}
	return nil
}

func encodeImportSection(m *module.Module) ([]byte, error) {
	if len(m.Import.Imports) == 0 {
		return nil, nil
	}
	var buf bytes.Buffer
	if err := leb128.WriteVarUint32(&buf, uint32(len(m.Import.Imports))); err != nil {
		return nil, err
	}
	for _, imp := range m.Import.Imports {
		if err := writeName(&buf, imp.Module); err != nil {
			return nil, err
		}
		if err := writeName(&buf, imp.Name); err != nil {
			return nil, err
		}
		if err := writeByte(&buf, byte(imp.Descriptor.Kind())); err != nil {
			return nil, err
		}
		switch d := imp.Descriptor.(type) {
		case module.FunctionImport:
			if err := leb128.WriteVarUint32(&buf, d.Func); err != nil {
				return nil, err
			}
		case module.TableImport:
			if err := writeValType(&buf, d.Type.ElemType); err != nil {
				return nil, err
			}
			if err := writeLimits(&buf, d.Type.Lim.Min, d.Type.Lim.Max); err != nil {
				return nil, err
			}
		case module.MemoryImport:
			if err := writeLimits(&buf, d.Lim.Min, d.Lim.Max); err != nil {
				return nil, err
			}
		case module.GlobalImport:
			if err := writeValType(&buf, d.Type); err != nil {
				return nil, err
			}
			mb := byte(0)
			if d.Mutable {
				mb = 1
			}
			if err := writeByte(&buf, mb); err != nil {
				return nil, err
			}
		}
	}
	return buf.Bytes(), nil
}

func encodeFunctionSection(m *module.Module) ([]byte, error) {
	if len(m.Function.TypeIndices) == 0 {
		return nil, nil
	}
	var buf bytes.Buffer
	if err := leb128.WriteVarUint32(&buf, uint32(len(m.Function.TypeIndices))); err != nil {
		return nil, err
	}
	for _, idx := range m.Function.TypeIndices {
		if err := leb128.WriteVarUint32(&buf, idx); err != nil {
			return nil, err
		}
	}
	return buf.Bytes(), nil
}

func encodeTableSection(m *module.Module) ([]byte, error) {
	if len(m.Table.Tables) == 0 {
		return nil, nil
	}
	var buf bytes.Buffer
	if err := leb128.WriteVarUint32(&buf, uint32(len(m.Table.Tables))); err != nil {
		return nil, err
	}
	for _, t := range m.Table.Tables {
		if err := writeValType(&buf, t.Type.ElemType); err != nil {
			return nil, err
		}
		if err := writeLimits(&buf, t.Type.Lim.Min, t.Type.Lim.Max); err != nil {
			return nil, err
		}
	}
	return buf.Bytes(), nil
}

func encodeMemorySection(m *module.Module) ([]byte, error) {
	if len(m.Memory.Memories) == 0 {
		return nil, nil
	}
	var buf bytes.Buffer
	if err := leb128.WriteVarUint32(&buf, uint32(len(m.Memory.Memories))); err != nil {
		return nil, err
	}
	for _, mem := range m.Memory.Memories {
		if err := writeLimits(&buf, mem.Lim.Min, mem.Lim.Max); err != nil {
			return nil, err
		}
	}
	return buf.Bytes(), nil
}

func encodeGlobalSection(m *module.Module) ([]byte, error) {
	if len(m.Global.Globals) == 0 {
		return nil, nil
	}
	var buf bytes.Buffer
	if err := leb128.WriteVarUint32(&buf, uint32(len(m.Global.Globals))); err != nil {
		return nil, err
	}
	for _, g := range m.Global.Globals {
		if err := writeValType(&buf, g.Type); err != nil {
			return nil, err
		}
		mb := byte(0)
		if g.Mutable {
			mb = 1
		}
		if err := writeByte(&buf, mb); err != nil {
			return nil, err
		}
		if err := encodeExpr(&buf, g.Init.Instrs); err != nil {
			return nil, err
		}
	}
	return buf.Bytes(), nil
}

func encodeExportSection(m *module.Module) ([]byte, error) {
	if len(m.Export.Exports) == 0 {
		return nil, nil
	}
	var buf bytes.Buffer
	if err := leb128.WriteVarUint32(&buf, uint32(len(m.Export.Exports))); err != nil {
		return nil, err
	}
	for _, e := range m.Export.Exports {
		if err := writeName(&buf, e.Name); err != nil {
			return nil, err
		}
		if err := writeByte(&buf, byte(e.Descriptor.Type)); err != nil {
			return nil, err
		}
		if err := leb128.WriteVarUint32(&buf, e.Descriptor.Index); err != nil {
			return nil, err
		}
	}
	return buf.Bytes(), nil
}

func encodeElementSection(m *module.Module) ([]byte, error) {
	if len(m.Element.Segments) == 0 {
		return nil, nil
	}
	var buf bytes.Buffer
	if err := leb128.WriteVarUint32(&buf, uint32(len(m.Element.Segments))); err != nil {
		return nil, err
	}
	for _, s := range m.Element.Segments {
		if err := leb128.WriteVarUint32(&buf, s.TableIndex); err != nil {
			return nil, err
		}
		if err := encodeExpr(&buf, s.Offset.Instrs); err != nil {
			return nil, err
		}
		if err := leb128.WriteVarUint32(&buf, uint32(len(s.Indices))); err != nil {
			return nil, err
		}
		for _, idx := range s.Indices {
			if err := leb128.WriteVarUint32(&buf, idx); err != nil {
				return nil, err
			}
		}
	}
	return buf.Bytes(), nil
}

func encodeCodeSection(m *module.Module) ([]byte, error) {
	if len(m.Code.Segments) == 0 {
		return nil, nil
	}
	var buf bytes.Buffer
	if err := leb128.WriteVarUint32(&buf, uint32(len(m.Code.Segments))); err != nil {
		return nil, err
	}
	for _, seg := range m.Code.Segments {
		if err := leb128.WriteVarUint32(&buf, uint32(len(seg.Code))); err != nil {
			return nil, err
		}
		if _, err := buf.Write(seg.Code); err != nil {
			return nil, err
		}
	}
	return buf.Bytes(), nil
}

func encodeDataSection(m *module.Module) ([]byte, error) {
	if len(m.Data.Segments) == 0 {
		return nil, nil
	}
	var buf bytes.Buffer
	if err := leb128.WriteVarUint32(&buf, uint32(len(m.Data.Segments))); err != nil {
		return nil, err
	}
	for _, s := range m.Data.Segments {
		if err := leb128.WriteVarUint32(&buf, s.Index); err != nil {
			return nil, err
		}
		if err := encodeExpr(&buf, s.Offset.Instrs); err != nil {
			return nil, err
		}
		if err := leb128.WriteVarUint32(&buf, uint32(len(s.Init))); err != nil {
			return nil, err
		}
		if _, err := buf.Write(s.Init); err != nil {
			return nil, err
		}
	}
	return buf.Bytes(), nil
}

// WriteCodeEntry encodes a function's locals and instruction IR back
// into a code-section segment's raw bytes (without the leading size
// varuint — the caller assigns that to module.CodeSegment.Code and the
// section writer accounts for it).
func WriteCodeEntry(w io.Writer, entry module.CodeEntry) error {
	if err := leb128.WriteVarUint32(w, uint32(len(entry.Func.Locals))); err != nil {
		return err
	}
	for _, l := range entry.Func.Locals {
		if err := leb128.WriteVarUint32(w, l.Count); err != nil {
			return err
		}
		if err := writeValType(w, l.Type); err != nil {
			return err
		}
	}
	return encodeExpr(w, entry.Func.Expr.Instrs)
}
