package module

import "github.com/externref-go/rewriter/internal/wasm/types"

// ImportedFunctionCount returns the number of imported functions;
// function index space places these before any local function.
func (m *Module) ImportedFunctionCount() int {
	var n int
	for _, imp := range m.Import.Imports {
		if imp.Descriptor.Kind() == FunctionImportType {
			n++
		}
	}
	return n
}

// FunctionCount returns the total number of functions (imported and
// local) in the module's function index space.
func (m *Module) FunctionCount() int {
	return m.ImportedFunctionCount() + len(m.Function.TypeIndices)
}

// FunctionTypeIndex resolves a function index, import or local, to its
// index in the type section.
func (m *Module) FunctionTypeIndex(funcIdx uint32) (uint32, bool) {
	var i uint32
	for _, imp := range m.Import.Imports {
		fi, ok := imp.Descriptor.(FunctionImport)
		if !ok {
			continue
		}
		if i == funcIdx {
			return fi.Func, true
		}
		i++
	}
	local := funcIdx - i
	if int(local) >= len(m.Function.TypeIndices) {
		return 0, false
	}
	return m.Function.TypeIndices[local], true
}

// FunctionType resolves a function index to its signature.
func (m *Module) FunctionType(funcIdx uint32) (FunctionType, bool) {
	ti, ok := m.FunctionTypeIndex(funcIdx)
	if !ok || int(ti) >= len(m.Type.Functions) {
		return FunctionType{}, false
	}
	return m.Type.Functions[ti], true
}

// SetFunctionTypeIndex rewrites the type index a function index resolves
// to. funcIdx must name a local function: import signatures are rewritten
// by replacing the Descriptor on the Import entry instead.
func (m *Module) SetFunctionTypeIndex(funcIdx uint32, typeIdx uint32) bool {
	importCount := m.ImportedFunctionCount()
	if int(funcIdx) < importCount {
		return false
	}
	local := int(funcIdx) - importCount
	if local >= len(m.Function.TypeIndices) {
		return false
	}
	m.Function.TypeIndices[local] = typeIdx
	return true
}

// SetFunctionType rewrites the type index funcIdx resolves to, whether
// funcIdx names an imported or a local function.
func (m *Module) SetFunctionType(funcIdx uint32, typeIdx uint32) bool {
	importCount := m.ImportedFunctionCount()
	if int(funcIdx) >= importCount {
		return m.SetFunctionTypeIndex(funcIdx, typeIdx)
	}
	var i uint32
	for idx := range m.Import.Imports {
		imp := &m.Import.Imports[idx]
		if imp.Descriptor.Kind() != FunctionImportType {
			continue
		}
		if i == funcIdx {
			imp.Descriptor = FunctionImport{Func: typeIdx}
			return true
		}
		i++
	}
	return false
}

// ImportedTableCount returns the number of imported tables; table index
// space places these before any locally-defined table.
func (m *Module) ImportedTableCount() int {
	var n int
	for _, imp := range m.Import.Imports {
		if imp.Descriptor.Kind() == TableImportType {
			n++
		}
	}
	return n
}

// TableElemType resolves a table index, imported or local, to its
// element type.
func (m *Module) TableElemType(tableIdx uint32) (types.ValueType, bool) {
	var i uint32
	for _, imp := range m.Import.Imports {
		ti, ok := imp.Descriptor.(TableImport)
		if !ok {
			continue
		}
		if i == tableIdx {
			return ti.Type.ElemType, true
		}
		i++
	}
	local := tableIdx - i
	if int(local) >= len(m.Table.Tables) {
		return 0, false
	}
	return m.Table.Tables[local].Type.ElemType, true
}

// FindImport returns the import and its function index matching module
// and name, if any.
func (m *Module) FindImport(module, name string) (*Import, uint32, bool) {
	var funcIdx uint32
	for i := range m.Import.Imports {
		imp := &m.Import.Imports[i]
		if imp.Module == module && imp.Name == name {
			return imp, funcIdx, true
		}
		if imp.Descriptor.Kind() == FunctionImportType {
			funcIdx++
		}
	}
	return nil, 0, false
}

// FindExport returns the export with the given name, if any.
func (m *Module) FindExport(name string) (*Export, bool) {
	for i := range m.Export.Exports {
		if m.Export.Exports[i].Name == name {
			return &m.Export.Exports[i], true
		}
	}
	return nil, false
}

// FindCustom returns the custom section with the given name, if any.
func (m *Module) FindCustom(name string) (*CustomSection, int) {
	for i := range m.Customs {
		if m.Customs[i].Name == name {
			return &m.Customs[i], i
		}
	}
	return nil, -1
}

// RemoveCustom deletes the custom section at index i.
func (m *Module) RemoveCustom(i int) {
	m.Customs = append(m.Customs[:i], m.Customs[i+1:]...)
}

// EmitFunctionType returns the index of a type equal to tpe, appending
// it to the type section if no equal type already exists.
func (m *Module) EmitFunctionType(tpe FunctionType) uint32 {
	for i, other := range m.Type.Functions {
		if tpe.Equal(other) {
			return uint32(i)
		}
	}
	m.Type.Functions = append(m.Type.Functions, tpe)
	return uint32(len(m.Type.Functions) - 1)
}

// FunctionName returns the debug name recorded for funcIdx, if any.
func (m *Module) FunctionName(funcIdx uint32) (string, bool) {
	for _, nm := range m.Names.Functions {
		if nm.Index == funcIdx {
			return nm.Name, true
		}
	}
	return "", false
}
