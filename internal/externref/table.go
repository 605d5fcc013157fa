package externref

import (
	"github.com/externref-go/rewriter/internal/wasm/module"
	"github.com/externref-go/rewriter/internal/wasm/types"
)

// DefaultTableName is the name the reference table is exported under
// unless the caller overrides it (CLI flag --table-name).
const DefaultTableName = "externrefs"

// AllocateReferenceTable locates or creates the module-local table of
// reference type that backs every rewritten slot. If a table is already
// exported under name, it is reused provided its element type is
// externref; otherwise a new table is appended with minimum size 0
// and no maximum, and exported under name. Slot 0 is left to the guest's
// own convention. The allocator never writes to the table, and the
// rewritten code never grows it: it only reads slots (table.get) and
// clears them (table.set of ref.null).
func AllocateReferenceTable(m *module.Module, name string) (uint32, error) {
	if exp, ok := m.FindExport(name); ok {
		if exp.Descriptor.Type != module.TableExportType {
			return 0, errf(MalformedModule, "export %q already exists and is not a table", name)
		}
		elemType, ok := m.TableElemType(exp.Descriptor.Index)
		if !ok {
			return 0, errf(MalformedModule, "export %q names a table absent from the module", name)
		}
		if elemType != types.Externref {
			return 0, errf(MalformedModule, "export %q names a table of element type %v, want externref", name, elemType)
		}
		return exp.Descriptor.Index, nil
	}

	m.Table.Tables = append(m.Table.Tables, module.Table{
		Type: module.TableType{
			ElemType: types.Externref,
			Lim:      module.Limits{Min: 0, Max: nil},
		},
	})
	localIdx := uint32(len(m.Table.Tables) - 1)
	tableIdx := uint32(m.ImportedTableCount()) + localIdx

	m.Export.Exports = append(m.Export.Exports, module.Export{
		Name: name,
		Descriptor: module.ExportDescriptor{
			Type:  module.TableExportType,
			Index: tableIdx,
		},
	})
	return tableIdx, nil
}
