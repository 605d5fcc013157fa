package externref

import (
	"testing"

	"github.com/externref-go/rewriter/internal/wasm/module"
	"github.com/externref-go/rewriter/internal/wasm/types"
)

func TestAllocateReferenceTableCreatesNew(t *testing.T) {
	m := &module.Module{}

	idx, err := AllocateReferenceTable(m, DefaultTableName)
	if err != nil {
		t.Fatal(err)
	}
	if idx != 0 {
		t.Errorf("got table index %d, want 0", idx)
	}
	if len(m.Table.Tables) != 1 {
		t.Fatalf("got %d tables, want 1", len(m.Table.Tables))
	}
	if m.Table.Tables[0].Type.ElemType != types.Externref {
		t.Errorf("got elem type %v, want externref", m.Table.Tables[0].Type.ElemType)
	}
	exp, ok := m.FindExport(DefaultTableName)
	if !ok {
		t.Fatal("expected table to be exported")
	}
	if exp.Descriptor.Type != module.TableExportType || exp.Descriptor.Index != idx {
		t.Errorf("got export %+v, want table export at index %d", exp.Descriptor, idx)
	}
}

func TestAllocateReferenceTableReusesExisting(t *testing.T) {
	m := &module.Module{
		Table: module.TableSection{Tables: []module.Table{
			{Type: module.TableType{ElemType: types.Externref}},
		}},
		Export: module.ExportSection{Exports: []module.Export{
			{Name: "reftab", Descriptor: module.ExportDescriptor{Type: module.TableExportType, Index: 0}},
		}},
	}

	idx, err := AllocateReferenceTable(m, "reftab")
	if err != nil {
		t.Fatal(err)
	}
	if idx != 0 {
		t.Errorf("got %d, want 0", idx)
	}
	if len(m.Table.Tables) != 1 {
		t.Errorf("allocator should not have appended a table, got %d", len(m.Table.Tables))
	}
}

func TestAllocateReferenceTableRejectsWrongElemType(t *testing.T) {
	m := &module.Module{
		Table: module.TableSection{Tables: []module.Table{
			{Type: module.TableType{ElemType: types.Funcref}},
		}},
		Export: module.ExportSection{Exports: []module.Export{
			{Name: "reftab", Descriptor: module.ExportDescriptor{Type: module.TableExportType, Index: 0}},
		}},
	}

	if _, err := AllocateReferenceTable(m, "reftab"); err == nil {
		t.Fatal("expected error for a funcref table under the reserved name")
	}
}

func TestAllocateReferenceTableRejectsNonTableExport(t *testing.T) {
	m := &module.Module{
		Export: module.ExportSection{Exports: []module.Export{
			{Name: "reftab", Descriptor: module.ExportDescriptor{Type: module.MemoryExportType, Index: 0}},
		}},
	}

	if _, err := AllocateReferenceTable(m, "reftab"); err == nil {
		t.Fatal("expected error when the reserved name already names a non-table export")
	}
}
