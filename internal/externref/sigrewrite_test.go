package externref

import (
	"testing"

	"github.com/externref-go/rewriter/internal/wasm/module"
	"github.com/externref-go/rewriter/internal/wasm/types"
)

func TestResolveAndRewriteSignatures(t *testing.T) {
	m := &module.Module{
		Type: module.TypeSection{Functions: []module.FunctionType{
			{Params: []types.ValueType{types.I32, types.I32}, Results: []types.ValueType{types.I32}},
		}},
		Import: module.ImportSection{Imports: []module.Import{
			{Module: "env", Name: "handle_cb", Descriptor: module.FunctionImport{Func: 0}},
		}},
	}

	decls := []Declaration{{
		Kind:        DeclImport,
		ModuleName:  "env",
		FieldName:   "handle_cb",
		ArgSlots:    map[uint32]bool{1: true},
		ReturnIsRef: true,
	}}

	targets, err := ResolveTargets(m, decls)
	if err != nil {
		t.Fatal(err)
	}
	target, ok := targets[0]
	if !ok {
		t.Fatal("expected a target for function 0")
	}
	wantNew := module.FunctionType{
		Params:  []types.ValueType{types.I32, types.Externref},
		Results: []types.ValueType{types.Externref},
	}
	if !target.NewType.Equal(wantNew) {
		t.Errorf("got new type %v, want %v", target.NewType, wantNew)
	}
	if !target.RefArg(1) || target.RefArg(0) {
		t.Errorf("RefArg mismatch: arg0=%v arg1=%v", target.RefArg(0), target.RefArg(1))
	}

	if err := RewriteSignatures(m, targets); err != nil {
		t.Fatal(err)
	}

	fi, ok := m.Import.Imports[0].Descriptor.(module.FunctionImport)
	if !ok {
		t.Fatal("import descriptor is no longer a function import")
	}
	if !m.Type.Functions[fi.Func].Equal(wantNew) {
		t.Errorf("import now resolves to type %v, want %v", m.Type.Functions[fi.Func], wantNew)
	}
	// The original signature must still exist for any other reference to it.
	if !m.Type.Functions[0].Equal(module.FunctionType{
		Params:  []types.ValueType{types.I32, types.I32},
		Results: []types.ValueType{types.I32},
	}) {
		t.Errorf("original type 0 was mutated: %v", m.Type.Functions[0])
	}
}

func TestResolveTargetsRejectsDoubleDeclaration(t *testing.T) {
	m := &module.Module{
		Type: module.TypeSection{Functions: []module.FunctionType{{}}},
		Export: module.ExportSection{Exports: []module.Export{
			{Name: "f", Descriptor: module.ExportDescriptor{Type: module.FunctionExportType, Index: 0}},
			{Name: "g", Descriptor: module.ExportDescriptor{Type: module.FunctionExportType, Index: 0}},
		}},
		Function: module.FunctionSection{TypeIndices: []uint32{0}},
	}
	decls := []Declaration{
		{Kind: DeclExport, FieldName: "f"},
		{Kind: DeclExport, FieldName: "g"},
	}
	if _, err := ResolveTargets(m, decls); err == nil {
		t.Fatal("expected error when two declarations name the same function")
	}
}
