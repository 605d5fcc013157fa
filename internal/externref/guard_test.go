package externref

import (
	"testing"

	"github.com/externref-go/rewriter/internal/wasm/instruction"
	"github.com/externref-go/rewriter/internal/wasm/module"
)

func guardModuleFixture() (*module.Module, *Surrogates) {
	m := &module.Module{
		Function: module.FunctionSection{TypeIndices: []uint32{0, 0}},
	}
	s := &Surrogates{Guard: 99, HasGuard: true}
	return m, s
}

func TestCheckGuardsPassesWhenFirstInstructionIsGuardCall(t *testing.T) {
	m, s := guardModuleFixture()
	targets := map[uint32]*Target{0: {Func: 0}}
	entries := []module.CodeEntry{
		{Func: module.Function{Expr: module.Expr{Instrs: []instruction.Instruction{
			instruction.Call{Index: s.Guard},
			instruction.Return{},
		}}}},
		{Func: module.Function{Expr: module.Expr{Instrs: []instruction.Instruction{instruction.Return{}}}}},
	}

	if err := CheckGuards(m, s, targets, entries); err != nil {
		t.Fatal(err)
	}
}

func TestCheckGuardsFailsWhenGuardMissing(t *testing.T) {
	m, s := guardModuleFixture()
	targets := map[uint32]*Target{0: {Func: 0}}
	entries := []module.CodeEntry{
		{Func: module.Function{Expr: module.Expr{Instrs: []instruction.Instruction{instruction.Return{}}}}},
		{Func: module.Function{Expr: module.Expr{Instrs: []instruction.Instruction{instruction.Return{}}}}},
	}

	err := CheckGuards(m, s, targets, entries)
	if err == nil {
		t.Fatal("expected GuardMissing error")
	}
	perr, ok := err.(*Error)
	if !ok || perr.Kind != GuardMissing {
		t.Errorf("got %v, want a GuardMissing error", err)
	}
	if perr.Hint == "" {
		t.Error("expected a remediation hint")
	}
}

func TestCheckGuardsSkippedWithoutGuardImport(t *testing.T) {
	m, s := guardModuleFixture()
	s.HasGuard = false
	targets := map[uint32]*Target{0: {Func: 0}}
	entries := []module.CodeEntry{
		{Func: module.Function{Expr: module.Expr{Instrs: []instruction.Instruction{instruction.Return{}}}}},
	}

	if err := CheckGuards(m, s, targets, entries); err != nil {
		t.Fatalf("guard checking should be skipped, got %v", err)
	}
}

func TestCheckGuardsIgnoresImportTargets(t *testing.T) {
	m, s := guardModuleFixture()
	// Function 0 is an "import" from the guard checker's point of view
	// because it is below ImportedFunctionCount(); there's no code entry
	// to scan for it.
	m.Import.Imports = []module.Import{
		{Module: "env", Name: "cb", Descriptor: module.FunctionImport{Func: 0}},
	}
	targets := map[uint32]*Target{0: {Func: 0}}
	var entries []module.CodeEntry

	if err := CheckGuards(m, s, targets, entries); err != nil {
		t.Fatalf("expected no error for an import target, got %v", err)
	}
}
