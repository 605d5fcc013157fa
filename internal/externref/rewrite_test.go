package externref

import (
	"reflect"
	"testing"

	"github.com/externref-go/rewriter/internal/wasm/instruction"
	"github.com/externref-go/rewriter/internal/wasm/module"
	"github.com/externref-go/rewriter/internal/wasm/types"
)

const (
	testInsert = 10
	testGet    = 11
	testDrop   = 12
	testGuard  = 13
)

func testSurrogates() *Surrogates {
	return &Surrogates{Insert: testInsert, Get: testGet, Drop: testDrop, Guard: testGuard, HasGuard: true}
}

func testModule() *module.Module {
	return &module.Module{
		Type: module.TypeSection{Functions: []module.FunctionType{
			{Results: []types.ValueType{types.I32}},
		}},
	}
}

func TestRewriteElidesInsertGetRoundTrip(t *testing.T) {
	fn := module.Function{Expr: module.Expr{Instrs: []instruction.Instruction{
		instruction.I32Const{Value: 7},
		instruction.Call{Index: testInsert},
		instruction.Call{Index: testGet},
		instruction.Drop{},
		instruction.Return{},
	}}}

	got, err := RewriteFunctionBody(testModule(), fn, 0, nil, testSurrogates(), nil, 5)
	if err != nil {
		t.Fatal(err)
	}

	want := []instruction.Instruction{
		instruction.I32Const{Value: 7},
		instruction.Drop{},
		instruction.Return{},
	}
	if !reflect.DeepEqual(got.Expr.Instrs, want) {
		t.Errorf("got %#v, want %#v", got.Expr.Instrs, want)
	}
}

func TestRewriteGuardCallIsDeleted(t *testing.T) {
	fn := module.Function{Expr: module.Expr{Instrs: []instruction.Instruction{
		instruction.Call{Index: testGuard},
		instruction.Return{},
	}}}

	got, err := RewriteFunctionBody(testModule(), fn, 0, nil, testSurrogates(), nil, 5)
	if err != nil {
		t.Fatal(err)
	}

	want := []instruction.Instruction{instruction.Return{}}
	if !reflect.DeepEqual(got.Expr.Instrs, want) {
		t.Errorf("got %#v, want %#v", got.Expr.Instrs, want)
	}
}

func TestRewriteDropExpandsToTableSet(t *testing.T) {
	fn := module.Function{
		Locals: nil,
		Expr: module.Expr{Instrs: []instruction.Instruction{
			instruction.GetLocal{Index: 0},
			instruction.Call{Index: testDrop},
			instruction.Return{},
		}},
	}

	got, err := RewriteFunctionBody(testModule(), fn, 0, []types.ValueType{types.I32}, testSurrogates(), nil, 5)
	if err != nil {
		t.Fatal(err)
	}

	want := []instruction.Instruction{
		instruction.GetLocal{Index: 0},
		instruction.RefNull{Type: types.Externref},
		instruction.TableSet{Table: 5},
		instruction.Return{},
	}
	if !reflect.DeepEqual(got.Expr.Instrs, want) {
		t.Errorf("got %#v, want %#v", got.Expr.Instrs, want)
	}
}

func TestRewriteGetExpandsToTableGet(t *testing.T) {
	fn := module.Function{
		Expr: module.Expr{Instrs: []instruction.Instruction{
			instruction.GetLocal{Index: 0},
			instruction.Call{Index: testGet},
			instruction.Drop{},
			instruction.Return{},
		}},
	}

	got, err := RewriteFunctionBody(testModule(), fn, 0, []types.ValueType{types.I32}, testSurrogates(), nil, 5)
	if err != nil {
		t.Fatal(err)
	}

	want := []instruction.Instruction{
		instruction.GetLocal{Index: 0},
		instruction.TableGet{Table: 5},
		instruction.Drop{},
		instruction.Return{},
	}
	if !reflect.DeepEqual(got.Expr.Instrs, want) {
		t.Errorf("got %#v, want %#v", got.Expr.Instrs, want)
	}
}

// testAllocTarget describes an affected import taking a reference in
// its first argument slot and returning a reference, mirroring spec
// §8 scenario 1's "alloc" callee.
func testAllocTarget(funcIdx uint32) *Target {
	return &Target{
		Decl:    Declaration{Kind: DeclImport, ModuleName: "env", FieldName: "alloc", ArgSlots: map[uint32]bool{0: true}, ReturnIsRef: true},
		Func:    funcIdx,
		OldType: module.FunctionType{Params: []types.ValueType{types.I32, types.I32}, Results: []types.ValueType{types.I32}},
		NewType: module.FunctionType{Params: []types.ValueType{types.Externref, types.I32}, Results: []types.ValueType{types.Externref}},
	}
}

// TestRewriteElidesInsertFeedingAffectedCallArgument is spec §8 scenario
// 1: an exported function declared to take a reference in its own
// parameter 0 passes that parameter straight into insert, followed by
// an unrelated argument push before the affected call that consumes
// it. Nothing immediately after insert matches the narrow get/SetLocal
// patterns, so this exercises the call-site boundary directly: insert
// must still elide (the reference flows straight through to alloc's
// now-reference-typed argument) rather than materializing a table.grow
// that bridgeCallArgs would then have no way to recognize as a
// reference.
func TestRewriteElidesInsertFeedingAffectedCallArgument(t *testing.T) {
	const allocFunc = 99
	self := &Target{
		Decl:    Declaration{Kind: DeclExport, FieldName: "test", ArgSlots: map[uint32]bool{0: true}},
		Func:    0,
		OldType: module.FunctionType{Params: []types.ValueType{types.I32}},
		NewType: module.FunctionType{Params: []types.ValueType{types.Externref}},
	}
	targets := map[uint32]*Target{0: self, allocFunc: testAllocTarget(allocFunc)}

	fn := module.Function{Expr: module.Expr{Instrs: []instruction.Instruction{
		instruction.GetLocal{Index: 0},
		instruction.Call{Index: testInsert},
		instruction.I32Const{Value: 42},
		instruction.Call{Index: allocFunc},
		instruction.Drop{},
		instruction.Return{},
	}}}

	got, err := RewriteFunctionBody(testModule(), fn, 0, []types.ValueType{types.I32}, testSurrogates(), targets, 5)
	if err != nil {
		t.Fatal(err)
	}

	want := []instruction.Instruction{
		instruction.GetLocal{Index: 0},
		instruction.I32Const{Value: 42},
		instruction.Call{Index: allocFunc},
		instruction.Drop{},
		instruction.Return{},
	}
	if !reflect.DeepEqual(got.Expr.Instrs, want) {
		t.Errorf("got %#v, want %#v", got.Expr.Instrs, want)
	}
}

// TestRewriteBridgesSlotLocalAtAffectedCallArgument covers spec §8
// scenario 1's companion case from §4.5(c): a local used plainly
// elsewhere (so it keeps its i32 type) flows bare, with no insert/get
// around it at all, directly into an affected call's now-reference
// argument slot. bridgeCallArgs must recognize the slot still holds a
// plain value (via the abstract stack tag, not the shape of whatever
// produced it) and splice in a scratch reference local populated
// through table.get.
func TestRewriteBridgesSlotLocalAtAffectedCallArgument(t *testing.T) {
	const allocFunc = 99
	targets := map[uint32]*Target{allocFunc: testAllocTarget(allocFunc)}

	fn := module.Function{
		Locals: []module.LocalDeclaration{{Count: 1, Type: types.I32}},
		Expr: module.Expr{Instrs: []instruction.Instruction{
			instruction.I32Const{Value: 7},
			instruction.SetLocal{Index: 0},
			instruction.GetLocal{Index: 0},
			instruction.I32Const{Value: 1},
			instruction.I32Add{},
			instruction.Drop{},
			instruction.GetLocal{Index: 0},
			instruction.I32Const{Value: 42},
			instruction.Call{Index: allocFunc},
			instruction.Drop{},
			instruction.Return{},
		}},
	}

	got, err := RewriteFunctionBody(testModule(), fn, 0, nil, testSurrogates(), targets, 5)
	if err != nil {
		t.Fatal(err)
	}

	want := []instruction.Instruction{
		instruction.I32Const{Value: 7},
		instruction.SetLocal{Index: 0},
		instruction.GetLocal{Index: 0},
		instruction.I32Const{Value: 1},
		instruction.I32Add{},
		instruction.Drop{},
		instruction.GetLocal{Index: 0},
		instruction.TableGet{Table: 5},
		instruction.TeeLocal{Index: 1},
		instruction.I32Const{Value: 42},
		instruction.Call{Index: allocFunc},
		instruction.Drop{},
		instruction.Return{},
	}
	if !reflect.DeepEqual(got.Expr.Instrs, want) {
		t.Errorf("got %#v, want %#v", got.Expr.Instrs, want)
	}
	wantLocals := []module.LocalDeclaration{{Count: 1, Type: types.I32}, {Count: 1, Type: types.Externref}}
	if !reflect.DeepEqual(got.Locals, wantLocals) {
		t.Errorf("got locals %#v, want %#v", got.Locals, wantLocals)
	}
}

func TestRewriteRejectsInsertOfNonReferenceValue(t *testing.T) {
	fn := module.Function{Expr: module.Expr{Instrs: []instruction.Instruction{
		instruction.I32Const{Value: 7},
		instruction.Call{Index: testInsert},
		instruction.Drop{},
		instruction.Return{},
	}}}

	_, err := RewriteFunctionBody(testModule(), fn, 0, nil, testSurrogates(), nil, 5)
	if err == nil {
		t.Fatal("expected an UnsupportedPattern error")
	}
	perr, ok := err.(*Error)
	if !ok || perr.Kind != UnsupportedPattern {
		t.Errorf("got %v, want UnsupportedPattern", err)
	}
}

func TestRewriteRejectsReferenceSpillToMemory(t *testing.T) {
	fn := module.Function{
		Expr: module.Expr{Instrs: []instruction.Instruction{
			instruction.I32Const{Value: 0},
			instruction.GetLocal{Index: 0},
			instruction.Call{Index: testGet},
			instruction.I32Store{},
		}},
	}

	_, err := RewriteFunctionBody(testModule(), fn, 0, []types.ValueType{types.I32}, testSurrogates(), nil, 5)
	if err == nil {
		t.Fatal("expected an UnsupportedPattern error")
	}
	perr, ok := err.(*Error)
	if !ok || perr.Kind != UnsupportedPattern {
		t.Errorf("got %v, want UnsupportedPattern", err)
	}
}
