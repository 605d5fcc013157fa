package externref

import (
	"github.com/externref-go/rewriter/internal/wasm/module"
	"github.com/externref-go/rewriter/internal/wasm/types"
)

// SurrogateModule is the well-known import module name the front-end
// macro uses for the four surrogate functions.
const SurrogateModule = "externref"

// Surrogates records the function indices of the four surrogate
// imports, resolved by well-known module/field name. Guard is optional
// on modules built against front-ends older than 0.2; HasGuard reports
// whether it was found.
type Surrogates struct {
	Insert   uint32
	Get      uint32
	Drop     uint32
	Guard    uint32
	HasGuard bool
}

var (
	insertSig = module.FunctionType{Params: []types.ValueType{types.I32}, Results: []types.ValueType{types.I32}}
	getSig    = module.FunctionType{Params: []types.ValueType{types.I32}, Results: []types.ValueType{types.I32}}
	dropSig   = module.FunctionType{Params: []types.ValueType{types.I32}, Results: nil}
	guardSig  = module.FunctionType{Params: nil, Results: nil}
)

// ResolveSurrogates scans m's imports for the externref:: surrogate
// functions and validates their signatures.
func ResolveSurrogates(m *module.Module) (*Surrogates, error) {
	insert, err := requireSurrogate(m, "insert", insertSig)
	if err != nil {
		return nil, err
	}
	get, err := requireSurrogate(m, "get", getSig)
	if err != nil {
		return nil, err
	}
	drop, err := requireSurrogate(m, "drop", dropSig)
	if err != nil {
		return nil, err
	}

	s := &Surrogates{Insert: insert, Get: get, Drop: drop}
	if _, _, ok := m.FindImport(SurrogateModule, "guard"); ok {
		guard, err := requireSurrogate(m, "guard", guardSig)
		if err != nil {
			return nil, err
		}
		s.Guard = guard
		s.HasGuard = true
	}
	return s, nil
}

func requireSurrogate(m *module.Module, field string, want module.FunctionType) (uint32, error) {
	imp, funcIdx, ok := m.FindImport(SurrogateModule, field)
	if !ok {
		return 0, errf(MissingSurrogate, "no import %s.%s", SurrogateModule, field)
	}
	fi, ok := imp.Descriptor.(module.FunctionImport)
	if !ok {
		return 0, errf(WrongSurrogateSignature, "%s.%s is not a function import", SurrogateModule, field)
	}
	if int(fi.Func) >= len(m.Type.Functions) {
		return 0, errf(WrongSurrogateSignature, "%s.%s has no type", SurrogateModule, field)
	}
	got := m.Type.Functions[fi.Func]
	if !got.Equal(want) {
		return 0, errf(WrongSurrogateSignature, "%s.%s has signature %v, want %v", SurrogateModule, field, got, want)
	}
	return funcIdx, nil
}

// IsSurrogate reports whether funcIdx is one of the resolved surrogate
// functions.
func (s *Surrogates) IsSurrogate(funcIdx uint32) bool {
	return funcIdx == s.Insert || funcIdx == s.Get || funcIdx == s.Drop || (s.HasGuard && funcIdx == s.Guard)
}
