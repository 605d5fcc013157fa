package externref

import (
	"github.com/externref-go/rewriter/internal/wasm/module"
	"github.com/externref-go/rewriter/internal/wasm/types"
)

// Target is a declaration resolved against the module: the function it
// names, its signature before rewriting, and the signature it gets
// rewritten to.
type Target struct {
	Decl    Declaration
	Func    uint32
	OldType module.FunctionType
	NewType module.FunctionType
}

// RefArg reports whether parameter position i of the target carries a
// reference after rewriting.
func (t *Target) RefArg(i int) bool {
	return t.Decl.ArgSlots[uint32(i)]
}

// ResolveTargets resolves every declaration to its function and
// computes the post-rewrite signature, without mutating m.
func ResolveTargets(m *module.Module, decls []Declaration) (map[uint32]*Target, error) {
	targets := make(map[uint32]*Target, len(decls))
	for _, d := range decls {
		funcIdx, sig, ok := ResolveDeclaredFunction(m, d)
		if !ok {
			return nil, errf(MalformedDeclarations, "declaration %s names a function absent from the module", declName(d))
		}
		if _, dup := targets[funcIdx]; dup {
			return nil, errf(MalformedDeclarations, "function %d named by more than one declaration", funcIdx)
		}
		targets[funcIdx] = &Target{
			Decl:    d,
			Func:    funcIdx,
			OldType: sig,
			NewType: retypeSignature(sig, d),
		}
	}
	return targets, nil
}

func retypeSignature(sig module.FunctionType, d Declaration) module.FunctionType {
	params := make([]types.ValueType, len(sig.Params))
	copy(params, sig.Params)
	for slot := range d.ArgSlots {
		if int(slot) < len(params) {
			params[slot] = types.Externref
		}
	}
	results := make([]types.ValueType, len(sig.Results))
	copy(results, sig.Results)
	if d.ReturnIsRef && len(results) > 0 {
		results[0] = types.Externref
	}
	return module.FunctionType{Params: params, Results: results}
}

// RewriteSignatures applies every target's computed signature to the
// module: it synthesizes (or reuses) the new function type and points
// the target's import or export at it.
func RewriteSignatures(m *module.Module, targets map[uint32]*Target) error {
	for funcIdx, t := range targets {
		newTypeIdx := m.EmitFunctionType(t.NewType)
		if !m.SetFunctionType(funcIdx, newTypeIdx) {
			return errf(MalformedModule, "function %d not found while rewriting its signature", funcIdx).withFunc(funcIdx)
		}
	}
	return nil
}
