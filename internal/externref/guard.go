package externref

import (
	"github.com/externref-go/rewriter/internal/wasm/instruction"
	"github.com/externref-go/rewriter/internal/wasm/module"
)

const guardHint = "recompile with debug info (e.g. -g1) to prevent the optimizer from inlining the externref surrogates, or run this processor before wasm-opt"

// CheckGuards verifies that every affected function's body still opens
// with a direct call to the guard surrogate, the structural marker that
// the front-end's surrogate-call pattern has not been destroyed by an
// optimizer inlining the wrappers. Modules built against front-ends
// older than 0.2 carry no guard import at all; guard checking is then
// skipped entirely, per spec.
func CheckGuards(m *module.Module, s *Surrogates, targets map[uint32]*Target, entries []module.CodeEntry) error {
	if !s.HasGuard {
		return nil
	}
	importCount := uint32(m.ImportedFunctionCount())
	for funcIdx := range targets {
		if funcIdx < importCount {
			// An affected import has no body to scan; only affected
			// local functions (exports, or callees reached from them)
			// carry a guard.
			continue
		}
		localIdx := funcIdx - importCount
		if int(localIdx) >= len(entries) {
			return errf(MalformedModule, "function %d has no code entry", funcIdx).withFunc(funcIdx)
		}
		if !opensWithGuard(entries[localIdx].Func.Expr.Instrs, s.Guard) {
			return &Error{
				Kind:      GuardMissing,
				Message:   "affected function does not open with a guard call; the optimizer has likely inlined the externref surrogates",
				FuncIndex: &funcIdx,
				Hint:      guardHint,
			}
		}
	}
	return nil
}

func opensWithGuard(instrs []instruction.Instruction, guardFunc uint32) bool {
	if len(instrs) == 0 {
		return false
	}
	call, ok := instrs[0].(instruction.Call)
	return ok && call.Index == guardFunc
}
