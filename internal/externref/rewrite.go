package externref

import (
	"sort"

	"github.com/externref-go/rewriter/internal/wasm/instruction"
	"github.com/externref-go/rewriter/internal/wasm/module"
	"github.com/externref-go/rewriter/internal/wasm/types"
)

// tag is the abstract type of a simulated operand-stack entry, tracked
// just precisely enough to recognize the call-site patterns spec 4.5
// names and to catch the ones it explicitly calls out as failures.
type tag int

const (
	tagOpaque tag = iota // any numeric value, or a slot integer not yet proven reference-only
	tagRef                // a value known to already be a host reference
)

// bodyRewriter carries the state needed to rewrite one function body:
// which locals have been retyped to reference, the affected-call
// targets, the surrogate function indices, and the reference table.
type bodyRewriter struct {
	mod        *module.Module
	funcIdx    uint32
	surrogates *Surrogates
	targets    map[uint32]*Target
	table      uint32
	refLocals  []bool
	selfTarget *Target // non-nil when funcIdx itself is an affected local function

	nextLocal uint32 // next fresh local index to hand out for scratch bridges
	newLocals []types.ValueType

	offset int // running instruction count, for error reporting
}

// RewriteFunctionBody rewrites fn's locals and instructions in place so
// that surrogate calls are eliminated and slot integers flowing across
// now-reference-typed boundaries are bridged through the reference
// table. paramTypes are the function's parameter types; together with
// fn.Locals they make up the original local index space (params counted
// first, per the WASM local numbering).
func RewriteFunctionBody(mod *module.Module, fn module.Function, funcIdx uint32, paramTypes []types.ValueType, surrogates *Surrogates, targets map[uint32]*Target, tableIdx uint32) (module.Function, error) {
	br := &bodyRewriter{
		mod:        mod,
		funcIdx:    funcIdx,
		surrogates: surrogates,
		targets:    targets,
		table:      tableIdx,
		selfTarget: targets[funcIdx],
	}

	total := len(paramTypes)
	for _, l := range fn.Locals {
		total += int(l.Count)
	}
	br.refLocals = make([]bool, total)
	br.nextLocal = uint32(total)

	if br.selfTarget != nil {
		for i := range paramTypes {
			if br.selfTarget.RefArg(i) {
				br.refLocals[i] = true
			}
		}
	}
	classifyLocals(fn.Expr.Instrs, surrogates, br.refLocals)

	rewritten, _, err := br.rewriteBlock(fn.Expr.Instrs)
	if err != nil {
		return module.Function{}, err
	}

	locals := make([]module.LocalDeclaration, 0, len(fn.Locals)+len(br.newLocals))
	localIdx := uint32(len(paramTypes))
	for _, decl := range fn.Locals {
		typ := decl.Type
		if allSameRefClass(br.refLocals, localIdx, decl.Count) {
			if br.refLocals[localIdx] {
				typ = types.Externref
			}
		} else {
			return module.Function{}, errf(UnsupportedPattern, "run of %d locals starting at %d mixes reference and value uses", decl.Count, localIdx).withFunc(funcIdx)
		}
		locals = append(locals, module.LocalDeclaration{Count: decl.Count, Type: typ})
		localIdx += decl.Count
	}
	for _, t := range br.newLocals {
		locals = append(locals, module.LocalDeclaration{Count: 1, Type: t})
	}

	return module.Function{Locals: locals, Expr: module.Expr{Instrs: rewritten}}, nil
}

// allSameRefClass reports whether every local in [start, start+count)
// shares the same ref/value classification, so a local-declaration run
// can be retyped as a whole (the binary format only records a type per
// run, not per local).
func allSameRefClass(refLocals []bool, start, count uint32) bool {
	if count == 0 {
		return true
	}
	want := refLocals[start]
	for i := start + 1; i < start+count; i++ {
		if refLocals[i] != want {
			return false
		}
	}
	return true
}

// classifyLocals performs the per-local union-find described in spec
// 4.5(d), approximated as a single linear scan per basic block: a local
// is retyped to reference iff every recognized use is a reference site
// (a local.get feeding insert, or a local.set/tee of get's result) and
// no use disqualifies it (drop, arithmetic, memory, or any other
// plain-value consumption). A store of a reference-returning call's
// result is not a reference site and disqualifies the local.
func classifyLocals(instrs []instruction.Instruction, s *Surrogates, refLocals []bool) {
	nonRef := make([]bool, len(refLocals))
	var scan func(instrs []instruction.Instruction)
	scan = func(instrs []instruction.Instruction) {
		for i, in := range instrs {
			switch v := in.(type) {
			case instruction.GetLocal:
				if int(v.Index) >= len(refLocals) {
					continue
				}
				switch next := peek(instrs, i+1).(type) {
				case instruction.Call:
					switch next.Index {
					case s.Insert:
						continue // candidate ref site; doesn't disqualify
					case s.Drop:
						nonRef[v.Index] = true
					default:
						nonRef[v.Index] = true
					}
				default:
					nonRef[v.Index] = true
				}
			case instruction.SetLocal:
				classifyStore(instrs, i, v.Index, s, nonRef, refLocals)
			case instruction.TeeLocal:
				classifyStore(instrs, i, v.Index, s, nonRef, refLocals)
			case instruction.Block:
				scan(v.Instrs)
			case instruction.Loop:
				scan(v.Instrs)
			case instruction.If:
				scan(v.Then)
				scan(v.Else)
			}
		}
	}
	scan(instrs)
	for i := range refLocals {
		if refLocals[i] {
			continue
		}
	}
	for i, bad := range nonRef {
		if bad {
			refLocals[i] = false
		}
	}
	// Promote locals whose every textual site was a recognized reference
	// site. A local already forced to reference (declared-ref parameter)
	// stays reference regardless of what the scan observed.
	hasRefSite := make([]bool, len(refLocals))
	markRefSites(instrs, s, hasRefSite)
	for i := range refLocals {
		if hasRefSite[i] && !nonRef[i] {
			refLocals[i] = true
		}
	}
}

func classifyStore(instrs []instruction.Instruction, i int, local uint32, s *Surrogates, nonRef, refLocals []bool) {
	if int(local) >= len(refLocals) {
		return
	}
	if prev, ok := peek(instrs, i-1).(instruction.Call); ok && prev.Index == s.Get {
		return
	}
	nonRef[local] = true
}

func markRefSites(instrs []instruction.Instruction, s *Surrogates, hasRefSite []bool) {
	var scan func(instrs []instruction.Instruction)
	scan = func(instrs []instruction.Instruction) {
		for i, in := range instrs {
			switch v := in.(type) {
			case instruction.GetLocal:
				if int(v.Index) >= len(hasRefSite) {
					continue
				}
				if next, ok := peek(instrs, i+1).(instruction.Call); ok && next.Index == s.Insert {
					hasRefSite[v.Index] = true
				}
			case instruction.SetLocal:
				if int(v.Index) < len(hasRefSite) {
					if prev, ok := peek(instrs, i-1).(instruction.Call); ok && prev.Index == s.Get {
						hasRefSite[v.Index] = true
					}
				}
			case instruction.TeeLocal:
				if int(v.Index) < len(hasRefSite) {
					if prev, ok := peek(instrs, i-1).(instruction.Call); ok && prev.Index == s.Get {
						hasRefSite[v.Index] = true
					}
				}
			case instruction.Block:
				scan(v.Instrs)
			case instruction.Loop:
				scan(v.Instrs)
			case instruction.If:
				scan(v.Then)
				scan(v.Else)
			}
		}
	}
	scan(instrs)
}

func peek(instrs []instruction.Instruction, i int) instruction.Instruction {
	if i < 0 || i >= len(instrs) {
		return nil
	}
	return instrs[i]
}

// rewriteBlock rewrites one straight-line instruction list (the body of
// a function, block, loop, or if-branch), returning the rewritten list
// and the tag left on top of the simulated stack when the list falls
// through (nil if the simulated stack is empty, or if the list reaches
// unreachable/return, in which case any instructions after it are
// dropped from the output).
func (br *bodyRewriter) rewriteBlock(instrs []instruction.Instruction) ([]instruction.Instruction, *tag, error) {
	var out []instruction.Instruction
	var stack []tag
	top := func() tag {
		if len(stack) == 0 {
			return tagOpaque
		}
		return stack[len(stack)-1]
	}
	pop := func(n int) {
		if n > len(stack) {
			stack = stack[:0]
			return
		}
		stack = stack[:len(stack)-n]
	}
	push := func(t tag) { stack = append(stack, t) }

	for i := 0; i < len(instrs); i++ {
		br.offset++
		in := instrs[i]

		switch v := in.(type) {
		case instruction.Call:
			if br.surrogates.IsSurrogate(v.Index) {
				consumed, err := br.rewriteSurrogateCall(instrs, i, &out, &stack)
				if err != nil {
					return nil, nil, err
				}
				i += consumed
				continue
			}
			if t, ok := br.targets[v.Index]; ok {
				if err := br.bridgeCallArgs(t, &out, stack); err != nil {
					return nil, nil, err
				}
				pop(len(t.OldType.Params))
				out = append(out, v)
				if len(t.NewType.Results) > 0 && t.NewType.Results[0] == types.Externref {
					push(tagRef)
				} else if len(t.OldType.Results) > 0 {
					push(tagOpaque)
				}
				continue
			}
			out = append(out, v)
			if sig, ok := br.mod.FunctionType(v.Index); ok {
				pop(len(sig.Params))
				if len(sig.Results) > 0 {
					push(tagOpaque)
				}
			} else {
				push(tagOpaque)
			}

		case instruction.CallIndirect:
			out = append(out, v)
			if int(v.TypeIndex) < len(br.mod.Type.Functions) {
				sig := br.mod.Type.Functions[v.TypeIndex]
				pop(len(sig.Params) + 1) // +1 for the table index operand
				if len(sig.Results) > 0 {
					push(tagOpaque)
				}
			} else {
				pop(1)
				push(tagOpaque)
			}

		case instruction.GetLocal:
			out = append(out, v)
			if int(v.Index) < len(br.refLocals) && br.refLocals[v.Index] {
				push(tagRef)
			} else {
				push(tagOpaque)
			}

		case instruction.SetLocal:
			if int(v.Index) < len(br.refLocals) && br.refLocals[v.Index] && top() != tagRef {
				return nil, nil, errf(UnsupportedPattern, "local %d retyped to reference but stored a non-reference value", v.Index).withFunc(br.funcIdx).withOffset(br.offset)
			}
			pop(1)
			out = append(out, v)

		case instruction.TeeLocal:
			if int(v.Index) < len(br.refLocals) && br.refLocals[v.Index] && top() != tagRef {
				return nil, nil, errf(UnsupportedPattern, "local %d retyped to reference but stored a non-reference value", v.Index).withFunc(br.funcIdx).withOffset(br.offset)
			}
			out = append(out, v)

		case instruction.Block:
			inner, innerTag, err := br.rewriteBlock(v.Instrs)
			if err != nil {
				return nil, nil, err
			}
			bt := v.BlockType
			if innerTag != nil && *innerTag == tagRef && bt != nil {
				ref := types.Externref
				bt = &ref
			}
			out = append(out, instruction.Block{BlockType: bt, Instrs: inner})
			if bt != nil {
				push(tagOpaque)
				if *bt == types.Externref {
					stack[len(stack)-1] = tagRef
				}
			}

		case instruction.Loop:
			inner, _, err := br.rewriteBlock(v.Instrs)
			if err != nil {
				return nil, nil, err
			}
			out = append(out, instruction.Loop{BlockType: v.BlockType, Instrs: inner})
			if v.BlockType != nil {
				push(tagOpaque)
			}

		case instruction.If:
			pop(1) // condition
			thenInstrs, thenTag, err := br.rewriteBlock(v.Then)
			if err != nil {
				return nil, nil, err
			}
			elseInstrs, _, err := br.rewriteBlock(v.Else)
			if err != nil {
				return nil, nil, err
			}
			bt := v.BlockType
			if thenTag != nil && *thenTag == tagRef && bt != nil {
				ref := types.Externref
				bt = &ref
			}
			out = append(out, instruction.If{BlockType: bt, Then: thenInstrs, Else: elseInstrs})
			if bt != nil {
				push(tagOpaque)
				if *bt == types.Externref {
					stack[len(stack)-1] = tagRef
				}
			}

		case instruction.Br:
			out = append(out, v)
		case instruction.BrIf:
			pop(1)
			out = append(out, v)
		case instruction.BrTable:
			pop(1)
			out = append(out, v)
		case instruction.Return:
			out = append(out, v)
			return out, nil, nil
		case instruction.Unreachable:
			out = append(out, v)
			return out, nil, nil

		case instruction.I32Load:
			if top() == tagRef {
				return nil, nil, errf(UnsupportedPattern, "reference value used as a memory address").withFunc(br.funcIdx).withOffset(br.offset)
			}
			pop(1)
			out = append(out, v)
			push(tagOpaque)
		case instruction.I32Store:
			if top() == tagRef {
				return nil, nil, errf(UnsupportedPattern, "reference value spilled to linear memory").withFunc(br.funcIdx).withOffset(br.offset)
			}
			pop(2)
			out = append(out, v)
		case instruction.MemorySize:
			out = append(out, v)
			push(tagOpaque)
		case instruction.MemoryGrow:
			pop(1)
			out = append(out, v)
			push(tagOpaque)

		case instruction.I32Const, instruction.I64Const, instruction.F32Const, instruction.F64Const:
			out = append(out, v)
			push(tagOpaque)

		case instruction.RefNull:
			out = append(out, v)
			push(tagRef)
		case instruction.RefFunc:
			out = append(out, v)
			push(tagRef)
		case instruction.RefIsNull:
			pop(1)
			out = append(out, v)
			push(tagOpaque)

		case instruction.TableGet:
			pop(1)
			out = append(out, v)
			push(tagRef)
		case instruction.TableSet:
			pop(2)
			out = append(out, v)
		case instruction.TableGrow:
			pop(2)
			out = append(out, v)
			push(tagOpaque)
		case instruction.TableSize:
			out = append(out, v)
			push(tagOpaque)
		case instruction.TableFill:
			pop(3)
			out = append(out, v)

		case instruction.Drop:
			pop(1)
			out = append(out, v)
		case instruction.Select:
			pop(3)
			out = append(out, v)
			push(tagOpaque)

		case instruction.I32Eqz, instruction.I64Eqz:
			pop(1)
			out = append(out, v)
			push(tagOpaque)

		case instruction.I32Eq, instruction.I32Ne, instruction.I32LtS, instruction.I32GtS,
			instruction.I64Eq, instruction.I64Ne,
			instruction.I32Add, instruction.I32Sub, instruction.I32Mul,
			instruction.I64Add, instruction.I64Sub, instruction.I64Mul:
			if top() == tagRef {
				return nil, nil, errf(UnsupportedPattern, "arithmetic or comparison applied to a reference value").withFunc(br.funcIdx).withOffset(br.offset)
			}
			pop(2)
			out = append(out, v)
			push(tagOpaque)

		case instruction.Nop:
			out = append(out, v)

		default:
			out = append(out, v)
		}
	}

	if len(stack) == 0 {
		return out, nil, nil
	}
	t := top()
	return out, &t, nil
}

// rewriteSurrogateCall handles one surrogate call at instrs[i], writing
// its replacement (possibly none, possibly a multi-instruction
// expansion) to out and updating stack. It returns how many additional
// instructions beyond instrs[i] it also consumed (0 or 1, for the
// insert+get cancellation).
func (br *bodyRewriter) rewriteSurrogateCall(instrs []instruction.Instruction, i int, out *[]instruction.Instruction, stack *[]tag) (int, error) {
	v := instrs[i].(instruction.Call)
	pop := func(n int) {
		s := *stack
		if n > len(s) {
			*stack = s[:0]
			return
		}
		*stack = s[:len(s)-n]
	}
	push := func(t tag) { *stack = append(*stack, t) }

	switch v.Index {
	case br.surrogates.Guard:
		// Structural no-op once the guard check has run; delete it.
		return 0, nil

	case br.surrogates.Insert:
		if next, ok := peek(instrs, i+1).(instruction.Call); ok && next.Index == br.surrogates.Get {
			// insert immediately undone by get: pure round trip, cancels.
			return 1, nil
		}
		s := *stack
		if len(s) == 0 || s[len(s)-1] != tagRef {
			return 0, errf(UnsupportedPattern, "call to insert's argument is not a recognized reference production").withFunc(br.funcIdx).withOffset(br.offset)
		}
		// The value already on the stack is a proven reference (a
		// retyped local, ref.null, or another reference-producing
		// call); insert's only job was converting it to a slot, which
		// nothing downstream needs once its boundary — a
		// reference-typed call argument, a reference-typed local, or
		// the function's own reference return — is reached directly,
		// however many plain instructions separate insert from it.
		return 0, nil

	case br.surrogates.Get:
		if prev, ok := peek(instrs, i-1).(instruction.GetLocal); ok {
			if int(prev.Index) < len(br.refLocals) && br.refLocals[prev.Index] {
				return 0, nil
			}
		}
		pop(1)
		*out = append(*out, instruction.TableGet{Table: br.table})
		push(tagRef)
		return 0, nil

	case br.surrogates.Drop:
		pop(1)
		*out = append(*out, instruction.RefNull{Type: types.Externref}, instruction.TableSet{Table: br.table})
		return 0, nil
	}
	return 0, nil
}

// bridgeCallArgs ensures every reference-typed parameter of an affected
// call already has a reference, not a bare slot, sitting at its stack
// position. The abstract stack tag is the ground truth for whether a
// position already carries a reference — not the shape of whatever
// instruction produced it — since elided surrogate calls and retyped
// locals both leave a reference on the stack without necessarily being
// a local.get themselves. The only bridgeable shape spec 4.5(c) names
// is a plain local.get of a local that still holds a slot integer
// (because the local also flows to a non-reference use); we splice a
// scratch local and a table.get in right after that local.get in the
// already-emitted output. Slots are bridged from the top of the call's
// argument list down, against a base length captured once, so splicing
// one argument never invalidates the position already computed for
// another.
func (br *bodyRewriter) bridgeCallArgs(t *Target, out *[]instruction.Instruction, stack []tag) error {
	arity := len(t.OldType.Params)
	slots := make([]int, 0, len(t.Decl.ArgSlots))
	for slot := range t.Decl.ArgSlots {
		slots = append(slots, int(slot))
	}
	sort.Sort(sort.Reverse(sort.IntSlice(slots)))

	base := len(*out)
	for _, slot := range slots {
		depthFromTop := arity - slot // 1-based distance from the call
		pos := base - depthFromTop
		if pos < 0 || pos >= len(*out) || depthFromTop <= 0 || depthFromTop > len(stack) {
			return errf(UnsupportedPattern, "cannot locate argument %d pushed for call to function %d", slot, t.Func).withFunc(br.funcIdx).withOffset(br.offset)
		}
		if stack[len(stack)-depthFromTop] == tagRef {
			continue // already a reference on the stack; nothing to bridge
		}
		get, ok := (*out)[pos].(instruction.GetLocal)
		if !ok {
			return errf(UnsupportedPattern, "argument %d for call to function %d is not a bridgeable local.get", slot, t.Func).withFunc(br.funcIdx).withOffset(br.offset)
		}
		scratch := br.genLocal(types.Externref)
		bridge := []instruction.Instruction{get, instruction.TableGet{Table: br.table}, instruction.TeeLocal{Index: scratch}}
		rest := append([]instruction.Instruction{}, (*out)[pos+1:]...)
		*out = append((*out)[:pos], bridge...)
		*out = append(*out, rest...)
	}
	return nil
}

func (br *bodyRewriter) genLocal(t types.ValueType) uint32 {
	idx := br.nextLocal
	br.nextLocal++
	br.newLocals = append(br.newLocals, t)
	if idx >= uint32(len(br.refLocals)) {
		grown := make([]bool, idx+1)
		copy(grown, br.refLocals)
		br.refLocals = grown
	}
	br.refLocals[idx] = t == types.Externref
	return idx
}
