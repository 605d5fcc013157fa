package externref

import (
	"github.com/externref-go/rewriter/internal/wasm/instruction"
	"github.com/externref-go/rewriter/internal/wasm/module"
)

// RemoveSurrogateImports deletes the externref:: surrogate imports from
// m and renumbers every function index (Call, RefFunc, exports,
// element segments, the start function) referenced afterward. entries
// holds the already rewritten code for every local function and is
// reindexed in place alongside m; callers re-encode entries back into
// m.Code.Segments afterward. PruneDeadTypes should be called next to
// remove any type the removed imports left unreferenced.
func RemoveSurrogateImports(m *module.Module, s *Surrogates, entries []module.CodeEntry) {
	removedFuncs := map[uint32]bool{s.Insert: true, s.Get: true, s.Drop: true}
	if s.HasGuard {
		removedFuncs[s.Guard] = true
	}
	funcMap := reindexMap(m.FunctionCount(), removedFuncs)

	// Walk imports once, tracking the running function index so removed
	// surrogates are dropped and everything else survives in order.
	newImports := make([]module.Import, 0, len(m.Import.Imports))
	var funcIdx uint32
	for _, imp := range m.Import.Imports {
		isFunc := imp.Descriptor.Kind() == module.FunctionImportType
		if isFunc {
			if removedFuncs[funcIdx] {
				funcIdx++
				continue
			}
			funcIdx++
		}
		newImports = append(newImports, imp)
	}
	m.Import.Imports = newImports

	remapInstrs := func(instrs []instruction.Instruction) []instruction.Instruction {
		return remapFuncIndices(instrs, funcMap)
	}
	for i := range entries {
		entries[i].Func.Expr.Instrs = remapInstrs(entries[i].Func.Expr.Instrs)
	}

	for i := range m.Export.Exports {
		exp := &m.Export.Exports[i]
		if exp.Descriptor.Type == module.FunctionExportType {
			exp.Descriptor.Index = funcMap[exp.Descriptor.Index]
		}
	}
	for i := range m.Element.Segments {
		seg := &m.Element.Segments[i]
		for j, idx := range seg.Indices {
			seg.Indices[j] = funcMap[idx]
		}
		seg.Offset.Instrs = remapInstrs(seg.Offset.Instrs)
	}
	if m.Start.FuncIndex != nil {
		mapped := funcMap[*m.Start.FuncIndex]
		m.Start.FuncIndex = &mapped
	}
	for i := range m.Global.Globals {
		m.Global.Globals[i].Init.Instrs = remapInstrs(m.Global.Globals[i].Init.Instrs)
	}
}

// reindexMap builds old-index -> new-index for the function index
// space after deleting the indices in removed.
func reindexMap(total int, removed map[uint32]bool) map[uint32]uint32 {
	m := make(map[uint32]uint32, total)
	var next uint32
	for old := uint32(0); int(old) < total; old++ {
		if removed[old] {
			continue
		}
		m[old] = next
		next++
	}
	return m
}

func remapFuncIndices(instrs []instruction.Instruction, funcMap map[uint32]uint32) []instruction.Instruction {
	out := make([]instruction.Instruction, len(instrs))
	for i, in := range instrs {
		switch v := in.(type) {
		case instruction.Call:
			out[i] = instruction.Call{Index: funcMap[v.Index]}
		case instruction.RefFunc:
			out[i] = instruction.RefFunc{Index: funcMap[v.Index]}
		case instruction.Block:
			out[i] = instruction.Block{BlockType: v.BlockType, Instrs: remapFuncIndices(v.Instrs, funcMap)}
		case instruction.Loop:
			out[i] = instruction.Loop{BlockType: v.BlockType, Instrs: remapFuncIndices(v.Instrs, funcMap)}
		case instruction.If:
			out[i] = instruction.If{
				BlockType: v.BlockType,
				Then:      remapFuncIndices(v.Then, funcMap),
				Else:      remapFuncIndices(v.Else, funcMap),
			}
		default:
			out[i] = in
		}
	}
	return out
}

// PruneDeadTypes removes type section entries no longer referenced by
// any import, function, or call_indirect across entries, remapping
// every remaining type index. Surrogate signatures going dead once
// their imports are removed is the case this exists for, but the sweep
// is general.
func PruneDeadTypes(m *module.Module, entries []module.CodeEntry) {
	used := make(map[uint32]bool, len(m.Type.Functions))
	for _, imp := range m.Import.Imports {
		if fi, ok := imp.Descriptor.(module.FunctionImport); ok {
			used[fi.Func] = true
		}
	}
	for _, ti := range m.Function.TypeIndices {
		used[ti] = true
	}

	var walkCallIndirect func([]instruction.Instruction)
	walkCallIndirect = func(instrs []instruction.Instruction) {
		for _, in := range instrs {
			switch v := in.(type) {
			case instruction.CallIndirect:
				used[v.TypeIndex] = true
			case instruction.Block:
				walkCallIndirect(v.Instrs)
			case instruction.Loop:
				walkCallIndirect(v.Instrs)
			case instruction.If:
				walkCallIndirect(v.Then)
				walkCallIndirect(v.Else)
			}
		}
	}
	for _, entry := range entries {
		walkCallIndirect(entry.Func.Expr.Instrs)
	}

	allUsed := true
	for i := range m.Type.Functions {
		if !used[uint32(i)] {
			allUsed = false
			break
		}
	}
	if allUsed {
		return
	}

	typeMap := make(map[uint32]uint32, len(m.Type.Functions))
	newTypes := make([]module.FunctionType, 0, len(m.Type.Functions))
	for old := range m.Type.Functions {
		oi := uint32(old)
		if !used[oi] {
			continue
		}
		typeMap[oi] = uint32(len(newTypes))
		newTypes = append(newTypes, m.Type.Functions[old])
	}
	m.Type.Functions = newTypes

	for i := range m.Import.Imports {
		if fi, ok := m.Import.Imports[i].Descriptor.(module.FunctionImport); ok {
			m.Import.Imports[i].Descriptor = module.FunctionImport{Func: typeMap[fi.Func]}
		}
	}
	for i := range m.Function.TypeIndices {
		m.Function.TypeIndices[i] = typeMap[m.Function.TypeIndices[i]]
	}

	var remap func([]instruction.Instruction) []instruction.Instruction
	remap = func(instrs []instruction.Instruction) []instruction.Instruction {
		out := make([]instruction.Instruction, len(instrs))
		for i, in := range instrs {
			switch v := in.(type) {
			case instruction.CallIndirect:
				out[i] = instruction.CallIndirect{TypeIndex: typeMap[v.TypeIndex], TableIndex: v.TableIndex}
			case instruction.Block:
				out[i] = instruction.Block{BlockType: v.BlockType, Instrs: remap(v.Instrs)}
			case instruction.Loop:
				out[i] = instruction.Loop{BlockType: v.BlockType, Instrs: remap(v.Instrs)}
			case instruction.If:
				out[i] = instruction.If{BlockType: v.BlockType, Then: remap(v.Then), Else: remap(v.Else)}
			default:
				out[i] = in
			}
		}
		return out
	}
	for i := range entries {
		entries[i].Func.Expr.Instrs = remap(entries[i].Func.Expr.Instrs)
	}
}
