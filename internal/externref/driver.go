package externref

import (
	"bytes"

	"github.com/externref-go/rewriter/internal/wasm/encoding"
	"github.com/externref-go/rewriter/internal/wasm/module"
)

// Options configures a Process call.
type Options struct {
	// TableName is the export name the reference table is allocated or
	// reused under. Empty selects DefaultTableName.
	TableName string
}

// Result carries the bookkeeping produced by a successful Process call,
// for the caller's --inspect report or logging.
type Result struct {
	Changed      bool
	Declarations []Declaration
	Targets      map[uint32]*Target
	Surrogates   *Surrogates
	TableIndex   uint32
	TableName    string
}

// Process rewrites the WASM module in input, replacing every surrogate
// externref:: operation the "__externrefs" custom section declares
// with direct reference-table plumbing, and returns the rewritten
// module's bytes. A module carrying no "__externrefs" section is
// returned unchanged, byte for byte, without a decode/re-encode round
// trip: most modules a build pipeline pushes through this processor
// were never touched by the front-end macro that emits declarations.
func Process(input []byte, opts Options) ([]byte, *Result, error) {
	if !bytes.Contains(input, []byte(DeclarationsSection)) {
		return input, &Result{Changed: false}, nil
	}

	m, err := encoding.ReadModule(bytes.NewReader(input))
	if err != nil {
		return nil, nil, errf(MalformedModule, "decode module: %v", err)
	}

	custom, customIdx := m.FindCustom(DeclarationsSection)
	if custom == nil {
		return input, &Result{Changed: false}, nil
	}

	decls, err := DecodeDeclarations(m, custom.Data)
	if err != nil {
		return nil, nil, err
	}

	surrogates, err := ResolveSurrogates(m)
	if err != nil {
		return nil, nil, err
	}

	targets, err := ResolveTargets(m, decls)
	if err != nil {
		return nil, nil, err
	}

	entries, err := encoding.CodeEntries(m)
	if err != nil {
		return nil, nil, errf(MalformedModule, "decode code section: %v", err)
	}

	if err := CheckGuards(m, surrogates, targets, entries); err != nil {
		return nil, nil, err
	}

	if err := RewriteSignatures(m, targets); err != nil {
		return nil, nil, err
	}

	tableName := opts.TableName
	if tableName == "" {
		tableName = DefaultTableName
	}
	tableIdx, err := AllocateReferenceTable(m, tableName)
	if err != nil {
		return nil, nil, err
	}

	importCount := uint32(m.ImportedFunctionCount())
	for i := range entries {
		funcIdx := importCount + uint32(i)
		sig, ok := m.FunctionType(funcIdx)
		if !ok {
			return nil, nil, errf(MalformedModule, "function %d has no declared type", funcIdx).withFunc(funcIdx)
		}
		rewritten, err := RewriteFunctionBody(m, entries[i].Func, funcIdx, sig.Params, surrogates, targets, tableIdx)
		if err != nil {
			return nil, nil, err
		}
		entries[i].Func = rewritten
	}

	RemoveSurrogateImports(m, surrogates, entries)
	PruneDeadTypes(m, entries)
	m.RemoveCustom(customIdx)

	if err := writeBackCode(m, entries); err != nil {
		return nil, nil, err
	}

	var out bytes.Buffer
	if err := encoding.WriteModule(&out, m); err != nil {
		return nil, nil, errf(IoError, "encode module: %v", err)
	}

	return out.Bytes(), &Result{
		Changed:      true,
		Declarations: decls,
		Targets:      targets,
		Surrogates:   surrogates,
		TableIndex:   tableIdx,
		TableName:    tableName,
	}, nil
}

func writeBackCode(m *module.Module, entries []module.CodeEntry) error {
	segs := make([]module.CodeSegment, len(entries))
	for i, entry := range entries {
		var buf bytes.Buffer
		if err := encoding.WriteCodeEntry(&buf, entry); err != nil {
			return errf(IoError, "encode function %d: %v", i, err)
		}
		segs[i] = module.CodeSegment{Code: buf.Bytes()}
	}
	m.Code.Segments = segs
	return nil
}
