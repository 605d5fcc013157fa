package externref

import (
	"bytes"
	"fmt"
	"io"

	"github.com/externref-go/rewriter/internal/leb128"
	"github.com/externref-go/rewriter/internal/wasm/module"
)

// DeclarationsSection is the name of the custom section the front-end
// macro emits declarations into.
const DeclarationsSection = "__externrefs"

// DeclKind distinguishes an import declaration from an export
// declaration.
type DeclKind byte

// Declaration kinds, matching the custom section's 1-byte encoding.
const (
	DeclImport DeclKind = 0
	DeclExport DeclKind = 1
)

// Declaration is an immutable record parsed from the "__externrefs"
// custom section: which function is affected, which of its parameters
// carry references, and whether its return does.
type Declaration struct {
	Kind         DeclKind
	ModuleName   string // import only
	FieldName    string
	ArgSlots     map[uint32]bool
	ReturnIsRef  bool
}

// DecodeDeclarations parses the custom section payload into a list of
// declarations, validating each against m. Decoding is total: a
// well-formed section of length n is consumed exactly, and every
// violation is reported as MalformedDeclarations.
func DecodeDeclarations(m *module.Module, data []byte) ([]Declaration, error) {
	r := bytes.NewReader(data)
	count, err := leb128.ReadVarUint32(r)
	if err != nil {
		return nil, errf(MalformedDeclarations, "read declaration count: %v", err)
	}

	seen := make(map[string]bool, count)
	decls := make([]Declaration, 0, count)
	for i := uint32(0); i < count; i++ {
		d, err := decodeOneDeclaration(r)
		if err != nil {
			return nil, errf(MalformedDeclarations, "declaration %d: %v", i, err)
		}

		key := fmt.Sprintf("%d\x00%s\x00%s", d.Kind, d.ModuleName, d.FieldName)
		if seen[key] {
			return nil, errf(MalformedDeclarations, "duplicate declaration for %s", declName(d))
		}
		seen[key] = true

		funcIdx, sig, ok := resolveDeclaredFunction(m, d)
		if !ok {
			return nil, errf(MalformedDeclarations, "declaration %s names a function absent from the module", declName(d))
		}
		for slot := range d.ArgSlots {
			if int(slot) >= len(sig.Params) {
				return nil, errf(MalformedDeclarations, "declaration %s: arg slot %d out of range for arity %d", declName(d), slot, len(sig.Params))
			}
		}
		_ = funcIdx

		decls = append(decls, d)
	}
	if r.Len() != 0 {
		return nil, errf(MalformedDeclarations, "%d trailing bytes after declarations", r.Len())
	}
	return decls, nil
}

func declName(d Declaration) string {
	if d.Kind == DeclImport {
		return d.ModuleName + "." + d.FieldName
	}
	return d.FieldName
}

// ResolveDeclaredFunction resolves the function a declaration names,
// returning its index in the module's function index space and its
// current signature.
func ResolveDeclaredFunction(m *module.Module, d Declaration) (uint32, module.FunctionType, bool) {
	return resolveDeclaredFunction(m, d)
}

func resolveDeclaredFunction(m *module.Module, d Declaration) (uint32, module.FunctionType, bool) {
	if d.Kind == DeclImport {
		imp, funcIdx, ok := m.FindImport(d.ModuleName, d.FieldName)
		if !ok {
			return 0, module.FunctionType{}, false
		}
		fi, ok := imp.Descriptor.(module.FunctionImport)
		if !ok {
			return 0, module.FunctionType{}, false
		}
		if int(fi.Func) >= len(m.Type.Functions) {
			return 0, module.FunctionType{}, false
		}
		return funcIdx, m.Type.Functions[fi.Func], true
	}
	exp, ok := m.FindExport(d.FieldName)
	if !ok || exp.Descriptor.Type != module.FunctionExportType {
		return 0, module.FunctionType{}, false
	}
	sig, ok := m.FunctionType(exp.Descriptor.Index)
	if !ok {
		return 0, module.FunctionType{}, false
	}
	return exp.Descriptor.Index, sig, true
}

func decodeOneDeclaration(r *bytes.Reader) (Declaration, error) {
	kindByte, err := r.ReadByte()
	if err != nil {
		return Declaration{}, err
	}
	kind := DeclKind(kindByte)
	if kind != DeclImport && kind != DeclExport {
		return Declaration{}, fmt.Errorf("bad kind byte %d", kindByte)
	}

	var modName string
	if kind == DeclImport {
		modName, err = readDeclName(r)
		if err != nil {
			return Declaration{}, err
		}
	}
	fieldName, err := readDeclName(r)
	if err != nil {
		return Declaration{}, err
	}

	bitmapLen, err := leb128.ReadVarUint32(r)
	if err != nil {
		return Declaration{}, err
	}
	bitmap := make([]byte, bitmapLen)
	if _, err := io.ReadFull(r, bitmap); err != nil {
		return Declaration{}, err
	}
	argSlots := make(map[uint32]bool)
	for byteIdx, b := range bitmap {
		for bit := 0; bit < 8; bit++ {
			if b&(1<<uint(bit)) != 0 {
				argSlots[uint32(byteIdx*8+bit)] = true
			}
		}
	}

	retByte, err := r.ReadByte()
	if err != nil {
		return Declaration{}, err
	}

	return Declaration{
		Kind:        kind,
		ModuleName:  modName,
		FieldName:   fieldName,
		ArgSlots:    argSlots,
		ReturnIsRef: retByte != 0,
	}, nil
}

func readDeclName(r *bytes.Reader) (string, error) {
	n, err := leb128.ReadVarUint32(r)
	if err != nil {
		return "", err
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return "", err
	}
	return string(buf), nil
}

func writeDeclName(buf *bytes.Buffer, s string) error {
	if err := leb128.WriteVarUint32(buf, uint32(len(s))); err != nil {
		return err
	}
	_, err := buf.WriteString(s)
	return err
}

// EncodeDeclarations is the inverse of DecodeDeclarations: it produces
// the custom section payload bytes for decls, in the order given.
func EncodeDeclarations(decls []Declaration) ([]byte, error) {
	var buf bytes.Buffer
	if err := leb128.WriteVarUint32(&buf, uint32(len(decls))); err != nil {
		return nil, err
	}
	for _, d := range decls {
		if err := buf.WriteByte(byte(d.Kind)); err != nil {
			return nil, err
		}
		if d.Kind == DeclImport {
			if err := writeDeclName(&buf, d.ModuleName); err != nil {
				return nil, err
			}
		}
		if err := writeDeclName(&buf, d.FieldName); err != nil {
			return nil, err
		}

		maxSlot := -1
		for slot := range d.ArgSlots {
			if int(slot) > maxSlot {
				maxSlot = int(slot)
			}
		}
		bitmap := make([]byte, maxSlot/8+1)
		if maxSlot < 0 {
			bitmap = nil
		}
		for slot := range d.ArgSlots {
			bitmap[slot/8] |= 1 << (slot % 8)
		}
		if err := leb128.WriteVarUint32(&buf, uint32(len(bitmap))); err != nil {
			return nil, err
		}
		if _, err := buf.Write(bitmap); err != nil {
			return nil, err
		}

		retByte := byte(0)
		if d.ReturnIsRef {
			retByte = 1
		}
		if err := buf.WriteByte(retByte); err != nil {
			return nil, err
		}
	}
	return buf.Bytes(), nil
}
