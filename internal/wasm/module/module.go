// Package module defines the in-memory representation of a WASM module:
// types, imports, local functions, tables, globals, elements, exports,
// code and data segments, and custom sections. It is the IR the rest of
// the rewriter mutates in place; arena-style index slices stand in for
// the pointer graph a module's sections would otherwise form (types
// referenced by index from imports/functions, functions referenced by
// index from exports/elements/start).
package module

import (
	"fmt"

	"github.com/externref-go/rewriter/internal/wasm/instruction"
	"github.com/externref-go/rewriter/internal/wasm/types"
)

// PreambleVersion is the only WASM binary format version this package
// reads and writes.
const PreambleVersion uint32 = 1

// Module is the root of the in-memory WASM module representation.
type Module struct {
	Version  uint32
	Type     TypeSection
	Import   ImportSection
	Function FunctionSection
	Table    TableSection
	Memory   MemorySection
	Global   GlobalSection
	Export   ExportSection
	Start    StartSection
	Element  ElementSection
	Code     CodeSection
	Data     DataSection
	Names    NameSection
	Customs  []CustomSection
}

// FunctionType describes a function signature.
type FunctionType struct {
	Params  []types.ValueType
	Results []types.ValueType
}

// Equal reports whether two function types describe the same signature.
func (t FunctionType) Equal(other FunctionType) bool {
	if len(t.Params) != len(other.Params) || len(t.Results) != len(other.Results) {
		return false
	}
	for i := range t.Params {
		if t.Params[i] != other.Params[i] {
			return false
		}
	}
	for i := range t.Results {
		if t.Results[i] != other.Results[i] {
			return false
		}
	}
	return true
}

func (t FunctionType) String() string {
	return fmt.Sprintf("%v -> %v", t.Params, t.Results)
}

// TypeSection holds the module's function types.
type TypeSection struct {
	Functions []FunctionType
}

// ImportExportType identifies the kind of an import or export
// descriptor, using the WASM binary encoding's byte values.
type ImportExportType byte

// Import/export descriptor kinds.
const (
	FunctionImportType ImportExportType = 0x00
	TableImportType    ImportExportType = 0x01
	MemoryImportType   ImportExportType = 0x02
	GlobalImportType   ImportExportType = 0x03

	FunctionExportType = FunctionImportType
	TableExportType    = TableImportType
	MemoryExportType   = MemoryImportType
	GlobalExportType   = GlobalImportType
)

// ImportDescriptor is implemented by each of the four import kinds.
type ImportDescriptor interface {
	Kind() ImportExportType
}

// FunctionImport describes an imported function by its type index.
type FunctionImport struct {
	Func uint32
}

// Kind implements ImportDescriptor.
func (FunctionImport) Kind() ImportExportType { return FunctionImportType }

// TableImport describes an imported table.
type TableImport struct {
	Type TableType
}

// Kind implements ImportDescriptor.
func (TableImport) Kind() ImportExportType { return TableImportType }

// MemoryImport describes an imported memory.
type MemoryImport struct {
	Lim Limits
}

// Kind implements ImportDescriptor.
func (MemoryImport) Kind() ImportExportType { return MemoryImportType }

// GlobalImport describes an imported global.
type GlobalImport struct {
	Type    types.ValueType
	Mutable bool
}

// Kind implements ImportDescriptor.
func (GlobalImport) Kind() ImportExportType { return GlobalImportType }

// Import is a single entry in the import section.
type Import struct {
	Module     string
	Name       string
	Descriptor ImportDescriptor
}

func (i Import) String() string {
	return fmt.Sprintf("%s.%s (%T)", i.Module, i.Name, i.Descriptor)
}

// ImportSection holds the module's imports, in module index-space order.
type ImportSection struct {
	Imports []Import
}

// FunctionSection maps each local function to its type, by index into
// the type section.
type FunctionSection struct {
	TypeIndices []uint32
}

// Limits describes a table or memory's size bounds.
type Limits struct {
	Min uint32
	Max *uint32
}

// TableType describes the element type and size bounds of a table.
type TableType struct {
	ElemType types.ValueType
	Lim      Limits
}

// Table is a single entry in the table section.
type Table struct {
	Type TableType
}

// TableSection holds the module's locally-defined tables.
type TableSection struct {
	Tables []Table
}

// Memory is a single entry in the memory section.
type Memory struct {
	Lim Limits
}

// MemorySection holds the module's locally-defined memories.
type MemorySection struct {
	Memories []Memory
}

// Expr is an instruction sequence terminated by an implicit end in the
// binary format: a constant expression for global initializers and
// segment offsets, or a whole function body for Function.
type Expr struct {
	Instrs []instruction.Instruction
}

// Global is a single entry in the global section.
type Global struct {
	Type    types.ValueType
	Mutable bool
	Init    Expr
}

// GlobalSection holds the module's locally-defined globals.
type GlobalSection struct {
	Globals []Global
}

// ExportDescriptor names the kind and index of an exported item.
type ExportDescriptor struct {
	Type  ImportExportType
	Index uint32
}

// Export is a single entry in the export section.
type Export struct {
	Name       string
	Descriptor ExportDescriptor
}

func (e Export) String() string {
	return fmt.Sprintf("%s -> %v[%d]", e.Name, e.Descriptor.Type, e.Descriptor.Index)
}

// ExportSection holds the module's exports.
type ExportSection struct {
	Exports []Export
}

// StartSection names the module's start function, if any.
type StartSection struct {
	FuncIndex *uint32
}

// ElementSegment populates a table with function references at
// instantiation time. Only the active, function-index form is modeled;
// the rewriter's own reference table is not touched by element
// segments; rewritten code only reads it (table.get) and clears slots
// in it (table.set of ref.null).
type ElementSegment struct {
	TableIndex uint32
	Offset     Expr
	Indices    []uint32
}

func (s ElementSegment) String() string {
	return fmt.Sprintf("table[%d] += %d entries", s.TableIndex, len(s.Indices))
}

// ElementSection holds the module's element segments.
type ElementSection struct {
	Segments []ElementSegment
}

// LocalDeclaration groups a run of consecutive locals sharing a type,
// matching the WASM binary format's run-length encoding.
type LocalDeclaration struct {
	Count uint32
	Type  types.ValueType
}

// Function is a function body's locals and instructions, decoded into
// instruction IR.
type Function struct {
	Locals []LocalDeclaration
	Expr   Expr
}

// CodeEntry is the decoded form of one code-section segment.
type CodeEntry struct {
	Func Function
}

// CodeSegment holds the as-yet-undecoded bytes of one function body, in
// the same order as FunctionSection.TypeIndices.
type CodeSegment struct {
	Code []byte
}

func (s CodeSegment) String() string {
	return fmt.Sprintf("%d bytes", len(s.Code))
}

// CodeSection holds the module's function bodies.
type CodeSection struct {
	Segments []CodeSegment
}

// DataSegment initializes a region of linear memory.
type DataSegment struct {
	Index  uint32
	Offset Expr
	Init   []byte
}

func (s DataSegment) String() string {
	return fmt.Sprintf("memory[%d] += %d bytes", s.Index, len(s.Init))
}

// DataSection holds the module's data segments.
type DataSection struct {
	Segments []DataSegment
}

// NameMap associates an index with a debug name, as carried by the
// "name" custom section.
type NameMap struct {
	Index uint32
	Name  string
}

// NameSection holds the module's optional debug names.
type NameSection struct {
	Module    string
	Functions []NameMap
}

// CustomSection is an opaque, named section the module carries
// alongside the standard ones; declarations and debug names both start
// life as custom sections.
type CustomSection struct {
	Name string
	Data []byte
}
