// Package externref implements the post-processor that rewrites a
// compiled WASM module's surrogate integer handles into direct uses of
// a reference-typed table, per the declarations carried in the
// module's "__externrefs" custom section.
package externref

import "fmt"

// Kind identifies the category of a processing error, independent of
// its human-readable message.
type Kind int

// Error kinds. Every error the processor returns carries one of these.
const (
	// MalformedModule means the WASM parser or serializer rejected the
	// module bytes outright.
	MalformedModule Kind = iota
	// MalformedDeclarations means the "__externrefs" custom section was
	// truncated, had trailing bytes or a bad kind byte, duplicated a
	// (kind, names) pair or a function, named a function absent from the
	// module, or marked an argument slot beyond the function's arity.
	MalformedDeclarations
	// MissingSurrogate means one of the required externref:: imports
	// was not found.
	MissingSurrogate
	// WrongSurrogateSignature means a surrogate import was found but its
	// type does not match the expected shape.
	WrongSurrogateSignature
	// GuardMissing means an affected function lacks the guard call that
	// marks it as not having been inlined by an optimizer.
	GuardMissing
	// UnsupportedPattern means the call-site rewriter encountered an
	// instruction sequence it does not know how to retype.
	UnsupportedPattern
	// IoError means reading or writing module bytes failed.
	IoError
)

func (k Kind) String() string {
	switch k {
	case MalformedModule:
		return "malformed module"
	case MalformedDeclarations:
		return "malformed declarations"
	case MissingSurrogate:
		return "missing surrogate"
	case WrongSurrogateSignature:
		return "wrong surrogate signature"
	case GuardMissing:
		return "guard missing"
	case UnsupportedPattern:
		return "unsupported pattern"
	case IoError:
		return "io error"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Error is the error type returned by every stage of the processor.
// FuncIndex and Offset are set when the failure can be attributed to a
// specific function body; Offset is an instruction count within that
// function's flattened body, not a byte offset.
type Error struct {
	Kind      Kind
	Message   string
	FuncIndex *uint32
	Offset    *int
	// Hint carries an actionable remediation, set only for GuardMissing.
	Hint string
}

func (e *Error) Error() string {
	s := fmt.Sprintf("%s: %s", e.Kind, e.Message)
	if e.FuncIndex != nil {
		s += fmt.Sprintf(" (function %d", *e.FuncIndex)
		if e.Offset != nil {
			s += fmt.Sprintf(", instruction %d", *e.Offset)
		}
		s += ")"
	}
	if e.Hint != "" {
		s += ": " + e.Hint
	}
	return s
}

func errf(kind Kind, format string, a ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, a...)}
}

func (e *Error) withFunc(idx uint32) *Error {
	e.FuncIndex = &idx
	return e
}

func (e *Error) withOffset(offset int) *Error {
	e.Offset = &offset
	return e
}
