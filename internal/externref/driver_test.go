package externref

import (
	"bytes"
	"testing"
)

func TestProcessPassesThroughModulesWithoutDeclarations(t *testing.T) {
	input := []byte("\x00asm\x01\x00\x00\x00")

	output, res, err := Process(input, Options{})
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(output, input) {
		t.Error("expected byte-identical passthrough for a module with no __externrefs section")
	}
	if res == nil || res.Changed {
		t.Errorf("got %+v, want an unchanged result", res)
	}
}
