// Copyright 2018 The OPA Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

// Package encoding implements the WASM binary format codec: ReadModule
// and WriteModule convert between module.Module and its serialized
// bytes; CodeEntries and WriteCodeEntry convert between a function
// body's raw bytes and its decoded instruction IR.
package encoding

type sectionID byte

const (
	sectionCustom sectionID = 0
	sectionType   sectionID = 1
	sectionImport sectionID = 2
	sectionFunc   sectionID = 3
	sectionTable  sectionID = 4
	sectionMemory sectionID = 5
	sectionGlobal sectionID = 6
	sectionExport sectionID = 7
	sectionStart  sectionID = 8
	sectionElem   sectionID = 9
	sectionCode   sectionID = 10
	sectionData   sectionID = 11
)

var (
	magic   = [4]byte{0x00, 0x61, 0x73, 0x6D}
	version = [4]byte{0x01, 0x00, 0x00, 0x00}
)

const funcTypeTag = 0x60
