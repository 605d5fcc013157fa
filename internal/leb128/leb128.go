// Package leb128 implements the variable-length integer encoding used
// throughout the WASM binary format.
package leb128

import (
	"bufio"
	"fmt"
	"io"
)

type byteReader interface {
	io.Reader
	io.ByteReader
}

func reader(r io.Reader) byteReader {
	if br, ok := r.(byteReader); ok {
		return br
	}
	return bufio.NewReader(r)
}

// ReadVarUint32 decodes an unsigned LEB128 value no wider than 32 bits.
func ReadVarUint32(r io.Reader) (uint32, error) {
	v, err := ReadVarUint64(r)
	if err != nil {
		return 0, err
	}
	if v > 1<<32-1 {
		return 0, fmt.Errorf("leb128: varuint32 overflow")
	}
	return uint32(v), nil
}

// ReadVarUint64 decodes an unsigned LEB128 value.
func ReadVarUint64(r io.Reader) (uint64, error) {
	br := reader(r)
	var result uint64
	var shift uint
	for {
		b, err := br.ReadByte()
		if err != nil {
			return 0, err
		}
		result |= uint64(b&0x7f) << shift
		if b&0x80 == 0 {
			break
		}
		shift += 7
		if shift > 63 {
			return 0, fmt.Errorf("leb128: varuint64 too long")
		}
	}
	return result, nil
}

// ReadVarInt32 decodes a signed LEB128 value no wider than 32 bits.
func ReadVarInt32(r io.Reader) (int32, error) {
	v, err := ReadVarInt64(r)
	if err != nil {
		return 0, err
	}
	if v > 1<<31-1 || v < -(1<<31) {
		return 0, fmt.Errorf("leb128: varint32 overflow")
	}
	return int32(v), nil
}

// ReadVarInt64 decodes a signed LEB128 value.
func ReadVarInt64(r io.Reader) (int64, error) {
	br := reader(r)
	var result int64
	var shift uint
	var b byte
	var err error
	for {
		b, err = br.ReadByte()
		if err != nil {
			return 0, err
		}
		result |= int64(b&0x7f) << shift
		shift += 7
		if b&0x80 == 0 {
			break
		}
		if shift > 63 {
			return 0, fmt.Errorf("leb128: varint64 too long")
		}
	}
	if shift < 64 && (b&0x40) != 0 {
		result |= -1 << shift
	}
	return result, nil
}

// WriteVarUint32 encodes v as unsigned LEB128.
func WriteVarUint32(w io.Writer, v uint32) error {
	return WriteVarUint64(w, uint64(v))
}

// WriteVarUint64 encodes v as unsigned LEB128.
func WriteVarUint64(w io.Writer, v uint64) error {
	for {
		b := byte(v & 0x7f)
		v >>= 7
		if v != 0 {
			b |= 0x80
		}
		if _, err := w.Write([]byte{b}); err != nil {
			return err
		}
		if v == 0 {
			return nil
		}
	}
}

// WriteVarInt32 encodes v as signed LEB128.
func WriteVarInt32(w io.Writer, v int32) error {
	return WriteVarInt64(w, int64(v))
}

// WriteVarInt64 encodes v as signed LEB128.
func WriteVarInt64(w io.Writer, v int64) error {
	more := true
	for more {
		b := byte(v & 0x7f)
		v >>= 7
		if (v == 0 && b&0x40 == 0) || (v == -1 && b&0x40 != 0) {
			more = false
		} else {
			b |= 0x80
		}
		if _, err := w.Write([]byte{b}); err != nil {
			return err
		}
	}
	return nil
}
