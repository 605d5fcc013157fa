// Copyright 2018 The OPA Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

package encoding

import (
	"io"

	"github.com/pkg/errors"

	"github.com/externref-go/rewriter/internal/leb128"
	"github.com/externref-go/rewriter/internal/wasm/types"
)

func readByte(r io.Reader) (byte, error) {
	var buf [1]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, err
	}
	return buf[0], nil
}

func writeByte(w io.Writer, b byte) error {
	_, err := w.Write([]byte{b})
	return err
}

func readName(r io.Reader) (string, error) {
	n, err := leb128.ReadVarUint32(r)
	if err != nil {
		return "", errors.Wrap(err, "read name length")
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return "", errors.Wrap(err, "read name bytes")
	}
	return string(buf), nil
}

func writeName(w io.Writer, s string) error {
	if err := leb128.WriteVarUint32(w, uint32(len(s))); err != nil {
		return err
	}
	_, err := io.WriteString(w, s)
	return err
}

func readBytes(r io.Reader, n uint32) ([]byte, error) {
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, err
	}
	return buf, nil
}

func readValType(r io.Reader) (types.ValueType, error) {
	b, err := readByte(r)
	if err != nil {
		return 0, err
	}
	return types.ValueType(b), nil
}

func writeValType(w io.Writer, t types.ValueType) error {
	return writeByte(w, byte(t))
}

func readLimits(r io.Reader) (limMin uint32, limMax *uint32, err error) {
	flag, err := readByte(r)
	if err != nil {
		return 0, nil, err
	}
	min, err := leb128.ReadVarUint32(r)
	if err != nil {
		return 0, nil, err
	}
	if flag == 0 {
		return min, nil, nil
	}
	max, err := leb128.ReadVarUint32(r)
	if err != nil {
		return 0, nil, err
	}
	return min, &max, nil
}

func writeLimits(w io.Writer, min uint32, max *uint32) error {
	if max == nil {
		if err := writeByte(w, 0); err != nil {
			return err
		}
		return leb128.WriteVarUint32(w, min)
	}
	if err := writeByte(w, 1); err != nil {
		return err
	}
	if err := leb128.WriteVarUint32(w, min); err != nil {
		return err
	}
	return leb128.WriteVarUint32(w, *max)
}
