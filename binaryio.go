// Copyright 2013 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Fixed-width binary I/O primitives over a Filer. All multi-byte integers
// are little-endian, per §9 of the format.

package chunkfile

import (
	"encoding/binary"
	"io"
)

// readFull reads exactly len(b) bytes at off, or returns an error.
func readFull(f Filer, b []byte, off int64) error {
	n, err := f.ReadAt(b, off)
	if n == len(b) {
		return nil
	}

	if err != nil {
		return err
	}

	return io.ErrUnexpectedEOF
}

// writeFull writes exactly len(b) bytes at off, or returns an error.
func writeFull(f Filer, b []byte, off int64) error {
	n, err := f.WriteAt(b, off)
	if err != nil {
		return err
	}

	if n != len(b) {
		return io.ErrShortWrite
	}

	return nil
}

func readUint64At(f Filer, off int64) (uint64, error) {
	var buf [8]byte
	if err := readFull(f, buf[:], off); err != nil {
		return 0, err
	}

	return binary.LittleEndian.Uint64(buf[:]), nil
}

func writeUint64At(f Filer, off int64, v uint64) error {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], v)
	return writeFull(f, buf[:], off)
}

// Tagged-length words pack a part's total size (low 63 bits) and its type
// (high bit: 0 data, 1 free) into one 64-bit word, per §3/§4.9.
const (
	tagSignBit = uint64(1) << 63
	tagSizeMask = tagSignBit - 1

	tagData uint8 = 0
	tagFree uint8 = 1
)

func packTaggedLength(size uint64, tag uint8) uint64 {
	v := size & tagSizeMask
	if tag != tagData {
		v |= tagSignBit
	}

	return v
}

func unpackTaggedLength(v uint64) (size uint64, tag uint8) {
	size = v & tagSizeMask
	if v&tagSignBit != 0 {
		tag = tagFree
	}

	return
}

func readTaggedLength(f Filer, off int64) (size uint64, tag uint8, err error) {
	v, err := readUint64At(f, off)
	if err != nil {
		return 0, 0, err
	}

	size, tag = unpackTaggedLength(v)
	return
}

func writeTaggedLength(f Filer, off int64, size uint64, tag uint8) error {
	return writeUint64At(f, off, packTaggedLength(size, tag))
}
