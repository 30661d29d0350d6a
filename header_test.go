// Copyright 2013 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package chunkfile

import "testing"

func TestReadHeaderRoundTrip(t *testing.T) {
	f := NewMemFiler()
	if err := writeMagicAndVersion(f); err != nil {
		t.Fatal(err)
	}

	h := header{chunksCount: 2, indexCapacity: 5, freeSpaceTotal: 17}
	if err := h.write(f); err != nil {
		t.Fatal(err)
	}

	if err := f.Truncate(headerSize + 5*headerPartSize); err != nil {
		t.Fatal(err)
	}

	got, err := readHeader(f)
	if err != nil {
		t.Fatal(err)
	}

	if got != h {
		t.Fatalf("readHeader = %+v, want %+v", got, h)
	}
}

func TestReadHeaderRejectsShortFile(t *testing.T) {
	f := NewMemFiler()
	if _, err := f.WriteAt([]byte{1, 2, 3}, 0); err != nil {
		t.Fatal(err)
	}

	if _, err := readHeader(f); err == nil {
		t.Fatal("readHeader accepted a file shorter than the fixed header")
	}
}

func TestReadHeaderRejectsBadMagic(t *testing.T) {
	f := NewMemFiler()
	var buf [headerSize]byte
	copy(buf[:9], "NOTCHUNK!")
	if _, err := f.WriteAt(buf[:], 0); err != nil {
		t.Fatal(err)
	}

	_, err := readHeader(f)
	if _, ok := err.(*ErrCorruptedFile); !ok {
		t.Fatalf("readHeader error = %T (%v), want *ErrCorruptedFile", err, err)
	}
}

func TestReadHeaderRejectsUnsupportedVersion(t *testing.T) {
	f := NewMemFiler()
	if err := writeMagicAndVersion(f); err != nil {
		t.Fatal(err)
	}

	if err := writeUint64At(f, 9, formatVersion+1); err != nil {
		t.Fatal(err)
	}

	var rest [headerSize - 17]byte
	if _, err := f.WriteAt(rest[:], 17); err != nil {
		t.Fatal(err)
	}

	_, err := readHeader(f)
	uv, ok := err.(*ErrUnsupportedVersion)
	if !ok {
		t.Fatalf("readHeader error = %T (%v), want *ErrUnsupportedVersion", err, err)
	}

	if uv.Version != formatVersion+1 {
		t.Fatalf("ErrUnsupportedVersion.Version = %d, want %d", uv.Version, formatVersion+1)
	}
}

func TestReadHeaderRejectsChunksCountExceedingCapacity(t *testing.T) {
	f := NewMemFiler()
	if err := writeMagicAndVersion(f); err != nil {
		t.Fatal(err)
	}

	h := header{chunksCount: 5, indexCapacity: 2, freeSpaceTotal: 0}
	if err := h.write(f); err != nil {
		t.Fatal(err)
	}

	if err := f.Truncate(headerSize + 2*headerPartSize); err != nil {
		t.Fatal(err)
	}

	if _, err := readHeader(f); err == nil {
		t.Fatal("readHeader accepted chunks_count > index_capacity")
	}
}
