// Copyright 2013 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package chunkfile

import (
	"bytes"
	"testing"
)

// TestP1SetThenExistsAndGet is property P1.
func TestP1SetThenExistsAndGet(t *testing.T) {
	cf := openMem(t, Options{})
	defer cf.Close()

	for _, id := range []uint64{0, 1, 7, 1000} {
		b := []byte{byte(id), byte(id >> 8)}
		mustSet(t, cf, id, b)
		mustExist(t, cf, id, true)
		mustGet(t, cf, id, b)
	}
}

// TestP2DelThenNotExists is property P2.
func TestP2DelThenNotExists(t *testing.T) {
	cf := openMem(t, Options{})
	defer cf.Close()

	mustSet(t, cf, 3, []byte("x"))
	if err := cf.Del(3); err != nil {
		t.Fatal(err)
	}

	mustExist(t, cf, 3, false)
}

// TestP3SetGetIdentity is property P3, including the empty payload.
func TestP3SetGetIdentity(t *testing.T) {
	cf := openMem(t, Options{})
	defer cf.Close()

	for _, b := range [][]byte{nil, []byte(""), []byte("a"), bytes.Repeat([]byte("z"), 4096)} {
		mustSet(t, cf, 9, b)
		got, err := cf.Get(9)
		if err != nil {
			t.Fatal(err)
		}

		if !bytes.Equal(got, b) {
			t.Fatalf("Get(9) = %q, want %q", got, b)
		}
	}
}

// TestP4SetDelSetIdentity is property P4.
func TestP4SetDelSetIdentity(t *testing.T) {
	cf := openMem(t, Options{})
	defer cf.Close()

	mustSet(t, cf, 5, []byte("first"))
	if err := cf.Del(5); err != nil {
		t.Fatal(err)
	}

	mustSet(t, cf, 5, []byte("second"))
	mustGet(t, cf, 5, []byte("second"))
}

// TestP5ReserveMonotoneIdempotent is property P5.
func TestP5ReserveMonotoneIdempotent(t *testing.T) {
	cf := openMem(t, Options{})
	defer cf.Close()

	if err := cf.Reserve(10); err != nil {
		t.Fatal(err)
	}

	if g, e := cf.indexCapacity, uint64(10); g != e {
		t.Fatalf("index_capacity = %d, want %d", g, e)
	}

	for _, m := range []uint64{0, 1, 10} {
		before := cf.indexCapacity
		if err := cf.Reserve(m); err != nil {
			t.Fatalf("Reserve(%d): %v", m, err)
		}

		if cf.indexCapacity != before {
			t.Fatalf("Reserve(%d) changed index_capacity from %d to %d", m, before, cf.indexCapacity)
		}
	}
}

// TestP6CloseReopenPreservesState is property P6.
func TestP6CloseReopenPreservesState(t *testing.T) {
	cf := openMem(t, Options{})
	defer cf.Close()

	mustSet(t, cf, 0, []byte("a"))
	mustSet(t, cf, 1, []byte("bb"))
	if err := cf.Del(0); err != nil {
		t.Fatal(err)
	}

	mustSet(t, cf, 2, []byte("ccc"))

	cf = reopenMem(t, cf, Options{})
	defer cf.Close()

	mustExist(t, cf, 0, false)
	mustGet(t, cf, 1, []byte("bb"))
	mustGet(t, cf, 2, []byte("ccc"))
}

// TestP7VerifyAtEveryStep is property P7: Verify succeeds after every
// mutation in a representative sequence.
func TestP7VerifyAtEveryStep(t *testing.T) {
	cf := openMem(t, Options{})
	defer cf.Close()

	mustVerify(t, cf)

	mustSet(t, cf, 0, []byte("a"))
	mustVerify(t, cf)

	mustSet(t, cf, 1, []byte("bb"))
	mustVerify(t, cf)

	mustSet(t, cf, 0, []byte("much bigger now"))
	mustVerify(t, cf)

	if err := cf.Del(1); err != nil {
		t.Fatal(err)
	}
	mustVerify(t, cf)

	if err := cf.Reserve(32); err != nil {
		t.Fatal(err)
	}
	mustVerify(t, cf)
}

// TestP8DeleteAllTruncatesDataRegion is property P8.
func TestP8DeleteAllTruncatesDataRegion(t *testing.T) {
	cf := openMem(t, Options{})
	defer cf.Close()

	mustSet(t, cf, 0, []byte("one"))
	mustSet(t, cf, 1, []byte("two"))
	mustSet(t, cf, 2, []byte("three"))

	for _, id := range []uint64{0, 1, 2} {
		if err := cf.Del(id); err != nil {
			t.Fatal(err)
		}
	}

	want := headerSize + int64(cf.indexCapacity)*headerPartSize
	if g := cf.filer.Size(); g != want {
		t.Fatalf("file size = %d, want %d", g, want)
	}

	mustVerify(t, cf)
}
