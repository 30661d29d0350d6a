// Copyright 2013 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package chunkfile

import (
	"sort"
	"testing"

	"github.com/cznic/sortutil"
)

// freeSpaceOffsets walks the data region and returns the offset of every
// free-space-part, in ascending order.
func freeSpaceOffsets(t *testing.T, cf *Chunkfile) []int64 {
	t.Helper()

	a := make(sortutil.Int64Slice, 0)
	pos := cf.dataBegin()
	fileSize := cf.filer.Size()
	for pos < fileSize {
		size, tag, err := readTaggedLength(cf.filer, pos)
		if err != nil {
			t.Fatal(err)
		}

		if tag == tagFree {
			a = append(a, pos)
		}

		pos += int64(size)
	}

	sort.Sort(a)
	return a
}

// TestAppendAllocatorNeverReuses checks that AppendAllocator is lossy on
// space (§4.7): deleting a chunk and setting a same-size replacement grows
// the file, because append-only never looks at the hole it left behind.
// The index is pre-reserved so that no Reserve consumes the hole.
func TestAppendAllocatorNeverReuses(t *testing.T) {
	cf := openMem(t, Options{Allocator: AppendAllocator{}, InitialCapacity: 3})
	defer cf.Close()

	mustSet(t, cf, 0, []byte("aaaa"))
	mustSet(t, cf, 1, []byte("keepme"))
	sizeAfterBothSets := cf.filer.Size()

	if err := cf.Del(0); err != nil {
		t.Fatal(err)
	}

	mustSet(t, cf, 2, []byte("bbbb"))
	if g := cf.filer.Size(); g <= sizeAfterBothSets {
		t.Fatalf("file size = %d, want strictly greater than %d (the freed slot must go unused)", g, sizeAfterBothSets)
	}

	mustVerify(t, cf)
}

// TestFirstFitAllocatorReusesFreedSpace checks that FirstFitAllocator, in
// contrast, reclaims a same-size hole instead of growing the file. The index
// is pre-reserved so that no Reserve consumes part of the hole.
func TestFirstFitAllocatorReusesFreedSpace(t *testing.T) {
	cf := openMem(t, Options{Allocator: FirstFitAllocator{}, InitialCapacity: 3})
	defer cf.Close()

	mustSet(t, cf, 0, []byte("aaaa"))
	mustSet(t, cf, 1, []byte("keepme"))
	sizeAfterBothSets := cf.filer.Size()

	if err := cf.Del(0); err != nil {
		t.Fatal(err)
	}

	mustSet(t, cf, 2, []byte("bbbb"))
	if g := cf.filer.Size(); g != sizeAfterBothSets {
		t.Fatalf("file size = %d, want %d (the same-size hole left by id 0 should be reused)", g, sizeAfterBothSets)
	}

	mustGet(t, cf, 1, []byte("keepme"))
	mustGet(t, cf, 2, []byte("bbbb"))
	mustVerify(t, cf)
}

// TestFirstFitAllocatorFallsBackToAppend checks that a free-space-part too
// small for a request is skipped in favor of appending.
func TestFirstFitAllocatorFallsBackToAppend(t *testing.T) {
	cf := openMem(t, Options{Allocator: FirstFitAllocator{}})
	defer cf.Close()

	mustSet(t, cf, 0, []byte("a"))
	mustSet(t, cf, 1, []byte("keepme"))

	if err := cf.Del(0); err != nil {
		t.Fatal(err)
	}

	big := []byte("this payload is far larger than the one-byte hole id 0 left behind")
	mustSet(t, cf, 2, big)

	mustGet(t, cf, 1, []byte("keepme"))
	mustGet(t, cf, 2, big)
	mustVerify(t, cf)
}

// TestDeleteCoalescesAdjacentFreeSpace checks that deleting two neighbouring
// chunks leaves exactly one free-space-part, not two, confirming
// freeDataPart's coalescing actually merges rather than just reclassifying
// each victim independently.
func TestDeleteCoalescesAdjacentFreeSpace(t *testing.T) {
	cf := openMem(t, Options{Allocator: FirstFitAllocator{}})
	defer cf.Close()

	mustSet(t, cf, 0, []byte("one"))
	mustSet(t, cf, 1, []byte("two"))
	mustSet(t, cf, 2, []byte("three"))

	if err := cf.Del(0); err != nil {
		t.Fatal(err)
	}

	if err := cf.Del(1); err != nil {
		t.Fatal(err)
	}

	offsets := freeSpaceOffsets(t, cf)
	if g, e := len(offsets), 1; g != e {
		t.Fatalf("free-space-parts = %d at offsets %v, want %d (adjacent deletes should coalesce)", g, offsets, e)
	}

	mustVerify(t, cf)
}
