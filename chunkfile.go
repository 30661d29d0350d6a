// Copyright 2013 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package chunkfile implements a single-file embedded storage engine: a
// sparse mapping from 64-bit chunk ids to opaque variable-length byte
// payloads, persisted in one regular file with durable create/read/
// update/delete and in-place reuse of space freed by deletions.
//
// The file is partitioned into three contiguous regions: a fixed 41-byte
// Header, a dense Index of 8-byte chunk-id-to-offset entries, and a Data
// region tiled by tagged data-parts and free-space-parts. The header is the
// 9-byte magic "CHUNKFILE" followed by four little-endian uint64s: version,
// chunks_count, index_capacity and free_space_total.
//
// A Chunkfile is not safe for concurrent use: it performs no locking and
// assumes the underlying file is exclusive to one handle (§5). It performs
// no fsync; a process crash mid-operation may leave the file failing
// Verify.
package chunkfile

import "os"

// Options amend the behavior of Open. The zero value reproduces the format's
// default behavior exactly: a FirstFitAllocator and no pre-reserved index
// capacity.
type Options struct {
	// Allocator selects the free-space-part selection strategy used by
	// Set. Defaults to FirstFitAllocator when nil.
	Allocator Allocator

	// InitialCapacity, if greater than the index capacity found (or
	// created) on open, is reserved immediately via Reserve. Useful for a
	// caller that knows its id space up front and wants to skip the
	// doubling dance of repeated Set calls.
	InitialCapacity uint64
}

// Chunkfile is a handle to an open container file. It owns a Filer (and,
// when backed by a real file, the underlying file descriptor) and the
// in-memory copy of the header counters; both are released deterministically
// by Close.
type Chunkfile struct {
	filer     Filer
	allocator Allocator

	chunksCount    uint64
	indexCapacity  uint64
	freeSpaceTotal uint64
}

// Open opens the container file at path, creating it if it does not exist
// (§4.1), using default Options.
func Open(path string) (*Chunkfile, error) {
	return OpenOptions(path, Options{})
}

// OpenOptions is like Open but accepts Options.
func OpenOptions(path string, o Options) (*Chunkfile, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0666)
	if err != nil {
		return nil, &os.PathError{Op: "chunkfile.Open", Path: path, Err: err}
	}

	return openFiler(NewSimpleFileFiler(f), o)
}

// openFiler holds the Filer-agnostic core of OpenOptions, so tests can drive
// a MemFiler directly instead of a real file.
func openFiler(filer Filer, o Options) (*Chunkfile, error) {
	allocator := o.Allocator
	if allocator == nil {
		allocator = FirstFitAllocator{}
	}

	ok := false
	defer func() {
		if !ok {
			filer.Close()
		}
	}()

	var h header
	var err error
	if filer.Size() == 0 {
		if err := writeMagicAndVersion(filer); err != nil {
			return nil, &os.PathError{Op: "chunkfile.Open: write magic", Path: filer.Name(), Err: err}
		}

		if err := h.write(filer); err != nil {
			return nil, &os.PathError{Op: "chunkfile.Open: write initial header", Path: filer.Name(), Err: err}
		}
	} else {
		h, err = readHeader(filer)
		if err != nil {
			return nil, err
		}
	}

	cf := &Chunkfile{
		filer:          filer,
		allocator:      allocator,
		chunksCount:    h.chunksCount,
		indexCapacity:  h.indexCapacity,
		freeSpaceTotal: h.freeSpaceTotal,
	}

	if o.InitialCapacity > cf.indexCapacity {
		if err := cf.Reserve(o.InitialCapacity); err != nil {
			return nil, err
		}
	}

	ok = true
	return cf, nil
}

// Close releases the handle's file descriptor.
func (cf *Chunkfile) Close() error {
	if err := cf.filer.Close(); err != nil {
		return &os.PathError{Op: "chunkfile.Close", Path: cf.filer.Name(), Err: err}
	}

	return nil
}

// writeCounters persists the three mutable header counters. Every mutating
// operation ends by calling this, so the on-disk header always reflects the
// invariants holding after that operation returns.
func (cf *Chunkfile) writeCounters() error {
	h := header{
		chunksCount:    cf.chunksCount,
		indexCapacity:  cf.indexCapacity,
		freeSpaceTotal: cf.freeSpaceTotal,
	}

	if err := h.write(cf.filer); err != nil {
		return cf.ioErr("chunkfile: write header", err)
	}

	return nil
}
