// Copyright 2013 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package chunkfile

// An Allocator chooses where in the data region a new data-part of the
// given total size (need, including its own 16-byte header) should be
// written. It must return either the current end of file (an append), or
// the offset of an existing free-space-part of total size S where S == need
// or S >= need + FREESPACE_MIN. Any policy satisfying that predicate is
// conforming; the choice is not externally observable except through the
// resulting file size (§4.7).
type Allocator interface {
	Find(cf *Chunkfile, need uint64) (pos uint64, err error)
}

// AppendAllocator always appends, never reusing a hole left by a deletion.
// Trivially correct, but lossy on space - this is the reference policy
// described by §4.7.
type AppendAllocator struct{}

// Find implements Allocator.
func (AppendAllocator) Find(cf *Chunkfile, need uint64) (uint64, error) {
	return uint64(cf.filer.Size()), nil
}

// FirstFitAllocator scans the data region from its beginning and returns the
// first free-space-part able to satisfy need, falling back to append if
// none does. This is the "quality implementation" §4.7 recommends, and is
// the default used by Open.
type FirstFitAllocator struct{}

// Find implements Allocator.
func (FirstFitAllocator) Find(cf *Chunkfile, need uint64) (uint64, error) {
	fileSize := uint64(cf.filer.Size())
	pos := uint64(cf.dataBegin())
	for pos < fileSize {
		size, tag, err := readTaggedLength(cf.filer, int64(pos))
		if err != nil {
			return 0, cf.ioErr("chunkfile: scan data region", err)
		}

		if size < freeSpaceMin || pos+size > fileSize {
			return 0, &ErrCorruptedFile{Reason: "part with invalid size encountered while scanning data region"}
		}

		if tag == tagFree && (size == need || size >= need+freeSpaceMin) {
			return pos, nil
		}

		pos += size
	}

	return fileSize, nil
}
