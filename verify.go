// Copyright 2013 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package chunkfile

import "fmt"

// Verify performs the read-only structural pass of §4.8. It walks the data
// region once, checking that it tiles [data_begin, file_size) exactly, that
// every data-part's back-reference matches its index entry, that every
// non-sentinel index entry is reached exactly once, that no two
// free-space-parts are adjacent, and that the header counters match what
// was observed. It returns an *ErrCorruptedFile on the first mismatch found.
func (cf *Chunkfile) Verify() error {
	dataBegin := uint64(cf.dataBegin())
	fileSize := uint64(cf.filer.Size())

	reached := make([]bool, cf.indexCapacity)
	var dataParts, freeBytes uint64
	prevWasFree := false

	pos := dataBegin
	for pos < fileSize {
		size, tag, err := readTaggedLength(cf.filer, int64(pos))
		if err != nil {
			return cf.ioErr("chunkfile.Verify", err)
		}

		if size < freeSpaceMin || pos+size > fileSize {
			return &ErrCorruptedFile{Reason: fmt.Sprintf("part at offset %d has an invalid size %d", pos, size)}
		}

		if tag == tagFree {
			if prevWasFree {
				return &ErrCorruptedFile{Reason: fmt.Sprintf("adjacent free-space-parts ending at offset %d", pos)}
			}

			freeBytes += size - freeSpaceMin
			prevWasFree = true
			pos += size
			continue
		}

		if size < dataPartMin {
			return &ErrCorruptedFile{Reason: fmt.Sprintf("data-part at offset %d is smaller than the minimum size", pos)}
		}

		backref, err := readUint64At(cf.filer, int64(pos)+8)
		if err != nil {
			return cf.ioErr("chunkfile.Verify", err)
		}

		if backref >= cf.indexCapacity {
			return &ErrCorruptedFile{Reason: fmt.Sprintf("data-part at offset %d has an out-of-range back-reference %d", pos, backref)}
		}

		entry, err := readUint64At(cf.filer, cf.indexOffset(backref))
		if err != nil {
			return cf.ioErr("chunkfile.Verify", err)
		}

		if entry != pos {
			return &ErrCorruptedFile{Reason: fmt.Sprintf("data-part at offset %d back-references id %d whose index entry does not point back", pos, backref)}
		}

		if reached[backref] {
			return &ErrCorruptedFile{Reason: fmt.Sprintf("chunk id %d is the target of more than one data-part", backref)}
		}

		reached[backref] = true
		dataParts++
		prevWasFree = false
		pos += size
	}

	if pos != fileSize {
		return &ErrCorruptedFile{Reason: "data region does not tile the file exactly"}
	}

	if dataParts != cf.chunksCount {
		return &ErrCorruptedFile{Reason: fmt.Sprintf("chunks_count %d does not match the observed data-part count %d", cf.chunksCount, dataParts)}
	}

	if freeBytes != cf.freeSpaceTotal {
		return &ErrCorruptedFile{Reason: fmt.Sprintf("free_space_total %d does not match the observed free bytes %d", cf.freeSpaceTotal, freeBytes)}
	}

	for i := uint64(0); i < cf.indexCapacity; i++ {
		entry, err := readUint64At(cf.filer, cf.indexOffset(i))
		if err != nil {
			return cf.ioErr("chunkfile.Verify", err)
		}

		if entry != sentinel && !reached[i] {
			return &ErrCorruptedFile{Reason: fmt.Sprintf("index entry %d points at offset %d, which was never visited as a data-part", i, entry)}
		}
	}

	return nil
}
