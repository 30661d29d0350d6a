// Copyright 2013 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package chunkfile

import "encoding/binary"

const (
	magic = "CHUNKFILE" // 9 bytes, no terminator
	formatVersion = uint64(0)

	headerSize     = 41 // 9 (magic) + 8*4 (version, chunks_count, index_capacity, free_space_total)
	headerPartSize = 8
	dataPartMin    = 16
	freeSpaceMin   = 8
)

// sentinel marks an index entry as "chunk not present".
const sentinel = ^uint64(0)

// header mirrors the three mutable counters of the on-disk header. Magic and
// version are written once, on creation, and never rewritten afterwards.
type header struct {
	chunksCount    uint64
	indexCapacity  uint64
	freeSpaceTotal uint64
}

// writeMagicAndVersion is called exactly once, when a new file is created.
func writeMagicAndVersion(f Filer) error {
	var buf [17]byte
	copy(buf[:9], magic)
	binary.LittleEndian.PutUint64(buf[9:17], formatVersion)
	return writeFull(f, buf[:], 0)
}

// write persists the three mutable counters. It is the single routine used
// both by openFiler when it creates a new file (for the all-zero initial
// header) and by every mutator, so
// the layout produced on creation can never drift from the layout produced
// later.
func (h header) write(f Filer) error {
	var buf [24]byte
	binary.LittleEndian.PutUint64(buf[0:8], h.chunksCount)
	binary.LittleEndian.PutUint64(buf[8:16], h.indexCapacity)
	binary.LittleEndian.PutUint64(buf[16:24], h.freeSpaceTotal)
	return writeFull(f, buf[:], 17)
}

// readHeader loads and validates the header of an existing file.
func readHeader(f Filer) (header, error) {
	size := f.Size()
	if size < headerSize {
		return header{}, &ErrCorruptedFile{Reason: "file is shorter than the fixed header"}
	}

	var buf [headerSize]byte
	if err := readFull(f, buf[:], 0); err != nil {
		return header{}, err
	}

	if string(buf[:9]) != magic {
		return header{}, &ErrCorruptedFile{Reason: "bad magic"}
	}

	ver := binary.LittleEndian.Uint64(buf[9:17])
	if ver != formatVersion {
		return header{}, &ErrUnsupportedVersion{Version: ver}
	}

	h := header{
		chunksCount:    binary.LittleEndian.Uint64(buf[17:25]),
		indexCapacity:  binary.LittleEndian.Uint64(buf[25:33]),
		freeSpaceTotal: binary.LittleEndian.Uint64(buf[33:41]),
	}

	if headerSize+h.indexCapacity*headerPartSize > uint64(size) {
		return header{}, &ErrCorruptedFile{Reason: "index_capacity exceeds file size"}
	}

	if h.chunksCount > h.indexCapacity {
		return header{}, &ErrCorruptedFile{Reason: "chunks_count exceeds index_capacity"}
	}

	return h, nil
}
