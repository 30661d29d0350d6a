// Copyright 2013 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package chunkfile

// dataBegin returns the offset of the first byte of the data region, i.e.
// the byte just past the dense index array.
func (cf *Chunkfile) dataBegin() int64 {
	return headerSize + int64(cf.indexCapacity)*headerPartSize
}

func (cf *Chunkfile) indexOffset(id uint64) int64 {
	return headerSize + int64(id)*headerPartSize
}

// tryLookup returns the data-part offset for id and whether it is present.
// It never fails for an out-of-range or absent id; it only returns an error
// for an actual I/O failure.
func (cf *Chunkfile) tryLookup(id uint64) (pos uint64, present bool, err error) {
	if id >= cf.indexCapacity {
		return 0, false, nil
	}

	v, err := readUint64At(cf.filer, cf.indexOffset(id))
	if err != nil {
		return 0, false, cf.ioErr("chunkfile: read index entry", err)
	}

	if v == sentinel {
		return 0, false, nil
	}

	return v, true, nil
}

func (cf *Chunkfile) writeIndexEntry(id uint64, v uint64) error {
	if err := writeUint64At(cf.filer, cf.indexOffset(id), v); err != nil {
		return cf.ioErr("chunkfile: write index entry", err)
	}

	return nil
}

// Exists reports whether id currently maps to a stored chunk (§4.3).
func (cf *Chunkfile) Exists(id uint64) (bool, error) {
	_, present, err := cf.tryLookup(id)
	return present, err
}

// Reserve grows the index to hold at least newCapacity entries (§4.2). If
// newCapacity <= the current capacity, Reserve does nothing: it is monotone
// and idempotent above its own argument (P5).
//
// Growing the index requires delta = (newCapacity-indexCapacity)*8 free
// bytes at the low end of the data region. Rather than decline whenever
// that space is occupied, Reserve relocates whatever sits there - a
// data-part is copied to the end of the file and its index entry
// repointed, a too-small free-space-part is merged with its neighbour -
// until the front has room, then claims it. See growFront.
func (cf *Chunkfile) Reserve(newCapacity uint64) error {
	if newCapacity <= cf.indexCapacity {
		return nil
	}

	delta := (newCapacity - cf.indexCapacity) * headerPartSize
	if err := cf.growFront(delta); err != nil {
		return err
	}

	growAt := cf.dataBegin()
	buf := make([]byte, delta)
	for i := uint64(0); i < newCapacity-cf.indexCapacity; i++ {
		off := i * headerPartSize
		for j := uint64(0); j < headerPartSize; j++ {
			buf[off+j] = 0xff
		}
	}

	if err := writeFull(cf.filer, buf, growAt); err != nil {
		return cf.ioErr("chunkfile.Reserve: write new index entries", err)
	}

	cf.indexCapacity = newCapacity
	return cf.writeCounters()
}
