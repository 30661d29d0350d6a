// Copyright 2013 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// The data region: allocation, in-place replacement, and coalescing of
// freed space (§4.4-§4.7).

package chunkfile

import "encoding/binary"

// Get returns a copy of the bytes stored under id (§4.5).
func (cf *Chunkfile) Get(id uint64) ([]byte, error) {
	pos, present, err := cf.tryLookup(id)
	if err != nil {
		return nil, err
	}

	if !present {
		return nil, &ErrChunkDoesNotExist{ID: id}
	}

	size, tag, err := readTaggedLength(cf.filer, int64(pos))
	if err != nil {
		return nil, cf.ioErr("chunkfile.Get", err)
	}

	if tag != tagData {
		return nil, &ErrCorruptedFile{Reason: "index entry does not point at a data-part"}
	}

	backref, err := readUint64At(cf.filer, int64(pos)+8)
	if err != nil {
		return nil, cf.ioErr("chunkfile.Get", err)
	}

	if backref != id {
		return nil, &ErrCorruptedFile{Reason: "data-part back-reference does not match its index entry"}
	}

	payload := make([]byte, size-dataPartMin)
	if len(payload) > 0 {
		if err := readFull(cf.filer, payload, int64(pos)+dataPartMin); err != nil {
			return nil, cf.ioErr("chunkfile.Get", err)
		}
	}

	return payload, nil
}

// Size returns the payload length stored under id, without reading the
// payload itself (§4.5).
func (cf *Chunkfile) Size(id uint64) (uint64, error) {
	pos, present, err := cf.tryLookup(id)
	if err != nil {
		return 0, err
	}

	if !present {
		return 0, &ErrChunkDoesNotExist{ID: id}
	}

	size, tag, err := readTaggedLength(cf.filer, int64(pos))
	if err != nil {
		return 0, cf.ioErr("chunkfile.Size", err)
	}

	if tag != tagData {
		return 0, &ErrCorruptedFile{Reason: "index entry does not point at a data-part"}
	}

	return size - dataPartMin, nil
}

// Set stores b under id, overwriting any previous chunk at id (§4.4).
func (cf *Chunkfile) Set(id uint64, b []byte) error {
	if id >= cf.indexCapacity {
		newCapacity := cf.indexCapacity * 2
		if id+1 > newCapacity {
			newCapacity = id + 1
		}

		if err := cf.Reserve(newCapacity); err != nil {
			return err
		}
	}

	pos, present, err := cf.tryLookup(id)
	if err != nil {
		return err
	}

	if present {
		if err := cf.freeDataPart(pos); err != nil {
			return err
		}
	} else {
		cf.chunksCount++
	}

	need := uint64(dataPartMin) + uint64(len(b))
	allocPos, err := cf.allocator.Find(cf, need)
	if err != nil {
		return err
	}

	fileSize := uint64(cf.filer.Size())
	switch {
	case allocPos == fileSize:
		// Append: the data-part write below extends the file.
	case allocPos < fileSize:
		size, tag, err := readTaggedLength(cf.filer, int64(allocPos))
		if err != nil {
			return cf.ioErr("chunkfile.Set: inspect allocated slot", err)
		}

		if tag != tagFree || size < need {
			return &ErrCorruptedFile{Reason: "allocator returned a slot that is not a sufficiently large free-space-part"}
		}

		switch {
		case size == need:
			cf.freeSpaceTotal -= size - freeSpaceMin
		case size >= need+freeSpaceMin:
			if err := writeTaggedLength(cf.filer, int64(allocPos+need), size-need, tagFree); err != nil {
				return cf.ioErr("chunkfile.Set: write free-space remainder", err)
			}
			cf.freeSpaceTotal -= need
		default:
			panic("chunkfile: allocator returned a free-space-part too small to leave a well-formed remainder")
		}
	default:
		return &ErrCorruptedFile{Reason: "allocator returned a position beyond end of file"}
	}

	var head [dataPartMin]byte
	binary.LittleEndian.PutUint64(head[0:8], packTaggedLength(need, tagData))
	binary.LittleEndian.PutUint64(head[8:16], id)
	if err := writeFull(cf.filer, head[:], int64(allocPos)); err != nil {
		return cf.ioErr("chunkfile.Set: write data-part header", err)
	}

	if len(b) > 0 {
		if err := writeFull(cf.filer, b, int64(allocPos)+dataPartMin); err != nil {
			return cf.ioErr("chunkfile.Set: write chunk payload", err)
		}
	}

	if err := cf.writeIndexEntry(id, allocPos); err != nil {
		return err
	}

	return cf.writeCounters()
}

// Del removes the chunk stored under id, reclaiming its data-part (§4.6).
func (cf *Chunkfile) Del(id uint64) error {
	pos, present, err := cf.tryLookup(id)
	if err != nil {
		return err
	}

	if !present {
		return &ErrChunkDoesNotExist{ID: id}
	}

	if err := cf.freeDataPart(pos); err != nil {
		return err
	}

	if err := cf.writeIndexEntry(id, sentinel); err != nil {
		return err
	}

	cf.chunksCount--
	return cf.writeCounters()
}

// freeDataPart turns the data-part at pos into reclaimable space, coalescing
// it with any immediately adjacent free-space-parts and truncating the file
// if the result reaches EOF (§4.6 steps 1-4). It does not touch the index or
// chunksCount - those are the caller's responsibility, since Set reuses this
// to free an overwritten chunk's old data-part without clearing its index
// entry.
func (cf *Chunkfile) freeDataPart(pos uint64) error {
	size, tag, err := readTaggedLength(cf.filer, int64(pos))
	if err != nil {
		return cf.ioErr("chunkfile: read victim data-part", err)
	}

	if tag != tagData {
		return &ErrCorruptedFile{Reason: "index points at something other than a data-part"}
	}

	if payloadLen := size - dataPartMin; payloadLen > 0 {
		// Best-effort content wiping hint; Filer implementations are free
		// to ignore it, and a failure here does not affect correctness.
		_ = cf.filer.PunchHole(int64(pos)+dataPartMin, int64(payloadLen))
	}

	mergedPos, mergedSize := pos, size
	var reclaimedPayload uint64

	leftPos, leftSize, leftFree, haveLeft, err := cf.leftNeighbour(pos)
	if err != nil {
		return err
	}

	if haveLeft && leftFree {
		mergedPos = leftPos
		mergedSize += leftSize
		reclaimedPayload += leftSize - freeSpaceMin
	}

	fileSize := uint64(cf.filer.Size())
	rightPos := pos + size
	if rightPos < fileSize {
		rightSize, rightTag, err := readTaggedLength(cf.filer, int64(rightPos))
		if err != nil {
			return cf.ioErr("chunkfile: read right neighbour", err)
		}

		if rightTag == tagFree {
			mergedSize += rightSize
			reclaimedPayload += rightSize - freeSpaceMin
		}
	}

	var newPayload uint64
	if mergedPos+mergedSize == fileSize {
		if err := cf.filer.Truncate(int64(mergedPos)); err != nil {
			return cf.ioErr("chunkfile: truncate trailing free space", err)
		}
	} else {
		if err := writeTaggedLength(cf.filer, int64(mergedPos), mergedSize, tagFree); err != nil {
			return cf.ioErr("chunkfile: write coalesced free-space-part", err)
		}
		newPayload = mergedSize - freeSpaceMin
	}

	cf.freeSpaceTotal = cf.freeSpaceTotal - reclaimedPayload + newPayload
	return nil
}

// relocateDataPart copies the data-part at pos to the end of the file,
// repoints its index entry, and frees the old slot. Reserve uses this to
// clear occupied space at the low end of the data region when growing the
// index requires it - the relocation §4.2 permits in place of declining the
// growth outright.
func (cf *Chunkfile) relocateDataPart(pos uint64) error {
	size, tag, err := readTaggedLength(cf.filer, int64(pos))
	if err != nil {
		return cf.ioErr("chunkfile: read data-part to relocate", err)
	}

	if tag != tagData {
		return &ErrCorruptedFile{Reason: "expected a data-part while relocating"}
	}

	backref, err := readUint64At(cf.filer, int64(pos)+8)
	if err != nil {
		return cf.ioErr("chunkfile: read data-part to relocate", err)
	}

	payload := make([]byte, size-dataPartMin)
	if len(payload) > 0 {
		if err := readFull(cf.filer, payload, int64(pos)+dataPartMin); err != nil {
			return cf.ioErr("chunkfile: read data-part to relocate", err)
		}
	}

	newPos := uint64(cf.filer.Size())

	var head [dataPartMin]byte
	binary.LittleEndian.PutUint64(head[0:8], packTaggedLength(size, tagData))
	binary.LittleEndian.PutUint64(head[8:16], backref)
	if err := writeFull(cf.filer, head[:], int64(newPos)); err != nil {
		return cf.ioErr("chunkfile: write relocated data-part", err)
	}

	if len(payload) > 0 {
		if err := writeFull(cf.filer, payload, int64(newPos)+dataPartMin); err != nil {
			return cf.ioErr("chunkfile: write relocated data-part", err)
		}
	}

	if err := cf.writeIndexEntry(backref, newPos); err != nil {
		return err
	}

	return cf.freeDataPart(pos)
}

// growFront makes delta contiguous bytes available at the low end of the
// data region (dataBegin), for Reserve to claim as new index entries. The
// front may be empty, already free, too small to use directly, or occupied
// by a data-part; growFront relocates whatever occupies the front to the
// end of the file until enough free space accumulates, then either extends
// the file (front empty), consumes a free-space-part whole, or shrinks one,
// leaving a well-formed remainder (§4.2, §9 "Index growth vs. occupied
// front").
func (cf *Chunkfile) growFront(delta uint64) error {
	for {
		growAt := uint64(cf.dataBegin())
		fileSize := uint64(cf.filer.Size())

		if fileSize == growAt {
			if err := cf.filer.Truncate(int64(growAt + delta)); err != nil {
				return cf.ioErr("chunkfile.Reserve", err)
			}
			return nil
		}

		size, tag, err := readTaggedLength(cf.filer, int64(growAt))
		if err != nil {
			return cf.ioErr("chunkfile.Reserve: inspect first data-region part", err)
		}

		if size < freeSpaceMin || growAt+size > fileSize {
			return &ErrCorruptedFile{Reason: "part with invalid size encountered while scanning data region"}
		}

		if tag != tagFree {
			if err := cf.relocateDataPart(growAt); err != nil {
				return err
			}
			continue
		}

		switch {
		case size == delta:
			cf.freeSpaceTotal -= size - freeSpaceMin
			return nil
		case size >= delta+freeSpaceMin:
			if err := writeTaggedLength(cf.filer, int64(growAt+delta), size-delta, tagFree); err != nil {
				return cf.ioErr("chunkfile.Reserve: shrink free-space-part", err)
			}
			cf.freeSpaceTotal -= delta
			return nil
		}

		// The leading free-space-part exists but is too small (or would
		// leave an undersized remainder). Pull in whatever follows it.
		nextPos := growAt + size
		if nextPos == fileSize {
			// It is also the entire tail: grow the file to enlarge it.
			newSize := delta
			if size >= delta {
				newSize = delta + freeSpaceMin
			}

			if err := cf.filer.Truncate(int64(fileSize + (newSize - size))); err != nil {
				return cf.ioErr("chunkfile.Reserve", err)
			}

			if err := writeTaggedLength(cf.filer, int64(growAt), newSize, tagFree); err != nil {
				return cf.ioErr("chunkfile.Reserve: extend free-space-part", err)
			}

			cf.freeSpaceTotal += newSize - size
			continue
		}

		nextSize, nextTag, err := readTaggedLength(cf.filer, int64(nextPos))
		if err != nil {
			return cf.ioErr("chunkfile.Reserve: inspect following data-region part", err)
		}

		if nextTag == tagFree {
			// Invariant 7 rules this out in a well-formed file, but merge
			// defensively rather than looping forever.
			if err := writeTaggedLength(cf.filer, int64(growAt), size+nextSize, tagFree); err != nil {
				return cf.ioErr("chunkfile.Reserve: merge adjacent free-space-parts", err)
			}
			cf.freeSpaceTotal += freeSpaceMin
			continue
		}

		if err := cf.relocateDataPart(nextPos); err != nil {
			return err
		}
	}
}

// leftNeighbour walks the data region from its beginning up to pos, since
// parts carry no back-pointer to their predecessor (§9 "Data-region walk").
// It returns the immediate predecessor's position and size, and whether it
// is a free-space-part.
func (cf *Chunkfile) leftNeighbour(pos uint64) (leftPos, leftSize uint64, isFree, have bool, err error) {
	p := uint64(cf.dataBegin())
	for p < pos {
		size, tag, err := readTaggedLength(cf.filer, int64(p))
		if err != nil {
			return 0, 0, false, false, cf.ioErr("chunkfile: scan data region", err)
		}

		if size < freeSpaceMin {
			return 0, 0, false, false, &ErrCorruptedFile{Reason: "zero or undersized part encountered while scanning data region"}
		}

		if p+size == pos {
			return p, size, tag == tagFree, true, nil
		}

		p += size
	}

	return 0, 0, false, false, nil
}
