// Copyright 2013 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package chunkfile

import (
	"fmt"
	"os"
)

// ErrCorruptedFile is returned whenever a structural invariant of the
// container is violated: bad magic, a truncated header, an index entry
// pointing outside the data region, a back-reference mismatch, a
// free-space-total mismatch, or a tagged-length overflow.
type ErrCorruptedFile struct {
	Reason string
}

func (e *ErrCorruptedFile) Error() string {
	return fmt.Sprintf("chunkfile: corrupted file: %s", e.Reason)
}

// ErrUnsupportedVersion is returned when the magic matches but the header's
// version field is not a version this package understands.
type ErrUnsupportedVersion struct {
	Version uint64
}

func (e *ErrUnsupportedVersion) Error() string {
	return fmt.Sprintf("chunkfile: unsupported version %d", e.Version)
}

// ErrChunkDoesNotExist is returned when the requested chunk id is out of
// range of the index or holds the sentinel ("not present") value.
type ErrChunkDoesNotExist struct {
	ID uint64
}

func (e *ErrChunkDoesNotExist) Error() string {
	return fmt.Sprintf("chunkfile: chunk %d does not exist", e.ID)
}

// ErrNotImplemented is reserved for extension points not covered by the
// format. Reserve does not itself return it: rather than decline to grow
// the index when the data region's front is occupied, it relocates the
// occupant to the end of the file and retries (§4.2 case 4's option (a)).
type ErrNotImplemented struct {
	Reason string
}

func (e *ErrNotImplemented) Error() string {
	return fmt.Sprintf("chunkfile: not implemented: %s", e.Reason)
}

// ioErr wraps an underlying filesystem failure the way os package functions
// do, so callers can type-assert *os.PathError exactly as they would for any
// other file-backed Go API.
func (cf *Chunkfile) ioErr(op string, err error) error {
	if err == nil {
		return nil
	}

	return &os.PathError{Op: op, Path: cf.filer.Name(), Err: err}
}
