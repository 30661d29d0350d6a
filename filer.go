// Copyright 2013 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package chunkfile

import (
	"fmt"
	"os"

	"github.com/cznic/fileutil"
	"github.com/cznic/mathutil"
)

// A Filer is a []byte-like model of a file or similar entity. In contrast to
// a file stream, a Filer is not sequentially accessible: ReadAt and WriteAt
// are always "addressed" by an absolute offset. A Filer is not safe for
// concurrent access; Chunkfile uses one from a single goroutine only.
//
// BeginUpdate, EndUpdate and Rollback exist for API parity with storage
// engines that do implement structural transactions; Chunkfile's own Filer
// implementations treat them as no-ops (see §5 of the format: no
// write-ahead log, no crash-atomic guarantees).
type Filer interface {
	// BeginUpdate increments the "nesting" counter (initially zero). Every
	// call to BeginUpdate must be eventually balanced by exactly one of
	// EndUpdate or Rollback. Calls to BeginUpdate may nest.
	BeginUpdate()

	// As os.File.Close().
	Close() error

	// EndUpdate decrements the "nesting" counter. Invocation of an
	// unbalanced EndUpdate is an error.
	EndUpdate() error

	// As os.File.Name().
	Name() string

	// PunchHole deallocates space inside a "file" in the byte range
	// starting at off and continuing for size bytes. The Filer size (as
	// reported by Size) does not change when hole punching. A Filer is
	// free to implement PunchHole as a no-op; no guarantee about the
	// content of the hole, when eventually read back, is required.
	PunchHole(off, size int64) error

	// As os.File.ReadAt. off cannot be negative.
	ReadAt(b []byte, off int64) (n int, err error)

	// Rollback cancels and undoes the innermost pending update level.
	// Invocation of an unbalanced Rollback is an error.
	Rollback() error

	// As os.File.FileInfo().Size().
	Size() int64

	// As os.File.Truncate().
	Truncate(size int64) error

	// As os.File.WriteAt(). off cannot be negative.
	WriteAt(b []byte, off int64) (n int, err error)
}

var _ Filer = &SimpleFileFiler{} // Ensure SimpleFileFiler is a Filer.

// SimpleFileFiler is an os.File backed Filer. It does not implement
// BeginUpdate/EndUpdate/Rollback in any way that protects structural
// integrity against a crash mid-write - which matches Chunkfile's own
// durability story (§5: no fsync, no WAL).
type SimpleFileFiler struct {
	file *os.File
	nest int
	size int64
}

// NewSimpleFileFiler returns a new SimpleFileFiler wrapping f.
func NewSimpleFileFiler(f *os.File) *SimpleFileFiler {
	fi, err := os.Stat(f.Name())
	if err != nil {
		panic(err) //TODO must return error
	}

	return &SimpleFileFiler{file: f, size: fi.Size()}
}

// BeginUpdate implements Filer.
func (f *SimpleFileFiler) BeginUpdate() {
	f.nest++
}

// Close implements Filer.
func (f *SimpleFileFiler) Close() (err error) {
	if f.nest != 0 {
		return fmt.Errorf("%s: Close called with pending BeginUpdate", f.Name())
	}

	return f.file.Close()
}

// EndUpdate implements Filer.
func (f *SimpleFileFiler) EndUpdate() (err error) {
	if f.nest == 0 {
		return fmt.Errorf("%s: unbalanced EndUpdate", f.Name())
	}

	f.nest--
	return
}

// Name implements Filer.
func (f *SimpleFileFiler) Name() string {
	return f.file.Name()
}

// PunchHole implements Filer.
func (f *SimpleFileFiler) PunchHole(off, size int64) (err error) {
	return fileutil.PunchHole(f.file, off, size)
}

// ReadAt implements Filer.
func (f *SimpleFileFiler) ReadAt(b []byte, off int64) (n int, err error) {
	return f.file.ReadAt(b, off)
}

// Rollback implements Filer.
func (f *SimpleFileFiler) Rollback() (err error) { return }

// Size implements Filer.
func (f *SimpleFileFiler) Size() int64 {
	return f.size
}

// Truncate implements Filer.
func (f *SimpleFileFiler) Truncate(size int64) (err error) {
	if size < 0 {
		return fmt.Errorf("%s: negative truncate size %d", f.Name(), size)
	}

	f.size = size
	return f.file.Truncate(size)
}

// WriteAt implements Filer.
func (f *SimpleFileFiler) WriteAt(b []byte, off int64) (n int, err error) {
	f.size = mathutil.MaxInt64(f.size, int64(len(b))+off)
	return f.file.WriteAt(b, off)
}
