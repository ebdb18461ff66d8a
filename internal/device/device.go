// Package device implements internal/interfaces.BlockSource over a
// plain file or any io.ReaderAt, windowed to an offset/length range.
// Grounded on the teacher's internal/device/dmg.go, which wraps an
// *os.File behind a fixed byte offset into an underlying image.
package device

import (
	"fmt"
	"io"
	"os"

	"github.com/NSGod/hfsinspect/internal/errs"
)

// Window is a BlockSource backed by an io.ReaderAt, restricted to the
// byte range [offset, offset+length).
type Window struct {
	r      io.ReaderAt
	offset int64
	length int64
	closer io.Closer // non-nil when this Window owns the underlying file
}

// Open opens path and returns a Window spanning the whole file.
func Open(path string) (*Window, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errs.IO(fmt.Sprintf("opening %s", path), err)
	}
	stat, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, errs.IO(fmt.Sprintf("statting %s", path), err)
	}
	return &Window{r: f, offset: 0, length: stat.Size(), closer: f}, nil
}

// NewWindow wraps an existing io.ReaderAt in a [offset, offset+length)
// window, without taking ownership of closing it.
func NewWindow(r io.ReaderAt, offset, length int64) *Window {
	return &Window{r: r, offset: offset, length: length}
}

// Sub returns a new Window further restricted to [offset, offset+length)
// relative to w's own window, for carving out a partition's payload
// from the whole-device window.
func (w *Window) Sub(offset, length int64) (*Window, error) {
	if offset < 0 || length < 0 || offset+length > w.length {
		return nil, errs.InvalidArgument(
			fmt.Sprintf("sub-window [%d,%d) out of range of parent length %d", offset, offset+length, w.length), nil)
	}
	return &Window{r: w.r, offset: w.offset + offset, length: length}, nil
}

// Len implements interfaces.BlockSource.
func (w *Window) Len() int64 { return w.length }

// ReadAt implements io.ReaderAt, bounds-checked against the window.
func (w *Window) ReadAt(p []byte, off int64) (int, error) {
	if off < 0 {
		return 0, errs.InvalidArgument("negative offset", nil)
	}
	if off >= w.length {
		return 0, io.EOF
	}
	if off+int64(len(p)) > w.length {
		p = p[:w.length-off]
	}
	n, err := w.r.ReadAt(p, w.offset+off)
	if err != nil && err != io.EOF {
		return n, errs.IO("reading block source", err)
	}
	return n, err
}

// ReadBlock implements interfaces.BlockSource.
func (w *Window) ReadBlock(blockSize uint32, blockIndex uint32) ([]byte, error) {
	off := int64(blockSize) * int64(blockIndex)
	buf := make([]byte, blockSize)
	n, err := w.ReadAt(buf, off)
	if err != nil && err != io.EOF {
		return nil, err
	}
	if n < len(buf) {
		return nil, errs.Corrupt(fmt.Sprintf("short block read at block %d: got %d of %d bytes", blockIndex, n, len(buf)), nil)
	}
	return buf, nil
}

// Close releases the underlying file, if this Window owns one.
func (w *Window) Close() error {
	if w.closer != nil {
		return w.closer.Close()
	}
	return nil
}
