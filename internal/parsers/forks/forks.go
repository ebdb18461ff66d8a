// Package forks implements the fork abstraction: a fork's data is a
// sequence of allocation-block extents, the first eight of which live
// inline in the catalog record's ForkData and the rest of which spill
// into the extents-overflow B-tree. Reference: spec.md §4.2/§4.4.
package forks

import (
	"fmt"
	"io"
	"sort"

	"github.com/NSGod/hfsinspect/internal/errs"
	"github.com/NSGod/hfsinspect/internal/interfaces"
	"github.com/NSGod/hfsinspect/internal/types"
)

// run is one contiguous allocation-block extent translated to a
// logical byte range, used to binary-search for the extent covering a
// given read offset.
type run struct {
	logicalStart int64 // byte offset of this extent's first byte within the fork
	byteLen      int64
	startBlock   uint32
}

// OverflowSource resolves the extents-overflow records for a fork
// beyond its initial eight inline descriptors. Implemented by
// internal/services over the extents tree's Navigator; kept as an interface
// here so this package has no dependency on the B-tree manager.
type OverflowSource interface {
	ExtentsForFork(fileID uint32, forkType uint8, startBlockOfOverflow uint32) (types.ExtentRecord, bool, error)
}

// Stream is an interfaces.Fork backed by a fork's extent list, chasing
// overflow records from src as needed.
type Stream struct {
	src       interfaces.BlockSource
	overflow  OverflowSource
	fileID    uint32
	forkType  uint8
	blockSize uint32
	size      int64
	runs      []run
}

// Open builds a Stream from a catalog record's ForkData, an
// OverflowSource for chasing extents beyond the first eight, and the
// volume's allocation block size.
func Open(src interfaces.BlockSource, overflow OverflowSource, fileID uint32, forkType uint8, blockSize uint32, fork types.ForkData) (*Stream, error) {
	s := &Stream{
		src:       src,
		overflow:  overflow,
		fileID:    fileID,
		forkType:  forkType,
		blockSize: blockSize,
		size:      int64(fork.LogicalSize),
	}
	if err := s.ingest(fork.Extents); err != nil {
		return nil, err
	}
	return s, nil
}

// Size implements interfaces.Fork.
func (s *Stream) Size() int64 { return s.size }

// ingest appends a non-empty extent record's descriptors as runs,
// tracking the logical offset each descriptor starts at.
func (s *Stream) ingest(rec types.ExtentRecord) error {
	var logical int64
	if len(s.runs) > 0 {
		last := s.runs[len(s.runs)-1]
		logical = last.logicalStart + last.byteLen
	}
	for _, d := range rec {
		if d.BlockCount == 0 {
			break
		}
		byteLen := int64(d.BlockCount) * int64(s.blockSize)
		s.runs = append(s.runs, run{logicalStart: logical, byteLen: byteLen, startBlock: d.StartBlock})
		logical += byteLen
	}
	return nil
}

// totalAllocated returns the byte span covered by runs ingested so far.
func (s *Stream) totalAllocated() int64 {
	if len(s.runs) == 0 {
		return 0
	}
	last := s.runs[len(s.runs)-1]
	return last.logicalStart + last.byteLen
}

// ensureCoverage chases overflow-extent records until the run list
// covers offset, or there is nothing left to chase.
func (s *Stream) ensureCoverage(offset int64) error {
	for offset >= s.totalAllocated() && s.totalAllocated() < s.size {
		if s.overflow == nil {
			return errs.Corrupt(fmt.Sprintf("fork %d needs overflow extents but none available", s.fileID), nil)
		}
		startBlock := uint32(s.totalAllocated() / int64(s.blockSize))
		rec, ok, err := s.overflow.ExtentsForFork(s.fileID, s.forkType, startBlock)
		if err != nil {
			return err
		}
		if !ok {
			return errs.Corrupt(fmt.Sprintf("fork %d: missing overflow extent record at block %d", s.fileID, startBlock), nil)
		}
		before := s.totalAllocated()
		if err := s.ingest(rec); err != nil {
			return err
		}
		if s.totalAllocated() == before {
			return errs.Corrupt(fmt.Sprintf("fork %d: overflow record at block %d added no extents", s.fileID, startBlock), nil)
		}
	}
	return nil
}

// ReadAt implements io.ReaderAt over the fork's logical byte stream.
func (s *Stream) ReadAt(p []byte, off int64) (int, error) {
	if off < 0 {
		return 0, errs.InvalidArgument("negative offset", nil)
	}
	if off >= s.size {
		return 0, io.EOF
	}
	end := off + int64(len(p))
	if end > s.size {
		end = s.size
		p = p[:end-off]
	}

	if err := s.ensureCoverage(end - 1); err != nil {
		return 0, err
	}

	total := 0
	for total < len(p) {
		cur := off + int64(total)
		idx := sort.Search(len(s.runs), func(i int) bool {
			r := s.runs[i]
			return r.logicalStart+r.byteLen > cur
		})
		if idx == len(s.runs) {
			return total, errs.Corrupt(fmt.Sprintf("fork %d: no extent covers logical offset %d", s.fileID, cur), nil)
		}
		r := s.runs[idx]
		withinRun := cur - r.logicalStart
		remainingInRun := r.byteLen - withinRun
		want := int64(len(p) - total)
		if want > remainingInRun {
			want = remainingInRun
		}
		physOff := int64(r.startBlock)*int64(s.blockSize) + withinRun
		n, err := s.src.ReadAt(p[total:int64(total)+want], physOff)
		total += n
		if err != nil {
			return total, err
		}
		if int64(n) < want {
			return total, errs.Corrupt(fmt.Sprintf("fork %d: short read within extent", s.fileID), nil)
		}
	}
	return total, nil
}
