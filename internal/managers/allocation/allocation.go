// Package allocation analyzes the volume's allocation-block bitmap:
// free-space and fragmentation scans with bounded top-K results,
// hotfile ranking, and block-range inspection. Grounded on
// original_source/src/operations/{free_space,hfs_fragmentation,
// hfs_hotfiles,hfs_inspect_blocks}.c.
package allocation

import (
	"sort"

	"github.com/NSGod/hfsinspect/internal/errs"
	"github.com/NSGod/hfsinspect/internal/interfaces"
)

// Extent is one contiguous run of allocation blocks, either free or
// in-use, as reported by the scans in this package.
type Extent struct {
	StartBlock uint32
	BlockCount uint32
}

// Bitmap wraps the allocation file's raw bytes (one bit per block, 1
// meaning in-use, MSB-first per byte) with block-level queries.
type Bitmap struct {
	bits       []byte
	totalBlock uint32
}

// NewBitmap reads the entire allocation file fork into memory. HFS+
// volumes size this fork at roughly totalBlocks/8 bytes, small enough
// for whole-file buffering even on large volumes (a few MB at most).
func NewBitmap(fork interfaces.Fork, totalBlocks uint32) (*Bitmap, error) {
	buf := make([]byte, fork.Size())
	if _, err := fork.ReadAt(buf, 0); err != nil {
		return nil, errs.IO("reading allocation file", err)
	}
	return &Bitmap{bits: buf, totalBlock: totalBlocks}, nil
}

// Used reports whether block i is allocated.
func (b *Bitmap) Used(i uint32) bool {
	byteIdx := i / 8
	if int(byteIdx) >= len(b.bits) {
		return false
	}
	bit := 7 - (i % 8)
	return b.bits[byteIdx]&(1<<bit) != 0
}

// runsWhere collects maximal runs of consecutive blocks for which want
// matches Used(i).
func (b *Bitmap) runsWhere(want bool) []Extent {
	var runs []Extent
	var cur *Extent
	for i := uint32(0); i < b.totalBlock; i++ {
		if b.Used(i) == want {
			if cur == nil {
				cur = &Extent{StartBlock: i, BlockCount: 1}
			} else {
				cur.BlockCount++
			}
		} else if cur != nil {
			runs = append(runs, *cur)
			cur = nil
		}
	}
	if cur != nil {
		runs = append(runs, *cur)
	}
	return runs
}

// FreeSpaceScan returns the topK largest free extents, largest first.
// Reference: original_source/src/operations/free_space.c.
func (b *Bitmap) FreeSpaceScan(topK int) []Extent {
	runs := b.runsWhere(false)
	return topByBlockCount(runs, topK)
}

// FragmentationScan returns the topK most-fragmented in-use extents
// (smallest runs first, since small scattered runs are what
// fragmentation scans flag). Reference: original_source/src/operations/
// hfs_fragmentation.c.
func (b *Bitmap) FragmentationScan(topK int) []Extent {
	runs := b.runsWhere(true)
	sort.Slice(runs, func(i, j int) bool { return runs[i].BlockCount < runs[j].BlockCount })
	if topK > 0 && len(runs) > topK {
		runs = runs[:topK]
	}
	return runs
}

func topByBlockCount(runs []Extent, topK int) []Extent {
	sort.Slice(runs, func(i, j int) bool { return runs[i].BlockCount > runs[j].BlockCount })
	if topK > 0 && len(runs) > topK {
		runs = runs[:topK]
	}
	return runs
}

// BlockRangeEntry describes one row of a block-range inspection: a run
// of blocks and whether it's free or in-use.
type BlockRangeEntry struct {
	Extent
	Used bool
}

// InspectBlocks reports the free/used run decomposition of
// [startBlock, startBlock+count); runs that cross the window's edges
// are clipped to it, and no rows are added beyond those runs. Reference:
// original_source/src/operations/hfs_inspect_blocks.c.
func (b *Bitmap) InspectBlocks(startBlock, count uint32) ([]BlockRangeEntry, error) {
	if startBlock+count > b.totalBlock {
		return nil, errs.InvalidArgument("block range exceeds volume size", nil)
	}
	var entries []BlockRangeEntry
	var cur *BlockRangeEntry
	for i := startBlock; i < startBlock+count; i++ {
		used := b.Used(i)
		if cur == nil || cur.Used != used {
			if cur != nil {
				entries = append(entries, *cur)
			}
			cur = &BlockRangeEntry{Extent: Extent{StartBlock: i, BlockCount: 1}, Used: used}
		} else {
			cur.BlockCount++
		}
	}
	if cur != nil {
		entries = append(entries, *cur)
	}
	return entries, nil
}

// HotFileEntry is one ranked entry from the hotfiles tree.
type HotFileEntry struct {
	FileID      uint32
	Temperature uint32
	ForkType    uint8
}

// RankHotFiles sorts entries by descending temperature and returns at
// most topK, matching the convention that higher temperature means
// "hotter" (read more often relative to its size).
func RankHotFiles(entries []HotFileEntry, topK int) []HotFileEntry {
	sort.Slice(entries, func(i, j int) bool { return entries[i].Temperature > entries[j].Temperature })
	if topK > 0 && len(entries) > topK {
		entries = entries[:topK]
	}
	return entries
}
