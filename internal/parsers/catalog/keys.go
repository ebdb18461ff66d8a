// Package catalog decodes and orders the key types of the catalog,
// extents, attributes, and hotfiles B-trees. Reference: spec.md §4.5,
// §4.6, §4.9, and original_source/src/hfs/catalog.c, hfs_extentlist.h,
// hfsplus/attributes.h, hfsplus/hotfiles.c.
package catalog

import (
	"github.com/NSGod/hfsinspect/internal/endian"
	"github.com/NSGod/hfsinspect/internal/types"
)

// CaseFoldingComparator implements interfaces.KeyComparator for a
// catalog tree built with kHFSCaseFolding (classic HFS+ collation):
// parent CNID first, then the node name compared case-insensitively
// via the fast-Unicode-compare algorithm (see unicode_fold.go for the
// scope of its fold table).
type CaseFoldingComparator struct{}

func (CaseFoldingComparator) Compare(a, b []byte) int {
	ka, errA := endian.DecodeCatalogKey(a)
	kb, errB := endian.DecodeCatalogKey(b)
	if errA != nil || errB != nil {
		return compareBytes(a, b)
	}
	if ka.ParentID != kb.ParentID {
		return compareUint32(ka.ParentID, kb.ParentID)
	}
	return compareFolded(ka.NodeName.Unicode, kb.NodeName.Unicode)
}

// BinaryComparator implements interfaces.KeyComparator for a catalog
// tree built with kHFSBinaryCompare (HFSX collation): parent CNID
// first, then the node name compared as raw UTF-16 code units, exactly
// (no case folding, no table needed).
type BinaryComparator struct{}

func (BinaryComparator) Compare(a, b []byte) int {
	ka, errA := endian.DecodeCatalogKey(a)
	kb, errB := endian.DecodeCatalogKey(b)
	if errA != nil || errB != nil {
		return compareBytes(a, b)
	}
	if ka.ParentID != kb.ParentID {
		return compareUint32(ka.ParentID, kb.ParentID)
	}
	return compareUnits(ka.NodeName.Unicode, kb.NodeName.Unicode)
}

// ComparatorForKeyCompareType returns the comparator matching a
// B-tree header's KeyCompareType byte.
func ComparatorForKeyCompareType(t uint8) interface{ Compare(a, b []byte) int } {
	if t == types.KeyCompareBinary {
		return BinaryComparator{}
	}
	return CaseFoldingComparator{}
}

// ExtentsComparator orders extents-overflow-file records by
// (fileID, forkType, startBlock), per original_source's
// hfs_extents_compare_keys.
type ExtentsComparator struct{}

func (ExtentsComparator) Compare(a, b []byte) int {
	ka, errA := endian.DecodeExtentKey(a)
	kb, errB := endian.DecodeExtentKey(b)
	if errA != nil || errB != nil {
		return compareBytes(a, b)
	}
	if ka.FileID != kb.FileID {
		return compareUint32(ka.FileID, kb.FileID)
	}
	if ka.ForkType != kb.ForkType {
		return int(ka.ForkType) - int(kb.ForkType)
	}
	return compareUint32(ka.StartBlock, kb.StartBlock)
}

// AttrsComparator orders attribute-file records by
// (fileID, attrName, startBlock), per HFSPlusAttrKeyGetStr/attributes.h.
type AttrsComparator struct{}

func (AttrsComparator) Compare(a, b []byte) int {
	ka, errA := endian.DecodeAttrKey(a)
	kb, errB := endian.DecodeAttrKey(b)
	if errA != nil || errB != nil {
		return compareBytes(a, b)
	}
	if ka.FileID != kb.FileID {
		return compareUint32(ka.FileID, kb.FileID)
	}
	if c := compareUnits(ka.AttrName, kb.AttrName); c != 0 {
		return c
	}
	return compareUint32(ka.StartBlock, kb.StartBlock)
}

// HotFilesComparator orders hotfiles-tree records by
// (temperature descending is handled by callers; keys compare
// ascending by (temperature, fileID, forkType) per
// original_source/src/hfsplus/hotfiles.c:115-117).
type HotFilesComparator struct{}

func (HotFilesComparator) Compare(a, b []byte) int {
	ka, errA := endian.DecodeHotFileKey(a)
	kb, errB := endian.DecodeHotFileKey(b)
	if errA != nil || errB != nil {
		return compareBytes(a, b)
	}
	if ka.Temperature != kb.Temperature {
		return compareUint32(ka.Temperature, kb.Temperature)
	}
	if ka.FileID != kb.FileID {
		return compareUint32(ka.FileID, kb.FileID)
	}
	return int(ka.ForkType) - int(kb.ForkType)
}

func compareUint32(a, b uint32) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func compareUnits(a, b []uint16) int {
	for i := 0; i < len(a) && i < len(b); i++ {
		if a[i] != b[i] {
			return int(a[i]) - int(b[i])
		}
	}
	return len(a) - len(b)
}

func compareFolded(a, b []uint16) int {
	for i := 0; i < len(a) && i < len(b); i++ {
		fa, fb := foldUnit(a[i]), foldUnit(b[i])
		if fa != fb {
			return int(fa) - int(fb)
		}
	}
	return len(a) - len(b)
}

func compareBytes(a, b []byte) int {
	for i := 0; i < len(a) && i < len(b); i++ {
		if a[i] != b[i] {
			return int(a[i]) - int(b[i])
		}
	}
	return len(a) - len(b)
}
