// Package interfaces defines the small, composable contracts the parser
// and manager layers are built against, in the teacher's style of
// narrow single-purpose interfaces over one concrete struct per concern.
package interfaces

import (
	"io"

	"github.com/NSGod/hfsinspect/internal/types"
)

// BlockSource is a read-only, randomly addressable source of bytes
// within a bounded window (a partition, or an embedded HFS wrapper's
// payload). All offsets are relative to the window, not the underlying
// device.
type BlockSource interface {
	io.ReaderAt

	// Len reports the window's length in bytes.
	Len() int64

	// ReadBlock reads exactly one allocation block of the given size at
	// the given block index, returning an error if the read would run
	// past the window.
	ReadBlock(blockSize uint32, blockIndex uint32) ([]byte, error)
}

// VolumeLocator probes a BlockSource for a partition map (MBR, APM, GPT,
// or a classic-HFS wrapper) and yields the BlockSource windows of any
// HFS+/HFSX payloads found within it.
type VolumeLocator interface {
	// Locate returns every partition entry found, in on-disk order.
	Locate(src BlockSource) ([]types.PartitionInfo, error)

	// Open returns a BlockSource windowed to the given partition.
	Open(src BlockSource, partition types.PartitionInfo) (BlockSource, error)
}

// Fork is a random-access, sized byte stream backed by a fork's extent
// list, chasing overflow extent records as needed.
type Fork interface {
	io.ReaderAt

	// Size is the fork's logical size in bytes (may be less than the
	// allocated extent span).
	Size() int64
}

// BTreeNodeReader decodes the fixed node descriptor and record-offset
// table shared by every B-tree node kind.
type BTreeNodeReader interface {
	Descriptor() types.BTNodeDescriptor
	NumRecords() int
	// Record returns the raw bytes of record i (0-based), sliced from
	// the node's backing buffer.
	Record(i int) ([]byte, error)
}

// BTreeInfoReader exposes the header-node-derived facts a navigator
// needs without re-reading the header node on every call.
type BTreeInfoReader interface {
	RootNode() uint32
	NodeSize() uint16
	TotalNodes() uint32
	KeyCompareType() uint8
}

// NodeCache bounds the working set of decoded B-tree nodes kept in
// memory, evicting least-recently-used entries once full.
type NodeCache interface {
	Get(nodeNumber uint32) (BTreeNodeReader, bool)
	Put(nodeNumber uint32, node BTreeNodeReader)
}

// KeyComparator orders two on-disk keys of the same B-tree, returning a
// negative, zero, or positive int exactly like bytes.Compare.
type KeyComparator interface {
	Compare(a, b []byte) int
}

// CatalogResolver is the embedder-facing contract for name/CNID/path
// resolution over an open catalog B-tree.
type CatalogResolver interface {
	RecordForCNID(cnid uint32) (*types.CatalogFile, *types.CatalogFolder, error)
	PathForCNID(cnid uint32) (string, error)
	CNIDForPath(path string) (uint32, error)
	ListFolder(cnid uint32) ([]CatalogEntry, error)
}

// CatalogEntry is one child returned by CatalogResolver.ListFolder.
type CatalogEntry struct {
	Name   string
	CNID   uint32
	Folder *types.CatalogFolder
	File   *types.CatalogFile
}
