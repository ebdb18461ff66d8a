// Package btrees decodes individual B-tree nodes: the node descriptor,
// the trailing record-offset table, and per-record byte slices. This
// mirrors the teacher's internal/parsers/btrees/btree_node_reader.go,
// minus the Fletcher-64 checksum verification step, which is an APFS
// object-header concept with no HFS+ B-tree node equivalent (HFS+
// nodes carry no per-node checksum; see DESIGN.md).
package btrees

import (
	"encoding/binary"
	"fmt"

	"github.com/NSGod/hfsinspect/internal/endian"
	"github.com/NSGod/hfsinspect/internal/errs"
	"github.com/NSGod/hfsinspect/internal/types"
)

// Node decodes one fixed-size B-tree node buffer: its descriptor and
// the record-offset table at the tail of the buffer.
type Node struct {
	buf    []byte
	desc   types.BTNodeDescriptor
	offs   []uint16 // NumRecords+1 offsets, descending buffer position
}

// NewNode decodes buf (exactly one node's worth of bytes) into a Node.
func NewNode(buf []byte) (*Node, error) {
	desc, err := endian.DecodeBTNodeDescriptor(buf)
	if err != nil {
		return nil, errs.Corrupt("decoding node descriptor", err)
	}
	n := &Node{buf: buf, desc: desc}
	if err := n.readOffsets(); err != nil {
		return nil, err
	}
	return n, nil
}

// readOffsets reads the (NumRecords+1)-entry record-offset table that
// occupies the last bytes of the node, each entry a big-endian uint16
// byte offset from the start of the node to that record (the final
// entry points at the free-space marker, not a record).
func (n *Node) readOffsets() error {
	count := int(n.desc.NumRecords) + 1
	tableSize := count * 2
	if tableSize > len(n.buf) {
		return errs.Corrupt(fmt.Sprintf("record-offset table (%d bytes) overruns node (%d bytes)", tableSize, len(n.buf)), nil)
	}
	start := len(n.buf) - tableSize
	offs := make([]uint16, count)
	for i := 0; i < count; i++ {
		offs[count-1-i] = binary.BigEndian.Uint16(n.buf[start+i*2:])
	}
	n.offs = offs
	return nil
}

// Descriptor implements interfaces.BTreeNodeReader.
func (n *Node) Descriptor() types.BTNodeDescriptor { return n.desc }

// NumRecords implements interfaces.BTreeNodeReader.
func (n *Node) NumRecords() int { return int(n.desc.NumRecords) }

// Record implements interfaces.BTreeNodeReader, returning the raw
// bytes of record i via the offset table (record i spans
// [offs[i], offs[i+1])).
func (n *Node) Record(i int) ([]byte, error) {
	if i < 0 || i+1 >= len(n.offs) {
		return nil, errs.InvalidArgument(fmt.Sprintf("record index %d out of range (have %d records)", i, n.NumRecords()), nil)
	}
	start, end := n.offs[i], n.offs[i+1]
	if end < start || int(end) > len(n.buf) {
		return nil, errs.Corrupt(fmt.Sprintf("record %d has invalid bounds [%d,%d)", i, start, end), nil)
	}
	return n.buf[start:end], nil
}

// IsLeaf reports whether this node is a leaf node.
func (n *Node) IsLeaf() bool { return n.desc.Kind == types.BTNodeKindLeaf }

// IsIndex reports whether this node is an index node.
func (n *Node) IsIndex() bool { return n.desc.Kind == types.BTNodeKindIndex }

// IsHeader reports whether this node is the header node.
func (n *Node) IsHeader() bool { return n.desc.Kind == types.BTNodeKindHeader }

// IsMap reports whether this node is a map node.
func (n *Node) IsMap() bool { return n.desc.Kind == types.BTNodeKindMap }

// HeaderNode is the decoded contents of a B-tree's node 0: the node
// descriptor, the BTHeaderRec, and the map-record bitmap of in-use
// nodes that immediately follows it in the same node.
type HeaderNode struct {
	Node
	Header   types.BTHeaderRec
	MapBytes []byte // the node-used bitmap stored in record 2 of node 0
}

// NewHeaderNode decodes node 0 of a B-tree: its descriptor, the
// BTHeaderRec (record 0), and the bitmap (record 2).
func NewHeaderNode(buf []byte) (*HeaderNode, error) {
	n, err := NewNode(buf)
	if err != nil {
		return nil, err
	}
	if !n.IsHeader() {
		return nil, errs.Corrupt(fmt.Sprintf("node 0 has kind %d, expected header", n.desc.Kind), nil)
	}
	if n.NumRecords() < 3 {
		return nil, errs.Corrupt(fmt.Sprintf("header node has only %d records, expected at least 3", n.NumRecords()), nil)
	}
	headerBytes, err := n.Record(0)
	if err != nil {
		return nil, err
	}
	hdr, err := endian.DecodeBTHeaderRec(headerBytes)
	if err != nil {
		return nil, errs.Corrupt("decoding BTHeaderRec", err)
	}
	mapBytes, err := n.Record(2)
	if err != nil {
		return nil, err
	}
	return &HeaderNode{Node: *n, Header: *hdr, MapBytes: mapBytes}, nil
}

// NodeUsed reports whether node number i is marked in-use in the
// header node's allocation bitmap (one bit per node, MSB-first per
// byte, matching the allocation-file bitmap convention).
func (h *HeaderNode) NodeUsed(i uint32) bool {
	byteIdx := i / 8
	if int(byteIdx) >= len(h.MapBytes) {
		return false
	}
	bit := 7 - (i % 8)
	return h.MapBytes[byteIdx]&(1<<bit) != 0
}
