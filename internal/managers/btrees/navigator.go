// Package btrees orchestrates a generic paginated B-tree: node
// fetch-and-cache, binary search within a node, and full tree walk/
// search, independent of which specialization (catalog, extents,
// attributes, hotfiles) is layered on top. Grounded on the teacher's
// internal/managers/btrees/btree_navigator.go (cache-then-read-then-
// decode-then-cache node fetch), generalized from APFS object IDs to
// HFS+ node numbers.
package btrees

import (
	"fmt"

	"github.com/NSGod/hfsinspect/internal/endian"
	"github.com/NSGod/hfsinspect/internal/errs"
	"github.com/NSGod/hfsinspect/internal/interfaces"
	"github.com/NSGod/hfsinspect/internal/parsers/btrees"
)

// Comparator orders two raw keys of the same tree.
type Comparator interface {
	Compare(a, b []byte) int
}

// Navigator reads, caches, and walks the nodes of a single B-tree
// backed by a fork stream (the catalog/extents/attributes/hotfiles
// file's data fork, opened as an interfaces.Fork).
type Navigator struct {
	fork     interfaces.Fork
	header   *btrees.HeaderNode
	cache    map[uint32]*btrees.Node
	order    []uint32 // least- to most-recently used, for bounded-LRU eviction
	capacity int
	cmp      Comparator
}

// New decodes the header node (node 0) of fork and returns a Navigator
// ready to search or walk the tree. capacity bounds the node cache
// (internal/config.Config.BTreeNodeCacheSize).
func New(fork interfaces.Fork, cmp Comparator, capacity int) (*Navigator, error) {
	nav := &Navigator{fork: fork, cache: make(map[uint32]*btrees.Node), capacity: capacity, cmp: cmp}
	buf := make([]byte, headerProbeSize)
	if _, err := fork.ReadAt(buf, 0); err != nil {
		return nil, errs.IO("reading header node", err)
	}
	// The BTHeaderRec follows the 14-byte node descriptor, so NodeSize
	// can be read from the probe before the record-offset table at the
	// tail of the full node is.
	hdr, err := endian.DecodeBTHeaderRec(buf[14:])
	if err != nil {
		return nil, errs.Corrupt("decoding BTHeaderRec", err)
	}
	// Re-read with the real node size, in case the probe size differed.
	if int(hdr.NodeSize) != headerProbeSize {
		buf = make([]byte, hdr.NodeSize)
		if _, err := fork.ReadAt(buf, 0); err != nil {
			return nil, errs.IO("re-reading header node at full node size", err)
		}
	}
	hn, err := btrees.NewHeaderNode(buf)
	if err != nil {
		return nil, err
	}
	nav.header = hn
	return nav, nil
}

// headerProbeSize is a reasonable first guess at NodeSize (the header
// node always begins with the smallest legal size) before the real
// BTHeaderRec.NodeSize is known.
const headerProbeSize = 512

// RootNode implements interfaces.BTreeInfoReader.
func (n *Navigator) RootNode() uint32 { return n.header.Header.RootNode }

// NodeSize implements interfaces.BTreeInfoReader.
func (n *Navigator) NodeSize() uint16 { return n.header.Header.NodeSize }

// TotalNodes implements interfaces.BTreeInfoReader.
func (n *Navigator) TotalNodes() uint32 { return n.header.Header.TotalNodes }

// KeyCompareType implements interfaces.BTreeInfoReader.
func (n *Navigator) KeyCompareType() uint8 { return n.header.Header.KeyCompareType }

// Height returns the tree's depth, as recorded in the header node.
func (n *Navigator) Height() uint16 { return n.header.Header.TreeDepth }

// GetNode fetches node number i, decoding and caching it on a miss.
func (n *Navigator) GetNode(i uint32) (*btrees.Node, error) {
	if i == 0 {
		return &n.header.Node, nil
	}
	if cached, ok := n.cache[i]; ok {
		n.touch(i)
		return cached, nil
	}
	nodeSize := int64(n.header.Header.NodeSize)
	buf := make([]byte, nodeSize)
	if _, err := n.fork.ReadAt(buf, int64(i)*nodeSize); err != nil {
		return nil, errs.IO(fmt.Sprintf("reading node %d", i), err).WithNode("", int64(i))
	}
	node, err := btrees.NewNode(buf)
	if err != nil {
		return nil, err
	}
	n.put(i, node)
	return node, nil
}

func (n *Navigator) put(i uint32, node *btrees.Node) {
	if n.capacity > 0 && len(n.cache) >= n.capacity {
		evict := n.order[0]
		n.order = n.order[1:]
		delete(n.cache, evict)
	}
	n.cache[i] = node
	n.order = append(n.order, i)
}

// touch moves cached node i to the most-recently-used end of order.
func (n *Navigator) touch(i uint32) {
	for j, k := range n.order {
		if k == i {
			copy(n.order[j:], n.order[j+1:])
			n.order[len(n.order)-1] = i
			return
		}
	}
}

// recordKey extracts the key portion of record i of node: the first
// two bytes are the key's own length prefix (for variable-length
// keys) or MaxKeyLength (for fixed-length keys); since every key type
// this module decodes self-describes its length via its own
// KeyLength field, the raw record bytes are passed through unsliced
// and the comparator decodes the key prefix itself.
func recordKey(record []byte) []byte { return record }

// search performs the standard B-tree descent: starting at the root,
// binary-search each index node's keys for the rightmost key <= target,
// follow its child pointer, and repeat until a leaf is reached.
// Returns the leaf node and the index of the first record whose key is
// >= target (which may be len(node)'s record count if target exceeds
// every key in the leaf).
func (n *Navigator) search(target []byte) (*btrees.Node, int, error) {
	nodeNum := n.header.Header.RootNode
	for {
		node, err := n.GetNode(nodeNum)
		if err != nil {
			return nil, 0, err
		}
		if node.IsLeaf() {
			idx, err := n.lowerBound(node, target)
			if err != nil {
				return nil, 0, err
			}
			return node, idx, nil
		}
		if !node.IsIndex() {
			return nil, 0, errs.Corrupt(fmt.Sprintf("expected index or leaf node at %d, got kind %d", nodeNum, node.Descriptor().Kind), nil)
		}
		child, err := n.descend(node, target)
		if err != nil {
			return nil, 0, err
		}
		nodeNum = child
	}
}

// lowerBound binary-searches node's records for the first key >= target.
func (n *Navigator) lowerBound(node *btrees.Node, target []byte) (int, error) {
	lo, hi := 0, node.NumRecords()
	for lo < hi {
		mid := (lo + hi) / 2
		rec, err := node.Record(mid)
		if err != nil {
			return 0, err
		}
		if n.cmp.Compare(recordKey(rec), target) < 0 {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	return lo, nil
}

// descend finds the rightmost index-node key <= target and returns
// the child node number it points to (stored as a big-endian uint32
// immediately following the key in an index record).
func (n *Navigator) descend(node *btrees.Node, target []byte) (uint32, error) {
	count := node.NumRecords()
	chosen := 0
	for i := 0; i < count; i++ {
		rec, err := node.Record(i)
		if err != nil {
			return 0, err
		}
		if n.cmp.Compare(recordKey(rec), target) <= 0 {
			chosen = i
		} else {
			break
		}
	}
	rec, err := node.Record(chosen)
	if err != nil {
		return 0, err
	}
	return extractChildOID(rec)
}

// extractChildOID reads the trailing uint32 child-node pointer from an
// index-node record. The pointer always lives in the last four bytes
// of the record, after the self-describing key.
func extractChildOID(rec []byte) (uint32, error) {
	if len(rec) < 4 {
		return 0, errs.Corrupt("index record too short to contain a child pointer", nil)
	}
	b := rec[len(rec)-4:]
	return uint32(b[0])<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3]), nil
}

// Find searches the tree for an exact match of target, returning the
// matching record's raw bytes, or (nil, false, nil) if absent.
func (n *Navigator) Find(target []byte) ([]byte, bool, error) {
	leaf, idx, err := n.search(target)
	if err != nil {
		return nil, false, err
	}
	if idx >= leaf.NumRecords() {
		return nil, false, nil
	}
	rec, err := leaf.Record(idx)
	if err != nil {
		return nil, false, err
	}
	if n.cmp.Compare(recordKey(rec), target) != 0 {
		return nil, false, nil
	}
	return rec, true, nil
}

// VisitFunc is called once per leaf record during a Walk. Returning
// false stops the walk early.
type VisitFunc func(record []byte) (more bool, err error)

// Walk visits every leaf record in key order, starting at the leaf
// reached by searching for start (or the first leaf, if start is nil),
// following leaf forward-links (FLink) until exhausted or the visitor
// returns false.
func (n *Navigator) Walk(start []byte, visit VisitFunc) error {
	var leaf *btrees.Node
	var idx int
	var err error
	if start != nil {
		leaf, idx, err = n.search(start)
	} else {
		leaf, idx, err = n.firstLeaf()
	}
	if err != nil {
		return err
	}
	for leaf != nil {
		for ; idx < leaf.NumRecords(); idx++ {
			rec, err := leaf.Record(idx)
			if err != nil {
				return err
			}
			more, err := visit(rec)
			if err != nil {
				return err
			}
			if !more {
				return nil
			}
		}
		if leaf.Descriptor().FLink == 0 {
			return nil
		}
		leaf, err = n.GetNode(leaf.Descriptor().FLink)
		if err != nil {
			return err
		}
		idx = 0
	}
	return nil
}

// firstLeaf descends the tree always following the first child pointer,
// to find the leftmost leaf node.
func (n *Navigator) firstLeaf() (*btrees.Node, int, error) {
	nodeNum := n.header.Header.RootNode
	for {
		node, err := n.GetNode(nodeNum)
		if err != nil {
			return nil, 0, err
		}
		if node.IsLeaf() {
			return node, 0, nil
		}
		rec, err := node.Record(0)
		if err != nil {
			return nil, 0, err
		}
		nodeNum, err = extractChildOID(rec)
		if err != nil {
			return nil, 0, err
		}
	}
}

// NodeTypeCounts walks the node-used bitmap and tallies how many nodes
// of each kind are marked in-use, a diagnostic supplementing spec.md's
// B-tree engine with original_source's hfs_list_node_types operation.
func (n *Navigator) NodeTypeCounts() (map[int8]int, error) {
	counts := make(map[int8]int)
	total := n.header.Header.TotalNodes
	for i := uint32(0); i < total; i++ {
		if !n.header.NodeUsed(i) {
			continue
		}
		node, err := n.GetNode(i)
		if err != nil {
			return nil, err
		}
		counts[node.Descriptor().Kind]++
	}
	return counts, nil
}
