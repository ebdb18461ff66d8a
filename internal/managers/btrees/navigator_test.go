package btrees

import (
	"encoding/binary"
	"testing"
)

// memFork is a minimal interfaces.Fork backed by an in-memory buffer,
// sized in whole nodeSize-byte pages.
type memFork struct {
	data []byte
}

func (f *memFork) Size() int64 { return int64(len(f.data)) }

func (f *memFork) ReadAt(p []byte, off int64) (int, error) {
	n := copy(p, f.data[off:])
	return n, nil
}

// uint32KeyComparator treats the first 4 bytes of a record as a
// big-endian uint32 sort key, for synthetic single-leaf trees.
type uint32KeyComparator struct{}

func (uint32KeyComparator) Compare(a, b []byte) int {
	ka := binary.BigEndian.Uint32(a[:4])
	kb := binary.BigEndian.Uint32(b[:4])
	switch {
	case ka < kb:
		return -1
	case ka > kb:
		return 1
	default:
		return 0
	}
}

func putOffsetTable(buf []byte, offs []uint16) {
	count := len(offs)
	tableStart := len(buf) - count*2
	for i := 0; i < count; i++ {
		binary.BigEndian.PutUint16(buf[tableStart+i*2:], offs[count-1-i])
	}
}

const testNodeSize = 512

// buildTestHeaderNode builds node 0 of a synthetic 2-node tree (header
// + one leaf), with both nodes marked used in the bitmap.
func buildTestHeaderNode(totalNodes uint32) []byte {
	buf := make([]byte, testNodeSize)
	buf[8] = 1 // BTNodeKindHeader
	binary.BigEndian.PutUint16(buf[10:], 3)

	h := 14
	binary.BigEndian.PutUint16(buf[h:], 1)           // TreeDepth
	binary.BigEndian.PutUint32(buf[h+2:], 1)         // RootNode
	binary.BigEndian.PutUint16(buf[h+18:], testNodeSize) // NodeSize
	binary.BigEndian.PutUint32(buf[h+22:], totalNodes)   // TotalNodes

	headerEnd := h + 106
	mapStart := headerEnd + 2 // skip an empty "user data" record
	buf[mapStart] = 0xC0      // nodes 0 and 1 marked used

	putOffsetTable(buf, []uint16{uint16(h), uint16(headerEnd), uint16(mapStart), uint16(mapStart + 1)})
	return buf
}

// buildTestLeafNode builds a leaf node containing records whose first
// 4 bytes are the given big-endian uint32 keys, one payload byte each.
func buildTestLeafNode(flink uint32, keys []uint32) []byte {
	buf := make([]byte, testNodeSize)
	binary.BigEndian.PutUint32(buf[0:], flink)
	buf[8] = 0xFF // BTNodeKindLeaf (-1)
	binary.BigEndian.PutUint16(buf[10:], uint16(len(keys)))

	offs := make([]uint16, len(keys)+1)
	pos := uint16(14)
	for i, k := range keys {
		offs[i] = pos
		binary.BigEndian.PutUint32(buf[pos:], k)
		buf[pos+4] = byte('A' + i)
		pos += 5
	}
	offs[len(keys)] = pos
	putOffsetTable(buf, offs)
	return buf
}

func newTestNavigator(t *testing.T, keys []uint32) *Navigator {
	t.Helper()
	data := make([]byte, 2*testNodeSize)
	copy(data[0:testNodeSize], buildTestHeaderNode(2))
	copy(data[testNodeSize:2*testNodeSize], buildTestLeafNode(0, keys))

	nav, err := New(&memFork{data: data}, uint32KeyComparator{}, 8)
	if err != nil {
		t.Fatalf("unexpected error building navigator: %v", err)
	}
	return nav
}

func keyRecord(k uint32) []byte {
	rec := make([]byte, 5)
	binary.BigEndian.PutUint32(rec, k)
	return rec
}

func TestNavigatorFind(t *testing.T) {
	nav := newTestNavigator(t, []uint32{10, 20, 30})

	rec, ok, err := nav.Find(keyRecord(20))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ok {
		t.Fatal("expected to find key 20")
	}
	if rec[4] != 'B' {
		t.Fatalf("expected payload 'B' for key 20, got %q", rec[4])
	}

	if _, ok, err := nav.Find(keyRecord(25)); err != nil || ok {
		t.Fatalf("expected key 25 to be absent, got ok=%v err=%v", ok, err)
	}
}

func TestNavigatorWalkVisitsInOrder(t *testing.T) {
	nav := newTestNavigator(t, []uint32{10, 20, 30})

	var seen []uint32
	err := nav.Walk(nil, func(rec []byte) (bool, error) {
		seen = append(seen, binary.BigEndian.Uint32(rec[:4]))
		return true, nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(seen) != 3 || seen[0] != 10 || seen[1] != 20 || seen[2] != 30 {
		t.Fatalf("unexpected walk order: %v", seen)
	}
}

func TestNavigatorWalkStopsEarly(t *testing.T) {
	nav := newTestNavigator(t, []uint32{10, 20, 30})

	var seen int
	err := nav.Walk(nil, func(rec []byte) (bool, error) {
		seen++
		return false, nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if seen != 1 {
		t.Fatalf("expected the visitor to stop after 1 record, got %d", seen)
	}
}

func TestNavigatorNodeTypeCounts(t *testing.T) {
	nav := newTestNavigator(t, []uint32{10, 20, 30})

	counts, err := nav.NodeTypeCounts()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if counts[1] != 1 { // header node kind
		t.Fatalf("expected 1 header node, got %d", counts[1])
	}
	if counts[-1] != 1 { // leaf node kind
		t.Fatalf("expected 1 leaf node, got %d", counts[-1])
	}
}

func TestNavigatorAccessors(t *testing.T) {
	nav := newTestNavigator(t, []uint32{10})
	if nav.RootNode() != 1 {
		t.Fatalf("expected root node 1, got %d", nav.RootNode())
	}
	if nav.NodeSize() != testNodeSize {
		t.Fatalf("expected node size %d, got %d", testNodeSize, nav.NodeSize())
	}
	if nav.TotalNodes() != 2 {
		t.Fatalf("expected 2 total nodes, got %d", nav.TotalNodes())
	}
}
