package catalog

import (
	"encoding/binary"
	"testing"

	"github.com/NSGod/hfsinspect/internal/types"
)

func catalogKeyBytes(parentID uint32, name string) []byte {
	units := []rune(name)
	buf := make([]byte, 2+4+2+2*len(units))
	off := 0
	binary.BigEndian.PutUint16(buf[off:], uint16(len(buf)-2))
	off += 2
	binary.BigEndian.PutUint32(buf[off:], parentID)
	off += 4
	binary.BigEndian.PutUint16(buf[off:], uint16(len(units)))
	off += 2
	for _, r := range units {
		binary.BigEndian.PutUint16(buf[off:], uint16(r))
		off += 2
	}
	return buf
}

func TestCaseFoldingComparatorOrdersByParentThenFoldedName(t *testing.T) {
	cmp := CaseFoldingComparator{}
	if c := cmp.Compare(catalogKeyBytes(2, "a"), catalogKeyBytes(3, "a")); c >= 0 {
		t.Fatalf("expected parent 2 to sort before parent 3, got %d", c)
	}
	if c := cmp.Compare(catalogKeyBytes(2, "README"), catalogKeyBytes(2, "readme")); c != 0 {
		t.Fatalf("expected case-insensitive equality, got %d", c)
	}
	if c := cmp.Compare(catalogKeyBytes(2, "apple"), catalogKeyBytes(2, "banana")); c >= 0 {
		t.Fatalf("expected \"apple\" to sort before \"banana\", got %d", c)
	}
}

func TestBinaryComparatorIsCaseSensitive(t *testing.T) {
	cmp := BinaryComparator{}
	if c := cmp.Compare(catalogKeyBytes(2, "README"), catalogKeyBytes(2, "readme")); c == 0 {
		t.Fatal("expected binary comparator to distinguish case")
	}
}

func TestComparatorForKeyCompareType(t *testing.T) {
	if _, ok := ComparatorForKeyCompareType(types.KeyCompareBinary).(BinaryComparator); !ok {
		t.Fatal("expected a BinaryComparator for KeyCompareBinary")
	}
	if _, ok := ComparatorForKeyCompareType(types.KeyCompareCaseFolding).(CaseFoldingComparator); !ok {
		t.Fatal("expected a CaseFoldingComparator for KeyCompareCaseFolding")
	}
}

func extentKeyBytes(fileID, startBlock uint32, forkType uint8) []byte {
	buf := make([]byte, 12)
	binary.BigEndian.PutUint16(buf[0:], 10)
	buf[2] = forkType
	binary.BigEndian.PutUint32(buf[4:], fileID)
	binary.BigEndian.PutUint32(buf[8:], startBlock)
	return buf
}

func TestExtentsComparatorOrdersByFileIDThenStartBlock(t *testing.T) {
	cmp := ExtentsComparator{}
	if c := cmp.Compare(extentKeyBytes(10, 0, 0), extentKeyBytes(20, 0, 0)); c >= 0 {
		t.Fatalf("expected file 10 to sort before file 20, got %d", c)
	}
	if c := cmp.Compare(extentKeyBytes(10, 5, 0), extentKeyBytes(10, 50, 0)); c >= 0 {
		t.Fatalf("expected start block 5 to sort before 50, got %d", c)
	}
}

func hotFileKeyBytes(forkType uint8, temperature, fileID uint32) []byte {
	buf := make([]byte, 12)
	binary.BigEndian.PutUint16(buf[0:], 10)
	buf[2] = forkType
	binary.BigEndian.PutUint32(buf[4:], temperature)
	binary.BigEndian.PutUint32(buf[8:], fileID)
	return buf
}

func TestHotFilesComparatorOrdersByTemperature(t *testing.T) {
	cmp := HotFilesComparator{}
	if c := cmp.Compare(hotFileKeyBytes(0, 5, 1), hotFileKeyBytes(0, 50, 1)); c >= 0 {
		t.Fatalf("expected lower temperature to sort first, got %d", c)
	}
}

func TestHotFilesComparatorBreaksTiesByFileIDThenForkType(t *testing.T) {
	cmp := HotFilesComparator{}
	if c := cmp.Compare(hotFileKeyBytes(1, 5, 1), hotFileKeyBytes(0, 5, 2)); c >= 0 {
		t.Fatalf("expected same temperature to order by fileID next, got %d", c)
	}
	if c := cmp.Compare(hotFileKeyBytes(0, 5, 1), hotFileKeyBytes(1, 5, 1)); c >= 0 {
		t.Fatalf("expected same temperature and fileID to order by forkType last, got %d", c)
	}
}
