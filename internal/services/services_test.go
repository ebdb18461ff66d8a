package services

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/NSGod/hfsinspect/internal/config"
	"github.com/NSGod/hfsinspect/internal/device"
	"github.com/NSGod/hfsinspect/internal/types"
)

const testBlockSize = 512

// putU16/putU32/putU64 write big-endian values, matching every on-disk
// HFS+ structure this package decodes via internal/endian.
func putU16(buf []byte, off int, v uint16) { binary.BigEndian.PutUint16(buf[off:], v) }
func putU32(buf []byte, off int, v uint32) { binary.BigEndian.PutUint32(buf[off:], v) }
func putU64(buf []byte, off int, v uint64) { binary.BigEndian.PutUint64(buf[off:], v) }

// forkSpec is the test-side mirror of a single HFSPlusForkData's first
// extent, enough for every fork used in this fixture (none need more
// than one inline extent).
type forkSpec struct {
	logicalSize uint64
	totalBlocks uint32
	startBlock  uint32
	blockCount  uint32
}

func putForkData(buf []byte, off int, fs forkSpec) {
	putU64(buf, off, fs.logicalSize)
	putU32(buf, off+8, fs.blockCount*testBlockSize) // ClumpSize, unused by readers
	putU32(buf, off+12, fs.totalBlocks)
	if fs.blockCount > 0 {
		putU32(buf, off+16, fs.startBlock)
		putU32(buf, off+20, fs.blockCount)
	}
}

func putOffsetTable(buf []byte, offs []uint16) {
	count := len(offs)
	tableStart := len(buf) - count*2
	for i := 0; i < count; i++ {
		putU16(buf, tableStart+i*2, offs[count-1-i])
	}
}

func stringToUnits(s string) []uint16 {
	r := []rune(s)
	out := make([]uint16, len(r))
	for i, c := range r {
		out[i] = uint16(c)
	}
	return out
}

// encodeCatalogKey mirrors internal/managers/catalog's unexported
// encodeKey: a catalog key's stored KeyLength excludes its own 2-byte
// field (see that package's catalog_test.go for the convention check).
func encodeCatalogKey(parentID uint32, name string) []byte {
	units := stringToUnits(name)
	keyLen := 4 + 2 + len(units)*2
	buf := make([]byte, 2+keyLen)
	putU16(buf, 0, uint16(keyLen))
	putU32(buf, 2, parentID)
	putU16(buf, 6, uint16(len(units)))
	for i, u := range units {
		putU16(buf, 8+i*2, u)
	}
	return buf
}

func buildFolderValue(folderID uint32) []byte {
	buf := make([]byte, 88)
	putU16(buf, 0, uint16(types.RecordTypeFolder))
	putU32(buf, 8, folderID)
	return buf
}

func buildFileValue(fileID uint32, data forkSpec) []byte {
	buf := make([]byte, 248)
	putU16(buf, 0, uint16(types.RecordTypeFile))
	putU32(buf, 8, fileID)
	putForkData(buf, 88, data)
	return buf
}

func buildThreadValue(parentID uint32, name string) []byte {
	units := stringToUnits(name)
	buf := make([]byte, 10+2*len(units))
	putU16(buf, 0, uint16(types.RecordTypeFileThread))
	putU32(buf, 4, parentID)
	putU16(buf, 8, uint16(len(units)))
	for i, u := range units {
		putU16(buf, 10+i*2, u)
	}
	return buf
}

func buildRecord(key []byte, value []byte) []byte {
	var buf bytes.Buffer
	buf.Write(key)
	buf.Write(value)
	return buf.Bytes()
}

// buildHeaderNode writes a minimal BTHeaderRec-bearing header node
// into a single testBlockSize-byte page.
func buildHeaderNode(rootNode uint32, totalNodes uint32) []byte {
	buf := make([]byte, testBlockSize)
	buf[8] = 1 // BTNodeKindHeader
	putU16(buf, 10, 3)

	h := 14
	putU16(buf, h, 1)          // TreeDepth
	putU32(buf, h+2, rootNode) // RootNode
	putU16(buf, h+18, testBlockSize)
	putU32(buf, h+22, totalNodes)

	headerEnd := h + 106
	mapStart := headerEnd + 2
	buf[mapStart] = 0xC0

	putOffsetTable(buf, []uint16{uint16(h), uint16(headerEnd), uint16(mapStart), uint16(mapStart + 1)})
	return buf
}

func buildLeafNode(records [][]byte) []byte {
	buf := make([]byte, testBlockSize)
	buf[8] = 0xFF // BTNodeKindLeaf
	putU16(buf, 10, uint16(len(records)))

	offs := make([]uint16, len(records)+1)
	pos := uint16(14)
	for i, rec := range records {
		offs[i] = pos
		copy(buf[pos:], rec)
		pos += uint16(len(rec))
	}
	offs[len(records)] = pos
	putOffsetTable(buf, offs)
	return buf
}

// buildVolumeImage assembles a complete synthetic HFS+ device image:
// boot blocks, volume header, a 1-node extents tree (never walked,
// since every fork here fits in its inline extent), a 2-node catalog
// tree (root folder, "file.txt", its thread record), and the file's
// one-block data fork.
//
// Block layout (testBlockSize each): 0-1 boot, 2 volume header,
// 3 allocation bitmap, 4 extents header, 5-6 catalog header+leaf,
// 7 file data.
func buildVolumeImage(t *testing.T) []byte {
	t.Helper()
	const totalBlocks = 8
	image := make([]byte, totalBlocks*testBlockSize)

	header := make([]byte, types.VolumeHeaderSize)
	putU16(header, 0, types.SigHFSPlus)
	putU16(header, 2, 4) // Version
	putU32(header, 32, 1)           // FileCount
	putU32(header, 36, 1)           // FolderCount
	putU32(header, 40, testBlockSize)
	putU32(header, 44, totalBlocks)
	putU32(header, 48, 3) // FreeBlocks
	putForkData(header, 112, forkSpec{logicalSize: 1, totalBlocks: 1, startBlock: 3, blockCount: 1})  // AllocationFile
	putForkData(header, 192, forkSpec{logicalSize: testBlockSize, totalBlocks: 1, startBlock: 4, blockCount: 1}) // ExtentsFile
	putForkData(header, 272, forkSpec{logicalSize: 2 * testBlockSize, totalBlocks: 2, startBlock: 5, blockCount: 2}) // CatalogFile
	copy(image[types.VolumeHeaderOffset:], header)

	bitmap := make([]byte, testBlockSize)
	bitmap[0] = 0b11100000 // blocks 0-2 used, 3-7 free
	copy(image[3*testBlockSize:], bitmap)

	copy(image[4*testBlockSize:], buildHeaderNode(0, 1)) // empty extents-overflow tree

	rootRecord := buildRecord(encodeCatalogKey(types.RootParentID, ""), buildFolderValue(types.RootFolderID))
	fileRecord := buildRecord(encodeCatalogKey(types.RootFolderID, "file.txt"),
		buildFileValue(16, forkSpec{logicalSize: 11, totalBlocks: 1, startBlock: 7, blockCount: 1}))
	threadRecord := buildRecord(encodeCatalogKey(16, ""), buildThreadValue(types.RootFolderID, "file.txt"))

	copy(image[5*testBlockSize:], buildHeaderNode(1, 2))
	copy(image[6*testBlockSize:], buildLeafNode([][]byte{rootRecord, fileRecord, threadRecord}))

	fileData := make([]byte, testBlockSize)
	copy(fileData, "hello world")
	copy(image[7*testBlockSize:], fileData)

	return image
}

func openTestVolume(t *testing.T) *Volume {
	t.Helper()
	image := buildVolumeImage(t)
	win := device.NewWindow(bytes.NewReader(image), 0, int64(len(image)))
	vols, err := openFromSource(win, config.Default())
	if err != nil {
		t.Fatalf("unexpected error opening synthetic volume: %v", err)
	}
	if len(vols) != 1 {
		t.Fatalf("expected 1 volume, got %d", len(vols))
	}
	return vols[0]
}

func TestOpenFromSourceHeader(t *testing.T) {
	v := openTestVolume(t)
	info := v.VolumeInfo()
	if info.IsHFSX {
		t.Fatal("expected a plain HFS+ volume, not HFSX")
	}
	if info.BlockSize != testBlockSize {
		t.Fatalf("expected block size %d, got %d", testBlockSize, info.BlockSize)
	}
	if info.TotalBlocks != 8 {
		t.Fatalf("expected 8 total blocks, got %d", info.TotalBlocks)
	}
}

func TestResolvePathAndListDir(t *testing.T) {
	v := openTestVolume(t)
	cnid, err := v.ResolvePath("/file.txt")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cnid != 16 {
		t.Fatalf("expected CNID 16, got %d", cnid)
	}

	entries, err := v.ListDir(types.RootFolderID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(entries) != 1 || entries[0].Name != "file.txt" {
		t.Fatalf("unexpected directory listing: %+v", entries)
	}
}

func TestExtractFork(t *testing.T) {
	v := openTestVolume(t)
	fork, err := v.ExtractFork(16, types.ForkTypeData)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if fork.Size() != 11 {
		t.Fatalf("expected fork size 11, got %d", fork.Size())
	}
	buf := make([]byte, 11)
	if _, err := fork.ReadAt(buf, 0); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(buf) != "hello world" {
		t.Fatalf("expected \"hello world\", got %q", buf)
	}
}

func TestFreeSpaceAndFragmentationScan(t *testing.T) {
	v := openTestVolume(t)
	free, err := v.FreeSpaceScan()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(free) != 1 || free[0].StartBlock != 3 || free[0].BlockCount != 5 {
		t.Fatalf("unexpected free-space scan: %+v", free)
	}

	frag, err := v.FragmentationScan()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(frag) != 1 || frag[0].StartBlock != 0 || frag[0].BlockCount != 3 {
		t.Fatalf("unexpected fragmentation scan: %+v", frag)
	}
}

func TestSummary(t *testing.T) {
	v := openTestVolume(t)
	s, err := v.Summary()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.Info.TotalBlocks != 8 || len(s.FreeSpace) != 1 || len(s.Fragmentation) != 1 {
		t.Fatalf("unexpected summary: %+v", s)
	}
}

func hotFileLeafRecord(forkType uint8, temperature, fileID uint32) []byte {
	buf := make([]byte, 12)
	putU16(buf, 0, 10) // KeyLength, excludes itself
	buf[2] = forkType
	putU32(buf, 4, temperature)
	putU32(buf, 8, fileID)
	return buf
}

// buildHotfilesVolumeImage assembles a synthetic device image whose
// root folder contains only the hotfiles tree's backing file
// ("/.hotfiles.btree"), with two ranked entries and the tree's
// sentinel thread record (spec.md §8: "must not be ranked").
//
// Block layout (testBlockSize each): 0-1 boot, 2 volume header,
// 3 allocation bitmap, 4 extents header, 5-6 catalog header+leaf,
// 7-8 hotfiles tree header+leaf.
func buildHotfilesVolumeImage(t *testing.T) []byte {
	t.Helper()
	const totalBlocks = 9
	const hotfilesFileID = 20
	image := make([]byte, totalBlocks*testBlockSize)

	header := make([]byte, types.VolumeHeaderSize)
	putU16(header, 0, types.SigHFSPlus)
	putU16(header, 2, 4)
	putU32(header, 32, 1) // FileCount
	putU32(header, 36, 1) // FolderCount
	putU32(header, 40, testBlockSize)
	putU32(header, 44, totalBlocks)
	putU32(header, 48, 0)
	putForkData(header, 112, forkSpec{logicalSize: 1, totalBlocks: 1, startBlock: 3, blockCount: 1})
	putForkData(header, 192, forkSpec{logicalSize: testBlockSize, totalBlocks: 1, startBlock: 4, blockCount: 1})
	putForkData(header, 272, forkSpec{logicalSize: 2 * testBlockSize, totalBlocks: 2, startBlock: 5, blockCount: 2})
	copy(image[types.VolumeHeaderOffset:], header)

	copy(image[4*testBlockSize:], buildHeaderNode(0, 1)) // empty extents-overflow tree

	rootRecord := buildRecord(encodeCatalogKey(types.RootParentID, ""), buildFolderValue(types.RootFolderID))
	hotfilesFileValue := buildFileValue(hotfilesFileID, forkSpec{logicalSize: 2 * testBlockSize, totalBlocks: 2, startBlock: 7, blockCount: 2})
	hotfilesFileRecord := buildRecord(encodeCatalogKey(types.RootFolderID, ".hotfiles.btree"), hotfilesFileValue)
	threadRecord := buildRecord(encodeCatalogKey(hotfilesFileID, ""), buildThreadValue(types.RootFolderID, ".hotfiles.btree"))

	copy(image[5*testBlockSize:], buildHeaderNode(1, 2))
	copy(image[6*testBlockSize:], buildLeafNode([][]byte{rootRecord, hotfilesFileRecord, threadRecord}))

	// Hotfiles leaf records, already in (temperature, fileID, forkType)
	// ascending order: two ranked entries, then the max-temperature
	// sentinel thread record.
	warm := hotFileLeafRecord(0, 50, 31)
	hot := hotFileLeafRecord(0, 100, 30)
	sentinel := hotFileLeafRecord(0, types.HotFileTemperatureThread, 0)

	copy(image[7*testBlockSize:], buildHeaderNode(1, 2))
	copy(image[8*testBlockSize:], buildLeafNode([][]byte{warm, hot, sentinel}))

	return image
}

func TestHotfileScanRanksDescendingAndSkipsThreadRecord(t *testing.T) {
	image := buildHotfilesVolumeImage(t)
	win := device.NewWindow(bytes.NewReader(image), 0, int64(len(image)))
	vols, err := openFromSource(win, config.Default())
	if err != nil {
		t.Fatalf("unexpected error opening synthetic volume: %v", err)
	}
	v := vols[0]

	entries, err := v.HotfileScan()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 ranked entries (sentinel excluded), got %d: %+v", len(entries), entries)
	}
	if entries[0].FileID != 30 || entries[0].Temperature != 100 {
		t.Fatalf("expected the hottest entry first, got %+v", entries[0])
	}
	if entries[1].FileID != 31 || entries[1].Temperature != 50 {
		t.Fatalf("expected the cooler entry second, got %+v", entries[1])
	}
}
