package volumes

import (
	"encoding/binary"
	"testing"

	"github.com/NSGod/hfsinspect/internal/types"
)

// memSource is a minimal interfaces.BlockSource over an in-memory
// buffer, used to probe the locator without a real device file.
type memSource struct{ data []byte }

func (m *memSource) Len() int64 { return int64(len(m.data)) }

func (m *memSource) ReadAt(p []byte, off int64) (int, error) {
	if off >= int64(len(m.data)) {
		return 0, bytesEOF
	}
	n := copy(p, m.data[off:])
	if n < len(p) {
		return n, bytesEOF
	}
	return n, nil
}

func (m *memSource) ReadBlock(blockSize uint32, blockIndex uint32) ([]byte, error) {
	buf := make([]byte, blockSize)
	_, err := m.ReadAt(buf, int64(blockIndex)*int64(blockSize))
	return buf, err
}

var bytesEOF = bytesEOFError{}

type bytesEOFError struct{}

func (bytesEOFError) Error() string { return "EOF" }

func newDevice(size int) *memSource {
	return &memSource{data: make([]byte, size)}
}

func TestLocateBareHFSPlus(t *testing.T) {
	src := newDevice(int(types.VolumeHeaderOffset) + 64*1024)
	binary.BigEndian.PutUint16(src.data[types.VolumeHeaderOffset:], types.SigHFSPlus)

	parts, err := (Locator{}).Locate(src)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(parts) != 1 {
		t.Fatalf("expected one whole-device partition, got %d", len(parts))
	}
	if parts[0].Subtype != types.FSTypeHFSPlus {
		t.Fatalf("expected FSTypeHFSPlus, got %v", parts[0].Subtype)
	}
}

func TestLocateBareHFSX(t *testing.T) {
	src := newDevice(int(types.VolumeHeaderOffset) + 64*1024)
	binary.BigEndian.PutUint16(src.data[types.VolumeHeaderOffset:], types.SigHFSX)

	parts, err := (Locator{}).Locate(src)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if parts[0].Subtype != types.FSTypeHFSX {
		t.Fatalf("expected FSTypeHFSX, got %v", parts[0].Subtype)
	}
}

func TestLocateMBR(t *testing.T) {
	src := newDevice(4096)
	src.data[510] = 0x55
	src.data[511] = 0xAA
	off := 446
	src.data[off] = 0x80 // status: bootable
	src.data[off+4] = types.MBRTypeAppleHFS
	binary.LittleEndian.PutUint32(src.data[off+8:], 2)  // first sector LBA
	binary.LittleEndian.PutUint32(src.data[off+12:], 10) // sector count

	parts, err := (Locator{}).Locate(src)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(parts) != 1 {
		t.Fatalf("expected 1 MBR partition entry, got %d", len(parts))
	}
	if parts[0].Subtype != types.FSTypeHFSPlus || parts[0].StartLBA != 2 || parts[0].BlockCount != 10 {
		t.Fatalf("unexpected MBR partition: %+v", parts[0])
	}
}

func TestLocateNoRecognizedFormat(t *testing.T) {
	src := newDevice(4096)
	if _, err := (Locator{}).Locate(src); err == nil {
		t.Fatal("expected an error locating a device with no partition map and no volume header")
	}
}

func TestCStringAndUTF16LE(t *testing.T) {
	if got := cString([]byte("hello\x00\x00\x00")); got != "hello" {
		t.Fatalf("expected \"hello\", got %q", got)
	}
	units := []uint16{'h', 'i', 0, 0}
	if got := utf16leToString(units); got != "hi" {
		t.Fatalf("expected \"hi\", got %q", got)
	}
}

func TestIsZeroGUID(t *testing.T) {
	var zero [16]byte
	if !isZeroGUID(zero) {
		t.Fatal("expected the zero GUID to be reported as zero")
	}
	nonZero := zero
	nonZero[0] = 1
	if isZeroGUID(nonZero) {
		t.Fatal("expected a non-zero GUID to not be reported as zero")
	}
}
