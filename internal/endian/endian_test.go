package endian

import (
	"encoding/binary"
	"testing"

	"github.com/NSGod/hfsinspect/internal/types"
)

func putString16(buf []byte, off int, s string) int {
	binary.BigEndian.PutUint16(buf[off:], uint16(len(s)))
	off += 2
	for _, r := range s {
		binary.BigEndian.PutUint16(buf[off:], uint16(r))
		off += 2
	}
	return off
}

func TestDecodeBTNodeDescriptor(t *testing.T) {
	buf := make([]byte, 14)
	binary.BigEndian.PutUint32(buf[0:], 0)          // FLink
	binary.BigEndian.PutUint32(buf[4:], 7)          // BLink
	buf[8] = 0xFF                                    // Kind = -1 (leaf)
	buf[9] = 0                                       // Height
	binary.BigEndian.PutUint16(buf[10:], 3)          // NumRecords
	binary.BigEndian.PutUint16(buf[12:], 0)          // Reserved

	d, err := DecodeBTNodeDescriptor(buf)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d.BLink != 7 || d.NumRecords != 3 {
		t.Fatalf("unexpected descriptor: %+v", d)
	}
	if d.Kind != types.BTNodeKindLeaf {
		t.Fatalf("expected leaf node kind, got %d", d.Kind)
	}
}

func TestDecodeBTNodeDescriptorShortBuffer(t *testing.T) {
	if _, err := DecodeBTNodeDescriptor(make([]byte, 5)); err == nil {
		t.Fatal("expected error decoding a truncated node descriptor")
	}
}

func TestDecodeCatalogKey(t *testing.T) {
	buf := make([]byte, 2+4+2+2*5)
	off := 0
	binary.BigEndian.PutUint16(buf[off:], uint16(len(buf)-2))
	off += 2
	binary.BigEndian.PutUint32(buf[off:], 42)
	off += 4
	putString16(buf, off, "hello")

	k, err := DecodeCatalogKey(buf)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if k.ParentID != 42 {
		t.Fatalf("expected parentID 42, got %d", k.ParentID)
	}
	if k.NodeName.Length != 5 || len(k.NodeName.Unicode) != 5 {
		t.Fatalf("unexpected node name: %+v", k.NodeName)
	}
}

func TestDecodeVolumeHeaderRoundTrip(t *testing.T) {
	buf := make([]byte, types.VolumeHeaderSize)
	binary.BigEndian.PutUint16(buf[0:], types.SigHFSPlus)
	binary.BigEndian.PutUint16(buf[2:], 4)
	binary.BigEndian.PutUint32(buf[40:], 4096)      // BlockSize
	binary.BigEndian.PutUint32(buf[44:], 1000)      // TotalBlocks
	binary.BigEndian.PutUint32(buf[48:], 200)       // FreeBlocks

	h, err := DecodeVolumeHeader(buf)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if h.Signature != types.SigHFSPlus {
		t.Fatalf("expected HFS+ signature, got 0x%04X", h.Signature)
	}
	if h.BlockSize != 4096 || h.TotalBlocks != 1000 || h.FreeBlocks != 200 {
		t.Fatalf("unexpected header fields: %+v", h)
	}
}

func TestDecodeMBRSignature(t *testing.T) {
	buf := make([]byte, 512)
	buf[510] = 0x55
	buf[511] = 0xAA
	buf[446+4] = types.MBRTypeAppleHFS // first partition's type byte

	m, err := DecodeMBR(buf)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m.BootSignature != types.MBRSignature {
		t.Fatalf("expected boot signature %v, got %v", types.MBRSignature, m.BootSignature)
	}
	if m.Partitions[0].Type != types.MBRTypeAppleHFS {
		t.Fatalf("expected Apple_HFS type byte, got 0x%02X", m.Partitions[0].Type)
	}
}

func TestDecodeGPTHeaderSignature(t *testing.T) {
	buf := make([]byte, 92)
	copy(buf[0:8], []byte(types.GPTSignature))
	binary.LittleEndian.PutUint64(buf[40:48], 34)
	binary.LittleEndian.PutUint64(buf[48:56], 100)

	h, err := DecodeGPTHeader(buf)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if h.FirstUsableLBA != 34 || h.LastUsableLBA != 100 {
		t.Fatalf("unexpected GPT header: %+v", h)
	}
}
