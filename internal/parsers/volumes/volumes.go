// Package volumes probes a block source for a partition map (MBR, APM,
// GPT) or a classic-HFS wrapper, and carves out the BlockSource windows
// of any HFS+/HFSX payload found within it. Grounded on the teacher's
// layering of a "locate, then carve a sub-window" parser, and on the
// field layout demonstrated by elliotnunn/BeHierarchic's internal/apm.
package volumes

import (
	"encoding/binary"
	"fmt"

	"github.com/NSGod/hfsinspect/internal/device"
	"github.com/NSGod/hfsinspect/internal/endian"
	"github.com/NSGod/hfsinspect/internal/errs"
	"github.com/NSGod/hfsinspect/internal/interfaces"
	"github.com/NSGod/hfsinspect/internal/types"
)

const apmBlockSize = 512

// Locator implements interfaces.VolumeLocator for MBR, APM, and GPT
// partition maps, plus the classic-HFS wrapper (a plain HFS volume
// whose MDB points at an embedded HFS+ volume).
type Locator struct{}

// Locate probes src for each known partition-map format in turn and,
// failing all three, checks for a bare HFS+/HFSX signature (or a
// classic-HFS wrapper) at offset 0. It returns the partitions found, or
// a single synthetic whole-device entry when no map is present.
func (Locator) Locate(src interfaces.BlockSource) ([]types.PartitionInfo, error) {
	if parts, err := probeAPM(src); err == nil {
		return parts, nil
	}
	if parts, err := probeGPT(src); err == nil {
		return parts, nil
	}
	if parts, err := probeMBR(src); err == nil {
		return parts, nil
	}
	return wholeDeviceEntry(src)
}

// Open carves out a BlockSource windowed to the given partition.
func (Locator) Open(src interfaces.BlockSource, p types.PartitionInfo) (interfaces.BlockSource, error) {
	w, ok := src.(*device.Window)
	if !ok {
		return nil, errs.Unsupported("Open requires a *device.Window block source", nil)
	}
	startByte := int64(p.StartLBA) * apmBlockSize
	lengthByte := int64(p.BlockCount) * apmBlockSize
	sub, err := w.Sub(startByte, lengthByte)
	if err != nil {
		return nil, err
	}
	return sub, nil
}

func readAt(src interfaces.BlockSource, off int64, n int) ([]byte, error) {
	buf := make([]byte, n)
	read, err := src.ReadAt(buf, off)
	if err != nil && read < n {
		return nil, err
	}
	return buf, nil
}

// probeAPM looks for the APM block-size sentinel ("ER") at block 0 and
// the "PM" signature at the following block, matching the driver
// descriptor map layout BeHierarchic's internal/apm decodes.
func probeAPM(src interfaces.BlockSource) ([]types.PartitionInfo, error) {
	ddm, err := readAt(src, 0, 2)
	if err != nil {
		return nil, errs.NotFound("no driver descriptor map", err)
	}
	if ddm[0] != 'E' || ddm[1] != 'R' {
		return nil, errs.NotFound("not an Apple Partition Map", nil)
	}

	first, err := readAt(src, apmBlockSize, apmBlockSize)
	if err != nil {
		return nil, errs.NotFound("no APM entry at block 1", err)
	}
	hdr, err := endian.DecodeAPMHeader(first)
	if err != nil || hdr.Signature != types.APMSignature {
		return nil, errs.NotFound("corrupt Apple Partition Map", err)
	}

	var parts []types.PartitionInfo
	for i := uint32(0); i < hdr.PartitionCount; i++ {
		buf, err := readAt(src, apmBlockSize*int64(i+1), apmBlockSize)
		if err != nil {
			return nil, errs.Corrupt(fmt.Sprintf("truncated APM at entry %d", i), err)
		}
		entry, err := endian.DecodeAPMHeader(buf)
		if err != nil || entry.Signature != types.APMSignature {
			return nil, errs.Corrupt(fmt.Sprintf("corrupt APM entry %d", i), err)
		}
		typeStr := cString(entry.Type[:])
		vtype, vsub := apmClassify(typeStr)
		parts = append(parts, types.PartitionInfo{
			Index:      int(i),
			Type:       vtype,
			Subtype:    vsub,
			Name:       cString(entry.Name[:]),
			TypeString: typeStr,
			StartLBA:   uint64(entry.DataStart),
			BlockCount: uint64(entry.DataLength),
		})
	}
	return parts, nil
}

func apmClassify(typeStr string) (types.VolType, types.VolSubtype) {
	switch typeStr {
	case "Apple_HFS":
		return types.VolTypeUserData, types.FSTypeHFS
	case "Apple_HFSX":
		return types.VolTypeUserData, types.FSTypeHFSX
	case "Apple_Partition_Map":
		return types.VolTypeSystem, types.PMTypeAPM
	case "Apple_Free", "Apple_Void", "Apple_Scratch", "Apple_Extra":
		return types.VolTypeSystem, types.SysFreeSpace
	default:
		return types.VolTypeSystem, types.SysReserved
	}
}

// probeGPT looks for the "EFI PART" signature at LBA 1 (512-byte
// sectors assumed, per spec.md's sector-size assumption note).
func probeGPT(src interfaces.BlockSource) ([]types.PartitionInfo, error) {
	buf, err := readAt(src, apmBlockSize, 92)
	if err != nil {
		return nil, errs.NotFound("no GPT header", err)
	}
	hdr, err := endian.DecodeGPTHeader(buf)
	if err != nil {
		return nil, errs.NotFound("corrupt GPT header", err)
	}
	var sigBytes [8]byte
	binary.LittleEndian.PutUint64(sigBytes[:], hdr.Signature)
	if string(sigBytes[:]) != types.GPTSignature {
		return nil, errs.NotFound("not a GPT disk", nil)
	}

	var parts []types.PartitionInfo
	for i := uint32(0); i < hdr.PartitionEntryCount; i++ {
		off := int64(hdr.PartitionTableStartLBA)*apmBlockSize + int64(i)*int64(hdr.PartitionEntrySize)
		buf, err := readAt(src, off, int(hdr.PartitionEntrySize))
		if err != nil {
			break // ran past the end of the partition table window
		}
		entry, err := endian.DecodeGPTPartitionEntry(buf)
		if err != nil {
			continue
		}
		if isZeroGUID(entry.TypeGUID) {
			continue
		}
		blocks := entry.LastLBA - entry.FirstLBA + 1
		parts = append(parts, types.PartitionInfo{
			Index:      int(i),
			Type:       types.VolTypeUserData,
			Subtype:    types.FSTypeHFSPlus,
			Name:       utf16leToString(entry.Name[:]),
			StartLBA:   entry.FirstLBA,
			BlockCount: blocks,
		})
	}
	if len(parts) == 0 {
		return nil, errs.NotFound("GPT present but no partitions decoded", nil)
	}
	return parts, nil
}

// probeMBR looks for the 0x55AA boot signature and at least one
// non-empty partition table entry.
func probeMBR(src interfaces.BlockSource) ([]types.PartitionInfo, error) {
	buf, err := readAt(src, 0, 512)
	if err != nil {
		return nil, errs.NotFound("no MBR", err)
	}
	mbr, err := endian.DecodeMBR(buf)
	if err != nil {
		return nil, errs.NotFound("corrupt MBR", err)
	}
	if mbr.BootSignature != types.MBRSignature {
		return nil, errs.NotFound("missing MBR boot signature", nil)
	}

	var parts []types.PartitionInfo
	for i, p := range mbr.Partitions {
		if p.Type == 0 {
			continue
		}
		vtype, vsub := mbrClassify(p.Type)
		parts = append(parts, types.PartitionInfo{
			Index:      i,
			Type:       vtype,
			Subtype:    vsub,
			StartLBA:   uint64(p.FirstSectorLBA),
			BlockCount: uint64(p.SectorCount),
		})
	}
	if len(parts) == 0 {
		return nil, errs.NotFound("MBR present but no partitions defined", nil)
	}
	return parts, nil
}

func mbrClassify(t uint8) (types.VolType, types.VolSubtype) {
	switch t {
	case types.MBRTypeGPTProtective:
		return types.VolTypeSystem, types.PMTypeGPT
	case types.MBRTypeAppleHFS, types.MBRTypeAppleBoot:
		return types.VolTypeUserData, types.FSTypeHFSPlus
	default:
		return types.VolTypeUnknown, types.SubtypeUnknown
	}
}

// wholeDeviceEntry handles the no-partition-map case: either a bare
// HFS+/HFSX volume starting at offset 0, or a classic-HFS wrapper whose
// Master Directory Block embeds an HFS+ volume at a drEmbedExtent
// offset. Both are detected by reading the would-be volume header.
func wholeDeviceEntry(src interfaces.BlockSource) ([]types.PartitionInfo, error) {
	buf, err := readAt(src, types.VolumeHeaderOffset, types.VolumeHeaderSize)
	if err != nil {
		return nil, errs.NotFound("no volume header at offset 1024", err)
	}
	sig := binary.BigEndian.Uint16(buf[0:2])
	switch sig {
	case types.SigHFSPlus, types.SigHFSX:
		return []types.PartitionInfo{{
			Index:      0,
			Type:       types.VolTypeUserData,
			Subtype:    volSubtypeForSignature(sig),
			StartLBA:   0,
			BlockCount: uint64(src.Len() / apmBlockSize),
		}}, nil
	case types.SigHFSWrap:
		return wrapperEntry(buf, src)
	default:
		return nil, errs.NotFound(fmt.Sprintf("unrecognized volume signature 0x%04X", sig), nil)
	}
}

func volSubtypeForSignature(sig uint16) types.VolSubtype {
	if sig == types.SigHFSX {
		return types.FSTypeHFSX
	}
	return types.FSTypeHFSPlus
}

// wrapperEntry decodes the classic-HFS Master Directory Block's
// embedded-volume fields (drEmbedSigWord at +0x7C, drEmbedExtent at
// +0x7E: startBlock/blockCount in terms of drAlBlkSiz-sized allocation
// blocks, anchored at drAlBlSt 512-byte-sector offset) to locate the
// HFS+ payload nested inside a classic-HFS wrapper volume.
func wrapperEntry(mdb []byte, src interfaces.BlockSource) ([]types.PartitionInfo, error) {
	if len(mdb) < 0x82 {
		return nil, errs.Corrupt("MDB too short to contain embedded-volume fields", nil)
	}
	embedSig := binary.BigEndian.Uint16(mdb[0x7C:0x7E])
	if embedSig != types.SigHFSPlus && embedSig != types.SigHFSX {
		return nil, errs.NotFound("classic HFS wrapper has no embedded HFS+ volume", nil)
	}
	alBlkSiz := binary.BigEndian.Uint32(mdb[0x14:0x18])
	alBlSt := binary.BigEndian.Uint16(mdb[0x1C:0x1E])
	startBlock := binary.BigEndian.Uint16(mdb[0x7E:0x80])
	blockCount := binary.BigEndian.Uint16(mdb[0x80:0x82])

	startByte := int64(alBlSt)*apmBlockSize + int64(startBlock)*int64(alBlkSiz)
	lengthByte := int64(blockCount) * int64(alBlkSiz)

	return []types.PartitionInfo{{
		Index:      0,
		Type:       types.VolTypeUserData,
		Subtype:    volSubtypeForSignature(embedSig),
		StartLBA:   uint64(startByte) / apmBlockSize,
		BlockCount: uint64(lengthByte) / apmBlockSize,
	}}, nil
}

func cString(b []byte) string {
	for i, c := range b {
		if c == 0 {
			return string(b[:i])
		}
	}
	return string(b)
}

func utf16leToString(units []uint16) string {
	n := len(units)
	for i, u := range units {
		if u == 0 {
			n = i
			break
		}
	}
	r := make([]rune, 0, n)
	for i := 0; i < n; i++ {
		r = append(r, rune(units[i]))
	}
	return string(r)
}

func isZeroGUID(g [16]byte) bool {
	for _, b := range g {
		if b != 0 {
			return false
		}
	}
	return true
}
