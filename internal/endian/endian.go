// Package endian decodes every HFS+/HFSX on-disk structure from its
// stored big-endian byte representation into the corresponding Go
// struct in internal/types. Decoding always copies into a fresh value;
// nothing here reinterprets a byte slice in place, since Go structs do
// not share layout with packed C structs. Reference: spec.md §4.3/§9.
package endian

import (
	"encoding/binary"
	"fmt"

	"github.com/NSGod/hfsinspect/internal/types"
)

// cursor is a small sequential big-endian reader over a fixed buffer,
// grounded on the teacher's field-by-field manual decode style
// (internal/parsers/btrees/btree_node_reader.go parseBTreeNode).
type cursor struct {
	buf []byte
	off int
	err error
}

func newCursor(buf []byte) *cursor { return &cursor{buf: buf} }

func (c *cursor) need(n int) bool {
	if c.err != nil {
		return false
	}
	if c.off+n > len(c.buf) {
		c.err = fmt.Errorf("endian: short buffer: need %d bytes at offset %d, have %d", n, c.off, len(c.buf))
		return false
	}
	return true
}

func (c *cursor) u8() uint8 {
	if !c.need(1) {
		return 0
	}
	v := c.buf[c.off]
	c.off++
	return v
}

func (c *cursor) i8() int8 { return int8(c.u8()) }

func (c *cursor) u16() uint16 {
	if !c.need(2) {
		return 0
	}
	v := binary.BigEndian.Uint16(c.buf[c.off:])
	c.off += 2
	return v
}

func (c *cursor) i16() int16 { return int16(c.u16()) }

func (c *cursor) u32() uint32 {
	if !c.need(4) {
		return 0
	}
	v := binary.BigEndian.Uint32(c.buf[c.off:])
	c.off += 4
	return v
}

func (c *cursor) i32() int32 { return int32(c.u32()) }

func (c *cursor) u64() uint64 {
	if !c.need(8) {
		return 0
	}
	v := binary.BigEndian.Uint64(c.buf[c.off:])
	c.off += 8
	return v
}

func (c *cursor) bytes(n int) []byte {
	if !c.need(n) {
		return make([]byte, n)
	}
	out := make([]byte, n)
	copy(out, c.buf[c.off:c.off+n])
	c.off += n
	return out
}

func (c *cursor) skip(n int) { c.need(n); c.off += n }

// uniStr255 decodes an HFSUniStr255 (a 2-byte length followed by up to
// 255 UTF-16BE code units; the field always reserves space for 255).
func (c *cursor) uniStr255() types.HFSUniStr255 {
	length := c.u16()
	n := int(length)
	if n > types.MaxUniStr255Length {
		n = types.MaxUniStr255Length
	}
	units := make([]uint16, n)
	for i := 0; i < n; i++ {
		units[i] = c.u16()
	}
	return types.HFSUniStr255{Length: length, Unicode: units}
}

func (c *cursor) extentRecord() types.ExtentRecord {
	var rec types.ExtentRecord
	for i := range rec {
		rec[i] = types.ExtentDescriptor{StartBlock: c.u32(), BlockCount: c.u32()}
	}
	return rec
}

func (c *cursor) forkData() types.ForkData {
	return types.ForkData{
		LogicalSize: c.u64(),
		ClumpSize:   c.u32(),
		TotalBlocks: c.u32(),
		Extents:     c.extentRecord(),
	}
}

func (c *cursor) permissions() types.Permissions {
	return types.Permissions{
		OwnerID:    c.u32(),
		GroupID:    c.u32(),
		AdminFlags: c.u8(),
		OwnerFlags: c.u8(),
		FileMode:   c.u16(),
		Special:    c.u32(),
	}
}

func (c *cursor) point() types.Point   { return types.Point{V: c.i16(), H: c.i16()} }
func (c *cursor) rect() types.Rect {
	return types.Rect{Top: c.i16(), Left: c.i16(), Bottom: c.i16(), Right: c.i16()}
}

// DecodeVolumeHeader decodes the 512-byte HFS+/HFSX volume header.
func DecodeVolumeHeader(buf []byte) (*types.VolumeHeader, error) {
	c := newCursor(buf)
	h := &types.VolumeHeader{
		Signature:          c.u16(),
		Version:            c.u16(),
		Attributes:         c.u32(),
		LastMountedVersion: c.u32(),
		JournalInfoBlock:   c.u32(),
		CreateDate:         c.u32(),
		ModifyDate:         c.u32(),
		BackupDate:         c.u32(),
		CheckedDate:        c.u32(),
		FileCount:          c.u32(),
		FolderCount:        c.u32(),
		BlockSize:          c.u32(),
		TotalBlocks:        c.u32(),
		FreeBlocks:         c.u32(),
		NextAllocation:     c.u32(),
		RsrcClumpSize:      c.u32(),
		DataClumpSize:      c.u32(),
		NextCatalogID:      c.u32(),
		WriteCount:         c.u32(),
		EncodingsBitmap:    c.u64(),
	}
	for i := range h.FinderInfo {
		h.FinderInfo[i] = c.u32()
	}
	h.AllocationFile = c.forkData()
	h.ExtentsFile = c.forkData()
	h.CatalogFile = c.forkData()
	h.AttributesFile = c.forkData()
	h.StartupFile = c.forkData()
	if c.err != nil {
		return nil, c.err
	}
	return h, nil
}

// DecodeJournalInfoBlock decodes the 180-byte JournalInfoBlock pointed
// to by a journaled volume header's JournalInfoBlock field.
func DecodeJournalInfoBlock(buf []byte) (*types.JournalInfoBlock, error) {
	c := newCursor(buf)
	j := &types.JournalInfoBlock{Flags: c.u32()}
	for i := range j.DeviceSignature {
		j.DeviceSignature[i] = c.u32()
	}
	j.Offset = c.u64()
	j.Size = c.u64()
	copy(j.RawUUID[:], c.bytes(len(j.RawUUID)))
	if c.err != nil {
		return nil, c.err
	}
	return j, nil
}

// DecodeBTNodeDescriptor decodes the 14-byte node descriptor at the
// start of a B-tree node buffer.
func DecodeBTNodeDescriptor(buf []byte) (types.BTNodeDescriptor, error) {
	c := newCursor(buf)
	d := types.BTNodeDescriptor{
		FLink:      c.u32(),
		BLink:      c.u32(),
		Kind:       c.i8(),
		Height:     c.u8(),
		NumRecords: c.u16(),
		Reserved:   c.u16(),
	}
	return d, c.err
}

// DecodeBTHeaderRec decodes the 106-byte header record stored as record
// 0 of a B-tree's header node.
func DecodeBTHeaderRec(buf []byte) (*types.BTHeaderRec, error) {
	c := newCursor(buf)
	h := &types.BTHeaderRec{
		TreeDepth:      c.u16(),
		RootNode:       c.u32(),
		LeafRecords:    c.u32(),
		FirstLeafNode:  c.u32(),
		LastLeafNode:   c.u32(),
		NodeSize:       c.u16(),
		MaxKeyLength:   c.u16(),
		TotalNodes:     c.u32(),
		FreeNodes:      c.u32(),
		Reserved1:      c.u16(),
		ClumpSize:      c.u32(),
		BTreeType:      c.u8(),
		KeyCompareType: c.u8(),
		Attributes:     c.u32(),
	}
	if c.err != nil {
		return nil, c.err
	}
	return h, nil
}

// DecodeCatalogKey decodes an HFSPlusCatalogKey.
func DecodeCatalogKey(buf []byte) (*types.CatalogKey, error) {
	c := newCursor(buf)
	k := &types.CatalogKey{
		KeyLength: c.u16(),
		ParentID:  c.u32(),
		NodeName:  c.uniStr255(),
	}
	if c.err != nil {
		return nil, c.err
	}
	return k, nil
}

// DecodeCatalogFolder decodes an HFSPlusCatalogFolder record value.
// buf must start at the record type field.
func DecodeCatalogFolder(buf []byte) (*types.CatalogFolder, error) {
	c := newCursor(buf)
	f := &types.CatalogFolder{
		RecordType:       c.i16(),
		Flags:            c.u16(),
		Valence:          c.u32(),
		FolderID:         c.u32(),
		CreateDate:       c.u32(),
		ContentModDate:   c.u32(),
		AttributeModDate: c.u32(),
		AccessDate:       c.u32(),
		BackupDate:       c.u32(),
		Permissions:      c.permissions(),
	}
	f.UserInfo = types.FolderInfo{
		WindowBounds:  c.rect(),
		FinderFlags:   c.u16(),
		Location:      c.point(),
		ReservedField: c.u16(),
	}
	f.FinderInfo = types.ExtendedFolderInfo{
		ScrollPosition:      c.point(),
		Reserved1:           c.i32(),
		ExtendedFinderFlags: c.u16(),
		Reserved2:           c.i16(),
		PutAwayFolderID:     c.u32(),
	}
	f.TextEncoding = c.u32()
	f.FolderCount = c.u32()
	if c.err != nil {
		return nil, c.err
	}
	return f, nil
}

// DecodeCatalogFile decodes an HFSPlusCatalogFile record value.
func DecodeCatalogFile(buf []byte) (*types.CatalogFile, error) {
	c := newCursor(buf)
	f := &types.CatalogFile{
		RecordType:       c.i16(),
		Flags:            c.u16(),
		Reserved1:        c.u32(),
		FileID:           c.u32(),
		CreateDate:       c.u32(),
		ContentModDate:   c.u32(),
		AttributeModDate: c.u32(),
		AccessDate:       c.u32(),
		BackupDate:       c.u32(),
		Permissions:      c.permissions(),
	}
	f.UserInfo = types.FileInfo{
		FileType:      c.u32(),
		FileCreator:   c.u32(),
		FinderFlags:   c.u16(),
		Location:      c.point(),
		ReservedField: c.u16(),
	}
	var r1 [4]int16
	for i := range r1 {
		r1[i] = c.i16()
	}
	f.FinderInfo = types.ExtendedFileInfo{
		Reserved1:           r1,
		ExtendedFinderFlags: c.u16(),
		Reserved2:           c.i16(),
		PutAwayFolderID:     c.u32(),
	}
	f.TextEncoding = c.u32()
	f.Reserved2 = c.u32()
	f.DataFork = c.forkData()
	f.ResourceFork = c.forkData()
	if c.err != nil {
		return nil, c.err
	}
	return f, nil
}

// DecodeCatalogThread decodes an HFSPlusCatalogThread record value.
func DecodeCatalogThread(buf []byte) (*types.CatalogThread, error) {
	c := newCursor(buf)
	t := &types.CatalogThread{
		RecordType: c.i16(),
		Reserved:   c.i16(),
		ParentID:   c.u32(),
		NodeName:   c.uniStr255(),
	}
	if c.err != nil {
		return nil, c.err
	}
	return t, nil
}

// DecodeExtentKey decodes an HFSPlusExtentKey.
func DecodeExtentKey(buf []byte) (*types.ExtentKey, error) {
	c := newCursor(buf)
	k := &types.ExtentKey{
		KeyLength:  c.u16(),
		ForkType:   c.u8(),
		Pad:        c.u8(),
		FileID:     c.u32(),
		StartBlock: c.u32(),
	}
	if c.err != nil {
		return nil, c.err
	}
	return k, nil
}

// DecodeExtentRecord decodes the 8-descriptor record value of an
// extents-overflow-file leaf record.
func DecodeExtentRecord(buf []byte) (types.ExtentRecord, error) {
	c := newCursor(buf)
	rec := c.extentRecord()
	return rec, c.err
}

// DecodeAttrKey decodes an HFSPlusAttrKey.
func DecodeAttrKey(buf []byte) (*types.AttrKey, error) {
	c := newCursor(buf)
	k := &types.AttrKey{
		KeyLength:  c.u16(),
		Pad:        c.u16(),
		FileID:     c.u32(),
		StartBlock: c.u32(),
	}
	k.AttrNameLen = c.u16()
	n := int(k.AttrNameLen)
	if n > types.MaxAttrNameLength {
		n = types.MaxAttrNameLength
	}
	k.AttrName = make([]uint16, n)
	for i := 0; i < n; i++ {
		k.AttrName[i] = c.u16()
	}
	if c.err != nil {
		return nil, c.err
	}
	return k, nil
}

// DecodeAttrInlineData decodes an inline attribute value record.
func DecodeAttrInlineData(buf []byte) (*types.AttrInlineData, error) {
	c := newCursor(buf)
	a := &types.AttrInlineData{RecordType: c.u32()}
	a.Reserved1[0] = c.u32()
	a.Reserved1[1] = c.u32()
	a.Size = c.u32()
	a.Data = c.bytes(int(a.Size))
	if c.err != nil {
		return nil, c.err
	}
	return a, nil
}

// DecodeAttrForkData decodes a fork-data attribute value record.
func DecodeAttrForkData(buf []byte) (*types.AttrForkData, error) {
	c := newCursor(buf)
	a := &types.AttrForkData{
		RecordType: c.u32(),
		Reserved:   c.u32(),
		TheFork:    c.forkData(),
	}
	if c.err != nil {
		return nil, c.err
	}
	return a, nil
}

// DecodeAttrExtents decodes an extents-overflow attribute value record.
func DecodeAttrExtents(buf []byte) (*types.AttrExtents, error) {
	c := newCursor(buf)
	a := &types.AttrExtents{
		RecordType: c.u32(),
		Reserved:   c.u32(),
		Extents:    c.extentRecord(),
	}
	if c.err != nil {
		return nil, c.err
	}
	return a, nil
}

// DecodeHotFileKey decodes a hotfiles B-tree key.
func DecodeHotFileKey(buf []byte) (*types.HotFileKey, error) {
	c := newCursor(buf)
	k := &types.HotFileKey{
		KeyLength:   c.u16(),
		ForkType:    c.u8(),
		Pad:         c.u8(),
		Temperature: c.u32(),
		FileID:      c.u32(),
	}
	if c.err != nil {
		return nil, c.err
	}
	return k, nil
}

// DecodeHotFilesHeader decodes the hotfiles tree's bookkeeping record.
func DecodeHotFilesHeader(buf []byte) (*types.HotFilesHeader, error) {
	c := newCursor(buf)
	h := &types.HotFilesHeader{
		Magic:        c.u32(),
		Version:      c.u32(),
		Duration:     c.u32(),
		TimeLeft:     c.u32(),
		Threshold:    c.u32(),
		MaxFileCount: c.u32(),
		MaxFileSize:  c.u32(),
	}
	copy(h.Tag[:], c.bytes(len(h.Tag)))
	if c.err != nil {
		return nil, c.err
	}
	return h, nil
}

// DecodeMBR decodes a 512-byte classic Master Boot Record. Unlike the
// other decoders in this file, MBR numeric fields are little-endian on
// disk (x86 convention), so this one uses binary.LittleEndian directly
// rather than the big-endian cursor.
func DecodeMBR(buf []byte) (*types.MBR, error) {
	if len(buf) < 512 {
		return nil, fmt.Errorf("endian: MBR buffer too short: %d bytes", len(buf))
	}
	var m types.MBR
	copy(m.Bootstrap[:], buf[0:440])
	m.DiskSignature = binary.LittleEndian.Uint32(buf[440:444])
	m.Reserved0 = binary.LittleEndian.Uint16(buf[444:446])
	off := 446
	for i := 0; i < 4; i++ {
		p := &m.Partitions[i]
		p.Status = buf[off]
		copy(p.FirstCHS[:], buf[off+1:off+4])
		p.Type = buf[off+4]
		copy(p.LastCHS[:], buf[off+5:off+8])
		p.FirstSectorLBA = binary.LittleEndian.Uint32(buf[off+8 : off+12])
		p.SectorCount = binary.LittleEndian.Uint32(buf[off+12 : off+16])
		off += 16
	}
	copy(m.BootSignature[:], buf[510:512])
	return &m, nil
}

// DecodeAPMHeader decodes a single 136-byte Apple Partition Map entry
// (APM fields, unlike MBR's, are big-endian, matching every other HFS+
// on-disk structure).
func DecodeAPMHeader(buf []byte) (*types.APMHeader, error) {
	c := newCursor(buf)
	h := &types.APMHeader{
		Signature:      c.u16(),
		Reserved1:      c.u16(),
		PartitionCount: c.u32(),
		PartitionStart: c.u32(),
		PartitionLength: c.u32(),
	}
	copy(h.Name[:], c.bytes(len(h.Name)))
	copy(h.Type[:], c.bytes(len(h.Type)))
	h.DataStart = c.u32()
	h.DataLength = c.u32()
	h.Status = c.u32()
	h.BootCodeStart = c.u32()
	h.BootCodeLength = c.u32()
	h.BootLoaderAddr = c.u32()
	h.Reserved2 = c.u32()
	h.BootCodeEntry = c.u32()
	h.Reserved3 = c.u32()
	h.BootCodeChecksum = c.u32()
	copy(h.ProcessorType[:], c.bytes(len(h.ProcessorType)))
	if c.err != nil {
		return nil, c.err
	}
	return h, nil
}

// DecodeGPTHeader decodes a GPT header. GPT numeric fields are
// little-endian on disk, per the UEFI specification.
func DecodeGPTHeader(buf []byte) (*types.GPTHeader, error) {
	if len(buf) < 92 {
		return nil, fmt.Errorf("endian: GPT header buffer too short: %d bytes", len(buf))
	}
	le := binary.LittleEndian
	h := &types.GPTHeader{
		Signature:   le.Uint64(buf[0:8]),
		Revision:    le.Uint32(buf[8:12]),
		HeaderSize:  le.Uint32(buf[12:16]),
		CRC32:       le.Uint32(buf[16:20]),
		Reserved:    le.Uint32(buf[20:24]),
		CurrentLBA:  le.Uint64(buf[24:32]),
		BackupLBA:   le.Uint64(buf[32:40]),
		FirstUsableLBA: le.Uint64(buf[40:48]),
		LastUsableLBA:  le.Uint64(buf[48:56]),
	}
	copy(h.DiskGUID[:], buf[56:72])
	h.PartitionTableStartLBA = le.Uint64(buf[72:80])
	h.PartitionEntryCount = le.Uint32(buf[80:84])
	h.PartitionEntrySize = le.Uint32(buf[84:88])
	h.PartitionTableCRC32 = le.Uint32(buf[88:92])
	return h, nil
}

// DecodeGPTPartitionEntry decodes a single 128-byte GPT partition entry.
func DecodeGPTPartitionEntry(buf []byte) (*types.GPTPartitionEntry, error) {
	if len(buf) < 128 {
		return nil, fmt.Errorf("endian: GPT partition entry buffer too short: %d bytes", len(buf))
	}
	le := binary.LittleEndian
	var e types.GPTPartitionEntry
	copy(e.TypeGUID[:], buf[0:16])
	copy(e.UniqueGUID[:], buf[16:32])
	e.FirstLBA = le.Uint64(buf[32:40])
	e.LastLBA = le.Uint64(buf[40:48])
	e.Attributes = le.Uint64(buf[48:56])
	for i := 0; i < 36; i++ {
		e.Name[i] = le.Uint16(buf[56+i*2 : 58+i*2])
	}
	return &e, nil
}
