// Package services composes the parser and manager layers into the
// embedder-facing operations of spec.md §6: opening a volume (with or
// without a partition map), reading its header, walking its catalog,
// resolving paths, extracting forks, and running the allocation
// analyses. Grounded on the teacher's internal/services / pkg/services
// composition layer sitting above its managers.
package services

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/NSGod/hfsinspect/internal/config"
	"github.com/NSGod/hfsinspect/internal/device"
	"github.com/NSGod/hfsinspect/internal/endian"
	"github.com/NSGod/hfsinspect/internal/errs"
	"github.com/NSGod/hfsinspect/internal/interfaces"
	"github.com/NSGod/hfsinspect/internal/managers/allocation"
	managerbtrees "github.com/NSGod/hfsinspect/internal/managers/btrees"
	managercatalog "github.com/NSGod/hfsinspect/internal/managers/catalog"
	"github.com/NSGod/hfsinspect/internal/parsers/catalog"
	"github.com/NSGod/hfsinspect/internal/parsers/forks"
	"github.com/NSGod/hfsinspect/internal/parsers/volumes"
	"github.com/NSGod/hfsinspect/internal/types"
)

// Volume is a single opened HFS+/HFSX payload, positioned inside
// whatever partition map (or wrapper) its device.Window was carved
// from by Open.
type Volume struct {
	src       interfaces.BlockSource
	header    *types.VolumeHeader
	cfg       *config.Config
	partition types.PartitionInfo

	extentsNav  *managerbtrees.Navigator
	catalogNav  *managerbtrees.Navigator
	catalogMgr  *managercatalog.Manager
	attrsNav    *managerbtrees.Navigator
	hotfilesNav *managerbtrees.Navigator
}

// Open opens path, locates any partition map, and returns one Volume
// per HFS+/HFSX payload found (normally one, but an APM/GPT disk image
// may contain several).
func Open(path string, cfg *config.Config) ([]*Volume, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	win, err := device.Open(path)
	if err != nil {
		return nil, err
	}
	return openFromSource(win, cfg)
}

func openFromSource(src interfaces.BlockSource, cfg *config.Config) ([]*Volume, error) {
	loc := volumes.Locator{}
	parts, err := loc.Locate(src)
	if err != nil {
		return nil, err
	}
	var vols []*Volume
	for _, p := range parts {
		if p.Type != types.VolTypeUserData {
			continue
		}
		if p.Subtype != types.FSTypeHFSPlus && p.Subtype != types.FSTypeHFSX {
			continue
		}
		sub, err := loc.Open(src, p)
		if err != nil {
			return nil, err
		}
		v, err := openHeader(sub, cfg)
		if err != nil {
			return nil, err
		}
		v.partition = p
		vols = append(vols, v)
	}
	if len(vols) == 0 {
		return nil, errs.NotFound("no HFS+/HFSX payload found", nil)
	}
	return vols, nil
}

func openHeader(src interfaces.BlockSource, cfg *config.Config) (*Volume, error) {
	buf := make([]byte, types.VolumeHeaderSize)
	if _, err := src.ReadAt(buf, types.VolumeHeaderOffset); err != nil {
		return nil, errs.IO("reading volume header", err)
	}
	hdr, err := endian.DecodeVolumeHeader(buf)
	if err != nil {
		return nil, err
	}
	if hdr.Signature != types.SigHFSPlus && hdr.Signature != types.SigHFSX {
		return nil, errs.Corrupt(fmt.Sprintf("unrecognized volume signature 0x%04X", hdr.Signature), nil)
	}
	return &Volume{src: src, header: hdr, cfg: cfg}, nil
}

// Header returns the decoded volume header.
func (v *Volume) Header() *types.VolumeHeader { return v.header }

// Name returns the partition map name this Volume was opened from, or
// "" for a bare (un-partitioned) HFS+/HFSX payload.
func (v *Volume) Name() string { return v.partition.Name }

// PartitionIndex returns the partition map index this Volume was
// opened from, or 0 for a bare (un-partitioned) HFS+/HFSX payload.
func (v *Volume) PartitionIndex() int { return v.partition.Index }

// VolumeInfo is a printable summary of the header's identity fields,
// including a best-effort UUID reconstruction from FinderInfo[6]/[7]
// per SPEC_FULL.md §2's domain-stack wiring of google/uuid.
type VolumeInfo struct {
	IsHFSX              bool
	CreateDate          string
	ModifyDate          string
	BlockSize           uint32
	TotalBlocks         uint32
	FreeBlocks          uint32
	FileCount           uint32
	FolderCount         uint32
	Journaled           bool
	JournalInfoBlockNum uint32
	JournalInfo         *types.JournalInfoBlock
	FinderInfoUID       uuid.UUID // bytes 0-7 from FinderInfo[6]/[7]; bytes 8-15 are zero
}

// VolumeInfo assembles the embedder-facing summary of the header.
func (v *Volume) VolumeInfo() VolumeInfo {
	h := v.header
	var id uuid.UUID
	var buf [16]byte
	buf[0] = byte(h.FinderInfo[6] >> 24)
	buf[1] = byte(h.FinderInfo[6] >> 16)
	buf[2] = byte(h.FinderInfo[6] >> 8)
	buf[3] = byte(h.FinderInfo[6])
	buf[4] = byte(h.FinderInfo[7] >> 24)
	buf[5] = byte(h.FinderInfo[7] >> 16)
	buf[6] = byte(h.FinderInfo[7] >> 8)
	buf[7] = byte(h.FinderInfo[7])
	id, _ = uuid.FromBytes(buf[:])

	journaled := h.Attributes&types.VolumeJournaledMask != 0
	info := VolumeInfo{
		IsHFSX:              h.IsHFSX(),
		CreateDate:          types.HFSTime(h.CreateDate).String(),
		ModifyDate:          types.HFSTime(h.ModifyDate).String(),
		BlockSize:           h.BlockSize,
		TotalBlocks:         h.TotalBlocks,
		FreeBlocks:          h.FreeBlocks,
		FileCount:           h.FileCount,
		FolderCount:         h.FolderCount,
		Journaled:           journaled,
		JournalInfoBlockNum: h.JournalInfoBlock,
		FinderInfoUID:       id,
	}
	if journaled {
		if jib, err := v.readJournalInfoBlock(); err == nil {
			info.JournalInfo = jib
		}
	}
	return info
}

// readJournalInfoBlock reads and decodes the 180-byte JournalInfoBlock
// at the allocation block the header's JournalInfoBlock field names.
// Reported read-only; the core never replays the journal (spec.md §1).
func (v *Volume) readJournalInfoBlock() (*types.JournalInfoBlock, error) {
	buf := make([]byte, 180)
	off := int64(v.header.JournalInfoBlock) * int64(v.header.BlockSize)
	if _, err := v.src.ReadAt(buf, off); err != nil {
		return nil, errs.IO("reading journal info block", err)
	}
	return endian.DecodeJournalInfoBlock(buf)
}

// openFork opens a fork as an interfaces.Fork. fork is either a
// special file's ForkData from the header (AllocationFile/CatalogFile/
// AttributesFile/...) or a file record's data or resource fork.
func (v *Volume) openFork(fileID uint32, forkType uint8, fork types.ForkData) (interfaces.Fork, error) {
	var overflow forks.OverflowSource
	if v.extentsNav != nil {
		overflow = extentsOverflow{v.extentsNav}
	}
	return forks.Open(v.src, overflow, fileID, forkType, v.header.BlockSize, fork)
}

// extentsOverflow adapts a catalog/extents Navigator to
// forks.OverflowSource by searching the extents tree for the
// (fileID, forkType, startBlock) key.
type extentsOverflow struct{ nav *managerbtrees.Navigator }

func (e extentsOverflow) ExtentsForFork(fileID uint32, forkType uint8, startBlock uint32) (types.ExtentRecord, bool, error) {
	key := encodeExtentKey(fileID, forkType, startBlock)
	rec, ok, err := e.nav.Find(key)
	if err != nil || !ok {
		return types.ExtentRecord{}, ok, err
	}
	val, err := stripExtentKeyPrefix(rec)
	if err != nil {
		return types.ExtentRecord{}, false, err
	}
	extRec, err := endian.DecodeExtentRecord(val)
	return extRec, err == nil, err
}

func encodeExtentKey(fileID uint32, forkType uint8, startBlock uint32) []byte {
	b := make([]byte, 12)
	b[0], b[1] = 0, 10 // keyLength
	b[2] = forkType
	b[3] = 0
	b[4] = byte(fileID >> 24)
	b[5] = byte(fileID >> 16)
	b[6] = byte(fileID >> 8)
	b[7] = byte(fileID)
	b[8] = byte(startBlock >> 24)
	b[9] = byte(startBlock >> 16)
	b[10] = byte(startBlock >> 8)
	b[11] = byte(startBlock)
	return b
}

func stripExtentKeyPrefix(rec []byte) ([]byte, error) {
	if len(rec) < 12 {
		return nil, errs.Corrupt("extents record too short", nil)
	}
	keyLen := int(rec[0])<<8 | int(rec[1])
	skip := 2 + keyLen
	if skip%2 != 0 {
		skip++
	}
	if skip > len(rec) {
		return nil, errs.Corrupt("extents record key length overruns record", nil)
	}
	return rec[skip:], nil
}

// ensureExtentsTree lazily opens and caches the extents-overflow
// B-tree, needed before any fork (the catalog and attributes files
// included) can chase overflow records. The extents file itself is
// opened from its inline extents only.
func (v *Volume) ensureExtentsTree() error {
	if v.extentsNav != nil {
		return nil
	}
	fork, err := forks.Open(v.src, nil, types.ExtentsFileID, types.ForkTypeData, v.header.BlockSize, v.header.ExtentsFile)
	if err != nil {
		return err
	}
	nav, err := managerbtrees.New(fork, catalog.ExtentsComparator{}, v.cfg.BTreeNodeCacheSize)
	if err != nil {
		return err
	}
	v.extentsNav = nav
	return nil
}

// ensureCatalogTree lazily opens and caches the catalog B-tree.
func (v *Volume) ensureCatalogTree() error {
	if v.catalogNav != nil {
		return nil
	}
	if err := v.ensureExtentsTree(); err != nil {
		return err
	}
	fork, err := v.openFork(types.CatalogFileID, types.ForkTypeData, v.header.CatalogFile)
	if err != nil {
		return err
	}
	probe := make([]byte, 512)
	if _, err := fork.ReadAt(probe, 0); err != nil {
		return errs.IO("probing catalog header node", err)
	}
	hdr, err := endian.DecodeBTHeaderRec(probe[14:])
	if err != nil {
		return err
	}
	cmp := catalog.ComparatorForKeyCompareType(hdr.KeyCompareType)
	nav, err := managerbtrees.New(fork, cmp, v.cfg.BTreeNodeCacheSize)
	if err != nil {
		return err
	}
	v.catalogNav = nav
	v.catalogMgr = managercatalog.New(nav)
	return nil
}

// ensureAttributesTree lazily opens and caches the attributes B-tree,
// the third of the four B-trees spec.md §6 requires the embedder
// interface be able to iterate (catalog, extents, attributes, hotfiles).
func (v *Volume) ensureAttributesTree() error {
	if v.attrsNav != nil {
		return nil
	}
	if err := v.ensureExtentsTree(); err != nil {
		return err
	}
	fork, err := v.openFork(types.AttributesFileID, types.ForkTypeData, v.header.AttributesFile)
	if err != nil {
		return err
	}
	nav, err := managerbtrees.New(fork, catalog.AttrsComparator{}, v.cfg.BTreeNodeCacheSize)
	if err != nil {
		return err
	}
	v.attrsNav = nav
	return nil
}

// ensureHotfilesTree lazily opens and caches the hotfiles B-tree. Unlike
// catalog/extents/attributes, the hotfiles tree has no dedicated
// ForkData in the volume header: it is an ordinary file at
// "/.hotfiles.btree" under the root folder, resolved by catalog-path
// lookup like any other file (spec.md §4.6).
func (v *Volume) ensureHotfilesTree() error {
	if v.hotfilesNav != nil {
		return nil
	}
	cnid, err := v.ResolvePath("/" + types.HotFilesFileName)
	if err != nil {
		return err
	}
	fork, err := v.ExtractFork(cnid, types.ForkTypeData)
	if err != nil {
		return err
	}
	nav, err := managerbtrees.New(fork, catalog.HotFilesComparator{}, v.cfg.BTreeNodeCacheSize)
	if err != nil {
		return err
	}
	v.hotfilesNav = nav
	return nil
}

// ResolvePath returns the CNID named by path ("/" for the root).
func (v *Volume) ResolvePath(path string) (uint32, error) {
	if err := v.ensureCatalogTree(); err != nil {
		return 0, err
	}
	return v.catalogMgr.CNIDForPath(path)
}

// PathOf returns the absolute path of cnid. mountPrefix, if non-empty,
// is prepended verbatim (see DESIGN.md decision 3: mount-point
// discovery is out of scope for the core).
func (v *Volume) PathOf(cnid uint32, mountPrefix string) (string, error) {
	if err := v.ensureCatalogTree(); err != nil {
		return "", err
	}
	p, err := v.catalogMgr.PathForCNID(cnid)
	if err != nil {
		return "", err
	}
	if mountPrefix == "" {
		return p, nil
	}
	return mountPrefix + p, nil
}

// ListDir lists the children of the folder named by cnid.
func (v *Volume) ListDir(cnid uint32) ([]interfaces.CatalogEntry, error) {
	if err := v.ensureCatalogTree(); err != nil {
		return nil, err
	}
	return v.catalogMgr.ListFolder(cnid)
}

// ListDirSummary tallies the folder-listing totals spec.md §4.7
// requires alongside ListDir's entries: data/resource fork count and
// size, and hardlink/symlink/alias/empty counts.
func (v *Volume) ListDirSummary(cnid uint32) (managercatalog.FolderSummary, error) {
	if err := v.ensureCatalogTree(); err != nil {
		return managercatalog.FolderSummary{}, err
	}
	return v.catalogMgr.SummarizeFolder(cnid)
}

// RecordForCNID returns the file or folder record for cnid.
func (v *Volume) RecordForCNID(cnid uint32) (*types.CatalogFile, *types.CatalogFolder, error) {
	if err := v.ensureCatalogTree(); err != nil {
		return nil, nil, err
	}
	return v.catalogMgr.RecordForCNID(cnid)
}

// ExtractFork opens the named file's data or resource fork for
// reading. forkType is types.ForkTypeData or types.ForkTypeResource.
func (v *Volume) ExtractFork(cnid uint32, forkType uint8) (interfaces.Fork, error) {
	file, _, err := v.RecordForCNID(cnid)
	if err != nil {
		return nil, err
	}
	if file == nil {
		return nil, errs.InvalidArgument("CNID does not name a file", nil)
	}
	fork := file.DataFork
	if forkType == types.ForkTypeResource {
		fork = file.ResourceFork
	}
	if err := v.ensureExtentsTree(); err != nil {
		return nil, err
	}
	return v.openFork(file.FileID, forkType, fork)
}

// AttributeEntry is one decoded extended-attribute record belonging to
// a single file or folder, as listed by ListAttributes.
type AttributeEntry struct {
	Name   string
	Inline *types.AttrInlineData
	Fork   *types.AttrForkData
}

// ListAttributes walks the attributes B-tree for every record keyed to
// cnid, per spec.md §6's "iterate any of the four B-trees". Extents-
// overflow continuation records for an out-of-line attribute are
// skipped; chasing them into a combined byte stream is out of scope.
func (v *Volume) ListAttributes(cnid uint32) ([]AttributeEntry, error) {
	if err := v.ensureAttributesTree(); err != nil {
		return nil, err
	}
	start := encodeAttrKey(cnid, nil, 0)
	var entries []AttributeEntry
	err := v.attrsNav.Walk(start, func(rec []byte) (bool, error) {
		key, err := endian.DecodeAttrKey(rec)
		if err != nil {
			return false, err
		}
		if key.FileID != cnid {
			return false, nil
		}
		val, err := stripAttrKeyPrefix(rec)
		if err != nil {
			return false, err
		}
		if len(val) < 4 {
			return false, errs.Corrupt("attribute record value too short", nil)
		}
		recType := uint32(val[0])<<24 | uint32(val[1])<<16 | uint32(val[2])<<8 | uint32(val[3])
		entry := AttributeEntry{Name: unitsToAttrName(key.AttrName)}
		switch recType {
		case types.AttrRecordTypeInline:
			d, err := endian.DecodeAttrInlineData(val)
			if err != nil {
				return false, err
			}
			entry.Inline = d
		case types.AttrRecordTypeForkData:
			d, err := endian.DecodeAttrForkData(val)
			if err != nil {
				return false, err
			}
			entry.Fork = d
		default:
			return true, nil // extents-overflow continuation record
		}
		entries = append(entries, entry)
		return true, nil
	})
	if err != nil {
		return nil, err
	}
	return entries, nil
}

func unitsToAttrName(u []uint16) string {
	r := make([]rune, len(u))
	for i, c := range u {
		r[i] = rune(c)
	}
	return string(r)
}

// encodeAttrKey serializes an HFSPlusAttrKey search target the same
// way the on-disk format stores it (KeyLength excludes its own field).
func encodeAttrKey(fileID uint32, name []uint16, startBlock uint32) []byte {
	nameLen := len(name)
	keyLen := 2 + 4 + 4 + 2 + nameLen*2
	buf := make([]byte, 2+keyLen)
	buf[0], buf[1] = byte(keyLen>>8), byte(keyLen)
	buf[4] = byte(fileID >> 24)
	buf[5] = byte(fileID >> 16)
	buf[6] = byte(fileID >> 8)
	buf[7] = byte(fileID)
	buf[8] = byte(startBlock >> 24)
	buf[9] = byte(startBlock >> 16)
	buf[10] = byte(startBlock >> 8)
	buf[11] = byte(startBlock)
	buf[12], buf[13] = byte(nameLen>>8), byte(nameLen)
	for i, u := range name {
		buf[14+i*2] = byte(u >> 8)
		buf[14+i*2+1] = byte(u)
	}
	return buf
}

func stripAttrKeyPrefix(rec []byte) ([]byte, error) {
	if len(rec) < 2 {
		return nil, errs.Corrupt("attribute record too short for key length", nil)
	}
	keyLen := int(rec[0])<<8 | int(rec[1])
	skip := 2 + keyLen
	if skip%2 != 0 {
		skip++
	}
	if skip > len(rec) {
		return nil, errs.Corrupt("attribute record key length overruns record", nil)
	}
	return rec[skip:], nil
}

// allocationBitmap lazily loads the allocation file into memory.
func (v *Volume) allocationBitmap() (*allocation.Bitmap, error) {
	if err := v.ensureExtentsTree(); err != nil {
		return nil, err
	}
	fork, err := v.openFork(types.AllocationFileID, types.ForkTypeData, v.header.AllocationFile)
	if err != nil {
		return nil, err
	}
	return allocation.NewBitmap(fork, v.header.TotalBlocks)
}

// FreeSpaceScan returns the largest free extents, bounded by
// internal/config.Config.FreeSpaceTopK.
func (v *Volume) FreeSpaceScan() ([]allocation.Extent, error) {
	bm, err := v.allocationBitmap()
	if err != nil {
		return nil, err
	}
	return bm.FreeSpaceScan(v.cfg.FreeSpaceTopK), nil
}

// FragmentationScan returns the most-fragmented in-use extents,
// bounded by internal/config.Config.FragmentationTopK.
func (v *Volume) FragmentationScan() ([]allocation.Extent, error) {
	bm, err := v.allocationBitmap()
	if err != nil {
		return nil, err
	}
	return bm.FragmentationScan(v.cfg.FragmentationTopK), nil
}

// InspectBlocks reports the free/used run decomposition of a block range.
func (v *Volume) InspectBlocks(startBlock, count uint32) ([]allocation.BlockRangeEntry, error) {
	bm, err := v.allocationBitmap()
	if err != nil {
		return nil, err
	}
	return bm.InspectBlocks(startBlock, count)
}

// HotfileScan walks the hotfiles B-tree and returns its ranked entries
// in descending temperature order, bounded by
// internal/config.Config.HotFilesTopK. Per spec.md §8's boundary case,
// the tree's sentinel thread record (temperature ==
// types.HotFileTemperatureThread) is skipped rather than ranked.
func (v *Volume) HotfileScan() ([]allocation.HotFileEntry, error) {
	if err := v.ensureHotfilesTree(); err != nil {
		return nil, err
	}
	var entries []allocation.HotFileEntry
	err := v.hotfilesNav.Walk(nil, func(rec []byte) (bool, error) {
		key, err := endian.DecodeHotFileKey(rec)
		if err != nil {
			return false, err
		}
		if key.IsThread() {
			return true, nil
		}
		entries = append(entries, allocation.HotFileEntry{
			FileID:      key.FileID,
			Temperature: key.Temperature,
			ForkType:    key.ForkType,
		})
		return true, nil
	})
	if err != nil {
		return nil, err
	}
	return allocation.RankHotFiles(entries, v.cfg.HotFilesTopK), nil
}

// Summary merges the volume header, a free-space scan, and a
// fragmentation scan into one call, per original_source's
// hfs_summary.c (see SPEC_FULL.md §3).
type Summary struct {
	Info          VolumeInfo
	FreeSpace     []allocation.Extent
	Fragmentation []allocation.Extent
}

// Summary assembles the merged volume-level report.
func (v *Volume) Summary() (*Summary, error) {
	free, err := v.FreeSpaceScan()
	if err != nil {
		return nil, err
	}
	frag, err := v.FragmentationScan()
	if err != nil {
		return nil, err
	}
	return &Summary{Info: v.VolumeInfo(), FreeSpace: free, Fragmentation: frag}, nil
}

// Close releases the Volume's underlying device window, if it owns one.
func (v *Volume) Close() error {
	if w, ok := v.src.(*device.Window); ok {
		return w.Close()
	}
	return nil
}
