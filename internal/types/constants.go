// Package types defines the on-disk structures, record-type tags, and
// constants of the HFS+/HFSX filesystem format, as specified in Apple
// Technical Note TN1150.
package types

// Catalog node identifiers (CNIDs). Reference: TN1150 "Catalog File".
const (
	// RootParentID is the fictitious parent of the root folder.
	RootParentID uint32 = 1
	// RootFolderID is the CNID of the volume's root folder.
	RootFolderID uint32 = 2
	// ExtentsFileID is the CNID of the extents overflow file.
	ExtentsFileID uint32 = 3
	// CatalogFileID is the CNID of the catalog file.
	CatalogFileID uint32 = 4
	// BadBlockFileID is the CNID of the (legacy) bad-block file.
	BadBlockFileID uint32 = 5
	// AllocationFileID is the CNID of the allocation bitmap file.
	AllocationFileID uint32 = 6
	// StartupFileID is the CNID of the startup file.
	StartupFileID uint32 = 7
	// AttributesFileID is the CNID of the attributes file.
	AttributesFileID uint32 = 8
	// RepairCatalogFileID is reserved for use by fsck_hfs.
	RepairCatalogFileID uint32 = 14
	// BogusExtentFileID is reserved for use by fsck_hfs.
	BogusExtentFileID uint32 = 15
	// FirstUserCatalogNodeID is the first CNID available for user files/folders.
	FirstUserCatalogNodeID uint32 = 16
)

// HotFilesFileName is the catalog path component of the hotfiles
// B-tree's backing file, an ordinary file under the root folder rather
// than a header-level special file. Reference:
// original_source/src/hfsplus/hotfiles.c.
const HotFilesFileName = ".hotfiles.btree"

// Volume header signatures. Reference: TN1150 "Volume Header".
const (
	SigHFSPlus  uint16 = 0x482B // 'H+'
	SigHFSX     uint16 = 0x4858 // 'HX'
	SigHFSWrap  uint16 = 0x4244 // 'BD', classic HFS Master Directory Block
	HFSXVersion uint16 = 5
)

// Fork types, as used in extent and attribute keys.
const (
	ForkTypeData     uint8 = 0x00
	ForkTypeResource uint8 = 0xFF
)

// B-tree node kinds. Reference: TN1150 "B-trees", BTNodeDescriptor.kind.
const (
	BTNodeKindLeaf   int8 = -1
	BTNodeKindIndex  int8 = 0
	BTNodeKindHeader int8 = 1
	BTNodeKindMap    int8 = 2
)

// B-tree types. Reference: BTHeaderRec.btreeType.
const (
	BTreeTypeHFS      uint8 = 0 // control file, uses standard HFS B-tree
	BTreeTypeUser     uint8 = 128
	BTreeTypeReserved uint8 = 255
)

// B-tree header record key-compare types. Reference: BTHeaderRec.keyCompareType.
const (
	KeyCompareCaseFolding uint8 = 0xCF
	KeyCompareBinary      uint8 = 0xBC
)

// B-tree header attribute bits. Reference: BTHeaderRec.attributes.
const (
	BTBadCloseMask          uint32 = 0x00000001
	BTBigKeysMask           uint32 = 0x00000002
	BTVariableIndexKeysMask uint32 = 0x00000004
)

// Catalog record types. Reference: TN1150 "Catalog File", CatalogRecordType.
const (
	RecordTypeFolder       int16 = 0x0001
	RecordTypeFile         int16 = 0x0002
	RecordTypeFolderThread int16 = 0x0003
	RecordTypeFileThread   int16 = 0x0004
)

// Attribute record types. Reference: TN1150 "Attributes File".
const (
	AttrRecordTypeInline   uint32 = 0x10
	AttrRecordTypeForkData uint32 = 0x20
	AttrRecordTypeExtents  uint32 = 0x30
)

// Catalog folder/file flags. Reference: TN1150 "Catalog File",
// HFSPlusCatalogFolder.flags / HFSPlusCatalogFile.flags.
const (
	FileLockedMask     uint16 = 0x0001
	ThreadExistsMask   uint16 = 0x0002
	HasAttributesMask  uint16 = 0x0004
	HasSecurityMask    uint16 = 0x0008
	HasFolderCountMask uint16 = 0x0010 // kHFSHasFolderCountMask
	HasLinkChainMask   uint16 = 0x0020 // kHFSHasLinkChainMask
	HasChildLinkMask   uint16 = 0x0040
	HasDateAddedMask   uint16 = 0x0080
)

// Finder flags within FinderInfo/ExtendedFinderInfo.
const (
	FinderFlagIsAlias uint16 = 0x8000 // kIsAlias
)

// Four-character creator/type codes used by record-classification
// predicates (spec.md §4.7). Stored as plain strings because Go has no
// OSType literal. Grounded on original_source/src/hfs/catalog.c's
// HFSPlusCatalogFileIsHardLink/IsSymLink/IsFileAlias/IsFolderAlias,
// which use creator 'hfs+' (kHFSPlusCreator) for hard links, not 'hlnk'
// as spec.md's prose abbreviates it.
const (
	FDCreatorHardLink = "hfs+"
	FDTypeHardLink    = "hlnk"
	FDCreatorAlias    = "MACS"
	FDTypeFileAlias   = "alis"
	FDTypeFolderAlias = "fdrp"
	FDCreatorSymlink  = "rhap"
	FDTypeSymlink     = "slnk"
)

// Hotfiles key sentinel. Reference: original_source/src/hfsplus/hotfiles.c.
const HotFileTemperatureThread uint32 = 0xFFFFFFFF

// Allocation block / node-size bounds. Reference: TN1150.
const (
	MinBlockSize uint32 = 512
	MaxBlockSize uint32 = 65536
	MinNodeSize  uint16 = 512
	MaxNodeSize  uint16 = 32768
)

// MaxUniStr255Length is the maximum code-unit length of an HFSUniStr255.
const MaxUniStr255Length = 255

// MaxAttrNameLength is the maximum code-unit length of an attribute name.
const MaxAttrNameLength = 127

// VolumeHeaderOffset is the byte offset of the HFS+/HFSX volume header
// (and of the classic HFS Master Directory Block) from the start of the
// volume.
const VolumeHeaderOffset int64 = 1024

// VolumeHeaderSize is the fixed on-disk size of the volume header.
const VolumeHeaderSize = 512
