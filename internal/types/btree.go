package types

// BTNodeDescriptor is the 14-byte header present at the start of every
// B-tree node. Reference: TN1150 "B-trees", BTNodeDescriptor.
type BTNodeDescriptor struct {
	FLink      uint32
	BLink      uint32
	Kind       int8
	Height     uint8
	NumRecords uint16
	Reserved   uint16
}

// BTHeaderRec is the header record stored as record 0 of a B-tree's
// header node. Reference: TN1150 "B-trees", BTHeaderRec.
type BTHeaderRec struct {
	TreeDepth      uint16
	RootNode       uint32
	LeafRecords    uint32
	FirstLeafNode  uint32
	LastLeafNode   uint32
	NodeSize       uint16
	MaxKeyLength   uint16
	TotalNodes     uint32
	FreeNodes      uint32
	Reserved1      uint16
	ClumpSize      uint32
	BTreeType      uint8
	KeyCompareType uint8
	Attributes     uint32
}

// HasVariableIndexKeys reports whether index-node keys carry their own
// length prefix rather than always occupying MaxKeyLength bytes.
func (h *BTHeaderRec) HasVariableIndexKeys() bool {
	return h.Attributes&BTVariableIndexKeysMask != 0
}

// HFSUniStr255 is a length-prefixed UTF-16BE string of at most 255
// code units. Reference: TN1150 "HFSUniStr255".
type HFSUniStr255 struct {
	Length  uint16
	Unicode []uint16 // len(Unicode) == Length clamped to MaxUniStr255Length; Length keeps the stored value
}

// CatalogKey identifies a catalog record by (parentID, name).
// Reference: TN1150 "HFSPlusCatalogKey".
type CatalogKey struct {
	KeyLength uint16
	ParentID  uint32
	NodeName  HFSUniStr255
}

// Permissions mirrors HFSPlusBSDInfo, the BSD owner/group/mode
// sub-record shared by folder and file catalog records.
// Reference: TN1150 "HFSPlusBSDInfo".
type Permissions struct {
	OwnerID    uint32
	GroupID    uint32
	AdminFlags uint8
	OwnerFlags uint8
	FileMode   uint16
	Special    uint32 // rdev for block/char special files, or inode link count
}

// Point mirrors the classic QuickDraw Point (v, h) used in FinderInfo.
type Point struct{ V, H int16 }

// Rect mirrors the classic QuickDraw Rect used in FinderInfo.
type Rect struct{ Top, Left, Bottom, Right int16 }

// FolderInfo mirrors the Finder's folder-specific info sub-record.
type FolderInfo struct {
	WindowBounds  Rect
	FinderFlags   uint16
	Location      Point
	ReservedField uint16
}

// ExtendedFolderInfo mirrors the Finder's extended folder info.
type ExtendedFolderInfo struct {
	ScrollPosition      Point
	Reserved1           int32
	ExtendedFinderFlags uint16
	Reserved2           int16
	PutAwayFolderID     uint32
}

// FileInfo mirrors the Finder's file-specific info sub-record.
type FileInfo struct {
	FileType      uint32
	FileCreator   uint32
	FinderFlags   uint16
	Location      Point
	ReservedField uint16
}

// ExtendedFileInfo mirrors the Finder's extended file info.
type ExtendedFileInfo struct {
	Reserved1           [4]int16
	ExtendedFinderFlags uint16
	Reserved2           int16
	PutAwayFolderID     uint32
}

// CatalogFolder is the value of a folder catalog record.
// Reference: TN1150 "HFSPlusCatalogFolder".
type CatalogFolder struct {
	RecordType       int16
	Flags            uint16
	Valence          uint32
	FolderID         uint32
	CreateDate       uint32
	ContentModDate   uint32
	AttributeModDate uint32
	AccessDate       uint32
	BackupDate       uint32
	Permissions      Permissions
	UserInfo         FolderInfo
	FinderInfo       ExtendedFolderInfo
	TextEncoding     uint32
	FolderCount      uint32 // valid iff Flags & HasFolderCountMask
}

// CatalogFile is the value of a file catalog record.
// Reference: TN1150 "HFSPlusCatalogFile".
type CatalogFile struct {
	RecordType       int16
	Flags            uint16
	Reserved1        uint32
	FileID           uint32
	CreateDate       uint32
	ContentModDate   uint32
	AttributeModDate uint32
	AccessDate       uint32
	BackupDate       uint32
	Permissions      Permissions
	UserInfo         FileInfo
	FinderInfo       ExtendedFileInfo
	TextEncoding     uint32
	Reserved2        uint32
	DataFork         ForkData
	ResourceFork     ForkData
}

// CatalogThread is the value of a thread record (folder or file).
// Reference: TN1150 "HFSPlusCatalogThread".
type CatalogThread struct {
	RecordType int16
	Reserved   int16
	ParentID   uint32
	NodeName   HFSUniStr255
}

// ExtentKey identifies an extents-overflow record by
// (forkType, fileID, startBlock). Reference: "HFSPlusExtentKey".
type ExtentKey struct {
	KeyLength  uint16
	ForkType   uint8
	Pad        uint8
	FileID     uint32
	StartBlock uint32
}

// AttrKey identifies an attribute record by (fileID, attrName, startBlock).
// Reference: "HFSPlusAttrKey".
type AttrKey struct {
	KeyLength   uint16
	Pad         uint16
	FileID      uint32
	StartBlock  uint32
	AttrNameLen uint16
	AttrName    []uint16 // len == AttrNameLen, clamped to MaxAttrNameLength
}

// AttrInlineData is an attribute record whose value is stored inline.
// Reference: "HFSPlusAttrData".
type AttrInlineData struct {
	RecordType uint32
	Reserved1  [2]uint32
	Size       uint32
	Data       []byte
}

// AttrForkData is an attribute record whose value is a fork descriptor
// (used for attributes too large to store inline).
type AttrForkData struct {
	RecordType uint32
	Reserved   uint32
	TheFork    ForkData
}

// AttrExtents is an overflow-extents record for an out-of-line attribute.
type AttrExtents struct {
	RecordType uint32
	Reserved   uint32
	Extents    ExtentRecord
}

// HotFileKey identifies a hotfiles-tree record by
// (temperature, fileID, forkType). Reference:
// original_source/src/hfsplus/hotfiles.c HotFileKey.
type HotFileKey struct {
	KeyLength   uint16
	ForkType    uint8
	Pad         uint8
	Temperature uint32
	FileID      uint32
}

// IsThread reports whether this hotfiles key is the sentinel thread
// record rather than a ranked file record.
func (k HotFileKey) IsThread() bool { return k.Temperature == HotFileTemperatureThread }

// HotFilesHeader is the value stored at the hotfiles tree's reserved
// bookkeeping record.
type HotFilesHeader struct {
	Magic        uint32
	Version      uint32
	Duration     uint32
	TimeLeft     uint32
	Threshold    uint32
	MaxFileCount uint32
	MaxFileSize  uint32
	Tag          [32]byte
}

// HotFilesMagic identifies a valid hotfiles-tree bookkeeping record.
const HotFilesMagic uint32 = 0xFF28FF26
