package types

import "time"

// ExtentDescriptor is a single (startBlock, blockCount) run of allocation
// blocks. Reference: TN1150 "HFSPlusExtentDescriptor".
type ExtentDescriptor struct {
	StartBlock uint32
	BlockCount uint32
}

// ExtentRecord is the fixed 8-descriptor array embedded in a fork's
// ForkData, and also the value half of an extents-overflow-file record.
// A descriptor with BlockCount == 0 terminates the live portion.
type ExtentRecord [8]ExtentDescriptor

// ForkData describes one fork (data or resource) of a special file, or
// of a catalog record. Reference: TN1150 "HFSPlusForkData".
type ForkData struct {
	LogicalSize uint64
	ClumpSize   uint32
	TotalBlocks uint32
	Extents     ExtentRecord
}

// FinderInfo is the volume header's eight-element Finder info array.
// Reference: TN1150 "Volume Header".
type FinderInfo [8]uint32

// VolumeHeader is the fixed 512-byte HFS+/HFSX volume header found at
// byte offset 1024. Reference: TN1150 "Volume Header".
type VolumeHeader struct {
	Signature          uint16
	Version            uint16
	Attributes         uint32
	LastMountedVersion uint32
	JournalInfoBlock   uint32

	CreateDate  uint32
	ModifyDate  uint32
	BackupDate  uint32
	CheckedDate uint32

	FileCount   uint32
	FolderCount uint32

	BlockSize   uint32
	TotalBlocks uint32
	FreeBlocks  uint32

	NextAllocation uint32
	RsrcClumpSize  uint32
	DataClumpSize  uint32
	NextCatalogID  uint32

	WriteCount      uint32
	EncodingsBitmap uint64

	FinderInfo FinderInfo

	AllocationFile ForkData
	ExtentsFile    ForkData
	CatalogFile    ForkData
	AttributesFile ForkData
	StartupFile    ForkData
}

// IsHFSX reports whether the volume header's signature identifies an
// HFSX volume (case-sensitive-capable) as opposed to classic HFS+.
func (h *VolumeHeader) IsHFSX() bool { return h.Signature == SigHFSX }

// macEpochToUnixSeconds is the number of seconds the HFS+ timestamp
// epoch (1904-01-01 00:00:00) precedes the Unix epoch.
const macEpochToUnixSeconds = 2082844800

// HFSTime converts an HFS+ 32-bit timestamp (seconds since 1904-01-01)
// to time.Time. Per spec.md §9's design notes, times on disk are
// actually local time with the zone discarded; for reproducibility this
// treats every stamp as UTC, matching BeHierarchic's macTime helper.
func HFSTime(stamp uint32) time.Time {
	return time.Unix(int64(stamp)-macEpochToUnixSeconds, 0).UTC()
}

// JournalInfoBlock is the 180-byte structure pointed to by the volume
// header's JournalInfoBlock field when VolumeJournaledMask is set.
// Reported read-only; the core never replays the journal (spec.md §1).
type JournalInfoBlock struct {
	Flags           uint32
	DeviceSignature [8]uint32
	Offset          uint64
	Size            uint64
	RawUUID         [16]byte
}

// Volume attribute bits (VolumeHeader.Attributes). Only the ones the
// core inspects are named.
const (
	VolumeUnmountedMask    uint32 = 1 << 8
	VolumeJournaledMask    uint32 = 1 << 13
	VolumeSoftwareLockMask uint32 = 1 << 15
)
