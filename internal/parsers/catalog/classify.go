package catalog

import (
	"github.com/NSGod/hfsinspect/internal/types"
)

// fourCC reads a file record's UserInfo.FileType/FileCreator as the
// four-character strings the classification predicates compare
// against, matching how catalog.c treats OSType as a packed char[4].
func fourCC(v uint32) string {
	b := [4]byte{byte(v >> 24), byte(v >> 16), byte(v >> 8), byte(v)}
	return string(b[:])
}

// IsFileHardLink reports whether a file record is a hard link to
// another file, per original_source/src/hfs/catalog.c
// HFSPlusCatalogFileIsHardLink: creator 'hfs+', type 'hlnk'. Note this
// is NOT creator=='hlnk' as a literal reading of spec.md's prose
// abbreviation would suggest; see DESIGN.md.
func IsFileHardLink(f *types.CatalogFile) bool {
	return fourCC(f.UserInfo.FileCreator) == types.FDCreatorHardLink &&
		fourCC(f.UserInfo.FileType) == types.FDTypeHardLink
}

// IsFolderHardLink reports whether a folder record is a hard link
// (technically a "directory hard link", implemented as a folder whose
// kHFSHasLinkChainMask flag is set and which additionally carries the
// folder-alias shape). Reference: catalog.c
// HFSPlusCatalogFolderIsHardLink; see DESIGN.md decision 2.
func IsFolderHardLink(folder *types.CatalogFolder) bool {
	return folder.Flags&types.HasLinkChainMask != 0 && IsFolderAlias(folder)
}

// IsSymLink reports whether a file record is a symbolic link:
// creator 'rhap' (kSymLinkCreator), type 'slnk' (kSymLinkFileType).
func IsSymLink(f *types.CatalogFile) bool {
	return fourCC(f.UserInfo.FileCreator) == types.FDCreatorSymlink &&
		fourCC(f.UserInfo.FileType) == types.FDTypeSymlink
}

// IsFileAlias reports whether a file record is a Finder alias:
// kIsAlias set in the Finder flags, creator 'MACS', type 'alis'.
func IsFileAlias(f *types.CatalogFile) bool {
	return f.UserInfo.FinderFlags&types.FinderFlagIsAlias != 0 &&
		fourCC(f.UserInfo.FileCreator) == types.FDCreatorAlias &&
		fourCC(f.UserInfo.FileType) == types.FDTypeFileAlias
}

// IsFolderAlias reports whether a folder record is a Finder alias:
// kIsAlias set in the Finder flags. HFSPlusCatalogFolder has no
// FileCreator/FileType fields of its own (those belong to file
// records), so no 'MACS'/'fdrp' check is made, and
// kHFSHasLinkChainMask is not consulted here (IsFolderHardLink adds
// that test); this checks the FinderFlags only.
func IsFolderAlias(folder *types.CatalogFolder) bool {
	return folder.UserInfo.FinderFlags&types.FinderFlagIsAlias != 0
}
