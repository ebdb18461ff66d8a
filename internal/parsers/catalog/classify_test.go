package catalog

import (
	"testing"

	"github.com/NSGod/hfsinspect/internal/types"
)

func fourCCValue(s string) uint32 {
	b := []byte(s)
	return uint32(b[0])<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3])
}

func TestIsFileHardLink(t *testing.T) {
	f := &types.CatalogFile{UserInfo: types.FileInfo{
		FileCreator: fourCCValue(types.FDCreatorHardLink),
		FileType:    fourCCValue(types.FDTypeHardLink),
	}}
	if !IsFileHardLink(f) {
		t.Fatal("expected a file with creator 'hfs+' and type 'hlnk' to be a hard link")
	}

	notLink := &types.CatalogFile{UserInfo: types.FileInfo{
		FileCreator: fourCCValue(types.FDTypeHardLink), // wrong: type in creator slot
		FileType:    fourCCValue(types.FDTypeHardLink),
	}}
	if IsFileHardLink(notLink) {
		t.Fatal("expected a file with creator 'hlnk' (not 'hfs+') to not be classified as a hard link")
	}
}

func TestIsSymLink(t *testing.T) {
	f := &types.CatalogFile{UserInfo: types.FileInfo{
		FileCreator: fourCCValue(types.FDCreatorSymlink),
		FileType:    fourCCValue(types.FDTypeSymlink),
	}}
	if !IsSymLink(f) {
		t.Fatal("expected a file with creator 'rhap' and type 'slnk' to be a symlink")
	}
}

func TestIsFileAlias(t *testing.T) {
	f := &types.CatalogFile{UserInfo: types.FileInfo{
		FinderFlags: types.FinderFlagIsAlias,
		FileCreator: fourCCValue(types.FDCreatorAlias),
		FileType:    fourCCValue(types.FDTypeFileAlias),
	}}
	if !IsFileAlias(f) {
		t.Fatal("expected an alias-flagged MACS/alis file to be a file alias")
	}

	noFlag := &types.CatalogFile{UserInfo: types.FileInfo{
		FileCreator: fourCCValue(types.FDCreatorAlias),
		FileType:    fourCCValue(types.FDTypeFileAlias),
	}}
	if IsFileAlias(noFlag) {
		t.Fatal("expected a file without kIsAlias set to not be classified as an alias")
	}
}

func TestIsFolderAliasAndHardLink(t *testing.T) {
	folder := &types.CatalogFolder{
		Flags:    types.HasLinkChainMask,
		UserInfo: types.FolderInfo{FinderFlags: types.FinderFlagIsAlias},
	}
	if !IsFolderAlias(folder) {
		t.Fatal("expected kIsAlias folder to be a folder alias")
	}
	if !IsFolderHardLink(folder) {
		t.Fatal("expected kHFSHasLinkChainMask + alias folder to be a folder hard link")
	}

	plain := &types.CatalogFolder{}
	if IsFolderHardLink(plain) {
		t.Fatal("expected a plain folder to not be classified as a hard link")
	}
}
