// Package catalog resolves catalog-tree records into the operations
// spec.md calls for: name/CNID/path resolution, folder listing, and
// hard-link/symlink/alias classification. Grounded structurally on the
// teacher's internal/managers/container (container-level orchestration
// sitting above the generic B-tree navigator).
package catalog

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/NSGod/hfsinspect/internal/endian"
	"github.com/NSGod/hfsinspect/internal/errs"
	"github.com/NSGod/hfsinspect/internal/interfaces"
	managerbtrees "github.com/NSGod/hfsinspect/internal/managers/btrees"
	parsercatalog "github.com/NSGod/hfsinspect/internal/parsers/catalog"
	"github.com/NSGod/hfsinspect/internal/types"
)

// Manager resolves catalog-tree queries over an open catalog B-tree.
type Manager struct {
	nav *managerbtrees.Navigator
}

// New wraps an already-opened catalog-tree Navigator.
func New(nav *managerbtrees.Navigator) *Manager { return &Manager{nav: nav} }

// encodeKey serializes a CatalogKey the same way the on-disk format
// stores it, for use as a Navigator search target.
func encodeKey(parentID uint32, name []uint16) []byte {
	var buf bytes.Buffer
	nameLen := len(name)
	keyLen := 4 + 2 + nameLen*2 // parentID + nodeName.length + nodeName.unicode; excludes this keyLength field itself
	writeU16(&buf, uint16(keyLen))
	writeU32(&buf, parentID)
	writeU16(&buf, uint16(nameLen))
	for _, u := range name {
		writeU16(&buf, u)
	}
	return buf.Bytes()
}

func writeU16(buf *bytes.Buffer, v uint16) { buf.WriteByte(byte(v >> 8)); buf.WriteByte(byte(v)) }
func writeU32(buf *bytes.Buffer, v uint32) {
	buf.WriteByte(byte(v >> 24))
	buf.WriteByte(byte(v >> 16))
	buf.WriteByte(byte(v >> 8))
	buf.WriteByte(byte(v))
}

func stringToUnits(s string) []uint16 {
	r := []rune(s)
	out := make([]uint16, len(r))
	for i, c := range r {
		out[i] = uint16(c)
	}
	return out
}

func unitsToString(u []uint16) string {
	r := make([]rune, len(u))
	for i, c := range u {
		r[i] = rune(c)
	}
	return string(r)
}

// recordValue peels the key prefix off a raw leaf record, returning
// just the value bytes that follow it (the key's own KeyLength field,
// plus the 2-byte length prefix itself, tells us how far to skip).
func recordValue(rec []byte) ([]byte, error) {
	if len(rec) < 2 {
		return nil, errs.Corrupt("catalog record too short for key length", nil)
	}
	keyLen := int(rec[0])<<8 | int(rec[1])
	skip := 2 + keyLen
	if skip > len(rec) {
		return nil, errs.Corrupt("catalog record key length overruns record", nil)
	}
	// Leaf records are padded to an even offset for the value portion.
	if skip%2 != 0 {
		skip++
	}
	if skip > len(rec) {
		return nil, errs.Corrupt("catalog record value offset overruns record", nil)
	}
	return rec[skip:], nil
}

// lookupThread finds the thread record for cnid (stored under key
// (cnid, "")), which gives the CNID's parent and name.
func (m *Manager) lookupThread(cnid uint32) (*types.CatalogThread, error) {
	target := encodeKey(cnid, nil)
	rec, ok, err := m.nav.Find(target)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, errs.NotFound(fmt.Sprintf("no thread record for CNID %d", cnid), nil)
	}
	val, err := recordValue(rec)
	if err != nil {
		return nil, err
	}
	return endian.DecodeCatalogThread(val)
}

// RecordForCNID implements interfaces.CatalogResolver: resolves cnid's
// thread to find its parent/name, then looks up the (parent, name)
// record directly, returning whichever of folder/file it decodes to.
func (m *Manager) RecordForCNID(cnid uint32) (*types.CatalogFile, *types.CatalogFolder, error) {
	if cnid == types.RootFolderID {
		return m.recordByKey(types.RootParentID, stringToUnits(""))
	}
	thread, err := m.lookupThread(cnid)
	if err != nil {
		return nil, nil, err
	}
	return m.recordByKey(thread.ParentID, thread.NodeName.Unicode)
}

func (m *Manager) recordByKey(parentID uint32, name []uint16) (*types.CatalogFile, *types.CatalogFolder, error) {
	target := encodeKey(parentID, name)
	rec, ok, err := m.nav.Find(target)
	if err != nil {
		return nil, nil, err
	}
	if !ok {
		return nil, nil, errs.NotFound(fmt.Sprintf("no catalog record for parent %d name %q", parentID, unitsToString(name)), nil)
	}
	val, err := recordValue(rec)
	if err != nil {
		return nil, nil, err
	}
	if len(val) < 2 {
		return nil, nil, errs.Corrupt("catalog record value too short for record type", nil)
	}
	recType := int16(val[0])<<8 | int16(val[1])
	switch recType {
	case types.RecordTypeFile:
		f, err := endian.DecodeCatalogFile(val)
		return f, nil, err
	case types.RecordTypeFolder:
		f, err := endian.DecodeCatalogFolder(val)
		return nil, f, err
	default:
		return nil, nil, errs.Corrupt(fmt.Sprintf("unexpected record type %d for non-thread lookup", recType), nil)
	}
}

// PathForCNID implements interfaces.CatalogResolver by walking parent
// threads from cnid up to the root folder, accumulating names.
func (m *Manager) PathForCNID(cnid uint32) (string, error) {
	if cnid == types.RootFolderID {
		return "/", nil
	}
	var parts []string
	cur := cnid
	for cur != types.RootFolderID {
		thread, err := m.lookupThread(cur)
		if err != nil {
			return "", err
		}
		parts = append(parts, unitsToString(thread.NodeName.Unicode))
		cur = thread.ParentID
		if cur == types.RootParentID {
			break
		}
	}
	// Reverse into root-to-leaf order.
	for i, j := 0, len(parts)-1; i < j; i, j = i+1, j-1 {
		parts[i], parts[j] = parts[j], parts[i]
	}
	return "/" + strings.Join(parts, "/"), nil
}

// CNIDForPath implements interfaces.CatalogResolver, walking the path
// component-by-component from the root folder.
func (m *Manager) CNIDForPath(path string) (uint32, error) {
	path = strings.Trim(path, "/")
	if path == "" {
		return types.RootFolderID, nil
	}
	parent := types.RootFolderID
	for _, comp := range strings.Split(path, "/") {
		target := encodeKey(parent, stringToUnits(comp))
		rec, ok, err := m.nav.Find(target)
		if err != nil {
			return 0, err
		}
		if !ok {
			return 0, errs.NotFound(fmt.Sprintf("no such path component %q under CNID %d", comp, parent), nil)
		}
		val, err := recordValue(rec)
		if err != nil {
			return 0, err
		}
		if len(val) < 2 {
			return 0, errs.Corrupt("catalog record value too short", nil)
		}
		recType := int16(val[0])<<8 | int16(val[1])
		switch recType {
		case types.RecordTypeFolder:
			f, err := endian.DecodeCatalogFolder(val)
			if err != nil {
				return 0, err
			}
			parent = f.FolderID
		case types.RecordTypeFile:
			f, err := endian.DecodeCatalogFile(val)
			if err != nil {
				return 0, err
			}
			parent = f.FileID
		default:
			return 0, errs.Corrupt(fmt.Sprintf("unexpected record type %d for path component %q", recType, comp), nil)
		}
	}
	return parent, nil
}

// ListFolder implements interfaces.CatalogResolver: walks the leaf
// chain starting at (cnid, "") and collects every child record until
// the parent ID changes, skipping the thread record itself.
func (m *Manager) ListFolder(cnid uint32) ([]interfaces.CatalogEntry, error) {
	start := encodeKey(cnid, nil)
	var entries []interfaces.CatalogEntry
	err := m.nav.Walk(start, func(rec []byte) (bool, error) {
		key, err := endian.DecodeCatalogKey(rec)
		if err != nil {
			return false, err
		}
		if key.ParentID != cnid {
			return false, nil
		}
		if len(key.NodeName.Unicode) == 0 {
			return true, nil // the thread record for cnid itself
		}
		val, err := recordValue(rec)
		if err != nil {
			return false, err
		}
		if len(val) < 2 {
			return false, errs.Corrupt("catalog record value too short", nil)
		}
		recType := int16(val[0])<<8 | int16(val[1])
		entry := interfaces.CatalogEntry{Name: unitsToString(key.NodeName.Unicode)}
		switch recType {
		case types.RecordTypeFolder:
			f, err := endian.DecodeCatalogFolder(val)
			if err != nil {
				return false, err
			}
			entry.CNID = f.FolderID
			entry.Folder = f
		case types.RecordTypeFile:
			f, err := endian.DecodeCatalogFile(val)
			if err != nil {
				return false, err
			}
			entry.CNID = f.FileID
			entry.File = f
		default:
			return true, nil // thread records for other CNIDs interleaved in key order
		}
		entries = append(entries, entry)
		return true, nil
	})
	if err != nil {
		return nil, err
	}
	return entries, nil
}

// FolderSummary tallies the folder-listing totals spec.md §4.7 asks
// for alongside ListFolder's entries: file/folder counts, data- and
// resource-fork count/size, and hardlink/symlink/alias/empty counts.
type FolderSummary struct {
	FileCount         int
	FolderCount       int
	EmptyFileCount    int
	DataForkCount     int
	DataForkSize      uint64
	ResourceForkCount int
	ResourceForkSize  uint64
	HardLinkCount     int
	SymLinkCount      int
	AliasCount        int
}

// SummarizeFolder tallies the same children ListFolder enumerates for
// cnid. A file counts as "empty" only when both its forks are empty;
// a fork with nonzero logical size counts toward that fork's count/size.
func (m *Manager) SummarizeFolder(cnid uint32) (FolderSummary, error) {
	entries, err := m.ListFolder(cnid)
	if err != nil {
		return FolderSummary{}, err
	}
	var s FolderSummary
	for _, e := range entries {
		switch {
		case e.File != nil:
			s.FileCount++
			f := e.File
			emptyData := f.DataFork.LogicalSize == 0
			emptyRsrc := f.ResourceFork.LogicalSize == 0
			if !emptyData {
				s.DataForkCount++
				s.DataForkSize += f.DataFork.LogicalSize
			}
			if !emptyRsrc {
				s.ResourceForkCount++
				s.ResourceForkSize += f.ResourceFork.LogicalSize
			}
			if emptyData && emptyRsrc {
				s.EmptyFileCount++
			}
			for _, tag := range ClassifyFile(f) {
				switch tag {
				case "hardlink":
					s.HardLinkCount++
				case "symlink":
					s.SymLinkCount++
				case "alias":
					s.AliasCount++
				}
			}
		case e.Folder != nil:
			s.FolderCount++
			for _, tag := range ClassifyFolder(e.Folder) {
				switch tag {
				case "hardlink":
					s.HardLinkCount++
				case "alias":
					s.AliasCount++
				}
			}
		}
	}
	return s, nil
}

// ClassifyFile reports the classification tags that apply to a file
// catalog record, delegating to internal/parsers/catalog's predicates.
func ClassifyFile(f *types.CatalogFile) []string {
	var tags []string
	if parsercatalog.IsFileHardLink(f) {
		tags = append(tags, "hardlink")
	}
	if parsercatalog.IsSymLink(f) {
		tags = append(tags, "symlink")
	}
	if parsercatalog.IsFileAlias(f) {
		tags = append(tags, "alias")
	}
	if f.Flags&types.FileLockedMask != 0 {
		tags = append(tags, "locked")
	}
	return tags
}

// ClassifyFolder reports the classification tags that apply to a
// folder catalog record.
func ClassifyFolder(f *types.CatalogFolder) []string {
	var tags []string
	if parsercatalog.IsFolderHardLink(f) {
		tags = append(tags, "hardlink")
	}
	if parsercatalog.IsFolderAlias(f) {
		tags = append(tags, "alias")
	}
	return tags
}
