package catalog

// foldTable maps a UTF-16 code unit to its case-folded equivalent for
// HFS+'s "fast Unicode compare" collation. The real Apple table (an
// ~64K-entry map built from a bespoke pre-Unicode-4 case-folding
// corpus) is not present anywhere in this module's reference corpus
// (original_source/src/hfs/unicode.c only wraps the BSD utfconv.h UTF-8
// codec, which performs no case folding at all). This is a documented
// best-effort substitute covering ASCII and Latin-1 Supplement, the
// ranges real-world volume and file names are overwhelmingly drawn
// from; code points outside these ranges compare ordinally instead of
// case-folded. See DESIGN.md Open Question decision 1.
var foldTable = buildFoldTable()

func buildFoldTable() map[uint16]uint16 {
	m := make(map[uint16]uint16, 128)
	for c := uint16('A'); c <= uint16('Z'); c++ {
		m[c] = c + 32
	}
	// Latin-1 Supplement uppercase range (U+00C0-U+00DE, excluding the
	// multiplication sign U+00D7) folds to lowercase U+00E0-U+00FE.
	for c := uint16(0x00C0); c <= 0x00DE; c++ {
		if c == 0x00D7 {
			continue
		}
		m[c] = c + 0x20
	}
	return m
}

// foldUnit returns the case-folded form of a single UTF-16 code unit.
func foldUnit(u uint16) uint16 {
	if f, ok := foldTable[u]; ok {
		return f
	}
	return u
}
