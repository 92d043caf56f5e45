package truetype

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// Default metrics reported by a nil Face, or in place of a zero unitsPerEm
// or an all-zero ascender/descender pair. Parse rejects empty bytes, so no
// Face is ever built from them.
const (
	DefaultUnitsPerEm = 1000
	DefaultAscender   = 800
	DefaultDescender  = -200
)

// Face holds the subset of a parsed TrueType/OpenType font needed to answer
// glyph and metric queries and to build a subsetted copy for embedding.
//
// A Face keeps the raw font bytes alive for as long as it is in use: the
// glyf table is sliced directly out of the original buffer rather than
// copied, and subsetting re-reads the head, maxp and hhea tables from it, so the descriptor that owns a Face must not release the bytes
// while the Face is still reachable.
type Face struct {
	raw []byte
	dir *tableDirectory

	unitsPerEm uint16
	ascender   int16
	descender  int16

	indexToLocFormat int16
	numGlyphs         int
	loca              []uint32 // numGlyphs+1 offsets into the glyf table
	glyf              []byte

	numHMetrics int
	hAdvances   []uint16 // length numGlyphs, monotone extension applied

	cmap map[rune]GlyphID
}

// Parse parses a TrueType or OpenType (TrueType-flavored) font.
func Parse(data []byte) (*Face, error) {
	dir, err := readTableDirectory(data)
	if err != nil {
		return nil, err
	}
	f := &Face{raw: data, dir: dir}

	if err := f.readHead(data); err != nil {
		return nil, err
	}
	if err := f.readMaxp(data); err != nil {
		return nil, err
	}
	if err := f.readHhea(data); err != nil {
		return nil, err
	}
	if err := f.readHmtx(data); err != nil {
		return nil, err
	}
	if dir.has("loca") && dir.has("glyf") {
		if err := f.readLoca(data); err != nil {
			return nil, err
		}
		f.glyf, err = dir.bytes(data, "glyf")
		if err != nil {
			return nil, err
		}
	}
	if dir.has("cmap") {
		f.cmap, err = f.readCmap(data)
		if err != nil {
			return nil, err
		}
	}
	return f, nil
}

func (f *Face) readHead(data []byte) error {
	tbl, err := f.dir.bytes(data, "head")
	if err != nil {
		return err
	}
	if len(tbl) < 54 {
		return errors.New("truetype: head table too short")
	}
	if binary.BigEndian.Uint32(tbl[0:4]) != 0x00010000 {
		return errors.New("truetype: unsupported head table version")
	}
	if binary.BigEndian.Uint32(tbl[12:16]) != 0x5F0F3CF5 {
		return errors.New("truetype: bad head magic number")
	}
	f.unitsPerEm = binary.BigEndian.Uint16(tbl[18:20])
	f.indexToLocFormat = int16(binary.BigEndian.Uint16(tbl[50:52]))
	return nil
}

func (f *Face) readMaxp(data []byte) error {
	tbl, err := f.dir.bytes(data, "maxp")
	if err != nil {
		return err
	}
	if len(tbl) < 6 {
		return errors.New("truetype: maxp table too short")
	}
	f.numGlyphs = int(binary.BigEndian.Uint16(tbl[4:6]))
	return nil
}

func (f *Face) readHhea(data []byte) error {
	tbl, err := f.dir.bytes(data, "hhea")
	if err != nil {
		return err
	}
	if len(tbl) < 36 {
		return errors.New("truetype: hhea table too short")
	}
	f.ascender = int16(binary.BigEndian.Uint16(tbl[4:6]))
	f.descender = int16(binary.BigEndian.Uint16(tbl[6:8]))
	f.numHMetrics = int(binary.BigEndian.Uint16(tbl[34:36]))
	return nil
}

func (f *Face) readHmtx(data []byte) error {
	tbl, err := f.dir.bytes(data, "hmtx")
	if err != nil {
		return err
	}
	if f.numHMetrics <= 0 || f.numGlyphs <= 0 {
		return errors.New("truetype: inconsistent hhea/maxp counts")
	}
	advances := make([]uint16, f.numGlyphs)
	prev := uint16(0)
	pos := 0
	for i := 0; i < f.numGlyphs; i++ {
		if i < f.numHMetrics {
			if pos+4 > len(tbl) {
				return errors.New("truetype: hmtx table truncated")
			}
			prev = binary.BigEndian.Uint16(tbl[pos : pos+2])
			pos += 4 // advanceWidth + lsb
		}
		advances[i] = prev
	}
	f.hAdvances = advances
	return nil
}

func (f *Face) readLoca(data []byte) error {
	tbl, err := f.dir.bytes(data, "loca")
	if err != nil {
		return err
	}
	n := f.numGlyphs + 1
	offsets := make([]uint32, n)
	if f.indexToLocFormat == 0 {
		if len(tbl) < n*2 {
			return errors.New("truetype: short-format loca table truncated")
		}
		for i := 0; i < n; i++ {
			offsets[i] = 2 * uint32(binary.BigEndian.Uint16(tbl[i*2:i*2+2]))
		}
	} else {
		if len(tbl) < n*4 {
			return errors.New("truetype: long-format loca table truncated")
		}
		for i := 0; i < n; i++ {
			offsets[i] = binary.BigEndian.Uint32(tbl[i*4 : i*4+4])
		}
	}
	f.loca = offsets
	return nil
}

// UnitsPerEm returns the font's design units per em, or DefaultUnitsPerEm.
func (f *Face) UnitsPerEm() uint16 {
	if f == nil || f.unitsPerEm == 0 {
		return DefaultUnitsPerEm
	}
	return f.unitsPerEm
}

// Ascender returns the typographic ascender in font units, or DefaultAscender.
func (f *Face) Ascender() int16 {
	if f == nil || (f.ascender == 0 && f.descender == 0) {
		return DefaultAscender
	}
	return f.ascender
}

// Descender returns the typographic descender in font units, or DefaultDescender.
func (f *Face) Descender() int16 {
	if f == nil || (f.ascender == 0 && f.descender == 0) {
		return DefaultDescender
	}
	return f.descender
}

// NumGlyphs returns the number of glyphs in the font, or 0 for an empty face.
func (f *Face) NumGlyphs() int {
	if f == nil {
		return 0
	}
	return f.numGlyphs
}

// GlyphID looks up the glyph id for a Unicode code point. The second return
// value is false if the face has no mapping for cp.
func (f *Face) GlyphID(cp rune) (GlyphID, bool) {
	if f == nil || f.cmap == nil {
		return 0, false
	}
	gid, ok := f.cmap[cp]
	if !ok || gid == 0 {
		return 0, false
	}
	return gid, true
}

// HasGlyph reports whether cp maps to a non-notdef glyph.
func (f *Face) HasGlyph(cp rune) bool {
	_, ok := f.GlyphID(cp)
	return ok
}

// Advance returns the horizontal advance of the glyph for cp, in font units.
func (f *Face) Advance(cp rune) (uint16, bool) {
	gid, ok := f.GlyphID(cp)
	if !ok {
		return 0, false
	}
	return f.advanceForGID(gid), true
}

func (f *Face) advanceForGID(gid GlyphID) uint16 {
	if int(gid) >= len(f.hAdvances) {
		return 0
	}
	return f.hAdvances[gid]
}

// TextWidth sums the advances (in font units) of every mapped code point in
// text, ignoring code points with no glyph.
func (f *Face) TextWidth(text string) uint32 {
	var total uint32
	for _, r := range text {
		if adv, ok := f.Advance(r); ok {
			total += uint32(adv)
		}
	}
	return total
}

// TextWidthPoints converts TextWidth to points at the given font size.
func (f *Face) TextWidthPoints(text string, size float64) float64 {
	return float64(f.TextWidth(text)) * size / float64(f.UnitsPerEm())
}

func (f *Face) glyphData(gid GlyphID) ([]byte, error) {
	if f.loca == nil || int(gid)+1 >= len(f.loca) {
		return nil, fmt.Errorf("truetype: glyph %d out of range", gid)
	}
	start, end := f.loca[gid], f.loca[gid+1]
	if end < start || uint64(end) > uint64(len(f.glyf)) {
		return nil, fmt.Errorf("truetype: glyph %d has invalid loca range", gid)
	}
	return f.glyf[start:end], nil
}
