package truetype

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math/bits"
	"sort"
)

// Subset builds a minimal TrueType font file containing glyph 0 (.notdef)
// plus one glyph for every rune in used that the face can map, closing over
// composite-glyph component references so that composed characters keep
// rendering correctly after subsetting.
//
// The returned remap contains an entry for every rune of used for which the
// parent face has a glyph; runes with no glyph are simply absent, matching
// the "GID remap coverage" property.
func (f *Face) Subset(used map[rune]struct{}) (data []byte, remap map[rune]GlyphID, err error) {
	if f == nil || f.glyf == nil || f.loca == nil {
		return nil, nil, fmt.Errorf("truetype: face has no glyph outlines to subset")
	}

	runeToOrig := make(map[rune]GlyphID, len(used))
	origSet := map[GlyphID]bool{0: true}
	for r := range used {
		gid, ok := f.GlyphID(r)
		if !ok {
			continue
		}
		runeToOrig[r] = gid
		origSet[gid] = true
	}

	if err := f.closeComposites(origSet); err != nil {
		return nil, nil, err
	}

	origGIDs := make([]GlyphID, 0, len(origSet))
	for gid := range origSet {
		if gid != 0 {
			origGIDs = append(origGIDs, gid)
		}
	}
	sort.Slice(origGIDs, func(i, j int) bool { return origGIDs[i] < origGIDs[j] })
	newOrder := append([]GlyphID{0}, origGIDs...)

	newGID := make(map[GlyphID]GlyphID, len(newOrder))
	for i, gid := range newOrder {
		newGID[gid] = GlyphID(i)
	}

	remap = make(map[rune]GlyphID, len(runeToOrig))
	for r, orig := range runeToOrig {
		remap[r] = newGID[orig]
	}

	data, err = f.buildFont(newOrder, newGID)
	if err != nil {
		return nil, nil, err
	}
	return data, remap, nil
}

// buildFont rebuilds the minimal set of sfnt tables for a finalized,
// already composite-closed glyph order (order[0] must be glyph 0) and
// assembles them into a complete font file.
func (f *Face) buildFont(order []GlyphID, newGID map[GlyphID]GlyphID) ([]byte, error) {
	glyfTable, locaOffsets, err := f.buildGlyfAndLoca(order, newGID)
	if err != nil {
		return nil, err
	}

	headTable, err := f.buildHead()
	if err != nil {
		return nil, err
	}
	maxpTable, err := f.buildMaxp(len(order))
	if err != nil {
		return nil, err
	}
	hheaTable, err := f.buildHhea(len(order))
	if err != nil {
		return nil, err
	}
	hmtxTable := f.buildHmtx(order)
	locaTable := encodeLongLoca(locaOffsets)
	cmapTable := buildIdentityCmap(len(order))

	tables := map[string][]byte{
		"cmap": cmapTable,
		"glyf": glyfTable,
		"head": headTable,
		"hhea": hheaTable,
		"hmtx": hmtxTable,
		"loca": locaTable,
		"maxp": maxpTable,
	}
	return assembleSFNT(tables), nil
}

// Subsetter maintains a subset's glyph order across repeated calls so that
// a glyph's new id never changes once assigned, even as more codepoints are
// added between successive saves of the same document: adding glyphs only
// ever appends to the order, it never reshuffles ids already handed out.
type Subsetter struct {
	face     *Face
	order    []GlyphID          // order[0] == 0 (.notdef), then first-use order
	newGID   map[GlyphID]GlyphID // orig GID -> assigned new GID
	runeGID  map[rune]GlyphID    // rune -> assigned new GID, cached across calls
}

// NewSubsetter starts an incremental subset builder for f.
func NewSubsetter(f *Face) *Subsetter {
	return &Subsetter{
		face:    f,
		order:   []GlyphID{0},
		newGID:  map[GlyphID]GlyphID{0: 0},
		runeGID: map[rune]GlyphID{},
	}
}

// EnsureRunes extends the subset, if necessary, so that every rune in used
// that the face can map has an assigned glyph id, and returns the full
// rune -> new glyph id remap accumulated so far (including runes from
// earlier calls). It reports whether any new glyph was added.
func (s *Subsetter) EnsureRunes(used map[rune]struct{}) (remap map[rune]GlyphID, changed bool, err error) {
	newlyUsed := map[GlyphID]bool{}
	for r := range used {
		if _, already := s.runeGID[r]; already {
			continue
		}
		gid, ok := s.face.GlyphID(r)
		if !ok {
			continue
		}
		if _, known := s.newGID[gid]; known {
			s.runeGID[r] = s.newGID[gid]
			continue
		}
		newlyUsed[gid] = true
	}

	if len(newlyUsed) > 0 {
		if err := s.face.closeComposites(newlyUsed); err != nil {
			return nil, false, err
		}
		fresh := make([]GlyphID, 0, len(newlyUsed))
		for gid := range newlyUsed {
			if _, known := s.newGID[gid]; !known {
				fresh = append(fresh, gid)
			}
		}
		sort.Slice(fresh, func(i, j int) bool { return fresh[i] < fresh[j] })
		for _, gid := range fresh {
			s.newGID[gid] = GlyphID(len(s.order))
			s.order = append(s.order, gid)
		}
		changed = true
	}

	for r := range used {
		if _, already := s.runeGID[r]; already {
			continue
		}
		gid, ok := s.face.GlyphID(r)
		if !ok {
			continue
		}
		s.runeGID[r] = s.newGID[gid]
	}

	remapCopy := make(map[rune]GlyphID, len(s.runeGID))
	for r, gid := range s.runeGID {
		remapCopy[r] = gid
	}
	return remapCopy, changed, nil
}

// Build assembles the font file for the glyph order accumulated so far.
func (s *Subsetter) Build() ([]byte, error) {
	return s.face.buildFont(s.order, s.newGID)
}

// closeComposites walks glyph outlines reachable from gids already in set and
// adds every component glyph they reference, recursively.
func (f *Face) closeComposites(set map[GlyphID]bool) error {
	queue := make([]GlyphID, 0, len(set))
	for gid := range set {
		queue = append(queue, gid)
	}
	for len(queue) > 0 {
		gid := queue[0]
		queue = queue[1:]

		raw, err := f.glyphData(gid)
		if err != nil || len(raw) < 10 {
			continue
		}
		numContours := int16(binary.BigEndian.Uint16(raw[0:2]))
		if numContours >= 0 {
			continue // simple glyph, no components
		}
		components, err := parseCompositeComponents(raw)
		if err != nil {
			continue
		}
		for _, c := range components {
			if !set[c] {
				set[c] = true
				queue = append(queue, c)
			}
		}
	}
	return nil
}

const (
	compFlagArgsAreWords  = 1 << 0
	compFlagMoreComponent = 1 << 5
	compFlagHaveScale     = 1 << 3
	compFlagHaveXYScale   = 1 << 6
	compFlagHave2x2       = 1 << 7
)

// parseCompositeComponents returns the original glyph ids referenced by a
// composite glyph, without resolving the accompanying placement transforms
// (those are copied verbatim into the subset, so they need no rewriting).
func parseCompositeComponents(raw []byte) ([]GlyphID, error) {
	pos := 10
	var ids []GlyphID
	for {
		if pos+4 > len(raw) {
			return nil, fmt.Errorf("truetype: composite glyph truncated")
		}
		flags := binary.BigEndian.Uint16(raw[pos : pos+2])
		glyphIndex := binary.BigEndian.Uint16(raw[pos+2 : pos+4])
		ids = append(ids, GlyphID(glyphIndex))
		pos += 4

		if flags&compFlagArgsAreWords != 0 {
			pos += 4
		} else {
			pos += 2
		}
		switch {
		case flags&compFlagHave2x2 != 0:
			pos += 8
		case flags&compFlagHaveXYScale != 0:
			pos += 4
		case flags&compFlagHaveScale != 0:
			pos += 2
		}

		if flags&compFlagMoreComponent == 0 {
			break
		}
	}
	return ids, nil
}

func (f *Face) buildGlyfAndLoca(order []GlyphID, newGID map[GlyphID]GlyphID) ([]byte, []uint32, error) {
	var glyf bytes.Buffer
	offsets := make([]uint32, 0, len(order)+1)
	offsets = append(offsets, 0)

	for _, orig := range order {
		raw, err := f.glyphData(orig)
		if err != nil {
			return nil, nil, err
		}
		if len(raw) >= 10 {
			numContours := int16(binary.BigEndian.Uint16(raw[0:2]))
			if numContours < 0 {
				patched, err := rewriteCompositeGIDs(raw, newGID)
				if err != nil {
					return nil, nil, err
				}
				raw = patched
			}
		}
		glyf.Write(raw)
		offsets = append(offsets, uint32(glyf.Len()))
	}
	return glyf.Bytes(), offsets, nil
}

// rewriteCompositeGIDs returns a copy of a composite glyph's bytes with each
// component's glyph index replaced by its new, subset-local glyph id.
func rewriteCompositeGIDs(raw []byte, newGID map[GlyphID]GlyphID) ([]byte, error) {
	out := append([]byte(nil), raw...)
	pos := 10
	for {
		if pos+4 > len(out) {
			return nil, fmt.Errorf("truetype: composite glyph truncated")
		}
		flags := binary.BigEndian.Uint16(out[pos : pos+2])
		origIndex := GlyphID(binary.BigEndian.Uint16(out[pos+2 : pos+4]))
		if mapped, ok := newGID[origIndex]; ok {
			binary.BigEndian.PutUint16(out[pos+2:pos+4], uint16(mapped))
		}
		pos += 4

		if flags&compFlagArgsAreWords != 0 {
			pos += 4
		} else {
			pos += 2
		}
		switch {
		case flags&compFlagHave2x2 != 0:
			pos += 8
		case flags&compFlagHaveXYScale != 0:
			pos += 4
		case flags&compFlagHaveScale != 0:
			pos += 2
		}

		if flags&compFlagMoreComponent == 0 {
			break
		}
	}
	return out, nil
}

func (f *Face) buildHead() ([]byte, error) {
	raw, err := f.dir.bytes(f.raw, "head")
	if err != nil {
		return nil, err
	}
	out := append([]byte(nil), raw...)
	if len(out) < 54 {
		return nil, fmt.Errorf("truetype: head table too short to subset")
	}
	binary.BigEndian.PutUint32(out[8:12], 0) // checkSumAdjustment, fixed up by assembleSFNT
	binary.BigEndian.PutUint16(out[50:52], 1) // indexToLocFormat = long, see encodeLongLoca
	return out, nil
}

func (f *Face) buildMaxp(numGlyphs int) ([]byte, error) {
	raw, err := f.dir.bytes(f.raw, "maxp")
	if err != nil {
		return nil, err
	}
	out := append([]byte(nil), raw...)
	if len(out) < 6 {
		return nil, fmt.Errorf("truetype: maxp table too short to subset")
	}
	binary.BigEndian.PutUint16(out[4:6], uint16(numGlyphs))
	return out, nil
}

func (f *Face) buildHhea(numHMetrics int) ([]byte, error) {
	raw, err := f.dir.bytes(f.raw, "hhea")
	if err != nil {
		return nil, err
	}
	out := append([]byte(nil), raw...)
	if len(out) < 36 {
		return nil, fmt.Errorf("truetype: hhea table too short to subset")
	}
	binary.BigEndian.PutUint16(out[34:36], uint16(numHMetrics))
	return out, nil
}

func (f *Face) buildHmtx(order []GlyphID) []byte {
	out := make([]byte, 4*len(order))
	for i, orig := range order {
		binary.BigEndian.PutUint16(out[4*i:4*i+2], f.advanceForGID(orig))
		binary.BigEndian.PutUint16(out[4*i+2:4*i+4], 0) // left side bearing, not tracked
	}
	return out
}

func encodeLongLoca(offsets []uint32) []byte {
	out := make([]byte, 4*len(offsets))
	for i, off := range offsets {
		binary.BigEndian.PutUint32(out[4*i:4*i+4], off)
	}
	return out
}

// buildIdentityCmap builds a trivial (3,1) format-4 subtable mapping
// character codes 0..n-1 directly to the same-numbered glyph id. PDF viewers
// address subset glyphs by CID (== GID, via Identity-H/Identity
// CIDToGIDMap), so this table is never consulted for rendering; it exists
// only so that the embedded file is a structurally complete TrueType font.
func buildIdentityCmap(n int) []byte {
	if n <= 0 {
		n = 1
	}
	segCount := 2
	segCountX2 := uint16(2 * segCount)
	sel := bits.Len(uint(segCount))
	searchRange := uint16(1) << sel
	entrySelector := uint16(sel - 1)
	rangeShift := segCountX2 - searchRange

	var sub bytes.Buffer
	binary.Write(&sub, binary.BigEndian, uint16(4)) // format
	lengthPos := sub.Len()
	sub.Write([]byte{0, 0}) // length placeholder
	binary.Write(&sub, binary.BigEndian, uint16(0)) // language
	binary.Write(&sub, binary.BigEndian, segCountX2)
	binary.Write(&sub, binary.BigEndian, searchRange)
	binary.Write(&sub, binary.BigEndian, entrySelector)
	binary.Write(&sub, binary.BigEndian, rangeShift)

	endCode := []uint16{uint16(n - 1), 0xFFFF}
	startCode := []uint16{0, 0xFFFF}
	idDelta := []uint16{0, 1}
	idRangeOffset := []uint16{0, 0}
	for _, v := range endCode {
		binary.Write(&sub, binary.BigEndian, v)
	}
	binary.Write(&sub, binary.BigEndian, uint16(0)) // reservedPad
	for _, v := range startCode {
		binary.Write(&sub, binary.BigEndian, v)
	}
	for _, v := range idDelta {
		binary.Write(&sub, binary.BigEndian, v)
	}
	for _, v := range idRangeOffset {
		binary.Write(&sub, binary.BigEndian, v)
	}

	subBytes := sub.Bytes()
	binary.BigEndian.PutUint16(subBytes[lengthPos:lengthPos+2], uint16(len(subBytes)))

	var out bytes.Buffer
	binary.Write(&out, binary.BigEndian, uint16(0)) // cmap version
	binary.Write(&out, binary.BigEndian, uint16(1)) // numTables
	binary.Write(&out, binary.BigEndian, uint16(3)) // platformID Windows
	binary.Write(&out, binary.BigEndian, uint16(1)) // encodingID Unicode BMP
	binary.Write(&out, binary.BigEndian, uint32(12))
	out.Write(subBytes)
	return out.Bytes()
}

// assembleSFNT lays out a TrueType file from a set of already-encoded
// tables, computing the table directory, per-table checksums and the
// head.checkSumAdjustment field per the sfnt specification.
func assembleSFNT(tables map[string][]byte) []byte {
	tags := make([]string, 0, len(tables))
	for tag := range tables {
		tags = append(tags, tag)
	}
	sort.Strings(tags)

	numTables := len(tags)
	sel := bits.Len(uint(numTables))
	searchRange := uint16(1<<(sel-1)) * 16
	entrySelector := uint16(sel - 1)
	rangeShift := uint16(numTables*16) - searchRange

	var header bytes.Buffer
	binary.Write(&header, binary.BigEndian, uint32(0x00010000))
	binary.Write(&header, binary.BigEndian, uint16(numTables))
	binary.Write(&header, binary.BigEndian, searchRange)
	binary.Write(&header, binary.BigEndian, entrySelector)
	binary.Write(&header, binary.BigEndian, rangeShift)

	headerSize := 12 + 16*numTables
	offset := uint32(headerSize)

	type placed struct {
		tag    string
		offset uint32
		data   []byte
	}
	var placedTables []placed
	for _, tag := range tags {
		data := tables[tag]
		padded := padTo4(data)
		placedTables = append(placedTables, placed{tag: tag, offset: offset, data: padded})
		offset += uint32(len(padded))
	}

	for _, p := range placedTables {
		header.WriteString(p.tag)
		binary.Write(&header, binary.BigEndian, checksum(p.data))
		binary.Write(&header, binary.BigEndian, p.offset)
		binary.Write(&header, binary.BigEndian, uint32(len(tables[p.tag])))
	}

	var file bytes.Buffer
	file.Write(header.Bytes())
	headOffset := -1
	for _, p := range placedTables {
		if p.tag == "head" {
			headOffset = int(p.offset)
		}
		file.Write(p.data)
	}

	out := file.Bytes()
	if headOffset >= 0 {
		var total uint32
		for i := 0; i+4 <= len(out); i += 4 {
			total += binary.BigEndian.Uint32(out[i : i+4])
		}
		adjustment := 0xB1B0AFBA - total
		binary.BigEndian.PutUint32(out[headOffset+8:headOffset+12], adjustment)
	}
	return out
}

func padTo4(data []byte) []byte {
	if pad := (4 - len(data)%4) % 4; pad != 0 {
		return append(append([]byte(nil), data...), make([]byte, pad)...)
	}
	return data
}
