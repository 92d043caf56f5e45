package truetype

import "encoding/binary"

// buildTestFont assembles a minimal four-glyph TrueType font for unit
// tests: glyph 0 is .notdef, glyphs 1 and 2 are simple (empty-outline)
// glyphs mapped from 'A' and 'B', and glyph 3 is a composite referencing
// both, mapped from 'C'. Glyph bodies carry no real outline data beyond
// the numberOfContours header field, which is all this package's subset
// logic inspects.
func buildTestFont(unitsPerEm uint16, ascender, descender int16) []byte {
	const numGlyphs = 4

	simpleGlyph := []byte{0x00, 0x00} // numberOfContours = 0

	// composite glyph: numberOfContours = -1, bbox (8 zero bytes), then two
	// components (glyph 1, glyph 2), args not words, no scale.
	composite := make([]byte, 0, 22)
	composite = append(composite, 0xFF, 0xFF) // numberOfContours = -1
	composite = append(composite, make([]byte, 8)...) // bbox
	var comp1, comp2 [6]byte
	binary.BigEndian.PutUint16(comp1[0:2], compFlagMoreComponent)
	binary.BigEndian.PutUint16(comp1[2:4], 1) // glyph index 1
	binary.BigEndian.PutUint16(comp2[0:2], 0)
	binary.BigEndian.PutUint16(comp2[2:4], 2) // glyph index 2
	composite = append(composite, comp1[:]...)
	composite = append(composite, comp2[:]...)

	glyphs := [numGlyphs][]byte{
		0: append([]byte(nil), simpleGlyph...),
		1: append([]byte(nil), simpleGlyph...),
		2: append([]byte(nil), simpleGlyph...),
		3: composite,
	}

	var glyf []byte
	loca := make([]uint32, 0, numGlyphs+1)
	loca = append(loca, 0)
	for i := 0; i < numGlyphs; i++ {
		glyf = append(glyf, glyphs[i]...)
		loca = append(loca, uint32(len(glyf)))
	}

	head := make([]byte, 54)
	binary.BigEndian.PutUint32(head[0:4], 0x00010000)
	binary.BigEndian.PutUint32(head[12:16], 0x5F0F3CF5)
	binary.BigEndian.PutUint16(head[18:20], unitsPerEm)
	binary.BigEndian.PutUint16(head[50:52], 1) // long loca

	maxp := make([]byte, 6)
	binary.BigEndian.PutUint32(maxp[0:4], 0x00005000)
	binary.BigEndian.PutUint16(maxp[4:6], numGlyphs)

	hhea := make([]byte, 36)
	binary.BigEndian.PutUint16(hhea[4:6], uint16(ascender))
	binary.BigEndian.PutUint16(hhea[6:8], uint16(descender))
	binary.BigEndian.PutUint16(hhea[34:36], numGlyphs)

	hmtx := make([]byte, 4*numGlyphs)
	for i := 0; i < numGlyphs; i++ {
		binary.BigEndian.PutUint16(hmtx[4*i:4*i+2], uint16(500))
	}

	cmap := buildTestCmap(map[rune]uint16{'A': 1, 'B': 2, 'C': 3})

	tables := map[string][]byte{
		"head": head,
		"maxp": maxp,
		"hhea": hhea,
		"hmtx": hmtx,
		"loca": encodeLongLoca(loca),
		"glyf": glyf,
		"cmap": cmap,
	}
	return assembleSFNT(tables)
}

// buildTestCmap builds a single-segment-per-rune format 4 subtable, plus
// the mandatory terminal 0xFFFF segment.
func buildTestCmap(mapping map[rune]uint16) []byte {
	type seg struct {
		code rune
		gid  uint16
	}
	var segs []seg
	for r, gid := range mapping {
		segs = append(segs, seg{r, gid})
	}
	for i := 1; i < len(segs); i++ {
		for j := i; j > 0 && segs[j-1].code > segs[j].code; j-- {
			segs[j-1], segs[j] = segs[j], segs[j-1]
		}
	}
	segs = append(segs, seg{0xFFFF, 1})
	segCount := len(segs)
	segCountX2 := uint16(2 * segCount)

	header := make([]byte, 14)
	binary.BigEndian.PutUint16(header[0:2], 4) // format
	binary.BigEndian.PutUint16(header[6:8], segCountX2)

	endCodes := make([]byte, 2*segCount)
	startCodes := make([]byte, 2*segCount)
	idDeltas := make([]byte, 2*segCount)
	idRangeOffsets := make([]byte, 2*segCount)
	for i, s := range segs {
		binary.BigEndian.PutUint16(endCodes[2*i:2*i+2], uint16(s.code))
		binary.BigEndian.PutUint16(startCodes[2*i:2*i+2], uint16(s.code))
		binary.BigEndian.PutUint16(idDeltas[2*i:2*i+2], s.gid-uint16(s.code))
	}

	var sub []byte
	sub = append(sub, header...)
	sub = append(sub, endCodes...)
	sub = append(sub, 0, 0) // reservedPad
	sub = append(sub, startCodes...)
	sub = append(sub, idDeltas...)
	sub = append(sub, idRangeOffsets...)
	binary.BigEndian.PutUint16(sub[2:4], uint16(len(sub)))

	out := make([]byte, 4+8)
	binary.BigEndian.PutUint16(out[0:2], 0) // version
	binary.BigEndian.PutUint16(out[2:4], 1) // numTables
	binary.BigEndian.PutUint16(out[4:6], 3) // platform Windows
	binary.BigEndian.PutUint16(out[6:8], 1) // encoding Unicode BMP
	binary.BigEndian.PutUint32(out[8:12], 12)
	return append(out, sub...)
}
