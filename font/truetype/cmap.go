package truetype

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// readCmap locates the best available (platform, encoding) subtable in the
// font's 'cmap' table and decodes it into a rune -> glyph id map. Formats 4
// and 12 are supported, which together cover the overwhelming majority of
// fonts seen in practice.
func (f *Face) readCmap(data []byte) (map[rune]GlyphID, error) {
	tbl, err := f.dir.bytes(data, "cmap")
	if err != nil {
		return nil, err
	}
	if len(tbl) < 4 {
		return nil, errors.New("truetype: cmap table too short")
	}
	numTables := int(binary.BigEndian.Uint16(tbl[2:4]))
	if numTables <= 0 || numTables > 100 {
		return nil, errors.New("truetype: implausible cmap subtable count")
	}

	type record struct {
		platform, encoding uint16
		offset             uint32
	}
	var records []record
	for i := 0; i < numTables; i++ {
		pos := 4 + i*8
		if pos+8 > len(tbl) {
			return nil, errors.New("truetype: cmap encoding records truncated")
		}
		records = append(records, record{
			platform: binary.BigEndian.Uint16(tbl[pos : pos+2]),
			encoding: binary.BigEndian.Uint16(tbl[pos+2 : pos+4]),
			offset:   binary.BigEndian.Uint32(tbl[pos+4 : pos+8]),
		})
	}

	// Preference order: Windows BMP, Windows full Unicode, Unicode platform,
	// then anything left (e.g. symbol or old Mac Roman encodings).
	rank := func(r record) int {
		switch {
		case r.platform == 3 && r.encoding == 1:
			return 0
		case r.platform == 3 && r.encoding == 10:
			return 1
		case r.platform == 0:
			return 2
		default:
			return 3
		}
	}
	best := records[0]
	for _, r := range records[1:] {
		if rank(r) < rank(best) {
			best = r
		}
	}
	if uint64(best.offset) >= uint64(len(tbl)) {
		return nil, errors.New("truetype: cmap subtable offset out of range")
	}
	return decodeCmapSubtable(tbl[best.offset:])
}

func decodeCmapSubtable(sub []byte) (map[rune]GlyphID, error) {
	if len(sub) < 2 {
		return nil, errors.New("truetype: cmap subtable too short")
	}
	format := binary.BigEndian.Uint16(sub[0:2])
	result := make(map[rune]GlyphID)

	switch format {
	case 4:
		if len(sub) < 14 {
			return nil, errors.New("truetype: format 4 cmap truncated")
		}
		segCountX2 := int(binary.BigEndian.Uint16(sub[6:8]))
		segCount := segCountX2 / 2
		if segCount <= 0 || segCount > 50_000 {
			return nil, errors.New("truetype: implausible cmap segment count")
		}
		base := 14
		endCodes := sub[base:]
		startCodes := sub[base+segCountX2+2:]
		idDeltas := sub[base+2*segCountX2+2:]
		idRangeOffsets := sub[base+3*segCountX2+2:]
		glyphIDArrayBase := base + 4*segCountX2 + 2

		for s := 0; s < segCount; s++ {
			end := binary.BigEndian.Uint16(endCodes[s*2 : s*2+2])
			start := binary.BigEndian.Uint16(startCodes[s*2 : s*2+2])
			delta := binary.BigEndian.Uint16(idDeltas[s*2 : s*2+2])
			rangeOffset := binary.BigEndian.Uint16(idRangeOffsets[s*2 : s*2+2])
			if start == 0xFFFF && end == 0xFFFF {
				continue
			}
			if end < start {
				continue
			}
			for c := uint32(start); c <= uint32(end); c++ {
				var gid uint16
				if rangeOffset == 0 {
					gid = uint16(c) + delta
				} else {
					idx := base + 4*segCountX2 + 2 + int(rangeOffset) + 2*(s-segCount) + 2*int(c-uint32(start))
					_ = glyphIDArrayBase
					if idx+2 > len(sub) || idx < 0 {
						continue
					}
					gid = binary.BigEndian.Uint16(sub[idx : idx+2])
					if gid != 0 {
						gid += delta
					}
				}
				if gid != 0 {
					result[rune(c)] = GlyphID(gid)
				}
			}
		}

	case 12:
		if len(sub) < 16 {
			return nil, errors.New("truetype: format 12 cmap truncated")
		}
		numGroups := binary.BigEndian.Uint32(sub[12:16])
		if numGroups > 500_000 {
			return nil, errors.New("truetype: implausible cmap group count")
		}
		pos := 16
		for g := uint32(0); g < numGroups; g++ {
			if pos+12 > len(sub) {
				return nil, errors.New("truetype: format 12 cmap groups truncated")
			}
			startChar := binary.BigEndian.Uint32(sub[pos : pos+4])
			endChar := binary.BigEndian.Uint32(sub[pos+4 : pos+8])
			startGID := binary.BigEndian.Uint32(sub[pos+8 : pos+12])
			pos += 12
			if endChar < startChar || endChar > 0x10FFFF {
				continue
			}
			gid := startGID
			for c := startChar; c <= endChar; c++ {
				if gid != 0 {
					result[rune(c)] = GlyphID(gid)
				}
				gid++
			}
		}

	default:
		return nil, fmt.Errorf("truetype: unsupported cmap subtable format %d", format)
	}

	return result, nil
}
