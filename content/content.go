// Package content emits the page content-stream operator sequences used by
// the document engine: positioned, colored text runs and image placements.
package content

import (
	"encoding/hex"
	"fmt"
	"strings"
)

// TextBlock renders the operator sequence for one buffered text op, given
// its variant's remapped glyph ids (hex-encoded here), at final position
// (x, y) in PDF bottom-origin coordinates.
//
//	BT
//	{r} {g} {b} rg
//	/{tag} {size} Tf
//	{x} {y} Td
//	<hex> Tj
//	ET
//
// Each block is independent (bracketed by its own BT/ET); the emitter never
// produces an absolute Tm, only relative Td moves.
func TextBlock(tag string, size float64, r, g, b, x, y float64, gids []uint16) string {
	var sb strings.Builder
	sb.WriteString("BT\n")
	fmt.Fprintf(&sb, "%s %s %s rg\n", trimFloat(r), trimFloat(g), trimFloat(b))
	fmt.Fprintf(&sb, "/%s %s Tf\n", tag, trimFloat(size))
	fmt.Fprintf(&sb, "%s %s Td\n", trimFloat(x), trimFloat(y))
	fmt.Fprintf(&sb, "<%s> Tj\n", hexEncodeGIDs(gids))
	sb.WriteString("ET\n")
	return sb.String()
}

// hexEncodeGIDs encodes a sequence of (post-subset) glyph ids as the
// 2-byte-per-glyph hex string a CIDFontType2/Identity-H string expects.
// Uppercase, matching the ToUnicode CMap's own <GID4hex> <CP4hex> hex
// formatting.
func hexEncodeGIDs(gids []uint16) string {
	raw := make([]byte, 2*len(gids))
	for i, gid := range gids {
		raw[2*i] = byte(gid >> 8)
		raw[2*i+1] = byte(gid)
	}
	return strings.ToUpper(hex.EncodeToString(raw))
}

// trimFloat formats a float with up to 4 decimal places, trimming trailing
// zeros, matching the compact numeric style PDF content streams use.
func trimFloat(v float64) string {
	s := fmt.Sprintf("%.4f", v)
	i := len(s)
	for i > 0 && s[i-1] == '0' {
		i--
	}
	if i > 0 && s[i-1] == '.' {
		i--
	}
	return s[:i]
}
