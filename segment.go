package rspdft

// segment is a maximal run of consecutive codepoints that resolve to the
// same variant.
type segment struct {
	text    string
	variant *fontDescriptor
}

// segmentText partitions text into variant-homogeneous segments per the
// fallback algorithm: a codepoint uses primary if primary has a glyph for
// it, otherwise the first entry of the primary family's fallback chain
// (resolved at the current weight/style) that has a glyph, otherwise
// primary again (producing .notdef at render time).
//
// Concatenating every returned segment's text reproduces text exactly, and
// consecutive segments never share a variant. The pass is linear in the
// length of text.
func (doc *Document) segmentText(text string, primary *fontDescriptor) []segment {
	fallbacks := doc.fallback[doc.state.familyName]

	var segs []segment
	var cur []rune
	var curVariant *fontDescriptor

	flush := func() {
		if len(cur) > 0 {
			segs = append(segs, segment{text: string(cur), variant: curVariant})
			cur = cur[:0]
		}
	}

	for _, r := range text {
		v := doc.resolveVariantForRune(r, primary, fallbacks)
		if curVariant != nil && v != curVariant {
			flush()
		}
		curVariant = v
		cur = append(cur, r)
	}
	flush()

	return segs
}

// resolveVariantForRune implements §4.6's per-codepoint resolution order.
func (doc *Document) resolveVariantForRune(r rune, primary *fontDescriptor, fallbacks []string) *fontDescriptor {
	if primary.face.HasGlyph(r) {
		return primary
	}
	for _, name := range fallbacks {
		fam, ok := doc.resolveFamily(name)
		if !ok {
			continue
		}
		variant, _ := fam.Resolve(doc.state.weight, doc.state.style).(*fontDescriptor)
		if variant != nil && variant.face.HasGlyph(r) {
			return variant
		}
	}
	return primary
}
