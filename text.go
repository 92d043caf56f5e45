package rspdft

// InsertText buffers a text insertion at (x, y), given in top-origin page
// coordinates, anchored per align. Empty text is a no-op. The call fails
// with *InvalidPage if page is out of range, or *FontNotFound if no font
// has been selected yet.
func (doc *Document) InsertText(text string, page int, x, y float64, align Align) error {
	if text == "" {
		return nil
	}
	if page < 1 || page > len(doc.pages) {
		return &InvalidPage{Given: page, Total: len(doc.pages)}
	}
	if !doc.hasFont {
		return &FontNotFound{Name: doc.state.familyName}
	}

	primary, _ := doc.state.family.Resolve(doc.state.weight, doc.state.style).(*fontDescriptor)
	segs := doc.segmentText(text, primary)

	widths := make([]float64, len(segs))
	var total float64
	for i, seg := range segs {
		widths[i] = seg.variant.face.TextWidthPoints(seg.text, doc.state.size)
		total += widths[i]
	}

	startX := x
	switch align {
	case AlignCenter:
		startX = x - total/2
	case AlignRight:
		startX = x - total
	}

	pdfY := doc.pageHeight(page) - y

	curX := startX
	for i, seg := range segs {
		seg.variant.addChars(seg.text)
		tag := doc.getOrCreateFontTag(page, seg.variant)
		doc.bufferedText = append(doc.bufferedText, textOp{
			text:    seg.text,
			variant: seg.variant,
			tag:     tag,
			page:    page,
			x:       curX,
			y:       pdfY,
			size:    doc.state.size,
			color:   doc.state.color,
		})
		curX += widths[i]
	}

	return nil
}

// GetTextWidth returns the width in points that text would occupy if
// inserted now, using the currently selected font and its fallback chain.
func (doc *Document) GetTextWidth(text string) (float64, error) {
	if !doc.hasFont {
		return 0, &FontNotFound{Name: doc.state.familyName}
	}
	primary, _ := doc.state.family.Resolve(doc.state.weight, doc.state.style).(*fontDescriptor)
	segs := doc.segmentText(text, primary)
	var total float64
	for _, seg := range segs {
		total += seg.variant.face.TextWidthPoints(seg.text, doc.state.size)
	}
	return total, nil
}
