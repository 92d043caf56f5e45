package rspdft

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"seehuhn.de/go/pdf"

	"github.com/kapong/rspdft/content"
	"github.com/kapong/rspdft/font/truetype"
)

// Save runs the save pipeline and writes the result to path.
func (doc *Document) Save(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return &SaveError{Err: err}
	}
	defer f.Close()
	if err := doc.save(f); err != nil {
		return err
	}
	return nil
}

// ToBytes runs the save pipeline and returns the result.
func (doc *Document) ToBytes() ([]byte, error) {
	var buf bytes.Buffer
	if err := doc.save(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// save runs the six-phase save pipeline: (1) subset every used font and
// extend its glyph-id remap, (2) encode every buffered text op with its
// variant's remap and append it to its page's accumulator, (3) flush each
// page's accumulator into a freshly concatenated content stream, (4)
// materialize embedded font objects for every variant used anywhere in
// the document, (5) attach font resource references to every page that
// uses them, (6) serialize.
//
// It can be called more than once on the same Document: fonts and page
// content streams are rebuilt fresh each time from the full history of
// registrations and insertions, so repeated saves stay consistent and
// never duplicate a variant's embedded font group.
func (doc *Document) save(w io.Writer) error {
	if err := doc.subsetUsedFonts(); err != nil {
		return &SaveError{Err: err}
	}
	doc.encodeBufferedText()
	if err := doc.flushPageAccumulators(); err != nil {
		return &SaveError{Err: err}
	}
	variantRefs, err := doc.embedUsedFonts()
	if err != nil {
		return &SaveError{Err: err}
	}
	if err := doc.attachFontResources(variantRefs); err != nil {
		return &SaveError{Err: err}
	}
	if err := doc.data.Write(w); err != nil {
		return &SaveError{Err: err}
	}
	return nil
}

// descriptorIndex maps every registered variant's own resource name (which
// may differ from the family name it was registered under, e.g.
// "<family>-bold") to its descriptor.
func (doc *Document) descriptorIndex() map[string]*fontDescriptor {
	index := map[string]*fontDescriptor{}
	for _, fam := range doc.families {
		for _, v := range fam.Variants() {
			if d, ok := v.(*fontDescriptor); ok {
				index[d.name] = d
			}
		}
	}
	for name, d := range doc.legacy {
		index[name] = d
	}
	return index
}

// usedVariants returns every variant ever selected by a buffered or
// already-flushed text op, collected from the per-page font-tag
// bookkeeping (which persists across saves).
func (doc *Document) usedVariants() map[string]*fontDescriptor {
	index := doc.descriptorIndex()
	variants := map[string]*fontDescriptor{}
	for _, tags := range doc.pageFontTags {
		for name := range tags {
			if d, ok := index[name]; ok {
				variants[name] = d
			}
		}
	}
	return variants
}

func (doc *Document) subsetUsedFonts() error {
	for _, d := range doc.usedVariants() {
		if len(d.used) == 0 {
			continue
		}
		remap, _, err := d.subsetter.EnsureRunes(d.used)
		if err != nil {
			return &FontSubsetError{Msg: err.Error()}
		}
		d.remap = remap
	}
	return nil
}

func (doc *Document) encodeBufferedText() {
	for _, op := range doc.bufferedText {
		gids := make([]uint16, 0, len(op.text))
		for _, r := range op.text {
			gid := truetype.GlyphID(0)
			if op.variant.remap != nil {
				gid = op.variant.remap[r]
			}
			gids = append(gids, uint16(gid))
		}
		block := content.TextBlock(op.tag, op.size, op.color.R, op.color.G, op.color.B, op.x, op.y, gids)
		doc.pageAccum[op.page] = append(doc.pageAccum[op.page], block...)
	}
	doc.bufferedText = nil
}

func (doc *Document) flushPageAccumulators() error {
	for page, accum := range doc.pageAccum {
		if len(accum) == 0 {
			continue
		}
		ref, err := doc.pageRef(page)
		if err != nil {
			return err
		}
		pageDict, err := pdf.GetDict(doc.data, ref)
		if err != nil {
			return err
		}

		existing, err := readPageContent(doc.data, pageDict["Contents"])
		if err != nil {
			return err
		}

		newPayload := append(existing, accum...)
		contentRef := doc.data.Alloc()
		if err := doc.data.Put(contentRef, &pdf.Stream{
			Dict: pdf.Dict{"Length": pdf.Integer(len(newPayload))},
			R:    newByteReader(newPayload),
		}); err != nil {
			return err
		}

		pageDict["Contents"] = contentRef
		if err := replaceObject(doc.data, ref, pageDict); err != nil {
			return err
		}

		delete(doc.pageAccum, page)
	}
	return nil
}

// readPageContent decompresses and concatenates a page's existing
// Contents entry, which per the PDF spec may be a single stream reference
// or an array of them. A stream whose decompression fails is treated as
// already uncompressed (best-effort fallback, per the engine's soft-
// failure policy).
func readPageContent(data *pdf.Data, contents pdf.Object) ([]byte, error) {
	var refs []pdf.Reference
	switch c := contents.(type) {
	case pdf.Reference:
		refs = []pdf.Reference{c}
	case pdf.Array:
		for _, item := range c {
			if ref, ok := item.(pdf.Reference); ok {
				refs = append(refs, ref)
			}
		}
	}

	var out []byte
	for _, ref := range refs {
		stm, err := pdf.GetStream(data, ref)
		if err != nil || stm == nil {
			continue
		}
		r, err := pdf.DecodeStream(data, stm, 0)
		if err != nil {
			raw, rawErr := readAll(stm.R)
			if rawErr != nil {
				continue
			}
			out = append(out, raw...)
			continue
		}
		payload, err := readAll(r)
		if err != nil {
			continue
		}
		out = append(out, payload...)
	}
	return out, nil
}

// embedUsedFonts rebuilds the five-object composite-font group for every
// variant used anywhere in the document, returning a fresh name -> Type0
// font reference map. Called on every save, so a variant embedded in an
// earlier save is simply re-embedded with its now-larger subset; only the
// freshest group is ever reachable from a page's Resources.
func (doc *Document) embedUsedFonts() (map[string]pdf.Reference, error) {
	refs := map[string]pdf.Reference{}
	for name, d := range doc.usedVariants() {
		if len(d.used) == 0 {
			continue
		}
		ref, err := doc.embedVariant(d)
		if err != nil {
			return nil, err
		}
		refs[name] = ref
	}
	return refs, nil
}

func (doc *Document) embedVariant(d *fontDescriptor) (pdf.Reference, error) {
	subsetBytes, err := d.subsetter.Build()
	if err != nil {
		return 0, err
	}

	fontFileRef := doc.data.Alloc()
	if err := doc.data.Put(fontFileRef, &pdf.Stream{
		Dict: pdf.Dict{
			"Length1": pdf.Integer(len(subsetBytes)),
		},
		R: newByteReader(subsetBytes),
	}); err != nil {
		return 0, err
	}

	upm := int(d.face.UnitsPerEm())
	ascender := int(d.face.Ascender())
	descender := int(d.face.Descender())

	descriptorDict := pdf.Dict{
		"Type":        pdf.Name("FontDescriptor"),
		"FontName":    pdf.Name(d.name),
		"Flags":       pdf.Integer(4),
		"FontBBox":    pdf.Array{pdf.Integer(0), pdf.Integer(descender), pdf.Integer(upm), pdf.Integer(ascender)},
		"ItalicAngle": pdf.Integer(0),
		"Ascent":      pdf.Integer(ascender),
		"Descent":     pdf.Integer(descender),
		"CapHeight":   pdf.Integer(ascender),
		"StemV":       pdf.Integer(80),
		"FontFile2":   fontFileRef,
	}
	descriptorRef := doc.data.Alloc()
	if err := doc.data.Put(descriptorRef, descriptorDict); err != nil {
		return 0, err
	}

	widths := buildWidthsArray(d)

	cidFontDict := pdf.Dict{
		"Type":    pdf.Name("Font"),
		"Subtype": pdf.Name("CIDFontType2"),
		"BaseFont": pdf.Name(d.name),
		"CIDSystemInfo": pdf.Dict{
			"Registry":   pdf.String("Adobe"),
			"Ordering":   pdf.String("Identity"),
			"Supplement": pdf.Integer(0),
		},
		"FontDescriptor": descriptorRef,
		"W":              widths,
		"DW":             pdf.Integer(1000),
	}
	cidFontRef := doc.data.Alloc()
	if err := doc.data.Put(cidFontRef, cidFontDict); err != nil {
		return 0, err
	}

	toUnicodeRef, err := buildToUnicode(doc.data, d)
	if err != nil {
		return 0, err
	}

	type0Dict := pdf.Dict{
		"Type":            pdf.Name("Font"),
		"Subtype":         pdf.Name("Type0"),
		"BaseFont":        pdf.Name(d.name),
		"Encoding":        pdf.Name("Identity-H"),
		"DescendantFonts": pdf.Array{cidFontRef},
		"ToUnicode":       toUnicodeRef,
	}
	type0Ref := doc.data.Alloc()
	if err := doc.data.Put(type0Ref, type0Dict); err != nil {
		return 0, err
	}
	return type0Ref, nil
}

// buildWidthsArray builds the per-GID widths array in the form
// [gid1 [w1] gid2 [w2] ...], ascending by gid, covering exactly the
// variant's used, remapped glyph ids. An empty used set yields an empty
// array.
func buildWidthsArray(d *fontDescriptor) pdf.Array {
	gidToWidth := map[truetype.GlyphID]uint16{}
	for r := range d.used {
		gid, ok := d.remap[r]
		if !ok {
			continue
		}
		adv, _ := d.face.Advance(r)
		gidToWidth[gid] = adv
	}

	gids := make([]truetype.GlyphID, 0, len(gidToWidth))
	for gid := range gidToWidth {
		gids = append(gids, gid)
	}
	sortGlyphIDs(gids)

	arr := make(pdf.Array, 0, 2*len(gids))
	for _, gid := range gids {
		arr = append(arr, pdf.Integer(gid), pdf.Array{pdf.Integer(gidToWidth[gid])})
	}
	return arr
}

func sortGlyphIDs(gids []truetype.GlyphID) {
	for i := 1; i < len(gids); i++ {
		for j := i; j > 0 && gids[j-1] > gids[j]; j-- {
			gids[j-1], gids[j] = gids[j], gids[j-1]
		}
	}
}

// buildToUnicode embeds a CMap stream mapping each used glyph id back to
// its originating code point, chunked into beginbfchar/endbfchar blocks
// of at most 100 entries as Adobe's CMap spec requires.
func buildToUnicode(data *pdf.Data, d *fontDescriptor) (pdf.Reference, error) {
	type entry struct {
		gid truetype.GlyphID
		cp  rune
	}
	var entries []entry
	for r := range d.used {
		gid, ok := d.remap[r]
		if !ok {
			continue
		}
		entries = append(entries, entry{gid: gid, cp: r})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].cp < entries[j].cp })

	var sb strings.Builder
	sb.WriteString("/CIDInit /ProcSet findresource begin\n")
	sb.WriteString("12 dict begin\n")
	sb.WriteString("begincmap\n")
	sb.WriteString("/CIDSystemInfo << /Registry (Adobe) /Ordering (UCS) /Supplement 0 >> def\n")
	sb.WriteString("/CMapName /Adobe-Identity-UCS def\n")
	sb.WriteString("/CMapType 2 def\n")
	sb.WriteString("1 begincodespacerange\n<0000> <FFFF>\nendcodespacerange\n")

	for start := 0; start < len(entries); start += 100 {
		end := start + 100
		if end > len(entries) {
			end = len(entries)
		}
		chunk := entries[start:end]
		fmt.Fprintf(&sb, "%d beginbfchar\n", len(chunk))
		for _, e := range chunk {
			fmt.Fprintf(&sb, "<%04X> <%04X>\n", e.gid, e.cp)
		}
		sb.WriteString("endbfchar\n")
	}

	sb.WriteString("endcmap\n")
	sb.WriteString("CMapName currentdict /CMap defineresource pop\n")
	sb.WriteString("end\n")
	sb.WriteString("end\n")

	payload := []byte(sb.String())
	ref := data.Alloc()
	if err := data.Put(ref, &pdf.Stream{
		Dict: pdf.Dict{"Length": pdf.Integer(len(payload))},
		R:    newByteReader(payload),
	}); err != nil {
		return 0, err
	}
	return ref, nil
}

func (doc *Document) attachFontResources(variantRefs map[string]pdf.Reference) error {
	for page, tags := range doc.pageFontTags {
		if len(tags) == 0 {
			continue
		}
		ref, err := doc.pageRef(page)
		if err != nil {
			return err
		}
		pageDict, err := pdf.GetDict(doc.data, ref)
		if err != nil {
			return err
		}
		resources, _ := pdf.GetDict(doc.data, pageDict["Resources"])
		if resources == nil {
			resources = pdf.Dict{}
		}
		fonts, _ := pdf.GetDict(doc.data, resources["Font"])
		if fonts == nil {
			fonts = pdf.Dict{}
		}
		for variantName, tag := range tags {
			fontRef, ok := variantRefs[variantName]
			if !ok {
				continue
			}
			fonts[pdf.Name(tag)] = fontRef
		}
		resources["Font"] = fonts
		pageDict["Resources"] = resources
		if err := replaceObject(doc.data, ref, pageDict); err != nil {
			return err
		}
	}
	return nil
}
