// Package rspdft fills existing PDF templates with positioned text and
// images: it embeds TrueType fonts as subsetted Type0/
// CIDFontType2 composite fonts, appends content streams carrying the
// caller's buffered insertions without disturbing the template's own
// graphics, and can duplicate or append pages before writing the result.
package rspdft

import (
	"os"
	"strconv"

	"seehuhn.de/go/pdf"

	"github.com/kapong/rspdft/font/family"
	"github.com/kapong/rspdft/font/truetype"
)

// Align selects how a text insertion's total width is anchored at its x
// coordinate.
type Align int

const (
	AlignLeft Align = iota
	AlignCenter
	AlignRight
)

type drawingState struct {
	familyName string
	family     *family.Family
	weight     family.Weight
	style      family.Style
	size       float64
	color      Color
}

// fontDescriptor is one concrete TrueType-backed variant: either a family
// slot (regular/bold/italic/bold-italic) or a legacy single-variant font.
// It implements family.Variant.
type fontDescriptor struct {
	name      string
	face      *truetype.Face
	raw       []byte
	used      map[rune]struct{}
	subsetter *truetype.Subsetter
	remap     map[rune]truetype.GlyphID // refreshed by the save pipeline's subset phase
}

func (d *fontDescriptor) ResourceTag() string { return d.name }

func (d *fontDescriptor) addChars(text string) {
	for _, r := range text {
		d.used[r] = struct{}{}
	}
}

func newFontDescriptor(name string, ttf []byte) (*fontDescriptor, error) {
	face, err := truetype.Parse(ttf)
	if err != nil {
		return nil, &FontParseError{Msg: err.Error()}
	}
	return &fontDescriptor{
		name:      name,
		face:      face,
		raw:       ttf,
		used:      map[rune]struct{}{},
		subsetter: truetype.NewSubsetter(face),
	}, nil
}

// textOp is one buffered, not-yet-encoded text insertion.
type textOp struct {
	text    string
	variant *fontDescriptor
	tag     string
	page    int
	x, y    float64
	size    float64
	color   Color
}

// Document is the PDF generation engine: it owns a loaded PDF object graph,
// the registered font families and legacy fonts, the current drawing
// state, and every buffered insertion made since it was opened.
type Document struct {
	data         *pdf.Data
	pagesRootRef pdf.Reference
	pages        []pdf.Reference // 1-indexed via pages[pageNum-1]

	families map[string]*family.Family
	legacy   map[string]*fontDescriptor
	names    map[string]bool

	state   drawingState
	hasFont bool

	fallback map[string][]string

	bufferedText []textOp

	pageFontTags  map[int]map[string]string // page -> variant resource name -> tag
	pageFontSeq   map[int]int
	pageImageTags map[int]map[uint64]string // page -> image hash -> tag
	pageImageSeq  map[int]int

	pageAccum map[int][]byte // per-page pending content-stream bytes, drained by save

	imageObjects map[uint64]pdf.Reference // global dedup: raw-byte hash -> embedded XObject ref
}

// Open loads an existing PDF template from path.
func Open(path string) (*Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &OpenError{Err: err}
	}
	data, err := pdf.Read(f, nil)
	if err != nil {
		f.Close()
		return nil, &OpenError{Err: err}
	}
	data.AutoClose(f)
	return newDocument(data)
}

// OpenFromBytes loads an existing PDF template already held in memory.
func OpenFromBytes(b []byte) (*Document, error) {
	data, err := pdf.Read(newReadSeeker(b), nil)
	if err != nil {
		return nil, &OpenError{Err: err}
	}
	return newDocument(data)
}

func newDocument(data *pdf.Data) (*Document, error) {
	doc := &Document{
		data:          data,
		families:      map[string]*family.Family{},
		legacy:        map[string]*fontDescriptor{},
		names:         map[string]bool{},
		fallback:      map[string][]string{},
		pageFontTags:  map[int]map[string]string{},
		pageFontSeq:   map[int]int{},
		pageImageTags: map[int]map[uint64]string{},
		pageImageSeq:  map[int]int{},
		pageAccum:     map[int][]byte{},
		imageObjects:  map[uint64]pdf.Reference{},
	}

	meta := data.GetMeta()
	if meta.Catalog == nil || meta.Catalog.Pages == 0 {
		return nil, &OpenError{Err: errNoPageTree}
	}
	doc.pagesRootRef = meta.Catalog.Pages

	pages, err := collectPages(data, meta.Catalog.Pages, 0)
	if err != nil {
		return nil, &OpenError{Err: err}
	}
	doc.pages = pages

	return doc, nil
}

// PageCount reports the number of pages in the document.
func (doc *Document) PageCount() int {
	return len(doc.pages)
}

// resolveFamily resolves name against the shared family/legacy namespace,
// families taking precedence over a bare legacy font of the same name.
func (doc *Document) resolveFamily(name string) (*family.Family, bool) {
	if fam, ok := doc.families[name]; ok {
		return fam, true
	}
	if desc, ok := doc.legacy[name]; ok {
		return family.New(name, desc), true
	}
	return nil, false
}

// getOrCreateFontTag returns the resource tag already assigned to variant
// on page, minting a new one (first-use order) if this is the first time
// the variant is used on that page.
func (doc *Document) getOrCreateFontTag(page int, variant *fontDescriptor) string {
	tags, ok := doc.pageFontTags[page]
	if !ok {
		tags = map[string]string{}
		doc.pageFontTags[page] = tags
	}
	if tag, ok := tags[variant.name]; ok {
		return tag
	}
	seq := doc.pageFontSeq[page]
	tag := fontTagName(seq)
	doc.pageFontSeq[page] = seq + 1
	tags[variant.name] = tag
	return tag
}

func fontTagName(seq int) string {
	return "F" + strconv.Itoa(seq)
}

func imageTagName(seq int) string {
	return "Im" + strconv.Itoa(seq)
}
