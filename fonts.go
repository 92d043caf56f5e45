package rspdft

import (
	"github.com/kapong/rspdft/font/family"
)

// FamilyBuilder assembles a font family's up to four variants fluently,
// before registering it with RegisterFontFamily.
type FamilyBuilder struct {
	regular    []byte
	bold       []byte
	italic     []byte
	boldItalic []byte
}

// NewFamilyBuilder starts a builder with its mandatory regular variant.
func NewFamilyBuilder(regularTTF []byte) *FamilyBuilder {
	return &FamilyBuilder{regular: regularTTF}
}

func (b *FamilyBuilder) WithBold(ttf []byte) *FamilyBuilder {
	b.bold = ttf
	return b
}

func (b *FamilyBuilder) WithItalic(ttf []byte) *FamilyBuilder {
	b.italic = ttf
	return b
}

func (b *FamilyBuilder) WithBoldItalic(ttf []byte) *FamilyBuilder {
	b.boldItalic = ttf
	return b
}

func (b *FamilyBuilder) build(name string) (*family.Family, error) {
	regular, err := newFontDescriptor(name, b.regular)
	if err != nil {
		return nil, err
	}
	fb := family.NewBuilder(name, regular)

	if b.bold != nil {
		d, err := newFontDescriptor(name+"-bold", b.bold)
		if err != nil {
			return nil, err
		}
		fb.WithBold(d)
	}
	if b.italic != nil {
		d, err := newFontDescriptor(name+"-italic", b.italic)
		if err != nil {
			return nil, err
		}
		fb.WithItalic(d)
	}
	if b.boldItalic != nil {
		d, err := newFontDescriptor(name+"-bold-italic", b.boldItalic)
		if err != nil {
			return nil, err
		}
		fb.WithBoldItalic(d)
	}
	return fb.Build(), nil
}

// RegisterFontFamily registers a complete font family under name, failing
// with *FontAlreadyExists if name is already taken in the shared
// font/family namespace.
func (doc *Document) RegisterFontFamily(name string, builder *FamilyBuilder) error {
	if doc.names[name] {
		return &FontAlreadyExists{Name: name}
	}
	fam, err := builder.build(name)
	if err != nil {
		return err
	}
	doc.families[name] = fam
	doc.names[name] = true
	return nil
}

// AddFont registers a single TrueType file under name: the legacy,
// single-variant path. It registers both a bare descriptor and a
// single-variant family of the same name so that it resolves uniformly
// with families registered via RegisterFontFamily.
func (doc *Document) AddFont(name string, ttf []byte) error {
	if doc.names[name] {
		return &FontAlreadyExists{Name: name}
	}
	desc, err := newFontDescriptor(name, ttf)
	if err != nil {
		return err
	}
	doc.legacy[name] = desc
	doc.families[name] = family.New(name, desc)
	doc.names[name] = true
	return nil
}

// SetFont selects name (a family or legacy font) as the current primary
// font and size as the current size in points.
func (doc *Document) SetFont(name string, size float64) error {
	fam, ok := doc.resolveFamily(name)
	if !ok {
		return &FontNotFound{Name: name}
	}
	doc.state.familyName = name
	doc.state.family = fam
	doc.state.size = size
	doc.hasFont = true
	return nil
}

// SetFontSize changes the current size in points.
func (doc *Document) SetFontSize(size float64) error {
	if !doc.hasFont {
		return &FontNotFound{Name: doc.state.familyName}
	}
	doc.state.size = size
	return nil
}

// SetFontWeight changes the current weight used for variant resolution.
func (doc *Document) SetFontWeight(w family.Weight) error {
	if !doc.hasFont {
		return &FontNotFound{Name: doc.state.familyName}
	}
	doc.state.weight = w
	return nil
}

// SetFontStyle changes the current style used for variant resolution.
func (doc *Document) SetFontStyle(s family.Style) error {
	if !doc.hasFont {
		return &FontNotFound{Name: doc.state.familyName}
	}
	doc.state.style = s
	return nil
}

// SetTextColor changes the current text color.
func (doc *Document) SetTextColor(c Color) {
	doc.state.color = c
}

// SetFontFallback sets familyName's fallback chain: per-character escape
// used by text segmentation when the primary variant lacks a glyph. Every
// entry must resolve to a registered family or legacy font.
func (doc *Document) SetFontFallback(familyName string, fallbacks []string) error {
	if _, ok := doc.resolveFamily(familyName); !ok {
		return &FontNotFound{Name: familyName}
	}
	for _, fb := range fallbacks {
		if _, ok := doc.resolveFamily(fb); !ok {
			return &FontNotFound{Name: fb}
		}
	}
	doc.fallback[familyName] = fallbacks
	return nil
}
