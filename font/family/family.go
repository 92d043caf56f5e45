// Package family groups the up to four weight/style variants of a font into
// a single named family and resolves which variant a given (weight, style)
// request should use.
package family

import "fmt"

// Weight is one of the two supported font weights.
type Weight int

const (
	Regular Weight = iota
	Bold
)

// Style is one of the two supported font styles.
type Style int

const (
	Upright Style = iota
	Italic
)

// Variant is anything that can stand in for one slot of a Family: a font
// descriptor in the document engine's sense. Kept as an opaque type
// parameter-free interface so this package has no dependency on the
// document package.
type Variant interface {
	// ResourceTag is the base name used to build the PDF resource name for
	// this variant, e.g. "acme-sans".
	ResourceTag() string
}

// Family holds up to four variants of one font. Regular is mandatory.
type Family struct {
	name        string
	regular     Variant
	bold        Variant
	italic      Variant
	boldItalic  Variant
}

// New constructs a Family with a mandatory regular variant.
func New(name string, regular Variant) *Family {
	return &Family{name: name, regular: regular}
}

// Builder assembles a Family fluently, mirroring the constructor used by
// callers that build families up incrementally.
type Builder struct {
	f *Family
}

// NewBuilder starts a family builder with its mandatory regular variant.
func NewBuilder(name string, regular Variant) *Builder {
	return &Builder{f: &Family{name: name, regular: regular}}
}

func (b *Builder) WithBold(v Variant) *Builder {
	b.f.bold = v
	return b
}

func (b *Builder) WithItalic(v Variant) *Builder {
	b.f.italic = v
	return b
}

func (b *Builder) WithBoldItalic(v Variant) *Builder {
	b.f.boldItalic = v
	return b
}

// Build returns the assembled family.
func (b *Builder) Build() *Family {
	return b.f
}

// Name returns the family's registered name.
func (f *Family) Name() string { return f.name }

// Regular returns the mandatory regular variant.
func (f *Family) Regular() Variant { return f.regular }

type slot struct {
	variant Variant
	suffix  string
}

// candidates returns the precedence-ordered slots to try for (weight,
// style):
//
//	bold+italic     -> bold-italic -> bold -> italic -> regular
//	bold+upright    -> bold -> regular
//	regular+italic  -> italic -> regular
//	regular+upright -> regular
func (f *Family) candidates(weight Weight, style Style) []slot {
	switch {
	case weight == Bold && style == Italic:
		return []slot{
			{f.boldItalic, "-bold-italic"},
			{f.bold, "-bold"},
			{f.italic, "-italic"},
			{f.regular, ""},
		}
	case weight == Bold:
		return []slot{{f.bold, "-bold"}, {f.regular, ""}}
	case style == Italic:
		return []slot{{f.italic, "-italic"}, {f.regular, ""}}
	default:
		return []slot{{f.regular, ""}}
	}
}

// Resolve selects the variant to use for the requested (weight, style).
func (f *Family) Resolve(weight Weight, style Style) Variant {
	for _, c := range f.candidates(weight, style) {
		if c.variant != nil {
			return c.variant
		}
	}
	return f.regular
}

// ResourceName returns the PDF resource name for the variant that Resolve
// would pick for (weight, style), following the pattern <family>,
// <family>-bold, <family>-italic, <family>-bold-italic.
func (f *Family) ResourceName(weight Weight, style Style) string {
	for _, c := range f.candidates(weight, style) {
		if c.variant != nil {
			return fmt.Sprintf("%s%s", f.name, c.suffix)
		}
	}
	return f.name
}

// Variants returns every non-nil variant registered on the family, in a
// stable order: regular, bold, italic, bold-italic.
func (f *Family) Variants() []Variant {
	var out []Variant
	for _, v := range []Variant{f.regular, f.bold, f.italic, f.boldItalic} {
		if v != nil {
			out = append(out, v)
		}
	}
	return out
}
