package family

import "testing"

type stubVariant string

func (s stubVariant) ResourceTag() string { return string(s) }

func TestResolvePrecedence(t *testing.T) {
	regular := stubVariant("acme")
	bold := stubVariant("acme-bold")
	italic := stubVariant("acme-italic")
	boldItalic := stubVariant("acme-bold-italic")

	full := NewBuilder("acme", regular).WithBold(bold).WithItalic(italic).WithBoldItalic(boldItalic).Build()

	cases := []struct {
		name   string
		weight Weight
		style  Style
		want   Variant
	}{
		{"bold+italic picks bold-italic", Bold, Italic, boldItalic},
		{"bold+upright picks bold", Bold, Upright, bold},
		{"regular+italic picks italic", Regular, Italic, italic},
		{"regular+upright picks regular", Regular, Upright, regular},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := full.Resolve(c.weight, c.style); got != c.want {
				t.Errorf("Resolve(%v, %v) = %v, want %v", c.weight, c.style, got, c.want)
			}
		})
	}
}

func TestResolveFallsBackWhenVariantMissing(t *testing.T) {
	regular := stubVariant("acme")
	bold := stubVariant("acme-bold")
	partial := NewBuilder("acme", regular).WithBold(bold).Build()

	// bold+italic requested but no italic or bold-italic registered: falls
	// back through the precedence chain to bold.
	if got := partial.Resolve(Bold, Italic); got != bold {
		t.Errorf("Resolve(Bold, Italic) = %v, want %v (fallback to bold)", got, bold)
	}
	// italic requested but none registered: falls back to regular.
	if got := partial.Resolve(Regular, Italic); got != regular {
		t.Errorf("Resolve(Regular, Italic) = %v, want %v (fallback to regular)", got, regular)
	}
}

func TestResourceNameMatchesResolve(t *testing.T) {
	regular := stubVariant("acme")
	bold := stubVariant("acme-bold")
	fam := NewBuilder("acme", regular).WithBold(bold).Build()

	if got, want := fam.ResourceName(Bold, Upright), "acme-bold"; got != want {
		t.Errorf("ResourceName(Bold, Upright) = %q, want %q", got, want)
	}
	if got, want := fam.ResourceName(Regular, Upright), "acme"; got != want {
		t.Errorf("ResourceName(Regular, Upright) = %q, want %q", got, want)
	}
}

func TestSingleVariantFamilyAlwaysResolvesToRegular(t *testing.T) {
	// A legacy font wrapped as a single-variant family: Resolve must return
	// the same variant regardless of weight/style, per the "accepted as is"
	// fallback rule.
	legacy := stubVariant("legacy-font")
	fam := New("legacy-font", legacy)

	for _, weight := range []Weight{Regular, Bold} {
		for _, style := range []Style{Upright, Italic} {
			if got := fam.Resolve(weight, style); got != legacy {
				t.Errorf("Resolve(%v, %v) = %v, want %v", weight, style, got, legacy)
			}
		}
	}
}

func TestVariantsStableOrder(t *testing.T) {
	regular := stubVariant("acme")
	bold := stubVariant("acme-bold")
	italic := stubVariant("acme-italic")
	boldItalic := stubVariant("acme-bold-italic")
	fam := NewBuilder("acme", regular).WithBold(bold).WithItalic(italic).WithBoldItalic(boldItalic).Build()

	got := fam.Variants()
	want := []Variant{regular, bold, italic, boldItalic}
	if len(got) != len(want) {
		t.Fatalf("Variants() returned %d entries, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Variants()[%d] = %v, want %v", i, got[i], want[i])
		}
	}
}
