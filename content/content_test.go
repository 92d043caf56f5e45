package content

import (
	"strings"
	"testing"
)

func TestTextBlockShape(t *testing.T) {
	block := TextBlock("F0", 12, 1, 0, 0, 72, 700, []uint16{1, 2})

	wantLines := []string{
		"BT",
		"1 0 0 rg",
		"/F0 12 Tf",
		"72 700 Td",
		"<00010002> Tj",
		"ET",
	}
	gotLines := strings.Split(strings.TrimRight(block, "\n"), "\n")
	if len(gotLines) != len(wantLines) {
		t.Fatalf("TextBlock produced %d lines, want %d:\n%s", len(gotLines), len(wantLines), block)
	}
	for i, want := range wantLines {
		if gotLines[i] != want {
			t.Errorf("line %d = %q, want %q", i, gotLines[i], want)
		}
	}
}

func TestTextBlockTrimsTrailingZeros(t *testing.T) {
	block := TextBlock("F1", 10.5, 0, 0, 0, 1.2500, 2, nil)
	if !strings.Contains(block, "10.5 Tf") {
		t.Errorf("expected trimmed size 10.5, got:\n%s", block)
	}
	if !strings.Contains(block, "1.25 2 Td") {
		t.Errorf("expected trimmed x coordinate 1.25, got:\n%s", block)
	}
}

func TestHexEncodeGIDsEmpty(t *testing.T) {
	block := TextBlock("F0", 12, 0, 0, 0, 0, 0, nil)
	if !strings.Contains(block, "<> Tj") {
		t.Errorf("expected empty hex string for no glyphs, got:\n%s", block)
	}
}
