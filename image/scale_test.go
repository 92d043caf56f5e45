package image

import "testing"

func TestResolveStretchIgnoresAspect(t *testing.T) {
	w, h := Resolve(Stretch, 100, 50, 30, 90)
	if w != 30 || h != 90 {
		t.Errorf("Resolve(Stretch) = (%v, %v), want (30, 90)", w, h)
	}
}

func TestResolveFitWidth(t *testing.T) {
	w, h := Resolve(FitWidth, 200, 100, 50, 999)
	if w != 50 {
		t.Errorf("width = %v, want 50", w)
	}
	if h != 25 {
		t.Errorf("height = %v, want 25 (aspect-preserved)", h)
	}
}

func TestResolveFitHeight(t *testing.T) {
	w, h := Resolve(FitHeight, 200, 100, 999, 40)
	if h != 40 {
		t.Errorf("height = %v, want 40", h)
	}
	if w != 80 {
		t.Errorf("width = %v, want 80 (aspect-preserved)", w)
	}
}

func TestResolveFitBoxPicksSmallerScale(t *testing.T) {
	// natural 200x100 (aspect 2:1), box 50x40: width-driven scale 0.25,
	// height-driven scale 0.4 -> smaller (0.25) wins.
	w, h := Resolve(FitBox, 200, 100, 50, 40)
	if w != 50 || h != 25 {
		t.Errorf("Resolve(FitBox) = (%v, %v), want (50, 25)", w, h)
	}
}

func TestResolveDegenerateNaturalSize(t *testing.T) {
	w, h := Resolve(FitWidth, 0, 0, 10, 20)
	if w != 10 || h != 20 {
		t.Errorf("Resolve with zero natural size = (%v, %v), want target size unchanged (10, 20)", w, h)
	}
}

func TestDetectFormat(t *testing.T) {
	cases := []struct {
		name string
		data []byte
		want Format
	}{
		{"jpeg", []byte{0xFF, 0xD8, 0xFF, 0xE0}, JPEG},
		{"png", []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A, 0x00}, PNG},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got, err := DetectFormat(c.data)
			if err != nil {
				t.Fatalf("DetectFormat: %v", err)
			}
			if got != c.want {
				t.Errorf("DetectFormat = %v, want %v", got, c.want)
			}
		})
	}
}

func TestDetectFormatUnknown(t *testing.T) {
	if _, err := DetectFormat([]byte{0x00, 0x01, 0x02}); err == nil {
		t.Error("expected an error for unrecognized magic bytes")
	}
}
