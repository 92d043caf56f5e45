package image

// ScaleMode selects how a requested (w, h) target box is reconciled with an
// image's natural aspect ratio.
type ScaleMode int

const (
	// Stretch uses the target size exactly, ignoring aspect ratio.
	Stretch ScaleMode = iota
	// FitWidth preserves aspect ratio, driven by the target width.
	FitWidth
	// FitHeight preserves aspect ratio, driven by the target height.
	FitHeight
	// FitBox preserves aspect ratio, fitting inside the target box using
	// the smaller of the two ratios.
	FitBox
)

// Resolve computes the actual display size for an image of natural size
// (naturalW, naturalH) requested at target size (w, h) under mode.
func Resolve(mode ScaleMode, naturalW, naturalH, w, h float64) (actualW, actualH float64) {
	if naturalW <= 0 || naturalH <= 0 {
		return w, h
	}
	aspect := naturalW / naturalH
	switch mode {
	case FitWidth:
		return w, w / aspect
	case FitHeight:
		return h * aspect, h
	case FitBox:
		scale := w / naturalW
		if h/naturalH < scale {
			scale = h / naturalH
		}
		return naturalW * scale, naturalH * scale
	default: // Stretch
		return w, h
	}
}
