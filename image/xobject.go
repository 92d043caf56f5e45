package image

import "fmt"

// Operators returns the content-stream operator sequence that paints an
// already-placed image XObject resource tag at (x, y) with display size
// (w, h), in PDF bottom-origin coordinates.
func Operators(tag string, x, y, w, h float64) string {
	return fmt.Sprintf("q\n%s 0 0 %s %s %s cm\n/%s Do\nQ\n",
		trimFloat(w), trimFloat(h), trimFloat(x), trimFloat(y), tag)
}

// trimFloat formats a float with up to 4 decimal places, trimming trailing
// zeros, matching the compact numeric style PDF content streams use.
func trimFloat(v float64) string {
	s := fmt.Sprintf("%.4f", v)
	i := len(s)
	for i > 0 && s[i-1] == '0' {
		i--
	}
	if i > 0 && s[i-1] == '.' {
		i--
	}
	return s[:i]
}
