// Package image decodes JPEG and PNG payloads into PDF image XObjects.
package image

import "fmt"

// Format identifies the recognized container format of an image payload.
type Format int

const (
	Unknown Format = iota
	JPEG
	PNG
)

var (
	jpegMagic = []byte{0xFF, 0xD8, 0xFF}
	pngMagic  = []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A}
)

// DetectFormat classifies data by its leading magic bytes.
func DetectFormat(data []byte) (Format, error) {
	switch {
	case hasPrefix(data, jpegMagic):
		return JPEG, nil
	case hasPrefix(data, pngMagic):
		return PNG, nil
	default:
		return Unknown, fmt.Errorf("image: unrecognized format")
	}
}

func hasPrefix(data, prefix []byte) bool {
	if len(data) < len(prefix) {
		return false
	}
	for i, b := range prefix {
		if data[i] != b {
			return false
		}
	}
	return true
}

// XObject is a fully-built PDF image XObject, ready to be written as an
// indirect stream object.
type XObject struct {
	Width, Height   int
	ColorSpace      string // DeviceGray or DeviceRGB
	BitsPerComponent int
	Filter          string // DCTDecode or FlateDecode
	Data            []byte
}

// Decode classifies and decodes an image payload, trying JPEG then PNG, per
// the engine's insert_image order.
func Decode(data []byte) (*XObject, error) {
	format, err := DetectFormat(data)
	if err != nil {
		return nil, err
	}
	switch format {
	case JPEG:
		return FromJPEG(data)
	case PNG:
		return FromPNG(data)
	default:
		return nil, fmt.Errorf("image: unsupported format")
	}
}
