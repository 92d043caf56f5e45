package image

import (
	"bytes"
	"compress/zlib"
	goimage "image"
	"image/color"
	_ "image/png"
)

// FromPNG fully decodes a PNG payload and re-encodes its pixels as a
// FlateDecode XObject, alpha-compositing any transparency against white
// (PDF image XObjects with no SMask are opaque).
func FromPNG(data []byte) (*XObject, error) {
	img, _, err := goimage.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}

	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()

	// Gray+alpha PNGs decode to NRGBA, so also check the IHDR color type
	// (byte 25 of the file; 4 means grayscale with alpha).
	isGray := isGrayModel(img) || (len(data) > 25 && data[25] == 4)
	colorSpace := "DeviceRGB"
	bytesPerPixel := 3
	if isGray {
		colorSpace = "DeviceGray"
		bytesPerPixel = 1
	}

	raw := make([]byte, width*height*bytesPerPixel)
	i := 0
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			r, g, b, a := img.At(x, y).RGBA()
			alpha := float64(a) / 0xFFFF
			br := blendWhite(r, alpha)
			bg := blendWhite(g, alpha)
			bb := blendWhite(b, alpha)
			if isGray {
				raw[i] = br
				i++
			} else {
				raw[i] = br
				raw[i+1] = bg
				raw[i+2] = bb
				i += 3
			}
		}
	}

	var compressed bytes.Buffer
	zw := zlib.NewWriter(&compressed)
	if _, err := zw.Write(raw); err != nil {
		return nil, err
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}

	return &XObject{
		Width:            width,
		Height:           height,
		ColorSpace:       colorSpace,
		BitsPerComponent: 8,
		Filter:           "FlateDecode",
		Data:             compressed.Bytes(),
	}, nil
}

// blendWhite takes a 16-bit alpha-premultiplied channel sample (as returned
// by color.Color.RGBA) and its [0,1] alpha and returns the 8-bit sample
// after compositing against a white background: since the input is already
// premultiplied, p' = premultiplied + 255*(1-a).
func blendWhite(premultiplied16 uint32, alpha float64) byte {
	premultFrac := float64(premultiplied16) / 0xFFFF
	blended := premultFrac + (1 - alpha)
	if blended < 0 {
		blended = 0
	}
	if blended > 1 {
		blended = 1
	}
	return byte(blended*255 + 0.5)
}

// isGrayModel reports whether img's color model is a grayscale model, so
// that grayscale PNGs without alpha emit DeviceGray instead of DeviceRGB
// (FromPNG covers grayscale with alpha through the PNG color type).
func isGrayModel(img goimage.Image) bool {
	switch img.ColorModel() {
	case color.GrayModel, color.Gray16Model:
		return true
	default:
		return false
	}
}
