package image

import (
	"encoding/binary"
	"fmt"
)

// FromJPEG builds a DCTDecode XObject from a raw JPEG byte stream, walking
// the marker segments to find the first SOF (start-of-frame) marker for its
// width, height and component count. The payload is embedded verbatim.
func FromJPEG(data []byte) (*XObject, error) {
	width, height, components, err := jpegDimensions(data)
	if err != nil {
		return nil, err
	}
	colorSpace := "DeviceRGB"
	if components == 1 {
		colorSpace = "DeviceGray"
	}
	return &XObject{
		Width:            width,
		Height:           height,
		ColorSpace:       colorSpace,
		BitsPerComponent: 8,
		Filter:           "DCTDecode",
		Data:             data,
	}, nil
}

// jpegDimensions scans marker segments for the first start-of-frame marker
// (0xC0-0xCF, excluding the DHT/JPG/DAC markers 0xC4, 0xC8, 0xCC) and reads
// its height, width and component count.
func jpegDimensions(data []byte) (width, height, components int, err error) {
	if len(data) < 4 || data[0] != 0xFF || data[1] != 0xD8 {
		return 0, 0, 0, fmt.Errorf("image: not a JPEG stream")
	}
	pos := 2
	for pos+4 <= len(data) {
		if data[pos] != 0xFF {
			return 0, 0, 0, fmt.Errorf("image: malformed JPEG marker at byte %d", pos)
		}
		marker := data[pos+1]
		pos += 2

		// Markers with no payload.
		if marker == 0xD8 || marker == 0xD9 || (marker >= 0xD0 && marker <= 0xD7) || marker == 0x01 {
			continue
		}

		if pos+2 > len(data) {
			return 0, 0, 0, fmt.Errorf("image: truncated JPEG segment")
		}
		segLen := int(binary.BigEndian.Uint16(data[pos : pos+2]))
		if segLen < 2 || pos+segLen > len(data) {
			return 0, 0, 0, fmt.Errorf("image: invalid JPEG segment length")
		}

		isSOF := marker >= 0xC0 && marker <= 0xCF && marker != 0xC4 && marker != 0xC8 && marker != 0xCC
		if isSOF {
			seg := data[pos:]
			if len(seg) < 8 {
				return 0, 0, 0, fmt.Errorf("image: truncated SOF segment")
			}
			height = int(binary.BigEndian.Uint16(seg[3:5]))
			width = int(binary.BigEndian.Uint16(seg[5:7]))
			components = int(seg[7])
			return width, height, components, nil
		}

		pos += segLen
		if marker == 0xDA { // start-of-scan: entropy data follows, no more markers to scan for SOF
			break
		}
	}
	return 0, 0, 0, fmt.Errorf("image: no SOF marker found in JPEG stream")
}
