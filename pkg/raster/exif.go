package raster

import (
	"encoding/binary"
	"fmt"
	"image"

	"github.com/disintegration/imaging"
)

// orientations maps EXIF orientation 2..8 to the transform that makes the
// image upright. imaging rotates counter-clockwise.
var orientations = map[int]func(image.Image) *image.NRGBA{
	2: imaging.FlipH,
	3: imaging.Rotate180,
	4: imaging.FlipV,
	5: imaging.Transpose,
	6: imaging.Rotate270,
	7: imaging.Transverse,
	8: imaging.Rotate90,
}

// Orient applies an EXIF orientation. 1 and unknown values return img.
func Orient(img image.Image, orientation int) image.Image {
	if f, ok := orientations[orientation]; ok && img != nil {
		return f(img)
	}
	return img
}

// parseTIFFStartFromJPEG scans JPEG segments to find an APP1 Exif block and returns
// the TIFF start offset (index in data) where the TIFF header begins, or -1 if not found.
func parseTIFFStartFromJPEG(data []byte) (int, error) {
	if len(data) < 4 {
		return -1, fmt.Errorf("data too short")
	}
	i := 2 // skip initial 0xFF 0xD8
	for i+4 < len(data) {
		if data[i] != 0xFF {
			i++
			continue
		}
		marker := data[i+1]
		if marker == 0xDA { // start of scan
			break
		}
		segLen := int(data[i+2])<<8 | int(data[i+3])
		if marker == 0xE1 && segLen >= 8 {
			// check for "Exif\0\0"
			if i+10 <= len(data) && string(data[i+4:i+10]) == "Exif\x00\x00" {
				return i + 10, nil
			}
		}
		if segLen <= 2 {
			i += 2
		} else {
			i += 2 + segLen
		}
	}
	return -1, fmt.Errorf("no exif segment")
}

// jpegOrientation returns the EXIF orientation (1..8) stored in IFD0.
func jpegOrientation(data []byte) (int, error) {
	tiffStart, err := parseTIFFStartFromJPEG(data)
	if err != nil {
		return 0, err
	}
	if tiffStart+8 > len(data) {
		return 0, fmt.Errorf("tiff header truncated")
	}
	var order binary.ByteOrder
	switch string(data[tiffStart : tiffStart+2]) {
	case "MM":
		order = binary.BigEndian
	case "II":
		order = binary.LittleEndian
	default:
		return 0, fmt.Errorf("unknown tiff byte order")
	}
	if order.Uint16(data[tiffStart+2:tiffStart+4]) != 0x002A {
		return 0, fmt.Errorf("invalid tiff magic")
	}
	ifd := tiffStart + int(order.Uint32(data[tiffStart+4:tiffStart+8]))
	if ifd+2 > len(data) {
		return 0, fmt.Errorf("ifd truncated")
	}
	n := int(order.Uint16(data[ifd : ifd+2]))
	for e := 0; e < n; e++ {
		ent := ifd + 2 + e*12
		if ent+12 > len(data) {
			break
		}
		// orientation is a single SHORT stored inline
		if order.Uint16(data[ent:ent+2]) == 0x0112 && order.Uint16(data[ent+2:ent+4]) == 3 {
			o := int(order.Uint16(data[ent+8 : ent+10]))
			if o >= 1 && o <= 8 {
				return o, nil
			}
			return 0, fmt.Errorf("orientation %d out of range", o)
		}
	}
	return 0, fmt.Errorf("orientation tag not found")
}
