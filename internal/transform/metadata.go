package transform

import (
	"bytes"
	"encoding/binary"
)

const (
	markerSOI  = 0xD8
	markerSOS  = 0xDA
	markerAPP1 = 0xE1 // EXIF, XMP
	markerAPP2 = 0xE2 // ICC profile
)

func bytesReader(b []byte) *bytes.Reader { return bytes.NewReader(b) }

// jpegMetadataSegments returns the raw APP1 and APP2 segments of a JPEG
// stream, markers and length fields included, in file order.
func jpegMetadataSegments(data []byte) [][]byte {
	if len(data) < 4 || data[0] != 0xFF || data[1] != markerSOI {
		return nil
	}
	var segments [][]byte
	i := 2
	for i+4 <= len(data) {
		if data[i] != 0xFF {
			return segments
		}
		marker := data[i+1]
		if marker == 0xFF { // fill byte
			i++
			continue
		}
		if marker == markerSOS {
			return segments
		}
		length := int(binary.BigEndian.Uint16(data[i+2 : i+4]))
		end := i + 2 + length
		if length < 2 || end > len(data) {
			return segments
		}
		if marker == markerAPP1 || marker == markerAPP2 {
			segments = append(segments, data[i:end])
		}
		i = end
	}
	return segments
}

// copyJPEGMetadata inserts src's EXIF/XMP/ICC segments into dst right after
// the start-of-image marker. dst is returned unchanged when src has none.
func copyJPEGMetadata(src, dst []byte) []byte {
	segments := jpegMetadataSegments(src)
	if len(segments) == 0 || len(dst) < 2 {
		return dst
	}
	var out bytes.Buffer
	out.Write(dst[:2])
	for _, s := range segments {
		out.Write(s)
	}
	out.Write(dst[2:])
	return out.Bytes()
}
