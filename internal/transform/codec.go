package transform

import (
	"fmt"
	"image"
	"image/png"
	"io"

	"github.com/disintegration/imaging"
	"github.com/gen2brain/avif"
	"github.com/gen2brain/webp"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

const (
	defaultJPEGQuality = 80
	defaultWebPQuality = 80
	defaultAVIFQuality = 50
	defaultAVIFSpeed   = 6
)

func normalizeFormat(f Format) Format {
	if f == "jpg" {
		return FormatJPEG
	}
	return f
}

func encode(w io.Writer, img image.Image, format Format, o EncodeOptions) error {
	switch format {
	case FormatJPEG:
		q := defaultJPEGQuality
		if o.Quality > 0 {
			q = o.Quality
		}
		return imaging.Encode(w, img, imaging.JPEG, imaging.JPEGQuality(q))
	case FormatPNG:
		return imaging.Encode(w, img, imaging.PNG, imaging.PNGCompressionLevel(pngLevel(o.CompressionLevel)))
	case FormatGIF:
		return imaging.Encode(w, img, imaging.GIF)
	case FormatTIFF:
		return imaging.Encode(w, img, imaging.TIFF)
	case FormatBMP:
		return imaging.Encode(w, img, imaging.BMP)
	case FormatWebP:
		q := defaultWebPQuality
		if o.Quality > 0 {
			q = o.Quality
		}
		return webp.Encode(w, img, webp.Options{Quality: q, Lossless: o.Lossless})
	case FormatAVIF:
		q := defaultAVIFQuality
		if o.Quality > 0 {
			q = o.Quality
		}
		speed := defaultAVIFSpeed
		if o.Speed != nil {
			speed = *o.Speed
		}
		return avif.Encode(w, img, avif.Options{Quality: q, QualityAlpha: q, Speed: speed})
	default:
		return fmt.Errorf("unsupported output format %q", format)
	}
}

// pngLevel maps a zlib-style 0-9 level onto the encoder's coarser levels.
func pngLevel(level *int) png.CompressionLevel {
	if level == nil {
		return png.DefaultCompression
	}
	switch l := *level; {
	case l == 0:
		return png.NoCompression
	case l <= 3:
		return png.BestSpeed
	case l <= 7:
		return png.DefaultCompression
	default:
		return png.BestCompression
	}
}

// MIMEType returns the content type for an output format.
func MIMEType(f Format) string {
	switch normalizeFormat(f) {
	case FormatJPEG:
		return "image/jpeg"
	case FormatPNG:
		return "image/png"
	case FormatWebP:
		return "image/webp"
	case FormatGIF:
		return "image/gif"
	case FormatTIFF:
		return "image/tiff"
	case FormatAVIF:
		return "image/avif"
	case FormatBMP:
		return "image/bmp"
	default:
		return "application/octet-stream"
	}
}

// Extension returns the file extension, dot included, for an output format.
func Extension(f Format) string {
	switch f = normalizeFormat(f); f {
	case FormatJPEG:
		return ".jpg"
	case "":
		return ""
	default:
		return "." + string(f)
	}
}

// DetectFormat reports the encoding of data without decoding its pixels.
func DetectFormat(data []byte) (Format, error) {
	_, name, err := image.DecodeConfig(bytesReader(data))
	if err != nil {
		return "", err
	}
	return Format(name), nil
}
