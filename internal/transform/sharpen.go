package transform

import (
	"image"
	"math"

	"github.com/disintegration/imaging"
)

// unsharpMask adds back the difference between img and its Gaussian blur.
// Differences at or below Threshold are treated as flat areas and scaled by
// Flat; larger ones are edges and scaled by Jagged. Alpha is left untouched.
func unsharpMask(img image.Image, o SharpenOptions) *image.NRGBA {
	src := imaging.Clone(img)
	blurred := imaging.Blur(src, o.Sigma)
	dst := image.NewNRGBA(src.Bounds())

	for i := 0; i < len(src.Pix); i += 4 {
		for c := 0; c < 3; c++ {
			orig := float64(src.Pix[i+c])
			diff := orig - float64(blurred.Pix[i+c])
			gain := o.Jagged
			if math.Abs(diff) <= o.Threshold {
				gain = o.Flat
			}
			dst.Pix[i+c] = clampUint8(orig + gain*diff)
		}
		dst.Pix[i+3] = src.Pix[i+3]
	}
	return dst
}

func clampUint8(v float64) uint8 {
	switch {
	case v <= 0:
		return 0
	case v >= 255:
		return 255
	default:
		return uint8(math.Round(v))
	}
}
