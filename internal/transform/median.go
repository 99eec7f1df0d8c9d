package transform

import (
	"image"

	"github.com/disintegration/imaging"
)

// MaxNoiseWindow is the largest median window noiseReduction accepts.
const MaxNoiseWindow = 15

// median replaces every channel of every pixel with the median of the
// size×size window around it. Windows are clamped at the image edges.
//
// Each row keeps one 256-bin histogram per channel and slides it along x,
// removing the column that leaves the window and adding the one that enters.
func median(img image.Image, size int) *image.NRGBA {
	src := imaging.Clone(img)
	w, h := src.Bounds().Dx(), src.Bounds().Dy()
	dst := image.NewNRGBA(image.Rect(0, 0, w, h))
	r := size / 2
	half := size * size / 2

	var hist [4][256]int
	for y := 0; y < h; y++ {
		hist = [4][256]int{}
		for dy := -r; dy <= r; dy++ {
			row := clampInt(y+dy, 0, h-1) * src.Stride
			for dx := -r; dx <= r; dx++ {
				p := row + clampInt(dx, 0, w-1)*4
				for c := 0; c < 4; c++ {
					hist[c][src.Pix[p+c]]++
				}
			}
		}

		for x := 0; x < w; x++ {
			if x > 0 {
				out := clampInt(x-r-1, 0, w-1) * 4
				in := clampInt(x+r, 0, w-1) * 4
				for dy := -r; dy <= r; dy++ {
					row := clampInt(y+dy, 0, h-1) * src.Stride
					for c := 0; c < 4; c++ {
						hist[c][src.Pix[row+out+c]]--
						hist[c][src.Pix[row+in+c]]++
					}
				}
			}
			di := y*dst.Stride + x*4
			for c := 0; c < 4; c++ {
				dst.Pix[di+c] = histogramMedian(&hist[c], half)
			}
		}
	}
	return dst
}

// histogramMedian returns the value at sorted index half.
func histogramMedian(hist *[256]int, half int) uint8 {
	seen := 0
	for v, n := range hist {
		seen += n
		if seen > half {
			return uint8(v)
		}
	}
	return 255
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
