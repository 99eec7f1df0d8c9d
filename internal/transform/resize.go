package transform

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"math"

	"github.com/disintegration/imaging"
)

const (
	// MaxDimension bounds each side of a requested resize box.
	MaxDimension = 16384
	// MaxPixels bounds the area of any image the engine decodes or produces.
	MaxPixels = 50_000_000
)

var resampleFilter = imaging.Lanczos

var errTooLarge = errors.New("image exceeds the maximum size")

// resize scales img into the box described by o. A missing dimension is
// inferred from the aspect ratio, in which case every fit gives the same result.
func resize(img image.Image, o ResizeOptions) (image.Image, error) {
	if o.Width == 0 && o.Height == 0 {
		return img, nil
	}
	b := img.Bounds()
	srcW, srcH := float64(b.Dx()), float64(b.Dy())

	w, h := o.Width, o.Height
	fit := o.Fit
	switch {
	case w == 0:
		w, fit = scaled(srcW*float64(h)/srcH), FitFill
	case h == 0:
		h, fit = scaled(srcH*float64(w)/srcW), FitFill
	}

	// Size of the resampled image before any canvas or cropping is applied.
	// Cover resamples to the outside size and then crops the box out of it.
	rw, rh := w, h
	switch fit {
	case FitFill:
	case FitInside, FitContain:
		s := math.Min(float64(w)/srcW, float64(h)/srcH)
		rw, rh = scaled(srcW*s), scaled(srcH*s)
	default:
		s := math.Max(float64(w)/srcW, float64(h)/srcH)
		rw, rh = scaled(srcW*s), scaled(srcH*s)
	}
	if err := checkArea(w, h); err != nil {
		return nil, err
	}
	if err := checkArea(rw, rh); err != nil {
		return nil, err
	}

	switch fit {
	case FitFill, FitInside, FitOutside:
		return imaging.Resize(img, rw, rh, resampleFilter), nil
	case FitContain:
		inner := imaging.Resize(img, rw, rh, resampleFilter)
		canvas := imaging.New(w, h, color.NRGBA{A: 255})
		return imaging.PasteCenter(canvas, inner), nil
	default:
		return imaging.Fill(img, w, h, imaging.Center, resampleFilter), nil
	}
}

func checkArea(w, h int) error {
	if w > MaxDimension || h > MaxDimension || w*h > MaxPixels {
		return fmt.Errorf("%w: %dx%d (limit %d per side, %d pixels)", errTooLarge, w, h, MaxDimension, MaxPixels)
	}
	return nil
}

// scaled rounds a computed side length, keeping it within [1, MaxDimension+1]
// so oversized results are reported by checkArea rather than overflowing.
func scaled(v float64) int {
	switch {
	case math.IsNaN(v) || v < 1:
		return 1
	case v > MaxDimension+1:
		return MaxDimension + 1
	default:
		return int(math.Round(v))
	}
}
