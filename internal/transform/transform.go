// Package transform applies an ordered set of image operations to an encoded
// image buffer and returns the re-encoded result.
//
// The pipeline is pure: identical input bytes and options always produce
// byte-identical output.
package transform

import (
	"bytes"
	"errors"
	"fmt"
	"image"

	"github.com/cesarano/2026-Strategy/internal/apperr"
	"github.com/disintegration/imaging"
)

// Transformer is the contract the receipts service depends on.
type Transformer interface {
	Process(input []byte, opts Options) ([]byte, error)
}

// Engine is the production Transformer.
type Engine struct{}

// NewEngine returns a ready Engine.
func NewEngine() *Engine {
	return &Engine{}
}

// Process decodes input, applies the steps requested by opts in their fixed
// order and encodes the result. Invalid parameters fail with a validation
// error; undecodable input and encoder failures fail with a processing error.
func (e *Engine) Process(input []byte, opts Options) ([]byte, error) {
	return Process(input, opts)
}

// Process is the package-level form of Engine.Process.
func Process(input []byte, opts Options) ([]byte, error) {
	if err := opts.Validate(); err != nil {
		return nil, apperr.Wrap(apperr.CodeValidation, "invalid image processing options", err)
	}

	cfg, inFormat, err := image.DecodeConfig(bytes.NewReader(input))
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeProcessing, "input is not a decodable image", err)
	}
	if cfg.Width == 0 || cfg.Height == 0 {
		return nil, apperr.New(apperr.CodeProcessing, "input image has no pixels")
	}
	if err := checkArea(cfg.Width, cfg.Height); err != nil {
		return nil, apperr.Wrap(apperr.CodeProcessing, "input image is too large", err)
	}

	// Orientation lives in EXIF, so it has to be baked into the pixels before
	// the metadata is dropped.
	img, err := imaging.Decode(bytes.NewReader(input), imaging.AutoOrientation(opts.StripMetadata))
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeProcessing, "input is not a decodable image", err)
	}

	if opts.Resize != nil {
		img, err = resize(img, *opts.Resize)
		if err != nil {
			return nil, apperr.Wrap(apperr.CodeValidation, "invalid resize dimensions", err)
		}
	}

	if opts.Crop != nil {
		img, err = crop(img, *opts.Crop)
		if err != nil {
			return nil, apperr.Wrap(apperr.CodeValidation, "invalid crop rectangle", err)
		}
	}

	gray := false
	if opts.Grayscale {
		img = imaging.Grayscale(img)
		gray = true
	}

	if opts.Sharpen.Enabled() {
		img = unsharpMask(img, *opts.Sharpen)
	}

	if opts.NoiseReduction > 0 {
		img = median(img, opts.NoiseReduction)
	}

	outFormat := Format(inFormat)
	var encOpts EncodeOptions
	if opts.Format != nil {
		outFormat = normalizeFormat(opts.Format.Type)
		if opts.Format.Options != nil {
			encOpts = *opts.Format.Options
		}
	}

	if gray {
		img = toGray(img)
	}

	var buf bytes.Buffer
	if err := encode(&buf, img, outFormat, encOpts); err != nil {
		return nil, apperr.Wrap(apperr.CodeProcessing, fmt.Sprintf("failed to encode %s output", outFormat), err)
	}
	out := buf.Bytes()

	if !opts.StripMetadata && Format(inFormat) == FormatJPEG && outFormat == FormatJPEG {
		out = copyJPEGMetadata(input, out)
	}
	return out, nil
}

var errCropOutOfBounds = errors.New("crop rectangle lies outside the image")

func crop(img image.Image, c CropOptions) (image.Image, error) {
	b := img.Bounds()
	// Compared without addition so huge offsets cannot wrap around.
	if c.Left > b.Dx() || c.Width > b.Dx()-c.Left || c.Top > b.Dy() || c.Height > b.Dy()-c.Top {
		return nil, fmt.Errorf("%w: %dx%d+%d+%d on %dx%d image",
			errCropOutOfBounds, c.Width, c.Height, c.Left, c.Top, b.Dx(), b.Dy())
	}
	rect := image.Rect(c.Left, c.Top, c.Left+c.Width, c.Top+c.Height).Add(b.Min)
	return imaging.Crop(img, rect), nil
}

// toGray collapses img to a single luminance channel.
func toGray(img image.Image) *image.Gray {
	b := img.Bounds()
	g := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	for y := 0; y < b.Dy(); y++ {
		for x := 0; x < b.Dx(); x++ {
			g.Set(x, y, img.At(b.Min.X+x, b.Min.Y+y))
		}
	}
	return g
}
