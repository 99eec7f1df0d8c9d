package transform

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Fit controls how an image is fitted into a resize box.
type Fit string

const (
	FitCover   Fit = "cover"
	FitContain Fit = "contain"
	FitFill    Fit = "fill"
	FitInside  Fit = "inside"
	FitOutside Fit = "outside"
)

// Format names an output encoding.
type Format string

const (
	FormatJPEG Format = "jpeg"
	FormatPNG  Format = "png"
	FormatWebP Format = "webp"
	FormatGIF  Format = "gif"
	FormatTIFF Format = "tiff"
	FormatAVIF Format = "avif"
	FormatBMP  Format = "bmp" // input only; kept as native output for BMP uploads
)

// Options is the full set of operations Process can apply. Every member is
// optional and each one that is set triggers exactly one step. Steps always run
// in declaration order, whatever order the fields arrived in.
type Options struct {
	StripMetadata  bool            `json:"stripMetadata,omitempty"`
	Resize         *ResizeOptions  `json:"resize,omitempty"`
	Crop           *CropOptions    `json:"crop,omitempty"`
	Grayscale      bool            `json:"grayscale,omitempty"`
	Sharpen        *SharpenOptions `json:"sharpen,omitempty"`
	NoiseReduction int             `json:"noiseReduction,omitempty"`
	Format         *FormatOptions  `json:"format,omitempty"`
}

type ResizeOptions struct {
	Width  int `json:"width,omitempty" validate:"gte=0,lte=16384"`
	Height int `json:"height,omitempty" validate:"gte=0,lte=16384"`
	Fit    Fit `json:"fit,omitempty" validate:"omitempty,oneof=cover contain fill inside outside"`
}

// CropOptions is an absolute pixel rectangle.
type CropOptions struct {
	Left   int `json:"left" validate:"gte=0"`
	Top    int `json:"top" validate:"gte=0"`
	Width  int `json:"width" validate:"gt=0"`
	Height int `json:"height" validate:"gt=0"`
}

// SharpenOptions configures the unsharp mask. Flat and Jagged are the gains
// applied where the local difference is below or above Threshold (0-255).
type SharpenOptions struct {
	Sigma     float64 `json:"sigma" validate:"gt=0,lte=10"`
	Flat      float64 `json:"flat" validate:"gte=0,lte=1000"`
	Jagged    float64 `json:"jagged" validate:"gte=0,lte=1000"`
	Threshold float64 `json:"threshold" validate:"gte=0,lte=255"`

	disabled bool
}

// DefaultSharpen is what `"sharpen": true` means.
var DefaultSharpen = SharpenOptions{Sigma: 1, Flat: 1, Jagged: 2, Threshold: 2}

// UnmarshalJSON accepts either a boolean or an explicit parameter object.
// Parameters missing from the object take their DefaultSharpen values.
func (s *SharpenOptions) UnmarshalJSON(data []byte) error {
	switch strings.TrimSpace(string(data)) {
	case "true":
		*s = DefaultSharpen
		return nil
	case "false":
		*s = SharpenOptions{disabled: true}
		return nil
	}

	var aux struct {
		Sigma     *float64 `json:"sigma"`
		Flat      *float64 `json:"flat"`
		Jagged    *float64 `json:"jagged"`
		Threshold *float64 `json:"threshold"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return fmt.Errorf("sharpen must be a boolean or an object: %w", err)
	}
	*s = DefaultSharpen
	if aux.Sigma != nil {
		s.Sigma = *aux.Sigma
	}
	if aux.Flat != nil {
		s.Flat = *aux.Flat
	}
	if aux.Jagged != nil {
		s.Jagged = *aux.Jagged
	}
	if aux.Threshold != nil {
		s.Threshold = *aux.Threshold
	}
	return nil
}

// Enabled reports whether the sharpen step should run.
func (s *SharpenOptions) Enabled() bool {
	return s != nil && !s.disabled
}

type FormatOptions struct {
	Type    Format         `json:"type" validate:"required,oneof=jpeg jpg png webp gif tiff avif"`
	Options *EncodeOptions `json:"options,omitempty"`
}

// EncodeOptions carries per-format encoder parameters. Unused ones are ignored
// by formats that do not support them.
type EncodeOptions struct {
	Quality          int  `json:"quality,omitempty" validate:"omitempty,min=1,max=100"`
	Lossless         bool `json:"lossless,omitempty"`
	CompressionLevel *int `json:"compressionLevel,omitempty" validate:"omitempty,min=0,max=9"`
	Speed            *int `json:"speed,omitempty" validate:"omitempty,min=0,max=10"`
}

var validate = validator.New()

// Validate checks every set member before any pixel work is done.
func (o *Options) Validate() error {
	if o.Resize != nil {
		if err := validate.Struct(o.Resize); err != nil {
			return fmt.Errorf("invalid resize options: %w", err)
		}
	}
	if o.Crop != nil {
		if err := validate.Struct(o.Crop); err != nil {
			return fmt.Errorf("invalid crop options: %w", err)
		}
	}
	if o.Sharpen.Enabled() {
		if err := validate.Struct(o.Sharpen); err != nil {
			return fmt.Errorf("invalid sharpen options: %w", err)
		}
	}
	if o.NoiseReduction > 0 && o.NoiseReduction%2 == 0 {
		return fmt.Errorf("invalid noiseReduction %d: median window must be odd", o.NoiseReduction)
	}
	if o.NoiseReduction > MaxNoiseWindow {
		return fmt.Errorf("invalid noiseReduction %d: median window is limited to %d", o.NoiseReduction, MaxNoiseWindow)
	}
	if o.Format != nil {
		if err := validate.Struct(o.Format); err != nil {
			return fmt.Errorf("invalid format options: %w", err)
		}
		if o.Format.Options != nil {
			if err := validate.Struct(o.Format.Options); err != nil {
				return fmt.Errorf("invalid format options: %w", err)
			}
		}
	}
	return nil
}
