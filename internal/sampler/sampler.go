package sampler

import (
	"bytes"
	"fmt"
	"image"
	_ "image/jpeg" // JPEG format support
	_ "image/png"  // PNG format support

	"github.com/EdlinOrg/prominentcolor"
	"github.com/disintegration/imaging"
	"go.uber.org/zap"
)

// brightnessFloor is the minimum average channel value of a sampled color.
// Darker samples are scaled up so derived UI theming stays legible.
const brightnessFloor = 0.5

// RGBA is a color with channels in [0, 1]
type RGBA struct {
	R, G, B, A float64
}

// White is the fallback color used when no artwork is available
var White = RGBA{R: 1, G: 1, B: 1, A: 1}

// Sampler derives theming colors from album artwork
type Sampler struct {
	logger *zap.Logger
}

// NewSampler creates a new artwork color sampler
func NewSampler(logger *zap.Logger) *Sampler {
	return &Sampler{logger: logger}
}

// Decode parses raw artwork bytes into an image
func Decode(data []byte) (image.Image, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}
	return img, nil
}

// Dominant returns the single-pixel area average of the image with a
// brightness floor applied. This is a coarse perceptual heuristic, not a
// clustering extractor: downsampling to one pixel with a box filter
// approximates the dominant color directly. The boolean is false only
// when the image cannot be sampled.
func (s *Sampler) Dominant(img image.Image) (RGBA, bool) {
	if img == nil {
		return White, false
	}
	bounds := img.Bounds()
	if bounds.Dx() == 0 || bounds.Dy() == 0 {
		return White, false
	}

	// Box filter = area averaging
	px := imaging.Resize(img, 1, 1, imaging.Box)
	c := px.NRGBAAt(0, 0)

	sampled := RGBA{
		R: float64(c.R) / 255.0,
		G: float64(c.G) / 255.0,
		B: float64(c.B) / 255.0,
		A: float64(c.A) / 255.0,
	}

	return applyBrightnessFloor(sampled), true
}

// applyBrightnessFloor scales channels up proportionally (capped at 1.0)
// until the average brightness reaches the floor, alpha unchanged.
// Pure black has no scale factor that works, so it becomes neutral gray.
func applyBrightnessFloor(c RGBA) RGBA {
	avg := (c.R + c.G + c.B) / 3.0
	if avg >= brightnessFloor {
		return c
	}
	if avg == 0 {
		return RGBA{R: brightnessFloor, G: brightnessFloor, B: brightnessFloor, A: c.A}
	}

	scale := brightnessFloor / avg
	return RGBA{
		R: min1(c.R * scale),
		G: min1(c.G * scale),
		B: min1(c.B * scale),
		A: c.A,
	}
}

func min1(v float64) float64 {
	if v > 1 {
		return 1
	}
	return v
}

// Palette extracts up to n accent colors from the artwork via k-means
// clustering. Best effort: any extraction failure yields nil.
func (s *Sampler) Palette(img image.Image, n int) []RGBA {
	if img == nil || n <= 0 {
		return nil
	}

	items, err := prominentcolor.KmeansWithAll(n, img,
		prominentcolor.ArgumentDefault, prominentcolor.DefaultSize, nil)
	if err != nil {
		s.logger.Debug("Palette extraction failed", zap.Error(err))
		return nil
	}

	palette := make([]RGBA, 0, len(items))
	for _, item := range items {
		palette = append(palette, RGBA{
			R: float64(item.Color.R) / 255.0,
			G: float64(item.Color.G) / 255.0,
			B: float64(item.Color.B) / 255.0,
			A: 1,
		})
	}
	return palette
}
