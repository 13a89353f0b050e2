package lanes

import (
	"fmt"
	"image"

	"github.com/anthonynsimon/bild/clone"
)

// ZoneFractions places the sampling zone relative to the image size.
// Each value is a fraction of the width (Left, Right) or height (Top, Bottom).
type ZoneFractions struct {
	Top    float64 `json:"top"`
	Bottom float64 `json:"bottom"`
	Left   float64 `json:"left"`
	Right  float64 `json:"right"`
}

// DefaultZoneFractions covers the upper half of the frame where the
// overhead signal gantry sits, inset 5% from the edges.
func DefaultZoneFractions() ZoneFractions {
	return ZoneFractions{Top: 0.05, Bottom: 0.50, Left: 0.05, Right: 0.95}
}

// DefaultStride is the sampling step in pixels.
const DefaultStride = 3

// SamplingZone is the sub-rectangle of the image where lane signals are
// expected, plus the sampling stride.
//
// Top and Left are inclusive; Bottom and Right are exclusive.
type SamplingZone struct {
	Top    int `json:"top"`
	Bottom int `json:"bottom"`
	Left   int `json:"left"`
	Right  int `json:"right"`
	Stride int `json:"stride"`
}

// Validate checks the zone invariants.
func (z SamplingZone) Validate() error {
	if z.Top >= z.Bottom || z.Left >= z.Right {
		return fmt.Errorf("invalid sampling zone: top=%d bottom=%d left=%d right=%d", z.Top, z.Bottom, z.Left, z.Right)
	}
	if z.Stride < 1 {
		return fmt.Errorf("invalid sampling stride %d", z.Stride)
	}
	return nil
}

// Rect returns the zone as an image.Rectangle.
func (z SamplingZone) Rect() image.Rectangle {
	return image.Rect(z.Left, z.Top, z.Right, z.Bottom)
}

// ZoneFor derives a SamplingZone for an image with the given bounds.
//
// Fractions are applied to the bounds' width and height and offset by
// bounds.Min, so the zone always lies inside the image. The result is
// validated; tiny images produce an error.
func ZoneFor(bounds image.Rectangle, f ZoneFractions, stride int) (SamplingZone, error) {
	w, h := bounds.Dx(), bounds.Dy()
	z := SamplingZone{
		Top:    bounds.Min.Y + clampInt(int(float64(h)*f.Top), 0, h),
		Bottom: bounds.Min.Y + clampInt(int(float64(h)*f.Bottom), 0, h),
		Left:   bounds.Min.X + clampInt(int(float64(w)*f.Left), 0, w),
		Right:  bounds.Min.X + clampInt(int(float64(w)*f.Right), 0, w),
		Stride: stride,
	}
	if err := z.Validate(); err != nil {
		return z, err
	}
	return z, nil
}

// ColorSample is one classified pixel from a sampling pass.
type ColorSample struct {
	X        int   `json:"x"`
	Y        int   `json:"y"`
	R        uint8 `json:"r"`
	G        uint8 `json:"g"`
	B        uint8 `json:"b"`
	Side     Side  `json:"side"`
	IsSignal bool  `json:"is_signal"`
}

// Sample walks zone row by row at zone.Stride and classifies each pixel.
//
// Samples are returned in scan order (y outer, x inner). A sample is LEFT
// when its x lies before the image's horizontal midpoint and RIGHT
// otherwise. Coordinates outside the image are skipped.
func Sample(img image.Image, zone SamplingZone, c *Classifier) []ColorSample {
	if zone.Stride < 1 {
		return nil
	}

	// A flat RGBA buffer makes per-pixel reads cheap regardless of the
	// decoded image type (JPEG frames decode to *image.YCbCr).
	rgba := clone.AsRGBA(img)
	bounds := img.Bounds()
	origin := rgba.Bounds().Min

	samples := make([]ColorSample, 0, estimateSamples(zone))
	for y := zone.Top; y < zone.Bottom; y += zone.Stride {
		for x := zone.Left; x < zone.Right; x += zone.Stride {
			if !image.Pt(x, y).In(bounds) {
				continue
			}
			off := rgba.PixOffset(x-bounds.Min.X+origin.X, y-bounds.Min.Y+origin.Y)
			r, g, b := rgba.Pix[off], rgba.Pix[off+1], rgba.Pix[off+2]

			samples = append(samples, ColorSample{
				X: x, Y: y,
				R: r, G: g, B: b,
				Side:     SideOf(bounds, x),
				IsSignal: c.IsSignalColor(r, g, b),
			})
		}
	}
	return samples
}

// SideOf reports which half of bounds column x falls in. The midpoint is
// Dx/2 without truncation, so the centre column of an odd-width image is
// LEFT.
func SideOf(bounds image.Rectangle, x int) Side {
	if 2*(x-bounds.Min.X) < bounds.Dx() {
		return SideLeft
	}
	return SideRight
}

// SplitX returns the first column of bounds that SideOf places on the RIGHT.
func SplitX(bounds image.Rectangle) int {
	return bounds.Min.X + (bounds.Dx()+1)/2
}

// SideEvidence aggregates the samples from one side of the image.
type SideEvidence struct {
	Total   int     `json:"total"`
	Matches int     `json:"matches"`
	Density float64 `json:"density"`
}

// Evidence partitions samples by side and counts signal matches.
func Evidence(samples []ColorSample) (left, right SideEvidence) {
	for _, s := range samples {
		ev := &right
		if s.Side == SideLeft {
			ev = &left
		}
		ev.Total++
		if s.IsSignal {
			ev.Matches++
		}
	}
	left.Density = density(left)
	right.Density = density(right)
	return left, right
}

func density(e SideEvidence) float64 {
	if e.Total == 0 {
		return 0
	}
	return float64(e.Matches) / float64(e.Total)
}

func estimateSamples(z SamplingZone) int {
	if z.Bottom <= z.Top || z.Right <= z.Left {
		return 0
	}
	rows := (z.Bottom - z.Top + z.Stride - 1) / z.Stride
	cols := (z.Right - z.Left + z.Stride - 1) / z.Stride
	return rows * cols
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
