package imaging

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"strconv"
	"strings"
)

// OverlaySpec describes what ZoneOverlay draws on top of a camera frame.
type OverlaySpec struct {
	// Zone is the sampling rectangle, outlined in ZoneColor.
	Zone image.Rectangle
	// MidX is the left/right split, drawn as a vertical line inside Zone.
	MidX int
	// Marks are pixels to highlight, typically classifier matches.
	Marks []image.Point

	ZoneColor color.RGBA
	MarkColor color.RGBA
}

// Default overlay colors: a semi-opaque magenta outline and solid yellow
// marks, neither of which the signal classifier can confuse with teal.
var (
	DefaultZoneColor = color.RGBA{255, 0, 255, 200}
	DefaultMarkColor = color.RGBA{255, 255, 0, 255}
)

// ZoneOverlay copies img and draws the sampling zone outline, the side
// split and a 3x3 marker on every mark.
func ZoneOverlay(img image.Image, spec OverlaySpec) *image.RGBA {
	bounds := img.Bounds()
	result := image.NewRGBA(bounds)
	draw.Draw(result, bounds, img, bounds.Min, draw.Src)

	zone := spec.Zone.Intersect(bounds)
	if zone.Empty() {
		return result
	}

	zc := spec.ZoneColor
	if zc == (color.RGBA{}) {
		zc = DefaultZoneColor
	}
	mc := spec.MarkColor
	if mc == (color.RGBA{}) {
		mc = DefaultMarkColor
	}

	for x := zone.Min.X; x < zone.Max.X; x++ {
		result.Set(x, zone.Min.Y, zc)
		result.Set(x, zone.Max.Y-1, zc)
	}
	for y := zone.Min.Y; y < zone.Max.Y; y++ {
		result.Set(zone.Min.X, y, zc)
		result.Set(zone.Max.X-1, y, zc)
		if spec.MidX > zone.Min.X && spec.MidX < zone.Max.X && y%4 < 2 {
			result.Set(spec.MidX, y, zc)
		}
	}

	for _, p := range spec.Marks {
		for dy := -1; dy <= 1; dy++ {
			for dx := -1; dx <= 1; dx++ {
				q := image.Pt(p.X+dx, p.Y+dy)
				if q.In(bounds) {
					result.Set(q.X, q.Y, mc)
				}
			}
		}
	}
	return result
}

// ParseHexColor parses a hex color string like "#51D6D0" or "#FF000080"
func ParseHexColor(hex string) (color.RGBA, error) {
	hex = strings.TrimPrefix(strings.TrimSpace(hex), "#")
	if len(hex) == 0 {
		return color.RGBA{}, fmt.Errorf("empty color string")
	}

	var r, g, b, a uint8 = 0, 0, 0, 255

	switch len(hex) {
	case 6:
		val, err := strconv.ParseUint(hex, 16, 32)
		if err != nil {
			return color.RGBA{}, fmt.Errorf("invalid hex color %q: %w", hex, err)
		}
		r = uint8(val >> 16)
		g = uint8(val >> 8)
		b = uint8(val)
	case 8:
		val, err := strconv.ParseUint(hex, 16, 32)
		if err != nil {
			return color.RGBA{}, fmt.Errorf("invalid hex color %q: %w", hex, err)
		}
		r = uint8(val >> 24)
		g = uint8(val >> 16)
		b = uint8(val >> 8)
		a = uint8(val)
	default:
		return color.RGBA{}, fmt.Errorf("invalid hex color length %d", len(hex))
	}

	return color.RGBA{R: r, G: g, B: b, A: a}, nil
}
