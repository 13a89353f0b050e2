package monitor

import (
	"image"

	"github.com/ironsheep/lionsgate-lanes/internal/imaging"
	"github.com/ironsheep/lionsgate-lanes/internal/lanes"
)

// Preview is a rendered sampling zone with its evidence.
type Preview struct {
	Overlay *image.RGBA
	Zone    lanes.SamplingZone
	Left    lanes.SideEvidence
	Right   lanes.SideEvidence
}

// RenderPreview samples img the way e does and draws the zone, the side
// split and every matching sample on a copy of it.
func RenderPreview(e *lanes.Engine, img image.Image) (*Preview, error) {
	bounds := img.Bounds()
	zone, err := e.Zone(bounds)
	if err != nil {
		return nil, err
	}

	samples := lanes.Sample(img, zone, e.Classifier())
	left, right := lanes.Evidence(samples)

	var marks []image.Point
	for _, s := range samples {
		if s.IsSignal {
			marks = append(marks, image.Pt(s.X, s.Y))
		}
	}

	overlay := imaging.ZoneOverlay(img, imaging.OverlaySpec{
		Zone:  zone.Rect(),
		MidX:  lanes.SplitX(bounds),
		Marks: marks,
	})
	return &Preview{Overlay: overlay, Zone: zone, Left: left, Right: right}, nil
}
