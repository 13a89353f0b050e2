package lanes

import (
	"image/color"

	"github.com/lucasb-eyer/go-colorful"
)

// DefaultSignalColor is the teal hue of an illuminated lane-control signal.
var DefaultSignalColor = color.RGBA{R: 81, G: 214, B: 208, A: 255}

// ClassifierConfig holds the tunable constants of the signal-color test.
//
// A color matches when it is close to Target or when any of the three
// range heuristics accepts it. The heuristics compensate for exposure and
// JPEG artifacts that push real signal pixels away from the reference hue.
type ClassifierConfig struct {
	// Target is the reference signal color.
	Target color.RGBA

	// DistanceThreshold is the maximum RGB Euclidean distance (8-bit units,
	// exclusive) from Target.
	DistanceThreshold float64

	// Tealish: G and B both above TealMin, both exceeding R by more than
	// TealMargin, and within TealBalance of each other.
	TealMin     int
	TealMargin  int
	TealBalance int

	// Bright cyan: R in [CyanRMin,CyanRMax], G and B in [CyanGBMin,255],
	// G and B exceeding R by more than CyanMargin.
	CyanRMin   int
	CyanRMax   int
	CyanGBMin  int
	CyanMargin int

	// LED teal: R below LEDRMax, G above LEDGMin, B above LEDBMin and
	// (G+B) greater than LEDRatio*R.
	LEDRMax  int
	LEDGMin  int
	LEDBMin  int
	LEDRatio float64
}

// DefaultClassifierConfig returns the production thresholds.
func DefaultClassifierConfig() ClassifierConfig {
	return ClassifierConfig{
		Target:            DefaultSignalColor,
		DistanceThreshold: 50,

		TealMin:     150,
		TealMargin:  50,
		TealBalance: 50,

		CyanRMin:   60,
		CyanRMax:   120,
		CyanGBMin:  180,
		CyanMargin: 40,

		LEDRMax:  150,
		LEDGMin:  200,
		LEDBMin:  180,
		LEDRatio: 2.5,
	}
}

// Classifier decides whether a pixel is the lane-signal color.
// The zero value is not usable; construct with NewClassifier.
type Classifier struct {
	cfg    ClassifierConfig
	target colorful.Color
}

// NewClassifier builds a Classifier from cfg.
func NewClassifier(cfg ClassifierConfig) *Classifier {
	// Camera pixels are compared as opaque RGB.
	cfg.Target.A = 0xFF
	target, _ := colorful.MakeColor(cfg.Target)
	return &Classifier{cfg: cfg, target: target}
}

// Config returns the constants the classifier was built with.
func (c *Classifier) Config() ClassifierConfig {
	return c.cfg
}

// Verdict breaks a classification down by heuristic.
type Verdict struct {
	Distance   float64 `json:"distance"`
	NearTarget bool    `json:"near_target"`
	Tealish    bool    `json:"tealish"`
	BrightCyan bool    `json:"bright_cyan"`
	LEDTeal    bool    `json:"led_teal"`
	Match      bool    `json:"match"`
}

// IsSignalColor reports whether (r, g, b) matches the signal color family.
func (c *Classifier) IsSignalColor(r, g, b uint8) bool {
	if c.Distance(r, g, b) < c.cfg.DistanceThreshold {
		return true
	}
	ri, gi, bi := int(r), int(g), int(b)
	return c.tealish(ri, gi, bi) || c.brightCyan(ri, gi, bi) || c.ledTeal(ri, gi, bi)
}

// Explain evaluates every heuristic for (r, g, b).
func (c *Classifier) Explain(r, g, b uint8) Verdict {
	ri, gi, bi := int(r), int(g), int(b)
	v := Verdict{
		Distance:   c.Distance(r, g, b),
		Tealish:    c.tealish(ri, gi, bi),
		BrightCyan: c.brightCyan(ri, gi, bi),
		LEDTeal:    c.ledTeal(ri, gi, bi),
	}
	v.NearTarget = v.Distance < c.cfg.DistanceThreshold
	v.Match = v.NearTarget || v.Tealish || v.BrightCyan || v.LEDTeal
	return v
}

// Distance returns the RGB Euclidean distance to the target in 8-bit units.
func (c *Classifier) Distance(r, g, b uint8) float64 {
	sample := colorful.Color{R: float64(r) / 255, G: float64(g) / 255, B: float64(b) / 255}
	return sample.DistanceRgb(c.target) * 255
}

func (c *Classifier) tealish(r, g, b int) bool {
	return g > c.cfg.TealMin && b > c.cfg.TealMin &&
		g > r+c.cfg.TealMargin && b > r+c.cfg.TealMargin &&
		abs(g-b) < c.cfg.TealBalance
}

func (c *Classifier) brightCyan(r, g, b int) bool {
	return r >= c.cfg.CyanRMin && r <= c.cfg.CyanRMax &&
		g >= c.cfg.CyanGBMin && b >= c.cfg.CyanGBMin &&
		g > r+c.cfg.CyanMargin && b > r+c.cfg.CyanMargin
}

func (c *Classifier) ledTeal(r, g, b int) bool {
	return r < c.cfg.LEDRMax && g > c.cfg.LEDGMin && b > c.cfg.LEDBMin &&
		float64(g+b) > c.cfg.LEDRatio*float64(r)
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
