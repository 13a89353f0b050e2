package config

import (
	"encoding/json"
	"fmt"
	"image/color"
	"os"
	"path/filepath"

	"github.com/ironsheep/lionsgate-lanes/internal/imaging"
	"github.com/ironsheep/lionsgate-lanes/internal/lanes"
)

// TuningConfig holds classifier and sampler overrides. Nil fields keep the
// engine defaults, so partial files are safe.
type TuningConfig struct {
	// Classifier
	TargetColor       *string  `json:"target_color,omitempty"` // hex like "#51D6D0"
	DistanceThreshold *float64 `json:"distance_threshold,omitempty"`

	// Sampling zone as fractions of the frame
	ZoneTop    *float64 `json:"zone_top,omitempty"`
	ZoneBottom *float64 `json:"zone_bottom,omitempty"`
	ZoneLeft   *float64 `json:"zone_left,omitempty"`
	ZoneRight  *float64 `json:"zone_right,omitempty"`
	Stride     *int     `json:"stride,omitempty"`

	// Aggregation
	StrongThreshold *int `json:"strong_threshold,omitempty"`
	WeakThreshold   *int `json:"weak_threshold,omitempty"`
}

// LoadTuningConfig loads a TuningConfig from a JSON file.
func LoadTuningConfig(path string) (*TuningConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("tuning file must have .json extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat tuning file: %w", err)
	}
	const maxFileSize = 64 * 1024
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("tuning file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read tuning file: %w", err)
	}

	cfg := &TuningConfig{}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse tuning JSON: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid tuning: %w", err)
	}
	return cfg, nil
}

// Validate checks that the configured values are usable.
func (c *TuningConfig) Validate() error {
	if c.TargetColor != nil {
		if _, err := parseTargetColor(*c.TargetColor); err != nil {
			return err
		}
	}
	if c.DistanceThreshold != nil && *c.DistanceThreshold <= 0 {
		return fmt.Errorf("distance_threshold must be positive, got %f", *c.DistanceThreshold)
	}
	for name, v := range map[string]*float64{
		"zone_top":    c.ZoneTop,
		"zone_bottom": c.ZoneBottom,
		"zone_left":   c.ZoneLeft,
		"zone_right":  c.ZoneRight,
	} {
		if v != nil && (*v < 0 || *v > 1) {
			return fmt.Errorf("%s must be between 0 and 1, got %f", name, *v)
		}
	}
	if c.Stride != nil && *c.Stride < 1 {
		return fmt.Errorf("stride must be at least 1, got %d", *c.Stride)
	}
	if c.StrongThreshold != nil && *c.StrongThreshold < 0 {
		return fmt.Errorf("strong_threshold must be non-negative, got %d", *c.StrongThreshold)
	}
	if c.WeakThreshold != nil && *c.WeakThreshold < 0 {
		return fmt.Errorf("weak_threshold must be non-negative, got %d", *c.WeakThreshold)
	}
	return nil
}

// Apply overlays the set fields onto opts. The resulting zone fractions
// must still describe a non-empty rectangle.
func (c *TuningConfig) Apply(opts *lanes.Options) error {
	if c.TargetColor != nil {
		target, err := parseTargetColor(*c.TargetColor)
		if err != nil {
			return err
		}
		opts.Classifier.Target = target
	}
	if c.DistanceThreshold != nil {
		opts.Classifier.DistanceThreshold = *c.DistanceThreshold
	}

	setFloat(&opts.Zone.Top, c.ZoneTop)
	setFloat(&opts.Zone.Bottom, c.ZoneBottom)
	setFloat(&opts.Zone.Left, c.ZoneLeft)
	setFloat(&opts.Zone.Right, c.ZoneRight)
	if opts.Zone.Top >= opts.Zone.Bottom || opts.Zone.Left >= opts.Zone.Right {
		return fmt.Errorf("zone fractions describe an empty rectangle: %+v", opts.Zone)
	}

	if c.Stride != nil {
		opts.Stride = *c.Stride
	}
	th := lanes.DefaultThresholds()
	if opts.Thresholds != nil {
		th = *opts.Thresholds
	}
	if c.StrongThreshold != nil {
		th.Strong = *c.StrongThreshold
	}
	if c.WeakThreshold != nil {
		th.Weak = *c.WeakThreshold
	}
	if th.Weak > th.Strong {
		return fmt.Errorf("weak_threshold %d exceeds strong_threshold %d", th.Weak, th.Strong)
	}
	opts.Thresholds = &th
	return nil
}

// parseTargetColor accepts "#RRGGBB" or a fully opaque "#RRGGBBFF".
func parseTargetColor(s string) (color.RGBA, error) {
	target, err := imaging.ParseHexColor(s)
	if err != nil {
		return color.RGBA{}, fmt.Errorf("target_color: %w", err)
	}
	if target.A != 0xFF {
		return color.RGBA{}, fmt.Errorf("target_color %q must be opaque", s)
	}
	return target, nil
}

func setFloat(dst *float64, v *float64) {
	if v != nil {
		*dst = *v
	}
}
