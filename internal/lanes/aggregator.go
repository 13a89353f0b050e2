package lanes

import "fmt"

// Thresholds controls how much evidence each decision rule needs.
type Thresholds struct {
	// Strong is the match count a side must exceed for a 90% verdict.
	Strong int `json:"strong"`
	// Weak is the match count a side must exceed for an 80% verdict.
	Weak int `json:"weak"`
}

// DefaultThresholds returns the production match-count thresholds.
func DefaultThresholds() Thresholds {
	return Thresholds{Strong: 5, Weak: 0}
}

const (
	strongConfidence = 90
	weakConfidence   = 80
)

// Aggregate turns classified samples into a signal-detection verdict.
//
// Rules are tried in order and the first match wins:
//
//  1. right matches > Strong: 1 NB / 2 SB at 90%
//  2. left matches > Strong:  2 NB / 1 SB at 90%
//  3. right > left and right > Weak: 1 NB / 2 SB at 80%
//  4. left > Weak: 2 NB / 1 SB at 80%
//
// Equal non-zero counts on both sides reach rule 4 and resolve to the
// left-side reading. With no matches at all, Aggregate returns
// ErrInconclusive and the caller decides what to do.
func Aggregate(samples []ColorSample, t Thresholds) (LaneConfig, error) {
	left, right := Evidence(samples)
	diag := evidenceDiagnostics(left, right)

	cfg := LaneConfig{Method: MethodSignalDetection, Diagnostics: diag}
	switch {
	case right.Matches > t.Strong:
		cfg.Northbound, cfg.Southbound = southboundHeavy()
		cfg.Confidence = strongConfidence
		cfg.Reasoning = fmt.Sprintf("Strong southbound signal: %d signal pixels on the right side", right.Matches)
	case left.Matches > t.Strong:
		cfg.Northbound, cfg.Southbound = northboundHeavy()
		cfg.Confidence = strongConfidence
		cfg.Reasoning = fmt.Sprintf("Strong northbound signal: %d signal pixels on the left side", left.Matches)
	case right.Matches > left.Matches && right.Matches > t.Weak:
		cfg.Northbound, cfg.Southbound = southboundHeavy()
		cfg.Confidence = weakConfidence
		cfg.Reasoning = fmt.Sprintf("Weak southbound signal: right %d vs left %d signal pixels", right.Matches, left.Matches)
	case left.Matches > t.Weak:
		cfg.Northbound, cfg.Southbound = northboundHeavy()
		cfg.Confidence = weakConfidence
		cfg.Reasoning = fmt.Sprintf("Weak northbound signal: left %d vs right %d signal pixels", left.Matches, right.Matches)
	default:
		return LaneConfig{Diagnostics: diag}, ErrInconclusive
	}
	return cfg, nil
}

func evidenceDiagnostics(left, right SideEvidence) map[string]any {
	return map[string]any{
		"samples":       left.Total + right.Total,
		"left_total":    left.Total,
		"left_matches":  left.Matches,
		"left_density":  left.Density,
		"right_total":   right.Total,
		"right_matches": right.Matches,
		"right_density": right.Density,
	}
}
