package lanes

import (
	"fmt"
	"strings"
	"time"
)

// SchedulePolicy selects which time-of-day rule set Fallback applies.
type SchedulePolicy string

const (
	// PolicyWeekday applies the weekday rush-hour schedule every day.
	PolicyWeekday SchedulePolicy = "weekday"
	// PolicyWeekendAware switches to a recreational schedule on Saturday and Sunday.
	PolicyWeekendAware SchedulePolicy = "weekend-aware"
)

// DefaultSchedulePolicy is the policy used when none is configured.
const DefaultSchedulePolicy = PolicyWeekendAware

// ParseSchedulePolicy accepts "weekday" or "weekend-aware" (case-insensitive).
// An empty string yields DefaultSchedulePolicy.
func ParseSchedulePolicy(s string) (SchedulePolicy, error) {
	switch SchedulePolicy(strings.ToLower(strings.TrimSpace(s))) {
	case "":
		return DefaultSchedulePolicy, nil
	case PolicyWeekday:
		return PolicyWeekday, nil
	case PolicyWeekendAware:
		return PolicyWeekendAware, nil
	default:
		return "", fmt.Errorf("unknown fallback policy %q (want %q or %q)", s, PolicyWeekday, PolicyWeekendAware)
	}
}

const (
	fallbackConfidence       = 75
	directFallbackConfidence = 60
)

// window is a half-open hour range [start, end).
type window struct {
	start, end int
}

func (w window) contains(hour int) bool { return hour >= w.start && hour < w.end }

var (
	morningRush = window{6, 10}
	eveningRush = window{15, 19}
	weekendPeak = window{10, 17}
)

// Fallback applies the time-of-day schedule to now, read in now's location.
//
// Weekdays: 06:00-10:00 runs 1 NB / 2 SB for traffic into the city,
// 15:00-19:00 runs 2 NB / 1 SB for traffic out of it, and every other hour
// defaults to 2 NB / 1 SB. Under PolicyWeekendAware, Saturday and Sunday
// run 1 NB / 2 SB from 10:00 to 17:00 and 2 NB / 1 SB otherwise.
//
// Confidence is 75 when cause names a failed detection and 60 for a direct
// request (CauseNone).
func Fallback(now time.Time, cause FallbackCause, policy SchedulePolicy) LaneConfig {
	hour := now.Hour()
	weekend := now.Weekday() == time.Saturday || now.Weekday() == time.Sunday

	cfg := LaneConfig{Method: MethodTimeBasedFallback, Confidence: fallbackConfidence}
	if cause == CauseNone {
		cfg.Confidence = directFallbackConfidence
	}

	switch {
	case policy == PolicyWeekendAware && weekend && weekendPeak.contains(hour):
		cfg.Northbound, cfg.Southbound = southboundHeavy()
		cfg.Reasoning = "weekend recreational traffic"
	case policy == PolicyWeekendAware && weekend:
		cfg.Northbound, cfg.Southbound = northboundHeavy()
		cfg.Reasoning = "weekend off-peak"
	case morningRush.contains(hour):
		cfg.Northbound, cfg.Southbound = southboundHeavy()
		cfg.Reasoning = "morning rush (into city)"
	case eveningRush.contains(hour):
		cfg.Northbound, cfg.Southbound = northboundHeavy()
		cfg.Reasoning = "evening rush (out of city)"
	default:
		cfg.Northbound, cfg.Southbound = northboundHeavy()
		cfg.Reasoning = "off-peak default"
	}

	cfg.Diagnostics = map[string]any{
		"hour":    hour,
		"weekday": now.Weekday().String(),
		"policy":  string(policy),
	}
	if cause != CauseNone {
		cfg.Diagnostics["cause"] = string(cause)
	}
	return cfg
}
