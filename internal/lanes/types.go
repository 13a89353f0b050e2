package lanes

import (
	"errors"
	"time"
)

// TotalLanes is the fixed number of lanes on the bridge.
const TotalLanes = 3

// ErrInconclusive is returned by Aggregate when no signal-color pixels were
// found on either side of the image.
var ErrInconclusive = errors.New("no signal color evidence")

// Method labels how a LaneConfig was produced.
type Method string

const (
	// MethodSignalDetection means the verdict came from signal pixels.
	MethodSignalDetection Method = "Signal Detection"
	// MethodTimeBasedFallback means the verdict came from the time schedule.
	MethodTimeBasedFallback Method = "Time-Based Fallback"
)

// Side is the half of the image a sample falls in.
type Side int

const (
	// SideLeft is x < midpoint.
	SideLeft Side = iota
	// SideRight is x >= midpoint.
	SideRight
)

func (s Side) String() string {
	if s == SideLeft {
		return "left"
	}
	return "right"
}

// MarshalText encodes the side as "left" or "right".
func (s Side) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// FallbackCause records why the time schedule was used.
type FallbackCause string

const (
	// CauseNone is a direct schedule request with no failed detection behind it.
	CauseNone FallbackCause = ""
	// CauseImageUnavailable means no bitmap could be obtained.
	CauseImageUnavailable FallbackCause = "image_unavailable"
	// CauseInconclusive means the image held no signal-color pixels.
	CauseInconclusive FallbackCause = "inconclusive_evidence"
	// CauseInvalidZone means the image was too small to derive a sampling zone.
	CauseInvalidZone FallbackCause = "invalid_zone"
)

// LaneConfig is the result of one inference pass.
type LaneConfig struct {
	Northbound  int            `json:"northbound_lanes"`
	Southbound  int            `json:"southbound_lanes"`
	Confidence  int            `json:"confidence"`
	Method      Method         `json:"method"`
	Reasoning   string         `json:"reasoning"`
	Diagnostics map[string]any `json:"diagnostics,omitempty"`

	// Set by the refresh cycle that committed the result.
	Sequence  uint64    `json:"sequence,omitempty"`
	CycleID   string    `json:"cycle_id,omitempty"`
	UpdatedAt time.Time `json:"updated_at,omitempty"`
}

// Valid reports whether c satisfies the lane-count and confidence invariants.
func (c LaneConfig) Valid() bool {
	return c.Northbound >= 1 && c.Southbound >= 1 &&
		c.Northbound+c.Southbound == TotalLanes &&
		c.Confidence >= 0 && c.Confidence <= 100
}

// southboundHeavy returns the (1 NB, 2 SB) configuration.
func southboundHeavy() (int, int) { return 1, 2 }

// northboundHeavy returns the (2 NB, 1 SB) configuration.
func northboundHeavy() (int, int) { return 2, 1 }
