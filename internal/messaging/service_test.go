package messaging

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ironsheep/lionsgate-lanes/internal/lanes"
)

func TestEncode(t *testing.T) {
	cfg := lanes.LaneConfig{
		Northbound: 1,
		Southbound: 2,
		Confidence: 90,
		Method:     lanes.MethodSignalDetection,
		Reasoning:  "Strong left-side signal detection",
		Sequence:   7,
		CycleID:    "3f1c2a9e-0000-4000-8000-000000000000",
		UpdatedAt:  time.Date(2025, 3, 4, 8, 0, 0, 0, time.UTC),
	}

	data, err := Encode(cfg)
	require.NoError(t, err)

	var got map[string]any
	require.NoError(t, json.Unmarshal(data, &got))
	assert.EqualValues(t, 1, got["northbound_lanes"])
	assert.EqualValues(t, 2, got["southbound_lanes"])
	assert.EqualValues(t, 90, got["confidence"])
	assert.Equal(t, "Signal Detection", got["method"])
	assert.EqualValues(t, 7, got["sequence"])
	assert.Equal(t, cfg.CycleID, got["cycle_id"])
}

func TestNewService_Errors(t *testing.T) {
	_, err := NewService(Options{URL: "nats://127.0.0.1:4222"})
	assert.ErrorContains(t, err, "subject")

	_, err = NewService(Options{
		URL:            "nats://127.0.0.1:1",
		Subject:        "lanes.config",
		ConnectTimeout: 200 * time.Millisecond,
	})
	assert.Error(t, err)
}

func TestService_Subjects(t *testing.T) {
	s := &Service{subject: "lanes.config"}
	assert.Equal(t, "lanes.config", s.Subject())
	assert.Equal(t, "lanes.config.refresh", s.RefreshSubject())
	assert.False(t, s.IsConnected())
}
