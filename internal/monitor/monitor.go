// Package monitor drives the refresh cycle: fetch a camera frame, infer the
// lane configuration, commit it to the engine and publish it.
//
// Cycles start on four triggers: once when Run starts, on every tick of
// the refresh interval, whenever Refresh is called, and on RequestRefresh
// while ServeRequests is running. Triggers may overlap; the engine's
// sequence numbers keep a slow, older cycle from overwriting a newer
// result.
package monitor

import (
	"context"
	"image"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/ironsheep/lionsgate-lanes/internal/camera"
	"github.com/ironsheep/lionsgate-lanes/internal/lanes"
	"github.com/ironsheep/lionsgate-lanes/internal/timeutil"
)

// Publisher receives every committed result.
type Publisher interface {
	Publish(ctx context.Context, cfg lanes.LaneConfig) error
}

// Options configures a Monitor.
type Options struct {
	// Interval between scheduled cycles. Defaults to DefaultInterval.
	Interval time.Duration
	// PassTimeout bounds each image fetch. Defaults to DefaultPassTimeout.
	PassTimeout time.Duration
	Clock       timeutil.Clock
	// Publisher is optional.
	Publisher Publisher
}

const (
	DefaultInterval    = 60 * time.Second
	DefaultPassTimeout = 2500 * time.Millisecond
)

// Monitor runs refresh cycles against one camera source.
type Monitor struct {
	engine *lanes.Engine
	source camera.Source
	opts   Options
	logger zerolog.Logger

	// requests holds at most one pending RequestRefresh.
	requests chan struct{}

	mu       sync.RWMutex
	frame    image.Image
	frameSeq uint64
}

// New creates a Monitor. source may be nil, in which case only RefreshFrom
// produces signal-based results and scheduled cycles use the time rule.
func New(engine *lanes.Engine, source camera.Source, opts Options) *Monitor {
	if opts.Interval <= 0 {
		opts.Interval = DefaultInterval
	}
	if opts.PassTimeout <= 0 {
		opts.PassTimeout = DefaultPassTimeout
	}
	if opts.Clock == nil {
		opts.Clock = timeutil.RealClock{}
	}
	return &Monitor{
		engine: engine,
		source: source,
		opts:     opts,
		logger:   log.With().Str("component", "monitor").Logger(),
		requests: make(chan struct{}, 1),
	}
}

// Engine returns the engine results are committed to.
func (m *Monitor) Engine() *lanes.Engine { return m.engine }

// Run performs an initial cycle, then one per interval until ctx is done.
func (m *Monitor) Run(ctx context.Context) {
	m.logger.Info().Dur("interval", m.opts.Interval).Msg("Monitor started")
	m.Refresh(ctx)

	ticker := m.opts.Clock.NewTicker(m.opts.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			m.logger.Info().Msg("Monitor stopped")
			return
		case <-ticker.C():
			m.Refresh(ctx)
		}
	}
}

// RequestRefresh asks ServeRequests for a cycle and returns immediately.
// Requests that arrive while one is already pending are merged into it, so
// a burst costs at most the cycle in flight plus one more.
func (m *Monitor) RequestRefresh() {
	select {
	case m.requests <- struct{}{}:
	default:
		m.logger.Debug().Msg("Refresh already pending")
	}
}

// ServeRequests runs one cycle per pending RequestRefresh until ctx is done.
func (m *Monitor) ServeRequests(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-m.requests:
			m.Refresh(ctx)
		}
	}
}

// Refresh runs one cycle against the configured source. It returns the
// cycle's result and whether it was committed as the latest.
func (m *Monitor) Refresh(ctx context.Context) (lanes.LaneConfig, bool) {
	return m.RefreshFrom(ctx, m.source)
}

// RefreshFrom runs one cycle against src instead of the configured source.
func (m *Monitor) RefreshFrom(ctx context.Context, src camera.Source) (lanes.LaneConfig, bool) {
	seq := m.engine.Begin()
	cycleID := uuid.NewString()
	logger := m.logger.With().Uint64("seq", seq).Str("cycle_id", cycleID).Logger()

	img := m.fetch(ctx, src, logger)
	cfg := m.engine.Infer(img)
	cfg.CycleID = cycleID
	cfg.UpdatedAt = m.opts.Clock.Now()

	committed := m.engine.Commit(seq, cfg)
	cfg.Sequence = seq
	if !committed {
		logger.Debug().Msg("Cycle superseded by a newer result")
		return cfg, false
	}
	if img != nil {
		m.keepFrame(seq, img)
	}

	logger.Info().
		Str("method", string(cfg.Method)).
		Int("confidence", cfg.Confidence).
		Int("northbound", cfg.Northbound).
		Int("southbound", cfg.Southbound).
		Msg("Lane configuration updated")

	if m.opts.Publisher != nil {
		if err := m.opts.Publisher.Publish(ctx, cfg); err != nil {
			logger.Warn().Err(err).Msg("Failed to publish lane configuration")
		}
	}
	return cfg, true
}

func (m *Monitor) fetch(ctx context.Context, src camera.Source, logger zerolog.Logger) image.Image {
	if src == nil {
		logger.Debug().Msg("No image source configured")
		return nil
	}
	fetchCtx, cancel := context.WithTimeout(ctx, m.opts.PassTimeout)
	defer cancel()

	img, err := src.Fetch(fetchCtx)
	if err != nil {
		logger.Warn().Err(err).Msg("Camera image unavailable")
		return nil
	}
	return img
}

func (m *Monitor) keepFrame(seq uint64, img image.Image) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if seq > m.frameSeq {
		m.frame = img
		m.frameSeq = seq
	}
}

// Frame returns the camera frame of the most recent committed cycle that
// had one.
func (m *Monitor) Frame() (image.Image, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.frame, m.frame != nil
}
