package lanes

import (
	"errors"
	"image"
	"maps"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/ironsheep/lionsgate-lanes/internal/timeutil"
)

// Options configures an Engine. Zero fields are replaced by defaults in
// NewEngine.
type Options struct {
	Classifier ClassifierConfig
	Zone       ZoneFractions
	Stride     int
	// Thresholds is nil for the defaults. Strong 0 and Weak 0 is a valid
	// setting and is kept as given.
	Thresholds *Thresholds
	Policy     SchedulePolicy

	// Location is the time zone the schedule is evaluated in.
	Location *time.Location
	Clock    timeutil.Clock
}

// DefaultOptions returns the production engine settings evaluated in the
// local time zone.
func DefaultOptions() Options {
	return Options{
		Classifier: DefaultClassifierConfig(),
		Zone:       DefaultZoneFractions(),
		Stride:     DefaultStride,
		Thresholds: thresholdsPtr(DefaultThresholds()),
		Policy:     DefaultSchedulePolicy,
		Location:   time.Local,
		Clock:      timeutil.RealClock{},
	}
}

// Engine runs lane inference and holds the most recent committed result.
type Engine struct {
	opts       Options
	classifier *Classifier
	logger     zerolog.Logger

	seq atomic.Uint64

	mu      sync.RWMutex
	last    LaneConfig
	lastSeq uint64
	hasLast bool
}

// NewEngine creates an Engine. Unset options take their defaults.
func NewEngine(opts Options) *Engine {
	def := DefaultOptions()
	if opts.Classifier == (ClassifierConfig{}) {
		opts.Classifier = def.Classifier
	}
	if opts.Zone == (ZoneFractions{}) {
		opts.Zone = def.Zone
	}
	if opts.Stride < 1 {
		opts.Stride = def.Stride
	}
	if opts.Thresholds == nil {
		opts.Thresholds = def.Thresholds
	} else {
		opts.Thresholds = thresholdsPtr(*opts.Thresholds)
	}
	if opts.Policy == "" {
		opts.Policy = def.Policy
	}
	if opts.Location == nil {
		opts.Location = def.Location
	}
	if opts.Clock == nil {
		opts.Clock = def.Clock
	}

	return &Engine{
		opts:       opts,
		classifier: NewClassifier(opts.Classifier),
		logger:     log.With().Str("component", "lanes").Logger(),
	}
}

// Options returns the resolved engine settings.
func (e *Engine) Options() Options {
	opts := e.opts
	opts.Thresholds = thresholdsPtr(*e.opts.Thresholds)
	return opts
}

func thresholdsPtr(t Thresholds) *Thresholds { return &t }

// Classifier returns the engine's signal-color classifier.
func (e *Engine) Classifier() *Classifier { return e.classifier }

// Zone derives the sampling zone for an image with the given bounds.
func (e *Engine) Zone(bounds image.Rectangle) (SamplingZone, error) {
	return ZoneFor(bounds, e.opts.Zone, e.opts.Stride)
}

// Now returns the engine clock's time in the schedule's location.
func (e *Engine) Now() time.Time {
	return e.opts.Clock.Now().In(e.opts.Location)
}

// Fallback applies the time schedule at the engine's current time.
func (e *Engine) Fallback(cause FallbackCause) LaneConfig {
	return Fallback(e.Now(), cause, e.opts.Policy)
}

// Infer produces a LaneConfig for img. A nil img means the camera image
// could not be obtained and the time schedule is used directly. Infer does
// not retain img and does not change the committed result.
func (e *Engine) Infer(img image.Image) LaneConfig {
	if img == nil {
		e.logger.Debug().Msg("No camera image, using time-based fallback")
		return e.Fallback(CauseImageUnavailable)
	}

	zone, err := e.Zone(img.Bounds())
	if err != nil {
		e.logger.Debug().Err(err).Msg("Image too small to sample")
		cfg := e.Fallback(CauseInvalidZone)
		cfg.Reasoning = "Image too small to sample; " + cfg.Reasoning
		return cfg
	}

	samples := Sample(img, zone, e.classifier)
	cfg, err := Aggregate(samples, *e.opts.Thresholds)
	if errors.Is(err, ErrInconclusive) {
		evidence := cfg.Diagnostics
		cfg = e.Fallback(CauseInconclusive)
		cfg.Reasoning = "No signal color found in sampling zone; " + cfg.Reasoning
		maps.Copy(cfg.Diagnostics, evidence)
	}
	cfg.Diagnostics["zone"] = zone

	e.logger.Debug().
		Str("method", string(cfg.Method)).
		Int("confidence", cfg.Confidence).
		Interface("diagnostics", cfg.Diagnostics).
		Msg("Inference complete")
	return cfg
}

// Begin allocates the sequence number for a new refresh cycle. Sequence
// numbers increase monotonically and start at 1.
func (e *Engine) Begin() uint64 {
	return e.seq.Add(1)
}

// Commit stores cfg as the most recent result if seq is newer than the
// currently stored one. It reports whether cfg was stored; results from
// superseded cycles are dropped.
func (e *Engine) Commit(seq uint64, cfg LaneConfig) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.hasLast && seq <= e.lastSeq {
		e.logger.Debug().Uint64("seq", seq).Uint64("current", e.lastSeq).Msg("Discarding stale result")
		return false
	}
	cfg.Sequence = seq
	cfg.Diagnostics = maps.Clone(cfg.Diagnostics)
	e.last = cfg
	e.lastSeq = seq
	e.hasLast = true
	return true
}

// Last returns the most recently committed result.
func (e *Engine) Last() (LaneConfig, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if !e.hasLast {
		return LaneConfig{}, false
	}
	cfg := e.last
	cfg.Diagnostics = maps.Clone(e.last.Diagnostics)
	return cfg, true
}

// LastDiagnostics returns a copy of the diagnostics of the most recently
// committed result, or nil before the first commit.
func (e *Engine) LastDiagnostics() map[string]any {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if !e.hasLast {
		return nil
	}
	return maps.Clone(e.last.Diagnostics)
}
