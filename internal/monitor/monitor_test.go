package monitor

import (
	"context"
	"errors"
	"image"
	"image/color"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ironsheep/lionsgate-lanes/internal/camera"
	"github.com/ironsheep/lionsgate-lanes/internal/lanes"
	"github.com/ironsheep/lionsgate-lanes/internal/timeutil"
)

var (
	signalTeal = color.RGBA{81, 214, 208, 255}
	roadGray   = color.RGBA{90, 90, 95, 255}
	// Tuesday 4 March 2025, 16:00 UTC.
	tuesdayAfternoon = time.Date(2025, 3, 4, 16, 0, 0, 0, time.UTC)
)

// rightSignalFrame is a 200x100 frame with a teal block right of center,
// inside the default sampling zone.
func rightSignalFrame() *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, 200, 100))
	for y := 0; y < 100; y++ {
		for x := 0; x < 200; x++ {
			c := roadGray
			if x >= 140 && x < 160 && y >= 10 && y < 30 {
				c = signalTeal
			}
			img.SetRGBA(x, y, c)
		}
	}
	return img
}

type recordingPublisher struct {
	mu   sync.Mutex
	got  []lanes.LaneConfig
	fail error
}

func (p *recordingPublisher) Publish(_ context.Context, cfg lanes.LaneConfig) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.got = append(p.got, cfg)
	return p.fail
}

func (p *recordingPublisher) published() []lanes.LaneConfig {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]lanes.LaneConfig(nil), p.got...)
}

func newTestMonitor(src camera.Source, pub Publisher) (*Monitor, *timeutil.MockClock) {
	clock := timeutil.NewMockClock(tuesdayAfternoon)
	opts := lanes.DefaultOptions()
	opts.Location = time.UTC
	opts.Clock = clock
	engine := lanes.NewEngine(opts)

	return New(engine, src, Options{
		Interval:    time.Minute,
		PassTimeout: 50 * time.Millisecond,
		Clock:       clock,
		Publisher:   pub,
	}), clock
}

func staticSource(img image.Image) camera.Source {
	return camera.SourceFunc(func(context.Context) (image.Image, error) { return img, nil })
}

func TestRefresh_SignalDetection(t *testing.T) {
	pub := &recordingPublisher{}
	m, _ := newTestMonitor(staticSource(rightSignalFrame()), pub)

	cfg, committed := m.Refresh(context.Background())
	require.True(t, committed)
	assert.Equal(t, lanes.MethodSignalDetection, cfg.Method)
	assert.Equal(t, uint64(1), cfg.Sequence)
	assert.Len(t, cfg.CycleID, 36)
	assert.Equal(t, tuesdayAfternoon, cfg.UpdatedAt)

	last, ok := m.Engine().Last()
	require.True(t, ok)
	assert.Equal(t, cfg.CycleID, last.CycleID)

	require.Len(t, pub.published(), 1)
	assert.Equal(t, cfg.CycleID, pub.published()[0].CycleID)

	frame, ok := m.Frame()
	require.True(t, ok)
	assert.Equal(t, image.Rect(0, 0, 200, 100), frame.Bounds())
}

func TestRefresh_FetchErrorFallsBack(t *testing.T) {
	src := camera.SourceFunc(func(context.Context) (image.Image, error) {
		return nil, camera.ErrUnavailable
	})
	m, _ := newTestMonitor(src, nil)

	cfg, committed := m.Refresh(context.Background())
	require.True(t, committed)
	assert.Equal(t, lanes.MethodTimeBasedFallback, cfg.Method)
	assert.Equal(t, "image_unavailable", cfg.Diagnostics["cause"])
	assert.Equal(t, lanes.TotalLanes, cfg.Northbound+cfg.Southbound)

	_, ok := m.Frame()
	assert.False(t, ok, "failed fetches must not leave a frame")
}

func TestRefresh_PassTimeout(t *testing.T) {
	src := camera.SourceFunc(func(ctx context.Context) (image.Image, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	})
	m, _ := newTestMonitor(src, nil)

	start := time.Now()
	cfg, committed := m.Refresh(context.Background())
	assert.Less(t, time.Since(start), 2*time.Second)
	require.True(t, committed)
	assert.Equal(t, lanes.MethodTimeBasedFallback, cfg.Method)
}

func TestRefresh_NilSource(t *testing.T) {
	m, _ := newTestMonitor(nil, nil)
	cfg, committed := m.Refresh(context.Background())
	assert.True(t, committed)
	assert.Equal(t, lanes.MethodTimeBasedFallback, cfg.Method)
}

func TestRefresh_StaleResultDiscarded(t *testing.T) {
	entered := make(chan struct{})
	release := make(chan struct{})
	var calls atomic.Int32

	src := camera.SourceFunc(func(ctx context.Context) (image.Image, error) {
		if calls.Add(1) == 1 {
			close(entered)
			<-release
			return nil, errors.New("slow camera")
		}
		return rightSignalFrame(), nil
	})
	pub := &recordingPublisher{}
	m, _ := newTestMonitor(src, pub)
	m.opts.PassTimeout = 5 * time.Second

	type result struct {
		cfg       lanes.LaneConfig
		committed bool
	}
	slow := make(chan result, 1)
	go func() {
		cfg, ok := m.Refresh(context.Background())
		slow <- result{cfg, ok}
	}()
	<-entered

	fresh, committed := m.Refresh(context.Background())
	require.True(t, committed)
	assert.Equal(t, uint64(2), fresh.Sequence)

	close(release)
	stale := <-slow
	assert.False(t, stale.committed)
	assert.Equal(t, uint64(1), stale.cfg.Sequence)

	last, _ := m.Engine().Last()
	assert.Equal(t, uint64(2), last.Sequence)
	assert.Equal(t, lanes.MethodSignalDetection, last.Method)
	assert.Len(t, pub.published(), 1, "stale results are not published")
}

func TestRefresh_PublishErrorDoesNotFailCycle(t *testing.T) {
	pub := &recordingPublisher{fail: errors.New("nats down")}
	m, _ := newTestMonitor(staticSource(rightSignalFrame()), pub)

	_, committed := m.Refresh(context.Background())
	assert.True(t, committed)
	_, ok := m.Engine().Last()
	assert.True(t, ok)
}

func TestRun_InitialAndScheduledCycles(t *testing.T) {
	var fetches atomic.Int32
	src := camera.SourceFunc(func(context.Context) (image.Image, error) {
		fetches.Add(1)
		return rightSignalFrame(), nil
	})
	m, clock := newTestMonitor(src, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		m.Run(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool { return clock.Tickers() == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, int32(1), fetches.Load(), "initial cycle runs before the first tick")

	clock.Advance(time.Minute)
	require.Eventually(t, func() bool {
		last, ok := m.Engine().Last()
		return ok && last.Sequence == 2
	}, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not stop after cancel")
	}
}

func TestServeRequests_CoalescesBurst(t *testing.T) {
	var fetches atomic.Int32
	started := make(chan struct{}, 16)
	release := make(chan struct{})
	src := camera.SourceFunc(func(context.Context) (image.Image, error) {
		fetches.Add(1)
		started <- struct{}{}
		<-release
		return rightSignalFrame(), nil
	})
	m, _ := newTestMonitor(src, nil)
	m.opts.PassTimeout = time.Second

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		m.ServeRequests(ctx)
		close(done)
	}()

	m.RequestRefresh()
	select {
	case <-started:
	case <-time.After(time.Second):
		t.Fatal("first requested cycle did not start")
	}

	// Ten more requests while the first cycle is still fetching.
	for i := 0; i < 10; i++ {
		m.RequestRefresh()
	}
	close(release)

	require.Eventually(t, func() bool {
		last, ok := m.Engine().Last()
		return ok && last.Sequence == 2
	}, time.Second, 5*time.Millisecond)

	<-started // the second cycle
	select {
	case <-started:
		t.Fatal("burst started a third cycle")
	case <-time.After(50 * time.Millisecond):
	}
	assert.Equal(t, int32(2), fetches.Load())

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("ServeRequests did not stop after cancel")
	}
}

func TestRequestRefresh_NeverBlocks(t *testing.T) {
	m, _ := newTestMonitor(nil, nil)
	for i := 0; i < 100; i++ {
		m.RequestRefresh()
	}
	assert.Len(t, m.requests, 1)
}

func TestRenderPreview(t *testing.T) {
	m, _ := newTestMonitor(nil, nil)

	p, err := RenderPreview(m.Engine(), rightSignalFrame())
	require.NoError(t, err)
	assert.Equal(t, 0, p.Left.Matches)
	assert.Positive(t, p.Right.Matches)
	assert.Equal(t, image.Rect(10, 5, 190, 50), p.Zone.Rect())
	assert.Equal(t, image.Rect(0, 0, 200, 100), p.Overlay.Bounds())

	_, err = RenderPreview(m.Engine(), image.NewRGBA(image.Rect(0, 0, 1, 1)))
	assert.Error(t, err)
}
