package server

import (
	"context"
	"encoding/json"
	"fmt"
	"image"
	"os"
	"time"

	"github.com/ironsheep/lionsgate-lanes/internal/camera"
	"github.com/ironsheep/lionsgate-lanes/internal/imaging"
	"github.com/ironsheep/lionsgate-lanes/internal/lanes"
	"github.com/ironsheep/lionsgate-lanes/internal/monitor"
)

// ToolCallParams represents the parameters for a tools/call MCP request.
type ToolCallParams struct {
	// Name is the tool to invoke (e.g., "lanes_infer", "lanes_fallback").
	Name string `json:"name"`

	// Arguments contains the tool-specific parameters as JSON.
	Arguments json.RawMessage `json:"arguments"`
}

// handleToolsCall processes a tools/call request and executes the specified tool.
//
// The response wraps the tool result in MCP's content format:
//
//	{
//	  "content": [{"type": "text", "text": "<JSON result>"}]
//	}
//
// Tool execution errors return a JSON-RPC error response with code -32000.
func (s *Server) handleToolsCall(ctx context.Context, req *MCPRequest) *MCPResponse {
	var params ToolCallParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return s.errorResponse(req.ID, -32602, "Invalid params", err.Error())
	}
	if len(params.Arguments) == 0 {
		params.Arguments = json.RawMessage("{}")
	}

	result, err := s.executeTool(ctx, params.Name, params.Arguments)
	if err != nil {
		s.logger.Debug().Err(err).Str("tool", params.Name).Msg("Tool failed")
		return s.errorResponse(req.ID, -32000, "Tool execution failed", err.Error())
	}

	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"content": []map[string]interface{}{
				{
					"type": "text",
					"text": mustMarshalJSON(result),
				},
			},
		},
	}
}

// executeTool dispatches tool execution to the appropriate handler function.
func (s *Server) executeTool(ctx context.Context, name string, args json.RawMessage) (interface{}, error) {
	switch name {
	// Inference
	case "lanes_infer":
		return s.handleInfer(ctx, args)
	case "lanes_infer_url":
		return s.handleInferURL(ctx, args)
	case "lanes_fallback":
		return s.handleFallback(args)
	case "lanes_last":
		return s.handleLast()

	// Signal analysis
	case "lanes_classify_color":
		return s.handleClassifyColor(args)
	case "lanes_sample_zone":
		return s.handleSampleZone(args)
	case "lanes_zone_preview":
		return s.handleZonePreview(args)
	case "lanes_dominant_colors":
		return s.handleDominantColors(args)

	// Companion signs
	case "lanes_read_delay":
		return s.handleReadDelay(ctx, args)
	case "lanes_queue_estimate":
		return s.handleQueueEstimate(ctx, args)

	default:
		return nil, fmt.Errorf("unknown tool: %s", name)
	}
}

// errorResponse creates a JSON-RPC error response with the given details.
func (s *Server) errorResponse(id interface{}, code int, message, data string) *MCPResponse {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      id,
		Error: &MCPError{
			Code:    code,
			Message: message,
			Data:    data,
		},
	}
}

// mustMarshalJSON converts a value to pretty-printed JSON string.
// On marshal failure it returns an empty string.
func mustMarshalJSON(v interface{}) string {
	b, _ := json.MarshalIndent(v, "", "  ")
	return string(b)
}

func (s *Server) loadImage(path string, reload bool) (image.Image, error) {
	if path == "" {
		return nil, fmt.Errorf("path is required")
	}
	if reload {
		s.cache.Evict(path)
	}
	return s.cache.Load(path)
}

// === Inference Handlers ===

type inferResult struct {
	Config    lanes.LaneConfig `json:"config"`
	Committed bool             `json:"committed"`
	// ImageError explains why the schedule was used instead of the image.
	ImageError string `json:"image_error,omitempty"`
}

type inferArgs struct {
	Path   string `json:"path"`
	Reload bool   `json:"reload"`
}

func (s *Server) handleInfer(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var a inferArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	if a.Path == "" {
		return nil, fmt.Errorf("path is required")
	}

	var loadErr error
	src := camera.SourceFunc(func(context.Context) (image.Image, error) {
		img, err := s.loadImage(a.Path, a.Reload)
		loadErr = err
		return img, err
	})
	cfg, committed := s.monitor.RefreshFrom(ctx, src)

	res := inferResult{Config: cfg, Committed: committed}
	if loadErr != nil {
		res.ImageError = loadErr.Error()
	}
	return res, nil
}

type inferURLArgs struct {
	URL string `json:"url"`
}

func (s *Server) handleInferURL(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var a inferURLArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	if a.URL == "" {
		a.URL = s.opts.CameraURL
	}
	if a.URL == "" {
		return nil, fmt.Errorf("url is required when no camera is configured")
	}
	if _, err := camera.CacheBust(a.URL, time.Time{}); err != nil {
		return nil, err
	}

	var fetchErr error
	httpSrc := s.opts.NewSource(a.URL)
	src := camera.SourceFunc(func(ctx context.Context) (image.Image, error) {
		img, err := httpSrc.Fetch(ctx)
		fetchErr = err
		return img, err
	})
	cfg, committed := s.monitor.RefreshFrom(ctx, src)

	res := inferResult{Config: cfg, Committed: committed}
	if fetchErr != nil {
		res.ImageError = fetchErr.Error()
	}
	return res, nil
}

type timeArgs struct {
	Time   string `json:"time"`
	Policy string `json:"policy"`
}

// resolve returns the evaluation time in the engine's location and the
// policy to apply.
func (a timeArgs) resolve(e *lanes.Engine) (time.Time, lanes.SchedulePolicy, error) {
	opts := e.Options()
	now := e.Now()
	if a.Time != "" {
		t, err := time.Parse(time.RFC3339, a.Time)
		if err != nil {
			return time.Time{}, "", fmt.Errorf("time must be RFC3339: %w", err)
		}
		now = t.In(opts.Location)
	}
	policy := opts.Policy
	if a.Policy != "" {
		p, err := lanes.ParseSchedulePolicy(a.Policy)
		if err != nil {
			return time.Time{}, "", err
		}
		policy = p
	}
	return now, policy, nil
}

func (s *Server) handleFallback(args json.RawMessage) (interface{}, error) {
	var a timeArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	now, policy, err := a.resolve(s.monitor.Engine())
	if err != nil {
		return nil, err
	}
	return lanes.Fallback(now, lanes.CauseNone, policy), nil
}

type lastResult struct {
	Available   bool              `json:"available"`
	Config      *lanes.LaneConfig `json:"config,omitempty"`
	Diagnostics map[string]any    `json:"diagnostics,omitempty"`
}

func (s *Server) handleLast() (interface{}, error) {
	engine := s.monitor.Engine()
	cfg, ok := engine.Last()
	if !ok {
		return lastResult{Available: false}, nil
	}
	return lastResult{Available: true, Config: &cfg, Diagnostics: engine.LastDiagnostics()}, nil
}

// === Signal Analysis Handlers ===

type classifyArgs struct {
	R *int `json:"r"`
	G *int `json:"g"`
	B *int `json:"b"`
}

type classifyResult struct {
	lanes.Verdict
	Color  imaging.ColorResult `json:"color"`
	Target string              `json:"target"`
}

func (s *Server) handleClassifyColor(args json.RawMessage) (interface{}, error) {
	var a classifyArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	var rgb [3]uint8
	for i, v := range []*int{a.R, a.G, a.B} {
		if v == nil {
			return nil, fmt.Errorf("r, g and b are required")
		}
		if *v < 0 || *v > 255 {
			return nil, fmt.Errorf("color components must be 0-255, got %d", *v)
		}
		rgb[i] = uint8(*v)
	}

	c := s.monitor.Engine().Classifier()
	target := c.Config().Target
	return classifyResult{
		Verdict: c.Explain(rgb[0], rgb[1], rgb[2]),
		Color:   imaging.DescribeColor(rgb[0], rgb[1], rgb[2]),
		Target:  imaging.DescribeColor(target.R, target.G, target.B).Hex,
	}, nil
}

type sampleZoneArgs struct {
	Path       string `json:"path"`
	MaxMatches *int   `json:"max_matches"`
}

type sampleZoneResult struct {
	Image   imaging.DimensionsResult `json:"image"`
	Zone    lanes.SamplingZone       `json:"zone"`
	MidX    int                      `json:"mid_x"`
	Samples int                      `json:"samples"`
	Left    lanes.SideEvidence       `json:"left"`
	Right   lanes.SideEvidence       `json:"right"`
	Matches []lanes.ColorSample      `json:"matches,omitempty"`
}

func (s *Server) handleSampleZone(args json.RawMessage) (interface{}, error) {
	var a sampleZoneArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	maxMatches := 50
	if a.MaxMatches != nil {
		maxMatches = *a.MaxMatches
	}

	img, err := s.loadImage(a.Path, false)
	if err != nil {
		return nil, err
	}
	engine := s.monitor.Engine()
	zone, err := engine.Zone(img.Bounds())
	if err != nil {
		return nil, err
	}

	samples := lanes.Sample(img, zone, engine.Classifier())
	left, right := lanes.Evidence(samples)
	bounds := img.Bounds()
	res := sampleZoneResult{
		Image:   imaging.Dimensions(img),
		Zone:    zone,
		MidX:    lanes.SplitX(bounds),
		Samples: len(samples),
		Left:    left,
		Right:   right,
	}
	for _, smp := range samples {
		if len(res.Matches) >= maxMatches {
			break
		}
		if smp.IsSignal {
			res.Matches = append(res.Matches, smp)
		}
	}
	return res, nil
}

type zonePreviewArgs struct {
	Path  string  `json:"path"`
	Scale float64 `json:"scale"`
}

type zonePreviewResult struct {
	*imaging.CropResult
	Zone  lanes.SamplingZone `json:"zone"`
	Left  lanes.SideEvidence `json:"left"`
	Right lanes.SideEvidence `json:"right"`
}

func (s *Server) handleZonePreview(args json.RawMessage) (interface{}, error) {
	var a zonePreviewArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	if a.Scale == 0 {
		a.Scale = 1.0
	}

	var img image.Image
	if a.Path != "" {
		var err error
		if img, err = s.loadImage(a.Path, false); err != nil {
			return nil, err
		}
	} else {
		frame, ok := s.monitor.Frame()
		if !ok {
			return nil, fmt.Errorf("no camera frame yet; pass a path or run lanes_infer_url first")
		}
		img = frame
	}

	preview, err := monitor.RenderPreview(s.monitor.Engine(), img)
	if err != nil {
		return nil, err
	}
	cropped, err := imaging.Crop(preview.Overlay, preview.Zone.Rect(), a.Scale)
	if err != nil {
		return nil, err
	}
	encoded, err := imaging.EncodePNG(cropped)
	if err != nil {
		return nil, err
	}
	return zonePreviewResult{CropResult: encoded, Zone: preview.Zone, Left: preview.Left, Right: preview.Right}, nil
}

type dominantColorsArgs struct {
	Path  string `json:"path"`
	Count int    `json:"count"`
}

func (s *Server) handleDominantColors(args json.RawMessage) (interface{}, error) {
	var a dominantColorsArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	if a.Count == 0 {
		a.Count = 5
	}
	img, err := s.loadImage(a.Path, false)
	if err != nil {
		return nil, err
	}
	zone, err := s.monitor.Engine().Zone(img.Bounds())
	if err != nil {
		return nil, err
	}
	return imaging.DominantColors(img, a.Count, zone.Rect())
}

// === Companion Sign Handlers ===

type readDelayArgs struct {
	Path string `json:"path"`
}

func (s *Server) handleReadDelay(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var a readDelayArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	if s.opts.Delay == nil {
		return nil, fmt.Errorf("delay sign reading is not configured")
	}
	if a.Path != "" {
		data, err := os.ReadFile(a.Path)
		if err != nil {
			return nil, fmt.Errorf("failed to read image: %w", err)
		}
		return s.opts.Delay.ReadImage(data)
	}
	return s.opts.Delay.Read(ctx)
}

type queueCounts struct {
	Vehicles   int     `json:"vehicles"`
	Northbound int     `json:"northbound"`
	Southbound int     `json:"southbound"`
	Density    float64 `json:"density"`
}

type queueEstimateResult struct {
	Simulated  bool             `json:"simulated"`
	Note       string           `json:"note"`
	Config     lanes.LaneConfig `json:"config"`
	Confidence int              `json:"confidence"`
	Counts     queueCounts      `json:"counts"`

	QueueMap *queueMapProbe `json:"queue_map,omitempty"`
}

type queueMapProbe struct {
	URL       string                    `json:"url"`
	Available bool                      `json:"available"`
	Image     *imaging.DimensionsResult `json:"image,omitempty"`
	Error     string                    `json:"error,omitempty"`
}

// queueProbeTimeout bounds the queue map download.
const queueProbeTimeout = 3 * time.Second

// handleQueueEstimate returns the schedule's configuration with placeholder
// queue counts. Nothing here is measured; the result says so.
func (s *Server) handleQueueEstimate(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var a timeArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	now, policy, err := a.resolve(s.monitor.Engine())
	if err != nil {
		return nil, err
	}

	s.randMu.Lock()
	res := queueEstimateResult{
		Simulated:  true,
		Note:       "Queue counts are simulated placeholders, not measurements.",
		Config:     lanes.Fallback(now, lanes.CauseNone, policy),
		Confidence: s.rand.Intn(30) + 60,
		Counts: queueCounts{
			Vehicles:   s.rand.Intn(20) + 5,
			Northbound: s.rand.Intn(10) + 2,
			Southbound: s.rand.Intn(10) + 2,
			Density:    float64(int((s.rand.Float64()*5+2)*10)) / 10,
		},
	}
	s.randMu.Unlock()

	if s.opts.QueueURL != "" {
		res.QueueMap = s.probeQueueMap(ctx)
	}
	return res, nil
}

func (s *Server) probeQueueMap(ctx context.Context) *queueMapProbe {
	probe := &queueMapProbe{URL: s.opts.QueueURL}
	ctx, cancel := context.WithTimeout(ctx, queueProbeTimeout)
	defer cancel()

	img, err := s.opts.NewSource(s.opts.QueueURL).Fetch(ctx)
	if err != nil {
		probe.Error = err.Error()
		return probe
	}
	dims := imaging.Dimensions(img)
	probe.Available = true
	probe.Image = &dims
	return probe
}
