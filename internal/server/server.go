package server

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/rand"
	"os"
	"sync"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/ironsheep/lionsgate-lanes/internal/camera"
	"github.com/ironsheep/lionsgate-lanes/internal/delay"
	"github.com/ironsheep/lionsgate-lanes/internal/imaging"
	"github.com/ironsheep/lionsgate-lanes/internal/monitor"
)

// Server handles MCP protocol communication
type Server struct {
	cache   *imaging.ImageCache
	monitor *monitor.Monitor
	opts    Options
	logger  zerolog.Logger

	randMu sync.Mutex
	rand   *rand.Rand
}

// Options wires the server to its image sources.
type Options struct {
	Version string

	// CameraURL is used by lanes_infer_url when no url argument is given.
	CameraURL string
	// QueueURL is probed by lanes_queue_estimate. Empty disables the probe.
	QueueURL string

	// Delay reads the ATIS sign for lanes_read_delay. Nil disables the tool.
	Delay *delay.Reader

	// NewSource builds an image source for a URL. Defaults to
	// camera.NewHTTPSource.
	NewSource func(url string) *camera.HTTPSource

	// Seed for the simulated queue counts; 0 picks a random seed.
	Seed int64
}

// MCPRequest represents an incoming JSON-RPC request
type MCPRequest struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      interface{}     `json:"id"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// MCPResponse represents an outgoing JSON-RPC response
type MCPResponse struct {
	JSONRPC string      `json:"jsonrpc"`
	ID      interface{} `json:"id"`
	Result  interface{} `json:"result,omitempty"`
	Error   *MCPError   `json:"error,omitempty"`
}

// MCPError represents a JSON-RPC error
type MCPError struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// New creates a new MCP server instance backed by mon.
func New(mon *monitor.Monitor, opts Options) *Server {
	if opts.NewSource == nil {
		opts.NewSource = func(url string) *camera.HTTPSource { return camera.NewHTTPSource(url) }
	}
	if opts.Version == "" {
		opts.Version = "dev"
	}
	seed := opts.Seed
	if seed == 0 {
		seed = rand.Int63()
	}
	return &Server{
		cache:   imaging.NewImageCache(),
		monitor: mon,
		opts:    opts,
		logger:  log.With().Str("component", "mcp").Logger(),
		rand:    rand.New(rand.NewSource(seed)),
	}
}

// Run starts the MCP server, reading from stdin and writing to stdout
func (s *Server) Run(ctx context.Context) error {
	return s.Serve(ctx, os.Stdin, os.Stdout)
}

// Serve processes newline-delimited JSON-RPC requests from r until EOF or
// until ctx is cancelled, in which case it returns ctx.Err().
func (s *Server) Serve(ctx context.Context, r io.Reader, w io.Writer) error {
	scanner := bufio.NewScanner(r)
	// Increase buffer size for large requests
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, 1024*1024)

	// The scanner blocks in Read, so it runs on its own goroutine and Serve
	// waits on both the next line and ctx.
	lines := make(chan []byte)
	scanErr := make(chan error, 1)
	done := make(chan struct{})
	defer close(done)
	go func() {
		defer close(lines)
		for scanner.Scan() {
			line := append([]byte(nil), scanner.Bytes()...)
			select {
			case lines <- line:
			case <-done:
				return
			}
		}
		scanErr <- scanner.Err()
	}()

	encoder := json.NewEncoder(w)

	for {
		var line []byte
		select {
		case <-ctx.Done():
			s.logger.Info().Msg("MCP server stopping")
			return ctx.Err()
		case l, ok := <-lines:
			if !ok {
				if err := <-scanErr; err != nil {
					return fmt.Errorf("scanner error: %w", err)
				}
				return nil
			}
			line = l
		}
		if len(line) == 0 {
			continue
		}

		var req MCPRequest
		if err := json.Unmarshal(line, &req); err != nil {
			s.logger.Warn().Err(err).Msg("Failed to parse request")
			continue
		}

		resp := s.handleRequest(ctx, &req)
		if resp != nil {
			if err := encoder.Encode(resp); err != nil {
				s.logger.Error().Err(err).Msg("Failed to encode response")
			}
		}
	}
}

// handleRequest routes requests to appropriate handlers
func (s *Server) handleRequest(ctx context.Context, req *MCPRequest) *MCPResponse {
	switch req.Method {
	case "initialize":
		return s.handleInitialize(req)
	case "notifications/initialized":
		// Client acknowledgment, no response needed
		return nil
	case "tools/list":
		return s.handleToolsList(req)
	case "tools/call":
		return s.handleToolsCall(ctx, req)
	case "ping":
		return &MCPResponse{
			JSONRPC: "2.0",
			ID:      req.ID,
			Result:  map[string]interface{}{},
		}
	default:
		return &MCPResponse{
			JSONRPC: "2.0",
			ID:      req.ID,
			Error: &MCPError{
				Code:    -32601,
				Message: fmt.Sprintf("Method not found: %s", req.Method),
			},
		}
	}
}

// handleInitialize responds to the initialize request
func (s *Server) handleInitialize(req *MCPRequest) *MCPResponse {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"protocolVersion": "2024-11-05",
			"capabilities": map[string]interface{}{
				"tools": map[string]interface{}{},
			},
			"serverInfo": map[string]interface{}{
				"name":    "lionsgate-lanes",
				"version": s.opts.Version,
			},
		},
	}
}
