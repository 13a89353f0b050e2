// Package server implements the MCP (Model Context Protocol) server for the
// Lions Gate lane tools.
//
// # Protocol
//
// The server communicates over stdio using JSON-RPC 2.0:
//   - Input: JSON-RPC requests on stdin (one per line)
//   - Output: JSON-RPC responses on stdout
//
// Supported MCP methods:
//   - initialize: Protocol handshake
//   - tools/list: Enumerate available tools
//   - tools/call: Execute a tool with arguments
//   - ping: Health check
//
// # Available Tools
//
// Inference:
//   - lanes_infer: Infer from an image file and commit the result
//   - lanes_infer_url: Fetch the camera (or a URL), infer and commit
//   - lanes_fallback: Apply the time-of-day schedule
//   - lanes_last: Latest committed result and diagnostics
//
// Signal analysis:
//   - lanes_classify_color: Explain the classifier's verdict for one color
//   - lanes_sample_zone: Zone geometry and per-side evidence
//   - lanes_zone_preview: Highlighted crop of the sampling zone
//   - lanes_dominant_colors: Color palette inside the zone
//
// Companion signs:
//   - lanes_read_delay: OCR of the ATIS delay sign
//   - lanes_queue_estimate: Schedule estimate with simulated queue counts
//
// Image files are cached by path for the lifetime of the process; pass
// reload to lanes_infer when a snapshot is overwritten in place.
//
// # Error Handling
//
// Camera and file failures are not errors for the inference tools: they
// fall back to the schedule and report image_error. Other tool failures are
// returned as JSON-RPC error responses with code -32000 and the Go error
// string as data.
package server
