package server

// Tool represents an MCP tool definition
type Tool struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	InputSchema map[string]interface{} `json:"inputSchema"`
}

func pathProperty(desc string) map[string]interface{} {
	return map[string]interface{}{
		"type":        "string",
		"description": desc,
	}
}

func timeProperties() map[string]interface{} {
	return map[string]interface{}{
		"time": map[string]interface{}{
			"type":        "string",
			"description": "RFC3339 timestamp to evaluate, e.g. 2025-03-04T08:15:00-08:00. Defaults to now.",
		},
		"policy": map[string]interface{}{
			"type":        "string",
			"enum":        []string{"weekday", "weekend-aware"},
			"description": "Schedule policy. Defaults to the server's configured policy.",
		},
	}
}

// GetToolDefinitions returns all available tools
func GetToolDefinitions() []Tool {
	return []Tool{
		// Inference
		{
			Name:        "lanes_infer",
			Description: "Infer the Lions Gate lane configuration from a camera image file. The result becomes the latest configuration. If the file cannot be read the time-of-day schedule is used.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathProperty("Absolute path to a camera frame (JPEG, PNG or GIF)"),
					"reload": map[string]interface{}{
						"type":        "boolean",
						"description": "Re-read the file even if it was loaded before. Use when the snapshot is overwritten in place.",
						"default":     false,
					},
				},
				"required": []string{"path"},
			},
		},
		{
			Name:        "lanes_infer_url",
			Description: "Fetch a camera image over HTTP and infer the lane configuration. Without a url the configured bridge camera is used. Fetch failures fall back to the time-of-day schedule.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"url": map[string]interface{}{
						"type":        "string",
						"description": "Image URL. Defaults to the configured camera.",
					},
				},
			},
		},
		{
			Name:        "lanes_fallback",
			Description: "Apply the time-of-day lane schedule without looking at any image.",
			InputSchema: map[string]interface{}{
				"type":       "object",
				"properties": timeProperties(),
			},
		},
		{
			Name:        "lanes_last",
			Description: "Return the most recent committed lane configuration and its diagnostics.",
			InputSchema: map[string]interface{}{
				"type":       "object",
				"properties": map[string]interface{}{},
			},
		},

		// Signal analysis
		{
			Name:        "lanes_classify_color",
			Description: "Classify an RGB color as lane signal or not, showing the distance to the reference teal and each heuristic's verdict.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"r": map[string]interface{}{"type": "integer", "minimum": 0, "maximum": 255},
					"g": map[string]interface{}{"type": "integer", "minimum": 0, "maximum": 255},
					"b": map[string]interface{}{"type": "integer", "minimum": 0, "maximum": 255},
				},
				"required": []string{"r", "g", "b"},
			},
		},
		{
			Name:        "lanes_sample_zone",
			Description: "Report the sampling zone for an image and the signal evidence on each side of it.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathProperty("Absolute path to a camera frame"),
					"max_matches": map[string]interface{}{
						"type":        "integer",
						"description": "Maximum number of matching sample coordinates to list. Default 50, 0 for none.",
						"default":     50,
					},
				},
				"required": []string{"path"},
			},
		},
		{
			Name:        "lanes_zone_preview",
			Description: "Crop the sampling zone as base64 PNG with the side split and signal matches highlighted. Without a path the last camera frame is used.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathProperty("Absolute path to a camera frame. Optional."),
					"scale": map[string]interface{}{
						"type":        "number",
						"description": "Optional scale factor (e.g., 2.0 to double size). Default 1.0",
						"default":     1.0,
					},
				},
			},
		},
		{
			Name:        "lanes_dominant_colors",
			Description: "List the most common colors inside the sampling zone of an image. Useful when tuning the signal color.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathProperty("Absolute path to a camera frame"),
					"count": map[string]interface{}{
						"type":        "integer",
						"description": "Number of colors to return. Default 5",
						"default":     5,
					},
				},
				"required": []string{"path"},
			},
		},

		// Companion signs
		{
			Name:        "lanes_read_delay",
			Description: "Read the ATIS travel delay sign with OCR. Without a path the current sign is downloaded.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathProperty("Absolute path to a saved delay sign image. Optional."),
				},
			},
		},
		{
			Name:        "lanes_queue_estimate",
			Description: "Time-of-day lane estimate with SIMULATED queue counts. The counts are placeholders, not measurements, and are labelled simulated.",
			InputSchema: map[string]interface{}{
				"type":       "object",
				"properties": timeProperties(),
			},
		},
	}
}

// handleToolsList returns the list of available tools
func (s *Server) handleToolsList(req *MCPRequest) *MCPResponse {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"tools": GetToolDefinitions(),
		},
	}
}
