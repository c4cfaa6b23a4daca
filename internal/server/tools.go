package server

// Tool represents an MCP tool definition
type Tool struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	InputSchema map[string]interface{} `json:"inputSchema"`
}

func pathProperty() map[string]interface{} {
	return map[string]interface{}{
		"type":        "string",
		"description": "Absolute path to the image file",
	}
}

func pathsProperty() map[string]interface{} {
	return map[string]interface{}{
		"type":        "array",
		"items":       map[string]interface{}{"type": "string"},
		"description": "Absolute paths to cropped text-line images",
	}
}

// GetToolDefinitions returns all available tools
func GetToolDefinitions() []Tool {
	return []Tool{
		// Basic Image Information
		{
			Name:        "image_load",
			Description: "Load an image file and return its dimensions, channel count and format. The image is cached for subsequent operations.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathProperty(),
				},
				"required": []string{"path"},
			},
		},

		// Recognition
		{
			Name:        "ocr_recognize",
			Description: "Recognize the text in one or more cropped text-line images. Results are returned in input order with a confidence score (null when no text was found).",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"paths": pathsProperty(),
					"batch_size": map[string]interface{}{
						"type":        "integer",
						"description": "Maximum images per model call. Default is the server's configured batch size",
					},
					"fix_rotation": map[string]interface{}{
						"type":        "boolean",
						"description": "Correct upside-down lines with the rotation classifier before recognizing. Ignored when no classifier is configured",
						"default":     false,
					},
				},
				"required": []string{"paths"},
			},
		},
		{
			Name:        "ocr_recognize_region",
			Description: "Crop a rectangular region holding a single line of text and recognize it.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathProperty(),
					"x1": map[string]interface{}{
						"type":        "integer",
						"description": "Left edge X coordinate (0-based)",
					},
					"y1": map[string]interface{}{
						"type":        "integer",
						"description": "Top edge Y coordinate (0-based)",
					},
					"x2": map[string]interface{}{
						"type":        "integer",
						"description": "Right edge X coordinate (exclusive)",
					},
					"y2": map[string]interface{}{
						"type":        "integer",
						"description": "Bottom edge Y coordinate (exclusive)",
					},
				},
				"required": []string{"path", "x1", "y1", "x2", "y2"},
			},
		},

		// Rotation
		{
			Name:        "ocr_detect_rotation",
			Description: "Decide for each text-line image whether it is upside down. Returns should_rotate and the classifier confidence.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"paths": pathsProperty(),
				},
				"required": []string{"paths"},
			},
		},
		{
			Name:        "ocr_fix_rotation",
			Description: "Rotate a text-line image by 180 degrees when the classifier says it is upside down, and return the corrected image as base64-encoded PNG.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathProperty(),
				},
				"required": []string{"path"},
			},
		},

		{
			Name:        "ocr_engine_info",
			Description: "Report the recognition engine, its batch size and whether a rotation classifier is available.",
			InputSchema: map[string]interface{}{
				"type":       "object",
				"properties": map[string]interface{}{},
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
