// Package config loads the server's settings from environment variables
// and the model descriptor they point at.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/ironsheep/ocr-pipeline-mcp/internal/ocrerr"
)

// Engine names a recognition engine.
type Engine string

const (
	EngineONNX      Engine = "onnx"
	EngineTesseract Engine = "tesseract"
)

// Config holds process-level settings.
type Config struct {
	LogLevel string

	// ModelFile is the YAML model descriptor. Required for the onnx engine.
	ModelFile string

	Engine Engine

	// BatchSize overrides the descriptor's batch size when positive.
	BatchSize int

	TesseractLang     string
	TesseractDataPath string
}

// Load reads configuration from environment variables and validates it.
func Load() (*Config, error) {
	batchSize, err := getEnvAsIntOrDefault("OCR_MCP_BATCH_SIZE", 0)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		LogLevel:          getEnvOrDefault("OCR_MCP_LOG_LEVEL", "info"),
		ModelFile:         getEnvOrDefault("OCR_MCP_MODEL_FILE", ""),
		Engine:            Engine(strings.ToLower(getEnvOrDefault("OCR_MCP_ENGINE", string(EngineONNX)))),
		BatchSize:         batchSize,
		TesseractLang:     getEnvOrDefault("OCR_MCP_TESSERACT_LANG", "eng"),
		TesseractDataPath: getEnvOrDefault("OCR_MCP_TESSDATA", ""),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

// Validate checks the settings for consistency.
func (c *Config) Validate() error {
	switch c.Engine {
	case EngineONNX:
		if c.ModelFile == "" {
			return ocrerr.Configuration("OCR_MCP_MODEL_FILE is required for the %s engine", c.Engine)
		}
	case EngineTesseract:
	default:
		return ocrerr.Configuration("OCR_MCP_ENGINE must be %q or %q, got %q", EngineONNX, EngineTesseract, c.Engine)
	}

	if c.BatchSize < 0 || c.BatchSize > 1024 {
		return ocrerr.Configuration("OCR_MCP_BATCH_SIZE must be between 0 and 1024, got %d", c.BatchSize)
	}

	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return ocrerr.Configuration("OCR_MCP_LOG_LEVEL must be debug, info, warn or error, got %q", c.LogLevel)
	}
	return nil
}

// getEnvOrDefault gets environment variable or returns default
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsIntOrDefault gets environment variable as int or returns default
func getEnvAsIntOrDefault(key string, defaultValue int) (int, error) {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue, nil
	}
	value, err := strconv.Atoi(strings.TrimSpace(valueStr))
	if err != nil {
		return 0, ocrerr.Configuration("%s must be an integer, got %q", key, valueStr)
	}
	return value, nil
}
