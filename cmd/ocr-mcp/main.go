package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/ironsheep/ocr-pipeline-mcp/internal/config"
	"github.com/ironsheep/ocr-pipeline-mcp/internal/engine"
	"github.com/ironsheep/ocr-pipeline-mcp/internal/logging"
	"github.com/ironsheep/ocr-pipeline-mcp/internal/server"
)

// Version information - set by ldflags during build
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	// Handle --version and -v flags
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "--version", "-v", "version":
			fmt.Printf("ocr-pipeline-mcp %s\n", Version)
			fmt.Printf("  Build time: %s\n", BuildTime)
			fmt.Printf("  Git commit: %s\n", GitCommit)
			return
		case "--help", "-h", "help":
			fmt.Println("ocr-pipeline-mcp - MCP server for text-line recognition")
			fmt.Println()
			fmt.Println("Usage: ocr-pipeline-mcp [options]")
			fmt.Println()
			fmt.Println("Options:")
			fmt.Println("  --version, -v    Print version information")
			fmt.Println("  --help, -h       Print this help message")
			fmt.Println()
			fmt.Println("Environment variables (also read from ./.env):")
			fmt.Println("  OCR_MCP_LOG_LEVEL=debug          Log level: debug, info, warn, error")
			fmt.Println("  OCR_MCP_ENGINE=onnx              Recognition engine: onnx or tesseract")
			fmt.Println("  OCR_MCP_MODEL_FILE=models.yaml   Model descriptor (required for onnx)")
			fmt.Println("  OCR_MCP_BATCH_SIZE=8             Override the recognizer batch size")
			fmt.Println("  OCR_MCP_TESSERACT_LANG=eng       Tesseract language code")
			fmt.Println("  OCR_MCP_TESSDATA=/path           Tesseract tessdata directory")
			fmt.Println()
			fmt.Println("This server communicates via MCP protocol over stdin/stdout.")
			fmt.Println("Configure it in your MCP client (e.g., Claude Desktop).")
			return
		}
	}

	// A missing .env file is not an error.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "ocr-pipeline-mcp: %v\n", err)
		os.Exit(1)
	}

	// Logging goes to stderr (stdout is for MCP protocol)
	logger := logging.New(os.Stderr, cfg.LogLevel)
	logger.Debug("starting OCR MCP server",
		"version", Version,
		"build_time", BuildTime,
		"commit", GitCommit,
		"engine", cfg.Engine)

	engines, err := engine.Build(cfg, logger)
	if err != nil {
		logger.Error("failed to build engine", "error", err)
		os.Exit(1)
	}
	defer engines.Close()

	opts := server.Options{
		Recognizer:    engines.Recognizer,
		Engine:        engines.Name,
		EngineDetails: engines.Details,
		BatchSize:     engines.BatchSize,
		Version:       Version,
		Logger:        logger,
	}
	if engines.Classifier != nil {
		opts.Classifier = engines.Classifier
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := server.New(opts)
	if err := srv.Run(ctx); err != nil && ctx.Err() == nil {
		logger.Error("server error", "error", err)
		engines.Close()
		os.Exit(1)
	}
}
