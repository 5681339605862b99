package main

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/peterbourgon/ff/v4"
	"github.com/peterbourgon/ff/v4/ffhelp"
	"github.com/shopspring/decimal"

	"github.com/zombor/receipt-ocr/internal/receipt"
	"github.com/zombor/receipt-ocr/internal/scanning"
)

//go:embed VERSION.txt
var versionFile string

var version = strings.TrimSpace(versionFile)

type visionConfig struct {
	provider    string
	openAIKey   string
	openAIModel string
	openAIURL   string
	geminiKey   string
	geminiModel string
	ollamaURL   string
	ollamaModel string
}

// newVisionModel returns a nil model when the provider is disabled or has
// no credential; the pipeline then runs OCR only
func newVisionModel(ctx context.Context, cfg visionConfig) (scanning.VisionModel, error) {
	switch cfg.provider {
	case "none", "":
		return nil, nil
	case "openai":
		apiKey := cfg.openAIKey
		if apiKey == "" {
			apiKey = os.Getenv("OPENAI_API_KEY")
		}
		if apiKey == "" {
			slog.Warn("OpenAI API key not set, vision extraction disabled. Set --openai-key or OPENAI_API_KEY")
			return nil, nil
		}
		slog.Info("Initializing OpenAI vision model...", "model", cfg.openAIModel)
		return scanning.NewOpenAI(apiKey, cfg.openAIModel, cfg.openAIURL)
	case "gemini":
		apiKey := cfg.geminiKey
		if apiKey == "" {
			apiKey = os.Getenv("GEMINI_API_KEY")
		}
		if apiKey == "" {
			slog.Warn("Gemini API key not set, vision extraction disabled. Set --gemini-key or GEMINI_API_KEY")
			return nil, nil
		}
		slog.Info("Initializing Gemini vision model...", "model", cfg.geminiModel)
		return scanning.NewGemini(ctx, apiKey, cfg.geminiModel)
	case "ollama":
		slog.Info("Initializing Ollama vision model...", "url", cfg.ollamaURL, "model", cfg.ollamaModel)
		return scanning.NewOllama(cfg.ollamaURL, cfg.ollamaModel)
	}
	return nil, fmt.Errorf("invalid vision provider %q: valid values are openai, gemini, ollama or none", cfg.provider)
}

func main() {
	os.Exit(run(os.Args[1:]))
}

// run wires and starts the service and returns the process exit code, so
// deferred cleanup always happens before exiting
func run(args []string) int {
	// Check for version flag before parsing other flags
	for _, arg := range args {
		if arg == "--version" || arg == "-version" || arg == "-v" {
			fmt.Println(version)
			return 0
		}
	}

	fs := ff.NewFlagSet("receipt-ocr")
	var (
		port        = fs.IntLong("port", 8080, "HTTP server port")
		dbPath      = fs.StringLong("db", "receipt-ocr.db", "Database file path")
		cacheTTL    = fs.DurationLong("cache-ttl", 720*time.Hour, "How long extractions are reused for an identical image (0 disables)")
		visionType  = fs.StringLong("vision", "openai", "Vision model provider: 'openai', 'gemini', 'ollama' or 'none'")
		openAIKey   = fs.StringLong("openai-key", "", "OpenAI API key (or set OPENAI_API_KEY env var)")
		openAIModel = fs.StringLong("openai-model", "gpt-4o", "OpenAI model name")
		openAIURL   = fs.StringLong("openai-url", "", "OpenAI compatible API base URL (optional)")
		geminiKey   = fs.StringLong("gemini-key", "", "Google Gemini API key (or set GEMINI_API_KEY env var)")
		geminiModel = fs.StringLong("gemini-model", "gemini-2.5-pro", "Google Gemini model name")
		ollamaURL   = fs.StringLong("ollama-url", "http://localhost:11434", "Ollama API base URL")
		ollamaModel = fs.StringLong("ollama-model", "llava", "Ollama model name (e.g., llava, qwen2.5vl:7b, llama3.2-vision)")
		tessLang    = fs.StringLong("tesseract-lang", "por", "Tesseract language(s), joined with '+'")
		tessdata    = fs.StringLong("tessdata", "", "Tesseract tessdata directory (optional)")
		minAmount   = fs.Float64Long("min-amount", 0.01, "Smallest accepted item amount")
		maxAmount   = fs.Float64Long("max-amount", 50000, "Largest accepted item amount")
		mismatchPct = fs.Float64Long("mismatch-percent", 10, "Item sum vs total difference (percent) logged as a mismatch")
		minDescLen  = fs.IntLong("min-description", 3, "Item descriptions must be longer than this many characters")
		file        = fs.StringLong("file", "", "Extract a single receipt image and print the result as JSON")
		showVersion = fs.BoolLong("version", "Show version information")
	)

	if err := ff.Parse(fs, args,
		ff.WithEnvVarPrefix("RECEIPT_OCR"),
	); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", ffhelp.Flags(fs))
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}

	if *showVersion {
		fmt.Println(version)
		return 0
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	limits := scanning.DefaultLimits()
	limits.MinAmount = decimal.NewFromFloat(*minAmount)
	limits.MaxAmount = decimal.NewFromFloat(*maxAmount)
	limits.MismatchPercent = decimal.NewFromFloat(*mismatchPct)
	limits.MinDescriptionLen = *minDescLen

	model, err := newVisionModel(ctx, visionConfig{
		provider:    *visionType,
		openAIKey:   *openAIKey,
		openAIModel: *openAIModel,
		openAIURL:   *openAIURL,
		geminiKey:   *geminiKey,
		geminiModel: *geminiModel,
		ollamaURL:   *ollamaURL,
		ollamaModel: *ollamaModel,
	})
	if err != nil {
		slog.Error("Failed to initialize vision model, continuing with OCR only", "provider", *visionType, "error", err)
		model = nil
	}

	var vision *scanning.VisionExtractor
	if model != nil {
		vision = scanning.NewVisionExtractor(model, limits)
	}
	recognizer := scanning.NewTesseract(*tessLang, *tessdata)
	pipeline := scanning.NewPipeline(vision, recognizer, limits)
	defer pipeline.Close()

	if *file != "" {
		if err := extractFile(ctx, pipeline, *file); err != nil {
			slog.Error("Failed to extract receipt", "file", *file, "error", err)
			return 1
		}
		return 0
	}

	slog.Info("Initializing database...")
	db, err := receipt.NewBoltDB(*dbPath)
	if err != nil {
		slog.Error("Failed to initialize database", "error", err)
		return 1
	}
	defer db.Close()

	service := receipt.NewService(db, pipeline, *cacheTTL)
	server := receipt.NewServer(service)

	addr := fmt.Sprintf(":%d", *port)
	slog.Info("Server started", "address", fmt.Sprintf("http://localhost%s", addr), "vision", vision != nil)
	if err := server.Start(ctx, addr); err != nil {
		slog.Error("Server error", "error", err)
		return 1
	}

	slog.Info("Shutting down...")
	return 0
}

// extractFile runs the pipeline over one image and writes the JSON envelope to stdout
func extractFile(ctx context.Context, pipeline *scanning.Pipeline, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading file: %w", err)
	}

	// the type is sniffed from the content
	image, _, err := scanning.PrepareImage(data, "")
	if err != nil {
		return fmt.Errorf("preparing image: %w", err)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(pipeline.Extract(ctx, image))
}
