package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"

	"portfolio_extraction/pkg/core/config"
	"portfolio_extraction/pkg/core/ingest"
	"portfolio_extraction/pkg/core/llm"
	"portfolio_extraction/pkg/core/pipeline"
	"portfolio_extraction/pkg/core/reconcile"
	"portfolio_extraction/pkg/core/store"
	"portfolio_extraction/pkg/core/vision"
	"portfolio_extraction/pkg/models"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found, assuming environment variables are set.")
	}

	var (
		inputPath   = flag.String("input", "", "statement file (.html, .md, or plain text)")
		configPath  = flag.String("config", "", "optional pipeline config (hjson)")
		tablesPath  = flag.String("tables", "", "optional corrections/rates table (yaml)")
		expectedArg = flag.String("expected", "", "expected portfolio total, overrides the table value")
		docID       = flag.String("doc", "", "document id (generated when empty)")
		save        = flag.Bool("save", false, "persist the result to Postgres (DATABASE_URL)")
		useModel    = flag.Bool("model", false, "fall back to a Gemini text pass when nothing is extracted")
		quiet       = flag.Bool("quiet", false, "suppress stage progress on stderr")
	)
	flag.Parse()

	if *inputPath == "" {
		log.Fatal("Error: -input is required.")
	}

	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			log.Fatalf("Error loading config: %v", err)
		}
		cfg = loaded
	}

	req := pipeline.Request{DocumentID: *docID}

	if *tablesPath != "" {
		tables, err := config.LoadTables(*tablesPath)
		if err != nil {
			log.Fatalf("Error loading tables: %v", err)
		}
		req.ExpectedTotal = tables.ExpectedTotal
		req.KnownCorrections = tables.Corrections
		for code, rate := range tables.ExchangeRates {
			cfg.Validation.ExchangeRates[code] = rate
		}
	}
	if *expectedArg != "" {
		total, err := decimal.NewFromString(*expectedArg)
		if err != nil {
			log.Fatalf("Error: -expected %q is not a number: %v", *expectedArg, err)
		}
		req.ExpectedTotal = &total
	}

	data, err := os.ReadFile(*inputPath)
	if err != nil {
		log.Fatalf("Error reading input: %v", err)
	}

	switch ext := strings.ToLower(filepath.Ext(*inputPath)); ext {
	case ".png", ".jpg", ".jpeg":
		result := runVision(data, ext, *docID, req.ExpectedTotal)
		emit(result, *save)
		return
	case ".html", ".htm":
		tokens, err := ingest.HTMLTokens(string(data))
		if err != nil {
			log.Fatalf("Error parsing HTML: %v", err)
		}
		req.Tokens = tokens
	case ".md", ".markdown":
		if !ingest.ValidMarkdown(string(data)) {
			log.Fatal("Error: input does not look like markdown.")
		}
		req.Tokens = ingest.MarkdownTokens(string(data))
	default:
		req.Text = string(data)
	}

	observer := func(stage, message string) {
		if !*quiet {
			log.Printf("[%s] %s", strings.ToUpper(stage), message)
		}
	}

	orch, err := pipeline.New(cfg, observer)
	if err != nil {
		log.Fatalf("Error: %v", err)
	}

	result := orch.Run(req)

	// Layouts that defeat deterministic association (wrapped rows, prose
	// statements) get one text-model attempt over the raw input.
	if *useModel && len(result.Records) == 0 {
		log.Printf("[MODEL] no records extracted, trying text model pass")
		records, err := vision.NewText(&llm.GeminiProvider{}).ExtractFromText(context.Background(), string(data))
		if err != nil {
			log.Fatalf("Error running text model pass: %v", err)
		}
		if req.ExpectedTotal != nil {
			records = vision.ScaleToExpected(records, *req.ExpectedTotal)
		}
		result.Records = records
		result.TotalValue = models.Total(records)
		if req.ExpectedTotal != nil {
			result.Accuracy = reconcile.Accuracy(result.TotalValue, *req.ExpectedTotal)
		}
	}

	emit(result, *save)
}

// runVision handles scanned statements: a multimodal model reads the page
// image and its holdings become the result, rescaled against the expected
// total when one is known.
func runVision(image []byte, ext, docID string, expected *decimal.Decimal) models.PortfolioResult {
	mimeType := "image/png"
	if ext == ".jpg" || ext == ".jpeg" {
		mimeType = "image/jpeg"
	}

	extractor := vision.New(&llm.LegacyGeminiVision{})
	records, err := extractor.Extract(context.Background(), [][]byte{image}, mimeType)
	if err != nil {
		log.Fatalf("Error running vision pass: %v", err)
	}
	if expected != nil {
		records = vision.ScaleToExpected(records, *expected)
	}

	if docID == "" {
		docID = uuid.New().String()
	}
	result := models.PortfolioResult{
		DocumentID:    docID,
		Records:       records,
		TotalValue:    models.Total(records),
		ExpectedTotal: expected,
	}
	if expected != nil {
		result.Accuracy = reconcile.Accuracy(result.TotalValue, *expected)
	}
	return result
}

func emit(result models.PortfolioResult, save bool) {
	if save {
		if err := persist(&result); err != nil {
			log.Fatalf("Error saving result: %v", err)
		}
		log.Printf("[STORE] saved result for document %s", result.DocumentID)
	}

	out, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		log.Fatalf("Error encoding result: %v", err)
	}
	fmt.Println(string(out))
}

func persist(result *models.PortfolioResult) error {
	ctx := context.Background()
	if err := store.InitDB(ctx); err != nil {
		return err
	}
	defer store.Close()
	return store.NewResultsRepo().Save(ctx, result)
}
