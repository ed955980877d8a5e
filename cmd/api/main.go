package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"

	"portfolio_extraction/pkg/core/config"
	"portfolio_extraction/pkg/core/ingest"
	"portfolio_extraction/pkg/core/pipeline"
	"portfolio_extraction/pkg/core/store"
)

// extractRequest is the POST /api/extract payload. Exactly one of Text,
// HTML or Markdown carries the document.
type extractRequest struct {
	DocumentID       string            `json:"document_id,omitempty"`
	Text             string            `json:"text,omitempty"`
	HTML             string            `json:"html,omitempty"`
	Markdown         string            `json:"markdown,omitempty"`
	ExpectedTotal    string            `json:"expected_total,omitempty"`
	KnownCorrections map[string]string `json:"known_corrections,omitempty"`
	Save             bool              `json:"save,omitempty"`
}

type server struct {
	orch    *pipeline.Orchestrator
	results *store.ResultsRepo // nil when no database is configured
}

func main() {
	godotenv.Load()

	cfg := config.Default()
	if path := os.Getenv("PIPELINE_CONFIG"); path != "" {
		loaded, err := config.Load(path)
		if err != nil {
			log.Fatalf("Error loading config from %s: %v", path, err)
		}
		cfg = loaded
		fmt.Printf("[CONFIG] Loaded pipeline config from %s\n", path)
	}

	orch, err := pipeline.New(cfg, func(stage, message string) {
		log.Printf("[%s] %s", strings.ToUpper(stage), message)
	})
	if err != nil {
		log.Fatalf("Error: %v", err)
	}

	srv := &server{orch: orch}
	if os.Getenv("DATABASE_URL") != "" {
		if err := store.InitDB(context.Background()); err != nil {
			log.Fatalf("Error initializing database: %v", err)
		}
		defer store.Close()
		srv.results = store.NewResultsRepo()
		fmt.Println("[STORE] Postgres persistence enabled")
	}

	http.HandleFunc("/api/extract", srv.handleExtract)
	http.HandleFunc("/api/results/", srv.handleResult)
	http.HandleFunc("/api/results", srv.handleRecent)

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	fmt.Printf("🚀 Extraction API listening on :%s\n", port)
	log.Fatal(http.ListenAndServe(":"+port, nil))
}

func (s *server) handleExtract(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req extractRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, fmt.Sprintf("invalid request: %v", err), http.StatusBadRequest)
		return
	}

	pipeReq := pipeline.Request{DocumentID: req.DocumentID}

	switch {
	case req.HTML != "":
		tokens, err := ingest.HTMLTokens(req.HTML)
		if err != nil {
			http.Error(w, fmt.Sprintf("invalid html: %v", err), http.StatusBadRequest)
			return
		}
		pipeReq.Tokens = tokens
	case req.Markdown != "":
		pipeReq.Tokens = ingest.MarkdownTokens(req.Markdown)
	case req.Text != "":
		pipeReq.Text = req.Text
	default:
		http.Error(w, "one of text, html or markdown is required", http.StatusBadRequest)
		return
	}

	if req.ExpectedTotal != "" {
		total, err := decimal.NewFromString(req.ExpectedTotal)
		if err != nil {
			http.Error(w, fmt.Sprintf("invalid expected_total: %v", err), http.StatusBadRequest)
			return
		}
		pipeReq.ExpectedTotal = &total
	}
	if len(req.KnownCorrections) > 0 {
		pipeReq.KnownCorrections = make(map[string]decimal.Decimal, len(req.KnownCorrections))
		for isin, raw := range req.KnownCorrections {
			v, err := decimal.NewFromString(raw)
			if err != nil {
				http.Error(w, fmt.Sprintf("invalid correction for %s: %v", isin, err), http.StatusBadRequest)
				return
			}
			pipeReq.KnownCorrections[isin] = v
		}
	}

	result := s.orch.Run(pipeReq)

	if req.Save {
		if s.results == nil {
			http.Error(w, "persistence not configured", http.StatusBadRequest)
			return
		}
		if err := s.results.Save(r.Context(), &result); err != nil {
			http.Error(w, fmt.Sprintf("save failed: %v", err), http.StatusInternalServerError)
			return
		}
	}

	writeJSON(w, result)
}

func (s *server) handleResult(w http.ResponseWriter, r *http.Request) {
	if s.results == nil {
		http.Error(w, "persistence not configured", http.StatusNotFound)
		return
	}
	docID := strings.TrimPrefix(r.URL.Path, "/api/results/")
	if docID == "" {
		http.Error(w, "document id required", http.StatusBadRequest)
		return
	}

	result, err := s.results.Load(r.Context(), docID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if result == nil {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	writeJSON(w, result)
}

func (s *server) handleRecent(w http.ResponseWriter, r *http.Request) {
	if s.results == nil {
		http.Error(w, "persistence not configured", http.StatusNotFound)
		return
	}
	results, err := s.results.Recent(r.Context(), 20)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, results)
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("[API] encode response: %v", err)
	}
}
