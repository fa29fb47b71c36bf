// Package main provides the guardian CLI: serve the HTTP API or run
// one-shot ingestion and question commands.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
	"unicode/utf8"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/hoaworks/guardian/internal/blob"
	"github.com/hoaworks/guardian/internal/chunk"
	"github.com/hoaworks/guardian/internal/config"
	"github.com/hoaworks/guardian/internal/docstore"
	"github.com/hoaworks/guardian/internal/extract"
	"github.com/hoaworks/guardian/internal/ingest"
	"github.com/hoaworks/guardian/internal/llm"
	"github.com/hoaworks/guardian/internal/query"
	"github.com/hoaworks/guardian/internal/server"
	"github.com/hoaworks/guardian/internal/vecstore"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "guardian",
	Short: "Bylaw document ingestion and question answering",
	Long: `Guardian ingests a tenant's bylaw document and answers free-text
questions strictly from that document, with citations.

Environment variables:
  OPENAI_API_KEY OpenAI API key for embeddings and generation (required)
  QDRANT_HOST    Qdrant hostname (default: localhost)
  QDRANT_PORT    Qdrant gRPC port (default: 6334)
  PORT           HTTP listen port for serve (default: 8080)`,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	RunE:  runServe,
}

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Ingest one document and wait for the outcome",
	RunE:  runIngest,
}

var statusCmd = &cobra.Command{
	Use:   "status <document-id>",
	Short: "Print a document's ingestion status",
	Args:  cobra.ExactArgs(1),
	RunE:  runStatus,
}

var askCmd = &cobra.Command{
	Use:   "ask <question>",
	Short: "Ask a question against the tenant's ready document",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runAsk,
}

var (
	flagTenant string
	flagFile   string
	flagName   string
)

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "guardian.yaml", "path to config file")

	ingestCmd.Flags().StringVar(&flagTenant, "tenant", "", "tenant id (required)")
	ingestCmd.Flags().StringVar(&flagFile, "file", "", "file reference in the upload store (required)")
	ingestCmd.Flags().StringVar(&flagName, "name", "", "display name (defaults to the file reference)")
	ingestCmd.MarkFlagRequired("tenant")
	ingestCmd.MarkFlagRequired("file")

	askCmd.Flags().StringVar(&flagTenant, "tenant", "", "tenant id (required)")
	askCmd.MarkFlagRequired("tenant")

	rootCmd.AddCommand(serveCmd, ingestCmd, statusCmd, askCmd)
}

func main() {
	// Load .env if present (local development), ignore if missing.
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// app bundles the wired components shared by the subcommands.
type app struct {
	cfg      *config.Config
	docs     *docstore.Store
	index    *vecstore.Store
	pipeline *ingest.Pipeline
	engine   *query.Engine
}

func (a *app) close() {
	a.index.Close()
	a.docs.Close()
}

func wire(ctx context.Context) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	slog.SetDefault(logger)

	docs, err := docstore.NewStore(cfg.Storage.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("open document store: %w", err)
	}

	index, err := vecstore.NewStore(cfg.Qdrant.Host, cfg.Qdrant.Port, logger)
	if err != nil {
		docs.Close()
		return nil, fmt.Errorf("connect to qdrant: %w", err)
	}
	if err := index.EnsureCollection(ctx); err != nil {
		index.Close()
		docs.Close()
		return nil, fmt.Errorf("ensure collection: %w", err)
	}

	client, err := llm.NewClient()
	if err != nil {
		index.Close()
		docs.Close()
		return nil, err
	}
	embedder := llm.NewEmbedder(client, cfg.Embedder.BatchSize)
	generator := llm.NewGenerator(client)

	splitter, err := chunk.NewSplitter(chunk.Config{
		Size:    cfg.Chunker.Size,
		Overlap: cfg.Chunker.Overlap,
	})
	if err != nil {
		index.Close()
		docs.Close()
		return nil, fmt.Errorf("chunker config: %w", err)
	}

	files := blob.NewFSStore(cfg.Storage.FilesDir)
	extractor := extract.NewPDFExtractor(cfg.Extract.MinTextLength)

	pipeline := ingest.NewPipeline(files, extractor, splitter, embedder, index, docs, logger)
	engine := query.NewEngine(docs, index, embedder, generator, cfg.Query.TopK, logger)

	return &app{
		cfg:      cfg,
		docs:     docs,
		index:    index,
		pipeline: pipeline,
		engine:   engine,
	}, nil
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer cancel()

	a, err := wire(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	mux := http.NewServeMux()
	srv := server.New(a.pipeline, a.docs, a.engine, slog.Default())
	srv.Register(mux)
	mux.HandleFunc("/health", server.NewHealthHandler(a.index, a.docs))

	// Reaper: an ingestion interrupted mid-run must not stay processing
	// forever.
	go runReaper(ctx, a.docs, a.cfg.Ingest)

	httpServer := &http.Server{
		Addr:    fmt.Sprintf("0.0.0.0:%d", a.cfg.Server.Port),
		Handler: mux,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		httpServer.Shutdown(shutdownCtx)
	}()

	slog.Info("listening", "addr", httpServer.Addr)
	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	slog.Info("draining in-flight ingestions")
	a.pipeline.Wait()
	return nil
}

func runReaper(ctx context.Context, docs *docstore.Store, cfg config.IngestConfig) {
	interval := time.Duration(cfg.SweepIntervalMinutes) * time.Minute
	staleAfter := time.Duration(cfg.StaleAfterMinutes) * time.Minute

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			ids, err := docs.FailStale(ctx, staleAfter)
			if err != nil {
				slog.Error("stale ingestion sweep failed", "error", err)
				continue
			}
			for _, id := range ids {
				slog.Warn("failed stale ingestion", "document_id", id)
			}
		}
	}
}

func runIngest(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	a, err := wire(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	name := flagName
	if name == "" {
		name = flagFile
	}

	docID, err := a.pipeline.Start(ctx, flagTenant, flagFile, name)
	if err != nil {
		return err
	}
	fmt.Printf("Document %s ingesting...\n", docID)

	// Status is poll-based; the CLI just polls its own store.
	for {
		time.Sleep(time.Second)
		doc, err := a.docs.Get(ctx, docID)
		if err != nil {
			return err
		}
		switch doc.Status {
		case docstore.StatusReady:
			fmt.Printf("Ready: %d chunks\n", doc.ChunkCount)
			return nil
		case docstore.StatusFailed:
			return fmt.Errorf("ingestion failed: %s", doc.ErrorMessage)
		}
	}
}

func runStatus(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	docs, err := docstore.NewStore(cfg.Storage.DatabasePath)
	if err != nil {
		return err
	}
	defer docs.Close()

	doc, err := docs.Get(ctx, args[0])
	if err != nil {
		return err
	}

	fmt.Printf("Document:  %s (%s)\n", doc.ID, doc.FileName)
	fmt.Printf("Status:    %s\n", doc.Status)
	if doc.ErrorMessage != "" {
		fmt.Printf("Error:     %s\n", doc.ErrorMessage)
	}
	if doc.Status == docstore.StatusReady {
		fmt.Printf("Chunks:    %d\n", doc.ChunkCount)
	}
	fmt.Printf("Created:   %s\n", doc.CreatedAt.Format(time.RFC3339))
	if doc.ProcessedAt != nil {
		fmt.Printf("Processed: %s\n", doc.ProcessedAt.Format(time.RFC3339))
	}
	return nil
}

func runAsk(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	a, err := wire(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	question := args[0]
	for _, arg := range args[1:] {
		question += " " + arg
	}

	resp := a.engine.Ask(ctx, flagTenant, question)
	if !resp.Success {
		fmt.Println(resp.Message)
		return nil
	}

	fmt.Println(resp.Answer)
	fmt.Println()
	fmt.Println("Citations:")
	for i, c := range resp.Citations {
		header := ""
		if c.SectionHeader != "" {
			header = fmt.Sprintf(" (%s)", c.SectionHeader)
		}
		text := c.Text
		if len(text) > 120 {
			cut := 120
			for cut > 0 && !utf8.RuneStart(text[cut]) {
				cut--
			}
			text = text[:cut] + "..."
		}
		fmt.Printf("  [%d]%s score=%.3f %s\n", i+1, header, c.Score, text)
	}
	return nil
}
