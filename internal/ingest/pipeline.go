// Package ingest drives a document from upload to queryable: extract,
// chunk, embed, persist.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/hoaworks/guardian/internal/chunk"
	"github.com/hoaworks/guardian/internal/docstore"
	"github.com/hoaworks/guardian/internal/extract"
	"github.com/hoaworks/guardian/internal/vecstore"
)

// DefaultRunTimeout bounds a single ingestion run end to end.
const DefaultRunTimeout = 10 * time.Minute

// FileStore fetches uploaded file bytes by reference.
type FileStore interface {
	Get(ctx context.Context, ref string) ([]byte, error)
}

// Extractor pulls the text layer out of raw document bytes.
type Extractor interface {
	Extract(data []byte) (*extract.Result, error)
}

// Splitter cuts extracted text into ordered passages.
type Splitter interface {
	Split(text string) []chunk.Passage
}

// Embedder turns passage texts into fixed-dimension vectors.
type Embedder interface {
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
}

// ChunkIndex is the write side of the vector store.
type ChunkIndex interface {
	UpsertChunks(ctx context.Context, chunks []*vecstore.Chunk) error
	DeleteDocument(ctx context.Context, documentID string) error
}

// DocumentStore records document lifecycle state.
type DocumentStore interface {
	Create(ctx context.Context, doc *docstore.Document) error
	MarkReady(ctx context.Context, id string, chunkCount int) error
	MarkFailed(ctx context.Context, id, message string) error
	PriorReady(ctx context.Context, tenantID, excludeID string) ([]*docstore.Document, error)
}

// Pipeline is the per-document ingestion state machine. Each started
// document runs in its own goroutine; stages within a run are strictly
// sequential.
type Pipeline struct {
	files      FileStore
	extractor  Extractor
	splitter   Splitter
	embedder   Embedder
	index      ChunkIndex
	docs       DocumentStore
	logger     *slog.Logger
	runTimeout time.Duration

	wg sync.WaitGroup
}

// NewPipeline wires the ingestion stages together.
func NewPipeline(
	files FileStore,
	extractor Extractor,
	splitter Splitter,
	embedder Embedder,
	index ChunkIndex,
	docs DocumentStore,
	logger *slog.Logger,
) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		files:      files,
		extractor:  extractor,
		splitter:   splitter,
		embedder:   embedder,
		index:      index,
		docs:       docs,
		logger:     logger,
		runTimeout: DefaultRunTimeout,
	}
}

// Start registers a new document in processing state and kicks off the
// asynchronous ingestion run. The document id is returned synchronously;
// callers observe progress by polling document status.
func (p *Pipeline) Start(ctx context.Context, tenantID, fileRef, fileName string) (string, error) {
	doc := &docstore.Document{
		ID:        uuid.New().String(),
		TenantID:  tenantID,
		FileRef:   fileRef,
		FileName:  fileName,
		Status:    docstore.StatusProcessing,
		CreatedAt: time.Now().UTC(),
	}
	if err := p.docs.Create(ctx, doc); err != nil {
		return "", fmt.Errorf("create document: %w", err)
	}

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		// Detached from the caller's request context: ingestion outlives
		// the upload request and has no user-facing cancellation.
		runCtx, cancel := context.WithTimeout(context.Background(), p.runTimeout)
		defer cancel()
		p.run(runCtx, doc)
	}()

	return doc.ID, nil
}

// Wait blocks until every in-flight ingestion run has finished.
func (p *Pipeline) Wait() {
	p.wg.Wait()
}

// run executes the full stage sequence for one document and records the
// terminal state. All chunks are persisted before the status flips to
// ready, so a ready document never has a partial chunk set.
func (p *Pipeline) run(ctx context.Context, doc *docstore.Document) {
	log := p.logger.With("document_id", doc.ID, "tenant_id", doc.TenantID)
	start := time.Now()

	// PDF parsing can panic on malformed input; a panic in one document's
	// run must fail that document, not the process.
	defer func() {
		if r := recover(); r != nil {
			p.fail(ctx, log, doc.ID, "could not process the document", fmt.Errorf("panic: %v", r))
		}
	}()

	data, err := p.files.Get(ctx, doc.FileRef)
	if err != nil {
		p.fail(ctx, log, doc.ID, "could not read the uploaded file", err)
		return
	}

	result, err := p.extractor.Extract(data)
	if err != nil {
		msg := "could not process the document"
		if errors.Is(err, extract.ErrUnreadableDocument) {
			msg = "the document has no readable text layer; scanned images are not supported"
		}
		p.fail(ctx, log, doc.ID, msg, err)
		return
	}
	log.Debug("extracted text", "pages", result.PageCount, "characters", len(result.Text))

	passages := p.splitter.Split(result.Text)
	if len(passages) == 0 {
		p.fail(ctx, log, doc.ID, "the document produced no usable passages", fmt.Errorf("zero passages"))
		return
	}

	texts := make([]string, len(passages))
	for i, passage := range passages {
		texts[i] = passage.Text
	}
	vectors, err := p.embedder.EmbedTexts(ctx, texts)
	if err != nil {
		p.fail(ctx, log, doc.ID, "the embedding service was unavailable; upload the document again", err)
		return
	}

	chunks := make([]*vecstore.Chunk, len(passages))
	for i, passage := range passages {
		chunks[i] = &vecstore.Chunk{
			ID:         uuid.New().String(),
			TenantID:   doc.TenantID,
			DocumentID: doc.ID,
			Ordinal:    passage.Ordinal,
			Text:       passage.Text,
			Section:    passage.Section,
			Embedding:  vectors[i],
		}
	}

	if err := p.index.UpsertChunks(ctx, chunks); err != nil {
		// A partial chunk set must never survive; drop whatever landed.
		if delErr := p.index.DeleteDocument(ctx, doc.ID); delErr != nil {
			log.Error("rollback of partial chunk set failed", "error", delErr)
		}
		p.fail(ctx, log, doc.ID, "could not store the document index; upload the document again", err)
		return
	}

	if err := p.docs.MarkReady(ctx, doc.ID, len(chunks)); err != nil {
		log.Error("mark ready failed", "error", err)
		return
	}

	p.cleanupSuperseded(ctx, log, doc)

	log.Info("document ready",
		"chunks", len(chunks),
		"pages", result.PageCount,
		"duration", time.Since(start),
	)
}

// fail records the terminal failed state with a human-readable message.
// The run context may already be expired, so the write uses its own
// deadline; a document must not linger in processing because recording
// its failure raced the timeout.
func (p *Pipeline) fail(ctx context.Context, log *slog.Logger, docID, message string, cause error) {
	log.Warn("ingestion failed", "reason", message, "error", cause)

	writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	if err := p.docs.MarkFailed(writeCtx, docID, message); err != nil {
		log.Error("mark failed did not apply", "error", err)
	}
}

// cleanupSuperseded drops prior ready documents' chunks from the vector
// index once a replacement has taken over query scope. Errors are logged
// only; query scoping by active document already keeps stale chunks out
// of answers.
func (p *Pipeline) cleanupSuperseded(ctx context.Context, log *slog.Logger, doc *docstore.Document) {
	prior, err := p.docs.PriorReady(ctx, doc.TenantID, doc.ID)
	if err != nil {
		log.Error("listing superseded documents failed", "error", err)
		return
	}
	for _, old := range prior {
		if err := p.index.DeleteDocument(ctx, old.ID); err != nil {
			log.Error("removing superseded chunks failed", "superseded_id", old.ID, "error", err)
			continue
		}
		log.Info("removed superseded document from index", "superseded_id", old.ID)
	}
}
