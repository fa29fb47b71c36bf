// Package query answers free-text questions strictly from a tenant's
// ingested reference document, with citations.
package query

import (
	"context"
	"errors"
	"log/slog"

	"github.com/hoaworks/guardian/internal/docstore"
	"github.com/hoaworks/guardian/internal/llm"
	"github.com/hoaworks/guardian/internal/vecstore"
)

// DefaultTopK is how many passages ground an answer.
const DefaultTopK = 5

// Citation is one retrieved passage returned as evidence for an answer.
type Citation struct {
	Text          string  `json:"text"`
	SectionHeader string  `json:"sectionHeader,omitempty"`
	Score         float64 `json:"score"`
}

// Response is the outcome of one question. Success=false responses carry
// a user-facing message instead of an answer; answering is advisory and
// never propagates provider failures.
type Response struct {
	Success   bool       `json:"success"`
	Answer    string     `json:"answer,omitempty"`
	Citations []Citation `json:"citations,omitempty"`
	Message   string     `json:"message,omitempty"`
}

// DocumentResolver locates the tenant's document in query scope.
type DocumentResolver interface {
	ActiveForTenant(ctx context.Context, tenantID string) (*docstore.Document, error)
	HasProcessing(ctx context.Context, tenantID string) (bool, error)
}

// Searcher is the read side of the vector store.
type Searcher interface {
	Search(ctx context.Context, tenantID, documentID string, vector []float32, limit int) ([]*vecstore.ScoredChunk, error)
}

// Embedder embeds the question with the same model used at ingestion.
type Embedder interface {
	EmbedQuery(ctx context.Context, question string) ([]float32, error)
}

// Generator synthesizes an answer from the grounding prompt.
type Generator interface {
	Answer(ctx context.Context, system, user string) (string, error)
}

// Engine runs the retrieval-then-generation flow for one tenant question.
type Engine struct {
	docs      DocumentResolver
	index     Searcher
	embedder  Embedder
	generator Generator
	topK      int
	logger    *slog.Logger
}

// NewEngine creates a query engine. topK <= 0 selects DefaultTopK.
func NewEngine(docs DocumentResolver, index Searcher, embedder Embedder, generator Generator, topK int, logger *slog.Logger) *Engine {
	if topK <= 0 {
		topK = DefaultTopK
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		docs:      docs,
		index:     index,
		embedder:  embedder,
		generator: generator,
		topK:      topK,
		logger:    logger,
	}
}

// Ask answers a question from the tenant's active document. Every failure
// mode maps to a defined Response; Ask never returns a partial or
// cross-tenant result.
func (e *Engine) Ask(ctx context.Context, tenantID, question string) *Response {
	log := e.logger.With("tenant_id", tenantID)

	doc, err := e.docs.ActiveForTenant(ctx, tenantID)
	if err != nil {
		if errors.Is(err, docstore.ErrNoReadyDocument) {
			return e.noDocumentResponse(ctx, tenantID)
		}
		log.Error("resolving active document failed", "error", err)
		return unavailable()
	}

	vector, err := e.embedder.EmbedQuery(ctx, question)
	if err != nil {
		log.Warn("embedding question failed", "error", err)
		return providerFailure(err)
	}

	scored, err := e.index.Search(ctx, tenantID, doc.ID, vector, e.topK)
	if err != nil {
		log.Error("passage search failed", "error", err)
		return unavailable()
	}
	if len(scored) == 0 {
		return &Response{
			Success: false,
			Message: "The document does not appear to cover this question.",
		}
	}

	system, user := buildPrompt(question, scored)
	answer, err := e.generator.Answer(ctx, system, user)
	if err != nil {
		log.Warn("answer generation failed", "error", err)
		return providerFailure(err)
	}

	citations := make([]Citation, len(scored))
	for i, sc := range scored {
		citations[i] = Citation{
			Text:          sc.Chunk.Text,
			SectionHeader: sc.Chunk.Section,
			Score:         sc.Score,
		}
	}

	return &Response{
		Success:   true,
		Answer:    answer,
		Citations: citations,
	}
}

// noDocumentResponse distinguishes "still processing" from "nothing
// uploaded", so callers can tell the two apart.
func (e *Engine) noDocumentResponse(ctx context.Context, tenantID string) *Response {
	processing, err := e.docs.HasProcessing(ctx, tenantID)
	if err == nil && processing {
		return &Response{
			Success: false,
			Message: "Your document is still being processed. Try again in a moment.",
		}
	}
	return &Response{
		Success: false,
		Message: "No reference document is available. Upload your bylaws first.",
	}
}

func providerFailure(err error) *Response {
	if llm.Classify(err) == llm.KindTransient {
		return &Response{
			Success: false,
			Message: "We could not answer right now. Please try again shortly.",
		}
	}
	return unavailable()
}

func unavailable() *Response {
	return &Response{
		Success: false,
		Message: "Answering is currently unavailable.",
	}
}
