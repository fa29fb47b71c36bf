package llm

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/openai/openai-go"
)

const (
	// EmbeddingModel is the model used for every passage and question.
	EmbeddingModel = "text-embedding-3-small"

	// Dimension is the vector size of EmbeddingModel. Every vector in the
	// index has exactly this dimensionality.
	Dimension = 1536

	// DefaultBatchSize bounds texts per request to stay inside provider
	// limits.
	DefaultBatchSize = 128
)

// Embedder turns passage and question text into fixed-dimension vectors.
// Requests are batched; transient provider errors are retried with bounded
// exponential backoff, fatal ones fail immediately.
type Embedder struct {
	client    *Client
	batchSize int
}

// NewEmbedder creates an Embedder. batchSize <= 0 selects DefaultBatchSize.
func NewEmbedder(client *Client, batchSize int) *Embedder {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return &Embedder{client: client, batchSize: batchSize}
}

// EmbedTexts embeds all texts in order. A failed batch aborts the whole
// call, so callers never see a partial result.
func (e *Embedder) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	var all [][]float32

	for i := 0; i < len(texts); i += e.batchSize {
		end := min(i+e.batchSize, len(texts))

		vectors, err := e.embedBatch(ctx, texts[i:end])
		if err != nil {
			return nil, fmt.Errorf("batch %d-%d: %w", i, end, err)
		}
		all = append(all, vectors...)
	}

	return all, nil
}

// EmbedQuery embeds a single question using the same model and
// dimensionality as ingestion.
func (e *Embedder) EmbedQuery(ctx context.Context, question string) ([]float32, error) {
	vectors, err := e.embedBatch(ctx, []string{question})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

func (e *Embedder) embedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	var vectors [][]float32

	operation := func() error {
		resp, err := e.client.client.Embeddings.New(ctx, openai.EmbeddingNewParams{
			Input: openai.EmbeddingNewParamsInputUnion{
				OfArrayOfStrings: texts,
			},
			Model: EmbeddingModel,
		})
		if err != nil {
			if Classify(err) == KindFatal {
				return backoff.Permanent(err)
			}
			return err
		}
		if len(resp.Data) != len(texts) {
			return backoff.Permanent(fmt.Errorf(
				"provider returned %d embeddings for %d inputs", len(resp.Data), len(texts)))
		}

		vectors = make([][]float32, len(resp.Data))
		for i, data := range resp.Data {
			vectors[i] = toFloat32(data.Embedding)
		}
		return nil
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 500 * time.Millisecond
	b.MaxInterval = 10 * time.Second
	b.MaxElapsedTime = 30 * time.Second

	if err := backoff.Retry(operation, backoff.WithContext(b, ctx)); err != nil {
		return nil, err
	}
	return vectors, nil
}

// toFloat32 converts the provider's float64 vectors to the float32 layout
// used by the index.
func toFloat32(f64 []float64) []float32 {
	f32 := make([]float32, len(f64))
	for i, v := range f64 {
		f32[i] = float32(v)
	}
	return f32
}
