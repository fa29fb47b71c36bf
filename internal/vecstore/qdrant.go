package vecstore

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/qdrant/go-client/qdrant"
)

// Store wraps the Qdrant client with connection management and the
// tenant-scoped read/write surface of the chunk index.
type Store struct {
	client *qdrant.Client
	logger *slog.Logger
}

// NewStore creates a Qdrant-backed store and verifies the server is
// reachable, retrying the health check with exponential backoff before
// failing fast.
func NewStore(host string, port int, logger *slog.Logger) (*Store, error) {
	client, err := qdrant.NewClient(&qdrant.Config{
		Host: host,
		Port: port,
	})
	if err != nil {
		return nil, fmt.Errorf("create qdrant client: %w", err)
	}

	if logger == nil {
		logger = slog.Default()
	}
	store := &Store{client: client, logger: logger}

	if err := store.healthCheckWithRetry(context.Background()); err != nil {
		client.Close()
		return nil, fmt.Errorf("%w: %v", ErrUnreachable, err)
	}

	return store, nil
}

func (s *Store) healthCheckWithRetry(ctx context.Context) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 500 * time.Millisecond
	b.MaxInterval = 10 * time.Second
	b.MaxElapsedTime = 30 * time.Second

	return backoff.Retry(func() error {
		return s.Health(ctx)
	}, backoff.WithContext(b, ctx))
}

// Health performs a single health check against Qdrant.
func (s *Store) Health(ctx context.Context) error {
	result, err := s.client.HealthCheck(ctx)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	if result == nil || result.Title == "" {
		return fmt.Errorf("health check returned invalid response")
	}
	return nil
}

// EnsureCollection creates the chunk collection and its payload indexes if
// they do not exist yet. Idempotent.
func (s *Store) EnsureCollection(ctx context.Context) error {
	collections, err := s.client.ListCollections(ctx)
	if err != nil {
		return fmt.Errorf("list collections: %w", err)
	}

	for _, name := range collections {
		if name == CollectionName {
			return nil
		}
	}

	err = s.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: CollectionName,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     VectorDimension,
			Distance: qdrant.Distance_Cosine,
		}),
	})
	if err != nil {
		return fmt.Errorf("create collection: %w", err)
	}

	return s.createPayloadIndexes(ctx)
}

// createPayloadIndexes creates indexes for the filterable fields. Without
// them every tenant-scoped search degrades to a full payload scan.
func (s *Store) createPayloadIndexes(ctx context.Context) error {
	keyword := []string{"tenant_id", "document_id"}
	for _, field := range keyword {
		_, err := s.client.CreateFieldIndex(ctx, &qdrant.CreateFieldIndexCollection{
			CollectionName: CollectionName,
			FieldName:      field,
			FieldType:      qdrant.FieldType_FieldTypeKeyword.Enum(),
		})
		if err != nil {
			return fmt.Errorf("create index for field %s: %w", field, err)
		}
	}

	_, err := s.client.CreateFieldIndex(ctx, &qdrant.CreateFieldIndexCollection{
		CollectionName: CollectionName,
		FieldName:      "ordinal",
		FieldType:      qdrant.FieldType_FieldTypeInteger.Enum(),
	})
	if err != nil {
		return fmt.Errorf("create index for field ordinal: %w", err)
	}

	return nil
}

// Close closes the Qdrant client connection.
func (s *Store) Close() error {
	if s.client != nil {
		return s.client.Close()
	}
	return nil
}

func (s *Store) upsertWithRetry(ctx context.Context, points []*qdrant.PointStruct) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 500 * time.Millisecond
	b.MaxInterval = 10 * time.Second
	b.MaxElapsedTime = 30 * time.Second

	return backoff.Retry(func() error {
		_, err := s.client.Upsert(ctx, &qdrant.UpsertPoints{
			CollectionName: CollectionName,
			Points:         points,
		})
		return err
	}, backoff.WithContext(b, ctx))
}

// UpsertChunks writes a document's chunk set in batches of 100.
// Every chunk must carry a vector of exactly VectorDimension.
func (s *Store) UpsertChunks(ctx context.Context, chunks []*Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	for i, chunk := range chunks {
		if len(chunk.Embedding) != VectorDimension {
			return fmt.Errorf("%w: chunk %d has %d dimensions, expected %d",
				ErrDimensionMismatch, i, len(chunk.Embedding), VectorDimension)
		}
	}

	batchSize := 100
	for i := 0; i < len(chunks); i += batchSize {
		end := min(i+batchSize, len(chunks))

		batch := chunks[i:end]
		points := make([]*qdrant.PointStruct, len(batch))
		for j, chunk := range batch {
			points[j] = &qdrant.PointStruct{
				Id:      qdrant.NewIDUUID(chunk.ID),
				Vectors: qdrant.NewVectors(chunk.Embedding...),
				Payload: qdrant.NewValueMap(map[string]any{
					"tenant_id":   chunk.TenantID,
					"document_id": chunk.DocumentID,
					"ordinal":     chunk.Ordinal,
					"text":        chunk.Text,
					"section":     chunk.Section,
				}),
			}
		}

		if err := s.upsertWithRetry(ctx, points); err != nil {
			return fmt.Errorf("upsert batch %d-%d: %w", i, end, err)
		}
	}

	return nil
}

// DeleteDocument removes every chunk of the given document. Used to roll
// back a failed ingestion and to drop superseded documents from query
// scope.
func (s *Store) DeleteDocument(ctx context.Context, documentID string) error {
	_, err := s.client.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: CollectionName,
		Points: qdrant.NewPointsSelectorFilter(&qdrant.Filter{
			Must: []*qdrant.Condition{
				qdrant.NewMatch("document_id", documentID),
			},
		}),
	})
	if err != nil {
		return fmt.Errorf("delete chunks for document %s: %w", documentID, err)
	}
	return nil
}

// Search returns the top chunks of one tenant's document by vector
// similarity, ordered by score descending with ascending ordinal breaking
// ties. The tenant filter is part of the query itself; a result that still
// mismatches the tenant is excluded and logged as a defect.
func (s *Store) Search(ctx context.Context, tenantID, documentID string, vector []float32, limit int) ([]*ScoredChunk, error) {
	if len(vector) != VectorDimension {
		return nil, fmt.Errorf("%w: query has %d dimensions, expected %d",
			ErrDimensionMismatch, len(vector), VectorDimension)
	}

	filter := &qdrant.Filter{
		Must: []*qdrant.Condition{
			qdrant.NewMatch("tenant_id", tenantID),
			qdrant.NewMatch("document_id", documentID),
		},
	}

	results, err := s.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: CollectionName,
		Query:          qdrant.NewQuery(vector...),
		Filter:         filter,
		Limit:          qdrant.PtrOf(uint64(limit)),
		WithPayload:    qdrant.NewWithPayload(true),
		WithVectors:    qdrant.NewWithVectors(false),
	})
	if err != nil {
		return nil, fmt.Errorf("search chunks: %w", err)
	}

	scored := s.collectScored(results, tenantID)
	SortScored(scored)
	return scored, nil
}

// collectScored maps raw query results to scored chunks. The tenant
// filter already ran server-side; a result that still names a different
// tenant is excluded here and logged as a defect.
func (s *Store) collectScored(results []*qdrant.ScoredPoint, tenantID string) []*ScoredChunk {
	scored := make([]*ScoredChunk, 0, len(results))
	for _, result := range results {
		payload := result.Payload

		chunk := &Chunk{
			ID:         result.Id.GetUuid(),
			TenantID:   payload["tenant_id"].GetStringValue(),
			DocumentID: payload["document_id"].GetStringValue(),
			Ordinal:    int(payload["ordinal"].GetIntegerValue()),
			Text:       payload["text"].GetStringValue(),
			Section:    payload["section"].GetStringValue(),
		}

		if chunk.TenantID != tenantID {
			s.logger.Error("excluding chunk from foreign tenant",
				"error", ErrTenantIsolation,
				"chunk_id", chunk.ID,
				"chunk_tenant", chunk.TenantID,
				"query_tenant", tenantID,
			)
			continue
		}

		scored = append(scored, &ScoredChunk{
			Chunk: chunk,
			Score: float64(result.Score),
		})
	}
	return scored
}

// SortScored orders chunks by similarity descending, then by ascending
// ordinal so repeated identical queries return citations in the same
// order.
func SortScored(chunks []*ScoredChunk) {
	sort.SliceStable(chunks, func(i, j int) bool {
		if chunks[i].Score != chunks[j].Score {
			return chunks[i].Score > chunks[j].Score
		}
		return chunks[i].Chunk.Ordinal < chunks[j].Chunk.Ordinal
	})
}

// CollectionInfo contains collection statistics.
type CollectionInfo struct {
	PointsCount uint64
}

// GetCollectionInfo returns index-wide statistics, used by the health
// surface.
func (s *Store) GetCollectionInfo(ctx context.Context) (*CollectionInfo, error) {
	collection, err := s.client.GetCollectionInfo(ctx, CollectionName)
	if err != nil {
		return nil, fmt.Errorf("get collection: %w", err)
	}
	return &CollectionInfo{PointsCount: collection.GetPointsCount()}, nil
}
