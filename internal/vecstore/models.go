package vecstore

// Chunk is a retrievable passage with its embedding and tenant scope.
// Chunks are append-only: replacing content means ingesting a new document.
type Chunk struct {
	ID         string // UUID point id
	TenantID   string // Denormalized from the parent document
	DocumentID string
	Ordinal    int    // Position in document (0, 1, 2...), gapless
	Text       string
	Section    string // Optional detected section header
	Embedding  []float32
}

// ScoredChunk pairs a retrieved chunk with its similarity score.
type ScoredChunk struct {
	Chunk *Chunk
	Score float64
}

// CollectionName is the single Qdrant collection holding every tenant's
// chunks. Isolation is enforced by payload filtering, never by caller
// discipline.
const CollectionName = "bylaw_chunks"

// VectorDimension matches llm.Dimension for text-embedding-3-small.
const VectorDimension = 1536
