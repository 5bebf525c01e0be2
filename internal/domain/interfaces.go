package domain

import "context"

// Document is the input unit for ingestion. It is consumed by Ingest and not retained.
type Document struct {
	Content string
	Source  string
	Type    string
}

// Metadata is stored alongside every indexed chunk.
type Metadata struct {
	Source     string `json:"source"`
	Type       string `json:"type"`
	ChunkIndex int    `json:"chunk_index"`
	CharCount  int    `json:"char_count"`
}

// Chunk is a contiguous slice of a document's text used as the unit of retrieval.
type Chunk struct {
	ID       string
	Text     string
	Metadata Metadata
}

// IndexedEntry is what a VectorIndex persists for one chunk id.
type IndexedEntry struct {
	ID       string
	Vector   []float64
	Text     string
	Metadata Metadata
}

// RetrievalResult is a ranked chunk returned by a VectorIndex query.
// Distance is a cosine distance in [0,1]; smaller is more similar.
type RetrievalResult struct {
	Content  string   `json:"content"`
	Metadata Metadata `json:"metadata"`
	Distance float64  `json:"distance"`
}

// SourceRef is the citation rendered for one retrieved chunk.
type SourceRef struct {
	Source     string  `json:"source"`
	Excerpt    string  `json:"content_excerpt"`
	Similarity float64 `json:"similarity"`
}

// QueryAnswer is the result of answering one question.
type QueryAnswer struct {
	Answer         string            `json:"answer"`
	Sources        []SourceRef       `json:"sources"`
	RelevantChunks []RetrievalResult `json:"relevant_chunks"`
}

// CollectionStats is derived from the index contents on every call.
type CollectionStats struct {
	TotalChunks   int            `json:"total_chunks"`
	UniqueSources int            `json:"unique_sources"`
	DocumentTypes map[string]int `json:"document_types"`
	Sources       []string       `json:"sources"`
}

// Chunker splits raw text into ordered, non-empty chunk strings.
type Chunker interface {
	Split(text string) []string
}

// Embedder converts texts into fixed-length vectors, one per input, order preserved.
type Embedder interface {
	Name() string
	Embed(ctx context.Context, texts []string) ([][]float64, error)
}

// VectorIndex persists indexed entries and answers nearest-neighbour queries.
// Upsert overwrites entries that share an id.
type VectorIndex interface {
	Upsert(ctx context.Context, entries []IndexedEntry) error
	Query(ctx context.Context, vector []float64, topK int) ([]RetrievalResult, error)
	List(ctx context.Context) ([]Metadata, error)
}

// Generator turns a prompt into free text. It may fail transiently.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}
