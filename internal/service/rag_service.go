package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"ragqa/internal/chunker"
	"ragqa/internal/domain"
)

const (
	// DefaultTopK is used when a caller passes a non-positive top-k.
	DefaultTopK = 5

	// NoRelevantInformation is the answer returned when retrieval finds nothing.
	NoRelevantInformation = "no relevant information found"

	// ExcerptLength is the number of characters kept in a source excerpt.
	ExcerptLength = 200

	// UnknownType tags documents ingested without a type.
	UnknownType = "unknown"
)

// QueryOptions controls Answer. The zero value asks for five chunks and lists sources.
type QueryOptions struct {
	TopK        int
	HideSources bool
}

// RAGService coordinates chunking, embedding, indexing and answer generation.
// It keeps no state between calls beyond its collaborators.
type RAGService struct {
	chunker   domain.Chunker
	embedder  domain.Embedder
	index     domain.VectorIndex
	generator domain.Generator
	logger    *zap.Logger
}

// NewRAGService wires the orchestrator. A nil chunker uses the default boundary
// chunker, a nil logger discards logs and a nil generator makes every answer
// report that generation is unavailable.
func NewRAGService(c domain.Chunker, embedder domain.Embedder, index domain.VectorIndex, generator domain.Generator, logger *zap.Logger) *RAGService {
	if c == nil {
		c = chunker.NewBoundaryChunker(chunker.DefaultChunkSize, chunker.DefaultOverlap, "")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RAGService{chunker: c, embedder: embedder, index: index, generator: generator, logger: logger}
}

// BuildChunks splits every document and assigns deterministic ids and metadata.
// Missing sources become document_{i} and missing types become "unknown".
func (s *RAGService) BuildChunks(docs []domain.Document) []domain.Chunk {
	var out []domain.Chunk
	for i, d := range docs {
		source := strings.TrimSpace(d.Source)
		if source == "" {
			source = fmt.Sprintf("document_%d", i)
		}
		docType := strings.TrimSpace(d.Type)
		if docType == "" {
			docType = UnknownType
		}
		for j, text := range s.chunker.Split(d.Content) {
			out = append(out, domain.Chunk{
				ID:   ChunkID(source, j),
				Text: text,
				Metadata: domain.Metadata{
					Source:     source,
					Type:       docType,
					ChunkIndex: j,
					CharCount:  utf8.RuneCountInString(text),
				},
			})
		}
	}
	return out
}

// ChunkID is the index id of the j-th chunk of source.
func ChunkID(source string, j int) string {
	return fmt.Sprintf("%s_chunk_%d", source, j)
}

// Ingest chunks all documents, embeds every chunk in one call and upserts them in one call.
// It returns the number of chunks written; zero chunks means no capability is called.
func (s *RAGService) Ingest(ctx context.Context, docs []domain.Document) (int, error) {
	log := s.logger.With(zap.String("op", "ingest"), zap.String("op_id", uuid.NewString()))
	start := time.Now()

	chunks := s.BuildChunks(docs)
	if ce := log.Check(zap.DebugLevel, "chunked documents"); ce != nil {
		perSource := make(map[string]int)
		for _, c := range chunks {
			perSource[c.Metadata.Source]++
		}
		ce.Write(zap.Any("chunks_per_source", perSource))
	}
	if len(chunks) == 0 {
		log.Info("nothing to ingest", zap.Int("documents", len(docs)))
		return 0, nil
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}
	vectors, err := s.embedder.Embed(ctx, texts)
	if err != nil {
		return 0, fmt.Errorf("embed chunks: %w", err)
	}
	if len(vectors) != len(chunks) {
		return 0, fmt.Errorf("embed chunks: %w: got %d vectors for %d chunks",
			domain.ErrEmbeddingMismatch, len(vectors), len(chunks))
	}

	entries := make([]domain.IndexedEntry, len(chunks))
	for i, c := range chunks {
		entries[i] = domain.IndexedEntry{ID: c.ID, Vector: vectors[i], Text: c.Text, Metadata: c.Metadata}
	}
	if err := s.index.Upsert(ctx, entries); err != nil {
		return 0, fmt.Errorf("upsert: %w", err)
	}

	log.Info("ingested documents",
		zap.Int("documents", len(docs)),
		zap.Int("chunks", len(chunks)),
		zap.String("embedder", s.embedder.Name()),
		zap.Duration("took", time.Since(start)))
	return len(chunks), nil
}

// Search embeds question and returns the topK nearest chunks in index order.
func (s *RAGService) Search(ctx context.Context, question string, topK int) ([]domain.RetrievalResult, error) {
	if strings.TrimSpace(question) == "" {
		return nil, fmt.Errorf("%w: empty question", domain.ErrInvalidInput)
	}
	if topK <= 0 {
		topK = DefaultTopK
	}
	vectors, err := s.embedder.Embed(ctx, []string{question})
	if err != nil {
		return nil, fmt.Errorf("embed question: %w", err)
	}
	if len(vectors) != 1 {
		return nil, fmt.Errorf("embed question: %w: got %d vectors for 1 text", domain.ErrEmbeddingMismatch, len(vectors))
	}
	results, err := s.index.Query(ctx, vectors[0], topK)
	if err != nil {
		return nil, fmt.Errorf("query index: %w", err)
	}
	return results, nil
}

// Answer retrieves context for question and asks the generator for a grounded answer.
// A generation failure is reported inside the answer text; retrieval failures are returned.
func (s *RAGService) Answer(ctx context.Context, question string, opts QueryOptions) (domain.QueryAnswer, error) {
	log := s.logger.With(zap.String("op", "answer"), zap.String("op_id", uuid.NewString()))
	topK := opts.TopK
	if topK <= 0 {
		topK = DefaultTopK
	}

	results, err := s.Search(ctx, question, topK)
	if err != nil {
		return domain.QueryAnswer{}, err
	}
	log.Info("retrieved chunks",
		zap.Int("question_len", utf8.RuneCountInString(question)),
		zap.Int("top_k", topK),
		zap.Int("hits", len(results)))

	if len(results) == 0 {
		return domain.QueryAnswer{
			Answer:         NoRelevantInformation,
			Sources:        []domain.SourceRef{},
			RelevantChunks: []domain.RetrievalResult{},
		}, nil
	}

	answer, err := s.generate(ctx, BuildPrompt(question, results))
	if err != nil {
		log.Warn("answer generation failed", zap.Error(err))
		answer = "answer generation failed: " + err.Error()
	}

	sources := []domain.SourceRef{}
	if !opts.HideSources {
		sources = SourceRefs(results)
	}
	return domain.QueryAnswer{Answer: answer, Sources: sources, RelevantChunks: results}, nil
}

func (s *RAGService) generate(ctx context.Context, prompt string) (string, error) {
	if s.generator == nil {
		return "", domain.ErrGeneratorUnavailable
	}
	return s.generator.Generate(ctx, prompt)
}

// Stats recomputes collection statistics from the full index listing.
func (s *RAGService) Stats(ctx context.Context) (domain.CollectionStats, error) {
	metas, err := s.index.List(ctx)
	if err != nil {
		return domain.CollectionStats{}, fmt.Errorf("list index: %w", err)
	}
	stats := domain.CollectionStats{
		TotalChunks:   len(metas),
		DocumentTypes: make(map[string]int),
		Sources:       []string{},
	}
	seen := make(map[string]struct{})
	for _, m := range metas {
		if _, ok := seen[m.Source]; !ok {
			seen[m.Source] = struct{}{}
			stats.Sources = append(stats.Sources, m.Source)
		}
		t := m.Type
		if t == "" {
			t = UnknownType
		}
		stats.DocumentTypes[t]++
	}
	sort.Strings(stats.Sources)
	stats.UniqueSources = len(stats.Sources)
	return stats, nil
}

// SourceRefs converts retrieval results into citations with similarity 1 - distance.
func SourceRefs(results []domain.RetrievalResult) []domain.SourceRef {
	out := make([]domain.SourceRef, len(results))
	for i, r := range results {
		out[i] = domain.SourceRef{
			Source:     r.Metadata.Source,
			Excerpt:    Excerpt(r.Content),
			Similarity: 1 - r.Distance,
		}
	}
	return out
}

// Excerpt returns the first ExcerptLength characters of text, with "..."
// appended only when something was cut off.
func Excerpt(text string) string {
	if utf8.RuneCountInString(text) <= ExcerptLength {
		return text
	}
	return string([]rune(text)[:ExcerptLength]) + "..."
}
