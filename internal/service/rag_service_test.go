package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"ragqa/internal/chunker"
	"ragqa/internal/domain"
	"ragqa/internal/embedding/hashing"
	"ragqa/internal/vectorstore/memory"
)

// countingEmbedder returns fixed vectors per text and records every call.
type countingEmbedder struct {
	vectors  map[string][]float64
	fallback []float64
	calls    int
	batches  [][]string
	err      error
	short    bool
}

func (e *countingEmbedder) Name() string { return "fake" }

func (e *countingEmbedder) Embed(_ context.Context, texts []string) ([][]float64, error) {
	e.calls++
	e.batches = append(e.batches, texts)
	if e.err != nil {
		return nil, e.err
	}
	out := make([][]float64, 0, len(texts))
	for _, t := range texts {
		if v, ok := e.vectors[t]; ok {
			out = append(out, v)
			continue
		}
		out = append(out, e.fallback)
	}
	if e.short {
		out = out[:len(out)-1]
	}
	return out, nil
}

// recordingIndex wraps the in-memory index and counts calls.
type recordingIndex struct {
	*memory.Storage
	upserts  int
	queries  int
	lastTopK int
	entries  [][]domain.IndexedEntry
	queryErr error
	results  []domain.RetrievalResult
}

func newRecordingIndex() *recordingIndex { return &recordingIndex{Storage: memory.NewStorage()} }

func (r *recordingIndex) Upsert(ctx context.Context, entries []domain.IndexedEntry) error {
	r.upserts++
	r.entries = append(r.entries, entries)
	return r.Storage.Upsert(ctx, entries)
}

func (r *recordingIndex) Query(ctx context.Context, vector []float64, topK int) ([]domain.RetrievalResult, error) {
	r.queries++
	r.lastTopK = topK
	if r.queryErr != nil {
		return nil, r.queryErr
	}
	if r.results != nil {
		return r.results, nil
	}
	return r.Storage.Query(ctx, vector, topK)
}

type fakeGenerator struct {
	reply   string
	err     error
	calls   int
	prompts []string
}

func (g *fakeGenerator) Generate(_ context.Context, prompt string) (string, error) {
	g.calls++
	g.prompts = append(g.prompts, prompt)
	return g.reply, g.err
}

func tinyChunker() domain.Chunker { return chunker.NewBoundaryChunker(2, 0, "") }

func TestIngest_EndToEnd(t *testing.T) {
	emb := &countingEmbedder{vectors: map[string][]float64{
		"A。": {1, 0, 0},
		"B。": {0, 1, 0},
		"C。": {0, 0, 1},
		"q":  {0.1, 1, 0},
	}}
	idx := newRecordingIndex()
	svc := NewRAGService(tinyChunker(), emb, idx, &fakeGenerator{}, zaptest.NewLogger(t))
	ctx := context.Background()

	n, err := svc.Ingest(ctx, []domain.Document{{Content: "A。B。C。", Source: "doc1"}})
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Equal(t, 1, emb.calls)
	assert.Equal(t, 1, idx.upserts)

	require.Len(t, idx.entries[0], 3)
	for j, e := range idx.entries[0] {
		assert.Equal(t, ChunkID("doc1", j), e.ID)
		assert.Equal(t, "doc1", e.Metadata.Source)
		assert.Equal(t, UnknownType, e.Metadata.Type)
		assert.Equal(t, j, e.Metadata.ChunkIndex)
		assert.Equal(t, 2, e.Metadata.CharCount)
	}
	assert.Equal(t, []string{"A。", "B。", "C。"}, emb.batches[0])

	res, err := svc.Search(ctx, "q", 1)
	require.NoError(t, err)
	require.Len(t, res, 1)
	assert.Equal(t, "B。", res[0].Content)
	assert.Equal(t, 1, res[0].Metadata.ChunkIndex)
}

func TestIngest_BatchesAcrossDocuments(t *testing.T) {
	emb := &countingEmbedder{fallback: []float64{1, 1}}
	idx := newRecordingIndex()
	svc := NewRAGService(tinyChunker(), emb, idx, nil, nil)

	n, err := svc.Ingest(context.Background(), []domain.Document{
		{Content: "A。B。", Source: "x", Type: "note"},
		{Content: "   "},
		{Content: "C。"},
	})
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Equal(t, 1, emb.calls)
	assert.Equal(t, 1, idx.upserts)

	ids := make([]string, 0, 3)
	for _, e := range idx.entries[0] {
		ids = append(ids, e.ID)
	}
	assert.Equal(t, []string{"x_chunk_0", "x_chunk_1", "document_2_chunk_0"}, ids)
	assert.Equal(t, "note", idx.entries[0][0].Metadata.Type)
}

func TestIngest_NothingToIngestMakesNoCalls(t *testing.T) {
	for name, docs := range map[string][]domain.Document{
		"no documents":  nil,
		"empty content": {{Content: ""}},
		"whitespace":    {{Content: " \n\t "}},
	} {
		t.Run(name, func(t *testing.T) {
			emb := &countingEmbedder{}
			idx := newRecordingIndex()
			svc := NewRAGService(nil, emb, idx, nil, zaptest.NewLogger(t))

			n, err := svc.Ingest(context.Background(), docs)
			require.NoError(t, err)
			assert.Zero(t, n)
			assert.Zero(t, emb.calls)
			assert.Zero(t, idx.upserts)
		})
	}
}

func TestIngest_DeterministicIDs(t *testing.T) {
	idx := newRecordingIndex()
	svc := NewRAGService(tinyChunker(), hashing.NewEmbedder(32), idx, nil, nil)
	doc := domain.Document{Content: "X。Y。Z。", Source: "same"}

	_, err := svc.Ingest(context.Background(), []domain.Document{doc})
	require.NoError(t, err)
	_, err = svc.Ingest(context.Background(), []domain.Document{doc})
	require.NoError(t, err)

	require.Len(t, idx.entries, 2)
	for i := range idx.entries[0] {
		assert.Equal(t, idx.entries[0][i].ID, idx.entries[1][i].ID)
	}
	assert.Equal(t, 3, idx.Len(), "re-ingestion overwrites")
}

func TestIngest_Errors(t *testing.T) {
	boom := errors.New("boom")

	svc := NewRAGService(tinyChunker(), &countingEmbedder{err: boom}, newRecordingIndex(), nil, nil)
	_, err := svc.Ingest(context.Background(), []domain.Document{{Content: "A。"}})
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "embed chunks")

	svc = NewRAGService(tinyChunker(), &countingEmbedder{fallback: []float64{1}, short: true}, newRecordingIndex(), nil, nil)
	_, err = svc.Ingest(context.Background(), []domain.Document{{Content: "A。B。"}})
	assert.ErrorIs(t, err, domain.ErrEmbeddingMismatch)

	idx := newRecordingIndex()
	require.NoError(t, idx.Storage.Upsert(context.Background(), []domain.IndexedEntry{{ID: "z", Vector: []float64{1, 0, 0}}}))
	svc = NewRAGService(tinyChunker(), &countingEmbedder{fallback: []float64{1}}, idx, nil, nil)
	_, err = svc.Ingest(context.Background(), []domain.Document{{Content: "A。"}})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	assert.Contains(t, err.Error(), "upsert")
}

func TestAnswer_EmptyIndexShortCircuits(t *testing.T) {
	gen := &fakeGenerator{reply: "should not be used"}
	svc := NewRAGService(nil, &countingEmbedder{fallback: []float64{1, 0}}, newRecordingIndex(), gen, zaptest.NewLogger(t))

	ans, err := svc.Answer(context.Background(), "anything?", QueryOptions{})
	require.NoError(t, err)
	assert.Equal(t, NoRelevantInformation, ans.Answer)
	assert.Empty(t, ans.Sources)
	assert.NotNil(t, ans.Sources)
	assert.Empty(t, ans.RelevantChunks)
	assert.Zero(t, gen.calls)
}

func rankedIndex() *recordingIndex {
	idx := newRecordingIndex()
	idx.results = []domain.RetrievalResult{
		{Content: "Supervised learning uses labels.", Metadata: domain.Metadata{Source: "ml-intro", Type: "教材"}, Distance: 0.2},
		{Content: strings.Repeat("あ", 250), Metadata: domain.Metadata{Source: "long", Type: "教材", ChunkIndex: 4}, Distance: 0.5},
	}
	return idx
}

func TestAnswer_BuildsPromptAndSources(t *testing.T) {
	gen := &fakeGenerator{reply: "Labels guide training [Source: ml-intro]."}
	idx := rankedIndex()
	svc := NewRAGService(nil, &countingEmbedder{fallback: []float64{1}}, idx, gen, zaptest.NewLogger(t))

	ans, err := svc.Answer(context.Background(), "What is supervised learning?", QueryOptions{TopK: 2})
	require.NoError(t, err)
	assert.Equal(t, 2, idx.lastTopK)
	assert.Equal(t, 1, gen.calls)
	assert.Equal(t, "Labels guide training [Source: ml-intro].", ans.Answer)

	prompt := gen.prompts[0]
	assert.Contains(t, prompt, "[Source: ml-intro]\nSupervised learning uses labels.\n\n[Source: long]\n")
	assert.Contains(t, prompt, "Question: What is supervised learning?")
	assert.Contains(t, prompt, "cannot be answered from the provided information")
	assert.Less(t, strings.Index(prompt, "ml-intro"), strings.Index(prompt, "[Source: long]"))

	require.Len(t, ans.Sources, 2)
	assert.Equal(t, "ml-intro", ans.Sources[0].Source)
	assert.InDelta(t, 0.8, ans.Sources[0].Similarity, 1e-12)
	assert.Equal(t, "Supervised learning uses labels.", ans.Sources[0].Excerpt)
	assert.Equal(t, strings.Repeat("あ", 200)+"...", ans.Sources[1].Excerpt)
	assert.Equal(t, idx.results, ans.RelevantChunks)
}

func TestAnswer_HideSourcesKeepsChunks(t *testing.T) {
	idx := rankedIndex()
	svc := NewRAGService(nil, &countingEmbedder{fallback: []float64{1}}, idx, &fakeGenerator{reply: "ok"}, nil)

	ans, err := svc.Answer(context.Background(), "q", QueryOptions{HideSources: true})
	require.NoError(t, err)
	assert.Equal(t, DefaultTopK, idx.lastTopK)
	assert.Empty(t, ans.Sources)
	assert.Len(t, ans.RelevantChunks, 2)
	assert.Equal(t, strings.Repeat("あ", 250), ans.RelevantChunks[1].Content)
}

func TestAnswer_GenerationFailureBecomesAnswer(t *testing.T) {
	gen := &fakeGenerator{err: errors.New("quota exceeded")}
	svc := NewRAGService(nil, &countingEmbedder{fallback: []float64{1}}, rankedIndex(), gen, zaptest.NewLogger(t))

	ans, err := svc.Answer(context.Background(), "q", QueryOptions{})
	require.NoError(t, err)
	assert.Equal(t, "answer generation failed: quota exceeded", ans.Answer)
	assert.Len(t, ans.Sources, 2)

	svc = NewRAGService(nil, &countingEmbedder{fallback: []float64{1}}, rankedIndex(), nil, nil)
	ans, err = svc.Answer(context.Background(), "q", QueryOptions{})
	require.NoError(t, err)
	assert.Equal(t, "answer generation failed: generator unavailable", ans.Answer)
}

func TestAnswer_RetrievalErrorsPropagate(t *testing.T) {
	gen := &fakeGenerator{}
	idx := newRecordingIndex()
	idx.queryErr = errors.New("index down")
	svc := NewRAGService(nil, &countingEmbedder{fallback: []float64{1}}, idx, gen, nil)

	_, err := svc.Answer(context.Background(), "q", QueryOptions{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "query index: index down")
	assert.Zero(t, gen.calls)

	_, err = svc.Answer(context.Background(), "   ", QueryOptions{})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestStats(t *testing.T) {
	svc := NewRAGService(tinyChunker(), hashing.NewEmbedder(16), newRecordingIndex(), nil, nil)
	ctx := context.Background()

	empty, err := svc.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.CollectionStats{DocumentTypes: map[string]int{}, Sources: []string{}}, empty)

	_, err = svc.Ingest(ctx, []domain.Document{
		{Content: "A。B。C。", Source: "second", Type: "A"},
		{Content: "D。E。", Source: "first", Type: "B"},
	})
	require.NoError(t, err)

	stats, err := svc.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 5, stats.TotalChunks)
	assert.Equal(t, 2, stats.UniqueSources)
	assert.Equal(t, map[string]int{"A": 3, "B": 2}, stats.DocumentTypes)
	assert.Equal(t, []string{"first", "second"}, stats.Sources)
}

func TestExcerpt(t *testing.T) {
	assert.Equal(t, strings.Repeat("x", 200)+"...", Excerpt(strings.Repeat("x", 250)))
	assert.Equal(t, strings.Repeat("x", 50), Excerpt(strings.Repeat("x", 50)))
	assert.Equal(t, strings.Repeat("x", 200), Excerpt(strings.Repeat("x", 200)))
	assert.Equal(t, strings.Repeat("語", 200)+"...", Excerpt(strings.Repeat("語", 201)))
}

func TestBuildContext(t *testing.T) {
	got := BuildContext([]domain.RetrievalResult{
		{Content: "one", Metadata: domain.Metadata{Source: "a"}},
		{Content: "two", Metadata: domain.Metadata{Source: "b"}},
	})
	assert.Equal(t, "[Source: a]\none\n\n[Source: b]\ntwo", got)
}
