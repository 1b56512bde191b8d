package local

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ragstore/internal/domain"
	"ragstore/internal/vectorstore"
)

type stubEmbedder struct {
	vectors map[string][]float64
}

func (s *stubEmbedder) Name() string   { return "stub" }
func (s *stubEmbedder) Dimension() int { return 3 }

func (s *stubEmbedder) Embed(ctx context.Context, text string) ([]float64, error) {
	if v, ok := s.vectors[text]; ok {
		return v, nil
	}
	return []float64{1, 1, 1}, nil
}

func (s *stubEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float64, error) {
	out := make([][]float64, len(texts))
	for i, t := range texts {
		v, err := s.Embed(ctx, t)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func newTestStore(t *testing.T, emb domain.Embedder) *Store {
	t.Helper()
	s, err := Open(t.TempDir(), "test", emb)
	require.NoError(t, err)
	return s
}

func TestAddAndGetDocuments(t *testing.T) {
	s := newTestStore(t, &stubEmbedder{})
	ctx := context.Background()

	docs := []domain.Passage{
		{ID: "a", Content: "first", Metadata: domain.Metadata{"source": "text input"}},
		{ID: "b", Content: "second", Metadata: domain.Metadata{"source": "doc.pdf"}},
	}
	require.NoError(t, s.AddDocuments(ctx, docs))
	assert.Equal(t, 2, s.Count())

	all, err := s.GetDocuments(ctx, nil)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "a", all[0].ID)
	assert.Equal(t, "first", all[0].Content)
	assert.Equal(t, "text input", all[0].Metadata["source"])

	some, err := s.GetDocuments(ctx, []string{"b", "missing"})
	require.NoError(t, err)
	require.Len(t, some, 1)
	assert.Equal(t, "b", some[0].ID)
}

func TestPersistenceAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	emb := &stubEmbedder{}
	ctx := context.Background()

	s, err := Open(dir, "test", emb)
	require.NoError(t, err)
	require.NoError(t, s.AddDocuments(ctx, []domain.Passage{
		{ID: "a", Content: "hello", Metadata: domain.Metadata{"n": 1.0}},
		{ID: "b", Content: "world", Metadata: nil},
	}))

	reopened, err := Open(dir, "test", emb)
	require.NoError(t, err)
	assert.Equal(t, 2, reopened.Count())

	all, err := reopened.GetDocuments(ctx, nil)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "hello", all[0].Content)
	assert.Equal(t, 1.0, all[0].Metadata["n"])
}

func TestSimilaritySearchOrdering(t *testing.T) {
	emb := &stubEmbedder{vectors: map[string][]float64{
		"cats":      {1, 0, 0},
		"dogs":      {0.9, 0.1, 0},
		"airplanes": {0, 0, 1},
		"query":     {1, 0.05, 0},
	}}
	s := newTestStore(t, emb)
	ctx := context.Background()

	require.NoError(t, s.AddDocuments(ctx, []domain.Passage{
		{ID: "1", Content: "airplanes"},
		{ID: "2", Content: "cats"},
		{ID: "3", Content: "dogs"},
	}))

	got, err := s.SimilaritySearch(ctx, "query", 2)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "cats", got[0].Content)
	assert.Equal(t, "dogs", got[1].Content)
}

func TestSimilaritySearchClampsK(t *testing.T) {
	s := newTestStore(t, &stubEmbedder{})
	ctx := context.Background()

	require.NoError(t, s.AddDocuments(ctx, []domain.Passage{
		{ID: "1", Content: "only"},
	}))

	got, err := s.SimilaritySearch(ctx, "anything", 10)
	require.NoError(t, err)
	assert.Len(t, got, 1)

	empty := newTestStore(t, &stubEmbedder{})
	got, err = empty.SimilaritySearch(ctx, "anything", 5)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestUpdateDocument(t *testing.T) {
	s := newTestStore(t, &stubEmbedder{})
	ctx := context.Background()

	require.NoError(t, s.AddDocuments(ctx, []domain.Passage{
		{ID: "a", Content: "old", Metadata: domain.Metadata{"v": 1.0}},
	}))
	require.NoError(t, s.UpdateDocument(ctx, "a", "new", domain.Metadata{"v": 2.0}))

	got, err := s.GetDocuments(ctx, []string{"a"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "new", got[0].Content)
	assert.Equal(t, 2.0, got[0].Metadata["v"])

	err = s.UpdateDocument(ctx, "ghost", "content", nil)
	assert.ErrorIs(t, err, vectorstore.ErrNotFound)
	assert.Equal(t, 1, s.Count())
}

func TestDeleteDocuments(t *testing.T) {
	s := newTestStore(t, &stubEmbedder{})
	ctx := context.Background()

	require.NoError(t, s.AddDocuments(ctx, []domain.Passage{
		{ID: "a", Content: "one"},
		{ID: "b", Content: "two"},
		{ID: "c", Content: "three"},
	}))

	require.NoError(t, s.DeleteDocuments(ctx, []string{"b", "missing"}))
	assert.Equal(t, 2, s.Count())

	all, err := s.GetDocuments(ctx, nil)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "a", all[0].ID)
	assert.Equal(t, "c", all[1].ID)

	require.NoError(t, s.DeleteDocuments(ctx, []string{"nope"}))
	assert.Equal(t, 2, s.Count())
}
