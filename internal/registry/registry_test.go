package registry

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ragstore/internal/domain"
)

type stubEmbedder struct{}

func (stubEmbedder) Name() string   { return "stub" }
func (stubEmbedder) Dimension() int { return 2 }

func (stubEmbedder) Embed(ctx context.Context, text string) ([]float64, error) {
	return []float64{1, 0}, nil
}

func (stubEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float64, error) {
	out := make([][]float64, len(texts))
	for i := range texts {
		out[i] = []float64{1, 0}
	}
	return out, nil
}

func newTestRegistry(t *testing.T) *Registry {
	t.Helper()
	r, err := New(t.TempDir(), stubEmbedder{})
	require.NoError(t, err)
	return r
}

func TestValidateIdentifier(t *testing.T) {
	valid := []string{"tina", "user-7", "a.b", "UPPER_case", "42"}
	for _, id := range valid {
		assert.NoError(t, ValidateIdentifier(id), id)
	}
	invalid := []string{"", ".", "..", "a/b", `a\b`, "a\x00b"}
	for _, id := range invalid {
		assert.ErrorIs(t, ValidateIdentifier(id), domain.ErrInvalidIdentifier, "%q", id)
	}
}

func TestResolveCreatesOnFirstUse(t *testing.T) {
	r := newTestRegistry(t)

	idx, err := r.Resolve("tina")
	require.NoError(t, err)
	require.NotNil(t, idx)

	info, err := os.Stat(r.Path("tina"))
	require.NoError(t, err)
	assert.True(t, info.IsDir())
	assert.Equal(t, "tina"+StoreSuffix, filepath.Base(r.Path("tina")))

	again, err := r.Resolve("tina")
	require.NoError(t, err)
	assert.Same(t, idx, again)
}

func TestResolveRejectsInvalidIdentifier(t *testing.T) {
	r := newTestRegistry(t)
	_, err := r.Resolve("../escape")
	assert.ErrorIs(t, err, domain.ErrInvalidIdentifier)
}

func TestConcurrentResolveSingleHandle(t *testing.T) {
	r := newTestRegistry(t)

	const n = 16
	handles := make([]any, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			idx, err := r.Resolve("shared")
			assert.NoError(t, err)
			handles[i] = idx
		}(i)
	}
	wg.Wait()

	for i := 1; i < n; i++ {
		assert.Same(t, handles[0], handles[i])
	}
}

func TestInvalidateReopensFromDisk(t *testing.T) {
	r := newTestRegistry(t)

	idx, err := r.Resolve("tina")
	require.NoError(t, err)
	require.NoError(t, idx.AddDocuments(context.Background(), []domain.Passage{
		{ID: "1", Content: "kept"},
	}))

	r.Invalidate("tina")

	reopened, err := r.Resolve("tina")
	require.NoError(t, err)
	assert.NotSame(t, idx, reopened)

	docs, err := reopened.GetDocuments(context.Background(), nil)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "kept", docs[0].Content)
}

func TestListEnumeratesPersistedStores(t *testing.T) {
	r := newTestRegistry(t)

	names, err := r.List()
	require.NoError(t, err)
	assert.Empty(t, names)

	_, err = r.Resolve("alpha")
	require.NoError(t, err)
	_, err = r.Resolve("beta")
	require.NoError(t, err)

	names, err = r.List()
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"alpha", "beta"}, names)
}

func TestListSkipsForeignDirectories(t *testing.T) {
	dir := t.TempDir()
	r, err := New(dir, stubEmbedder{})
	require.NoError(t, err)

	require.NoError(t, os.MkdirAll(filepath.Join(dir, "not_a_store"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "stray.txt"), []byte("x"), 0o644))
	_, err = r.Resolve("real")
	require.NoError(t, err)

	names, err := r.List()
	require.NoError(t, err)
	assert.Equal(t, []string{"real"}, names)
}

func TestDropRemovesStore(t *testing.T) {
	r := newTestRegistry(t)

	idx, err := r.Resolve("gone")
	require.NoError(t, err)
	require.NoError(t, idx.AddDocuments(context.Background(), []domain.Passage{
		{ID: "1", Content: "data"},
	}))

	require.NoError(t, r.Drop("gone"))
	_, err = os.Stat(r.Path("gone"))
	assert.True(t, os.IsNotExist(err))

	names, err := r.List()
	require.NoError(t, err)
	assert.Empty(t, names)

	// a fresh resolve starts from an empty store
	fresh, err := r.Resolve("gone")
	require.NoError(t, err)
	docs, err := fresh.GetDocuments(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, docs)
}

func TestDropMissingStoreIsNoOp(t *testing.T) {
	r := newTestRegistry(t)
	assert.NoError(t, r.Drop("never-created"))
}
