// Package local implements a directory-persisted vector index with
// brute-force cosine similarity search.
package local

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sync"

	"ragstore/internal/domain"
	"ragstore/internal/vectorstore"
)

const recordsFile = "records.json"

type record struct {
	ID        string          `json:"id"`
	Content   string          `json:"content"`
	Metadata  domain.Metadata `json:"metadata"`
	Embedding []float64       `json:"embedding"`
}

// Store is a vectorstore.Index persisted as a JSON records file inside its
// own directory. Embeddings are L2-normalized on insert so search reduces to
// a dot product.
type Store struct {
	path       string
	collection string
	embedder   domain.Embedder

	mu      sync.RWMutex
	order   []string
	records map[string]*record
}

// Open loads the index persisted under path, creating the directory on first
// use. The collection name is informational and recorded alongside the data.
func Open(path, collection string, embedder domain.Embedder) (*Store, error) {
	if err := os.MkdirAll(path, 0o755); err != nil {
		return nil, fmt.Errorf("create store directory: %w", err)
	}
	s := &Store{
		path:       path,
		collection: collection,
		embedder:   embedder,
		records:    make(map[string]*record),
	}
	if err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

// Path returns the persistence directory of this store.
func (s *Store) Path() string { return s.path }

func (s *Store) load() error {
	data, err := os.ReadFile(filepath.Join(s.path, recordsFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read store records: %w", err)
	}
	var recs []*record
	if err := json.Unmarshal(data, &recs); err != nil {
		return fmt.Errorf("decode store records: %w", err)
	}
	for _, r := range recs {
		s.records[r.ID] = r
		s.order = append(s.order, r.ID)
	}
	return nil
}

// save writes all records atomically. Caller must hold the write lock.
func (s *Store) save() error {
	recs := make([]*record, 0, len(s.order))
	for _, id := range s.order {
		recs = append(recs, s.records[id])
	}
	data, err := json.Marshal(recs)
	if err != nil {
		return fmt.Errorf("encode store records: %w", err)
	}
	tmp := filepath.Join(s.path, recordsFile+".tmp")
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write store records: %w", err)
	}
	if err := os.Rename(tmp, filepath.Join(s.path, recordsFile)); err != nil {
		return fmt.Errorf("replace store records: %w", err)
	}
	return nil
}

func (s *Store) AddDocuments(ctx context.Context, docs []domain.Passage) error {
	if len(docs) == 0 {
		return nil
	}
	texts := make([]string, len(docs))
	for i := range docs {
		texts[i] = docs[i].Content
	}
	vectors, err := s.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return fmt.Errorf("embed batch: %w", err)
	}
	if len(vectors) != len(docs) {
		return fmt.Errorf("embedder returned %d vectors for %d documents", len(vectors), len(docs))
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for i, d := range docs {
		r := &record{
			ID:        d.ID,
			Content:   d.Content,
			Metadata:  d.Metadata.Clone(),
			Embedding: normalize(vectors[i]),
		}
		if _, exists := s.records[d.ID]; !exists {
			s.order = append(s.order, d.ID)
		}
		s.records[d.ID] = r
	}
	return s.save()
}

func (s *Store) GetDocuments(ctx context.Context, ids []string) ([]domain.Passage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if ids == nil {
		ids = s.order
	}
	out := make([]domain.Passage, 0, len(ids))
	for _, id := range ids {
		r, ok := s.records[id]
		if !ok {
			continue
		}
		out = append(out, domain.Passage{ID: r.ID, Content: r.Content, Metadata: r.Metadata.Clone()})
	}
	return out, nil
}

func (s *Store) UpdateDocument(ctx context.Context, id string, content string, metadata domain.Metadata) error {
	vec, err := s.embedder.Embed(ctx, content)
	if err != nil {
		return fmt.Errorf("embed update: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.records[id]
	if !ok {
		return vectorstore.ErrNotFound
	}
	r.Content = content
	r.Metadata = metadata.Clone()
	r.Embedding = normalize(vec)
	return s.save()
}

func (s *Store) DeleteDocuments(ctx context.Context, ids []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := false
	for _, id := range ids {
		if _, ok := s.records[id]; !ok {
			continue
		}
		delete(s.records, id)
		removed = true
	}
	if !removed {
		return nil
	}
	kept := s.order[:0]
	for _, id := range s.order {
		if _, ok := s.records[id]; ok {
			kept = append(kept, id)
		}
	}
	s.order = kept
	return s.save()
}

func (s *Store) SimilaritySearch(ctx context.Context, query string, k int) ([]domain.Passage, error) {
	vec, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	qv := normalize(vec)

	s.mu.RLock()
	defer s.mu.RUnlock()
	if k <= 0 || k > len(s.order) {
		k = len(s.order)
	}
	scores := make([]float64, len(s.order))
	for i, id := range s.order {
		scores[i] = dot(s.records[id].Embedding, qv)
	}
	idxs := argsortDesc(scores)
	out := make([]domain.Passage, 0, k)
	for i := 0; i < k; i++ {
		r := s.records[s.order[idxs[i]]]
		out = append(out, domain.Passage{ID: r.ID, Content: r.Content, Metadata: r.Metadata.Clone()})
	}
	return out, nil
}

func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.order)
}

func dot(a, b []float64) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	sum := 0.0
	for i := 0; i < n; i++ {
		sum += a[i] * b[i]
	}
	return sum
}

func normalize(v []float64) []float64 {
	var sum float64
	for _, x := range v {
		sum += x * x
	}
	if sum == 0 {
		return v
	}
	inv := 1 / math.Sqrt(sum)
	out := make([]float64, len(v))
	for i, x := range v {
		out[i] = x * inv
	}
	return out
}

func argsortDesc(vals []float64) []int {
	idxs := make([]int, len(vals))
	for i := range vals {
		idxs[i] = i
	}
	quicksort(idxs, vals, 0, len(idxs)-1)
	return idxs
}

func quicksort(idxs []int, vals []float64, lo, hi int) {
	if lo >= hi {
		return
	}
	i, j := lo, hi
	pivot := vals[idxs[(lo+hi)/2]]
	for i <= j {
		for vals[idxs[i]] > pivot { // desc order
			i++
		}
		for vals[idxs[j]] < pivot {
			j--
		}
		if i <= j {
			idxs[i], idxs[j] = idxs[j], idxs[i]
			i++
			j--
		}
	}
	if lo < j {
		quicksort(idxs, vals, lo, j)
	}
	if i < hi {
		quicksort(idxs, vals, i, hi)
	}
}
