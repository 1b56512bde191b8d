package vectorstore

import (
	"context"
	"errors"

	"ragstore/internal/domain"
)

// ErrNotFound is returned when an operation targets an id that does not
// exist in the index.
var ErrNotFound = errors.New("document not found")

// Index persists (id, content, metadata) triples with their embeddings and
// supports nearest-neighbor similarity search. One Index instance owns one
// persistence directory; instances must not be shared across directories.
type Index interface {
	// AddDocuments embeds and inserts the given passages. The whole batch is
	// embedded before anything is written, so a failed call leaves the index
	// unchanged.
	AddDocuments(ctx context.Context, docs []domain.Passage) error

	// GetDocuments returns the passages for the given ids, or every passage
	// in insertion order when ids is nil. Unknown ids are skipped silently.
	GetDocuments(ctx context.Context, ids []string) ([]domain.Passage, error)

	// UpdateDocument replaces content and metadata of an existing passage in
	// place, re-embedding the new content. Returns ErrNotFound when the id
	// does not exist.
	UpdateDocument(ctx context.Context, id string, content string, metadata domain.Metadata) error

	// DeleteDocuments removes the given ids. Absent ids are ignored.
	DeleteDocuments(ctx context.Context, ids []string) error

	// SimilaritySearch returns up to k passages closest to the query by
	// cosine similarity, most similar first. k larger than the index size
	// returns everything.
	SimilaritySearch(ctx context.Context, query string, k int) ([]domain.Passage, error)

	// Count reports the number of stored passages.
	Count() int
}
