package domain

import (
	"context"
	"errors"
)

// ErrNoExtractableText is returned when an ingested PDF batch yields zero
// text passages, e.g. every page is a rasterized image.
var ErrNoExtractableText = errors.New("pdf has no text pages (maybe all pages are images)")

// ErrInvalidIdentifier is returned for empty or filesystem-unsafe store names.
var ErrInvalidIdentifier = errors.New("invalid store identifier")

// Embedder converts free text into a numeric vector representation.
type Embedder interface {
	Name() string
	Dimension() int
	Embed(ctx context.Context, text string) ([]float64, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float64, error)
}

// PDFLoader extracts an ordered sequence of passages from a PDF file on disk.
// Each passage's metadata carries the source path and page number.
type PDFLoader interface {
	LoadAndSplit(path string) ([]Text, error)
}
