// Package pdf converts PDF files into ordered passages for indexing.
package pdf

import (
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"

	"ragstore/internal/chunker"
	"ragstore/internal/domain"
)

// Loader extracts per-page plain text from a PDF and splits long pages into
// sentence chunks. Pages without extractable text (e.g. scanned images) are
// skipped; the caller decides whether an all-empty result is an error.
type Loader struct {
	chunker *chunker.SentenceChunker
}

func NewLoader(c *chunker.SentenceChunker) *Loader {
	if c == nil {
		c = chunker.NewSentenceChunker(5, 1)
	}
	return &Loader{chunker: c}
}

// LoadAndSplit implements domain.PDFLoader. Each returned passage carries the
// source path and the zero-based page number in its metadata.
func (l *Loader) LoadAndSplit(path string) (texts []domain.Text, err error) {
	// The underlying parser panics on some malformed files.
	defer func() {
		if r := recover(); r != nil {
			texts = nil
			err = fmt.Errorf("parse pdf %s: %v", path, r)
		}
	}()

	f, reader, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open pdf %s: %w", path, err)
	}
	defer f.Close()

	for pageNum := 1; pageNum <= reader.NumPage(); pageNum++ {
		page := reader.Page(pageNum)
		if page.V.IsNull() {
			continue
		}
		content, err := page.GetPlainText(nil)
		if err != nil {
			return nil, fmt.Errorf("extract page %d of %s: %w", pageNum, path, err)
		}
		if strings.TrimSpace(content) == "" {
			continue
		}
		for _, chunk := range l.chunker.Split(content) {
			texts = append(texts, domain.Text{
				Text: chunk,
				Metadata: domain.Metadata{
					domain.KeySource: path,
					"page":           pageNum - 1,
				},
			})
		}
	}
	return texts, nil
}
