// Package engine implements ingestion, mutation and context assembly over
// the store registry.
package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"ragstore/internal/domain"
	"ragstore/internal/registry"
)

// ChatCompleter forwards a chat exchange to a language-model backend and
// returns the assistant's reply.
type ChatCompleter interface {
	Complete(ctx context.Context, messages []domain.ChatAction) (domain.ChatAction, error)
}

// ErrChatNotConfigured is returned by AskQuestion when no chat backend is set.
var ErrChatNotConfigured = errors.New("chat backend not configured")

// Engine executes all store operations. Every operation resolves its index
// handle through the registry first, creating the store on first use.
type Engine struct {
	registry   *registry.Registry
	loader     domain.PDFLoader
	chat       ChatCompleter
	scratchDir string
	now        func() float64
}

// Option configures optional Engine collaborators.
type Option func(*Engine)

// WithChat sets the chat-completion backend used by AskQuestion.
func WithChat(c ChatCompleter) Option {
	return func(e *Engine) { e.chat = c }
}

// WithScratchDir overrides the directory PDF uploads are staged in.
func WithScratchDir(dir string) Option {
	return func(e *Engine) { e.scratchDir = dir }
}

// withClock overrides the timestamp source in tests.
func withClock(now func() float64) Option {
	return func(e *Engine) { e.now = now }
}

func New(reg *registry.Registry, loader domain.PDFLoader, opts ...Option) *Engine {
	e := &Engine{
		registry:   reg,
		loader:     loader,
		scratchDir: os.TempDir(),
		now:        unixSeconds,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// unixSeconds returns the current time as fractional seconds since epoch, so
// that consecutive stamps are strictly increasing.
func unixSeconds() float64 {
	return float64(time.Now().UnixNano()) / float64(time.Second)
}

// AddTexts ingests the given texts into the identified store and returns the
// generated passage ids in input order. The provider call covers the whole
// batch, so a failure leaves the store unchanged.
func (e *Engine) AddTexts(ctx context.Context, identifier string, texts []domain.Text) ([]string, error) {
	idx, err := e.registry.Resolve(identifier)
	if err != nil {
		return nil, err
	}
	passages := make([]domain.Passage, 0, len(texts))
	ids := make([]string, 0, len(texts))
	for _, t := range texts {
		meta := t.Metadata.Clone()
		if meta == nil {
			meta = domain.Metadata{}
		}
		if _, ok := meta[domain.KeySource]; !ok {
			meta[domain.KeySource] = domain.SourceTextInput
		}
		meta[domain.KeyTimeOfCreation] = e.now()
		if err := meta.Validate(); err != nil {
			return nil, err
		}
		id := uuid.NewString()
		ids = append(ids, id)
		passages = append(passages, domain.Passage{ID: id, Content: t.Text, Metadata: meta})
	}
	if err := idx.AddDocuments(ctx, passages); err != nil {
		return nil, err
	}
	return ids, nil
}

// AddPDFs stages each upload in a scratch directory, extracts its passages
// through the PDF loader and ingests the aggregate batch. A batch yielding
// zero extractable passages fails with domain.ErrNoExtractableText.
func (e *Engine) AddPDFs(ctx context.Context, identifier string, pdfs []domain.PDFUpload) ([]string, error) {
	idx, err := e.registry.Resolve(identifier)
	if err != nil {
		return nil, err
	}
	var texts []domain.Text
	for _, upload := range pdfs {
		extracted, err := e.loadScratch(upload)
		if err != nil {
			return nil, err
		}
		texts = append(texts, extracted...)
	}
	if len(texts) == 0 {
		return nil, domain.ErrNoExtractableText
	}
	passages := make([]domain.Passage, 0, len(texts))
	ids := make([]string, 0, len(texts))
	for _, t := range texts {
		meta := t.Metadata.Clone()
		if meta == nil {
			meta = domain.Metadata{}
		}
		meta[domain.KeyTimeOfCreation] = e.now()
		id := uuid.NewString()
		ids = append(ids, id)
		passages = append(passages, domain.Passage{ID: id, Content: t.Text, Metadata: meta})
	}
	if err := idx.AddDocuments(ctx, passages); err != nil {
		return nil, err
	}
	return ids, nil
}

// loadScratch writes one upload under a unique scratch directory, runs the
// loader and removes the scratch files again. The file keeps its original
// name so passage sources end in the uploaded filename.
func (e *Engine) loadScratch(upload domain.PDFUpload) ([]domain.Text, error) {
	dir := filepath.Join(e.scratchDir, "ragstore-"+uuid.NewString())
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("create scratch dir: %w", err)
	}
	defer os.RemoveAll(dir)

	path := filepath.Join(dir, filepath.Base(upload.Filename))
	if err := os.WriteFile(path, upload.Data, 0o600); err != nil {
		return nil, fmt.Errorf("stage pdf %s: %w", upload.Filename, err)
	}
	return e.loader.LoadAndSplit(path)
}

// GetTexts returns the passages for the given ids, or every passage of the
// store when ids is nil. Unknown ids are omitted; an empty store yields an
// empty map.
func (e *Engine) GetTexts(ctx context.Context, identifier string, ids []string) (map[string]domain.Text, error) {
	idx, err := e.registry.Resolve(identifier)
	if err != nil {
		return nil, err
	}
	docs, err := idx.GetDocuments(ctx, ids)
	if err != nil {
		return nil, err
	}
	out := make(map[string]domain.Text, len(docs))
	for _, d := range docs {
		out[d.ID] = domain.Text{Text: d.Content, Metadata: d.Metadata}
	}
	return out, nil
}

// GetPDFNames lists the distinct PDF filenames contributing passages to the
// store. Order is not meaningful.
func (e *Engine) GetPDFNames(ctx context.Context, identifier string) ([]string, error) {
	docs, err := e.GetTexts(ctx, identifier, nil)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]struct{})
	var names []string
	for _, t := range docs {
		filename, ok := sourceFilename(t.Metadata)
		if !ok {
			continue
		}
		ext := filename[strings.LastIndex(filename, ".")+1:]
		if !strings.EqualFold(ext, "pdf") {
			continue
		}
		if _, dup := seen[filename]; dup {
			continue
		}
		seen[filename] = struct{}{}
		names = append(names, filename)
	}
	return names, nil
}

// ListDatabases enumerates identifiers of all persisted stores.
func (e *Engine) ListDatabases() ([]string, error) {
	return e.registry.List()
}

// UpdateTexts replaces content and metadata of the requested passages in
// place. Ids not present in the store are dropped from the update, never
// created.
func (e *Engine) UpdateTexts(ctx context.Context, identifier string, updates map[string]domain.TextUpdate) error {
	idx, err := e.registry.Resolve(identifier)
	if err != nil {
		return err
	}
	requested := make([]string, 0, len(updates))
	for id := range updates {
		requested = append(requested, id)
	}
	existing, err := idx.GetDocuments(ctx, requested)
	if err != nil {
		return err
	}
	if len(existing) < len(requested) {
		slog.Debug("update skipped unresolved ids",
			"identifier", identifier,
			"requested", len(requested),
			"resolved", len(existing),
		)
	}
	for _, doc := range existing {
		u := updates[doc.ID]
		meta := u.NewMetadata.Clone()
		if meta == nil {
			meta = domain.Metadata{}
		}
		meta[domain.KeyTimeOfCreation] = e.now()
		if err := meta.Validate(); err != nil {
			return err
		}
		if err := idx.UpdateDocument(ctx, doc.ID, u.NewText, meta); err != nil {
			return err
		}
	}
	return nil
}

// DeleteTexts removes the given passage ids. Absent ids are a no-op.
func (e *Engine) DeleteTexts(ctx context.Context, identifier string, ids []string) error {
	idx, err := e.registry.Resolve(identifier)
	if err != nil {
		return err
	}
	return idx.DeleteDocuments(ctx, ids)
}

// DeletePDFs removes every passage whose source filename contains one of the
// requested names as a substring. An empty match set is a silent no-op.
func (e *Engine) DeletePDFs(ctx context.Context, identifier string, pdfNames []string) error {
	docs, err := e.GetTexts(ctx, identifier, nil)
	if err != nil {
		return err
	}
	seen := make(map[string]struct{})
	var ids []string
	for _, name := range pdfNames {
		for id, t := range docs {
			filename, ok := sourceFilename(t.Metadata)
			if !ok {
				continue
			}
			if !strings.Contains(filename, name) {
				continue
			}
			if _, dup := seen[id]; dup {
				continue
			}
			seen[id] = struct{}{}
			ids = append(ids, id)
		}
	}
	if len(ids) == 0 {
		return nil
	}
	return e.DeleteTexts(ctx, identifier, ids)
}

// DeleteDatabases drops the given stores: the in-memory handle is
// invalidated before the persisted directory is removed. Identifiers without
// a persisted directory are skipped silently.
func (e *Engine) DeleteDatabases(identifiers []string) error {
	for _, identifier := range identifiers {
		if err := e.registry.Drop(identifier); err != nil {
			return err
		}
	}
	return nil
}

// BuildContext retrieves the k most similar passages for the question and
// renders the grounding block. k values below 1 fall back to the default.
func (e *Engine) BuildContext(ctx context.Context, question, identifier string, k int) (string, error) {
	if k <= 0 {
		k = domain.DefaultK
	}
	idx, err := e.registry.Resolve(identifier)
	if err != nil {
		return "", err
	}
	snippets, err := idx.SimilaritySearch(ctx, question, k)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Question:\n%s\n\n", question)
	b.WriteString("Info-Snippets:\n")
	blocks := make([]string, 0, len(snippets))
	for _, s := range snippets {
		blocks = append(blocks, fmt.Sprintf("Text: %s\nMetadata: %s", s.Content, renderMetadata(s.Metadata)))
	}
	b.WriteString(strings.Join(blocks, "\n\n"))
	b.WriteString("\n")
	return b.String(), nil
}

// AskQuestion assembles the grounding context for the question and forwards
// it with the chat history to the configured language-model backend.
func (e *Engine) AskQuestion(ctx context.Context, identifier string, q domain.Question) (domain.ChatAction, error) {
	if e.chat == nil {
		return domain.ChatAction{}, ErrChatNotConfigured
	}
	prompt, err := e.BuildContext(ctx, q.Question, identifier, q.KSimilar)
	if err != nil {
		return domain.ChatAction{}, err
	}
	basePrompt := q.BasePrompt
	if basePrompt == "" {
		basePrompt = domain.DefaultBasePrompt
	}
	messages := make([]domain.ChatAction, 0, len(q.ChatHistory)+2)
	messages = append(messages, domain.ChatAction{Role: domain.RoleSystem, Content: basePrompt})
	messages = append(messages, q.ChatHistory...)
	messages = append(messages, domain.ChatAction{Role: domain.RoleUser, Content: prompt})
	return e.chat.Complete(ctx, messages)
}

// sourceFilename extracts the trailing filename component of the passage's
// source metadata field.
func sourceFilename(meta domain.Metadata) (string, bool) {
	source, ok := meta[domain.KeySource].(string)
	if !ok || source == "" {
		return "", false
	}
	return filepath.Base(source), true
}

// renderMetadata serializes metadata deterministically (JSON, sorted keys)
// for the context block.
func renderMetadata(meta domain.Metadata) string {
	if len(meta) == 0 {
		return "{}"
	}
	data, err := json.Marshal(meta)
	if err != nil {
		return "{}"
	}
	return string(data)
}
