package rest

import "ragstore/internal/domain"

// AddTextsRequest adds text snippets to a store.
type AddTextsRequest struct {
	Identifier string        `json:"identifier"`
	Texts      []domain.Text `json:"texts"`
}

// IngestResponse reports an ingestion outcome with the generated passage ids.
type IngestResponse struct {
	Status bool     `json:"status"`
	IDs    []string `json:"ids,omitempty"`
}

// GetTextsRequest fetches passages by id, or all passages when IDs is empty.
type GetTextsRequest struct {
	Identifier string   `json:"identifier"`
	IDs        []string `json:"ids,omitempty"`
}

// GetTextsResponse maps passage id to its content and metadata.
type GetTextsResponse struct {
	Documents map[string]domain.Text `json:"documents"`
}

// GetPDFsRequest lists the PDF filenames indexed in a store.
type GetPDFsRequest struct {
	Identifier string `json:"identifier"`
}

// GetPDFsResponse carries the distinct PDF filenames of a store.
type GetPDFsResponse struct {
	Documents []string `json:"documents"`
}

// GetDatabasesResponse lists all persisted store identifiers.
type GetDatabasesResponse struct {
	Databases []string `json:"databases"`
}

// UpdateTextsRequest replaces content and metadata of existing passages.
type UpdateTextsRequest struct {
	Identifier string                       `json:"identifier"`
	Updates    map[string]domain.TextUpdate `json:"updates"`
}

// DeleteTextsRequest removes passages by id.
type DeleteTextsRequest struct {
	Identifier string   `json:"identifier"`
	IDs        []string `json:"ids"`
}

// DeletePDFsRequest removes all passages derived from the named PDFs.
type DeletePDFsRequest struct {
	Identifier string   `json:"identifier"`
	PDFNames   []string `json:"pdf_names"`
}

// DeleteDatabasesRequest drops whole stores.
type DeleteDatabasesRequest struct {
	Identifiers []string `json:"identifiers"`
}

// StatusResponse reports plain success.
type StatusResponse struct {
	Status bool `json:"status"`
}

// AskQuestionRequest answers a question against a store via the chat backend.
type AskQuestionRequest struct {
	Info       domain.Question `json:"info"`
	Identifier string          `json:"identifier"`
}

// AskQuestionResponse carries the model's reply.
type AskQuestionResponse struct {
	Result domain.ChatAction `json:"result"`
}

// BuildContextRequest assembles the grounding block without calling the model.
type BuildContextRequest struct {
	Identifier string `json:"identifier"`
	Question   string `json:"question"`
	KSimilar   int    `json:"k_similar_text_snippets"`
}

// BuildContextResponse carries the assembled context block.
type BuildContextResponse struct {
	Context string `json:"context"`
}

// TokenRequest authenticates the admin user.
type TokenRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}
