package domain

import "fmt"

// Metadata keys stamped by the ingestion engine.
const (
	KeySource         = "source"
	KeyTimeOfCreation = "time_of_creation"
)

// SourceTextInput is the source value for passages submitted as raw text.
const SourceTextInput = "text input"

// Metadata is the per-passage attribute mapping. Values are restricted to
// scalars (string, bool, numbers) so that JSON serialization and equality
// stay well-defined.
type Metadata map[string]any

// Clone returns a shallow copy of the metadata. Scalar values need no deep copy.
func (m Metadata) Clone() Metadata {
	if m == nil {
		return nil
	}
	out := make(Metadata, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// Validate rejects non-scalar metadata values.
func (m Metadata) Validate() error {
	for k, v := range m {
		switch v.(type) {
		case nil, string, bool, int, int32, int64, float32, float64:
		default:
			return fmt.Errorf("metadata key %q: unsupported value type %T", k, v)
		}
	}
	return nil
}

// Passage is the unit stored in an index: content plus metadata under a
// store-unique id.
type Passage struct {
	ID       string   `json:"id"`
	Content  string   `json:"content"`
	Metadata Metadata `json:"metadata"`
}

// Text is a single submitted text entry with its metadata.
type Text struct {
	Text     string   `json:"text"`
	Metadata Metadata `json:"metadata"`
}

// TextUpdate carries replacement content and metadata for an existing passage.
type TextUpdate struct {
	NewText     string   `json:"new_text"`
	NewMetadata Metadata `json:"new_metadata"`
}

// PDFUpload is an uploaded PDF byte stream with its original filename.
type PDFUpload struct {
	Filename string
	Data     []byte
}

// Role identifies the author of a chat message.
type Role string

const (
	RoleUser      Role = "user"
	RoleSystem    Role = "system"
	RoleAssistant Role = "assistant"
)

// ChatAction is one message in a chat exchange.
type ChatAction struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Question carries a natural-language question, its chat context and the
// number of similar snippets to retrieve.
type Question struct {
	BasePrompt  string       `json:"base_prompt"`
	ChatHistory []ChatAction `json:"chat_history"`
	Question    string       `json:"question"`
	KSimilar    int          `json:"k_similar_text_snippets"`
}

// DefaultK is the snippet count used when a question does not specify one.
const DefaultK = 10

// DefaultBasePrompt instructs the downstream model how the assembled
// context block is laid out.
const DefaultBasePrompt = "You are a RAG assistant and should answer questions according to the Info-Snippet you get.\n" +
	"The prompt will have the following syntax:\n" +
	"Question:\n{question}\n\n" +
	"Info-Snippets:\n" +
	"Text: {snippet content}\n" +
	"Metadata: {snippet metadata}" +
	"\n\n" +
	"Text: {snippet content}\n" +
	"Metadata: {snippet metadata}" +
	"\n\n" +
	"..."
