package domain

import (
	"context"
	"errors"
)

var (
	// ErrNotPrepared is returned by embedders that need a corpus pass before Embed.
	ErrNotPrepared = errors.New("embedder is not prepared")
	// ErrDimensionMismatch is returned when a vector does not match the store dimension.
	ErrDimensionMismatch = errors.New("vector dimension mismatch")
	// ErrNoDocuments is returned when ingestion finds nothing to index.
	ErrNoDocuments = errors.New("no documents found")
	// ErrEmptyAnswer is returned when the chat model produced no text.
	ErrEmptyAnswer = errors.New("model returned an empty answer")
)

// Metadata keys recorded on every chunk.
const (
	MetaProject  = "project"
	MetaSource   = "source"
	MetaFileName = "file_name"
	MetaKind     = "kind"
)

// DocumentKind tells the cleaner and chunker how to treat a file.
type DocumentKind string

const (
	KindMarkdown DocumentKind = "markdown"
	KindCode     DocumentKind = "code"
)

// Document represents a single file loaded into the system.
type Document struct {
	ID       string
	Path     string
	Content  string
	Kind     DocumentKind
	Metadata map[string]string
}

// Chunk is a semantically meaningful part of a document used for indexing.
type Chunk struct {
	DocumentID string
	ChunkID    string
	Text       string
	Index      int
	Metadata   map[string]string
}

// SearchResult represents a matching chunk with a relevance score.
type SearchResult struct {
	Chunk Chunk
	Score float64
}

// Source is a de-duplicated reference to a retrieved file.
type Source struct {
	Project  string `json:"project"`
	File     string `json:"file"`
	FileName string `json:"file_name"`
}

// Role is the author of a chat message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one turn sent to a chat model.
type Message struct {
	Role    Role
	Content string
}

// Delta is one increment of a streamed completion. A non-nil Err ends the stream.
type Delta struct {
	Text string
	Err  error
}

// Embedder converts free text into a numeric vector representation.
// Implementations may require a preparation phase over the corpus.
type Embedder interface {
	Name() string
	Prepare(corpus []string) error
	Dimension() int
	Embed(ctx context.Context, texts []string) ([][]float64, error)
}

// Chunker splits documents into chunks suitable for retrieval indexing.
type Chunker interface {
	Chunk(document Document) ([]Chunk, error)
}

// VectorStore persists vectors and supports similarity search.
type VectorStore interface {
	Init(ctx context.Context, dimension int) error
	Upsert(ctx context.Context, chunks []Chunk, vectors [][]float64) error
	Search(ctx context.Context, vector []float64, topK int) ([]SearchResult, error)
	Clear(ctx context.Context) error
	Count(ctx context.Context) (int, error)
}

// ChatModel answers a conversation, either in one call or as a stream of deltas.
// The stream channel is closed by the model when the completion ends.
type ChatModel interface {
	Name() string
	Complete(ctx context.Context, messages []Message) (string, error)
	Stream(ctx context.Context, messages []Message) (<-chan Delta, error)
}

// Summarizer produces a brief summary of the provided text.
type Summarizer interface {
	Summarize(text string, maxSentences int) (string, error)
}

// RAGService defines the retrieval operations exposed by the application core.
type RAGService interface {
	IngestDocuments(ctx context.Context, paths []string) (summary string, err error)
	Query(ctx context.Context, query string, topK int) ([]SearchResult, error)
}
