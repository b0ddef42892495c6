package rag

import "context"

const (
	ModeChat     = "chat"
	ModeDocument = "document"
)

// Source points at one document chunk that was placed in the prompt.
type Source struct {
	ChunkID string  `json:"chunk_id"`
	Page    int     `json:"page"`
	Snippet string  `json:"snippet"`
	Score   float64 `json:"score"`
}

// Reply is the outcome of one routed message.
type Reply struct {
	Text    string
	Mode    string
	Sources []Source
}

// Responder answers a single message. Plain chat and document-grounded
// sessions both implement it so the registry can route without probing types.
type Responder interface {
	Respond(ctx context.Context, text string) (*Reply, error)
}

// DocumentInfo describes the document behind a document-grounded session.
type DocumentInfo struct {
	Path       string
	Filename   string
	Chunks     int
	Skipped    int
	EmbedModel string
}

// DocumentResponder is a Responder grounded in an uploaded document.
// Close releases the uploaded file.
type DocumentResponder interface {
	Responder
	Info() DocumentInfo
	Close() error
}
