package document

import (
	"sort"

	"pdfchat-be/pkg/rag"
)

// Chunk is one embedded slice of page text.
type Chunk struct {
	ID     string // p<page>-c<n>
	Page   int
	Text   string
	Vector []float32
}

// Hit is a retrieved chunk with its cosine similarity to the query.
type Hit struct {
	Chunk Chunk
	Score float64
}

// Index is a flat in-memory vector index. Vectors are unit length, so cosine
// similarity is a dot product. It is immutable after construction.
type Index struct {
	model  string
	dim    int
	chunks []Chunk
}

// NewIndex requires at least one chunk and a single vector dimension.
func NewIndex(model string, chunks []Chunk) (*Index, error) {
	if len(chunks) == 0 {
		return nil, &rag.RetrievalError{Reason: "index has no chunks"}
	}
	dim := len(chunks[0].Vector)
	if dim == 0 {
		return nil, &rag.RetrievalError{Reason: "chunk has an empty vector"}
	}
	for _, c := range chunks[1:] {
		if len(c.Vector) != dim {
			return nil, &rag.RetrievalError{Reason: "chunk vectors have different dimensions"}
		}
	}
	return &Index{model: model, dim: dim, chunks: chunks}, nil
}

func (ix *Index) Model() string { return ix.model }

func (ix *Index) Len() int { return len(ix.chunks) }

// Search returns up to k chunks ordered by descending similarity.
// Ties keep document order.
func (ix *Index) Search(query []float32, k int) ([]Hit, error) {
	if ix == nil || len(ix.chunks) == 0 {
		return nil, &rag.RetrievalError{Reason: "index is empty"}
	}
	if len(query) != ix.dim {
		return nil, &rag.RetrievalError{Reason: "query vector dimension does not match the index"}
	}
	if k <= 0 {
		k = 1
	}

	hits := make([]Hit, len(ix.chunks))
	for i, c := range ix.chunks {
		hits[i] = Hit{Chunk: c, Score: dot(query, c.Vector)}
	}
	sort.SliceStable(hits, func(i, j int) bool {
		return hits[i].Score > hits[j].Score
	})

	if len(hits) > k {
		hits = hits[:k]
	}
	return hits, nil
}

func dot(a, b []float32) float64 {
	var sum float64
	for i := range a {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}
