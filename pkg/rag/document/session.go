package document

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"pdfchat-be/internal/constant"
	"pdfchat-be/internal/pkg/logger"
	"pdfchat-be/pkg/embedding"
	"pdfchat-be/pkg/llm"
	"pdfchat-be/pkg/pdf"
	"pdfchat-be/pkg/rag"
	"pdfchat-be/pkg/utils"
)

var tracer = otel.Tracer("pdfchat-be/pkg/rag/document")

type Config struct {
	ChunkSize        int
	ChunkOverlap     int
	TopK             int
	MaxContextChars  int
	EmbedConcurrency int
	Temperature      float64
	MaxTokens        int
	UpstreamTimeout  time.Duration
}

func DefaultConfig() Config {
	return Config{
		ChunkSize:        1000,
		ChunkOverlap:     200,
		TopK:             4,
		MaxContextChars:  12000,
		EmbedConcurrency: 4,
		Temperature:      constant.ChatTemperature,
		MaxTokens:        constant.ChatMaxTokens,
		UpstreamTimeout:  60 * time.Second,
	}
}

type Deps struct {
	Loader   pdf.Loader
	Embedder embedding.EmbeddingProvider
	LLM      llm.LLMProvider
	Logger   logger.ILogger
}

// Session answers questions about one uploaded PDF. The index is built once
// in New and never mutated, so Answer only reads shared state.
type Session struct {
	id       string
	path     string
	filename string
	index    *Index
	skipped  int
	deps     Deps
	cfg      Config
}

var _ rag.Responder = &Session{}

// New loads, chunks and embeds the PDF at path. It blocks until the index is
// ready. Chunks whose embedding fails are skipped; when every chunk fails the
// session is not created.
func New(ctx context.Context, sessionID, path, filename string, deps Deps, cfg Config) (*Session, error) {
	ctx, span := tracer.Start(ctx, "document.New")
	defer span.End()
	span.SetAttributes(attribute.String("session.id", sessionID), attribute.String("document.filename", filename))

	if deps.Logger == nil {
		deps.Logger = logger.NewNopLogger()
	}
	cfg = withDefaults(cfg)

	pages, err := deps.Loader.Load(ctx, path)
	if err != nil {
		span.RecordError(err)
		if rag.IsDocumentLoad(err) {
			return nil, err
		}
		return nil, &rag.DocumentLoadError{Path: path, Reason: "unreadable PDF", Err: err}
	}

	chunks := splitPages(pages, cfg)
	if len(chunks) == 0 {
		return nil, &rag.DocumentLoadError{Path: path, Reason: "no extractable text"}
	}

	embedded, skipped, err := embedChunks(ctx, deps.Embedder, chunks, cfg)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	if skipped > 0 {
		deps.Logger.Warn("DOCUMENT", "Some chunks could not be embedded, index is degraded", map[string]interface{}{
			"session_id": sessionID,
			"filename":   filename,
			"skipped":    skipped,
			"total":      len(chunks),
		})
	}

	index, err := NewIndex(deps.Embedder.Model(), embedded)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.Int("document.chunks", index.Len()), attribute.Int("document.skipped", skipped))

	deps.Logger.Info("DOCUMENT", "Document indexed", map[string]interface{}{
		"session_id":  sessionID,
		"filename":    filename,
		"pages":       len(pages),
		"chunks":      index.Len(),
		"embed_model": index.Model(),
	})

	return &Session{
		id:       sessionID,
		path:     path,
		filename: filename,
		index:    index,
		skipped:  skipped,
		deps:     deps,
		cfg:      cfg,
	}, nil
}

func withDefaults(cfg Config) Config {
	def := DefaultConfig()
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = def.ChunkSize
	}
	if cfg.ChunkOverlap < 0 {
		cfg.ChunkOverlap = 0
	}
	if cfg.TopK <= 0 {
		cfg.TopK = def.TopK
	}
	if cfg.EmbedConcurrency <= 0 {
		cfg.EmbedConcurrency = def.EmbedConcurrency
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = def.MaxTokens
	}
	if cfg.UpstreamTimeout <= 0 {
		cfg.UpstreamTimeout = def.UpstreamTimeout
	}
	return cfg
}

func splitPages(pages []pdf.Page, cfg Config) []Chunk {
	var chunks []Chunk
	for _, page := range pages {
		for n, text := range utils.SplitText(page.Text, cfg.ChunkSize, cfg.ChunkOverlap) {
			chunks = append(chunks, Chunk{
				ID:   fmt.Sprintf("p%d-c%d", page.Number, n+1),
				Page: page.Number,
				Text: text,
			})
		}
	}
	return chunks
}

func embedChunks(ctx context.Context, embedder embedding.EmbeddingProvider, chunks []Chunk, cfg Config) ([]Chunk, int, error) {
	vectors := make([][]float32, len(chunks))

	var (
		mu       sync.Mutex
		firstErr error
		failed   int
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.EmbedConcurrency)

	for i := range chunks {
		g.Go(func() error {
			// a cancelled request aborts the whole build
			if err := gctx.Err(); err != nil {
				return err
			}

			cctx, cancel := context.WithTimeout(gctx, cfg.UpstreamTimeout)
			defer cancel()

			vec, err := embedder.Embed(cctx, chunks[i].Text)
			if err == nil && len(vec) == 0 {
				err = fmt.Errorf("empty embedding for chunk %s", chunks[i].ID)
			}
			if err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				mu.Lock()
				failed++
				if firstErr == nil {
					firstErr = err
				}
				mu.Unlock()
				return nil
			}
			vectors[i] = vec
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, 0, rag.Upstream("embed", err)
	}

	embedded := make([]Chunk, 0, len(chunks))
	for i, c := range chunks {
		if vectors[i] == nil {
			continue
		}
		c.Vector = vectors[i]
		embedded = append(embedded, c)
	}

	if len(embedded) == 0 {
		return nil, failed, rag.Upstream("embed", fmt.Errorf("no chunk could be embedded: %w", firstErr))
	}
	return embedded, failed, nil
}

func (s *Session) Respond(ctx context.Context, text string) (*rag.Reply, error) {
	return s.Answer(ctx, text)
}

// Answer retrieves the most similar chunks and asks the model to answer from them only.
func (s *Session) Answer(ctx context.Context, question string) (*rag.Reply, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, rag.ErrEmptyInput
	}

	ctx, span := tracer.Start(ctx, "document.Answer")
	defer span.End()
	span.SetAttributes(attribute.String("session.id", s.id))

	ectx, cancel := context.WithTimeout(ctx, s.cfg.UpstreamTimeout)
	queryVec, err := s.deps.Embedder.Embed(ectx, question)
	cancel()
	if err != nil {
		span.RecordError(err)
		return nil, rag.Upstream("embed", err)
	}

	hits, err := s.index.Search(queryVec, s.cfg.TopK)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	used, contextText := fitContext(hits, s.cfg.MaxContextChars)
	prompt := fmt.Sprintf(constant.DocumentQAPromptTemplate, contextText, question)

	lctx, cancel := context.WithTimeout(ctx, s.cfg.UpstreamTimeout)
	defer cancel()
	answer, err := s.deps.LLM.Chat(lctx,
		[]llm.Message{{Role: llm.RoleUser, Content: prompt}},
		llm.WithTemperature(s.cfg.Temperature),
		llm.WithMaxTokens(s.cfg.MaxTokens),
	)
	if err != nil {
		span.RecordError(err)
		return nil, rag.Upstream("chat", err)
	}

	sources := make([]rag.Source, len(used))
	for i, h := range used {
		sources[i] = rag.Source{
			ChunkID: h.Chunk.ID,
			Page:    h.Chunk.Page,
			Snippet: truncateRunes(h.Chunk.Text, constant.DocumentSnippetLength),
			Score:   h.Score,
		}
	}
	span.SetAttributes(attribute.Int("document.sources", len(sources)))

	return &rag.Reply{
		Text:    strings.TrimSpace(answer),
		Mode:    rag.ModeDocument,
		Sources: sources,
	}, nil
}

// fitContext joins hits (best first) into the prompt context. When the limit
// is hit the remaining, less similar hits are dropped; a first hit that alone
// exceeds the limit is cut.
func fitContext(hits []Hit, limit int) ([]Hit, string) {
	sepLen := utf8.RuneCountInString(constant.DocumentContextSeparator)

	var (
		b     strings.Builder
		used  []Hit
		total int
	)
	for i, h := range hits {
		text := h.Chunk.Text
		size := utf8.RuneCountInString(text)
		if i > 0 {
			size += sepLen
		}

		if limit > 0 && total+size > limit {
			if i > 0 {
				break
			}
			text = truncateRunes(text, limit)
			size = limit
		}

		if i > 0 {
			b.WriteString(constant.DocumentContextSeparator)
		}
		b.WriteString(text)
		total += size
		used = append(used, h)
	}
	return used, b.String()
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}

func (s *Session) Info() rag.DocumentInfo {
	return rag.DocumentInfo{
		Path:       s.path,
		Filename:   s.filename,
		Chunks:     s.index.Len(),
		Skipped:    s.skipped,
		EmbedModel: s.index.Model(),
	}
}

func (s *Session) Filename() string { return s.filename }

func (s *Session) Path() string { return s.path }

// Close removes the uploaded file. The session must not be used afterwards.
func (s *Session) Close() error {
	if s.path == "" {
		return nil
	}
	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove %s: %w", s.path, err)
	}
	return nil
}
