package chat

import (
	"context"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"pdfchat-be/internal/constant"
	"pdfchat-be/pkg/llm"
	"pdfchat-be/pkg/rag"
	"pdfchat-be/pkg/rag/memory"
)

var tracer = otel.Tracer("pdfchat-be/pkg/rag/chat")

type Config struct {
	Model           string
	Temperature     float64
	MaxTokens       int
	WindowSize      int
	UpstreamTimeout time.Duration
}

func DefaultConfig() Config {
	return Config{
		Temperature:     constant.ChatTemperature,
		MaxTokens:       constant.ChatMaxTokens,
		WindowSize:      memory.DefaultWindowSize,
		UpstreamTimeout: 60 * time.Second,
	}
}

// Session is a plain conversation with a bounded memory of recent exchanges.
// Callers serialize access per session.
type Session struct {
	id     string
	llm    llm.LLMProvider
	memory *memory.Window
	cfg    Config
}

var _ rag.Responder = &Session{}

func New(sessionID string, provider llm.LLMProvider, cfg Config) *Session {
	if cfg.UpstreamTimeout <= 0 {
		cfg.UpstreamTimeout = DefaultConfig().UpstreamTimeout
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = constant.ChatMaxTokens
	}
	return &Session{
		id:     sessionID,
		llm:    provider,
		memory: memory.NewWindow(cfg.WindowSize),
		cfg:    cfg,
	}
}

func (s *Session) Respond(ctx context.Context, text string) (*rag.Reply, error) {
	answer, err := s.Reply(ctx, text)
	if err != nil {
		return nil, err
	}
	return &rag.Reply{Text: answer, Mode: rag.ModeChat}, nil
}

// Reply sends persona + remembered turns + the new message to the model.
// The exchange is only remembered when the model answered.
func (s *Session) Reply(ctx context.Context, userMessage string) (string, error) {
	userMessage = strings.TrimSpace(userMessage)
	if userMessage == "" {
		return "", rag.ErrEmptyInput
	}

	ctx, span := tracer.Start(ctx, "chat.Reply")
	defer span.End()
	span.SetAttributes(attribute.String("session.id", s.id), attribute.Int("chat.exchanges", s.memory.Exchanges()))

	history := s.buildMessages(userMessage)

	opts := []llm.Option{
		llm.WithTemperature(s.cfg.Temperature),
		llm.WithMaxTokens(s.cfg.MaxTokens),
	}
	if s.cfg.Model != "" {
		opts = append(opts, llm.WithModel(s.cfg.Model))
	}

	cctx, cancel := context.WithTimeout(ctx, s.cfg.UpstreamTimeout)
	defer cancel()

	answer, err := s.llm.Chat(cctx, history, opts...)
	if err != nil {
		span.RecordError(err)
		return "", rag.Upstream("chat", err)
	}
	answer = strings.TrimSpace(answer)

	s.memory.AppendExchange(userMessage, answer)
	return answer, nil
}

func (s *Session) buildMessages(userMessage string) []llm.Message {
	turns := s.memory.Turns()
	msgs := make([]llm.Message, 0, len(turns)+2)
	msgs = append(msgs, llm.Message{Role: llm.RoleSystem, Content: constant.ChatSystemPrompt})
	for _, t := range turns {
		role := llm.RoleUser
		if t.Role == memory.RoleAssistant {
			role = llm.RoleAssistant
		}
		msgs = append(msgs, llm.Message{Role: role, Content: t.Content})
	}
	return append(msgs, llm.Message{Role: llm.RoleUser, Content: userMessage})
}

// History returns a copy of the remembered turns, oldest first.
func (s *Session) History() []memory.Turn {
	return s.memory.Turns()
}
