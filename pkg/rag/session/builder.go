package session

import (
	"context"

	"pdfchat-be/pkg/llm"
	"pdfchat-be/pkg/rag"
	"pdfchat-be/pkg/rag/chat"
	"pdfchat-be/pkg/rag/document"
)

// Builder creates the per-session responders.
type Builder interface {
	NewChat(sessionID string) rag.Responder
	NewDocument(ctx context.Context, sessionID, path, filename string) (rag.DocumentResponder, error)
}

type DefaultBuilder struct {
	LLM            llm.LLMProvider
	ChatConfig     chat.Config
	DocumentDeps   document.Deps
	DocumentConfig document.Config
}

func (b *DefaultBuilder) NewChat(sessionID string) rag.Responder {
	return chat.New(sessionID, b.LLM, b.ChatConfig)
}

func (b *DefaultBuilder) NewDocument(ctx context.Context, sessionID, path, filename string) (rag.DocumentResponder, error) {
	deps := b.DocumentDeps
	if deps.LLM == nil {
		deps.LLM = b.LLM
	}
	s, err := document.New(ctx, sessionID, path, filename, deps, b.DocumentConfig)
	if err != nil {
		return nil, err
	}
	return s, nil
}
