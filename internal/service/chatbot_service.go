package service

import (
	"context"
	"time"

	"pdfchat-be/internal/dto"
	"pdfchat-be/internal/pkg/logger"
	"pdfchat-be/pkg/rag"
)

const timestampLayout = "2006-01-02 15:04:05.000000"

// SessionRegistry is the slice of the session registry the HTTP services use.
type SessionRegistry interface {
	RouteMessage(ctx context.Context, sessionID, text string) (*rag.Reply, error)
	AttachDocument(ctx context.Context, sessionID, path, filename string) (rag.DocumentInfo, error)
	DetachDocument(ctx context.Context, sessionID string) bool
	HasDocument(sessionID string) bool
	Document(sessionID string) (rag.DocumentInfo, bool)
	Evict(ctx context.Context, sessionID string) bool
}

type IChatbotService interface {
	SendChat(ctx context.Context, sessionID string, request *dto.SendChatRequest) (*dto.SendChatResponse, error)
	ResetSession(ctx context.Context, sessionID string) bool
}

type chatbotService struct {
	registry SessionRegistry
	logger   logger.ILogger
	now      func() time.Time
}

func NewChatbotService(registry SessionRegistry, log logger.ILogger) IChatbotService {
	return &chatbotService{
		registry: registry,
		logger:   log,
		now:      time.Now,
	}
}

func (s *chatbotService) SendChat(ctx context.Context, sessionID string, request *dto.SendChatRequest) (*dto.SendChatResponse, error) {
	start := s.now()

	reply, err := s.registry.RouteMessage(ctx, sessionID, request.Message)
	if err != nil {
		return nil, err
	}

	s.logger.Debug("CHATBOT", "Reply generated", map[string]interface{}{
		"session_id":  sessionID,
		"mode":        reply.Mode,
		"sources":     len(reply.Sources),
		"duration_ms": time.Since(start).Milliseconds(),
	})

	return &dto.SendChatResponse{
		Reply:     reply.Text,
		Timestamp: s.now().Format(timestampLayout),
		HasPDF:    reply.Mode == rag.ModeDocument,
		Mode:      reply.Mode,
		Sources:   reply.Sources,
	}, nil
}

func (s *chatbotService) ResetSession(ctx context.Context, sessionID string) bool {
	reset := s.registry.Evict(ctx, sessionID)
	if reset {
		s.logger.Info("CHATBOT", "Session reset", map[string]interface{}{"session_id": sessionID})
	}
	return reset
}
