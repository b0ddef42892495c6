package bootstrap

import (
	"crypto/rand"
	"log"
	"strings"
	"time"

	"pdfchat-be/internal/config"
	"pdfchat-be/internal/controller"
	"pdfchat-be/internal/pkg/logger"
	"pdfchat-be/internal/pkg/serverutils"
	"pdfchat-be/internal/repository/memory"
	"pdfchat-be/internal/service"
	"pdfchat-be/pkg/embedding"
	embeddingfactory "pdfchat-be/pkg/embedding/factory"
	"pdfchat-be/pkg/events"
	"pdfchat-be/pkg/llm"
	llmfactory "pdfchat-be/pkg/llm/factory"
	pktNats "pdfchat-be/pkg/nats"
	"pdfchat-be/pkg/pdf"
	"pdfchat-be/pkg/rag/chat"
	"pdfchat-be/pkg/rag/document"
	"pdfchat-be/pkg/rag/session"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
)

const retryInitialInterval = 500 * time.Millisecond

type Container struct {
	Logger        logger.ILogger
	SessionCookie serverutils.SessionCookieConfig

	// Controllers
	HealthController   controller.IHealthController
	ChatbotController  controller.IChatbotController
	DocumentController controller.IDocumentController

	// Background Services (Exposed for main.go to run)
	EventService service.IEventService
	Registry     *session.Registry

	closers []func()
}

func NewContainer(cfg *config.Config) *Container {
	// 1. Core Facades
	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.IsProduction())
	activityLogger := logger.NewIsolatedLogger(cfg.App.ActivityLogPath)

	c := &Container{Logger: sysLogger}
	c.closers = append(c.closers, func() {
		_ = activityLogger.Sync()
		_ = sysLogger.Sync()
	})

	// 2. Event Bus
	watermillLogger := watermill.NewStdLogger(false, false)
	pubSub := gochannel.NewGoChannel(
		gochannel.Config{},
		watermillLogger,
	)
	c.closers = append(c.closers, func() { _ = pubSub.Close() })

	var forwarder events.Publisher
	if cfg.App.NatsURL != "" {
		natsPub, err := pktNats.NewPublisher(cfg.App.NatsURL)
		if err != nil {
			log.Printf("[WARN] Failed to connect to NATS Publisher: %v", err)
		} else {
			forwarder = natsPub
			c.closers = append(c.closers, natsPub.Close)
		}
	}
	c.EventService = service.NewEventService(pubSub, cfg.App.EventTopic, activityLogger, sysLogger, forwarder)

	// 3. Providers
	llmProvider, err := llmfactory.NewLLMProvider(llmfactory.Config{
		Provider: cfg.Ai.LLMProvider,
		Model:    cfg.Ai.LLMModel,
		BaseURL:  llmBaseURL(cfg),
		APIKey:   llmAPIKey(cfg),
	})
	if err != nil {
		log.Fatalf("[FATAL] Failed to initialize LLM Provider: %v", err)
	}
	llmProvider = llm.WithRetry(llmProvider, cfg.Ai.UpstreamMaxAttempts, retryInitialInterval)
	log.Printf("[INFO] Using LLM Provider: %s (%s)", cfg.Ai.LLMProvider, cfg.Ai.LLMModel)

	embeddingProvider, err := embeddingfactory.NewEmbeddingProvider(embeddingfactory.Config{
		Provider: cfg.Ai.EmbeddingProvider,
		Model:    cfg.Ai.EmbeddingModel,
		BaseURL:  embeddingBaseURL(cfg),
		APIKey:   embeddingAPIKey(cfg),
	})
	if err != nil {
		log.Fatalf("[FATAL] Failed to initialize Embedding Provider: %v", err)
	}
	embeddingProvider = embedding.WithRetry(embeddingProvider, cfg.Ai.UpstreamMaxAttempts, retryInitialInterval)
	log.Printf("[INFO] Using Embedding Provider: %s", cfg.Ai.EmbeddingProvider)

	// 4. Sessions
	sessionRepo := memory.NewSessionRepository(cfg.Session.TTL, cfg.Session.CleanupInterval)

	builder := &session.DefaultBuilder{
		LLM: llmProvider,
		ChatConfig: chat.Config{
			Temperature:     cfg.Ai.Temperature,
			MaxTokens:       cfg.Ai.MaxTokens,
			WindowSize:      chat.DefaultConfig().WindowSize,
			UpstreamTimeout: cfg.Ai.UpstreamTimeout,
		},
		DocumentDeps: document.Deps{
			Loader:   pdf.NewLoader(),
			Embedder: embeddingProvider,
			Logger:   sysLogger,
		},
		DocumentConfig: document.Config{
			ChunkSize:        cfg.Rag.ChunkSize,
			ChunkOverlap:     cfg.Rag.ChunkOverlap,
			TopK:             cfg.Rag.TopK,
			MaxContextChars:  cfg.Rag.MaxContextChars,
			EmbedConcurrency: cfg.Rag.EmbedConcurrency,
			Temperature:      cfg.Ai.Temperature,
			MaxTokens:        cfg.Ai.MaxTokens,
			UpstreamTimeout:  cfg.Ai.UpstreamTimeout,
		},
	}
	c.Registry = session.NewRegistry(sessionRepo, builder, c.EventService, sysLogger)

	c.SessionCookie = serverutils.SessionCookieConfig{
		Name:   cfg.Session.CookieName,
		Secret: sessionSecret(cfg.Session.Secret),
		Secure: cfg.Session.CookieSecure,
	}

	// 5. Services & Controllers
	chatbotService := service.NewChatbotService(c.Registry, sysLogger)
	documentService := service.NewDocumentService(c.Registry, cfg.App.UploadDir, sysLogger)

	c.HealthController = controller.NewHealthController()
	c.ChatbotController = controller.NewChatbotController(chatbotService)
	c.DocumentController = controller.NewDocumentController(documentService)

	return c
}

// Close releases the event bus and flushes the loggers, in reverse order of creation.
func (c *Container) Close() {
	for i := len(c.closers) - 1; i >= 0; i-- {
		c.closers[i]()
	}
}

func llmAPIKey(cfg *config.Config) string {
	switch strings.ToLower(cfg.Ai.LLMProvider) {
	case "openai":
		return cfg.Keys.OpenAI
	case "huggingface":
		return cfg.Keys.HuggingFace
	case "ollama":
		return ""
	default:
		return cfg.Keys.Groq
	}
}

func llmBaseURL(cfg *config.Config) string {
	if cfg.Ai.LLMBaseURL == "" && cfg.Ai.LLMProvider == "ollama" {
		return cfg.Ai.OllamaBaseURL
	}
	return cfg.Ai.LLMBaseURL
}

func embeddingAPIKey(cfg *config.Config) string {
	switch strings.ToLower(cfg.Ai.EmbeddingProvider) {
	case "openai":
		return cfg.Keys.OpenAI
	case "ollama":
		return ""
	default:
		return cfg.Keys.HuggingFace
	}
}

func embeddingBaseURL(cfg *config.Config) string {
	if cfg.Ai.EmbeddingBaseURL == "" && cfg.Ai.EmbeddingProvider == "ollama" {
		return cfg.Ai.OllamaBaseURL
	}
	return cfg.Ai.EmbeddingBaseURL
}

// sessionSecret falls back to a per-process key; cookies then do not survive a restart.
func sessionSecret(configured string) []byte {
	if configured != "" {
		return []byte(configured)
	}
	log.Printf("[WARN] SESSION_SECRET not set, using a random key for this process")
	secret := make([]byte, 32)
	if _, err := rand.Read(secret); err != nil {
		log.Fatalf("[FATAL] Failed to generate session secret: %v", err)
	}
	return secret
}
