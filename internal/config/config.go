package config

import (
	"errors"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	App     AppConfig
	Session SessionConfig
	Keys    APIKeys
	Ai      AIConfig
	Rag     RagConfig
}

type AppConfig struct {
	Port               string
	Environment        string
	LogFilePath        string
	ActivityLogPath    string
	CorsAllowedOrigins string
	NatsURL            string
	EventTopic         string
	UploadDir          string
	BodyLimit          int // bytes
}

type SessionConfig struct {
	CookieName      string
	Secret          string
	CookieSecure    bool
	TTL             time.Duration
	CleanupInterval time.Duration
}

type APIKeys struct {
	Groq        string
	OpenAI      string
	HuggingFace string
}

type AIConfig struct {
	LLMProvider         string // "groq", "openai", "huggingface" or "ollama"
	LLMModel            string
	LLMBaseURL          string
	EmbeddingProvider   string // "huggingface", "ollama" or "openai"
	EmbeddingModel      string
	EmbeddingBaseURL    string
	OllamaBaseURL       string
	Temperature         float64
	MaxTokens           int
	UpstreamTimeout     time.Duration
	UpstreamMaxAttempts int
}

type RagConfig struct {
	ChunkSize        int
	ChunkOverlap     int
	TopK             int
	MaxContextChars  int
	EmbedConcurrency int
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("Note: .env file not found, usage system environment")
	}

	return &Config{
		App: AppConfig{
			Port:               getEnv("APP_PORT", "5001"),
			Environment:        getEnv("GO_ENV", "development"),
			LogFilePath:        getEnv("LOG_FILE_PATH", "app.log"),
			ActivityLogPath:    getEnv("ACTIVITY_LOG_FILE_PATH", "activity.log"),
			CorsAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:5173"),
			NatsURL:            getEnv("NATS_URL", ""),
			EventTopic:         getEnv("SESSION_EVENT_TOPIC_NAME", "SESSION_EVENTS"),
			UploadDir:          getEnv("UPLOAD_DIR", "uploads"),
			BodyLimit:          getEnvAsInt("MAX_CONTENT_LENGTH", 16*1024*1024),
		},
		Session: SessionConfig{
			CookieName:      getEnv("SESSION_COOKIE_NAME", "pdfchat_session"),
			Secret:          getEnv("SESSION_SECRET", ""),
			CookieSecure:    getEnvAsBool("SESSION_COOKIE_SECURE", false),
			TTL:             getEnvAsDuration("SESSION_TTL", time.Hour),
			CleanupInterval: getEnvAsDuration("SESSION_CLEANUP_INTERVAL", 10*time.Minute),
		},
		Keys: APIKeys{
			Groq:        getEnv("GROQ_API_KEY", ""),
			OpenAI:      getEnv("OPENAI_API_KEY", ""),
			HuggingFace: getEnv("HUGGINGFACE_API_KEY", ""),
		},
		Ai: AIConfig{
			LLMProvider:         getEnv("LLM_PROVIDER", "groq"),
			LLMModel:            getEnv("LLM_MODEL", "llama-3.3-70b-versatile"),
			LLMBaseURL:          getEnv("LLM_BASE_URL", ""),
			EmbeddingProvider:   getEnv("EMBEDDING_PROVIDER", "huggingface"),
			EmbeddingModel:      getEnv("EMBEDDING_MODEL", ""),
			EmbeddingBaseURL:    getEnv("EMBEDDING_BASE_URL", ""),
			OllamaBaseURL:       getEnv("OLLAMA_BASE_URL", "http://localhost:11434"),
			Temperature:         getEnvAsFloat("LLM_TEMPERATURE", 0.7),
			MaxTokens:           getEnvAsInt("LLM_MAX_TOKENS", 1000),
			UpstreamTimeout:     getEnvAsDuration("UPSTREAM_TIMEOUT", 60*time.Second),
			UpstreamMaxAttempts: getEnvAsInt("UPSTREAM_MAX_ATTEMPTS", 2),
		},
		Rag: RagConfig{
			ChunkSize:        getEnvAsInt("RAG_CHUNK_SIZE", 1000),
			ChunkOverlap:     getEnvAsInt("RAG_CHUNK_OVERLAP", 200),
			TopK:             getEnvAsInt("RAG_TOP_K", 4),
			MaxContextChars:  getEnvAsInt("RAG_MAX_CONTEXT_CHARS", 12000),
			EmbedConcurrency: getEnvAsInt("RAG_EMBED_CONCURRENCY", 4),
		},
	}
}

// Validate reports settings the server cannot start without.
func (c *Config) Validate() error {
	var errs []error
	switch strings.ToLower(c.Ai.LLMProvider) {
	case "groq":
		if c.Keys.Groq == "" {
			errs = append(errs, errors.New("GROQ_API_KEY is required when LLM_PROVIDER=groq"))
		}
	case "openai":
		if c.Keys.OpenAI == "" {
			errs = append(errs, errors.New("OPENAI_API_KEY is required when LLM_PROVIDER=openai"))
		}
	case "huggingface":
		if c.Keys.HuggingFace == "" {
			errs = append(errs, errors.New("HUGGINGFACE_API_KEY is required when LLM_PROVIDER=huggingface"))
		}
	case "ollama":
	default:
		errs = append(errs, errors.New("unsupported LLM_PROVIDER: "+c.Ai.LLMProvider))
	}
	if c.Rag.ChunkOverlap >= c.Rag.ChunkSize {
		errs = append(errs, errors.New("RAG_CHUNK_OVERLAP must be smaller than RAG_CHUNK_SIZE"))
	}
	return errors.Join(errs...)
}

func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	strValue := getEnv(key, "")
	if value, err := strconv.Atoi(strValue); err == nil {
		return value
	}
	return fallback
}

func getEnvAsFloat(key string, fallback float64) float64 {
	strValue := getEnv(key, "")
	if value, err := strconv.ParseFloat(strValue, 64); err == nil {
		return value
	}
	return fallback
}

func getEnvAsBool(key string, fallback bool) bool {
	strValue := getEnv(key, "")
	if value, err := strconv.ParseBool(strValue); err == nil {
		return value
	}
	return fallback
}

// getEnvAsDuration accepts Go durations ("90s", "1h") or plain seconds.
func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	strValue := getEnv(key, "")
	if strValue == "" {
		return fallback
	}
	if value, err := time.ParseDuration(strValue); err == nil {
		return value
	}
	if secs, err := strconv.Atoi(strValue); err == nil {
		return time.Duration(secs) * time.Second
	}
	return fallback
}
