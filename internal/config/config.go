package config

import (
	"errors"
	"fmt"
	"os"
)

type Provider string

const (
	ProviderGemini Provider = "gemini"
	ProviderOpenAI Provider = "openai"
	ProviderMock   Provider = "mock"
)

const (
	StorageMemory    = "memory"
	StorageFirestore = "firestore"
)

// ErrMissingCredential means the selected provider has no API key.
var ErrMissingCredential = errors.New("missing API credential")

type Config struct {
	Port     string
	LogLevel string

	Provider      Provider
	ModelName     string // empty = provider default
	GeminiAPIKey  string
	OpenAIAPIKey  string
	OpenAIBaseURL string

	StorageBackend string // "memory" o "firestore"
	GCPProjectID   string
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// Load reads all env vars, builds the config and validates it.
func Load() (*Config, error) {
	cfg := &Config{
		Port:     getEnv("MEDIBOT_PORT", "8080"),
		LogLevel: getEnv("MEDIBOT_LOG_LEVEL", "info"),

		Provider:      Provider(getEnv("MEDIBOT_LLM_PROVIDER", string(ProviderGemini))),
		ModelName:     getEnv("MEDIBOT_MODEL_NAME", ""),
		GeminiAPIKey:  getEnv("GEMINI_API_KEY", ""),
		OpenAIAPIKey:  getEnv("OPENAI_API_KEY", ""),
		OpenAIBaseURL: getEnv("OPENAI_BASE_URL", ""),

		StorageBackend: getEnv("MEDIBOT_STORAGE_BACKEND", StorageMemory),
		GCPProjectID:   getEnv("MEDIBOT_GCP_PROJECT", ""),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reports the first startup-fatal problem in cfg.
func (c *Config) Validate() error {
	switch c.Provider {
	case ProviderGemini:
		if c.GeminiAPIKey == "" {
			return fmt.Errorf("%w: GEMINI_API_KEY must be set", ErrMissingCredential)
		}
	case ProviderOpenAI:
		if c.OpenAIAPIKey == "" {
			return fmt.Errorf("%w: OPENAI_API_KEY must be set", ErrMissingCredential)
		}
	case ProviderMock:
	default:
		return fmt.Errorf("unknown MEDIBOT_LLM_PROVIDER %q", c.Provider)
	}

	switch c.StorageBackend {
	case StorageMemory:
	case StorageFirestore:
		if c.GCPProjectID == "" {
			return errors.New("MEDIBOT_GCP_PROJECT is required for firestore storage backend")
		}
	default:
		return fmt.Errorf("unknown MEDIBOT_STORAGE_BACKEND %q", c.StorageBackend)
	}

	return nil
}
