// Package bootstrap turns a config.Config into a ready conversation service.
// Both the API and the terminal entrypoints go through it.
package bootstrap

import (
	"context"
	"fmt"

	"github.com/PabloGalante/medibot/internal/adapters/llm"
	firestorestore "github.com/PabloGalante/medibot/internal/adapters/storage/firestore"
	memstore "github.com/PabloGalante/medibot/internal/adapters/storage/memory"
	"github.com/PabloGalante/medibot/internal/app/conversation"
	"github.com/PabloGalante/medibot/internal/config"
	"github.com/PabloGalante/medibot/internal/domain"
	"github.com/PabloGalante/medibot/internal/observability"
)

// NewGenerator picks the text generator named by cfg.Provider.
func NewGenerator(ctx context.Context, cfg *config.Config) (domain.TextGenerator, error) {
	log := observability.Logger()

	switch cfg.Provider {
	case config.ProviderMock:
		log.Info("using mock LLM client")
		return llm.NewMockLLM(), nil

	case config.ProviderOpenAI:
		log.Info("using OpenAI LLM client", "base_url", cfg.OpenAIBaseURL)
		client, err := llm.NewOpenAIClient(llm.OpenAIConfig{
			APIKey:    cfg.OpenAIAPIKey,
			ModelName: cfg.ModelName,
			BaseURL:   cfg.OpenAIBaseURL,
		})
		if err != nil {
			return nil, fmt.Errorf("init openai client: %w", err)
		}
		return client, nil

	case config.ProviderGemini:
		log.Info("using Gemini LLM client")
		client, err := llm.NewGeminiClient(ctx, llm.GeminiConfig{
			APIKey:    cfg.GeminiAPIKey,
			ModelName: cfg.ModelName,
		})
		if err != nil {
			return nil, fmt.Errorf("init gemini client: %w", err)
		}
		return client, nil

	default:
		return nil, fmt.Errorf("unknown LLM provider %q", cfg.Provider)
	}
}

// NewStores returns the session and message stores for cfg.StorageBackend.
// The returned close func is never nil.
func NewStores(ctx context.Context, cfg *config.Config) (domain.SessionStore, domain.MessageStore, func() error, error) {
	log := observability.Logger()

	switch cfg.StorageBackend {
	case config.StorageFirestore:
		log.Info("using Firestore storage", "project", cfg.GCPProjectID)
		fsStore, err := firestorestore.NewStore(ctx, cfg.GCPProjectID)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("init firestore store: %w", err)
		}
		// 1 store, implements 2 interfaces
		return fsStore, fsStore, fsStore.Close, nil

	case config.StorageMemory:
		log.Info("using in-memory storage")
		return memstore.NewSessionStore(), memstore.NewMessageStore(), func() error { return nil }, nil

	default:
		return nil, nil, nil, fmt.Errorf("unknown storage backend %q", cfg.StorageBackend)
	}
}

// NewService wires generator and stores into the conversation service.
func NewService(ctx context.Context, cfg *config.Config) (*conversation.Service, func() error, error) {
	gen, err := NewGenerator(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}

	sessions, messages, closeFn, err := NewStores(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}

	return conversation.NewService(gen, sessions, messages), closeFn, nil
}
