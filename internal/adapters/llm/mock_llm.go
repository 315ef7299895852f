package llm

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/PabloGalante/medibot/internal/domain"
)

// MockLLM is a deterministic domain.TextGenerator for local runs and tests.
// It records every call so tests can assert on what was sent.
type MockLLM struct {
	mu      sync.Mutex
	err     error
	reply   string
	prompts []string
	safety  [][]domain.SafetySetting
}

func NewMockLLM() *MockLLM {
	return &MockLLM{}
}

// NewFailingLLM returns a mock whose every call fails with err.
func NewFailingLLM(err error) *MockLLM {
	return &MockLLM{err: err}
}

// NewFixedLLM returns a mock that always answers with reply.
func NewFixedLLM(reply string) *MockLLM {
	return &MockLLM{reply: reply}
}

func (m *MockLLM) Model() string { return "mock" }

func (m *MockLLM) Generate(ctx context.Context, prompt string, safety []domain.SafetySetting) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.prompts = append(m.prompts, prompt)
	m.safety = append(m.safety, safety)

	if m.err != nil {
		return "", m.err
	}
	if m.reply != "" {
		return m.reply, nil
	}

	firstLine, _, _ := strings.Cut(prompt, "\n")
	return fmt.Sprintf("Mock analysis for %q (%d chars). Please consult a healthcare professional.", firstLine, len(prompt)), nil
}

// Calls reports how many times Generate ran.
func (m *MockLLM) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.prompts)
}

// LastPrompt returns the most recent prompt and its safety settings.
func (m *MockLLM) LastPrompt() (string, []domain.SafetySetting) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.prompts) == 0 {
		return "", nil
	}
	i := len(m.prompts) - 1
	return m.prompts[i], m.safety[i]
}
