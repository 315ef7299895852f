package domain

import "context"

// HarmCategory is a provider-side content filter category.
type HarmCategory string

const (
	HarmHarassment HarmCategory = "harassment"
	HarmHate       HarmCategory = "hate"
	HarmSexual     HarmCategory = "sexual"
	HarmDangerous  HarmCategory = "dangerous"
)

// BlockThreshold tells the provider how eagerly to withhold output.
type BlockThreshold string

const (
	BlockNone           BlockThreshold = "block_none"
	BlockOnlyHigh       BlockThreshold = "block_only_high"
	BlockMediumAndAbove BlockThreshold = "block_medium_and_above"
	BlockLowAndAbove    BlockThreshold = "block_low_and_above"
)

type SafetySetting struct {
	Category  HarmCategory
	Threshold BlockThreshold
}

// TextGenerator turns a single prompt into free text. Implementations are
// stateless: every call carries its whole context in the prompt.
type TextGenerator interface {
	Generate(ctx context.Context, prompt string, safety []SafetySetting) (string, error)
	Model() string
}

// SessionStore defines session's persistence
type SessionStore interface {
	CreateSession(ctx context.Context, session *Session) error
	UpdateSession(ctx context.Context, session *Session) error
	GetSession(ctx context.Context, id SessionID) (*Session, error)
	DeleteSession(ctx context.Context, id SessionID) error
}

// MessageStore defines transcript persistence. Messages are keyed by
// (SessionID, Seq); saving a seq that already exists replaces it.
type MessageStore interface {
	SaveMessages(ctx context.Context, msgs ...*Message) error
	GetMessagesBySession(ctx context.Context, sessionID SessionID, limit int) ([]*Message, error)
	DeleteMessagesBySession(ctx context.Context, sessionID SessionID) error
}
