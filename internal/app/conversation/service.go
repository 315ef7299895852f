package conversation

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/PabloGalante/medibot/internal/app/analysis"
	"github.com/PabloGalante/medibot/internal/app/intake"
	"github.com/PabloGalante/medibot/internal/domain"
	"github.com/PabloGalante/medibot/internal/observability"
)

type Service struct {
	analyzer     *analysis.Requester
	sessionStore domain.SessionStore
	messageStore domain.MessageStore
	now          func() time.Time

	// submissions to a session run one at a time; sessions share a fixed
	// set of stripes so the table never grows
	locks [lockStripes]sync.Mutex
}

const lockStripes = 64

func NewService(
	gen domain.TextGenerator,
	sessionStore domain.SessionStore,
	messageStore domain.MessageStore,
) *Service {
	return &Service{
		analyzer:     analysis.NewRequester(gen),
		sessionStore: sessionStore,
		messageStore: messageStore,
		now:          time.Now,
	}
}

func (s *Service) lock(id domain.SessionID) func() {
	h := fnv.New32a()
	_, _ = h.Write([]byte(id))
	mu := &s.locks[h.Sum32()%lockStripes]
	mu.Lock()
	return mu.Unlock
}

type StartSessionOutput struct {
	Session      *domain.Session
	Messages     []*domain.Message
	NextQuestion string
}

func (s *Service) StartSession(ctx context.Context) (*StartSessionOutput, error) {
	now := s.now()
	session := &domain.Session{
		ID:        domain.SessionID(uuid.NewString()),
		CreatedAt: now,
		UpdatedAt: now,
	}

	ctx = observability.WithSessionID(ctx, string(session.ID))
	log := observability.LoggerFromContext(ctx)
	log.Info("starting new session")

	state := intake.NewState()

	if err := s.sessionStore.CreateSession(ctx, session); err != nil {
		log.Error("failed to create session", "error", err)
		return nil, err
	}

	msgs := s.toMessages(session.ID, 0, state.Transcript, now)
	if err := s.messageStore.SaveMessages(ctx, msgs...); err != nil {
		log.Error("failed to save seed messages", "error", err)
		return nil, err
	}

	next, _ := intake.NextQuestion(session.Record)
	log.Info("session started")

	return &StartSessionOutput{
		Session:      session,
		Messages:     msgs,
		NextQuestion: next,
	}, nil
}

type SendMessageInput struct {
	SessionID domain.SessionID
	Text      string
}

type SendMessageOutput struct {
	// Accepted is false when the text was blank; nothing was written.
	Accepted     bool
	Session      *domain.Session
	NewMessages  []*domain.Message
	NextQuestion string

	// Analysis is set on the submission that completes the record.
	Analysis *domain.AnalysisResult
	// AnalysisErr is the display error when generation fell back.
	AnalysisErr error
}

func (s *Service) SendMessage(ctx context.Context, in SendMessageInput) (*SendMessageOutput, error) {
	ctx = observability.WithSessionID(ctx, string(in.SessionID))
	log := observability.LoggerFromContext(ctx)

	unlock := s.lock(in.SessionID)
	defer unlock()

	session, state, err := s.loadState(ctx, in.SessionID)
	if err != nil {
		return nil, err
	}

	next, err := s.submit(ctx, session, state, in.Text)
	if errors.Is(err, domain.ErrBlankInput) {
		log.Debug("blank input ignored")
		q, _ := intake.NextQuestion(session.Record)
		return &SendMessageOutput{
			Accepted:     false,
			Session:      session,
			NextQuestion: q,
		}, nil
	}
	if err != nil {
		return nil, err
	}

	out := &SendMessageOutput{
		Accepted:     true,
		Session:      session,
		NewMessages:  next.msgs,
		NextQuestion: next.question,
	}

	if session.Complete && session.Analysis == nil {
		res, genErr := s.generateAnalysis(ctx, session)
		if res == nil {
			return nil, genErr
		}
		out.Analysis = res
		out.AnalysisErr = genErr
	}

	log.Info("submission accepted", "filled", session.Record.Filled(), "complete", session.Complete)
	return out, nil
}

type submitResult struct {
	msgs     []*domain.Message
	question string
}

// submit runs the controller and persists what it appended. session is
// updated in place on success.
//
// Messages are written first and keyed by seq. If the envelope update then
// fails, the new pair sits past the record's transcript length: loadState
// hides it and the next accepted submission overwrites the same seqs.
func (s *Service) submit(ctx context.Context, session *domain.Session, state domain.SessionState, text string) (*submitResult, error) {
	updated, question, err := intake.Submit(state, text)
	if err != nil {
		return nil, err
	}

	now := s.now()
	added := updated.Transcript[len(state.Transcript):]
	msgs := s.toMessages(session.ID, len(state.Transcript), added, now)

	if err := s.messageStore.SaveMessages(ctx, msgs...); err != nil {
		return nil, fmt.Errorf("save messages: %w", err)
	}

	session.Record = updated.Record
	session.Complete = updated.Complete
	session.UpdatedAt = now
	if err := s.sessionStore.UpdateSession(ctx, session); err != nil {
		return nil, fmt.Errorf("update session: %w", err)
	}

	return &submitResult{msgs: msgs, question: question}, nil
}

// generateAnalysis asks the requester once and stores whatever comes back,
// fallback included, so the session never asks again.
func (s *Service) generateAnalysis(ctx context.Context, session *domain.Session) (*domain.AnalysisResult, error) {
	res, genErr := s.analyzer.Generate(ctx, session.Record)
	if genErr != nil && !errors.Is(genErr, domain.ErrAnalysisUnavailable) {
		return nil, genErr
	}

	session.Analysis = &res
	session.UpdatedAt = s.now()
	if err := s.sessionStore.UpdateSession(ctx, session); err != nil {
		return nil, fmt.Errorf("store analysis: %w", err)
	}
	return &res, genErr
}

func (s *Service) GetSessionTimeline(
	ctx context.Context,
	sessionID domain.SessionID,
	limit int,
) (*domain.Session, []*domain.Message, error) {

	ctx = observability.WithSessionID(ctx, string(sessionID))
	log := observability.LoggerFromContext(ctx).With("limit", limit)

	session, err := s.sessionStore.GetSession(ctx, sessionID)
	if err != nil {
		log.Debug("failed to get session", "error", err)
		return nil, nil, err
	}

	msgs, err := s.messageStore.GetMessagesBySession(ctx, sessionID, 0)
	if err != nil {
		log.Error("failed to get messages", "error", err)
		return nil, nil, err
	}

	// entries past the record belong to a turn whose envelope write failed
	msgs = trimToRecord(msgs, session.Record)
	if limit > 0 && len(msgs) > limit {
		msgs = msgs[len(msgs)-limit:]
	}

	log.Debug("fetched session timeline", "message_count", len(msgs))

	return session, msgs, nil
}

// GetAnalysis returns the stored analysis. A complete session without one
// gets it generated here, once.
func (s *Service) GetAnalysis(ctx context.Context, sessionID domain.SessionID) (*domain.AnalysisResult, error) {
	ctx = observability.WithSessionID(ctx, string(sessionID))

	unlock := s.lock(sessionID)
	defer unlock()

	session, err := s.sessionStore.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if !session.Complete {
		return nil, domain.ErrRecordIncomplete
	}
	if session.Analysis != nil {
		return session.Analysis, nil
	}

	res, err := s.generateAnalysis(ctx, session)
	if res == nil {
		return nil, err
	}
	return res, nil
}

// EndSession discards the session and its transcript.
func (s *Service) EndSession(ctx context.Context, sessionID domain.SessionID) error {
	ctx = observability.WithSessionID(ctx, string(sessionID))
	log := observability.LoggerFromContext(ctx)

	unlock := s.lock(sessionID)
	defer unlock()

	if _, err := s.sessionStore.GetSession(ctx, sessionID); err != nil {
		return err
	}
	if err := s.messageStore.DeleteMessagesBySession(ctx, sessionID); err != nil {
		log.Error("failed to delete messages", "error", err)
		return err
	}
	if err := s.sessionStore.DeleteSession(ctx, sessionID); err != nil {
		log.Error("failed to delete session", "error", err)
		return err
	}

	log.Info("session ended")
	return nil
}

// loadState rebuilds the controller's SessionState from the stores.
func (s *Service) loadState(ctx context.Context, id domain.SessionID) (*domain.Session, domain.SessionState, error) {
	session, msgs, err := s.GetSessionTimeline(ctx, id, 0)
	if err != nil {
		return nil, domain.SessionState{}, err
	}

	transcript := make([]domain.TranscriptEntry, 0, len(msgs))
	for _, m := range msgs {
		transcript = append(transcript, domain.TranscriptEntry{Role: m.Author, Text: m.Text})
	}

	return session, domain.SessionState{
		Record:     session.Record,
		Transcript: transcript,
		Complete:   session.Complete,
	}, nil
}

func trimToRecord(msgs []*domain.Message, rec domain.PatientRecord) []*domain.Message {
	n := intake.TranscriptLen(rec)
	out := msgs[:0:0]
	for _, m := range msgs {
		if m.Seq < n {
			out = append(out, m)
		}
	}
	return out
}

func (s *Service) toMessages(id domain.SessionID, firstSeq int, entries []domain.TranscriptEntry, at time.Time) []*domain.Message {
	out := make([]*domain.Message, 0, len(entries))
	for i, e := range entries {
		out = append(out, &domain.Message{
			ID:        domain.MessageID(uuid.NewString()),
			SessionID: id,
			Seq:       firstSeq + i,
			Author:    e.Role,
			Text:      e.Text,
			CreatedAt: at,
		})
	}
	return out
}
