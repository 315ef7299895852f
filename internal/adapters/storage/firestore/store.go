package firestore

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/PabloGalante/medibot/internal/domain"
)

type Store struct {
	client *firestore.Client
}

// NewStore creates a Firestore store.
// Uses the project passed (MEDIBOT_GCP_PROJECT).
func NewStore(ctx context.Context, projectID string) (*Store, error) {
	if projectID == "" {
		return nil, fmt.Errorf("projectID is required for Firestore store")
	}

	client, err := firestore.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("creating firestore client: %w", err)
	}

	return &Store{client: client}, nil
}

func (s *Store) Close() error {
	return s.client.Close()
}

// ─────────────────────────────────────────
// Helpers
// ─────────────────────────────────────────

func (s *Store) sessionsCol() *firestore.CollectionRef {
	return s.client.Collection("intake_sessions")
}

func (s *Store) sessionDoc(id domain.SessionID) *firestore.DocumentRef {
	return s.sessionsCol().Doc(string(id))
}

func (s *Store) messagesCol(sessionID domain.SessionID) *firestore.CollectionRef {
	return s.sessionDoc(sessionID).Collection("messages")
}

// messageDoc keys a transcript entry by its position, so writing the same
// seq twice lands on the same document.
func (s *Store) messageDoc(sessionID domain.SessionID, seq int) *firestore.DocumentRef {
	return s.messagesCol(sessionID).Doc(fmt.Sprintf("%06d", seq))
}

// ─────────────────────────────────────────
// Firestore Types
// ─────────────────────────────────────────

type recordDoc struct {
	Age             *string `firestore:"age"`
	Gender          *string `firestore:"gender"`
	PrimarySymptom  *string `firestore:"primary_symptom"`
	SymptomDuration *string `firestore:"symptom_duration"`
	Severity        *string `firestore:"severity"`
	MedicalHistory  *string `firestore:"medical_history"`
}

type analysisDoc struct {
	Text        string    `firestore:"text"`
	Available   bool      `firestore:"available"`
	Model       string    `firestore:"model"`
	GeneratedAt time.Time `firestore:"generated_at"`
}

type sessionDoc struct {
	Record    recordDoc    `firestore:"record"`
	Complete  bool         `firestore:"complete"`
	Analysis  *analysisDoc `firestore:"analysis"`
	CreatedAt time.Time    `firestore:"created_at"`
	UpdatedAt time.Time    `firestore:"updated_at"`
}

type messageDoc struct {
	ID        string    `firestore:"id"`
	SessionID string    `firestore:"session_id"`
	Seq       int       `firestore:"seq"`
	Author    string    `firestore:"author"`
	Text      string    `firestore:"text"`
	CreatedAt time.Time `firestore:"created_at"`
}

func toSessionDoc(session *domain.Session) sessionDoc {
	r := session.Record
	doc := sessionDoc{
		Record: recordDoc{
			Age:             r.Age,
			Gender:          r.Gender,
			PrimarySymptom:  r.PrimarySymptom,
			SymptomDuration: r.SymptomDuration,
			Severity:        r.Severity,
			MedicalHistory:  r.MedicalHistory,
		},
		Complete:  session.Complete,
		CreatedAt: session.CreatedAt,
		UpdatedAt: session.UpdatedAt,
	}
	if a := session.Analysis; a != nil {
		doc.Analysis = &analysisDoc{
			Text:        a.Text,
			Available:   a.Available,
			Model:       a.Model,
			GeneratedAt: a.GeneratedAt,
		}
	}
	return doc
}

func fromSessionDoc(id domain.SessionID, doc sessionDoc) (*domain.Session, error) {
	rec := domain.PatientRecord{
		Age:             doc.Record.Age,
		Gender:          doc.Record.Gender,
		PrimarySymptom:  doc.Record.PrimarySymptom,
		SymptomDuration: doc.Record.SymptomDuration,
		Severity:        doc.Record.Severity,
		MedicalHistory:  doc.Record.MedicalHistory,
	}
	if err := rec.Validate(); err != nil {
		return nil, fmt.Errorf("session %s: %w", id, err)
	}

	session := &domain.Session{
		ID:        id,
		CreatedAt: doc.CreatedAt,
		UpdatedAt: doc.UpdatedAt,
		Record:    rec,
		Complete:  doc.Complete,
	}
	if a := doc.Analysis; a != nil {
		session.Analysis = &domain.AnalysisResult{
			Text:        a.Text,
			Available:   a.Available,
			Model:       a.Model,
			GeneratedAt: a.GeneratedAt,
		}
	}
	return session, nil
}

// ─────────────────────────────────────────
// SessionStore implementation
// ─────────────────────────────────────────

func (s *Store) CreateSession(ctx context.Context, session *domain.Session) error {
	_, err := s.sessionDoc(session.ID).Create(ctx, toSessionDoc(session))
	if err != nil {
		if status.Code(err) == codes.AlreadyExists {
			return domain.ErrSessionExists
		}
		return fmt.Errorf("firestore CreateSession: %w", err)
	}
	return nil
}

func (s *Store) UpdateSession(ctx context.Context, session *domain.Session) error {
	ref := s.sessionDoc(session.ID)
	doc := toSessionDoc(session)

	err := s.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		if _, err := tx.Get(ref); err != nil {
			return err
		}
		return tx.Set(ref, doc)
	})
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return domain.ErrSessionNotFound
		}
		return fmt.Errorf("firestore UpdateSession: %w", err)
	}
	return nil
}

func (s *Store) GetSession(ctx context.Context, id domain.SessionID) (*domain.Session, error) {
	snap, err := s.sessionDoc(id).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, domain.ErrSessionNotFound
		}
		return nil, fmt.Errorf("firestore GetSession: %w", err)
	}

	var doc sessionDoc
	if err := snap.DataTo(&doc); err != nil {
		return nil, fmt.Errorf("firestore GetSession decode: %w", err)
	}

	return fromSessionDoc(id, doc)
}

func (s *Store) DeleteSession(ctx context.Context, id domain.SessionID) error {
	ref := s.sessionDoc(id)
	if _, err := ref.Get(ctx); err != nil {
		if status.Code(err) == codes.NotFound {
			return domain.ErrSessionNotFound
		}
		return fmt.Errorf("firestore DeleteSession: %w", err)
	}

	if _, err := ref.Delete(ctx); err != nil {
		return fmt.Errorf("firestore DeleteSession: %w", err)
	}
	return nil
}

// ─────────────────────────────────────────
// MessageStore implementation
// ─────────────────────────────────────────

func (s *Store) SaveMessages(ctx context.Context, msgs ...*domain.Message) error {
	if len(msgs) == 0 {
		return nil
	}

	// the entries of one turn are written together or not at all
	err := s.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		for _, msg := range msgs {
			doc := messageDoc{
				ID:        string(msg.ID),
				SessionID: string(msg.SessionID),
				Seq:       msg.Seq,
				Author:    string(msg.Author),
				Text:      msg.Text,
				CreatedAt: msg.CreatedAt,
			}
			if err := tx.Set(s.messageDoc(msg.SessionID, msg.Seq), doc); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("firestore SaveMessages: %w", err)
	}
	return nil
}

func (s *Store) GetMessagesBySession(ctx context.Context, sessionID domain.SessionID, limit int) ([]*domain.Message, error) {
	q := s.messagesCol(sessionID).OrderBy("seq", firestore.Asc)
	if limit > 0 {
		q = q.LimitToLast(limit)
	}

	snaps, err := q.Documents(ctx).GetAll()
	if err != nil {
		return nil, fmt.Errorf("firestore GetMessagesBySession: %w", err)
	}

	out := make([]*domain.Message, 0, len(snaps))
	for _, snap := range snaps {
		var doc messageDoc
		if err := snap.DataTo(&doc); err != nil {
			return nil, fmt.Errorf("decode messageDoc: %w", err)
		}

		out = append(out, &domain.Message{
			ID:        domain.MessageID(doc.ID),
			SessionID: sessionID,
			Seq:       doc.Seq,
			Author:    domain.Role(doc.Author),
			Text:      doc.Text,
			CreatedAt: doc.CreatedAt,
		})
	}
	return out, nil
}

func (s *Store) DeleteMessagesBySession(ctx context.Context, sessionID domain.SessionID) error {
	iter := s.messagesCol(sessionID).Documents(ctx)
	defer iter.Stop()

	for {
		snap, err := iter.Next()
		if err != nil {
			if err == iterator.Done {
				break
			}
			return fmt.Errorf("firestore DeleteMessagesBySession: %w", err)
		}
		if _, err := snap.Ref.Delete(ctx); err != nil {
			return fmt.Errorf("firestore DeleteMessagesBySession: %w", err)
		}
	}
	return nil
}
