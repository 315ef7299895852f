package conversation_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/PabloGalante/medibot/internal/adapters/llm"
	"github.com/PabloGalante/medibot/internal/adapters/storage/memory"
	"github.com/PabloGalante/medibot/internal/app/conversation"
	"github.com/PabloGalante/medibot/internal/domain"
)

var scenario = []string{"34", "male", "persistent cough", "3 days", "6", "none"}

func newService(gen *llm.MockLLM) *conversation.Service {
	return conversation.NewService(gen, memory.NewSessionStore(), memory.NewMessageStore())
}

func TestStartSession(t *testing.T) {
	ctx := context.Background()
	svc := newService(llm.NewMockLLM())

	out, err := svc.StartSession(ctx)
	if err != nil {
		t.Fatalf("StartSession failed: %v", err)
	}
	if out.Session.ID == "" {
		t.Fatalf("expected session id, got empty")
	}
	if len(out.Messages) != 2 {
		t.Fatalf("expected 2 seed messages, got %d", len(out.Messages))
	}
	if out.NextQuestion != "What is your age?" {
		t.Fatalf("unexpected first question %q", out.NextQuestion)
	}

	_, msgs, err := svc.GetSessionTimeline(ctx, out.Session.ID, 0)
	if err != nil {
		t.Fatalf("GetSessionTimeline failed: %v", err)
	}
	if len(msgs) != 2 {
		t.Fatalf("expected 2 stored messages, got %d", len(msgs))
	}
}

func TestFullScenarioGeneratesAnalysisOnce(t *testing.T) {
	ctx := context.Background()
	gen := llm.NewFixedLLM("the analysis")
	svc := newService(gen)

	start, err := svc.StartSession(ctx)
	if err != nil {
		t.Fatalf("StartSession failed: %v", err)
	}
	id := start.Session.ID

	var last *conversation.SendMessageOutput
	for i, a := range scenario {
		last, err = svc.SendMessage(ctx, conversation.SendMessageInput{SessionID: id, Text: a})
		if err != nil {
			t.Fatalf("submission %d: %v", i+1, err)
		}
		if !last.Accepted {
			t.Fatalf("submission %d was not accepted", i+1)
		}
		if len(last.NewMessages) != 2 {
			t.Fatalf("submission %d: expected 2 new messages, got %d", i+1, len(last.NewMessages))
		}
		if i < len(scenario)-1 && gen.Calls() != 0 {
			t.Fatalf("generator called before completion")
		}
	}

	if !last.Session.Complete {
		t.Fatalf("expected complete session")
	}
	if last.Analysis == nil || last.Analysis.Text != "the analysis" || last.AnalysisErr != nil {
		t.Fatalf("unexpected analysis %+v err=%v", last.Analysis, last.AnalysisErr)
	}
	if gen.Calls() != 1 {
		t.Fatalf("expected exactly one generator call, got %d", gen.Calls())
	}

	res, err := svc.GetAnalysis(ctx, id)
	if err != nil {
		t.Fatalf("GetAnalysis failed: %v", err)
	}
	if res.Text != "the analysis" {
		t.Fatalf("unexpected stored analysis %q", res.Text)
	}
	if gen.Calls() != 1 {
		t.Fatalf("GetAnalysis must not call the generator again")
	}

	session, msgs, _ := svc.GetSessionTimeline(ctx, id, 0)
	if len(msgs) != 2+2*len(scenario) {
		t.Fatalf("expected %d messages, got %d", 2+2*len(scenario), len(msgs))
	}
	for i, f := range domain.FieldOrder {
		if v, _ := session.Record.Value(f); v != scenario[i] {
			t.Errorf("%s = %q, want %q", f, v, scenario[i])
		}
	}
	for i, m := range msgs {
		if m.Seq != i {
			t.Fatalf("message %d has seq %d", i, m.Seq)
		}
	}
}

func TestSendMessageBlankIsIgnored(t *testing.T) {
	ctx := context.Background()
	svc := newService(llm.NewMockLLM())

	start, _ := svc.StartSession(ctx)
	out, err := svc.SendMessage(ctx, conversation.SendMessageInput{SessionID: start.Session.ID, Text: "   "})
	if err != nil {
		t.Fatalf("SendMessage failed: %v", err)
	}
	if out.Accepted {
		t.Fatalf("blank input must not be accepted")
	}
	if out.NextQuestion != "What is your age?" {
		t.Fatalf("unexpected question %q", out.NextQuestion)
	}

	session, msgs, _ := svc.GetSessionTimeline(ctx, start.Session.ID, 0)
	if len(msgs) != 2 || session.Record.Filled() != 0 {
		t.Fatalf("blank input changed state")
	}
}

func TestSendMessageGenerationFailureKeepsSession(t *testing.T) {
	ctx := context.Background()
	gen := llm.NewFailingLLM(errors.New("provider down"))
	svc := newService(gen)

	start, _ := svc.StartSession(ctx)
	var out *conversation.SendMessageOutput
	for _, a := range scenario {
		var err error
		out, err = svc.SendMessage(ctx, conversation.SendMessageInput{SessionID: start.Session.ID, Text: a})
		if err != nil {
			t.Fatalf("SendMessage failed: %v", err)
		}
	}

	if !errors.Is(out.AnalysisErr, domain.ErrAnalysisUnavailable) {
		t.Fatalf("expected ErrAnalysisUnavailable, got %v", out.AnalysisErr)
	}
	if out.Analysis == nil || out.Analysis.Text != "Unable to generate analysis." || out.Analysis.Available {
		t.Fatalf("expected fallback analysis, got %+v", out.Analysis)
	}

	session, msgs, _ := svc.GetSessionTimeline(ctx, start.Session.ID, 0)
	if !session.Complete || len(msgs) != 14 {
		t.Fatalf("session state was not preserved")
	}

	// no automatic retry
	if _, err := svc.GetAnalysis(ctx, start.Session.ID); err != nil {
		t.Fatalf("GetAnalysis failed: %v", err)
	}
	if gen.Calls() != 1 {
		t.Fatalf("expected one generator call, got %d", gen.Calls())
	}
}

func TestSendMessageAfterComplete(t *testing.T) {
	ctx := context.Background()
	svc := newService(llm.NewMockLLM())

	start, _ := svc.StartSession(ctx)
	for _, a := range scenario {
		_, _ = svc.SendMessage(ctx, conversation.SendMessageInput{SessionID: start.Session.ID, Text: a})
	}

	_, err := svc.SendMessage(ctx, conversation.SendMessageInput{SessionID: start.Session.ID, Text: "more"})
	if !errors.Is(err, domain.ErrSessionComplete) {
		t.Fatalf("expected ErrSessionComplete, got %v", err)
	}
}

func TestGetAnalysisIncomplete(t *testing.T) {
	ctx := context.Background()
	gen := llm.NewMockLLM()
	svc := newService(gen)

	start, _ := svc.StartSession(ctx)
	if _, err := svc.GetAnalysis(ctx, start.Session.ID); !errors.Is(err, domain.ErrRecordIncomplete) {
		t.Fatalf("expected ErrRecordIncomplete, got %v", err)
	}
	if gen.Calls() != 0 {
		t.Fatalf("generator must not be called")
	}
}

func TestGetAnalysisGeneratesWhenMissing(t *testing.T) {
	ctx := context.Background()
	gen := llm.NewFixedLLM("late analysis")
	sessions := memory.NewSessionStore()
	svc := conversation.NewService(gen, sessions, memory.NewMessageStore())

	start, _ := svc.StartSession(ctx)
	for _, a := range scenario {
		_, _ = svc.SendMessage(ctx, conversation.SendMessageInput{SessionID: start.Session.ID, Text: a})
	}

	// simulate a crash between completing the record and storing the result
	sess, _ := sessions.GetSession(ctx, start.Session.ID)
	sess.Analysis = nil
	_ = sessions.UpdateSession(ctx, sess)

	res, err := svc.GetAnalysis(ctx, start.Session.ID)
	if err != nil {
		t.Fatalf("GetAnalysis failed: %v", err)
	}
	if res.Text != "late analysis" || gen.Calls() != 2 {
		t.Fatalf("unexpected result %+v after %d calls", res, gen.Calls())
	}
}

func TestEndSession(t *testing.T) {
	ctx := context.Background()
	svc := newService(llm.NewMockLLM())

	start, _ := svc.StartSession(ctx)
	if err := svc.EndSession(ctx, start.Session.ID); err != nil {
		t.Fatalf("EndSession failed: %v", err)
	}
	if _, _, err := svc.GetSessionTimeline(ctx, start.Session.ID, 0); !errors.Is(err, domain.ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
	if err := svc.EndSession(ctx, start.Session.ID); !errors.Is(err, domain.ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound on second end, got %v", err)
	}
}

func TestUnknownSession(t *testing.T) {
	svc := newService(llm.NewMockLLM())

	_, err := svc.SendMessage(context.Background(), conversation.SendMessageInput{SessionID: "missing", Text: "34"})
	if !errors.Is(err, domain.ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
}

func TestConcurrentSubmissionsAreSerialized(t *testing.T) {
	ctx := context.Background()
	gen := llm.NewMockLLM()
	svc := newService(gen)
	start, _ := svc.StartSession(ctx)

	var wg sync.WaitGroup
	for i := 0; i < len(scenario); i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = svc.SendMessage(ctx, conversation.SendMessageInput{SessionID: start.Session.ID, Text: "x"})
		}()
	}
	wg.Wait()

	session, msgs, _ := svc.GetSessionTimeline(ctx, start.Session.ID, 0)
	if !session.Complete || len(msgs) != 14 {
		t.Fatalf("expected complete session with 14 messages, got complete=%v len=%d", session.Complete, len(msgs))
	}
	if gen.Calls() != 1 {
		t.Fatalf("expected exactly one generator call, got %d", gen.Calls())
	}
}

func TestSessionsAreIsolated(t *testing.T) {
	ctx := context.Background()
	svc := newService(llm.NewMockLLM())

	a, _ := svc.StartSession(ctx)
	b, _ := svc.StartSession(ctx)

	_, _ = svc.SendMessage(ctx, conversation.SendMessageInput{SessionID: a.Session.ID, Text: "34"})

	sb, msgs, _ := svc.GetSessionTimeline(ctx, b.Session.ID, 0)
	if sb.Record.Filled() != 0 || len(msgs) != 2 {
		t.Fatalf("session b was affected by session a")
	}
}

// failingUpdates fails the next n UpdateSession calls.
type failingUpdates struct {
	*memory.SessionStore
	mu sync.Mutex
	n  int
}

func (f *failingUpdates) UpdateSession(ctx context.Context, s *domain.Session) error {
	f.mu.Lock()
	fail := f.n > 0
	if fail {
		f.n--
	}
	f.mu.Unlock()
	if fail {
		return errors.New("write unavailable")
	}
	return f.SessionStore.UpdateSession(ctx, s)
}

func TestSendMessageRecoversFromFailedEnvelopeWrite(t *testing.T) {
	ctx := context.Background()
	sessions := &failingUpdates{SessionStore: memory.NewSessionStore()}
	svc := conversation.NewService(llm.NewMockLLM(), sessions, memory.NewMessageStore())

	start, _ := svc.StartSession(ctx)
	id := start.Session.ID

	sessions.n = 1
	if _, err := svc.SendMessage(ctx, conversation.SendMessageInput{SessionID: id, Text: "34"}); err == nil {
		t.Fatalf("expected error from failed envelope write")
	}

	session, msgs, _ := svc.GetSessionTimeline(ctx, id, 0)
	if session.Record.Filled() != 0 || len(msgs) != 2 {
		t.Fatalf("after failed submit: filled=%d transcript=%d, want 0 and 2", session.Record.Filled(), len(msgs))
	}

	out, err := svc.SendMessage(ctx, conversation.SendMessageInput{SessionID: id, Text: "35"})
	if err != nil {
		t.Fatalf("retry failed: %v", err)
	}
	if out.NewMessages[0].Seq != 2 {
		t.Fatalf("retry should reuse seq 2, got %d", out.NewMessages[0].Seq)
	}

	session, msgs, _ = svc.GetSessionTimeline(ctx, id, 0)
	if session.Record.Filled() != 1 || len(msgs) != 4 {
		t.Fatalf("after retry: filled=%d transcript=%d, want 1 and 4", session.Record.Filled(), len(msgs))
	}
	if msgs[2].Author != domain.RolePatient || msgs[2].Text != "35" {
		t.Fatalf("expected retried answer at seq 2, got %+v", msgs[2])
	}
	if msgs[3].Text != "What is your gender?" {
		t.Fatalf("unexpected follow-up %q", msgs[3].Text)
	}

	// finish the session and check the transcript invariant holds throughout
	for _, a := range scenario[1:] {
		if _, err := svc.SendMessage(ctx, conversation.SendMessageInput{SessionID: id, Text: a}); err != nil {
			t.Fatalf("SendMessage failed: %v", err)
		}
	}
	session, msgs, _ = svc.GetSessionTimeline(ctx, id, 0)
	if !session.Complete || len(msgs) != 14 {
		t.Fatalf("expected complete session with 14 messages, got complete=%v len=%d", session.Complete, len(msgs))
	}
	for i, m := range msgs {
		if m.Seq != i {
			t.Fatalf("message %d has seq %d", i, m.Seq)
		}
	}
}

func TestManySessionsShareLocks(t *testing.T) {
	ctx := context.Background()
	gen := llm.NewMockLLM()
	svc := newService(gen)

	const n = 200
	ids := make([]domain.SessionID, n)
	for i := range ids {
		out, err := svc.StartSession(ctx)
		if err != nil {
			t.Fatalf("StartSession failed: %v", err)
		}
		ids[i] = out.Session.ID
	}

	var wg sync.WaitGroup
	for _, id := range ids {
		wg.Add(1)
		go func(id domain.SessionID) {
			defer wg.Done()
			for _, a := range scenario {
				if _, err := svc.SendMessage(ctx, conversation.SendMessageInput{SessionID: id, Text: a}); err != nil {
					t.Errorf("SendMessage failed: %v", err)
					return
				}
			}
		}(id)
	}
	wg.Wait()

	if gen.Calls() != n {
		t.Fatalf("expected %d generator calls, got %d", n, gen.Calls())
	}
	for _, id := range ids {
		session, msgs, _ := svc.GetSessionTimeline(ctx, id, 0)
		if !session.Complete || len(msgs) != 14 {
			t.Fatalf("session %s: complete=%v len=%d", id, session.Complete, len(msgs))
		}
	}
}
