package memory_test

import (
	"context"
	"errors"
	"testing"

	"github.com/PabloGalante/medibot/internal/adapters/storage/memory"
	"github.com/PabloGalante/medibot/internal/domain"
)

func TestSessionStoreLifecycle(t *testing.T) {
	ctx := context.Background()
	store := memory.NewSessionStore()

	sess := &domain.Session{ID: "s1"}
	if err := store.CreateSession(ctx, sess); err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}
	if err := store.CreateSession(ctx, sess); !errors.Is(err, domain.ErrSessionExists) {
		t.Fatalf("expected ErrSessionExists, got %v", err)
	}

	got, err := store.GetSession(ctx, "s1")
	if err != nil {
		t.Fatalf("GetSession failed: %v", err)
	}
	got.Complete = true
	again, _ := store.GetSession(ctx, "s1")
	if again.Complete {
		t.Fatalf("store returned a shared pointer")
	}

	if err := store.UpdateSession(ctx, got); err != nil {
		t.Fatalf("UpdateSession failed: %v", err)
	}
	again, _ = store.GetSession(ctx, "s1")
	if !again.Complete {
		t.Fatalf("update not persisted")
	}

	if err := store.DeleteSession(ctx, "s1"); err != nil {
		t.Fatalf("DeleteSession failed: %v", err)
	}
	if _, err := store.GetSession(ctx, "s1"); !errors.Is(err, domain.ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
	if err := store.UpdateSession(ctx, got); !errors.Is(err, domain.ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound on update, got %v", err)
	}
}

func TestMessageStoreOrderAndLimit(t *testing.T) {
	ctx := context.Background()
	store := memory.NewMessageStore()

	for i := 0; i < 5; i++ {
		if err := store.SaveMessages(ctx, &domain.Message{SessionID: "s1", Seq: i}); err != nil {
			t.Fatalf("SaveMessages failed: %v", err)
		}
	}
	_ = store.SaveMessages(ctx, &domain.Message{SessionID: "other", Seq: 0})

	all, _ := store.GetMessagesBySession(ctx, "s1", 0)
	if len(all) != 5 {
		t.Fatalf("expected 5 messages, got %d", len(all))
	}
	for i, m := range all {
		if m.Seq != i {
			t.Fatalf("message %d has seq %d", i, m.Seq)
		}
	}

	last, _ := store.GetMessagesBySession(ctx, "s1", 2)
	if len(last) != 2 || last[0].Seq != 3 || last[1].Seq != 4 {
		t.Fatalf("unexpected tail %+v", last)
	}

	if err := store.DeleteMessagesBySession(ctx, "s1"); err != nil {
		t.Fatalf("DeleteMessagesBySession failed: %v", err)
	}
	if rest, _ := store.GetMessagesBySession(ctx, "s1", 0); len(rest) != 0 {
		t.Fatalf("expected no messages after delete")
	}
	if other, _ := store.GetMessagesBySession(ctx, "other", 0); len(other) != 1 {
		t.Fatalf("delete leaked into another session")
	}
}

func TestMessageStoreSaveReplacesSameSeq(t *testing.T) {
	ctx := context.Background()
	store := memory.NewMessageStore()

	_ = store.SaveMessages(ctx,
		&domain.Message{SessionID: "s1", Seq: 0, Text: "hello"},
		&domain.Message{SessionID: "s1", Seq: 2, Text: "old answer"},
		&domain.Message{SessionID: "s1", Seq: 1, Text: "question"},
	)
	_ = store.SaveMessages(ctx, &domain.Message{SessionID: "s1", Seq: 2, Text: "new answer"})

	all, _ := store.GetMessagesBySession(ctx, "s1", 0)
	if len(all) != 3 {
		t.Fatalf("expected 3 messages, got %d", len(all))
	}
	for i, want := range []string{"hello", "question", "new answer"} {
		if all[i].Seq != i || all[i].Text != want {
			t.Fatalf("message %d = (%d, %q), want (%d, %q)", i, all[i].Seq, all[i].Text, i, want)
		}
	}
}
