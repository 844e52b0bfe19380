package redis

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"quizarena-service/internal/app"
	"quizarena-service/internal/domain"
)

func newTestClient(t *testing.T) *redis.Client {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	t.Cleanup(mr.Close)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func testQuiz(code string) domain.Quiz {
	return domain.Quiz{
		ID:        code,
		Title:     "Redis Basics",
		GameState: domain.StateLobby,
		HostID:    "host-token",
		CreatedAt: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
		Questions: []domain.Question{
			{
				ID:        "q1",
				Text:      "Which command increments a hash field?",
				TimeLimit: 30,
				Detail: domain.MCQDetail{
					Options:      []string{"INCR", "HINCRBY", "LPUSH", "SETNX"},
					CorrectIndex: 1,
				},
			},
		},
	}
}

func TestSessionStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := NewSessionStore(newTestClient(t), time.Hour)

	if _, err := store.Get(ctx, "NOPE"); err != domain.ErrQuizNotFound {
		t.Fatalf("expected not found, got %v", err)
	}

	if err := store.Create(ctx, testQuiz("ABC123")); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := store.Create(ctx, testQuiz("ABC123")); err == nil {
		t.Fatalf("expected duplicate create to fail")
	}

	quiz, err := store.Get(ctx, "ABC123")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if quiz.Title != "Redis Basics" || quiz.GameState != domain.StateLobby {
		t.Fatalf("unexpected quiz after round trip: %+v", quiz)
	}
	if quiz.Questions[0].Kind() != domain.KindMCQ {
		t.Fatalf("question variant lost in serialization: %+v", quiz.Questions[0])
	}
}

func TestSessionStoreUpdateMergesFields(t *testing.T) {
	ctx := context.Background()
	store := NewSessionStore(newTestClient(t), time.Hour)
	_ = store.Create(ctx, testQuiz("ABC123"))

	state := domain.StateQuestionActive
	start := time.Date(2025, 6, 1, 12, 5, 0, 0, time.UTC)
	err := store.Update(ctx, "ABC123", app.SessionUpdate{
		GameState:         &state,
		QuestionStartTime: &start,
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}

	quiz, _ := store.Get(ctx, "ABC123")
	if quiz.GameState != domain.StateQuestionActive {
		t.Fatalf("expected QUESTION_ACTIVE, got %s", quiz.GameState)
	}
	if quiz.QuestionStartTime == nil || !quiz.QuestionStartTime.Equal(start) {
		t.Fatalf("expected start time %v, got %v", start, quiz.QuestionStartTime)
	}
	if quiz.Title != "Redis Basics" {
		t.Fatalf("merge clobbered untouched fields: %+v", quiz)
	}

	_ = store.Update(ctx, "ABC123", app.SessionUpdate{ClearQuestionStartTime: true})
	quiz, _ = store.Get(ctx, "ABC123")
	if quiz.QuestionStartTime != nil {
		t.Fatalf("expected start time cleared")
	}
}

func TestSessionStoreWatchDeliversUpdates(t *testing.T) {
	ctx := context.Background()
	store := NewSessionStore(newTestClient(t), time.Hour)
	_ = store.Create(ctx, testQuiz("ABC123"))

	ch, cancel, err := store.Watch(ctx, "ABC123")
	if err != nil {
		t.Fatalf("watch: %v", err)
	}
	defer cancel()

	initial := <-ch
	if initial.GameState != domain.StateLobby {
		t.Fatalf("expected LOBBY snapshot, got %s", initial.GameState)
	}

	state := domain.StateQuestionIntro
	_ = store.Update(ctx, "ABC123", app.SessionUpdate{GameState: &state})

	select {
	case quiz := <-ch:
		if quiz.GameState != domain.StateQuestionIntro {
			t.Fatalf("expected QUESTION_INTRO, got %s", quiz.GameState)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no update delivered over pub/sub")
	}
}
