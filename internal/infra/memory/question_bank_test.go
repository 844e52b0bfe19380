package memory

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"quizarena-service/internal/domain"
)

type countingLoader struct {
	inner *StaticQuestionLoader
	loads int64
}

func (l *countingLoader) LoadQuestion(ctx context.Context, id string) (domain.Question, error) {
	atomic.AddInt64(&l.loads, 1)
	return l.inner.LoadQuestion(ctx, id)
}

func bankQuestions() map[string]domain.Question {
	return map[string]domain.Question{
		"q1": {
			ID:        "q1",
			Text:      "Which keyword declares a constant?",
			TimeLimit: 30,
			Detail: domain.MCQDetail{
				Options:      []string{"let", "const", "var", "def"},
				CorrectIndex: 1,
			},
		},
		"q2": {
			ID:        "q2",
			Text:      "Name a testing framework you use.",
			TimeLimit: 45,
			Detail:    domain.WordCloudDetail{},
		},
	}
}

func TestQuestionBankCachesWithinTTL(t *testing.T) {
	ctx := context.Background()
	loader := &countingLoader{inner: NewStaticQuestionLoader(bankQuestions())}
	bank := NewQuestionBank(loader, time.Minute)

	for i := 0; i < 3; i++ {
		got, err := bank.GetQuestions(ctx, []string{"q1"})
		if err != nil {
			t.Fatalf("get questions: %v", err)
		}
		if got[0].ID != "q1" {
			t.Fatalf("expected q1, got %s", got[0].ID)
		}
	}

	if n := atomic.LoadInt64(&loader.loads); n != 1 {
		t.Fatalf("expected 1 backing load, got %d", n)
	}
}

func TestQuestionBankExpiresEntries(t *testing.T) {
	ctx := context.Background()
	loader := &countingLoader{inner: NewStaticQuestionLoader(bankQuestions())}
	bank := NewQuestionBank(loader, time.Minute)

	now := time.Now()
	bank.clock = func() time.Time { return now }

	if _, err := bank.GetQuestions(ctx, []string{"q1"}); err != nil {
		t.Fatalf("first load: %v", err)
	}

	// past the TTL plus the maximum jitter
	now = now.Add(2 * time.Minute)
	if _, err := bank.GetQuestions(ctx, []string{"q1"}); err != nil {
		t.Fatalf("reload: %v", err)
	}

	if n := atomic.LoadInt64(&loader.loads); n != 2 {
		t.Fatalf("expected 2 backing loads after expiry, got %d", n)
	}
}

func TestQuestionBankPreservesOrder(t *testing.T) {
	ctx := context.Background()
	loader := &countingLoader{inner: NewStaticQuestionLoader(bankQuestions())}
	bank := NewQuestionBank(loader, time.Minute)

	got, err := bank.GetQuestions(ctx, []string{"q2", "q1"})
	if err != nil {
		t.Fatalf("get questions: %v", err)
	}
	if got[0].ID != "q2" || got[1].ID != "q1" {
		t.Fatalf("expected [q2 q1], got [%s %s]", got[0].ID, got[1].ID)
	}
}

func TestQuestionBankUnknownID(t *testing.T) {
	ctx := context.Background()
	loader := &countingLoader{inner: NewStaticQuestionLoader(bankQuestions())}
	bank := NewQuestionBank(loader, time.Minute)

	if _, err := bank.GetQuestions(ctx, []string{"ghost"}); err != domain.ErrQuestionNotFound {
		t.Fatalf("expected question not found, got %v", err)
	}
}
