package redis

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"quizarena-service/internal/domain"
	"quizarena-service/internal/infra/memory"
)

type countingLoader struct {
	inner memory.QuestionLoader
	loads int64
}

func (l *countingLoader) LoadQuestion(ctx context.Context, id string) (domain.Question, error) {
	atomic.AddInt64(&l.loads, 1)
	return l.inner.LoadQuestion(ctx, id)
}

func TestQuestionCacheServesFromRedis(t *testing.T) {
	ctx := context.Background()
	loader := &countingLoader{inner: memory.NewStaticQuestionLoader(map[string]domain.Question{
		"q1": testQuiz("ABC123").Questions[0],
	})}
	cache := NewQuestionCache(newTestClient(t), loader, time.Minute)

	for i := 0; i < 3; i++ {
		q, err := cache.LoadQuestion(ctx, "q1")
		if err != nil {
			t.Fatalf("load: %v", err)
		}
		if q.Kind() != domain.KindMCQ {
			t.Fatalf("variant lost through the cache: %+v", q)
		}
	}

	if n := atomic.LoadInt64(&loader.loads); n != 1 {
		t.Fatalf("expected 1 backing load, got %d", n)
	}
}

func TestQuestionCacheMissPropagatesNotFound(t *testing.T) {
	ctx := context.Background()
	loader := &countingLoader{inner: memory.NewStaticQuestionLoader(nil)}
	cache := NewQuestionCache(newTestClient(t), loader, time.Minute)

	if _, err := cache.LoadQuestion(ctx, "ghost"); err != domain.ErrQuestionNotFound {
		t.Fatalf("expected question not found, got %v", err)
	}
}
