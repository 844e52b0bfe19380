package redis

import (
	"context"
	"math/rand"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/segmentio/encoding/json"
	"golang.org/x/sync/singleflight"

	"quizarena-service/internal/domain"
	"quizarena-service/internal/infra/memory"
)

// QuestionCache fronts a bank loader with a Redis cache (one JSON value per
// question) so organizer browsing across instances shares the same warm set.
// Misses collapse through singleflight before hitting the backing store.
type QuestionCache struct {
	client *redis.Client
	loader memory.QuestionLoader
	ttl    time.Duration
	sf     singleflight.Group
	rnd    *rand.Rand
}

func NewQuestionCache(client *redis.Client, loader memory.QuestionLoader, ttl time.Duration) *QuestionCache {
	return &QuestionCache{
		client: client,
		loader: loader,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (c *QuestionCache) LoadQuestion(ctx context.Context, id string) (domain.Question, error) {
	key := c.key(id)

	if q, ok := c.cached(ctx, key); ok {
		return q, nil
	}

	result, err, _ := c.sf.Do(id, func() (interface{}, error) {
		// re-check in case another goroutine filled the cache
		if q, ok := c.cached(ctx, key); ok {
			return q, nil
		}

		question, err := c.loader.LoadQuestion(ctx, id)
		if err != nil {
			return domain.Question{}, err
		}

		data, err := json.Marshal(question)
		if err != nil {
			return domain.Question{}, err
		}
		_ = c.client.Set(ctx, key, data, c.ttlWithJitter()).Err()
		return question, nil
	})
	if err != nil {
		return domain.Question{}, err
	}
	return result.(domain.Question), nil
}

func (c *QuestionCache) cached(ctx context.Context, key string) (domain.Question, bool) {
	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		return domain.Question{}, false
	}
	var question domain.Question
	if err := json.Unmarshal(data, &question); err != nil {
		return domain.Question{}, false
	}
	return question, true
}

func (c *QuestionCache) key(id string) string {
	return "bank:question:" + id
}

func (c *QuestionCache) ttlWithJitter() time.Duration {
	if c.ttl <= 0 {
		return 0
	}
	jitterMax := int64(c.ttl) / 10
	return c.ttl + time.Duration(c.rnd.Int63n(jitterMax+1))
}
