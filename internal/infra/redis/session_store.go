package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/segmentio/encoding/json"

	"quizarena-service/internal/app"
	"quizarena-service/internal/domain"
)

// SessionStore keeps the shared session document as a JSON value in Redis
// and fans out changes over pub/sub, so every service instance sees the same
// state. The merge in Update is a plain read-modify-write: only the host's
// client ever writes the session document, so there is nothing to race.
type SessionStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewSessionStore(client *redis.Client, ttl time.Duration) *SessionStore {
	return &SessionStore{client: client, ttl: ttl}
}

func (s *SessionStore) Create(ctx context.Context, quiz domain.Quiz) error {
	data, err := json.Marshal(quiz)
	if err != nil {
		return err
	}
	ok, err := s.client.SetNX(ctx, s.key(quiz.ID), data, s.ttl).Result()
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("session %s already exists", quiz.ID)
	}
	return s.publish(ctx, quiz.ID, data)
}

func (s *SessionStore) Get(ctx context.Context, code string) (domain.Quiz, error) {
	data, err := s.client.Get(ctx, s.key(code)).Bytes()
	if err == redis.Nil {
		return domain.Quiz{}, domain.ErrQuizNotFound
	}
	if err != nil {
		return domain.Quiz{}, err
	}
	var quiz domain.Quiz
	if err := json.Unmarshal(data, &quiz); err != nil {
		return domain.Quiz{}, err
	}
	return quiz, nil
}

func (s *SessionStore) Update(ctx context.Context, code string, upd app.SessionUpdate) error {
	quiz, err := s.Get(ctx, code)
	if err != nil {
		return err
	}
	if upd.GameState != nil {
		quiz.GameState = *upd.GameState
	}
	if upd.CurrentQuestionIndex != nil {
		quiz.CurrentQuestionIndex = *upd.CurrentQuestionIndex
	}
	if upd.QuestionStartTime != nil {
		t := *upd.QuestionStartTime
		quiz.QuestionStartTime = &t
	}
	if upd.ClearQuestionStartTime {
		quiz.QuestionStartTime = nil
	}
	if upd.EndTime != nil {
		t := *upd.EndTime
		quiz.EndTime = &t
	}
	if upd.ParticipantCount != nil {
		quiz.ParticipantCount = *upd.ParticipantCount
	}

	data, err := json.Marshal(quiz)
	if err != nil {
		return err
	}
	if err := s.client.Set(ctx, s.key(code), data, s.ttl).Err(); err != nil {
		return err
	}
	return s.publish(ctx, code, data)
}

func (s *SessionStore) Watch(ctx context.Context, code string) (<-chan domain.Quiz, func(), error) {
	initial, err := s.Get(ctx, code)
	if err != nil {
		return nil, nil, err
	}

	sub := s.client.Subscribe(ctx, s.channel(code))
	// wait for the subscription before reporting the initial snapshot
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return nil, nil, err
	}

	ch := make(chan domain.Quiz, 8)
	ch <- initial

	go func() {
		defer close(ch)
		for msg := range sub.Channel() {
			var quiz domain.Quiz
			if err := json.Unmarshal([]byte(msg.Payload), &quiz); err != nil {
				continue
			}
			// replace a stale buffered snapshot instead of blocking
			select {
			case ch <- quiz:
			default:
				select {
				case <-ch:
				default:
				}
				ch <- quiz
			}
		}
	}()

	cancel := func() { _ = sub.Close() }
	return ch, cancel, nil
}

func (s *SessionStore) publish(ctx context.Context, code string, data []byte) error {
	return s.client.Publish(ctx, s.channel(code), data).Err()
}

func (s *SessionStore) key(code string) string {
	return "quiz:session:" + code
}

func (s *SessionStore) channel(code string) string {
	return "quiz:session:" + code + ":events"
}
