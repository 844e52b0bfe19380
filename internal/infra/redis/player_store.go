package redis

import (
	"context"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/segmentio/encoding/json"

	"quizarena-service/internal/domain"
)

// PlayerStore keeps each player as a Redis hash plus an answers list. Every
// mutation maps onto a single Redis primitive (HINCRBY, HSET, RPUSH), which
// gives the same commutativity as the in-memory store: concurrent writers to
// different fields or different players never conflict.
type PlayerStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewPlayerStore(client *redis.Client, ttl time.Duration) *PlayerStore {
	return &PlayerStore{client: client, ttl: ttl}
}

func (s *PlayerStore) Put(ctx context.Context, code string, player domain.Player) error {
	pipe := s.client.TxPipeline()
	pipe.HSet(ctx, s.playerKey(code, player.ID), map[string]interface{}{
		"name":           player.Name,
		"avatar":         player.Avatar,
		"clan":           string(player.Clan),
		"score":          player.Score,
		"streak":         player.CorrectStreak,
		"fiftyFiftyUses": player.FiftyFiftyUses,
		"pointDoubler":   player.Lifelines.PointDoubler,
	})
	pipe.RPush(ctx, s.rosterKey(code), player.ID)
	if s.ttl > 0 {
		pipe.Expire(ctx, s.playerKey(code, player.ID), s.ttl)
		pipe.Expire(ctx, s.rosterKey(code), s.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return err
	}
	return s.publish(ctx, code)
}

func (s *PlayerStore) Get(ctx context.Context, code, playerID string) (domain.Player, error) {
	fields, err := s.client.HGetAll(ctx, s.playerKey(code, playerID)).Result()
	if err != nil {
		return domain.Player{}, err
	}
	if len(fields) == 0 {
		return domain.Player{}, domain.ErrPlayerNotFound
	}

	raw, err := s.client.LRange(ctx, s.answersKey(code, playerID), 0, -1).Result()
	if err != nil {
		return domain.Player{}, err
	}
	answers := make([]domain.Answer, 0, len(raw))
	for _, item := range raw {
		var a domain.Answer
		if err := json.Unmarshal([]byte(item), &a); err != nil {
			return domain.Player{}, err
		}
		answers = append(answers, a)
	}

	player := domain.Player{
		ID:             playerID,
		Name:           fields["name"],
		Avatar:         fields["avatar"],
		Clan:           domain.Clan(fields["clan"]),
		Score:          atoi(fields["score"]),
		CorrectStreak:  atoi(fields["streak"]),
		FiftyFiftyUses: atoi(fields["fiftyFiftyUses"]),
		Answers:        answers,
	}
	player.Lifelines.PointDoubler = atoi(fields["pointDoubler"])
	return player, nil
}

func (s *PlayerStore) List(ctx context.Context, code string) ([]domain.Player, error) {
	ids, err := s.client.LRange(ctx, s.rosterKey(code), 0, -1).Result()
	if err != nil {
		return nil, err
	}
	players := make([]domain.Player, 0, len(ids))
	for _, id := range ids {
		player, err := s.Get(ctx, code, id)
		if err == domain.ErrPlayerNotFound {
			continue // expired hash, stale roster entry
		}
		if err != nil {
			return nil, err
		}
		players = append(players, player)
	}
	return players, nil
}

func (s *PlayerStore) IncrementScore(ctx context.Context, code, playerID string, delta int) error {
	return s.hIncr(ctx, code, playerID, "score", delta)
}

func (s *PlayerStore) SetStreak(ctx context.Context, code, playerID string, streak int) error {
	if err := s.requirePlayer(ctx, code, playerID); err != nil {
		return err
	}
	if err := s.client.HSet(ctx, s.playerKey(code, playerID), "streak", streak).Err(); err != nil {
		return err
	}
	return s.publish(ctx, code)
}

func (s *PlayerStore) IncrementFiftyFiftyUses(ctx context.Context, code, playerID string, delta int) error {
	return s.hIncr(ctx, code, playerID, "fiftyFiftyUses", delta)
}

func (s *PlayerStore) IncrementDoubler(ctx context.Context, code, playerID string, delta int) error {
	return s.hIncr(ctx, code, playerID, "pointDoubler", delta)
}

func (s *PlayerStore) AppendAnswer(ctx context.Context, code, playerID string, answer domain.Answer) error {
	if err := s.requirePlayer(ctx, code, playerID); err != nil {
		return err
	}
	data, err := json.Marshal(answer)
	if err != nil {
		return err
	}
	pipe := s.client.TxPipeline()
	pipe.RPush(ctx, s.answersKey(code, playerID), data)
	if s.ttl > 0 {
		pipe.Expire(ctx, s.answersKey(code, playerID), s.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return err
	}
	return s.publish(ctx, code)
}

func (s *PlayerStore) Watch(ctx context.Context, code string) (<-chan []domain.Player, func(), error) {
	initial, err := s.List(ctx, code)
	if err != nil {
		return nil, nil, err
	}

	sub := s.client.Subscribe(ctx, s.channel(code))
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return nil, nil, err
	}

	ch := make(chan []domain.Player, 8)
	ch <- initial

	go func() {
		defer close(ch)
		for range sub.Channel() {
			players, err := s.List(ctx, code)
			if err != nil {
				continue
			}
			select {
			case ch <- players:
			default:
				select {
				case <-ch:
				default:
				}
				ch <- players
			}
		}
	}()

	cancel := func() { _ = sub.Close() }
	return ch, cancel, nil
}

func (s *PlayerStore) hIncr(ctx context.Context, code, playerID, field string, delta int) error {
	if err := s.requirePlayer(ctx, code, playerID); err != nil {
		return err
	}
	if err := s.client.HIncrBy(ctx, s.playerKey(code, playerID), field, int64(delta)).Err(); err != nil {
		return err
	}
	return s.publish(ctx, code)
}

func (s *PlayerStore) requirePlayer(ctx context.Context, code, playerID string) error {
	n, err := s.client.Exists(ctx, s.playerKey(code, playerID)).Result()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrPlayerNotFound
	}
	return nil
}

func (s *PlayerStore) publish(ctx context.Context, code string) error {
	return s.client.Publish(ctx, s.channel(code), "1").Err()
}

func (s *PlayerStore) rosterKey(code string) string {
	return "quiz:" + code + ":players"
}

func (s *PlayerStore) playerKey(code, playerID string) string {
	return "quiz:" + code + ":player:" + playerID
}

func (s *PlayerStore) answersKey(code, playerID string) string {
	return "quiz:" + code + ":player:" + playerID + ":answers"
}

func (s *PlayerStore) channel(code string) string {
	return "quiz:" + code + ":players:events"
}

func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}
