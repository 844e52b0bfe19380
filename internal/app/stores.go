package app

import (
	"context"
	"time"

	"quizarena-service/internal/domain"
)

// SessionStore abstracts the shared session document (in-memory, Redis, etc).
// Watch fires on any field change and delivers the full current document.
type SessionStore interface {
	Create(ctx context.Context, quiz domain.Quiz) error
	Get(ctx context.Context, code string) (domain.Quiz, error)
	// Update merges the set fields into the session document. Only the host
	// client calls this.
	Update(ctx context.Context, code string, upd SessionUpdate) error
	Watch(ctx context.Context, code string) (<-chan domain.Quiz, func(), error)
}

// SessionUpdate is a field-level merge write against the session document.
// Nil pointers leave the field untouched.
type SessionUpdate struct {
	GameState            *domain.GameState
	CurrentQuestionIndex *int
	// QuestionStartTime sets the clock origin; ClearQuestionStartTime nulls it.
	QuestionStartTime      *time.Time
	ClearQuestionStartTime bool
	EndTime                *time.Time
	ParticipantCount       *int
}

// PlayerStore abstracts the per-player documents. Every mutation is
// field-scoped (signed increments, appends, single-field sets) so concurrent
// writers to different fields or different players never conflict.
type PlayerStore interface {
	Put(ctx context.Context, code string, player domain.Player) error
	Get(ctx context.Context, code, playerID string) (domain.Player, error)
	List(ctx context.Context, code string) ([]domain.Player, error)

	IncrementScore(ctx context.Context, code, playerID string, delta int) error
	SetStreak(ctx context.Context, code, playerID string, streak int) error
	IncrementFiftyFiftyUses(ctx context.Context, code, playerID string, delta int) error
	IncrementDoubler(ctx context.Context, code, playerID string, delta int) error
	AppendAnswer(ctx context.Context, code, playerID string, answer domain.Answer) error

	// Watch delivers the full roster on any player change.
	Watch(ctx context.Context, code string) (<-chan []domain.Player, func(), error)
}

// QuestionBank loads authored questions from the organizer library
// (cache/backing store).
type QuestionBank interface {
	GetQuestions(ctx context.Context, ids []string) ([]domain.Question, error)
}

// Generator is the AI question-generation boundary: MCQs only, validated on
// return, invalid items dropped.
type Generator interface {
	Generate(ctx context.Context, topic, skill string, count int) ([]domain.Question, error)
}
