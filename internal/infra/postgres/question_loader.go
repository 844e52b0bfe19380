package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"quizarena-service/internal/domain"
)

// QuestionLoader loads authored bank questions from Postgres. Each row keeps
// the question document as JSONB next to the columns organizers filter on.
type QuestionLoader struct {
	pool *pgxpool.Pool
}

func NewQuestionLoader(pool *pgxpool.Pool) *QuestionLoader {
	return &QuestionLoader{pool: pool}
}

func (l *QuestionLoader) LoadQuestion(ctx context.Context, id string) (domain.Question, error) {
	var raw []byte
	err := l.pool.QueryRow(ctx, `SELECT data FROM question_bank WHERE id=$1`, id).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Question{}, domain.ErrQuestionNotFound
	}
	if err != nil {
		return domain.Question{}, fmt.Errorf("load question %s: %w", id, err)
	}
	var question domain.Question
	if err := json.Unmarshal(raw, &question); err != nil {
		return domain.Question{}, fmt.Errorf("unmarshal question %s: %w", id, err)
	}
	return question, nil
}

// ListByFilter returns bank question IDs matching the organizer's browse
// filters; empty filter values match everything.
func (l *QuestionLoader) ListByFilter(ctx context.Context, technology, skill string, limit int) ([]string, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := l.pool.Query(ctx, `
		SELECT id FROM question_bank
		WHERE ($1 = '' OR technology = $1)
		  AND ($2 = '' OR skill = $2)
		ORDER BY created_at DESC
		LIMIT $3`, technology, skill, limit)
	if err != nil {
		return nil, fmt.Errorf("list questions: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// SaveQuestion upserts an authored question into the bank.
func (l *QuestionLoader) SaveQuestion(ctx context.Context, q domain.Question) error {
	if err := q.Validate(); err != nil {
		return err
	}
	data, err := json.Marshal(q)
	if err != nil {
		return err
	}
	_, err = l.pool.Exec(ctx, `
		INSERT INTO question_bank (id, type, technology, skill, data)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE
		SET type = EXCLUDED.type,
		    technology = EXCLUDED.technology,
		    skill = EXCLUDED.skill,
		    data = EXCLUDED.data`,
		q.ID, string(q.Kind()), q.Technology, q.Skill, data)
	if err != nil {
		return fmt.Errorf("save question %s: %w", q.ID, err)
	}
	return nil
}
