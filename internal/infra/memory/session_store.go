package memory

import (
	"context"
	"sync"

	"quizarena-service/internal/app"
	"quizarena-service/internal/domain"
)

// SessionStore is an in-memory implementation of app.SessionStore. Watch
// subscribers get the full document on every change; slow subscribers have
// their stale snapshot replaced rather than blocking the writer.
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[string]*sessionDoc
}

type sessionDoc struct {
	quiz domain.Quiz
	subs map[chan domain.Quiz]struct{}
}

func NewSessionStore() *SessionStore {
	return &SessionStore{sessions: make(map[string]*sessionDoc)}
}

func (s *SessionStore) Create(_ context.Context, quiz domain.Quiz) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.sessions[quiz.ID]
	if !ok {
		doc = &sessionDoc{subs: make(map[chan domain.Quiz]struct{})}
		s.sessions[quiz.ID] = doc
	}
	doc.quiz = cloneQuiz(quiz)
	broadcast(doc.subs, cloneQuiz(doc.quiz))
	return nil
}

func (s *SessionStore) Get(_ context.Context, code string) (domain.Quiz, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := s.sessions[code]
	if !ok {
		return domain.Quiz{}, domain.ErrQuizNotFound
	}
	return cloneQuiz(doc.quiz), nil
}

func (s *SessionStore) Update(_ context.Context, code string, upd app.SessionUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.sessions[code]
	if !ok {
		return domain.ErrQuizNotFound
	}
	if upd.GameState != nil {
		doc.quiz.GameState = *upd.GameState
	}
	if upd.CurrentQuestionIndex != nil {
		doc.quiz.CurrentQuestionIndex = *upd.CurrentQuestionIndex
	}
	if upd.QuestionStartTime != nil {
		t := *upd.QuestionStartTime
		doc.quiz.QuestionStartTime = &t
	}
	if upd.ClearQuestionStartTime {
		doc.quiz.QuestionStartTime = nil
	}
	if upd.EndTime != nil {
		t := *upd.EndTime
		doc.quiz.EndTime = &t
	}
	if upd.ParticipantCount != nil {
		doc.quiz.ParticipantCount = *upd.ParticipantCount
	}
	broadcast(doc.subs, cloneQuiz(doc.quiz))
	return nil
}

func (s *SessionStore) Watch(_ context.Context, code string) (<-chan domain.Quiz, func(), error) {
	s.mu.Lock()
	doc, ok := s.sessions[code]
	if !ok {
		s.mu.Unlock()
		return nil, nil, domain.ErrQuizNotFound
	}
	ch := make(chan domain.Quiz, 8)
	doc.subs[ch] = struct{}{}
	initial := cloneQuiz(doc.quiz)
	s.mu.Unlock()

	ch <- initial

	cancel := func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if _, ok := doc.subs[ch]; ok {
			delete(doc.subs, ch)
			close(ch)
		}
	}
	return ch, cancel, nil
}

// broadcast delivers to every subscriber, dropping a stale buffered snapshot
// instead of blocking when a subscriber lags.
func broadcast[T any](subs map[chan T]struct{}, snapshot T) {
	for ch := range subs {
		select {
		case ch <- snapshot:
		default:
			select {
			case <-ch:
			default:
			}
			ch <- snapshot
		}
	}
}

func cloneQuiz(q domain.Quiz) domain.Quiz {
	out := q
	out.Questions = append([]domain.Question(nil), q.Questions...)
	if q.QuestionStartTime != nil {
		t := *q.QuestionStartTime
		out.QuestionStartTime = &t
	}
	if q.EndTime != nil {
		t := *q.EndTime
		out.EndTime = &t
	}
	return out
}
