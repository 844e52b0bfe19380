package memory

import (
	"context"
	"sync"

	"quizarena-service/internal/domain"
)

// PlayerStore is an in-memory implementation of app.PlayerStore. The roster
// keeps join order, which is the enumeration order the leaderboard's stable
// tie handling relies on.
type PlayerStore struct {
	mu      sync.RWMutex
	rosters map[string]*roster
}

type roster struct {
	players []domain.Player
	subs    map[chan []domain.Player]struct{}
}

func NewPlayerStore() *PlayerStore {
	return &PlayerStore{rosters: make(map[string]*roster)}
}

func (s *PlayerStore) Put(_ context.Context, code string, player domain.Player) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r := s.rosterLocked(code)
	for i := range r.players {
		if r.players[i].ID == player.ID {
			r.players[i] = clonePlayer(player)
			broadcast(r.subs, clonePlayers(r.players))
			return nil
		}
	}
	r.players = append(r.players, clonePlayer(player))
	broadcast(r.subs, clonePlayers(r.players))
	return nil
}

func (s *PlayerStore) Get(_ context.Context, code, playerID string) (domain.Player, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.rosters[code]
	if !ok {
		return domain.Player{}, domain.ErrPlayerNotFound
	}
	for i := range r.players {
		if r.players[i].ID == playerID {
			return clonePlayer(r.players[i]), nil
		}
	}
	return domain.Player{}, domain.ErrPlayerNotFound
}

func (s *PlayerStore) List(_ context.Context, code string) ([]domain.Player, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.rosters[code]
	if !ok {
		return nil, nil
	}
	return clonePlayers(r.players), nil
}

func (s *PlayerStore) IncrementScore(_ context.Context, code, playerID string, delta int) error {
	return s.mutate(code, playerID, func(p *domain.Player) { p.Score += delta })
}

func (s *PlayerStore) SetStreak(_ context.Context, code, playerID string, streak int) error {
	return s.mutate(code, playerID, func(p *domain.Player) { p.CorrectStreak = streak })
}

func (s *PlayerStore) IncrementFiftyFiftyUses(_ context.Context, code, playerID string, delta int) error {
	return s.mutate(code, playerID, func(p *domain.Player) { p.FiftyFiftyUses += delta })
}

func (s *PlayerStore) IncrementDoubler(_ context.Context, code, playerID string, delta int) error {
	return s.mutate(code, playerID, func(p *domain.Player) { p.Lifelines.PointDoubler += delta })
}

func (s *PlayerStore) AppendAnswer(_ context.Context, code, playerID string, answer domain.Answer) error {
	return s.mutate(code, playerID, func(p *domain.Player) { p.Answers = append(p.Answers, answer) })
}

func (s *PlayerStore) Watch(_ context.Context, code string) (<-chan []domain.Player, func(), error) {
	s.mu.Lock()
	r := s.rosterLocked(code)
	ch := make(chan []domain.Player, 8)
	r.subs[ch] = struct{}{}
	initial := clonePlayers(r.players)
	s.mu.Unlock()

	ch <- initial

	cancel := func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if _, ok := r.subs[ch]; ok {
			delete(r.subs, ch)
			close(ch)
		}
	}
	return ch, cancel, nil
}

func (s *PlayerStore) mutate(code, playerID string, fn func(*domain.Player)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rosters[code]
	if !ok {
		return domain.ErrPlayerNotFound
	}
	for i := range r.players {
		if r.players[i].ID == playerID {
			fn(&r.players[i])
			broadcast(r.subs, clonePlayers(r.players))
			return nil
		}
	}
	return domain.ErrPlayerNotFound
}

func (s *PlayerStore) rosterLocked(code string) *roster {
	r, ok := s.rosters[code]
	if !ok {
		r = &roster{subs: make(map[chan []domain.Player]struct{})}
		s.rosters[code] = r
	}
	return r
}

func clonePlayer(p domain.Player) domain.Player {
	out := p
	out.Answers = append([]domain.Answer(nil), p.Answers...)
	return out
}

func clonePlayers(players []domain.Player) []domain.Player {
	out := make([]domain.Player, len(players))
	for i, p := range players {
		out[i] = clonePlayer(p)
	}
	return out
}
