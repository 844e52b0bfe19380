package app

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"quizarena-service/internal/domain"
	"quizarena-service/internal/game"
)

// joinCodeAlphabet spells the short session codes players type in.
const (
	joinCodeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	joinCodeLength   = 6
)

// QuizService contains the core quiz use cases. The service computes every
// effect (score deltas, streaks, lifeline costs) on behalf of the acting
// client and applies them as field-scoped mutations, racing other clients; no
// central tier re-validates them.
type QuizService struct {
	sessions  SessionStore
	players   PlayerStore
	bank      QuestionBank // optional
	generator Generator    // optional
	log       *zap.SugaredLogger

	clock func() time.Time

	mu  sync.Mutex
	rnd *rand.Rand
}

// Option customizes a QuizService.
type Option func(*QuizService)

// WithQuestionBank wires the organizer question library.
func WithQuestionBank(bank QuestionBank) Option {
	return func(s *QuizService) { s.bank = bank }
}

// WithGenerator wires the AI question generator boundary.
func WithGenerator(gen Generator) Option {
	return func(s *QuizService) { s.generator = gen }
}

// WithClock is test-only for deterministic timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *QuizService) { s.clock = now }
}

// WithRand is test-only for deterministic codes and fifty-fifty picks.
func WithRand(rnd *rand.Rand) Option {
	return func(s *QuizService) { s.rnd = rnd }
}

func NewQuizService(sessions SessionStore, players PlayerStore, log *zap.SugaredLogger, opts ...Option) *QuizService {
	s := &QuizService{
		sessions: sessions,
		players:  players,
		log:      log,
		clock:    time.Now,
		rnd:      rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateParams describes a new session: inline questions, bank references,
// or both, in presentation order (inline first).
type CreateParams struct {
	Title       string
	Questions   []domain.Question
	QuestionIDs []string
	Config      domain.QuizConfig
}

// CreateResult hands the organizer the join code and the host token that
// authorizes every later state transition.
type CreateResult struct {
	Quiz      domain.Quiz
	HostToken string
}

// CreateQuiz builds a session in LOBBY under a fresh join code. Bank
// references are resolved through the question library; authoring invariants
// are validated here and never re-checked during the session.
func (s *QuizService) CreateQuiz(ctx context.Context, params CreateParams) (CreateResult, error) {
	if strings.TrimSpace(params.Title) == "" {
		return CreateResult{}, fmt.Errorf("%w: empty title", domain.ErrInvalidQuestion)
	}

	questions := append([]domain.Question(nil), params.Questions...)
	if len(params.QuestionIDs) > 0 {
		if s.bank == nil {
			return CreateResult{}, fmt.Errorf("%w: no question bank configured", domain.ErrQuestionNotFound)
		}
		fromBank, err := s.bank.GetQuestions(ctx, params.QuestionIDs)
		if err != nil {
			return CreateResult{}, err
		}
		questions = append(questions, fromBank...)
	}
	if len(questions) == 0 {
		return CreateResult{}, fmt.Errorf("%w: quiz needs at least one question", domain.ErrInvalidQuestion)
	}
	if len(questions) > domain.MaxQuestionsPerQuiz {
		return CreateResult{}, fmt.Errorf("%w: at most %d questions per quiz", domain.ErrInvalidQuestion, domain.MaxQuestionsPerQuiz)
	}
	for i := range questions {
		if questions[i].ID == "" {
			questions[i].ID = uuid.NewString()
		}
		if err := questions[i].Validate(); err != nil {
			return CreateResult{}, err
		}
	}

	hostToken := uuid.NewString()
	quiz := domain.Quiz{
		ID:        s.newJoinCode(),
		Title:     strings.TrimSpace(params.Title),
		Questions: questions,
		GameState: domain.StateLobby,
		Config:    params.Config,
		HostID:    hostToken,
		CreatedAt: s.clock(),
	}
	if err := s.sessions.Create(ctx, quiz); err != nil {
		return CreateResult{}, err
	}
	s.log.Infow("quiz created", "code", quiz.ID, "questions", len(questions), "clanBased", quiz.Config.ClanBased)
	return CreateResult{Quiz: quiz, HostToken: hostToken}, nil
}

// GenerateQuestions asks the AI boundary for validated MCQs. Invalid items
// were already dropped by the generator; this just forwards.
func (s *QuizService) GenerateQuestions(ctx context.Context, topic, skill string, count int) ([]domain.Question, error) {
	if s.generator == nil {
		return nil, fmt.Errorf("question generation not configured")
	}
	return s.generator.Generate(ctx, topic, skill, count)
}

// Join registers a player in a session. Clan assignment happens here, once,
// and is permanent; auto-balance reads the live per-clan headcounts.
func (s *QuizService) Join(ctx context.Context, code, name, avatar string, clanChoice domain.Clan) (domain.Player, error) {
	quiz, err := s.sessions.Get(ctx, code)
	if err != nil {
		return domain.Player{}, err
	}
	if strings.TrimSpace(name) == "" {
		return domain.Player{}, fmt.Errorf("%w: empty display name", domain.ErrInvalidAnswer)
	}

	roster, err := s.players.List(ctx, code)
	if err != nil {
		return domain.Player{}, err
	}
	clan, err := game.AssignClan(quiz.Config, roster, clanChoice)
	if err != nil {
		return domain.Player{}, err
	}

	player := domain.Player{
		ID:      uuid.NewString(),
		Name:    strings.TrimSpace(name),
		Avatar:  avatar,
		Clan:    clan,
		Answers: []domain.Answer{},
	}
	if err := s.players.Put(ctx, code, player); err != nil {
		return domain.Player{}, err
	}
	s.log.Infow("player joined", "code", code, "player", player.ID, "clan", clan)
	return player, nil
}

// Quiz returns the current session document.
func (s *QuizService) Quiz(ctx context.Context, code string) (domain.Quiz, error) {
	return s.sessions.Get(ctx, code)
}

// Players returns the live roster.
func (s *QuizService) Players(ctx context.Context, code string) ([]domain.Player, error) {
	return s.players.List(ctx, code)
}

// WatchQuiz streams full session snapshots on every change.
func (s *QuizService) WatchQuiz(ctx context.Context, code string) (<-chan domain.Quiz, func(), error) {
	return s.sessions.Watch(ctx, code)
}

// WatchPlayers streams full roster snapshots on every player change.
func (s *QuizService) WatchPlayers(ctx context.Context, code string) (<-chan []domain.Player, func(), error) {
	return s.players.Watch(ctx, code)
}

// Start is the host action leaving LOBBY: into the clan-battle sequence when
// clan mode is on, otherwise straight to the first question intro. Requires
// at least one player.
func (s *QuizService) Start(ctx context.Context, code, hostToken string) (domain.Quiz, error) {
	quiz, err := s.authorizeHost(ctx, code, hostToken)
	if err != nil {
		return domain.Quiz{}, err
	}
	roster, err := s.players.List(ctx, code)
	if err != nil {
		return domain.Quiz{}, err
	}
	if len(roster) == 0 {
		return domain.Quiz{}, domain.ErrNoPlayers
	}
	return s.transition(ctx, quiz, game.StartState(quiz.Config), SessionUpdate{})
}

// ShowResult is the host action ending the active question; the question
// clock is cleared so late submissions cannot claim a bonus window.
func (s *QuizService) ShowResult(ctx context.Context, code, hostToken string) (domain.Quiz, error) {
	quiz, err := s.authorizeHost(ctx, code, hostToken)
	if err != nil {
		return domain.Quiz{}, err
	}
	return s.transition(ctx, quiz, domain.StateQuestionResult, SessionUpdate{ClearQuestionStartTime: true})
}

// ShowLeaderboard advances out of a question result: to the intermediate
// leaderboard, or to FINISHED after the last question, recording the end
// time and a participant-count snapshot.
func (s *QuizService) ShowLeaderboard(ctx context.Context, code, hostToken string) (domain.Quiz, error) {
	quiz, err := s.authorizeHost(ctx, code, hostToken)
	if err != nil {
		return domain.Quiz{}, err
	}
	if !quiz.OnLastQuestion() {
		return s.transition(ctx, quiz, domain.StateLeaderboard, SessionUpdate{})
	}
	roster, err := s.players.List(ctx, code)
	if err != nil {
		return domain.Quiz{}, err
	}
	end := s.clock()
	count := len(roster)
	return s.transition(ctx, quiz, domain.StateFinished, SessionUpdate{EndTime: &end, ParticipantCount: &count})
}

// NextQuestion is the host action leaving the leaderboard for the next
// question's intro.
func (s *QuizService) NextQuestion(ctx context.Context, code, hostToken string) (domain.Quiz, error) {
	quiz, err := s.authorizeHost(ctx, code, hostToken)
	if err != nil {
		return domain.Quiz{}, err
	}
	next := quiz.CurrentQuestionIndex + 1
	if next >= len(quiz.Questions) {
		return domain.Quiz{}, domain.ErrBadTransition
	}
	return s.transition(ctx, quiz, domain.StateQuestionIntro, SessionUpdate{CurrentQuestionIndex: &next})
}

// AutoAdvance performs one automatic timer transition (clan VS → intro →
// question intro → active). Only the host runner calls this; entering
// QUESTION_ACTIVE stamps the question clock origin.
func (s *QuizService) AutoAdvance(ctx context.Context, code, hostToken string) (domain.Quiz, error) {
	quiz, err := s.authorizeHost(ctx, code, hostToken)
	if err != nil {
		return domain.Quiz{}, err
	}
	to, ok := game.AutoNext(quiz.GameState)
	if !ok {
		return domain.Quiz{}, domain.ErrBadTransition
	}
	upd := SessionUpdate{}
	if to == domain.StateQuestionActive {
		now := s.clock()
		upd.QuestionStartTime = &now
	}
	return s.transition(ctx, quiz, to, upd)
}

// SubmitResult reports what one accepted (or silently deduplicated)
// submission did to the player's record.
type SubmitResult struct {
	Answer         domain.Answer
	Correct        bool
	CorrectMatches int
	EarnedDoubler  bool
	// Duplicate means a previous answer already existed; nothing was written.
	Duplicate bool
}

// SubmitAnswer accepts a player's first answer for the active question,
// computes the score delta, and applies the append and the signed increments
// to that player's own record. A second attempt is a silent no-op. lifeline
// tags which lifeline the connection armed for this submission, if any.
func (s *QuizService) SubmitAnswer(ctx context.Context, code, playerID string, payload domain.AnswerPayload, lifeline domain.Lifeline) (SubmitResult, error) {
	quiz, err := s.sessions.Get(ctx, code)
	if err != nil {
		return SubmitResult{}, err
	}
	if quiz.GameState != domain.StateQuestionActive || quiz.QuestionStartTime == nil {
		return SubmitResult{}, domain.ErrQuestionNotActive
	}
	question, ok := quiz.CurrentQuestion()
	if !ok {
		return SubmitResult{}, domain.ErrQuestionNotFound
	}
	player, err := s.players.Get(ctx, code, playerID)
	if err != nil {
		return SubmitResult{}, err
	}

	// The sole duplicate-submission guard: a read-then-check against the
	// player's own answers, with no transactional isolation.
	if existing, answered := player.AnswerFor(question.ID); answered {
		return SubmitResult{Answer: existing, Duplicate: true}, nil
	}

	if err := game.ValidatePayload(question, payload); err != nil {
		return SubmitResult{}, err
	}

	elapsed := s.clock().Sub(*quiz.QuestionStartTime).Seconds()
	if elapsed < 0 {
		elapsed = 0
	}
	doubled := lifeline == domain.LifelinePointDoubler && question.Kind() == domain.KindMCQ
	delta := game.Score(question, payload, elapsed, doubled)

	answer := domain.Answer{
		QuestionID:   question.ID,
		Payload:      payload,
		TimeTaken:    elapsed,
		Score:        delta,
		LifelineUsed: lifeline,
	}
	if err := s.players.AppendAnswer(ctx, code, playerID, answer); err != nil {
		return SubmitResult{}, err
	}
	if delta != 0 {
		if err := s.players.IncrementScore(ctx, code, playerID, delta); err != nil {
			return SubmitResult{}, err
		}
	}

	result := SubmitResult{Answer: answer}
	switch question.Kind() {
	case domain.KindMCQ:
		result.Correct = game.IsCorrectMCQ(question, payload)
		up := game.AdvanceStreak(player.CorrectStreak, result.Correct, quiz.OnLastQuestion())
		if err := s.players.SetStreak(ctx, code, playerID, up.NewStreak); err != nil {
			return SubmitResult{}, err
		}
		if up.EarnDoubler {
			if err := s.players.IncrementDoubler(ctx, code, playerID, 1); err != nil {
				return SubmitResult{}, err
			}
			result.EarnedDoubler = true
		}
	case domain.KindMatch:
		d := question.Detail.(domain.MatchDetail)
		result.CorrectMatches = game.CorrectMatches(d, payload.(domain.MatchAnswer))
	}

	s.log.Debugw("answer accepted", "code", code, "player", playerID, "question", question.ID, "delta", delta)
	return result, nil
}

// LifelineResult describes an applied lifeline: the debited cost and the
// options the fifty-fifty eliminated (display only), or the armed doubler.
type LifelineResult struct {
	Kind              domain.Lifeline
	Cost              int
	EliminatedOptions []int
}

// UseLifeline applies a lifeline for the active MCQ question.
// usedThisQuestion is the connection's own one-per-question latch. The
// fifty-fifty debit and use-count bump land immediately, whether or not the
// player ever answers.
func (s *QuizService) UseLifeline(ctx context.Context, code, playerID string, kind domain.Lifeline, usedThisQuestion bool) (LifelineResult, error) {
	quiz, err := s.sessions.Get(ctx, code)
	if err != nil {
		return LifelineResult{}, err
	}
	player, err := s.players.Get(ctx, code, playerID)
	if err != nil {
		return LifelineResult{}, err
	}
	if err := game.CanUseLifeline(kind, quiz, player, usedThisQuestion); err != nil {
		return LifelineResult{}, err
	}
	question, _ := quiz.CurrentQuestion()

	switch kind {
	case domain.LifelineFiftyFifty:
		cost := game.FiftyFiftyCost(player.FiftyFiftyUses)
		if err := s.players.IncrementScore(ctx, code, playerID, -cost); err != nil {
			return LifelineResult{}, err
		}
		if err := s.players.IncrementFiftyFiftyUses(ctx, code, playerID, 1); err != nil {
			return LifelineResult{}, err
		}
		d := question.Detail.(domain.MCQDetail)
		s.mu.Lock()
		eliminated := game.EliminateOptions(d, s.rnd)
		s.mu.Unlock()
		s.log.Debugw("fifty-fifty used", "code", code, "player", playerID, "cost", cost)
		return LifelineResult{Kind: kind, Cost: cost, EliminatedOptions: eliminated}, nil
	case domain.LifelinePointDoubler:
		if err := s.players.IncrementDoubler(ctx, code, playerID, -1); err != nil {
			return LifelineResult{}, err
		}
		s.log.Debugw("point doubler armed", "code", code, "player", playerID)
		return LifelineResult{Kind: kind}, nil
	}
	return LifelineResult{}, domain.ErrLifelineUnavailable
}

func (s *QuizService) authorizeHost(ctx context.Context, code, hostToken string) (domain.Quiz, error) {
	quiz, err := s.sessions.Get(ctx, code)
	if err != nil {
		return domain.Quiz{}, err
	}
	if hostToken == "" || hostToken != quiz.HostID {
		return domain.Quiz{}, domain.ErrNotHost
	}
	return quiz, nil
}

func (s *QuizService) transition(ctx context.Context, quiz domain.Quiz, to domain.GameState, upd SessionUpdate) (domain.Quiz, error) {
	if !game.CanTransition(quiz, to) {
		return domain.Quiz{}, fmt.Errorf("%w: %s -> %s", domain.ErrBadTransition, quiz.GameState, to)
	}
	upd.GameState = &to
	if err := s.sessions.Update(ctx, quiz.ID, upd); err != nil {
		return domain.Quiz{}, err
	}
	s.log.Infow("game state advanced", "code", quiz.ID, "from", quiz.GameState, "to", to)
	return s.sessions.Get(ctx, quiz.ID)
}

func (s *QuizService) newJoinCode() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	b := make([]byte, joinCodeLength)
	for i := range b {
		b[i] = joinCodeAlphabet[s.rnd.Intn(len(joinCodeAlphabet))]
	}
	return string(b)
}
