package domain

import "errors"

var (
	// ErrQuizNotFound is returned when a join code matches no session.
	ErrQuizNotFound = errors.New("quiz not found")
	// ErrPlayerNotFound is returned when a player acts before joining.
	ErrPlayerNotFound = errors.New("player not found in quiz")
	// ErrNotHost rejects state-transition actions from anyone but the host.
	ErrNotHost = errors.New("action requires the host token")
	// ErrBadTransition rejects backward or skipped game-state transitions.
	ErrBadTransition = errors.New("game state transition not allowed")
	// ErrNoPlayers blocks starting a session with an empty lobby.
	ErrNoPlayers = errors.New("cannot start quiz without players")
	// ErrQuestionNotFound is returned for a bank ID that matches no question.
	ErrQuestionNotFound = errors.New("question not found")
	// ErrInvalidQuestion indicates a question violating authoring invariants.
	ErrInvalidQuestion = errors.New("invalid question")
	// ErrInvalidAnswer indicates a malformed or out-of-range answer payload.
	ErrInvalidAnswer = errors.New("invalid answer payload")
	// ErrQuestionNotActive rejects submissions outside QUESTION_ACTIVE.
	ErrQuestionNotActive = errors.New("question is not active")
	// ErrLifelineUnavailable covers every failed lifeline eligibility check.
	ErrLifelineUnavailable = errors.New("lifeline not available")
	// ErrClanRequired is returned when a clan-based quiz with manual
	// assignment is joined without a clan choice.
	ErrClanRequired = errors.New("clan choice required")
)
