package game

import (
	"time"

	"quizarena-service/internal/domain"
)

// Fixed presentation windows for the automatic transitions. The host's runner
// owns these timers; players only observe the resulting state changes.
const (
	ClanBattleVsWindow    = 2 * time.Second
	ClanBattleIntroWindow = 6 * time.Second
	QuestionIntroWindow   = 5 * time.Second
)

// StartState returns the state a LOBBY session enters on the host's start
// action: the clan-battle sequence when clan mode is on, otherwise straight
// to the first question intro.
func StartState(cfg domain.QuizConfig) domain.GameState {
	if cfg.ClanBased {
		return domain.StateClanBattleVs
	}
	return domain.StateQuestionIntro
}

// NextStates enumerates the legal successors of a state. The machine is
// forward-only: QUESTION_RESULT never returns to QUESTION_ACTIVE, and
// FINISHED is terminal.
func NextStates(from domain.GameState) []domain.GameState {
	switch from {
	case domain.StateLobby:
		return []domain.GameState{domain.StateClanBattleVs, domain.StateQuestionIntro}
	case domain.StateClanBattleVs:
		return []domain.GameState{domain.StateClanBattleIntro}
	case domain.StateClanBattleIntro:
		return []domain.GameState{domain.StateQuestionIntro}
	case domain.StateQuestionIntro:
		return []domain.GameState{domain.StateQuestionActive}
	case domain.StateQuestionActive:
		return []domain.GameState{domain.StateQuestionResult}
	case domain.StateQuestionResult:
		return []domain.GameState{domain.StateLeaderboard, domain.StateFinished}
	case domain.StateLeaderboard:
		return []domain.GameState{domain.StateQuestionIntro}
	case domain.StateFinished:
		return nil
	}
	return nil
}

// CanTransition reports whether quiz may move from its current state to the
// target, honoring the clan-mode gate on LOBBY exits and restricting
// FINISHED to the last question's result.
func CanTransition(quiz domain.Quiz, to domain.GameState) bool {
	allowed := false
	for _, s := range NextStates(quiz.GameState) {
		if s == to {
			allowed = true
			break
		}
	}
	if !allowed {
		return false
	}
	switch to {
	case domain.StateClanBattleVs:
		return quiz.Config.ClanBased
	case domain.StateQuestionIntro:
		// From LOBBY only when clan mode is off; the clan states are entered
		// exactly once, before the first question.
		if quiz.GameState == domain.StateLobby {
			return !quiz.Config.ClanBased
		}
		return true
	case domain.StateFinished:
		return quiz.OnLastQuestion()
	}
	return true
}

// AutoWindow returns the fixed duration after which the host advances
// automatically out of the given state, or false for host-action states.
func AutoWindow(state domain.GameState) (time.Duration, bool) {
	switch state {
	case domain.StateClanBattleVs:
		return ClanBattleVsWindow, true
	case domain.StateClanBattleIntro:
		return ClanBattleIntroWindow, true
	case domain.StateQuestionIntro:
		return QuestionIntroWindow, true
	}
	return 0, false
}

// AutoNext returns the state the automatic timer advances into.
func AutoNext(state domain.GameState) (domain.GameState, bool) {
	switch state {
	case domain.StateClanBattleVs:
		return domain.StateClanBattleIntro, true
	case domain.StateClanBattleIntro:
		return domain.StateQuestionIntro, true
	case domain.StateQuestionIntro:
		return domain.StateQuestionActive, true
	}
	return "", false
}
