package game

import (
	"math/rand"

	"quizarena-service/internal/domain"
)

// FiftyFiftyBaseCost is doubled on every prior use: 200, 400, 800, ...
const FiftyFiftyBaseCost = 200

// StreakForDoubler is the consecutive-correct MCQ count that earns a
// point doubler; the streak resets to zero upon earning.
const StreakForDoubler = 2

// FiftyFiftyCost escalates with the player's prior use count.
func FiftyFiftyCost(priorUses int) int {
	if priorUses < 0 {
		priorUses = 0
	}
	return FiftyFiftyBaseCost << priorUses
}

// CanUseLifeline runs the shared eligibility ladder: MCQ only, question
// active, not yet answered, one lifeline per question, plus the per-kind
// resource check (score covers the fifty-fifty cost, doubler inventory > 0).
func CanUseLifeline(kind domain.Lifeline, quiz domain.Quiz, player domain.Player, usedThisQuestion bool) error {
	question, ok := quiz.CurrentQuestion()
	if !ok || question.Kind() != domain.KindMCQ {
		return domain.ErrLifelineUnavailable
	}
	if quiz.GameState != domain.StateQuestionActive {
		return domain.ErrLifelineUnavailable
	}
	if player.HasAnswered(question.ID) {
		return domain.ErrLifelineUnavailable
	}
	if usedThisQuestion {
		return domain.ErrLifelineUnavailable
	}
	switch kind {
	case domain.LifelineFiftyFifty:
		if player.Score < FiftyFiftyCost(player.FiftyFiftyUses) {
			return domain.ErrLifelineUnavailable
		}
	case domain.LifelinePointDoubler:
		if player.Lifelines.PointDoubler <= 0 {
			return domain.ErrLifelineUnavailable
		}
	default:
		return domain.ErrLifelineUnavailable
	}
	return nil
}

// EliminateOptions picks the two incorrect MCQ options the fifty-fifty hides.
// The single incorrect option to keep is chosen uniformly at random; scoring
// is unaffected, this is display-only.
func EliminateOptions(d domain.MCQDetail, rnd *rand.Rand) []int {
	incorrect := make([]int, 0, len(d.Options)-1)
	for i := range d.Options {
		if i != d.CorrectIndex {
			incorrect = append(incorrect, i)
		}
	}
	if len(incorrect) <= 1 {
		return nil
	}
	keep := incorrect[rnd.Intn(len(incorrect))]
	eliminated := make([]int, 0, len(incorrect)-1)
	for _, i := range incorrect {
		if i != keep {
			eliminated = append(eliminated, i)
		}
	}
	return eliminated
}

// StreakUpdate is the streak/doubler outcome of one MCQ submission, applied
// to the player record alongside the answer append.
type StreakUpdate struct {
	// NewStreak is the value to write to the streak counter.
	NewStreak int
	// EarnDoubler adds one point-doubler unit when true.
	EarnDoubler bool
}

// AdvanceStreak computes the streak consequence of an MCQ answer. A wrong
// answer resets the streak; the second consecutive correct answer earns a
// doubler and resets the streak, except on the final question where no
// doubler could ever be spent.
func AdvanceStreak(currentStreak int, correct, lastQuestion bool) StreakUpdate {
	if !correct {
		return StreakUpdate{NewStreak: 0}
	}
	next := currentStreak + 1
	if next == StreakForDoubler && !lastQuestion {
		return StreakUpdate{NewStreak: 0, EarnDoubler: true}
	}
	return StreakUpdate{NewStreak: next}
}
