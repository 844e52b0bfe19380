package game

import (
	"math"

	"quizarena-service/internal/domain"
)

// Base scores before the time bonus. MCQ answers earn the base plus up to
// 1000 bonus points; MATCH answers scale the total by the correct fraction.
const (
	MCQBaseScore   = 1000
	MatchBaseScore = 2000
	MaxTimeBonus   = 1000
)

// TimeBonus converts elapsed seconds into the 0..1000 bonus. Elapsed time is
// clamped to the limit, so late submissions earn the base score only.
func TimeBonus(elapsed float64, timeLimit int) int {
	if timeLimit <= 0 {
		return 0
	}
	frac := 1 - elapsed/float64(timeLimit)
	if frac < 0 {
		frac = 0
	}
	return int(math.Round(frac * MaxTimeBonus))
}

// Score computes the signed delta one submission is worth. It is pure:
// invoked exactly once per player per question, when the first valid answer
// is accepted, and never re-run. doubled applies the point-doubler lifeline
// and only ever affects MCQ deltas.
func Score(q domain.Question, payload domain.AnswerPayload, elapsed float64, doubled bool) int {
	switch d := q.Detail.(type) {
	case domain.MCQDetail:
		opt, ok := payload.(domain.OptionAnswer)
		if !ok || int(opt) != d.CorrectIndex {
			return 0
		}
		score := MCQBaseScore + TimeBonus(elapsed, q.TimeLimit)
		if doubled {
			score *= 2
		}
		return score
	case domain.MatchDetail:
		matches, ok := payload.(domain.MatchAnswer)
		if !ok {
			return 0
		}
		correct := CorrectMatches(d, matches)
		if correct == 0 {
			return 0
		}
		total := float64(MatchBaseScore + TimeBonus(elapsed, q.TimeLimit))
		return int(math.Round(float64(correct) / float64(len(d.Pairs)) * total))
	case domain.SurveyDetail, domain.WordCloudDetail:
		// participation only
		return 0
	}
	return 0
}

// CorrectMatches counts prompt positions whose chosen pool option's text
// equals that position's correct-match text. Positions beyond the submitted
// slice, unanswered sentinels, and out-of-pool indices count as wrong.
func CorrectMatches(d domain.MatchDetail, matches domain.MatchAnswer) int {
	correct := 0
	for promptIdx, pair := range d.Pairs {
		if promptIdx >= len(matches) {
			break
		}
		poolIdx := matches[promptIdx]
		if poolIdx == domain.UnansweredPosition || poolIdx < 0 || poolIdx >= len(d.OptionPool) {
			continue
		}
		if d.OptionPool[poolIdx] == pair.CorrectMatch {
			correct++
		}
	}
	return correct
}

// IsCorrectMCQ reports whether an option payload hits the MCQ correct index.
// Non-MCQ questions and non-option payloads are never "correct" for streak
// purposes.
func IsCorrectMCQ(q domain.Question, payload domain.AnswerPayload) bool {
	d, ok := q.Detail.(domain.MCQDetail)
	if !ok {
		return false
	}
	opt, ok := payload.(domain.OptionAnswer)
	return ok && int(opt) == d.CorrectIndex
}

// ValidatePayload rejects malformed or out-of-range payloads before any
// store write is attempted.
func ValidatePayload(q domain.Question, payload domain.AnswerPayload) error {
	switch d := q.Detail.(type) {
	case domain.MCQDetail:
		opt, ok := payload.(domain.OptionAnswer)
		if !ok || int(opt) < 0 || int(opt) >= len(d.Options) {
			return domain.ErrInvalidAnswer
		}
	case domain.SurveyDetail:
		opt, ok := payload.(domain.OptionAnswer)
		if !ok || int(opt) < 0 || int(opt) >= len(d.Options) {
			return domain.ErrInvalidAnswer
		}
	case domain.WordCloudDetail:
		if _, ok := payload.(domain.TextAnswer); !ok {
			return domain.ErrInvalidAnswer
		}
	case domain.MatchDetail:
		matches, ok := payload.(domain.MatchAnswer)
		if !ok || len(matches) > len(d.Pairs) {
			return domain.ErrInvalidAnswer
		}
		for _, poolIdx := range matches {
			if poolIdx == domain.UnansweredPosition {
				continue
			}
			if poolIdx < 0 || poolIdx >= len(d.OptionPool) {
				return domain.ErrInvalidAnswer
			}
		}
	default:
		return domain.ErrInvalidAnswer
	}
	return nil
}
