package game

import (
	"strings"

	"quizarena-service/internal/domain"
)

// The aggregator is a pure read-side derivation: recomputed from the live
// answer set on every snapshot, never persisted, never incremental.

// OptionTally is the live count for one MCQ/SURVEY option, with the number
// of answers that had the point doubler armed (host display only).
type OptionTally struct {
	Count        int `json:"count"`
	DoublerCount int `json:"doublerCount"`
}

// WordCloudEntry is one non-empty free-text answer with its deterministic
// cosmetic styling.
type WordCloudEntry struct {
	Text  string    `json:"text"`
	Style WordStyle `json:"style"`
}

// WordStyle is derived from a hash of the token and its position. Purely
// cosmetic; identical words at different positions style differently.
type WordStyle struct {
	RotationDeg int     `json:"rotationDeg"` // -10..10
	FontSizeRem float64 `json:"fontSizeRem"` // 1.2..2.2
	AnimDelayMs int     `json:"animDelayMs"` // 50ms per position
}

// MatchPairResult is the per-prompt-position correctness across everyone who
// answered a MATCH question.
type MatchPairResult struct {
	Prompt       string  `json:"prompt"`
	CorrectMatch string  `json:"correctMatch"`
	CorrectCount int     `json:"correctCount"`
	Percentage   float64 `json:"percentage"` // of total answerers
}

// AnswersFor collects every player's answer to the question, in roster order.
func AnswersFor(players []domain.Player, questionID string) []domain.Answer {
	answers := make([]domain.Answer, 0, len(players))
	for _, p := range players {
		if a, ok := p.AnswerFor(questionID); ok {
			answers = append(answers, a)
		}
	}
	return answers
}

// OptionTallies derives per-option selection and doubler counts for MCQ and
// SURVEY questions. Other kinds return nil.
func OptionTallies(q domain.Question, players []domain.Player) []OptionTally {
	var optionCount int
	switch d := q.Detail.(type) {
	case domain.MCQDetail:
		optionCount = len(d.Options)
	case domain.SurveyDetail:
		optionCount = len(d.Options)
	default:
		return nil
	}
	tallies := make([]OptionTally, optionCount)
	for _, a := range AnswersFor(players, q.ID) {
		opt, ok := a.Payload.(domain.OptionAnswer)
		if !ok || int(opt) < 0 || int(opt) >= optionCount {
			continue
		}
		tallies[opt].Count++
		if a.LifelineUsed == domain.LifelinePointDoubler {
			tallies[opt].DoublerCount++
		}
	}
	return tallies
}

// WordCloud lists the non-empty free-text answers as-is: no dedup, no
// normalization, styled deterministically by token and position.
func WordCloud(q domain.Question, players []domain.Player) []WordCloudEntry {
	if q.Kind() != domain.KindWordCloud {
		return nil
	}
	entries := make([]WordCloudEntry, 0, len(players))
	for _, a := range AnswersFor(players, q.ID) {
		text, ok := a.Payload.(domain.TextAnswer)
		if !ok || strings.TrimSpace(string(text)) == "" {
			continue
		}
		entries = append(entries, WordCloudEntry{
			Text:  string(text),
			Style: StyleWord(string(text), len(entries)),
		})
	}
	return entries
}

// StyleWord hashes the token plus its position into rotation, size, and
// animation delay.
func StyleWord(word string, position int) WordStyle {
	h := 0
	for _, r := range word {
		h = int(r) + ((h << 5) - h)
	}
	h += position
	if h < 0 {
		h = -h
	}
	return WordStyle{
		RotationDeg: (h % 20) - 10,
		FontSizeRem: 1.2 + float64(h%100)/100,
		AnimDelayMs: position * 50,
	}
}

// MatchResults derives per-prompt correct counts and percentages across all
// players who answered the MATCH question. Percentages are of the number of
// answerers, not the full roster.
func MatchResults(q domain.Question, players []domain.Player) []MatchPairResult {
	d, ok := q.Detail.(domain.MatchDetail)
	if !ok {
		return nil
	}
	var submissions []domain.MatchAnswer
	for _, a := range AnswersFor(players, q.ID) {
		if matches, ok := a.Payload.(domain.MatchAnswer); ok {
			submissions = append(submissions, matches)
		}
	}
	results := make([]MatchPairResult, len(d.Pairs))
	for promptIdx, pair := range d.Pairs {
		correct := 0
		for _, matches := range submissions {
			if promptIdx >= len(matches) {
				continue
			}
			poolIdx := matches[promptIdx]
			if poolIdx == domain.UnansweredPosition || poolIdx < 0 || poolIdx >= len(d.OptionPool) {
				continue
			}
			if d.OptionPool[poolIdx] == pair.CorrectMatch {
				correct++
			}
		}
		pct := 0.0
		if len(submissions) > 0 {
			pct = float64(correct) / float64(len(submissions)) * 100
		}
		results[promptIdx] = MatchPairResult{
			Prompt:       pair.Prompt,
			CorrectMatch: pair.CorrectMatch,
			CorrectCount: correct,
			Percentage:   pct,
		}
	}
	return results
}
