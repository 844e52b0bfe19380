package game

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"quizarena-service/internal/domain"
)

func playerWithAnswer(id string, a domain.Answer) domain.Player {
	return domain.Player{ID: id, Name: id, Answers: []domain.Answer{a}}
}

func TestOptionTallies(t *testing.T) {
	q := mcqQuestion(30)
	players := []domain.Player{
		playerWithAnswer("p1", domain.Answer{QuestionID: "q1", Payload: domain.OptionAnswer(1)}),
		playerWithAnswer("p2", domain.Answer{QuestionID: "q1", Payload: domain.OptionAnswer(1), LifelineUsed: domain.LifelinePointDoubler}),
		playerWithAnswer("p3", domain.Answer{QuestionID: "q1", Payload: domain.OptionAnswer(3)}),
		playerWithAnswer("p4", domain.Answer{QuestionID: "other", Payload: domain.OptionAnswer(0)}),
		{ID: "p5", Name: "p5"}, // hasn't answered
	}

	tallies := OptionTallies(q, players)
	require.Len(t, tallies, 4)
	assert.Equal(t, OptionTally{}, tallies[0])
	assert.Equal(t, OptionTally{Count: 2, DoublerCount: 1}, tallies[1])
	assert.Equal(t, OptionTally{Count: 1}, tallies[3])
}

func TestOptionTalliesOnlyForOptionKinds(t *testing.T) {
	cloud := domain.Question{ID: "qw", Text: "w", TimeLimit: 10, Detail: domain.WordCloudDetail{}}
	assert.Nil(t, OptionTallies(cloud, nil))
}

func TestWordCloudKeepsDuplicatesDropsEmpties(t *testing.T) {
	q := domain.Question{ID: "qw", Text: "One word", TimeLimit: 20, Detail: domain.WordCloudDetail{}}
	players := []domain.Player{
		playerWithAnswer("p1", domain.Answer{QuestionID: "qw", Payload: domain.TextAnswer("fast")}),
		playerWithAnswer("p2", domain.Answer{QuestionID: "qw", Payload: domain.TextAnswer("fast")}),
		playerWithAnswer("p3", domain.Answer{QuestionID: "qw", Payload: domain.TextAnswer("   ")}),
		playerWithAnswer("p4", domain.Answer{QuestionID: "qw", Payload: domain.TextAnswer("Fast!")}),
	}

	entries := WordCloud(q, players)
	require.Len(t, entries, 3)
	// no normalization: duplicates and punctuation survive as-is
	assert.Equal(t, "fast", entries[0].Text)
	assert.Equal(t, "fast", entries[1].Text)
	assert.Equal(t, "Fast!", entries[2].Text)
	// identical words at different positions style differently
	assert.NotEqual(t, entries[0].Style, entries[1].Style)
}

func TestStyleWordDeterministicAndBounded(t *testing.T) {
	for i, word := range []string{"go", "routines", "channel", "channel", "x"} {
		a := StyleWord(word, i)
		b := StyleWord(word, i)
		assert.Equal(t, a, b)
		assert.GreaterOrEqual(t, a.RotationDeg, -10)
		assert.LessOrEqual(t, a.RotationDeg, 10)
		assert.GreaterOrEqual(t, a.FontSizeRem, 1.2)
		assert.Less(t, a.FontSizeRem, 2.2)
		assert.Equal(t, i*50, a.AnimDelayMs)
	}
}

func TestMatchResults(t *testing.T) {
	q := matchQuestion(2) // pool reversed: correct picks are {1, 0}
	players := []domain.Player{
		playerWithAnswer("p1", domain.Answer{QuestionID: "qm", Payload: domain.MatchAnswer{1, 0}}),
		playerWithAnswer("p2", domain.Answer{QuestionID: "qm", Payload: domain.MatchAnswer{1, 1}}),
		playerWithAnswer("p3", domain.Answer{QuestionID: "qm", Payload: domain.MatchAnswer{0, domain.UnansweredPosition}}),
		{ID: "p4"}, // never answered, excluded from percentages
	}

	results := MatchResults(q, players)
	require.Len(t, results, 2)

	assert.Equal(t, 2, results[0].CorrectCount)
	assert.InDelta(t, 66.67, results[0].Percentage, 0.01)
	assert.Equal(t, 1, results[1].CorrectCount)
	assert.InDelta(t, 33.33, results[1].Percentage, 0.01)
}

func TestMatchResultsNoAnswerers(t *testing.T) {
	q := matchQuestion(2)
	results := MatchResults(q, nil)
	require.Len(t, results, 2)
	assert.Zero(t, results[0].Percentage)
	assert.Zero(t, results[0].CorrectCount)
}
