package app

import (
	"context"

	"quizarena-service/internal/domain"
	"quizarena-service/internal/game"
)

// QuestionResults is the host's result-screen view for the current question,
// recomputed from the live answer set on demand. Only the variant's own
// aggregate is populated.
type QuestionResults struct {
	QuestionID    string                 `json:"questionId"`
	Kind          domain.QuestionKind    `json:"kind"`
	ResponseCount int                    `json:"responseCount"`
	OptionTallies []game.OptionTally     `json:"optionTallies,omitempty"`
	WordCloud     []game.WordCloudEntry  `json:"wordCloud,omitempty"`
	MatchResults  []game.MatchPairResult `json:"matchResults,omitempty"`
}

// QuestionResults derives the aggregate view of the current question.
func (s *QuizService) QuestionResults(ctx context.Context, code string) (QuestionResults, error) {
	quiz, err := s.sessions.Get(ctx, code)
	if err != nil {
		return QuestionResults{}, err
	}
	question, ok := quiz.CurrentQuestion()
	if !ok {
		return QuestionResults{}, domain.ErrQuestionNotFound
	}
	players, err := s.players.List(ctx, code)
	if err != nil {
		return QuestionResults{}, err
	}

	results := QuestionResults{
		QuestionID:    question.ID,
		Kind:          question.Kind(),
		ResponseCount: len(game.AnswersFor(players, question.ID)),
	}
	switch question.Kind() {
	case domain.KindMCQ, domain.KindSurvey:
		results.OptionTallies = game.OptionTallies(question, players)
	case domain.KindWordCloud:
		results.WordCloud = game.WordCloud(question, players)
	case domain.KindMatch:
		results.MatchResults = game.MatchResults(question, players)
	}
	return results, nil
}

// LeaderboardView is the ranked standings plus per-clan totals.
type LeaderboardView struct {
	Entries    []game.LeaderboardEntry `json:"entries"`
	ClanScores map[domain.Clan]int     `json:"clanScores,omitempty"`
}

// LeaderboardView recomputes the standings from the live player set.
func (s *QuizService) LeaderboardView(ctx context.Context, code string) (LeaderboardView, error) {
	quiz, err := s.sessions.Get(ctx, code)
	if err != nil {
		return LeaderboardView{}, err
	}
	players, err := s.players.List(ctx, code)
	if err != nil {
		return LeaderboardView{}, err
	}
	view := LeaderboardView{Entries: game.Leaderboard(players)}
	if quiz.Config.ClanBased {
		view.ClanScores = game.ClanScores(players)
	}
	return view, nil
}
