package game

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"quizarena-service/internal/domain"
)

func TestLeaderboardOrdersByScoreDescending(t *testing.T) {
	players := []domain.Player{
		{ID: "p1", Name: "Alice", Score: 1500},
		{ID: "p2", Name: "Bob", Score: 3200},
		{ID: "p3", Name: "Cara", Score: 0},
		{ID: "p4", Name: "Dan", Score: 1500},
	}

	entries := Leaderboard(players)
	require.Len(t, entries, 4)
	assert.Equal(t, "p2", entries[0].PlayerID)
	assert.Equal(t, 1, entries[0].Rank)
	// ties keep enumeration order: Alice before Dan
	assert.Equal(t, "p1", entries[1].PlayerID)
	assert.Equal(t, "p4", entries[2].PlayerID)
	assert.Equal(t, "p3", entries[3].PlayerID)
	assert.Equal(t, 4, entries[3].Rank)
}

func TestLeaderboardRecomputesFresh(t *testing.T) {
	players := []domain.Player{{ID: "p1", Name: "Alice", Score: 100}}
	first := Leaderboard(players)
	players[0].Score = 900
	second := Leaderboard(players)
	assert.Equal(t, 100, first[0].Score)
	assert.Equal(t, 900, second[0].Score)
}

func TestClanScores(t *testing.T) {
	players := []domain.Player{
		{ID: "p1", Clan: domain.ClanTitans, Score: 1000},
		{ID: "p2", Clan: domain.ClanTitans, Score: 500},
		{ID: "p3", Clan: domain.ClanDefenders, Score: 700},
		{ID: "p4", Score: 9999}, // unassigned players don't count
	}
	totals := ClanScores(players)
	assert.Equal(t, 1500, totals[domain.ClanTitans])
	assert.Equal(t, 700, totals[domain.ClanDefenders])
}
