package game

import (
	"sort"

	"quizarena-service/internal/domain"
)

// LeaderboardEntry is a snapshot-friendly view of a ranked player.
type LeaderboardEntry struct {
	PlayerID string      `json:"playerId"`
	Name     string      `json:"name"`
	Avatar   string      `json:"avatar,omitempty"`
	Clan     domain.Clan `json:"clan,omitempty"`
	Score    int         `json:"score"`
	Rank     int         `json:"rank"`
}

// Leaderboard ranks players by cumulative score descending. Ties keep the
// roster's enumeration order (stable sort); nothing is cached, every view
// recomputes from the live player set.
func Leaderboard(players []domain.Player) []LeaderboardEntry {
	entries := make([]LeaderboardEntry, 0, len(players))
	for _, p := range players {
		entries = append(entries, LeaderboardEntry{
			PlayerID: p.ID,
			Name:     p.Name,
			Avatar:   p.Avatar,
			Clan:     p.Clan,
			Score:    p.Score,
		})
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Score > entries[j].Score
	})
	for i := range entries {
		entries[i].Rank = i + 1
	}
	return entries
}

// ClanScores sums player scores per clan for the battle displays.
func ClanScores(players []domain.Player) map[domain.Clan]int {
	totals := make(map[domain.Clan]int, len(domain.Clans))
	for _, p := range players {
		if p.Clan != "" {
			totals[p.Clan] += p.Score
		}
	}
	return totals
}
