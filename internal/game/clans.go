package game

import "quizarena-service/internal/domain"

// ClanCounts tallies the current per-clan headcount from the live roster.
func ClanCounts(players []domain.Player) map[domain.Clan]int {
	counts := make(map[domain.Clan]int, len(domain.Clans))
	for _, p := range players {
		if p.Clan != "" {
			counts[p.Clan]++
		}
	}
	return counts
}

// AutoBalanceClan assigns the joining player to whichever clan currently has
// the lower headcount; TITANS wins ties as the fixed default.
func AutoBalanceClan(players []domain.Player) domain.Clan {
	counts := ClanCounts(players)
	if counts[domain.ClanTitans] <= counts[domain.ClanDefenders] {
		return domain.ClanTitans
	}
	return domain.ClanDefenders
}

// AssignClan resolves the clan for a joining player under the session's
// policy. Assignment happens once, at join, and is permanent. choice is the
// player's manual pick and is ignored under auto-balance.
func AssignClan(cfg domain.QuizConfig, players []domain.Player, choice domain.Clan) (domain.Clan, error) {
	if !cfg.ClanBased {
		return "", nil
	}
	if cfg.ClanAssignment == domain.AssignAutoBalance {
		return AutoBalanceClan(players), nil
	}
	switch choice {
	case domain.ClanTitans, domain.ClanDefenders:
		return choice, nil
	}
	return "", domain.ErrClanRequired
}
