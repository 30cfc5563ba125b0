package game

import (
	"sort"

	"livequiz-service/internal/domain"
)

// RankResults orders results by total score descending and assigns standard
// competition ranks: tied scores share a rank and the next distinct score
// skips the tied count, e.g. scores 100,100,50 rank as 1,1,3. Tied is set
// iff more than one entry shares the exact score. Ties are ordered by team
// name for determinism.
func RankResults(results []domain.TeamResult) []domain.TeamResult {
	ranked := make([]domain.TeamResult, len(results))
	copy(ranked, results)

	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].TotalScore != ranked[j].TotalScore {
			return ranked[i].TotalScore > ranked[j].TotalScore
		}
		return ranked[i].TeamName < ranked[j].TeamName
	})

	scoreCounts := make(map[int]int, len(ranked))
	for _, r := range ranked {
		scoreCounts[r.TotalScore]++
	}

	rank := 0
	prevScore := 0
	for i := range ranked {
		if i == 0 || ranked[i].TotalScore < prevScore {
			rank = i + 1
			prevScore = ranked[i].TotalScore
		}
		ranked[i].Rank = rank
		ranked[i].Tied = scoreCounts[ranked[i].TotalScore] > 1
	}
	return ranked
}
