package game

import (
	"testing"

	"livequiz-service/internal/domain"
)

func resultsWithScores(scores ...int) []domain.TeamResult {
	results := make([]domain.TeamResult, len(scores))
	for i, score := range scores {
		results[i] = domain.TeamResult{
			TeamID:     string(rune('a' + i)),
			TeamName:   "Team " + string(rune('A'+i)),
			TotalScore: score,
		}
	}
	return results
}

func TestRankSkipsTiedPositions(t *testing.T) {
	ranked := RankResults(resultsWithScores(100, 100, 50))

	wantRanks := []int{1, 1, 3}
	wantTied := []bool{true, true, false}
	for i, r := range ranked {
		if r.Rank != wantRanks[i] {
			t.Fatalf("entry %d: expected rank %d, got %d", i, wantRanks[i], r.Rank)
		}
		if r.Tied != wantTied[i] {
			t.Fatalf("entry %d: expected tied=%v, got %v", i, wantTied[i], r.Tied)
		}
	}
}

func TestRankMidListTie(t *testing.T) {
	ranked := RankResults(resultsWithScores(90, 80, 80, 70))

	wantRanks := []int{1, 2, 2, 4}
	for i, r := range ranked {
		if r.Rank != wantRanks[i] {
			t.Fatalf("entry %d: expected rank %d, got %d", i, wantRanks[i], r.Rank)
		}
	}
	if ranked[0].Tied || ranked[3].Tied {
		t.Fatalf("untied entries flagged as tied: %+v", ranked)
	}
	if !ranked[1].Tied || !ranked[2].Tied {
		t.Fatalf("tied entries not flagged: %+v", ranked)
	}
}

func TestRankSortsDescendingAndIsMonotonic(t *testing.T) {
	ranked := RankResults(resultsWithScores(10, 50, 30, 50, 0))

	for i := 1; i < len(ranked); i++ {
		if ranked[i].TotalScore > ranked[i-1].TotalScore {
			t.Fatalf("scores not descending at %d: %+v", i, ranked)
		}
		if ranked[i].Rank < ranked[i-1].Rank {
			t.Fatalf("ranks not monotonic at %d: %+v", i, ranked)
		}
		if ranked[i].TotalScore == ranked[i-1].TotalScore && ranked[i].Rank != ranked[i-1].Rank {
			t.Fatalf("equal scores with different ranks at %d: %+v", i, ranked)
		}
	}
	if ranked[0].Rank != 1 {
		t.Fatalf("expected first rank 1, got %d", ranked[0].Rank)
	}
}

func TestRankEmptyAndSingle(t *testing.T) {
	if got := RankResults(nil); len(got) != 0 {
		t.Fatalf("expected empty ranking, got %+v", got)
	}
	single := RankResults(resultsWithScores(42))
	if single[0].Rank != 1 || single[0].Tied {
		t.Fatalf("expected lone rank 1 untied, got %+v", single[0])
	}
}
