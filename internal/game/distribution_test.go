package game

import (
	"testing"

	"livequiz-service/internal/domain"
)

func mcqQuestion() domain.Question {
	return domain.Question{
		ID:         "q1",
		QuizID:     "quiz-1",
		Type:       domain.MultipleChoice,
		Options:    []string{"3", "4", "5", "6"},
		CorrectKey: "B",
		Points:     10,
	}
}

func subs(answers ...string) []domain.Submission {
	out := make([]domain.Submission, len(answers))
	for i, a := range answers {
		out[i] = domain.Submission{TeamID: string(rune('a' + i)), QuestionID: "q1", Answer: a}
	}
	return out
}

func TestMcqDistributionCountsOptions(t *testing.T) {
	dist := CalculateDistribution(mcqQuestion(), subs("B", "A", "b", "D"))

	want := map[string]int{"A": 1, "B": 2, "C": 0, "D": 1}
	for key, count := range want {
		if dist.OptionCounts[key] != count {
			t.Fatalf("option %s: expected %d, got %d", key, count, dist.OptionCounts[key])
		}
	}
	if dist.CorrectCount != 2 || dist.IncorrectCount != 2 {
		t.Fatalf("expected 2 correct / 2 incorrect, got %d/%d", dist.CorrectCount, dist.IncorrectCount)
	}
}

func TestMcqDistributionCompleteness(t *testing.T) {
	answers := []string{"A", "B", "B", "C", "D", "a", "c"}
	dist := CalculateDistribution(mcqQuestion(), subs(answers...))

	sum := 0
	for _, count := range dist.OptionCounts {
		sum += count
	}
	if sum != len(answers) {
		t.Fatalf("expected option counts to sum to %d, got %d", len(answers), sum)
	}
	if dist.CorrectCount+dist.IncorrectCount != len(answers) {
		t.Fatalf("expected correct+incorrect == %d, got %d", len(answers), dist.CorrectCount+dist.IncorrectCount)
	}
}

func TestMcqDistributionZeroSubmissions(t *testing.T) {
	dist := CalculateDistribution(mcqQuestion(), nil)

	if len(dist.OptionCounts) != 4 {
		t.Fatalf("expected 4 initialized option keys, got %v", dist.OptionCounts)
	}
	for key, count := range dist.OptionCounts {
		if count != 0 {
			t.Fatalf("option %s: expected 0, got %d", key, count)
		}
	}
	if dist.CorrectCount != 0 || dist.IncorrectCount != 0 {
		t.Fatalf("expected zero tallies, got %+v", dist)
	}
}

func TestMcqDistributionBlankCountsIncorrect(t *testing.T) {
	dist := CalculateDistribution(mcqQuestion(), subs("", "  ", "B"))

	if dist.IncorrectCount != 2 {
		t.Fatalf("expected blanks counted incorrect, got %+v", dist)
	}
	if dist.CorrectCount != 1 {
		t.Fatalf("expected 1 correct, got %d", dist.CorrectCount)
	}
}

func TestIdentificationDistribution(t *testing.T) {
	question := domain.Question{
		ID:         "q2",
		Type:       domain.Identification,
		CorrectKey: "photosynthesis",
	}
	dist := CalculateDistribution(question, subs("Photosynthesis ", "osmosis", "photosynthesis"))

	if len(dist.OptionCounts) != 0 {
		t.Fatalf("identification should carry no option counts, got %v", dist.OptionCounts)
	}
	if dist.CorrectCount != 2 || dist.IncorrectCount != 1 {
		t.Fatalf("expected 2 correct / 1 incorrect, got %d/%d", dist.CorrectCount, dist.IncorrectCount)
	}
}
