package game

import (
	"strings"

	"livequiz-service/internal/domain"
)

const maxOptionKeys = 4

// CalculateDistribution tallies how teams answered a question. Multiple
// choice: counts per option letter (A-D by option position), with every
// valid key initialized to zero, plus a correct/incorrect split; blank or
// unparseable answers count as incorrect. Identification: correct/incorrect
// only. Zero submissions yields all-zero counts.
func CalculateDistribution(q domain.Question, subs []domain.Submission) domain.AnswerDistribution {
	if q.Type == domain.MultipleChoice {
		return mcqDistribution(q, subs)
	}
	return identificationDistribution(q, subs)
}

func mcqDistribution(q domain.Question, subs []domain.Submission) domain.AnswerDistribution {
	counts := make(map[string]int)
	for i := 0; i < len(q.Options) && i < maxOptionKeys; i++ {
		counts[string(rune('A'+i))] = 0
	}

	correct, incorrect := 0, 0
	for _, sub := range subs {
		answer := strings.ToUpper(strings.TrimSpace(sub.Answer))
		if answer == "" {
			incorrect++
			continue
		}
		if _, ok := counts[answer]; ok {
			counts[answer]++
		}
		if q.IsCorrectAnswer(sub.Answer) {
			correct++
		} else {
			incorrect++
		}
	}
	return domain.AnswerDistribution{
		OptionCounts:   counts,
		CorrectCount:   correct,
		IncorrectCount: incorrect,
	}
}

func identificationDistribution(q domain.Question, subs []domain.Submission) domain.AnswerDistribution {
	correct, incorrect := 0, 0
	for _, sub := range subs {
		if q.IsCorrectAnswer(sub.Answer) {
			correct++
		} else {
			incorrect++
		}
	}
	return domain.AnswerDistribution{
		OptionCounts:   map[string]int{},
		CorrectCount:   correct,
		IncorrectCount: incorrect,
	}
}
