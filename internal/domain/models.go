package domain

import (
	"strings"
	"time"
)

// GameState is the per-quiz phase of the live game flow.
// Transitions: LOBBY -> BUFFER -> ACTIVE -> GRADING -> REVEAL -> (next question or ROUND_SUMMARY).
type GameState string

const (
	StateLobby        GameState = "LOBBY"
	StateBuffer       GameState = "BUFFER"
	StateActive       GameState = "ACTIVE"
	StateGrading      GameState = "GRADING"
	StateReveal       GameState = "REVEAL"
	StateRoundSummary GameState = "ROUND_SUMMARY"
	StateTiebreaker   GameState = "TIEBREAKER"
	StateEnded        GameState = "ENDED"
	StatePaused       GameState = "PAUSED"
)

// QuestionType distinguishes option-based from free-text questions.
type QuestionType string

const (
	MultipleChoice QuestionType = "MULTIPLE_CHOICE"
	Identification QuestionType = "IDENTIFICATION"
)

// Quiz is the top-level competition content.
type Quiz struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

// Question models a single timed question. For MULTIPLE_CHOICE the correct
// key is an option letter (A-D, by option position); for IDENTIFICATION it
// is the expected free-text answer.
type Question struct {
	ID         string       `json:"id"`
	QuizID     string       `json:"quizId"`
	Text       string       `json:"text"`
	Type       QuestionType `json:"type"`
	Difficulty string       `json:"difficulty,omitempty"`
	Options    []string     `json:"options,omitempty"`
	CorrectKey string       `json:"-"`
	Points     int          `json:"points"`
	TimeLimit  int          `json:"timeLimit"` // seconds; defaults to 30 if zero
	OrderIndex int          `json:"orderIndex"`
}

// Team is a competing party with a cumulative score.
type Team struct {
	ID         string `json:"id"`
	QuizID     string `json:"quizId"`
	Name       string `json:"name"`
	TotalScore int    `json:"totalScore"`
}

// Submission is a team's answer for a question. It stays mutable until
// grading locks it; answer changes before expiry overwrite Answer and reset
// Graded.
type Submission struct {
	TeamID        string    `json:"teamId"`
	QuestionID    string    `json:"questionId"`
	Answer        string    `json:"answer"`
	Graded        bool      `json:"graded"`
	Correct       bool      `json:"correct"`
	AwardedPoints int       `json:"awardedPoints"`
	SubmittedAt   time.Time `json:"submittedAt"`
}

// TeamResult is a derived scoreboard/reveal row; never persisted.
type TeamResult struct {
	TeamID       string `json:"teamId"`
	TeamName     string `json:"teamName"`
	Answer       string `json:"answer,omitempty"`
	Correct      bool   `json:"correct"`
	PointsEarned int    `json:"pointsEarned"`
	TotalScore   int    `json:"totalScore"`
	Rank         int    `json:"rank"`
	Tied         bool   `json:"tied"`
}

// AnswerDistribution tallies how teams answered a question. OptionCounts is
// populated for MCQ only; identification questions carry just the
// correct/incorrect split.
type AnswerDistribution struct {
	OptionCounts   map[string]int `json:"optionCounts"`
	CorrectCount   int            `json:"correctCount"`
	IncorrectCount int            `json:"incorrectCount"`
}

// IsCorrectAnswer compares an answer against the question's correct key:
// case-insensitive, whitespace-trimmed exact match.
func (q Question) IsCorrectAnswer(answer string) bool {
	if q.CorrectKey == "" {
		return false
	}
	return strings.EqualFold(strings.TrimSpace(answer), strings.TrimSpace(q.CorrectKey))
}

// TimeLimitOrDefault returns the question time limit, defaulting to 30s when
// unset or non-positive.
func (q Question) TimeLimitOrDefault() int {
	if q.TimeLimit > 0 {
		return q.TimeLimit
	}
	return 30
}
