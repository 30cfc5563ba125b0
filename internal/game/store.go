package game

import (
	"context"

	"livequiz-service/internal/domain"
)

// Store abstracts quiz content and submission persistence. The orchestrator
// only needs read-only resolved views plus submission upsert and grading;
// implementations (in-memory, postgres) own their own consistency.
type Store interface {
	FindQuiz(ctx context.Context, id string) (domain.Quiz, error)
	FindQuestion(ctx context.Context, id string) (domain.Question, error)
	FindTeam(ctx context.Context, id string) (domain.Team, error)

	// QuestionsByQuiz returns the quiz's questions ordered by OrderIndex.
	QuestionsByQuiz(ctx context.Context, quizID string) ([]domain.Question, error)
	TeamsByQuiz(ctx context.Context, quizID string) ([]domain.Team, error)

	// FindSubmission reports (submission, true, nil) when one exists for the
	// (team, question) pair and (zero, false, nil) when none does.
	FindSubmission(ctx context.Context, teamID, questionID string) (domain.Submission, bool, error)
	SaveSubmission(ctx context.Context, sub domain.Submission) error
	SubmissionsByQuestion(ctx context.Context, questionID string) ([]domain.Submission, error)

	// Grade evaluates the stored submission for (team, question): correctness
	// is a case-insensitive, whitespace-trimmed match against the question's
	// correct key; a correct answer awards the question's points to the
	// submission and the team's cumulative score. Re-grading is safe: the
	// team score is adjusted by the delta of awarded points.
	Grade(ctx context.Context, teamID, questionID string) (domain.Submission, error)
}
