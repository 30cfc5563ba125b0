package domain

import "errors"

var (
	// ErrQuizNotFound indicates the quiz could not be loaded.
	ErrQuizNotFound = errors.New("quiz not found")
	// ErrQuestionNotFound indicates a referenced question ID is unknown.
	ErrQuestionNotFound = errors.New("question not found")
	// ErrTeamNotFound indicates a referenced team ID is unknown.
	ErrTeamNotFound = errors.New("team not found")
	// ErrSubmissionNotFound indicates no submission exists for (team, question).
	ErrSubmissionNotFound = errors.New("submission not found")
)
