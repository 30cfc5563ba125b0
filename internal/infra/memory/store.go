package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"livequiz-service/internal/domain"
)

// Store is an in-memory implementation of game.Store, used for demos and
// tests. All operations are safe for concurrent use.
type Store struct {
	mu          sync.RWMutex
	now         func() time.Time
	quizzes     map[string]domain.Quiz
	questions   map[string]domain.Question
	teams       map[string]domain.Team
	submissions map[submissionKey]domain.Submission
}

type submissionKey struct {
	teamID     string
	questionID string
}

func NewStore() *Store {
	return &Store{
		now:         time.Now,
		quizzes:     make(map[string]domain.Quiz),
		questions:   make(map[string]domain.Question),
		teams:       make(map[string]domain.Team),
		submissions: make(map[submissionKey]domain.Submission),
	}
}

// PutQuiz seeds or replaces a quiz.
func (s *Store) PutQuiz(q domain.Quiz) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.quizzes[q.ID] = q
}

// PutQuestion seeds or replaces a question.
func (s *Store) PutQuestion(q domain.Question) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.questions[q.ID] = q
}

// PutTeam seeds or replaces a team.
func (s *Store) PutTeam(t domain.Team) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.teams[t.ID] = t
}

func (s *Store) FindQuiz(_ context.Context, id string) (domain.Quiz, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if quiz, ok := s.quizzes[id]; ok {
		return quiz, nil
	}
	return domain.Quiz{}, domain.ErrQuizNotFound
}

func (s *Store) FindQuestion(_ context.Context, id string) (domain.Question, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if q, ok := s.questions[id]; ok {
		return q, nil
	}
	return domain.Question{}, domain.ErrQuestionNotFound
}

func (s *Store) FindTeam(_ context.Context, id string) (domain.Team, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if t, ok := s.teams[id]; ok {
		return t, nil
	}
	return domain.Team{}, domain.ErrTeamNotFound
}

func (s *Store) QuestionsByQuiz(_ context.Context, quizID string) ([]domain.Question, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var questions []domain.Question
	for _, q := range s.questions {
		if q.QuizID == quizID {
			questions = append(questions, q)
		}
	}
	sort.Slice(questions, func(i, j int) bool {
		return questions[i].OrderIndex < questions[j].OrderIndex
	})
	return questions, nil
}

func (s *Store) TeamsByQuiz(_ context.Context, quizID string) ([]domain.Team, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var teams []domain.Team
	for _, t := range s.teams {
		if t.QuizID == quizID {
			teams = append(teams, t)
		}
	}
	sort.Slice(teams, func(i, j int) bool { return teams[i].Name < teams[j].Name })
	return teams, nil
}

func (s *Store) FindSubmission(_ context.Context, teamID, questionID string) (domain.Submission, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sub, ok := s.submissions[submissionKey{teamID, questionID}]
	return sub, ok, nil
}

func (s *Store) SaveSubmission(_ context.Context, sub domain.Submission) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sub.SubmittedAt.IsZero() {
		sub.SubmittedAt = s.now()
	}
	s.submissions[submissionKey{sub.TeamID, sub.QuestionID}] = sub
	return nil
}

func (s *Store) SubmissionsByQuestion(_ context.Context, questionID string) ([]domain.Submission, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var subs []domain.Submission
	for key, sub := range s.submissions {
		if key.questionID == questionID {
			subs = append(subs, sub)
		}
	}
	sort.Slice(subs, func(i, j int) bool { return subs[i].TeamID < subs[j].TeamID })
	return subs, nil
}

// Grade evaluates the stored submission against the question's correct key
// and awards points to the submission and the team's cumulative score.
// Re-grading adjusts the team score by the delta of awarded points, so
// grading twice is safe even after the answer changed.
func (s *Store) Grade(_ context.Context, teamID, questionID string) (domain.Submission, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	question, ok := s.questions[questionID]
	if !ok {
		return domain.Submission{}, domain.ErrQuestionNotFound
	}
	team, ok := s.teams[teamID]
	if !ok {
		return domain.Submission{}, domain.ErrTeamNotFound
	}
	sub, ok := s.submissions[submissionKey{teamID, questionID}]
	if !ok {
		return domain.Submission{}, domain.ErrSubmissionNotFound
	}

	previous := sub.AwardedPoints
	sub.Correct = question.IsCorrectAnswer(sub.Answer)
	if sub.Correct {
		sub.AwardedPoints = question.Points
	} else {
		sub.AwardedPoints = 0
	}
	sub.Graded = true

	team.TotalScore += sub.AwardedPoints - previous
	s.teams[teamID] = team
	s.submissions[submissionKey{teamID, questionID}] = sub
	return sub, nil
}
