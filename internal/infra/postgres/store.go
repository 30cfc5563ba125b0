package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"livequiz-service/internal/domain"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
)

// Store is the postgres-backed game.Store.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

func (s *Store) FindQuiz(ctx context.Context, id string) (domain.Quiz, error) {
	var quiz domain.Quiz
	err := s.pool.QueryRow(ctx, `SELECT id, title FROM quizzes WHERE id=$1`, id).
		Scan(&quiz.ID, &quiz.Title)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Quiz{}, domain.ErrQuizNotFound
	}
	if err != nil {
		return domain.Quiz{}, fmt.Errorf("find quiz: %w", err)
	}
	return quiz, nil
}

const questionColumns = `id, quiz_id, text, type, difficulty, options, correct_key, points, time_limit, order_index`

func (s *Store) FindQuestion(ctx context.Context, id string) (domain.Question, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+questionColumns+` FROM questions WHERE id=$1`, id)
	q, err := scanQuestion(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Question{}, domain.ErrQuestionNotFound
	}
	if err != nil {
		return domain.Question{}, fmt.Errorf("find question: %w", err)
	}
	return q, nil
}

func (s *Store) FindTeam(ctx context.Context, id string) (domain.Team, error) {
	var team domain.Team
	err := s.pool.QueryRow(ctx, `SELECT id, quiz_id, name, total_score FROM teams WHERE id=$1`, id).
		Scan(&team.ID, &team.QuizID, &team.Name, &team.TotalScore)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Team{}, domain.ErrTeamNotFound
	}
	if err != nil {
		return domain.Team{}, fmt.Errorf("find team: %w", err)
	}
	return team, nil
}

func (s *Store) QuestionsByQuiz(ctx context.Context, quizID string) ([]domain.Question, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+questionColumns+` FROM questions WHERE quiz_id=$1 ORDER BY order_index`, quizID)
	if err != nil {
		return nil, fmt.Errorf("questions by quiz: %w", err)
	}
	defer rows.Close()

	var questions []domain.Question
	for rows.Next() {
		q, err := scanQuestion(rows)
		if err != nil {
			return nil, fmt.Errorf("scan question: %w", err)
		}
		questions = append(questions, q)
	}
	return questions, rows.Err()
}

func (s *Store) TeamsByQuiz(ctx context.Context, quizID string) ([]domain.Team, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, quiz_id, name, total_score FROM teams WHERE quiz_id=$1 ORDER BY name`, quizID)
	if err != nil {
		return nil, fmt.Errorf("teams by quiz: %w", err)
	}
	defer rows.Close()

	var teams []domain.Team
	for rows.Next() {
		var team domain.Team
		if err := rows.Scan(&team.ID, &team.QuizID, &team.Name, &team.TotalScore); err != nil {
			return nil, fmt.Errorf("scan team: %w", err)
		}
		teams = append(teams, team)
	}
	return teams, rows.Err()
}

const submissionColumns = `team_id, question_id, answer, graded, correct, awarded_points, submitted_at`

func (s *Store) FindSubmission(ctx context.Context, teamID, questionID string) (domain.Submission, bool, error) {
	var sub domain.Submission
	err := s.pool.QueryRow(ctx,
		`SELECT `+submissionColumns+` FROM submissions WHERE team_id=$1 AND question_id=$2`,
		teamID, questionID).
		Scan(&sub.TeamID, &sub.QuestionID, &sub.Answer, &sub.Graded, &sub.Correct, &sub.AwardedPoints, &sub.SubmittedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Submission{}, false, nil
	}
	if err != nil {
		return domain.Submission{}, false, fmt.Errorf("find submission: %w", err)
	}
	return sub, true, nil
}

func (s *Store) SaveSubmission(ctx context.Context, sub domain.Submission) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO submissions (team_id, question_id, answer, graded, correct, awarded_points, submitted_at)
		VALUES ($1, $2, $3, $4, $5, $6, now())
		ON CONFLICT (team_id, question_id) DO UPDATE SET
			answer=EXCLUDED.answer,
			graded=EXCLUDED.graded,
			correct=EXCLUDED.correct,
			awarded_points=EXCLUDED.awarded_points,
			submitted_at=now()`,
		sub.TeamID, sub.QuestionID, sub.Answer, sub.Graded, sub.Correct, sub.AwardedPoints)
	if err != nil {
		return fmt.Errorf("save submission: %w", err)
	}
	return nil
}

func (s *Store) SubmissionsByQuestion(ctx context.Context, questionID string) ([]domain.Submission, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+submissionColumns+` FROM submissions WHERE question_id=$1 ORDER BY team_id`, questionID)
	if err != nil {
		return nil, fmt.Errorf("submissions by question: %w", err)
	}
	defer rows.Close()

	var subs []domain.Submission
	for rows.Next() {
		var sub domain.Submission
		if err := rows.Scan(&sub.TeamID, &sub.QuestionID, &sub.Answer, &sub.Graded, &sub.Correct, &sub.AwardedPoints, &sub.SubmittedAt); err != nil {
			return nil, fmt.Errorf("scan submission: %w", err)
		}
		subs = append(subs, sub)
	}
	return subs, rows.Err()
}

// Grade evaluates the stored submission inside a transaction and adjusts the
// team's cumulative score by the delta of awarded points, so re-grading a
// changed answer is safe.
func (s *Store) Grade(ctx context.Context, teamID, questionID string) (domain.Submission, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return domain.Submission{}, fmt.Errorf("grade begin: %w", err)
	}
	defer tx.Rollback(ctx)

	var correctKey string
	var points int
	err = tx.QueryRow(ctx, `SELECT correct_key, points FROM questions WHERE id=$1`, questionID).
		Scan(&correctKey, &points)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Submission{}, domain.ErrQuestionNotFound
	}
	if err != nil {
		return domain.Submission{}, fmt.Errorf("grade question: %w", err)
	}

	var sub domain.Submission
	err = tx.QueryRow(ctx,
		`SELECT `+submissionColumns+` FROM submissions WHERE team_id=$1 AND question_id=$2 FOR UPDATE`,
		teamID, questionID).
		Scan(&sub.TeamID, &sub.QuestionID, &sub.Answer, &sub.Graded, &sub.Correct, &sub.AwardedPoints, &sub.SubmittedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Submission{}, domain.ErrSubmissionNotFound
	}
	if err != nil {
		return domain.Submission{}, fmt.Errorf("grade submission: %w", err)
	}

	previous := sub.AwardedPoints
	sub.Correct = (domain.Question{CorrectKey: correctKey}).IsCorrectAnswer(sub.Answer)
	if sub.Correct {
		sub.AwardedPoints = points
	} else {
		sub.AwardedPoints = 0
	}
	sub.Graded = true

	if _, err := tx.Exec(ctx,
		`UPDATE submissions SET graded=true, correct=$3, awarded_points=$4 WHERE team_id=$1 AND question_id=$2`,
		teamID, questionID, sub.Correct, sub.AwardedPoints); err != nil {
		return domain.Submission{}, fmt.Errorf("grade update submission: %w", err)
	}
	if _, err := tx.Exec(ctx,
		`UPDATE teams SET total_score = total_score + $2 WHERE id=$1`,
		teamID, sub.AwardedPoints-previous); err != nil {
		return domain.Submission{}, fmt.Errorf("grade update team: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return domain.Submission{}, fmt.Errorf("grade commit: %w", err)
	}
	return sub, nil
}

// scanQuestion reads a question row; options are stored as a JSONB array.
func scanQuestion(row pgx.Row) (domain.Question, error) {
	var q domain.Question
	var rawOptions []byte
	var difficulty *string
	if err := row.Scan(&q.ID, &q.QuizID, &q.Text, &q.Type, &difficulty, &rawOptions,
		&q.CorrectKey, &q.Points, &q.TimeLimit, &q.OrderIndex); err != nil {
		return domain.Question{}, err
	}
	if difficulty != nil {
		q.Difficulty = *difficulty
	}
	if len(rawOptions) > 0 {
		if err := json.Unmarshal(rawOptions, &q.Options); err != nil {
			return domain.Question{}, fmt.Errorf("unmarshal options: %w", err)
		}
	}
	return q, nil
}
