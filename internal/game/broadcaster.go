package game

import "livequiz-service/internal/domain"

// StateEvent announces a game-state change to every client in a quiz.
type StateEvent struct {
	State         domain.GameState `json:"state"`
	QuizID        string           `json:"quizId"`
	QuestionIndex int              `json:"questionIndex,omitempty"`
	QuestionCount int              `json:"questionCount,omitempty"`
	Round         string           `json:"round,omitempty"`
	Message       string           `json:"message,omitempty"`
}

// QuestionPayload is the just-in-time question broadcast. It deliberately has
// no field for the correct key; the key travels only in RevealPayload.
type QuestionPayload struct {
	QuestionID    string              `json:"questionId"`
	QuestionIndex int                 `json:"questionIndex"`
	Text          string              `json:"text"`
	Type          domain.QuestionType `json:"type"`
	Options       []string            `json:"options,omitempty"`
	Points        int                 `json:"points"`
	TimeLimit     int                 `json:"timeLimit"`
	Difficulty    string              `json:"difficulty,omitempty"`
}

// QuestionPayloadFrom builds the client-facing view of a question.
func QuestionPayloadFrom(q domain.Question, index int) QuestionPayload {
	return QuestionPayload{
		QuestionID:    q.ID,
		QuestionIndex: index,
		Text:          q.Text,
		Type:          q.Type,
		Options:       q.Options,
		Points:        q.Points,
		TimeLimit:     q.TimeLimitOrDefault(),
		Difficulty:    q.Difficulty,
	}
}

// RevealPayload carries the answer key, the per-option distribution, and the
// ranked results after grading.
type RevealPayload struct {
	QuestionID   string                    `json:"questionId"`
	CorrectKey   string                    `json:"correctKey"`
	Type         domain.QuestionType       `json:"type"`
	Distribution domain.AnswerDistribution `json:"distribution"`
	Results      []domain.TeamResult       `json:"results"`
}

// HostNotification is a host-only message (team joined, all submitted, ...).
type HostNotification struct {
	Type    string `json:"type"`
	Payload any    `json:"payload,omitempty"`
}

// Host notification types.
const (
	NotifyTeamJoined       = "TEAM_JOINED"
	NotifyTeamDisconnected = "TEAM_DISCONNECTED"
	NotifyTeamCount        = "TEAM_COUNT"
	NotifyTeamSubmitted    = "TEAM_SUBMITTED"
	NotifyAllSubmitted     = "ALL_SUBMITTED"
	NotifyTieDetected      = "TIE_DETECTED"
	NotifyStatus           = "STATUS"
)

// SubmissionConfirmation acknowledges a team's answer without echoing it.
type SubmissionConfirmation struct {
	QuestionID string `json:"questionId"`
	Accepted   bool   `json:"accepted"`
	Message    string `json:"message,omitempty"`
}

// ErrorCode is the typed, low-detail error taxonomy surfaced to callers.
type ErrorCode string

const (
	CodeNotHost         ErrorCode = "NOT_HOST"
	CodeInvalidState    ErrorCode = "INVALID_STATE"
	CodeTimeExpired     ErrorCode = "TIME_EXPIRED"
	CodeInvalidQuestion ErrorCode = "INVALID_QUESTION"
	CodeNotFound        ErrorCode = "NOT_FOUND"
	CodeCommandError    ErrorCode = "COMMAND_ERROR"
	CodeSubmissionError ErrorCode = "SUBMISSION_ERROR"
	CodeInternal        ErrorCode = "INTERNAL_ERROR"
)

// ErrorMessage is sent to the triggering caller only; internal errors are
// never echoed verbatim.
type ErrorMessage struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}

// Broadcaster abstracts the outbound push capability. All publishes are
// fire-and-forget from the core's perspective.
type Broadcaster interface {
	PublishState(quizID string, ev StateEvent)
	PublishQuestion(quizID string, q QuestionPayload)
	PublishReveal(quizID string, r RevealPayload)
	PublishScoreboard(quizID string, results []domain.TeamResult)

	PublishBufferTick(quizID string, remaining int, label string)
	PublishTimerTick(quizID string, remaining, total int)
	PublishTimerExpired(quizID string, total int)
	PublishTimerPaused(quizID string, remaining, total int)

	NotifyHost(quizID string, n HostNotification)
	SendToTeam(quizID, teamID string, msg any)
	SendError(sessionID string, e ErrorMessage)
}
