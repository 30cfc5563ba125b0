package game

import (
	"context"
	"errors"
	"log"
	"sync"

	"livequiz-service/internal/domain"
)

// DefaultBufferSeconds is the pre-round "get ready" countdown length.
const DefaultBufferSeconds = 10

// HostCommandType enumerates the host's flow-control commands.
type HostCommandType string

const (
	CommandStartRound      HostCommandType = "START_ROUND"
	CommandNextQuestion    HostCommandType = "NEXT_QUESTION"
	CommandViewLeaderboard HostCommandType = "VIEW_LEADERBOARD"
	CommandStartTiebreaker HostCommandType = "START_TIEBREAKER"
	CommandEndQuiz         HostCommandType = "END_QUIZ"
	CommandPause           HostCommandType = "PAUSE"
	CommandResume          HostCommandType = "RESUME"
)

// HostCommand is a parsed flow-control command targeting one quiz.
type HostCommand struct {
	Type   HostCommandType `json:"type"`
	QuizID string          `json:"quizId"`
	Round  string          `json:"round,omitempty"`
}

// Identity is the already-resolved caller tag attached by the transport.
// The core trusts it, enforcing only that its quiz matches the command's
// target and that host-only commands come from the registered host.
type Identity struct {
	SessionID string
	QuizID    string
	TeamID    string
	IsHost    bool
}

// Orchestrator is the per-quiz game-flow state machine. It owns the
// submitted-team tracking and a per-quiz transition lock so host commands
// and timer expiry apply their effects mutually exclusively; cross-quiz
// operations never contend.
type Orchestrator struct {
	registry    *SessionRegistry
	timers      *TimerScheduler
	store       Store
	broadcaster Broadcaster

	bufferSeconds int

	mu        sync.Mutex
	locks     map[string]*sync.Mutex
	submitted map[string]map[string]struct{} // quizID -> teams submitted for current question
}

func NewOrchestrator(registry *SessionRegistry, timers *TimerScheduler, store Store, b Broadcaster) *Orchestrator {
	return &Orchestrator{
		registry:      registry,
		timers:        timers,
		store:         store,
		broadcaster:   b,
		bufferSeconds: DefaultBufferSeconds,
		locks:         make(map[string]*sync.Mutex),
		submitted:     make(map[string]map[string]struct{}),
	}
}

// SetBufferSeconds overrides the pre-round countdown length (tests, demos).
func (o *Orchestrator) SetBufferSeconds(seconds int) {
	if seconds > 0 {
		o.bufferSeconds = seconds
	}
}

// quizLock returns the transition mutex for a quiz, creating it on demand.
func (o *Orchestrator) quizLock(quizID string) *sync.Mutex {
	o.mu.Lock()
	defer o.mu.Unlock()
	l, ok := o.locks[quizID]
	if !ok {
		l = &sync.Mutex{}
		o.locks[quizID] = l
	}
	return l
}

// HandleHostCommand validates the caller and dispatches a flow command.
// Failures are logged and reported to the caller only; they never crash
// per-quiz state or affect other clients.
func (o *Orchestrator) HandleHostCommand(ctx context.Context, caller Identity, cmd HostCommand) {
	if !caller.IsHost {
		o.broadcaster.SendError(caller.SessionID, ErrorMessage{Code: CodeNotHost, Message: "command requires host privileges"})
		return
	}
	if hostSession, ok := o.registry.HostSessionID(cmd.QuizID); !ok || hostSession != caller.SessionID {
		o.broadcaster.SendError(caller.SessionID, ErrorMessage{Code: CodeNotHost, Message: "caller is not the registered host"})
		return
	}
	if caller.QuizID != cmd.QuizID {
		o.broadcaster.SendError(caller.SessionID, ErrorMessage{Code: CodeInvalidState, Message: "quiz id mismatch"})
		return
	}

	defer func() {
		if rec := recover(); rec != nil {
			log.Printf("panic handling host command %s for quiz %s: %v", cmd.Type, cmd.QuizID, rec)
			o.broadcaster.SendError(caller.SessionID, ErrorMessage{Code: CodeCommandError, Message: "command failed"})
		}
	}()

	log.Printf("host command %s for quiz %s", cmd.Type, cmd.QuizID)

	var err error
	switch cmd.Type {
	case CommandStartRound:
		round := cmd.Round
		if round == "" {
			round = "ROUND"
		}
		err = o.StartRound(ctx, cmd.QuizID, round)
	case CommandNextQuestion:
		err = o.AdvanceQuestion(ctx, cmd.QuizID)
	case CommandViewLeaderboard:
		err = o.ShowRoundSummary(ctx, cmd.QuizID)
	case CommandStartTiebreaker:
		err = o.StartTiebreaker(ctx, cmd.QuizID)
	case CommandEndQuiz:
		err = o.EndQuiz(ctx, cmd.QuizID)
	case CommandPause:
		err = o.PauseQuiz(ctx, cmd.QuizID)
	case CommandResume:
		err = o.ResumeQuiz(ctx, cmd.QuizID)
	default:
		o.broadcaster.SendError(caller.SessionID, ErrorMessage{Code: CodeCommandError, Message: "unknown command"})
		return
	}
	if err != nil {
		log.Printf("host command %s for quiz %s failed: %v", cmd.Type, cmd.QuizID, err)
		o.broadcaster.SendError(caller.SessionID, callerError(err))
	}
}

// StartRound resets the question index, enters BUFFER, and schedules the
// first question after the buffer countdown.
func (o *Orchestrator) StartRound(ctx context.Context, quizID, round string) error {
	lock := o.quizLock(quizID)
	lock.Lock()
	defer lock.Unlock()

	switch o.registry.State(quizID) {
	case domain.StateLobby, domain.StateRoundSummary, domain.StateTiebreaker:
	default:
		return stateError(o.registry.State(quizID))
	}
	if _, err := o.store.FindQuiz(ctx, quizID); err != nil {
		return err
	}

	o.registry.SetState(quizID, domain.StateBuffer)
	o.registry.SetQuestionIndex(quizID, 0)
	o.broadcaster.PublishState(quizID, StateEvent{
		State:   domain.StateBuffer,
		QuizID:  quizID,
		Round:   round,
		Message: "GET READY!",
	})

	o.timers.StartBuffer(quizID, o.bufferSeconds, round, func() {
		if err := o.ShowQuestion(context.Background(), quizID, 0); err != nil {
			log.Printf("buffer completion for quiz %s: %v", quizID, err)
		}
	})
	return nil
}

// ShowQuestion makes question `index` current: resets submission tracking,
// broadcasts the question without its answer key, enters ACTIVE, and starts
// the question countdown. Past the last question it shows the round summary.
func (o *Orchestrator) ShowQuestion(ctx context.Context, quizID string, index int) error {
	lock := o.quizLock(quizID)
	lock.Lock()
	defer lock.Unlock()
	return o.showQuestionLocked(ctx, quizID, index)
}

func (o *Orchestrator) showQuestionLocked(ctx context.Context, quizID string, index int) error {
	questions, err := o.store.QuestionsByQuiz(ctx, quizID)
	if err != nil {
		return err
	}
	if index >= len(questions) {
		return o.showRoundSummaryLocked(ctx, quizID)
	}
	question := questions[index]

	// currentQuestionId and the submitted-team set always reset together so
	// stale submission tracking cannot leak across questions.
	o.registry.SetQuestionIndex(quizID, index)
	o.registry.SetCurrentQuestionID(quizID, question.ID)
	o.resetSubmitted(quizID)
	o.registry.SetState(quizID, domain.StateActive)

	o.broadcaster.PublishQuestion(quizID, QuestionPayloadFrom(question, index))
	o.broadcaster.PublishState(quizID, StateEvent{
		State:         domain.StateActive,
		QuizID:        quizID,
		QuestionIndex: index,
		QuestionCount: len(questions),
		Round:         question.Difficulty,
	})

	o.timers.StartQuestion(quizID, question.ID, question.TimeLimitOrDefault(), o.onTimerExpired)
	log.Printf("showing question %d (%s) for quiz %s", index, question.ID, quizID)
	return nil
}

// onTimerExpired is the question countdown's terminal callback: lock input,
// grade every registered team, and reveal.
func (o *Orchestrator) onTimerExpired(questionID string) {
	ctx := context.Background()
	question, err := o.store.FindQuestion(ctx, questionID)
	if err != nil {
		log.Printf("timer expired for unknown question %s: %v", questionID, err)
		return
	}
	quizID := question.QuizID

	lock := o.quizLock(quizID)
	lock.Lock()
	defer lock.Unlock()

	// An expiry that lost the race against END_QUIZ (or a question change)
	// must not move the quiz into GRADING.
	if currentID, ok := o.registry.CurrentQuestionID(quizID); !ok || currentID != questionID {
		log.Printf("ignoring stale timer expiry for question %s in quiz %s", questionID, quizID)
		return
	}

	log.Printf("timer expired for question %s in quiz %s", questionID, quizID)
	o.registry.SetState(quizID, domain.StateGrading)
	o.broadcaster.PublishState(quizID, StateEvent{State: domain.StateGrading, QuizID: quizID})

	if err := o.revealLocked(ctx, quizID, question); err != nil {
		log.Printf("reveal for quiz %s question %s failed: %v", quizID, questionID, err)
	}
}

// revealLocked grades all teams' submissions, ranks the totals, and
// broadcasts the reveal payload carrying the correct key.
func (o *Orchestrator) revealLocked(ctx context.Context, quizID string, question domain.Question) error {
	teams, err := o.store.TeamsByQuiz(ctx, quizID)
	if err != nil {
		return err
	}

	results := make([]domain.TeamResult, 0, len(teams))
	for _, team := range teams {
		sub, ok, err := o.store.FindSubmission(ctx, team.ID, question.ID)
		if err != nil {
			return err
		}
		if !ok {
			// Teams that never answered still appear with a blank, incorrect
			// submission and zero points earned.
			sub = domain.Submission{TeamID: team.ID, QuestionID: question.ID}
			if err := o.store.SaveSubmission(ctx, sub); err != nil {
				return err
			}
		}
		if !sub.Graded {
			sub, err = o.store.Grade(ctx, team.ID, question.ID)
			if err != nil {
				return err
			}
		}
		graded, err := o.store.FindTeam(ctx, team.ID)
		if err != nil {
			return err
		}
		results = append(results, domain.TeamResult{
			TeamID:       team.ID,
			TeamName:     team.Name,
			Answer:       sub.Answer,
			Correct:      sub.Correct,
			PointsEarned: sub.AwardedPoints,
			TotalScore:   graded.TotalScore,
		})
	}
	ranked := RankResults(results)

	subs, err := o.store.SubmissionsByQuestion(ctx, question.ID)
	if err != nil {
		return err
	}
	distribution := CalculateDistribution(question, subs)

	o.registry.SetState(quizID, domain.StateReveal)
	o.broadcaster.PublishState(quizID, StateEvent{State: domain.StateReveal, QuizID: quizID})
	o.broadcaster.PublishReveal(quizID, RevealPayload{
		QuestionID:   question.ID,
		CorrectKey:   question.CorrectKey,
		Type:         question.Type,
		Distribution: distribution,
		Results:      ranked,
	})
	log.Printf("revealed answer for question %s in quiz %s", question.ID, quizID)
	return nil
}

// AdvanceQuestion shows the question after the current one, or the round
// summary when none remain. Valid only from REVEAL.
func (o *Orchestrator) AdvanceQuestion(ctx context.Context, quizID string) error {
	lock := o.quizLock(quizID)
	lock.Lock()
	defer lock.Unlock()

	if state := o.registry.State(quizID); state != domain.StateReveal {
		return stateError(state)
	}
	return o.showQuestionLocked(ctx, quizID, o.registry.QuestionIndex(quizID)+1)
}

// ShowRoundSummary ranks all teams by cumulative score, broadcasts the
// scoreboard, and notifies the host when any of the top five are tied.
func (o *Orchestrator) ShowRoundSummary(ctx context.Context, quizID string) error {
	lock := o.quizLock(quizID)
	lock.Lock()
	defer lock.Unlock()
	return o.showRoundSummaryLocked(ctx, quizID)
}

func (o *Orchestrator) showRoundSummaryLocked(ctx context.Context, quizID string) error {
	teams, err := o.store.TeamsByQuiz(ctx, quizID)
	if err != nil {
		return err
	}
	results := make([]domain.TeamResult, 0, len(teams))
	for _, team := range teams {
		results = append(results, domain.TeamResult{
			TeamID:     team.ID,
			TeamName:   team.Name,
			TotalScore: team.TotalScore,
		})
	}
	scoreboard := RankResults(results)

	o.registry.SetState(quizID, domain.StateRoundSummary)
	o.broadcaster.PublishState(quizID, StateEvent{State: domain.StateRoundSummary, QuizID: quizID})
	o.broadcaster.PublishScoreboard(quizID, scoreboard)

	top := scoreboard
	if len(top) > 5 {
		top = top[:5]
	}
	var tied []domain.TeamResult
	for _, r := range top {
		if r.Tied {
			tied = append(tied, r)
		}
	}
	if len(tied) > 0 {
		o.broadcaster.NotifyHost(quizID, HostNotification{Type: NotifyTieDetected, Payload: tied})
	}
	log.Printf("showing round summary for quiz %s", quizID)
	return nil
}

// StartTiebreaker enters TIEBREAKER. The tiebreaker question flow itself is
// not implemented; tied teams play on under host direction.
func (o *Orchestrator) StartTiebreaker(ctx context.Context, quizID string) error {
	lock := o.quizLock(quizID)
	lock.Lock()
	defer lock.Unlock()

	if state := o.registry.State(quizID); state != domain.StateRoundSummary {
		return stateError(state)
	}
	o.registry.SetState(quizID, domain.StateTiebreaker)
	o.broadcaster.PublishState(quizID, StateEvent{
		State:   domain.StateTiebreaker,
		QuizID:  quizID,
		Round:   "TIEBREAKER",
		Message: "Tiebreaker round!",
	})
	log.Printf("started tiebreaker for quiz %s", quizID)
	return nil
}

// EndQuiz stops the timer, broadcasts ENDED, and clears all per-quiz state.
func (o *Orchestrator) EndQuiz(ctx context.Context, quizID string) error {
	lock := o.quizLock(quizID)
	lock.Lock()
	defer lock.Unlock()

	o.timers.Stop(quizID)
	o.registry.SetState(quizID, domain.StateEnded)
	o.broadcaster.PublishState(quizID, StateEvent{State: domain.StateEnded, QuizID: quizID})

	o.registry.ClearQuiz(quizID)
	o.mu.Lock()
	delete(o.submitted, quizID)
	delete(o.locks, quizID)
	o.mu.Unlock()

	log.Printf("ended quiz %s", quizID)
	return nil
}

// PauseQuiz pauses the countdown and enters PAUSED. Valid only from ACTIVE.
func (o *Orchestrator) PauseQuiz(ctx context.Context, quizID string) error {
	lock := o.quizLock(quizID)
	lock.Lock()
	defer lock.Unlock()

	if state := o.registry.State(quizID); state != domain.StateActive {
		return stateError(state)
	}
	o.timers.Pause(quizID)
	o.registry.SetState(quizID, domain.StatePaused)
	o.broadcaster.PublishState(quizID, StateEvent{
		State:   domain.StatePaused,
		QuizID:  quizID,
		Message: "Timer paused",
	})
	return nil
}

// ResumeQuiz restarts the countdown from its retained remaining seconds.
func (o *Orchestrator) ResumeQuiz(ctx context.Context, quizID string) error {
	lock := o.quizLock(quizID)
	lock.Lock()
	defer lock.Unlock()

	if state := o.registry.State(quizID); state != domain.StatePaused {
		return stateError(state)
	}
	o.timers.Resume(quizID, o.onTimerExpired)
	o.registry.SetState(quizID, domain.StateActive)
	o.broadcaster.PublishState(quizID, StateEvent{
		State:         domain.StateActive,
		QuizID:        quizID,
		QuestionIndex: o.registry.QuestionIndex(quizID),
	})
	return nil
}

// HandleHostDisconnect pauses an ACTIVE quiz when its host drops, so teams
// are not graded while nobody is driving.
func (o *Orchestrator) HandleHostDisconnect(quizID string) {
	lock := o.quizLock(quizID)
	lock.Lock()
	defer lock.Unlock()

	if o.registry.State(quizID) != domain.StateActive {
		return
	}
	o.timers.Pause(quizID)
	o.registry.SetState(quizID, domain.StatePaused)
	o.broadcaster.PublishState(quizID, StateEvent{
		State:   domain.StatePaused,
		QuizID:  quizID,
		Message: "Host disconnected. Waiting for reconnection...",
	})
	log.Printf("host disconnected from quiz %s, timer paused", quizID)
}

// HandleSubmission validates and upserts a team's answer for the current
// question. Rejections are sent to the caller only and mutate nothing.
func (o *Orchestrator) HandleSubmission(ctx context.Context, caller Identity, quizID, questionID, answer string) {
	if caller.IsHost || caller.TeamID == "" {
		o.broadcaster.SendError(caller.SessionID, ErrorMessage{Code: CodeSubmissionError, Message: "submissions come from teams"})
		return
	}
	if caller.QuizID != quizID {
		o.broadcaster.SendError(caller.SessionID, ErrorMessage{Code: CodeInvalidState, Message: "quiz id mismatch"})
		return
	}

	defer func() {
		if rec := recover(); rec != nil {
			log.Printf("panic handling submission from team %s for quiz %s: %v", caller.TeamID, quizID, rec)
			o.broadcaster.SendError(caller.SessionID, ErrorMessage{Code: CodeSubmissionError, Message: "submission failed"})
		}
	}()

	lock := o.quizLock(quizID)
	lock.Lock()
	defer lock.Unlock()

	if state := o.registry.State(quizID); state != domain.StateActive {
		o.broadcaster.SendError(caller.SessionID, ErrorMessage{Code: CodeInvalidState, Message: "submissions are closed in state " + string(state)})
		return
	}
	if !o.timers.IsActive(quizID) {
		o.broadcaster.SendError(caller.SessionID, ErrorMessage{Code: CodeTimeExpired, Message: "time is up for this question"})
		return
	}
	currentID, ok := o.registry.CurrentQuestionID(quizID)
	if !ok || currentID != questionID {
		o.broadcaster.SendError(caller.SessionID, ErrorMessage{Code: CodeInvalidQuestion, Message: "question is not current"})
		return
	}

	if err := o.upsertSubmission(ctx, caller.TeamID, questionID, answer); err != nil {
		log.Printf("submission from team %s for question %s failed: %v", caller.TeamID, questionID, err)
		o.broadcaster.SendError(caller.SessionID, callerError(err))
		return
	}

	first := o.markSubmitted(quizID, caller.TeamID)
	o.broadcaster.SendToTeam(quizID, caller.TeamID, SubmissionConfirmation{
		QuestionID: questionID,
		Accepted:   true,
		Message:    "Answer received",
	})

	// Host hears about a team exactly once per question; answer changes stay
	// silent and never include the answer text.
	if first {
		o.broadcaster.NotifyHost(quizID, HostNotification{Type: NotifyTeamSubmitted, Payload: caller.TeamID})
		connected := o.registry.ConnectedTeamCount(quizID)
		if o.submittedCount(quizID) >= connected && connected > 0 {
			o.broadcaster.NotifyHost(quizID, HostNotification{Type: NotifyAllSubmitted, Payload: connected})
		}
	}
}

func (o *Orchestrator) upsertSubmission(ctx context.Context, teamID, questionID, answer string) error {
	if _, err := o.store.FindTeam(ctx, teamID); err != nil {
		return err
	}
	existing, ok, err := o.store.FindSubmission(ctx, teamID, questionID)
	if err != nil {
		return err
	}
	if ok {
		existing.Answer = answer
		existing.Graded = false
		existing.Correct = false
		existing.AwardedPoints = 0
		return o.store.SaveSubmission(ctx, existing)
	}
	return o.store.SaveSubmission(ctx, domain.Submission{
		TeamID:     teamID,
		QuestionID: questionID,
		Answer:     answer,
	})
}

// HandleStatusRequest replies to the caller with the current state snapshot.
func (o *Orchestrator) HandleStatusRequest(caller Identity) {
	quizID := caller.QuizID
	ev := StateEvent{
		State:         o.registry.State(quizID),
		QuizID:        quizID,
		QuestionIndex: o.registry.QuestionIndex(quizID),
	}
	if caller.IsHost {
		o.broadcaster.NotifyHost(quizID, HostNotification{Type: NotifyStatus, Payload: ev})
		return
	}
	o.broadcaster.SendToTeam(quizID, caller.TeamID, ev)
}

// resetSubmitted clears the submitted-team set for a quiz.
func (o *Orchestrator) resetSubmitted(quizID string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.submitted[quizID] = make(map[string]struct{})
}

// markSubmitted records a team's submission, reporting whether it was the
// team's first for the current question.
func (o *Orchestrator) markSubmitted(quizID, teamID string) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	set, ok := o.submitted[quizID]
	if !ok {
		set = make(map[string]struct{})
		o.submitted[quizID] = set
	}
	if _, dup := set[teamID]; dup {
		return false
	}
	set[teamID] = struct{}{}
	return true
}

func (o *Orchestrator) submittedCount(quizID string) int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.submitted[quizID])
}

func stateError(state domain.GameState) error {
	return &flowError{code: CodeInvalidState, message: "invalid in state " + string(state)}
}

// flowError carries a typed code through the command dispatch boundary.
type flowError struct {
	code    ErrorCode
	message string
}

func (e *flowError) Error() string { return e.message }

// callerError maps an internal error to the typed, low-detail message shown
// to the triggering caller. Persistence failures surface as INTERNAL_ERROR
// and never echo their detail.
func callerError(err error) ErrorMessage {
	var fe *flowError
	if errors.As(err, &fe) {
		return ErrorMessage{Code: fe.code, Message: fe.message}
	}
	switch {
	case errors.Is(err, domain.ErrQuizNotFound),
		errors.Is(err, domain.ErrQuestionNotFound),
		errors.Is(err, domain.ErrTeamNotFound):
		return ErrorMessage{Code: CodeNotFound, Message: err.Error()}
	default:
		return ErrorMessage{Code: CodeInternal, Message: "internal error"}
	}
}
