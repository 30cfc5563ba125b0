package game

import (
	"sync"

	"livequiz-service/internal/domain"
)

// recordingBroadcaster captures every outbound event for assertions.
type recordingBroadcaster struct {
	mu          sync.Mutex
	states      []StateEvent
	questions   []QuestionPayload
	reveals     []RevealPayload
	scoreboards [][]domain.TeamResult
	bufferTicks []int
	timerTicks  []int
	expired     int
	pausedAt    []int
	hostNotes   []HostNotification
	teamMsgs    map[string][]any
	errs        map[string][]ErrorMessage
}

func newRecordingBroadcaster() *recordingBroadcaster {
	return &recordingBroadcaster{
		teamMsgs: make(map[string][]any),
		errs:     make(map[string][]ErrorMessage),
	}
}

func (b *recordingBroadcaster) PublishState(_ string, ev StateEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.states = append(b.states, ev)
}

func (b *recordingBroadcaster) PublishQuestion(_ string, q QuestionPayload) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.questions = append(b.questions, q)
}

func (b *recordingBroadcaster) PublishReveal(_ string, r RevealPayload) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.reveals = append(b.reveals, r)
}

func (b *recordingBroadcaster) PublishScoreboard(_ string, results []domain.TeamResult) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.scoreboards = append(b.scoreboards, results)
}

func (b *recordingBroadcaster) PublishBufferTick(_ string, remaining int, _ string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.bufferTicks = append(b.bufferTicks, remaining)
}

func (b *recordingBroadcaster) PublishTimerTick(_ string, remaining, _ int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.timerTicks = append(b.timerTicks, remaining)
}

func (b *recordingBroadcaster) PublishTimerExpired(_ string, _ int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.expired++
}

func (b *recordingBroadcaster) PublishTimerPaused(_ string, remaining, _ int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.pausedAt = append(b.pausedAt, remaining)
}

func (b *recordingBroadcaster) NotifyHost(_ string, n HostNotification) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.hostNotes = append(b.hostNotes, n)
}

func (b *recordingBroadcaster) SendToTeam(_ string, teamID string, msg any) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.teamMsgs[teamID] = append(b.teamMsgs[teamID], msg)
}

func (b *recordingBroadcaster) SendError(sessionID string, e ErrorMessage) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.errs[sessionID] = append(b.errs[sessionID], e)
}

func (b *recordingBroadcaster) timerTickSnapshot() []int {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]int, len(b.timerTicks))
	copy(out, b.timerTicks)
	return out
}

func (b *recordingBroadcaster) bufferTickSnapshot() []int {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]int, len(b.bufferTicks))
	copy(out, b.bufferTicks)
	return out
}

func (b *recordingBroadcaster) expiredCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.expired
}

func (b *recordingBroadcaster) lastState() (StateEvent, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.states) == 0 {
		return StateEvent{}, false
	}
	return b.states[len(b.states)-1], true
}

func (b *recordingBroadcaster) revealSnapshot() []RevealPayload {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]RevealPayload, len(b.reveals))
	copy(out, b.reveals)
	return out
}

func (b *recordingBroadcaster) hostNotesOfType(noteType string) []HostNotification {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []HostNotification
	for _, n := range b.hostNotes {
		if n.Type == noteType {
			out = append(out, n)
		}
	}
	return out
}

func (b *recordingBroadcaster) errorsFor(sessionID string) []ErrorMessage {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]ErrorMessage, len(b.errs[sessionID]))
	copy(out, b.errs[sessionID])
	return out
}
