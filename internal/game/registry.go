package game

import (
	"sync"
	"time"

	"livequiz-service/internal/domain"
)

// SessionEntry tracks one connected client.
type SessionEntry struct {
	SessionID   string
	QuizID      string
	TeamID      string // empty for the host
	IsHost      bool
	ConnectedAt time.Time
}

// SessionRegistry holds per-quiz connection and game-flow state. It carries
// no timing logic; all operations are safe under concurrent access from
// timer callbacks and inbound message handlers. Absent quiz IDs read as
// defaults (LOBBY, index 0, empty sets) and never error.
type SessionRegistry struct {
	mu  sync.RWMutex
	now func() time.Time

	connections      map[string]SessionEntry
	hostSessions     map[string]string // quizID -> host sessionID
	connectedTeams   map[string]map[string]struct{}
	states           map[string]domain.GameState
	questionIndices  map[string]int
	currentQuestions map[string]string
}

func NewSessionRegistry() *SessionRegistry {
	return newSessionRegistryWithClock(time.Now)
}

// newSessionRegistryWithClock allows deterministic timestamps in tests.
func newSessionRegistryWithClock(now func() time.Time) *SessionRegistry {
	return &SessionRegistry{
		now:              now,
		connections:      make(map[string]SessionEntry),
		hostSessions:     make(map[string]string),
		connectedTeams:   make(map[string]map[string]struct{}),
		states:           make(map[string]domain.GameState),
		questionIndices:  make(map[string]int),
		currentQuestions: make(map[string]string),
	}
}

// RegisterHost records the host connection for a quiz. A quiz with no prior
// state starts in LOBBY.
func (r *SessionRegistry) RegisterHost(quizID, sessionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.connections[sessionID] = SessionEntry{
		SessionID:   sessionID,
		QuizID:      quizID,
		IsHost:      true,
		ConnectedAt: r.now(),
	}
	r.hostSessions[quizID] = sessionID
	if _, ok := r.states[quizID]; !ok {
		r.states[quizID] = domain.StateLobby
	}
}

// RegisterParticipant records a team connection for a quiz.
func (r *SessionRegistry) RegisterParticipant(quizID, teamID, sessionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.connections[sessionID] = SessionEntry{
		SessionID:   sessionID,
		QuizID:      quizID,
		TeamID:      teamID,
		ConnectedAt: r.now(),
	}
	teams, ok := r.connectedTeams[quizID]
	if !ok {
		teams = make(map[string]struct{})
		r.connectedTeams[quizID] = teams
	}
	teams[teamID] = struct{}{}
}

// Unregister drops a connection; no-op for unknown session IDs.
func (r *SessionRegistry) Unregister(sessionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry, ok := r.connections[sessionID]
	if !ok {
		return
	}
	delete(r.connections, sessionID)
	if entry.IsHost {
		if r.hostSessions[entry.QuizID] == sessionID {
			delete(r.hostSessions, entry.QuizID)
		}
		return
	}
	if teams, ok := r.connectedTeams[entry.QuizID]; ok {
		delete(teams, entry.TeamID)
	}
}

// Connection returns the entry for a session ID.
func (r *SessionRegistry) Connection(sessionID string) (SessionEntry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entry, ok := r.connections[sessionID]
	return entry, ok
}

// ConnectedTeamIDs returns a copy of the connected team set for a quiz.
func (r *SessionRegistry) ConnectedTeamIDs(quizID string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	teams := r.connectedTeams[quizID]
	ids := make([]string, 0, len(teams))
	for id := range teams {
		ids = append(ids, id)
	}
	return ids
}

func (r *SessionRegistry) ConnectedTeamCount(quizID string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.connectedTeams[quizID])
}

func (r *SessionRegistry) IsTeamConnected(quizID, teamID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.connectedTeams[quizID][teamID]
	return ok
}

func (r *SessionRegistry) IsHostConnected(quizID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.hostSessions[quizID]
	return ok
}

func (r *SessionRegistry) HostSessionID(quizID string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.hostSessions[quizID]
	return id, ok
}

func (r *SessionRegistry) State(quizID string) domain.GameState {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if state, ok := r.states[quizID]; ok {
		return state
	}
	return domain.StateLobby
}

func (r *SessionRegistry) SetState(quizID string, state domain.GameState) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.states[quizID] = state
}

func (r *SessionRegistry) QuestionIndex(quizID string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.questionIndices[quizID]
}

func (r *SessionRegistry) SetQuestionIndex(quizID string, index int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.questionIndices[quizID] = index
}

func (r *SessionRegistry) CurrentQuestionID(quizID string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.currentQuestions[quizID]
	return id, ok && id != ""
}

func (r *SessionRegistry) SetCurrentQuestionID(quizID, questionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.currentQuestions[quizID] = questionID
}

// ClearQuiz removes the host registration, all team registrations, and flow
// state for one quiz. Other quizzes are unaffected.
func (r *SessionRegistry) ClearQuiz(quizID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if hostSession, ok := r.hostSessions[quizID]; ok {
		delete(r.connections, hostSession)
		delete(r.hostSessions, quizID)
	}
	for sessionID, entry := range r.connections {
		if entry.QuizID == quizID {
			delete(r.connections, sessionID)
		}
	}
	delete(r.connectedTeams, quizID)
	delete(r.states, quizID)
	delete(r.questionIndices, quizID)
	delete(r.currentQuestions, quizID)
}
