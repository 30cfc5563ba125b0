package http

import (
	"sync"

	"livequiz-service/internal/domain"
	"livequiz-service/internal/game"
)

type outboundMessage struct {
	Type    string `json:"type"`
	Payload any    `json:"payload,omitempty"`
}

type timerPayload struct {
	Kind      string `json:"kind"` // BUFFER, TICK, EXPIRED, PAUSED
	Remaining int    `json:"remaining"`
	Total     int    `json:"total,omitempty"`
	Round     string `json:"round,omitempty"`
}

// client is one websocket connection's registration in the hub. Writes go
// through the buffered send channel so a single writer goroutine owns the
// connection.
type client struct {
	sessionID string
	quizID    string
	teamID    string
	isHost    bool
	send      chan outboundMessage
}

// Hub routes outbound messages to connected clients and implements the
// game.Broadcaster contract over websockets.
type Hub struct {
	mu        sync.RWMutex
	byQuiz    map[string]map[*client]struct{}
	bySession map[string]*client
}

func NewHub() *Hub {
	return &Hub{
		byQuiz:    make(map[string]map[*client]struct{}),
		bySession: make(map[string]*client),
	}
}

func (h *Hub) add(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	clients, ok := h.byQuiz[c.quizID]
	if !ok {
		clients = make(map[*client]struct{})
		h.byQuiz[c.quizID] = clients
	}
	clients[c] = struct{}{}
	h.bySession[c.sessionID] = c
}

// remove unregisters the client and closes its send channel. Closing under
// the exclusive lock is safe because every send happens under the read lock.
func (h *Hub) remove(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.bySession[c.sessionID]; !ok {
		return
	}
	delete(h.bySession, c.sessionID)
	if clients, ok := h.byQuiz[c.quizID]; ok {
		delete(clients, c)
		if len(clients) == 0 {
			delete(h.byQuiz, c.quizID)
		}
	}
	close(c.send)
}

// push enqueues without blocking; when the client's buffer is full the
// oldest message is dropped so slow clients cannot stall a broadcast.
func push(c *client, msg outboundMessage) {
	select {
	case c.send <- msg:
	default:
		select {
		case <-c.send:
		default:
		}
		select {
		case c.send <- msg:
		default:
		}
	}
}

func (h *Hub) broadcast(quizID string, msg outboundMessage) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.byQuiz[quizID] {
		push(c, msg)
	}
}

func (h *Hub) toHost(quizID string, msg outboundMessage) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.byQuiz[quizID] {
		if c.isHost {
			push(c, msg)
		}
	}
}

func (h *Hub) toTeam(quizID, teamID string, msg outboundMessage) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.byQuiz[quizID] {
		if !c.isHost && c.teamID == teamID {
			push(c, msg)
		}
	}
}

func (h *Hub) toSession(sessionID string, msg outboundMessage) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if c, ok := h.bySession[sessionID]; ok {
		push(c, msg)
	}
}

// game.Broadcaster implementation.

func (h *Hub) PublishState(quizID string, ev game.StateEvent) {
	h.broadcast(quizID, outboundMessage{Type: "state", Payload: ev})
}

func (h *Hub) PublishQuestion(quizID string, q game.QuestionPayload) {
	h.broadcast(quizID, outboundMessage{Type: "question", Payload: q})
}

func (h *Hub) PublishReveal(quizID string, r game.RevealPayload) {
	h.broadcast(quizID, outboundMessage{Type: "reveal", Payload: r})
}

func (h *Hub) PublishScoreboard(quizID string, results []domain.TeamResult) {
	h.broadcast(quizID, outboundMessage{Type: "scoreboard", Payload: results})
}

func (h *Hub) PublishBufferTick(quizID string, remaining int, label string) {
	h.broadcast(quizID, outboundMessage{Type: "timer", Payload: timerPayload{
		Kind: "BUFFER", Remaining: remaining, Round: label,
	}})
}

func (h *Hub) PublishTimerTick(quizID string, remaining, total int) {
	h.broadcast(quizID, outboundMessage{Type: "timer", Payload: timerPayload{
		Kind: "TICK", Remaining: remaining, Total: total,
	}})
}

func (h *Hub) PublishTimerExpired(quizID string, total int) {
	h.broadcast(quizID, outboundMessage{Type: "timer", Payload: timerPayload{
		Kind: "EXPIRED", Total: total,
	}})
}

func (h *Hub) PublishTimerPaused(quizID string, remaining, total int) {
	h.broadcast(quizID, outboundMessage{Type: "timer", Payload: timerPayload{
		Kind: "PAUSED", Remaining: remaining, Total: total,
	}})
}

func (h *Hub) NotifyHost(quizID string, n game.HostNotification) {
	h.toHost(quizID, outboundMessage{Type: "host", Payload: n})
}

func (h *Hub) SendToTeam(quizID, teamID string, msg any) {
	h.toTeam(quizID, teamID, outboundMessage{Type: "team", Payload: msg})
}

func (h *Hub) SendError(sessionID string, e game.ErrorMessage) {
	h.toSession(sessionID, outboundMessage{Type: "error", Payload: e})
}
