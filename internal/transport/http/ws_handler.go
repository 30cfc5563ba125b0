package http

import (
	"encoding/json"
	"log"
	"net/http"

	"livequiz-service/internal/game"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// WSHandler upgrades HTTP requests to websockets and wires them into the
// game-flow orchestrator. Identity is resolved from the query string and
// attached to every inbound command/submission.
type WSHandler struct {
	orchestrator *game.Orchestrator
	registry     *game.SessionRegistry
	store        game.Store
	hub          *Hub
	upgrader     websocket.Upgrader
}

func NewWSHandler(orchestrator *game.Orchestrator, registry *game.SessionRegistry, store game.Store, hub *Hub) *WSHandler {
	return &WSHandler{
		orchestrator: orchestrator,
		registry:     registry,
		store:        store,
		hub:          hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type commandPayload struct {
	Type  string `json:"type"`
	Round string `json:"round,omitempty"`
}

type submitPayload struct {
	QuestionID string `json:"questionId"`
	Answer     string `json:"answer"`
}

// ServeWS handles /ws?quizId=...&role=host or /ws?quizId=...&teamId=...
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	quizID := r.URL.Query().Get("quizId")
	teamID := r.URL.Query().Get("teamId")
	isHost := r.URL.Query().Get("role") == "host"
	if quizID == "" || (!isHost && teamID == "") {
		http.Error(w, "missing quizId or teamId", http.StatusBadRequest)
		return
	}

	ctx := r.Context()
	if _, err := h.store.FindQuiz(ctx, quizID); err != nil {
		http.Error(w, "unknown quiz", http.StatusNotFound)
		return
	}
	if !isHost {
		team, err := h.store.FindTeam(ctx, teamID)
		if err != nil || team.QuizID != quizID {
			http.Error(w, "unknown team", http.StatusNotFound)
			return
		}
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	c := &client{
		sessionID: uuid.NewString(),
		quizID:    quizID,
		teamID:    teamID,
		isHost:    isHost,
		send:      make(chan outboundMessage, 32),
	}
	identity := game.Identity{
		SessionID: c.sessionID,
		QuizID:    quizID,
		TeamID:    teamID,
		IsHost:    isHost,
	}

	h.hub.add(c)
	if isHost {
		h.registry.RegisterHost(quizID, c.sessionID)
		log.Printf("host connected to quiz %s: session %s", quizID, c.sessionID)
	} else {
		h.registry.RegisterParticipant(quizID, teamID, c.sessionID)
		log.Printf("team %s connected to quiz %s: session %s", teamID, quizID, c.sessionID)
		h.hub.NotifyHost(quizID, game.HostNotification{Type: game.NotifyTeamJoined, Payload: teamID})
		h.hub.NotifyHost(quizID, game.HostNotification{Type: game.NotifyTeamCount, Payload: h.registry.ConnectedTeamCount(quizID)})
	}

	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		for msg := range c.send {
			if err := conn.WriteJSON(msg); err != nil {
				log.Printf("ws write error: %v", err)
				return
			}
		}
	}()

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		switch inbound.Type {
		case "command":
			var payload commandPayload
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
				h.hub.SendError(c.sessionID, game.ErrorMessage{Code: game.CodeCommandError, Message: "invalid command payload"})
				continue
			}
			h.orchestrator.HandleHostCommand(ctx, identity, game.HostCommand{
				Type:   game.HostCommandType(payload.Type),
				QuizID: quizID,
				Round:  payload.Round,
			})
		case "submit":
			var payload submitPayload
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
				h.hub.SendError(c.sessionID, game.ErrorMessage{Code: game.CodeSubmissionError, Message: "invalid submission payload"})
				continue
			}
			h.orchestrator.HandleSubmission(ctx, identity, quizID, payload.QuestionID, payload.Answer)
		case "status":
			h.orchestrator.HandleStatusRequest(identity)
		default:
			h.hub.SendError(c.sessionID, game.ErrorMessage{Code: game.CodeCommandError, Message: "unsupported message type"})
		}
	}

	h.registry.Unregister(c.sessionID)
	h.hub.remove(c)
	<-writerDone

	if isHost {
		h.orchestrator.HandleHostDisconnect(quizID)
	} else {
		log.Printf("team %s disconnected from quiz %s", teamID, quizID)
		h.hub.NotifyHost(quizID, game.HostNotification{Type: game.NotifyTeamDisconnected, Payload: teamID})
		h.hub.NotifyHost(quizID, game.HostNotification{Type: game.NotifyTeamCount, Payload: h.registry.ConnectedTeamCount(quizID)})
	}
}
