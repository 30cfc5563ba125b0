package game

import (
	"testing"

	"livequiz-service/internal/domain"
)

func TestRegistryDefaultsForUnknownQuiz(t *testing.T) {
	registry := NewSessionRegistry()

	if state := registry.State("nope"); state != domain.StateLobby {
		t.Fatalf("expected LOBBY default, got %s", state)
	}
	if idx := registry.QuestionIndex("nope"); idx != 0 {
		t.Fatalf("expected index 0 default, got %d", idx)
	}
	if _, ok := registry.CurrentQuestionID("nope"); ok {
		t.Fatalf("expected no current question")
	}
	if registry.ConnectedTeamCount("nope") != 0 {
		t.Fatalf("expected no connected teams")
	}
	if registry.IsHostConnected("nope") {
		t.Fatalf("expected no host")
	}
	// Unknown session unregister is a no-op.
	registry.Unregister("missing-session")
}

func TestRegistryHostAndParticipants(t *testing.T) {
	registry := NewSessionRegistry()

	registry.RegisterHost("quiz-1", "s-host")
	registry.RegisterParticipant("quiz-1", "team-1", "s1")
	registry.RegisterParticipant("quiz-1", "team-2", "s2")

	if !registry.IsHostConnected("quiz-1") {
		t.Fatalf("expected host connected")
	}
	if id, _ := registry.HostSessionID("quiz-1"); id != "s-host" {
		t.Fatalf("expected host session s-host, got %s", id)
	}
	if registry.ConnectedTeamCount("quiz-1") != 2 {
		t.Fatalf("expected 2 teams, got %d", registry.ConnectedTeamCount("quiz-1"))
	}
	if !registry.IsTeamConnected("quiz-1", "team-2") {
		t.Fatalf("expected team-2 connected")
	}
	if state := registry.State("quiz-1"); state != domain.StateLobby {
		t.Fatalf("expected LOBBY after host registration, got %s", state)
	}

	registry.Unregister("s1")
	if registry.ConnectedTeamCount("quiz-1") != 1 {
		t.Fatalf("expected 1 team after unregister")
	}
	registry.Unregister("s-host")
	if registry.IsHostConnected("quiz-1") {
		t.Fatalf("expected host gone after unregister")
	}
}

func TestRegistryStateAndQuestionTracking(t *testing.T) {
	registry := NewSessionRegistry()

	registry.SetState("quiz-1", domain.StateActive)
	registry.SetQuestionIndex("quiz-1", 3)
	registry.SetCurrentQuestionID("quiz-1", "q4")

	if registry.State("quiz-1") != domain.StateActive {
		t.Fatalf("state not stored")
	}
	if registry.QuestionIndex("quiz-1") != 3 {
		t.Fatalf("index not stored")
	}
	if id, ok := registry.CurrentQuestionID("quiz-1"); !ok || id != "q4" {
		t.Fatalf("question id not stored: %q %v", id, ok)
	}
}

func TestClearQuizLeavesOtherQuizzesIntact(t *testing.T) {
	registry := NewSessionRegistry()

	registry.RegisterHost("quiz-1", "h1")
	registry.RegisterParticipant("quiz-1", "team-1", "s1")
	registry.SetState("quiz-1", domain.StateActive)
	registry.SetQuestionIndex("quiz-1", 2)
	registry.SetCurrentQuestionID("quiz-1", "q3")

	registry.RegisterHost("quiz-2", "h2")
	registry.RegisterParticipant("quiz-2", "team-9", "s9")
	registry.SetState("quiz-2", domain.StateReveal)

	registry.ClearQuiz("quiz-1")

	if registry.IsHostConnected("quiz-1") || registry.ConnectedTeamCount("quiz-1") != 0 {
		t.Fatalf("quiz-1 not cleared")
	}
	if registry.State("quiz-1") != domain.StateLobby || registry.QuestionIndex("quiz-1") != 0 {
		t.Fatalf("quiz-1 state not reset to defaults")
	}
	if _, ok := registry.CurrentQuestionID("quiz-1"); ok {
		t.Fatalf("quiz-1 question id not cleared")
	}
	if _, ok := registry.Connection("s1"); ok {
		t.Fatalf("quiz-1 connection entries not cleared")
	}

	if !registry.IsHostConnected("quiz-2") || registry.ConnectedTeamCount("quiz-2") != 1 {
		t.Fatalf("quiz-2 affected by ClearQuiz(quiz-1)")
	}
	if registry.State("quiz-2") != domain.StateReveal {
		t.Fatalf("quiz-2 state affected")
	}
}
