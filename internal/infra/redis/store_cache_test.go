package redis

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"

	"livequiz-service/internal/domain"
	"livequiz-service/internal/game"
	"livequiz-service/internal/infra/memory"
)

// countingStore wraps the memory store and counts question-list fetches.
type countingStore struct {
	game.Store
	mu      sync.Mutex
	fetches int
}

func (s *countingStore) QuestionsByQuiz(ctx context.Context, quizID string) ([]domain.Question, error) {
	s.mu.Lock()
	s.fetches++
	s.mu.Unlock()
	return s.Store.QuestionsByQuiz(ctx, quizID)
}

func (s *countingStore) fetchCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fetches
}

func newCacheFixture(t *testing.T) (*StoreCache, *countingStore, *miniredis.Miniredis) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	inner := memory.NewStore()
	inner.PutQuiz(domain.Quiz{ID: "quiz-1", Title: "Cached"})
	inner.PutQuestion(domain.Question{
		ID:         "q1",
		QuizID:     "quiz-1",
		Text:       "What is 2 + 2?",
		Type:       domain.MultipleChoice,
		Options:    []string{"3", "4", "5", "6"},
		CorrectKey: "B",
		Points:     10,
		TimeLimit:  30,
		OrderIndex: 0,
	})

	counting := &countingStore{Store: inner}
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return NewStoreCache(counting, client, time.Minute), counting, mr
}

func TestQuestionsByQuizCachesAfterFirstFetch(t *testing.T) {
	cache, counting, _ := newCacheFixture(t)
	ctx := context.Background()

	first, err := cache.QuestionsByQuiz(ctx, "quiz-1")
	if err != nil {
		t.Fatalf("first fetch: %v", err)
	}
	second, err := cache.QuestionsByQuiz(ctx, "quiz-1")
	if err != nil {
		t.Fatalf("second fetch: %v", err)
	}

	if counting.fetchCount() != 1 {
		t.Fatalf("expected one inner fetch, got %d", counting.fetchCount())
	}
	if len(first) != 1 || len(second) != 1 {
		t.Fatalf("unexpected result sizes: %d, %d", len(first), len(second))
	}
}

func TestCachedQuestionsKeepCorrectKey(t *testing.T) {
	cache, _, _ := newCacheFixture(t)
	ctx := context.Background()

	if _, err := cache.QuestionsByQuiz(ctx, "quiz-1"); err != nil {
		t.Fatalf("warm cache: %v", err)
	}
	questions, err := cache.QuestionsByQuiz(ctx, "quiz-1")
	if err != nil {
		t.Fatalf("cached fetch: %v", err)
	}
	if questions[0].CorrectKey != "B" {
		t.Fatalf("correct key lost in cache round-trip: %+v", questions[0])
	}
	if questions[0].TimeLimit != 30 || len(questions[0].Options) != 4 {
		t.Fatalf("question fields lost in cache round-trip: %+v", questions[0])
	}
}

func TestInvalidateForcesRefetch(t *testing.T) {
	cache, counting, _ := newCacheFixture(t)
	ctx := context.Background()

	if _, err := cache.QuestionsByQuiz(ctx, "quiz-1"); err != nil {
		t.Fatalf("warm cache: %v", err)
	}
	cache.Invalidate(ctx, "quiz-1")
	if _, err := cache.QuestionsByQuiz(ctx, "quiz-1"); err != nil {
		t.Fatalf("refetch: %v", err)
	}
	if counting.fetchCount() != 2 {
		t.Fatalf("expected refetch after invalidation, got %d fetches", counting.fetchCount())
	}
}

func TestCacheExpiryRefetches(t *testing.T) {
	cache, counting, mr := newCacheFixture(t)
	ctx := context.Background()

	if _, err := cache.QuestionsByQuiz(ctx, "quiz-1"); err != nil {
		t.Fatalf("warm cache: %v", err)
	}
	mr.FastForward(2 * time.Minute)
	if _, err := cache.QuestionsByQuiz(ctx, "quiz-1"); err != nil {
		t.Fatalf("refetch: %v", err)
	}
	if counting.fetchCount() != 2 {
		t.Fatalf("expected refetch after TTL, got %d fetches", counting.fetchCount())
	}
}

func TestPassThroughOperationsSkipCache(t *testing.T) {
	cache, _, _ := newCacheFixture(t)
	ctx := context.Background()

	if err := cache.SaveSubmission(ctx, domain.Submission{TeamID: "team-1", QuestionID: "q1", Answer: "B"}); err != nil {
		t.Fatalf("save: %v", err)
	}
	sub, ok, err := cache.FindSubmission(ctx, "team-1", "q1")
	if err != nil || !ok {
		t.Fatalf("find submission: ok=%v err=%v", ok, err)
	}
	if sub.Answer != "B" {
		t.Fatalf("unexpected submission: %+v", sub)
	}
}
