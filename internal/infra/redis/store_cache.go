package redis

import (
	"context"
	"encoding/json"
	"math/rand"
	"time"

	"livequiz-service/internal/domain"
	"livequiz-service/internal/game"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

// StoreCache decorates a game.Store with a Redis read-through cache for quiz
// content. Question lists are cached per quiz (including correct keys, which
// never leave the server) with a jittered TTL; submissions and grading always
// pass through to the inner store.
type StoreCache struct {
	game.Store

	client *redis.Client
	ttl    time.Duration
	sf     singleflight.Group
	rnd    *rand.Rand
}

func NewStoreCache(inner game.Store, client *redis.Client, ttl time.Duration) *StoreCache {
	return &StoreCache{
		Store:  inner,
		client: client,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// cachedQuestion mirrors domain.Question with the correct key made explicit,
// since the domain type hides it from JSON.
type cachedQuestion struct {
	ID         string              `json:"id"`
	QuizID     string              `json:"quizId"`
	Text       string              `json:"text"`
	Type       domain.QuestionType `json:"type"`
	Difficulty string              `json:"difficulty,omitempty"`
	Options    []string            `json:"options,omitempty"`
	CorrectKey string              `json:"correctKey"`
	Points     int                 `json:"points"`
	TimeLimit  int                 `json:"timeLimit"`
	OrderIndex int                 `json:"orderIndex"`
}

func toCached(qs []domain.Question) []cachedQuestion {
	out := make([]cachedQuestion, len(qs))
	for i, q := range qs {
		out[i] = cachedQuestion(q)
	}
	return out
}

func fromCached(qs []cachedQuestion) []domain.Question {
	out := make([]domain.Question, len(qs))
	for i, q := range qs {
		out[i] = domain.Question(q)
	}
	return out
}

func (c *StoreCache) QuestionsByQuiz(ctx context.Context, quizID string) ([]domain.Question, error) {
	key := c.questionsKey(quizID)

	if raw, err := c.client.Get(ctx, key).Bytes(); err == nil {
		var cached []cachedQuestion
		if err := json.Unmarshal(raw, &cached); err == nil {
			return fromCached(cached), nil
		}
	}

	result, err, _ := c.sf.Do(key, func() (interface{}, error) {
		// Re-check in case another goroutine filled the cache.
		if raw, err := c.client.Get(ctx, key).Bytes(); err == nil {
			var cached []cachedQuestion
			if err := json.Unmarshal(raw, &cached); err == nil {
				return fromCached(cached), nil
			}
		}

		questions, err := c.Store.QuestionsByQuiz(ctx, quizID)
		if err != nil {
			return nil, err
		}
		if raw, err := json.Marshal(toCached(questions)); err == nil {
			_ = c.client.Set(ctx, key, raw, c.ttlWithJitter()).Err()
		}
		return questions, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]domain.Question), nil
}

// Invalidate drops the cached question list for a quiz.
func (c *StoreCache) Invalidate(ctx context.Context, quizID string) {
	_ = c.client.Del(ctx, c.questionsKey(quizID)).Err()
}

func (c *StoreCache) questionsKey(quizID string) string {
	return "quiz:" + quizID + ":questions"
}

func (c *StoreCache) ttlWithJitter() time.Duration {
	if c.ttl <= 0 {
		return 0
	}
	// up to 10% jitter to spread expirations
	jitterMax := int64(c.ttl) / 10
	return c.ttl + time.Duration(c.rnd.Int63n(jitterMax+1))
}
