package game

import (
	"log"
	"sync"
	"time"
)

type runKind int

const (
	bufferRun runKind = iota
	questionRun
)

// timerRun is the single live countdown for a quiz. A new run always
// supersedes the previous one; a superseded run's pending tick is a no-op
// because every tick re-checks that the run is still the registered one.
type timerRun struct {
	kind       runKind
	quizID     string
	questionID string // question runs only
	label      string // buffer runs only

	remaining int
	total     int
	paused    bool
	live      bool

	onComplete func()             // buffer terminal callback
	onExpire   func(questionID string) // question terminal callback

	stop     chan struct{}
	stopOnce sync.Once
}

func (r *timerRun) cancel() {
	r.stopOnce.Do(func() { close(r.stop) })
}

// TimerScheduler runs at most one countdown per quiz, ticking once per
// second. Every tick and terminal transition is pushed through the
// Broadcaster; terminal callbacks fire exactly once per run, off the
// scheduler's critical path, and may re-enter the scheduler.
type TimerScheduler struct {
	broadcaster Broadcaster
	interval    time.Duration

	mu   sync.Mutex
	runs map[string]*timerRun
}

func NewTimerScheduler(b Broadcaster) *TimerScheduler {
	return newTimerSchedulerWithInterval(b, time.Second)
}

// newTimerSchedulerWithInterval shortens the tick period for deterministic
// tests; production code always ticks at one second.
func newTimerSchedulerWithInterval(b Broadcaster, interval time.Duration) *TimerScheduler {
	return &TimerScheduler{
		broadcaster: b,
		interval:    interval,
		runs:        make(map[string]*timerRun),
	}
}

// StartBuffer begins the pre-round countdown. Any existing run for the quiz
// is cancelled first.
func (s *TimerScheduler) StartBuffer(quizID string, durationSeconds int, label string, onComplete func()) {
	r := &timerRun{
		kind:       bufferRun,
		quizID:     quizID,
		label:      label,
		remaining:  durationSeconds,
		total:      durationSeconds,
		live:       true,
		onComplete: onComplete,
		stop:       make(chan struct{}),
	}
	s.replace(quizID, r)
	s.broadcaster.PublishBufferTick(quizID, durationSeconds, label)
	go s.tickLoop(r)
	log.Printf("started buffer countdown for quiz %s (%ds, round %s)", quizID, durationSeconds, label)
}

// StartQuestion begins a question countdown. Any existing run for the quiz
// is cancelled first.
func (s *TimerScheduler) StartQuestion(quizID, questionID string, durationSeconds int, onExpire func(questionID string)) {
	r := &timerRun{
		kind:       questionRun,
		quizID:     quizID,
		questionID: questionID,
		remaining:  durationSeconds,
		total:      durationSeconds,
		live:       true,
		onExpire:   onExpire,
		stop:       make(chan struct{}),
	}
	s.replace(quizID, r)
	s.broadcaster.PublishTimerTick(quizID, durationSeconds, durationSeconds)
	go s.tickLoop(r)
	log.Printf("started question timer for quiz %s question %s (%ds)", quizID, questionID, durationSeconds)
}

// replace atomically retires any prior run and installs the new one.
func (s *TimerScheduler) replace(quizID string, next *timerRun) {
	s.mu.Lock()
	prev := s.runs[quizID]
	if prev != nil {
		prev.live = false
	}
	s.runs[quizID] = next
	s.mu.Unlock()
	if prev != nil {
		prev.cancel()
	}
}

// Stop cancels and discards the quiz's run. Idempotent.
func (s *TimerScheduler) Stop(quizID string) {
	s.mu.Lock()
	r, ok := s.runs[quizID]
	if ok {
		r.live = false
		delete(s.runs, quizID)
	}
	s.mu.Unlock()
	if ok {
		r.cancel()
	}
}

// Pause cancels the tick schedule but retains the remaining seconds. No-op
// when nothing is running or already paused.
func (s *TimerScheduler) Pause(quizID string) {
	s.mu.Lock()
	r, ok := s.runs[quizID]
	if !ok || r.paused {
		s.mu.Unlock()
		return
	}
	r.paused = true
	remaining, total := r.remaining, r.total
	s.mu.Unlock()
	r.cancel()
	s.broadcaster.PublishTimerPaused(quizID, remaining, total)
	log.Printf("paused timer for quiz %s at %ds", quizID, remaining)
}

// Resume restarts ticking from the retained remaining seconds. No-op unless
// paused. A non-nil onExpire replaces the retained expiry callback for
// question runs.
func (s *TimerScheduler) Resume(quizID string, onExpire func(questionID string)) {
	s.mu.Lock()
	prev, ok := s.runs[quizID]
	if !ok || !prev.paused {
		s.mu.Unlock()
		return
	}
	next := &timerRun{
		kind:       prev.kind,
		quizID:     prev.quizID,
		questionID: prev.questionID,
		label:      prev.label,
		remaining:  prev.remaining,
		total:      prev.total,
		live:       true,
		onComplete: prev.onComplete,
		onExpire:   prev.onExpire,
		stop:       make(chan struct{}),
	}
	if onExpire != nil && next.kind == questionRun {
		next.onExpire = onExpire
	}
	s.runs[quizID] = next
	s.mu.Unlock()

	if next.kind == bufferRun {
		s.broadcaster.PublishBufferTick(quizID, next.remaining, next.label)
	} else {
		s.broadcaster.PublishTimerTick(quizID, next.remaining, next.total)
	}
	go s.tickLoop(next)
	log.Printf("resumed timer for quiz %s with %ds remaining", quizID, next.remaining)
}

// IsActive reports whether a countdown is running (not paused).
func (s *TimerScheduler) IsActive(quizID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.runs[quizID]
	return ok && !r.paused
}

func (s *TimerScheduler) IsPaused(quizID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.runs[quizID]
	return ok && r.paused
}

func (s *TimerScheduler) Remaining(quizID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r, ok := s.runs[quizID]; ok {
		return r.remaining
	}
	return 0
}

func (s *TimerScheduler) Total(quizID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r, ok := s.runs[quizID]; ok {
		return r.total
	}
	return 0
}

// tickLoop decrements once per interval until the run expires or is retired.
// The liveness re-check under the lock makes a tick from a superseded run a
// no-op even if it was already dispatched when the run was cancelled.
func (s *TimerScheduler) tickLoop(r *timerRun) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-r.stop:
			return
		case <-ticker.C:
		}

		s.mu.Lock()
		if s.runs[r.quizID] != r || !r.live || r.paused {
			s.mu.Unlock()
			return
		}
		r.remaining--
		remaining, total := r.remaining, r.total
		if remaining <= 0 {
			r.live = false
			delete(s.runs, r.quizID)
			s.mu.Unlock()
			if r.kind == bufferRun {
				s.broadcaster.PublishBufferTick(r.quizID, 0, r.label)
				if r.onComplete != nil {
					r.onComplete()
				}
			} else {
				s.broadcaster.PublishTimerExpired(r.quizID, total)
				if r.onExpire != nil {
					r.onExpire(r.questionID)
				}
			}
			return
		}
		s.mu.Unlock()

		if r.kind == bufferRun {
			s.broadcaster.PublishBufferTick(r.quizID, remaining, r.label)
		} else {
			s.broadcaster.PublishTimerTick(r.quizID, remaining, total)
		}
	}
}
