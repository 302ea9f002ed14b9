package session

import (
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"topaz-backend/internal/models"
)

// ─── Test doubles ───

type fakeClock struct {
	mu     sync.Mutex
	now    time.Time
	ticker *fakeTicker
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	f.now = f.now.Add(d)
	f.mu.Unlock()
}

func (f *fakeClock) NewTicker(time.Duration) Ticker {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ticker = &fakeTicker{ch: make(chan time.Time)}
	return f.ticker
}

type fakeTicker struct {
	ch      chan time.Time
	mu      sync.Mutex
	stopped bool
}

func (t *fakeTicker) C() <-chan time.Time { return t.ch }

func (t *fakeTicker) Stop() {
	t.mu.Lock()
	t.stopped = true
	t.mu.Unlock()
}

func (t *fakeTicker) Stopped() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.stopped
}

// twoQuestionTest mirrors the canonical fixture: q1 with 2 options (correct 0),
// q2 with 3 options (correct 2), duration 1 minute.
func twoQuestionTest() models.Test {
	return models.Test{
		ID:       uuid.New(),
		Title:    "Fixture",
		Duration: 1,
		Questions: []models.Question{
			{ID: "q1", Text: "First", Options: []string{"A", "B"}, CorrectAnswer: 0},
			{ID: "q2", Text: "Second", Options: []string{"A", "B", "C"}, CorrectAnswer: 2},
		},
	}
}

func startedSession(t *testing.T) (*Session, *fakeClock) {
	t.Helper()
	clock := newFakeClock()
	s, err := New(twoQuestionTest(), uuid.New(), clock)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if err := s.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	return s, clock
}

// ─── Construction ───

func TestNew_RejectsMalformedTest(t *testing.T) {
	clock := newFakeClock()

	tests := []struct {
		name string
		test models.Test
	}{
		{"no questions", models.Test{ID: uuid.New(), Duration: 10}},
		{"zero duration", func() models.Test {
			tt := twoQuestionTest()
			tt.Duration = 0
			return tt
		}()},
		{"negative duration", func() models.Test {
			tt := twoQuestionTest()
			tt.Duration = -3
			return tt
		}()},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := New(tc.test, uuid.New(), clock)
			if _, ok := err.(*InvalidInputError); !ok {
				t.Errorf("Expected InvalidInputError, got %v", err)
			}
		})
	}
}

func TestNew_InitialState(t *testing.T) {
	clock := newFakeClock()
	s, err := New(twoQuestionTest(), uuid.New(), clock)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	st := s.State()
	if st.Phase != PhaseNotStarted {
		t.Errorf("Expected phase %q, got %q", PhaseNotStarted, st.Phase)
	}
	if st.Cursor != 0 {
		t.Errorf("Expected cursor 0, got %d", st.Cursor)
	}
	if st.RemainingSeconds != 60 {
		t.Errorf("Expected 60 remaining seconds, got %d", st.RemainingSeconds)
	}
	if st.AnsweredCount != 0 {
		t.Errorf("Expected empty answer map, got %d entries", st.AnsweredCount)
	}
}

// ─── Phase guards ───

func TestStart_OnlyFromNotStarted(t *testing.T) {
	s, _ := startedSession(t)

	if err := s.Start(); err == nil {
		t.Fatal("Expected error starting an in-progress session")
	} else if _, ok := err.(*InvalidStateError); !ok {
		t.Errorf("Expected InvalidStateError, got %T", err)
	}

	if _, err := s.Submit(); err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	if err := s.Start(); err == nil {
		t.Error("Expected error starting a submitted session")
	}
}

func TestOperations_RequireInProgress(t *testing.T) {
	clock := newFakeClock()
	s, _ := New(twoQuestionTest(), uuid.New(), clock)

	ops := []struct {
		name string
		call func() error
	}{
		{"select answer", func() error { return s.SelectAnswer("q1", 0) }},
		{"go to", func() error { return s.GoTo(1) }},
		{"next", func() error { return s.Next() }},
		{"previous", func() error { return s.Previous() }},
	}

	for _, op := range ops {
		t.Run(op.name+" before start", func(t *testing.T) {
			if err := op.call(); err == nil {
				t.Fatal("Expected error before start")
			} else if _, ok := err.(*InvalidStateError); !ok {
				t.Errorf("Expected InvalidStateError, got %T", err)
			}
		})
	}

	s.Start()
	s.Submit()

	for _, op := range ops {
		t.Run(op.name+" after submit", func(t *testing.T) {
			if err := op.call(); err == nil {
				t.Fatal("Expected error after submit")
			} else if _, ok := err.(*InvalidStateError); !ok {
				t.Errorf("Expected InvalidStateError, got %T", err)
			}
		})
	}
}

func TestSubmit_BeforeStartIsInvalidState(t *testing.T) {
	clock := newFakeClock()
	s, _ := New(twoQuestionTest(), uuid.New(), clock)

	if _, err := s.Submit(); err == nil {
		t.Fatal("Expected error submitting a not-started session")
	} else if _, ok := err.(*InvalidStateError); !ok {
		t.Errorf("Expected InvalidStateError, got %T", err)
	}
}

// ─── Answers ───

func TestSelectAnswer_BoundsChecks(t *testing.T) {
	s, _ := startedSession(t)

	tests := []struct {
		name       string
		questionID string
		option     int
	}{
		{"unknown question", "nope", 0},
		{"negative option", "q1", -1},
		{"option at len", "q1", 2},
		{"option past len", "q2", 99},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := s.SelectAnswer(tc.questionID, tc.option)
			if _, ok := err.(*InvalidInputError); !ok {
				t.Errorf("Expected InvalidInputError, got %v", err)
			}
		})
	}

	if s.State().AnsweredCount != 0 {
		t.Error("Rejected answers must not be recorded")
	}
}

func TestSelectAnswer_OverwritesWithoutMovingCursor(t *testing.T) {
	s, _ := startedSession(t)

	if err := s.SelectAnswer("q1", 1); err != nil {
		t.Fatalf("SelectAnswer failed: %v", err)
	}
	if err := s.SelectAnswer("q1", 0); err != nil {
		t.Fatalf("Overwrite failed: %v", err)
	}

	st := s.State()
	if st.Answers["q1"] != 0 {
		t.Errorf("Expected overwritten answer 0, got %d", st.Answers["q1"])
	}
	if st.AnsweredCount != 1 {
		t.Errorf("Expected one entry, got %d", st.AnsweredCount)
	}
	if st.Cursor != 0 {
		t.Errorf("SelectAnswer must not move the cursor, got %d", st.Cursor)
	}
}

// ─── Navigation ───

func TestGoTo_Bounds(t *testing.T) {
	s, _ := startedSession(t)

	if err := s.GoTo(1); err != nil {
		t.Fatalf("GoTo(1) failed: %v", err)
	}
	if got := s.State().Cursor; got != 1 {
		t.Errorf("Expected cursor 1, got %d", got)
	}

	for _, idx := range []int{-1, 2, 100} {
		if err := s.GoTo(idx); err == nil {
			t.Errorf("Expected error for GoTo(%d)", idx)
		} else if _, ok := err.(*InvalidInputError); !ok {
			t.Errorf("Expected InvalidInputError for GoTo(%d), got %T", idx, err)
		}
	}
	if got := s.State().Cursor; got != 1 {
		t.Errorf("Cursor must be unchanged after rejected GoTo, got %d", got)
	}
}

func TestNavigation_ClampsAtBoundaries(t *testing.T) {
	s, _ := startedSession(t)

	// Previous at the first question is a no-op, not an error.
	if err := s.Previous(); err != nil {
		t.Fatalf("Previous at 0 failed: %v", err)
	}
	if got := s.State().Cursor; got != 0 {
		t.Errorf("Expected cursor clamped at 0, got %d", got)
	}

	if err := s.Next(); err != nil {
		t.Fatalf("Next failed: %v", err)
	}
	if err := s.Next(); err != nil {
		t.Fatalf("Next at last index failed: %v", err)
	}
	if got := s.State().Cursor; got != 1 {
		t.Errorf("Expected cursor clamped at 1, got %d", got)
	}
}

// ─── Scoring and submission ───

func TestSubmit_ScoresAnswersInOrder(t *testing.T) {
	s, _ := startedSession(t)

	// q1 correct, q2 wrong: the canonical walkthrough.
	s.SelectAnswer("q1", 0)
	s.SelectAnswer("q2", 1)

	attempt, err := s.Submit()
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}

	if attempt.Score != 1 {
		t.Errorf("Expected score 1, got %d", attempt.Score)
	}
	if attempt.TotalQuestions != 2 {
		t.Errorf("Expected total 2, got %d", attempt.TotalQuestions)
	}
	if len(attempt.Answers) != 2 || attempt.Answers["q1"] != 0 || attempt.Answers["q2"] != 1 {
		t.Errorf("Unexpected answer snapshot: %v", attempt.Answers)
	}
	if attempt.TimedOut {
		t.Error("Manual submit must not be marked timed out")
	}
}

func TestSubmit_EmptyAnswersScoreZero(t *testing.T) {
	s, _ := startedSession(t)

	attempt, err := s.Submit()
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	if attempt.Score != 0 {
		t.Errorf("Expected score 0 for empty answer map, got %d", attempt.Score)
	}
	if len(attempt.Answers) != 0 {
		t.Errorf("Expected empty snapshot, got %v", attempt.Answers)
	}
}

func TestSubmit_TimeTakenFromRemainingSeconds(t *testing.T) {
	s, _ := startedSession(t)

	for i := 0; i < 10; i++ {
		s.tick()
	}

	attempt, err := s.Submit()
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	if attempt.TimeTaken != 10 {
		t.Errorf("Expected 10 seconds taken, got %d", attempt.TimeTaken)
	}
}

func TestSubmit_Idempotent(t *testing.T) {
	s, _ := startedSession(t)
	emitted := 0
	s.OnComplete(func(models.Test, models.TestAttempt) { emitted++ })

	s.SelectAnswer("q1", 0)

	first, err := s.Submit()
	if err != nil {
		t.Fatalf("First submit failed: %v", err)
	}
	second, err := s.Submit()
	if err != nil {
		t.Fatalf("Second submit must be a no-op, got error: %v", err)
	}

	if first.ID != second.ID {
		t.Error("Second submit must return the same attempt, not a new one")
	}
	if !first.CompletedAt.Equal(second.CompletedAt) {
		t.Error("CompletedAt must not change on repeated submit")
	}
	if first.Score != second.Score {
		t.Error("Score must not change on repeated submit")
	}
	if emitted != 1 {
		t.Errorf("Expected exactly one emission, got %d", emitted)
	}
}

func TestAttempt_SnapshotIsFrozen(t *testing.T) {
	s, _ := startedSession(t)
	s.SelectAnswer("q1", 0)

	attempt, _ := s.Submit()
	attempt.Answers["q1"] = 1

	again, _ := s.Submit()
	if again.Answers["q1"] != 0 {
		t.Error("Mutating a returned attempt must not affect the stored one")
	}
}

// ─── Timeout ───

func TestTimeout_AutoSubmitsWithRecordedAnswers(t *testing.T) {
	s, _ := startedSession(t)

	var got models.TestAttempt
	emitted := 0
	s.OnComplete(func(_ models.Test, a models.TestAttempt) {
		got = a
		emitted++
	})

	s.SelectAnswer("q1", 0)

	// 1-minute test: 60 ticks run the clock out.
	for i := 0; i < 60; i++ {
		s.tick()
	}

	if emitted != 1 {
		t.Fatalf("Expected one auto-submitted attempt, got %d", emitted)
	}
	if got.Score != 1 {
		t.Errorf("Expected score 1, got %d", got.Score)
	}
	if len(got.Answers) != 1 || got.Answers["q1"] != 0 {
		t.Errorf("Expected answers {q1:0}, got %v", got.Answers)
	}
	if got.TimeTaken != 60 {
		t.Errorf("Expected timeTaken 60, got %d", got.TimeTaken)
	}
	if !got.TimedOut {
		t.Error("Timeout attempt must be marked timed out")
	}

	if st := s.State(); st.Phase != PhaseSubmitted || st.RemainingSeconds != 0 {
		t.Errorf("Expected submitted phase with 0 remaining, got %+v", st)
	}
}

func TestTimeout_TicksStopAfterTerminalPhase(t *testing.T) {
	s, _ := startedSession(t)

	s.Submit()

	// A straggling tick after submission must not touch the countdown.
	s.tick()
	if got := s.State().RemainingSeconds; got != 60 {
		t.Errorf("Expected remaining seconds untouched at 60, got %d", got)
	}
}

func TestTimeout_EquivalentToManualSubmit(t *testing.T) {
	// Two sessions with identical answers: one submitted explicitly, one run
	// out by the clock. The scoring rule and attempt shape must match.
	manual, _ := startedSession(t)
	manual.SelectAnswer("q1", 0)
	a, err := manual.Submit()
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}

	timed, _ := startedSession(t)
	timed.SelectAnswer("q1", 0)
	for i := 0; i < 60; i++ {
		timed.tick()
	}
	b, err := timed.Submit() // already auto-submitted; returns the same attempt
	if err != nil {
		t.Fatalf("Submit after timeout must be a no-op, got: %v", err)
	}

	if a.Score != b.Score {
		t.Errorf("Score differs: submit %d, timeout %d", a.Score, b.Score)
	}
	if a.TotalQuestions != b.TotalQuestions {
		t.Errorf("Total differs: submit %d, timeout %d", a.TotalQuestions, b.TotalQuestions)
	}
	if len(a.Answers) != len(b.Answers) || a.Answers["q1"] != b.Answers["q1"] {
		t.Errorf("Answer snapshots differ: %v vs %v", a.Answers, b.Answers)
	}
	if b.TimeTaken != 60 {
		t.Errorf("Timeout attempt must record the full duration, got %d", b.TimeTaken)
	}
}

func TestTickerStopsOnSubmit(t *testing.T) {
	s, clock := startedSession(t)

	s.Submit()
	if !clock.ticker.Stopped() {
		t.Error("Ticker must be stopped once the session is submitted")
	}
}

func TestClose_StopsTickingWithoutEmitting(t *testing.T) {
	s, clock := startedSession(t)
	emitted := 0
	s.OnComplete(func(models.Test, models.TestAttempt) { emitted++ })

	s.Close()

	if !clock.ticker.Stopped() {
		t.Error("Close must stop the ticker")
	}
	if emitted != 0 {
		t.Errorf("Close must not emit an attempt, got %d", emitted)
	}

	// Close is idempotent.
	s.Close()
}

func TestTickerDrivesCountdown(t *testing.T) {
	s, clock := startedSession(t)

	done := make(chan models.TestAttempt, 1)
	s.OnComplete(func(_ models.Test, a models.TestAttempt) { done <- a })

	for i := 0; i < 60; i++ {
		clock.ticker.ch <- clock.Now()
	}

	select {
	case a := <-done:
		if !a.TimedOut {
			t.Error("Expected a timed-out attempt")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Timed out waiting for auto-submission")
	}
}

// ─── Submit vs. timeout race ───

func TestSubmitTimeoutRace_SingleEmission(t *testing.T) {
	for i := 0; i < 50; i++ {
		s, _ := startedSession(t)

		var mu sync.Mutex
		emitted := 0
		s.OnComplete(func(models.Test, models.TestAttempt) {
			mu.Lock()
			emitted++
			mu.Unlock()
		})

		// Drain the clock to one second left, then fire the final tick and a
		// manual submit at the same instant.
		for j := 0; j < 59; j++ {
			s.tick()
		}

		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			s.tick()
		}()
		go func() {
			defer wg.Done()
			if _, err := s.Submit(); err != nil {
				t.Errorf("Submit during timeout must not error: %v", err)
			}
		}()
		wg.Wait()

		mu.Lock()
		n := emitted
		mu.Unlock()
		if n != 1 {
			t.Fatalf("Expected exactly one emission, got %d", n)
		}
	}
}

// ─── Score function ───

func TestScore_AllCombinations(t *testing.T) {
	test := twoQuestionTest()

	tests := []struct {
		name    string
		answers models.AnswerMap
		want    int
	}{
		{"empty", models.AnswerMap{}, 0},
		{"all correct", models.AnswerMap{"q1": 0, "q2": 2}, 2},
		{"all wrong", models.AnswerMap{"q1": 1, "q2": 0}, 0},
		{"partial", models.AnswerMap{"q2": 2}, 1},
		{"stray key ignored", models.AnswerMap{"q9": 0}, 0},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := Score(test, tc.answers); got != tc.want {
				t.Errorf("Expected score %d, got %d", tc.want, got)
			}
		})
	}
}
