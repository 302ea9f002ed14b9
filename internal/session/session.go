package session

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"topaz-backend/internal/models"
)

// Phase is the session lifecycle stage.
type Phase string

const (
	PhaseNotStarted Phase = "not_started"
	PhaseInProgress Phase = "in_progress"
	PhaseSubmitted  Phase = "submitted"
)

// Session is the live, mutable state of one user taking one test: countdown,
// current-question cursor, answer map and the single TestAttempt it emits on
// submission or timeout. All state is guarded by one mutex; the tick goroutine
// and HTTP callers are serialized through it, so the first transition out of
// in_progress wins and the second submit observes it as a no-op.
type Session struct {
	ID uuid.UUID

	mu               sync.Mutex
	test             models.Test
	userID           uuid.UUID
	phase            Phase
	cursor           int
	answers          models.AnswerMap
	remainingSeconds int
	attempt          *models.TestAttempt

	clock      Clock
	ticker     Ticker
	stop       chan struct{}
	ticking    bool
	onComplete func(models.Test, models.TestAttempt)
}

// New builds a session for one attempt at test by userID. The test must have
// at least one question and a positive duration.
func New(test models.Test, userID uuid.UUID, clock Clock) (*Session, error) {
	if len(test.Questions) == 0 {
		return nil, &InvalidInputError{Message: "test has no questions"}
	}
	if test.Duration <= 0 {
		return nil, &InvalidInputError{Message: "test duration must be positive"}
	}

	return &Session{
		ID:               uuid.New(),
		test:             test,
		userID:           userID,
		phase:            PhaseNotStarted,
		answers:          make(models.AnswerMap),
		remainingSeconds: test.Duration * 60,
		clock:            clock,
	}, nil
}

// OnComplete registers the callback invoked once, outside the session lock,
// with the emitted attempt. Must be set before Start.
func (s *Session) OnComplete(fn func(models.Test, models.TestAttempt)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onComplete = fn
}

func (s *Session) UserID() uuid.UUID { return s.userID }

func (s *Session) TestID() uuid.UUID { return s.test.ID }

// Start transitions not_started → in_progress and arms the one-second tick.
func (s *Session) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.phase != PhaseNotStarted {
		return &InvalidStateError{Op: "start", Phase: s.phase}
	}

	s.phase = PhaseInProgress
	s.ticker = s.clock.NewTicker(time.Second)
	s.stop = make(chan struct{})
	s.ticking = true
	go s.run(s.ticker, s.stop)
	return nil
}

func (s *Session) run(ticker Ticker, stop chan struct{}) {
	for {
		select {
		case <-stop:
			return
		case <-ticker.C():
			s.tick()
		}
	}
}

func (s *Session) tick() {
	s.mu.Lock()
	if s.phase != PhaseInProgress {
		s.mu.Unlock()
		return
	}

	s.remainingSeconds--
	if s.remainingSeconds > 0 {
		s.mu.Unlock()
		return
	}

	s.remainingSeconds = 0
	attempt := s.finishLocked(true)
	s.mu.Unlock()
	s.emit(attempt)
}

// SelectAnswer records (or overwrites) the answer for a question. The cursor
// does not move.
func (s *Session) SelectAnswer(questionID string, optionIndex int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.phase != PhaseInProgress {
		return &InvalidStateError{Op: "answer", Phase: s.phase}
	}

	question, ok := s.questionByID(questionID)
	if !ok {
		return &InvalidInputError{Message: "unknown question id: " + questionID}
	}
	if optionIndex < 0 || optionIndex >= len(question.Options) {
		return &InvalidInputError{Message: "option index out of range"}
	}

	s.answers[questionID] = optionIndex
	return nil
}

// GoTo moves the cursor to an arbitrary question. Free navigation: prior
// questions do not have to be answered.
func (s *Session) GoTo(index int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.phase != PhaseInProgress {
		return &InvalidStateError{Op: "navigate", Phase: s.phase}
	}
	if index < 0 || index >= len(s.test.Questions) {
		return &InvalidInputError{Message: "question index out of range"}
	}

	s.cursor = index
	return nil
}

// Next advances the cursor by one, staying put at the last question.
func (s *Session) Next() error {
	return s.step(1)
}

// Previous moves the cursor back by one, staying put at the first question.
func (s *Session) Previous() error {
	return s.step(-1)
}

func (s *Session) step(delta int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.phase != PhaseInProgress {
		return &InvalidStateError{Op: "navigate", Phase: s.phase}
	}

	next := s.cursor + delta
	if next < 0 || next >= len(s.test.Questions) {
		return nil
	}
	s.cursor = next
	return nil
}

// Submit finishes the session and returns its attempt. Submitting an already
// submitted session returns the same attempt again without a second emission,
// which settles the race between a manual submit and the timeout tick.
func (s *Session) Submit() (models.TestAttempt, error) {
	s.mu.Lock()

	switch s.phase {
	case PhaseSubmitted:
		attempt := *s.attempt
		s.mu.Unlock()
		return attempt, nil
	case PhaseNotStarted:
		s.mu.Unlock()
		return models.TestAttempt{}, &InvalidStateError{Op: "submit", Phase: PhaseNotStarted}
	}

	attempt := s.finishLocked(false)
	s.mu.Unlock()
	s.emit(attempt)
	return attempt, nil
}

// finishLocked scores the answers, freezes them into the attempt and stops
// the countdown. Callers hold s.mu; the phase guard upstream guarantees this
// runs at most once per session.
func (s *Session) finishLocked(timedOut bool) models.TestAttempt {
	attempt := models.TestAttempt{
		ID:             uuid.New(),
		TestID:         s.test.ID,
		UserID:         s.userID,
		Answers:        s.answers.Clone(),
		Score:          Score(s.test, s.answers),
		TotalQuestions: len(s.test.Questions),
		CompletedAt:    s.clock.Now(),
		TimeTaken:      s.test.Duration*60 - s.remainingSeconds,
		TimedOut:       timedOut,
	}

	s.attempt = &attempt
	s.phase = PhaseSubmitted
	s.stopTickingLocked()
	return attempt
}

func (s *Session) emit(attempt models.TestAttempt) {
	if s.onComplete != nil {
		s.onComplete(s.test, attempt)
	}
}

// Close stops the countdown without emitting an attempt. Used on teardown
// when the user navigates away or the server shuts down.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopTickingLocked()
}

func (s *Session) stopTickingLocked() {
	if !s.ticking {
		return
	}
	s.ticking = false
	s.ticker.Stop()
	close(s.stop)
}

// State is a point-in-time snapshot of the session for the API.
type State struct {
	ID               uuid.UUID        `json:"id"`
	TestID           uuid.UUID        `json:"test_id"`
	Phase            Phase            `json:"phase"`
	Cursor           int              `json:"cursor"`
	RemainingSeconds int              `json:"remaining_seconds"`
	Answers          models.AnswerMap `json:"answers"`
	AnsweredCount    int              `json:"answered_count"`
	TotalQuestions   int              `json:"total_questions"`
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()

	return State{
		ID:               s.ID,
		TestID:           s.test.ID,
		Phase:            s.phase,
		Cursor:           s.cursor,
		RemainingSeconds: s.remainingSeconds,
		Answers:          s.answers.Clone(),
		AnsweredCount:    len(s.answers),
		TotalQuestions:   len(s.test.Questions),
	}
}

func (s *Session) questionByID(id string) (models.Question, bool) {
	for _, q := range s.test.Questions {
		if q.ID == id {
			return q, true
		}
	}
	return models.Question{}, false
}

// Score counts the questions whose recorded answer matches the correct one.
// Unanswered questions count as incorrect.
func Score(test models.Test, answers models.AnswerMap) int {
	score := 0
	for _, q := range test.Questions {
		if answers.Get(q.ID) == q.CorrectAnswer {
			score++
		}
	}
	return score
}
