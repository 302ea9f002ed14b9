package session

import (
	"testing"

	"github.com/google/uuid"

	"topaz-backend/internal/models"
)

func TestManager_StartIsIdempotentPerUserAndTest(t *testing.T) {
	m := NewManager(newFakeClock(), nil)
	test := twoQuestionTest()
	userID := uuid.New()

	a, err := m.Start(test, userID)
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	b, err := m.Start(test, userID)
	if err != nil {
		t.Fatalf("Second start failed: %v", err)
	}
	if a.ID != b.ID {
		t.Error("Starting the same test twice must resume the live session")
	}

	other, err := m.Start(test, uuid.New())
	if err != nil {
		t.Fatalf("Start for second user failed: %v", err)
	}
	if other.ID == a.ID {
		t.Error("Different users must get independent sessions")
	}
}

func TestManager_RejectsMalformedTest(t *testing.T) {
	m := NewManager(newFakeClock(), nil)

	_, err := m.Start(models.Test{ID: uuid.New(), Duration: 10}, uuid.New())
	if _, ok := err.(*InvalidInputError); !ok {
		t.Errorf("Expected InvalidInputError, got %v", err)
	}
}

func TestManager_EvictsOnCompletion(t *testing.T) {
	var got *models.TestAttempt
	m := NewManager(newFakeClock(), func(_ models.Test, a models.TestAttempt) {
		got = &a
	})
	test := twoQuestionTest()
	userID := uuid.New()

	s, err := m.Start(test, userID)
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	s.SelectAnswer("q1", 0)
	attempt, err := s.Submit()
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}

	if got == nil || got.ID != attempt.ID {
		t.Fatal("Completion hook must receive the emitted attempt")
	}
	if _, ok := m.Get(s.ID); ok {
		t.Error("Submitted session must be evicted from the registry")
	}

	// The slot is free for a retake.
	again, err := m.Start(test, userID)
	if err != nil {
		t.Fatalf("Retake start failed: %v", err)
	}
	if again.ID == s.ID {
		t.Error("Retake must be a fresh session")
	}
}

func TestManager_AbandonDiscardsWithoutAttempt(t *testing.T) {
	completions := 0
	m := NewManager(newFakeClock(), func(models.Test, models.TestAttempt) {
		completions++
	})

	s, err := m.Start(twoQuestionTest(), uuid.New())
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	m.Abandon(s.ID)

	if _, ok := m.Get(s.ID); ok {
		t.Error("Abandoned session must leave the registry")
	}
	if completions != 0 {
		t.Errorf("Abandon must not emit an attempt, got %d", completions)
	}
}

func TestManager_Shutdown(t *testing.T) {
	m := NewManager(newFakeClock(), nil)

	a, _ := m.Start(twoQuestionTest(), uuid.New())
	b, _ := m.Start(twoQuestionTest(), uuid.New())

	m.Shutdown()

	if _, ok := m.Get(a.ID); ok {
		t.Error("Shutdown must clear the registry")
	}
	if _, ok := m.Get(b.ID); ok {
		t.Error("Shutdown must clear the registry")
	}
}
