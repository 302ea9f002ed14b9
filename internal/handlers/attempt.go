package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"topaz-backend/internal/middleware"
	"topaz-backend/internal/models"
	"topaz-backend/internal/repository"
	"topaz-backend/internal/results"
	"topaz-backend/internal/services"
)

type AttemptHandler struct {
	attemptRepo *repository.AttemptRepo
	testRepo    *repository.TestRepo
}

func NewAttemptHandler(attemptRepo *repository.AttemptRepo, testRepo *repository.TestRepo) *AttemptHandler {
	return &AttemptHandler{attemptRepo: attemptRepo, testRepo: testRepo}
}

// List returns the caller's own attempts, newest first.
func (h *AttemptHandler) List(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	attempts, err := h.attemptRepo.ListByUser(r.Context(), userID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to fetch attempts", r))
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"attempts": attempts})
}

func (h *AttemptHandler) Get(w http.ResponseWriter, r *http.Request) {
	attempt, _, ok := h.viewableAttempt(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, attempt)
}

// Results returns the per-question breakdown for the results page.
func (h *AttemptHandler) Results(w http.ResponseWriter, r *http.Request) {
	attempt, test, ok := h.viewableAttempt(w, r)
	if !ok {
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"attempt": attempt,
		"test":    test,
		"results": results.Breakdown(*test, *attempt),
		"percent": results.Percentage(attempt.Score, attempt.TotalQuestions),
	})
}

// ListByTest returns every attempt at one test, for its creating admin.
func (h *AttemptHandler) ListByTest(w http.ResponseWriter, r *http.Request) {
	testID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid test ID", r))
		return
	}

	test, err := h.testRepo.GetByID(r.Context(), testID)
	if err != nil {
		writeJSON(w, http.StatusNotFound, errorResp("NOT_FOUND", "Test not found", r))
		return
	}

	userID := middleware.GetUserID(r.Context())
	role := middleware.GetUserRole(r.Context())
	if !services.CanManageTest(userID, role, test) {
		writeJSON(w, http.StatusForbidden, errorResp("FORBIDDEN", "Access denied", r))
		return
	}

	attempts, err := h.attemptRepo.ListByTest(r.Context(), testID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to fetch attempts", r))
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"attempts": attempts})
}

func (h *AttemptHandler) viewableAttempt(w http.ResponseWriter, r *http.Request) (*models.TestAttempt, *models.Test, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid attempt ID", r))
		return nil, nil, false
	}

	attempt, err := h.attemptRepo.GetByID(r.Context(), id)
	if err != nil {
		writeJSON(w, http.StatusNotFound, errorResp("NOT_FOUND", "Attempt not found", r))
		return nil, nil, false
	}

	test, err := h.testRepo.GetByID(r.Context(), attempt.TestID)
	if err != nil {
		writeJSON(w, http.StatusNotFound, errorResp("NOT_FOUND", "Test not found", r))
		return nil, nil, false
	}

	userID := middleware.GetUserID(r.Context())
	role := middleware.GetUserRole(r.Context())
	if !services.CanViewAttempt(userID, role, attempt, test) {
		writeJSON(w, http.StatusForbidden, errorResp("FORBIDDEN", "Access denied", r))
		return nil, nil, false
	}
	return attempt, test, true
}
