package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"topaz-backend/internal/middleware"
	"topaz-backend/internal/models"
	"topaz-backend/internal/repository"
	"topaz-backend/internal/services"
)

type TestHandler struct {
	testRepo *repository.TestRepo
}

func NewTestHandler(testRepo *repository.TestRepo) *TestHandler {
	return &TestHandler{testRepo: testRepo}
}

func (h *TestHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req models.CreateTestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return
	}

	if fields := models.ValidateTest(req.Title, req.Duration, req.Questions); fields != nil {
		writeJSON(w, http.StatusBadRequest, errorRespWithFields("VALIDATION_ERROR", "Validation failed", fields, r))
		return
	}

	test := &models.Test{
		Title:       req.Title,
		Description: req.Description,
		Duration:    req.Duration,
		Questions:   req.Questions,
		CreatedBy:   middleware.GetUserID(r.Context()),
		IsPublished: req.IsPublished,
	}

	if err := h.testRepo.Create(r.Context(), test); err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to create test", r))
		return
	}

	writeJSON(w, http.StatusCreated, test)
}

// List returns the published catalog for students and the admin's own tests
// for admins.
func (h *TestHandler) List(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	var (
		tests []*models.Test
		err   error
	)
	if middleware.GetUserRole(r.Context()) == models.RoleAdmin {
		tests, err = h.testRepo.ListByCreator(r.Context(), userID)
	} else {
		tests, err = h.testRepo.ListPublished(r.Context())
	}
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to fetch tests", r))
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"tests": tests})
}

func (h *TestHandler) Get(w http.ResponseWriter, r *http.Request) {
	test, ok := h.accessibleTest(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, test)
}

func (h *TestHandler) Update(w http.ResponseWriter, r *http.Request) {
	test, ok := h.managedTest(w, r)
	if !ok {
		return
	}

	var req models.UpdateTestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return
	}

	if req.Title != nil {
		test.Title = *req.Title
	}
	if req.Description != nil {
		test.Description = *req.Description
	}
	if req.Duration != nil {
		test.Duration = *req.Duration
	}
	if req.Questions != nil {
		test.Questions = *req.Questions
	}

	if fields := models.ValidateTest(test.Title, test.Duration, test.Questions); fields != nil {
		writeJSON(w, http.StatusBadRequest, errorRespWithFields("VALIDATION_ERROR", "Validation failed", fields, r))
		return
	}

	if err := h.testRepo.Update(r.Context(), test); err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to update test", r))
		return
	}

	writeJSON(w, http.StatusOK, test)
}

func (h *TestHandler) TogglePublish(w http.ResponseWriter, r *http.Request) {
	test, ok := h.managedTest(w, r)
	if !ok {
		return
	}

	if err := h.testRepo.SetPublished(r.Context(), test.ID, !test.IsPublished); err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to update publish state", r))
		return
	}

	test.IsPublished = !test.IsPublished
	writeJSON(w, http.StatusOK, test)
}

func (h *TestHandler) Delete(w http.ResponseWriter, r *http.Request) {
	test, ok := h.managedTest(w, r)
	if !ok {
		return
	}

	if err := h.testRepo.Delete(r.Context(), test.ID); err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to delete test", r))
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "Test deleted"})
}

// accessibleTest loads the {id} test and enforces the visibility predicate.
func (h *TestHandler) accessibleTest(w http.ResponseWriter, r *http.Request) (*models.Test, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid test ID", r))
		return nil, false
	}

	test, err := h.testRepo.GetByID(r.Context(), id)
	if err != nil {
		writeJSON(w, http.StatusNotFound, errorResp("NOT_FOUND", "Test not found", r))
		return nil, false
	}

	userID := middleware.GetUserID(r.Context())
	role := middleware.GetUserRole(r.Context())
	if !services.CanAccessTest(userID, role, test) {
		writeJSON(w, http.StatusForbidden, errorResp("FORBIDDEN", "Access denied", r))
		return nil, false
	}
	return test, true
}

// managedTest loads the {id} test and enforces the authoring predicate.
func (h *TestHandler) managedTest(w http.ResponseWriter, r *http.Request) (*models.Test, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid test ID", r))
		return nil, false
	}

	test, err := h.testRepo.GetByID(r.Context(), id)
	if err != nil {
		writeJSON(w, http.StatusNotFound, errorResp("NOT_FOUND", "Test not found", r))
		return nil, false
	}

	userID := middleware.GetUserID(r.Context())
	role := middleware.GetUserRole(r.Context())
	if !services.CanManageTest(userID, role, test) {
		writeJSON(w, http.StatusForbidden, errorResp("FORBIDDEN", "Access denied", r))
		return nil, false
	}
	return test, true
}
