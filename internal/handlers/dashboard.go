package handlers

import (
	"net/http"

	"topaz-backend/internal/middleware"
	"topaz-backend/internal/models"
	"topaz-backend/internal/repository"
)

type DashboardHandler struct {
	testRepo    *repository.TestRepo
	attemptRepo *repository.AttemptRepo
}

func NewDashboardHandler(testRepo *repository.TestRepo, attemptRepo *repository.AttemptRepo) *DashboardHandler {
	return &DashboardHandler{testRepo: testRepo, attemptRepo: attemptRepo}
}

// Stats serves both dashboards: students get their attempt aggregate plus the
// size of the published catalog, admins get the aggregate across their tests.
func (h *DashboardHandler) Stats(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	if middleware.GetUserRole(r.Context()) == models.RoleAdmin {
		stats, err := h.attemptRepo.StatsByCreator(r.Context(), userID)
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to fetch stats", r))
			return
		}

		tests, err := h.testRepo.ListByCreator(r.Context(), userID)
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to fetch tests", r))
			return
		}

		published := 0
		for _, t := range tests {
			if t.IsPublished {
				published++
			}
		}

		writeJSON(w, http.StatusOK, map[string]interface{}{
			"role":            models.RoleAdmin,
			"test_count":      len(tests),
			"published_count": published,
			"attempt_count":   stats.Count,
			"average_percent": stats.AveragePercent,
		})
		return
	}

	stats, err := h.attemptRepo.StatsByUser(r.Context(), userID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to fetch stats", r))
		return
	}

	published, err := h.testRepo.ListPublished(r.Context())
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to fetch tests", r))
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"role":            models.RoleStudent,
		"completed_count": stats.Count,
		"average_percent": stats.AveragePercent,
		"available_count": len(published),
	})
}
