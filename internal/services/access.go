package services

import (
	"github.com/google/uuid"

	"topaz-backend/internal/models"
)

// CanAccessTest is the single access predicate for test visibility: students
// see published tests only, admins additionally see their own drafts.
func CanAccessTest(userID uuid.UUID, role string, test *models.Test) bool {
	if test.IsPublished {
		return true
	}
	return role == models.RoleAdmin && test.CreatedBy == userID
}

// CanManageTest gates authoring operations: only the creating admin.
func CanManageTest(userID uuid.UUID, role string, test *models.Test) bool {
	return role == models.RoleAdmin && test.CreatedBy == userID
}

// CanViewAttempt allows the student who took the test, or the admin who
// authored it.
func CanViewAttempt(userID uuid.UUID, role string, attempt *models.TestAttempt, test *models.Test) bool {
	if attempt.UserID == userID {
		return true
	}
	return CanManageTest(userID, role, test)
}
