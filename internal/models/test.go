package models

import (
	"strconv"
	"time"

	"github.com/google/uuid"
)

// Question is a single multiple-choice question. Immutable once a session
// holding its test has started.
type Question struct {
	ID            string   `json:"id"`
	Text          string   `json:"text"`
	Options       []string `json:"options"`
	CorrectAnswer int      `json:"correct_answer"`
	Explanation   string   `json:"explanation,omitempty"`
}

type Test struct {
	ID          uuid.UUID  `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Duration    int        `json:"duration"` // minutes
	Questions   []Question `json:"questions"`
	CreatedBy   uuid.UUID  `json:"created_by"`
	CreatedAt   time.Time  `json:"created_at"`
	IsPublished bool       `json:"is_published"`
}

type CreateTestRequest struct {
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Duration    int        `json:"duration"`
	Questions   []Question `json:"questions"`
	IsPublished bool       `json:"is_published"`
}

type UpdateTestRequest struct {
	Title       *string     `json:"title"`
	Description *string     `json:"description"`
	Duration    *int        `json:"duration"`
	Questions   *[]Question `json:"questions"`
}

// ValidateTest checks the catalog invariants: positive duration, at least one
// question, every question with at least two options, a unique non-empty id
// and a correct answer inside its option range.
func ValidateTest(title string, duration int, questions []Question) map[string]string {
	fields := make(map[string]string)

	if title == "" {
		fields["title"] = "Title is required"
	}
	if duration <= 0 {
		fields["duration"] = "Duration must be a positive number of minutes"
	}
	if len(questions) == 0 {
		fields["questions"] = "A test needs at least one question"
	}

	seen := make(map[string]bool, len(questions))
	for i, q := range questions {
		if q.ID == "" {
			fields[fieldKey(i)] = "Question id is required"
			continue
		}
		if seen[q.ID] {
			fields[fieldKey(i)] = "Duplicate question id"
			continue
		}
		seen[q.ID] = true

		if q.Text == "" {
			fields[fieldKey(i)] = "Question text is required"
		} else if len(q.Options) < 2 {
			fields[fieldKey(i)] = "A question needs at least two options"
		} else if q.CorrectAnswer < 0 || q.CorrectAnswer >= len(q.Options) {
			fields[fieldKey(i)] = "Correct answer is out of range"
		}
	}

	if len(fields) == 0 {
		return nil
	}
	return fields
}

func fieldKey(i int) string {
	return "questions[" + strconv.Itoa(i) + "]"
}
