package repository

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"topaz-backend/internal/models"
)

// AttemptRepo stores completed attempts. Append-only: rows are inserted once
// and never updated or deleted.
type AttemptRepo struct {
	pool *pgxpool.Pool
}

func NewAttemptRepo(pool *pgxpool.Pool) *AttemptRepo {
	return &AttemptRepo{pool: pool}
}

func (r *AttemptRepo) Create(ctx context.Context, a *models.TestAttempt) error {
	answersBytes, err := json.Marshal(a.Answers)
	if err != nil {
		return err
	}

	query := `INSERT INTO test_attempts (id, test_id, user_id, answers_json, score, total_questions, completed_at, time_taken_seconds, timed_out)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err = r.pool.Exec(ctx, query,
		a.ID, a.TestID, a.UserID, answersBytes, a.Score, a.TotalQuestions, a.CompletedAt, a.TimeTaken, a.TimedOut,
	)
	return err
}

func (r *AttemptRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.TestAttempt, error) {
	a := &models.TestAttempt{}
	var answersJSON []byte
	query := `SELECT id, test_id, user_id, answers_json, score, total_questions, completed_at, time_taken_seconds, timed_out
		FROM test_attempts WHERE id = $1`

	err := r.pool.QueryRow(ctx, query, id).Scan(
		&a.ID, &a.TestID, &a.UserID, &answersJSON, &a.Score, &a.TotalQuestions, &a.CompletedAt, &a.TimeTaken, &a.TimedOut,
	)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(answersJSON, &a.Answers); err != nil {
		return nil, err
	}
	return a, nil
}

func (r *AttemptRepo) ListByUser(ctx context.Context, userID uuid.UUID) ([]*models.TestAttempt, error) {
	query := `SELECT id, test_id, user_id, answers_json, score, total_questions, completed_at, time_taken_seconds, timed_out
		FROM test_attempts WHERE user_id = $1 ORDER BY completed_at DESC`
	return r.list(ctx, query, userID)
}

func (r *AttemptRepo) ListByTest(ctx context.Context, testID uuid.UUID) ([]*models.TestAttempt, error) {
	query := `SELECT id, test_id, user_id, answers_json, score, total_questions, completed_at, time_taken_seconds, timed_out
		FROM test_attempts WHERE test_id = $1 ORDER BY completed_at DESC`
	return r.list(ctx, query, testID)
}

func (r *AttemptRepo) list(ctx context.Context, query string, args ...interface{}) ([]*models.TestAttempt, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var attempts []*models.TestAttempt
	for rows.Next() {
		a := &models.TestAttempt{}
		var answersJSON []byte
		err := rows.Scan(&a.ID, &a.TestID, &a.UserID, &answersJSON, &a.Score, &a.TotalQuestions, &a.CompletedAt, &a.TimeTaken, &a.TimedOut)
		if err != nil {
			return nil, err
		}
		if err := json.Unmarshal(answersJSON, &a.Answers); err != nil {
			return nil, err
		}
		attempts = append(attempts, a)
	}
	return attempts, rows.Err()
}

// StatsByUser aggregates a student's attempts for the dashboard.
func (r *AttemptRepo) StatsByUser(ctx context.Context, userID uuid.UUID) (*models.AttemptStats, error) {
	stats := &models.AttemptStats{}
	query := `SELECT COUNT(*),
		COALESCE(AVG(score::FLOAT / NULLIF(total_questions, 0) * 100), 0)
		FROM test_attempts WHERE user_id = $1`

	err := r.pool.QueryRow(ctx, query, userID).Scan(&stats.Count, &stats.AveragePercent)
	if err != nil {
		return nil, err
	}
	return stats, nil
}

// StatsByCreator aggregates attempts across every test an admin authored.
func (r *AttemptRepo) StatsByCreator(ctx context.Context, createdBy uuid.UUID) (*models.AttemptStats, error) {
	stats := &models.AttemptStats{}
	query := `SELECT COUNT(*),
		COALESCE(AVG(a.score::FLOAT / NULLIF(a.total_questions, 0) * 100), 0)
		FROM test_attempts a
		JOIN tests t ON t.id = a.test_id
		WHERE t.created_by = $1`

	err := r.pool.QueryRow(ctx, query, createdBy).Scan(&stats.Count, &stats.AveragePercent)
	if err != nil {
		return nil, err
	}
	return stats, nil
}
