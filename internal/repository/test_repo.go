package repository

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"topaz-backend/internal/models"
)

type TestRepo struct {
	pool *pgxpool.Pool
}

func NewTestRepo(pool *pgxpool.Pool) *TestRepo {
	return &TestRepo{pool: pool}
}

func (r *TestRepo) Create(ctx context.Context, t *models.Test) error {
	t.ID = uuid.New()
	questionsBytes, err := json.Marshal(t.Questions)
	if err != nil {
		return err
	}

	query := `INSERT INTO tests (id, title, description, duration_minutes, questions_json, created_by, is_published)
		VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING created_at`

	return r.pool.QueryRow(ctx, query,
		t.ID, t.Title, t.Description, t.Duration, questionsBytes, t.CreatedBy, t.IsPublished,
	).Scan(&t.CreatedAt)
}

func (r *TestRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Test, error) {
	t := &models.Test{}
	var questionsJSON []byte
	query := `SELECT id, title, description, duration_minutes, questions_json, created_by, created_at, is_published
		FROM tests WHERE id = $1`

	err := r.pool.QueryRow(ctx, query, id).Scan(
		&t.ID, &t.Title, &t.Description, &t.Duration, &questionsJSON, &t.CreatedBy, &t.CreatedAt, &t.IsPublished,
	)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(questionsJSON, &t.Questions); err != nil {
		return nil, err
	}
	return t, nil
}

func (r *TestRepo) ListPublished(ctx context.Context) ([]*models.Test, error) {
	query := `SELECT id, title, description, duration_minutes, questions_json, created_by, created_at, is_published
		FROM tests WHERE is_published = TRUE ORDER BY created_at DESC`
	return r.list(ctx, query)
}

func (r *TestRepo) ListByCreator(ctx context.Context, createdBy uuid.UUID) ([]*models.Test, error) {
	query := `SELECT id, title, description, duration_minutes, questions_json, created_by, created_at, is_published
		FROM tests WHERE created_by = $1 ORDER BY created_at DESC`
	return r.list(ctx, query, createdBy)
}

func (r *TestRepo) list(ctx context.Context, query string, args ...interface{}) ([]*models.Test, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tests []*models.Test
	for rows.Next() {
		t := &models.Test{}
		var questionsJSON []byte
		err := rows.Scan(&t.ID, &t.Title, &t.Description, &t.Duration, &questionsJSON, &t.CreatedBy, &t.CreatedAt, &t.IsPublished)
		if err != nil {
			return nil, err
		}
		if err := json.Unmarshal(questionsJSON, &t.Questions); err != nil {
			return nil, err
		}
		tests = append(tests, t)
	}
	return tests, rows.Err()
}

func (r *TestRepo) Update(ctx context.Context, t *models.Test) error {
	questionsBytes, err := json.Marshal(t.Questions)
	if err != nil {
		return err
	}

	_, err = r.pool.Exec(ctx,
		`UPDATE tests SET title = $1, description = $2, duration_minutes = $3, questions_json = $4 WHERE id = $5`,
		t.Title, t.Description, t.Duration, questionsBytes, t.ID,
	)
	return err
}

func (r *TestRepo) SetPublished(ctx context.Context, id uuid.UUID, published bool) error {
	_, err := r.pool.Exec(ctx, "UPDATE tests SET is_published = $1 WHERE id = $2", published, id)
	return err
}

func (r *TestRepo) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx, "DELETE FROM tests WHERE id = $1", id)
	return err
}
