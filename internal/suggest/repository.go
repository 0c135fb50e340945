package suggest

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository persists suggestion history to Postgres. Request and ideas are
// stored as JSONB.
type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func (r *Repository) Insert(ctx context.Context, s *Suggestion) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	if s.CreatedAt.IsZero() {
		s.CreatedAt = time.Now()
	}

	reqJSON, err := json.Marshal(s.Request)
	if err != nil {
		return fmt.Errorf("marshaling request: %w", err)
	}
	ideasJSON, err := json.Marshal(s.Ideas)
	if err != nil {
		return fmt.Errorf("marshaling ideas: %w", err)
	}

	query := `
		INSERT INTO suggestion_history (id, user_id, kind, request, ideas, model, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err = r.pool.Exec(ctx, query,
		s.ID, s.UserID, s.Kind, reqJSON, ideasJSON, s.Model, s.CreatedAt)
	if err != nil {
		return fmt.Errorf("inserting suggestion: %w", err)
	}
	return nil
}

// ListByUser returns the user's suggestion history, newest first.
func (r *Repository) ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]*Suggestion, error) {
	if limit <= 0 {
		limit = 20
	}

	query := `
		SELECT id, user_id, kind, request, ideas, model, created_at
		FROM suggestion_history
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2`

	rows, err := r.pool.Query(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("querying suggestion history: %w", err)
	}
	defer rows.Close()

	var out []*Suggestion
	for rows.Next() {
		var s Suggestion
		var reqJSON, ideasJSON []byte
		if err := rows.Scan(&s.ID, &s.UserID, &s.Kind, &reqJSON, &ideasJSON, &s.Model, &s.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning suggestion: %w", err)
		}
		if err := json.Unmarshal(reqJSON, &s.Request); err != nil {
			return nil, fmt.Errorf("unmarshaling request: %w", err)
		}
		if err := json.Unmarshal(ideasJSON, &s.Ideas); err != nil {
			return nil, fmt.Errorf("unmarshaling ideas: %w", err)
		}
		out = append(out, &s)
	}
	return out, rows.Err()
}
