package sessionRepo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"filetree-service/internal/common"
	"filetree-service/internal/model/session"
	"filetree-service/pkg/database/postgres"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// SessionRepo persists demo sessions.
type SessionRepo struct {
	db postgres.DBTX
}

func New(db postgres.DBTX) *SessionRepo {
	return &SessionRepo{db: db}
}

func (r *SessionRepo) Create(ctx context.Context, s *session.DemoSession) error {
	query := `INSERT INTO demo_sessions (id, session_token, created_at, expires_at) VALUES ($1, $2, $3, $4)`
	if _, err := r.db.Exec(ctx, query, s.ID, s.SessionToken, s.CreatedAt, s.ExpiresAt); err != nil {
		if postgres.IsUniqueViolation(err) {
			return fmt.Errorf("demo session: %w", common.ErrAlreadyExists)
		}
		return fmt.Errorf("failed to insert demo session: %w", err)
	}
	return nil
}

// GetByID returns nil, nil when there is no such session.
func (r *SessionRepo) GetByID(ctx context.Context, id uuid.UUID) (*session.DemoSession, error) {
	query := `SELECT id, session_token, created_at, expires_at FROM demo_sessions WHERE id=$1`
	var s session.DemoSession
	err := r.db.QueryRow(ctx, query, id).Scan(&s.ID, &s.SessionToken, &s.CreatedAt, &s.ExpiresAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load demo session: %w", err)
	}
	return &s, nil
}

// DeleteExpired drops sessions that expired before cutoff. Their demo files
// are removed by the foreign key cascade.
func (r *SessionRepo) DeleteExpired(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM demo_sessions WHERE expires_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired demo sessions: %w", err)
	}
	return tag.RowsAffected(), nil
}
