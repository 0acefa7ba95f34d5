package demoFileRepo

import (
	"context"
	"fmt"

	"filetree-service/internal/model/fileInfo"
	"filetree-service/pkg/database/postgres"

	"github.com/google/uuid"
)

type DemoFileRepo struct {
	db postgres.DBTX
}

func New(db postgres.DBTX) *DemoFileRepo {
	return &DemoFileRepo{db: db}
}

func (r *DemoFileRepo) Create(ctx context.Context, f *fileInfo.DemoFile) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO demo_files (id, session_id, original_name, file_type, file_size, public_url, storage_path, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		f.ID, f.SessionID, f.OriginalName, f.FileType, f.FileSize, f.PublicURL, f.StoragePath, f.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert demo file: %w", err)
	}
	return nil
}

func (r *DemoFileRepo) ListBySession(ctx context.Context, sessionID uuid.UUID) ([]*fileInfo.DemoFile, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, session_id, original_name, file_type, file_size, public_url, storage_path, created_at
		 FROM demo_files WHERE session_id = $1
		 ORDER BY created_at DESC, id DESC`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to list demo files: %w", err)
	}
	defer rows.Close()

	files := []*fileInfo.DemoFile{}
	for rows.Next() {
		var f fileInfo.DemoFile
		if err := rows.Scan(&f.ID, &f.SessionID, &f.OriginalName, &f.FileType, &f.FileSize,
			&f.PublicURL, &f.StoragePath, &f.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan demo file: %w", err)
		}
		files = append(files, &f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list demo files: %w", err)
	}
	return files, nil
}
