package fileRepo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"filetree-service/internal/model/fileInfo"
	"filetree-service/pkg/database/postgres"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const fileColumns = `id, owner_id, folder_id, name, original_name, mime_type, category,
	size_bytes, storage_key, public_url, created_at, updated_at`

type FileRepository struct {
	db postgres.DBTX
}

func New(db postgres.DBTX) *FileRepository {
	return &FileRepository{db: db}
}

func (r *FileRepository) CreateFile(ctx context.Context, file *fileInfo.File) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO files (id, owner_id, folder_id, name, original_name, mime_type, category,
			size_bytes, storage_key, public_url, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		file.ID, file.OwnerID, file.FolderID, file.Name, file.OriginalName, file.MimeType,
		string(file.Category), file.SizeBytes, file.StorageKey, file.PublicURL, file.CreatedAt, file.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert file: %w", err)
	}
	return nil
}

func (r *FileRepository) GetFileByID(ctx context.Context, owner, fileID uuid.UUID) (*fileInfo.File, error) {
	row := r.db.QueryRow(ctx,
		`SELECT `+fileColumns+` FROM files WHERE id = $1 AND owner_id = $2`, fileID, owner)
	file, err := scanFile(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load file: %w", err)
	}
	return file, nil
}

// ListFilesByFolder returns files directly in folder (nil means root), newest first.
func (r *FileRepository) ListFilesByFolder(ctx context.Context, owner uuid.UUID, folder *uuid.UUID) ([]*fileInfo.File, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+fileColumns+` FROM files
		 WHERE owner_id = $1 AND folder_id IS NOT DISTINCT FROM $2
		 ORDER BY created_at DESC, id DESC`, owner, folder)
	if err != nil {
		return nil, fmt.Errorf("failed to list files: %w", err)
	}
	defer rows.Close()

	files := []*fileInfo.File{}
	for rows.Next() {
		file, err := scanFile(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan file: %w", err)
		}
		files = append(files, file)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list files: %w", err)
	}
	return files, nil
}

// RenameFile returns nil, nil when owner has no such file.
func (r *FileRepository) RenameFile(ctx context.Context, owner, fileID uuid.UUID, newName string, at time.Time) (*fileInfo.File, error) {
	row := r.db.QueryRow(ctx,
		`UPDATE files SET name = $1, updated_at = $2
		 WHERE id = $3 AND owner_id = $4
		 RETURNING `+fileColumns, newName, at, fileID, owner)
	file, err := scanFile(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to rename file: %w", err)
	}
	return file, nil
}

// DeleteFile reports whether this call removed the row.
func (r *FileRepository) DeleteFile(ctx context.Context, owner, fileID uuid.UUID) (bool, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM files WHERE id = $1 AND owner_id = $2`, fileID, owner)
	if err != nil {
		return false, fmt.Errorf("failed to delete file: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func scanFile(row pgx.Row) (*fileInfo.File, error) {
	var f fileInfo.File
	err := row.Scan(&f.ID, &f.OwnerID, &f.FolderID, &f.Name, &f.OriginalName, &f.MimeType, &f.Category,
		&f.SizeBytes, &f.StorageKey, &f.PublicURL, &f.CreatedAt, &f.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &f, nil
}
