package folderRepo

import (
	"context"
	"errors"
	"fmt"

	"filetree-service/internal/model/fileInfo"
	"filetree-service/pkg/database/postgres"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const folderColumns = `id, owner_id, parent_id, name, created_at, updated_at`

type FolderRepo struct {
	db postgres.DBTX
}

func New(db postgres.DBTX) *FolderRepo {
	return &FolderRepo{db: db}
}

func (r *FolderRepo) Create(ctx context.Context, f *fileInfo.Folder) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO folders (id, owner_id, parent_id, name, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		f.ID, f.OwnerID, f.ParentID, f.Name, f.CreatedAt, f.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert folder: %w", err)
	}
	return nil
}

// GetByID only finds folders that belong to owner.
func (r *FolderRepo) GetByID(ctx context.Context, owner, id uuid.UUID) (*fileInfo.Folder, error) {
	var f fileInfo.Folder
	err := r.db.QueryRow(ctx,
		`SELECT `+folderColumns+` FROM folders WHERE id = $1 AND owner_id = $2`, id, owner).
		Scan(&f.ID, &f.OwnerID, &f.ParentID, &f.Name, &f.CreatedAt, &f.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load folder: %w", err)
	}
	return &f, nil
}

// ListChildren returns folders directly under parent (nil means root), oldest first.
func (r *FolderRepo) ListChildren(ctx context.Context, owner uuid.UUID, parent *uuid.UUID) ([]*fileInfo.Folder, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+folderColumns+` FROM folders
		 WHERE owner_id = $1 AND parent_id IS NOT DISTINCT FROM $2
		 ORDER BY created_at ASC, id ASC`, owner, parent)
	if err != nil {
		return nil, fmt.Errorf("failed to list folders: %w", err)
	}
	defer rows.Close()

	folders := []*fileInfo.Folder{}
	for rows.Next() {
		var f fileInfo.Folder
		if err := rows.Scan(&f.ID, &f.OwnerID, &f.ParentID, &f.Name, &f.CreatedAt, &f.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan folder: %w", err)
		}
		folders = append(folders, &f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list folders: %w", err)
	}
	return folders, nil
}

// Delete reports false when nothing was removed, either because the folder is
// not owner's or because a concurrent delete got there first.
func (r *FolderRepo) Delete(ctx context.Context, owner, id uuid.UUID) (bool, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM folders WHERE id = $1 AND owner_id = $2`, id, owner)
	if err != nil {
		return false, fmt.Errorf("failed to delete folder: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}
