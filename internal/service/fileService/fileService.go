package fileService

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"filetree-service/internal/common"
	"filetree-service/internal/metrics"
	"filetree-service/internal/model/fileInfo"
	"filetree-service/pkg/logger"
	"filetree-service/pkg/multipart"

	"github.com/google/uuid"
	"github.com/lithammer/shortuuid/v4"
	"go.uber.org/zap"
)

type FolderRepository interface {
	Create(ctx context.Context, f *fileInfo.Folder) error
	GetByID(ctx context.Context, owner, id uuid.UUID) (*fileInfo.Folder, error)
	ListChildren(ctx context.Context, owner uuid.UUID, parent *uuid.UUID) ([]*fileInfo.Folder, error)
	Delete(ctx context.Context, owner, id uuid.UUID) (bool, error)
}

type FileRepository interface {
	CreateFile(ctx context.Context, f *fileInfo.File) error
	GetFileByID(ctx context.Context, owner, id uuid.UUID) (*fileInfo.File, error)
	ListFilesByFolder(ctx context.Context, owner uuid.UUID, folder *uuid.UUID) ([]*fileInfo.File, error)
	RenameFile(ctx context.Context, owner, id uuid.UUID, name string, at time.Time) (*fileInfo.File, error)
	DeleteFile(ctx context.Context, owner, id uuid.UUID) (bool, error)
}

// ObjectStore is implemented by MinIO.MinIOClient and s3Store.Store.
type ObjectStore interface {
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) (string, error)
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
}

type FileService struct {
	folders FolderRepository
	files   FileRepository
	objects ObjectStore
	now     func() time.Time
}

func New(folders FolderRepository, files FileRepository, objects ObjectStore) *FileService {
	return &FileService{
		folders: folders,
		files:   files,
		objects: objects,
		now:     time.Now,
	}
}

// WithClock replaces the time source, for tests.
func (s *FileService) WithClock(now func() time.Time) *FileService {
	s.now = now
	return s
}

// ListChildren returns the content of parentID (nil is the root level):
// files newest first, folders oldest first.
func (s *FileService) ListChildren(ctx context.Context, owner uuid.UUID, parentID *uuid.UUID) (*fileInfo.Listing, error) {
	if parentID != nil {
		if _, err := s.ownedFolder(ctx, owner, *parentID); err != nil {
			return nil, err
		}
	}
	files, err := s.files.ListFilesByFolder(ctx, owner, parentID)
	if err != nil {
		return nil, common.RepositoryFailure(err)
	}
	folders, err := s.folders.ListChildren(ctx, owner, parentID)
	if err != nil {
		return nil, common.RepositoryFailure(err)
	}
	return &fileInfo.Listing{Files: files, Folders: folders}, nil
}

func (s *FileService) CreateFolder(ctx context.Context, owner uuid.UUID, name string, parentID *uuid.UUID) (*fileInfo.Folder, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, common.ErrInvalidName
	}
	if parentID != nil {
		if _, err := s.ownedFolder(ctx, owner, *parentID); err != nil {
			return nil, err
		}
	}

	now := s.now().UTC()
	folder := &fileInfo.Folder{
		ID:        uuid.New(),
		OwnerID:   owner,
		ParentID:  parentID,
		Name:      name,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.folders.Create(ctx, folder); err != nil {
		return nil, common.RepositoryFailure(err)
	}
	logger.GetLogger(ctx).Info("folder created",
		zap.String("folder_id", folder.ID.String()),
		zap.String("owner_id", owner.String()))
	return folder, nil
}

// DeleteFolder removes the folder, every folder below it and every file they contain.
func (s *FileService) DeleteFolder(ctx context.Context, owner, folderID uuid.UUID) error {
	if _, err := s.ownedFolder(ctx, owner, folderID); err != nil {
		return err
	}
	return s.deleteSubtree(ctx, owner, folderID)
}

// deleteSubtree walks the subtree depth first. Each child is handled on its
// own: a failure is logged and the walk goes on with its siblings. Only the
// outcome for folderID itself is returned.
func (s *FileService) deleteSubtree(ctx context.Context, owner, folderID uuid.UUID) error {
	log := logger.GetLogger(ctx).With(zap.String("folder_id", folderID.String()))

	children, err := s.folders.ListChildren(ctx, owner, &folderID)
	if err != nil {
		log.Warn("cascade: failed to list subfolders", zap.Error(err))
	}
	for _, child := range children {
		if err := s.deleteSubtree(ctx, owner, child.ID); err != nil {
			log.Warn("cascade: failed to delete subfolder", zap.String("child_id", child.ID.String()), zap.Error(err))
		}
	}

	files, err := s.files.ListFilesByFolder(ctx, owner, &folderID)
	if err != nil {
		log.Warn("cascade: failed to list files", zap.Error(err))
	}
	for _, f := range files {
		if _, err := s.removeFile(ctx, owner, f, "cascade"); err != nil {
			log.Warn("cascade: failed to delete file", zap.String("file_id", f.ID.String()), zap.Error(err))
		}
	}

	deleted, err := s.folders.Delete(ctx, owner, folderID)
	if err != nil {
		return common.RepositoryFailure(err)
	}
	if !deleted {
		return fmt.Errorf("folder %s: %w", folderID, common.ErrNotFound)
	}
	metrics.FoldersDeleted.Inc()
	return nil
}

// UploadFile stores part under a fresh key and records it. The blob is
// written first; if the record cannot be written the blob is removed again.
func (s *FileService) UploadFile(ctx context.Context, owner uuid.UUID, part *multipart.Part, folderID *uuid.UUID) (*fileInfo.File, error) {
	if part == nil || !part.IsFile() {
		return nil, multipart.ErrMissingFile
	}
	if folderID != nil {
		if _, err := s.ownedFolder(ctx, owner, *folderID); err != nil {
			return nil, err
		}
	}

	name := baseName(part.FileName)
	if name == "" {
		return nil, common.ErrInvalidName
	}
	contentType := part.ContentType
	if contentType == "" {
		contentType = multipart.DefaultContentType
	}
	key := StorageKey(owner, name)

	log := logger.GetLogger(ctx).With(zap.String("owner_id", owner.String()), zap.String("storage_key", key))

	publicURL, err := s.objects.Put(ctx, key, bytes.NewReader(part.Data), part.Size(), contentType)
	if err != nil {
		return nil, common.StorageFailure(err)
	}

	now := s.now().UTC()
	file := &fileInfo.File{
		ID:           uuid.New(),
		OwnerID:      owner,
		FolderID:     folderID,
		Name:         name,
		OriginalName: part.FileName,
		MimeType:     contentType,
		Category:     Categorize(contentType),
		SizeBytes:    part.Size(),
		StorageKey:   key,
		PublicURL:    publicURL,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.files.CreateFile(ctx, file); err != nil {
		if delErr := s.objects.Delete(ctx, key); delErr != nil {
			metrics.BlobCleanupFailures.WithLabelValues("upload_rollback").Inc()
			log.Error("failed to remove blob after metadata write failed", zap.Error(delErr))
		}
		return nil, common.RepositoryFailure(err)
	}

	metrics.FilesUploaded.WithLabelValues(string(file.Category)).Inc()
	metrics.UploadedBytes.Add(float64(file.SizeBytes))
	log.Info("file uploaded", zap.String("file_id", file.ID.String()), zap.Int64("size", file.SizeBytes))
	return file, nil
}

// DeleteFile removes the blob (best effort) and then the record.
// A caller that loses a concurrent delete gets ErrNotFound.
func (s *FileService) DeleteFile(ctx context.Context, owner, fileID uuid.UUID) error {
	file, err := s.files.GetFileByID(ctx, owner, fileID)
	if err != nil {
		return common.RepositoryFailure(err)
	}
	if file == nil {
		return fmt.Errorf("file %s: %w", fileID, common.ErrNotFound)
	}
	deleted, err := s.removeFile(ctx, owner, file, "delete")
	if err != nil {
		return err
	}
	if !deleted {
		return fmt.Errorf("file %s: %w", fileID, common.ErrNotFound)
	}
	return nil
}

func (s *FileService) removeFile(ctx context.Context, owner uuid.UUID, file *fileInfo.File, operation string) (bool, error) {
	if err := s.objects.Delete(ctx, file.StorageKey); err != nil {
		metrics.BlobCleanupFailures.WithLabelValues(operation).Inc()
		logger.GetLogger(ctx).Warn("failed to delete blob, leaving an orphan",
			zap.String("file_id", file.ID.String()),
			zap.String("storage_key", file.StorageKey),
			zap.Error(err))
	}
	deleted, err := s.files.DeleteFile(ctx, owner, file.ID)
	if err != nil {
		return false, common.RepositoryFailure(err)
	}
	if deleted {
		metrics.FilesDeleted.Inc()
	}
	return deleted, nil
}

// OpenFile returns the record and a reader over its content. The caller closes the reader.
func (s *FileService) OpenFile(ctx context.Context, owner, fileID uuid.UUID) (*fileInfo.File, io.ReadCloser, error) {
	file, err := s.files.GetFileByID(ctx, owner, fileID)
	if err != nil {
		return nil, nil, common.RepositoryFailure(err)
	}
	if file == nil {
		return nil, nil, fmt.Errorf("file %s: %w", fileID, common.ErrNotFound)
	}
	rc, err := s.objects.Get(ctx, file.StorageKey)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			logger.GetLogger(ctx).Error("file record points to a missing blob",
				zap.String("file_id", file.ID.String()),
				zap.String("storage_key", file.StorageKey))
		}
		return nil, nil, common.StorageFailure(err)
	}
	return file, rc, nil
}

func (s *FileService) RenameFile(ctx context.Context, owner, fileID uuid.UUID, newName string) (*fileInfo.File, error) {
	newName = baseName(newName)
	if newName == "" {
		return nil, common.ErrInvalidName
	}
	file, err := s.files.RenameFile(ctx, owner, fileID, newName, s.now().UTC())
	if err != nil {
		return nil, common.RepositoryFailure(err)
	}
	if file == nil {
		return nil, fmt.Errorf("file %s: %w", fileID, common.ErrNotFound)
	}
	return file, nil
}

// ownedFolder loads a folder of owner. Someone else's folder is reported as not found.
func (s *FileService) ownedFolder(ctx context.Context, owner, id uuid.UUID) (*fileInfo.Folder, error) {
	folder, err := s.folders.GetByID(ctx, owner, id)
	if err != nil {
		return nil, common.RepositoryFailure(err)
	}
	if folder == nil || folder.OwnerID != owner {
		return nil, fmt.Errorf("folder %s: %w", id, common.ErrNotFound)
	}
	return folder, nil
}

// StorageKey builds "{owner}/{random}{.ext}" for a file called name. The
// extension keeps its original case.
func StorageKey(owner uuid.UUID, name string) string {
	return fmt.Sprintf("%s/%s%s", owner, shortuuid.New(), path.Ext(name))
}

// baseName strips any directory part a client put into a file name.
func baseName(name string) string {
	name = strings.TrimSpace(strings.ReplaceAll(name, `\`, "/"))
	if name == "" {
		return ""
	}
	name = path.Base(name)
	if name == "." || name == "/" || name == ".." {
		return ""
	}
	return name
}
