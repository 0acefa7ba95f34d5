package demoService

import (
	"context"
	"fmt"
	"strings"
	"time"

	"filetree-service/internal/common"
	"filetree-service/internal/metrics"
	"filetree-service/internal/model/fileInfo"
	"filetree-service/internal/model/session"
	"filetree-service/pkg/logger"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// SessionResolver checks that a demo session exists and is still alive.
type SessionResolver interface {
	ResolveDemoSession(ctx context.Context, id uuid.UUID) (*session.DemoSession, error)
}

type DemoFileRepository interface {
	Create(ctx context.Context, f *fileInfo.DemoFile) error
	ListBySession(ctx context.Context, sessionID uuid.UUID) ([]*fileInfo.DemoFile, error)
}

type SessionPurger interface {
	DeleteExpired(ctx context.Context, cutoff time.Time) (int64, error)
}

// FileRecord is what a demo client reports after it has uploaded a blob itself.
type FileRecord struct {
	OriginalName string `json:"originalName"`
	FileType     string `json:"fileType"`
	FileSize     int64  `json:"fileSize"`
	PublicURL    string `json:"publicUrl"`
	StoragePath  string `json:"storagePath"`
}

func (r FileRecord) validate() error {
	var missing []string
	if strings.TrimSpace(r.OriginalName) == "" {
		missing = append(missing, "originalName")
	}
	if strings.TrimSpace(r.FileType) == "" {
		missing = append(missing, "fileType")
	}
	if strings.TrimSpace(r.PublicURL) == "" {
		missing = append(missing, "publicUrl")
	}
	if strings.TrimSpace(r.StoragePath) == "" {
		missing = append(missing, "storagePath")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing %s", common.ErrValidation, strings.Join(missing, ", "))
	}
	if r.FileSize < 0 {
		return fmt.Errorf("%w: fileSize must not be negative", common.ErrValidation)
	}
	return nil
}

type DemoService struct {
	sessions SessionResolver
	files    DemoFileRepository
	purger   SessionPurger
	grace    time.Duration
	now      func() time.Time
}

// New builds the service. purger may be nil when no cleanup job runs in this process.
func New(sessions SessionResolver, files DemoFileRepository, purger SessionPurger, grace time.Duration) *DemoService {
	return &DemoService{
		sessions: sessions,
		files:    files,
		purger:   purger,
		grace:    grace,
		now:      time.Now,
	}
}

func (s *DemoService) WithClock(now func() time.Time) *DemoService {
	s.now = now
	return s
}

func (s *DemoService) AddFile(ctx context.Context, sessionID uuid.UUID, rec FileRecord) (*fileInfo.DemoFile, error) {
	if err := rec.validate(); err != nil {
		return nil, err
	}
	if _, err := s.sessions.ResolveDemoSession(ctx, sessionID); err != nil {
		return nil, err
	}

	file := &fileInfo.DemoFile{
		ID:           uuid.New(),
		SessionID:    sessionID,
		OriginalName: strings.TrimSpace(rec.OriginalName),
		FileType:     strings.TrimSpace(rec.FileType),
		FileSize:     rec.FileSize,
		PublicURL:    strings.TrimSpace(rec.PublicURL),
		StoragePath:  strings.TrimSpace(rec.StoragePath),
		CreatedAt:    s.now().UTC(),
	}
	if err := s.files.Create(ctx, file); err != nil {
		return nil, common.RepositoryFailure(err)
	}
	return file, nil
}

// ListFiles returns the records of a live session, newest first.
func (s *DemoService) ListFiles(ctx context.Context, sessionID uuid.UUID) ([]*fileInfo.DemoFile, error) {
	if _, err := s.sessions.ResolveDemoSession(ctx, sessionID); err != nil {
		return nil, err
	}
	files, err := s.files.ListBySession(ctx, sessionID)
	if err != nil {
		return nil, common.RepositoryFailure(err)
	}
	return files, nil
}

// PurgeExpired removes sessions that expired more than the grace period ago.
// Their demo files go with them through the foreign key. Within the grace
// period an expired session still answers ErrSessionExpired; after the purge
// it answers ErrNotFound.
func (s *DemoService) PurgeExpired(ctx context.Context) (int64, error) {
	if s.purger == nil {
		return 0, nil
	}
	cutoff := s.now().UTC().Add(-s.grace)
	n, err := s.purger.DeleteExpired(ctx, cutoff)
	if err != nil {
		return 0, common.RepositoryFailure(err)
	}
	if n > 0 {
		metrics.DemoSessionsPurged.Add(float64(n))
		logger.GetLogger(ctx).Info("purged expired demo sessions",
			zap.Int64("count", n), zap.Time("cutoff", cutoff))
	}
	return n, nil
}

// Run calls PurgeExpired every interval until ctx is done.
func (s *DemoService) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.PurgeExpired(ctx); err != nil {
				logger.GetLogger(ctx).Error("demo session purge failed", zap.Error(err))
			}
		}
	}
}
