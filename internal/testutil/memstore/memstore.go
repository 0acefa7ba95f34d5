// Package memstore provides in-memory repositories and an object store for
// service tests. Every type is safe for concurrent use and hands out copies,
// so callers cannot mutate stored state behind its back.
package memstore

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sort"
	"sync"
	"time"

	"filetree-service/internal/common"
	"filetree-service/internal/model/fileInfo"
	"filetree-service/internal/model/session"
	"filetree-service/internal/model/user"

	"github.com/google/uuid"
)

type Users struct {
	mu   sync.Mutex
	byID map[uuid.UUID]user.User
	Err  error
}

func NewUsers() *Users {
	return &Users{byID: map[uuid.UUID]user.User{}}
}

func (s *Users) Create(_ context.Context, u *user.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	for _, existing := range s.byID {
		if existing.Email == u.Email {
			return fmt.Errorf("user %q: %w", u.Email, common.ErrAlreadyExists)
		}
	}
	now := time.Now().UTC()
	u.CreatedAt, u.UpdatedAt = now, now
	s.byID[u.ID] = *u
	return nil
}

func (s *Users) GetByEmail(_ context.Context, email string) (*user.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	for _, u := range s.byID {
		if u.Email == email {
			return &u, nil
		}
	}
	return nil, nil
}

func (s *Users) GetByID(_ context.Context, id uuid.UUID) (*user.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	u, ok := s.byID[id]
	if !ok {
		return nil, nil
	}
	return &u, nil
}

func (s *Users) Delete(_ context.Context, id uuid.UUID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.byID[id]
	delete(s.byID, id)
	return ok, nil
}

type DemoSessions struct {
	mu   sync.Mutex
	byID map[uuid.UUID]session.DemoSession
	Err  error
}

func NewDemoSessions() *DemoSessions {
	return &DemoSessions{byID: map[uuid.UUID]session.DemoSession{}}
}

func (s *DemoSessions) Create(_ context.Context, d *session.DemoSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	s.byID[d.ID] = *d
	return nil
}

func (s *DemoSessions) GetByID(_ context.Context, id uuid.UUID) (*session.DemoSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	d, ok := s.byID[id]
	if !ok {
		return nil, nil
	}
	return &d, nil
}

func (s *DemoSessions) DeleteExpired(_ context.Context, cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return 0, s.Err
	}
	var n int64
	for id, d := range s.byID {
		if d.ExpiresAt.Before(cutoff) {
			delete(s.byID, id)
			n++
		}
	}
	return n, nil
}

func (s *DemoSessions) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.byID)
}

type Blacklist struct {
	mu     sync.Mutex
	tokens map[string]time.Time
	Err    error
}

func NewBlacklist() *Blacklist {
	return &Blacklist{tokens: map[string]time.Time{}}
}

func (b *Blacklist) AddToken(_ context.Context, tokenID string, expiresAt time.Time) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.Err != nil {
		return b.Err
	}
	b.tokens[tokenID] = expiresAt
	return nil
}

func (b *Blacklist) IsTokenBlacklisted(_ context.Context, tokenID string) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.Err != nil {
		return false, b.Err
	}
	_, ok := b.tokens[tokenID]
	return ok, nil
}

type Folders struct {
	mu   sync.Mutex
	byID map[uuid.UUID]fileInfo.Folder
	// FailDelete makes Delete of the given folder return the error.
	FailDelete map[uuid.UUID]error
	Err        error
}

func NewFolders() *Folders {
	return &Folders{byID: map[uuid.UUID]fileInfo.Folder{}, FailDelete: map[uuid.UUID]error{}}
}

func (s *Folders) Create(_ context.Context, f *fileInfo.Folder) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	s.byID[f.ID] = *f
	return nil
}

func (s *Folders) GetByID(_ context.Context, owner, id uuid.UUID) (*fileInfo.Folder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	f, ok := s.byID[id]
	if !ok || f.OwnerID != owner {
		return nil, nil
	}
	return &f, nil
}

func (s *Folders) ListChildren(_ context.Context, owner uuid.UUID, parent *uuid.UUID) ([]*fileInfo.Folder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	out := []*fileInfo.Folder{}
	for _, f := range s.byID {
		if f.OwnerID == owner && sameParent(f.ParentID, parent) {
			f := f
			out = append(out, &f)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *Folders) Delete(_ context.Context, owner, id uuid.UUID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.FailDelete[id]; err != nil {
		return false, err
	}
	f, ok := s.byID[id]
	if !ok || f.OwnerID != owner {
		return false, nil
	}
	delete(s.byID, id)
	return true, nil
}

func (s *Folders) Has(id uuid.UUID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.byID[id]
	return ok
}

type Files struct {
	mu   sync.Mutex
	byID map[uuid.UUID]fileInfo.File
	// CreateErr makes CreateFile fail.
	CreateErr error
	Err       error
}

func NewFiles() *Files {
	return &Files{byID: map[uuid.UUID]fileInfo.File{}}
}

func (s *Files) CreateFile(_ context.Context, f *fileInfo.File) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.CreateErr != nil {
		return s.CreateErr
	}
	s.byID[f.ID] = *f
	return nil
}

func (s *Files) GetFileByID(_ context.Context, owner, id uuid.UUID) (*fileInfo.File, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	f, ok := s.byID[id]
	if !ok || f.OwnerID != owner {
		return nil, nil
	}
	return &f, nil
}

func (s *Files) ListFilesByFolder(_ context.Context, owner uuid.UUID, folder *uuid.UUID) ([]*fileInfo.File, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	out := []*fileInfo.File{}
	for _, f := range s.byID {
		if f.OwnerID == owner && sameParent(f.FolderID, folder) {
			f := f
			out = append(out, &f)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *Files) RenameFile(_ context.Context, owner, id uuid.UUID, name string, at time.Time) (*fileInfo.File, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	f, ok := s.byID[id]
	if !ok || f.OwnerID != owner {
		return nil, nil
	}
	f.Name, f.UpdatedAt = name, at
	s.byID[id] = f
	return &f, nil
}

func (s *Files) DeleteFile(_ context.Context, owner, id uuid.UUID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return false, s.Err
	}
	f, ok := s.byID[id]
	if !ok || f.OwnerID != owner {
		return false, nil
	}
	delete(s.byID, id)
	return true, nil
}

func (s *Files) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.byID)
}

type DemoFiles struct {
	mu    sync.Mutex
	files []fileInfo.DemoFile
	Err   error
}

func NewDemoFiles() *DemoFiles {
	return &DemoFiles{}
}

func (s *DemoFiles) Create(_ context.Context, f *fileInfo.DemoFile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	s.files = append(s.files, *f)
	return nil
}

func (s *DemoFiles) ListBySession(_ context.Context, sessionID uuid.UUID) ([]*fileInfo.DemoFile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	out := []*fileInfo.DemoFile{}
	for _, f := range s.files {
		if f.SessionID == sessionID {
			f := f
			out = append(out, &f)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

// Objects is an object store keeping blobs in memory.
type Objects struct {
	mu    sync.Mutex
	blobs map[string][]byte
	// PutErr makes every Put fail.
	PutErr error
	// FailDelete makes Delete of the given key return the error.
	FailDelete map[string]error
	BaseURL    string
}

func NewObjects() *Objects {
	return &Objects{blobs: map[string][]byte{}, FailDelete: map[string]error{}, BaseURL: "http://objects.local/bucket"}
}

func (o *Objects) Put(_ context.Context, key string, r io.Reader, _ int64, _ string) (string, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.PutErr != nil {
		return "", o.PutErr
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	o.blobs[key] = data
	return o.BaseURL + "/" + key, nil
}

func (o *Objects) Get(_ context.Context, key string) (io.ReadCloser, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	data, ok := o.blobs[key]
	if !ok {
		return nil, fmt.Errorf("object %q: %w", key, common.ErrNotFound)
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (o *Objects) Delete(_ context.Context, key string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if err := o.FailDelete[key]; err != nil {
		return err
	}
	delete(o.blobs, key)
	return nil
}

func (o *Objects) Has(key string) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	_, ok := o.blobs[key]
	return ok
}

func (o *Objects) Len() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.blobs)
}

func sameParent(a, b *uuid.UUID) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
