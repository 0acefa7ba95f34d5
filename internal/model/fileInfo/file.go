package fileInfo

import (
	"time"

	"github.com/google/uuid"
)

type Category string

const (
	CategoryImage    Category = "image"
	CategoryVideo    Category = "video"
	CategoryPDF      Category = "pdf"
	CategoryExcel    Category = "excel"
	CategoryDocument Category = "document"
	CategoryOther    Category = "other"
)

type Folder struct {
	ID        uuid.UUID  `json:"id"`
	OwnerID   uuid.UUID  `json:"owner_id"`
	ParentID  *uuid.UUID `json:"parent_id"`
	Name      string     `json:"name"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

func (f *Folder) IsRoot() bool {
	return f.ParentID == nil
}

type File struct {
	ID           uuid.UUID  `json:"id"`
	OwnerID      uuid.UUID  `json:"owner_id"`
	FolderID     *uuid.UUID `json:"folder_id"`
	Name         string     `json:"name"`
	OriginalName string     `json:"original_name"`
	MimeType     string     `json:"mime_type"`
	Category     Category   `json:"category"`
	SizeBytes    int64      `json:"size_bytes"`
	StorageKey   string     `json:"storage_key"`
	PublicURL    string     `json:"public_url"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// DemoFile is a file record scoped to a demo session instead of a user.
type DemoFile struct {
	ID           uuid.UUID `json:"id"`
	SessionID    uuid.UUID `json:"session_id"`
	OriginalName string    `json:"original_name"`
	FileType     string    `json:"file_type"`
	FileSize     int64     `json:"file_size"`
	PublicURL    string    `json:"public_url"`
	StoragePath  string    `json:"storage_path"`
	CreatedAt    time.Time `json:"created_at"`
}

// Listing is the content of one folder level.
type Listing struct {
	Files   []*File   `json:"files"`
	Folders []*Folder `json:"folders"`
}
