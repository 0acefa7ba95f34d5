package fileHandler

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"filetree-service/internal/handler"
	"filetree-service/internal/model/fileInfo"
	"filetree-service/pkg/middleware"
	"filetree-service/pkg/multipart"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type FileService interface {
	ListChildren(ctx context.Context, owner uuid.UUID, parentID *uuid.UUID) (*fileInfo.Listing, error)
	CreateFolder(ctx context.Context, owner uuid.UUID, name string, parentID *uuid.UUID) (*fileInfo.Folder, error)
	DeleteFolder(ctx context.Context, owner, folderID uuid.UUID) error
	UploadFile(ctx context.Context, owner uuid.UUID, part *multipart.Part, folderID *uuid.UUID) (*fileInfo.File, error)
	DeleteFile(ctx context.Context, owner, fileID uuid.UUID) error
	OpenFile(ctx context.Context, owner, fileID uuid.UUID) (*fileInfo.File, io.ReadCloser, error)
	RenameFile(ctx context.Context, owner, fileID uuid.UUID, newName string) (*fileInfo.File, error)
}

type FileHandler struct {
	fileService    FileService
	maxUploadBytes int64
}

func NewFileHandler(fileService FileService, maxUploadBytes int64) *FileHandler {
	return &FileHandler{fileService: fileService, maxUploadBytes: maxUploadBytes}
}

// Upload reads the whole multipart body (bounded by maxUploadBytes), decodes
// it and stores the "file" part. The target folder comes from the
// "folder_id" form field or query parameter.
func (h *FileHandler) Upload(c *gin.Context) {
	owner, ok := owner(c)
	if !ok {
		return
	}

	boundary, err := multipart.BoundaryFromContentType(c.GetHeader("Content-Type"))
	if err != nil {
		handler.WriteError(c, err)
		return
	}

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUploadBytes)
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		handler.WriteError(c, err)
		return
	}

	form, err := multipart.Decode(boundary, body)
	if err != nil {
		handler.WriteError(c, err)
		return
	}
	part, err := form.RequireFile("file")
	if err != nil {
		handler.WriteError(c, err)
		return
	}

	raw, _ := form.Value("folder_id")
	if raw == "" {
		raw = c.Query("folder_id")
	}
	folderID, ok := optionalID(c, raw, "folder_id")
	if !ok {
		return
	}

	file, err := h.fileService.UploadFile(c.Request.Context(), owner, part, folderID)
	if err != nil {
		handler.WriteError(c, err)
		return
	}
	c.JSON(http.StatusCreated, file)
}

func (h *FileHandler) List(c *gin.Context) {
	owner, ok := owner(c)
	if !ok {
		return
	}
	folderID, ok := optionalID(c, c.Query("folder_id"), "folder_id")
	if !ok {
		return
	}
	listing, err := h.fileService.ListChildren(c.Request.Context(), owner, folderID)
	if err != nil {
		handler.WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, listing)
}

// Content streams the stored bytes of a file.
func (h *FileHandler) Content(c *gin.Context) {
	owner, ok := owner(c)
	if !ok {
		return
	}
	fileID, ok := pathID(c)
	if !ok {
		return
	}
	file, rc, err := h.fileService.OpenFile(c.Request.Context(), owner, fileID)
	if err != nil {
		handler.WriteError(c, err)
		return
	}
	defer rc.Close()

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s", strconv.Quote(file.Name)))
	c.DataFromReader(http.StatusOK, file.SizeBytes, file.MimeType, rc, nil)
}

type renameRequest struct {
	Name string `json:"name"`
}

func (h *FileHandler) Rename(c *gin.Context) {
	owner, ok := owner(c)
	if !ok {
		return
	}
	fileID, ok := pathID(c)
	if !ok {
		return
	}
	var req renameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handler.BadRequest(c, "invalid request body")
		return
	}
	file, err := h.fileService.RenameFile(c.Request.Context(), owner, fileID, req.Name)
	if err != nil {
		handler.WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, file)
}

func (h *FileHandler) Delete(c *gin.Context) {
	owner, ok := owner(c)
	if !ok {
		return
	}
	fileID, ok := pathID(c)
	if !ok {
		return
	}
	if err := h.fileService.DeleteFile(c.Request.Context(), owner, fileID); err != nil {
		handler.WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

type createFolderRequest struct {
	Name     string `json:"name"`
	ParentID string `json:"parent_id"`
}

func (h *FileHandler) CreateFolder(c *gin.Context) {
	owner, ok := owner(c)
	if !ok {
		return
	}
	var req createFolderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handler.BadRequest(c, "invalid request body")
		return
	}
	parentID, ok := optionalID(c, req.ParentID, "parent_id")
	if !ok {
		return
	}
	folder, err := h.fileService.CreateFolder(c.Request.Context(), owner, req.Name, parentID)
	if err != nil {
		handler.WriteError(c, err)
		return
	}
	c.JSON(http.StatusCreated, folder)
}

func (h *FileHandler) DeleteFolder(c *gin.Context) {
	owner, ok := owner(c)
	if !ok {
		return
	}
	folderID, ok := pathID(c)
	if !ok {
		return
	}
	if err := h.fileService.DeleteFolder(c.Request.Context(), owner, folderID); err != nil {
		handler.WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func owner(c *gin.Context) (uuid.UUID, bool) {
	u, ok := middleware.CurrentUser(c)
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "not authenticated"})
		return uuid.Nil, false
	}
	return u.ID, true
}

func pathID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		handler.BadRequest(c, "invalid id")
		return uuid.Nil, false
	}
	return id, true
}

// optionalID parses raw as a uuid; an empty raw means "no id" (the root level).
func optionalID(c *gin.Context, raw, field string) (*uuid.UUID, bool) {
	if raw == "" {
		return nil, true
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		handler.BadRequest(c, "invalid "+field)
		return nil, false
	}
	return &id, true
}
