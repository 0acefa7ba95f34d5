package demoHandler

import (
	"context"
	"net/http"

	"filetree-service/internal/handler"
	"filetree-service/internal/model/fileInfo"
	"filetree-service/internal/model/session"
	"filetree-service/internal/service/demoService"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type SessionCreator interface {
	CreateDemoSession(ctx context.Context) (*session.Session, error)
}

type DemoService interface {
	AddFile(ctx context.Context, sessionID uuid.UUID, rec demoService.FileRecord) (*fileInfo.DemoFile, error)
	ListFiles(ctx context.Context, sessionID uuid.UUID) ([]*fileInfo.DemoFile, error)
}

type DemoHandler struct {
	sessions SessionCreator
	files    DemoService
}

func New(sessions SessionCreator, files DemoService) *DemoHandler {
	return &DemoHandler{sessions: sessions, files: files}
}

func (h *DemoHandler) CreateSession(c *gin.Context) {
	s, err := h.sessions.CreateDemoSession(c.Request.Context())
	if err != nil {
		handler.WriteError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"session_id": s.PrincipalID,
		"expires_at": s.ExpiresAt,
	})
}

type addFileRequest struct {
	SessionID string `json:"sessionId"`
	demoService.FileRecord
}

func (h *DemoHandler) AddFile(c *gin.Context) {
	var req addFileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handler.BadRequest(c, "invalid request body")
		return
	}
	sessionID, ok := parseSessionID(c, req.SessionID)
	if !ok {
		return
	}
	file, err := h.files.AddFile(c.Request.Context(), sessionID, req.FileRecord)
	if err != nil {
		handler.WriteError(c, err)
		return
	}
	c.JSON(http.StatusCreated, file)
}

func (h *DemoHandler) ListFiles(c *gin.Context) {
	sessionID, ok := parseSessionID(c, c.Query("session_id"))
	if !ok {
		return
	}
	files, err := h.files.ListFiles(c.Request.Context(), sessionID)
	if err != nil {
		handler.WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, files)
}

func parseSessionID(c *gin.Context, raw string) (uuid.UUID, bool) {
	if raw == "" {
		handler.BadRequest(c, "session id is required")
		return uuid.Nil, false
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		handler.BadRequest(c, "invalid session id")
		return uuid.Nil, false
	}
	return id, true
}
