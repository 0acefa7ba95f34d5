package server_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	stdmultipart "mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"filetree-service/internal/handler"
	"filetree-service/internal/server"
	"filetree-service/internal/service/authService"
	"filetree-service/internal/service/demoService"
	"filetree-service/internal/service/fileService"
	"filetree-service/internal/testutil/memstore"
	"filetree-service/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type env struct {
	router   *gin.Engine
	objects  *memstore.Objects
	files    *memstore.Files
	sessions *memstore.DemoSessions
}

func newEnv(t *testing.T, maxUpload int64) *env {
	t.Helper()
	gin.SetMode(gin.TestMode)

	e := &env{
		objects:  memstore.NewObjects(),
		files:    memstore.NewFiles(),
		sessions: memstore.NewDemoSessions(),
	}
	auth := authService.New(memstore.NewUsers(), e.sessions, memstore.NewBlacklist(), authService.Config{
		JWTSecret:  "router-test",
		BcryptCost: bcrypt.MinCost,
	})
	files := fileService.New(memstore.NewFolders(), e.files, e.objects)
	demo := demoService.New(auth, memstore.NewDemoFiles(), e.sessions, time.Hour)
	health := handler.NewHealth(map[string]handler.Check{
		"objects": func(context.Context) error { return nil },
	})

	e.router = server.NewRouter(server.Services{
		Auth:   auth,
		Files:  files,
		Demo:   demo,
		Health: health,
	}, server.Options{
		Logger:         logger.GetLogger(context.Background()),
		MaxUploadBytes: maxUpload,
		AuthRateLimit:  1000,
		AuthRateBurst:  1000,
	})
	return e
}

func (e *env) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func (e *env) upload(t *testing.T, token, folderID, name string, data []byte) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	mw := stdmultipart.NewWriter(&buf)
	if folderID != "" {
		require.NoError(t, mw.WriteField("folder_id", folderID))
	}
	fw, err := mw.CreateFormFile("file", name)
	require.NoError(t, err)
	_, err = fw.Write(data)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/files/upload", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

type sessionBody struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	User      struct {
		ID    string `json:"id"`
		Email string `json:"email"`
	} `json:"user"`
}

func (e *env) signUp(t *testing.T, email string) string {
	t.Helper()
	w := e.do(t, http.MethodPost, "/api/auth/signup", "", map[string]string{"email": email, "password": "secret123"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	return decode[sessionBody](t, w).Token
}

func TestAuthFlow(t *testing.T) {
	e := newEnv(t, 1<<20)

	w := e.do(t, http.MethodPost, "/api/auth/signup", "", map[string]string{"email": "Alice@Example.com", "password": "secret123"})
	require.Equal(t, http.StatusCreated, w.Code)
	s := decode[sessionBody](t, w)
	assert.Equal(t, "alice@example.com", s.User.Email)
	assert.NotEmpty(t, s.Token)
	assert.NotContains(t, w.Body.String(), "password")

	w = e.do(t, http.MethodPost, "/api/auth/signup", "", map[string]string{"email": "alice@example.com", "password": "secret123"})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = e.do(t, http.MethodPost, "/api/auth/signup", "", map[string]string{"email": "bob@example.com", "password": "123"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = e.do(t, http.MethodPost, "/api/auth/signin", "", map[string]string{"email": "alice@example.com", "password": "wrong-pass"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	wrongPass := w.Body.String()
	w = e.do(t, http.MethodPost, "/api/auth/signin", "", map[string]string{"email": "nobody@example.com", "password": "wrong-pass"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, wrongPass, w.Body.String())

	w = e.do(t, http.MethodPost, "/api/auth/signin", "", map[string]string{"email": "alice@example.com", "password": "secret123"})
	require.Equal(t, http.StatusOK, w.Code)
	token := decode[sessionBody](t, w).Token

	w = e.do(t, http.MethodPost, "/api/auth/refresh", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	refreshed := decode[sessionBody](t, w).Token

	// the token that was refreshed is revoked
	assert.Equal(t, http.StatusUnauthorized, e.do(t, http.MethodGet, "/api/files", token, nil).Code)
	assert.Equal(t, http.StatusOK, e.do(t, http.MethodGet, "/api/files", refreshed, nil).Code)

	w = e.do(t, http.MethodPost, "/api/auth/signout", refreshed, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"success":true}`, w.Body.String())
	assert.Equal(t, http.StatusUnauthorized, e.do(t, http.MethodGet, "/api/files", refreshed, nil).Code)

	assert.Equal(t, http.StatusUnauthorized, e.do(t, http.MethodPost, "/api/auth/refresh", "", nil).Code)
	assert.Equal(t, http.StatusBadRequest, e.do(t, http.MethodPost, "/api/auth/signin", "", "not an object").Code)
}

type fileBody struct {
	ID         string  `json:"id"`
	Name       string  `json:"name"`
	Category   string  `json:"category"`
	SizeBytes  int64   `json:"size_bytes"`
	StorageKey string  `json:"storage_key"`
	FolderID   *string `json:"folder_id"`
}

type listingBody struct {
	Files   []fileBody `json:"files"`
	Folders []struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	} `json:"folders"`
}

func TestFileFlow(t *testing.T) {
	e := newEnv(t, 1<<20)
	token := e.signUp(t, "alice@example.com")

	w := e.do(t, http.MethodPost, "/api/folders", token, map[string]string{"name": "Docs"})
	require.Equal(t, http.StatusCreated, w.Code)
	folderID := decode[struct {
		ID string `json:"id"`
	}](t, w).ID

	payload := []byte("%PDF-1.7 \x00\x01\r\n--not-a-boundary\r\n")
	w = e.upload(t, token, folderID, "report.pdf", payload)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	file := decode[fileBody](t, w)
	assert.Equal(t, "report.pdf", file.Name)
	assert.Equal(t, int64(len(payload)), file.SizeBytes)
	require.NotNil(t, file.FolderID)
	assert.Equal(t, folderID, *file.FolderID)

	w = e.do(t, http.MethodGet, "/api/files?folder_id="+folderID, token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	listing := decode[listingBody](t, w)
	require.Len(t, listing.Files, 1)
	assert.Equal(t, file.ID, listing.Files[0].ID)

	w = e.do(t, http.MethodGet, "/api/files", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	root := decode[listingBody](t, w)
	assert.Empty(t, root.Files)
	require.Len(t, root.Folders, 1)
	assert.Equal(t, "Docs", root.Folders[0].Name)

	w = e.do(t, http.MethodGet, "/api/files/"+file.ID+"/content", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, payload, w.Body.Bytes())
	assert.Contains(t, w.Header().Get("Content-Disposition"), "report.pdf")

	w = e.do(t, http.MethodPatch, "/api/files/"+file.ID, token, map[string]string{"name": "final.pdf"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "final.pdf", decode[fileBody](t, w).Name)

	// another user sees nothing of alice's
	bob := e.signUp(t, "bob@example.com")
	assert.Equal(t, http.StatusNotFound, e.do(t, http.MethodGet, "/api/files/"+file.ID+"/content", bob, nil).Code)
	assert.Equal(t, http.StatusNotFound, e.do(t, http.MethodDelete, "/api/files/"+file.ID, bob, nil).Code)
	assert.Equal(t, http.StatusNotFound, e.do(t, http.MethodGet, "/api/files?folder_id="+folderID, bob, nil).Code)
	assert.Equal(t, http.StatusNotFound, e.upload(t, bob, folderID, "x.txt", []byte("x")).Code)

	w = e.do(t, http.MethodDelete, "/api/files/"+file.ID, token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.False(t, e.objects.Has(file.StorageKey))
	assert.Equal(t, http.StatusNotFound, e.do(t, http.MethodDelete, "/api/files/"+file.ID, token, nil).Code)

	e.upload(t, token, folderID, "a.txt", []byte("a"))
	w = e.do(t, http.MethodDelete, "/api/folders/"+folderID, token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Zero(t, e.objects.Len())
	assert.Equal(t, http.StatusNotFound, e.do(t, http.MethodDelete, "/api/folders/"+folderID, token, nil).Code)
}

func TestFileEndpoints_BadInput(t *testing.T) {
	e := newEnv(t, 1<<20)
	token := e.signUp(t, "alice@example.com")

	assert.Equal(t, http.StatusUnauthorized, e.do(t, http.MethodGet, "/api/files", "", nil).Code)
	assert.Equal(t, http.StatusUnauthorized, e.do(t, http.MethodGet, "/api/files", "garbage", nil).Code)
	assert.Equal(t, http.StatusBadRequest, e.do(t, http.MethodGet, "/api/files?folder_id=nope", token, nil).Code)
	assert.Equal(t, http.StatusBadRequest, e.do(t, http.MethodDelete, "/api/files/nope", token, nil).Code)
	assert.Equal(t, http.StatusBadRequest, e.do(t, http.MethodPost, "/api/folders", token, map[string]string{"name": " "}).Code)
	assert.Equal(t, http.StatusNotFound, e.do(t, http.MethodPost, "/api/folders", token,
		map[string]string{"name": "x", "parent_id": "7b7d1e36-8a51-4c38-9b5e-1f2e3d4c5b6a"}).Code)

	// not multipart at all
	w := e.do(t, http.MethodPost, "/api/files/upload", token, map[string]string{"file": "x"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// multipart without a file part
	var buf bytes.Buffer
	mw := stdmultipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("note", "hello"))
	require.NoError(t, mw.Close())
	req := httptest.NewRequest(http.MethodPost, "/api/files/upload", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)
	w = httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// truncated body
	req = httptest.NewRequest(http.MethodPost, "/api/files/upload",
		strings.NewReader("--b\r\nContent-Disposition: form-data; name=\"file\"; filename=\"a\"\r\n\r\nno end"))
	req.Header.Set("Content-Type", "multipart/form-data; boundary=b")
	req.Header.Set("Authorization", "Bearer "+token)
	w = httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestUpload_TooLarge(t *testing.T) {
	e := newEnv(t, 64)
	token := e.signUp(t, "alice@example.com")

	w := e.upload(t, token, "", "big.bin", bytes.Repeat([]byte("x"), 1024))
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	assert.Zero(t, e.objects.Len())
}

func TestUpload_StorageAndMetadataFailures(t *testing.T) {
	e := newEnv(t, 1<<20)
	token := e.signUp(t, "alice@example.com")

	e.objects.PutErr = errors.New("minio: connection refused")
	w := e.upload(t, token, "", "a.txt", []byte("a"))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "minio")

	e.objects.PutErr = nil
	e.files.CreateErr = errors.New("insert failed")
	w = e.upload(t, token, "", "a.txt", []byte("a"))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Zero(t, e.objects.Len())
}

func TestDownload_MissingBlobIsServerError(t *testing.T) {
	e := newEnv(t, 1<<20)
	token := e.signUp(t, "alice@example.com")

	w := e.upload(t, token, "", "a.txt", []byte("a"))
	require.Equal(t, http.StatusCreated, w.Code)
	file := decode[fileBody](t, w)
	require.NoError(t, e.objects.Delete(context.Background(), file.StorageKey))

	w = e.do(t, http.MethodGet, "/api/files/"+file.ID+"/content", token, nil)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"error":"internal server error"}`, w.Body.String())
	assert.NotContains(t, w.Body.String(), file.StorageKey)
}

func TestDemoFlow(t *testing.T) {
	e := newEnv(t, 1<<20)

	w := e.do(t, http.MethodPost, "/api/demo/sessions", "", nil)
	require.Equal(t, http.StatusCreated, w.Code)
	created := decode[struct {
		SessionID string    `json:"session_id"`
		ExpiresAt time.Time `json:"expires_at"`
	}](t, w)
	require.NotEmpty(t, created.SessionID)
	assert.NotContains(t, w.Body.String(), "token")
	assert.True(t, created.ExpiresAt.After(time.Now()))

	rec := map[string]any{
		"sessionId":    created.SessionID,
		"originalName": "a.txt",
		"fileType":     "text/plain",
		"fileSize":     3,
		"publicUrl":    "http://objects.local/demo/a.txt",
		"storagePath":  "demo/a.txt",
	}
	w = e.do(t, http.MethodPost, "/api/demo/files", "", rec)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = e.do(t, http.MethodGet, "/api/demo/files?session_id="+created.SessionID, "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	files := decode[[]map[string]any](t, w)
	require.Len(t, files, 1)
	assert.Equal(t, "a.txt", files[0]["original_name"])

	rec["publicUrl"] = ""
	assert.Equal(t, http.StatusBadRequest, e.do(t, http.MethodPost, "/api/demo/files", "", rec).Code)

	rec["publicUrl"] = "http://x"
	rec["sessionId"] = "7b7d1e36-8a51-4c38-9b5e-1f2e3d4c5b6a"
	assert.Equal(t, http.StatusNotFound, e.do(t, http.MethodPost, "/api/demo/files", "", rec).Code)

	assert.Equal(t, http.StatusBadRequest, e.do(t, http.MethodGet, "/api/demo/files", "", nil).Code)
	assert.Equal(t, http.StatusBadRequest, e.do(t, http.MethodGet, "/api/demo/files?session_id=xyz", "", nil).Code)
}

func TestHealthAndMetrics(t *testing.T) {
	e := newEnv(t, 1<<20)

	w := e.do(t, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	e.do(t, http.MethodGet, "/api/files", "", nil)
	w = e.do(t, http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "filetree_http_requests_total")
}
