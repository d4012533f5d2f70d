package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/custodia-labs/sercha-study/internal/core/domain"
)

type testEnv struct {
	server    *Server
	documents *fakeDocuments
	study     *fakeStudy
	sessions  *fakeSessions
}

func newTestEnv(t *testing.T, maxUpload int64) *testEnv {
	t.Helper()
	env := &testEnv{
		documents: newFakeDocuments(domain.Document{ID: "doc-1", Title: "biology.pdf", Status: domain.DocumentReady, ChunkCount: 4}),
		study:     &fakeStudy{answer: &domain.Answer{Mode: domain.ModeExplain, DocID: "doc-1", Content: "Cells divide."}},
		sessions: &fakeSessions{sessions: map[string]*domain.Session{
			"s-1": {ID: "s-1", Messages: []domain.Message{{Role: domain.RoleUser, Content: "hi"}}},
		}},
	}
	server, err := NewServer(
		Config{ListenAddr: ":0", MaxUploadBytes: maxUpload},
		Services{Documents: env.documents, Study: env.study, Sessions: env.sessions},
		zap.NewNop(),
	)
	require.NoError(t, err)
	env.server = server
	return env
}

func (e *testEnv) do(t *testing.T, req *http.Request) (*http.Response, []byte) {
	t.Helper()
	resp, err := e.server.app.Test(req, -1)
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, body
}

func multipartUpload(t *testing.T, field, filename string, content []byte) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile(field, filename)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/rag/ingest", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func jsonRequest(t *testing.T, method, path string, v any) *http.Request {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	req := httptest.NewRequest(method, path, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func TestNewServer_RequiresServices(t *testing.T) {
	_, err := NewServer(Config{}, Services{}, nil)
	assert.Error(t, err)
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t, 1024)

	resp, body := env.do(t, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"status":"ok"}`, string(body))
}

func TestReady(t *testing.T) {
	env := newTestEnv(t, 1024)

	resp, _ := env.do(t, httptest.NewRequest(http.MethodGet, "/ready", nil))
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	env.server.services.Readiness = fakeReadiness{llmErr: errOllamaDown}
	resp, body := env.do(t, httptest.NewRequest(http.MethodGet, "/ready", nil))
	assert.Equal(t, fiber.StatusServiceUnavailable, resp.StatusCode)

	var ready ReadyResponse
	require.NoError(t, json.Unmarshal(body, &ready))
	assert.Equal(t, "not_ready", ready.Status)
	assert.Equal(t, "ok", ready.Embedding)
	assert.Contains(t, ready.LLM, "connection refused")
}

func TestIngest(t *testing.T) {
	env := newTestEnv(t, 1024)

	resp, body := env.do(t, multipartUpload(t, "file", "notes.txt", []byte("Mitosis has four phases.")))

	require.Equal(t, fiber.StatusCreated, resp.StatusCode, string(body))
	var doc DocumentResponse
	require.NoError(t, json.Unmarshal(body, &doc))
	assert.Equal(t, "doc-new", doc.DocID)
	assert.Equal(t, "ready", doc.Status)
	assert.Equal(t, []string{"notes.txt"}, env.documents.ingested)
	assert.Equal(t, "Mitosis has four phases.", string(env.documents.content))
}

func TestIngest_MissingFile(t *testing.T) {
	env := newTestEnv(t, 1024)

	resp, body := env.do(t, multipartUpload(t, "upload", "notes.txt", []byte("x")))

	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, string(body), `multipart field`)
}

func TestIngest_TooLarge(t *testing.T) {
	env := newTestEnv(t, 16)

	resp, _ := env.do(t, multipartUpload(t, "file", "big.txt", []byte(strings.Repeat("a", 64))))

	assert.Equal(t, fiber.StatusRequestEntityTooLarge, resp.StatusCode)
	assert.Empty(t, env.documents.ingested)
}

func TestIngest_ServiceErrors(t *testing.T) {
	tests := []struct {
		err    error
		status int
	}{
		{domain.ErrUnsupportedType, fiber.StatusBadRequest},
		{domain.ErrExtraction, fiber.StatusBadRequest},
		{domain.ErrFileTooLarge, fiber.StatusRequestEntityTooLarge},
		{fmt.Errorf("embed: %w", domain.ErrProviderUnavailable), fiber.StatusServiceUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			env := newTestEnv(t, 1024)
			env.documents.ingestErr = tt.err

			resp, _ := env.do(t, multipartUpload(t, "file", "notes.txt", []byte("x")))
			assert.Equal(t, tt.status, resp.StatusCode)
		})
	}
}

func TestAsk(t *testing.T) {
	env := newTestEnv(t, 1024)

	resp, body := env.do(t, jsonRequest(t, http.MethodPost, "/rag/ask", map[string]any{
		"doc_id": "doc-1", "mode": "explain", "input": "How do cells divide?", "top_k": 2,
	}))

	require.Equal(t, fiber.StatusOK, resp.StatusCode, string(body))
	var answer domain.Answer
	require.NoError(t, json.Unmarshal(body, &answer))
	assert.Equal(t, "Cells divide.", answer.Content)
	assert.Equal(t, domain.ModeExplain, env.study.last.Mode)
	assert.Equal(t, 2, env.study.last.TopK)
}

func TestAsk_ErrorMapping(t *testing.T) {
	tests := []struct {
		err    error
		status int
	}{
		{domain.ErrInvalidMode, fiber.StatusBadRequest},
		{domain.ErrInvalidInput, fiber.StatusBadRequest},
		{domain.ErrNotFound, fiber.StatusNotFound},
		{domain.ErrProviderMismatch, fiber.StatusConflict},
		{domain.ErrGenerationFormat, fiber.StatusBadGateway},
		{domain.ErrLLMUnavailable, fiber.StatusServiceUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			env := newTestEnv(t, 1024)
			env.study.err = fmt.Errorf("ask: %w", tt.err)

			resp, body := env.do(t, jsonRequest(t, http.MethodPost, "/rag/ask", map[string]any{"doc_id": "doc-1", "mode": "mcq"}))

			assert.Equal(t, tt.status, resp.StatusCode)
			assert.Contains(t, string(body), tt.err.Error())
		})
	}
}

func TestAsk_InvalidBody(t *testing.T) {
	env := newTestEnv(t, 1024)
	req := httptest.NewRequest(http.MethodPost, "/rag/ask", strings.NewReader("{not json"))
	req.Header.Set("Content-Type", "application/json")

	resp, _ := env.do(t, req)

	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestInternalErrorsAreMasked(t *testing.T) {
	env := newTestEnv(t, 1024)
	env.study.err = fmt.Errorf("disk at /secret/path failed")

	resp, body := env.do(t, jsonRequest(t, http.MethodPost, "/rag/ask", map[string]any{"doc_id": "doc-1", "mode": "explain"}))

	assert.Equal(t, fiber.StatusInternalServerError, resp.StatusCode)
	assert.NotContains(t, string(body), "/secret/path")
}

func TestDocuments(t *testing.T) {
	env := newTestEnv(t, 1024)

	resp, body := env.do(t, httptest.NewRequest(http.MethodGet, "/rag/documents", nil))
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `"count":1`)

	resp, body = env.do(t, httptest.NewRequest(http.MethodGet, "/rag/documents/doc-1", nil))
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	var details DocumentDetailsResponse
	require.NoError(t, json.Unmarshal(body, &details))
	assert.Equal(t, "biology.pdf", details.Title)
	require.NotNil(t, details.Index)
	assert.Equal(t, "nomic-embed-text", details.Index.Model)
	assert.True(t, details.Compatible)

	resp, _ = env.do(t, httptest.NewRequest(http.MethodPost, "/rag/documents/doc-1/reindex", nil))
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	resp, _ = env.do(t, httptest.NewRequest(http.MethodDelete, "/rag/documents/doc-1", nil))
	assert.Equal(t, fiber.StatusNoContent, resp.StatusCode)

	resp, _ = env.do(t, httptest.NewRequest(http.MethodGet, "/rag/documents/doc-1", nil))
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

func TestModes(t *testing.T) {
	env := newTestEnv(t, 1024)

	resp, body := env.do(t, httptest.NewRequest(http.MethodGet, "/agent/modes", nil))

	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	var got struct {
		Modes []ModeResponse `json:"modes"`
	}
	require.NoError(t, json.Unmarshal(body, &got))
	require.Len(t, got.Modes, 4)
	assert.Equal(t, "explain", got.Modes[0].Name)
	assert.True(t, got.Modes[3].Structured)
}

func TestSessions(t *testing.T) {
	env := newTestEnv(t, 1024)

	resp, body := env.do(t, httptest.NewRequest(http.MethodGet, "/agent/sessions", nil))
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `"session_id":"s-1"`)

	resp, _ = env.do(t, httptest.NewRequest(http.MethodGet, "/agent/sessions/s-1", nil))
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	resp, _ = env.do(t, httptest.NewRequest(http.MethodPost, "/agent/sessions/s-1/clear", nil))
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Empty(t, env.sessions.sessions["s-1"].Messages)

	resp, _ = env.do(t, httptest.NewRequest(http.MethodDelete, "/agent/sessions/s-1", nil))
	assert.Equal(t, fiber.StatusNoContent, resp.StatusCode)

	resp, _ = env.do(t, httptest.NewRequest(http.MethodGet, "/agent/sessions/s-1", nil))
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

func TestMCPMount(t *testing.T) {
	mcpHandler := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusAccepted)
	})
	server, err := NewServer(
		Config{MCP: mcpHandler},
		Services{Documents: newFakeDocuments(), Study: &fakeStudy{}},
		nil,
	)
	require.NoError(t, err)

	resp, err := server.app.Test(httptest.NewRequest(http.MethodPost, "/mcp", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusAccepted, resp.StatusCode)
}

func TestStatusFor(t *testing.T) {
	assert.Equal(t, fiber.StatusNotFound, statusFor(fiber.ErrNotFound))
	assert.Equal(t, fiber.StatusConflict, statusFor(domain.ErrAlreadyExists))
	assert.Equal(t, fiber.StatusInternalServerError, statusFor(io.EOF))
}
