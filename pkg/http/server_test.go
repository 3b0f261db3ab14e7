package http

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"chatlytics-server/pkg/analytics"
	"chatlytics-server/pkg/conversation"
	"chatlytics-server/pkg/database"
	apperrors "chatlytics-server/pkg/errors"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubEngine struct {
	doc       *analytics.Document
	err       error
	lastID    string
	snapshots int
}

func (e *stubEngine) Analyze(_ context.Context, conversationID string) (*analytics.Document, error) {
	e.lastID = conversationID
	if e.err != nil {
		return nil, e.err
	}
	return e.doc, nil
}

func (e *stubEngine) AnalyzeSnapshot(_ context.Context, _ *conversation.Snapshot) *analytics.Document {
	e.snapshots++
	return e.doc
}

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func testDocument() *analytics.Document {
	return &analytics.Document{
		Summary: &analytics.Summary{
			TotalMessages:    4,
			ParticipantCount: 2,
			MessagesPerUser:  map[string]int{"Alice": 2, "Bob": 2},
			UserPercentages:  map[string]float64{"Alice": 50, "Bob": 50},
		},
	}
}

func newTestServer(t *testing.T, engine AnalysisEngine, store analytics.ResultStore) *Server {
	t.Helper()
	cfg := NewDefaultConfig()
	cfg.EnableMetrics = false
	return NewServer(testLogger(), cfg, engine, store)
}

func TestAnalyzeByConversationID(t *testing.T) {
	engine := &stubEngine{doc: testDocument()}
	server := newTestServer(t, engine, analytics.NewInMemoryResultStore())

	body := strings.NewReader(`{"conversation_id":"conv-1"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/analyze", body)
	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "conv-1", engine.lastID)

	var doc analytics.Document
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &doc))
	require.NotNil(t, doc.Summary)
	assert.Equal(t, 4, doc.Summary.TotalMessages)
}

func TestAnalyzeInlineSnapshot(t *testing.T) {
	engine := &stubEngine{doc: testDocument()}
	server := newTestServer(t, engine, analytics.NewInMemoryResultStore())

	payload := map[string]interface{}{
		"id": "inline-1",
		"messages": []conversation.Message{
			{SenderID: "u-alice", Timestamp: time.Now(), Content: "hello", Kind: conversation.KindText},
			{SenderID: "u-bob", Timestamp: time.Now(), Content: "hi", Kind: conversation.KindText},
		},
		"participants": []conversation.Participant{
			{ID: "u-alice", DisplayName: "Alice"},
			{ID: "u-bob", DisplayName: "Bob"},
		},
	}
	raw, err := json.Marshal(payload)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/api/analyze", strings.NewReader(string(raw)))
	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, engine.snapshots)
	assert.Empty(t, engine.lastID)
}

func TestAnalyzeRejectsGet(t *testing.T) {
	server := newTestServer(t, &stubEngine{doc: testDocument()}, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/analyze", nil)
	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, http.MethodPost, rec.Header().Get("Allow"))
}

func TestAnalyzeRejectsEmptyRequest(t *testing.T) {
	server := newTestServer(t, &stubEngine{doc: testDocument()}, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/analyze", strings.NewReader(`{}`))
	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAnalyzeRejectsAmbiguousRequest(t *testing.T) {
	server := newTestServer(t, &stubEngine{doc: testDocument()}, nil)

	body := `{"conversation_id":"conv-1","messages":[{"sender_id":"u-alice","timestamp":"2025-04-07T09:00:00Z","content":"hi","kind":"text"}]}`
	req := httptest.NewRequest(http.MethodPost, "/api/analyze", strings.NewReader(body))
	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAnalyzeNotFoundMapsTo404(t *testing.T) {
	engine := &stubEngine{err: apperrors.NewConversationNotFound("ghost")}
	server := newTestServer(t, engine, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/analyze", strings.NewReader(`{"conversation_id":"ghost"}`))
	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "error")
}

func TestResultHandlerServesStoredDocument(t *testing.T) {
	store := analytics.NewInMemoryResultStore()
	require.NoError(t, store.Save(context.Background(), "conv-9", testDocument()))
	server := newTestServer(t, &stubEngine{}, store)

	req := httptest.NewRequest(http.MethodGet, "/api/results/conv-9", nil)
	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var doc analytics.Document
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &doc))
	require.NotNil(t, doc.Summary)
	assert.Equal(t, 2, doc.Summary.ParticipantCount)
}

func TestResultHandlerMissingDocument(t *testing.T) {
	server := newTestServer(t, &stubEngine{}, analytics.NewInMemoryResultStore())

	req := httptest.NewRequest(http.MethodGet, "/api/results/unknown", nil)
	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestResultHandlerRejectsEmptyID(t *testing.T) {
	server := newTestServer(t, &stubEngine{}, analytics.NewInMemoryResultStore())

	req := httptest.NewRequest(http.MethodGet, "/api/results/", nil)
	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

type runHistoryStore struct {
	*analytics.InMemoryResultStore
	runs      []*database.Run
	lastLimit int
}

func (s *runHistoryStore) ListRuns(_ context.Context, _ string, limit int) ([]*database.Run, error) {
	s.lastLimit = limit
	return s.runs, nil
}

func TestRunsHandlerServesHistory(t *testing.T) {
	store := &runHistoryStore{
		InMemoryResultStore: analytics.NewInMemoryResultStore(),
		runs: []*database.Run{
			{ID: "r-2", ConversationID: "conv-1", Strategy: "standard", Status: "ok", DurationMs: 12},
			{ID: "r-1", ConversationID: "conv-1", Strategy: "standard", Status: "partial", DurationMs: 9},
		},
	}
	server := newTestServer(t, &stubEngine{}, store)

	req := httptest.NewRequest(http.MethodGet, "/api/runs/conv-1?limit=10", nil)
	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 10, store.lastLimit)

	var runs []*database.Run
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &runs))
	require.Len(t, runs, 2)
	assert.Equal(t, "ok", runs[0].Status)
	assert.Equal(t, "partial", runs[1].Status)
}

func TestRunsHandlerEmptyHistory(t *testing.T) {
	store := &runHistoryStore{InMemoryResultStore: analytics.NewInMemoryResultStore()}
	server := newTestServer(t, &stubEngine{}, store)

	req := httptest.NewRequest(http.MethodGet, "/api/runs/conv-1", nil)
	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "[]\n", rec.Body.String())
	assert.Equal(t, 50, store.lastLimit)
}

func TestRunsHandlerWithoutHistoryStore(t *testing.T) {
	server := newTestServer(t, &stubEngine{}, analytics.NewInMemoryResultStore())

	req := httptest.NewRequest(http.MethodGet, "/api/runs/conv-1", nil)
	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestRunsHandlerRejectsBadLimit(t *testing.T) {
	store := &runHistoryStore{InMemoryResultStore: analytics.NewInMemoryResultStore()}
	server := newTestServer(t, &stubEngine{}, store)

	req := httptest.NewRequest(http.MethodGet, "/api/runs/conv-1?limit=zero", nil)
	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestStatusEndpoint(t *testing.T) {
	server := newTestServer(t, &stubEngine{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/status", nil)
	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var status map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	assert.Equal(t, "ok", status["status"])
	assert.NotEmpty(t, status["version"])
}

func TestServerHeaderIsSet(t *testing.T) {
	server := newTestServer(t, &stubEngine{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/status", nil)
	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, req)

	assert.True(t, strings.HasPrefix(rec.Header().Get("Server"), "chatlytics/"))
}
