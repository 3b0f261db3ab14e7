package analytics

import (
	"context"
	"fmt"
	"io"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chatlytics-server/pkg/conversation"
	apperrors "chatlytics-server/pkg/errors"
)

type stubSource struct {
	snapshots map[string]*conversation.Snapshot
	calls     int
	err       error
}

func (s *stubSource) Get(_ context.Context, id string) (*conversation.Snapshot, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.snapshots[id], nil
}

type failingStore struct {
	inner   *InMemoryResultStore
	getErr  error
	saveErr error
	saves   int
}

func (s *failingStore) Get(ctx context.Context, id string) (*Document, error) {
	if s.getErr != nil {
		return nil, s.getErr
	}
	return s.inner.Get(ctx, id)
}

func (s *failingStore) Save(ctx context.Context, id string, doc *Document) error {
	s.saves++
	if s.saveErr != nil {
		return s.saveErr
	}
	return s.inner.Save(ctx, id, doc)
}

type recordingSink struct {
	published []string
}

func (s *recordingSink) PublishAnalysisComplete(_ context.Context, id string, _ *Document) error {
	s.published = append(s.published, id)
	return nil
}

type panicAnalyzer struct{}

func (panicAnalyzer) Name() string { return "panicking" }

func (panicAnalyzer) Analyze(context.Context, *conversation.Snapshot) (*Document, error) {
	panic("boom")
}

func testLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func testOrchestrator(source ConversationSource, store ResultStore, events EventSink) *Orchestrator {
	return NewOrchestrator(testLogger(), DefaultConfig(), source, store, events)
}

func TestOrchestratorFullRun(t *testing.T) {
	snap := snapshotOf(alternating(20, testBase, time.Minute)...)
	source := &stubSource{snapshots: map[string]*conversation.Snapshot{"conv-test": snap}}
	store := NewInMemoryResultStore()
	sink := &recordingSink{}

	o := testOrchestrator(source, store, sink)
	doc, err := o.Analyze(context.Background(), "conv-test")
	require.NoError(t, err)

	require.NotNil(t, doc.Summary)
	assert.Equal(t, 20, doc.Summary.TotalMessages)
	assert.NotNil(t, doc.TimePatterns)
	assert.NotNil(t, doc.UserStats)
	assert.NotNil(t, doc.Content)
	assert.NotNil(t, doc.Dynamics)
	assert.NotNil(t, doc.Behavior)
	assert.NotNil(t, doc.Relationship)
	assert.NotNil(t, doc.Intelligence)
	assert.NotNil(t, doc.Temporal)
	assert.Nil(t, doc.Error)

	assert.Equal(t, []string{"conv-test"}, sink.published)

	cached, err := store.Get(context.Background(), "conv-test")
	require.NoError(t, err)
	require.NotNil(t, cached)
	assert.Equal(t, doc.Summary.TotalMessages, cached.Summary.TotalMessages)
}

func TestOrchestratorMemoization(t *testing.T) {
	snap := snapshotOf(alternating(6, testBase, time.Minute)...)
	source := &stubSource{snapshots: map[string]*conversation.Snapshot{"conv-test": snap}}
	store := NewInMemoryResultStore()

	o := testOrchestrator(source, store, nil)

	first, err := o.Analyze(context.Background(), "conv-test")
	require.NoError(t, err)
	second, err := o.Analyze(context.Background(), "conv-test")
	require.NoError(t, err)

	assert.Equal(t, 1, source.calls, "second run must come from the store")
	assert.Equal(t, first.Summary.TotalMessages, second.Summary.TotalMessages)
}

func TestOrchestratorConversationNotFound(t *testing.T) {
	source := &stubSource{snapshots: map[string]*conversation.Snapshot{}}
	o := testOrchestrator(source, NewInMemoryResultStore(), nil)

	doc, err := o.Analyze(context.Background(), "missing")
	assert.Nil(t, doc)
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.ErrConversationNotFound))
}

func TestOrchestratorSourceError(t *testing.T) {
	source := &stubSource{err: fmt.Errorf("backend down")}
	o := testOrchestrator(source, NewInMemoryResultStore(), nil)

	_, err := o.Analyze(context.Background(), "conv-test")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "fetching conversation snapshot")
}

func TestOrchestratorStoreReadFailureRecomputes(t *testing.T) {
	snap := snapshotOf(alternating(4, testBase, time.Minute)...)
	source := &stubSource{snapshots: map[string]*conversation.Snapshot{"conv-test": snap}}
	store := &failingStore{inner: NewInMemoryResultStore(), getErr: fmt.Errorf("read timeout")}

	o := testOrchestrator(source, store, nil)
	doc, err := o.Analyze(context.Background(), "conv-test")
	require.NoError(t, err)
	assert.Equal(t, 4, doc.Summary.TotalMessages)
	assert.Equal(t, 1, source.calls)
}

func TestOrchestratorAnalyzerPanicDegrades(t *testing.T) {
	snap := snapshotOf(alternating(4, testBase, time.Minute)...)
	source := &stubSource{snapshots: map[string]*conversation.Snapshot{"conv-test": snap}}
	store := &failingStore{inner: NewInMemoryResultStore()}

	o := testOrchestrator(source, store, nil)
	o.standard = append(o.standard, panicAnalyzer{})

	doc, err := o.Analyze(context.Background(), "conv-test")
	require.NoError(t, err)

	require.NotNil(t, doc.Error)
	assert.Contains(t, doc.Error.Message, "analyzer panic")
	assert.Equal(t, []string{"panicking"}, doc.Error.Analyzers)

	// The mandatory summary survives and partial results are never cached.
	require.NotNil(t, doc.Summary)
	assert.Equal(t, 4, doc.Summary.TotalMessages)
	assert.Equal(t, 0, store.saves)
}

func TestOrchestratorReducedStrategySkipsComposites(t *testing.T) {
	snap := snapshotOf(alternating(8, testBase, time.Minute)...)
	source := &stubSource{snapshots: map[string]*conversation.Snapshot{"conv-test": snap}}

	cfg := DefaultConfig()
	cfg.LargeInputThreshold = 5
	cfg.ChunkSize = 3
	o := NewOrchestrator(testLogger(), cfg, source, NewInMemoryResultStore(), nil)

	doc, err := o.Analyze(context.Background(), "conv-test")
	require.NoError(t, err)

	assert.NotNil(t, doc.Summary)
	assert.NotNil(t, doc.TimePatterns)
	assert.NotNil(t, doc.Content)
	assert.Nil(t, doc.Dynamics)
	assert.Nil(t, doc.Temporal)
}

func TestFallbackSummaryNilSnapshot(t *testing.T) {
	s := fallbackSummary(nil)
	require.NotNil(t, s)
	assert.Equal(t, 0, s.TotalMessages)
	assert.NotNil(t, s.MessagesPerUser)
}

func TestFallbackSummaryCountsDistinctSenders(t *testing.T) {
	// Three roster entries but only two ever sent a message; the fallback
	// must agree with the message analyzer and count senders, not roster.
	snap := conversation.NewSnapshot("conv-test",
		alternating(4, testBase, time.Minute),
		append(testParticipants(), conversation.Participant{ID: "u-carol", DisplayName: "Carol"}),
	)

	fallback := fallbackSummary(snap)
	assert.Equal(t, 2, fallback.ParticipantCount)
	assert.Equal(t, 4, fallback.TotalMessages)

	doc, err := NewMessageAnalyzer().Analyze(context.Background(), snap)
	require.NoError(t, err)
	assert.Equal(t, doc.Summary.ParticipantCount, fallback.ParticipantCount)
}

type runRecordingStore struct {
	*InMemoryResultStore
	records   []RunRecord
	recordErr error
}

func (s *runRecordingStore) RecordRun(_ context.Context, rec RunRecord) error {
	if s.recordErr != nil {
		return s.recordErr
	}
	s.records = append(s.records, rec)
	return nil
}

func TestOrchestratorRecordsRunHistory(t *testing.T) {
	snap := snapshotOf(alternating(6, testBase, time.Minute)...)
	source := &stubSource{snapshots: map[string]*conversation.Snapshot{"conv-test": snap}}
	store := &runRecordingStore{InMemoryResultStore: NewInMemoryResultStore()}

	o := testOrchestrator(source, store, nil)
	_, err := o.Analyze(context.Background(), "conv-test")
	require.NoError(t, err)

	require.Len(t, store.records, 1)
	rec := store.records[0]
	assert.Equal(t, "conv-test", rec.ConversationID)
	assert.Equal(t, "standard", rec.Strategy)
	assert.Equal(t, "ok", rec.Status)
	assert.Empty(t, rec.ErrorMessage)
	assert.GreaterOrEqual(t, rec.Duration, time.Duration(0))
}

func TestOrchestratorRecordsPartialRun(t *testing.T) {
	snap := snapshotOf(alternating(4, testBase, time.Minute)...)
	source := &stubSource{snapshots: map[string]*conversation.Snapshot{"conv-test": snap}}
	store := &runRecordingStore{InMemoryResultStore: NewInMemoryResultStore()}

	o := testOrchestrator(source, store, nil)
	o.standard = append(o.standard, panicAnalyzer{})

	_, err := o.Analyze(context.Background(), "conv-test")
	require.NoError(t, err)

	require.Len(t, store.records, 1)
	assert.Equal(t, "partial", store.records[0].Status)
	assert.Contains(t, store.records[0].ErrorMessage, "analyzer panic")
}

func TestOrchestratorRecordFailureIsNonFatal(t *testing.T) {
	snap := snapshotOf(alternating(4, testBase, time.Minute)...)
	source := &stubSource{snapshots: map[string]*conversation.Snapshot{"conv-test": snap}}
	store := &runRecordingStore{
		InMemoryResultStore: NewInMemoryResultStore(),
		recordErr:           fmt.Errorf("history table gone"),
	}

	o := testOrchestrator(source, store, nil)
	doc, err := o.Analyze(context.Background(), "conv-test")
	require.NoError(t, err)
	assert.Equal(t, 4, doc.Summary.TotalMessages)
	assert.Empty(t, store.records)
}
