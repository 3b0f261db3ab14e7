package analytics

import (
	"context"
	"sync"
	"time"

	"chatlytics-server/pkg/conversation"
)

// ConversationSource supplies snapshots by conversation ID. Import and
// parsing live behind this interface; the engine never reads wire or file
// formats itself.
type ConversationSource interface {
	Get(ctx context.Context, conversationID string) (*conversation.Snapshot, error)
}

// ResultStore persists analysis documents keyed by conversation ID. A nil
// document with a nil error means no cached result exists.
type ResultStore interface {
	Get(ctx context.Context, conversationID string) (*Document, error)
	Save(ctx context.Context, conversationID string, doc *Document) error
}

// RunRecorder is an optional ResultStore extension that keeps an audit trail
// of completed runs. The orchestrator records a run whenever its store
// implements it; recording failures never affect the run result.
type RunRecorder interface {
	RecordRun(ctx context.Context, rec RunRecord) error
}

// RunRecord describes one completed analysis run.
type RunRecord struct {
	ConversationID string
	Strategy       string
	Status         string
	Duration       time.Duration
	ErrorMessage   string
}

// InMemoryResultStore keeps documents in process memory. Documents are stored
// and returned as serialized copies so callers can never mutate a cached
// entry.
type InMemoryResultStore struct {
	mu    sync.RWMutex
	items map[string][]byte
}

func NewInMemoryResultStore() *InMemoryResultStore {
	return &InMemoryResultStore{items: make(map[string][]byte)}
}

func (s *InMemoryResultStore) Get(_ context.Context, conversationID string) (*Document, error) {
	s.mu.RLock()
	raw, ok := s.items[conversationID]
	s.mu.RUnlock()
	if !ok {
		return nil, nil
	}
	return UnmarshalDocument(raw)
}

func (s *InMemoryResultStore) Save(_ context.Context, conversationID string, doc *Document) error {
	raw, err := doc.Marshal()
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.items[conversationID] = raw
	s.mu.Unlock()
	return nil
}

// Delete removes a cached result, mainly for tests and re-analysis.
func (s *InMemoryResultStore) Delete(_ context.Context, conversationID string) error {
	s.mu.Lock()
	delete(s.items, conversationID)
	s.mu.Unlock()
	return nil
}
