package conversation

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"chatlytics-server/pkg/errors"
)

// DirectorySource resolves conversation IDs to snapshots stored as
// <dir>/<id>.json files. It satisfies the engine's ConversationSource
// interface and is the default source for the serve command; a database or
// import pipeline can replace it without touching the engine.
type DirectorySource struct {
	dir string
}

func NewDirectorySource(dir string) *DirectorySource {
	return &DirectorySource{dir: dir}
}

// Get loads and parses the snapshot file for the given conversation ID. A
// missing file maps to ErrConversationNotFound.
func (s *DirectorySource) Get(_ context.Context, conversationID string) (*Snapshot, error) {
	if conversationID == "" || strings.ContainsAny(conversationID, `/\`) || conversationID != filepath.Base(conversationID) {
		return nil, errors.Wrap(errors.ErrInvalidInput, "conversation ID is not a valid snapshot name").
			WithField("conversation_id", conversationID)
	}

	path := filepath.Join(s.dir, conversationID+".json")
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.NewConversationNotFound(conversationID)
		}
		return nil, errors.Wrap(err, "reading snapshot file").WithField("path", path)
	}

	return ParseSnapshot(conversationID, raw)
}

// ParseSnapshot decodes a snapshot JSON document. The ID inside the document
// wins when present; otherwise the supplied fallback is used. Bounds are
// rederived from the messages so stale stored bounds can never leak through.
func ParseSnapshot(fallbackID string, raw []byte) (*Snapshot, error) {
	var decoded Snapshot
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return nil, errors.Wrap(errors.ErrInvalidInput, "parsing snapshot JSON")
	}

	id := decoded.ID
	if id == "" {
		id = fallbackID
	}
	return NewSnapshot(id, decoded.Messages, decoded.Participants), nil
}
