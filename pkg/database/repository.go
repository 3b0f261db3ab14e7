package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"chatlytics-server/pkg/analytics"
)

// Repository persists analysis documents in MySQL. It satisfies
// analytics.ResultStore so the orchestrator can run against it unchanged.
type Repository struct {
	db     *MySQLDatabase
	logger *logrus.Logger
}

// NewRepository creates a new repository
func NewRepository(db *MySQLDatabase, logger *logrus.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// Get retrieves the cached document for a conversation. A missing row is not
// an error: it returns (nil, nil) per the ResultStore contract.
func (r *Repository) Get(ctx context.Context, conversationID string) (*analytics.Document, error) {
	query := `SELECT document FROM analysis_results WHERE conversation_id = ?`

	var raw []byte
	err := r.db.db.QueryRowContext(ctx, query, conversationID).Scan(&raw)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		r.logger.WithError(err).WithField("conversation_id", conversationID).Error("Failed to read analysis result")
		return nil, fmt.Errorf("failed to read analysis result: %w", err)
	}

	return analytics.UnmarshalDocument(raw)
}

// Save upserts the document for a conversation.
func (r *Repository) Save(ctx context.Context, conversationID string, doc *analytics.Document) error {
	raw, err := doc.Marshal()
	if err != nil {
		return fmt.Errorf("failed to marshal analysis result: %w", err)
	}

	messageCount, participantCount := 0, 0
	if doc.Summary != nil {
		messageCount = doc.Summary.TotalMessages
		participantCount = doc.Summary.ParticipantCount
	}

	query := `
		INSERT INTO analysis_results (
			id, conversation_id, document, message_count, participant_count,
			has_error, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON DUPLICATE KEY UPDATE
			document = VALUES(document),
			message_count = VALUES(message_count),
			participant_count = VALUES(participant_count),
			has_error = VALUES(has_error),
			updated_at = VALUES(updated_at)
	`

	now := time.Now()
	_, err = r.db.db.ExecContext(ctx, query,
		uuid.New().String(), conversationID, raw, messageCount,
		participantCount, doc.Error != nil, now, now,
	)

	if err != nil {
		r.logger.WithError(err).WithField("conversation_id", conversationID).Error("Failed to save analysis result")
		return fmt.Errorf("failed to save analysis result: %w", err)
	}

	r.logger.WithFields(logrus.Fields{
		"conversation_id": conversationID,
		"messages":        messageCount,
		"participants":    participantCount,
	}).Info("Analysis result saved")

	return nil
}

// Delete removes the cached document for a conversation, forcing the next
// analysis to recompute.
func (r *Repository) Delete(ctx context.Context, conversationID string) error {
	_, err := r.db.db.ExecContext(ctx, `DELETE FROM analysis_results WHERE conversation_id = ?`, conversationID)
	if err != nil {
		return fmt.Errorf("failed to delete analysis result: %w", err)
	}
	return nil
}

// RecordRun inserts one row into the run history. It satisfies
// analytics.RunRecorder, so the orchestrator records every completed run when
// this repository is the configured store.
func (r *Repository) RecordRun(ctx context.Context, rec analytics.RunRecord) error {
	run := &Run{
		ID:             uuid.New().String(),
		ConversationID: rec.ConversationID,
		Strategy:       rec.Strategy,
		Status:         rec.Status,
		DurationMs:     rec.Duration.Milliseconds(),
		ErrorMessage:   rec.ErrorMessage,
		CreatedAt:      time.Now(),
	}

	query := `
		INSERT INTO analysis_runs (
			id, conversation_id, strategy, status, duration_ms, error_message, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.db.ExecContext(ctx, query,
		run.ID, run.ConversationID, run.Strategy, run.Status,
		run.DurationMs, run.ErrorMessage, run.CreatedAt,
	)

	if err != nil {
		r.logger.WithError(err).Error("Failed to record analysis run")
		return fmt.Errorf("failed to record analysis run: %w", err)
	}

	return nil
}

// ListRuns returns the run history for a conversation, newest first.
func (r *Repository) ListRuns(ctx context.Context, conversationID string, limit int) ([]*Run, error) {
	query := `
		SELECT id, conversation_id, strategy, status, duration_ms, error_message, created_at
		FROM analysis_runs
		WHERE conversation_id = ?
		ORDER BY created_at DESC
	`
	args := []interface{}{conversationID}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := r.db.db.QueryContext(ctx, query, args...)
	if err != nil {
		r.logger.WithError(err).Error("Failed to list analysis runs")
		return nil, fmt.Errorf("failed to list analysis runs: %w", err)
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		run := &Run{}
		var errorMessage sql.NullString
		err := rows.Scan(
			&run.ID, &run.ConversationID, &run.Strategy, &run.Status,
			&run.DurationMs, &errorMessage, &run.CreatedAt,
		)
		if err != nil {
			r.logger.WithError(err).Error("Failed to scan analysis run row")
			continue
		}
		run.ErrorMessage = errorMessage.String
		runs = append(runs, run)
	}

	return runs, rows.Err()
}

// Run is one row of the analysis run history.
type Run struct {
	ID             string    `json:"id"`
	ConversationID string    `json:"conversation_id"`
	Strategy       string    `json:"strategy"`
	Status         string    `json:"status"`
	DurationMs     int64     `json:"duration_ms"`
	ErrorMessage   string    `json:"error_message,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}
