package analytics

import (
	"context"
	"encoding/json"

	"chatlytics-server/pkg/conversation"
)

// Analyzer is one stage of the analytics run. Each analyzer reads the same
// immutable snapshot and fills exactly one namespace of the result document;
// namespaces are disjoint by construction so merging is conflict-free.
type Analyzer interface {
	// Name identifies the analyzer's namespace in logs and metrics.
	Name() string

	// Analyze computes the analyzer's namespace from the snapshot. Primitive
	// analyzers never return an error for empty or degenerate input; they
	// degrade to zeroed fields instead.
	Analyze(ctx context.Context, snap *conversation.Snapshot) (*Document, error)
}

// Document is the merged analysis result. One typed struct per analyzer
// namespace; a nil pointer means the namespace was not produced. The summary
// namespace is mandatory for downstream consumers, the error namespace marks
// a partial or failed run without losing the summary.
type Document struct {
	Summary      *Summary              `json:"summary,omitempty"`
	TimePatterns *TimePatterns         `json:"timePatterns,omitempty"`
	UserStats    *UserStats            `json:"userStats,omitempty"`
	Content      *ContentStats         `json:"contentStats,omitempty"`
	Dynamics     *Dynamics             `json:"conversationDynamics,omitempty"`
	Behavior     *BehaviorPatterns     `json:"behaviorPatterns,omitempty"`
	Relationship *RelationshipInsights `json:"relationshipInsights,omitempty"`
	Intelligence *ContentIntelligence  `json:"contentIntelligence,omitempty"`
	Temporal     *TemporalInsights     `json:"temporalInsights,omitempty"`
	Error        *AnalysisError        `json:"error,omitempty"`
}

// AnalysisError carries the failure description for a partial run.
type AnalysisError struct {
	Message   string   `json:"message"`
	Analyzers []string `json:"analyzers,omitempty"`
}

// InsufficientData is the explicit marker an analyzer emits inside its own
// namespace when the snapshot cannot support a meaningful result.
type InsufficientData struct {
	Reason string `json:"reason"`
	Hint   string `json:"hint,omitempty"`
}

// Merge copies every namespace present in other into d. Later writers win,
// but analyzers never produce overlapping namespaces.
func (d *Document) Merge(other *Document) {
	if other == nil {
		return
	}
	if other.Summary != nil {
		d.Summary = other.Summary
	}
	if other.TimePatterns != nil {
		d.TimePatterns = other.TimePatterns
	}
	if other.UserStats != nil {
		d.UserStats = other.UserStats
	}
	if other.Content != nil {
		d.Content = other.Content
	}
	if other.Dynamics != nil {
		d.Dynamics = other.Dynamics
	}
	if other.Behavior != nil {
		d.Behavior = other.Behavior
	}
	if other.Relationship != nil {
		d.Relationship = other.Relationship
	}
	if other.Intelligence != nil {
		d.Intelligence = other.Intelligence
	}
	if other.Temporal != nil {
		d.Temporal = other.Temporal
	}
	if other.Error != nil {
		d.Error = other.Error
	}
}

// Marshal is the canonical serialization: struct-driven key order plus
// encoding/json's sorted map keys keep the output byte-stable for identical
// inputs.
func (d *Document) Marshal() ([]byte, error) {
	return json.Marshal(d)
}

// UnmarshalDocument decodes a document previously produced by Marshal.
func UnmarshalDocument(data []byte) (*Document, error) {
	var d Document
	if err := json.Unmarshal(data, &d); err != nil {
		return nil, err
	}
	return &d, nil
}
