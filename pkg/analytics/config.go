package analytics

import "time"

// Config carries every analyzer threshold as a named value. Several
// analyzers segment conversations independently with their own gap; keeping
// each gap named here makes the divergence an explicit decision instead of an
// incidental constant.
type Config struct {
	// SessionGap is the dynamics analyzer's conversation-segmentation gap.
	SessionGap time.Duration `json:"session_gap"`

	// RelationshipSessionGap is the relationship analyzer's own segmentation
	// gap, deliberately independent of SessionGap.
	RelationshipSessionGap time.Duration `json:"relationship_session_gap"`

	// RapidFireGap is the average inter-message gap under which a
	// conversation counts as rapid-fire.
	RapidFireGap time.Duration `json:"rapid_fire_gap"`

	// ReciprocityWindow bounds how late a sender switch still counts as a
	// response edge.
	ReciprocityWindow time.Duration `json:"reciprocity_window"`

	// ResponseCeiling is the sanity ceiling on per-user response gaps.
	ResponseCeiling time.Duration `json:"response_ceiling"`

	// ResponseProfileCeiling bounds the relationship analyzer's speed-tier
	// profiles; wider than ResponseCeiling so the slowest tier stays
	// reachable.
	ResponseProfileCeiling time.Duration `json:"response_profile_ceiling"`

	// TopN limits word/emoji/domain rankings.
	TopN int `json:"top_n"`

	// LargeInputThreshold switches the orchestrator to the reduced strategy.
	LargeInputThreshold int `json:"large_input_threshold"`

	// ChunkSize is the window size for the reduced strategy's chunked folds.
	ChunkSize int `json:"chunk_size"`
}

// DefaultConfig returns the reference thresholds.
func DefaultConfig() Config {
	return Config{
		SessionGap:             30 * time.Minute,
		RelationshipSessionGap: 30 * time.Minute,
		RapidFireGap:           10 * time.Second,
		ReciprocityWindow:      2 * time.Hour,
		ResponseCeiling:        24 * time.Hour,
		ResponseProfileCeiling: 48 * time.Hour,
		TopN:                   20,
		LargeInputThreshold:    10000,
		ChunkSize:              2500,
	}
}
