package analytics

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRelationshipAnalyzer() *RelationshipAnalyzer {
	return NewRelationshipAnalyzer(2*time.Hour, 30*time.Minute, 48*time.Hour)
}

func TestRelationshipBalancedExchange(t *testing.T) {
	// Two participants alternating one message each, all within a minute:
	// a single multi-party conversation with ratio 1.0.
	snap := snapshotOf(alternating(10, testBase, 6*time.Second)...)

	doc, err := newTestRelationshipAnalyzer().Analyze(context.Background(), snap)
	require.NoError(t, err)

	r := doc.Relationship
	require.NotNil(t, r)
	assert.Equal(t, 1, r.Balance.BalancedCount)
	assert.Equal(t, 0, r.Balance.OneSidedCount)
	assert.Equal(t, 100.0, r.Balance.BalancePercent)
	assert.Empty(t, r.Balance.DominantSpeaker)

	// Alice initiated the only conversation.
	assert.Equal(t, 2.0, r.TopicControl["Alice"])
	assert.Equal(t, 0.0, r.TopicControl["Bob"])
}

func TestRelationshipOneSidedExchange(t *testing.T) {
	msgs := []struct {
		sender string
		offset time.Duration
	}{
		{"u-alice", 0},
		{"u-alice", 10 * time.Second},
		{"u-alice", 20 * time.Second},
		{"u-alice", 30 * time.Second},
		{"u-alice", 40 * time.Second},
		{"u-bob", 50 * time.Second},
	}
	snap := snapshotOf(
		msg(msgs[0].sender, testBase.Add(msgs[0].offset), "hey"),
		msg(msgs[1].sender, testBase.Add(msgs[1].offset), "so"),
		msg(msgs[2].sender, testBase.Add(msgs[2].offset), "much"),
		msg(msgs[3].sender, testBase.Add(msgs[3].offset), "to tell you"),
		msg(msgs[4].sender, testBase.Add(msgs[4].offset), "about today"),
		msg(msgs[5].sender, testBase.Add(msgs[5].offset), "go on"),
	)

	doc, err := newTestRelationshipAnalyzer().Analyze(context.Background(), snap)
	require.NoError(t, err)

	r := doc.Relationship
	assert.Equal(t, 0, r.Balance.BalancedCount)
	assert.Equal(t, 1, r.Balance.OneSidedCount)
	assert.Equal(t, 0.0, r.Balance.BalancePercent)
	assert.Equal(t, 1, r.Balance.DominantSpeaker["Alice"])
}

func TestRelationshipResponseTiers(t *testing.T) {
	snap := snapshotOf(
		msg("u-alice", testBase, "are you around?"),
		msg("u-bob", testBase.Add(4*time.Minute), "yes just got in"),
		msg("u-bob", testBase.Add(5*time.Minute), "long day"),
		msg("u-alice", testBase.Add(5*time.Minute+20*time.Hour), "sorry, only seeing this now"),
	)

	doc, err := newTestRelationshipAnalyzer().Analyze(context.Background(), snap)
	require.NoError(t, err)

	profiles := doc.Relationship.ResponseProfiles
	require.NotNil(t, profiles["Bob"])
	assert.Equal(t, "Lightning Fast", profiles["Bob"].Tier)
	assert.Equal(t, 240.0, profiles["Bob"].AverageSeconds)
	assert.Equal(t, 1, profiles["Bob"].ResponseCount)

	require.NotNil(t, profiles["Alice"])
	assert.Equal(t, "Takes Their Time", profiles["Alice"].Tier)
	assert.Equal(t, 1, profiles["Alice"].ResponseCount)
}

func TestRelationshipResponseRates(t *testing.T) {
	// Bob answers both of Alice's messages; Alice never answers Bob's.
	snap := snapshotOf(
		msg("u-alice", testBase, "lunch today?"),
		msg("u-bob", testBase.Add(time.Minute), "sure"),
		msg("u-alice", testBase.Add(2*time.Hour+10*time.Minute), "running late"),
		msg("u-bob", testBase.Add(2*time.Hour+11*time.Minute), "no problem"),
	)

	doc, err := newTestRelationshipAnalyzer().Analyze(context.Background(), snap)
	require.NoError(t, err)

	rates := doc.Relationship.ResponseRates
	assert.Equal(t, 1.0, rates["Bob"])
	_, aliceResponded := rates["Alice"]
	assert.False(t, aliceResponded)
}

func TestRelationshipSupportTypes(t *testing.T) {
	snap := snapshotOf(
		msg("u-alice", testBase, "can you help me with the forms?"),
		msg("u-alice", testBase.Add(time.Minute), "i need help again, sorry"),
		msg("u-bob", testBase.Add(2*time.Minute), "you got this, proud of you"),
		msg("u-bob", testBase.Add(3*time.Minute), "good luck tomorrow"),
	)

	doc, err := newTestRelationshipAnalyzer().Analyze(context.Background(), snap)
	require.NoError(t, err)

	types := doc.Relationship.SupportTypes
	assert.Equal(t, "seeks help", types["Alice"])
	assert.Equal(t, "encourages", types["Bob"])
}

func TestRelationshipEmotionalDynamics(t *testing.T) {
	snap := snapshotOf(
		msg("u-alice", testBase, "that was amazing, i love it"),
		msg("u-bob", testBase.Add(time.Minute), "so happy for you"),
		msg("u-alice", testBase.Add(2*time.Minute), "thanks"),
	)

	doc, err := newTestRelationshipAnalyzer().Analyze(context.Background(), snap)
	require.NoError(t, err)

	e := doc.Relationship.EmotionalDynamics
	require.NotNil(t, e)
	assert.Equal(t, "mostly positive", e.Label)
	assert.InDelta(t, 100.0, e.PositivePercent+e.NegativePercent+e.SupportivePercent+e.NeutralPercent, 0.3)
}

func TestRelationshipEmptyInput(t *testing.T) {
	doc, err := newTestRelationshipAnalyzer().Analyze(context.Background(), snapshotOf())
	require.NoError(t, err)

	r := doc.Relationship
	require.NotNil(t, r)
	assert.Equal(t, 0.0, r.HealthScore)
	assert.Equal(t, "neutral", r.EmotionalDynamics.Label)
	assert.Empty(t, r.ResponseProfiles)
}

func TestRelationshipHealthScoreBounds(t *testing.T) {
	snap := snapshotOf(alternating(20, testBase, 30*time.Second)...)

	doc, err := newTestRelationshipAnalyzer().Analyze(context.Background(), snap)
	require.NoError(t, err)

	assert.GreaterOrEqual(t, doc.Relationship.HealthScore, 0.0)
	assert.LessOrEqual(t, doc.Relationship.HealthScore, 100.0)
}
