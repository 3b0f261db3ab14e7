package conversation

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSnapshotDerivesBounds(t *testing.T) {
	base := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	msgs := []Message{
		{SenderID: "u2", Timestamp: base.Add(2 * time.Hour), Content: "later", Kind: KindText},
		{SenderID: "u1", Timestamp: base, Content: "earlier", Kind: KindText},
	}
	snap := NewSnapshot("conv-1", msgs, []Participant{{ID: "u1", DisplayName: "Alice"}, {ID: "u2", DisplayName: "Bob"}})

	assert.Equal(t, base, snap.FirstMessageAt)
	assert.Equal(t, base.Add(2*time.Hour), snap.LastMessageAt)
	assert.Equal(t, 1, snap.SpanDays())
}

func TestSortedMessagesIsChronological(t *testing.T) {
	base := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	snap := NewSnapshot("conv-1", []Message{
		{SenderID: "u1", Timestamp: base.Add(time.Minute), Content: "second", Kind: KindText},
		{SenderID: "u1", Timestamp: base, Content: "first", Kind: KindText},
		{SenderID: "u1", Timestamp: base.Add(2 * time.Minute), Content: "third", Kind: KindText},
	}, nil)

	sorted := snap.SortedMessages()
	require.Len(t, sorted, 3)
	assert.Equal(t, "first", sorted[0].Content)
	assert.Equal(t, "third", sorted[2].Content)
}

func TestIsSystemMessage(t *testing.T) {
	now := time.Now()
	tests := []struct {
		name string
		msg  Message
		want bool
	}{
		{"system sender", Message{SenderID: "System", Timestamp: now, Content: "hello"}, true},
		{"subject change", Message{SenderID: "u1", Timestamp: now, Content: "Alice changed the subject"}, true},
		{"member notice", Message{SenderID: "u1", Timestamp: now, Content: "Bob left"}, true},
		{"regular text", Message{SenderID: "u1", Timestamp: now, Content: "see you tomorrow"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsSystemMessage(tt.msg))
		})
	}
}

func TestRealMessagesFiltersSystemTraffic(t *testing.T) {
	now := time.Now()
	snap := NewSnapshot("conv-1", []Message{
		{SenderID: "u1", Timestamp: now, Content: "morning", Kind: KindText},
		{SenderID: "System", Timestamp: now, Content: "Alice created this group", Kind: KindText},
		{SenderID: "u2", Timestamp: now, Content: "morning to you", Kind: KindText},
	}, []Participant{{ID: "u1"}, {ID: "System"}, {ID: "u2"}})

	assert.Len(t, snap.RealMessages(), 2)
	assert.Len(t, snap.RealParticipants(), 2)
}

func TestSplitByGapKnownBoundaries(t *testing.T) {
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	msgs := []Message{
		{SenderID: "u1", Timestamp: base},
		{SenderID: "u2", Timestamp: base.Add(5 * time.Second)},
		{SenderID: "u1", Timestamp: base.Add(10 * time.Second)},
		{SenderID: "u2", Timestamp: base.Add(10*time.Second + 40*time.Minute)},
		{SenderID: "u1", Timestamp: base.Add(15*time.Second + 40*time.Minute)},
	}

	segments := SplitByGap(msgs, 30*time.Minute)
	require.Len(t, segments, 2)
	assert.Len(t, segments[0].Messages, 3)
	assert.Len(t, segments[1].Messages, 2)

	// Every adjacent gap inside a segment stays at or below the threshold.
	for _, seg := range segments {
		for i := 1; i < len(seg.Messages); i++ {
			gap := seg.Messages[i].Timestamp.Sub(seg.Messages[i-1].Timestamp)
			assert.LessOrEqual(t, gap, 30*time.Minute)
		}
	}
}

func TestSplitByGapEmptyInput(t *testing.T) {
	assert.Nil(t, SplitByGap(nil, time.Minute))
}
