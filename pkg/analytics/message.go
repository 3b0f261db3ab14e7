package analytics

import (
	"context"

	"chatlytics-server/pkg/conversation"
)

// Summary is the mandatory top-level namespace. Per-participant maps are
// keyed by display name; accumulation happens on stable participant IDs and
// names are resolved only when the namespace is emitted, so duplicate display
// names collapse at serialization time instead of corrupting the counters.
type Summary struct {
	TotalMessages    int                `json:"totalMessages"`
	ParticipantCount int                `json:"participantCount"`
	MessagesPerUser  map[string]int     `json:"messagesPerUser"`
	UserPercentages  map[string]float64 `json:"userPercentages"`
	DateRange        string             `json:"dateRange"`
	DurationDays     int                `json:"durationDays"`
	DailyAverage     float64            `json:"dailyAverage"`
	MediaCount       int                `json:"mediaCount"`
}

// MessageAnalyzer produces the summary namespace: volume, share, duration and
// media statistics. Empty input yields zeroed fields rather than an error.
type MessageAnalyzer struct{}

func NewMessageAnalyzer() *MessageAnalyzer { return &MessageAnalyzer{} }

func (a *MessageAnalyzer) Name() string { return "summary" }

func (a *MessageAnalyzer) Analyze(_ context.Context, snap *conversation.Snapshot) (*Document, error) {
	return &Document{Summary: a.summarize(snap)}, nil
}

func (a *MessageAnalyzer) summarize(snap *conversation.Snapshot) *Summary {
	summary := &Summary{
		MessagesPerUser: map[string]int{},
		UserPercentages: map[string]float64{},
	}

	msgs := snap.SortedMessages()
	if len(msgs) == 0 {
		return summary
	}

	countsByID := make(map[string]int)
	for _, m := range msgs {
		summary.TotalMessages++
		countsByID[m.SenderID]++
		if m.Kind.IsMedia() {
			summary.MediaCount++
		}
	}

	summary.ParticipantCount = len(countsByID)
	for id, count := range countsByID {
		name := snap.DisplayName(id)
		summary.MessagesPerUser[name] += count
	}
	for name, count := range summary.MessagesPerUser {
		summary.UserPercentages[name] = percentOf(count, summary.TotalMessages)
	}

	first := msgs[0].Timestamp
	last := msgs[len(msgs)-1].Timestamp
	summary.DateRange = first.Format("2006-01-02") + " - " + last.Format("2006-01-02")
	summary.DurationDays = daySpan(first, last)
	if summary.DurationDays > 0 {
		summary.DailyAverage = round2(float64(summary.TotalMessages) / float64(summary.DurationDays))
	}

	return summary
}
