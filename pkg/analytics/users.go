package analytics

import (
	"context"
	"sort"
	"time"
	"unicode/utf8"

	"chatlytics-server/pkg/conversation"
)

// UserStats is the per-participant profile namespace.
type UserStats struct {
	Users            map[string]*UserProfile `json:"users"`
	MostTalkative    string                  `json:"mostTalkative,omitempty"`
	LeastTalkative   string                  `json:"leastTalkative,omitempty"`
	FastestResponder string                  `json:"fastestResponder,omitempty"`
	SlowestResponder string                  `json:"slowestResponder,omitempty"`
}

// UserProfile aggregates one participant's message statistics.
type UserProfile struct {
	MessageCount           int     `json:"messageCount"`
	WordCount              int     `json:"wordCount"`
	CharacterCount         int     `json:"characterCount"`
	MediaCount             int     `json:"mediaCount"`
	EmojiCount             int     `json:"emojiCount"`
	AverageLength          float64 `json:"averageLength"`
	AverageResponseSeconds float64 `json:"averageResponseSeconds"`
	ResponseCount          int     `json:"responseCount"`
}

// UserAnalyzer computes the userStats namespace. Response times are recorded
// whenever the sender changes between chronologically adjacent messages and
// the gap stays under the sanity ceiling; longer gaps are treated as a fresh
// exchange rather than a response.
type UserAnalyzer struct {
	responseCeiling time.Duration
}

func NewUserAnalyzer(responseCeiling time.Duration) *UserAnalyzer {
	if responseCeiling <= 0 {
		responseCeiling = 24 * time.Hour
	}
	return &UserAnalyzer{responseCeiling: responseCeiling}
}

func (a *UserAnalyzer) Name() string { return "userStats" }

type userAccumulator struct {
	id            string
	messages      int
	words         int
	characters    int
	media         int
	emojis        int
	responseTotal time.Duration
	responses     int
}

func (a *UserAnalyzer) Analyze(_ context.Context, snap *conversation.Snapshot) (*Document, error) {
	result := &UserStats{Users: map[string]*UserProfile{}}
	msgs := snap.SortedMessages()
	if len(msgs) == 0 {
		return &Document{UserStats: result}, nil
	}

	accs := make(map[string]*userAccumulator)
	order := make([]string, 0, 8)
	acc := func(id string) *userAccumulator {
		u, ok := accs[id]
		if !ok {
			u = &userAccumulator{id: id}
			accs[id] = u
			order = append(order, id)
		}
		return u
	}

	for i, m := range msgs {
		u := acc(m.SenderID)
		u.messages++
		if i > 0 && msgs[i-1].SenderID != m.SenderID {
			gap := m.Timestamp.Sub(msgs[i-1].Timestamp)
			if gap >= 0 && gap < a.responseCeiling {
				u.responseTotal += gap
				u.responses++
			}
		}
		if m.Kind.IsMedia() {
			u.media++
			continue
		}
		u.words += len(tokenizeWords(m.Content))
		u.characters += utf8.RuneCountInString(m.Content)
		u.emojis += len(extractEmojis(m.Content))
	}

	for id, u := range accs {
		profile := &UserProfile{
			MessageCount:   u.messages,
			WordCount:      u.words,
			CharacterCount: u.characters,
			MediaCount:     u.media,
			EmojiCount:     u.emojis,
			ResponseCount:  u.responses,
		}
		if u.messages > 0 {
			profile.AverageLength = round1(float64(u.characters) / float64(u.messages))
		}
		if u.responses > 0 {
			profile.AverageResponseSeconds = round1(u.responseTotal.Seconds() / float64(u.responses))
		}
		result.Users[snap.DisplayName(id)] = profile
	}

	// Superlatives tie-break on first-seen sender order via stable sort.
	byCount := make([]*userAccumulator, len(order))
	for i, id := range order {
		byCount[i] = accs[id]
	}
	sort.SliceStable(byCount, func(i, j int) bool {
		return byCount[i].messages > byCount[j].messages
	})
	result.MostTalkative = snap.DisplayName(byCount[0].id)
	result.LeastTalkative = snap.DisplayName(byCount[len(byCount)-1].id)

	responders := make([]*userAccumulator, 0, len(order))
	for _, id := range order {
		if accs[id].responses > 0 {
			responders = append(responders, accs[id])
		}
	}
	if len(responders) > 0 {
		sort.SliceStable(responders, func(i, j int) bool {
			avgI := responders[i].responseTotal.Seconds() / float64(responders[i].responses)
			avgJ := responders[j].responseTotal.Seconds() / float64(responders[j].responses)
			return avgI < avgJ
		})
		result.FastestResponder = snap.DisplayName(responders[0].id)
		result.SlowestResponder = snap.DisplayName(responders[len(responders)-1].id)
	}

	return &Document{UserStats: result}, nil
}
