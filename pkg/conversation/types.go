package conversation

import (
	"sort"
	"time"
)

// MessageKind identifies the payload type of a message.
type MessageKind string

const (
	KindText     MessageKind = "text"
	KindImage    MessageKind = "image"
	KindVideo    MessageKind = "video"
	KindAudio    MessageKind = "audio"
	KindDocument MessageKind = "document"
	KindOther    MessageKind = "other"
)

// IsMedia reports whether the kind carries a media payload rather than text.
func (k MessageKind) IsMedia() bool {
	switch k {
	case KindImage, KindVideo, KindAudio, KindDocument:
		return true
	}
	return false
}

// Message is a single imported message. Messages are immutable once created
// and owned exclusively by the snapshot that holds them.
type Message struct {
	SenderID  string      `json:"sender_id"`
	Timestamp time.Time   `json:"timestamp"`
	Content   string      `json:"content"`
	Kind      MessageKind `json:"kind"`
}

// Participant identifies one sender in the conversation.
type Participant struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
}

// Snapshot is an immutable view of a single conversation produced by the
// import layer. Message order is insertion order as imported, which is not
// guaranteed to be chronological; callers that need chronology must use
// SortedMessages.
type Snapshot struct {
	ID           string        `json:"id"`
	Messages     []Message     `json:"messages"`
	Participants []Participant `json:"participants"`

	FirstMessageAt time.Time `json:"first_message_at"`
	LastMessageAt  time.Time `json:"last_message_at"`
}

// NewSnapshot builds a snapshot and derives the first/last message bounds.
func NewSnapshot(id string, messages []Message, participants []Participant) *Snapshot {
	s := &Snapshot{
		ID:           id,
		Messages:     messages,
		Participants: participants,
	}
	for _, m := range messages {
		if s.FirstMessageAt.IsZero() || m.Timestamp.Before(s.FirstMessageAt) {
			s.FirstMessageAt = m.Timestamp
		}
		if m.Timestamp.After(s.LastMessageAt) {
			s.LastMessageAt = m.Timestamp
		}
	}
	return s
}

// DisplayName resolves a participant ID to its display name. Unknown IDs
// fall back to the raw ID so downstream maps never lose a sender.
func (s *Snapshot) DisplayName(id string) string {
	for _, p := range s.Participants {
		if p.ID == id {
			if p.DisplayName != "" {
				return p.DisplayName
			}
			return p.ID
		}
	}
	return id
}

// RealParticipants returns the participants excluding the synthetic system
// sender, in snapshot order.
func (s *Snapshot) RealParticipants() []Participant {
	out := make([]Participant, 0, len(s.Participants))
	for _, p := range s.Participants {
		if p.ID == systemSenderID {
			continue
		}
		out = append(out, p)
	}
	return out
}

// RealMessages returns the messages with system traffic filtered out,
// preserving import order.
func (s *Snapshot) RealMessages() []Message {
	out := make([]Message, 0, len(s.Messages))
	for _, m := range s.Messages {
		if IsSystemMessage(m) {
			continue
		}
		out = append(out, m)
	}
	return out
}

// SortedMessages returns the real messages in chronological order. The sort
// is stable so equal timestamps keep their import order.
func (s *Snapshot) SortedMessages() []Message {
	msgs := s.RealMessages()
	sort.SliceStable(msgs, func(i, j int) bool {
		return msgs[i].Timestamp.Before(msgs[j].Timestamp)
	})
	return msgs
}

// SpanDays returns the whole-day span of the conversation, counting both the
// first and last calendar day.
func (s *Snapshot) SpanDays() int {
	if s.FirstMessageAt.IsZero() || s.LastMessageAt.IsZero() {
		return 0
	}
	first := truncateToDay(s.FirstMessageAt)
	last := truncateToDay(s.LastMessageAt)
	return int(last.Sub(first).Hours()/24) + 1
}

func truncateToDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
