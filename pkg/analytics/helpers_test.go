package analytics

import (
	"time"

	"chatlytics-server/pkg/conversation"
)

var testBase = time.Date(2025, 4, 7, 9, 0, 0, 0, time.UTC) // a Monday

func testParticipants() []conversation.Participant {
	return []conversation.Participant{
		{ID: "u-alice", DisplayName: "Alice"},
		{ID: "u-bob", DisplayName: "Bob"},
	}
}

func msg(sender string, at time.Time, content string) conversation.Message {
	return conversation.Message{
		SenderID:  sender,
		Timestamp: at,
		Content:   content,
		Kind:      conversation.KindText,
	}
}

func mediaMsg(sender string, at time.Time, kind conversation.MessageKind) conversation.Message {
	return conversation.Message{
		SenderID:  sender,
		Timestamp: at,
		Content:   "<media omitted>",
		Kind:      kind,
	}
}

func snapshotOf(msgs ...conversation.Message) *conversation.Snapshot {
	return conversation.NewSnapshot("conv-test", msgs, testParticipants())
}

// alternating builds n messages alternating Alice/Bob, step apart, all text.
func alternating(n int, start time.Time, step time.Duration) []conversation.Message {
	senders := []string{"u-alice", "u-bob"}
	contents := []string{"sounds good to me", "what do you think?"}
	msgs := make([]conversation.Message, 0, n)
	for i := 0; i < n; i++ {
		msgs = append(msgs, msg(senders[i%2], start.Add(time.Duration(i)*step), contents[i%2]))
	}
	return msgs
}
