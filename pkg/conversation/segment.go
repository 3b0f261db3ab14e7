package conversation

import "time"

// Segment is a maximal run of chronologically consecutive messages where
// every adjacent gap is at or below the threshold used to segment them.
type Segment struct {
	Messages []Message
}

// First returns the opening message of the segment.
func (s Segment) First() Message { return s.Messages[0] }

// Last returns the closing message of the segment.
func (s Segment) Last() Message { return s.Messages[len(s.Messages)-1] }

// Duration is the wall-clock span of the segment.
func (s Segment) Duration() time.Duration {
	return s.Last().Timestamp.Sub(s.First().Timestamp)
}

// SplitByGap partitions chronologically sorted messages into segments,
// starting a new segment whenever the gap to the previous message exceeds
// maxGap. The input must already be sorted; callers pass their own named gap
// threshold since different analyzers segment with different values.
func SplitByGap(msgs []Message, maxGap time.Duration) []Segment {
	if len(msgs) == 0 {
		return nil
	}
	segments := make([]Segment, 0, 8)
	start := 0
	for i := 1; i < len(msgs); i++ {
		if msgs[i].Timestamp.Sub(msgs[i-1].Timestamp) > maxGap {
			segments = append(segments, Segment{Messages: msgs[start:i]})
			start = i
		}
	}
	segments = append(segments, Segment{Messages: msgs[start:]})
	return segments
}
