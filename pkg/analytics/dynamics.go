package analytics

import (
	"context"
	"strings"
	"time"

	"chatlytics-server/pkg/conversation"
)

// Dynamics describes conversation-level structure: who opens and closes
// conversations, how long they run and how the turns flow.
type Dynamics struct {
	ConversationCount    int                `json:"conversationCount"`
	AverageLength        float64            `json:"averageLength"`
	MinLength            int                `json:"minLength"`
	MaxLength            int                `json:"maxLength"`
	Initiators           map[string]int     `json:"conversationInitiators"`
	InitiatorPercentages map[string]float64 `json:"initiatorPercentages"`
	Enders               map[string]int     `json:"conversationEnders"`
	EnderPercentages     map[string]float64 `json:"enderPercentages"`
	FlowTypes            map[string]int     `json:"dialogFlowTypes"`
	FlowPatterns         map[string]int     `json:"flowPatterns"`
	HealthScore          float64            `json:"healthScore"`
}

const (
	flowRapidFire = "rapidFire"
	flowBalanced  = "balanced"
	flowMonologue = "monologue"
)

// DynamicsAnalyzer segments the log into conversations by a configurable time
// gap and classifies each one's dialog flow.
type DynamicsAnalyzer struct {
	sessionGap   time.Duration
	rapidFireGap time.Duration
}

func NewDynamicsAnalyzer(sessionGap, rapidFireGap time.Duration) *DynamicsAnalyzer {
	if sessionGap <= 0 {
		sessionGap = 30 * time.Minute
	}
	if rapidFireGap <= 0 {
		rapidFireGap = 10 * time.Second
	}
	return &DynamicsAnalyzer{sessionGap: sessionGap, rapidFireGap: rapidFireGap}
}

func (a *DynamicsAnalyzer) Name() string { return "conversationDynamics" }

func (a *DynamicsAnalyzer) Analyze(_ context.Context, snap *conversation.Snapshot) (*Document, error) {
	result := &Dynamics{
		Initiators:           map[string]int{},
		InitiatorPercentages: map[string]float64{},
		Enders:               map[string]int{},
		EnderPercentages:     map[string]float64{},
		FlowTypes:            map[string]int{},
		FlowPatterns:         map[string]int{},
	}

	segments := conversation.SplitByGap(snap.SortedMessages(), a.sessionGap)
	if len(segments) == 0 {
		return &Document{Dynamics: result}, nil
	}

	result.ConversationCount = len(segments)
	result.MinLength = len(segments[0].Messages)

	initiatorsByID := make(map[string]int)
	endersByID := make(map[string]int)
	totalLength := 0

	for _, seg := range segments {
		n := len(seg.Messages)
		totalLength += n
		if n < result.MinLength {
			result.MinLength = n
		}
		if n > result.MaxLength {
			result.MaxLength = n
		}
		initiatorsByID[seg.First().SenderID]++
		endersByID[seg.Last().SenderID]++

		result.FlowTypes[a.classifyFlow(seg)]++
		result.FlowPatterns[encodeFlowPattern(seg)]++
	}

	result.AverageLength = round1(float64(totalLength) / float64(len(segments)))
	for id, count := range initiatorsByID {
		name := snap.DisplayName(id)
		result.Initiators[name] += count
	}
	for id, count := range endersByID {
		name := snap.DisplayName(id)
		result.Enders[name] += count
	}
	for name, count := range result.Initiators {
		result.InitiatorPercentages[name] = percentOf(count, len(segments))
	}
	for name, count := range result.Enders {
		result.EnderPercentages[name] = percentOf(count, len(segments))
	}

	result.HealthScore = a.healthScore(result, len(segments))

	return &Document{Dynamics: result}, nil
}

// classifyFlow labels one conversation: rapid-fire needs actual back and
// forth under the rapid-fire gap, balanced needs at least two senders with a
// message-count ratio under 3:1, everything else is a monologue.
func (a *DynamicsAnalyzer) classifyFlow(seg conversation.Segment) string {
	senderCounts := make(map[string]int)
	for _, m := range seg.Messages {
		senderCounts[m.SenderID]++
	}

	if len(senderCounts) >= 2 && len(seg.Messages) >= 2 {
		avgGap := seg.Duration() / time.Duration(len(seg.Messages)-1)
		if avgGap < a.rapidFireGap {
			return flowRapidFire
		}
		minCount, maxCount := len(seg.Messages), 0
		for _, c := range senderCounts {
			if c < minCount {
				minCount = c
			}
			if c > maxCount {
				maxCount = c
			}
		}
		if minCount > 0 && float64(maxCount)/float64(minCount) < 3 {
			return flowBalanced
		}
	}
	return flowMonologue
}

// encodeFlowPattern run-length encodes the sender sequence over two symbols:
// S for a single-turn run, B for a multi-message burst by the same sender.
func encodeFlowPattern(seg conversation.Segment) string {
	var b strings.Builder
	runLength := 0
	for i, m := range seg.Messages {
		runLength++
		last := i == len(seg.Messages)-1
		if !last && seg.Messages[i+1].SenderID == m.SenderID {
			continue
		}
		if runLength == 1 {
			b.WriteByte('S')
		} else {
			b.WriteByte('B')
		}
		runLength = 0
	}
	return b.String()
}

// healthScore rewards balanced initiation and flow variety on a 0-100 scale.
func (a *DynamicsAnalyzer) healthScore(d *Dynamics, segments int) float64 {
	score := 50.0

	maxShare := 0.0
	for _, count := range d.Initiators {
		share := float64(count) / float64(segments)
		if share > maxShare {
			maxShare = share
		}
	}
	switch {
	case maxShare <= 0.6:
		score += 25
	case maxShare <= 0.7:
		score += 15
	}

	variety := 0
	for _, count := range d.FlowTypes {
		if count > 0 {
			variety++
		}
	}
	if variety > 1 {
		score += float64(variety-1) * 12.5
	}

	return clampScore(score)
}
