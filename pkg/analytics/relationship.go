package analytics

import (
	"context"
	"time"

	"chatlytics-server/pkg/conversation"
)

// RelationshipInsights covers reciprocity, conversational balance, response
// styles, support roles and emotional tone, plus a composite health score.
type RelationshipInsights struct {
	ResponseRates     map[string]float64          `json:"responseRates"`
	Balance           *ConversationBalance        `json:"conversationBalance"`
	ResponseProfiles  map[string]*ResponseProfile `json:"responseProfiles"`
	SupportTypes      map[string]string           `json:"supportTypes"`
	TopicControl      map[string]float64          `json:"topicControl"`
	EmotionalDynamics *EmotionalDynamics          `json:"emotionalDynamics"`
	HealthScore       float64                     `json:"healthScore"`
}

// ConversationBalance classifies multi-participant conversations as balanced
// or one-sided.
type ConversationBalance struct {
	BalancedCount   int            `json:"balancedCount"`
	OneSidedCount   int            `json:"oneSidedCount"`
	BalancePercent  float64        `json:"balancePercent"`
	DominantSpeaker map[string]int `json:"dominantSpeakers"`
}

// ResponseProfile buckets a participant's response behavior into a speed
// tier.
type ResponseProfile struct {
	Tier           string  `json:"tier"`
	AverageSeconds float64 `json:"averageSeconds"`
	MinSeconds     float64 `json:"minSeconds"`
	MaxSeconds     float64 `json:"maxSeconds"`
	ResponseCount  int     `json:"responseCount"`
}

// EmotionalDynamics is the lexicon-based tone split.
type EmotionalDynamics struct {
	PositivePercent   float64 `json:"positivePercent"`
	NegativePercent   float64 `json:"negativePercent"`
	SupportivePercent float64 `json:"supportivePercent"`
	NeutralPercent    float64 `json:"neutralPercent"`
	Label             string  `json:"label"`
}

// RelationshipAnalyzer computes the relationshipInsights namespace. It keeps
// its own segmentation pass with its own named gap so the analyzers stay
// decoupled from one another.
type RelationshipAnalyzer struct {
	reciprocityWindow time.Duration
	sessionGap        time.Duration
	profileCeiling    time.Duration
}

func NewRelationshipAnalyzer(reciprocityWindow, sessionGap, profileCeiling time.Duration) *RelationshipAnalyzer {
	if reciprocityWindow <= 0 {
		reciprocityWindow = 2 * time.Hour
	}
	if sessionGap <= 0 {
		sessionGap = 30 * time.Minute
	}
	if profileCeiling <= 0 {
		profileCeiling = 48 * time.Hour
	}
	return &RelationshipAnalyzer{
		reciprocityWindow: reciprocityWindow,
		sessionGap:        sessionGap,
		profileCeiling:    profileCeiling,
	}
}

func (a *RelationshipAnalyzer) Name() string { return "relationshipInsights" }

func (a *RelationshipAnalyzer) Analyze(_ context.Context, snap *conversation.Snapshot) (*Document, error) {
	result := &RelationshipInsights{
		ResponseRates:    map[string]float64{},
		ResponseProfiles: map[string]*ResponseProfile{},
		SupportTypes:     map[string]string{},
		TopicControl:     map[string]float64{},
	}

	msgs := snap.SortedMessages()
	if len(msgs) == 0 {
		result.Balance = &ConversationBalance{DominantSpeaker: map[string]int{}}
		result.EmotionalDynamics = &EmotionalDynamics{Label: "neutral"}
		return &Document{Relationship: result}, nil
	}

	sentByID := make(map[string]int)
	for _, m := range msgs {
		sentByID[m.SenderID]++
	}

	responsesGiven := a.reciprocity(msgs)
	for id, given := range responsesGiven {
		received := len(msgs) - sentByID[id]
		if received > 0 {
			result.ResponseRates[snap.DisplayName(id)] = round2(float64(given) / float64(received))
		}
	}

	result.Balance = a.balance(msgs, snap)
	a.responseProfiles(msgs, snap, result.ResponseProfiles)
	a.supportTypes(msgs, snap, result.SupportTypes)
	a.topicControl(msgs, snap, result.TopicControl)
	result.EmotionalDynamics = emotionalDynamics(msgs)
	result.HealthScore = a.healthScore(result, responsesGiven)

	return &Document{Relationship: result}, nil
}

// reciprocity records a response edge whenever the sender switches between
// consecutive messages within the reciprocity window.
func (a *RelationshipAnalyzer) reciprocity(msgs []conversation.Message) map[string]int {
	given := make(map[string]int)
	for i := 1; i < len(msgs); i++ {
		if msgs[i].SenderID == msgs[i-1].SenderID {
			continue
		}
		gap := msgs[i].Timestamp.Sub(msgs[i-1].Timestamp)
		if gap >= 0 && gap <= a.reciprocityWindow {
			given[msgs[i].SenderID]++
		}
	}
	return given
}

// balance re-segments with this analyzer's own gap and classifies every
// multi-participant conversation by its message-count ratio.
func (a *RelationshipAnalyzer) balance(msgs []conversation.Message, snap *conversation.Snapshot) *ConversationBalance {
	out := &ConversationBalance{DominantSpeaker: map[string]int{}}

	multiParty := 0
	for _, seg := range conversation.SplitByGap(msgs, a.sessionGap) {
		counts := make(map[string]int)
		for _, m := range seg.Messages {
			counts[m.SenderID]++
		}
		if len(counts) < 2 {
			continue
		}
		multiParty++

		minCount, maxCount, dominant := len(seg.Messages), 0, ""
		for id, c := range counts {
			if c < minCount {
				minCount = c
			}
			if c > maxCount {
				maxCount, dominant = c, id
			}
		}
		if float64(maxCount)/float64(minCount) <= 2 {
			out.BalancedCount++
		} else {
			out.OneSidedCount++
			out.DominantSpeaker[snap.DisplayName(dominant)]++
		}
	}
	if multiParty > 0 {
		out.BalancePercent = percentOf(out.BalancedCount, multiParty)
	}
	return out
}

// responseTiers maps average response time onto five labeled speed tiers.
var responseTiers = []struct {
	limit time.Duration
	label string
}{
	{5 * time.Minute, "Lightning Fast"},
	{30 * time.Minute, "Quick Responder"},
	{2 * time.Hour, "Steady"},
	{12 * time.Hour, "Slow Burner"},
	{0, "Takes Their Time"},
}

func responseTier(avg time.Duration) string {
	for _, tier := range responseTiers {
		if tier.limit > 0 && avg < tier.limit {
			return tier.label
		}
	}
	return responseTiers[len(responseTiers)-1].label
}

func (a *RelationshipAnalyzer) responseProfiles(msgs []conversation.Message, snap *conversation.Snapshot, out map[string]*ResponseProfile) {
	type agg struct {
		total    time.Duration
		min, max time.Duration
		count    int
	}
	byID := make(map[string]*agg)
	for i := 1; i < len(msgs); i++ {
		if msgs[i].SenderID == msgs[i-1].SenderID {
			continue
		}
		gap := msgs[i].Timestamp.Sub(msgs[i-1].Timestamp)
		if gap < 0 || gap > a.profileCeiling {
			continue
		}
		u, ok := byID[msgs[i].SenderID]
		if !ok {
			u = &agg{min: gap, max: gap}
			byID[msgs[i].SenderID] = u
		}
		if gap < u.min {
			u.min = gap
		}
		if gap > u.max {
			u.max = gap
		}
		u.total += gap
		u.count++
	}
	for id, u := range byID {
		avg := u.total / time.Duration(u.count)
		out[snap.DisplayName(id)] = &ResponseProfile{
			Tier:           responseTier(avg),
			AverageSeconds: round1(avg.Seconds()),
			MinSeconds:     round1(u.min.Seconds()),
			MaxSeconds:     round1(u.max.Seconds()),
			ResponseCount:  u.count,
		}
	}
}

// supportTypes tallies each participant's messages against the four support
// lexicons and keeps the dominant category.
func (a *RelationshipAnalyzer) supportTypes(msgs []conversation.Message, snap *conversation.Snapshot, out map[string]string) {
	type tally struct{ question, help, emotional, encouragement int }
	byID := make(map[string]*tally)
	for _, m := range msgs {
		if m.Kind != conversation.KindText {
			continue
		}
		t, ok := byID[m.SenderID]
		if !ok {
			t = &tally{}
			byID[m.SenderID] = t
		}
		if countRune(m.Content, '?') > 0 {
			t.question++
		}
		if matchesAny(m.Content, helpSeekingPhrases) {
			t.help++
		}
		if matchesAny(m.Content, emotionalSupportPhrases) {
			t.emotional++
		}
		if matchesAny(m.Content, encouragementPhrases) {
			t.encouragement++
		}
	}
	for id, t := range byID {
		label, best := "neutral", 0
		for _, c := range []struct {
			n     int
			label string
		}{
			{t.question, "asks questions"},
			{t.help, "seeks help"},
			{t.emotional, "offers emotional support"},
			{t.encouragement, "encourages"},
		} {
			if c.n > best {
				label, best = c.label, c.n
			}
		}
		out[snap.DisplayName(id)] = label
	}
}

// topicControl weights topic-shift phrases and post-gap conversation starts
// into a control score per participant.
func (a *RelationshipAnalyzer) topicControl(msgs []conversation.Message, snap *conversation.Snapshot, out map[string]float64) {
	scoreByID := make(map[string]float64)
	for _, m := range msgs {
		if m.Kind == conversation.KindText && matchesAny(m.Content, topicShiftPhrases) {
			scoreByID[m.SenderID]++
		}
	}
	for _, seg := range conversation.SplitByGap(msgs, a.sessionGap) {
		scoreByID[seg.First().SenderID] += 2
	}
	for id, score := range scoreByID {
		out[snap.DisplayName(id)] = score
	}
}

func emotionalDynamics(msgs []conversation.Message) *EmotionalDynamics {
	var positive, negative, supportive, neutral, total int
	for _, m := range msgs {
		if m.Kind != conversation.KindText {
			continue
		}
		total++
		switch {
		case matchesAny(m.Content, positiveWords):
			positive++
		case matchesAny(m.Content, negativeWords):
			negative++
		case matchesAny(m.Content, supportiveWords):
			supportive++
		default:
			neutral++
		}
	}
	out := &EmotionalDynamics{Label: "neutral"}
	if total == 0 {
		return out
	}
	out.PositivePercent = percentOf(positive, total)
	out.NegativePercent = percentOf(negative, total)
	out.SupportivePercent = percentOf(supportive, total)
	out.NeutralPercent = percentOf(neutral, total)

	best := neutral
	if positive > best {
		out.Label, best = "mostly positive", positive
	}
	if negative > best {
		out.Label, best = "mostly negative", negative
	}
	if supportive > best {
		out.Label, best = "mostly supportive", supportive
	}
	return out
}

// healthScore rewards reciprocity, balance and responder diversity on a
// 0-100 scale.
func (a *RelationshipAnalyzer) healthScore(r *RelationshipInsights, responsesGiven map[string]int) float64 {
	score := 50.0

	rates := make([]float64, 0, len(r.ResponseRates))
	for _, rate := range r.ResponseRates {
		rates = append(rates, rate)
	}
	avgRate := mean(rates)
	switch {
	case avgRate >= 0.7:
		score += 20
	case avgRate >= 0.5:
		score += 10
	}

	switch {
	case r.Balance.BalancePercent >= 80:
		score += 15
	case r.Balance.BalancePercent >= 60:
		score += 10
	}

	if len(responsesGiven) > 1 {
		score += 15
	}

	return clampScore(score)
}
