package analytics

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"chatlytics-server/pkg/conversation"
)

// TemporalInsights tracks how the conversation evolves over its lifetime:
// response-time trends, intensity waves, engagement quarters, topic drift,
// activity correlation and milestone history.
type TemporalInsights struct {
	InsufficientData      *InsufficientData      `json:"insufficientData,omitempty"`
	ResponseEvolution     *ResponseEvolution     `json:"responseTimeEvolution,omitempty"`
	IntensityWaves        *IntensityWaves        `json:"intensityWaves,omitempty"`
	RelationshipEvolution *RelationshipEvolution `json:"relationshipEvolution,omitempty"`
	TopicEvolution        map[string]string      `json:"topicEvolution,omitempty"`
	ActivityCorrelation   *ActivityCorrelation   `json:"activityCorrelation,omitempty"`
	Timeline              []Milestone            `json:"timeline,omitempty"`
	EvolutionScore        float64                `json:"evolutionScore"`
}

// ResponseEvolution compares average response time across time segments.
type ResponseEvolution struct {
	SegmentUnit    string             `json:"segmentUnit"`
	SegmentCount   int                `json:"segmentCount"`
	FirstHalfAvg   float64            `json:"firstHalfAvgSeconds"`
	SecondHalfAvg  float64            `json:"secondHalfAvgSeconds"`
	PercentChange  float64            `json:"percentChange"`
	Trend          string             `json:"trend"`
	PerParticipant map[string]float64 `json:"perParticipantChange"`
}

// IntensityWaves detects peaks and valleys of a 7-day rolling activity
// average and labels each participant's behavior across them.
type IntensityWaves struct {
	Peaks            []WavePoint       `json:"peaks"`
	Valleys          []WavePoint       `json:"valleys"`
	SeriesMean       float64           `json:"seriesMean"`
	ParticipantMoods map[string]string `json:"participantMoods"`
}

// WavePoint is one flagged day in the rolling series.
type WavePoint struct {
	Date    string  `json:"date"`
	Rolling float64 `json:"rolling"`
}

// RelationshipEvolution compares engagement across four equal-duration
// quarters.
type RelationshipEvolution struct {
	QuarterScores []float64 `json:"quarterScores"`
	Trend         string    `json:"trend"`
}

// ActivityCorrelation is the Pearson correlation of hourly activity between
// participant pairs.
type ActivityCorrelation struct {
	InsufficientData *InsufficientData  `json:"insufficientData,omitempty"`
	Pairs            map[string]float64 `json:"pairs,omitempty"`
	BestPair         string             `json:"bestPair,omitempty"`
	BestCoefficient  float64            `json:"bestCoefficient,omitempty"`
	Label            string             `json:"label,omitempty"`
}

// Milestone is a notable point in the conversation's history.
type Milestone struct {
	Label string `json:"label"`
	Date  string `json:"date"`
}

// temporalMinSpanDays is the minimum log span the analyzer needs.
const temporalMinSpanDays = 30

var milestoneThresholds = []int{100, 500, 1000, 2500, 5000, 10000}

// TemporalAnalyzer computes the temporalInsights namespace.
type TemporalAnalyzer struct {
	responseCeiling time.Duration
}

func NewTemporalAnalyzer(responseCeiling time.Duration) *TemporalAnalyzer {
	if responseCeiling <= 0 {
		responseCeiling = 24 * time.Hour
	}
	return &TemporalAnalyzer{responseCeiling: responseCeiling}
}

func (a *TemporalAnalyzer) Name() string { return "temporalInsights" }

func (a *TemporalAnalyzer) Analyze(_ context.Context, snap *conversation.Snapshot) (*Document, error) {
	msgs := snap.SortedMessages()
	if len(msgs) == 0 {
		return &Document{Temporal: &TemporalInsights{
			InsufficientData: &InsufficientData{
				Reason: "no messages to analyze",
				Hint:   "import a conversation with activity first",
			},
		}}, nil
	}

	spanDays := daySpan(msgs[0].Timestamp, msgs[len(msgs)-1].Timestamp)
	if spanDays < temporalMinSpanDays {
		return &Document{Temporal: &TemporalInsights{
			InsufficientData: &InsufficientData{
				Reason: fmt.Sprintf("conversation spans %d days, need at least %d", spanDays, temporalMinSpanDays),
				Hint:   "come back once more history has accumulated",
			},
		}}, nil
	}

	result := &TemporalInsights{}
	result.ResponseEvolution = a.responseEvolution(msgs, snap, spanDays)
	result.IntensityWaves = a.intensityWaves(msgs, snap)
	result.RelationshipEvolution = a.relationshipEvolution(msgs)
	result.TopicEvolution = topicEvolution(msgs)
	result.ActivityCorrelation = activityCorrelation(msgs, snap)
	result.Timeline = timeline(msgs)
	result.EvolutionScore = evolutionScore(result)

	return &Document{Temporal: result}, nil
}

// responseEvolution buckets responses into weekly segments, monthly when the
// log spans more than a year, and compares the first half of segments to the
// second.
func (a *TemporalAnalyzer) responseEvolution(msgs []conversation.Message, snap *conversation.Snapshot, spanDays int) *ResponseEvolution {
	unit := "week"
	segmentDays := 7
	if spanDays > 365 {
		unit = "month"
		segmentDays = 30
	}

	origin := startOfDay(msgs[0].Timestamp)
	segmentOf := func(t time.Time) int {
		return int(startOfDay(t).Sub(origin).Hours() / 24 / float64(segmentDays))
	}
	segmentCount := segmentOf(msgs[len(msgs)-1].Timestamp) + 1

	type agg struct {
		total time.Duration
		count int
	}
	overall := make([]agg, segmentCount)
	perUser := make(map[string][]agg)

	for i := 1; i < len(msgs); i++ {
		if msgs[i].SenderID == msgs[i-1].SenderID {
			continue
		}
		gap := msgs[i].Timestamp.Sub(msgs[i-1].Timestamp)
		if gap < 0 || gap >= a.responseCeiling {
			continue
		}
		seg := segmentOf(msgs[i].Timestamp)
		overall[seg].total += gap
		overall[seg].count++
		series, ok := perUser[msgs[i].SenderID]
		if !ok {
			series = make([]agg, segmentCount)
			perUser[msgs[i].SenderID] = series
		}
		series[seg].total += gap
		series[seg].count++
	}

	halfAvg := func(series []agg, lo, hi int) float64 {
		var total time.Duration
		count := 0
		for i := lo; i < hi; i++ {
			total += series[i].total
			count += series[i].count
		}
		if count == 0 {
			return 0
		}
		return total.Seconds() / float64(count)
	}

	mid := segmentCount / 2
	first := halfAvg(overall, 0, mid)
	second := halfAvg(overall, mid, segmentCount)

	out := &ResponseEvolution{
		SegmentUnit:    unit,
		SegmentCount:   segmentCount,
		FirstHalfAvg:   round1(first),
		SecondHalfAvg:  round1(second),
		PerParticipant: map[string]float64{},
	}
	out.PercentChange, out.Trend = responseTrend(first, second)

	for id, series := range perUser {
		uFirst := halfAvg(series, 0, mid)
		uSecond := halfAvg(series, mid, segmentCount)
		change, _ := responseTrend(uFirst, uSecond)
		out.PerParticipant[snap.DisplayName(id)] = change
	}
	return out
}

// responseTrend classifies a percent change in average response time into six
// labels. Positive change means responses slowed down.
func responseTrend(first, second float64) (float64, string) {
	if first == 0 {
		if second == 0 {
			return 0, "stable"
		}
		return 100, "slowing down"
	}
	change := round1((second - first) / first * 100)
	switch {
	case change <= -50:
		return change, "dramatically faster"
	case change <= -20:
		return change, "speeding up"
	case change < 20:
		return change, "stable"
	case change < 50:
		return change, "slowing down"
	case change < 100:
		return change, "much slower"
	default:
		return change, "dramatically slower"
	}
}

// intensityWaves flags rolling-average local maxima above 1.5x the series
// mean as peaks and local minima below 0.5x as valleys.
func (a *TemporalAnalyzer) intensityWaves(msgs []conversation.Message, snap *conversation.Snapshot) *IntensityWaves {
	origin := startOfDay(msgs[0].Timestamp)
	last := startOfDay(msgs[len(msgs)-1].Timestamp)
	days := int(last.Sub(origin).Hours()/24) + 1

	daily := make([]float64, days)
	perUserDaily := make(map[string][]float64)
	for _, m := range msgs {
		idx := int(startOfDay(m.Timestamp).Sub(origin).Hours() / 24)
		daily[idx]++
		series, ok := perUserDaily[m.SenderID]
		if !ok {
			series = make([]float64, days)
			perUserDaily[m.SenderID] = series
		}
		series[idx]++
	}

	rolling := rollingAverage(daily, 7)
	seriesMean := mean(rolling)

	out := &IntensityWaves{
		Peaks:            []WavePoint{},
		Valleys:          []WavePoint{},
		SeriesMean:       round2(seriesMean),
		ParticipantMoods: map[string]string{},
	}

	peakDays := map[int]struct{}{}
	valleyDays := map[int]struct{}{}
	for i := 1; i < len(rolling)-1; i++ {
		date := dayKey(origin.AddDate(0, 0, i))
		if rolling[i] >= rolling[i-1] && rolling[i] >= rolling[i+1] && rolling[i] > 1.5*seriesMean {
			out.Peaks = append(out.Peaks, WavePoint{Date: date, Rolling: round2(rolling[i])})
			peakDays[i] = struct{}{}
		}
		if rolling[i] <= rolling[i-1] && rolling[i] <= rolling[i+1] && rolling[i] < 0.5*seriesMean {
			out.Valleys = append(out.Valleys, WavePoint{Date: date, Rolling: round2(rolling[i])})
			valleyDays[i] = struct{}{}
		}
	}

	for id, series := range perUserDaily {
		var peakMsgs, valleyMsgs float64
		for i := range peakDays {
			peakMsgs += series[i]
		}
		for i := range valleyDays {
			valleyMsgs += series[i]
		}
		out.ParticipantMoods[snap.DisplayName(id)] = waveMood(peakMsgs, valleyMsgs, len(peakDays), len(valleyDays))
	}
	return out
}

func waveMood(peakMsgs, valleyMsgs float64, peakDays, valleyDays int) string {
	if peakDays == 0 && valleyDays == 0 {
		return "steady presence"
	}
	peakRate, valleyRate := 0.0, 0.0
	if peakDays > 0 {
		peakRate = peakMsgs / float64(peakDays)
	}
	if valleyDays > 0 {
		valleyRate = valleyMsgs / float64(valleyDays)
	}
	switch {
	case peakRate > 2*valleyRate && peakRate > 0:
		return "thrives in busy periods"
	case valleyRate > 2*peakRate && valleyRate > 0:
		return "prefers quiet periods"
	default:
		return "steady presence"
	}
}

// relationshipEvolution splits the log into four equal-duration quarters and
// scores engagement in each.
func (a *TemporalAnalyzer) relationshipEvolution(msgs []conversation.Message) *RelationshipEvolution {
	span := msgs[len(msgs)-1].Timestamp.Sub(msgs[0].Timestamp)
	quarter := span / 4
	origin := msgs[0].Timestamp

	quarters := make([][]conversation.Message, 4)
	for _, m := range msgs {
		idx := 3
		if quarter > 0 {
			idx = int(m.Timestamp.Sub(origin) / quarter)
			if idx > 3 {
				idx = 3
			}
		}
		quarters[idx] = append(quarters[idx], m)
	}

	out := &RelationshipEvolution{QuarterScores: make([]float64, 4)}
	for i, q := range quarters {
		out.QuarterScores[i] = a.engagementScore(q)
	}

	delta := out.QuarterScores[3] - out.QuarterScores[0]
	switch {
	case delta >= 10:
		out.Trend = "strengthening"
	case delta <= -10:
		out.Trend = "cooling"
	default:
		out.Trend = "stable"
	}
	return out
}

// engagementScore is base 50 plus weighted question-rate, support-rate and
// response-speed bonuses, capped at 100.
func (a *TemporalAnalyzer) engagementScore(msgs []conversation.Message) float64 {
	if len(msgs) == 0 {
		return 0
	}
	questions, supportive := 0, 0
	var respTotal time.Duration
	respCount := 0
	for i, m := range msgs {
		if m.Kind == conversation.KindText {
			if countRune(m.Content, '?') > 0 {
				questions++
			}
			if matchesAny(m.Content, emotionalSupportPhrases) || matchesAny(m.Content, encouragementPhrases) {
				supportive++
			}
		}
		if i > 0 && msgs[i-1].SenderID != m.SenderID {
			gap := m.Timestamp.Sub(msgs[i-1].Timestamp)
			if gap >= 0 && gap < a.responseCeiling {
				respTotal += gap
				respCount++
			}
		}
	}

	score := 50.0
	score += math.Min(20, float64(questions)/float64(len(msgs))*100*0.5)
	score += math.Min(15, float64(supportive)/float64(len(msgs))*100*0.5)
	if respCount > 0 {
		avg := respTotal / time.Duration(respCount)
		switch {
		case avg < 5*time.Minute:
			score += 15
		case avg < 30*time.Minute:
			score += 10
		case avg < 2*time.Hour:
			score += 5
		}
	}
	return round1(clampScore(score))
}

// topicEvolution compares first-half and second-half monthly totals per fixed
// topic category.
func topicEvolution(msgs []conversation.Message) map[string]string {
	monthTotals := make(map[string]map[string]int)
	months := make(map[string]struct{})
	for _, m := range msgs {
		if m.Kind != conversation.KindText {
			continue
		}
		month := monthKey(m.Timestamp)
		months[month] = struct{}{}
		for topic, keywords := range topicCategories {
			if matchesAny(m.Content, keywords) {
				if monthTotals[topic] == nil {
					monthTotals[topic] = make(map[string]int)
				}
				monthTotals[topic][month]++
			}
		}
	}

	ordered := make([]string, 0, len(months))
	for m := range months {
		ordered = append(ordered, m)
	}
	sort.Strings(ordered)
	mid := len(ordered) / 2

	out := make(map[string]string, len(topicOrder))
	for _, topic := range topicOrder {
		var firstHalf, secondHalf int
		for i, month := range ordered {
			if i < mid {
				firstHalf += monthTotals[topic][month]
			} else {
				secondHalf += monthTotals[topic][month]
			}
		}
		out[topic] = topicTrend(firstHalf, secondHalf)
	}
	return out
}

func topicTrend(first, second int) string {
	if first == 0 && second == 0 {
		return "stable"
	}
	if first == 0 {
		return "rising"
	}
	ratio := float64(second) / float64(first)
	switch {
	case ratio > 1.25:
		return "rising"
	case ratio < 0.8:
		return "declining"
	default:
		return "stable"
	}
}

// activityCorrelation computes Pearson correlation over 24-bucket hourly
// activity vectors for every participant pair.
func activityCorrelation(msgs []conversation.Message, snap *conversation.Snapshot) *ActivityCorrelation {
	hourly := make(map[string][]float64)
	order := make([]string, 0, 8)
	for _, m := range msgs {
		v, ok := hourly[m.SenderID]
		if !ok {
			v = make([]float64, 24)
			hourly[m.SenderID] = v
			order = append(order, m.SenderID)
		}
		v[m.Timestamp.Hour()]++
	}

	if len(order) < 2 {
		return &ActivityCorrelation{
			InsufficientData: &InsufficientData{
				Reason: "activity correlation needs at least two participants",
				Hint:   "individual rhythm statistics are still available in behaviorPatterns",
			},
		}
	}

	out := &ActivityCorrelation{Pairs: map[string]float64{}}
	best := math.Inf(-1)
	for i := 0; i < len(order); i++ {
		for j := i + 1; j < len(order); j++ {
			coeff := round2(pearson(hourly[order[i]], hourly[order[j]]))
			pair := snap.DisplayName(order[i]) + " & " + snap.DisplayName(order[j])
			out.Pairs[pair] = coeff
			if coeff > best {
				best = coeff
				out.BestPair = pair
				out.BestCoefficient = coeff
			}
		}
	}
	out.Label = correlationLabel(out.BestCoefficient)
	return out
}

func correlationLabel(coeff float64) string {
	switch {
	case coeff >= 0.7:
		return "highly synchronized"
	case coeff >= 0.4:
		return "moderately aligned"
	case coeff >= 0:
		return "loosely aligned"
	default:
		return "opposite schedules"
	}
}

// timeline emits milestone entries at fixed message-count thresholds plus the
// single busiest calendar day.
func timeline(msgs []conversation.Message) []Milestone {
	out := []Milestone{}
	for _, threshold := range milestoneThresholds {
		if len(msgs) >= threshold {
			out = append(out, Milestone{
				Label: fmt.Sprintf("message %d", threshold),
				Date:  dayKey(msgs[threshold-1].Timestamp),
			})
		}
	}

	daily := make(map[string]int)
	for _, m := range msgs {
		daily[dayKey(m.Timestamp)]++
	}
	if ranked := rankCounts(daily, 1); len(ranked) > 0 {
		out = append(out, Milestone{
			Label: fmt.Sprintf("busiest day (%d messages)", ranked[0].count),
			Date:  ranked[0].name,
		})
	}
	return out
}

// evolutionScore aggregates the directional labels into one bounded score.
func evolutionScore(t *TemporalInsights) float64 {
	score := 50.0

	if t.ResponseEvolution != nil {
		switch t.ResponseEvolution.Trend {
		case "dramatically faster", "speeding up":
			score += 10
		case "much slower", "dramatically slower":
			score -= 10
		}
	}
	if t.RelationshipEvolution != nil {
		switch t.RelationshipEvolution.Trend {
		case "strengthening":
			score += 15
		case "cooling":
			score -= 15
		}
	}

	rising, declining := 0, 0
	for _, trend := range t.TopicEvolution {
		switch trend {
		case "rising":
			rising++
		case "declining":
			declining++
		}
	}
	topicDelta := float64(rising-declining) * 5
	if topicDelta > 15 {
		topicDelta = 15
	} else if topicDelta < -15 {
		topicDelta = -15
	}
	score += topicDelta

	if t.IntensityWaves != nil && len(t.IntensityWaves.Peaks) > 0 {
		score += 10
	}

	return round1(clampScore(score))
}
