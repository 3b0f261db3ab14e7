package analytics

import (
	"context"
	"math"
	"sort"
	"strings"
	"time"

	"chatlytics-server/pkg/conversation"
)

// BehaviorPatterns profiles each participant's habits and scores pairwise
// compatibility.
type BehaviorPatterns struct {
	Users         map[string]*BehaviorProfile `json:"users"`
	Compatibility map[string]float64          `json:"compatibility"`
}

// BehaviorProfile is one participant's behavioral fingerprint.
type BehaviorProfile struct {
	TimePersonality  string  `json:"timePersonality"`
	PeakHour         int     `json:"peakHour"`
	ConsistencyScore float64 `json:"consistencyScore"`
	ConsistencyLabel string  `json:"consistencyLabel"`
	WeekendRatio     float64 `json:"weekendRatio"`
	EnergyScore      float64 `json:"energyScore"`
	SeasonalPattern  string  `json:"seasonalPattern"`
	PunctuationStyle string  `json:"punctuationStyle"`
}

// seasonalMinSpanDays is the minimum log span before a seasonal pattern is
// computed at all.
const seasonalMinSpanDays = 90

// BehaviorAnalyzer computes the behaviorPatterns namespace.
type BehaviorAnalyzer struct{}

func NewBehaviorAnalyzer() *BehaviorAnalyzer { return &BehaviorAnalyzer{} }

func (a *BehaviorAnalyzer) Name() string { return "behaviorPatterns" }

type behaviorAccumulator struct {
	id           string
	hourCounts   [24]int
	activeDays   map[string]struct{}
	weekendMsgs  int
	weekdayMsgs  int
	monthCounts  map[time.Month]int
	messages     int
	characters   int
	exclamations int
	questions    int
	capsLetters  int
	letters      int
	periods      int
	ellipses     int
}

func (a *BehaviorAnalyzer) Analyze(_ context.Context, snap *conversation.Snapshot) (*Document, error) {
	result := &BehaviorPatterns{
		Users:         map[string]*BehaviorProfile{},
		Compatibility: map[string]float64{},
	}

	msgs := snap.SortedMessages()
	if len(msgs) == 0 {
		return &Document{Behavior: result}, nil
	}

	spanDays := daySpan(msgs[0].Timestamp, msgs[len(msgs)-1].Timestamp)

	accs := make(map[string]*behaviorAccumulator)
	order := make([]string, 0, 8)
	for _, m := range msgs {
		u, ok := accs[m.SenderID]
		if !ok {
			u = &behaviorAccumulator{
				id:          m.SenderID,
				activeDays:  make(map[string]struct{}),
				monthCounts: make(map[time.Month]int),
			}
			accs[m.SenderID] = u
			order = append(order, m.SenderID)
		}
		u.messages++
		u.hourCounts[m.Timestamp.Hour()]++
		u.activeDays[dayKey(m.Timestamp)] = struct{}{}
		u.monthCounts[m.Timestamp.Month()]++
		if isWeekend(m.Timestamp) {
			u.weekendMsgs++
		} else {
			u.weekdayMsgs++
		}
		if m.Kind != conversation.KindText {
			continue
		}
		u.characters += len([]rune(m.Content))
		u.exclamations += countRune(m.Content, '!')
		u.questions += countRune(m.Content, '?')
		u.periods += countRune(m.Content, '.')
		u.ellipses += strings.Count(m.Content, "...")
		for _, r := range m.Content {
			if 'A' <= r && r <= 'Z' {
				u.capsLetters++
			}
			if ('a' <= r && r <= 'z') || ('A' <= r && r <= 'Z') {
				u.letters++
			}
		}
	}

	profiles := make(map[string]*BehaviorProfile, len(order))
	for _, id := range order {
		p := a.profile(accs[id], spanDays)
		profiles[id] = p
		result.Users[snap.DisplayName(id)] = p
	}

	// Pairwise compatibility over the first-seen sender order.
	for i := 0; i < len(order); i++ {
		for j := i + 1; j < len(order); j++ {
			key := snap.DisplayName(order[i]) + " & " + snap.DisplayName(order[j])
			result.Compatibility[key] = compatibilityScore(profiles[order[i]], profiles[order[j]])
		}
	}

	return &Document{Behavior: result}, nil
}

func (a *BehaviorAnalyzer) profile(u *behaviorAccumulator, spanDays int) *BehaviorProfile {
	p := &BehaviorProfile{}

	p.TimePersonality = timePersonality(u.hourCounts, u.messages)
	p.PeakHour = peakHour(u.hourCounts)
	p.ConsistencyScore, p.ConsistencyLabel = consistency(u.activeDays)
	if u.weekdayMsgs > 0 {
		p.WeekendRatio = round2(float64(u.weekendMsgs) / float64(u.weekdayMsgs))
	} else {
		p.WeekendRatio = float64(u.weekendMsgs)
	}
	p.EnergyScore = energyScore(u)
	p.SeasonalPattern = seasonalPattern(u.monthCounts, spanDays)
	p.PunctuationStyle = punctuationStyle(u)

	return p
}

// timePersonality classifies from the share of messages in fixed day-part
// buckets, checked in priority order; the first bucket over its threshold
// wins.
func timePersonality(hours [24]int, total int) string {
	if total == 0 {
		return "Balanced"
	}
	var night, morning, afternoon, evening int
	for h, c := range hours {
		switch {
		case h >= 22 || h < 6:
			night += c
		case h >= 6 && h < 10:
			morning += c
		case h >= 12 && h < 17:
			afternoon += c
		case h >= 18 && h < 22:
			evening += c
		}
	}
	share := func(n int) float64 { return float64(n) / float64(total) }
	switch {
	case share(night) > 0.3:
		return "Night Owl"
	case share(morning) > 0.3:
		return "Early Bird"
	case share(afternoon) > 0.4:
		return "Afternoon Regular"
	case share(evening) > 0.35:
		return "Evening Person"
	}
	return "Balanced"
}

func peakHour(hours [24]int) int {
	best, bestCount := 0, -1
	for h, c := range hours {
		if c > bestCount {
			best, bestCount = h, c
		}
	}
	return best
}

// consistency derives a score from the variance of gaps between consecutive
// active days: max(0, 100 - 2*variance).
func consistency(activeDays map[string]struct{}) (float64, string) {
	days := make([]string, 0, len(activeDays))
	for d := range activeDays {
		days = append(days, d)
	}
	sort.Strings(days)

	score := 100.0
	if len(days) > 1 {
		gaps := make([]float64, 0, len(days)-1)
		for i := 1; i < len(days); i++ {
			prev, _ := time.Parse("2006-01-02", days[i-1])
			cur, _ := time.Parse("2006-01-02", days[i])
			gaps = append(gaps, cur.Sub(prev).Hours()/24)
		}
		score = math.Max(0, 100-2*variance(gaps))
	}
	score = round1(score)

	switch {
	case score >= 80:
		return score, "Very Consistent"
	case score >= 60:
		return score, "Fairly Consistent"
	case score >= 40:
		return score, "Somewhat Irregular"
	default:
		return score, "Unpredictable"
	}
}

// energyScore is a weighted heuristic over message length, exclamation
// density, relative caps usage and question density, capped at 100.
func energyScore(u *behaviorAccumulator) float64 {
	if u.messages == 0 {
		return 0
	}
	avgChars := float64(u.characters) / float64(u.messages)
	exclaimPerMsg := float64(u.exclamations) / float64(u.messages)
	questionPerMsg := float64(u.questions) / float64(u.messages)
	caps := 0.0
	if u.letters > 0 {
		caps = float64(u.capsLetters) / float64(u.letters)
	}

	score := math.Min(30, avgChars/10) +
		math.Min(30, exclaimPerMsg*50) +
		math.Min(20, caps*200) +
		math.Min(20, questionPerMsg*40)
	return round1(clampScore(score))
}

func seasonalPattern(months map[time.Month]int, spanDays int) string {
	if spanDays < seasonalMinSpanDays {
		return "insufficient data"
	}
	seasons := map[string]int{}
	for m, c := range months {
		switch m {
		case time.December, time.January, time.February:
			seasons["winter"] += c
		case time.March, time.April, time.May:
			seasons["spring"] += c
		case time.June, time.July, time.August:
			seasons["summer"] += c
		default:
			seasons["autumn"] += c
		}
	}
	best, bestCount := "", -1
	for _, s := range []string{"winter", "spring", "summer", "autumn"} {
		if seasons[s] > bestCount {
			best, bestCount = s, seasons[s]
		}
	}
	return "most active in " + best
}

// punctuationStyle maps the dominant punctuation ratio onto one of five
// styles.
func punctuationStyle(u *behaviorAccumulator) string {
	total := u.exclamations + u.questions + u.periods
	if total == 0 {
		return "Minimalist"
	}
	exclaimShare := float64(u.exclamations) / float64(total)
	questionShare := float64(u.questions) / float64(total)
	ellipsisShare := float64(u.ellipses*3) / float64(total)
	periodShare := float64(u.periods) / float64(total)
	switch {
	case exclaimShare > 0.3:
		return "Enthusiastic"
	case questionShare > 0.3:
		return "Inquisitive"
	case ellipsisShare > 0.2:
		return "Contemplative"
	case periodShare > 0.5:
		return "Formal"
	default:
		return "Casual"
	}
}

// compatibilityScore rewards matching time personalities and close energy
// scores on a 0-100 scale.
func compatibilityScore(a, b *BehaviorProfile) float64 {
	score := 50.0
	if a.TimePersonality == b.TimePersonality {
		score += 25
	}
	diff := math.Abs(a.EnergyScore - b.EnergyScore)
	if diff < 20 {
		score += 15
		if diff < 10 {
			score += 10
		}
	}
	return clampScore(score)
}
