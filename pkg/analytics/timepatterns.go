package analytics

import (
	"context"
	"fmt"
	"runtime"
	"sort"

	"chatlytics-server/pkg/conversation"
)

// TimePatterns buckets traffic by hour of day, weekday and day of month, and
// surfaces the busiest bucket of each plus the ten busiest calendar days.
type TimePatterns struct {
	HourCounts       map[string]int `json:"hourCounts"`
	WeekdayCounts    map[string]int `json:"weekdayCounts"`
	DayOfMonthCounts map[string]int `json:"dayOfMonthCounts"`
	MostActiveHour   string         `json:"mostActiveHour"`
	MostActiveDay    string         `json:"mostActiveDay"`
	TopDays          []DayCount     `json:"topDays"`
}

// DayCount is one calendar day's message volume.
type DayCount struct {
	Date  string `json:"date"`
	Count int    `json:"count"`
}

// TimeAnalyzer computes the timePatterns namespace. A positive chunkSize
// makes it fold the message sequence window by window with a cooperative
// yield in between; the accumulation is identical either way.
type TimeAnalyzer struct {
	chunkSize int
}

func NewTimeAnalyzer(chunkSize int) *TimeAnalyzer {
	return &TimeAnalyzer{chunkSize: chunkSize}
}

func (a *TimeAnalyzer) Name() string { return "timePatterns" }

func (a *TimeAnalyzer) Analyze(_ context.Context, snap *conversation.Snapshot) (*Document, error) {
	result := &TimePatterns{
		HourCounts:       map[string]int{},
		WeekdayCounts:    map[string]int{},
		DayOfMonthCounts: map[string]int{},
		TopDays:          []DayCount{},
	}

	hourly := make([]int, 24)
	weekdays := make(map[string]int, 7)
	days := make(map[string]int)

	forEachChunk(snap.SortedMessages(), a.chunkSize, func(chunk []conversation.Message) {
		for _, m := range chunk {
			hourly[m.Timestamp.Hour()]++
			weekdays[m.Timestamp.Weekday().String()]++
			days[dayKey(m.Timestamp)]++
		}
	})

	for h := 0; h < 24; h++ {
		result.HourCounts[fmt.Sprintf("%02d", h)] = hourly[h]
	}
	for d := 1; d <= 31; d++ {
		result.DayOfMonthCounts[fmt.Sprintf("%02d", d)] = 0
	}
	for day, count := range days {
		result.DayOfMonthCounts[day[8:]] += count
	}
	for _, wd := range weekdayOrder {
		result.WeekdayCounts[wd.String()] = weekdays[wd.String()]
	}

	// Ties break on the first maximum found in a single left-to-right scan.
	bestHour, bestHourCount := 0, -1
	for h := 0; h < 24; h++ {
		if hourly[h] > bestHourCount {
			bestHour, bestHourCount = h, hourly[h]
		}
	}
	bestDay, bestDayCount := "", -1
	for _, wd := range weekdayOrder {
		if weekdays[wd.String()] > bestDayCount {
			bestDay, bestDayCount = wd.String(), weekdays[wd.String()]
		}
	}
	if len(days) > 0 {
		result.MostActiveHour = fmt.Sprintf("%02d", bestHour)
		result.MostActiveDay = bestDay
	}

	for day, count := range days {
		result.TopDays = append(result.TopDays, DayCount{Date: day, Count: count})
	}
	sort.Slice(result.TopDays, func(i, j int) bool {
		if result.TopDays[i].Count != result.TopDays[j].Count {
			return result.TopDays[i].Count > result.TopDays[j].Count
		}
		return result.TopDays[i].Date < result.TopDays[j].Date
	})
	if len(result.TopDays) > 10 {
		result.TopDays = result.TopDays[:10]
	}

	return &Document{TimePatterns: result}, nil
}

// forEachChunk folds fn over the messages in fixed-size windows, yielding the
// processor between windows so long inputs stay responsive. chunkSize <= 0
// processes everything in one window. Chunked and unchunked folds accumulate
// identically.
func forEachChunk(msgs []conversation.Message, chunkSize int, fn func([]conversation.Message)) {
	if chunkSize <= 0 || chunkSize >= len(msgs) {
		fn(msgs)
		return
	}
	for start := 0; start < len(msgs); start += chunkSize {
		end := start + chunkSize
		if end > len(msgs) {
			end = len(msgs)
		}
		fn(msgs[start:end])
		runtime.Gosched()
	}
}
