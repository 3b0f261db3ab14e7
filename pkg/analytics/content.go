package analytics

import (
	"context"

	"chatlytics-server/pkg/conversation"
)

// ContentStats ranks words, emojis and link domains globally and per
// participant. Every word token counts; there is no stop-word filtering, so
// frequency ranking decisions stay with the consumer.
type ContentStats struct {
	TopWords   []TokenCount            `json:"topWords"`
	TopEmojis  []TokenCount            `json:"topEmojis"`
	TopDomains []TokenCount            `json:"topDomains"`
	TotalWords int                     `json:"totalWords"`
	PerUser    map[string]*UserContent `json:"perUser"`
}

// TokenCount is one ranked token.
type TokenCount struct {
	Token string `json:"token"`
	Count int    `json:"count"`
}

// UserContent is one participant's content breakdown.
type UserContent struct {
	TopWords   []TokenCount `json:"topWords"`
	TopEmojis  []TokenCount `json:"topEmojis"`
	TopDomains []TokenCount `json:"topDomains"`
	WordCount  int          `json:"wordCount"`
}

// ContentAnalyzer computes the contentStats namespace. Like TimeAnalyzer it
// supports chunked folding for large inputs with identical accumulation.
type ContentAnalyzer struct {
	topN      int
	chunkSize int
}

func NewContentAnalyzer(topN, chunkSize int) *ContentAnalyzer {
	if topN <= 0 {
		topN = 20
	}
	return &ContentAnalyzer{topN: topN, chunkSize: chunkSize}
}

func (a *ContentAnalyzer) Name() string { return "contentStats" }

type contentAccumulator struct {
	words   map[string]int
	emojis  map[string]int
	domains map[string]int
	total   int
}

func newContentAccumulator() *contentAccumulator {
	return &contentAccumulator{
		words:   make(map[string]int),
		emojis:  make(map[string]int),
		domains: make(map[string]int),
	}
}

func (c *contentAccumulator) consume(text string) {
	for _, w := range tokenizeWords(text) {
		c.words[w]++
		c.total++
	}
	for _, e := range extractEmojis(text) {
		c.emojis[e]++
	}
	for _, d := range extractDomains(text) {
		c.domains[d]++
	}
}

func (a *ContentAnalyzer) Analyze(_ context.Context, snap *conversation.Snapshot) (*Document, error) {
	global := newContentAccumulator()
	perUser := make(map[string]*contentAccumulator)

	forEachChunk(snap.SortedMessages(), a.chunkSize, func(chunk []conversation.Message) {
		for _, m := range chunk {
			if m.Kind != conversation.KindText {
				continue
			}
			global.consume(m.Content)
			u, ok := perUser[m.SenderID]
			if !ok {
				u = newContentAccumulator()
				perUser[m.SenderID] = u
			}
			u.consume(m.Content)
		}
	})

	result := &ContentStats{
		TopWords:   tokenRanking(global.words, a.topN),
		TopEmojis:  tokenRanking(global.emojis, a.topN),
		TopDomains: tokenRanking(global.domains, a.topN),
		TotalWords: global.total,
		PerUser:    map[string]*UserContent{},
	}
	for id, acc := range perUser {
		result.PerUser[snap.DisplayName(id)] = &UserContent{
			TopWords:   tokenRanking(acc.words, a.topN),
			TopEmojis:  tokenRanking(acc.emojis, a.topN),
			TopDomains: tokenRanking(acc.domains, a.topN),
			WordCount:  acc.total,
		}
	}

	return &Document{Content: result}, nil
}

func tokenRanking(counts map[string]int, n int) []TokenCount {
	ranked := rankCounts(counts, n)
	out := make([]TokenCount, len(ranked))
	for i, r := range ranked {
		out[i] = TokenCount{Token: r.name, Count: r.count}
	}
	return out
}
