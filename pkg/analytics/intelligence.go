package analytics

import (
	"context"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"chatlytics-server/pkg/conversation"
)

// ContentIntelligence profiles how each participant communicates: message
// classification, style statistics, vocabulary complexity, information
// sharing and thread behavior, blended into a bounded intelligence score.
type ContentIntelligence struct {
	Users map[string]*IntelligenceProfile `json:"users"`
}

// IntelligenceProfile is one participant's content intelligence breakdown.
type IntelligenceProfile struct {
	CommunicationType string              `json:"communicationType"`
	Style             *CommunicationStyle `json:"style"`
	Vocabulary        *VocabularyStats    `json:"vocabulary"`
	InfoSharingRate   float64             `json:"infoSharingRate"`
	ThreadBehavior    *ThreadBehavior     `json:"threadBehavior"`
	IntelligenceScore float64             `json:"intelligenceScore"`
}

// CommunicationStyle captures surface-level writing statistics.
type CommunicationStyle struct {
	AverageLength   float64 `json:"averageLength"`
	CapsPercent     float64 `json:"capsPercent"`
	EmojiRate       float64 `json:"emojiRate"`
	ExclamationRate float64 `json:"exclamationRate"`
	LongPercent     float64 `json:"longPercent"`
	ShortPercent    float64 `json:"shortPercent"`
}

// VocabularyStats captures lexical richness measurements.
type VocabularyStats struct {
	UniqueWords       int     `json:"uniqueWords"`
	TypeTokenRatio    float64 `json:"typeTokenRatio"`
	AverageWordLength float64 `json:"averageWordLength"`
	ComplexWordShare  float64 `json:"complexWordShare"`
	ComplexityScore   float64 `json:"complexityScore"`
	ComplexityLabel   string  `json:"complexityLabel"`
}

// ThreadBehavior counts how a participant relates to the running thread.
type ThreadBehavior struct {
	ContinuesOwn     int `json:"continuesOwn"`
	RespondsToOthers int `json:"respondsToOthers"`
	Interrupts       int `json:"interrupts"`
	StartsFresh      int `json:"startsFresh"`
}

var (
	numberSequence = regexp.MustCompile(`\d{2,}`)
	datePattern    = regexp.MustCompile(`\b\d{1,2}[./-]\d{1,2}([./-]\d{2,4})?\b`)
)

// Message classes recognized by terminal punctuation and starter words.
const (
	classQuestion    = "question"
	classExclamation = "exclamation"
	classCommand     = "command"
	classStatement   = "statement"
)

// IntelligenceAnalyzer computes the contentIntelligence namespace.
type IntelligenceAnalyzer struct {
	longMessageRunes  int
	shortMessageRunes int
	threadWindow      time.Duration
	interruptWindow   time.Duration
}

func NewIntelligenceAnalyzer() *IntelligenceAnalyzer {
	return &IntelligenceAnalyzer{
		longMessageRunes:  100,
		shortMessageRunes: 10,
		threadWindow:      5 * time.Minute,
		interruptWindow:   10 * time.Second,
	}
}

func (a *IntelligenceAnalyzer) Name() string { return "contentIntelligence" }

type intelligenceAccumulator struct {
	textMessages  int
	questions     int
	exclamations  int
	commands      int
	statements    int
	runes         int
	capsLetters   int
	letters       int
	emojis        int
	exclaimMarks  int
	longMessages  int
	shortMessages int
	wordTokens    int
	wordRunes     int
	uniqueWords   map[string]struct{}
	infoMessages  int
	thread        ThreadBehavior
}

func (a *IntelligenceAnalyzer) Analyze(_ context.Context, snap *conversation.Snapshot) (*Document, error) {
	result := &ContentIntelligence{Users: map[string]*IntelligenceProfile{}}
	msgs := snap.SortedMessages()

	accs := make(map[string]*intelligenceAccumulator)
	get := func(id string) *intelligenceAccumulator {
		u, ok := accs[id]
		if !ok {
			u = &intelligenceAccumulator{uniqueWords: make(map[string]struct{})}
			accs[id] = u
		}
		return u
	}

	for i, m := range msgs {
		u := get(m.SenderID)

		// Thread behavior considers every message, media included.
		if i == 0 {
			u.thread.StartsFresh++
		} else {
			gap := m.Timestamp.Sub(msgs[i-1].Timestamp)
			switch {
			case msgs[i-1].SenderID == m.SenderID && gap <= a.threadWindow:
				u.thread.ContinuesOwn++
			case msgs[i-1].SenderID != m.SenderID && gap < a.interruptWindow:
				u.thread.Interrupts++
			case msgs[i-1].SenderID != m.SenderID && gap <= a.threadWindow:
				u.thread.RespondsToOthers++
			default:
				u.thread.StartsFresh++
			}
		}

		if m.Kind != conversation.KindText {
			continue
		}
		u.textMessages++
		switch classifyMessage(m.Content) {
		case classQuestion:
			u.questions++
		case classExclamation:
			u.exclamations++
		case classCommand:
			u.commands++
		default:
			u.statements++
		}

		runes := utf8.RuneCountInString(m.Content)
		u.runes += runes
		if runes >= a.longMessageRunes {
			u.longMessages++
		} else if runes <= a.shortMessageRunes {
			u.shortMessages++
		}
		for _, r := range m.Content {
			if 'A' <= r && r <= 'Z' {
				u.capsLetters++
			}
			if ('a' <= r && r <= 'z') || ('A' <= r && r <= 'Z') {
				u.letters++
			}
		}
		u.emojis += len(extractEmojis(m.Content))
		u.exclaimMarks += countRune(m.Content, '!')

		for _, w := range tokenizeWords(m.Content) {
			u.wordTokens++
			u.wordRunes += utf8.RuneCountInString(w)
			u.uniqueWords[w] = struct{}{}
		}

		if isInfoSharing(m.Content) {
			u.infoMessages++
		}
	}

	for id, u := range accs {
		result.Users[snap.DisplayName(id)] = a.profile(u)
	}

	return &Document{Intelligence: result}, nil
}

// classifyMessage buckets a message by terminal punctuation and a closed
// starter-word list, checked in that order.
func classifyMessage(content string) string {
	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		return classStatement
	}
	if strings.HasSuffix(trimmed, "?") {
		return classQuestion
	}
	if strings.HasSuffix(trimmed, "!") {
		return classExclamation
	}
	lowered := strings.ToLower(trimmed)
	first := lowered
	if idx := strings.IndexByte(lowered, ' '); idx > 0 {
		first = lowered[:idx]
	}
	for _, q := range questionStarters {
		if first == q {
			return classQuestion
		}
	}
	for _, c := range commandStarters {
		if first == c || strings.HasPrefix(lowered, c+" ") {
			return classCommand
		}
	}
	return classStatement
}

// isInfoSharing reports whether a message carries shareable information:
// links, number sequences, date-like patterns or location keywords.
func isInfoSharing(content string) bool {
	if containsURL(content) {
		return true
	}
	if numberSequence.MatchString(content) {
		return true
	}
	if datePattern.MatchString(content) {
		return true
	}
	return matchesAny(content, locationWords)
}

func (a *IntelligenceAnalyzer) profile(u *intelligenceAccumulator) *IntelligenceProfile {
	p := &IntelligenceProfile{
		Style:          &CommunicationStyle{},
		Vocabulary:     &VocabularyStats{},
		ThreadBehavior: &u.thread,
	}
	if u.textMessages == 0 {
		p.CommunicationType = "quiet"
		p.Vocabulary.ComplexityLabel = complexityLabel(0)
		p.IntelligenceScore = clampScore(50 + (0-50)*0.4)
		return p
	}

	p.CommunicationType = communicationType(u)

	msgs := float64(u.textMessages)
	p.Style.AverageLength = round1(float64(u.runes) / msgs)
	if u.letters > 0 {
		p.Style.CapsPercent = round1(float64(u.capsLetters) / float64(u.letters) * 100)
	}
	p.Style.EmojiRate = round2(float64(u.emojis) / msgs)
	p.Style.ExclamationRate = round2(float64(u.exclaimMarks) / msgs)
	p.Style.LongPercent = percentOf(u.longMessages, u.textMessages)
	p.Style.ShortPercent = percentOf(u.shortMessages, u.textMessages)

	p.Vocabulary = vocabulary(u)
	p.InfoSharingRate = round2(float64(u.infoMessages) / msgs)

	p.IntelligenceScore = intelligenceScore(p, u)
	return p
}

func communicationType(u *intelligenceAccumulator) string {
	label, best := "informative", u.statements
	if u.questions > best {
		label, best = "inquisitive", u.questions
	}
	if u.exclamations > best {
		label, best = "expressive", u.exclamations
	}
	if u.commands > best {
		label, best = "directive", u.commands
	}
	return label
}

func vocabulary(u *intelligenceAccumulator) *VocabularyStats {
	v := &VocabularyStats{UniqueWords: len(u.uniqueWords)}
	if u.wordTokens == 0 {
		v.ComplexityLabel = complexityLabel(0)
		return v
	}
	v.TypeTokenRatio = round2(float64(len(u.uniqueWords)) / float64(u.wordTokens))
	v.AverageWordLength = round2(float64(u.wordRunes) / float64(u.wordTokens))

	complexCount := 0
	for w := range u.uniqueWords {
		if utf8.RuneCountInString(w) > 6 {
			if _, common := commonWords[w]; !common {
				complexCount++
			}
		}
	}
	v.ComplexWordShare = round2(float64(complexCount) / float64(len(u.uniqueWords)))

	lengthComponent := (v.AverageWordLength - 3) / 4 * 20
	if lengthComponent < 0 {
		lengthComponent = 0
	} else if lengthComponent > 20 {
		lengthComponent = 20
	}
	v.ComplexityScore = round1(clampScore(v.TypeTokenRatio*40 + v.ComplexWordShare*40 + lengthComponent))
	v.ComplexityLabel = complexityLabel(v.ComplexityScore)
	return v
}

func complexityLabel(score float64) string {
	switch {
	case score >= 80:
		return "Exceptional"
	case score >= 60:
		return "Advanced"
	case score >= 40:
		return "Proficient"
	case score >= 20:
		return "Developing"
	default:
		return "Basic"
	}
}

// intelligenceScore blends vocabulary complexity with question and
// info-sharing bonuses, capped to [0,100].
func intelligenceScore(p *IntelligenceProfile, u *intelligenceAccumulator) float64 {
	score := 50 + (p.Vocabulary.ComplexityScore-50)*0.4

	questionRate := float64(u.questions) / float64(u.textMessages)
	switch {
	case questionRate >= 0.35:
		score += 25
	case questionRate >= 0.20:
		score += 15
	}

	switch {
	case p.InfoSharingRate >= 0.25:
		score += 20
	case p.InfoSharingRate >= 0.15:
		score += 10
	}

	return round1(clampScore(score))
}
