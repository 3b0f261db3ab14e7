package analytics

import (
	"net/url"
	"regexp"
	"strings"
	"unicode"
)

var urlPattern = regexp.MustCompile(`https?://[^\s<>"]+`)

// tokenizeWords splits message text into case-folded word tokens. Splitting is
// Unicode-letter aware so non-Latin scripts tokenize correctly; punctuation is
// stripped by the split itself. Every token counts; frequency ranking is left
// to the consumer, so there is no stop-word filtering here.
func tokenizeWords(text string) []string {
	lowered := strings.ToLower(text)
	return strings.FieldsFunc(lowered, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r) && r != '\''
	})
}

// extractEmojis returns every emoji rune in the text, one token per
// occurrence.
func extractEmojis(text string) []string {
	var out []string
	for _, r := range text {
		if isEmojiRune(r) {
			out = append(out, string(r))
		}
	}
	return out
}

func isEmojiRune(r rune) bool {
	switch {
	case r >= 0x1F300 && r <= 0x1F5FF: // symbols and pictographs
		return true
	case r >= 0x1F600 && r <= 0x1F64F: // emoticons
		return true
	case r >= 0x1F680 && r <= 0x1F6FF: // transport and map
		return true
	case r >= 0x1F900 && r <= 0x1F9FF: // supplemental symbols
		return true
	case r >= 0x1FA70 && r <= 0x1FAFF: // extended pictographs
		return true
	case r >= 0x2600 && r <= 0x26FF: // miscellaneous symbols
		return true
	case r >= 0x2700 && r <= 0x27BF: // dingbats
		return true
	case r >= 0x1F1E6 && r <= 0x1F1FF: // regional indicators
		return true
	}
	return false
}

// extractDomains parses every URL in the text and returns the host with a
// leading www. stripped. Malformed URLs are skipped rather than failing the
// message.
func extractDomains(text string) []string {
	var out []string
	for _, raw := range urlPattern.FindAllString(text, -1) {
		raw = strings.TrimRight(raw, ".,;:!?)")
		parsed, err := url.Parse(raw)
		if err != nil || parsed.Host == "" {
			continue
		}
		host := strings.ToLower(parsed.Hostname())
		host = strings.TrimPrefix(host, "www.")
		if host != "" {
			out = append(out, host)
		}
	}
	return out
}

// containsURL reports whether the text carries at least one link.
func containsURL(text string) bool {
	return urlPattern.MatchString(text)
}

// capsRatio returns the share of letters written in upper case.
func capsRatio(text string) float64 {
	letters, upper := 0, 0
	for _, r := range text {
		if unicode.IsLetter(r) {
			letters++
			if unicode.IsUpper(r) {
				upper++
			}
		}
	}
	if letters == 0 {
		return 0
	}
	return float64(upper) / float64(letters)
}

// containsFold reports whether the lower-cased text contains the phrase.
// Lexicon phrases are stored lower-case already.
func containsFold(text, phrase string) bool {
	return strings.Contains(strings.ToLower(text), phrase)
}

// countRune counts occurrences of a rune in the text.
func countRune(text string, target rune) int {
	n := 0
	for _, r := range text {
		if r == target {
			n++
		}
	}
	return n
}
