package analytics

// Curated keyword lexicons shared by the heuristic analyzers. Matching is
// substring-based on lower-cased message text, the same approach the
// importers' source data tolerates best.

var questionStarters = []string{
	"what", "when", "where", "who", "why", "how", "which", "whose",
	"is", "are", "do", "does", "did", "can", "could", "would", "should",
	"will", "have", "has",
}

var commandStarters = []string{
	"send", "call", "check", "look", "tell", "give", "bring", "stop",
	"wait", "come", "go", "let", "remember", "dont forget", "don't forget",
}

var helpSeekingPhrases = []string{
	"help", "advice", "what should i", "any ideas", "can you", "could you",
	"i need", "how do i", "suggestion",
}

var emotionalSupportPhrases = []string{
	"sorry to hear", "here for you", "thinking of you", "hope you",
	"feel better", "take care", "that sucks", "i understand", "hang in there",
}

var encouragementPhrases = []string{
	"you can do", "well done", "good luck", "proud of you", "great job",
	"keep going", "you got this", "congrats", "congratulations", "amazing work",
}

var positiveWords = []string{
	"love", "great", "happy", "awesome", "wonderful", "fantastic", "nice",
	"excellent", "fun", "thanks", "thank you", "perfect", "beautiful",
}

var negativeWords = []string{
	"hate", "angry", "sad", "terrible", "awful", "annoyed", "tired",
	"worried", "stressed", "upset", "horrible", "disappointed",
}

var supportiveWords = []string{
	"sorry", "hope", "care", "support", "understand", "there for you",
	"no worries", "it's okay", "its okay",
}

var topicShiftPhrases = []string{
	"by the way", "btw", "anyway", "speaking of", "on another note",
	"changing the subject", "random but", "oh also", "that reminds me",
}

var locationWords = []string{
	"street", "avenue", "road", "square", "station", "airport", "restaurant",
	"cafe", "park", "museum", "hotel", "address", "near", "downtown",
}

// commonWords is the curated list used by vocabulary complexity scoring: a
// long unique word outside this list counts as complex.
var commonWords = map[string]struct{}{
	"because": {}, "before": {}, "people": {}, "really": {}, "should": {},
	"something": {}, "thought": {}, "through": {}, "together": {},
	"tomorrow": {}, "tonight": {}, "always": {}, "around": {}, "better": {},
	"coming": {}, "getting": {}, "going": {}, "little": {}, "maybe": {},
	"morning": {}, "nothing": {}, "please": {}, "pretty": {}, "right": {},
	"thanks": {}, "things": {}, "want": {}, "already": {}, "another": {},
	"anything": {}, "everyone": {}, "everything": {}, "probably": {},
	"actually": {}, "weekend": {}, "evening": {}, "message": {}, "minutes": {},
}

// topicCategories are the fixed buckets topic evolution tracks month over
// month.
var topicCategories = map[string][]string{
	"work":          {"work", "meeting", "project", "boss", "office", "deadline", "colleague", "shift"},
	"family":        {"family", "mom", "dad", "sister", "brother", "kids", "parents", "grandma"},
	"food":          {"food", "dinner", "lunch", "breakfast", "restaurant", "cook", "recipe", "pizza"},
	"travel":        {"travel", "trip", "flight", "hotel", "vacation", "beach", "airport", "visit"},
	"entertainment": {"movie", "film", "series", "music", "concert", "game", "show", "episode"},
	"health":        {"doctor", "sick", "gym", "workout", "sleep", "tired", "medicine", "health"},
	"technology":    {"phone", "computer", "app", "internet", "laptop", "software", "update", "wifi"},
	"plans":         {"plan", "meet", "see you", "schedule", "appointment", "later", "weekend", "party"},
}

// topicOrder fixes the iteration order for topic evolution output.
var topicOrder = []string{
	"work", "family", "food", "travel", "entertainment", "health",
	"technology", "plans",
}

func matchesAny(text string, phrases []string) bool {
	for _, p := range phrases {
		if containsFold(text, p) {
			return true
		}
	}
	return false
}
