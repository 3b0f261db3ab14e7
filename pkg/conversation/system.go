package conversation

import "strings"

// systemSenderID is the synthetic sender used by importers for
// group-management notices.
const systemSenderID = "System"

// systemPhrases are content fragments that mark importer-generated notices.
// The list is the single source of truth for system-message detection; every
// analyzer filters through IsSystemMessage rather than keeping its own list.
var systemPhrases = []string{
	"added",
	"left",
	"removed",
	"joined using this group's invite link",
	"changed the subject",
	"changed this group's icon",
	"changed the group description",
	"created group",
	"created this group",
	"messages and calls are end-to-end encrypted",
	"you're now an admin",
	"security code changed",
}

// IsSystemMessage reports whether a message is importer/system generated and
// must be excluded from all statistics.
func IsSystemMessage(m Message) bool {
	if m.SenderID == systemSenderID {
		return true
	}
	content := strings.ToLower(m.Content)
	for _, phrase := range systemPhrases {
		if strings.Contains(content, phrase) {
			return true
		}
	}
	return false
}
