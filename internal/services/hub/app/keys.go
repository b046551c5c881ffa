package server

import (
	"strings"

	"golang.org/x/text/language"
)

// Cache key layout. Language-scoped keys use the canonical BCP 47 tag.
const (
	lessonsKeyPrefix     = "lessons:lang:"
	questsKeyPrefix      = "quests:lang:"
	profileKeyPrefix     = "profile:user:"
	completionsKeyPrefix = "completions:user:"
)

// LessonsKey returns the cache key for lessons in tag.
func LessonsKey(tag language.Tag) string {
	return lessonsKeyPrefix + tag.String()
}

// QuestsKey returns the cache key for quests in tag.
func QuestsKey(tag language.Tag) string {
	return questsKeyPrefix + tag.String()
}

// ProfileKey returns the cache key for userID's profile.
func ProfileKey(userID string) string {
	return profileKeyPrefix + strings.TrimSpace(userID)
}

// CompletionsKey returns the cache key for userID's completion records.
func CompletionsKey(userID string) string {
	return completionsKeyPrefix + strings.TrimSpace(userID)
}
