// Package i18n resolves lesson content languages and localizes the hub's
// status notices.
package i18n

import (
	"fmt"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Notice keys printed through Printer.
const (
	NoticeOffline = "notice.offline"
	NoticeNoData  = "notice.no_data"
)

var supportedTags = []language.Tag{
	language.English,
	language.MustParse("pt-BR"),
	language.Swahili,
}

var tagMatcher = language.NewMatcher(supportedTags)

func init() {
	notices := map[language.Tag]map[string]string{
		language.English: {
			NoticeOffline: "You are offline. Showing saved content.",
			NoticeNoData:  "You are offline and nothing has been saved yet.",
		},
		language.MustParse("pt-BR"): {
			NoticeOffline: "Você está offline. Mostrando conteúdo salvo.",
			NoticeNoData:  "Você está offline e nada foi salvo ainda.",
		},
		language.Swahili: {
			NoticeOffline: "Uko nje ya mtandao. Tunaonyesha maudhui yaliyohifadhiwa.",
			NoticeNoData:  "Uko nje ya mtandao na hakuna kilichohifadhiwa bado.",
		},
	}
	for tag, messages := range notices {
		for key, msg := range messages {
			if err := message.SetString(tag, key, msg); err != nil {
				panic(fmt.Sprintf("register %s notice %q: %v", tag, key, err))
			}
		}
	}
}

// Default returns the default language tag.
func Default() language.Tag {
	return language.English
}

// Resolve maps a user-supplied language (a tag or an Accept-Language style
// list) to the closest supported tag, falling back to Default.
func Resolve(value string) language.Tag {
	value = strings.TrimSpace(value)
	if value == "" {
		return Default()
	}
	tags, _, err := language.ParseAcceptLanguage(value)
	if err != nil || len(tags) == 0 {
		return Default()
	}
	_, index, confidence := tagMatcher.Match(tags...)
	if confidence == language.No {
		return Default()
	}
	return supportedTags[index]
}

// Printer returns a message printer for the supplied tag.
func Printer(tag language.Tag) *message.Printer {
	return message.NewPrinter(tag)
}
