package models

import (
	"strings"

	"golang.org/x/text/language"
)

var supportedLocales = []language.Tag{
	language.English,
	language.Chinese,
}

var localeMatcher = language.NewMatcher(supportedLocales)

// SupportedLocales lists the locales labels are available in.
func SupportedLocales() []language.Tag {
	return append([]language.Tag(nil), supportedLocales...)
}

// ParseLocale resolves a user supplied locale ("zh", "zh-CN", "en-US",
// or an Accept-Language header) to the closest supported one.
// The bool reports whether anything sensible was found.
func ParseLocale(value string) (language.Tag, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return language.English, false
	}
	tags, _, err := language.ParseAcceptLanguage(value)
	if err != nil || len(tags) == 0 {
		return language.English, false
	}
	_, idx, conf := localeMatcher.Match(tags...)
	if conf == language.No {
		return language.English, false
	}
	return supportedLocales[idx], true
}
