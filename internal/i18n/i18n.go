// Package i18n holds the UI string tables for the supported languages.
package i18n

import (
	"fmt"
	"math/rand/v2"
	"strings"

	"golang.org/x/text/language"

	"tazzio/internal/core"
)

var supported = []core.Language{core.LanguageFrench, core.LanguageEnglish, core.LanguageSpanish}

var matcher = language.NewMatcher([]language.Tag{language.French, language.English, language.Spanish})

// ParseLanguage resolves a BCP 47 code ("fr", "en-GB", "es-419") to one of
// the supported languages.
func ParseLanguage(code string) (core.Language, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return "", core.Invalid("language", "required")
	}
	tag, err := language.Parse(code)
	if err != nil {
		return "", core.Invalid("language", fmt.Sprintf("unknown code %q", code))
	}
	_, idx, conf := matcher.Match(tag)
	if conf == language.No {
		return "", core.Invalid("language", fmt.Sprintf("unsupported language %q", code))
	}
	return supported[idx], nil
}

// Translate looks key up in lang's table. Missing keys and unknown languages
// return the key itself.
func Translate(lang core.Language, key string) string {
	if table, ok := tables[lang]; ok {
		if v, ok := table[key]; ok {
			return v
		}
	}
	return key
}

// Quotes returns the motivational quotes for lang, French when lang is unknown.
func Quotes(lang core.Language) []string {
	if q, ok := quotes[lang]; ok {
		return q
	}
	return quotes[core.DefaultLanguage]
}

// Quote picks one quote. r may be nil.
func Quote(lang core.Language, r *rand.Rand) string {
	q := Quotes(lang)
	if r == nil {
		return q[rand.IntN(len(q))]
	}
	return q[r.IntN(len(q))]
}

// Keys lists every key of the reference (French) table.
func Keys() []string {
	keys := make([]string, 0, len(tables[core.DefaultLanguage]))
	for k := range tables[core.DefaultLanguage] {
		keys = append(keys, k)
	}
	return keys
}
