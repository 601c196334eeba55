package i18n

import (
	"errors"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tazzio/internal/core"
)

func TestTranslate(t *testing.T) {
	assert.Equal(t, "Dépenses", Translate(core.LanguageFrench, "nav.expenses"))
	assert.Equal(t, "Expenses", Translate(core.LanguageEnglish, "nav.expenses"))
	assert.Equal(t, "Gastos", Translate(core.LanguageSpanish, "nav.expenses"))
}

func TestTranslateFallsBackToKey(t *testing.T) {
	assert.Equal(t, "nope.missing", Translate(core.LanguageEnglish, "nope.missing"))
	assert.Equal(t, "nav.expenses", Translate("de", "nav.expenses"))
	assert.Equal(t, "", Translate(core.LanguageFrench, ""))
}

func TestTablesShareKeys(t *testing.T) {
	ref := tables[core.DefaultLanguage]
	for lang, table := range tables {
		assert.Len(t, table, len(ref), "language %s", lang)
		for k := range ref {
			_, ok := table[k]
			assert.True(t, ok, "language %s misses %s", lang, k)
		}
	}
	assert.ElementsMatch(t, Keys(), keysOf(ref))
}

func keysOf(m map[string]string) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}

func TestParseLanguage(t *testing.T) {
	cases := map[string]core.Language{
		"fr":     core.LanguageFrench,
		"fr-CA":  core.LanguageFrench,
		"en":     core.LanguageEnglish,
		"en-GB":  core.LanguageEnglish,
		"es-419": core.LanguageSpanish,
	}
	for in, want := range cases {
		got, err := ParseLanguage(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	for _, bad := range []string{"", "de", "!!"} {
		_, err := ParseLanguage(bad)
		assert.True(t, errors.Is(err, core.ErrValidation), bad)
	}
}

func TestQuote(t *testing.T) {
	r := rand.New(rand.NewPCG(1, 2))
	q := Quote(core.LanguageEnglish, r)
	assert.Contains(t, Quotes(core.LanguageEnglish), q)
	assert.Equal(t, Quotes(core.LanguageFrench), Quotes("xx"))
	assert.NotEmpty(t, Quote(core.LanguageSpanish, nil))
}
