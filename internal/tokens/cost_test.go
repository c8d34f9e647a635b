package tokens

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCostOf(t *testing.T) {
	cases := map[string]int{
		"en": 10,
		"hi": 20,
		"ml": 20,
	}
	for lang, want := range cases {
		cost, err := CostOf(lang)
		require.NoError(t, err, "language %s", lang)
		assert.Equal(t, want, cost, "language %s", lang)
	}
}

func TestCostOf_Unsupported(t *testing.T) {
	for _, lang := range []string{"fr", "EN", "", "hindi"} {
		_, err := CostOf(lang)
		assert.ErrorIs(t, err, ErrUnsupportedLanguage, "language %q", lang)
	}
}

func TestSupportedLanguages(t *testing.T) {
	langs := SupportedLanguages()
	assert.Len(t, langs, 3)
	assert.ElementsMatch(t, []string{"en", "hi", "ml"}, langs)
}
