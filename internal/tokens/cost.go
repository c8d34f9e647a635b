package tokens

// Per-operation token cost by content language. Latin-script languages
// tokenize cheaper than Indic scripts, hence the split.
var costTable = map[string]int{
	"en": 10,
	"hi": 20,
	"ml": 20,
}

// CostOf returns the token cost for one operation in the given language.
func CostOf(languageCode string) (int, error) {
	cost, ok := costTable[languageCode]
	if !ok {
		return 0, ErrUnsupportedLanguage
	}
	return cost, nil
}

// SupportedLanguages lists the language codes with a cost entry.
func SupportedLanguages() []string {
	out := make([]string, 0, len(costTable))
	for code := range costTable {
		out = append(out, code)
	}
	return out
}
