package language

import (
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

// Default is the language assumed when a document or request names none.
const Default = "en"

// English word forms accepted in front matter and CLI flags.
var words = map[string]string{
	"english":    "en",
	"spanish":    "es",
	"french":     "fr",
	"german":     "de",
	"italian":    "it",
	"portuguese": "pt",
	"japanese":   "ja",
	"korean":     "ko",
	"chinese":    "zh",
	"russian":    "ru",
	"arabic":     "ar",
	"hindi":      "hi",
	"dutch":      "nl",
	"polish":     "pl",
	"swedish":    "sv",
}

// Normalize canonicalises a language code, ISO 639-2 code, BCP 47 tag or
// English language name. It reports false for input it cannot interpret.
func Normalize(code string) (string, bool) {
	trimmed := strings.TrimSpace(code)
	if trimmed == "" {
		return "", false
	}
	if mapped, ok := words[strings.ToLower(trimmed)]; ok {
		return mapped, true
	}
	tag, err := language.Parse(strings.ReplaceAll(trimmed, "_", "-"))
	if err != nil {
		return "", false
	}
	if base, conf := tag.Base(); conf == language.No || base.String() == "und" {
		return "", false
	}
	return tag.String(), true
}

// NormalizeList deduplicates and canonicalises a list of language codes,
// dropping entries that cannot be parsed. Order of first occurrence is kept.
func NormalizeList(codes []string) []string {
	normalized := make([]string, 0, len(codes))
	seen := make(map[string]struct{}, len(codes))
	for _, code := range codes {
		value, ok := Normalize(code)
		if !ok {
			continue
		}
		if _, dup := seen[value]; dup {
			continue
		}
		seen[value] = struct{}{}
		normalized = append(normalized, value)
	}
	return normalized
}

// ToISO3 returns the ISO 639-2 code used in container metadata, or "und".
func ToISO3(code string) string {
	value, ok := Normalize(code)
	if !ok {
		return "und"
	}
	base, _ := language.MustParse(value).Base()
	return base.ISO3()
}

// DisplayName returns the English name of a language, or "Unknown".
func DisplayName(code string) string {
	value, ok := Normalize(code)
	if !ok {
		return "Unknown"
	}
	name := display.English.Tags().Name(language.MustParse(value))
	if name == "" {
		return strings.ToUpper(value)
	}
	return name
}
