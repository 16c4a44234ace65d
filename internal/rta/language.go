package rta

import "strings"

// languageNameToCode maps a human language name to its ISO-639-1 code, the
// same table the remote transcriber wrapper carries so callers can pass
// either form (§4.2).
var languageNameToCode = map[string]string{
	"english":    "en",
	"spanish":    "es",
	"french":     "fr",
	"german":     "de",
	"italian":    "it",
	"portuguese": "pt",
	"russian":    "ru",
	"japanese":   "ja",
	"korean":     "ko",
	"chinese":    "zh",
	"arabic":     "ar",
	"hindi":      "hi",
	"dutch":      "nl",
	"polish":     "pl",
	"turkish":    "tr",
	"vietnamese": "vi",
	"thai":       "th",
	"greek":      "el",
	"czech":      "cs",
	"swedish":    "sv",
	"norwegian":  "no",
	"danish":     "da",
	"finnish":    "fi",
	"hungarian":  "hu",
	"romanian":   "ro",
	"ukrainian":  "uk",
	"hebrew":     "he",
	"indonesian": "id",
	"malay":      "ms",
	"tagalog":    "tl",
}

// NormalizeLanguageCode converts a language name ("English") to its
// ISO-639-1 code ("en"). A value that already looks like a 2-letter code is
// passed through unchanged; an empty input returns empty.
func NormalizeLanguageCode(language string) string {
	if language == "" {
		return ""
	}
	lower := strings.ToLower(strings.TrimSpace(language))
	if len(lower) == 2 && isAlpha(lower) {
		return lower
	}
	if code, ok := languageNameToCode[lower]; ok {
		return code
	}
	return lower
}

func isAlpha(s string) bool {
	for _, r := range s {
		if r < 'a' || r > 'z' {
			return false
		}
	}
	return true
}
