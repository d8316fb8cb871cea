package config

import "strings"

// languageNames maps common language names to ISO 639-1 codes, matching the
// set the backend's translation pipeline supports.
var languageNames = map[string]string{
	"english":  "en",
	"hebrew":   "he",
	"arabic":   "ar",
	"chinese":  "zh",
	"japanese": "ja",
	"korean":   "ko",
	"french":   "fr",
	"spanish":  "es",
	"german":   "de",
	"russian":  "ru",
	"hindi":    "hi",
}

// rtlLanguages are rendered right-to-left by the subtitle burner.
var rtlLanguages = map[string]bool{
	"ar": true,
	"he": true,
	"fa": true,
	"ur": true,
}

// NormalizeLang normalizes a language name or code to a 2-letter code.
// Locale codes like "en-US" are reduced to their base language.
func NormalizeLang(lang string) string {
	lang = strings.ToLower(strings.TrimSpace(lang))

	if len(lang) == 2 && isKnownCode(lang) {
		return lang
	}

	if i := strings.IndexByte(lang, '-'); i > 0 {
		lang = lang[:i]
	}

	if code, ok := languageNames[lang]; ok {
		return code
	}
	return lang
}

// IsRecognizedLang reports whether lang resolves to a supported target
// language code.
func IsRecognizedLang(lang string) bool {
	return isKnownCode(NormalizeLang(lang))
}

// IsRTL reports whether the language is written right-to-left.
func IsRTL(lang string) bool {
	return rtlLanguages[NormalizeLang(lang)]
}

// SupportedLanguages returns the recognized target language codes.
func SupportedLanguages() []string {
	codes := make([]string, 0, len(languageNames))
	for _, code := range languageNames {
		codes = append(codes, code)
	}
	return codes
}

func isKnownCode(code string) bool {
	for _, c := range languageNames {
		if c == code {
			return true
		}
	}
	return false
}
