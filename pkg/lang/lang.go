// Package lang holds the supported call languages and the per-language
// voice persona content: greetings, reply prompts and degraded-mode phrases.
package lang

import "strings"

const (
	English = "en-IN"
	Hindi   = "hi-IN"
	Tamil   = "ta-IN"
)

// Default is the language used when a caller preference is missing or unknown.
const Default = English

// Supported reports whether code is one of the call languages.
func Supported(code string) bool {
	switch code {
	case English, Hindi, Tamil:
		return true
	}
	return false
}

// Normalize maps loose language identifiers ("en", "hindi", "TA-in")
// onto canonical codes, defaulting to English.
func Normalize(code string) string {
	switch strings.ToLower(strings.TrimSpace(code)) {
	case "hi", "hi-in", "hindi":
		return Hindi
	case "ta", "ta-in", "tamil":
		return Tamil
	case "en", "en-in", "english", "":
		return English
	}
	return English
}

// DetectScript returns the language whose script dominates the text.
// Devanagari maps to Hindi, the Tamil block to Tamil, anything else to English.
// The first non-Latin script hit wins so mixed utterances follow the
// caller's switched language immediately.
func DetectScript(text string) string {
	for _, r := range text {
		if r >= 0x0900 && r <= 0x097F {
			return Hindi
		}
		if r >= 0x0B80 && r <= 0x0BFF {
			return Tamil
		}
	}
	return English
}
