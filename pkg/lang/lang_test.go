package lang

import (
	"strings"
	"testing"
)

func TestNormalize(t *testing.T) {
	cases := map[string]string{
		"":        English,
		"en":      English,
		"EN-in":   English,
		"english": English,
		"hi":      Hindi,
		"Hindi":   Hindi,
		"hi-IN":   Hindi,
		"ta":      Tamil,
		"tamil":   Tamil,
		"fr":      English,
	}
	for in, want := range cases {
		if got := Normalize(in); got != want {
			t.Errorf("Normalize(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestDetectScript(t *testing.T) {
	cases := []struct {
		text string
		want string
	}{
		{"I will pay tomorrow", English},
		{"मैं कल भुगतान करूँगा", Hindi},
		{"ok मैं कल pay करूँगा", Hindi},
		{"நான் நாளை பணம் செலுத்துகிறேன்", Tamil},
		{"", English},
		{"1234 !!", English},
	}
	for _, tc := range cases {
		if got := DetectScript(tc.text); got != tc.want {
			t.Errorf("DetectScript(%q) = %q, want %q", tc.text, got, tc.want)
		}
	}
}

func TestGreetingIncludesName(t *testing.T) {
	got := Greeting(English, "Ravi")
	if !strings.Contains(got, "Ravi") {
		t.Fatalf("expected borrower name in greeting, got %q", got)
	}
	if Greeting(English, "") == "" {
		t.Fatalf("expected default greeting without name")
	}
}

func TestFallbackPhrasePerLanguage(t *testing.T) {
	seen := map[string]bool{}
	for _, code := range []string{English, Hindi, Tamil} {
		phrase := FallbackPhrase(code)
		if phrase == "" {
			t.Fatalf("empty fallback phrase for %s", code)
		}
		if seen[phrase] {
			t.Fatalf("fallback phrase reused across languages")
		}
		seen[phrase] = true
	}
	if FallbackPhrase("unknown") != FallbackPhrase(English) {
		t.Fatalf("unknown language should use English fallback")
	}
}
