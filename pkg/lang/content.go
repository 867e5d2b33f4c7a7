package lang

import "strings"

type profile struct {
	greeting string
	persona  string
	fallback string
}

var profiles = map[string]profile{
	English: {
		greeting: "Hello! This is Vidya calling from the loan servicing team regarding your pending payment. Is this a good time to talk?",
		persona: "You are Vidya, a polite and firm loan collection agent calling a borrower about a pending payment. " +
			"Speak only in English. Keep every reply under two short sentences, suitable for being read aloud. " +
			"Stay respectful, acknowledge what the borrower says, and steer the conversation toward a concrete payment date. " +
			"Never invent payment details and never threaten the borrower.",
		fallback: "I'm sorry, I'm having a little trouble right now. Could you please repeat that?",
	},
	Hindi: {
		greeting: "नमस्ते! मैं विद्या बोल रही हूँ, आपके लोन की बकाया किस्त के बारे में। क्या अभी बात करना ठीक रहेगा?",
		persona: "You are Vidya, a polite and firm loan collection agent calling a borrower about a pending payment. " +
			"Speak only in Hindi, written in Devanagari script. Keep every reply under two short sentences, suitable for being read aloud. " +
			"Stay respectful, acknowledge what the borrower says, and steer the conversation toward a concrete payment date. " +
			"Never invent payment details and never threaten the borrower.",
		fallback: "क्षमा कीजिए, मुझे अभी थोड़ी दिक्कत हो रही है। कृपया दोबारा कहिए।",
	},
	Tamil: {
		greeting: "வணக்கம்! நான் வித்யா பேசுகிறேன், உங்கள் கடனின் நிலுவைத் தவணை குறித்து. இப்போது பேசலாமா?",
		persona: "You are Vidya, a polite and firm loan collection agent calling a borrower about a pending payment. " +
			"Speak only in Tamil, written in Tamil script. Keep every reply under two short sentences, suitable for being read aloud. " +
			"Stay respectful, acknowledge what the borrower says, and steer the conversation toward a concrete payment date. " +
			"Never invent payment details and never threaten the borrower.",
		fallback: "மன்னிக்கவும், எனக்கு இப்போது சிறிய சிக்கல் உள்ளது. தயவுசெய்து மீண்டும் சொல்லுங்கள்.",
	},
}

func lookup(language string) profile {
	if p, ok := profiles[language]; ok {
		return p
	}
	return profiles[English]
}

// Greeting returns the opening line spoken as soon as the audio stream opens.
// When a borrower name is known it is worked into the greeting.
func Greeting(language, borrowerName string) string {
	p := lookup(language)
	name := strings.TrimSpace(borrowerName)
	if name == "" {
		return p.greeting
	}
	switch language {
	case Hindi:
		return "नमस्ते " + name + " जी! " + strings.TrimPrefix(p.greeting, "नमस्ते! ")
	case Tamil:
		return "வணக்கம் " + name + "! " + strings.TrimPrefix(p.greeting, "வணக்கம்! ")
	default:
		return "Hello " + name + "! " + strings.TrimPrefix(p.greeting, "Hello! ")
	}
}

// Persona returns the system prompt used for reply generation in a language.
func Persona(language string) string {
	return lookup(language).persona
}

// FallbackPhrase is the fixed apology spoken when all reply providers fail.
func FallbackPhrase(language string) string {
	return lookup(language).fallback
}
