package rubric

import "strings"

// nonAnswerPhrases mark an explicit refusal to answer. Apostrophe-less
// variants cover text that already went through normalization.
var nonAnswerPhrases = []string{
	"i don't know",
	"i dont know",
	"no idea",
	"i have no idea",
	"not sure",
	"i can't answer",
	"i cant answer",
	"i cannot answer",
	"i don't understand",
	"i dont understand",
}

// NonAnswerPhrases returns a copy of the built-in non-answer phrases.
func NonAnswerPhrases() []string {
	return append([]string(nil), nonAnswerPhrases...)
}

// Tokens splits text into whitespace-separated tokens.
func Tokens(text string) []string {
	return strings.Fields(text)
}

// IsNonRelevant reports whether text is empty, at most two tokens long, or
// contains a non-answer phrase. Matching is case-insensitive.
func IsNonRelevant(text string) bool {
	t := strings.ToLower(strings.TrimSpace(text))
	if t == "" {
		return true
	}
	if len(Tokens(t)) <= 2 {
		return true
	}
	for _, phrase := range nonAnswerPhrases {
		if strings.Contains(t, phrase) {
			return true
		}
	}
	return false
}
