package normalizer

import (
	"context"
	"regexp"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"
)

// defaultPhrases maps multi-word phrases that speech recognizers commonly
// produce for technical terms to the intended wording. Every replacement is
// made of dictionary words or domain terms so later stages leave it alone.
var defaultPhrases = map[string]string{
	"tensor flow":        "tensorflow",
	"tensor flaw":        "tensorflow",
	"pie torch":          "pytorch",
	"pi torch":           "pytorch",
	"sci kit learn":      "scikit learn",
	"psychic learn":      "scikit learn",
	"num pie":            "numpy",
	"pan does":           "pandas",
	"cuber netes":        "kubernetes",
	"coober netties":     "kubernetes",
	"my sequel":          "mysql",
	"post gress":         "postgresql",
	"post gres":          "postgresql",
	"git hub":            "github",
	"jupiter notebook":   "jupyter notebook",
	"mushy learning":     "machine learning",
	"machine leaning":    "machine learning",
	"deep leaning":       "deep learning",
	"data signs":         "data science",
	"neural net work":    "neural network",
	"over fitting":       "overfitting",
	"under fitting":      "underfitting",
	"hyper parameter":    "hyperparameter",
	"hyper parameters":   "hyperparameters",
	"fast api":           "fastapi",
	"java script":        "javascript",
	"type script":        "typescript",
	"dev ops":            "devops",
	"micro services":     "microservices",
	"my crow services":   "microservices",
	"sequel server":      "sql server",
	"power bi":           "powerbi",
	"hugging face":       "huggingface",
	"lang chain":         "langchain",
	"open cv":            "opencv",
	"x g boost":          "xgboost",
	"a p i":              "api",
	"back propagation":   "backpropagation",
	"cross validation":   "crossvalidation",
	"stake holders":      "stakeholders",
	"fine tuning":        "finetuning",
	"pre processing":     "preprocessing",
	"data frame":         "dataframe",
}

// DefaultPhrases returns a copy of the built-in phrase corrections.
func DefaultPhrases() map[string]string {
	out := make(map[string]string, len(defaultPhrases))
	for k, v := range defaultPhrases {
		out[k] = v
	}
	return out
}

type phraseRule struct {
	pattern     *regexp.Regexp
	replacement string
}

type phraseStage struct {
	rules []phraseRule
}

func newPhraseStage(phrases map[string]string) *phraseStage {
	keys := make([]string, 0, len(phrases))
	for k := range phrases {
		if strings.TrimSpace(k) != "" {
			keys = append(keys, k)
		}
	}
	// Longest phrases first, then lexical order for a stable result.
	sort.Slice(keys, func(i, j int) bool {
		if len(keys[i]) != len(keys[j]) {
			return len(keys[i]) > len(keys[j])
		}
		return keys[i] < keys[j]
	})

	rules := make([]phraseRule, 0, len(keys))
	for _, k := range keys {
		words := strings.Fields(strings.ToLower(k))
		for i, w := range words {
			words[i] = regexp.QuoteMeta(w)
		}
		rules = append(rules, phraseRule{
			pattern:     regexp.MustCompile(`(?i)` + strings.Join(words, `\s+`)),
			replacement: strings.ToLower(strings.TrimSpace(phrases[k])),
		})
	}
	return &phraseStage{rules: rules}
}

func (s *phraseStage) Name() string { return "phrases" }

func (s *phraseStage) Apply(_ context.Context, text string) (string, error) {
	for _, rule := range s.rules {
		text = replaceWholeWords(rule.pattern, text, rule.replacement)
	}
	return text, nil
}

// replaceWholeWords replaces matches of re that are not glued to a letter,
// mark or digit on either side.
func replaceWholeWords(re *regexp.Regexp, text, replacement string) string {
	var b strings.Builder
	last, replaced := 0, false
	for _, m := range re.FindAllStringIndex(text, -1) {
		if !atWordBoundary(text, m[0], m[1]) {
			continue
		}
		b.WriteString(text[last:m[0]])
		b.WriteString(replacement)
		last, replaced = m[1], true
	}
	if !replaced {
		return text
	}
	b.WriteString(text[last:])
	return b.String()
}

func atWordBoundary(text string, start, end int) bool {
	if start > 0 {
		if r, _ := utf8.DecodeLastRuneInString(text[:start]); isWordRune(r) {
			return false
		}
	}
	if end < len(text) {
		if r, _ := utf8.DecodeRuneInString(text[end:]); isWordRune(r) {
			return false
		}
	}
	return true
}

func isWordRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsMark(r)
}
