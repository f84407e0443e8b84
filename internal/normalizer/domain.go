package normalizer

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/spigell/interview-scorer/internal/fuzzy"
)

const (
	domainMaxDistance = 3
	domainMinScore    = 65
)

// defaultDomainTerms is technical vocabulary that general dictionaries miss
// and speech recognizers mangle.
var defaultDomainTerms = []string{
	"python", "java", "javascript", "typescript", "golang", "kotlin", "swift",
	"sql", "nosql", "mysql", "postgresql", "mongodb", "redis", "kafka",
	"spark", "hadoop", "airflow", "tensorflow", "pytorch", "keras", "scikit",
	"sklearn", "pandas", "numpy", "scipy", "matplotlib", "seaborn", "jupyter",
	"docker", "kubernetes", "git", "github", "gitlab", "linux", "aws",
	"azure", "gcp", "api", "apis", "rest", "graphql", "json", "html", "css",
	"react", "flask", "django", "fastapi", "nodejs", "microservices",
	"devops", "mlops", "cicd", "agile", "scrum", "kanban", "jira", "tableau",
	"powerbi", "excel", "etl", "dataframe", "regression", "classification",
	"clustering", "overfitting", "underfitting", "regularization",
	"hyperparameter", "hyperparameters", "gradient", "backpropagation",
	"crossvalidation", "finetuning", "preprocessing", "cnn", "rnn", "lstm",
	"transformer", "transformers", "bert", "gpt", "llm", "nlp", "embedding",
	"embeddings", "tokenization", "normalization", "xgboost", "lightgbm",
	"kmeans", "pca", "svm", "streamlit", "opencv", "yolo", "huggingface",
	"langchain", "ai", "ml", "ui", "ux", "figma", "frontend", "backend",
	"fullstack", "scalability", "latency", "throughput", "stakeholder",
	"stakeholders", "kpi", "okr", "dicoding",
}

// DefaultDomainTerms returns a copy of the built-in domain vocabulary.
func DefaultDomainTerms() []string {
	return append([]string(nil), defaultDomainTerms...)
}

// DomainTerms is a deduplicated, ordered domain vocabulary.
type DomainTerms struct {
	terms []string
	set   map[string]struct{}
}

// NewDomainTerms lowercases and deduplicates terms, keeping first occurrence order.
func NewDomainTerms(terms []string) *DomainTerms {
	d := &DomainTerms{set: make(map[string]struct{}, len(terms))}
	for _, t := range terms {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" {
			continue
		}
		if _, ok := d.set[t]; ok {
			continue
		}
		d.set[t] = struct{}{}
		d.terms = append(d.terms, t)
	}
	return d
}

// Contains reports whether term is in the vocabulary.
func (d *DomainTerms) Contains(term string) bool {
	_, ok := d.set[term]
	return ok
}

// Correct returns the closest domain term for token when it is within
// domainMaxDistance edits or scores at least domainMinScore. The distance
// rule only applies while the edit count is below the token length, so a
// short token is never replaced by an unrelated term.
func (d *DomainTerms) Correct(token string) (string, bool) {
	match, ok := fuzzy.Closest(token, d.terms)
	if !ok {
		return "", false
	}
	byDistance := match.Distance <= domainMaxDistance && match.Distance < utf8.RuneCountInString(token)
	if byDistance || match.Score >= domainMinScore {
		return match.Value, true
	}
	return "", false
}

type spellingStage struct {
	dict   *Dictionary
	domain *DomainTerms
}

func newSpellingStage(dict *Dictionary, domain *DomainTerms) *spellingStage {
	return &spellingStage{dict: dict, domain: domain}
}

func (s *spellingStage) Name() string { return "spelling" }

func (s *spellingStage) Apply(_ context.Context, text string) (string, error) {
	tokens := strings.Fields(text)
	for i, tok := range tokens {
		if s.dict.Known(tok) || s.domain.Contains(tok) {
			continue
		}
		if fixed, ok := s.dict.Correct(tok); ok {
			tokens[i] = fixed
		}
	}
	return strings.Join(tokens, " "), nil
}

type domainStage struct {
	dict   *Dictionary
	domain *DomainTerms
}

func newDomainStage(dict *Dictionary, domain *DomainTerms) *domainStage {
	return &domainStage{dict: dict, domain: domain}
}

func (s *domainStage) Name() string { return "domain" }

func (s *domainStage) Apply(_ context.Context, text string) (string, error) {
	tokens := strings.Fields(text)
	for i, tok := range tokens {
		if s.dict.Known(tok) || s.domain.Contains(tok) {
			continue
		}
		if term, ok := s.domain.Correct(tok); ok {
			tokens[i] = term
		}
	}
	return strings.Join(tokens, " "), nil
}
