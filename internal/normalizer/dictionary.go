package normalizer

import (
	"bufio"
	_ "embed"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"unicode"
	"unicode/utf8"

	"github.com/spigell/interview-scorer/internal/fuzzy"
)

//go:embed words.txt
var defaultWords string

// Dictionary is a frequency-ranked general vocabulary used by the spelling
// stage.
type Dictionary struct {
	rank  map[string]int
	words []string
}

var (
	defaultDictOnce sync.Once
	defaultDict     *Dictionary
)

// DefaultDictionary returns the built-in dictionary. It is parsed once and
// shared; Dictionary is read-only after construction.
func DefaultDictionary() *Dictionary {
	defaultDictOnce.Do(func() {
		dict, err := ReadDictionary(strings.NewReader(defaultWords))
		if err != nil {
			panic(fmt.Sprintf("built-in dictionary: %v", err))
		}
		defaultDict = dict
	})
	return defaultDict
}

// ReadDictionary parses one word per line. Blank lines and lines starting
// with '#' are ignored; the first occurrence of a word fixes its rank.
func ReadDictionary(r io.Reader) (*Dictionary, error) {
	d := &Dictionary{rank: make(map[string]int)}
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.ToLower(strings.TrimSpace(scanner.Text()))
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		d.add(line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading dictionary: %w", err)
	}
	return d, nil
}

// LoadDictionaryFile reads a word list from path and appends it to the
// built-in vocabulary, ranked after it.
func LoadDictionaryFile(path string) (*Dictionary, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening dictionary %q: %w", path, err)
	}
	defer f.Close()

	extra, err := ReadDictionary(f)
	if err != nil {
		return nil, err
	}

	base := DefaultDictionary()
	merged := &Dictionary{rank: make(map[string]int, len(base.words)+len(extra.words))}
	for _, w := range base.words {
		merged.add(w)
	}
	for _, w := range extra.words {
		merged.add(w)
	}
	return merged, nil
}

func (d *Dictionary) add(word string) {
	if _, ok := d.rank[word]; ok {
		return
	}
	d.rank[word] = len(d.words)
	d.words = append(d.words, word)
}

// Len returns the number of distinct words.
func (d *Dictionary) Len() int { return len(d.words) }

// Contains reports an exact match.
func (d *Dictionary) Contains(word string) bool {
	_, ok := d.rank[word]
	return ok
}

// Known reports whether token is a dictionary word, an inflection of one,
// or contains digits (numbers and versions are never corrected).
func (d *Dictionary) Known(token string) bool {
	if token == "" || d.Contains(token) || hasDigit(token) {
		return true
	}
	for _, stem := range stems(token) {
		if d.Contains(stem) {
			return true
		}
	}
	return false
}

// Correct returns the closest dictionary word to token. Short tokens allow
// one edit, longer ones two; ties go to the more frequent word. Filler words
// are never suggested.
func (d *Dictionary) Correct(token string) (string, bool) {
	n := utf8.RuneCountInString(token)
	if n < 2 {
		return "", false
	}
	maxDist := 2
	if n <= 4 {
		maxDist = 1
	}

	best, bestDist := "", maxDist+1
	for _, w := range d.words {
		wn := utf8.RuneCountInString(w)
		if wn-n > maxDist || n-wn > maxDist || IsFiller(w) {
			continue
		}
		dist := fuzzy.Distance(token, w)
		if dist < bestDist {
			best, bestDist = w, dist
			if dist == 1 {
				// Words are rank-ordered; nothing later can beat an
				// earlier single edit except an exact match, which
				// Known already handled.
				break
			}
		}
	}
	if best == "" {
		return "", false
	}
	return best, true
}

func hasDigit(s string) bool {
	for _, r := range s {
		if unicode.IsDigit(r) {
			return true
		}
	}
	return false
}

// stems returns candidate base forms for common English inflections.
func stems(token string) []string {
	var out []string
	add := func(s string) {
		if utf8.RuneCountInString(s) >= 2 {
			out = append(out, s)
		}
	}

	trim := func(suffix string) (string, bool) {
		if strings.HasSuffix(token, suffix) && len(token) > len(suffix) {
			return strings.TrimSuffix(token, suffix), true
		}
		return "", false
	}

	if s, ok := trim("ies"); ok {
		add(s + "y")
	}
	if s, ok := trim("es"); ok {
		add(s)
	}
	if s, ok := trim("s"); ok {
		add(s)
	}
	for _, suffix := range []string{"ed", "er", "est"} {
		if s, ok := trim(suffix); ok {
			add(s)
			add(s + "e")
			add(undouble(s))
			if strings.HasSuffix(s, "i") {
				add(strings.TrimSuffix(s, "i") + "y")
			}
		}
	}
	if s, ok := trim("ing"); ok {
		add(s)
		add(s + "e")
		add(undouble(s))
	}
	if s, ok := trim("ly"); ok {
		add(s)
		if strings.HasSuffix(s, "i") {
			add(strings.TrimSuffix(s, "i") + "y")
		}
	}
	for _, suffix := range []string{"ment", "ness", "ful", "less"} {
		if s, ok := trim(suffix); ok {
			add(s)
		}
	}
	return out
}

// undouble strips a doubled final consonant: "stopp" -> "stop".
func undouble(s string) string {
	n := len(s)
	if n >= 2 && s[n-1] == s[n-2] && !strings.ContainsRune("aeiou", rune(s[n-1])) {
		return s[:n-1]
	}
	return s
}
