// Package rubric holds per-question scoring rubrics and the engine that
// grades an answer against them.
package rubric

import (
	"fmt"
	"sort"
	"strconv"
)

// Tier is a rubric quality level. 4 is the best answer, 0 means unanswered
// or irrelevant.
type Tier int

const (
	MinTier Tier = 0
	MaxTier Tier = 4
)

// ParseTier parses the string keys used in rubric files.
func ParseTier(s string) (Tier, error) {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid tier %q", s)
	}
	t := Tier(n)
	if !t.Valid() {
		return 0, fmt.Errorf("tier %d out of range %d..%d", n, MinTier, MaxTier)
	}
	return t, nil
}

func (t Tier) Valid() bool { return t >= MinTier && t <= MaxTier }

func (t Tier) String() string { return strconv.Itoa(int(t)) }

// Level is one tier of a rubric: the indicator phrases that vote for it and
// the justification reported when it wins.
type Level struct {
	tier          Tier
	indicators    []string
	justification string
}

func NewLevel(tier Tier, indicators []string, justification string) Level {
	return Level{
		tier:          tier,
		indicators:    append([]string(nil), indicators...),
		justification: justification,
	}
}

func (l Level) Tier() Tier { return l.tier }

// Indicators returns a copy of the indicator phrases.
func (l Level) Indicators() []string { return append([]string(nil), l.indicators...) }

func (l Level) Justification() string { return l.justification }

// Set is the rubric of a single question. It is immutable after
// construction and safe for concurrent use.
type Set struct {
	questionID string
	question   string
	levels     map[Tier]Level
}

// NewSet validates levels and builds a rubric set. Every tier may appear at
// most once.
func NewSet(questionID, question string, levels ...Level) (*Set, error) {
	if questionID == "" {
		return nil, fmt.Errorf("question id is required")
	}

	s := &Set{
		questionID: questionID,
		question:   question,
		levels:     make(map[Tier]Level, len(levels)),
	}
	for _, l := range levels {
		if !l.tier.Valid() {
			return nil, fmt.Errorf("question %s: tier %d out of range", questionID, l.tier)
		}
		if _, ok := s.levels[l.tier]; ok {
			return nil, fmt.Errorf("question %s: duplicate tier %d", questionID, l.tier)
		}
		s.levels[l.tier] = l
	}
	return s, nil
}

func (s *Set) QuestionID() string { return s.questionID }

func (s *Set) Question() string { return s.question }

// Level returns the level defined for tier, if any.
func (s *Set) Level(t Tier) (Level, bool) {
	l, ok := s.levels[t]
	return l, ok
}

// Empty reports whether the set defines no tiers at all.
func (s *Set) Empty() bool { return s == nil || len(s.levels) == 0 }

// Tiers returns the defined tiers, highest first.
func (s *Set) Tiers() []Tier {
	out := make([]Tier, 0, len(s.levels))
	for t := range s.levels {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] > out[j] })
	return out
}

// Indicators returns every indicator phrase of the set, highest tier first.
func (s *Set) Indicators() []string {
	var out []string
	for _, t := range s.Tiers() {
		out = append(out, s.levels[t].indicators...)
	}
	return out
}

func (s *Set) justification(t Tier, fallback string) string {
	if l, ok := s.levels[t]; ok && l.justification != "" {
		return l.justification
	}
	return fallback
}

// Store maps question ids to rubric sets. It is read-only after
// construction.
type Store struct {
	sets  map[string]*Set
	order []string
}

func NewStore(sets ...*Set) (*Store, error) {
	st := &Store{sets: make(map[string]*Set, len(sets))}
	for _, s := range sets {
		if s == nil {
			continue
		}
		if _, ok := st.sets[s.questionID]; ok {
			return nil, fmt.Errorf("duplicate question %s", s.questionID)
		}
		st.sets[s.questionID] = s
		st.order = append(st.order, s.questionID)
	}
	sort.Strings(st.order)
	return st, nil
}

// Get returns the rubric of questionID. A nil store has no rubrics.
func (st *Store) Get(questionID string) (*Set, bool) {
	if st == nil {
		return nil, false
	}
	s, ok := st.sets[questionID]
	return s, ok
}

// IDs returns the question ids in lexical order.
func (st *Store) IDs() []string {
	if st == nil {
		return nil
	}
	return append([]string(nil), st.order...)
}

func (st *Store) Len() int {
	if st == nil {
		return 0
	}
	return len(st.sets)
}
