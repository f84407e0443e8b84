// Package confidence estimates how far a transcript can be trusted, as an
// integer from 0 to 100.
//
// The acoustic value comes from the speech recognizer. Values at or below
// zero are an average token log-probability and are exponentiated; positive
// values are taken as an already computed probability. A missing,
// non-finite or out-of-range value switches to a word-count heuristic.
package confidence

import (
	"math"
	"strings"

	"github.com/spigell/interview-scorer/internal/rubric"
)

const (
	MinScore = 0
	MaxScore = 100

	fillerPenalty    = 3
	maxFillerPenalty = 15
)

// Acoustic is an optional recognizer likelihood.
type Acoustic struct {
	Value   float64 `json:"value"`
	Present bool    `json:"present"`
}

// NewAcoustic returns a present acoustic value.
func NewAcoustic(v float64) Acoustic { return Acoustic{Value: v, Present: true} }

// NoAcoustic returns an absent acoustic value.
func NoAcoustic() Acoustic { return Acoustic{} }

// Probability converts the acoustic value to a probability in [0,1]. It
// reports false when the value is absent or unusable.
func (a Acoustic) Probability() (float64, bool) {
	if !a.Present || math.IsNaN(a.Value) || math.IsInf(a.Value, 0) || a.Value > 1 {
		return 0, false
	}
	if a.Value > 0 {
		return a.Value, true
	}
	return math.Exp(a.Value), true
}

type Result struct {
	Value    int    `json:"value"`
	Fallback bool   `json:"fallback,omitempty"`
	Reason   string `json:"reason,omitempty"`
}

// hedges are counted per token; hedgePhrases per adjacent token pair.
var (
	hedges = map[string]struct{}{
		"um": {}, "uh": {}, "er": {}, "ah": {}, "like": {}, "so": {},
	}
	hedgePhrases = map[string]struct{}{
		"you know": {}, "i mean": {},
	}
)

// Estimate never fails: unusable input degrades to the heuristic or to 0.
func Estimate(text string, acoustic Acoustic) Result {
	if strings.TrimSpace(text) == "" {
		return Result{Value: MinScore, Reason: "empty transcript"}
	}
	if rubric.IsNonRelevant(text) {
		return Result{Value: MinScore, Reason: "non-relevant transcript"}
	}

	words := strings.Fields(strings.ToLower(text))

	prob, ok := acoustic.Probability()
	if !ok {
		reason := "acoustic value missing"
		if acoustic.Present {
			reason = "acoustic value unusable"
		}
		return Result{Value: heuristic(len(words)), Fallback: true, Reason: reason}
	}

	score := prob*100 + float64(lengthBonus(len(words))) - float64(penalty(words))
	score = math.Max(MinScore, math.Min(MaxScore, score))

	return Result{Value: int(math.Round(score))}
}

func heuristic(words int) int {
	switch {
	case words >= 25:
		return 70
	case words >= 15:
		return 50
	case words >= 8:
		return 30
	case words >= 3:
		return 15
	default:
		return 0
	}
}

func lengthBonus(words int) int {
	switch {
	case words >= 30:
		return 20
	case words >= 20:
		return 15
	case words >= 10:
		return 10
	case words >= 5:
		return 5
	default:
		return 0
	}
}

func penalty(words []string) int {
	count := 0
	for i, w := range words {
		if _, ok := hedges[w]; ok {
			count++
		}
		if i > 0 {
			if _, ok := hedgePhrases[words[i-1]+" "+w]; ok {
				count++
			}
		}
	}
	return min(count*fillerPenalty, maxFillerPenalty)
}
