package embedding

import (
	"context"
	"math"
	"strings"
	"unicode"

	"github.com/cespare/xxhash/v2"
)

const defaultHashingDimensions = 256

// Hashing is an offline embedder that projects word unigrams and character
// trigrams into a fixed number of buckets. It has no semantic knowledge but
// gives stable, comparable vectors for lexically related text, which is
// enough for local runs and fixtures.
type Hashing struct {
	dims int
}

// NewHashing creates a hashing embedder with the given vector size.
func NewHashing(dims int) *Hashing {
	if dims <= 0 {
		dims = defaultHashingDimensions
	}
	return &Hashing{dims: dims}
}

// Model returns a descriptive identifier of the embedder.
func (h *Hashing) Model() string { return "hashing" }

func (h *Hashing) Embed(ctx context.Context, text string) (Vector, error) {
	if err := ctx.Err(); err != nil {
		return nil, unavailable("hashing", err)
	}
	return h.vector(text), nil
}

func (h *Hashing) EmbedBatch(ctx context.Context, texts []string) ([]Vector, error) {
	out := make([]Vector, len(texts))
	for i, text := range texts {
		if err := ctx.Err(); err != nil {
			return nil, unavailable("hashing", err)
		}
		out[i] = h.vector(text)
	}
	return out, nil
}

func (h *Hashing) vector(text string) Vector {
	v := make(Vector, h.dims)
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})

	for _, w := range words {
		h.add(v, "w:"+w, 1)
		padded := []rune("^" + w + "$")
		for i := 0; i+3 <= len(padded); i++ {
			h.add(v, "c:"+string(padded[i:i+3]), 0.5)
		}
	}

	var norm float64
	for _, x := range v {
		norm += float64(x) * float64(x)
	}
	if norm == 0 {
		return v
	}
	scale := float32(1 / math.Sqrt(norm))
	for i := range v {
		v[i] *= scale
	}
	return v
}

func (h *Hashing) add(v Vector, feature string, weight float32) {
	sum := xxhash.Sum64String(feature)
	idx := int(sum % uint64(h.dims))
	// The top bit picks the sign so unrelated features tend to cancel out.
	if sum>>63 == 1 {
		weight = -weight
	}
	v[idx] += weight
}
