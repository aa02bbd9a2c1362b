// Package embedding defines the EmbeddingProvider capability seam that
// network-facing provider HTTP clients implement, plus a deterministic,
// network-free StaticProvider usable as the default when no API credential
// is configured.
package embedding

import (
	"context"
	"fmt"
	"hash/fnv"
	"math"
	"regexp"
	"strings"
	"sync"
)

// Profile identifies the active embedding configuration: a DB is opened
// per (Provider, Model, Dimension) triple so dimension mismatches across
// profile switches are impossible.
type Profile struct {
	Provider  string
	Model     string
	Dimension int
}

// fallbackDimensions supplies a conservative dimension when the active
// provider's metadata isn't warm yet.
var fallbackDimensions = map[string]int{
	"voyage": 1024,
	"openai": 1536,
}

// ResolveDimension returns provider's known dimension, the fixed fallback
// for recognized providers, or 768 for anything else/unset.
func ResolveDimension(provider string) int {
	if d, ok := fallbackDimensions[strings.ToLower(provider)]; ok {
		return d
	}
	return 768
}

// Provider generates dense embeddings for memory content and search
// queries. Concrete network-facing implementations (Voyage, OpenAI,
// hf-local, Ollama) live behind this interface; only the StaticProvider
// below ships as a concrete, always-available fallback.
type Provider interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	Dimension() int
	Name() string
	Close() error
}

// StaticDimensions is the fixed width of StaticProvider's hash-based vectors.
const StaticDimensions = 768

const (
	tokenWeight = 0.7
	ngramWeight = 0.3
	ngramSize   = 3
)

var tokenRegex = regexp.MustCompile(`[a-zA-Z0-9]+`)

var stopWords = map[string]bool{
	"func": true, "function": true, "def": true, "class": true,
	"return": true, "import": true, "const": true, "var": true,
	"let": true, "int": true, "string": true, "bool": true,
	"void": true, "true": true, "false": true, "nil": true,
	"null": true, "this": true, "self": true, "new": true,
	"the": true, "a": true, "an": true, "is": true, "are": true,
}

// StaticProvider generates deterministic, hash-based embeddings with no
// network or model download dependency. Semantic quality is reduced
// relative to a real provider, but results are reproducible and fast
// enough for tests and offline operation.
type StaticProvider struct {
	mu     sync.RWMutex
	closed bool
}

// NewStaticProvider builds a StaticProvider.
func NewStaticProvider() *StaticProvider { return &StaticProvider{} }

func (p *StaticProvider) Name() string    { return "static" }
func (p *StaticProvider) Dimension() int  { return StaticDimensions }

func (p *StaticProvider) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	return nil
}

// Embed hashes tokens and character n-grams of text into a fixed-width
// vector, weighting whole tokens higher than n-grams, then L2-normalizes.
func (p *StaticProvider) Embed(_ context.Context, text string) ([]float32, error) {
	p.mu.RLock()
	closed := p.closed
	p.mu.RUnlock()
	if closed {
		return nil, fmt.Errorf("static embedding provider is closed")
	}

	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return make([]float32, StaticDimensions), nil
	}

	vector := make([]float32, StaticDimensions)

	tokens := tokenRegex.FindAllString(strings.ToLower(trimmed), -1)
	for _, tok := range tokens {
		if stopWords[tok] {
			continue
		}
		vector[hashToIndex(tok)] += tokenWeight
	}

	for _, tok := range tokens {
		for i := 0; i+ngramSize <= len(tok); i++ {
			gram := tok[i : i+ngramSize]
			vector[hashToIndex(gram)] += ngramWeight
		}
	}

	return normalize(vector), nil
}

func hashToIndex(s string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(s))
	return int(h.Sum32() % uint32(StaticDimensions))
}

func normalize(v []float32) []float32 {
	var sumSq float64
	for _, x := range v {
		sumSq += float64(x) * float64(x)
	}
	if sumSq == 0 {
		return v
	}
	norm := float32(math.Sqrt(sumSq))
	out := make([]float32, len(v))
	for i, x := range v {
		out[i] = x / norm
	}
	return out
}
