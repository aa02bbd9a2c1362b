package query

import "strings"

// ExpanderOption configures an Expander.
type ExpanderOption func(*Expander)

// WithMaxAcronymDistance overrides the fuzzy acronym edit-distance budget
// (default 1).
func WithMaxAcronymDistance(d int) ExpanderOption {
	return func(e *Expander) { e.maxAcronymDist = d }
}

// WithTypoCorrection toggles the fixed typo dictionary pass (default on).
func WithTypoCorrection(enabled bool) ExpanderOption {
	return func(e *Expander) { e.typoCorrect = enabled }
}

// Expander performs fuzzy/acronym query expansion ahead of lexical search,
// closing the vocabulary gap between a user's short-form query and the
// terms that actually appear in stored memories.
type Expander struct {
	acronyms       map[string][]string
	stopWords      map[string]bool
	typos          map[string]string
	maxAcronymDist int
	typoCorrect    bool
}

// NewExpander builds an Expander over the fixed acronym table.
func NewExpander(opts ...ExpanderOption) *Expander {
	e := &Expander{
		acronyms:       Acronyms,
		stopWords:      stopWords,
		typos:          typoCorrections,
		maxAcronymDist: 1,
		typoCorrect:    true,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Expand returns the original query terms plus any acronym/typo expansions,
// space-joined and deduplicated. Disabled entirely by the caller skipping
// this stage (fuzzy expansion is opt-out per spec, not mandatory).
func (e *Expander) Expand(q string) string {
	terms := tokenize(q)
	if len(terms) == 0 {
		return q
	}

	seen := make(map[string]bool, len(terms)*2)
	var out []string

	add := func(term string) {
		lower := strings.ToLower(term)
		if lower == "" || seen[lower] {
			return
		}
		seen[lower] = true
		out = append(out, term)
	}

	for _, term := range terms {
		corrected := term
		if e.typoCorrect {
			if fix, ok := e.typos[strings.ToLower(term)]; ok {
				corrected = fix
			}
		}
		add(corrected)

		for _, exp := range e.expansionsFor(corrected) {
			add(exp)
		}
	}

	return strings.Join(out, " ")
}

// ExpandToTerms returns the expanded query as individual terms.
func (e *Expander) ExpandToTerms(q string) []string {
	return tokenize(e.Expand(q))
}

// expansionsFor resolves a single term to acronym expansions, following the
// exact/fuzzy-acronym/fuzzy-vocabulary cascade.
func (e *Expander) expansionsFor(term string) []string {
	lower := strings.ToLower(term)
	if len(lower) < 3 {
		return nil
	}
	if e.stopWords[lower] {
		return nil
	}

	// Exact acronym lookup (terms >= 3 chars).
	if exps, ok := e.acronyms[lower]; ok {
		return exps
	}

	// Fuzzy acronym lookup, edit distance 1. Acronyms <= 4 chars require an
	// exact length match (a fuzzy match there produces too many collisions
	// among short tokens) while longer acronyms may differ in length by one.
	for acr, exps := range e.acronyms {
		if len(acr) <= 4 && len(acr) != len(lower) {
			continue
		}
		if levenshtein(lower, acr, e.maxAcronymDist) <= e.maxAcronymDist {
			return exps
		}
	}

	// Terms >= 4 chars: fuzzy match against the flattened acronym-expansion
	// vocabulary itself (bridges "fucntion"-style near-misses of expansion
	// words that aren't acronyms).
	if len(lower) >= 4 {
		for word := range acronymFlatWords {
			if levenshtein(lower, word, e.maxAcronymDist) <= e.maxAcronymDist {
				return []string{word}
			}
		}
	}

	return nil
}
