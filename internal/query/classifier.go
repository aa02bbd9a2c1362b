package query

import (
	"strings"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
)

// Intent is the classified purpose behind a search query.
type Intent string

const (
	IntentAddFeature    Intent = "add_feature"
	IntentFixBug        Intent = "fix_bug"
	IntentRefactor      Intent = "refactor"
	IntentSecurityAudit Intent = "security_audit"
	IntentUnderstand    Intent = "understand"
)

// classifyThreshold is the blended-score floor below which a query falls
// back to the understand intent rather than trusting a weak signal.
const classifyThreshold = 0.25

// keywordWeight is the default cache size for classification results.
const defaultCacheSize = 2000

// keywordSets lists primary (strong signal, weight 1.0) and secondary (weak
// signal, weight 0.5) terms per intent.
type keywordSet struct {
	primary   []string
	secondary []string
}

var intentKeywords = map[Intent]keywordSet{
	IntentAddFeature: {
		primary:   []string{"add", "implement", "create", "new feature", "feature request"},
		secondary: []string{"support", "enable", "introduce", "extend"},
	},
	IntentFixBug: {
		primary:   []string{"fix", "bug", "broken", "crash", "panic", "fails"},
		secondary: []string{"issue", "wrong", "unexpected", "regression"},
	},
	IntentRefactor: {
		primary:   []string{"refactor", "cleanup", "clean up", "simplify", "reorganize"},
		secondary: []string{"rename", "extract", "restructure", "tidy"},
	},
	IntentSecurityAudit: {
		primary:   []string{"security", "vulnerability", "exploit", "cve"},
		secondary: []string{"audit", "injection", "bypass", "leak"},
	},
	IntentUnderstand: {
		primary:   []string{"how does", "what is", "explain", "understand"},
		secondary: []string{"why", "where", "overview", "walkthrough"},
	},
}

// WeightOverride replaces the default smart-ranking composite weights
// (similarity/recency/popularity) for a given intent. Overrides replace the
// corresponding component outright rather than blending with it.
type WeightOverride struct {
	Similarity float64
	Recency    float64
	Popularity float64
}

// intentWeightOverrides is the fixed per-intent weight override table.
// Bug fixes and security audits weight recency and precision higher;
// understanding tasks lean on popularity (well-trodden explanations surface
// first); refactors and feature work stay close to the smart-ranking
// default.
var intentWeightOverrides = map[Intent]WeightOverride{
	IntentFixBug:        {Similarity: 0.6, Recency: 0.35, Popularity: 0.05},
	IntentSecurityAudit: {Similarity: 0.65, Recency: 0.25, Popularity: 0.10},
	IntentRefactor:      {Similarity: 0.55, Recency: 0.25, Popularity: 0.20},
	IntentAddFeature:    {Similarity: 0.5, Recency: 0.3, Popularity: 0.2},
	IntentUnderstand:    {Similarity: 0.4, Recency: 0.2, Popularity: 0.4},
}

// WeightsFor returns the weight override for an intent and whether one is
// registered (callers should fall back to default smart-ranking weights
// when ok is false).
func WeightsFor(intent Intent) (WeightOverride, bool) {
	w, ok := intentWeightOverrides[intent]
	return w, ok
}

// Classification is the result of intent classification.
type Classification struct {
	Intent     Intent
	Confidence float64
	Scores     map[Intent]float64
}

// Classifier blends keyword and pattern signals into an intent
// classification, caching results by normalized query text.
type Classifier struct {
	mu    sync.Mutex
	cache *lru.Cache[string, Classification]
}

// NewClassifier builds a Classifier with an LRU result cache.
func NewClassifier() *Classifier {
	cache, _ := lru.New[string, Classification](defaultCacheSize)
	return &Classifier{cache: cache}
}

// Classify returns the blended intent classification for a query.
func (c *Classifier) Classify(query string) Classification {
	key := normalizeQuery(query)

	c.mu.Lock()
	if cached, ok := c.cache.Get(key); ok {
		c.mu.Unlock()
		return cached
	}
	c.mu.Unlock()

	result := classify(query)

	c.mu.Lock()
	c.cache.Add(key, result)
	c.mu.Unlock()

	return result
}

func normalizeQuery(q string) string {
	return strings.ToLower(strings.TrimSpace(q))
}

func classify(query string) Classification {
	scores := make(map[Intent]float64, len(intentKeywords))
	lower := strings.ToLower(query)

	var best Intent
	var bestScore float64
	first := true

	for intent, kw := range intentKeywords {
		kScore := keywordScore(kw, lower)
		pScore := patternScore(intent, query)
		blended := 0.6*kScore + 0.4*pScore
		scores[intent] = blended

		if first || blended > bestScore {
			best = intent
			bestScore = blended
			first = false
		}
	}

	if bestScore < classifyThreshold {
		return Classification{Intent: IntentUnderstand, Confidence: bestScore, Scores: scores}
	}
	return Classification{Intent: best, Confidence: bestScore, Scores: scores}
}

// keywordScore counts primary terms at weight 1.0 and secondary terms at
// weight 0.5, normalized by the total number of registered terms so the
// score stays within [0,1] regardless of vocabulary size.
func keywordScore(kw keywordSet, lowerQuery string) float64 {
	total := len(kw.primary) + len(kw.secondary)
	if total == 0 {
		return 0
	}

	var sum float64
	for _, term := range kw.primary {
		if strings.Contains(lowerQuery, term) {
			sum += 1.0
		}
	}
	for _, term := range kw.secondary {
		if strings.Contains(lowerQuery, term) {
			sum += 0.5
		}
	}

	score := sum / float64(total)
	if score > 1.0 {
		score = 1.0
	}
	return score
}
