package rank

// DiversifyItem is the subset of a ranked memory the diversifier needs to
// estimate pairwise similarity without re-embedding every candidate.
type DiversifyItem struct {
	ID        int64
	Relevance float64
	SpecFolder string
	Date      string // content date bucket (e.g. created_at truncated to day), empty if unknown
}

const defaultLambda = 0.3

// Diversifier re-ranks a candidate list with an MMR-style penalty so results
// from the same folder or same day don't crowd out distinct material,
// without requiring a second embedding pass: folder/date equality stands in
// for a cheap similarity proxy (0.8 same folder, 0.5 same date).
type Diversifier struct {
	Lambda float64
}

// NewDiversifier creates a Diversifier with the default lambda (0.3).
func NewDiversifier() *Diversifier {
	return &Diversifier{Lambda: defaultLambda}
}

// Diversify greedily selects items maximizing relevance - lambda*max_similarity
// to already-selected items. The top-ranked item is always kept first.
func (d *Diversifier) Diversify(items []DiversifyItem, limit int) []DiversifyItem {
	if len(items) == 0 {
		return items
	}
	if limit <= 0 || limit > len(items) {
		limit = len(items)
	}

	lambda := d.Lambda
	if lambda <= 0 {
		lambda = defaultLambda
	}

	selected := []DiversifyItem{items[0]}
	remaining := append([]DiversifyItem{}, items[1:]...)

	for len(selected) < limit && len(remaining) > 0 {
		bestIdx := -1
		bestScore := 0.0
		for i, cand := range remaining {
			maxSim := 0.0
			for _, s := range selected {
				if sim := proxySimilarity(cand, s); sim > maxSim {
					maxSim = sim
				}
			}
			score := cand.Relevance - lambda*maxSim
			if bestIdx == -1 || score > bestScore {
				bestIdx = i
				bestScore = score
			}
		}
		selected = append(selected, remaining[bestIdx])
		remaining = append(remaining[:bestIdx], remaining[bestIdx+1:]...)
	}
	return selected
}

// proxySimilarity estimates similarity between two candidates from cheap
// metadata: same folder contributes 0.8, same date contributes 0.5, and the
// two stack (capped at 1.0) when both hold.
func proxySimilarity(a, b DiversifyItem) float64 {
	var sim float64
	if a.SpecFolder != "" && a.SpecFolder == b.SpecFolder {
		sim += 0.8
	}
	if a.Date != "" && a.Date == b.Date {
		sim += 0.5
	}
	if sim > 1 {
		sim = 1
	}
	return sim
}
