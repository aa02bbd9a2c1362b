package query

import "regexp"

// intentPatterns maps each intent to regexes whose match fraction
// contributes to the pattern score half of classification.
var intentPatterns = map[Intent][]*regexp.Regexp{
	IntentAddFeature: {
		regexp.MustCompile(`(?i)\badd\b`),
		regexp.MustCompile(`(?i)\bimplement\b`),
		regexp.MustCompile(`(?i)\bnew\s+(feature|endpoint|capability)\b`),
		regexp.MustCompile(`(?i)\bsupport\s+for\b`),
	},
	IntentFixBug: {
		regexp.MustCompile(`(?i)\bfix\b`),
		regexp.MustCompile(`(?i)\bbug\b`),
		regexp.MustCompile(`(?i)\berror\b`),
		regexp.MustCompile(`(?i)\bcrash(es|ing|ed)?\b`),
		regexp.MustCompile(`(?i)\bpanic\b`),
		regexp.MustCompile(`(?i)\bfail(s|ing|ed|ure)?\b`),
	},
	IntentRefactor: {
		regexp.MustCompile(`(?i)\brefactor\b`),
		regexp.MustCompile(`(?i)\bclean\s*up\b`),
		regexp.MustCompile(`(?i)\bsimplify\b`),
		regexp.MustCompile(`(?i)\brename\b`),
		regexp.MustCompile(`(?i)\breorganize\b`),
	},
	IntentSecurityAudit: {
		regexp.MustCompile(`(?i)\bsecurity\b`),
		regexp.MustCompile(`(?i)\bvulnerab(le|ility)\b`),
		regexp.MustCompile(`(?i)\bCVE-\d+`),
		regexp.MustCompile(`(?i)\bexploit\b`),
		regexp.MustCompile(`(?i)\binjection\b`),
		regexp.MustCompile(`(?i)\bauth(z|entication|orization)?\s+bypass\b`),
	},
	IntentUnderstand: {
		regexp.MustCompile(`(?i)\bhow\s+does\b`),
		regexp.MustCompile(`(?i)\bwhat\s+is\b`),
		regexp.MustCompile(`(?i)\bexplain\b`),
		regexp.MustCompile(`(?i)\bwhy\b`),
	},
}

// patternScore is the fraction of an intent's registered patterns that match
// the query, saturating at 1.0 (all further matches count for nothing more).
func patternScore(intent Intent, query string) float64 {
	patterns := intentPatterns[intent]
	if len(patterns) == 0 {
		return 0
	}
	matches := 0
	for _, p := range patterns {
		if p.MatchString(query) {
			matches++
		}
	}
	score := float64(matches) / float64(len(patterns))
	if score > 1.0 {
		score = 1.0
	}
	return score
}
