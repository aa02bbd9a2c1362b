package query

// Acronyms maps fixed, well-known short forms to their code-vocabulary
// expansions. Kept deliberately small and curated: a fuzzy match against an
// unbounded dictionary produces more false positives than it resolves.
var Acronyms = map[string][]string{
	"db":    {"database"},
	"cfg":   {"config", "configuration"},
	"auth":  {"authentication", "authorization"},
	"api":   {"interface", "endpoint"},
	"ctx":   {"context"},
	"err":   {"error"},
	"req":   {"request"},
	"resp":  {"response"},
	"svc":   {"service"},
	"repo":  {"repository"},
	"env":   {"environment"},
	"var":   {"variable"},
	"fn":    {"function"},
	"impl":  {"implementation"},
	"init":  {"initialize", "initialization"},
	"msg":   {"message"},
	"pkg":   {"package"},
	"proc":  {"process"},
	"args":  {"arguments", "parameters"},
	"params": {"parameters", "arguments"},
	"conn":  {"connection"},
	"addr":  {"address"},
	"idx":   {"index"},
	"mgr":   {"manager"},
	"util":  {"utility", "utilities"},
	"tmp":   {"temporary"},
	"len":   {"length"},
	"max":   {"maximum"},
	"min":   {"minimum"},
	"sync":  {"synchronous", "synchronize"},
	"async": {"asynchronous"},
	"auth0": {"authentication"},
	"mw":    {"middleware"},
	"ttl":   {"expiry", "expiration"},
	"crud":  {"create", "read", "update", "delete"},
	"ci":    {"continuous integration"},
	"cd":    {"continuous deployment", "continuous delivery"},
}

// stopWords guards against acronyms matching ordinary short English words
// under edit distance 1 (e.g. "not" must never resolve to "HOT").
var stopWords = map[string]bool{
	"not": true, "and": true, "the": true, "for": true, "are": true,
	"but": true, "can": true, "how": true, "was": true, "has": true,
	"had": true, "you": true, "who": true, "why": true, "let": true,
	"all": true, "any": true, "its": true,
}

// typoCorrections is a small fixed dictionary of common misspellings applied
// before expansion proper.
var typoCorrections = map[string]string{
	"fucntion":  "function",
	"recieve":   "receive",
	"seperate":  "separate",
	"lenght":    "length",
	"databse":   "database",
	"initalize": "initialize",
	"occured":   "occurred",
	"langauge":  "language",
	"paramter":  "parameter",
	"respones":  "response",
}

// acronymFlatWords flattens Acronyms into a single expansion set used for
// the term-level fuzzy match against expansion vocabulary (spec: terms >= 4
// chars fuzzy-match against tokens within acronym expansions).
var acronymFlatWords = buildAcronymFlatWords()

func buildAcronymFlatWords() map[string]bool {
	set := make(map[string]bool)
	for _, exps := range Acronyms {
		for _, e := range exps {
			for _, w := range tokenize(e) {
				set[w] = true
			}
		}
	}
	return set
}
