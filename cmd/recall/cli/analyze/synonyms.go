package analyze

// intentSynonyms maps lowercase prompt tokens to the intent they suggest.
// Keep this table data-only so additions stay reviewable.
var intentSynonyms = map[string]string{
	// enable-capability
	"add":       "enable-capability",
	"create":    "enable-capability",
	"implement": "enable-capability",
	"build":     "enable-capability",
	"introduce": "enable-capability",
	"support":   "enable-capability",
	"enable":    "enable-capability",
	"feature":   "enable-capability",
	"new":       "enable-capability",

	// fix-defect
	"fix":        "fix-defect",
	"bug":        "fix-defect",
	"broken":     "fix-defect",
	"crash":      "fix-defect",
	"error":      "fix-defect",
	"fails":      "fix-defect",
	"failing":    "fix-defect",
	"repair":     "fix-defect",
	"regression": "fix-defect",
	"defect":     "fix-defect",
	"wrong":      "fix-defect",

	// improve-quality
	"improve":  "improve-quality",
	"optimize": "improve-quality",
	"speed":    "improve-quality",
	"faster":   "improve-quality",
	"slow":     "improve-quality",
	"perf":     "improve-quality",
	"polish":   "improve-quality",
	"quality":  "improve-quality",
	"harden":   "improve-quality",

	// restructure
	"refactor":    "restructure",
	"rewrite":     "restructure",
	"restructure": "restructure",
	"reorganize":  "restructure",
	"extract":     "restructure",
	"rename":      "restructure",
	"move":        "restructure",
	"split":       "restructure",
	"cleanup":     "restructure",
	"simplify":    "restructure",

	// configure-infra
	"configure":  "configure-infra",
	"config":     "configure-infra",
	"setup":      "configure-infra",
	"deploy":     "configure-infra",
	"pipeline":   "configure-infra",
	"docker":     "configure-infra",
	"kubernetes": "configure-infra",
	"infra":      "configure-infra",
	"dependency": "configure-infra",
	"upgrade":    "configure-infra",

	// document
	"document":  "document",
	"docs":      "document",
	"readme":    "document",
	"comment":   "document",
	"explain":   "document",
	"changelog": "document",

	// explore
	"explore":     "explore",
	"investigate": "explore",
	"research":    "explore",
	"spike":       "explore",
	"prototype":   "explore",
	"experiment":  "explore",
	"try":         "explore",

	// resolve-blocker
	"blocked":    "resolve-blocker",
	"blocker":    "resolve-blocker",
	"unblock":    "resolve-blocker",
	"workaround": "resolve-blocker",
	"stuck":      "resolve-blocker",
}

// stopWords are tokens carrying no retrieval signal.
var stopWords = map[string]bool{
	"the": true, "a": true, "an": true, "and": true, "or": true,
	"but": true, "in": true, "on": true, "at": true, "to": true,
	"for": true, "of": true, "with": true, "by": true, "from": true,
	"is": true, "are": true, "was": true, "were": true, "be": true,
	"been": true, "it": true, "its": true, "this": true, "that": true,
	"these": true, "those": true, "can": true, "could": true,
	"should": true, "would": true, "will": true, "do": true,
	"does": true, "did": true, "not": true, "no": true, "yes": true,
	"how": true, "what": true, "when": true, "where": true,
	"why": true, "which": true, "who": true, "me": true, "my": true,
	"we": true, "our": true, "you": true, "your": true, "i": true,
	"please": true, "help": true, "need": true, "want": true,
	"make": true, "get": true, "use": true, "there": true,
	"here": true, "about": true, "into": true, "some": true,
	"all": true, "any": true, "now": true, "then": true,
	"code": true, "file": true, "files": true, "project": true,
}
