package relevance

import "strings"

// MissingTitle decides what happens to a record whose title could not be extracted.
type MissingTitle string

const (
	MissingTitlePass MissingTitle = "pass"
	MissingTitleFail MissingTitle = "fail"
)

type Predicate interface {
	IsRelevant(title string) bool
}

// KeywordPredicate keeps titles containing any keyword and none of the
// exclusion terms. Matching is case-insensitive substring.
type KeywordPredicate struct {
	keywords     []string
	exclude      []string
	missingTitle MissingTitle
}

func NewKeywordPredicate(keywords, exclude []string, missing MissingTitle) KeywordPredicate {
	if missing == "" {
		missing = MissingTitlePass
	}
	return KeywordPredicate{
		keywords:     lowerAll(keywords),
		exclude:      lowerAll(exclude),
		missingTitle: missing,
	}
}

func (p KeywordPredicate) IsRelevant(title string) bool {
	t := strings.ToLower(strings.TrimSpace(title))
	if t == "" {
		return p.missingTitle == MissingTitlePass
	}

	// Exclusions win
	for _, x := range p.exclude {
		if strings.Contains(t, x) {
			return false
		}
	}

	// No keywords configured means everything with a title is relevant
	if len(p.keywords) == 0 {
		return true
	}
	for _, k := range p.keywords {
		if strings.Contains(t, k) {
			return true
		}
	}
	return false
}

func lowerAll(xs []string) []string {
	out := make([]string, 0, len(xs))
	for _, x := range xs {
		x = strings.ToLower(strings.TrimSpace(x))
		if x == "" {
			continue
		}
		out = append(out, x)
	}
	return out
}
