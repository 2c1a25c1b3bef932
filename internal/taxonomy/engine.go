// Package taxonomy categorizes businesses against the fixed category and
// tag vocabulary using lexical scoring. The vocabulary lives in the store
// and is seeded from a YAML file that can be hot-reloaded.
package taxonomy

import (
	"sort"
	"strings"

	"votewallet/internal/logging"
	"votewallet/internal/types"
)

// Scoring weights. A stated category identical to the taxonomy entry
// trumps everything; substring and keyword hits accumulate.
const (
	scoreExactName   = 100
	scoreNameContains = 50
	scorePerKeyword  = 10
	scorePerTagKeyword = 5

	secondaryThreshold = 20
	maxSecondary       = 3
	maxTags            = 10
)

// Engine scores businesses against a category and tag vocabulary. The
// vocabulary is captured at construction; rebuild the engine after a
// taxonomy reload.
type Engine struct {
	categories []types.Category
	tags       []types.Tag
}

func NewEngine(categories []types.Category, tags []types.Tag) *Engine {
	return &Engine{categories: categories, tags: tags}
}

type scored struct {
	name  string
	score int
}

// Categorize scores a business and returns its primary category, up to
// three secondary categories, matching tags, and a confidence equal to the
// winning score capped at 100. A business matching nothing keeps an empty
// primary with zero confidence.
func (e *Engine) Categorize(b *types.Business) types.CategorizationResult {
	text := strings.ToLower(b.Name + " " + b.Description + " " + b.Category)
	stated := strings.ToLower(strings.TrimSpace(b.Category))

	var ranked []scored
	for _, cat := range e.categories {
		s := e.scoreCategory(cat, stated, text)
		if s > 0 {
			ranked = append(ranked, scored{name: cat.Name, score: s})
		}
	}
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].score > ranked[j].score })

	result := types.CategorizationResult{}
	if len(ranked) > 0 {
		result.PrimaryCategory = ranked[0].name
		result.Confidence = ranked[0].score
		if result.Confidence > 100 {
			result.Confidence = 100
		}
		for _, s := range ranked[1:] {
			if s.score <= secondaryThreshold {
				break
			}
			result.SecondaryCategories = append(result.SecondaryCategories, s.name)
			if len(result.SecondaryCategories) == maxSecondary {
				break
			}
		}
	}

	result.Tags = e.matchTags(text)

	logging.TaxonomyDebug("categorized %q as %q (confidence %d, %d secondary, %d tags)",
		b.Name, result.PrimaryCategory, result.Confidence,
		len(result.SecondaryCategories), len(result.Tags))
	return result
}

func (e *Engine) scoreCategory(cat types.Category, stated, text string) int {
	catName := strings.ToLower(cat.Name)
	score := 0
	if stated == catName {
		score = scoreExactName
	} else if strings.Contains(text, catName) {
		score += scoreNameContains
	}
	for _, kw := range cat.Keywords {
		if kw != "" && strings.Contains(text, strings.ToLower(kw)) {
			score += scorePerKeyword
		}
	}
	return score
}

func (e *Engine) matchTags(text string) []string {
	var ranked []scored
	for _, tag := range e.tags {
		s := 0
		if tagName := strings.ToLower(tag.Name); tagName != "" && strings.Contains(text, tagName) {
			s += scoreNameContains
		}
		for _, kw := range tag.Keywords {
			if kw != "" && strings.Contains(text, strings.ToLower(kw)) {
				s += scorePerTagKeyword
			}
		}
		if s > 0 {
			ranked = append(ranked, scored{name: tag.Name, score: s})
		}
	}
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].score > ranked[j].score })

	if len(ranked) > maxTags {
		ranked = ranked[:maxTags]
	}
	out := make([]string, 0, len(ranked))
	for _, s := range ranked {
		out = append(out, s.name)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// Apply copies a categorization result onto a business. The primary
// category is only overwritten when the scorer actually matched something.
func Apply(b *types.Business, r types.CategorizationResult) {
	if r.PrimaryCategory != "" {
		b.Category = r.PrimaryCategory
	}
	b.SecondaryCategories = r.SecondaryCategories
	b.Tags = r.Tags
	if len(r.Attributes) > 0 {
		b.Attributes = b.Attributes.Merge(r.Attributes)
	}
}
