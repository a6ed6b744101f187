package classifier

import (
	"context"
	"strings"

	"github.com/lumenlabs/handoff/internal/domain"
)

// exactRule maps a literal phrase to a category with full confidence.
type exactRule struct {
	Phrase   string
	Category domain.Category
}

// defaultExactRules are checked in order; the first phrase found in the item
// text decides the category outright.
func defaultExactRules() []exactRule {
	return []exactRule{
		{Phrase: "out of office", Category: domain.CategoryPersonal},
		{Phrase: "unsubscribe", Category: domain.CategoryPersonal},
		{Phrase: "meeting notes", Category: domain.CategoryWork},
		{Phrase: "action items", Category: domain.CategoryWork},
		{Phrase: "status report", Category: domain.CategoryWork},
	}
}

func defaultWorkKeywords() []string {
	return []string{
		"project", "deadline", "meeting", "review", "client", "report",
		"deliverable", "sprint", "release", "budget", "contract", "agenda",
		"proposal", "stakeholder", "milestone", "standup", "roadmap",
	}
}

func defaultPersonalKeywords() []string {
	return []string{
		"birthday", "vacation", "family", "dinner", "weekend", "party",
		"doctor", "appointment", "holiday", "wedding", "grocery", "recipe",
		"gym", "movie", "flight home",
	}
}

// RulesClassifier is the deterministic keyword-based classifier. An exact
// phrase match yields confidence 1.0; otherwise the label is derived from the
// keyword hit counts, with ties and silence resolved to personal so that
// nothing ambiguous is admitted.
type RulesClassifier struct {
	exact    []exactRule
	work     []string
	personal []string
}

// NewRulesClassifier creates a RulesClassifier with the default rule set.
func NewRulesClassifier() *RulesClassifier {
	return &RulesClassifier{
		exact:    defaultExactRules(),
		work:     defaultWorkKeywords(),
		personal: defaultPersonalKeywords(),
	}
}

// Classify labels the item from its subject and content. It never fails;
// the zero-signal case is a confident personal label, not an error.
func (c *RulesClassifier) Classify(_ context.Context, item *domain.RawItem) (domain.ClassificationLabel, error) {
	if err := domain.ValidateRawItem(item); err != nil {
		return domain.ClassificationLabel{}, err
	}

	text := strings.ToLower(item.Subject + " " + item.Content)

	for _, r := range c.exact {
		if strings.Contains(text, r.Phrase) {
			return domain.ClassificationLabel{Category: r.Category, Confidence: 1.0}, nil
		}
	}

	workHits := countHits(text, c.work)
	personalHits := countHits(text, c.personal)
	total := workHits + personalHits

	if total == 0 {
		return domain.ClassificationLabel{Category: domain.CategoryPersonal, Confidence: 1.0}, nil
	}
	if workHits > personalHits {
		return domain.ClassificationLabel{
			Category:   domain.CategoryWork,
			Confidence: float64(workHits) / float64(total),
		}, nil
	}
	return domain.ClassificationLabel{
		Category:   domain.CategoryPersonal,
		Confidence: float64(personalHits) / float64(total),
	}, nil
}

func countHits(text string, keywords []string) int {
	hits := 0
	for _, kw := range keywords {
		if strings.Contains(text, kw) {
			hits++
		}
	}
	return hits
}
