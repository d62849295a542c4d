package policies

import (
	"sort"
	"strings"

	"github.com/orderlift/orderlift-backend/pkg/db/models"
)

// Specificity weights per match dimension. Item-level dimensions dominate
// geography, geography dominates customer classification, so a rule pinned
// to an item always beats any combination of weaker dimensions.
const (
	weightItem            = 32
	weightSourceBundle    = 24
	weightItemGroup       = 16
	weightSalesPerson     = 16
	weightMaterial        = 8
	weightGeoTerritory    = 8
	weightGeoCountry      = 7
	weightGeoCity         = 6
	weightGeoRegion       = 5
	weightCustomerType    = 4
	weightTier            = 2
	weightCustomerSegment = 1
)

type dimension struct {
	weight int
	value  func(models.RuleAttributes) string
}

var dimensions = []dimension{
	{weightItem, func(a models.RuleAttributes) string { return a.Item }},
	{weightSourceBundle, func(a models.RuleAttributes) string { return a.SourceBundle }},
	{weightItemGroup, func(a models.RuleAttributes) string { return a.ItemGroup }},
	{weightSalesPerson, func(a models.RuleAttributes) string { return a.SalesPerson }},
	{weightMaterial, func(a models.RuleAttributes) string { return a.Material }},
	{weightGeoTerritory, func(a models.RuleAttributes) string { return a.GeographyTerritory }},
	{weightGeoCountry, func(a models.RuleAttributes) string { return a.GeographyCountry }},
	{weightGeoCity, func(a models.RuleAttributes) string { return a.GeographyCity }},
	{weightGeoRegion, func(a models.RuleAttributes) string { return a.GeographyRegion }},
	{weightCustomerType, func(a models.RuleAttributes) string { return a.CustomerType }},
	{weightTier, func(a models.RuleAttributes) string { return a.Tier }},
	{weightCustomerSegment, func(a models.RuleAttributes) string { return a.CustomerSegment }},
}

// Candidate wraps one concrete rule with the fields the resolver orders by.
type Candidate[T any] struct {
	Rule       T
	Attributes models.RuleAttributes
	Priority   int
	Sequence   int
	Idx        int
	Active     bool
}

// Match is a resolved rule together with the specificity that won it.
type Match[T any] struct {
	Rule        T
	Specificity int
}

// Resolve picks the winning rule for the given context. Inactive and
// non-matching candidates are discarded; the survivors are ordered by
// descending specificity, then priority, sequence and declaration index
// ascending, which makes the outcome deterministic for any input order.
func Resolve[T any](candidates []Candidate[T], ctx models.RuleAttributes) (Match[T], bool) {
	type scored struct {
		cand  Candidate[T]
		score int
		pos   int
	}

	matched := make([]scored, 0, len(candidates))
	for i, cand := range candidates {
		if !cand.Active {
			continue
		}
		score, ok := Specificity(cand.Attributes, ctx)
		if !ok {
			continue
		}
		matched = append(matched, scored{cand: cand, score: score, pos: i})
	}
	if len(matched) == 0 {
		var zero Match[T]
		return zero, false
	}

	sort.SliceStable(matched, func(i, j int) bool {
		a, b := matched[i], matched[j]
		if a.score != b.score {
			return a.score > b.score
		}
		if a.cand.Priority != b.cand.Priority {
			return a.cand.Priority < b.cand.Priority
		}
		if a.cand.Sequence != b.cand.Sequence {
			return a.cand.Sequence < b.cand.Sequence
		}
		if a.cand.Idx != b.cand.Idx {
			return a.cand.Idx < b.cand.Idx
		}
		return a.pos < b.pos
	})

	best := matched[0]
	return Match[T]{Rule: best.cand.Rule, Specificity: best.score}, true
}

// Specificity returns the summed weight of the rule's pinned dimensions
// against the context, or false when any pinned dimension disagrees.
// Empty rule dimensions are wildcards and contribute nothing.
func Specificity(rule, ctx models.RuleAttributes) (int, bool) {
	total := 0
	for _, dim := range dimensions {
		want := normalize(dim.value(rule))
		if want == "" {
			continue
		}
		if want != normalize(dim.value(ctx)) {
			return 0, false
		}
		total += dim.weight
	}
	return total, true
}

func normalize(v string) string {
	return strings.ToLower(strings.TrimSpace(v))
}

// MarginCandidates adapts margin rules for the resolver.
func MarginCandidates(rules []models.MarginRule) []Candidate[models.MarginRule] {
	out := make([]Candidate[models.MarginRule], 0, len(rules))
	for _, r := range rules {
		out = append(out, Candidate[models.MarginRule]{
			Rule:       r,
			Attributes: r.RuleAttributes,
			Priority:   r.Priority,
			Sequence:   r.Sequence,
			Idx:        r.Idx,
			Active:     r.IsActive,
		})
	}
	return out
}

// CustomsCandidates adapts customs rules for the resolver.
func CustomsCandidates(rules []models.CustomsRule) []Candidate[models.CustomsRule] {
	out := make([]Candidate[models.CustomsRule], 0, len(rules))
	for _, r := range rules {
		out = append(out, Candidate[models.CustomsRule]{
			Rule:       r,
			Attributes: r.RuleAttributes,
			Priority:   r.Priority,
			Sequence:   r.Sequence,
			Idx:        r.Idx,
			Active:     r.IsActive,
		})
	}
	return out
}

// ScenarioCandidates adapts scenario assignment rules for the resolver.
func ScenarioCandidates(rules []models.ScenarioRule) []Candidate[models.ScenarioRule] {
	out := make([]Candidate[models.ScenarioRule], 0, len(rules))
	for _, r := range rules {
		out = append(out, Candidate[models.ScenarioRule]{
			Rule:       r,
			Attributes: r.RuleAttributes,
			Priority:   r.Priority,
			Sequence:   r.Sequence,
			Idx:        r.Idx,
			Active:     r.IsActive,
		})
	}
	return out
}
