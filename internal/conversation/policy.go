package conversation

import (
	"fmt"
	"slices"
	"strings"

	"github.com/jonathan/mentor-match/internal/matching"
	"github.com/jonathan/mentor-match/internal/types"
)

// CompletenessPolicy decides when the needs record is specific enough to search.
// All three conditions must hold.
type CompletenessPolicy struct {
	// RequireAnyOf needs at least one of these fields. Empty means no constraint.
	RequireAnyOf []string `json:"require_any_of"`
	// RequireAllOf needs every one of these fields.
	RequireAllOf []string `json:"require_all_of"`
	// MinFields is the minimum number of specified scorable fields.
	MinFields int `json:"min_fields"`
}

// DefaultCompletenessPolicy asks for an instrument or genre plus one more detail.
func DefaultCompletenessPolicy() CompletenessPolicy {
	return CompletenessPolicy{
		RequireAnyOf: []string{types.FieldInstrument, types.FieldGenre},
		MinFields:    2,
	}
}

// Validate checks that every named field is scorable and the policy can be met.
func (p CompletenessPolicy) Validate() error {
	scorable := make(map[string]bool)
	for _, f := range matching.ScorableFields() {
		scorable[f] = true
	}
	for _, f := range append(append([]string{}, p.RequireAnyOf...), p.RequireAllOf...) {
		if !scorable[f] {
			return fmt.Errorf("completeness field %q is not scorable", f)
		}
	}
	if p.MinFields < 0 || p.MinFields > len(scorable) {
		return fmt.Errorf("min_fields must be between 0 and %d, got %d", len(scorable), p.MinFields)
	}
	if len(p.RequireAnyOf) == 0 && len(p.RequireAllOf) == 0 && p.MinFields == 0 {
		return fmt.Errorf("completeness policy must require at least one field")
	}
	return nil
}

// Satisfied reports whether needs passes the gate.
func (p CompletenessPolicy) Satisfied(needs types.ExtractedUserNeeds) bool {
	return len(p.Missing(needs)) == 0
}

// Requirement is a set of alternative fields, any one of which satisfies it
type Requirement []string

// Missing lists what still has to be asked before the gate passes, in the order the
// questions should be asked.
func (p CompletenessPolicy) Missing(needs types.ExtractedUserNeeds) []Requirement {
	var missing []Requirement
	asked := make(map[string]bool)

	if len(p.RequireAnyOf) > 0 && !hasAny(needs, p.RequireAnyOf) {
		missing = append(missing, Requirement(p.RequireAnyOf))
		for _, f := range p.RequireAnyOf {
			asked[f] = true
		}
	}
	for _, f := range orderFields(p.RequireAllOf) {
		if !needs.Has(f) && !asked[f] {
			missing = append(missing, Requirement{f})
			asked[f] = true
		}
	}

	// Each listed requirement adds one field once answered.
	scored := matching.ScoredFields(needs)
	short := p.MinFields - len(scored) - len(missing)
	for _, f := range askOrder {
		if short <= 0 {
			break
		}
		if slices.Contains(scored, f) || asked[f] {
			continue
		}
		missing = append(missing, Requirement{f})
		short--
	}
	return missing
}

// askOrder is the order in which missing details are requested
var askOrder = []string{
	types.FieldInstrument,
	types.FieldSkillLevel,
	types.FieldGenre,
	types.FieldAvailability,
	types.FieldBudgetRange,
	types.FieldPreferredFormat,
}

var fieldQuestions = map[string]string{
	types.FieldInstrument:      "which instrument you want to learn",
	types.FieldGenre:           "what style of music you're into",
	types.FieldSkillLevel:      "your current skill level",
	types.FieldAvailability:    "when you're usually free for lessons",
	types.FieldBudgetRange:     "your hourly budget",
	types.FieldPreferredFormat: "whether you'd like online or in-person lessons",
}

// describeMissing renders requirements as a phrase such as
// "which instrument you want to learn or what style of music you're into and your current skill level".
func describeMissing(missing []Requirement) string {
	parts := make([]string, 0, len(missing))
	for _, req := range missing {
		alternatives := make([]string, 0, len(req))
		for _, f := range req {
			alternatives = append(alternatives, fieldQuestions[f])
		}
		parts = append(parts, strings.Join(alternatives, " or "))
	}
	switch len(parts) {
	case 0:
		return ""
	case 1:
		return parts[0]
	default:
		return strings.Join(parts[:len(parts)-1], ", ") + " and " + parts[len(parts)-1]
	}
}

func hasAny(needs types.ExtractedUserNeeds, fields []string) bool {
	for _, f := range fields {
		if needs.Has(f) {
			return true
		}
	}
	return false
}

// orderFields sorts fields by askOrder. Names outside askOrder are dropped.
func orderFields(fields []string) []string {
	var out []string
	for _, f := range askOrder {
		for _, g := range fields {
			if f == g {
				out = append(out, f)
				break
			}
		}
	}
	return out
}
