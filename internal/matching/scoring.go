package matching

import (
	"fmt"
	"math"
	"strings"

	"github.com/jonathan/mentor-match/internal/types"
)

// subScore is one field's contribution for one mentor
type subScore struct {
	value  float64
	reason string
}

// scorer binds a needs field to its weight and scoring function. A scorer whose
// applies returns false contributes neither weight nor reasons.
type scorer struct {
	field   string
	weight  func(Weights) float64
	applies func(types.ExtractedUserNeeds) bool
	score   func(Policy, types.ExtractedUserNeeds, *types.MentorProfile) subScore
}

// scorers is evaluated in this order, which also fixes the order of match reasons.
var scorers = []scorer{
	{
		field:   types.FieldInstrument,
		weight:  func(w Weights) float64 { return w.Instrument },
		applies: func(n types.ExtractedUserNeeds) bool { return n.Has(types.FieldInstrument) },
		score:   computeInstrumentScore,
	},
	{
		field:   types.FieldGenre,
		weight:  func(w Weights) float64 { return w.Genre },
		applies: func(n types.ExtractedUserNeeds) bool { return n.Has(types.FieldGenre) },
		score:   computeGenreScore,
	},
	{
		field:   types.FieldSkillLevel,
		weight:  func(w Weights) float64 { return w.SkillLevel },
		applies: func(n types.ExtractedUserNeeds) bool { return n.Has(types.FieldSkillLevel) },
		score:   computeSkillLevelScore,
	},
	{
		field:   types.FieldAvailability,
		weight:  func(w Weights) float64 { return w.Availability },
		applies: func(n types.ExtractedUserNeeds) bool { return n.Has(types.FieldAvailability) },
		score:   computeAvailabilityScore,
	},
	{
		// A floor alone says nothing about affordability.
		field:   types.FieldBudgetRange,
		weight:  func(w Weights) float64 { return w.Budget },
		applies: func(n types.ExtractedUserNeeds) bool { return n.BudgetRange.HasCeiling() },
		score:   computeBudgetScore,
	},
	{
		field:   types.FieldPreferredFormat,
		weight:  func(w Weights) float64 { return w.Format },
		applies: func(n types.ExtractedUserNeeds) bool { return n.Has(types.FieldPreferredFormat) },
		score:   computeFormatScore,
	},
}

// ScorableFields lists the needs fields that influence the match score.
func ScorableFields() []string {
	fields := make([]string, len(scorers))
	for i, s := range scorers {
		fields[i] = s.field
	}
	return fields
}

// ScoredFields returns the fields of needs the score would actually use, in scorer
// order. A budget without a ceiling is not among them.
func ScoredFields(needs types.ExtractedUserNeeds) []string {
	var fields []string
	for _, s := range scorers {
		if s.applies(needs) {
			fields = append(fields, s.field)
		}
	}
	return fields
}

// computeInstrumentScore gives full credit for the same instrument and family credit
// for a related one.
func computeInstrumentScore(p Policy, needs types.ExtractedUserNeeds, m *types.MentorProfile) subScore {
	want := NormalizeInstrument(needs.Instrument)
	for _, inst := range m.Instruments {
		if NormalizeInstrument(inst) == want {
			return subScore{value: 1, reason: "exact instrument match"}
		}
	}

	family := InstrumentFamily(want)
	if family == "" {
		return subScore{}
	}
	for _, inst := range m.Instruments {
		if InstrumentFamily(inst) == family {
			return subScore{
				value:  p.FamilyCredit,
				reason: fmt.Sprintf("teaches a related instrument (%s)", NormalizeInstrument(inst)),
			}
		}
	}
	return subScore{}
}

func computeGenreScore(_ Policy, needs types.ExtractedUserNeeds, m *types.MentorProfile) subScore {
	for _, g := range m.Genres {
		if g == needs.Genre {
			return subScore{value: 1, reason: fmt.Sprintf("specializes in %s", genreLabel(g))}
		}
	}
	return subScore{}
}

// computeSkillLevelScore decays linearly with the distance to the nearest level the
// mentor teaches. Teaching above the requested level is penalized half as much as
// teaching below it.
func computeSkillLevelScore(p Policy, needs types.ExtractedUserNeeds, m *types.MentorProfile) subScore {
	want := needs.SkillLevel
	for _, l := range m.SkillLevels {
		if l == want {
			return subScore{value: 1, reason: fmt.Sprintf("teaches %s students", want)}
		}
	}
	if !want.Valid() {
		return subScore{}
	}

	best := math.Inf(1)
	for _, l := range m.SkillLevels {
		if !l.Valid() {
			continue
		}
		d := float64(l.Rank() - want.Rank())
		if d > 0 {
			d *= 0.5
		}
		best = math.Min(best, math.Abs(d))
	}
	if math.IsInf(best, 1) {
		return subScore{}
	}

	value := math.Max(0, 1-p.LevelStep*best)
	return subScore{value: value, reason: fmt.Sprintf("teaches students near the %s level", want)}
}

// computeAvailabilityScore is the fraction of requested windows the mentor overlaps.
func computeAvailabilityScore(_ Policy, needs types.ExtractedUserNeeds, m *types.MentorProfile) subScore {
	matched := 0
	for _, want := range needs.Availability {
		for _, have := range m.Availability {
			if want.Overlaps(have) {
				matched++
				break
			}
		}
	}

	value := float64(matched) / float64(len(needs.Availability))
	switch {
	case matched == len(needs.Availability):
		return subScore{value: value, reason: "available in your preferred time window"}
	case matched > 0:
		return subScore{value: value, reason: "available in some of your preferred time windows"}
	}
	return subScore{}
}

// computeBudgetScore is 1 at or under the ceiling and decays exponentially with the
// relative overshoot above it.
func computeBudgetScore(p Policy, needs types.ExtractedUserNeeds, m *types.MentorProfile) subScore {
	ceiling := *needs.BudgetRange.Max
	if m.HourlyRate <= ceiling {
		return subScore{value: 1, reason: "within your budget"}
	}
	if ceiling <= 0 {
		return subScore{}
	}

	overshoot := (m.HourlyRate - ceiling) / ceiling
	return subScore{
		value:  math.Exp(-p.BudgetDecay * overshoot),
		reason: "slightly above your budget",
	}
}

func computeFormatScore(_ Policy, needs types.ExtractedUserNeeds, m *types.MentorProfile) subScore {
	for _, f := range m.Formats {
		if !f.Compatible(needs.PreferredFormat) {
			continue
		}
		switch needs.PreferredFormat {
		case types.FormatOnline:
			return subScore{value: 1, reason: "offers online lessons"}
		case types.FormatInPerson:
			return subScore{value: 1, reason: "offers in-person lessons"}
		default:
			return subScore{value: 1, reason: "offers a lesson format that works for you"}
		}
	}
	return subScore{}
}

func genreLabel(g types.Genre) string {
	switch g {
	case types.GenreRnB:
		return "R&B"
	case types.GenreHipHop:
		return "hip-hop"
	case types.GenreFilmGame:
		return "film and game music"
	}
	return strings.ReplaceAll(string(g), "_", " ")
}
