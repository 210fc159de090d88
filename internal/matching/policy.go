package matching

import "fmt"

// Weights assigns the relative importance of each sub-score
type Weights struct {
	Instrument   float64 `json:"instrument"`
	Genre        float64 `json:"genre"`
	SkillLevel   float64 `json:"skill_level"`
	Availability float64 `json:"availability"`
	Budget       float64 `json:"budget"`
	Format       float64 `json:"format"`
}

// Policy holds every tunable of the scoring function.
type Policy struct {
	Weights Weights `json:"weights"`
	// FamilyCredit is the instrument score for a mentor teaching a related instrument.
	FamilyCredit float64 `json:"family_credit"`
	// LevelStep is the score lost per level of distance between request and mentor.
	// Distance counts half when the mentor's nearest level is above the request.
	LevelStep float64 `json:"level_step"`
	// BudgetDecay controls how fast the budget score falls once the rate exceeds the
	// ceiling: exp(-BudgetDecay * overshoot / ceiling).
	BudgetDecay float64 `json:"budget_decay"`
	// ReasonThreshold is the minimum sub-score for a field to produce a match reason.
	ReasonThreshold float64 `json:"reason_threshold"`
}

// DefaultPolicy returns the documented defaults.
func DefaultPolicy() Policy {
	return Policy{
		Weights: Weights{
			Instrument:   0.30,
			Genre:        0.15,
			SkillLevel:   0.20,
			Availability: 0.15,
			Budget:       0.10,
			Format:       0.10,
		},
		FamilyCredit:    0.5,
		LevelStep:       0.4,
		BudgetDecay:     3.0,
		ReasonThreshold: 0.5,
	}
}

// Validate checks that the policy values are usable.
func (p Policy) Validate() error {
	w := p.Weights
	total := 0.0
	for _, nw := range []struct {
		name  string
		value float64
	}{
		{"instrument", w.Instrument}, {"genre", w.Genre}, {"skill_level", w.SkillLevel},
		{"availability", w.Availability}, {"budget", w.Budget}, {"format", w.Format},
	} {
		if nw.value < 0 {
			return fmt.Errorf("weight %s must be non-negative, got %v", nw.name, nw.value)
		}
		total += nw.value
	}
	if total == 0 {
		return fmt.Errorf("at least one weight must be positive")
	}
	if p.FamilyCredit < 0 || p.FamilyCredit > 1 {
		return fmt.Errorf("family_credit must be within [0,1], got %v", p.FamilyCredit)
	}
	if p.LevelStep < 0 || p.LevelStep > 1 {
		return fmt.Errorf("level_step must be within [0,1], got %v", p.LevelStep)
	}
	if p.BudgetDecay <= 0 {
		return fmt.Errorf("budget_decay must be positive, got %v", p.BudgetDecay)
	}
	if p.ReasonThreshold <= 0 || p.ReasonThreshold > 1 {
		return fmt.Errorf("reason_threshold must be within (0,1], got %v", p.ReasonThreshold)
	}
	return nil
}
