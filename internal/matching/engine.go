package matching

import (
	"fmt"
	"math"
	"sort"

	"github.com/jonathan/mentor-match/internal/types"
)

// FieldScore is one evaluated sub-score, kept for explanations and debugging
type FieldScore struct {
	Field  string  `json:"field"`
	Weight float64 `json:"weight"`
	Score  float64 `json:"score"`
	Reason string  `json:"reason,omitempty"`
}

// Evaluation is the full scoring breakdown of one mentor against one needs record
type Evaluation struct {
	MentorID string       `json:"mentor_id"`
	Score    float64      `json:"score"`
	Fields   []FieldScore `json:"fields"`
	Reasons  []string     `json:"reasons"`
}

// Engine ranks mentors against needs. It is pure and safe for concurrent use.
type Engine struct {
	policy Policy
}

// NewEngine creates an engine with the given policy.
func NewEngine(policy Policy) (*Engine, error) {
	if err := policy.Validate(); err != nil {
		return nil, fmt.Errorf("invalid matching policy: %w", err)
	}
	return &Engine{policy: policy}, nil
}

// NewDefaultEngine creates an engine with DefaultPolicy.
func NewDefaultEngine() *Engine {
	return &Engine{policy: DefaultPolicy()}
}

// Policy returns the engine's scoring policy.
func (e *Engine) Policy() Policy {
	return e.policy
}

// CanScore reports whether needs carries at least one positively weighted field.
func (e *Engine) CanScore(needs types.ExtractedUserNeeds) bool {
	for _, s := range scorers {
		if s.applies(needs) && s.weight(e.policy.Weights) > 0 {
			return true
		}
	}
	return false
}

// Evaluate scores a single mentor. Only fields specified in needs participate, so
// sparse needs are never penalized for what the learner has not said.
func (e *Engine) Evaluate(needs types.ExtractedUserNeeds, mentor *types.MentorProfile) (*Evaluation, error) {
	if !e.CanScore(needs) {
		return nil, &InvalidNeedsError{Message: "no scorable field is specified"}
	}
	return e.evaluate(needs, mentor), nil
}

func (e *Engine) evaluate(needs types.ExtractedUserNeeds, mentor *types.MentorProfile) *Evaluation {
	eval := &Evaluation{
		MentorID: mentor.ID,
		Fields:   make([]FieldScore, 0, len(scorers)),
		Reasons:  make([]string, 0, len(scorers)),
	}

	weighted, totalWeight := 0.0, 0.0
	for _, s := range scorers {
		w := s.weight(e.policy.Weights)
		if !s.applies(needs) || w <= 0 {
			continue
		}

		sub := s.score(e.policy, needs, mentor)
		value := clamp01(sub.value)
		weighted += w * value
		totalWeight += w

		fs := FieldScore{Field: s.field, Weight: w, Score: value}
		if value >= e.policy.ReasonThreshold && sub.reason != "" {
			fs.Reason = sub.reason
			eval.Reasons = append(eval.Reasons, sub.reason)
		}
		eval.Fields = append(eval.Fields, fs)
	}

	if totalWeight > 0 {
		eval.Score = clamp01(weighted / totalWeight)
	}
	return eval
}

// Match scores every mentor and returns at most limit suggestions ordered by score
// descending, then rating descending, then mentor ID ascending.
func (e *Engine) Match(needs types.ExtractedUserNeeds, mentors []types.MentorProfile, limit int) ([]types.MentorSuggestion, error) {
	if limit < 1 {
		return nil, ErrInvalidLimit
	}
	if !e.CanScore(needs) {
		return nil, &InvalidNeedsError{Message: "no scorable field is specified"}
	}
	if len(mentors) == 0 {
		return nil, &EmptyCatalogError{}
	}

	type candidate struct {
		mentor *types.MentorProfile
		eval   *Evaluation
	}
	candidates := make([]candidate, 0, len(mentors))
	for i := range mentors {
		m := &mentors[i]
		candidates = append(candidates, candidate{mentor: m, eval: e.evaluate(needs, m)})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if a.eval.Score != b.eval.Score {
			return a.eval.Score > b.eval.Score
		}
		if a.mentor.Rating != b.mentor.Rating {
			return a.mentor.Rating > b.mentor.Rating
		}
		return a.mentor.ID < b.mentor.ID
	})

	if len(candidates) > limit {
		candidates = candidates[:limit]
	}

	suggestions := make([]types.MentorSuggestion, len(candidates))
	for i, c := range candidates {
		suggestions[i] = types.MentorSuggestion{
			MentorID:     c.mentor.ID,
			MatchScore:   c.eval.Score,
			MatchReasons: c.eval.Reasons,
			Mentor:       c.mentor.Summary(),
		}
	}
	return suggestions, nil
}

func clamp01(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
