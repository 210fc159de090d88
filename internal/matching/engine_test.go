package matching

import (
	"errors"
	"fmt"
	"math"
	"testing"

	"github.com/jonathan/mentor-match/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func floatPtr(v float64) *float64 { return &v }

func guitarCatalog() []types.MentorProfile {
	return []types.MentorProfile{
		{ID: "z", Name: "Zoe", Instruments: []string{"piano"}, SkillLevels: []types.SkillLevel{types.SkillBeginner}, Rating: 4.9},
		{ID: "y", Name: "Yan", Instruments: []string{"guitar"}, SkillLevels: []types.SkillLevel{types.SkillAdvanced}, Rating: 4.7},
		{ID: "x", Name: "Xavi", Instruments: []string{"guitar"}, SkillLevels: []types.SkillLevel{types.SkillBeginner}, Rating: 4.1},
	}
}

func TestMatch_RanksByWeightedFit(t *testing.T) {
	engine := NewDefaultEngine()
	needs := types.ExtractedUserNeeds{Instrument: "guitar", SkillLevel: types.SkillBeginner}

	got, err := engine.Match(needs, guitarCatalog(), 5)
	require.NoError(t, err)
	require.Len(t, got, 3)

	assert.Equal(t, "x", got[0].MentorID)
	assert.Equal(t, "y", got[1].MentorID)
	assert.Equal(t, "z", got[2].MentorID)

	assert.InDelta(t, 1.0, got[0].MatchScore, 1e-9)
	assert.InDelta(t, 0.84, got[1].MatchScore, 1e-9)
	assert.InDelta(t, 0.4, got[2].MatchScore, 1e-9)

	assert.Contains(t, got[0].MatchReasons, "exact instrument match")
	assert.Contains(t, got[0].MatchReasons, "teaches beginner students")
	assert.Equal(t, []string{"teaches beginner students"}, got[2].MatchReasons)
	assert.Equal(t, "Xavi", got[0].Mentor.Name)
}

func TestMatch_RespectsLimit(t *testing.T) {
	engine := NewDefaultEngine()
	needs := types.ExtractedUserNeeds{Instrument: "guitar"}

	got, err := engine.Match(needs, guitarCatalog(), 2)
	require.NoError(t, err)
	assert.Len(t, got, 2)

	_, err = engine.Match(needs, guitarCatalog(), 0)
	assert.ErrorIs(t, err, ErrInvalidLimit)
}

func TestMatch_ScoresAreBounded(t *testing.T) {
	engine := NewDefaultEngine()
	catalog := []types.MentorProfile{
		{ID: "a", Instruments: []string{"drums"}, HourlyRate: 500},
		{ID: "b", Instruments: []string{"guitar", "bass"}, Genres: []types.Genre{types.GenreRock},
			SkillLevels:  []types.SkillLevel{types.SkillProfessional},
			Availability: []types.TimeWindow{{Day: "mon", StartMinute: 0, EndMinute: 1440}},
			Formats:      []types.LessonFormat{types.FormatEither}, HourlyRate: 0},
		{ID: "c"},
	}
	needsGrid := []types.ExtractedUserNeeds{
		{Instrument: "bass"},
		{Genre: types.GenreRock, PreferredFormat: types.FormatOnline},
		{SkillLevel: types.SkillBeginner, BudgetRange: &types.BudgetRange{Max: floatPtr(0)}},
		{Availability: []types.TimeWindow{{Day: "mon", StartMinute: 60, EndMinute: 120}, {Day: "fri", StartMinute: 60, EndMinute: 120}}},
		{Instrument: "theremin", SkillLevel: types.SkillProfessional, BudgetRange: &types.BudgetRange{Max: floatPtr(20)}},
	}

	for _, needs := range needsGrid {
		got, err := engine.Match(needs, catalog, 10)
		require.NoError(t, err)
		require.Len(t, got, len(catalog))
		for _, sg := range got {
			assert.GreaterOrEqual(t, sg.MatchScore, 0.0)
			assert.LessOrEqual(t, sg.MatchScore, 1.0)
			assert.NotNil(t, sg.MatchReasons)
		}
	}
}

func TestMatch_SparseNeedsAreNotPenalized(t *testing.T) {
	engine := NewDefaultEngine()
	mentors := []types.MentorProfile{{ID: "only", Instruments: []string{"cello"}}}

	got, err := engine.Match(types.ExtractedUserNeeds{Instrument: "violoncello"}, mentors, 1)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, got[0].MatchScore, 1e-9)
}

func TestEvaluate_UnspecifiedFieldsDoNotChangeSpecifiedScores(t *testing.T) {
	engine := NewDefaultEngine()
	mentor := &types.MentorProfile{
		ID:           "m",
		Instruments:  []string{"guitar"},
		Genres:       []types.Genre{types.GenreFolk},
		SkillLevels:  []types.SkillLevel{types.SkillIntermediate},
		Availability: []types.TimeWindow{{Day: "sat", StartMinute: 600, EndMinute: 720}},
		HourlyRate:   35,
		Formats:      []types.LessonFormat{types.FormatOnline},
	}
	extra := types.ExtractedUserNeeds{
		Genre:           types.GenreMetal,
		SkillLevel:      types.SkillProfessional,
		Availability:    []types.TimeWindow{{Day: "tue", StartMinute: 60, EndMinute: 120}},
		BudgetRange:     &types.BudgetRange{Max: floatPtr(10)},
		PreferredFormat: types.FormatInPerson,
	}

	tests := []struct {
		name   string
		sparse types.ExtractedUserNeeds
	}{
		{"instrument", types.ExtractedUserNeeds{Instrument: "guitar"}},
		{"genre", types.ExtractedUserNeeds{Genre: types.GenreFolk}},
		{"instrument and level", types.ExtractedUserNeeds{Instrument: "guitar", SkillLevel: types.SkillIntermediate}},
		{"budget and format", types.ExtractedUserNeeds{BudgetRange: &types.BudgetRange{Max: floatPtr(40)}, PreferredFormat: types.FormatOnline}},
		{"availability", types.ExtractedUserNeeds{Availability: []types.TimeWindow{{Day: "sat", StartMinute: 600, EndMinute: 720}}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dense := extra.Clone()
			specified := tt.sparse.SpecifiedFields()
			dense = types.Merge(dense, types.NeedsUpdate{Observed: tt.sparse})

			sparseEval, err := engine.Evaluate(tt.sparse, mentor)
			require.NoError(t, err)
			denseEval, err := engine.Evaluate(dense, mentor)
			require.NoError(t, err)

			sparseByField := map[string]float64{}
			for _, f := range sparseEval.Fields {
				sparseByField[f.Field] = f.Score
			}
			denseByField := map[string]float64{}
			for _, f := range denseEval.Fields {
				denseByField[f.Field] = f.Score
			}

			assert.ElementsMatch(t, specified, ScoredFields(tt.sparse))
			require.Len(t, sparseByField, len(specified))
			for _, field := range specified {
				assert.Equal(t, sparseByField[field], denseByField[field], field)
			}
			assert.InDelta(t, 1.0, sparseEval.Score, 1e-9, "a mentor matching every stated field scores 1")
			assert.Less(t, denseEval.Score, sparseEval.Score)
		})
	}
}

func TestScoredFields(t *testing.T) {
	assert.Empty(t, ScoredFields(types.ExtractedUserNeeds{Notes: "loves Bach", LearningGoals: []string{"theory"}}))
	assert.Empty(t, ScoredFields(types.ExtractedUserNeeds{BudgetRange: &types.BudgetRange{Min: floatPtr(20)}}))
	assert.Equal(t, []string{types.FieldInstrument, types.FieldBudgetRange}, ScoredFields(types.ExtractedUserNeeds{
		Instrument:  "drums",
		BudgetRange: &types.BudgetRange{Min: floatPtr(20), Max: floatPtr(60)},
	}))
}

func TestMatch_DeterministicAcrossInputOrder(t *testing.T) {
	engine := NewDefaultEngine()
	needs := types.ExtractedUserNeeds{Instrument: "guitar", Genre: types.GenreBlues}
	catalog := []types.MentorProfile{
		{ID: "m3", Instruments: []string{"guitar"}, Rating: 4.0},
		{ID: "m1", Instruments: []string{"guitar"}, Genres: []types.Genre{types.GenreBlues}, Rating: 3.0},
		{ID: "m2", Instruments: []string{"guitar"}, Rating: 4.0},
		{ID: "m4", Instruments: []string{"ukulele"}, Genres: []types.Genre{types.GenreBlues}, Rating: 5.0},
	}
	reversed := make([]types.MentorProfile, len(catalog))
	for i := range catalog {
		reversed[len(catalog)-1-i] = catalog[i]
	}

	first, err := engine.Match(needs, catalog, 4)
	require.NoError(t, err)
	second, err := engine.Match(needs, reversed, 4)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, []string{"m1", "m4", "m2", "m3"}, suggestionIDs(first))
}

func TestMatch_TieBreaksOnRatingThenID(t *testing.T) {
	engine := NewDefaultEngine()
	catalog := []types.MentorProfile{
		{ID: "b", Instruments: []string{"flute"}, Rating: 4.5},
		{ID: "a", Instruments: []string{"flute"}, Rating: 4.5},
		{ID: "c", Instruments: []string{"flute"}, Rating: 4.9},
	}

	got, err := engine.Match(types.ExtractedUserNeeds{Instrument: "flute"}, catalog, 3)
	require.NoError(t, err)
	assert.Equal(t, []string{"c", "a", "b"}, suggestionIDs(got))
}

func TestMatch_RequiresScorableNeeds(t *testing.T) {
	engine := NewDefaultEngine()

	for _, needs := range []types.ExtractedUserNeeds{
		{},
		{Notes: "anything", LearningGoals: []string{"theory"}},
		{BudgetRange: &types.BudgetRange{Min: floatPtr(10)}},
	} {
		_, err := engine.Match(needs, guitarCatalog(), 3)
		var invalid *InvalidNeedsError
		assert.True(t, errors.As(err, &invalid), "needs %+v", needs)
	}
}

func TestMatch_EmptyCatalog(t *testing.T) {
	_, err := NewDefaultEngine().Match(types.ExtractedUserNeeds{Instrument: "oboe"}, nil, 3)

	var empty *EmptyCatalogError
	assert.True(t, errors.As(err, &empty))
}

func TestMatch_ZeroWeightFieldIsIgnored(t *testing.T) {
	policy := DefaultPolicy()
	policy.Weights.Genre = 0
	engine, err := NewEngine(policy)
	require.NoError(t, err)

	_, err = engine.Match(types.ExtractedUserNeeds{Genre: types.GenreJazz}, guitarCatalog(), 3)
	var invalid *InvalidNeedsError
	assert.True(t, errors.As(err, &invalid))
}

func TestEvaluate_Breakdown(t *testing.T) {
	engine := NewDefaultEngine()
	needs := types.ExtractedUserNeeds{
		Instrument:      "acoustic guitar",
		Availability:    []types.TimeWindow{{Day: "mon", StartMinute: 18 * 60, EndMinute: 20 * 60}, {Day: "wed", StartMinute: 18 * 60, EndMinute: 20 * 60}},
		BudgetRange:     &types.BudgetRange{Max: floatPtr(40)},
		PreferredFormat: types.FormatEither,
	}
	mentor := &types.MentorProfile{
		ID:           "m",
		Instruments:  []string{"Ukulele"},
		Availability: []types.TimeWindow{{Day: "mon", StartMinute: 19 * 60, EndMinute: 21 * 60}},
		HourlyRate:   44,
		Formats:      []types.LessonFormat{types.FormatInPerson},
	}

	eval, err := engine.Evaluate(needs, mentor)
	require.NoError(t, err)
	require.Len(t, eval.Fields, 4)

	byField := map[string]FieldScore{}
	for _, f := range eval.Fields {
		byField[f.Field] = f
	}
	assert.InDelta(t, 0.5, byField[types.FieldInstrument].Score, 1e-9)
	assert.Equal(t, "teaches a related instrument (ukulele)", byField[types.FieldInstrument].Reason)
	assert.InDelta(t, 0.5, byField[types.FieldAvailability].Score, 1e-9)
	assert.InDelta(t, math.Exp(-0.3), byField[types.FieldBudgetRange].Score, 1e-9)
	assert.InDelta(t, 1.0, byField[types.FieldPreferredFormat].Score, 1e-9)

	want := (0.30*0.5 + 0.15*0.5 + 0.10*math.Exp(-0.3) + 0.10*1) / (0.30 + 0.15 + 0.10 + 0.10)
	assert.InDelta(t, want, eval.Score, 1e-9)
	assert.Equal(t, []string{
		"teaches a related instrument (ukulele)",
		"available in some of your preferred time windows",
		"slightly above your budget",
		"offers a lesson format that works for you",
	}, eval.Reasons)
}

func TestComputeBudgetScore_FarAboveCeilingHasNoReason(t *testing.T) {
	engine := NewDefaultEngine()
	needs := types.ExtractedUserNeeds{BudgetRange: &types.BudgetRange{Max: floatPtr(40)}}

	eval, err := engine.Evaluate(needs, &types.MentorProfile{ID: "m", HourlyRate: 50})
	require.NoError(t, err)
	assert.InDelta(t, math.Exp(-0.75), eval.Score, 1e-9)
	assert.Empty(t, eval.Reasons)
}

func TestComputeSkillLevelScore(t *testing.T) {
	p := DefaultPolicy()
	tests := []struct {
		want   types.SkillLevel
		mentor []types.SkillLevel
		score  float64
	}{
		{types.SkillIntermediate, []types.SkillLevel{types.SkillIntermediate}, 1},
		{types.SkillIntermediate, []types.SkillLevel{types.SkillAdvanced}, 0.8},
		{types.SkillIntermediate, []types.SkillLevel{types.SkillBeginner}, 0.6},
		{types.SkillProfessional, []types.SkillLevel{types.SkillBeginner}, 0},
		{types.SkillBeginner, []types.SkillLevel{types.SkillProfessional, types.SkillIntermediate}, 0.8},
		{types.SkillBeginner, nil, 0},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%s_vs_%v", tt.want, tt.mentor), func(t *testing.T) {
			got := computeSkillLevelScore(p, types.ExtractedUserNeeds{SkillLevel: tt.want}, &types.MentorProfile{SkillLevels: tt.mentor})
			assert.InDelta(t, tt.score, got.value, 1e-9)
		})
	}
}

func TestNewEngine_RejectsInvalidPolicy(t *testing.T) {
	p := DefaultPolicy()
	p.Weights.Budget = -1
	_, err := NewEngine(p)
	assert.Error(t, err)

	p = DefaultPolicy()
	p.Weights = Weights{}
	_, err = NewEngine(p)
	assert.Error(t, err)
}

func TestPolicyValidate_ReportsFirstNegativeWeightInOrder(t *testing.T) {
	p := DefaultPolicy()
	p.Weights.Genre = -1
	p.Weights.Budget = -2
	p.Weights.Format = -3

	for range 20 {
		err := p.Validate()
		require.Error(t, err)
		assert.Equal(t, "weight genre must be non-negative, got -1", err.Error())
	}
}

func TestNormalizeInstrument(t *testing.T) {
	assert.Equal(t, "violin", NormalizeInstrument("  Fiddle "))
	assert.Equal(t, "bass", NormalizeInstrument("Bass Guitar"))
	assert.Equal(t, "theremin", NormalizeInstrument("Theremin"))
	assert.Equal(t, "guitar", InstrumentFamily("uke"))
	assert.Empty(t, InstrumentFamily("theremin"))
	assert.Contains(t, FamilyMembers("brass"), "trumpet")
}

func suggestionIDs(s []types.MentorSuggestion) []string {
	ids := make([]string, len(s))
	for i := range s {
		ids[i] = s[i].MentorID
	}
	return ids
}
