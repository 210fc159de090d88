package extraction

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jonathan/mentor-match/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubCompleter returns a canned response and records what it was asked
type stubCompleter struct {
	response string
	err      error
	block    bool

	system string
	turns  []types.Turn
}

func (s *stubCompleter) Complete(ctx context.Context, systemPrompt string, turns []types.Turn) (string, error) {
	s.system = systemPrompt
	s.turns = turns
	if s.block {
		<-ctx.Done()
		return "", ctx.Err()
	}
	return s.response, s.err
}

func floatPtr(v float64) *float64 { return &v }

func TestExtract_MergesObservedFields(t *testing.T) {
	stub := &stubCompleter{response: `{"observed": {"instrument": "Fiddle", "skill_level": "beginner"}, "intent": "provide_info"}`}
	e := NewExtractor(stub)
	prior := types.ExtractedUserNeeds{Genre: types.GenreFolk}

	res, err := e.Extract(context.Background(), prior, nil, "I want to learn the fiddle, total beginner", nil)
	require.NoError(t, err)

	assert.Equal(t, "violin", res.Needs.Instrument)
	assert.Equal(t, types.SkillBeginner, res.Needs.SkillLevel)
	assert.Equal(t, types.GenreFolk, res.Needs.Genre)
	assert.Equal(t, IntentProvideInfo, res.Intent)
}

func TestExtract_MalformedOutputLeavesNeedsUnchanged(t *testing.T) {
	prior := types.ExtractedUserNeeds{Instrument: "drums", BudgetRange: &types.BudgetRange{Max: floatPtr(30)}}

	for _, raw := range []string{
		`I'm not sure what you mean`,
		`{"observed": {"instrument": "drums"`,
		`{"observed": {"genre": "polka"}}`,
		`{"observed": {"availability": [{"day": "mon", "start_minute": 600, "end_minute": 500}]}}`,
		`{"observed": {"budget_range": {"min": 50, "max": 20}}}`,
		`{"intent": "cancel"}`,
	} {
		t.Run(raw, func(t *testing.T) {
			e := NewExtractor(&stubCompleter{response: raw})

			res, err := e.Extract(context.Background(), prior, nil, "something", nil)

			var extractionErr *ExtractionError
			require.True(t, errors.As(err, &extractionErr), "got %v", err)
			assert.False(t, extractionErr.Timeout)
			assert.Equal(t, prior, res.Needs)
		})
	}
}

func TestExtract_Timeout(t *testing.T) {
	e := NewExtractor(&stubCompleter{block: true}, WithTimeout(10*time.Millisecond))
	prior := types.ExtractedUserNeeds{Instrument: "oboe"}

	res, err := e.Extract(context.Background(), prior, nil, "hello", nil)

	var extractionErr *ExtractionError
	require.True(t, errors.As(err, &extractionErr))
	assert.True(t, extractionErr.Timeout)
	assert.Equal(t, prior, res.Needs)
}

func TestExtract_CompleterError(t *testing.T) {
	e := NewExtractor(&stubCompleter{err: errors.New("quota exceeded")})

	_, err := e.Extract(context.Background(), types.ExtractedUserNeeds{}, nil, "hello", nil)

	var extractionErr *ExtractionError
	require.True(t, errors.As(err, &extractionErr))
	assert.False(t, extractionErr.Timeout)
	assert.Contains(t, err.Error(), "quota exceeded")
}

func TestExtract_EmptyMessage(t *testing.T) {
	stub := &stubCompleter{response: `{"observed": {}}`}
	e := NewExtractor(stub)

	_, err := e.Extract(context.Background(), types.ExtractedUserNeeds{}, nil, "   ", nil)

	var extractionErr *ExtractionError
	assert.True(t, errors.As(err, &extractionErr))
	assert.Nil(t, stub.turns, "completer should not be called")
}

func TestExtract_AcceptsFencedOutput(t *testing.T) {
	stub := &stubCompleter{response: "```json\n{\"observed\": {\"genre\": \"jazz\"}}\n```"}

	res, err := NewExtractor(stub).Extract(context.Background(), types.ExtractedUserNeeds{}, nil, "jazz please", nil)
	require.NoError(t, err)
	assert.Equal(t, types.GenreJazz, res.Needs.Genre)
}

func TestExtract_ClearedFields(t *testing.T) {
	stub := &stubCompleter{response: `{"observed": {}, "cleared_fields": ["budget_range"], "intent": "refine"}`}
	prior := types.ExtractedUserNeeds{Instrument: "piano", BudgetRange: &types.BudgetRange{Max: floatPtr(40)}}

	res, err := NewExtractor(stub).Extract(context.Background(), prior, nil, "budget doesn't matter anymore", nil)
	require.NoError(t, err)

	assert.Equal(t, "piano", res.Needs.Instrument)
	assert.Nil(t, res.Needs.BudgetRange)
	assert.Equal(t, IntentRefine, res.Intent)
	assert.Equal(t, []string{types.FieldBudgetRange}, res.Update.Cleared)
}

func TestExtract_NullsAreUnspecified(t *testing.T) {
	stub := &stubCompleter{response: `{"observed": {"instrument": null, "genre": "rock", "budget_range": {"min": null, "max": null}}, "intent": null}`}
	prior := types.ExtractedUserNeeds{Instrument: "bass"}

	res, err := NewExtractor(stub).Extract(context.Background(), prior, nil, "rock", nil)
	require.NoError(t, err)

	assert.Equal(t, "bass", res.Needs.Instrument)
	assert.Equal(t, types.GenreRock, res.Needs.Genre)
	assert.Nil(t, res.Needs.BudgetRange)
	assert.Equal(t, IntentProvideInfo, res.Intent)
}

func TestExtract_PromptCarriesContext(t *testing.T) {
	stub := &stubCompleter{response: `{"observed": {}, "intent": "accept", "selected_mentor": " Ada "}`}
	history := []types.Turn{
		{Speaker: types.SpeakerUser, Text: "piano, beginner"},
		{Speaker: types.SpeakerAssistant, Text: "Here are 1 mentors"},
	}
	presented := []types.MentorSuggestion{{MentorID: "m-ada", Mentor: types.MentorSummary{Name: "Ada"}}}

	res, err := NewExtractor(stub).Extract(context.Background(), types.ExtractedUserNeeds{Instrument: "piano"}, history, "I'll take Ada", presented)
	require.NoError(t, err)

	assert.Equal(t, IntentAccept, res.Intent)
	assert.Equal(t, "Ada", res.SelectedMentor)
	assert.Contains(t, stub.system, `"instrument":"piano"`)
	assert.Contains(t, stub.system, "id=m-ada name=Ada")
	assert.Contains(t, stub.system, "musical_theatre")
	require.Len(t, stub.turns, 3)
	assert.Equal(t, types.Turn{Speaker: types.SpeakerUser, Text: "I'll take Ada"}, stub.turns[2])
	assert.Len(t, history, 2, "caller's history must not grow")
}

func TestExtract_Deterministic(t *testing.T) {
	e := NewExtractor(KeywordCompleter{})
	prior := types.ExtractedUserNeeds{Instrument: "guitar"}

	first, err := e.Extract(context.Background(), prior, nil, "blues, weekend mornings, under $50", nil)
	require.NoError(t, err)
	second, err := e.Extract(context.Background(), prior, nil, "blues, weekend mornings, under $50", nil)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}
