package observability

import (
	"bytes"
	"strings"
	"testing"

	"github.com/jonathan/mentor-match/internal/conversation"
	"github.com/jonathan/mentor-match/internal/types"
	"github.com/stretchr/testify/assert"
)

func TestPrintNeeds(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	maxRate := 50.0
	p.PrintNeeds(types.ExtractedUserNeeds{
		Instrument:    "guitar",
		Genre:         types.GenreJazz,
		SkillLevel:    types.SkillBeginner,
		LearningGoals: []string{"play standards"},
		Availability:  []types.TimeWindow{{Day: "mon", StartMinute: 1080, EndMinute: 1200}},
		BudgetRange:   &types.BudgetRange{Max: &maxRate},
	})
	output := buf.String()

	assert.Contains(t, output, "NEEDS")
	assert.Contains(t, output, "guitar")
	assert.Contains(t, output, "jazz")
	assert.Contains(t, output, "beginner")
	assert.Contains(t, output, "play standards")
	assert.Contains(t, output, "mon 18:00-20:00")
	assert.Contains(t, output, "up to $50/h")
}

func TestPrintNeeds_Empty(t *testing.T) {
	var buf bytes.Buffer
	NewPrinter(&buf).PrintNeeds(types.ExtractedUserNeeds{})
	assert.Contains(t, buf.String(), "(nothing yet)")
}

func TestFormatBudget(t *testing.T) {
	lo, hi := 20.0, 45.0
	assert.Equal(t, "$20-$45/h", formatBudget(&types.BudgetRange{Min: &lo, Max: &hi}))
	assert.Equal(t, "from $20/h", formatBudget(&types.BudgetRange{Min: &lo}))
}

func TestPrintSuggestions(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	var suggestions []types.MentorSuggestion
	for i, name := range []string{"Ana", "Ben", "Cara", "Dev", "Eli", "Fay", "Gus"} {
		suggestions = append(suggestions, types.MentorSuggestion{
			MentorID:     "m" + string(rune('1'+i)),
			MatchScore:   0.9 - float64(i)*0.1,
			MatchReasons: []string{"teaches guitar"},
			Mentor:       types.MentorSummary{Name: name},
		})
	}

	p.PrintSuggestions(suggestions)
	output := buf.String()

	assert.Contains(t, output, "SUGGESTIONS (7)")
	assert.Contains(t, output, "1. Ana [m1] score: 0.90")
	assert.Contains(t, output, "teaches guitar")
	assert.Contains(t, output, "Eli")
	assert.NotContains(t, output, "Fay")
	assert.Contains(t, output, "... and 2 more")
}

func TestPrintSuggestions_Empty(t *testing.T) {
	var buf bytes.Buffer
	NewPrinter(&buf).PrintSuggestions(nil)
	assert.Empty(t, buf.String())
}

func TestPrintTransitions(t *testing.T) {
	var buf bytes.Buffer
	NewPrinter(&buf).PrintTransitions([]conversation.Transition{
		{From: types.StepClarifying, To: types.StepReadyToSearch},
		{From: types.StepReadyToSearch, To: types.StepSearching},
		{From: types.StepSearching, To: types.StepPresenting},
	})
	assert.Equal(t, "  [clarifying → ready_to_search → searching → presenting]\n", buf.String())
}

func TestPrintBox_TruncatesLongLines(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	p.printBox("TITLE", strings.Repeat("x", 100))

	assert.Contains(t, buf.String(), "...")
	assert.NotContains(t, buf.String(), strings.Repeat("x", 60))
}

func TestPrintTurn_Nil(t *testing.T) {
	var buf bytes.Buffer
	NewPrinter(&buf).PrintTurn(nil)
	assert.Empty(t, buf.String())
}
