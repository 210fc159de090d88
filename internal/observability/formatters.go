// Package observability provides formatted output for verbose CLI mode and
// Prometheus metrics for the conversation controller.
package observability

import (
	"fmt"
	"io"
	"strings"

	"github.com/jonathan/mentor-match/internal/conversation"
	"github.com/jonathan/mentor-match/internal/types"
)

const (
	// boxWidth is the default width for formatted output boxes
	boxWidth = 60
	// maxItemsToShow is the default number of items to display in lists
	maxItemsToShow = 5
)

// Printer handles formatted output for verbose mode
type Printer struct {
	out io.Writer
}

// NewPrinter creates a new Printer that writes to the given writer
func NewPrinter(out io.Writer) *Printer {
	return &Printer{out: out}
}

// printBox prints a formatted box with a title and content
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) printBox(title string, content string) {
	border := strings.Repeat("─", boxWidth-2)
	fmt.Fprintf(p.out, "┌%s┐\n", border)
	fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, title)
	fmt.Fprintf(p.out, "├%s┤\n", border)

	for _, line := range strings.Split(strings.TrimRight(content, "\n"), "\n") {
		runes := []rune(line)
		if len(runes) > boxWidth-4 {
			line = string(runes[:boxWidth-7]) + "..."
		}
		fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, line)
	}

	fmt.Fprintf(p.out, "└%s┘\n", border)
}

// PrintNeeds outputs the accumulated needs snapshot.
func (p *Printer) PrintNeeds(needs types.ExtractedUserNeeds) {
	if needs.IsEmpty() {
		p.printBox("NEEDS", "(nothing yet)")
		return
	}

	var sb strings.Builder
	if needs.Instrument != "" {
		sb.WriteString(fmt.Sprintf("Instrument:  %s\n", needs.Instrument))
	}
	if needs.Genre != "" {
		sb.WriteString(fmt.Sprintf("Genre:       %s\n", needs.Genre))
	}
	if needs.SkillLevel != "" {
		sb.WriteString(fmt.Sprintf("Level:       %s\n", needs.SkillLevel))
	}
	if needs.PreferredFormat != "" {
		sb.WriteString(fmt.Sprintf("Format:      %s\n", needs.PreferredFormat))
	}
	if b := needs.BudgetRange; b != nil && (b.Min != nil || b.Max != nil) {
		sb.WriteString(fmt.Sprintf("Budget:      %s\n", formatBudget(b)))
	}
	if len(needs.Availability) > 0 {
		windows := make([]string, 0, len(needs.Availability))
		for _, w := range needs.Availability {
			windows = append(windows, w.String())
		}
		sb.WriteString(fmt.Sprintf("Free:        %s\n", strings.Join(windows, ", ")))
	}
	if len(needs.LearningGoals) > 0 {
		sb.WriteString("Goals:\n")
		for _, g := range needs.LearningGoals {
			sb.WriteString(fmt.Sprintf("  • %s\n", g))
		}
	}
	if needs.Notes != "" {
		sb.WriteString(fmt.Sprintf("Notes:       %s\n", needs.Notes))
	}

	p.printBox("NEEDS", sb.String())
}

func formatBudget(b *types.BudgetRange) string {
	switch {
	case b.Min != nil && b.Max != nil:
		return fmt.Sprintf("$%.0f-$%.0f/h", *b.Min, *b.Max)
	case b.Max != nil:
		return fmt.Sprintf("up to $%.0f/h", *b.Max)
	default:
		return fmt.Sprintf("from $%.0f/h", *b.Min)
	}
}

// PrintSuggestions outputs the ranked suggestions with scores and reasons.
func (p *Printer) PrintSuggestions(suggestions []types.MentorSuggestion) {
	if len(suggestions) == 0 {
		return
	}

	var sb strings.Builder
	count := min(len(suggestions), maxItemsToShow)
	for i := 0; i < count; i++ {
		s := suggestions[i]
		sb.WriteString(fmt.Sprintf("%d. %s [%s] score: %.2f\n", i+1, s.Mentor.Name, s.MentorID, s.MatchScore))
		for _, r := range s.MatchReasons {
			sb.WriteString(fmt.Sprintf("     - %s\n", r))
		}
	}
	if len(suggestions) > maxItemsToShow {
		sb.WriteString(fmt.Sprintf("... and %d more\n", len(suggestions)-maxItemsToShow))
	}

	p.printBox(fmt.Sprintf("SUGGESTIONS (%d)", len(suggestions)), sb.String())
}

// PrintTransitions outputs the step changes of one turn on a single line.
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) PrintTransitions(transitions []conversation.Transition) {
	if len(transitions) == 0 {
		return
	}
	parts := []string{string(transitions[0].From)}
	for _, tr := range transitions {
		parts = append(parts, string(tr.To))
	}
	fmt.Fprintf(p.out, "  [%s]\n", strings.Join(parts, " → "))
}

// PrintTurn prints the verbose view of one controller result.
func (p *Printer) PrintTurn(result *conversation.TurnResult) {
	if result == nil || result.Session == nil {
		return
	}
	p.PrintTransitions(result.Transitions)
	p.PrintNeeds(result.Session.Needs)
	p.PrintSuggestions(result.Suggestions)
}
