package extraction

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jonathan/mentor-match/internal/prompts"
	"github.com/jonathan/mentor-match/internal/types"
)

// buildSystemPrompt renders the extraction instruction with what is already known.
func buildSystemPrompt(prior types.ExtractedUserNeeds, presented []types.MentorSuggestion) (string, error) {
	template, err := prompts.Get("extraction.json", "extract-needs")
	if err != nil {
		return "", err
	}

	known := "nothing yet"
	if !prior.IsEmpty() {
		data, err := json.Marshal(prior)
		if err != nil {
			return "", fmt.Errorf("failed to marshal prior needs: %w", err)
		}
		known = string(data)
	}

	genres := make([]string, len(types.Genres))
	for i, g := range types.Genres {
		genres[i] = string(g)
	}

	return prompts.Format(template, map[string]string{
		"Prior":     known,
		"Presented": describePresented(presented),
		"Genres":    strings.Join(genres, ", "),
	}), nil
}

func describePresented(presented []types.MentorSuggestion) string {
	if len(presented) == 0 {
		return "none"
	}
	var sb strings.Builder
	for i, s := range presented {
		sb.WriteString(fmt.Sprintf("%d. id=%s name=%s\n", i+1, s.MentorID, s.Mentor.Name))
	}
	return strings.TrimRight(sb.String(), "\n")
}
