package conversation

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/jonathan/mentor-match/internal/prompts"
	"github.com/jonathan/mentor-match/internal/types"
)

const repliesFile = "replies.json"

// Reply template keys
const (
	replyAskMissing      = "ask-missing"
	replyAskClarify      = "ask-clarify"
	replyRephrase        = "rephrase"
	replyPresent         = "present"
	replyPresentItem     = "present-item"
	replyPresentFollowup = "present-followup"
	replyNoMentors       = "no-mentors"
	replySearchFailed    = "search-failed"
	replyCancelled       = "cancelled"
	replyCompleted       = "completed"
	replyPickMentor      = "pick-mentor"
	replySessionClosed   = "session-closed"
	replyExpired         = "expired"
)

var replyKeys = []string{
	replyAskMissing, replyAskClarify, replyRephrase, replyPresent, replyPresentItem,
	replyPresentFollowup, replyNoMentors, replySearchFailed, replyCancelled, replyCompleted,
	replyPickMentor, replySessionClosed, replyExpired,
}

// loadReplies fails when any reply template is missing.
func loadReplies() error {
	return prompts.Require(repliesFile, replyKeys...)
}

func render(key string, data map[string]string) string {
	return prompts.Format(prompts.MustGet(repliesFile, key), data)
}

func renderMissing(step types.MatchingStep, missing []Requirement) string {
	key := replyAskClarify
	if step == types.StepCollecting {
		key = replyAskMissing
	}
	return render(key, map[string]string{"Missing": describeMissing(missing)})
}

func renderPresent(suggestions []types.MentorSuggestion) string {
	items := make([]string, len(suggestions))
	for i, s := range suggestions {
		reasons := "a good overall fit"
		if len(s.MatchReasons) > 0 {
			reasons = strings.Join(s.MatchReasons, "; ")
		}
		items[i] = render(replyPresentItem, map[string]string{
			"Position":    strconv.Itoa(i + 1),
			"Name":        s.Mentor.Name,
			"Instruments": strings.Join(s.Mentor.Instruments, ", "),
			"Rate":        fmt.Sprintf("$%.0f", s.Mentor.HourlyRate),
			"Rating":      fmt.Sprintf("%.1f", s.Mentor.Rating),
			"Reasons":     reasons,
		})
	}
	return render(replyPresent, map[string]string{
		"Count": strconv.Itoa(len(suggestions)),
		"List":  strings.Join(items, "\n"),
	})
}

func mentorNames(suggestions []types.MentorSuggestion) string {
	names := make([]string, len(suggestions))
	for i, s := range suggestions {
		names[i] = fmt.Sprintf("%d. %s", i+1, s.Mentor.Name)
	}
	return strings.Join(names, ", ")
}
