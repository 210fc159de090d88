package conversation

import (
	"strconv"
	"strings"

	"github.com/jonathan/mentor-match/internal/types"
)

var ordinals = map[string]int{
	"first": 1, "1st": 1,
	"second": 2, "2nd": 2,
	"third": 3, "3rd": 3,
	"fourth": 4, "4th": 4,
	"fifth": 5, "5th": 5,
	"sixth": 6, "6th": 6,
	"seventh": 7, "7th": 7,
	"eighth": 8, "8th": 8,
	"ninth": 9, "9th": 9,
	"tenth": 10, "10th": 10,
}

var selectionFillers = map[string]bool{
	"the": true, "one": true, "mentor": true, "please": true, "number": true,
	"option": true, "with": true, "teacher": true, "i": true, "want": true,
}

// resolveSelection finds the presented suggestion a learner referred to by mentor id,
// full name, a unique name part, a 1-based position or an ordinal word.
func resolveSelection(presented []types.MentorSuggestion, ref string) (types.MentorSuggestion, bool) {
	ref = strings.ToLower(strings.Trim(strings.TrimSpace(ref), ".!?,\"'"))
	if ref == "" || len(presented) == 0 {
		return types.MentorSuggestion{}, false
	}

	for _, s := range presented {
		if strings.ToLower(s.MentorID) == ref || strings.ToLower(s.Mentor.Name) == ref {
			return s, true
		}
	}

	var tokens []string
	for _, tok := range strings.Fields(ref) {
		tok = strings.Trim(tok, ".!?,#\"'")
		if tok != "" && !selectionFillers[tok] {
			tokens = append(tokens, tok)
		}
	}

	for _, tok := range tokens {
		if pos, ok := position(tok, len(presented)); ok {
			return presented[pos-1], true
		}
		for _, s := range presented {
			if strings.ToLower(s.MentorID) == tok {
				return s, true
			}
		}
	}

	var match *types.MentorSuggestion
	for i := range presented {
		if nameMatches(presented[i].Mentor.Name, tokens) {
			if match != nil {
				return types.MentorSuggestion{}, false
			}
			match = &presented[i]
		}
	}
	if match == nil {
		return types.MentorSuggestion{}, false
	}
	return *match, true
}

func position(tok string, n int) (int, bool) {
	if tok == "last" {
		return n, true
	}
	pos, ok := ordinals[tok]
	if !ok {
		v, err := strconv.Atoi(tok)
		if err != nil {
			return 0, false
		}
		pos = v
	}
	if pos < 1 || pos > n {
		return 0, false
	}
	return pos, true
}

func nameMatches(name string, tokens []string) bool {
	if len(tokens) == 0 {
		return false
	}
	parts := strings.Fields(strings.ToLower(name))
	for _, tok := range tokens {
		found := false
		for _, p := range parts {
			if p == tok {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}
