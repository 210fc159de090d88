package extraction

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/jonathan/mentor-match/internal/matching"
	"github.com/jonathan/mentor-match/internal/types"
)

// KeywordCompleter is a rule-based Completer for offline use. It only reads the
// latest user turn and recognises a fixed vocabulary.
type KeywordCompleter struct{}

var (
	genreKeywords = []struct {
		pattern string
		genre   types.Genre
	}{
		{`musical theat(?:re|er)|broadway`, types.GenreMusicalTheatre},
		{`film|game music|video game|soundtracks?`, types.GenreFilmGame},
		{`hip[- ]?hop|rap`, types.GenreHipHop},
		{`r&b|rnb|r and b`, types.GenreRnB},
		{`classical`, types.GenreClassical},
		{`jazz`, types.GenreJazz},
		{`rock`, types.GenreRock},
		{`pop`, types.GenrePop},
		{`blues`, types.GenreBlues},
		{`folk`, types.GenreFolk},
		{`country`, types.GenreCountry},
		{`metal`, types.GenreMetal},
		{`funk`, types.GenreFunk},
		{`soul`, types.GenreSoul},
		{`electronic|edm|techno|house music`, types.GenreElectronic},
		{`latin|salsa|bossa nova`, types.GenreLatin},
		{`world music`, types.GenreWorld},
	}
	levelKeywords = []struct {
		pattern string
		level   types.SkillLevel
	}{
		{`beginner|never played|just start(?:ed|ing)|new to`, types.SkillBeginner},
		{`intermediate|some experience`, types.SkillIntermediate},
		{`advanced|experienced`, types.SkillAdvanced},
		{`professional|pro level`, types.SkillProfessional},
	}
	dayKeywords = map[string]string{
		"monday": "mon", "tuesday": "tue", "wednesday": "wed", "thursday": "thu",
		"friday": "fri", "saturday": "sat", "sunday": "sun",
	}
	partsOfDay = []struct {
		word       string
		start, end int
	}{
		{"morning", 8 * 60, 12 * 60},
		{"afternoon", 12 * 60, 17 * 60},
		{"evening", 17 * 60, 21 * 60},
	}

	budgetPattern  = regexp.MustCompile(`(?:under|below|max(?:imum)?|up to|less than|at most|budget(?: is| of)?)\s*\$?(\d+(?:\.\d+)?)|\$(\d+(?:\.\d+)?)`)
	cancelPattern  = regexp.MustCompile(`\b(?:cancel|stop|never ?mind|quit|forget it)\b`)
	cancelFiller   = regexp.MustCompile(`\b(?:cancel|stop|never ?mind|quit|forget it|please|ok(?:ay)?|just|let's|this|that|it|the|search|searching|everything|all|now)\b`)
	acceptPattern  = regexp.MustCompile(`\b(?:pick|choose|select|go with|i'll take|i will take)\b\s*(?:the\s+)?(?:number\s+|#)?(.*)`)
	refinePattern  = regexp.MustCompile(`\b(?:instead|actually|change|rather)\b`)
	noBudgetRegexp = regexp.MustCompile(`\b(?:no|any|don't care about(?: the)?) budget\b`)
)

// Complete answers with a needs update payload for the latest user turn.
func (KeywordCompleter) Complete(_ context.Context, _ string, turns []types.Turn) (string, error) {
	latest := ""
	for i := len(turns) - 1; i >= 0; i-- {
		if turns[i].Speaker == types.SpeakerUser {
			latest = turns[i].Text
			break
		}
	}

	payload := readKeywords(strings.ToLower(latest))
	data, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to marshal payload: %w", err)
	}
	return string(data), nil
}

func readKeywords(text string) completionPayload {
	p := completionPayload{Intent: IntentProvideInfo}

	if isCancel(text) {
		p.Intent = IntentCancel
		return p
	}

	obs := &p.Observed
	for _, name := range matching.KnownInstruments() {
		if containsWord(text, name) {
			obs.Instrument = matching.NormalizeInstrument(name)
			break
		}
	}
	for _, g := range genreKeywords {
		if matchesWord(text, g.pattern) {
			obs.Genre = g.genre
			break
		}
	}
	for _, l := range levelKeywords {
		if matchesWord(text, l.pattern) {
			obs.SkillLevel = l.level
			break
		}
	}

	switch {
	case containsWord(text, "online") || containsWord(text, "remote"):
		obs.PreferredFormat = types.FormatOnline
	case strings.Contains(text, "in person") || strings.Contains(text, "in-person") || strings.Contains(text, "face to face"):
		obs.PreferredFormat = types.FormatInPerson
	case containsWord(text, "either"):
		obs.PreferredFormat = types.FormatEither
	}

	if noBudgetRegexp.MatchString(text) {
		p.ClearedFields = append(p.ClearedFields, types.FieldBudgetRange)
	} else if m := budgetPattern.FindStringSubmatch(text); m != nil {
		amount := m[1]
		if amount == "" {
			amount = m[2]
		}
		if v, err := strconv.ParseFloat(amount, 64); err == nil {
			obs.BudgetRange = &types.BudgetRange{Max: &v}
		}
	}

	obs.Availability = readAvailability(text)

	// A pick that also carries needs is read as needs.
	if obs.IsEmpty() && len(p.ClearedFields) == 0 {
		if m := acceptPattern.FindStringSubmatch(text); m != nil {
			if ref := strings.Trim(strings.TrimSpace(m[1]), ".!"); ref != "" {
				p.Intent = IntentAccept
				p.SelectedMentor = ref
			}
		}
		return p
	}

	if refinePattern.MatchString(text) {
		p.Intent = IntentRefine
	}
	return p
}

// isCancel reports whether text is a cancel command and nothing else.
func isCancel(text string) bool {
	if !cancelPattern.MatchString(text) {
		return false
	}
	rest := cancelFiller.ReplaceAllString(text, "")
	return strings.Trim(rest, " \t\n,.!;-") == ""
}

func readAvailability(text string) []types.TimeWindow {
	var days []string
	switch {
	case strings.Contains(text, "weekend"):
		days = []string{"sat", "sun"}
	case strings.Contains(text, "weekday"):
		days = []string{"mon", "tue", "wed", "thu", "fri"}
	default:
		for _, d := range types.Weekdays {
			for name, short := range dayKeywords {
				if short == d && strings.Contains(text, name) {
					days = append(days, d)
				}
			}
		}
	}

	start, end, timed := 9*60, 21*60, false
	for _, part := range partsOfDay {
		if strings.Contains(text, part.word) {
			start, end, timed = part.start, part.end, true
			break
		}
	}

	if len(days) == 0 {
		if !timed {
			return nil
		}
		days = types.Weekdays
	}

	windows := make([]types.TimeWindow, len(days))
	for i, d := range days {
		windows[i] = types.TimeWindow{Day: d, StartMinute: start, EndMinute: end}
	}
	return windows
}

func containsWord(text, word string) bool {
	return matchesWord(text, regexp.QuoteMeta(word))
}

func matchesWord(text, pattern string) bool {
	re, err := regexp.Compile(`(?:^|[^a-z])(?:` + pattern + `)(?:$|[^a-z])`)
	if err != nil {
		return false
	}
	return re.MatchString(text)
}
