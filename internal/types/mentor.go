package types

// MentorProfile is a catalog entry. The matching core treats it as read-only.
type MentorProfile struct {
	ID           string         `json:"id"`
	Name         string         `json:"name"`
	Instruments  []string       `json:"instruments"`
	Genres       []Genre        `json:"genres"`
	SkillLevels  []SkillLevel   `json:"skill_levels"`
	Availability []TimeWindow   `json:"availability"`
	HourlyRate   float64        `json:"hourly_rate"`
	Formats      []LessonFormat `json:"formats"`
	Rating       float64        `json:"rating"`
	ReviewCount  int            `json:"review_count"`
	Bio          string         `json:"bio,omitempty"`
}

// MentorSummary is the subset of a profile needed to display a suggestion
type MentorSummary struct {
	Name        string         `json:"name"`
	Instruments []string       `json:"instruments"`
	Genres      []Genre        `json:"genres"`
	HourlyRate  float64        `json:"hourly_rate"`
	Formats     []LessonFormat `json:"formats"`
	Rating      float64        `json:"rating"`
	ReviewCount int            `json:"review_count"`
}

// Summary projects the profile for display.
func (m MentorProfile) Summary() MentorSummary {
	return MentorSummary{
		Name:        m.Name,
		Instruments: append([]string(nil), m.Instruments...),
		Genres:      append([]Genre(nil), m.Genres...),
		HourlyRate:  m.HourlyRate,
		Formats:     append([]LessonFormat(nil), m.Formats...),
		Rating:      m.Rating,
		ReviewCount: m.ReviewCount,
	}
}

// MentorSuggestion is one ranked result of a search
type MentorSuggestion struct {
	MentorID     string        `json:"mentor_id"`
	MatchScore   float64       `json:"match_score"`
	MatchReasons []string      `json:"match_reasons"`
	Mentor       MentorSummary `json:"mentor"`
}

// Clone returns a deep copy of the suggestion.
func (s MentorSuggestion) Clone() MentorSuggestion {
	cp := s
	cp.MatchReasons = append([]string(nil), s.MatchReasons...)
	cp.Mentor.Instruments = append([]string(nil), s.Mentor.Instruments...)
	cp.Mentor.Genres = append([]Genre(nil), s.Mentor.Genres...)
	cp.Mentor.Formats = append([]LessonFormat(nil), s.Mentor.Formats...)
	return cp
}

// CatalogFilter narrows a catalog listing. An empty filter lists every mentor.
type CatalogFilter struct {
	// Instruments keeps mentors teaching at least one of these canonical instruments.
	Instruments []string `json:"instruments,omitempty"`
}

// IsEmpty reports whether the filter keeps every mentor.
func (f CatalogFilter) IsEmpty() bool {
	return len(f.Instruments) == 0
}
