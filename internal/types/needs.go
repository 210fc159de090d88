// Package types provides type definitions for structured data used throughout the mentor matching system.
//
//nolint:revive // types is a standard Go package name pattern
package types

import (
	"fmt"
	"sort"
	"strings"
)

// SkillLevel is the learner's self-reported proficiency
type SkillLevel string

// Skill levels, ordered from least to most experienced
const (
	SkillBeginner     SkillLevel = "beginner"
	SkillIntermediate SkillLevel = "intermediate"
	SkillAdvanced     SkillLevel = "advanced"
	SkillProfessional SkillLevel = "professional"
)

// SkillLevels lists every recognised level in ascending order.
var SkillLevels = []SkillLevel{SkillBeginner, SkillIntermediate, SkillAdvanced, SkillProfessional}

// Rank returns the ordinal position of the level (0 = beginner) or -1 when unknown.
func (l SkillLevel) Rank() int {
	for i, level := range SkillLevels {
		if level == l {
			return i
		}
	}
	return -1
}

// Valid reports whether l is one of the recognised levels.
func (l SkillLevel) Valid() bool {
	return l.Rank() >= 0
}

// LessonFormat is how lessons are delivered
type LessonFormat string

// Lesson formats
const (
	FormatOnline   LessonFormat = "online"
	FormatInPerson LessonFormat = "in_person"
	FormatEither   LessonFormat = "either"
)

// Valid reports whether f is a recognised format.
func (f LessonFormat) Valid() bool {
	switch f {
	case FormatOnline, FormatInPerson, FormatEither:
		return true
	}
	return false
}

// Compatible reports whether a learner asking for f can be served by a mentor offering other.
func (f LessonFormat) Compatible(other LessonFormat) bool {
	if f == FormatEither || other == FormatEither {
		return f.Valid() && other.Valid()
	}
	return f == other
}

// Genre is one of the closed set of music genres the marketplace recognises
type Genre string

// Recognised genres
const (
	GenreClassical      Genre = "classical"
	GenreJazz           Genre = "jazz"
	GenreRock           Genre = "rock"
	GenrePop            Genre = "pop"
	GenreBlues          Genre = "blues"
	GenreFolk           Genre = "folk"
	GenreCountry        Genre = "country"
	GenreMetal          Genre = "metal"
	GenreFunk           Genre = "funk"
	GenreSoul           Genre = "soul"
	GenreRnB            Genre = "rnb"
	GenreHipHop         Genre = "hiphop"
	GenreElectronic     Genre = "electronic"
	GenreLatin          Genre = "latin"
	GenreWorld          Genre = "world"
	GenreMusicalTheatre Genre = "musical_theatre"
	GenreFilmGame       Genre = "film_game"
)

// Genres lists the closed genre set.
var Genres = []Genre{
	GenreClassical, GenreJazz, GenreRock, GenrePop, GenreBlues, GenreFolk, GenreCountry,
	GenreMetal, GenreFunk, GenreSoul, GenreRnB, GenreHipHop, GenreElectronic, GenreLatin,
	GenreWorld, GenreMusicalTheatre, GenreFilmGame,
}

// Valid reports whether g belongs to the closed genre set.
func (g Genre) Valid() bool {
	for _, known := range Genres {
		if known == g {
			return true
		}
	}
	return false
}

// Weekday names used in time windows
var Weekdays = []string{"mon", "tue", "wed", "thu", "fri", "sat", "sun"}

// TimeWindow is a weekly recurring slot, minutes counted from local midnight.
type TimeWindow struct {
	Day         string `json:"day" validate:"required,oneof=mon tue wed thu fri sat sun"`
	StartMinute int    `json:"start_minute" validate:"min=0,max=1439"`
	EndMinute   int    `json:"end_minute" validate:"min=1,max=1440,gtfield=StartMinute"`
}

// Overlaps reports whether the two windows share any time on the same day.
func (w TimeWindow) Overlaps(other TimeWindow) bool {
	if w.Day != other.Day {
		return false
	}
	return w.StartMinute < other.EndMinute && other.StartMinute < w.EndMinute
}

// String renders the window as "mon 18:00-20:00".
func (w TimeWindow) String() string {
	return fmt.Sprintf("%s %02d:%02d-%02d:%02d", w.Day,
		w.StartMinute/60, w.StartMinute%60, w.EndMinute/60, w.EndMinute%60)
}

// BudgetRange holds optional hourly price bounds
type BudgetRange struct {
	Min *float64 `json:"min,omitempty" validate:"omitempty,gte=0"`
	Max *float64 `json:"max,omitempty" validate:"omitempty,gte=0"`
}

// HasCeiling reports whether an upper bound was given.
func (b *BudgetRange) HasCeiling() bool {
	return b != nil && b.Max != nil
}

// Needs field names, shared by the completeness policy, the completion schema and cleared_fields.
const (
	FieldInstrument      = "instrument"
	FieldGenre           = "genre"
	FieldSkillLevel      = "skill_level"
	FieldLearningGoals   = "learning_goals"
	FieldAvailability    = "availability"
	FieldBudgetRange     = "budget_range"
	FieldPreferredFormat = "preferred_format"
	FieldNotes           = "notes"
)

// NeedsFields lists every needs field in canonical order.
var NeedsFields = []string{
	FieldInstrument, FieldGenre, FieldSkillLevel, FieldLearningGoals,
	FieldAvailability, FieldBudgetRange, FieldPreferredFormat, FieldNotes,
}

// ExtractedUserNeeds is the accumulated, partial-by-design record of what a learner wants.
// The zero value of every field means "unspecified".
type ExtractedUserNeeds struct {
	Instrument      string       `json:"instrument,omitempty"`
	Genre           Genre        `json:"genre,omitempty"`
	SkillLevel      SkillLevel   `json:"skill_level,omitempty"`
	LearningGoals   []string     `json:"learning_goals,omitempty"`
	Availability    []TimeWindow `json:"availability,omitempty" validate:"dive"`
	BudgetRange     *BudgetRange `json:"budget_range,omitempty"`
	PreferredFormat LessonFormat `json:"preferred_format,omitempty"`
	Notes           string       `json:"notes,omitempty"`
}

// Has reports whether the named field is specified.
func (n ExtractedUserNeeds) Has(field string) bool {
	switch field {
	case FieldInstrument:
		return n.Instrument != ""
	case FieldGenre:
		return n.Genre != ""
	case FieldSkillLevel:
		return n.SkillLevel != ""
	case FieldLearningGoals:
		return len(n.LearningGoals) > 0
	case FieldAvailability:
		return len(n.Availability) > 0
	case FieldBudgetRange:
		return n.BudgetRange != nil && (n.BudgetRange.Min != nil || n.BudgetRange.Max != nil)
	case FieldPreferredFormat:
		return n.PreferredFormat != ""
	case FieldNotes:
		return n.Notes != ""
	}
	return false
}

// SpecifiedFields returns the names of specified fields in canonical order.
func (n ExtractedUserNeeds) SpecifiedFields() []string {
	var fields []string
	for _, f := range NeedsFields {
		if n.Has(f) {
			fields = append(fields, f)
		}
	}
	return fields
}

// IsEmpty reports whether no field is specified.
func (n ExtractedUserNeeds) IsEmpty() bool {
	return len(n.SpecifiedFields()) == 0
}

// Clone returns a deep copy so callers can never alias slices or the budget pointer.
func (n ExtractedUserNeeds) Clone() ExtractedUserNeeds {
	cp := n
	if n.LearningGoals != nil {
		cp.LearningGoals = append([]string(nil), n.LearningGoals...)
	}
	if n.Availability != nil {
		cp.Availability = append([]TimeWindow(nil), n.Availability...)
	}
	if n.BudgetRange != nil {
		b := BudgetRange{}
		if n.BudgetRange.Min != nil {
			v := *n.BudgetRange.Min
			b.Min = &v
		}
		if n.BudgetRange.Max != nil {
			v := *n.BudgetRange.Max
			b.Max = &v
		}
		cp.BudgetRange = &b
	}
	return cp
}

// NeedsUpdate is what one user turn contributes: newly observed values plus fields
// the user explicitly withdrew.
type NeedsUpdate struct {
	Observed ExtractedUserNeeds
	Cleared  []string
}

// Merge applies update on top of prior and returns a new record. Specified values in
// update.Observed replace prior values; unspecified ones leave prior untouched. A prior
// field is only dropped when it is named in update.Cleared and not re-supplied.
func Merge(prior ExtractedUserNeeds, update NeedsUpdate) ExtractedUserNeeds {
	merged := prior.Clone()
	obs := update.Observed.Clone()

	for _, field := range update.Cleared {
		if !obs.Has(field) {
			merged.clear(field)
		}
	}

	if obs.Has(FieldInstrument) {
		merged.Instrument = obs.Instrument
	}
	if obs.Has(FieldGenre) {
		merged.Genre = obs.Genre
	}
	if obs.Has(FieldSkillLevel) {
		merged.SkillLevel = obs.SkillLevel
	}
	if obs.Has(FieldLearningGoals) {
		merged.LearningGoals = normalizeGoals(obs.LearningGoals)
	}
	if obs.Has(FieldAvailability) {
		merged.Availability = obs.Availability
	}
	if obs.Has(FieldBudgetRange) {
		merged.BudgetRange = mergeBudget(merged.BudgetRange, obs.BudgetRange)
	}
	if obs.Has(FieldPreferredFormat) {
		merged.PreferredFormat = obs.PreferredFormat
	}
	if obs.Has(FieldNotes) {
		merged.Notes = obs.Notes
	}
	return merged
}

// mergeBudget takes each bound from update when given and from prior otherwise. A prior
// bound that would invert the range is dropped.
func mergeBudget(prior, update *BudgetRange) *BudgetRange {
	if prior == nil {
		return update
	}
	out := &BudgetRange{Min: prior.Min, Max: prior.Max}
	if update.Min != nil {
		out.Min = update.Min
		if out.Max != nil && update.Max == nil && *out.Max < *out.Min {
			out.Max = nil
		}
	}
	if update.Max != nil {
		out.Max = update.Max
		if out.Min != nil && update.Min == nil && *out.Min > *out.Max {
			out.Min = nil
		}
	}
	return out
}

func (n *ExtractedUserNeeds) clear(field string) {
	switch field {
	case FieldInstrument:
		n.Instrument = ""
	case FieldGenre:
		n.Genre = ""
	case FieldSkillLevel:
		n.SkillLevel = ""
	case FieldLearningGoals:
		n.LearningGoals = nil
	case FieldAvailability:
		n.Availability = nil
	case FieldBudgetRange:
		n.BudgetRange = nil
	case FieldPreferredFormat:
		n.PreferredFormat = ""
	case FieldNotes:
		n.Notes = ""
	}
}

// normalizeGoals lowercases, trims, dedupes and sorts goal tags (goals are a set).
func normalizeGoals(goals []string) []string {
	seen := make(map[string]bool, len(goals))
	out := make([]string, 0, len(goals))
	for _, g := range goals {
		g = strings.ToLower(strings.TrimSpace(g))
		if g == "" || seen[g] {
			continue
		}
		seen[g] = true
		out = append(out, g)
	}
	sort.Strings(out)
	return out
}
