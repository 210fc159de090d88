package types

import (
	"time"

	"github.com/google/uuid"
)

// Speaker identifies who authored a turn
type Speaker string

// Speakers
const (
	SpeakerUser      Speaker = "user"
	SpeakerAssistant Speaker = "assistant"
)

// Turn is a single chat message
type Turn struct {
	Speaker   Speaker   `json:"speaker"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

// MatchingStep is the conversation state tag
type MatchingStep string

// Matching steps
const (
	StepCollecting    MatchingStep = "collecting"
	StepClarifying    MatchingStep = "clarifying"
	StepReadyToSearch MatchingStep = "ready_to_search"
	StepSearching     MatchingStep = "searching"
	StepPresenting    MatchingStep = "presenting"
	StepCompleted     MatchingStep = "completed"
	StepAbandoned     MatchingStep = "abandoned"
)

// Terminal reports whether no further transitions are possible from s.
func (s MatchingStep) Terminal() bool {
	return s == StepCompleted || s == StepAbandoned
}

// ChatSession owns the turn log, the current needs snapshot and the step tag.
// Version increases by one on every successful save.
type ChatSession struct {
	ID          uuid.UUID          `json:"id"`
	UserID      uuid.UUID          `json:"user_id"`
	Turns       []Turn             `json:"turns"`
	Needs       ExtractedUserNeeds `json:"needs"`
	Step        MatchingStep       `json:"step"`
	Suggestions []MentorSuggestion `json:"suggestions,omitempty"`
	Version     int64              `json:"version"`
	CreatedAt   time.Time          `json:"created_at"`
	UpdatedAt   time.Time          `json:"updated_at"`
}

// NewChatSession creates an empty session in the collecting step.
func NewChatSession(id, userID uuid.UUID, now time.Time) *ChatSession {
	return &ChatSession{
		ID:        id,
		UserID:    userID,
		Turns:     []Turn{},
		Step:      StepCollecting,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Clone returns a deep copy of the session.
func (s *ChatSession) Clone() *ChatSession {
	if s == nil {
		return nil
	}
	cp := *s
	cp.Turns = append([]Turn(nil), s.Turns...)
	cp.Needs = s.Needs.Clone()
	if s.Suggestions != nil {
		cp.Suggestions = make([]MentorSuggestion, len(s.Suggestions))
		for i, sg := range s.Suggestions {
			cp.Suggestions[i] = sg.Clone()
		}
	}
	return &cp
}

// LastSuggestion returns the presented suggestion for mentorID, if any.
func (s *ChatSession) LastSuggestion(mentorID string) (MentorSuggestion, bool) {
	for _, sg := range s.Suggestions {
		if sg.MentorID == mentorID {
			return sg, true
		}
	}
	return MentorSuggestion{}, false
}
