package types

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// MessageRequest carries one user message. An empty SessionID starts a new session.
type MessageRequest struct {
	SessionID string `json:"session_id,omitempty" validate:"omitempty,uuid"`
	Message   string `json:"message" validate:"required,max=4000"`
}

// SelectRequest names the presented mentor the user accepts.
type SelectRequest struct {
	MentorID string `json:"mentor_id" validate:"required,max=128"`
}

// TransitionView is one step change reported by a turn
type TransitionView struct {
	From MatchingStep `json:"from"`
	To   MatchingStep `json:"to"`
}

// TurnResponse is the answer to any request that processes a turn.
type TurnResponse struct {
	SessionID      uuid.UUID          `json:"session_id"`
	Step           MatchingStep       `json:"step"`
	AssistantReply string             `json:"assistant_reply"`
	Suggestions    []MentorSuggestion `json:"suggestions,omitempty"`
	Transitions    []TransitionView   `json:"transitions"`
}

// SessionView is the client projection of a stored session.
type SessionView struct {
	ID          uuid.UUID          `json:"id"`
	Step        MatchingStep       `json:"step"`
	Needs       ExtractedUserNeeds `json:"needs"`
	Turns       []Turn             `json:"turns"`
	Suggestions []MentorSuggestion `json:"suggestions,omitempty"`
	CreatedAt   time.Time          `json:"created_at"`
	UpdatedAt   time.Time          `json:"updated_at"`
}

// NewSessionView projects s for clients.
func NewSessionView(s *ChatSession) SessionView {
	return SessionView{
		ID:          s.ID,
		Step:        s.Step,
		Needs:       s.Needs,
		Turns:       s.Turns,
		Suggestions: s.Suggestions,
		CreatedAt:   s.CreatedAt,
		UpdatedAt:   s.UpdatedAt,
	}
}

// TokenResponse is returned by the dev token command.
type TokenResponse struct {
	UserID    uuid.UUID `json:"user_id"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Validate validates the MessageRequest using the validator.
func (r *MessageRequest) Validate() error {
	validate := validator.New()
	return validate.Struct(r)
}

// Validate validates the SelectRequest using the validator.
func (r *SelectRequest) Validate() error {
	validate := validator.New()
	return validate.Struct(r)
}
