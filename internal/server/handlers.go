package server

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
	"github.com/jonathan/mentor-match/internal/conversation"
	"github.com/jonathan/mentor-match/internal/server/middleware"
	"github.com/jonathan/mentor-match/internal/types"
)

// newTurnResponse projects a controller result for clients.
func newTurnResponse(result *conversation.TurnResult) types.TurnResponse {
	transitions := make([]types.TransitionView, 0, len(result.Transitions))
	for _, tr := range result.Transitions {
		transitions = append(transitions, types.TransitionView{From: tr.From, To: tr.To})
	}
	return types.TurnResponse{
		SessionID:      result.Session.ID,
		Step:           result.Session.Step,
		AssistantReply: result.Reply,
		Suggestions:    result.Suggestions,
		Transitions:    transitions,
	}
}

// decodeJSON reads a bounded JSON body into v and validates it.
func (s *Server) decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return &ErrValidation{Field: "body", Message: "invalid request body"}
	}
	return s.validator.Struct(v)
}

// sessionID parses the {id} path value.
func sessionID(r *http.Request) (uuid.UUID, error) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		return uuid.Nil, &ErrValidation{Field: "id", Message: "must be a UUID"}
	}
	return id, nil
}

// runMessage starts a session when req has none and processes the message.
// started is called with the session ID before the message is processed.
func (s *Server) runMessage(ctx context.Context, userID uuid.UUID, req *types.MessageRequest, started func(uuid.UUID)) (*conversation.TurnResult, error) {
	var id uuid.UUID
	if req.SessionID == "" {
		session, err := s.controller.StartSession(ctx, userID)
		if err != nil {
			return nil, err
		}
		id = session.ID
	} else {
		parsed, err := uuid.Parse(req.SessionID)
		if err != nil {
			return nil, &ErrValidation{Field: "session_id", Message: "must be a UUID"}
		}
		id = parsed
	}
	if started != nil {
		started(id)
	}
	return s.controller.HandleMessage(ctx, id, userID, req.Message)
}

// handlePostMessage processes one user message, starting a session when none is given.
func (s *Server) handlePostMessage(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.GetUserID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	var req types.MessageRequest
	if err := s.decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	result, err := s.runMessage(r.Context(), userID, &req, nil)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.jsonResponse(w, http.StatusOK, newTurnResponse(result))
}

// handleStreamMessage is handlePostMessage answered as Server-Sent Events.
func (s *Server) handleStreamMessage(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.GetUserID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	var req types.MessageRequest
	if err := s.decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	sse, err := NewSSEWriter(w)
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, err.Error())
		return
	}

	result, err := s.runMessage(r.Context(), userID, &req, func(id uuid.UUID) {
		sse.WriteEvent(eventSession, map[string]string{"session_id": id.String()}) //nolint:errcheck
	})
	if err != nil {
		status := HTTPStatus(err)
		if status >= http.StatusInternalServerError {
			s.logger.Error("stream request failed", "error", err)
		}
		sse.WriteError(status, PublicMessage(err))
		return
	}

	if err := sse.WriteTurn(newTurnResponse(result)); err != nil {
		s.logger.Warn("failed to write stream", "error", err)
	}
}

// handleGetSession returns the caller's session.
func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.GetUserID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	id, err := sessionID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	session, err := s.controller.Get(r.Context(), id, userID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.jsonResponse(w, http.StatusOK, types.NewSessionView(session))
}

// handleCancel abandons the caller's session.
func (s *Server) handleCancel(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.GetUserID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	id, err := sessionID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	result, err := s.controller.Cancel(r.Context(), id, userID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.jsonResponse(w, http.StatusOK, newTurnResponse(result))
}

// handleSelect completes the caller's session with a presented mentor.
func (s *Server) handleSelect(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.GetUserID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	id, err := sessionID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	var req types.SelectRequest
	if err := s.decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	result, err := s.controller.Select(r.Context(), id, userID, req.MentorID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.jsonResponse(w, http.StatusOK, newTurnResponse(result))
}
