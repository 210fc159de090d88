package server

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/jonathan/mentor-match/internal/types"
)

// SSE event names
const (
	eventSession    = "session"
	eventTransition = "transition"
	eventReply      = "reply"
	eventError      = "error"
)

// SSEWriter helps write Server-Sent Events
type SSEWriter struct {
	w       http.ResponseWriter
	flusher http.Flusher
}

// NewSSEWriter creates a new SSE writer
func NewSSEWriter(w http.ResponseWriter) (*SSEWriter, error) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, fmt.Errorf("streaming not supported")
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	return &SSEWriter{w: w, flusher: flusher}, nil
}

// WriteEvent sends an SSE event
func (s *SSEWriter) WriteEvent(event string, data any) error {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return err
	}

	if _, err := fmt.Fprintf(s.w, "event: %s\ndata: %s\n\n", event, jsonData); err != nil {
		return err
	}
	s.flusher.Flush()
	return nil
}

// WriteError sends an error event
func (s *SSEWriter) WriteError(status int, message string) {
	s.WriteEvent(eventError, map[string]any{"status": status, "error": message}) //nolint:errcheck
}

// WriteTurn sends one transition event per step change followed by the reply.
func (s *SSEWriter) WriteTurn(resp types.TurnResponse) error {
	for _, tr := range resp.Transitions {
		if err := s.WriteEvent(eventTransition, tr); err != nil {
			return err
		}
	}
	return s.WriteEvent(eventReply, resp)
}
