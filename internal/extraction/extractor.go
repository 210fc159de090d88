// Package extraction turns free-text learner messages into structured needs updates.
package extraction

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jonathan/mentor-match/internal/llm"
	"github.com/jonathan/mentor-match/internal/matching"
	"github.com/jonathan/mentor-match/internal/schemas"
	"github.com/jonathan/mentor-match/internal/types"
)

// DefaultTimeout bounds a single completion call
const DefaultTimeout = 8 * time.Second

// Completer is the text-to-structured-data collaborator. It receives the system
// instruction and the full turn log ending with the latest user message, and returns
// a JSON document.
type Completer interface {
	Complete(ctx context.Context, systemPrompt string, turns []types.Turn) (string, error)
}

// Intent is what the learner is trying to do with a message
type Intent string

// Intents
const (
	IntentProvideInfo Intent = "provide_info"
	IntentRefine      Intent = "refine"
	IntentCancel      Intent = "cancel"
	IntentAccept      Intent = "accept"
)

// Result is the outcome of reading one learner message
type Result struct {
	// Needs is prior merged with Update.
	Needs  types.ExtractedUserNeeds
	Update types.NeedsUpdate
	Intent Intent
	// SelectedMentor is the learner's reference to a presented mentor (id, name or
	// 1-based position) when Intent is IntentAccept.
	SelectedMentor string
}

// completionPayload is the wire shape of the completion output
type completionPayload struct {
	Observed       types.ExtractedUserNeeds `json:"observed"`
	ClearedFields  []string                 `json:"cleared_fields,omitempty"`
	Intent         Intent                   `json:"intent"`
	SelectedMentor string                   `json:"selected_mentor,omitempty"`
}

// Option configures an Extractor
type Option func(*Extractor)

// WithTimeout overrides DefaultTimeout.
func WithTimeout(d time.Duration) Option {
	return func(e *Extractor) {
		if d > 0 {
			e.timeout = d
		}
	}
}

// WithLogger sets the logger used for rejected completions.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Extractor) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// Extractor reads learner messages through a Completer
type Extractor struct {
	completer Completer
	validate  *validator.Validate
	timeout   time.Duration
	logger    *slog.Logger
}

// NewExtractor creates an Extractor.
func NewExtractor(completer Completer, opts ...Option) *Extractor {
	v := validator.New()
	v.RegisterStructValidation(validateBudgetRange, types.BudgetRange{})

	e := &Extractor{
		completer: completer,
		validate:  v,
		timeout:   DefaultTimeout,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Extract interprets latest in the context of the earlier turns and merges the result
// into prior. presented lists the mentors currently shown to the learner so that a
// choice among them can be recognised.
//
// On any failure the returned Result carries prior unchanged and the error is an
// *ExtractionError.
func (e *Extractor) Extract(ctx context.Context, prior types.ExtractedUserNeeds, turns []types.Turn, latest string, presented []types.MentorSuggestion) (Result, error) {
	unchanged := Result{Needs: prior.Clone(), Intent: IntentProvideInfo}

	if strings.TrimSpace(latest) == "" {
		return unchanged, &ExtractionError{Message: "message is empty"}
	}

	system, err := buildSystemPrompt(prior, presented)
	if err != nil {
		return unchanged, &ExtractionError{Message: "failed to build prompt", Cause: err}
	}

	history := make([]types.Turn, 0, len(turns)+1)
	history = append(history, turns...)
	history = append(history, types.Turn{Speaker: types.SpeakerUser, Text: latest})

	callCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	raw, err := e.completer.Complete(callCtx, system, history)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(callCtx.Err(), context.DeadlineExceeded) {
			return unchanged, &ExtractionError{Message: fmt.Sprintf("completion timed out after %s", e.timeout), Cause: err, Timeout: true}
		}
		return unchanged, &ExtractionError{Message: "completion call failed", Cause: err}
	}

	payload, err := e.parse(raw)
	if err != nil {
		e.logger.Warn("rejected completion output", "error", err, "raw", raw)
		return unchanged, err
	}

	update := types.NeedsUpdate{Observed: payload.Observed, Cleared: payload.ClearedFields}
	return Result{
		Needs:          types.Merge(prior, update),
		Update:         update,
		Intent:         payload.Intent,
		SelectedMentor: strings.TrimSpace(payload.SelectedMentor),
	}, nil
}

// parse runs the completion output through fence stripping, schema validation,
// decoding, normalisation and struct validation.
func (e *Extractor) parse(raw string) (*completionPayload, error) {
	cleaned := llm.CleanJSONBlock(raw)

	if err := schemas.ValidateNeedsUpdate([]byte(cleaned)); err != nil {
		return nil, &ExtractionError{Message: "completion output does not match schema", Cause: err, Raw: raw}
	}

	var payload completionPayload
	if err := json.Unmarshal([]byte(cleaned), &payload); err != nil {
		return nil, &ExtractionError{Message: "failed to decode completion output", Cause: err, Raw: raw}
	}

	normalizePayload(&payload)

	if err := e.validate.Struct(payload.Observed); err != nil {
		return nil, &ExtractionError{Message: "completion output failed validation", Cause: err, Raw: raw}
	}
	return &payload, nil
}

func normalizePayload(p *completionPayload) {
	obs := &p.Observed
	obs.Instrument = matching.NormalizeInstrument(obs.Instrument)
	obs.Notes = strings.TrimSpace(obs.Notes)
	if obs.BudgetRange != nil && obs.BudgetRange.Min == nil && obs.BudgetRange.Max == nil {
		obs.BudgetRange = nil
	}
	if p.Intent == "" {
		p.Intent = IntentProvideInfo
	}
}

func validateBudgetRange(sl validator.StructLevel) {
	b := sl.Current().Interface().(types.BudgetRange)
	if b.Min != nil && b.Max != nil && *b.Min > *b.Max {
		sl.ReportError(b.Max, "Max", "max", "gtefield", "Min")
	}
}
