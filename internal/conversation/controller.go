// Package conversation drives a mentor search session through its steps: it reads each
// learner message, decides whether enough is known to search, runs the search and
// presents the results.
package conversation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jonathan/mentor-match/internal/db"
	"github.com/jonathan/mentor-match/internal/extraction"
	"github.com/jonathan/mentor-match/internal/matching"
	"github.com/jonathan/mentor-match/internal/types"
)

// NeedsExtractor reads one learner message into the needs record
type NeedsExtractor interface {
	Extract(ctx context.Context, prior types.ExtractedUserNeeds, turns []types.Turn, latest string, presented []types.MentorSuggestion) (extraction.Result, error)
}

// Matcher ranks mentors against needs
type Matcher interface {
	Match(needs types.ExtractedUserNeeds, mentors []types.MentorProfile, limit int) ([]types.MentorSuggestion, error)
}

// MentorCatalog lists mentors, optionally narrowed by filter
type MentorCatalog interface {
	ListMentors(ctx context.Context, filter types.CatalogFilter) ([]types.MentorProfile, error)
}

// SessionStore persists sessions with version-checked saves
type SessionStore interface {
	Load(ctx context.Context, id uuid.UUID) (*types.ChatSession, error)
	Save(ctx context.Context, s *types.ChatSession) error
}

// Config holds the controller's policy knobs
type Config struct {
	Completeness    CompletenessPolicy
	SuggestionLimit int
	// SessionTTL is how long a session may stay idle before it is abandoned.
	SessionTTL      time.Duration
	ConflictRetries int
	// PrefilterByInstrument narrows the catalog to the requested instrument's family.
	PrefilterByInstrument bool
}

// DefaultConfig returns the standard controller settings.
func DefaultConfig() Config {
	return Config{
		Completeness:          DefaultCompletenessPolicy(),
		SuggestionLimit:       5,
		SessionTTL:            30 * time.Minute,
		ConflictRetries:       3,
		PrefilterByInstrument: true,
	}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if err := c.Completeness.Validate(); err != nil {
		return &ConfigError{Message: "completeness", Cause: err}
	}
	if c.SuggestionLimit < 1 {
		return &ConfigError{Message: "suggestion_limit must be at least 1"}
	}
	if c.SessionTTL <= 0 {
		return &ConfigError{Message: "session_ttl must be positive"}
	}
	if c.ConflictRetries < 0 {
		return &ConfigError{Message: "conflict_retries must not be negative"}
	}
	return nil
}

// TurnResult is what the caller shows after one request
type TurnResult struct {
	Session     *types.ChatSession
	Reply       string
	Suggestions []types.MentorSuggestion
	Transitions []Transition
}

// Option configures a Controller
type Option func(*Controller)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(c *Controller) { c.now = now }
}

// WithIDGenerator replaces uuid.New for new sessions.
func WithIDGenerator(newID func() uuid.UUID) Option {
	return func(c *Controller) { c.newID = newID }
}

// WithObserver sets the event observer.
func WithObserver(o Observer) Option {
	return func(c *Controller) {
		if o != nil {
			c.observer = o
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Controller) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// Controller is the session state machine
type Controller struct {
	cfg       Config
	extractor NeedsExtractor
	matcher   Matcher
	catalog   MentorCatalog
	store     SessionStore
	observer  Observer
	logger    *slog.Logger
	now       func() time.Time
	newID     func() uuid.UUID
}

// New creates a Controller.
func New(cfg Config, extractor NeedsExtractor, matcher Matcher, catalog MentorCatalog, store SessionStore, opts ...Option) (*Controller, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := loadReplies(); err != nil {
		return nil, fmt.Errorf("failed to load reply templates: %w", err)
	}

	c := &Controller{
		cfg:       cfg,
		extractor: extractor,
		matcher:   matcher,
		catalog:   catalog,
		store:     store,
		observer:  NopObserver{},
		logger:    slog.Default(),
		now:       time.Now,
		newID:     uuid.New,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// StartSession creates and stores an empty session owned by userID.
func (c *Controller) StartSession(ctx context.Context, userID uuid.UUID) (*types.ChatSession, error) {
	s := types.NewChatSession(c.newID(), userID, c.now().UTC())
	if err := c.store.Save(ctx, s); err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	c.logger.Info("session started", "session_id", s.ID, "user_id", userID)
	return s, nil
}

// Get returns the session if userID owns it. A session owned by someone else is
// reported as db.ErrSessionNotFound.
func (c *Controller) Get(ctx context.Context, sessionID, userID uuid.UUID) (*types.ChatSession, error) {
	return c.load(ctx, sessionID, userID)
}

// HandleMessage processes one learner message. Recoverable problems (unreadable
// message, failed search, closed session) are answered in the reply, not as errors.
func (c *Controller) HandleMessage(ctx context.Context, sessionID, userID uuid.UUID, text string) (*TurnResult, error) {
	return c.withSession(ctx, sessionID, userID, func(t *turn) error {
		if t.session.Step.Terminal() {
			t.reply = render(replySessionClosed, nil)
			return nil
		}
		if c.idle(t) {
			t.addTurn(types.SpeakerUser, text)
			c.expire(t)
			return nil
		}
		c.applyMessage(ctx, t, text)
		return nil
	})
}

// Select completes the session with one of the presented mentors.
func (c *Controller) Select(ctx context.Context, sessionID, userID uuid.UUID, mentorID string) (*TurnResult, error) {
	return c.withSession(ctx, sessionID, userID, func(t *turn) error {
		s := t.session
		if s.Step.Terminal() {
			return ErrSessionClosed
		}
		if c.idle(t) {
			c.expire(t)
			return nil
		}
		if s.Step != types.StepPresenting {
			return &StepError{Action: "select a mentor", Step: s.Step}
		}
		sg, ok := s.LastSuggestion(mentorID)
		if !ok {
			return ErrUnknownMentor
		}
		c.complete(t, sg)
		return nil
	})
}

// Cancel abandons the session.
func (c *Controller) Cancel(ctx context.Context, sessionID, userID uuid.UUID) (*TurnResult, error) {
	return c.withSession(ctx, sessionID, userID, func(t *turn) error {
		if t.session.Step.Terminal() {
			return ErrSessionClosed
		}
		if c.idle(t) {
			c.expire(t)
			return nil
		}
		t.transition(types.StepAbandoned)
		t.say(render(replyCancelled, nil))
		return nil
	})
}

// withSession loads the session, applies fn and saves the result. A concurrent write
// makes it reload and apply fn again, up to ConflictRetries times. Each attempt reads
// the message again, so a retried turn costs another completion call. Observer events
// are only delivered for the attempt that is saved.
func (c *Controller) withSession(ctx context.Context, sessionID, userID uuid.UUID, fn func(t *turn) error) (*TurnResult, error) {
	for attempt := 0; ; attempt++ {
		s, err := c.load(ctx, sessionID, userID)
		if err != nil {
			return nil, err
		}

		t := &turn{session: s, now: c.now().UTC()}
		if err := fn(t); err != nil {
			return nil, err
		}
		if t.err != nil {
			return nil, t.err
		}
		if !t.dirty {
			t.notify(c.observer)
			return t.result(), nil
		}

		s.UpdatedAt = t.now
		err = c.store.Save(ctx, s)
		if err == nil {
			t.notify(c.observer)
			return t.result(), nil
		}

		var conflict *db.SessionConflictError
		if errors.As(err, &conflict) && attempt < c.cfg.ConflictRetries {
			c.observer.ConflictRetried()
			c.logger.Info("retrying after concurrent session update", "session_id", sessionID, "attempt", attempt+1)
			continue
		}
		return nil, fmt.Errorf("failed to save session: %w", err)
	}
}

func (c *Controller) load(ctx context.Context, sessionID, userID uuid.UUID) (*types.ChatSession, error) {
	s, err := c.store.Load(ctx, sessionID)
	if err != nil {
		if errors.Is(err, db.ErrSessionNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to load session: %w", err)
	}
	if s.UserID != userID {
		return nil, db.ErrSessionNotFound
	}
	return s, nil
}

// idle reports whether the session has gone untouched for longer than SessionTTL.
func (c *Controller) idle(t *turn) bool {
	return t.now.Sub(t.session.UpdatedAt) > c.cfg.SessionTTL
}

func (c *Controller) expire(t *turn) {
	c.logger.Info("session expired", "session_id", t.session.ID, "idle", t.now.Sub(t.session.UpdatedAt))
	t.transition(types.StepAbandoned)
	t.say(render(replyExpired, nil))
}

func (c *Controller) applyMessage(ctx context.Context, t *turn, text string) {
	s := t.session

	var presented []types.MentorSuggestion
	if s.Step == types.StepPresenting {
		presented = s.Suggestions
	}

	res, err := c.extractor.Extract(ctx, s.Needs, s.Turns, text, presented)
	t.addTurn(types.SpeakerUser, text)
	if err != nil {
		var exErr *extraction.ExtractionError
		timeout := errors.As(err, &exErr) && exErr.Timeout
		t.record(func(o Observer) { o.ExtractionFailed(timeout) })
		c.logger.Warn("could not read message", "session_id", s.ID, "error", err)
		t.say(render(replyRephrase, nil))
		return
	}

	switch res.Intent {
	case extraction.IntentCancel:
		t.transition(types.StepAbandoned)
		t.say(render(replyCancelled, nil))
		return
	case extraction.IntentAccept:
		if s.Step == types.StepPresenting {
			if sg, ok := resolveSelection(s.Suggestions, res.SelectedMentor); ok {
				c.complete(t, sg)
				return
			}
			t.say(render(replyPickMentor, map[string]string{"Names": mentorNames(s.Suggestions)}))
			return
		}
	}

	changed := !reflect.DeepEqual(s.Needs, res.Needs)
	s.Needs = res.Needs

	if s.Step == types.StepPresenting && !changed {
		t.say(render(replyPresentFollowup, map[string]string{"Names": mentorNames(s.Suggestions)}))
		return
	}
	c.advance(ctx, t)
}

// advance applies the completeness gate and searches when it passes.
func (c *Controller) advance(ctx context.Context, t *turn) {
	s := t.session
	if missing := c.cfg.Completeness.Missing(s.Needs); len(missing) > 0 {
		next := types.StepClarifying
		if s.Needs.IsEmpty() {
			next = types.StepCollecting
		}
		t.transition(next)
		t.say(renderMissing(next, missing))
		return
	}

	t.transition(types.StepReadyToSearch)
	c.search(ctx, t)
}

func (c *Controller) search(ctx context.Context, t *turn) {
	s := t.session
	t.transition(types.StepSearching)

	start := time.Now()
	suggestions, err := c.findMentors(ctx, s.Needs)
	elapsed, found := time.Since(start), len(suggestions)
	t.record(func(o Observer) { o.SearchCompleted(elapsed, found, err) })

	if err != nil {
		c.logger.Warn("mentor search failed", "session_id", s.ID, "error", err)
		t.transition(types.StepClarifying)
		var empty *matching.EmptyCatalogError
		if errors.As(err, &empty) {
			t.say(render(replyNoMentors, nil))
		} else {
			t.say(render(replySearchFailed, nil))
		}
		return
	}

	t.transition(types.StepPresenting)
	s.Suggestions = suggestions
	t.suggestions = suggestions
	t.say(renderPresent(suggestions))
}

// findMentors lists the catalog, narrowed to the requested instrument family when
// enabled, and ranks it. An empty narrowed list falls back to the whole catalog.
func (c *Controller) findMentors(ctx context.Context, needs types.ExtractedUserNeeds) ([]types.MentorSuggestion, error) {
	var mentors []types.MentorProfile
	if filter := c.catalogFilter(needs); !filter.IsEmpty() {
		filtered, err := c.catalog.ListMentors(ctx, filter)
		if err != nil {
			return nil, fmt.Errorf("failed to list mentors: %w", err)
		}
		mentors = filtered
	}
	if len(mentors) == 0 {
		all, err := c.catalog.ListMentors(ctx, types.CatalogFilter{})
		if err != nil {
			return nil, fmt.Errorf("failed to list mentors: %w", err)
		}
		mentors = all
	}
	return c.matcher.Match(needs, mentors, c.cfg.SuggestionLimit)
}

func (c *Controller) catalogFilter(needs types.ExtractedUserNeeds) types.CatalogFilter {
	if !c.cfg.PrefilterByInstrument || needs.Instrument == "" {
		return types.CatalogFilter{}
	}
	instrument := matching.NormalizeInstrument(needs.Instrument)
	if family := matching.InstrumentFamily(instrument); family != "" {
		return types.CatalogFilter{Instruments: matching.FamilyMembers(family)}
	}
	return types.CatalogFilter{Instruments: []string{instrument}}
}

func (c *Controller) complete(t *turn, sg types.MentorSuggestion) {
	t.transition(types.StepCompleted)
	t.suggestions = []types.MentorSuggestion{sg}
	t.say(render(replyCompleted, map[string]string{"Name": sg.Mentor.Name}))
	c.logger.Info("mentor selected", "session_id", t.session.ID, "mentor_id", sg.MentorID)
}

// turn accumulates the changes one request makes to a session
type turn struct {
	session     *types.ChatSession
	now         time.Time
	reply       string
	suggestions []types.MentorSuggestion
	transitions []Transition
	events      []func(Observer)
	dirty       bool
	err         error
}

// record queues an observer event until the turn is saved.
func (t *turn) record(event func(Observer)) {
	t.events = append(t.events, event)
}

func (t *turn) notify(o Observer) {
	for _, event := range t.events {
		event(o)
	}
	for _, tr := range t.transitions {
		o.Transitioned(tr)
	}
}

func (t *turn) transition(to types.MatchingStep) {
	from := t.session.Step
	if from == to || t.err != nil {
		return
	}
	if err := ValidateTransition(from, to); err != nil {
		t.err = err
		return
	}
	if from == types.StepPresenting && to != types.StepCompleted {
		t.session.Suggestions = nil
	}
	t.session.Step = to
	t.transitions = append(t.transitions, Transition{From: from, To: to})
	t.dirty = true
}

func (t *turn) addTurn(speaker types.Speaker, text string) {
	t.session.Turns = append(t.session.Turns, types.Turn{Speaker: speaker, Text: strings.TrimSpace(text), Timestamp: t.now})
	t.dirty = true
}

// say sets the reply and records it as an assistant turn.
func (t *turn) say(reply string) {
	t.reply = reply
	t.addTurn(types.SpeakerAssistant, reply)
}

func (t *turn) result() *TurnResult {
	return &TurnResult{
		Session:     t.session,
		Reply:       t.reply,
		Suggestions: t.suggestions,
		Transitions: t.transitions,
	}
}
