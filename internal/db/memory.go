package db

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/jonathan/mentor-match/internal/types"
)

// MemoryStore keeps sessions and mentors in process memory. Values are cloned on the
// way in and out so callers never share state with the store.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[uuid.UUID]*types.ChatSession
	mentors  map[string]types.MentorProfile
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions: make(map[uuid.UUID]*types.ChatSession),
		mentors:  make(map[string]types.MentorProfile),
	}
}

func (m *MemoryStore) Load(_ context.Context, id uuid.UUID) (*types.ChatSession, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return s.Clone(), nil
}

func (m *MemoryStore) Save(_ context.Context, s *types.ChatSession) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	current, exists := m.sessions[s.ID]
	switch {
	case s.Version == 0 && exists:
		return &SessionConflictError{SessionID: s.ID}
	case s.Version != 0 && (!exists || current.Version != s.Version):
		return &SessionConflictError{SessionID: s.ID, ExpectedVersion: s.Version}
	}

	s.Version++
	m.sessions[s.ID] = s.Clone()
	return nil
}

func (m *MemoryStore) ListMentors(_ context.Context, filter types.CatalogFilter) ([]types.MentorProfile, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	want := make(map[string]bool, len(filter.Instruments))
	for _, inst := range filter.Instruments {
		want[inst] = true
	}

	var out []types.MentorProfile
	for _, mentor := range m.mentors {
		if !filter.IsEmpty() && !teachesAny(&mentor, want) {
			continue
		}
		out = append(out, cloneMentor(mentor))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func teachesAny(mentor *types.MentorProfile, want map[string]bool) bool {
	for _, k := range instrumentKeys(mentor) {
		if want[k] {
			return true
		}
	}
	return false
}

func (m *MemoryStore) UpsertMentors(_ context.Context, mentors []types.MentorProfile) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, mentor := range mentors {
		m.mentors[mentor.ID] = cloneMentor(mentor)
	}
	return nil
}

func (m *MemoryStore) Ping(context.Context) error { return nil }

func (m *MemoryStore) Close() error { return nil }

func cloneMentor(p types.MentorProfile) types.MentorProfile {
	cp := p
	cp.Instruments = append([]string(nil), p.Instruments...)
	cp.Genres = append([]types.Genre(nil), p.Genres...)
	cp.SkillLevels = append([]types.SkillLevel(nil), p.SkillLevels...)
	cp.Availability = append([]types.TimeWindow(nil), p.Availability...)
	cp.Formats = append([]types.LessonFormat(nil), p.Formats...)
	return cp
}
