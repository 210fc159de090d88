package db

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jonathan/mentor-match/internal/matching"
	"github.com/jonathan/mentor-match/internal/types"
)

const mentorColumns = `id, name, instruments, genres, skill_levels, availability, hourly_rate, formats, rating, review_count, bio`

// instrumentKeys returns the canonical instrument names a mentor is indexed under
func instrumentKeys(m *types.MentorProfile) []string {
	keys := make([]string, 0, len(m.Instruments))
	seen := make(map[string]bool, len(m.Instruments))
	for _, inst := range m.Instruments {
		k := matching.NormalizeInstrument(inst)
		if k != "" && !seen[k] {
			seen[k] = true
			keys = append(keys, k)
		}
	}
	return keys
}

// ListMentors returns the mentors matching filter, ordered by ID
func (db *DB) ListMentors(ctx context.Context, filter types.CatalogFilter) ([]types.MentorProfile, error) {
	query := `SELECT ` + mentorColumns + ` FROM mentors`
	var args []any
	if !filter.IsEmpty() {
		query += ` WHERE instrument_keys && $1::text[]`
		args = append(args, filter.Instruments)
	}
	query += ` ORDER BY id`

	rows, err := db.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list mentors: %w", err)
	}
	defer rows.Close()

	var mentors []types.MentorProfile
	for rows.Next() {
		m, err := scanMentor(rows)
		if err != nil {
			return nil, err
		}
		mentors = append(mentors, *m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate mentors: %w", err)
	}
	return mentors, nil
}

func scanMentor(rows pgx.Rows) (*types.MentorProfile, error) {
	var m types.MentorProfile
	var genres, levels, formats []string
	var availability []byte

	if err := rows.Scan(&m.ID, &m.Name, &m.Instruments, &genres, &levels, &availability,
		&m.HourlyRate, &formats, &m.Rating, &m.ReviewCount, &m.Bio); err != nil {
		return nil, fmt.Errorf("failed to scan mentor: %w", err)
	}
	if err := json.Unmarshal(availability, &m.Availability); err != nil {
		return nil, fmt.Errorf("failed to unmarshal availability for mentor %s: %w", m.ID, err)
	}
	for _, g := range genres {
		m.Genres = append(m.Genres, types.Genre(g))
	}
	for _, l := range levels {
		m.SkillLevels = append(m.SkillLevels, types.SkillLevel(l))
	}
	for _, f := range formats {
		m.Formats = append(m.Formats, types.LessonFormat(f))
	}
	return &m, nil
}

// UpsertMentors inserts or replaces mentors in a single transaction
func (db *DB) UpsertMentors(ctx context.Context, mentors []types.MentorProfile) error {
	tx, err := db.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	batch := &pgx.Batch{}
	for i := range mentors {
		m := &mentors[i]
		availability, err := json.Marshal(nonNilWindows(m.Availability))
		if err != nil {
			return fmt.Errorf("failed to marshal availability for mentor %s: %w", m.ID, err)
		}
		batch.Queue(
			`INSERT INTO mentors (`+mentorColumns+`, instrument_keys, updated_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, NOW())
			 ON CONFLICT (id) DO UPDATE SET
			   name = EXCLUDED.name, instruments = EXCLUDED.instruments, genres = EXCLUDED.genres,
			   skill_levels = EXCLUDED.skill_levels, availability = EXCLUDED.availability,
			   hourly_rate = EXCLUDED.hourly_rate, formats = EXCLUDED.formats, rating = EXCLUDED.rating,
			   review_count = EXCLUDED.review_count, bio = EXCLUDED.bio,
			   instrument_keys = EXCLUDED.instrument_keys, updated_at = NOW()`,
			m.ID, m.Name, nonNilStrings(m.Instruments), genreStrings(m.Genres), levelStrings(m.SkillLevels),
			availability, m.HourlyRate, formatStrings(m.Formats), m.Rating, m.ReviewCount, m.Bio,
			instrumentKeys(m),
		)
	}

	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("failed to upsert mentors: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit mentors: %w", err)
	}
	return nil
}

func nonNilStrings(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func nonNilWindows(w []types.TimeWindow) []types.TimeWindow {
	if w == nil {
		return []types.TimeWindow{}
	}
	return w
}

func genreStrings(gs []types.Genre) []string {
	out := make([]string, len(gs))
	for i, g := range gs {
		out[i] = string(g)
	}
	return out
}

func levelStrings(ls []types.SkillLevel) []string {
	out := make([]string, len(ls))
	for i, l := range ls {
		out[i] = string(l)
	}
	return out
}

func formatStrings(fs []types.LessonFormat) []string {
	out := make([]string, len(fs))
	for i, f := range fs {
		out[i] = string(f)
	}
	return out
}
