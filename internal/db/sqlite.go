package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jonathan/mentor-match/internal/types"
	_ "modernc.org/sqlite"
)

// SQLiteStore is a Store backed by a single SQLite file, used for local runs and tests.
type SQLiteStore struct {
	db *sql.DB
}

var _ Store = (*SQLiteStore)(nil)

// OpenSQLite opens (or creates) the database at path and applies pending migrations.
// Pass ":memory:" for a throwaway in-memory database.
func OpenSQLite(ctx context.Context, path string) (*SQLiteStore, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create data directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	// one connection avoids "database is locked" and keeps :memory: a single database
	db.SetMaxOpenConns(1)

	for _, pragma := range []string{"PRAGMA busy_timeout = 5000", "PRAGMA journal_mode=WAL"} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to apply %q: %w", pragma, err)
		}
	}

	s := &SQLiteStore{db: db}
	if _, err := s.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// Migrate applies pending SQLite migrations and returns how many ran.
func (s *SQLiteStore) Migrate(ctx context.Context) (int, error) {
	if _, err := s.db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_version (
		version INTEGER PRIMARY KEY,
		applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
	)`); err != nil {
		return 0, fmt.Errorf("failed to create schema_version table: %w", err)
	}

	migrations, err := loadMigrations("sqlite")
	if err != nil {
		return 0, err
	}

	applied := 0
	for _, m := range migrations {
		var exists int
		if err := s.db.QueryRowContext(ctx,
			"SELECT COUNT(*) FROM schema_version WHERE version = ?", m.version,
		).Scan(&exists); err != nil {
			return applied, fmt.Errorf("failed to check migration %d: %w", m.version, err)
		}
		if exists > 0 {
			continue
		}

		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return applied, fmt.Errorf("failed to begin migration %d: %w", m.version, err)
		}
		if _, err := tx.ExecContext(ctx, m.sql); err != nil {
			_ = tx.Rollback()
			return applied, fmt.Errorf("failed to apply migration %s: %w", m.name, err)
		}
		if _, err := tx.ExecContext(ctx, "INSERT INTO schema_version (version) VALUES (?)", m.version); err != nil {
			_ = tx.Rollback()
			return applied, fmt.Errorf("failed to record migration %d: %w", m.version, err)
		}
		if err := tx.Commit(); err != nil {
			return applied, fmt.Errorf("failed to commit migration %d: %w", m.version, err)
		}
		applied++
	}
	return applied, nil
}

// Ping verifies database connectivity.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Load retrieves a session by ID.
func (s *SQLiteStore) Load(ctx context.Context, id uuid.UUID) (*types.ChatSession, error) {
	var sess types.ChatSession
	var rec sessionRecord
	var rawID, rawUser, step string
	var suggestions sql.NullString
	var created, updated int64
	var needs, turns string

	err := s.db.QueryRowContext(ctx,
		`SELECT id, user_id, step, needs, turns, suggestions, version, created_at, updated_at
		 FROM chat_sessions WHERE id = ?`, id.String(),
	).Scan(&rawID, &rawUser, &step, &needs, &turns, &suggestions, &sess.Version, &created, &updated)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	if sess.ID, err = uuid.Parse(rawID); err != nil {
		return nil, fmt.Errorf("failed to parse session id: %w", err)
	}
	if sess.UserID, err = uuid.Parse(rawUser); err != nil {
		return nil, fmt.Errorf("failed to parse user id: %w", err)
	}
	sess.Step = types.MatchingStep(step)
	sess.CreatedAt = time.Unix(0, created).UTC()
	sess.UpdatedAt = time.Unix(0, updated).UTC()

	rec.needs = []byte(needs)
	rec.turns = []byte(turns)
	if suggestions.Valid {
		rec.suggestions = []byte(suggestions.String)
	}
	if err := decodeSession(&sess, &rec); err != nil {
		return nil, err
	}
	return &sess, nil
}

// Save inserts a new session or performs a version-checked update.
func (s *SQLiteStore) Save(ctx context.Context, sess *types.ChatSession) error {
	rec, err := encodeSession(sess)
	if err != nil {
		return err
	}
	var suggestions any
	if rec.suggestions != nil {
		suggestions = string(rec.suggestions)
	}

	if sess.Version == 0 {
		_, err := s.db.ExecContext(ctx,
			`INSERT INTO chat_sessions (id, user_id, step, needs, turns, suggestions, version, created_at, updated_at)
			 VALUES (?, ?, ?, ?, ?, ?, 1, ?, ?)`,
			sess.ID.String(), sess.UserID.String(), string(sess.Step), string(rec.needs), string(rec.turns),
			suggestions, sess.CreatedAt.UnixNano(), sess.UpdatedAt.UnixNano(),
		)
		if err != nil {
			if strings.Contains(err.Error(), "UNIQUE constraint failed") {
				return &SessionConflictError{SessionID: sess.ID, ExpectedVersion: 0}
			}
			return fmt.Errorf("failed to insert session: %w", err)
		}
		sess.Version = 1
		return nil
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE chat_sessions
		 SET step = ?, needs = ?, turns = ?, suggestions = ?, version = version + 1, updated_at = ?
		 WHERE id = ? AND version = ?`,
		string(sess.Step), string(rec.needs), string(rec.turns), suggestions, sess.UpdatedAt.UnixNano(),
		sess.ID.String(), sess.Version,
	)
	if err != nil {
		return fmt.Errorf("failed to update session: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read update result: %w", err)
	}
	if n == 0 {
		return &SessionConflictError{SessionID: sess.ID, ExpectedVersion: sess.Version}
	}
	sess.Version++
	return nil
}

// ListMentors returns the mentors matching filter, ordered by ID.
func (s *SQLiteStore) ListMentors(ctx context.Context, filter types.CatalogFilter) ([]types.MentorProfile, error) {
	query := `SELECT ` + mentorColumns + ` FROM mentors`
	var args []any
	if !filter.IsEmpty() {
		placeholders := make([]string, len(filter.Instruments))
		for i, inst := range filter.Instruments {
			placeholders[i] = "?"
			args = append(args, inst)
		}
		query += ` WHERE EXISTS (SELECT 1 FROM json_each(mentors.instrument_keys) WHERE json_each.value IN (` +
			strings.Join(placeholders, ", ") + `))`
	}
	query += ` ORDER BY id`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list mentors: %w", err)
	}
	defer rows.Close()

	var mentors []types.MentorProfile
	for rows.Next() {
		var m types.MentorProfile
		var instruments, genres, levels, availability, formats string
		if err := rows.Scan(&m.ID, &m.Name, &instruments, &genres, &levels, &availability,
			&m.HourlyRate, &formats, &m.Rating, &m.ReviewCount, &m.Bio); err != nil {
			return nil, fmt.Errorf("failed to scan mentor: %w", err)
		}
		for _, col := range []struct {
			raw  string
			dest any
		}{
			{instruments, &m.Instruments},
			{genres, &m.Genres},
			{levels, &m.SkillLevels},
			{availability, &m.Availability},
			{formats, &m.Formats},
		} {
			if err := json.Unmarshal([]byte(col.raw), col.dest); err != nil {
				return nil, fmt.Errorf("failed to decode mentor %s: %w", m.ID, err)
			}
		}
		mentors = append(mentors, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate mentors: %w", err)
	}
	return mentors, nil
}

// UpsertMentors inserts or replaces mentors in a single transaction.
func (s *SQLiteStore) UpsertMentors(ctx context.Context, mentors []types.MentorProfile) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO mentors (`+mentorColumns+`, instrument_keys, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (id) DO UPDATE SET
		   name = excluded.name, instruments = excluded.instruments, genres = excluded.genres,
		   skill_levels = excluded.skill_levels, availability = excluded.availability,
		   hourly_rate = excluded.hourly_rate, formats = excluded.formats, rating = excluded.rating,
		   review_count = excluded.review_count, bio = excluded.bio,
		   instrument_keys = excluded.instrument_keys, updated_at = excluded.updated_at`)
	if err != nil {
		return fmt.Errorf("failed to prepare upsert: %w", err)
	}
	defer stmt.Close()

	now := time.Now().UnixNano()
	for i := range mentors {
		m := &mentors[i]
		cols, err := marshalColumns(
			nonNilStrings(m.Instruments), genreStrings(m.Genres), levelStrings(m.SkillLevels),
			nonNilWindows(m.Availability), formatStrings(m.Formats), instrumentKeys(m),
		)
		if err != nil {
			return fmt.Errorf("failed to encode mentor %s: %w", m.ID, err)
		}
		if _, err := stmt.ExecContext(ctx,
			m.ID, m.Name, cols[0], cols[1], cols[2], cols[3], m.HourlyRate, cols[4],
			m.Rating, m.ReviewCount, m.Bio, cols[5], now,
		); err != nil {
			return fmt.Errorf("failed to upsert mentor %s: %w", m.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit mentors: %w", err)
	}
	return nil
}

func marshalColumns(values ...any) ([]string, error) {
	out := make([]string, len(values))
	for i, v := range values {
		b, err := json.Marshal(v)
		if err != nil {
			return nil, err
		}
		out[i] = string(b)
	}
	return out, nil
}
