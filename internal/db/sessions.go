package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jonathan/mentor-match/internal/types"
)

// pgUniqueViolation is the SQLSTATE for a duplicate key
const pgUniqueViolation = "23505"

// sessionRecord is the JSON-encoded form of the variable parts of a session
type sessionRecord struct {
	needs       []byte
	turns       []byte
	suggestions []byte
}

func encodeSession(s *types.ChatSession) (*sessionRecord, error) {
	needs, err := json.Marshal(s.Needs)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal needs: %w", err)
	}
	turns := s.Turns
	if turns == nil {
		turns = []types.Turn{}
	}
	turnsJSON, err := json.Marshal(turns)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal turns: %w", err)
	}
	var suggestions []byte
	if s.Suggestions != nil {
		suggestions, err = json.Marshal(s.Suggestions)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal suggestions: %w", err)
		}
	}
	return &sessionRecord{needs: needs, turns: turnsJSON, suggestions: suggestions}, nil
}

func decodeSession(s *types.ChatSession, rec *sessionRecord) error {
	if err := json.Unmarshal(rec.needs, &s.Needs); err != nil {
		return fmt.Errorf("failed to unmarshal needs: %w", err)
	}
	if err := json.Unmarshal(rec.turns, &s.Turns); err != nil {
		return fmt.Errorf("failed to unmarshal turns: %w", err)
	}
	if len(rec.suggestions) > 0 {
		if err := json.Unmarshal(rec.suggestions, &s.Suggestions); err != nil {
			return fmt.Errorf("failed to unmarshal suggestions: %w", err)
		}
	}
	return nil
}

// Load retrieves a session by ID
func (db *DB) Load(ctx context.Context, id uuid.UUID) (*types.ChatSession, error) {
	var s types.ChatSession
	var rec sessionRecord
	var step string

	err := db.pool.QueryRow(ctx,
		`SELECT id, user_id, step, needs, turns, suggestions, version, created_at, updated_at
		 FROM chat_sessions WHERE id = $1`,
		id,
	).Scan(&s.ID, &s.UserID, &step, &rec.needs, &rec.turns, &rec.suggestions, &s.Version, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	s.Step = types.MatchingStep(step)
	if err := decodeSession(&s, &rec); err != nil {
		return nil, err
	}
	return &s, nil
}

// Save inserts a new session or performs a version-checked update
func (db *DB) Save(ctx context.Context, s *types.ChatSession) error {
	rec, err := encodeSession(s)
	if err != nil {
		return err
	}

	if s.Version == 0 {
		_, err := db.pool.Exec(ctx,
			`INSERT INTO chat_sessions (id, user_id, step, needs, turns, suggestions, version, created_at, updated_at)
			 VALUES ($1, $2, $3, $4, $5, $6, 1, $7, $8)`,
			s.ID, s.UserID, string(s.Step), rec.needs, rec.turns, rec.suggestions, s.CreatedAt, s.UpdatedAt,
		)
		if err != nil {
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
				return &SessionConflictError{SessionID: s.ID, ExpectedVersion: 0}
			}
			return fmt.Errorf("failed to insert session: %w", err)
		}
		s.Version = 1
		return nil
	}

	tag, err := db.pool.Exec(ctx,
		`UPDATE chat_sessions
		 SET step = $3, needs = $4, turns = $5, suggestions = $6, version = version + 1, updated_at = $7
		 WHERE id = $1 AND version = $2`,
		s.ID, s.Version, string(s.Step), rec.needs, rec.turns, rec.suggestions, s.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update session: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return &SessionConflictError{SessionID: s.ID, ExpectedVersion: s.Version}
	}
	s.Version++
	return nil
}
