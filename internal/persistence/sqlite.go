package persistence

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/Iron-Ham/cypher/internal/battle"
	"github.com/Iron-Ham/cypher/internal/persistence/migrations"
	_ "modernc.org/sqlite"
)

// SQLiteStore persists sessions, turns and votes in a SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

func toMillis(t time.Time) int64 {
	return t.UTC().UnixMilli()
}

func fromMillis(v int64) time.Time {
	return time.UnixMilli(v).UTC()
}

// OpenSQLite opens (creating if needed) the database at path and applies
// the embedded migrations.
func OpenSQLite(ctx context.Context, path string) (*SQLiteStore, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("sqlite path is required")
	}
	cleanPath := filepath.Clean(path)
	if err := os.MkdirAll(filepath.Dir(cleanPath), 0755); err != nil {
		return nil, fmt.Errorf("create sqlite directory: %w", err)
	}

	dsn := "file:" + cleanPath + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if err := applyMigrations(ctx, db, migrations.FS); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// Close implements Store.
func (s *SQLiteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// SaveSession implements Store.
func (s *SQLiteStore) SaveSession(ctx context.Context, sess *battle.Session) error {
	record := sess.Clone()
	record.Turns = nil
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}

	var endedAt sql.NullInt64
	if sess.EndedAt != nil {
		endedAt = sql.NullInt64{Int64: toMillis(*sess.EndedAt), Valid: true}
	}

	_, err = s.db.ExecContext(ctx, `
INSERT INTO sessions (id, status, topic, data, created_at, ended_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
    status = excluded.status,
    data = excluded.data,
    ended_at = excluded.ended_at,
    updated_at = excluded.updated_at`,
		sess.ID,
		string(sess.Status),
		sess.Topic,
		string(data),
		toMillis(sess.CreatedAt),
		endedAt,
		toMillis(time.Now()),
	)
	if err != nil {
		return fmt.Errorf("save session %s: %w", sess.ID, err)
	}
	return nil
}

// SaveTurn implements Store.
func (s *SQLiteStore) SaveTurn(ctx context.Context, sessionID string, turn battle.Turn) error {
	content, err := json.Marshal(turn.Content)
	if err != nil {
		return fmt.Errorf("marshal turn content: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
INSERT INTO turns (session_id, turn_index, round_index, participant_id, side, content)
VALUES (?, ?, ?, ?, ?, ?)
ON CONFLICT(session_id, turn_index) DO UPDATE SET content = excluded.content`,
		sessionID, turn.Index, turn.Round, turn.ParticipantID, string(turn.Side), string(content),
	)
	if err != nil {
		return fmt.Errorf("save turn %s/%d: %w", sessionID, turn.Index, err)
	}
	return nil
}

// SaveVote implements Store.
func (s *SQLiteStore) SaveVote(ctx context.Context, v battle.Vote) error {
	castAt := v.CastAt
	if castAt.IsZero() {
		castAt = time.Now()
	}
	_, err := s.db.ExecContext(ctx, `
INSERT OR IGNORE INTO votes (session_id, turn_group_index, voter_id, choice, cast_at)
VALUES (?, ?, ?, ?, ?)`,
		v.SessionID, v.TurnGroupIndex, v.VoterID, string(v.Choice), toMillis(castAt),
	)
	if err != nil {
		return fmt.Errorf("save vote %s: %w", v.SessionID, err)
	}
	return nil
}

// CountVotes returns the stored vote tally for a session.
func (s *SQLiteStore) CountVotes(ctx context.Context, sessionID string) (battle.Tally, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT choice, COUNT(*) FROM votes WHERE session_id = ? GROUP BY choice`, sessionID)
	if err != nil {
		return battle.Tally{}, fmt.Errorf("count votes: %w", err)
	}
	defer rows.Close()

	var tally battle.Tally
	for rows.Next() {
		var choice string
		var n int
		if err := rows.Scan(&choice, &n); err != nil {
			return battle.Tally{}, fmt.Errorf("scan vote count: %w", err)
		}
		switch battle.Side(choice) {
		case battle.SideA:
			tally.A = n
		case battle.SideB:
			tally.B = n
		}
	}
	return tally, rows.Err()
}

// LoadSession implements Store.
func (s *SQLiteStore) LoadSession(ctx context.Context, id string) (*battle.Session, error) {
	var data string
	err := s.db.QueryRowContext(ctx, `SELECT data FROM sessions WHERE id = ?`, id).Scan(&data)
	if err == sql.ErrNoRows {
		return nil, sessionNotFound(id)
	}
	if err != nil {
		return nil, fmt.Errorf("load session %s: %w", id, err)
	}

	var sess battle.Session
	if err := json.Unmarshal([]byte(data), &sess); err != nil {
		return nil, fmt.Errorf("decode session %s: %w", id, err)
	}

	rows, err := s.db.QueryContext(ctx, `
SELECT turn_index, round_index, participant_id, side, content
FROM turns WHERE session_id = ? ORDER BY turn_index`, id)
	if err != nil {
		return nil, fmt.Errorf("load turns %s: %w", id, err)
	}
	defer rows.Close()

	sess.Turns = nil
	for rows.Next() {
		var (
			turn    battle.Turn
			side    string
			content string
		)
		if err := rows.Scan(&turn.Index, &turn.Round, &turn.ParticipantID, &side, &content); err != nil {
			return nil, fmt.Errorf("scan turn: %w", err)
		}
		turn.Side = battle.Side(side)
		if err := json.Unmarshal([]byte(content), &turn.Content); err != nil {
			return nil, fmt.Errorf("decode turn %d: %w", turn.Index, err)
		}
		sess.Turns = append(sess.Turns, turn)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return &sess, nil
}
