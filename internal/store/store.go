package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

var (
	ErrSessionNotFound   = errors.New("session not found")
	ErrSegmentNotFound   = errors.New("segment not found")
	ErrNoRawTranslation  = errors.New("segment has no raw translation")
	ErrInvalidPolishText = errors.New("polished translation is empty")
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS sessions (
	id TEXT PRIMARY KEY,
	created_at INTEGER NOT NULL,
	duration REAL,
	segment_count INTEGER NOT NULL DEFAULT 0,
	mode TEXT NOT NULL,
	origin TEXT NOT NULL DEFAULT 'live',
	input_language TEXT NOT NULL DEFAULT '',
	output_language TEXT NOT NULL DEFAULT '',
	language_a TEXT NOT NULL DEFAULT '',
	language_b TEXT NOT NULL DEFAULT '',
	polishing_status TEXT NOT NULL DEFAULT 'idle',
	polishing_locked INTEGER NOT NULL DEFAULT 0,
	last_polished_at INTEGER,
	last_polished_index INTEGER NOT NULL DEFAULT 0
);
CREATE TABLE IF NOT EXISTS segments (
	id TEXT PRIMARY KEY,
	session_id TEXT NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
	start_time REAL NOT NULL,
	end_time REAL NOT NULL,
	original_text TEXT NOT NULL,
	raw_translation TEXT,
	polished_translation TEXT,
	detected_language TEXT NOT NULL DEFAULT '',
	direction TEXT NOT NULL DEFAULT '',
	created_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS segments_session_start ON segments(session_id, start_time);
`

const (
	sessionColumns = `id, created_at, duration, segment_count, mode, origin, input_language, output_language,
language_a, language_b, polishing_status, polishing_locked, last_polished_at, last_polished_index`

	insertSessionSQL = `INSERT INTO sessions (id, created_at, mode, origin, input_language, output_language, language_a, language_b)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	getSessionSQL        = `SELECT ` + sessionColumns + ` FROM sessions WHERE id = ?`
	listSessionsSQL      = `SELECT ` + sessionColumns + ` FROM sessions ORDER BY created_at DESC LIMIT ?`
	deleteSegmentsSQL    = `DELETE FROM segments WHERE session_id = ?`
	deleteSessionSQL     = `DELETE FROM sessions WHERE id = ?`
	updateDurationSQL    = `UPDATE sessions SET duration = ? WHERE id = ?`
	incrementCountSQL    = `UPDATE sessions SET segment_count = segment_count + 1 WHERE id = ?`
	segmentCountSQL      = `SELECT segment_count FROM sessions WHERE id = ?`
	tryLockSQL           = `UPDATE sessions SET polishing_locked = 1, polishing_status = 'processing' WHERE id = ? AND polishing_locked = 0`
	unlockSQL            = `UPDATE sessions SET polishing_locked = 0, polishing_status = ? WHERE id = ?`
	resetLocksSQL        = `UPDATE sessions SET polishing_locked = 0, polishing_status = 'idle' WHERE polishing_locked = 1`
	markPolishedSQL      = `UPDATE sessions SET last_polished_at = ?, last_polished_index = (SELECT COUNT(*) FROM segments WHERE session_id = ? AND polished_translation IS NOT NULL) WHERE id = ?`
	segmentColumns       = `id, session_id, start_time, end_time, original_text, raw_translation, polished_translation, detected_language, direction, created_at`
	insertSegmentSQL     = `INSERT INTO segments (` + segmentColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	listSegmentsSQL      = `SELECT ` + segmentColumns + ` FROM segments WHERE session_id = ? ORDER BY start_time, rowid`
	updatePolishedSQL    = `UPDATE segments SET polished_translation = ? WHERE id = ? AND raw_translation IS NOT NULL`
	segmentExistsSQL     = `SELECT 1 FROM segments WHERE id = ?`
	defaultListLimit     = 50
	sqliteBusyTimeoutMs  = 5000
	sqliteDSNPragmaParam = "?_pragma=foreign_keys(1)&_pragma=busy_timeout(%d)&_pragma=journal_mode(WAL)"
)

// SQLite is the session and segment store
type SQLite struct {
	db  *sql.DB
	now func() time.Time
}

// Open opens (creating if needed) the database at path and applies the
// schema. ":memory:" gives a private in-memory database.
func Open(ctx context.Context, path string) (*SQLite, error) {
	dsn := ":memory:"
	if path != ":memory:" {
		if dir := filepath.Dir(path); dir != "" {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("create database directory: %w", err)
			}
		}
		dsn = "file:" + path + fmt.Sprintf(sqliteDSNPragmaParam, sqliteBusyTimeoutMs)
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// one writer keeps conditional updates serialised and :memory: shared
	db.SetMaxOpenConns(1)

	if path == ":memory:" {
		if _, err := db.ExecContext(ctx, `PRAGMA foreign_keys = ON`); err != nil {
			db.Close()
			return nil, fmt.Errorf("enable foreign keys: %w", err)
		}
	}
	if _, err := db.ExecContext(ctx, schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	return &SQLite{db: db, now: time.Now}, nil
}

func (s *SQLite) Close() error {
	return s.db.Close()
}

// Ping checks the database is reachable.
func (s *SQLite) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// CreateSession inserts a session, filling ID and CreatedAt when empty.
func (s *SQLite) CreateSession(ctx context.Context, sess *Session) error {
	if sess.ID == "" {
		sess.ID = uuid.NewString()
	}
	if sess.CreatedAt.IsZero() {
		sess.CreatedAt = s.now()
	}
	if sess.Origin == "" {
		sess.Origin = OriginLive
	}
	if sess.PolishingStatus == "" {
		sess.PolishingStatus = PolishIdle
	}

	_, err := s.db.ExecContext(ctx, insertSessionSQL,
		sess.ID,
		sess.CreatedAt.UnixMilli(),
		string(sess.Mode),
		string(sess.Origin),
		sess.InputLanguage,
		sess.OutputLanguage,
		sess.LanguageA,
		sess.LanguageB,
	)
	if err != nil {
		return fmt.Errorf("insert session: %w", err)
	}
	return nil
}

func (s *SQLite) GetSession(ctx context.Context, id string) (Session, error) {
	sess, err := scanSession(s.db.QueryRowContext(ctx, getSessionSQL, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Session{}, ErrSessionNotFound
		}
		return Session{}, fmt.Errorf("get session: %w", err)
	}
	return sess, nil
}

// GetSessionWithSegments returns the session and its segments ordered by start time.
func (s *SQLite) GetSessionWithSegments(ctx context.Context, id string) (Session, []Segment, error) {
	sess, err := s.GetSession(ctx, id)
	if err != nil {
		return Session{}, nil, err
	}

	rows, err := s.db.QueryContext(ctx, listSegmentsSQL, id)
	if err != nil {
		return Session{}, nil, fmt.Errorf("list segments: %w", err)
	}
	defer rows.Close()

	segments := make([]Segment, 0)
	for rows.Next() {
		seg, err := scanSegment(rows)
		if err != nil {
			return Session{}, nil, fmt.Errorf("scan segment: %w", err)
		}
		segments = append(segments, seg)
	}
	if err := rows.Err(); err != nil {
		return Session{}, nil, fmt.Errorf("list segments: %w", err)
	}
	return sess, segments, nil
}

func (s *SQLite) ListSessions(ctx context.Context, limit int) ([]Session, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}

	rows, err := s.db.QueryContext(ctx, listSessionsSQL, limit)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	sessions := make([]Session, 0)
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		sessions = append(sessions, sess)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	return sessions, nil
}

func (s *SQLite) UpdateDuration(ctx context.Context, id string, seconds float64) error {
	return s.execOne(ctx, ErrSessionNotFound, updateDurationSQL, seconds, id)
}

// DeleteSession removes a session and its segments.
func (s *SQLite) DeleteSession(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, deleteSegmentsSQL, id); err != nil {
		return fmt.Errorf("delete segments: %w", err)
	}
	res, err := tx.ExecContext(ctx, deleteSessionSQL, id)
	if err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrSessionNotFound
	}
	return tx.Commit()
}

// CreateSegment inserts a segment, filling ID and CreatedAt when empty.
func (s *SQLite) CreateSegment(ctx context.Context, seg *Segment) error {
	if seg.ID == "" {
		seg.ID = uuid.NewString()
	}
	if seg.CreatedAt.IsZero() {
		seg.CreatedAt = s.now()
	}

	_, err := s.db.ExecContext(ctx, insertSegmentSQL,
		seg.ID,
		seg.SessionID,
		seg.Start,
		seg.End,
		seg.OriginalText,
		nullString(seg.RawTranslation),
		nullString(seg.PolishedTranslation),
		seg.DetectedLanguage,
		string(seg.Direction),
		seg.CreatedAt.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("insert segment: %w", err)
	}
	return nil
}

// UpdateSegmentPolished sets the polished translation. It refuses segments
// without a raw translation so polished never precedes raw.
func (s *SQLite) UpdateSegmentPolished(ctx context.Context, segmentID, text string) error {
	if text == "" {
		return ErrInvalidPolishText
	}
	res, err := s.db.ExecContext(ctx, updatePolishedSQL, text, segmentID)
	if err != nil {
		return fmt.Errorf("update polished: %w", err)
	}
	if n, _ := res.RowsAffected(); n > 0 {
		return nil
	}

	var one int
	err = s.db.QueryRowContext(ctx, segmentExistsSQL, segmentID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrSegmentNotFound
	}
	if err != nil {
		return fmt.Errorf("check segment: %w", err)
	}
	return ErrNoRawTranslation
}

// IncrementSegmentCount bumps segment_count in a single statement.
func (s *SQLite) IncrementSegmentCount(ctx context.Context, id string) error {
	return s.execOne(ctx, ErrSessionNotFound, incrementCountSQL, id)
}

func (s *SQLite) SegmentCount(ctx context.Context, id string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, segmentCountSQL, id).Scan(&n)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrSessionNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("segment count: %w", err)
	}
	return n, nil
}

// TryLockPolishing sets the polishing lock only if it is currently clear.
// It reports false when another holder owns the lock or the session is gone.
func (s *SQLite) TryLockPolishing(ctx context.Context, id string) (bool, error) {
	res, err := s.db.ExecContext(ctx, tryLockSQL, id)
	if err != nil {
		return false, fmt.Errorf("lock polishing: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("lock polishing: %w", err)
	}
	return n == 1, nil
}

// UnlockPolishing clears the lock and records the resulting status.
func (s *SQLite) UnlockPolishing(ctx context.Context, id string, status PolishStatus) error {
	return s.execOne(ctx, ErrSessionNotFound, unlockSQL, string(status), id)
}

// ResetPolishingLocks clears locks left behind by a crashed process.
func (s *SQLite) ResetPolishingLocks(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, resetLocksSQL)
	if err != nil {
		return 0, fmt.Errorf("reset locks: %w", err)
	}
	return res.RowsAffected()
}

// MarkPolished stamps last_polished_at and sets last_polished_index to the
// number of polished segments.
func (s *SQLite) MarkPolished(ctx context.Context, id string, at time.Time) error {
	return s.execOne(ctx, ErrSessionNotFound, markPolishedSQL, at.UnixMilli(), id, id)
}

func (s *SQLite) execOne(ctx context.Context, notFound error, query string, args ...any) error {
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return notFound
	}
	return nil
}

func scanSession(scanner interface{ Scan(dest ...any) error }) (Session, error) {
	var (
		sess           Session
		createdAt      int64
		duration       sql.NullFloat64
		mode, origin   string
		status         string
		locked         int
		lastPolishedAt sql.NullInt64
	)

	if err := scanner.Scan(
		&sess.ID, &createdAt, &duration, &sess.SegmentCount, &mode, &origin,
		&sess.InputLanguage, &sess.OutputLanguage, &sess.LanguageA, &sess.LanguageB,
		&status, &locked, &lastPolishedAt, &sess.LastPolishedIndex,
	); err != nil {
		return Session{}, err
	}

	sess.CreatedAt = time.UnixMilli(createdAt)
	if duration.Valid {
		d := duration.Float64
		sess.Duration = &d
	}
	sess.Mode = Mode(mode)
	sess.Origin = Origin(origin)
	sess.PolishingStatus = PolishStatus(status)
	sess.PolishingLocked = locked != 0
	if lastPolishedAt.Valid {
		t := time.UnixMilli(lastPolishedAt.Int64)
		sess.LastPolishedAt = &t
	}
	return sess, nil
}

func scanSegment(scanner interface{ Scan(dest ...any) error }) (Segment, error) {
	var (
		seg       Segment
		raw       sql.NullString
		polished  sql.NullString
		direction string
		createdAt int64
	)

	if err := scanner.Scan(
		&seg.ID, &seg.SessionID, &seg.Start, &seg.End, &seg.OriginalText,
		&raw, &polished, &seg.DetectedLanguage, &direction, &createdAt,
	); err != nil {
		return Segment{}, err
	}

	if raw.Valid {
		v := raw.String
		seg.RawTranslation = &v
	}
	if polished.Valid {
		v := polished.String
		seg.PolishedTranslation = &v
	}
	seg.Direction = Direction(direction)
	seg.CreatedAt = time.UnixMilli(createdAt)
	return seg, nil
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}
