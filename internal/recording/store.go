// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package recording stores raw orientation samples in SQLite so sessions
// can be replayed later through the same pipeline.
package recording

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	msqlite "modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"

	"github.com/relabs-tech/photosphere/internal/orientation"
)

//go:embed schema.sql
var schema string

var (
	// ErrDuplicate is returned when (session, seq) was already recorded.
	ErrDuplicate = errors.New("sample already recorded")
	// ErrUnknownSession is returned by Replay for a session with no samples.
	ErrUnknownSession = errors.New("unknown recording session")
)

// Store persists samples in SQLite.
type Store struct {
	sqlDB *sql.DB
}

// SessionInfo summarises one recorded session.
type SessionInfo struct {
	Name    string    `json:"name"`
	Samples int       `json:"samples"`
	First   time.Time `json:"first"`
	Last    time.Time `json:"last"`
}

// Open opens or creates the database at path and applies the schema.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("recording path is required")
	}
	dsn := filepath.Clean(path) + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if _, err := sqlDB.Exec(schema); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &Store{sqlDB: sqlDB}, nil
}

// Close closes the SQLite handle.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

// Append records one sample. Absent fields are stored as NULL.
func (s *Store) Append(ctx context.Context, session string, seq int64, at time.Time, sample orientation.RawSample) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	session = sessionName(session)
	if session == "" {
		return fmt.Errorf("session name is required")
	}
	_, err := s.sqlDB.ExecContext(ctx,
		`INSERT INTO samples (session, seq, at_ns, alpha, beta, gamma) VALUES (?, ?, ?, ?, ?, ?)`,
		session, seq, at.UnixNano(),
		nullable(sample.Alpha), nullable(sample.Beta), nullable(sample.Gamma),
	)
	if err != nil {
		if isPrimaryKeyViolation(err) {
			return fmt.Errorf("%s/%d: %w", session, seq, ErrDuplicate)
		}
		return fmt.Errorf("append sample: %w", err)
	}
	return nil
}

// Sessions lists every recorded session ordered by name.
func (s *Store) Sessions(ctx context.Context) ([]SessionInfo, error) {
	rows, err := s.sqlDB.QueryContext(ctx,
		`SELECT session, COUNT(*), MIN(at_ns), MAX(at_ns) FROM samples GROUP BY session ORDER BY session`)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var out []SessionInfo
	for rows.Next() {
		var info SessionInfo
		var first, last int64
		if err := rows.Scan(&info.Name, &info.Samples, &first, &last); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		info.First = time.Unix(0, first).UTC()
		info.Last = time.Unix(0, last).UTC()
		out = append(out, info)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	return out, nil
}

// NextSeq returns one past the highest seq recorded for session, so a
// recorder can resume an existing session.
func (s *Store) NextSeq(ctx context.Context, session string) (int64, error) {
	var last sql.NullInt64
	err := s.sqlDB.QueryRowContext(ctx,
		`SELECT MAX(seq) FROM samples WHERE session = ?`, sessionName(session)).Scan(&last)
	if err != nil {
		return 0, fmt.Errorf("next seq: %w", err)
	}
	if !last.Valid {
		return 0, nil
	}
	return last.Int64 + 1, nil
}

type recorded struct {
	seq    int64
	at     time.Time
	sample orientation.RawSample
}

func (s *Store) load(ctx context.Context, session string) ([]recorded, error) {
	session = sessionName(session)
	rows, err := s.sqlDB.QueryContext(ctx,
		`SELECT seq, at_ns, alpha, beta, gamma FROM samples WHERE session = ? ORDER BY seq`, session)
	if err != nil {
		return nil, fmt.Errorf("load session %s: %w", session, err)
	}
	defer rows.Close()

	var out []recorded
	for rows.Next() {
		var r recorded
		var atNS int64
		var alpha, beta, gamma sql.NullFloat64
		if err := rows.Scan(&r.seq, &atNS, &alpha, &beta, &gamma); err != nil {
			return nil, fmt.Errorf("scan sample: %w", err)
		}
		r.at = time.Unix(0, atNS).UTC()
		r.sample = orientation.RawSample{
			Alpha: fromNullable(alpha),
			Beta:  fromNullable(beta),
			Gamma: fromNullable(gamma),
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("load session %s: %w", session, err)
	}
	return out, nil
}

// sessionName is the stored form of a session name.
func sessionName(name string) string {
	return strings.TrimSpace(name)
}

func nullable(p *float64) sql.NullFloat64 {
	if p == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *p, Valid: true}
}

func fromNullable(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}

func isPrimaryKeyViolation(err error) bool {
	var sqliteErr *msqlite.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() {
		case sqlite3lib.SQLITE_CONSTRAINT_PRIMARYKEY, sqlite3lib.SQLITE_CONSTRAINT_UNIQUE:
			return true
		}
	}
	return strings.Contains(strings.ToLower(err.Error()), "unique constraint failed")
}
