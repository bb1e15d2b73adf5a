// Package journal keeps recovery artifacts for comment saves: the original
// comment text is retained here before it is deleted from the kernel, and
// released once the replacement has been appended.
package journal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog"

	// pure-Go driver, registers "sqlite"
	_ "modernc.org/sqlite"
)

// ErrArtifactNotFound is returned when an id has no retained artifact.
var ErrArtifactNotFound = errors.New("artifact not found")

// State of a retained artifact.
const (
	StatePending  = "pending"  // save in progress
	StateStranded = "stranded" // save failed after the original was deleted
)

type Artifact struct {
	ID        int64
	Path      string
	Comment   string
	State     string
	Reason    string
	CreatedAt time.Time
}

// Store is a SQLite-backed artifact journal, safe for concurrent use.
type Store struct {
	db  *sql.DB
	mu  sync.Mutex
	log zerolog.Logger
}

// Open opens or creates the journal at path. ":memory:" is accepted.
func Open(path string, log zerolog.Logger) (*Store, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create journal dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path+"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}
	// one connection so ":memory:" is a single database
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping journal: %w", err)
	}

	s := &Store{db: db, log: log}
	if err := s.initSchema(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}
	log.Debug().Str("path", path).Msg("journal ready")
	return s, nil
}

func (s *Store) initSchema() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS artifacts (
			id         INTEGER PRIMARY KEY AUTOINCREMENT,
			path       TEXT    NOT NULL,
			comment    TEXT    NOT NULL,
			state      TEXT    NOT NULL DEFAULT 'pending',
			reason     TEXT    NOT NULL DEFAULT '',
			created_at INTEGER NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_artifacts_path ON artifacts(path);
	`)
	return err
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Retain stores the original comment of path and returns its artifact id.
func (s *Store) Retain(ctx context.Context, path, comment string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO artifacts (path, comment, state, created_at) VALUES (?, ?, ?, ?)`,
		path, comment, StatePending, time.Now().UnixNano())
	if err != nil {
		return 0, fmt.Errorf("retain artifact: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("retain artifact: %w", err)
	}
	s.log.Debug().Int64("id", id).Str("path", path).Msg("artifact retained")
	return id, nil
}

// Release drops an artifact once it is no longer needed. Releasing an
// unknown id is not an error.
func (s *Store) Release(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.db.ExecContext(ctx, `DELETE FROM artifacts WHERE id = ?`, id); err != nil {
		return fmt.Errorf("release artifact %d: %w", id, err)
	}
	return nil
}

// Strand marks an artifact as the only remaining copy of a comment.
func (s *Store) Strand(ctx context.Context, id int64, reason string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx,
		`UPDATE artifacts SET state = ?, reason = ? WHERE id = ?`, StateStranded, reason, id)
	if err != nil {
		return fmt.Errorf("strand artifact %d: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrArtifactNotFound
	}
	s.log.Error().Int64("id", id).Str("reason", reason).Msg("artifact stranded")
	return nil
}

func (s *Store) Get(ctx context.Context, id int64) (Artifact, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	row := s.db.QueryRowContext(ctx,
		`SELECT id, path, comment, state, reason, created_at FROM artifacts WHERE id = ?`, id)
	a, err := scanArtifact(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Artifact{}, ErrArtifactNotFound
	}
	return a, err
}

// List returns artifacts for path, newest first. An empty path lists all.
func (s *Store) List(ctx context.Context, path string) ([]Artifact, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	q := `SELECT id, path, comment, state, reason, created_at FROM artifacts`
	var args []any
	if path != "" {
		q += ` WHERE path = ?`
		args = append(args, path)
	}
	q += ` ORDER BY id DESC`

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list artifacts: %w", err)
	}
	defer rows.Close()

	var out []Artifact
	for rows.Next() {
		a, err := scanArtifact(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanArtifact(sc scanner) (Artifact, error) {
	var (
		a  Artifact
		ts int64
	)
	if err := sc.Scan(&a.ID, &a.Path, &a.Comment, &a.State, &a.Reason, &ts); err != nil {
		return Artifact{}, err
	}
	a.CreatedAt = time.Unix(0, ts)
	return a, nil
}
