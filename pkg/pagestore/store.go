// Package pagestore keeps page documents and their revision history in
// SQLite. Saving an edit that was computed against an older version merges
// it onto the current one.
package pagestore

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

	"github.com/Felixzink96/UnicornStudio-sub002/pkg/patch"
	"github.com/Felixzink96/UnicornStudio-sub002/pkg/utils"
)

var (
	ErrNotFound = errors.New("page not found")
	// ErrConflict means the page changed since the edit's base version and
	// the edit no longer applies to it.
	ErrConflict = errors.New("page changed and the edit could not be merged")
)

const schema = `
CREATE TABLE IF NOT EXISTS pages (
	id         TEXT PRIMARY KEY,
	document   TEXT NOT NULL,
	revision   INTEGER NOT NULL,
	updated_at INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS revisions (
	id         TEXT PRIMARY KEY,
	page_id    TEXT NOT NULL REFERENCES pages(id) ON DELETE CASCADE,
	revision   INTEGER NOT NULL,
	document   TEXT NOT NULL,
	note       TEXT NOT NULL DEFAULT '',
	merged     INTEGER NOT NULL DEFAULT 0,
	created_at INTEGER NOT NULL,
	UNIQUE (page_id, revision)
);
`

var pragmas = []string{
	"PRAGMA foreign_keys=ON",
	"PRAGMA journal_mode=WAL",
	"PRAGMA busy_timeout=10000",
	"PRAGMA synchronous=NORMAL",
}

// Page is the current version of a page.
type Page struct {
	ID        string    `json:"id"`
	Document  string    `json:"document"`
	Revision  int64     `json:"revision"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Revision is one stored version of a page.
type Revision struct {
	ID        string    `json:"id"`
	PageID    string    `json:"page_id"`
	Revision  int64     `json:"revision"`
	Document  string    `json:"document"`
	Note      string    `json:"note,omitempty"`
	Merged    bool      `json:"merged"`
	CreatedAt time.Time `json:"created_at"`
}

// Store is a page database.
type Store struct {
	db           *sql.DB
	maxRevisions int
	logger       *utils.Logger
	now          func() time.Time
}

// Option customises Open.
type Option func(*Store)

// WithMaxRevisions bounds the history kept per page. 0 keeps everything.
func WithMaxRevisions(n int) Option { return func(s *Store) { s.maxRevisions = n } }

// WithLogger logs saves and conflicts to l.
func WithLogger(l *utils.Logger) Option { return func(s *Store) { s.logger = l } }

// Open opens or creates the database at path.
func Open(path string, opts ...Option) (*Store, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("pagestore: mkdir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("pagestore: open: %w", err)
	}
	// one writer; also keeps :memory: on a single connection
	db.SetMaxOpenConns(1)

	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("pagestore: %s: %w", p, err)
		}
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("pagestore: schema: %w", err)
	}

	s := &Store{db: db, now: time.Now}
	for _, o := range opts {
		o(s)
	}
	return s, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Get returns the current version of a page.
func (s *Store) Get(ctx context.Context, id string) (Page, error) {
	p := Page{ID: id}
	var updated int64
	err := s.db.QueryRowContext(ctx,
		`SELECT document, revision, updated_at FROM pages WHERE id = ?`, id,
	).Scan(&p.Document, &p.Revision, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return Page{}, ErrNotFound
	}
	if err != nil {
		return Page{}, fmt.Errorf("pagestore: get %s: %w", id, err)
	}
	p.UpdatedAt = time.UnixMilli(updated)
	return p, nil
}

// Save stores proposed as the new version of page id. base is the document
// proposed was computed from; when the stored page has moved on since, the
// changes from base to proposed are merged onto it, and ErrConflict is
// returned if they no longer apply. A page that does not exist yet is
// created.
func (s *Store) Save(ctx context.Context, id, base, proposed, note string) (Page, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Page{}, fmt.Errorf("pagestore: begin: %w", err)
	}
	defer tx.Rollback()

	var current string
	var rev int64
	err = tx.QueryRowContext(ctx, `SELECT document, revision FROM pages WHERE id = ?`, id).Scan(&current, &rev)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		current = base
	case err != nil:
		return Page{}, fmt.Errorf("pagestore: read %s: %w", id, err)
	}

	doc, merged := proposed, false
	if current != base {
		doc, err = patch.Merge(base, current, proposed)
		if err != nil {
			s.log("save", fmt.Sprintf("page=%s conflict at revision %d", id, rev))
			return Page{}, fmt.Errorf("%w: %s at revision %d", ErrConflict, id, rev)
		}
		merged = true
	}

	now := s.now()
	p := Page{ID: id, Document: doc, Revision: rev + 1, UpdatedAt: time.UnixMilli(now.UnixMilli())}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO pages (id, document, revision, updated_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET document = excluded.document,
			revision = excluded.revision, updated_at = excluded.updated_at`,
		id, doc, p.Revision, now.UnixMilli()); err != nil {
		return Page{}, fmt.Errorf("pagestore: write %s: %w", id, err)
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO revisions (id, page_id, revision, document, note, merged, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		uuid.NewString(), id, p.Revision, doc, note, merged, now.UnixMilli()); err != nil {
		return Page{}, fmt.Errorf("pagestore: record revision of %s: %w", id, err)
	}
	if s.maxRevisions > 0 {
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM revisions WHERE page_id = ? AND revision <= ?`,
			id, p.Revision-int64(s.maxRevisions)); err != nil {
			return Page{}, fmt.Errorf("pagestore: prune %s: %w", id, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return Page{}, fmt.Errorf("pagestore: commit: %w", err)
	}
	s.log("save", fmt.Sprintf("page=%s revision=%d merged=%t", id, p.Revision, merged))
	return p, nil
}

// History returns up to limit revisions of a page, newest first. limit <= 0
// means all of them.
func (s *Store) History(ctx context.Context, id string, limit int) ([]Revision, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, revision, document, note, merged, created_at FROM revisions
		WHERE page_id = ? ORDER BY revision DESC LIMIT ?`, id, limit)
	if err != nil {
		return nil, fmt.Errorf("pagestore: history %s: %w", id, err)
	}
	defer rows.Close()

	var out []Revision
	for rows.Next() {
		r := Revision{PageID: id}
		var created int64
		if err := rows.Scan(&r.ID, &r.Revision, &r.Document, &r.Note, &r.Merged, &created); err != nil {
			return nil, fmt.Errorf("pagestore: scan revision: %w", err)
		}
		r.CreatedAt = time.UnixMilli(created)
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("pagestore: history %s: %w", id, err)
	}
	if len(out) == 0 {
		if _, err := s.Get(ctx, id); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// Restore makes an old revision current again, as a new revision.
func (s *Store) Restore(ctx context.Context, id string, revision int64) (Page, error) {
	var doc string
	err := s.db.QueryRowContext(ctx,
		`SELECT document FROM revisions WHERE page_id = ? AND revision = ?`, id, revision,
	).Scan(&doc)
	if errors.Is(err, sql.ErrNoRows) {
		return Page{}, ErrNotFound
	}
	if err != nil {
		return Page{}, fmt.Errorf("pagestore: read revision %d of %s: %w", revision, id, err)
	}
	cur, err := s.Get(ctx, id)
	if err != nil {
		return Page{}, err
	}
	return s.Save(ctx, id, cur.Document, doc, fmt.Sprintf("restore revision %d", revision))
}

func (s *Store) log(op, details string) {
	if s.logger != nil {
		s.logger.LogOperation(op, details)
	}
}
