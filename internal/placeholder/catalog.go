// Package placeholder implements the Placeholder Catalog: the authoritative,
// durable index of every virtual file/folder entry the projection layer has
// ever shown to the OS. It is backed by a single SQLite database file and a
// single `Placeholder` table, matching the on-disk schema required by
// spec.md §6 so existing catalog files stay readable across versions.
package placeholder

import (
	"context"
	"database/sql"
	"runtime"
	"strings"
	"sync"

	// registers the "sqlite3" driver with database/sql.
	_ "github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"
)

// PathType discriminates the kind of virtual entry a row represents. Values
// are stable across versions — spec.md §3/§6 requires the numeric encoding
// to be preserved for on-disk compatibility.
type PathType uint8

const (
	// File is a virtual file placeholder; the only type that carries a sha.
	File PathType = 0
	// PartialFolder is a folder the projection layer has exposed but not
	// fully enumerated to the OS.
	PartialFolder PathType = 1
	// ExpandedFolder is a folder the projection layer has fully enumerated.
	ExpandedFolder PathType = 2
	// PossibleTombstoneFolder is a folder the OS has signalled for deletion
	// but the projection layer has not yet finalized.
	PossibleTombstoneFolder PathType = 3
)

// IsFolder reports whether t represents a folder variant.
func (t PathType) IsFolder() bool { return t != File }

func (t PathType) String() string {
	switch t {
	case File:
		return "File"
	case PartialFolder:
		return "PartialFolder"
	case ExpandedFolder:
		return "ExpandedFolder"
	case PossibleTombstoneFolder:
		return "PossibleTombstoneFolder"
	default:
		return "Unknown"
	}
}

// Entry is a single row of the Placeholder table.
type Entry struct {
	Path     string
	PathType PathType
	// SHA is a 40-character lowercase hex content fingerprint. Required
	// when PathType == File; nil for every folder variant. Never validated
	// for hex correctness — treated as opaque per spec.md §3.
	SHA *string
}

// PathEqual compares two paths using the host's native case-sensitivity
// semantics (spec.md §9 Open Question: case-normalization is host-native and
// documented here rather than guessed). Paths are always stored verbatim;
// this helper only affects lookup/equality, never what's written to disk.
func PathEqual(a, b string) bool {
	if isCaseInsensitiveHost() {
		return strings.EqualFold(a, b)
	}
	return a == b
}

func isCaseInsensitiveHost() bool {
	return runtime.GOOS == "windows" || runtime.GOOS == "darwin"
}

// Catalog is the durable store. One Catalog wraps one *sql.DB connection
// pool; every exported method acquires a connection from the pool for the
// scope of the call and returns it on every exit path, per spec.md §5.
type Catalog struct {
	db *sql.DB
	mu sync.Mutex // guards schema-creation-on-open only; operations are pool-concurrent
}

// Open opens (creating if missing) the SQLite database at path and ensures
// the Placeholder table exists. Safe to call concurrently for different
// paths; callers should not open the same path twice from one process.
func Open(path string) (*Catalog, error) {
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open placeholder catalog %q", path)
	}
	c := &Catalog{db: db}
	if err := c.ensureSchema(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return c, nil
}

// OpenDB wraps an already-open *sql.DB (e.g. an in-memory database for
// tests) as a Catalog, ensuring the schema exists.
func OpenDB(db *sql.DB) (*Catalog, error) {
	c := &Catalog{db: db}
	if err := c.ensureSchema(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Catalog) ensureSchema() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	const ddl = `CREATE TABLE IF NOT EXISTS Placeholder (
		path TEXT PRIMARY KEY,
		pathType TINYINT NOT NULL,
		sha CHAR(40) NULL
	) WITHOUT ROWID;`
	if _, err := c.db.Exec(ddl); err != nil {
		return errors.Wrap(err, "failed to create Placeholder table")
	}
	return nil
}

// Close releases the underlying connection pool.
func (c *Catalog) Close() error {
	return c.db.Close()
}

// Count returns the exact number of rows at a transactional snapshot.
func (c *Catalog) Count(ctx context.Context) (int64, error) {
	conn, err := c.db.Conn(ctx)
	if err != nil {
		return 0, errors.Wrap(err, "failed to acquire connection")
	}
	defer conn.Close()

	var n int64
	row := conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM Placeholder`)
	if err := row.Scan(&n); err != nil {
		return 0, errors.Wrap(err, "failed to count placeholder rows")
	}
	return n, nil
}

// GetAllEntries performs a single scan, classifying each row by PathType.
// Folder rows always have SHA == nil, regardless of what's stored, per
// spec.md §4.2.
func (c *Catalog) GetAllEntries(ctx context.Context) (files []Entry, folders []Entry, err error) {
	conn, err := c.db.Conn(ctx)
	if err != nil {
		return nil, nil, errors.Wrap(err, "failed to acquire connection")
	}
	defer conn.Close()

	rows, err := conn.QueryContext(ctx, `SELECT path, pathType, sha FROM Placeholder`)
	if err != nil {
		return nil, nil, errors.Wrap(err, "failed to scan placeholder table")
	}
	defer rows.Close()

	for rows.Next() {
		var e Entry
		var pathType int
		var sha sql.NullString
		if err := rows.Scan(&e.Path, &pathType, &sha); err != nil {
			return nil, nil, errors.Wrap(err, "failed to scan placeholder row")
		}
		e.PathType = PathType(pathType)
		if e.PathType == File && sha.Valid {
			v := sha.String
			e.SHA = &v
		} else {
			e.SHA = nil
		}
		if e.PathType.IsFolder() {
			folders = append(folders, e)
		} else {
			files = append(files, e)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, nil, errors.Wrap(err, "error iterating placeholder rows")
	}
	return files, folders, nil
}

// GetAllFilePaths returns the unique set of paths whose PathType is File.
func (c *Catalog) GetAllFilePaths(ctx context.Context) (map[string]struct{}, error) {
	conn, err := c.db.Conn(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to acquire connection")
	}
	defer conn.Close()

	rows, err := conn.QueryContext(ctx, `SELECT path FROM Placeholder WHERE pathType = ?`, int(File))
	if err != nil {
		return nil, errors.Wrap(err, "failed to query file paths")
	}
	defer rows.Close()

	paths := make(map[string]struct{})
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, errors.Wrap(err, "failed to scan file path")
		}
		paths[p] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "error iterating file paths")
	}
	return paths, nil
}

// Add inserts or replaces entry by Path. For folder-typed entries, SHA is
// stored as null regardless of what the caller set.
func (c *Catalog) Add(ctx context.Context, entry Entry) error {
	conn, err := c.db.Conn(ctx)
	if err != nil {
		return errors.Wrap(err, "failed to acquire connection")
	}
	defer conn.Close()

	var sha interface{}
	if entry.PathType == File && entry.SHA != nil {
		sha = *entry.SHA
	} else {
		sha = nil
	}

	_, err = conn.ExecContext(ctx,
		`INSERT INTO Placeholder (path, pathType, sha) VALUES (?, ?, ?)
		 ON CONFLICT(path) DO UPDATE SET pathType = excluded.pathType, sha = excluded.sha`,
		entry.Path, int(entry.PathType), sha)
	if err != nil {
		return errors.Wrapf(err, "failed to add placeholder entry %q", entry.Path)
	}
	return nil
}

// AddFile is a convenience over Add with PathType File.
func (c *Catalog) AddFile(ctx context.Context, path, sha string) error {
	return c.Add(ctx, Entry{Path: path, PathType: File, SHA: &sha})
}

// AddPartialFolder is a convenience over Add for a partial folder.
func (c *Catalog) AddPartialFolder(ctx context.Context, path string) error {
	return c.Add(ctx, Entry{Path: path, PathType: PartialFolder})
}

// AddExpandedFolder is a convenience over Add for an expanded folder.
func (c *Catalog) AddExpandedFolder(ctx context.Context, path string) error {
	return c.Add(ctx, Entry{Path: path, PathType: ExpandedFolder})
}

// AddPossibleTombstoneFolder is a convenience over Add for a tombstone
// candidate folder.
func (c *Catalog) AddPossibleTombstoneFolder(ctx context.Context, path string) error {
	return c.Add(ctx, Entry{Path: path, PathType: PossibleTombstoneFolder})
}

// Remove deletes the row for path; silent if absent.
func (c *Catalog) Remove(ctx context.Context, path string) error {
	conn, err := c.db.Conn(ctx)
	if err != nil {
		return errors.Wrap(err, "failed to acquire connection")
	}
	defer conn.Close()

	if _, err := conn.ExecContext(ctx, `DELETE FROM Placeholder WHERE path = ?`, path); err != nil {
		return errors.Wrapf(err, "failed to remove placeholder entry %q", path)
	}
	return nil
}

// Stats is a read-only summary layered on GetAllEntries (SPEC_FULL.md
// supplemented feature) — not a new operation against the schema.
type Stats struct {
	FileCount              int
	PartialFolderCount     int
	ExpandedFolderCount    int
	PossibleTombstoneCount int
}

// ComputeStats folds GetAllEntries into a Stats summary.
func (c *Catalog) ComputeStats(ctx context.Context) (Stats, error) {
	files, folders, err := c.GetAllEntries(ctx)
	if err != nil {
		return Stats{}, err
	}
	s := Stats{FileCount: len(files)}
	for _, f := range folders {
		switch f.PathType {
		case PartialFolder:
			s.PartialFolderCount++
		case ExpandedFolder:
			s.ExpandedFolderCount++
		case PossibleTombstoneFolder:
			s.PossibleTombstoneCount++
		}
	}
	return s, nil
}
