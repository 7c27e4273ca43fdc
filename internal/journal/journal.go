// Package journal keeps a SQLite history of label-file saves.
//
// Label files are named after the catalog position of the scan they were
// produced from, not after the scan itself, so two different scans can end
// up writing the same label file. The journal records every save and
// reports when a save replaces labels that came from a different source.
package journal

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/banshee-data/scanlabel/internal/monitoring"
	"github.com/banshee-data/scanlabel/internal/timeutil"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

var logf = monitoring.Component("journal")

// Entry is one recorded label save.
type Entry struct {
	ID           string    `json:"id"`
	SessionID    string    `json:"session_id"`
	CatalogIndex int       `json:"catalog_index"`
	SourcePath   string    `json:"source_path"`
	LabelPath    string    `json:"label_path"`
	Points       int       `json:"points"`
	Labeled      int       `json:"labeled"`
	SavedAt      time.Time `json:"saved_at"`
}

// Overwrite describes a save that replaced labels produced from another scan.
type Overwrite struct {
	Previous Entry
	Current  Entry
}

func (o *Overwrite) String() string {
	return fmt.Sprintf("%s previously held labels for %s (saved %s), now replaced with labels for %s",
		filepath.Base(o.Current.LabelPath),
		filepath.Base(o.Previous.SourcePath),
		o.Previous.SavedAt.Format(time.RFC3339),
		filepath.Base(o.Current.SourcePath))
}

// Journal is a handle on the journal database. It is safe for concurrent use.
type Journal struct {
	db        *sql.DB
	sessionID string
	clock     timeutil.Clock
}

// Open opens or creates the journal at path and applies pending migrations.
// Every Journal gets a fresh session id.
func Open(path string) (*Journal, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open journal %s: %w", path, err)
	}
	// One connection keeps ":memory:" journals coherent and serialises writers.
	db.SetMaxOpenConns(1)

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, err
	}
	if err := migrateUp(db); err != nil {
		db.Close()
		return nil, err
	}

	j := &Journal{db: db, sessionID: uuid.NewString(), clock: timeutil.RealClock{}}
	logf("opened %s (session %s)", path, j.sessionID)
	return j, nil
}

func applyPragmas(db *sql.DB) error {
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("failed to apply %q: %w", pragma, err)
		}
	}
	return nil
}

func newMigrate(db *sql.DB) (*migrate.Migrate, error) {
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return nil, fmt.Errorf("failed to load embedded migrations: %w", err)
	}
	driver, err := sqlite.WithInstance(db, &sqlite.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to create sqlite driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "sqlite", driver)
	if err != nil {
		return nil, fmt.Errorf("failed to create migrate instance: %w", err)
	}
	m.Log = &migrateLogger{}
	return m, nil
}

func migrateUp(db *sql.DB) error {
	m, err := newMigrate(db)
	if err != nil {
		return err
	}
	// m is not closed: closing it would close db.
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migration up failed: %w", err)
	}
	return nil
}

// SchemaVersion returns the applied migration version.
func (j *Journal) SchemaVersion() (version uint, dirty bool, err error) {
	m, err := newMigrate(j.db)
	if err != nil {
		return 0, false, err
	}
	version, dirty, err = m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, false, nil
	}
	return version, dirty, err
}

type migrateLogger struct{}

func (l *migrateLogger) Printf(format string, v ...interface{}) {
	logf("migrate: "+format, v...)
}

func (l *migrateLogger) Verbose() bool {
	return false
}

// SessionID identifies this process's saves.
func (j *Journal) SessionID() string { return j.sessionID }

// Close closes the database.
func (j *Journal) Close() error { return j.db.Close() }

// Record stores e, filling ID, SessionID and SavedAt. When the label file
// was last written from a different source scan the previous entry is
// returned as an Overwrite.
func (j *Journal) Record(ctx context.Context, e Entry) (Entry, *Overwrite, error) {
	e.ID = uuid.NewString()
	e.SessionID = j.sessionID
	if e.SavedAt.IsZero() {
		e.SavedAt = j.clock.Now()
	}

	prev, found, err := j.Last(ctx, e.LabelPath)
	if err != nil {
		return Entry{}, nil, err
	}

	_, err = j.db.ExecContext(ctx, `
		INSERT INTO label_commits (
			commit_id, session_id, catalog_index, source_path, label_path,
			points, labeled, saved_at_ns
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.SessionID, e.CatalogIndex, e.SourcePath, e.LabelPath,
		e.Points, e.Labeled, e.SavedAt.UnixNano())
	if err != nil {
		return Entry{}, nil, fmt.Errorf("failed to record label commit: %w", err)
	}

	if found && prev.SourcePath != e.SourcePath {
		ow := &Overwrite{Previous: prev, Current: e}
		logf("overwrite: %s", ow)
		return e, ow, nil
	}
	return e, nil, nil
}

const selectColumns = `commit_id, session_id, catalog_index, source_path, label_path,
	points, labeled, saved_at_ns`

func scanEntry(row interface{ Scan(...any) error }) (Entry, error) {
	var (
		e  Entry
		ns int64
	)
	err := row.Scan(&e.ID, &e.SessionID, &e.CatalogIndex, &e.SourcePath, &e.LabelPath,
		&e.Points, &e.Labeled, &ns)
	if err != nil {
		return Entry{}, err
	}
	e.SavedAt = time.Unix(0, ns).UTC()
	return e, nil
}

// Last returns the most recent entry that wrote labelPath.
func (j *Journal) Last(ctx context.Context, labelPath string) (Entry, bool, error) {
	row := j.db.QueryRowContext(ctx, `SELECT `+selectColumns+`
		FROM label_commits
		WHERE label_path = ?
		ORDER BY saved_at_ns DESC, rowid DESC
		LIMIT 1`, labelPath)
	e, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Entry{}, false, nil
	}
	if err != nil {
		return Entry{}, false, fmt.Errorf("failed to query last commit for %s: %w", labelPath, err)
	}
	return e, true, nil
}

// List returns up to limit entries, newest first. limit <= 0 returns all.
func (j *Journal) List(ctx context.Context, limit int) ([]Entry, error) {
	query := `SELECT ` + selectColumns + ` FROM label_commits ORDER BY saved_at_ns DESC, rowid DESC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := j.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list label commits: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan label commit: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// Count returns the number of recorded saves.
func (j *Journal) Count(ctx context.Context) (int, error) {
	var n int
	if err := j.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM label_commits`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count label commits: %w", err)
	}
	return n, nil
}
