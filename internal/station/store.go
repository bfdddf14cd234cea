// Package station persists per-station taste profiles, reaction history,
// and the generated-track catalog in SQLite, with the audio files kept on
// disk under the station's directory.
package station

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

// DefaultStation is the station used when none was ever selected.
const DefaultStation = "default"

// Bounded reaction windows kept in the prompt context.
const (
	MaxLikedHistory    = 20
	MaxDislikedHistory = 20
	MaxSkippedHistory  = 10
)

// Store wraps the SQLite taste database plus the on-disk audio layout.
type Store struct {
	db      *sql.DB
	dataDir string
	log     *zap.Logger
	clock   func() time.Time
}

// Open initializes the store at dataDir, creating the database and schema
// as needed.
func Open(ctx context.Context, dataDir string, log *zap.Logger) (*Store, error) {
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}

	path := filepath.Join(dataDir, "pulse.db")
	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=foreign_keys(ON)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	s := &Store{db: db, dataDir: dataDir, log: log, clock: time.Now}
	if err := s.initSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) initSchema(ctx context.Context) error {
	ddl := `
CREATE TABLE IF NOT EXISTS stations (
    name TEXT PRIMARY KEY,
    session_direction TEXT NOT NULL DEFAULT '',
    generation_count INTEGER NOT NULL DEFAULT 0,
    created_at TIMESTAMP NOT NULL
);
CREATE TABLE IF NOT EXISTS notes (
    station TEXT NOT NULL,
    note TEXT NOT NULL,
    created_at TIMESTAMP NOT NULL,
    PRIMARY KEY(station, note),
    FOREIGN KEY(station) REFERENCES stations(name) ON DELETE CASCADE
);
CREATE TABLE IF NOT EXISTS reactions (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    station TEXT NOT NULL,
    signal TEXT NOT NULL,
    tags TEXT NOT NULL,
    bpm INTEGER NOT NULL,
    key_scale TEXT NOT NULL,
    instrumental INTEGER NOT NULL,
    rationale TEXT NOT NULL,
    reacted_at TIMESTAMP NOT NULL,
    FOREIGN KEY(station) REFERENCES stations(name) ON DELETE CASCADE
);
CREATE INDEX IF NOT EXISTS idx_reactions_station_signal ON reactions(station, signal, id);
CREATE TABLE IF NOT EXISTS tracks (
    station TEXT NOT NULL,
    track_id TEXT NOT NULL,
    file TEXT NOT NULL,
    params BLOB NOT NULL,
    reaction TEXT NOT NULL DEFAULT '',
    favorite INTEGER NOT NULL DEFAULT 0,
    created_at TIMESTAMP NOT NULL,
    PRIMARY KEY(station, track_id),
    FOREIGN KEY(station) REFERENCES stations(name) ON DELETE CASCADE
);
CREATE TABLE IF NOT EXISTS current (
    id INTEGER PRIMARY KEY CHECK(id = 1),
    station TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS metrics (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    station TEXT NOT NULL,
    track_id TEXT NOT NULL,
    llm_seconds REAL NOT NULL,
    synth_seconds REAL NOT NULL,
    total_seconds REAL NOT NULL,
    recorded_at TIMESTAMP NOT NULL,
    FOREIGN KEY(station) REFERENCES stations(name) ON DELETE CASCADE
);
`
	_, err := s.db.ExecContext(ctx, ddl)
	return err
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// EnsureStation creates the station row and its track directories if absent.
func (s *Store) EnsureStation(ctx context.Context, name string) error {
	if name == "" {
		return fmt.Errorf("empty station name")
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO stations(name, created_at) VALUES(?, ?) ON CONFLICT(name) DO NOTHING`,
		name, s.clock().UTC())
	if err != nil {
		return fmt.Errorf("ensure station %s: %w", name, err)
	}
	for _, dir := range []string{s.TracksDir(name), s.FavoritesDir(name)} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create station dirs: %w", err)
		}
	}
	return nil
}

// DeleteStation removes the station's rows and its on-disk assets. If it was
// the current station, the selection falls back to the default.
func (s *Store) DeleteStation(ctx context.Context, name string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM stations WHERE name = ?`, name); err != nil {
		return fmt.Errorf("delete station %s: %w", name, err)
	}
	if err := os.RemoveAll(s.StationDir(name)); err != nil {
		s.log.Warn("remove station dir failed", zap.String("station", name), zap.Error(err))
	}
	cur, err := s.CurrentStation(ctx)
	if err == nil && cur == name {
		return s.SetCurrent(ctx, DefaultStation)
	}
	return nil
}

// IsFirstRun reports whether the station has no taste signal at all yet:
// no reactions, no notes, no generated tracks.
func (s *Store) IsFirstRun(ctx context.Context, name string) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `
SELECT (SELECT COUNT(*) FROM reactions WHERE station = ?)
     + (SELECT COUNT(*) FROM notes WHERE station = ?)
     + (SELECT generation_count FROM stations WHERE name = ?)`,
		name, name, name).Scan(&n)
	if err == sql.ErrNoRows {
		return true, nil
	}
	if err != nil {
		return false, fmt.Errorf("first-run check: %w", err)
	}
	return n == 0, nil
}

// ListStations returns all station names sorted alphabetically.
func (s *Store) ListStations(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT name FROM stations ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var n string
		if err := rows.Scan(&n); err != nil {
			return nil, err
		}
		names = append(names, n)
	}
	return names, rows.Err()
}

// CurrentStation returns the selected station, creating and selecting the
// default when none is set.
func (s *Store) CurrentStation(ctx context.Context) (string, error) {
	var name string
	err := s.db.QueryRowContext(ctx, `SELECT station FROM current WHERE id = 1`).Scan(&name)
	if err == sql.ErrNoRows || (err == nil && name == "") {
		if err := s.EnsureStation(ctx, DefaultStation); err != nil {
			return "", err
		}
		if err := s.SetCurrent(ctx, DefaultStation); err != nil {
			return "", err
		}
		return DefaultStation, nil
	}
	if err != nil {
		return "", fmt.Errorf("current station: %w", err)
	}
	return name, nil
}

// SetCurrent selects the station, creating it if new.
func (s *Store) SetCurrent(ctx context.Context, name string) error {
	if err := s.EnsureStation(ctx, name); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO current(id, station) VALUES(1, ?) ON CONFLICT(id) DO UPDATE SET station = excluded.station`,
		name)
	if err != nil {
		return fmt.Errorf("set current station: %w", err)
	}
	return nil
}

// StationDir is the station's root asset directory.
func (s *Store) StationDir(name string) string {
	return filepath.Join(s.dataDir, "radios", name)
}

// TracksDir holds the station's generated audio files.
func (s *Store) TracksDir(name string) string {
	return filepath.Join(s.StationDir(name), "tracks")
}

// FavoritesDir holds copies of tracks the listener saved.
func (s *Store) FavoritesDir(name string) string {
	return filepath.Join(s.StationDir(name), "favorites")
}

var (
	slugDropRe  = regexp.MustCompile(`[^\w\s-]`)
	slugSpaceRe = regexp.MustCompile(`[\s,]+`)
)

// Slugify turns a tags string into a filename-safe slug, capped at 40 runes.
func Slugify(text string) string {
	slug := strings.ToLower(text)
	slug = slugDropRe.ReplaceAllString(slug, "")
	slug = slugSpaceRe.ReplaceAllString(slug, "-")
	slug = strings.Trim(slug, "-")
	if len(slug) > 40 {
		slug = slug[:40]
	}
	return slug
}
