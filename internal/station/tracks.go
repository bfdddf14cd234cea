package station

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/pulsefm/pulse/internal/params"
)

// Track is one generated track in a station's catalog.
type Track struct {
	ID        string        `json:"id"`
	File      string        `json:"file"`
	Params    params.Params `json:"params"`
	Reaction  string        `json:"reaction,omitempty"`
	Favorite  bool          `json:"favorite"`
	CreatedAt time.Time     `json:"created_at"`
}

// NextTrackID returns the id the next generated track will carry,
// sequential and zero-padded per station.
func (s *Store) NextTrackID(ctx context.Context, station string) (string, error) {
	n, err := s.GenerationCount(ctx, station)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%03d", n+1), nil
}

// AppendTrack records a generated track and bumps the station's
// generation counter.
func (s *Store) AppendTrack(ctx context.Context, station string, t Track) error {
	blob, err := json.Marshal(t.Params)
	if err != nil {
		return fmt.Errorf("encode params: %w", err)
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = s.clock().UTC()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO tracks(station, track_id, file, params, reaction, favorite, created_at)
		 VALUES(?, ?, ?, ?, ?, ?, ?)`,
		station, t.ID, t.File, blob, t.Reaction, t.Favorite, t.CreatedAt); err != nil {
		return fmt.Errorf("append track: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE stations SET generation_count = generation_count + 1 WHERE name = ?`, station); err != nil {
		return fmt.Errorf("bump generation count: %w", err)
	}
	return tx.Commit()
}

// SetTrackReaction records the listener's reaction to a track. A track
// holds at most one reaction; a later one overwrites.
func (s *Store) SetTrackReaction(ctx context.Context, station, trackID, signal string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE tracks SET reaction = ? WHERE station = ? AND track_id = ?`,
		signal, station, trackID)
	if err != nil {
		return fmt.Errorf("set track reaction: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("track %s/%s not found", station, trackID)
	}
	return nil
}

// MarkFavorite flags the track and copies its audio into the station's
// favorites directory.
func (s *Store) MarkFavorite(ctx context.Context, station, trackID string) error {
	var file string
	err := s.db.QueryRowContext(ctx,
		`SELECT file FROM tracks WHERE station = ? AND track_id = ?`, station, trackID).Scan(&file)
	if err == sql.ErrNoRows {
		return fmt.Errorf("track %s/%s not found", station, trackID)
	}
	if err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx,
		`UPDATE tracks SET favorite = 1 WHERE station = ? AND track_id = ?`, station, trackID); err != nil {
		return fmt.Errorf("mark favorite: %w", err)
	}

	src := filepath.Join(s.TracksDir(station), file)
	dst := filepath.Join(s.FavoritesDir(station), file)
	if err := copyFile(src, dst); err != nil {
		s.log.Warn("copy favorite failed", zap.String("track", trackID), zap.Error(err))
	}
	return nil
}

// History returns up to limit tracks, most recent first.
func (s *Store) History(ctx context.Context, station string, limit int) ([]Track, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT track_id, file, params, reaction, favorite, created_at
		 FROM tracks WHERE station = ? ORDER BY CAST(track_id AS INTEGER) DESC LIMIT ?`, station, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tracks []Track
	for rows.Next() {
		var t Track
		var blob []byte
		var created string
		if err := rows.Scan(&t.ID, &t.File, &blob, &t.Reaction, &t.Favorite, &created); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(blob, &t.Params); err != nil {
			s.log.Warn("corrupt track params", zap.String("track", t.ID), zap.Error(err))
			continue
		}
		if ts, err := time.Parse(time.RFC3339Nano, created); err == nil {
			t.CreatedAt = ts
		}
		tracks = append(tracks, t)
	}
	return tracks, rows.Err()
}

// RecentParams returns the parameters of the last n tracks in generation
// order, for anti-repetition checks.
func (s *Store) RecentParams(ctx context.Context, station string, n int) ([]params.Params, error) {
	tracks, err := s.History(ctx, station, n)
	if err != nil {
		return nil, err
	}
	out := make([]params.Params, 0, len(tracks))
	for i := len(tracks) - 1; i >= 0; i-- {
		out = append(out, tracks[i].Params)
	}
	return out, nil
}

// Clean removes the station's track rows and audio files but keeps the
// taste profile intact.
func (s *Store) Clean(ctx context.Context, station string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM tracks WHERE station = ?`, station); err != nil {
		return fmt.Errorf("clean tracks: %w", err)
	}
	for _, dir := range []string{s.TracksDir(station), s.FavoritesDir(station)} {
		if err := os.RemoveAll(dir); err != nil {
			return fmt.Errorf("clean track files: %w", err)
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return nil
}

// TrackPath returns where a track's audio lives given its stored filename.
func (s *Store) TrackPath(station, file string) string {
	return filepath.Join(s.TracksDir(station), file)
}

// DiskFreeMB reports free space on the volume holding the data directory.
func (s *Store) DiskFreeMB() (int64, error) {
	var st syscall.Statfs_t
	if err := syscall.Statfs(s.dataDir, &st); err != nil {
		return 0, fmt.Errorf("statfs %s: %w", s.dataDir, err)
	}
	return int64(st.Bavail) * st.Bsize / (1024 * 1024), nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Sync()
}
