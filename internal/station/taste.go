package station

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/pulsefm/pulse/internal/params"
)

// Reaction signal values stored in the taste history.
const (
	SignalLiked    = "liked"
	SignalDisliked = "disliked"
	SignalSkipped  = "skipped"
)

func signalWindow(signal string) int {
	switch signal {
	case SignalLiked:
		return MaxLikedHistory
	case SignalDisliked:
		return MaxDislikedHistory
	case SignalSkipped:
		return MaxSkippedHistory
	default:
		return 0
	}
}

// ReactionEntry is one remembered reaction, the shape the prompt context
// is built from.
type ReactionEntry struct {
	Signal       string
	Tags         string
	BPM          int
	KeyScale     string
	Instrumental bool
	Rationale    string
	ReactedAt    time.Time
}

// AddNote records a permanent preference. Notes only accumulate; duplicates
// are ignored.
func (s *Store) AddNote(ctx context.Context, station, note string) error {
	note = strings.TrimSpace(note)
	if note == "" {
		return nil
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO notes(station, note, created_at) VALUES(?, ?, ?) ON CONFLICT(station, note) DO NOTHING`,
		station, note, s.clock().UTC())
	if err != nil {
		return fmt.Errorf("add note: %w", err)
	}
	return nil
}

// RemoveNote drops a permanent preference. Removing a note that was never
// recorded is a no-op.
func (s *Store) RemoveNote(ctx context.Context, station, note string) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM notes WHERE station = ? AND note = ?`, station, strings.TrimSpace(note))
	if err != nil {
		return fmt.Errorf("remove note: %w", err)
	}
	return nil
}

// Notes returns the station's permanent preferences in insertion order.
func (s *Store) Notes(ctx context.Context, station string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT note FROM notes WHERE station = ? ORDER BY created_at, note`, station)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var notes []string
	for rows.Next() {
		var n string
		if err := rows.Scan(&n); err != nil {
			return nil, err
		}
		notes = append(notes, n)
	}
	return notes, rows.Err()
}

// AddReaction appends a reaction to the station's history and trims the
// window for that signal. An empty signal is a no-op.
func (s *Store) AddReaction(ctx context.Context, station, signal string, p params.Params) error {
	window := signalWindow(signal)
	if window == 0 {
		return nil
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO reactions(station, signal, tags, bpm, key_scale, instrumental, rationale, reacted_at)
		 VALUES(?, ?, ?, ?, ?, ?, ?, ?)`,
		station, signal, p.Tags, p.BPM, p.KeyScale, p.Instrumental, p.Rationale, s.clock().UTC())
	if err != nil {
		return fmt.Errorf("add reaction: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`DELETE FROM reactions WHERE station = ? AND signal = ? AND id NOT IN (
		   SELECT id FROM reactions WHERE station = ? AND signal = ? ORDER BY id DESC LIMIT ?
		 )`, station, signal, station, signal, window)
	if err != nil {
		return fmt.Errorf("trim reactions: %w", err)
	}
	return nil
}

// Reactions returns up to limit entries for one signal, most recent last.
func (s *Store) Reactions(ctx context.Context, station, signal string, limit int) ([]ReactionEntry, error) {
	if limit <= 0 {
		limit = signalWindow(signal)
	}
	rows, err := s.db.QueryContext(ctx, `
SELECT signal, tags, bpm, key_scale, instrumental, rationale, reacted_at FROM (
    SELECT id, signal, tags, bpm, key_scale, instrumental, rationale, reacted_at
    FROM reactions WHERE station = ? AND signal = ? ORDER BY id DESC LIMIT ?
) ORDER BY id ASC`, station, signal, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []ReactionEntry
	for rows.Next() {
		var e ReactionEntry
		var reacted string
		if err := rows.Scan(&e.Signal, &e.Tags, &e.BPM, &e.KeyScale, &e.Instrumental, &e.Rationale, &reacted); err != nil {
			return nil, err
		}
		if ts, err := time.Parse(time.RFC3339Nano, reacted); err == nil {
			e.ReactedAt = ts
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// SetDirection records the session steering direction. Empty clears it.
func (s *Store) SetDirection(ctx context.Context, station, direction string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE stations SET session_direction = ? WHERE name = ?`, direction, station)
	if err != nil {
		return fmt.Errorf("set direction: %w", err)
	}
	return nil
}

// Direction returns the current session direction, empty when unset.
func (s *Store) Direction(ctx context.Context, station string) (string, error) {
	var d string
	err := s.db.QueryRowContext(ctx,
		`SELECT session_direction FROM stations WHERE name = ?`, station).Scan(&d)
	if err == sql.ErrNoRows {
		return "", nil
	}
	return d, err
}

// GenerationCount returns how many tracks the station has generated.
func (s *Store) GenerationCount(ctx context.Context, station string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT generation_count FROM stations WHERE name = ?`, station).Scan(&n)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	return n, err
}

// PromptContext renders the station's taste profile as the text block fed
// to the parameter generator.
func (s *Store) PromptContext(ctx context.Context, station string) (string, error) {
	lines := []string{"Radio: " + station}

	notes, err := s.Notes(ctx, station)
	if err != nil {
		return "", err
	}
	if len(notes) > 0 {
		lines = append(lines, "User preferences:")
		for _, n := range notes {
			lines = append(lines, "  - "+n)
		}
	}

	liked, err := s.Reactions(ctx, station, SignalLiked, 0)
	if err != nil {
		return "", err
	}
	if len(liked) > 0 {
		lines = append(lines, fmt.Sprintf("Liked tracks (last %d):", len(liked)))
		show := liked
		if len(show) > 5 {
			show = show[len(show)-5:]
		}
		for _, t := range show {
			lines = append(lines, fmt.Sprintf("  - %s | %d BPM | %s", t.Tags, t.BPM, t.KeyScale))
		}
	}

	disliked, err := s.Reactions(ctx, station, SignalDisliked, 0)
	if err != nil {
		return "", err
	}
	if len(disliked) > 0 {
		lines = append(lines, "Disliked tracks (avoid these patterns):")
		show := disliked
		if len(show) > 3 {
			show = show[len(show)-3:]
		}
		for _, t := range show {
			lines = append(lines, "  - "+t.Tags)
		}
	}

	dir, err := s.Direction(ctx, station)
	if err != nil {
		return "", err
	}
	if dir != "" {
		lines = append(lines, "Current direction: "+dir)
	}

	count, err := s.GenerationCount(ctx, station)
	if err != nil {
		return "", err
	}
	lines = append(lines, fmt.Sprintf("Tracks generated so far: %d", count))

	return strings.Join(lines, "\n"), nil
}

// Reset wipes the station's taste profile: reactions, notes, direction,
// and the generation counter. Track rows and audio files survive.
func (s *Store) Reset(ctx context.Context, station string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, q := range []string{
		`DELETE FROM reactions WHERE station = ?`,
		`DELETE FROM notes WHERE station = ?`,
		`UPDATE stations SET session_direction = '', generation_count = 0 WHERE name = ?`,
	} {
		if _, err := tx.ExecContext(ctx, q, station); err != nil {
			return fmt.Errorf("reset station: %w", err)
		}
	}
	return tx.Commit()
}
