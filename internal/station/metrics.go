package station

import (
	"context"
	"fmt"
	"time"
)

// Timing captures how long one generation cycle spent in each phase.
type Timing struct {
	TrackID string
	LLM     time.Duration
	Synth   time.Duration
	Total   time.Duration
}

// TimingStats summarizes a station's generation timings.
type TimingStats struct {
	Count    int     `json:"count"`
	AvgLLM   float64 `json:"avg_llm_seconds"`
	AvgSynth float64 `json:"avg_synth_seconds"`
	AvgTotal float64 `json:"avg_total_seconds"`
	MaxTotal float64 `json:"max_total_seconds"`
}

// RecordTiming stores the phase timings for one generated track.
func (s *Store) RecordTiming(ctx context.Context, station string, t Timing) error {
	_, err := s.db.ExecContext(ctx, `
INSERT INTO metrics(station, track_id, llm_seconds, synth_seconds, total_seconds, recorded_at)
VALUES(?, ?, ?, ?, ?, ?)`,
		station, t.TrackID, t.LLM.Seconds(), t.Synth.Seconds(), t.Total.Seconds(),
		s.clock().UTC())
	if err != nil {
		return fmt.Errorf("record timing: %w", err)
	}
	return nil
}

// GenerationStats aggregates the station's recorded timings.
func (s *Store) GenerationStats(ctx context.Context, station string) (TimingStats, error) {
	var st TimingStats
	err := s.db.QueryRowContext(ctx, `
SELECT COUNT(*),
       COALESCE(AVG(llm_seconds), 0),
       COALESCE(AVG(synth_seconds), 0),
       COALESCE(AVG(total_seconds), 0),
       COALESCE(MAX(total_seconds), 0)
FROM metrics WHERE station = ?`, station).Scan(
		&st.Count, &st.AvgLLM, &st.AvgSynth, &st.AvgTotal, &st.MaxTotal)
	if err != nil {
		return TimingStats{}, fmt.Errorf("generation stats: %w", err)
	}
	return st, nil
}
