// Package lyrics produces line-level timestamps for generated vocal tracks
// so clients can highlight the current line during playback.
package lyrics

import (
	"regexp"
	"strings"
	"time"
)

// Line is one singable lyric line with its playback window in seconds.
type Line struct {
	Text  string  `json:"text"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

var sectionRe = regexp.MustCompile(`^\[.+\]$`)

// ContentLines extracts the singable lines, skipping blank lines and
// [Section] markers.
func ContentLines(raw string) []string {
	var lines []string
	for _, line := range strings.Split(raw, "\n") {
		t := strings.TrimSpace(line)
		if t == "" || sectionRe.MatchString(t) {
			continue
		}
		lines = append(lines, t)
	}
	return lines
}

// Estimate distributes the track duration across the lyric lines in
// proportion to their length. Vocals rarely span the full render, so a
// margin at each end is left unassigned. Returns nil when the lyrics have
// no singable content.
func Estimate(raw string, duration time.Duration) []Line {
	lines := ContentLines(raw)
	if len(lines) == 0 || duration <= 0 {
		return nil
	}

	total := duration.Seconds()
	lead := total * 0.08
	sung := total * 0.84

	weights := make([]float64, len(lines))
	var sum float64
	for i, l := range lines {
		w := float64(len(l))
		if w < 1 {
			w = 1
		}
		weights[i] = w
		sum += w
	}

	out := make([]Line, len(lines))
	at := lead
	for i, l := range lines {
		span := sung * weights[i] / sum
		out[i] = Line{Text: l, Start: round2(at), End: round2(at + span)}
		at += span
	}
	return out
}

func round2(f float64) float64 {
	return float64(int(f*100+0.5)) / 100
}
