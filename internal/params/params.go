// Package params turns a station's taste profile and the listener's latest
// steering text into validated generation parameters for the synthesis
// service, using an LLM with bounded retries and a deterministic fallback.
package params

import (
	"fmt"
	"math/rand/v2"
	"regexp"
	"strings"

	"github.com/pulsefm/pulse/internal/tags"
)

// Service-accepted bounds.
const (
	BPMMin = 60
	BPMMax = 180
)

// InstrumentalLyrics is the lyrics sentinel for instrumental tracks.
const InstrumentalLyrics = "[inst]"

var validTimeSigs = map[int]bool{3: true, 4: true, 6: true}

var keyScaleRe = regexp.MustCompile(`^[A-G][b#]?\s+(Major|Minor)$`)

// Params describes one track to generate. Invariants: BPM within service
// bounds, non-empty tags, lyrics present iff not instrumental.
type Params struct {
	Tags          string `json:"tags"`
	Lyrics        string `json:"lyrics"`
	BPM           int    `json:"bpm"`
	KeyScale      string `json:"key_scale"`
	TimeSignature int    `json:"time_signature"`
	VocalLanguage string `json:"vocal_language"`
	Instrumental  bool   `json:"instrumental"`
	Rationale     string `json:"rationale"`
	Seed          int    `json:"seed"`
	Duration      int    `json:"duration,omitempty"` // target seconds, set by the engine
}

// Result pairs generated params with the warnings accumulated while producing
// them. Callers must surface warnings; they are never fatal.
type Result struct {
	Params   Params
	Warnings []string
}

// validate clamps out-of-range fields, normalizes tags through the whitelist
// pipeline, and enforces the lyrics/instrumental consistency invariant.
// Returns the accumulated warnings; the returned params always satisfy the
// schema.
func validate(p Params) (Params, []string) {
	var warnings []string

	if p.BPM < BPMMin || p.BPM > BPMMax {
		clamped := min(BPMMax, max(BPMMin, p.BPM))
		if p.BPM == 0 {
			clamped = 120
			warnings = append(warnings, "bpm missing, defaulted to 120")
		} else {
			warnings = append(warnings, fmt.Sprintf("bpm %d clamped to %d", p.BPM, clamped))
		}
		p.BPM = clamped
	}

	if !validTimeSigs[p.TimeSignature] {
		if p.TimeSignature != 0 {
			warnings = append(warnings, fmt.Sprintf("time signature %d replaced with 4", p.TimeSignature))
		}
		p.TimeSignature = 4
	}

	if !keyScaleRe.MatchString(strings.TrimSpace(p.KeyScale)) {
		if p.KeyScale != "" {
			warnings = append(warnings, fmt.Sprintf("key %q replaced with A Minor", p.KeyScale))
		}
		p.KeyScale = "A Minor"
	} else {
		p.KeyScale = strings.TrimSpace(p.KeyScale)
	}

	if strings.TrimSpace(p.Tags) == "" {
		warnings = append(warnings, "no tags, defaulted to "+tags.DefaultTags)
		p.Tags = tags.DefaultTags
	} else {
		res := tags.ValidateDetailed(p.Tags)
		for _, d := range res.Dropped {
			warnings = append(warnings, fmt.Sprintf("tag %q dropped", d))
		}
		for _, fm := range res.FuzzyMatched {
			warnings = append(warnings, fmt.Sprintf("tag %q matched to %q", fm[0], fm[1]))
		}
		for _, tr := range res.Truncated {
			warnings = append(warnings, fmt.Sprintf("tag %q over limit", tr))
		}
		p.Tags = res.Tags
	}

	if p.VocalLanguage == "" {
		p.VocalLanguage = "en"
	}
	if p.Rationale == "" {
		p.Rationale = "Evolving the sound"
	}
	if p.Seed == 0 {
		p.Seed = rand.IntN(99999) + 1
	}

	// Lyrics are present exactly when the track is vocal.
	if p.Instrumental {
		p.Lyrics = InstrumentalLyrics
	} else {
		lyrics := strings.TrimSpace(p.Lyrics)
		if lyrics == "" || lyrics == InstrumentalLyrics {
			warnings = append(warnings, "no lyrics for vocal track, placeholder used")
			lyrics = "[Verse 1]\nla la la\n\n[Chorus]\nla la la"
		}
		if len(lyrics) > 1000 {
			lyrics = lyrics[:1000]
		}
		p.Lyrics = lyrics
	}

	return p, warnings
}

// TooSimilar reports whether the model is stuck producing near-identical
// parameters: every track in the recent window shares the key and sits within
// 20 BPM of the candidate.
func TooSimilar(p Params, recent []Params) bool {
	const window = 3
	if len(recent) < window {
		return false
	}
	for _, prev := range recent[len(recent)-window:] {
		if abs(p.BPM-prev.BPM) > 20 || p.KeyScale != prev.KeyScale {
			return false
		}
	}
	return true
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
