// Package tags normalizes and validates the free-text descriptor tags that
// drive music synthesis. Tags pass a whitelist pipeline: alias resolution,
// fuzzy matching, category limits, and a fixed category ordering
// (genre, mood, instruments, vocal, texture) that the synthesis model expects.
package tags

import (
	"regexp"
	"strings"

	"github.com/adrg/strutil"
	"github.com/adrg/strutil/metrics"
)

// Category limits: min/max tags that survive validation per category.
var categoryLimits = map[string]int{
	"genre":       2,
	"mood":        3,
	"instruments": 4,
	"vocal":       1,
	"texture":     2,
}

const maxTotalTags = 14

// DefaultTags is used when nothing survives validation.
const DefaultTags = "atmospheric, experimental"

var categoryOrder = []string{"genre", "mood", "instruments", "vocal", "texture"}

// fuzzyCutoff matches the original pipeline's 0.88 similarity threshold.
const fuzzyCutoff = 0.88

var allTags = buildTagIndex()

func buildTagIndex() map[string]string {
	idx := make(map[string]string, 400)
	add := func(list []string, cat string) {
		for _, t := range list {
			if _, ok := idx[t]; !ok {
				idx[t] = cat
			}
		}
	}
	add(Genres, "genre")
	add(Moods, "mood")
	add(Instruments, "instruments")
	add(Vocals, "vocal")
	add(VocalFX, "vocal")
	add(Textures, "texture")
	return idx
}

// BPM, key, and tempo words never belong in tags; they have dedicated fields.
var stripPatterns = regexp.MustCompile(
	`(?i)\b\d+\s*bpm\b|\bbpm\b|\btempo\b|\bkey of\b|` +
		`\b[A-G][b#]?\s*(?:major|minor)\b|\bfast tempo\b|\bslow tempo\b`,
)

var jaroWinkler = metrics.NewJaroWinkler()

// Normalize lowercases a single tag, resolves aliases, and fuzzy-matches it
// against the whitelist. Returns the canonical tag and its category, or
// ("", "") if the tag is invalid.
func Normalize(tag string) (string, string) {
	tag = strings.ToLower(strings.TrimSpace(tag))
	if len(tag) < 2 {
		return "", ""
	}
	if stripPatterns.MatchString(tag) {
		return "", ""
	}
	if canonical, ok := Aliases[tag]; ok {
		tag = canonical
	}
	if cat, ok := allTags[tag]; ok {
		return tag, cat
	}

	// Fuzzy match against the whole whitelist
	best, bestScore := "", 0.0
	for candidate := range allTags {
		if score := strutil.Similarity(tag, candidate, jaroWinkler); score > bestScore {
			best, bestScore = candidate, score
		}
	}
	if bestScore >= fuzzyCutoff {
		return best, allTags[best]
	}
	return "", ""
}

// Result carries the validated tag string plus transparency info about what
// the pipeline changed, for surfacing as warnings.
type Result struct {
	Tags         string
	Dropped      []string // tags rejected outright
	FuzzyMatched [][2]string // [original, matched]
	Truncated    []string // tags cut by category or total limits
}

// Validate runs the full pipeline: split, normalize, categorize, resolve
// conflicts, enforce limits, order, rejoin.
func Validate(raw string) string {
	return ValidateDetailed(raw).Tags
}

// ValidateDetailed is Validate with a full account of every change made.
func ValidateDetailed(raw string) Result {
	var res Result
	byCat := make(map[string][]string, len(categoryOrder))
	seen := make(map[string]bool)

	for _, part := range strings.Split(raw, ",") {
		orig := strings.TrimSpace(part)
		if orig == "" {
			continue
		}
		normalized, cat := Normalize(orig)
		if normalized == "" {
			res.Dropped = append(res.Dropped, orig)
			continue
		}
		if seen[normalized] {
			continue
		}
		seen[normalized] = true
		if !strings.EqualFold(normalized, strings.ToLower(orig)) {
			if _, aliased := Aliases[strings.ToLower(strings.TrimSpace(orig))]; !aliased {
				res.FuzzyMatched = append(res.FuzzyMatched, [2]string{orig, normalized})
			}
		}
		byCat[cat] = append(byCat[cat], normalized)
	}

	// "instrumental" excludes every other vocal tag
	if vocals := byCat["vocal"]; len(vocals) > 1 {
		for _, v := range vocals {
			if v == "instrumental" {
				byCat["vocal"] = []string{"instrumental"}
				break
			}
		}
	}

	var ordered []string
	for _, cat := range categoryOrder {
		list := byCat[cat]
		limit := categoryLimits[cat]
		if len(list) > limit {
			res.Truncated = append(res.Truncated, list[limit:]...)
			list = list[:limit]
		}
		ordered = append(ordered, list...)
	}
	if len(ordered) > maxTotalTags {
		res.Truncated = append(res.Truncated, ordered[maxTotalTags:]...)
		ordered = ordered[:maxTotalTags]
	}

	if len(ordered) == 0 {
		res.Tags = DefaultTags
		return res
	}
	res.Tags = strings.Join(ordered, ", ")
	return res
}

// IsGenre reports whether the tag is a whitelisted genre.
func IsGenre(tag string) bool { return allTags[tag] == "genre" }

// IsInstrument reports whether the tag is a whitelisted instrument.
func IsInstrument(tag string) bool { return allTags[tag] == "instruments" }

// IsVocal reports whether the tag is a whitelisted vocal type.
func IsVocal(tag string) bool {
	for _, v := range Vocals {
		if v == tag {
			return true
		}
	}
	return false
}
