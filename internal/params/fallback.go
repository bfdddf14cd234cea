package params

import (
	"regexp"
	"sort"
	"strings"

	"github.com/pulsefm/pulse/internal/tags"
)

// Whitelists scanned longest keyword first so "indie rock" wins over "rock".
// Equal lengths break alphabetically to keep the scan order stable.
var (
	genresByLength      = longestFirst(tags.Genres)
	moodsByLength       = longestFirst(tags.Moods)
	instrumentsByLength = longestFirst(tags.Instruments)
)

func longestFirst(list []string) []string {
	out := append([]string(nil), list...)
	sort.SliceStable(out, func(i, j int) bool {
		if len(out[i]) != len(out[j]) {
			return len(out[i]) > len(out[j])
		}
		return out[i] < out[j]
	})
	return out
}

// moodAliases catch mood stems the whitelist itself cannot word-match
// ("chill", "melancho..."). Checked in order, first hit wins.
var moodAliases = []struct{ stem, mood string }{
	{"melancho", "melancholic"},
	{"nostalg", "nostalgic"},
	{"chill", "peaceful"},
	{"relax", "relaxed"},
	{"sleep", "dreamy"},
	{"dream", "dreamy"},
	{"happy", "uplifting"},
	{"energy", "energetic"},
	{"focus", "hypnotic"},
	{"groove", "groovy"},
	{"dance", "groovy"},
}

var moodInstruments = map[string]string{
	"peaceful":    "piano, synth pad, strings",
	"relaxed":     "piano, synth pad, strings",
	"dreamy":      "synth pad, electric guitar, piano",
	"melancholic": "piano, strings, acoustic guitar",
	"uplifting":   "acoustic guitar, piano, drums",
	"energetic":   "electric guitar, drums, synth bass",
	"dark":        "synth bass, drums, synth pad",
	"nostalgic":   "electric guitar, rhodes, drums",
	"triumphant":  "strings, horns, drums",
	"intense":     "electric guitar, drums, bass guitar",
	"hypnotic":    "synth pad, synth bass, hi-hat",
	"groovy":      "synth bass, drums, electric guitar",
	"romantic":    "piano, strings, acoustic guitar",
}

// Tempo hints per genre, scanned in order; first matched genre decides.
var genreBPM = []struct {
	genre string
	bpm   int
}{
	{"drum and bass", 172},
	{"deep house", 124},
	{"classical", 80},
	{"synth pop", 110},
	{"hip hop", 90},
	{"ambient", 72},
	{"country", 104},
	{"techno", 130},
	{"reggae", 78},
	{"house", 124},
	{"metal", 140},
	{"blues", 84},
	{"lo-fi", 80},
	{"jazz", 92},
	{"trap", 140},
	{"folk", 100},
	{"funk", 108},
	{"rock", 120},
	{"soul", 96},
	{"r&b", 94},
	{"pop", 116},
}

const fallbackBaseKey = "A Minor"

var (
	slowerRe = regexp.MustCompile(`(?i)\b(slower|slow it|calmer|calm it|softer|chill it|wind down)\b`)
	fasterRe = regexp.MustCompile(`(?i)\b(faster|speed|more energy|energetic|pump|upbeat|harder)\b`)
)

// Fallback maps the steering text onto the whitelists when inference is
// unavailable. Deterministic: the same request always yields the same
// params. Gaps the steering leaves open are filled from the station's
// last-used params before any global default applies. Always schema-valid.
func Fallback(req Request) Params {
	lower := strings.ToLower(req.Steering)

	var genres []string
	for _, g := range genresByLength {
		if wordMatch(lower, g) {
			genres = append(genres, g)
			if len(genres) == 2 {
				break
			}
		}
	}

	var moods []string
	for _, a := range moodAliases {
		if strings.Contains(lower, a.stem) {
			moods = append(moods, a.mood)
			break
		}
	}
	for _, m := range moodsByLength {
		if len(moods) == 3 {
			break
		}
		if wordMatch(lower, m) && !contains(moods, m) {
			moods = append(moods, m)
		}
	}

	var instruments []string
	for _, in := range instrumentsByLength {
		if wordMatch(lower, in) {
			instruments = append(instruments, in)
			if len(instruments) == 4 {
				break
			}
		}
	}

	var lastTags []string
	if req.LastParams != nil {
		for _, t := range strings.Split(req.LastParams.Tags, ",") {
			lastTags = append(lastTags, strings.TrimSpace(t))
		}
	}
	if len(genres) == 0 {
		for _, t := range lastTags {
			if tags.IsGenre(t) {
				genres = append(genres, t)
				if len(genres) == 2 {
					break
				}
			}
		}
	}
	if len(genres) == 0 {
		genres = []string{"atmospheric"}
	}
	if len(moods) == 0 {
		moods = []string{"experimental"}
	}
	if len(instruments) == 0 {
		for _, m := range moods {
			if set := moodInstruments[m]; set != "" {
				instruments = strings.Split(set, ", ")
				break
			}
		}
	}
	if len(instruments) == 0 {
		for _, t := range lastTags {
			if tags.IsInstrument(t) {
				instruments = append(instruments, t)
				if len(instruments) == 3 {
					break
				}
			}
		}
	}
	if len(instruments) == 0 {
		instruments = []string{"synth pad", "drums"}
	}

	bpm := 110
	for _, g := range genreBPM {
		if contains(genres, g.genre) {
			bpm = g.bpm
			break
		}
	}
	if req.LastParams != nil && req.LastParams.BPM > 0 {
		bpm = req.LastParams.BPM
	}
	switch {
	case slowerRe.MatchString(lower):
		bpm -= 15
	case fasterRe.MatchString(lower):
		bpm += 15
	}
	if bpm < BPMMin {
		bpm = BPMMin
	}
	if bpm > BPMMax {
		bpm = BPMMax
	}

	key := fallbackBaseKey
	if req.LastParams != nil && req.LastParams.KeyScale != "" {
		key = req.LastParams.KeyScale
	}

	parts := append(append(append([]string{}, genres...), moods...), instruments...)
	parts = append(parts, "instrumental")

	p := Params{
		Tags:          strings.Join(parts, ", "),
		Lyrics:        InstrumentalLyrics,
		BPM:           bpm,
		KeyScale:      key,
		TimeSignature: 4,
		VocalLanguage: "en",
		Instrumental:  true,
		Rationale:     "fallback: " + moods[0] + " " + genres[0] + " from keyword steering",
	}
	p = applyVocalPreference(p, req.Steering)
	valid, _ := validate(p)
	return valid
}

// wordMatch reports whether kw appears in msg on word boundaries, so
// "thin" never matches inside "something".
func wordMatch(msg, kw string) bool {
	for i := 0; ; {
		j := strings.Index(msg[i:], kw)
		if j < 0 {
			return false
		}
		start := i + j
		end := start + len(kw)
		beforeOK := start == 0 || !isWordByte(msg[start-1])
		afterOK := end == len(msg) || !isWordByte(msg[end])
		if beforeOK && afterOK {
			return true
		}
		i = start + 1
	}
}

func isWordByte(b byte) bool {
	return b == '_' ||
		('a' <= b && b <= 'z') || ('A' <= b && b <= 'Z') || ('0' <= b && b <= '9')
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
