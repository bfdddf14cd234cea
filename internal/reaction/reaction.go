// Package reaction classifies raw listener input into taste signals,
// steering modifiers, and control commands. Pure keyword matching, no I/O.
package reaction

import (
	"regexp"
	"strconv"
	"strings"
)

// Signal is the taste-affecting classification of a reaction.
type Signal string

const (
	SignalNone     Signal = ""
	SignalLiked    Signal = "liked"
	SignalDisliked Signal = "disliked"
	SignalSkipped  Signal = "skipped"
)

// Direction hints how strongly the next generation should depart.
type Direction string

const (
	DirectionNone  Direction = ""
	DirectionTweak Direction = "tweak"
	DirectionReset Direction = "reset"
)

// Command is an explicit control verb extracted from free text.
type Command string

const (
	CmdNone        Command = ""
	CmdSave        Command = "save"
	CmdWhat        Command = "what"
	CmdHistory     Command = "history"
	CmdQuit        Command = "quit"
	CmdHelp        Command = "help"
	CmdListRadios  Command = "list_radios"
	CmdSwitchRadio Command = "switch_radio"
	CmdCreateRadio Command = "create_radio"
	CmdDeleteRadio Command = "delete_radio"
	CmdSleepTimer  Command = "sleep_timer"
	CmdCancelSleep Command = "cancel_sleep"
	CmdSleepStatus Command = "sleep_status"
)

// Reaction is the parsed interpretation of one listener input.
// Anything that is not a recognized command or signal remains steering text:
// the raw input is always carried through so no user text is dropped.
type Reaction struct {
	Signal       Signal
	Direction    Direction
	Modifiers    []string
	Mood         string
	Command      Command
	StationName  string
	TimerMinutes int
	Raw          string
}

// IsSteering reports whether the reaction should alter the next generation.
func (r Reaction) IsSteering() bool {
	return len(r.Modifiers) > 0 ||
		r.Mood != "" ||
		r.Direction == DirectionReset ||
		r.Signal == SignalDisliked || r.Signal == SignalSkipped ||
		(r.Command == CmdNone && r.Signal == SignalNone && strings.TrimSpace(r.Raw) != "")
}

var (
	reQuit       = regexp.MustCompile(`\bquit\b|\bexit\b|\bbye\b`)
	reListRadios = regexp.MustCompile(`what radios|list radios|my radios|show radios|\bradios\b`)
	reSwitch     = regexp.MustCompile(`(?:switch to|change to|go to|use)\s+(?:my\s+)?(?:the\s+)?(.+?)(?:\s+radio)?$`)
	reCreate     = regexp.MustCompile(`(?:create|new|start|make)\s+(?:a\s+)?(?:radio\s+(?:called\s+|named\s+)?|new\s+radio\s+(?:called\s+|named\s+)?)(.+?)(?:\s+radio)?$`)
	reDeleteA    = regexp.MustCompile(`(?:delete|remove|kill)\s+(?:the\s+)?(?:my\s+)?(.+?)\s+radio$`)
	reDeleteB    = regexp.MustCompile(`(?:delete|remove|kill)\s+(?:the\s+)?(?:my\s+)?radio\s+(.+?)$`)

	reSave    = regexp.MustCompile(`\bsave\b|\bkeep\b|\bfavorite\b|\bfav\b`)
	reWhat    = regexp.MustCompile(`what is this|what's this|\binfo\b|\brecipe\b|\bparams\b|\bdetails\b`)
	reHistory = regexp.MustCompile(`\bhistory\b|\blast played\b|\brecent\b|\btracks\b|\bsongs\b`)
	reHelp    = regexp.MustCompile(`^\s*help\s*$`)

	reCancelSleep = regexp.MustCompile(`cancel\s+sleep|^\s*sleep\s+off\s*$`)
	reSleepDur    = regexp.MustCompile(`^\s*sleep\s+(\d+)\s*(h|m|min|mins|hours?)?\s*$`)
	reSleepStatus = regexp.MustCompile(`^\s*sleep\s*$`)

	reLiked    = regexp.MustCompile(`\blove\b|\bperfect\b|\bamazing\b|\bincredible\b|\bfire\b|\byes\b|❤️|🔥|💯|\bgreat\b|\bawesome\b|\bbanging\b|\bbanger\b`)
	reDisliked = regexp.MustCompile(`\bhate\b|\bterrible\b|\bawful\b|\bnope\b|\bdislike\b|\bno+\b`)
	reSkipped  = regexp.MustCompile(`\bskip\b|\bnext\b|\bpass\b|\bnot this\b`)
	reLikedSoft = regexp.MustCompile(`\bgood\b|\blike\b|\bnice\b|\bcool\b|\bsolid\b|\bokay\b|\bok\b|\bfresh\b`)

	reReset = regexp.MustCompile(`something (?:completely )?different|change it up|\breset\b|surprise me|totally different`)
	reTweak = regexp.MustCompile(`more like this|similar|\bkeep it\b|\bstay\b|same vibe`)

	// verb is kept in the modifier so "less drums" and "more drums" stay
	// distinguishable once stored as notes
	modifierPatterns = []struct {
		verb string
		re   *regexp.Regexp
	}{
		{"more", regexp.MustCompile(`\bmore\s+([\w ]{2,25}?)(?:\s*(?:and|,|$))`)},
		{"less", regexp.MustCompile(`\bless\s+([\w ]{2,25}?)(?:\s*(?:and|,|$))`)},
		{"add", regexp.MustCompile(`\badd\s+([\w ]{2,25}?)(?:\s*(?:and|,|$))`)},
		{"remove", regexp.MustCompile(`\bremove\s+([\w ]{2,25}?)(?:\s*(?:and|,|$))`)},
		{"no", regexp.MustCompile(`\bno\s+([\w ]{2,25}?)(?:\s*(?:and|,|$))`)},
		{"", regexp.MustCompile(`\b(faster|slower|louder|quieter|harder|softer|heavier|lighter|darker|brighter|rawer|smoother)\b`)},
	}

	moodPatterns = []struct {
		mood string
		re   *regexp.Regexp
	}{
		{"focus", regexp.MustCompile(`\bfocus\b|\bwork\b|\bconcentrate\b|\bstudy\b`)},
		{"energy", regexp.MustCompile(`\benergy\b|\bpump\b|\bworkout\b|\bhype\b`)},
		{"chill", regexp.MustCompile(`\bchill\b|\brelax\b|\bsoothe\b|\beasy\b|\bmellow\b`)},
		{"sad", regexp.MustCompile(`\bsad\b|\bmelancholy\b|\bdepressing\b|\bheavy\b|\bemotion\b`)},
		{"happy", regexp.MustCompile(`\bhappy\b|\bjoyful\b|\buplifting\b|\bupbeat\b`)},
		{"sleep", regexp.MustCompile(`\bsleep\b|\bdream\b|\bnight\b`)},
		{"party", regexp.MustCompile(`\bparty\b|\bdance\b|\bclub\b|\brave\b`)},
	}

	reSlugStrip    = regexp.MustCompile(`[^\w\s-]`)
	reSlugCollapse = regexp.MustCompile(`\s+`)
)

// Interpret parses a raw listener input. It never returns an error: text that
// matches nothing is a plain steering instruction carried in Raw.
func Interpret(text string) Reaction {
	t := strings.ToLower(strings.TrimSpace(text))
	r := Reaction{Raw: text}

	if t == "" {
		return r
	}

	if reQuit.MatchString(t) {
		r.Command = CmdQuit
		return r
	}

	// Station management, checked before generic commands
	if reListRadios.MatchString(t) {
		r.Command = CmdListRadios
		return r
	}
	if m := reSwitch.FindStringSubmatch(t); m != nil {
		r.Command = CmdSwitchRadio
		r.StationName = CleanStationName(m[1])
		return r
	}
	if m := reCreate.FindStringSubmatch(t); m != nil {
		r.Command = CmdCreateRadio
		r.StationName = CleanStationName(m[1])
		return r
	}
	// Deletion requires the word "radio" so "remove vocals" stays a modifier
	if m := reDeleteA.FindStringSubmatch(t); m != nil {
		r.Command = CmdDeleteRadio
		r.StationName = CleanStationName(m[1])
		return r
	}
	if m := reDeleteB.FindStringSubmatch(t); m != nil {
		r.Command = CmdDeleteRadio
		r.StationName = CleanStationName(m[1])
		return r
	}

	if reSave.MatchString(t) {
		r.Command = CmdSave
		r.Signal = SignalLiked // saving implies liking
	}
	if reWhat.MatchString(t) {
		r.Command = CmdWhat
	}
	if reHistory.MatchString(t) {
		r.Command = CmdHistory
	}
	if reHelp.MatchString(t) {
		r.Command = CmdHelp
	}

	// Sleep timer
	if reCancelSleep.MatchString(t) {
		r.Command = CmdCancelSleep
		return r
	}
	if m := reSleepDur.FindStringSubmatch(t); m != nil {
		amount, _ := strconv.Atoi(m[1])
		unit := m[2]
		if strings.HasPrefix(unit, "h") {
			amount *= 60
		}
		r.Command = CmdSleepTimer
		r.TimerMinutes = amount
		return r
	}
	if reSleepStatus.MatchString(t) {
		r.Command = CmdSleepStatus
		return r
	}

	if r.Signal == SignalNone {
		switch {
		case reLiked.MatchString(t):
			r.Signal = SignalLiked
		case reDisliked.MatchString(t):
			r.Signal = SignalDisliked
		case reSkipped.MatchString(t):
			r.Signal = SignalSkipped
		case reLikedSoft.MatchString(t):
			r.Signal = SignalLiked
		}
	}

	// Modifiers: "more/less/add/remove/no X" plus bare comparatives
	seen := make(map[string]bool)
	for _, pat := range modifierPatterns {
		for _, m := range pat.re.FindAllStringSubmatch(t, -1) {
			mod := strings.TrimSpace(m[1])
			if mod == "" || len(mod) >= 40 {
				continue
			}
			if pat.verb != "" {
				mod = pat.verb + " " + mod
			}
			if !seen[mod] {
				seen[mod] = true
				r.Modifiers = append(r.Modifiers, mod)
			}
		}
	}

	switch {
	case reReset.MatchString(t):
		r.Direction = DirectionReset
	case reTweak.MatchString(t):
		r.Direction = DirectionTweak
	case r.Signal != SignalNone || len(r.Modifiers) > 0:
		r.Direction = DirectionTweak
	}

	for _, mp := range moodPatterns {
		if mp.re.MatchString(t) {
			r.Mood = mp.mood
			break
		}
	}

	return r
}

// CleanStationName normalizes a station name to a filesystem-safe slug.
func CleanStationName(raw string) string {
	name := strings.ToLower(strings.TrimSpace(raw))
	name = reSlugStrip.ReplaceAllString(name, "")
	name = reSlugCollapse.ReplaceAllString(name, "-")
	return strings.Trim(name, "-")
}
