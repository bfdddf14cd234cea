package params

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"go.uber.org/zap"
)

// ChatClient is the inference surface the generator needs. *OllamaClient
// satisfies it; tests substitute a scripted fake.
type ChatClient interface {
	Chat(ctx context.Context, system, user string) (string, error)
	Model() string
}

const maxAttempts = 3 // initial call plus two corrective retries

// Generator turns a taste context plus steering text into validated
// track parameters. Every failure path degrades to the keyword fallback
// so the caller always receives usable params.
type Generator struct {
	llm ChatClient
	log *zap.Logger
}

func NewGenerator(llm ChatClient, log *zap.Logger) *Generator {
	return &Generator{llm: llm, log: log}
}

// Generate never returns an error for model misbehavior; malformed or
// missing output falls through to Fallback and shows up in Warnings.
// Only context cancellation aborts early.
func (g *Generator) Generate(ctx context.Context, req Request) (Result, error) {
	userMsg := buildContext(req)
	system := systemPrompt
	var warnings []string

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}

		raw, err := g.llm.Chat(ctx, system, userMsg)
		if err != nil {
			if ctx.Err() != nil {
				return Result{}, ctx.Err()
			}
			warnings = append(warnings, fmt.Sprintf("attempt %d: inference failed: %v", attempt, err))
			g.log.Warn("inference failed", zap.Int("attempt", attempt), zap.Error(err))
			system = systemPrompt + strictSuffix
			continue
		}

		p, perr := parseParams(raw)
		if perr != nil {
			warnings = append(warnings, fmt.Sprintf("attempt %d: %v", attempt, perr))
			g.log.Warn("unparseable model output",
				zap.Int("attempt", attempt),
				zap.String("model", g.llm.Model()),
				zap.Error(perr))
			system = systemPrompt + strictSuffix
			continue
		}

		p = applyVocalPreference(p, req.Steering)
		valid, vwarn := validate(p)
		warnings = append(warnings, vwarn...)

		if TooSimilar(valid, req.RecentParams) {
			warnings = append(warnings, "output too similar to recent tracks, nudging variety")
			valid = nudgeVariety(valid)
		}
		return Result{Params: valid, Warnings: warnings}, nil
	}

	warnings = append(warnings, "all attempts exhausted, using keyword fallback")
	g.log.Warn("falling back to keyword params", zap.String("steering", req.Steering))
	fb := Fallback(req)
	return Result{Params: fb, Warnings: warnings}, nil
}

// parseParams tries a direct unmarshal first, then extracts the first
// brace-balanced object from chatter the model wrapped around the JSON.
func parseParams(raw string) (Params, error) {
	raw = strings.TrimSpace(raw)
	raw = strings.TrimPrefix(raw, "```json")
	raw = strings.TrimPrefix(raw, "```")
	raw = strings.TrimSuffix(raw, "```")
	raw = strings.TrimSpace(raw)

	var p Params
	if err := json.Unmarshal([]byte(raw), &p); err == nil {
		if p.Tags == "" && p.BPM == 0 {
			return Params{}, fmt.Errorf("parsed object carries no tags or bpm")
		}
		return p, nil
	}

	obj, ok := extractObject(raw)
	if !ok {
		return Params{}, fmt.Errorf("no JSON object in model output")
	}
	if err := json.Unmarshal([]byte(obj), &p); err != nil {
		return Params{}, fmt.Errorf("decode extracted object: %w", err)
	}
	if p.Tags == "" && p.BPM == 0 {
		return Params{}, fmt.Errorf("extracted object carries no tags or bpm")
	}
	return p, nil
}

// extractObject returns the first balanced {...} span, ignoring braces
// inside string literals.
func extractObject(s string) (string, bool) {
	start := strings.IndexByte(s, '{')
	if start < 0 {
		return "", false
	}
	depth := 0
	inStr := false
	esc := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if esc {
			esc = false
			continue
		}
		switch c {
		case '\\':
			if inStr {
				esc = true
			}
		case '"':
			inStr = !inStr
		case '{':
			if !inStr {
				depth++
			}
		case '}':
			if !inStr {
				depth--
				if depth == 0 {
					return s[start : i+1], true
				}
			}
		}
	}
	return "", false
}

var (
	wantInstrumentalRe = regexp.MustCompile(`(?i)\b(no vocals?|without vocals?|instrumental(s)? only|drop the vocals?|remove (the )?vocals?)\b`)
	wantVocalsRe       = regexp.MustCompile(`(?i)\b(add vocals?|with vocals?|want (some )?vocals?|sing|singer|singing|bring back (the )?vocals?)\b`)
	wantFemaleRe       = regexp.MustCompile(`(?i)\bfemale (vocal(s)?|voice|singer)\b`)
	wantMaleRe         = regexp.MustCompile(`(?i)\bmale (vocal(s)?|voice|singer)\b`)
)

// applyVocalPreference overrides the model when the listener's message
// states a vocal preference outright. Explicit asks beat inference.
func applyVocalPreference(p Params, steering string) Params {
	if steering == "" {
		return p
	}
	switch {
	case wantInstrumentalRe.MatchString(steering):
		p.Instrumental = true
		p.Lyrics = InstrumentalLyrics
		p.Tags = swapVocalTag(p.Tags, "instrumental")
	case wantFemaleRe.MatchString(steering):
		p.Instrumental = false
		p.Tags = swapVocalTag(p.Tags, "female vocal")
	case wantMaleRe.MatchString(steering):
		p.Instrumental = false
		p.Tags = swapVocalTag(p.Tags, "male vocal")
	case wantVocalsRe.MatchString(steering):
		if p.Instrumental {
			p.Instrumental = false
			p.Tags = swapVocalTag(p.Tags, "female vocal")
		}
	}
	return p
}

// swapVocalTag replaces any existing vocal-type tag with want, appending
// it when none is present.
func swapVocalTag(tagStr, want string) string {
	parts := strings.Split(tagStr, ",")
	out := make([]string, 0, len(parts)+1)
	replaced := false
	for _, t := range parts {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		if isVocalish(t) {
			if !replaced {
				out = append(out, want)
				replaced = true
			}
			continue
		}
		out = append(out, t)
	}
	if !replaced {
		out = append(out, want)
	}
	return strings.Join(out, ", ")
}

func isVocalish(t string) bool {
	t = strings.ToLower(t)
	return t == "instrumental" || strings.Contains(t, "vocal") || strings.Contains(t, "rap") || t == "spoken word"
}

// nudgeVariety shifts BPM and flips key mode when the model is stuck
// producing near-identical tracks.
func nudgeVariety(p Params) Params {
	if p.BPM <= (BPMMin+BPMMax)/2 {
		p.BPM = min(BPMMax, p.BPM+25)
	} else {
		p.BPM = max(BPMMin, p.BPM-25)
	}
	if strings.HasSuffix(p.KeyScale, "Major") {
		p.KeyScale = strings.TrimSuffix(p.KeyScale, "Major") + "Minor"
	} else {
		p.KeyScale = strings.TrimSuffix(p.KeyScale, "Minor") + "Major"
	}
	return p
}
