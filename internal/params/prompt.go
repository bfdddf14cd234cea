package params

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/pulsefm/pulse/internal/tags"
)

const systemPrompt = `You are a personal music director for an AI radio station.

Your job: given the listener's taste profile and their latest message, output the NEXT track parameters as JSON.

OUTPUT ONLY valid JSON — no markdown, no explanation, no code fences.

Required JSON fields:
{
  "tags": "ordered comma-separated tags covering dimensions below",
  "lyrics": "full song lyrics with section markers (see rules)",
  "bpm": <integer 60-180>,
  "key_scale": "<note> <Major|Minor>",
  "time_signature": <3|4|6>,
  "vocal_language": "en",
  "instrumental": <true|false>,
  "rationale": "one sentence: what you're doing and why"
}

=== TAG DIMENSIONS ===

Tags MUST follow this category order: genre → mood → instruments → vocal → texture

1. Style/Genre (1-2 tags): the primary musical style
   Examples: indie rock, jazz, trip hop, drum and bass, ambient, hip hop, folk, techno, lo-fi, deep house, trap
2. Emotion/Mood (1-3 tags): the emotional character and atmosphere
   Examples: dreamy, nostalgic, energetic, melancholic, euphoric, dark, intimate, triumphant, hypnotic, peaceful
3. Instruments (2-4 tags): the dominant sonic palette
   Examples: electric guitar, synth pad, drums, piano, 808, strings, acoustic guitar, horns, synth bass, rhodes
4. Vocal Type (1 tag): male vocal, female vocal, male rap, female rap, spoken word, instrumental
5. Timbre/Texture (0-2 tags): lo-fi, warm, crisp, airy, punchy, vintage, ethereal, gritty, lush, polished, raw

Total tags: 7-12. Max 14.

=== LYRICS RULES ===

Structure tags: [Intro], [Verse 1], [Verse 2], [Pre-Chorus], [Chorus], [Bridge], [Outro]
Dynamic tags: [Build], [Drop], [Breakdown]
Instrumental sections: [Instrumental], [Guitar Solo], [Piano Interlude]

Rules:
- Write 2-4 lines per section (6-10 syllables per line for best results)
- Match the vocal_language
- Use vocal control in section markers: [Chorus - anthemic], [Bridge - whispered]
- Parentheses = background vocals: "We rise together (together)"
- For instrumental tracks: set lyrics to "[inst]"

=== CRITICAL RULES ===

- Do NOT put BPM, key, or tempo words in tags — use the dedicated bpm/key_scale fields
- BPM reflects the genre's natural energy (e.g., trap ~140, jazz ~90, house ~125)
- If listener liked recent tracks: keep what worked, evolve subtly
- If listener said "reset" or "something different": bold departure
- If listener gave modifiers ("more bass", "slower"): apply them directly
- If the taste profile has notes: respect them always
- Never exceed ranges: BPM [60-180], time_sig [3, 4, 6], key like "F# Minor" or "C Major"
- Do NOT include any field other than the 8 listed above

=== EXAMPLES ===

{"tags": "indie rock, nostalgic, driving, electric guitar, drums, bass guitar, male vocal, warm", "lyrics": "[Verse 1]\nWalking down the street at dusk\nNeon signs reflect the rain\n\n[Chorus - anthemic]\nWe were young and didn't know\nHow fast the colors fade", "bpm": 118, "key_scale": "D Major", "time_signature": 4, "vocal_language": "en", "instrumental": false, "rationale": "Nostalgic indie rock with warm guitar tones and driving energy"}

{"tags": "deep house, hypnotic, groovy, synth bass, drums, hi-hat, synth pad, instrumental, warm", "lyrics": "[inst]", "bpm": 124, "key_scale": "G Minor", "time_signature": 4, "vocal_language": "en", "instrumental": true, "rationale": "Deep hypnotic house groove with warm analog feel"}`

const strictSuffix = "\n\nCRITICAL: Output ONLY the JSON object. No words before or after. Start with { and end with }."

// Request carries everything the generator needs to build a prompt. The
// taste context comes from the station store; Steering is the listener's
// latest free-text instruction, forwarded verbatim.
type Request struct {
	TasteContext string
	Steering     string
	LastParams   *Params
	RecentParams []Params
}

// buildContext assembles the user message for one inference call.
// Permanent notes arrive inside TasteContext and are always included verbatim.
func buildContext(req Request) string {
	parts := []string{"=== TASTE PROFILE ===", req.TasteContext}

	if req.LastParams != nil {
		parts = append(parts, "\n=== LAST TRACK ===")
		last := map[string]any{
			"tags":         req.LastParams.Tags,
			"bpm":          req.LastParams.BPM,
			"key_scale":    req.LastParams.KeyScale,
			"instrumental": req.LastParams.Instrumental,
			"rationale":    req.LastParams.Rationale,
		}
		for _, t := range strings.Split(req.LastParams.Tags, ", ") {
			if tags.IsVocal(t) {
				last["vocal_type"] = t
				break
			}
		}
		if b, err := json.MarshalIndent(last, "", "  "); err == nil {
			parts = append(parts, string(b))
		}
	}

	if len(req.RecentParams) > 1 {
		parts = append(parts, "\n=== RECENT TRACK PATTERNS (avoid repeating) ===")
		recent := req.RecentParams
		if len(recent) > 3 {
			recent = recent[len(recent)-3:]
		}
		for _, p := range recent {
			parts = append(parts, fmt.Sprintf("  %s | %d BPM | %s", p.Tags, p.BPM, p.KeyScale))
		}
	}

	steering := req.Steering
	if steering == "" {
		steering = "(no message — continue evolving the sound)"
	}
	parts = append(parts, "\n=== USER MESSAGE ===\n"+steering)
	parts = append(parts, "\n=== YOUR RESPONSE (JSON only) ===")

	return strings.Join(parts, "\n")
}
