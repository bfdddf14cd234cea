package engine

import (
	"github.com/pulsefm/pulse/internal/lyrics"
	"github.com/pulsefm/pulse/internal/params"
)

// Event is one server→client message. The set of implementations is
// closed; the transport layer switches exhaustively on Type().
type Event interface {
	Type() string
}

// Broadcaster fans events out to connected clients. Sends are
// fire-and-forget: a slow client must never block the engine.
type Broadcaster interface {
	Broadcast(Event)
}

// TrackInfo is the client-facing view of a track.
type TrackInfo struct {
	ID       string        `json:"id"`
	URL      string        `json:"url"`
	Params   params.Params `json:"params"`
	Duration float64       `json:"duration"`
	Lyrics   []lyrics.Line `json:"lyrics,omitempty"`
	Favorite bool          `json:"favorite"`
	Reaction string        `json:"reaction,omitempty"`
}

// SyncEvent is the full-state snapshot sent on connect and reconnect.
type SyncEvent struct {
	Station    string     `json:"radio"`
	Stations   []string   `json:"radios"`
	Stage      string     `json:"stage"`
	NowPlaying *TrackInfo `json:"now_playing,omitempty"`
	Queued     bool       `json:"queued"`
	Elapsed    float64    `json:"elapsed"`
	Paused     bool       `json:"paused"`
	Volume     float64    `json:"volume"`
	FirstRun   bool       `json:"first_run"`
	Warnings   []string   `json:"warnings,omitempty"`
	SleepAt    string     `json:"sleep_at,omitempty"`
}

func (SyncEvent) Type() string { return "sync" }

// NowPlayingEvent announces the track that just became audible.
type NowPlayingEvent struct {
	Station  string    `json:"radio"`
	Track    TrackInfo `json:"track"`
	Warnings []string  `json:"warnings,omitempty"`
}

func (NowPlayingEvent) Type() string { return "now_playing" }

// ThinkingEvent marks the start of parameter inference.
type ThinkingEvent struct {
	Station  string `json:"radio"`
	Steering string `json:"steering,omitempty"`
}

func (ThinkingEvent) Type() string { return "thinking" }

// GenerationStartEvent marks synthesis submission.
type GenerationStartEvent struct {
	Station  string        `json:"radio"`
	TrackID  string        `json:"track_id"`
	Params   params.Params `json:"params"`
	Warnings []string      `json:"warnings,omitempty"`
}

func (GenerationStartEvent) Type() string { return "generation_start" }

// GenerationProgressEvent reports elapsed synthesis time.
type GenerationProgressEvent struct {
	Station string  `json:"radio"`
	TrackID string  `json:"track_id"`
	Elapsed float64 `json:"elapsed"`
}

func (GenerationProgressEvent) Type() string { return "generation_progress" }

// GenerationDoneEvent marks a rendered track queued for playback.
type GenerationDoneEvent struct {
	Station  string   `json:"radio"`
	TrackID  string   `json:"track_id"`
	Warnings []string `json:"warnings,omitempty"`
}

func (GenerationDoneEvent) Type() string { return "generation_done" }

// RegeneratingEvent signals an in-flight or queued job was abandoned for
// fresh steering.
type RegeneratingEvent struct {
	Station  string `json:"radio"`
	Steering string `json:"steering"`
}

func (RegeneratingEvent) Type() string { return "regenerating" }

// WaitingEvent signals the synthesis backend is not yet reachable.
type WaitingEvent struct {
	Station string `json:"radio"`
}

func (WaitingEvent) Type() string { return "waiting" }

// ErrorEvent carries a recoverable pipeline failure.
type ErrorEvent struct {
	Station string `json:"radio"`
	Message string `json:"message"`
}

func (ErrorEvent) Type() string { return "error" }

// RadioSwitchedEvent announces the active station changed.
type RadioSwitchedEvent struct {
	Station  string   `json:"radio"`
	Stations []string `json:"radios"`
	FirstRun bool     `json:"first_run"`
}

func (RadioSwitchedEvent) Type() string { return "radio_switched" }

// ReactionFeedbackEvent acknowledges a taste signal or steering input.
type ReactionFeedbackEvent struct {
	Station  string `json:"radio"`
	TrackID  string `json:"track_id,omitempty"`
	Signal   string `json:"signal,omitempty"`
	Steering string `json:"steering,omitempty"`
	Message  string `json:"message"`
}

func (ReactionFeedbackEvent) Type() string { return "reaction_feedback" }

// DiskFullEvent is the fatal-to-station storage notice. Generation stays
// paused until space frees up.
type DiskFullEvent struct {
	Station string `json:"radio"`
	FreeMB  int64  `json:"free_mb"`
}

func (DiskFullEvent) Type() string { return "disk_full" }

// TickEvent is the advisory server playback clock, sent once a second
// while a track plays.
type TickEvent struct {
	Station  string  `json:"radio"`
	TrackID  string  `json:"track_id"`
	Elapsed  float64 `json:"elapsed"`
	Duration float64 `json:"duration"`
}

func (TickEvent) Type() string { return "tick" }

// PlaybackStateEvent mirrors transport-control state to all clients.
type PlaybackStateEvent struct {
	Station string  `json:"radio"`
	Paused  bool    `json:"paused"`
	Volume  float64 `json:"volume"`
	Elapsed float64 `json:"elapsed"`
}

func (PlaybackStateEvent) Type() string { return "playback_state" }

// ToastEvent is a transient informational notice.
type ToastEvent struct {
	Station string `json:"radio"`
	Message string `json:"message"`
}

func (ToastEvent) Type() string { return "toast" }
