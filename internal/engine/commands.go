package engine

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/pulsefm/pulse/internal/reaction"
	"github.com/pulsefm/pulse/internal/station"
)

// HandleReaction routes one piece of free-text listener input: taste
// signals land in the profile, modifiers become permanent notes, moods
// and resets steer the session, station commands switch context, and
// anything unrecognized is forwarded verbatim as steering text.
func (e *Engine) HandleReaction(ctx context.Context, text string) error {
	r := reaction.Interpret(text)

	switch r.Command {
	case reaction.CmdSave:
		return e.Save(ctx)
	case reaction.CmdSwitchRadio, reaction.CmdCreateRadio:
		return e.SwitchStation(ctx, r.StationName)
	case reaction.CmdDeleteRadio:
		return e.DeleteStation(ctx, r.StationName)
	case reaction.CmdSleepTimer:
		e.SetSleepTimer(time.Duration(r.TimerMinutes) * time.Minute)
		return nil
	case reaction.CmdCancelSleep:
		e.CancelSleepTimer()
		return nil
	case reaction.CmdSleepStatus:
		e.mu.Lock()
		msg := "No sleep timer set"
		if !e.sleepAt.IsZero() {
			msg = fmt.Sprintf("Sleeping in %s", time.Until(e.sleepAt).Round(time.Minute))
		}
		st := e.active
		e.mu.Unlock()
		e.bcast.Broadcast(ToastEvent{Station: st, Message: msg})
		return nil
	case reaction.CmdQuit, reaction.CmdHelp, reaction.CmdWhat, reaction.CmdHistory, reaction.CmdListRadios:
		// informational commands are answered by the client or HTTP API
		return nil
	}

	e.mu.Lock()
	name := e.active
	current := e.nowPlaying
	e.mu.Unlock()

	if r.Signal != reaction.SignalNone && current != nil {
		if err := e.applySignal(ctx, name, current, string(r.Signal)); err != nil {
			return err
		}
	}

	for _, mod := range r.Modifiers {
		if err := e.store.AddNote(ctx, name, mod); err != nil {
			return err
		}
	}
	if r.Mood != "" {
		if err := e.store.SetDirection(ctx, name, "mood: "+r.Mood); err != nil {
			return err
		}
	}
	if r.Direction == reaction.DirectionReset {
		if err := e.store.SetDirection(ctx, name, "reset: bold departure from recent tracks"); err != nil {
			return err
		}
	}

	feedback := ReactionFeedbackEvent{Station: name, Signal: string(r.Signal), Message: "Got it"}
	if current != nil {
		feedback.TrackID = current.ID
	}

	if r.Signal == reaction.SignalSkipped {
		e.bcast.Broadcast(feedback)
		return e.Skip(ctx)
	}

	if r.IsSteering() {
		feedback.Steering = r.Raw
		feedback.Message = "Steering the next track"
		e.bcast.Broadcast(feedback)
		e.mu.Lock()
		e.triggerLocked(r.Raw)
		e.mu.Unlock()
		return nil
	}

	e.bcast.Broadcast(feedback)
	return nil
}

func (e *Engine) applySignal(ctx context.Context, name string, t *TrackInfo, signal string) error {
	if err := e.store.AddReaction(ctx, name, signal, t.Params); err != nil {
		return err
	}
	if err := e.store.SetTrackReaction(ctx, name, t.ID, signal); err != nil {
		e.log.Warn("tag track reaction failed", zap.String("track", t.ID), zap.Error(err))
	}
	e.mu.Lock()
	if e.nowPlaying != nil && e.nowPlaying.ID == t.ID {
		e.nowPlaying.Reaction = signal
	}
	e.mu.Unlock()
	return nil
}

// Like records a liked reaction for the current track.
func (e *Engine) Like(ctx context.Context) error { return e.react(ctx, station.SignalLiked) }

// Dislike records a disliked reaction for the current track.
func (e *Engine) Dislike(ctx context.Context) error { return e.react(ctx, station.SignalDisliked) }

func (e *Engine) react(ctx context.Context, signal string) error {
	e.mu.Lock()
	name, current := e.active, e.nowPlaying
	e.mu.Unlock()
	if current == nil {
		return nil
	}
	if err := e.applySignal(ctx, name, current, signal); err != nil {
		return err
	}
	e.bcast.Broadcast(ReactionFeedbackEvent{
		Station: name, TrackID: current.ID, Signal: signal, Message: "Noted",
	})
	return nil
}

// Save favorites the current track, which implies a liked reaction.
func (e *Engine) Save(ctx context.Context) error {
	e.mu.Lock()
	name, current := e.active, e.nowPlaying
	e.mu.Unlock()
	if current == nil {
		return nil
	}
	if err := e.applySignal(ctx, name, current, station.SignalLiked); err != nil {
		return err
	}
	if err := e.store.MarkFavorite(ctx, name, current.ID); err != nil {
		return err
	}
	e.mu.Lock()
	if e.nowPlaying != nil && e.nowPlaying.ID == current.ID {
		e.nowPlaying.Favorite = true
	}
	e.mu.Unlock()
	e.bcast.Broadcast(ReactionFeedbackEvent{
		Station: name, TrackID: current.ID, Signal: station.SignalLiked, Message: "Saved to favorites",
	})
	return nil
}

// Skip advances past the current track. With a track ready it becomes
// now-playing immediately; mid-generation the client falls back to its
// local history and the in-flight job, when done, is promoted without a
// further request.
func (e *Engine) Skip(ctx context.Context) error {
	e.mu.Lock()
	name, current := e.active, e.nowPlaying
	e.mu.Unlock()

	if current != nil {
		if err := e.applySignal(ctx, name, current, station.SignalSkipped); err != nil {
			return err
		}
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.queued != nil {
		e.promoteLocked()
		return nil
	}
	e.promoteOnDone = true
	if e.stage == StageIdle {
		e.triggerLocked("")
	}
	return nil
}

// TrackEnded handles the client's playback-telemetry report: the queued
// track is promoted, or, if generation is still running, promotion is
// armed for the moment it completes.
func (e *Engine) TrackEnded(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.queued != nil {
		e.promoteLocked()
		return nil
	}
	e.promoteOnDone = true
	if e.stage == StageIdle {
		e.triggerLocked("")
	}
	return nil
}

// FirstVibe seeds a fresh station: the text becomes a permanent note and
// the session direction, and kicks off the first generation cycle.
func (e *Engine) FirstVibe(ctx context.Context, text string) error {
	e.mu.Lock()
	name := e.active
	e.mu.Unlock()

	if text != "" {
		if err := e.store.AddNote(ctx, name, text); err != nil {
			return err
		}
		if err := e.store.SetDirection(ctx, name, text); err != nil {
			return err
		}
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.firstRun = false
	e.triggerLocked(text)
	return nil
}

// SwitchStation changes the active station, creating it on first
// reference. The previous station's in-flight job is abandoned.
func (e *Engine) SwitchStation(ctx context.Context, name string) error {
	name = reaction.CleanStationName(name)
	if name == "" {
		return fmt.Errorf("empty station name")
	}
	if err := e.store.SetCurrent(ctx, name); err != nil {
		return err
	}
	first, err := e.store.IsFirstRun(ctx, name)
	if err != nil {
		return err
	}
	stations, err := e.store.ListStations(ctx)
	if err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.active = name
	e.epoch++ // abandon any in-flight job for the old station
	e.stage = StageIdle
	e.nowPlaying = nil
	e.queued = nil
	e.pendingSteer = nil
	e.promoteOnDone = false
	e.firstRun = first
	e.retryAt = time.Time{}
	e.log.Info("switched station", zap.String("station", name), zap.Bool("first_run", first))
	e.bcast.Broadcast(RadioSwitchedEvent{Station: name, Stations: stations, FirstRun: first})
	if !first {
		e.triggerLocked("")
	}
	return nil
}

// DeleteStation removes a station and all of its data. Deleting the
// active station switches back to the default.
func (e *Engine) DeleteStation(ctx context.Context, name string) error {
	name = reaction.CleanStationName(name)
	if name == station.DefaultStation {
		return fmt.Errorf("cannot delete the default station")
	}
	e.mu.Lock()
	wasActive := e.active == name
	e.mu.Unlock()

	if err := e.store.DeleteStation(ctx, name); err != nil {
		return err
	}
	e.bcast.Broadcast(ToastEvent{Station: name, Message: "Deleted radio " + name})
	if wasActive {
		return e.SwitchStation(ctx, station.DefaultStation)
	}
	return nil
}

// CleanStation wipes the station's generated tracks but keeps its taste.
func (e *Engine) CleanStation(ctx context.Context) error {
	e.mu.Lock()
	name := e.active
	e.queued = nil
	e.nowPlaying = nil
	e.epoch++
	e.stage = StageIdle
	e.mu.Unlock()

	if err := e.store.Clean(ctx, name); err != nil {
		return err
	}
	e.bcast.Broadcast(ToastEvent{Station: name, Message: "Cleared all tracks for " + name})
	return nil
}

// Pause freezes the advisory clock and mirrors the state to clients.
func (e *Engine) Pause() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.paused = true
	e.clock.Pause()
	e.broadcastPlaybackLocked()
}

// Resume restarts playback state.
func (e *Engine) Resume() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.paused = false
	e.clock.Resume()
	e.broadcastPlaybackLocked()
}

// TogglePause flips the transport state.
func (e *Engine) TogglePause() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.paused = !e.paused
	if e.paused {
		e.clock.Pause()
	} else {
		e.clock.Resume()
	}
	e.broadcastPlaybackLocked()
}

// Seek moves the advisory clock.
func (e *Engine) Seek(to time.Duration) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.clock.Seek(to)
	e.broadcastPlaybackLocked()
}

// SetVolume records the shared volume level.
func (e *Engine) SetVolume(v float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if v < 0 {
		v = 0
	}
	if v > 1 {
		v = 1
	}
	e.volume = v
	e.broadcastPlaybackLocked()
}

// SetSleepTimer pauses playback after d.
func (e *Engine) SetSleepTimer(d time.Duration) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if d <= 0 {
		return
	}
	e.sleepAt = time.Now().Add(d)
	e.bcast.Broadcast(ToastEvent{
		Station: e.active,
		Message: fmt.Sprintf("Sleep timer set for %s", d.Round(time.Minute)),
	})
}

// CancelSleepTimer clears a pending sleep timer.
func (e *Engine) CancelSleepTimer() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.sleepAt = time.Time{}
	e.bcast.Broadcast(ToastEvent{Station: e.active, Message: "Sleep timer cancelled"})
}

// Snapshot builds the full-state sync event for a newly connected client.
// No missed events are replayed; this is everything the client needs.
func (e *Engine) Snapshot(ctx context.Context) SyncEvent {
	e.mu.Lock()
	defer e.mu.Unlock()

	var now *TrackInfo
	if e.nowPlaying != nil {
		cp := *e.nowPlaying
		now = &cp
	}
	ev := SyncEvent{
		Station:    e.active,
		Stage:      string(e.stage),
		NowPlaying: now,
		Queued:     e.queued != nil,
		Elapsed:    e.clock.Elapsed().Seconds(),
		Paused:     e.paused,
		Volume:     e.volume,
		FirstRun:   e.firstRun,
	}
	if e.queued != nil {
		ev.Warnings = e.queued.warnings
	}
	if !e.sleepAt.IsZero() {
		ev.SleepAt = e.sleepAt.UTC().Format(time.RFC3339)
	}
	if stations, err := e.store.ListStations(ctx); err == nil {
		ev.Stations = stations
	}
	return ev
}

// Active returns the current station name.
func (e *Engine) Active() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.active
}

// Stage returns the current pipeline stage.
func (e *Engine) CurrentStage() Stage {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.stage
}
