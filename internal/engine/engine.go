// Package engine drives the generation-and-playback pipeline: one state
// machine per process that decides what to generate next, runs inference
// and synthesis jobs in the background, and announces every transition
// over the sync channel. The radio never stops: generation for the next
// track starts the moment the current one begins playing.
package engine

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/pulsefm/pulse/internal/continuity"
	"github.com/pulsefm/pulse/internal/lyrics"
	"github.com/pulsefm/pulse/internal/params"
	"github.com/pulsefm/pulse/internal/station"
	"github.com/pulsefm/pulse/internal/synth"
)

// Stage is the pipeline state.
type Stage string

const (
	StageIdle       Stage = "idle"
	StageWaiting    Stage = "waiting"
	StageThinking   Stage = "thinking"
	StageGenerating Stage = "generating"
	StageReady      Stage = "ready"
	StageError      Stage = "error"
)

// Generator produces validated generation parameters.
type Generator interface {
	Generate(ctx context.Context, req params.Request) (params.Result, error)
}

// Synthesizer renders a track for the given request into dest.
type Synthesizer interface {
	Healthy(ctx context.Context) bool
	Await(ctx context.Context, req synth.Request, dest string, onProgress func(time.Duration)) error
}

// Options tune the engine's scheduling behavior.
type Options struct {
	LeadTime        time.Duration // how far before track end the next job starts
	DefaultDuration int           // target track length in seconds
	InferenceSteps  int
	AudioFormat     string
	MinFreeMB       int64
	RetryBackoff    time.Duration
	HealthPoll      time.Duration
	ProbeDuration   func(path string) (time.Duration, error)
}

func (o *Options) fill() {
	if o.LeadTime <= 0 {
		o.LeadTime = 20 * time.Second
	}
	if o.DefaultDuration <= 0 {
		o.DefaultDuration = 120
	}
	if o.InferenceSteps <= 0 {
		o.InferenceSteps = 27
	}
	if o.AudioFormat == "" {
		o.AudioFormat = "mp3"
	}
	if o.RetryBackoff <= 0 {
		o.RetryBackoff = 10 * time.Second
	}
	if o.HealthPoll <= 0 {
		o.HealthPoll = 5 * time.Second
	}
	if o.ProbeDuration == nil {
		o.ProbeDuration = synth.ProbeDuration
	}
}

type queuedTrack struct {
	info     TrackInfo
	file     string
	warnings []string
}

// Engine is the radio orchestrator. One station is active at a time; all
// of its state transitions are serialized through the engine mutex, while
// inference and synthesis run in background jobs identified by an epoch
// counter so abandoned jobs are discarded on completion.
type Engine struct {
	store *station.Store
	gen   Generator
	synth Synthesizer
	bcast Broadcaster
	opts  Options
	log   *zap.Logger

	mu            sync.Mutex
	ctx           context.Context
	active        string
	stage         Stage
	epoch         int
	nowPlaying    *TrackInfo
	queued        *queuedTrack
	pendingSteer  []string
	promoteOnDone bool
	firstRun      bool
	diskFull      bool
	paused        bool
	volume        float64
	clock         *continuity.Clock
	sleepAt       time.Time
	retryAt       time.Time
}

func New(store *station.Store, gen Generator, syn Synthesizer, bcast Broadcaster, opts Options, log *zap.Logger) *Engine {
	opts.fill()
	return &Engine{
		store:  store,
		gen:    gen,
		synth:  syn,
		bcast:  bcast,
		opts:   opts,
		log:    log,
		stage:  StageIdle,
		volume: 0.8,
		clock:  continuity.NewClock(),
	}
}

// Run starts the engine on the persisted current station and blocks until
// ctx ends, driving the one-second scheduling tick.
func (e *Engine) Run(ctx context.Context) error {
	name, err := e.store.CurrentStation(ctx)
	if err != nil {
		return fmt.Errorf("resolve current station: %w", err)
	}
	first, err := e.store.IsFirstRun(ctx, name)
	if err != nil {
		return fmt.Errorf("first-run check: %w", err)
	}

	e.mu.Lock()
	e.ctx = ctx
	e.active = name
	e.firstRun = first
	if !first {
		e.triggerLocked("")
	}
	e.mu.Unlock()

	e.log.Info("engine running", zap.String("station", name), zap.Bool("first_run", first))

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			e.tick()
		}
	}
}

// tick advances time-driven behavior: the advisory playback clock,
// lead-time triggering, sleep timer, error recovery, and disk recheck.
func (e *Engine) tick() {
	e.mu.Lock()
	defer e.mu.Unlock()
	now := time.Now()

	if e.nowPlaying != nil && !e.paused {
		e.bcast.Broadcast(TickEvent{
			Station:  e.active,
			TrackID:  e.nowPlaying.ID,
			Elapsed:  e.clock.Elapsed().Seconds(),
			Duration: e.nowPlaying.Duration,
		})
	}

	if !e.sleepAt.IsZero() && now.After(e.sleepAt) {
		e.sleepAt = time.Time{}
		e.paused = true
		e.clock.Pause()
		e.bcast.Broadcast(ToastEvent{Station: e.active, Message: "Sleep timer: pausing playback"})
		e.broadcastPlaybackLocked()
	}

	if e.diskFull {
		if free, err := e.store.DiskFreeMB(); err == nil && free >= e.opts.MinFreeMB {
			e.diskFull = false
			e.stage = StageIdle
			e.bcast.Broadcast(ToastEvent{Station: e.active, Message: "Disk space recovered, resuming generation"})
			e.triggerLocked("")
		}
		return
	}

	if e.stage == StageError && !e.retryAt.IsZero() && now.After(e.retryAt) {
		e.retryAt = time.Time{}
		e.triggerLocked("")
		return
	}

	// lead-time trigger: start the next job before the current track ends
	if e.stage == StageIdle && e.nowPlaying != nil && e.queued == nil && !e.paused {
		remaining := time.Duration(e.nowPlaying.Duration*float64(time.Second)) - e.clock.Elapsed()
		if remaining <= e.opts.LeadTime {
			e.triggerLocked("")
		}
	}
}

// triggerLocked requests a generation cycle. At most one job exists per
// station: while thinking or generating, new steering coalesces into the
// next prompt; while ready, fresh steering discards the queued track and
// starts over.
func (e *Engine) triggerLocked(steering string) {
	if e.diskFull || e.ctx == nil {
		return
	}

	switch e.stage {
	case StageThinking, StageGenerating, StageWaiting:
		if steering != "" {
			e.pendingSteer = append(e.pendingSteer, steering)
		}
		return
	case StageReady:
		if steering == "" {
			return
		}
		e.queued = nil
		e.bcast.Broadcast(RegeneratingEvent{Station: e.active, Steering: steering})
	}

	e.startJobLocked(steering)
}

func (e *Engine) startJobLocked(steering string) {
	if len(e.pendingSteer) > 0 {
		parts := e.pendingSteer
		if steering != "" {
			parts = append(parts, steering)
		}
		steering = strings.Join(parts, ". ")
		e.pendingSteer = nil
	}

	e.epoch++
	e.stage = StageThinking
	go e.runJob(e.ctx, e.epoch, e.active, steering)
}

// stale reports whether a job belongs to an abandoned epoch. A stale
// job's result is discarded when it completes; it is never torn down
// mid-flight.
func (e *Engine) stale(epoch int) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return epoch != e.epoch
}

// runJob is one full generation cycle: wait for the backend, infer
// parameters, synthesize, then queue or promote the finished track.
func (e *Engine) runJob(ctx context.Context, epoch int, name, steering string) {
	if !e.awaitBackend(ctx, epoch, name) {
		return
	}

	jobStart := time.Now()
	e.setStageIfCurrent(epoch, StageThinking)
	e.bcast.Broadcast(ThinkingEvent{Station: name, Steering: steering})

	req, err := e.buildRequest(ctx, name, steering)
	if err != nil {
		e.jobFailed(epoch, name, fmt.Errorf("build prompt: %w", err))
		return
	}

	res, err := e.gen.Generate(ctx, req)
	llmTook := time.Since(jobStart)
	if err != nil {
		return // context ended
	}
	if e.stale(epoch) {
		e.log.Debug("discarding stale inference result", zap.Int("epoch", epoch))
		return
	}

	if free, err := e.store.DiskFreeMB(); err == nil && free < e.opts.MinFreeMB {
		e.enterDiskFull(name, free)
		return
	}

	trackID, err := e.store.NextTrackID(ctx, name)
	if err != nil {
		e.jobFailed(epoch, name, err)
		return
	}
	res.Params.Duration = e.opts.DefaultDuration

	file := trackFileName(trackID, res.Params.Tags, e.opts.AudioFormat)
	dest := e.store.TrackPath(name, file)

	e.setStageIfCurrent(epoch, StageGenerating)
	e.bcast.Broadcast(GenerationStartEvent{
		Station: name, TrackID: trackID, Params: res.Params, Warnings: res.Warnings,
	})

	sreq := synth.BuildRequest(res.Params, e.opts.InferenceSteps, e.opts.AudioFormat)
	synthStart := time.Now()
	err = e.synth.Await(ctx, sreq, dest, func(elapsed time.Duration) {
		if !e.stale(epoch) {
			e.bcast.Broadcast(GenerationProgressEvent{
				Station: name, TrackID: trackID, Elapsed: elapsed.Seconds(),
			})
		}
	})
	if err != nil {
		if ctx.Err() != nil || e.stale(epoch) {
			return
		}
		e.jobFailed(epoch, name, err)
		return
	}

	if err := e.store.RecordTiming(ctx, name, station.Timing{
		TrackID: trackID,
		LLM:     llmTook,
		Synth:   time.Since(synthStart),
		Total:   time.Since(jobStart),
	}); err != nil {
		e.log.Warn("record timing failed", zap.Error(err))
	}

	warnings := res.Warnings
	duration := time.Duration(res.Params.Duration) * time.Second
	if probed, err := e.opts.ProbeDuration(dest); err == nil {
		duration = probed
	} else {
		warnings = append(warnings, fmt.Sprintf("duration probe failed: %v", err))
	}

	info := TrackInfo{
		ID:       trackID,
		URL:      "/audio/" + name + "/" + file,
		Params:   res.Params,
		Duration: duration.Seconds(),
	}
	if !res.Params.Instrumental {
		info.Lyrics = lyrics.Estimate(res.Params.Lyrics, duration)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if epoch != e.epoch || name != e.active {
		e.log.Info("discarding abandoned track", zap.String("track", trackID))
		return
	}

	e.queued = &queuedTrack{info: info, file: file, warnings: warnings}
	if e.nowPlaying == nil || e.promoteOnDone {
		e.promoteLocked()
		return
	}
	e.stage = StageReady
	e.bcast.Broadcast(GenerationDoneEvent{Station: name, TrackID: trackID, Warnings: warnings})
}

// awaitBackend holds the job in the waiting stage until the synthesis
// service answers health checks.
func (e *Engine) awaitBackend(ctx context.Context, epoch int, name string) bool {
	if e.synth.Healthy(ctx) {
		return true
	}
	e.setStageIfCurrent(epoch, StageWaiting)
	e.bcast.Broadcast(WaitingEvent{Station: name})

	ticker := time.NewTicker(e.opts.HealthPoll)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return false
		case <-ticker.C:
			if e.stale(epoch) {
				return false
			}
			if e.synth.Healthy(ctx) {
				return true
			}
		}
	}
}

func (e *Engine) buildRequest(ctx context.Context, name, steering string) (params.Request, error) {
	taste, err := e.store.PromptContext(ctx, name)
	if err != nil {
		return params.Request{}, err
	}
	recent, err := e.store.RecentParams(ctx, name, 3)
	if err != nil {
		return params.Request{}, err
	}
	req := params.Request{TasteContext: taste, Steering: steering, RecentParams: recent}
	if len(recent) > 0 {
		last := recent[len(recent)-1]
		req.LastParams = &last
	}
	return req, nil
}

// promoteLocked makes the queued track "now playing": it enters station
// history, the clock restarts, and a new generation cycle begins
// immediately.
func (e *Engine) promoteLocked() {
	q := e.queued
	if q == nil {
		return
	}
	e.queued = nil
	e.promoteOnDone = false

	ctx := e.ctx
	if err := e.store.AppendTrack(ctx, e.active, station.Track{
		ID: q.info.ID, File: q.file, Params: q.info.Params,
	}); err != nil {
		e.log.Error("append track failed", zap.String("track", q.info.ID), zap.Error(err))
	}

	e.nowPlaying = &q.info
	e.firstRun = false
	e.paused = false
	e.clock.SetTrack(q.info.ID, time.Duration(q.info.Duration*float64(time.Second)))
	e.stage = StageIdle
	e.bcast.Broadcast(NowPlayingEvent{Station: e.active, Track: q.info, Warnings: q.warnings})

	e.triggerLocked("")
}

func (e *Engine) setStageIfCurrent(epoch int, st Stage) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if epoch == e.epoch {
		e.stage = st
	}
}

func (e *Engine) jobFailed(epoch int, name string, err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if epoch != e.epoch {
		return
	}
	e.log.Warn("generation cycle failed", zap.String("station", name), zap.Error(err))
	e.stage = StageError
	e.retryAt = time.Now().Add(e.opts.RetryBackoff)
	e.bcast.Broadcast(ErrorEvent{Station: name, Message: err.Error()})
}

func (e *Engine) enterDiskFull(name string, free int64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.diskFull = true
	e.stage = StageError
	e.log.Error("disk full, pausing generation", zap.Int64("free_mb", free))
	e.bcast.Broadcast(DiskFullEvent{Station: name, FreeMB: free})
}

func (e *Engine) broadcastPlaybackLocked() {
	e.bcast.Broadcast(PlaybackStateEvent{
		Station: e.active,
		Paused:  e.paused,
		Volume:  e.volume,
		Elapsed: e.clock.Elapsed().Seconds(),
	})
}

func trackFileName(id, tags, format string) string {
	slug := station.Slugify(tags)
	if slug == "" {
		slug = "track"
	}
	return filepath.Base(id + "-" + slug + "." + format)
}
