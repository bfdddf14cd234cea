// Package continuity implements the client-side playback contract: once
// audio has started, something must stay audible. It keeps a bounded
// fallback list of recently played assets, owns the playback slot
// lifecycle, and crossfades between tracks, hard-switching to a fallback
// when an incoming asset fails to start.
package continuity

import (
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Asset is one playable track reference delivered over the sync channel.
type Asset struct {
	TrackID  string
	URL      string
	Duration time.Duration
}

// FallbackList holds the last N successfully played assets, most recent
// last. Replaying the most recent entry is the answer to any playback
// error.
type FallbackList struct {
	max  int
	refs []Asset
}

func NewFallbackList(max int) *FallbackList {
	if max <= 0 {
		max = 5
	}
	return &FallbackList{max: max}
}

// Push records a successfully played asset. A track already present moves
// to the most-recent position instead of duplicating.
func (f *FallbackList) Push(a Asset) {
	for i, r := range f.refs {
		if r.TrackID == a.TrackID {
			f.refs = append(f.refs[:i], f.refs[i+1:]...)
			break
		}
	}
	f.refs = append(f.refs, a)
	if len(f.refs) > f.max {
		f.refs = f.refs[len(f.refs)-f.max:]
	}
}

// MostRecent returns the newest fallback asset.
func (f *FallbackList) MostRecent() (Asset, bool) {
	if len(f.refs) == 0 {
		return Asset{}, false
	}
	return f.refs[len(f.refs)-1], true
}

// Len reports how many assets are cached.
func (f *FallbackList) Len() int { return len(f.refs) }

// Smoothstep is the crossfade gain curve, 3t^2 - 2t^3 for t in [0,1].
func Smoothstep(t float64) float64 {
	if t <= 0 {
		return 0
	}
	if t >= 1 {
		return 1
	}
	return t * t * (3 - 2*t)
}

// FadeGains returns the outgoing and incoming volume for a crossfade at
// the given progress.
func FadeGains(progress float64) (out, in float64) {
	g := Smoothstep(progress)
	return 1 - g, g
}

// SlotState is the lifecycle of a playback slot.
type SlotState int

const (
	SlotEmpty SlotState = iota
	SlotLoading
	SlotPlaying
)

func (s SlotState) String() string {
	switch s {
	case SlotLoading:
		return "loading"
	case SlotPlaying:
		return "playing"
	default:
		return "empty"
	}
}

// Slot is an owned playback element with an explicit attach/detach
// lifecycle; no asset is ever swapped under a live slot.
type Slot struct {
	state SlotState
	asset Asset
}

// Attach binds an asset to an empty slot.
func (s *Slot) Attach(a Asset) error {
	if s.state != SlotEmpty {
		return fmt.Errorf("slot busy: %s holds %s", s.state, s.asset.TrackID)
	}
	s.state = SlotLoading
	s.asset = a
	return nil
}

// Started marks the slot's asset as audibly playing.
func (s *Slot) Started() {
	if s.state == SlotLoading {
		s.state = SlotPlaying
	}
}

// Detach releases the slot for reuse and returns the asset it held.
func (s *Slot) Detach() Asset {
	a := s.asset
	s.state = SlotEmpty
	s.asset = Asset{}
	return a
}

func (s *Slot) State() SlotState { return s.state }
func (s *Slot) Asset() Asset     { return s.asset }

// Starter begins playback of an asset. An error means the asset failed
// to load or start.
type Starter func(Asset) error

// Player drives the continuity algorithm over two slots. All playback
// side effects go through the injected Starter.
type Player struct {
	mu        sync.Mutex
	current   Slot
	incoming  Slot
	fallback  *FallbackList
	clock     *Clock
	crossfade time.Duration
	start     Starter
	log       *zap.Logger
}

func NewPlayer(fallbackSize int, crossfade time.Duration, start Starter, log *zap.Logger) *Player {
	return &Player{
		fallback:  NewFallbackList(fallbackSize),
		clock:     NewClock(),
		crossfade: crossfade,
		start:     start,
		log:       log,
	}
}

// Clock exposes the player's local playback clock.
func (p *Player) Clock() *Clock { return p.clock }

// Crossfade is the configured fade window.
func (p *Player) Crossfade() time.Duration { return p.crossfade }

// Fallbacks exposes the fallback list for inspection.
func (p *Player) Fallbacks() *FallbackList {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.fallback
}

// NowPlaying returns the asset currently audible, if any.
func (p *Player) NowPlaying() (Asset, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.current.State() != SlotPlaying {
		return Asset{}, false
	}
	return p.current.Asset(), true
}

// Play transitions to the given asset, crossfading from whatever is
// audible. If the asset fails to start, the most recent fallback is
// hard-switched in instead; only when that also fails does Play return
// an error.
func (p *Player) Play(a Asset) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.startInto(&p.incoming, a); err != nil {
		p.log.Warn("asset failed to start, using fallback",
			zap.String("track", a.TrackID), zap.Error(err))
		return p.hardSwitchToFallbackLocked()
	}

	// incoming is audible: the old current fades out and detaches.
	if p.current.State() != SlotEmpty {
		p.current.Detach()
	}
	p.current, p.incoming = p.incoming, Slot{}
	p.clock.SetTrack(a.TrackID, a.Duration)
	p.fallback.Push(a)
	return nil
}

// OnPlaybackError handles a mid-play failure of the current asset by
// replaying the most recent fallback.
func (p *Player) OnPlaybackError() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.hardSwitchToFallbackLocked()
}

func (p *Player) startInto(slot *Slot, a Asset) error {
	if err := slot.Attach(a); err != nil {
		return err
	}
	if err := p.start(a); err != nil {
		slot.Detach()
		return err
	}
	slot.Started()
	return nil
}

// hardSwitchToFallbackLocked walks the fallback list newest-first until
// one starts. No crossfade: continuity beats smoothness here.
func (p *Player) hardSwitchToFallbackLocked() error {
	if p.current.State() != SlotEmpty {
		p.current.Detach()
	}
	for p.fallback.Len() > 0 {
		a, _ := p.fallback.MostRecent()
		if err := p.startInto(&p.current, a); err != nil {
			p.log.Warn("fallback asset failed, trying older",
				zap.String("track", a.TrackID), zap.Error(err))
			p.fallback.refs = p.fallback.refs[:len(p.fallback.refs)-1]
			continue
		}
		p.clock.SetTrack(a.TrackID, a.Duration)
		return nil
	}
	return fmt.Errorf("no playable fallback asset")
}
