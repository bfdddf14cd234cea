package continuity

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func asset(id string) Asset {
	return Asset{TrackID: id, URL: "/audio/default/" + id + ".mp3", Duration: 2 * time.Minute}
}

func TestFallbackListBoundedMostRecentLast(t *testing.T) {
	f := NewFallbackList(3)
	for _, id := range []string{"001", "002", "003", "004"} {
		f.Push(asset(id))
	}
	assert.Equal(t, 3, f.Len())
	got, ok := f.MostRecent()
	require.True(t, ok)
	assert.Equal(t, "004", got.TrackID)
}

func TestFallbackListRepushMoves(t *testing.T) {
	f := NewFallbackList(3)
	f.Push(asset("001"))
	f.Push(asset("002"))
	f.Push(asset("001"))
	assert.Equal(t, 2, f.Len())
	got, _ := f.MostRecent()
	assert.Equal(t, "001", got.TrackID)
}

func TestSmoothstepEndpoints(t *testing.T) {
	assert.Equal(t, 0.0, Smoothstep(-1))
	assert.Equal(t, 0.0, Smoothstep(0))
	assert.Equal(t, 0.5, Smoothstep(0.5))
	assert.Equal(t, 1.0, Smoothstep(1))
	assert.Equal(t, 1.0, Smoothstep(2))

	out, in := FadeGains(0.25)
	assert.InDelta(t, 1.0, out+in, 1e-9)
	assert.Less(t, in, 0.5)
}

func TestSlotLifecycle(t *testing.T) {
	var s Slot
	require.NoError(t, s.Attach(asset("001")))
	assert.Equal(t, SlotLoading, s.State())

	err := s.Attach(asset("002"))
	require.Error(t, err)

	s.Started()
	assert.Equal(t, SlotPlaying, s.State())

	got := s.Detach()
	assert.Equal(t, "001", got.TrackID)
	assert.Equal(t, SlotEmpty, s.State())
	require.NoError(t, s.Attach(asset("002")))
}

func TestPlayerPlaysAndRecordsFallback(t *testing.T) {
	p := NewPlayer(5, 4*time.Second, func(Asset) error { return nil }, zap.NewNop())

	require.NoError(t, p.Play(asset("001")))
	require.NoError(t, p.Play(asset("002")))

	now, ok := p.NowPlaying()
	require.True(t, ok)
	assert.Equal(t, "002", now.TrackID)
	assert.Equal(t, 2, p.Fallbacks().Len())
	assert.Equal(t, "002", p.Clock().TrackID())
}

func TestPlayerFailedStartHardSwitches(t *testing.T) {
	failing := map[string]bool{"003": true}
	p := NewPlayer(5, 4*time.Second, func(a Asset) error {
		if failing[a.TrackID] {
			return errors.New("decode error")
		}
		return nil
	}, zap.NewNop())

	require.NoError(t, p.Play(asset("001")))
	require.NoError(t, p.Play(asset("002")))

	// incoming fails: most recent good track replays
	require.NoError(t, p.Play(asset("003")))
	now, ok := p.NowPlaying()
	require.True(t, ok)
	assert.Equal(t, "002", now.TrackID)
}

func TestPlayerWalksFallbacksOldest(t *testing.T) {
	broken := map[string]bool{"002": true, "003": true}
	p := NewPlayer(5, 0, func(a Asset) error {
		if broken[a.TrackID] {
			return errors.New("gone")
		}
		return nil
	}, zap.NewNop())

	require.NoError(t, p.Play(asset("001")))
	p.Fallbacks().Push(asset("002")) // later corrupted on disk

	require.NoError(t, p.Play(asset("003")))
	now, _ := p.NowPlaying()
	assert.Equal(t, "001", now.TrackID)
}

func TestPlayerNoFallbackErrors(t *testing.T) {
	p := NewPlayer(5, 0, func(Asset) error { return errors.New("nope") }, zap.NewNop())
	err := p.Play(asset("001"))
	require.Error(t, err)
}

func TestPlayerOnPlaybackErrorReplays(t *testing.T) {
	var started []string
	p := NewPlayer(5, 0, func(a Asset) error {
		started = append(started, a.TrackID)
		return nil
	}, zap.NewNop())

	require.NoError(t, p.Play(asset("001")))
	require.NoError(t, p.OnPlaybackError())
	assert.Equal(t, []string{"001", "001"}, started)
}

func TestClockLocalAuthoritative(t *testing.T) {
	c := NewClock()
	now := time.Unix(0, 0)
	c.now = func() time.Time { return now }

	c.SetTrack("001", 2*time.Minute)
	now = now.Add(10 * time.Second)
	assert.Equal(t, 10*time.Second, c.Elapsed())

	// mid-track server tick disagrees: ignored
	c.ObserveTick("001", 55*time.Second, 2*time.Minute)
	assert.Equal(t, 10*time.Second, c.Elapsed())

	// track-change tick reconciles
	c.ObserveTick("002", 3*time.Second, time.Minute)
	assert.Equal(t, "002", c.TrackID())
	assert.Equal(t, 3*time.Second, c.Elapsed())
}

func TestClockPauseResumeSeek(t *testing.T) {
	c := NewClock()
	now := time.Unix(0, 0)
	c.now = func() time.Time { return now }

	c.SetTrack("001", time.Minute)
	now = now.Add(5 * time.Second)
	c.Pause()
	assert.True(t, c.Paused())
	now = now.Add(30 * time.Second)
	assert.Equal(t, 5*time.Second, c.Elapsed())

	c.Resume()
	now = now.Add(2 * time.Second)
	assert.Equal(t, 7*time.Second, c.Elapsed())

	c.Seek(50 * time.Second)
	now = now.Add(20 * time.Second)
	assert.Equal(t, time.Minute, c.Elapsed(), "capped at duration")
}
