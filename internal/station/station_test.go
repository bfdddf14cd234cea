package station

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/pulsefm/pulse/internal/params"
)

func newStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(context.Background(), t.TempDir(), zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func testParams(tags string, bpm int) params.Params {
	return params.Params{
		Tags:          tags,
		Lyrics:        params.InstrumentalLyrics,
		BPM:           bpm,
		KeyScale:      "A Minor",
		TimeSignature: 4,
		VocalLanguage: "en",
		Instrumental:  true,
		Rationale:     "test",
	}
}

func TestFirstRun(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	require.NoError(t, s.EnsureStation(ctx, "jazzcafe"))

	first, err := s.IsFirstRun(ctx, "jazzcafe")
	require.NoError(t, err)
	assert.True(t, first)

	require.NoError(t, s.AddNote(ctx, "jazzcafe", "no vocals ever"))
	first, err = s.IsFirstRun(ctx, "jazzcafe")
	require.NoError(t, err)
	assert.False(t, first)
}

func TestNotesAccumulateWithoutDuplicates(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	require.NoError(t, s.EnsureStation(ctx, "a"))

	require.NoError(t, s.AddNote(ctx, "a", "more bass"))
	require.NoError(t, s.AddNote(ctx, "a", "no edm"))
	require.NoError(t, s.AddNote(ctx, "a", "more bass"))
	require.NoError(t, s.AddNote(ctx, "a", "  "))

	notes, err := s.Notes(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, []string{"more bass", "no edm"}, notes)
}

func TestReactionWindowTrims(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	require.NoError(t, s.EnsureStation(ctx, "a"))

	for i := 0; i < MaxLikedHistory+5; i++ {
		p := testParams(fmt.Sprintf("tag%d", i), 100)
		require.NoError(t, s.AddReaction(ctx, "a", SignalLiked, p))
	}

	liked, err := s.Reactions(ctx, "a", SignalLiked, 0)
	require.NoError(t, err)
	require.Len(t, liked, MaxLikedHistory)
	assert.Equal(t, "tag5", liked[0].Tags)
	assert.Equal(t, fmt.Sprintf("tag%d", MaxLikedHistory+4), liked[len(liked)-1].Tags)
}

func TestAddReactionIgnoresNeutral(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	require.NoError(t, s.EnsureStation(ctx, "a"))

	require.NoError(t, s.AddReaction(ctx, "a", "", testParams("x", 100)))
	liked, err := s.Reactions(ctx, "a", SignalLiked, 0)
	require.NoError(t, err)
	assert.Empty(t, liked)
}

func TestPromptContext(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	require.NoError(t, s.EnsureStation(ctx, "nightdrive"))
	require.NoError(t, s.AddNote(ctx, "nightdrive", "always instrumental"))
	require.NoError(t, s.AddReaction(ctx, "nightdrive", SignalLiked, testParams("synthwave, dreamy", 110)))
	require.NoError(t, s.AddReaction(ctx, "nightdrive", SignalDisliked, testParams("trap, dark", 140)))
	require.NoError(t, s.SetDirection(ctx, "nightdrive", "slower and warmer"))

	got, err := s.PromptContext(ctx, "nightdrive")
	require.NoError(t, err)
	assert.Contains(t, got, "Radio: nightdrive")
	assert.Contains(t, got, "always instrumental")
	assert.Contains(t, got, "synthwave, dreamy | 110 BPM | A Minor")
	assert.Contains(t, got, "Disliked tracks")
	assert.Contains(t, got, "trap, dark")
	assert.Contains(t, got, "Current direction: slower and warmer")
	assert.Contains(t, got, "Tracks generated so far: 0")
}

func TestTrackLifecycle(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	require.NoError(t, s.EnsureStation(ctx, "a"))

	id, err := s.NextTrackID(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "001", id)

	require.NoError(t, s.AppendTrack(ctx, "a", Track{
		ID: id, File: "001-ambient.mp3", Params: testParams("ambient", 72),
	}))

	id, err = s.NextTrackID(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "002", id)

	require.NoError(t, s.AppendTrack(ctx, "a", Track{
		ID: id, File: "002-jazz.mp3", Params: testParams("jazz", 92),
	}))

	hist, err := s.History(ctx, "a", 10)
	require.NoError(t, err)
	require.Len(t, hist, 2)
	assert.Equal(t, "002", hist[0].ID)
	assert.Equal(t, "001", hist[1].ID)
	assert.Equal(t, "jazz", hist[0].Params.Tags)
}

func TestSetTrackReactionOverwrites(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	require.NoError(t, s.EnsureStation(ctx, "a"))
	require.NoError(t, s.AppendTrack(ctx, "a", Track{ID: "001", File: "f.mp3", Params: testParams("x", 100)}))

	require.NoError(t, s.SetTrackReaction(ctx, "a", "001", SignalSkipped))
	require.NoError(t, s.SetTrackReaction(ctx, "a", "001", SignalLiked))

	hist, err := s.History(ctx, "a", 1)
	require.NoError(t, err)
	assert.Equal(t, SignalLiked, hist[0].Reaction)

	err = s.SetTrackReaction(ctx, "a", "999", SignalLiked)
	require.Error(t, err)
}

func TestMarkFavoriteCopiesAudio(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	require.NoError(t, s.EnsureStation(ctx, "a"))
	require.NoError(t, s.AppendTrack(ctx, "a", Track{ID: "001", File: "001-x.mp3", Params: testParams("x", 100)}))
	require.NoError(t, os.WriteFile(s.TrackPath("a", "001-x.mp3"), []byte("audio"), 0o644))

	require.NoError(t, s.MarkFavorite(ctx, "a", "001"))

	hist, err := s.History(ctx, "a", 1)
	require.NoError(t, err)
	assert.True(t, hist[0].Favorite)

	data, err := os.ReadFile(filepath.Join(s.FavoritesDir("a"), "001-x.mp3"))
	require.NoError(t, err)
	assert.Equal(t, "audio", string(data))
}

func TestRecentParamsGenerationOrder(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	require.NoError(t, s.EnsureStation(ctx, "a"))
	for i, tags := range []string{"first", "second", "third", "fourth"} {
		require.NoError(t, s.AppendTrack(ctx, "a", Track{
			ID: fmt.Sprintf("%03d", i+1), File: "f.mp3", Params: testParams(tags, 100),
		}))
	}

	recent, err := s.RecentParams(ctx, "a", 3)
	require.NoError(t, err)
	require.Len(t, recent, 3)
	assert.Equal(t, "second", recent[0].Tags)
	assert.Equal(t, "fourth", recent[2].Tags)
}

func TestResetKeepsTracks(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	require.NoError(t, s.EnsureStation(ctx, "a"))
	require.NoError(t, s.AddNote(ctx, "a", "note"))
	require.NoError(t, s.AddReaction(ctx, "a", SignalLiked, testParams("x", 100)))
	require.NoError(t, s.AppendTrack(ctx, "a", Track{ID: "001", File: "f.mp3", Params: testParams("x", 100)}))

	require.NoError(t, s.Reset(ctx, "a"))

	notes, err := s.Notes(ctx, "a")
	require.NoError(t, err)
	assert.Empty(t, notes)
	liked, err := s.Reactions(ctx, "a", SignalLiked, 0)
	require.NoError(t, err)
	assert.Empty(t, liked)

	hist, err := s.History(ctx, "a", 10)
	require.NoError(t, err)
	assert.Len(t, hist, 1)

	id, err := s.NextTrackID(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "001", id)
}

func TestCleanKeepsTaste(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	require.NoError(t, s.EnsureStation(ctx, "a"))
	require.NoError(t, s.AddNote(ctx, "a", "keep me"))
	require.NoError(t, s.AppendTrack(ctx, "a", Track{ID: "001", File: "001-x.mp3", Params: testParams("x", 100)}))
	require.NoError(t, os.WriteFile(s.TrackPath("a", "001-x.mp3"), []byte("audio"), 0o644))

	require.NoError(t, s.Clean(ctx, "a"))

	hist, err := s.History(ctx, "a", 10)
	require.NoError(t, err)
	assert.Empty(t, hist)
	_, err = os.Stat(s.TrackPath("a", "001-x.mp3"))
	assert.True(t, os.IsNotExist(err))

	notes, err := s.Notes(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, []string{"keep me"}, notes)
}

func TestCurrentStationDefaults(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	cur, err := s.CurrentStation(ctx)
	require.NoError(t, err)
	assert.Equal(t, DefaultStation, cur)

	require.NoError(t, s.SetCurrent(ctx, "nightdrive"))
	cur, err = s.CurrentStation(ctx)
	require.NoError(t, err)
	assert.Equal(t, "nightdrive", cur)

	names, err := s.ListStations(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{DefaultStation, "nightdrive"}, names)
}

func TestDeleteStationResetsCurrent(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	require.NoError(t, s.SetCurrent(ctx, "doomed"))
	require.NoError(t, os.WriteFile(filepath.Join(s.TracksDir("doomed"), "x.mp3"), []byte("a"), 0o644))

	require.NoError(t, s.DeleteStation(ctx, "doomed"))

	cur, err := s.CurrentStation(ctx)
	require.NoError(t, err)
	assert.Equal(t, DefaultStation, cur)
	_, err = os.Stat(s.StationDir("doomed"))
	assert.True(t, os.IsNotExist(err))
}

func TestSlugify(t *testing.T) {
	assert.Equal(t, "indie-rock-dreamy-electric-guitar", Slugify("indie rock, dreamy, electric guitar!"))
	assert.Equal(t, "", Slugify("!!!"))
	long := Slugify("a very long tags string that keeps going and going and going forever")
	assert.LessOrEqual(t, len(long), 40)
}

func TestDiskFreeMB(t *testing.T) {
	s := newStore(t)
	free, err := s.DiskFreeMB()
	require.NoError(t, err)
	assert.Greater(t, free, int64(0))
}

func TestRemoveNote(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	require.NoError(t, s.EnsureStation(ctx, "a"))

	require.NoError(t, s.AddNote(ctx, "a", "more bass"))
	require.NoError(t, s.AddNote(ctx, "a", "no edm"))
	require.NoError(t, s.RemoveNote(ctx, "a", "more bass"))

	notes, err := s.Notes(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, []string{"no edm"}, notes)

	// removing an unknown note is not an error
	require.NoError(t, s.RemoveNote(ctx, "a", "never recorded"))
}

func TestGenerationStatsAggregate(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	require.NoError(t, s.EnsureStation(ctx, "a"))

	empty, err := s.GenerationStats(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, 0, empty.Count)

	require.NoError(t, s.RecordTiming(ctx, "a", Timing{
		TrackID: "001", LLM: 2 * time.Second, Synth: 30 * time.Second, Total: 33 * time.Second,
	}))
	require.NoError(t, s.RecordTiming(ctx, "a", Timing{
		TrackID: "002", LLM: 4 * time.Second, Synth: 50 * time.Second, Total: 55 * time.Second,
	}))

	stats, err := s.GenerationStats(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Count)
	assert.InDelta(t, 3.0, stats.AvgLLM, 0.001)
	assert.InDelta(t, 40.0, stats.AvgSynth, 0.001)
	assert.InDelta(t, 44.0, stats.AvgTotal, 0.001)
	assert.InDelta(t, 55.0, stats.MaxTotal, 0.001)
}

func TestHistoryOrdersNumericallyPastPaddingWidth(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	require.NoError(t, s.EnsureStation(ctx, "a"))

	for i, id := range []string{"998", "999", "1000", "1001"} {
		require.NoError(t, s.AppendTrack(ctx, "a", Track{
			ID:     id,
			File:   id + ".mp3",
			Params: testParams(fmt.Sprintf("tag%d", i), 90+i),
		}))
	}

	// lexicographic ordering would put "999" ahead of "1001"
	hist, err := s.History(ctx, "a", 10)
	require.NoError(t, err)
	require.Len(t, hist, 4)
	var ids []string
	for _, tr := range hist {
		ids = append(ids, tr.ID)
	}
	assert.Equal(t, []string{"1001", "1000", "999", "998"}, ids)

	recent, err := s.RecentParams(ctx, "a", 2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, "tag2", recent[0].Tags)
	assert.Equal(t, "tag3", recent[1].Tags)
}
