package reaction

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInterpretSignals(t *testing.T) {
	tests := []struct {
		in   string
		want Signal
	}{
		{"love it", SignalLiked},
		{"this is fire", SignalLiked},
		{"nice one", SignalLiked},
		{"terrible", SignalDisliked},
		{"hate this", SignalDisliked},
		{"skip", SignalSkipped},
		{"next please", SignalSkipped},
		{"more melancholic", SignalNone},
		{"", SignalNone},
	}
	for _, tt := range tests {
		got := Interpret(tt.in)
		assert.Equal(t, tt.want, got.Signal, "input %q", tt.in)
	}
}

func TestInterpretModifiers(t *testing.T) {
	r := Interpret("more bass and less drums")
	assert.ElementsMatch(t, []string{"more bass", "less drums"}, r.Modifiers)
	assert.Equal(t, DirectionTweak, r.Direction)

	r = Interpret("slower and darker")
	assert.ElementsMatch(t, []string{"slower", "darker"}, r.Modifiers)
}

func TestInterpretDirection(t *testing.T) {
	assert.Equal(t, DirectionReset, Interpret("something completely different").Direction)
	assert.Equal(t, DirectionReset, Interpret("surprise me").Direction)
	assert.Equal(t, DirectionTweak, Interpret("more like this").Direction)
}

func TestInterpretCommands(t *testing.T) {
	r := Interpret("save this one")
	assert.Equal(t, CmdSave, r.Command)
	assert.Equal(t, SignalLiked, r.Signal, "saving implies liking")

	assert.Equal(t, CmdQuit, Interpret("quit").Command)
	assert.Equal(t, CmdListRadios, Interpret("list radios").Command)
	assert.Equal(t, CmdHistory, Interpret("show me the history").Command)
	assert.Equal(t, CmdHelp, Interpret("help").Command)
}

func TestInterpretStationCommands(t *testing.T) {
	r := Interpret("switch to my jazz radio")
	assert.Equal(t, CmdSwitchRadio, r.Command)
	assert.Equal(t, "jazz", r.StationName)

	r = Interpret("create a radio called late night drives")
	assert.Equal(t, CmdCreateRadio, r.Command)
	assert.Equal(t, "late-night-drives", r.StationName)

	r = Interpret("delete the workout radio")
	assert.Equal(t, CmdDeleteRadio, r.Command)
	assert.Equal(t, "workout", r.StationName)

	// "remove vocals" must stay a modifier, not a delete command
	r = Interpret("remove vocals")
	assert.Equal(t, CmdNone, r.Command)
	assert.Contains(t, r.Modifiers, "remove vocals")
}

func TestInterpretSleepTimer(t *testing.T) {
	r := Interpret("sleep 30")
	assert.Equal(t, CmdSleepTimer, r.Command)
	assert.Equal(t, 30, r.TimerMinutes)

	r = Interpret("sleep 2h")
	assert.Equal(t, CmdSleepTimer, r.Command)
	assert.Equal(t, 120, r.TimerMinutes)

	assert.Equal(t, CmdCancelSleep, Interpret("cancel sleep").Command)
	assert.Equal(t, CmdCancelSleep, Interpret("sleep off").Command)
	assert.Equal(t, CmdSleepStatus, Interpret("sleep").Command)
}

func TestInterpretMood(t *testing.T) {
	assert.Equal(t, "chill", Interpret("something to relax to").Mood)
	assert.Equal(t, "focus", Interpret("music for deep work").Mood)
	assert.Equal(t, "party", Interpret("club bangers").Mood)
}

func TestIsSteering(t *testing.T) {
	// Free text with no recognized keywords still steers
	r := Interpret("melancholic piano in the rain")
	assert.True(t, r.IsSteering())

	// A bare like keeps the queue
	assert.False(t, Interpret("love it").IsSteering())

	// A dislike always steers
	assert.True(t, Interpret("hate this").IsSteering())

	// Pure command does not steer
	assert.False(t, Interpret("quit").IsSteering())

	assert.False(t, Interpret("").IsSteering())
}

func TestCleanStationName(t *testing.T) {
	assert.Equal(t, "late-night", CleanStationName("  Late Night!  "))
	assert.Equal(t, "jazz", CleanStationName("jazz"))
}
