package synth

import (
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"
)

// ProbeDuration reads a rendered file's real duration with ffprobe. The
// service occasionally renders slightly shorter or longer than requested,
// and playback scheduling needs the true length.
func ProbeDuration(path string) (time.Duration, error) {
	cmd := exec.Command("ffprobe",
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		path,
	)
	out, err := cmd.Output()
	if err != nil {
		return 0, fmt.Errorf("ffprobe %s: %w", path, err)
	}

	secs, err := strconv.ParseFloat(strings.TrimSpace(string(out)), 64)
	if err != nil {
		return 0, fmt.Errorf("parse ffprobe output %q: %w", out, err)
	}
	return time.Duration(secs * float64(time.Second)), nil
}
