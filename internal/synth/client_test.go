package synth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/pulsefm/pulse/internal/params"
)

// fakeService simulates the synthesis API: a task submitted via
// /release_task reports running for pollsUntilDone queries, then success
// with a downloadable file.
func fakeService(t *testing.T, pollsUntilDone int32, audio []byte) *httptest.Server {
	t.Helper()
	var polls int32

	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/release_task", func(w http.ResponseWriter, _ *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"code": 200,
			"data": map[string]string{"task_id": "task-1"},
		})
	})
	mux.HandleFunc("/query_result", func(w http.ResponseWriter, _ *http.Request) {
		status := statusRunning
		result := ""
		if atomic.AddInt32(&polls, 1) > pollsUntilDone {
			status = statusSuccess
			result = `[{"file": "/v1/audio?path=outputs/task-1/0.mp3", "status": 1}]`
		}
		json.NewEncoder(w).Encode(map[string]any{
			"code": 200,
			"data": []map[string]any{{"task_id": "task-1", "status": status, "result": result}},
		})
	})
	mux.HandleFunc("/v1/audio", func(w http.ResponseWriter, _ *http.Request) {
		w.Write(audio)
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newTestClient(t *testing.T, baseURL, outputDir string) *Client {
	t.Helper()
	return NewClient(Options{
		BaseURL:      baseURL,
		OutputDir:    outputDir,
		PollInterval: 5 * time.Millisecond,
		Timeout:      2 * time.Second,
	}, zap.NewNop())
}

func TestAwaitDownloadsAudio(t *testing.T) {
	srv := fakeService(t, 2, []byte("mp3data"))
	c := newTestClient(t, srv.URL, "")
	dest := filepath.Join(t.TempDir(), "tracks", "001-test.mp3")

	var progressCalls int
	err := c.Await(context.Background(), Request{Caption: "ambient"}, dest, func(time.Duration) {
		progressCalls++
	})
	require.NoError(t, err)

	data, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, "mp3data", string(data))
	assert.GreaterOrEqual(t, progressCalls, 2)
}

func TestAwaitPrefersSharedVolume(t *testing.T) {
	outputDir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(outputDir, "outputs", "task-1"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(outputDir, "outputs", "task-1", "0.mp3"), []byte("shared"), 0o644))

	srv := fakeService(t, 0, []byte("downloaded"))
	c := newTestClient(t, srv.URL, outputDir)
	dest := filepath.Join(t.TempDir(), "001.mp3")

	require.NoError(t, c.Await(context.Background(), Request{}, dest, nil))

	data, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, "shared", string(data))
}

func TestAwaitReportsFailure(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/release_task", func(w http.ResponseWriter, _ *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"code": 200, "data": map[string]string{"task_id": "t"}})
	})
	mux.HandleFunc("/query_result", func(w http.ResponseWriter, _ *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"code": 200,
			"data": []map[string]any{{"task_id": "t", "status": statusFailed}},
		})
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	c := newTestClient(t, srv.URL, "")
	err := c.Await(context.Background(), Request{}, filepath.Join(t.TempDir(), "x.mp3"), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "generation failed")
}

func TestAwaitTimesOut(t *testing.T) {
	srv := fakeService(t, 1<<30, nil) // never completes
	c := NewClient(Options{
		BaseURL:      srv.URL,
		PollInterval: 5 * time.Millisecond,
		Timeout:      50 * time.Millisecond,
	}, zap.NewNop())

	err := c.Await(context.Background(), Request{}, filepath.Join(t.TempDir(), "x.mp3"), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "timed out")
}

func TestSubmitRejectsServiceError(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/release_task", func(w http.ResponseWriter, _ *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"code": 500, "error": "gpu busy"})
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	c := newTestClient(t, srv.URL, "")
	_, err := c.Submit(context.Background(), Request{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "gpu busy")
}

func TestHealthy(t *testing.T) {
	srv := fakeService(t, 0, nil)
	c := newTestClient(t, srv.URL, "")
	assert.True(t, c.Healthy(context.Background()))

	srv.Close()
	assert.False(t, c.Healthy(context.Background()))
}

func TestBuildRequest(t *testing.T) {
	p := params.Params{
		Tags:          "ambient, dreamy, piano",
		Lyrics:        params.InstrumentalLyrics,
		BPM:           72,
		KeyScale:      "A Minor",
		TimeSignature: 4,
		Instrumental:  true,
		Seed:          42,
		Duration:      120,
	}
	req := BuildRequest(p, 27, "mp3")
	assert.Equal(t, "ambient, dreamy, piano | 72 BPM | A Minor | 4/4", req.Caption)
	assert.Equal(t, params.InstrumentalLyrics, req.Lyrics)
	assert.Equal(t, 120, req.Duration)
	assert.Equal(t, 27, req.InferenceSteps)
	assert.Equal(t, 42, req.Seed)
	assert.Equal(t, 1, req.BatchSize)
	assert.Equal(t, "mp3", req.AudioFormat)
}
