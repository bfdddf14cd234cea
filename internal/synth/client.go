// Package synth talks to the ACE-Step synthesis service: task submission,
// bounded result polling, and retrieval of the rendered audio file.
package synth

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/pulsefm/pulse/internal/params"
)

// Task status values reported by the service.
const (
	statusRunning = 0
	statusSuccess = 1
	statusFailed  = 2
)

// Client communicates with the ACE-Step REST API.
type Client struct {
	baseURL      string
	apiKey       string
	outputDir    string // shared volume mount point, may be empty
	pollInterval time.Duration
	timeout      time.Duration
	http         *http.Client
	log          *zap.Logger
}

// Options configure a synthesis client.
type Options struct {
	BaseURL      string
	APIKey       string
	OutputDir    string
	PollInterval time.Duration
	Timeout      time.Duration
}

func NewClient(opts Options, log *zap.Logger) *Client {
	if opts.PollInterval <= 0 {
		opts.PollInterval = 2 * time.Second
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Minute
	}
	return &Client{
		baseURL:      opts.BaseURL,
		apiKey:       opts.APIKey,
		outputDir:    opts.OutputDir,
		pollInterval: opts.PollInterval,
		timeout:      opts.Timeout,
		http:         &http.Client{Timeout: 30 * time.Second},
		log:          log,
	}
}

// Request carries the synthesis parameters for one track.
type Request struct {
	Caption        string `json:"caption"`
	Lyrics         string `json:"lyrics"`
	Duration       int    `json:"audio_duration"`
	InferenceSteps int    `json:"inference_steps"`
	Seed           int    `json:"seed"`
	BatchSize      int    `json:"batch_size"`
	AudioFormat    string `json:"audio_format"`
}

// BuildRequest maps generation params onto the service request. Tempo and
// key hints ride in the caption text since the task API takes a single
// free-text description.
func BuildRequest(p params.Params, steps int, format string) Request {
	tsMap := map[int]string{3: "3/4", 4: "4/4", 6: "6/8"}
	caption := fmt.Sprintf("%s | %d BPM | %s | %s", p.Tags, p.BPM, p.KeyScale, tsMap[p.TimeSignature])
	return Request{
		Caption:        caption,
		Lyrics:         p.Lyrics,
		Duration:       p.Duration,
		InferenceSteps: steps,
		Seed:           p.Seed,
		BatchSize:      1,
		AudioFormat:    format,
	}
}

type releaseResp struct {
	Data struct {
		TaskID string `json:"task_id"`
	} `json:"data"`
	Code  int    `json:"code"`
	Error string `json:"error"`
}

type queryResp struct {
	Data []taskResult `json:"data"`
	Code int          `json:"code"`
}

type taskResult struct {
	TaskID string `json:"task_id"`
	Status int    `json:"status"`
	Result string `json:"result"` // JSON string with file info
}

type resultItem struct {
	File   string `json:"file"`
	Status int    `json:"status"`
}

// Healthy reports whether the service responds to its health check.
func (c *Client) Healthy(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return false
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return false
	}
	resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

// WaitForHealthy blocks until the service answers health checks or the
// context ends.
func (c *Client) WaitForHealthy(ctx context.Context) error {
	c.log.Info("waiting for synthesis service", zap.String("url", c.baseURL))
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()
	for {
		if c.Healthy(ctx) {
			c.log.Info("synthesis service healthy")
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// Submit queues a generation task and returns its id.
func (c *Client) Submit(ctx context.Context, req Request) (string, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/release_task", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	c.setHeaders(httpReq)

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("submit task: %w", err)
	}
	defer resp.Body.Close()

	var result releaseResp
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if result.Code != 200 {
		return "", fmt.Errorf("service error (code %d): %s", result.Code, result.Error)
	}
	return result.Data.TaskID, nil
}

// Poll queries one task. done is false while the task is still running.
func (c *Client) Poll(ctx context.Context, taskID string) (file string, done bool, err error) {
	body, _ := json.Marshal(map[string][]string{"task_id_list": {taskID}})

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/query_result", bytes.NewReader(body))
	if err != nil {
		return "", false, fmt.Errorf("create poll request: %w", err)
	}
	c.setHeaders(httpReq)

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return "", false, fmt.Errorf("poll task: %w", err)
	}
	defer resp.Body.Close()

	var result queryResp
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", false, fmt.Errorf("decode poll response: %w", err)
	}
	if len(result.Data) == 0 {
		return "", false, nil
	}

	task := result.Data[0]
	switch task.Status {
	case statusSuccess:
		ref, err := extractFileRef(task.Result)
		if err != nil {
			return "", true, err
		}
		return ref, true, nil
	case statusFailed:
		return "", true, fmt.Errorf("generation failed for task %s", taskID)
	default:
		return "", false, nil
	}
}

// Await submits the request and polls until the track is rendered, fetching
// the audio into dest. onProgress, when non-nil, is called each poll with
// the elapsed time. The wall-clock timeout bounds the whole operation;
// transient poll errors are retried until then.
func (c *Client) Await(ctx context.Context, req Request, dest string, onProgress func(elapsed time.Duration)) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	taskID, err := c.Submit(ctx, req)
	if err != nil {
		return err
	}
	c.log.Debug("synthesis task queued", zap.String("task", taskID))

	start := time.Now()
	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			if ctx.Err() == context.DeadlineExceeded {
				return fmt.Errorf("synthesis timed out after %s", c.timeout)
			}
			return ctx.Err()
		case <-ticker.C:
		}

		if onProgress != nil {
			onProgress(time.Since(start))
		}

		ref, done, err := c.Poll(ctx, taskID)
		if err != nil && !done {
			c.log.Warn("poll failed, retrying", zap.String("task", taskID), zap.Error(err))
			continue
		}
		if err != nil {
			return err
		}
		if !done {
			continue
		}

		if err := c.fetch(ctx, ref, dest); err != nil {
			return err
		}
		c.log.Info("track rendered",
			zap.String("task", taskID),
			zap.Duration("took", time.Since(start)))
		return nil
	}
}

func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
}

// extractFileRef pulls the file reference out of the task result blob.
func extractFileRef(resultJSON string) (string, error) {
	var items []resultItem
	if err := json.Unmarshal([]byte(resultJSON), &items); err != nil {
		return "", fmt.Errorf("parse result items: %w", err)
	}
	if len(items) == 0 || items[0].File == "" {
		return "", fmt.Errorf("no audio file in result")
	}
	return items[0].File, nil
}

// fetch materializes the rendered audio at dest: shared output volume
// first, HTTP download otherwise. References look like
// "/v1/audio?path=outputs/task_xxx/0.mp3".
func (c *Client) fetch(ctx context.Context, fileRef, dest string) error {
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return fmt.Errorf("create track dir: %w", err)
	}

	if c.outputDir != "" {
		if u, err := url.Parse(fileRef); err == nil {
			if relPath := u.Query().Get("path"); relPath != "" {
				local := filepath.Join(c.outputDir, relPath)
				if _, err := os.Stat(local); err == nil {
					return copyFile(local, dest)
				}
			}
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+fileRef, nil)
	if err != nil {
		return fmt.Errorf("create download request: %w", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("download audio: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("download audio: HTTP %d", resp.StatusCode)
	}

	out, err := os.Create(dest)
	if err != nil {
		return fmt.Errorf("create track file: %w", err)
	}
	if _, err := io.Copy(out, resp.Body); err != nil {
		out.Close()
		os.Remove(dest)
		return fmt.Errorf("write track file: %w", err)
	}
	return out.Close()
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
