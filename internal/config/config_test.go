package config

import (
	"os"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	// Clear any env vars that might interfere
	envVars := []string{
		"OLLAMA_HOST", "OLLAMA_MODEL", "OLLAMA_TIMEOUT",
		"ACESTEP_HOST", "ACESTEP_API_KEY", "ACESTEP_OUTPUT_DIR", "ACESTEP_TIMEOUT",
		"PULSE_PORT", "PULSE_DATA_DIR", "PULSE_MIN_FREE_MB",
		"PULSE_TRACK_DURATION", "PULSE_INFERENCE_STEPS", "PULSE_AUDIO_FORMAT",
		"PULSE_LEAD_TIME", "PULSE_POLL_INTERVAL", "PULSE_CROSSFADE",
		"PULSE_FALLBACK_DEPTH", "PULSE_LOG_LEVEL",
	}
	for _, k := range envVars {
		os.Unsetenv(k)
	}

	cfg := Load()

	if cfg.OllamaHost != "http://localhost:11434" {
		t.Errorf("OllamaHost = %q, want default", cfg.OllamaHost)
	}
	if cfg.OllamaModel != "llama3.2:3b" {
		t.Errorf("OllamaModel = %q, want default", cfg.OllamaModel)
	}
	if cfg.ACEStepHost != "http://localhost:8001" {
		t.Errorf("ACEStepHost = %q, want default", cfg.ACEStepHost)
	}
	if cfg.Port != 8080 {
		t.Errorf("Port = %d, want 8080", cfg.Port)
	}
	if cfg.DataDir != "data" {
		t.Errorf("DataDir = %q, want 'data'", cfg.DataDir)
	}
	if cfg.MinFreeMB != 50 {
		t.Errorf("MinFreeMB = %d, want 50", cfg.MinFreeMB)
	}
	if cfg.DefaultDuration != 120 {
		t.Errorf("DefaultDuration = %d, want 120", cfg.DefaultDuration)
	}
	if cfg.LeadTime != 20*time.Second {
		t.Errorf("LeadTime = %v, want 20s", cfg.LeadTime)
	}
	if cfg.PollInterval != 2*time.Second {
		t.Errorf("PollInterval = %v, want 2s", cfg.PollInterval)
	}
	if cfg.Crossfade != 4*time.Second {
		t.Errorf("Crossfade = %v, want 4s", cfg.Crossfade)
	}
	if cfg.FallbackDepth != 3 {
		t.Errorf("FallbackDepth = %d, want 3", cfg.FallbackDepth)
	}
	if cfg.AudioFormat != "mp3" {
		t.Errorf("AudioFormat = %q, want 'mp3'", cfg.AudioFormat)
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("OLLAMA_HOST", "http://ollama:11434")
	t.Setenv("OLLAMA_MODEL", "qwen3:8b")
	t.Setenv("ACESTEP_HOST", "http://acestep:9000")
	t.Setenv("ACESTEP_API_KEY", "test-key-123")
	t.Setenv("ACESTEP_TIMEOUT", "300")
	t.Setenv("PULSE_PORT", "3000")
	t.Setenv("PULSE_TRACK_DURATION", "60")
	t.Setenv("PULSE_LEAD_TIME", "15")
	t.Setenv("PULSE_MIN_FREE_MB", "200")

	cfg := Load()

	if cfg.OllamaHost != "http://ollama:11434" {
		t.Errorf("OllamaHost = %q", cfg.OllamaHost)
	}
	if cfg.OllamaModel != "qwen3:8b" {
		t.Errorf("OllamaModel = %q", cfg.OllamaModel)
	}
	if cfg.ACEStepHost != "http://acestep:9000" {
		t.Errorf("ACEStepHost = %q", cfg.ACEStepHost)
	}
	if cfg.ACEStepAPIKey != "test-key-123" {
		t.Errorf("ACEStepAPIKey = %q", cfg.ACEStepAPIKey)
	}
	if cfg.ACEStepTimeout != 300*time.Second {
		t.Errorf("ACEStepTimeout = %v, want 300s", cfg.ACEStepTimeout)
	}
	if cfg.Port != 3000 {
		t.Errorf("Port = %d, want 3000", cfg.Port)
	}
	if cfg.DefaultDuration != 60 {
		t.Errorf("DefaultDuration = %d, want 60", cfg.DefaultDuration)
	}
	if cfg.LeadTime != 15*time.Second {
		t.Errorf("LeadTime = %v, want 15s", cfg.LeadTime)
	}
	if cfg.MinFreeMB != 200 {
		t.Errorf("MinFreeMB = %d, want 200", cfg.MinFreeMB)
	}
}

func TestEnvIntIgnoresGarbage(t *testing.T) {
	t.Setenv("PULSE_PORT", "not-a-number")
	cfg := Load()
	if cfg.Port != 8080 {
		t.Errorf("Port = %d, want default 8080 on unparsable value", cfg.Port)
	}
}
