package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all runtime configuration, loaded from environment variables.
type Config struct {
	// Ollama (parameter inference)
	OllamaHost    string
	OllamaModel   string
	OllamaTimeout time.Duration

	// ACE-Step (audio synthesis)
	ACEStepHost      string
	ACEStepAPIKey    string
	ACEStepOutputDir string
	ACEStepTimeout   time.Duration

	// Server
	Port int

	// Storage
	DataDir   string
	MinFreeMB int // below this, generation pauses for the station

	// Radio behavior
	DefaultDuration int           // seconds of audio per generated track
	InferenceSteps  int           // diffusion steps
	AudioFormat     string        // mp3, flac, wav
	LeadTime        time.Duration // start next generation this long before track end
	PollInterval    time.Duration // synthesis progress poll cadence
	Crossfade       time.Duration // client crossfade window
	FallbackDepth   int           // client-side fallback list size

	// Logging
	LogLevel string
}

// Load reads configuration from the environment with sane defaults.
// A .env file in the working directory is applied first if present.
func Load() Config {
	_ = godotenv.Load()

	return Config{
		OllamaHost:    envStr("OLLAMA_HOST", "http://localhost:11434"),
		OllamaModel:   envStr("OLLAMA_MODEL", "llama3.2:3b"),
		OllamaTimeout: envDur("OLLAMA_TIMEOUT", 90*time.Second),

		ACEStepHost:      envStr("ACESTEP_HOST", "http://localhost:8001"),
		ACEStepAPIKey:    envStr("ACESTEP_API_KEY", ""),
		ACEStepOutputDir: envStr("ACESTEP_OUTPUT_DIR", ""),
		ACEStepTimeout:   envDur("ACESTEP_TIMEOUT", 10*time.Minute),

		Port: envInt("PULSE_PORT", 8080),

		DataDir:   envStr("PULSE_DATA_DIR", "data"),
		MinFreeMB: envInt("PULSE_MIN_FREE_MB", 50),

		DefaultDuration: envInt("PULSE_TRACK_DURATION", 120),
		InferenceSteps:  envInt("PULSE_INFERENCE_STEPS", 27),
		AudioFormat:     envStr("PULSE_AUDIO_FORMAT", "mp3"),
		LeadTime:        envDur("PULSE_LEAD_TIME", 20*time.Second),
		PollInterval:    envDur("PULSE_POLL_INTERVAL", 2*time.Second),
		Crossfade:       envDur("PULSE_CROSSFADE", 4*time.Second),
		FallbackDepth:   envInt("PULSE_FALLBACK_DEPTH", 3),

		LogLevel: envStr("PULSE_LOG_LEVEL", "info"),
	}
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

// envDur reads a duration given in whole seconds.
func envDur(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return time.Duration(n) * time.Second
		}
	}
	return fallback
}
