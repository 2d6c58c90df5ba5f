package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/dgnsrekt/chartwindow/internal/window"
)

// Prefs backends.
const (
	PrefsFile   = "file"
	PrefsSQLite = "sqlite"
	PrefsMemory = "memory"
)

// Config holds all configuration for the chart window server.
type Config struct {
	// Historical data endpoint
	DataURL      string
	DataToken    string
	FetchTimeout time.Duration

	// Live quote feed. Empty FeedURL disables streaming.
	FeedURL        string
	FeedMinBackoff time.Duration
	FeedMaxBackoff time.Duration

	// HTTP listener
	BindAddr         string
	PortCandidates   []string
	PortAutoFallback bool

	LogLevel string
	LogFile  string

	PrefsBackend string
	PrefsPath    string

	// Bar tape. Empty TapeDir disables recording.
	TapeDir        string
	TapeBufferSize int
	TapeMaxSizeMB  int

	SessionsFile string

	// Windowing
	BufferSize     int
	DefaultWindow  int
	LoadMargin     int
	EndOfDataRatio float64
	Cooldown       time.Duration
	PrunePolicy    string
}

// Load reads configuration from environment variables and optional .env file.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Debug("failed to load .env file", "error", err)
	}

	d := window.DefaultOptions()
	cfg := &Config{
		DataURL:          getEnvOrDefault("CHARTWINDOW_DATA_URL", "http://127.0.0.1:8080"),
		DataToken:        os.Getenv("CHARTWINDOW_DATA_TOKEN"),
		FetchTimeout:     getEnvDurationOrDefault("CHARTWINDOW_FETCH_TIMEOUT", d.FetchTimeout),
		FeedURL:          os.Getenv("CHARTWINDOW_FEED_URL"),
		FeedMinBackoff:   getEnvDurationOrDefault("CHARTWINDOW_FEED_MIN_BACKOFF", time.Second),
		FeedMaxBackoff:   getEnvDurationOrDefault("CHARTWINDOW_FEED_MAX_BACKOFF", 30*time.Second),
		BindAddr:         getEnvOrDefault("CHARTWINDOW_BIND_ADDR", "127.0.0.1:8190"),
		PortCandidates:   splitList(getEnvOrDefault("CHARTWINDOW_PORT_CANDIDATES", "127.0.0.1:8191,127.0.0.1:8192,127.0.0.1:8193")),
		PortAutoFallback: getEnvBoolOrDefault("CHARTWINDOW_PORT_AUTO_FALLBACK", true),
		LogLevel:         strings.ToLower(getEnvOrDefault("CHARTWINDOW_LOG_LEVEL", "info")),
		LogFile:          getEnvOrDefault("CHARTWINDOW_LOG_FILE", "logs/chartwindow.log"),
		PrefsBackend:     strings.ToLower(getEnvOrDefault("CHARTWINDOW_PREFS_BACKEND", PrefsFile)),
		PrefsPath:        getEnvOrDefault("CHARTWINDOW_PREFS_PATH", "./data/prefs.json"),
		TapeDir:          os.Getenv("CHARTWINDOW_TAPE_DIR"),
		TapeBufferSize:   getEnvIntOrDefault("CHARTWINDOW_TAPE_BUFFER_SIZE", 1000),
		TapeMaxSizeMB:    getEnvIntOrDefault("CHARTWINDOW_TAPE_MAX_SIZE_MB", 100),
		SessionsFile:     getEnvOrDefault("CHARTWINDOW_SESSIONS_FILE", "./config/sessions.yaml"),
		BufferSize:       getEnvIntOrDefault("CHARTWINDOW_BUFFER_SIZE", d.BufferSize),
		DefaultWindow:    getEnvIntOrDefault("CHARTWINDOW_DEFAULT_WINDOW", d.DefaultWindow),
		LoadMargin:       getEnvIntOrDefault("CHARTWINDOW_LOAD_MARGIN", d.LoadMargin),
		EndOfDataRatio:   getEnvFloatOrDefault("CHARTWINDOW_END_OF_DATA_RATIO", d.EndOfDataRatio),
		Cooldown:         getEnvDurationOrDefault("CHARTWINDOW_COOLDOWN", d.Cooldown),
		PrunePolicy:      strings.ToLower(getEnvOrDefault("CHARTWINDOW_PRUNE_POLICY", string(d.PrunePolicy))),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.PrefsBackend {
	case PrefsFile, PrefsSQLite, PrefsMemory:
	default:
		return fmt.Errorf("config: CHARTWINDOW_PREFS_BACKEND %q is not one of file, sqlite, memory", c.PrefsBackend)
	}
	switch window.PrunePolicy(c.PrunePolicy) {
	case window.PruneAnchorStart, window.PruneAnchorCenter:
	default:
		return fmt.Errorf("config: CHARTWINDOW_PRUNE_POLICY %q is not one of start, center", c.PrunePolicy)
	}
	if c.BufferSize < 1 {
		return fmt.Errorf("config: CHARTWINDOW_BUFFER_SIZE must be positive")
	}
	if c.DefaultWindow < 1 {
		return fmt.Errorf("config: CHARTWINDOW_DEFAULT_WINDOW must be positive")
	}
	if c.LoadMargin < 0 {
		return fmt.Errorf("config: CHARTWINDOW_LOAD_MARGIN must not be negative")
	}
	if c.EndOfDataRatio <= 0 || c.EndOfDataRatio >= 1 {
		return fmt.Errorf("config: CHARTWINDOW_END_OF_DATA_RATIO must be in (0, 1)")
	}
	if c.FeedMaxBackoff < c.FeedMinBackoff {
		c.FeedMaxBackoff = c.FeedMinBackoff
	}
	return nil
}

// WindowOptions returns the session options described by c.
func (c *Config) WindowOptions() window.Options {
	o := window.DefaultOptions()
	o.BufferSize = c.BufferSize
	o.DefaultWindow = c.DefaultWindow
	o.LoadMargin = c.LoadMargin
	o.EndOfDataRatio = c.EndOfDataRatio
	o.Cooldown = c.Cooldown
	o.FetchTimeout = c.FetchTimeout
	o.PrunePolicy = window.PrunePolicy(c.PrunePolicy)
	return o
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func getEnvOrDefault(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvIntOrDefault(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvFloatOrDefault(key string, defaultVal float64) float64 {
	if val := os.Getenv(key); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			return f
		}
	}
	return defaultVal
}

func getEnvBoolOrDefault(key string, defaultVal bool) bool {
	if val := os.Getenv(key); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			return b
		}
	}
	return defaultVal
}

func getEnvDurationOrDefault(key string, defaultVal time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	}
	return defaultVal
}
