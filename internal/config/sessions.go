package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/dgnsrekt/chartwindow/internal/types"
)

// SessionEntry describes a chart session to open at startup.
type SessionEntry struct {
	Symbol    string `yaml:"symbol"`
	Timeframe string `yaml:"timeframe"`
	Live      bool   `yaml:"live"`
}

// SessionsConfig is the top-level YAML configuration for startup sessions.
type SessionsConfig struct {
	Sessions []SessionEntry `yaml:"sessions"`
}

// LoadSessions reads and validates a sessions YAML config file.
// Returns an os.ErrNotExist-wrapped error if the file is absent (caller
// silently skips in that case).
func LoadSessions(path string) (*SessionsConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("sessions config: %w", err)
	}
	var cfg SessionsConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("sessions config: %w", err)
	}
	if len(cfg.Sessions) < 1 {
		return nil, fmt.Errorf("sessions config: at least one session entry is required")
	}
	for i, s := range cfg.Sessions {
		if s.Symbol == "" {
			return nil, fmt.Errorf("sessions config: sessions[%d] missing symbol", i)
		}
		if s.Timeframe == "" {
			continue
		}
		if _, err := types.ParseTimeframe(s.Timeframe); err != nil {
			return nil, fmt.Errorf("sessions config: sessions[%d]: %w", i, err)
		}
	}
	return &cfg, nil
}
