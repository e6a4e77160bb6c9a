package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// ---------------------------------------------------------------------------
// Configuration structs
// ---------------------------------------------------------------------------

// Config is the top-level configuration for the explorer server.
type Config struct {
	Storage  Storage  `yaml:"storage"`
	Server   Server   `yaml:"server"`
	Alpaca   Alpaca   `yaml:"alpaca"`
	LLM      LLM      `yaml:"llm"`
	Detector Detector `yaml:"detector"`
	Popover  Popover  `yaml:"popover"`
	Sessions Sessions `yaml:"sessions"`
	Archive  Archive  `yaml:"archive"`
	Logging  Logging  `yaml:"logging"`
}

// Storage holds paths for data persistence.
type Storage struct {
	DataDir    string `yaml:"data_dir"`
	SQLitePath string `yaml:"sqlite_path"`
}

// Server holds network listener configuration.
type Server struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// Alpaca holds credentials and endpoints for the Alpaca market-data API.
type Alpaca struct {
	APIKey    string `yaml:"api_key"`
	APISecret string `yaml:"api_secret"`
	DataURL   string `yaml:"data_url"`
}

// LLM configures the OpenAI-compatible summarization backend. An empty API
// key disables summaries; news search still works without them.
type LLM struct {
	APIKey  string `yaml:"api_key"`
	BaseURL string `yaml:"base_url"`
	Model   string `yaml:"model"`
}

// Detector tunes the extremum scan on loaded series.
type Detector struct {
	LeftWindow       int     `yaml:"left_window"`
	RightWindow      int     `yaml:"right_window"`
	MinProminencePct float64 `yaml:"min_prominence_pct"`
}

// Popover holds the default popover geometry the frontend can override per
// request.
type Popover struct {
	Width   float64 `yaml:"width"`
	Margin  float64 `yaml:"margin"`
	OffsetY float64 `yaml:"offset_y"`
}

// Sessions controls explorer session expiry.
type Sessions struct {
	MaxIdle       time.Duration `yaml:"max_idle"`
	SweepInterval time.Duration `yaml:"sweep_interval"`
}

// Archive configures the recurring series archive job. An empty symbol list
// disables it.
type Archive struct {
	Symbols  []string `yaml:"symbols"`
	Schedule string   `yaml:"schedule"` // cron expression
}

// Logging configures the application logger.
type Logging struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// ---------------------------------------------------------------------------
// Loading
// ---------------------------------------------------------------------------

// Load reads the YAML configuration file at the given path, parses it into a
// Config struct, applies environment variable overrides, and fills defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	applyEnvOverrides(cfg)
	applyDefaults(cfg)

	return cfg, nil
}

// applyEnvOverrides checks well-known environment variables and overrides the
// corresponding configuration fields when they are set.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("DATA_DIR"); v != "" {
		cfg.Storage.DataDir = v
	}
	if v := os.Getenv("SQLITE_PATH"); v != "" {
		cfg.Storage.SQLitePath = v
	}

	if v := os.Getenv("ALPACA_API_KEY"); v != "" {
		cfg.Alpaca.APIKey = v
	}
	if v := os.Getenv("ALPACA_API_SECRET"); v != "" {
		cfg.Alpaca.APISecret = v
	}
	if v := os.Getenv("ALPACA_DATA_URL"); v != "" {
		cfg.Alpaca.DataURL = v
	}

	if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		cfg.LLM.APIKey = v
	}
	if v := os.Getenv("OPENAI_BASE_URL"); v != "" {
		cfg.LLM.BaseURL = v
	}
	if v := os.Getenv("LLM_MODEL"); v != "" {
		cfg.LLM.Model = v
	}

	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}

	// Standard Alpaca env vars (highest priority — canonical names used by SDK).
	if v := os.Getenv("APCA_API_KEY_ID"); v != "" {
		cfg.Alpaca.APIKey = v
	}
	if v := os.Getenv("APCA_API_SECRET_KEY"); v != "" {
		cfg.Alpaca.APISecret = v
	}
}

// applyDefaults fills zero-valued fields with sensible defaults so a minimal
// YAML file is enough to boot the server.
func applyDefaults(cfg *Config) {
	if cfg.Storage.DataDir == "" {
		cfg.Storage.DataDir = "data"
	}
	if cfg.Storage.SQLitePath == "" {
		cfg.Storage.SQLitePath = "data/explorer.db"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Detector.LeftWindow == 0 {
		cfg.Detector.LeftWindow = 4
	}
	if cfg.Detector.RightWindow == 0 {
		cfg.Detector.RightWindow = 4
	}
	if cfg.Detector.MinProminencePct == 0 {
		cfg.Detector.MinProminencePct = 2.0
	}
	if cfg.Popover.Width == 0 {
		cfg.Popover.Width = 280
	}
	if cfg.Popover.Margin == 0 {
		cfg.Popover.Margin = 12
	}
	if cfg.Popover.OffsetY == 0 {
		cfg.Popover.OffsetY = 16
	}
	if cfg.Sessions.MaxIdle == 0 {
		cfg.Sessions.MaxIdle = 30 * time.Minute
	}
	if cfg.Sessions.SweepInterval == 0 {
		cfg.Sessions.SweepInterval = 5 * time.Minute
	}
	if cfg.Archive.Schedule == "" {
		cfg.Archive.Schedule = "0 2 * * *"
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
}
