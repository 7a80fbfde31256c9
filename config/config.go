package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
)

type SystemConfig struct {
	DataDirectory string `toml:"data_directory"`
}

type BackendConfig struct {
	URL     string `toml:"url"`
	AppName string `toml:"app_name"`
	UserID  string `toml:"user_id,omitempty"`
}

// QuickAction is a canned prompt bound to a sidebar shortcut
type QuickAction struct {
	Label  string `toml:"label"`
	Prompt string `toml:"prompt"`
}

type UserConfig struct {
	Backend        BackendConfig `toml:"backend"`
	GoogleClientID string        `toml:"google_client_id,omitempty"`
	QuickActions   []QuickAction `toml:"quick_actions"`
}

type Config struct {
	DataDirectory  string
	BackendURL     string
	AppName        string
	UserID         string
	GoogleClientID string
	QuickActions   []QuickAction
}

var Debug = false

// Log is the process logger. It discards everything unless debug logging
// is enabled.
var Log = zerolog.Nop()

func (c *Config) DataDir() string {
	return ExpandPath(c.DataDirectory)
}

// UserConfig returns the persisted shape of c
func (c *Config) UserConfig() *UserConfig {
	return &UserConfig{
		Backend: BackendConfig{
			URL:     c.BackendURL,
			AppName: c.AppName,
			UserID:  c.UserID,
		},
		GoogleClientID: c.GoogleClientID,
		QuickActions:   c.QuickActions,
	}
}

func (c *Config) applyUserConfig(u *UserConfig) {
	if u.Backend.URL != "" {
		c.BackendURL = u.Backend.URL
	}
	if u.Backend.AppName != "" {
		c.AppName = u.Backend.AppName
	}
	c.UserID = u.Backend.UserID
	c.GoogleClientID = u.GoogleClientID
	if len(u.QuickActions) > 0 {
		c.QuickActions = u.QuickActions
	}
}

func (c *Config) applyEnvOverrides() {
	if url := os.Getenv("AGENTCHAT_BACKEND_URL"); url != "" {
		c.BackendURL = url
	}
	if app := os.Getenv("AGENTCHAT_APP_NAME"); app != "" {
		c.AppName = app
	}
	if dataDir := os.Getenv("AGENTCHAT_DATA_DIR"); dataDir != "" {
		c.DataDirectory = dataDir
	}
}

func CheckDebug() bool {
	debug := os.Getenv("AGENTCHAT_DEBUG")
	return debug == "true" || debug == "1"
}

// InitDebugLog points Log at <dataDir>/debug.log when AGENTCHAT_DEBUG is set.
// The terminal belongs to the UI, so nothing is ever logged to stderr.
func InitDebugLog(dataDir string) {
	if !CheckDebug() {
		return
	}

	Debug = true
	logPath := filepath.Join(dataDir, "debug.log")

	// Create debug log with secure permissions (0600 - may contain sensitive debug info)
	f, err := os.OpenFile(logPath, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0600)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: Could not open debug log at %s: %v\n", logPath, err)
		return
	}

	zerolog.TimeFieldFormat = time.RFC3339Nano
	Log = zerolog.New(f).With().Timestamp().Caller().Logger().Level(zerolog.DebugLevel)
	Log.Info().Str("path", logPath).Msgf("=== Debug logging started (AGENTCHAT_DEBUG=%s) ===", os.Getenv("AGENTCHAT_DEBUG"))
}

// Component returns a child logger tagged with the component name
func Component(name string) zerolog.Logger {
	return Log.With().Str("component", name).Logger()
}

func Load() (*Config, error) {
	defaults := DefaultUserConfig()
	cfg := &Config{
		DataDirectory: DefaultSystemConfig().DataDirectory,
		BackendURL:    defaults.Backend.URL,
		AppName:       defaults.Backend.AppName,
		QuickActions:  defaults.QuickActions,
	}

	systemCfg, err := LoadSystemConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load system config: %w", err)
	}
	cfg.DataDirectory = systemCfg.DataDirectory
	if dataDir := os.Getenv("AGENTCHAT_DATA_DIR"); dataDir != "" {
		cfg.DataDirectory = dataDir
	}

	userCfg, err := LoadUserConfig(cfg.DataDir())
	if err != nil {
		return nil, fmt.Errorf("failed to load user config: %w", err)
	}
	cfg.applyUserConfig(userCfg)
	cfg.applyEnvOverrides()

	dataDir := cfg.DataDir()
	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	// Ensure data directory has correct permissions (fix if needed)
	if err := EnsureDataDirPermissions(dataDir); err != nil {
		return nil, fmt.Errorf("failed to set data directory permissions: %w", err)
	}

	return cfg, nil
}
