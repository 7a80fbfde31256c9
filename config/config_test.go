package config

import (
	"os"
	"path/filepath"
	"testing"
)

func isolateHome(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("AGENTCHAT_BACKEND_URL", "")
	t.Setenv("AGENTCHAT_APP_NAME", "")
	t.Setenv("AGENTCHAT_DATA_DIR", "")
	return home
}

func TestLoadCreatesTemplates(t *testing.T) {
	home := isolateHome(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	wantDir := filepath.Join(home, ".local", "share", "agentchat")
	if cfg.DataDir() != wantDir {
		t.Errorf("DataDir() = %q, want %q", cfg.DataDir(), wantDir)
	}
	if cfg.BackendURL != "http://localhost:8000" || cfg.AppName != "my_agent" {
		t.Errorf("backend = %q/%q, want defaults", cfg.BackendURL, cfg.AppName)
	}

	for _, p := range []string{GetSettingsFilePath(), filepath.Join(wantDir, "config.toml")} {
		info, err := os.Stat(p)
		if err != nil {
			t.Fatalf("template %s missing: %v", p, err)
		}
		if info.Mode().Perm() != 0600 {
			t.Errorf("%s perms = %o, want 600", p, info.Mode().Perm())
		}
	}

	// Second load parses the generated templates
	again, err := Load()
	if err != nil {
		t.Fatalf("second Load() error: %v", err)
	}
	if len(again.QuickActions) != 2 {
		t.Errorf("QuickActions = %d, want 2", len(again.QuickActions))
	}
	if again.UserID != "" {
		t.Errorf("UserID = %q, want empty", again.UserID)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	isolateHome(t)
	dataDir := filepath.Join(t.TempDir(), "data")
	t.Setenv("AGENTCHAT_DATA_DIR", dataDir)
	t.Setenv("AGENTCHAT_BACKEND_URL", "https://agents.example.com")
	t.Setenv("AGENTCHAT_APP_NAME", "weather_agent")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.DataDir() != dataDir {
		t.Errorf("DataDir() = %q, want %q", cfg.DataDir(), dataDir)
	}
	if cfg.BackendURL != "https://agents.example.com" {
		t.Errorf("BackendURL = %q", cfg.BackendURL)
	}
	if cfg.AppName != "weather_agent" {
		t.Errorf("AppName = %q", cfg.AppName)
	}
	if _, err := os.Stat(filepath.Join(dataDir, "config.toml")); err != nil {
		t.Errorf("user config not created in override dir: %v", err)
	}
}

func TestSaveUserConfigRoundTrip(t *testing.T) {
	isolateHome(t)
	dataDir := t.TempDir()

	cfg := &Config{
		DataDirectory:  dataDir,
		BackendURL:     "http://10.0.0.5:8080",
		AppName:        "support_bot",
		UserID:         "alice",
		GoogleClientID: "1234.apps.googleusercontent.com",
		QuickActions:   []QuickAction{{Label: "Status", Prompt: "What is the status?"}},
	}
	if err := SaveUserConfig(cfg.UserConfig(), dataDir); err != nil {
		t.Fatalf("SaveUserConfig() error: %v", err)
	}

	loaded, err := LoadUserConfig(dataDir)
	if err != nil {
		t.Fatalf("LoadUserConfig() error: %v", err)
	}
	if loaded.Backend.URL != cfg.BackendURL || loaded.Backend.AppName != cfg.AppName || loaded.Backend.UserID != "alice" {
		t.Errorf("backend = %+v", loaded.Backend)
	}
	if loaded.GoogleClientID != cfg.GoogleClientID {
		t.Errorf("GoogleClientID = %q", loaded.GoogleClientID)
	}
	if len(loaded.QuickActions) != 1 || loaded.QuickActions[0].Prompt != "What is the status?" {
		t.Errorf("QuickActions = %+v", loaded.QuickActions)
	}
}

func TestLoadUserConfigRejectsBadTOML(t *testing.T) {
	dataDir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dataDir, "config.toml"), []byte("[backend\nurl = "), 0600); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadUserConfig(dataDir); err == nil {
		t.Error("LoadUserConfig() accepted malformed TOML")
	}
}

func TestExpandPath(t *testing.T) {
	home := isolateHome(t)

	tests := []struct {
		in   string
		want string
	}{
		{"", ""},
		{"~/chats", filepath.Join(home, "chats")},
		{"$HOME/x/../y", filepath.Join(home, "y")},
		{"/var/lib/agentchat", "/var/lib/agentchat"},
	}
	for _, tt := range tests {
		if got := ExpandPath(tt.in); got != tt.want {
			t.Errorf("ExpandPath(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestInitDebugLogDisabled(t *testing.T) {
	t.Setenv("AGENTCHAT_DEBUG", "")
	dir := t.TempDir()

	InitDebugLog(dir)
	if _, err := os.Stat(filepath.Join(dir, "debug.log")); !os.IsNotExist(err) {
		t.Error("debug.log created without AGENTCHAT_DEBUG")
	}
}
