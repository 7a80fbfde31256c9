package config

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
)

const appDirName = "agentchat"

// GetConfigDir holds settings.toml: ~/.config/agentchat on every platform
func GetConfigDir() string {
	return filepath.Join(GetHomeDir(), ".config", appDirName)
}

// GetDefaultDataDir is ~/.local/share/agentchat, or %LOCALAPPDATA%\agentchat
// on Windows.
func GetDefaultDataDir() string {
	if runtime.GOOS == "windows" {
		base := os.Getenv("LOCALAPPDATA")
		if base == "" {
			base = filepath.Join(GetHomeDir(), "AppData", "Local")
		}
		return filepath.Join(base, appDirName)
	}
	return filepath.Join(GetHomeDir(), ".local", "share", appDirName)
}

func GetSettingsFilePath() string {
	return filepath.Join(GetConfigDir(), "settings.toml")
}

// GetHomeDir reads HOME (USERPROFILE on Windows) and never returns "".
func GetHomeDir() string {
	if runtime.GOOS != "windows" {
		return orDefault(os.Getenv("HOME"), "/")
	}
	if home := os.Getenv("USERPROFILE"); home != "" {
		return home
	}
	return orDefault(os.Getenv("HOMEDRIVE")+os.Getenv("HOMEPATH"), `C:\`)
}

// ExpandPath resolves a leading ~/ and $VARS, then cleans the result
func ExpandPath(path string) string {
	if path == "" {
		return ""
	}
	if rest, ok := strings.CutPrefix(path, "~/"); ok {
		path = filepath.Join(GetHomeDir(), rest)
	}
	return filepath.Clean(os.ExpandEnv(path))
}

// EnsureDir creates path as user-only (0700) if missing
func EnsureDir(path string) error {
	return os.MkdirAll(path, 0700)
}

func FileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// EnsureDataDirPermissions creates dataDir or tightens it back to 0700
func EnsureDataDirPermissions(dataDir string) error {
	info, err := os.Stat(dataDir)
	if os.IsNotExist(err) {
		return EnsureDir(dataDir)
	}
	if err != nil {
		return err
	}
	if info.Mode().Perm() != 0700 {
		return os.Chmod(dataDir, 0700)
	}
	return nil
}
