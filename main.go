package main

import (
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"agentchat/auth"
	"agentchat/client"
	"agentchat/config"
	"agentchat/model"
	"agentchat/storage"
	"agentchat/ui"
)

const Version = "v0.1.0"

func main() {
	os.Exit(run())
}

func run() int {
	cfg, err := config.Load()
	if err != nil {
		showError("Configuration Error", fmt.Sprintf("Failed to load config:\n\n%v", err))
		return 1
	}

	// Initialize debug logging after config is loaded
	config.InitDebugLog(cfg.DataDir())
	logger := config.Component("main")
	logger.Info().Str("version", Version).Str("data_dir", cfg.DataDir()).Msg("starting agentchat")

	// Single-instance enforcement per data directory
	isLocked, runningPID, err := storage.CheckInstanceLock(cfg.DataDir())
	if err != nil {
		fmt.Printf("Failed to check instance lock: %v\n", err)
		return 1
	}
	if isLocked {
		p := tea.NewProgram(ui.NewInstanceLockedModal(runningPID), tea.WithAltScreen())
		final, err := p.Run()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return 1
		}
		if m, ok := final.(ui.InstanceLockedModal); !ok || !m.ForceDelete() {
			return 0
		}
		logger.Warn().Int("pid", runningPID).Msg("removing lock held by another instance")
	}

	if err := storage.LockInstance(cfg.DataDir()); err != nil {
		fmt.Printf("Failed to lock agentchat instance: %v\n", err)
		return 1
	}
	defer func() {
		if err := storage.UnlockInstance(cfg.DataDir()); err != nil {
			logger.Warn().Err(err).Msg("failed to unlock instance")
		}
	}()

	kv := openStore(cfg.DataDir())
	if closer, ok := kv.(interface{ Close() error }); ok {
		defer closer.Close()
	}

	identity := auth.NewState(kv, config.Component("auth"))
	if err := identity.Restore(); err != nil {
		logger.Warn().Err(err).Msg("failed to restore identity")
	}

	keys, err := config.LoadKeybindings(cfg.DataDir())
	if err != nil {
		logger.Warn().Err(err).Msg("failed to load keybindings, using defaults")
		keys = config.DefaultKeybindings()
	}
	if valid, reason := keys.Validate(); !valid {
		showError("Keybinding Error", reason)
		return 1
	}

	backend := client.New(nil, config.Component("client"))

	// Signing out returns to the login screen with a fresh per-user store
	for {
		user, ok := identity.Current()
		if !ok {
			p := tea.NewProgram(ui.NewLoginModel(identity, kv, cfg.GoogleClientID, config.Component("login")), tea.WithAltScreen())
			final, err := p.Run()
			if err != nil {
				fmt.Printf("Error running login: %v\n", err)
				return 1
			}
			if m, ok := final.(ui.LoginModel); !ok || !m.SignedIn() {
				return 0
			}
			user, _ = identity.Current()
		}

		settings := model.Settings{
			BackendURL: cfg.BackendURL,
			AppName:    cfg.AppName,
			UserID:     cfg.UserID,
		}
		if settings.UserID == "" {
			settings.UserID = user.Sub
		}

		// History is kept per backend user id
		store, err := storage.NewSessionStore(kv, settings.UserID, config.Component("storage"))
		if err != nil {
			showError("Storage Error", fmt.Sprintf("Failed to load chat history:\n\n%v", err))
			return 1
		}

		controller := model.NewController(backend, store, settings, config.Component("controller"))
		p := tea.NewProgram(
			ui.NewAppView(controller, identity, cfg, keys, config.Component("ui")),
			tea.WithAltScreen(),
		)

		final, err := p.Run()
		if err != nil {
			fmt.Printf("Error running agentchat: %v\n", err)
			return 1
		}
		if view, ok := final.(ui.AppView); !ok || !view.SignedOut() {
			return 0
		}
	}
}

// openStore opens the SQLite-backed key-value store, falling back to memory
// so the client still works (without persistence) when the file is unusable.
func openStore(dataDir string) storage.KeyValueStore {
	sqlite, err := storage.NewSQLiteStore(dataDir)
	if err != nil {
		config.Component("main").Error().Err(err).Msg("falling back to in-memory storage")
		return storage.NewMemoryStore()
	}
	return sqlite
}

func showError(title, message string) {
	p := tea.NewProgram(ui.NewErrorModal(title, message), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	}
}
