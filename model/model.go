// Package model holds the conversation state machine. The Controller is driven
// entirely from the bubbletea update loop: methods mutate state and hand back
// tea.Cmds for anything that blocks, and results come back through Update.
package model

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"agentchat/client"
	"agentchat/storage"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"
)

var (
	ErrSettingsLocked = errors.New("settings can only be changed while disconnected")
	ErrNotConnected   = errors.New("please connect to the backend first")
	ErrBusy           = errors.New("a session is still being created")
	ErrNoSession      = errors.New("session not found")
)

// Backend is the part of the agent service the controller needs
type Backend interface {
	CreateSession(ctx context.Context, backendURL, appName, userID string) (string, error)
	StreamQuery(cfg client.QueryConfig, sink client.EventSink, cancel *client.Cancellation)
	Ping(ctx context.Context, backendURL string) error
}

// Settings identify the backend app and the user talking to it
type Settings struct {
	BackendURL string
	AppName    string
	UserID     string
}

// Validate checks that the settings can address a backend
func (s Settings) Validate() error {
	if strings.TrimSpace(s.BackendURL) == "" {
		return errors.New("backend URL is required")
	}
	u, err := url.Parse(s.BackendURL)
	if err != nil {
		return fmt.Errorf("invalid backend URL: %w", err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("invalid backend URL %q: want http(s)://host[:port]", s.BackendURL)
	}
	if strings.TrimSpace(s.AppName) == "" {
		return errors.New("app name is required")
	}
	if strings.TrimSpace(s.UserID) == "" {
		return errors.New("user id is required")
	}
	return nil
}

// Controller owns connection status, the active session pointer, the pending
// tool calls and at most one in-flight turn.
type Controller struct {
	backend  Backend
	store    *storage.SessionStore
	settings Settings
	logger   zerolog.Logger

	status        Status
	activeSession string
	toolCalls     []ToolCall
	alert         string

	// generation invalidates async results (session creation, connect) that
	// complete after the user moved on
	generation int
	pending    *pendingSend

	turnSeq int
	turn    *turn
}

type pendingSend struct {
	prompt      string
	attachments []Attachment
}

// NewController creates a disconnected controller
func NewController(backend Backend, store *storage.SessionStore, settings Settings, logger zerolog.Logger) *Controller {
	return &Controller{
		backend:  backend,
		store:    store,
		settings: settings,
		logger:   logger,
		status:   StatusDisconnected,
	}
}

func (c *Controller) Status() Status { return c.status }

func (c *Controller) Settings() Settings { return c.settings }

func (c *Controller) ActiveSessionID() string { return c.activeSession }

// Messages returns the visible transcript
func (c *Controller) Messages() []storage.Message {
	if c.activeSession == "" {
		return nil
	}
	return c.store.Messages(c.activeSession)
}

func (c *Controller) ToolCalls() []ToolCall {
	out := make([]ToolCall, len(c.toolCalls))
	copy(out, c.toolCalls)
	return out
}

func (c *Controller) Sessions() []storage.ChatSession {
	return c.store.Sessions()
}

// Store exposes the session store for search and export
func (c *Controller) Store() *storage.SessionStore {
	return c.store
}

// TakeAlert returns the pending user-visible alert and clears it
func (c *Controller) TakeAlert() string {
	a := c.alert
	c.alert = ""
	return a
}

// Configure replaces the settings. Only allowed while disconnected.
// History is stored per backend user, so a new user id swaps in that user's
// sessions and drops the active one.
func (c *Controller) Configure(s Settings) error {
	if c.status != StatusDisconnected {
		return ErrSettingsLocked
	}
	if s.UserID != c.settings.UserID {
		if err := c.store.SwitchUser(s.UserID); err != nil {
			return fmt.Errorf("failed to load history for %s: %w", s.UserID, err)
		}
		c.activeSession = ""
		c.toolCalls = nil
		c.logger.Info().Str("user", s.UserID).Msg("switched backend user")
	}
	c.settings = s
	return nil
}

// Connect validates the settings and checks the backend answers
func (c *Controller) Connect() (tea.Cmd, error) {
	if c.status != StatusDisconnected {
		return nil, nil
	}
	if err := c.settings.Validate(); err != nil {
		return nil, err
	}

	c.generation++
	c.status = StatusConnecting
	c.logger.Info().Str("backend", c.settings.BackendURL).Str("app", c.settings.AppName).Msg("connecting")

	return c.pingBackend(c.generation), nil
}

func (c *Controller) pingBackend(gen int) tea.Cmd {
	backend := c.backend
	backendURL := c.settings.BackendURL
	return func() tea.Msg {
		err := backend.Ping(context.Background(), backendURL)
		return connectResultMsg{Generation: gen, Err: err}
	}
}

// Reset disconnects: any turn is cancelled, the active session is dropped
// and settings become editable again.
func (c *Controller) Reset() {
	c.cancelTurn()
	c.generation++
	c.pending = nil
	c.activeSession = ""
	c.toolCalls = nil
	c.status = StatusDisconnected
	c.logger.Info().Msg("disconnected")
}

// Update applies async results. It returns the follow-up command, if any.
func (c *Controller) Update(msg tea.Msg) tea.Cmd {
	switch msg := msg.(type) {
	case StreamEventMsg:
		return c.handleStreamEvent(msg)

	case StreamDoneMsg:
		c.handleStreamDone(msg)
		return nil

	case sessionCreatedMsg:
		return c.handleSessionCreated(msg)

	case connectResultMsg:
		c.handleConnectResult(msg)
		return nil
	}

	return nil
}

func (c *Controller) handleConnectResult(msg connectResultMsg) {
	if msg.Generation != c.generation || c.status != StatusConnecting {
		return
	}

	if msg.Err != nil {
		c.logger.Error().Err(msg.Err).Msg("connection failed")
		c.status = StatusDisconnected
		c.alert = fmt.Sprintf("Connection failed: %v", msg.Err)
		return
	}

	c.status = StatusConnected
	c.logger.Info().Msg("connected")
}

func (c *Controller) save() {
	if err := c.store.Save(); err != nil {
		c.logger.Error().Err(err).Msg("failed to save chat history")
		c.alert = fmt.Sprintf("Failed to save chat history: %v", err)
	}
}
