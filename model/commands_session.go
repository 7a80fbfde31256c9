package model

import (
	"context"
	"strings"
	"time"

	"agentchat/storage"

	tea "github.com/charmbracelet/bubbletea"
)

// NewChat leaves the current conversation. The next prompt creates a new
// backend session.
func (c *Controller) NewChat() {
	c.abandonTurn()
	c.activeSession = ""
	c.toolCalls = nil
	c.logger.Debug().Msg("new chat")
}

// SelectSession makes a stored session the visible one
func (c *Controller) SelectSession(id string) error {
	if _, ok := c.store.Session(id); !ok {
		return ErrNoSession
	}

	c.abandonTurn()
	c.activeSession = id
	c.toolCalls = nil
	c.logger.Debug().Str("session_id", id).Msg("session selected")
	return nil
}

// DeleteSession forgets a session. Deleting the visible one starts a new chat.
func (c *Controller) DeleteSession(id string) error {
	if _, ok := c.store.Session(id); !ok {
		return ErrNoSession
	}

	if id == c.activeSession {
		c.NewChat()
	}

	c.store.DeleteSession(id)
	c.save()
	c.logger.Info().Str("session_id", id).Msg("session deleted")
	return nil
}

// RenameSession retitles a stored session. A blank title falls back to the
// default one.
func (c *Controller) RenameSession(id, title string) error {
	title = strings.TrimSpace(title)
	if title == "" {
		title = storage.DefaultTitle
	}
	if !c.store.RenameSession(id, title) {
		return ErrNoSession
	}
	c.save()
	return nil
}

// abandonTurn stops whatever the current conversation is waiting on: a
// streaming turn or a pending session creation.
func (c *Controller) abandonTurn() {
	creating := c.pending != nil
	streaming := c.turn != nil

	c.cancelTurn()
	if creating {
		c.pending = nil
		c.generation++
	}

	if creating || streaming {
		c.status = StatusConnected
	}
}

func (c *Controller) createSession(gen int) tea.Cmd {
	backend := c.backend
	s := c.settings
	return func() tea.Msg {
		id, err := backend.CreateSession(context.Background(), s.BackendURL, s.AppName, s.UserID)
		return sessionCreatedMsg{Generation: gen, SessionID: id, Err: err}
	}
}

func (c *Controller) handleSessionCreated(msg sessionCreatedMsg) tea.Cmd {
	if msg.Generation != c.generation || c.pending == nil {
		c.logger.Debug().Str("session_id", msg.SessionID).Msg("discarding stale session creation")
		return nil
	}

	send := c.pending
	c.pending = nil

	if msg.Err != nil {
		c.logger.Error().Err(msg.Err).Msg("session creation failed")
		c.status = StatusConnected
		c.alert = msg.Err.Error()
		return nil
	}

	c.activeSession = msg.SessionID
	c.store.PrependSession(storage.ChatSession{
		ID:        msg.SessionID,
		Title:     storage.TitleFromPrompt(send.prompt),
		CreatedAt: time.Now(),
	})

	return c.beginTurn(send.prompt, send.attachments)
}

// ExportSession writes a session to exportPath off the update loop.
// The transcript is copied first so the write never races a stream.
func (c *Controller) ExportSession(id, exportPath string) tea.Cmd {
	if _, ok := c.store.Session(id); !ok {
		return func() tea.Msg { return SessionExportedMsg{Err: ErrNoSession} }
	}

	snapshot, err := storage.NewSessionStore(storage.NewMemoryStore(), "export", c.logger)
	if err != nil {
		return func() tea.Msg { return SessionExportedMsg{Err: err} }
	}
	sess, _ := c.store.Session(id)
	snapshot.PrependSession(sess)
	snapshot.ReplaceMessages(id, c.store.Messages(id))

	return func() tea.Msg {
		err := snapshot.ExportSession(id, exportPath)
		return SessionExportedMsg{Path: exportPath, Err: err}
	}
}
