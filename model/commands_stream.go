package model

import (
	"time"

	"agentchat/client"
	"agentchat/protocol"
	"agentchat/storage"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"
)

// turn is one prompt and its streamed reply. Events are only applied to the
// session and assistant message captured when the turn started.
type turn struct {
	id          int
	sessionID   string
	assistantID string
	cancel      *client.Cancellation
	events      chan protocol.Event
}

// SendMessage starts a turn. Without an active session one is created first;
// a turn that is still streaming is cancelled.
func (c *Controller) SendMessage(prompt string, attachments []Attachment) (tea.Cmd, error) {
	switch c.status {
	case StatusDisconnected:
		return nil, ErrNotConnected
	case StatusConnecting:
		return nil, ErrBusy
	case StatusStreaming:
		c.abandonTurn()
	}

	if c.activeSession == "" {
		c.generation++
		c.pending = &pendingSend{prompt: prompt, attachments: attachments}
		c.status = StatusConnecting
		c.logger.Debug().Msg("creating session for first prompt")
		return c.createSession(c.generation), nil
	}

	return c.beginTurn(prompt, attachments), nil
}

func (c *Controller) beginTurn(prompt string, attachments []Attachment) tea.Cmd {
	text := ComposePrompt(prompt, attachments)
	now := time.Now()

	user := storage.Message{ID: uuid.NewString(), Role: storage.RoleUser, Content: text, Timestamp: now}
	assistant := storage.Message{ID: uuid.NewString(), Role: storage.RoleAssistant, Timestamp: now}

	msgs := append(c.store.Messages(c.activeSession), user, assistant)
	c.store.ReplaceMessages(c.activeSession, msgs)
	c.save()

	c.status = StatusStreaming
	c.toolCalls = nil
	c.turnSeq++

	t := &turn{
		id:          c.turnSeq,
		sessionID:   c.activeSession,
		assistantID: assistant.ID,
		cancel:      client.NewCancellation(),
		events:      make(chan protocol.Event),
	}
	c.turn = t

	c.logger.Info().
		Int("turn", t.id).
		Str("session_id", t.sessionID).
		Int("attachments", len(attachments)).
		Msg("turn started")

	cfg := client.QueryConfig{
		BackendURL: c.settings.BackendURL,
		AppName:    c.settings.AppName,
		UserID:     c.settings.UserID,
		SessionID:  t.sessionID,
		Message:    text,
	}

	return tea.Batch(c.runStream(t, cfg), waitForStreamEvent(t))
}

// runStream drives the backend stream and forwards events to the update loop.
// Sends give up once the turn is cancelled so the goroutine never leaks.
func (c *Controller) runStream(t *turn, cfg client.QueryConfig) tea.Cmd {
	backend := c.backend
	return func() tea.Msg {
		sink := client.SinkFunc(func(ev protocol.Event) {
			select {
			case t.events <- ev:
			case <-t.cancel.Context().Done():
			}
		})
		backend.StreamQuery(cfg, sink, t.cancel)
		close(t.events)
		return nil
	}
}

func waitForStreamEvent(t *turn) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-t.events
		if !ok {
			return StreamDoneMsg{Turn: t.id}
		}
		return StreamEventMsg{Turn: t.id, Event: ev}
	}
}

// cancelTurn stops the in-flight turn. Content already applied stays.
func (c *Controller) cancelTurn() {
	if c.turn == nil {
		return
	}

	c.turn.cancel.Cancel()
	c.logger.Info().Int("turn", c.turn.id).Str("session_id", c.turn.sessionID).Msg("turn cancelled")
	c.turn = nil
	c.save()
}

func (c *Controller) handleStreamEvent(msg StreamEventMsg) tea.Cmd {
	t := c.turn
	if t == nil || t.id != msg.Turn {
		return nil
	}

	switch ev := msg.Event.(type) {
	case protocol.TextChunk:
		if !c.store.AppendToMessage(t.sessionID, t.assistantID, ev.Content) {
			c.logger.Warn().Int("turn", t.id).Msg("dropping text for a replaced reply")
		}

	case protocol.ToolCall:
		c.toolCalls = append(c.toolCalls, ToolCall{
			ID:           uuid.NewString(),
			FunctionName: ev.FunctionName,
			Args:         ev.Args,
		})

	case protocol.Error:
		c.logger.Warn().Int("turn", t.id).Str("error", ev.Content).Msg("stream reported an error")
		c.store.AppendToMessage(t.sessionID, t.assistantID, errorAnnotation(ev.Content))
	}

	return waitForStreamEvent(t)
}

func (c *Controller) handleStreamDone(msg StreamDoneMsg) {
	t := c.turn
	if t == nil || t.id != msg.Turn {
		return
	}

	c.turn = nil
	c.status = StatusConnected
	c.save()

	c.logger.Info().Int("turn", t.id).Str("session_id", t.sessionID).Msg("turn completed")
}
