// Package client talks to the agent backend: it creates conversation sessions
// and runs streaming turns, pushing translated events into an EventSink.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"agentchat/protocol"
	"agentchat/sse"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"google.golang.org/genai"
)

// readChunkSize bounds a single body read
const readChunkSize = 4096

// maxErrorBody caps how much of an error response is kept for display
const maxErrorBody = 64 << 10

// Client talks to the agent backend over HTTP. It holds no per-turn state and
// is safe for concurrent use.
type Client struct {
	http   *http.Client
	logger zerolog.Logger
}

// QueryConfig identifies the conversation and carries the composed prompt
type QueryConfig struct {
	BackendURL string
	AppName    string
	UserID     string
	SessionID  string
	Message    string
}

type createSessionRequest struct {
	SessionID string         `json:"session_id"`
	State     map[string]any `json:"state"`
}

type runRequest struct {
	AppName    string         `json:"app_name"`
	UserID     string         `json:"user_id"`
	SessionID  string         `json:"session_id"`
	NewMessage *genai.Content `json:"new_message"`
	Streaming  bool           `json:"streaming"`
}

// New creates a backend client. A nil httpClient gets a default client with no
// overall timeout, since a streaming turn may stay open for minutes.
func New(httpClient *http.Client, logger zerolog.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &Client{
		http:   httpClient,
		logger: logger,
	}
}

func endpoint(backendURL string, segments ...string) string {
	var b strings.Builder
	b.WriteString(strings.TrimRight(backendURL, "/"))
	for _, s := range segments {
		b.WriteByte('/')
		b.WriteString(url.PathEscape(s))
	}
	return b.String()
}

// CreateSession registers a fresh conversation for the user and returns its
// id. A 409 means the id already exists, which is as good as created.
func (c *Client) CreateSession(ctx context.Context, backendURL, appName, userID string) (string, error) {
	sessionID := uuid.NewString()

	body, err := json.Marshal(createSessionRequest{
		SessionID: sessionID,
		State:     map[string]any{},
	})
	if err != nil {
		return "", &SessionCreationError{Err: fmt.Errorf("failed to encode request: %w", err)}
	}

	target := endpoint(backendURL, "apps", appName, "users", userID, "sessions")
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, bytes.NewReader(body))
	if err != nil {
		return "", &SessionCreationError{Err: fmt.Errorf("failed to build request: %w", err)}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", &SessionCreationError{Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusConflict {
		c.logger.Debug().Str("session_id", sessionID).Msg("session already exists")
		return sessionID, nil
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		text, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return "", &SessionCreationError{
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(text)),
		}
	}

	c.logger.Debug().Str("session_id", sessionID).Str("app", appName).Msg("session created")
	return sessionID, nil
}

// StreamQuery runs one turn and feeds its events to sink until the stream
// ends, fails or is cancelled. It never returns an error: transport failures
// become a single protocol.Error event and cancellation is silent.
func (c *Client) StreamQuery(cfg QueryConfig, sink EventSink, cancel *Cancellation) {
	if cancel == nil {
		cancel = NewCancellation()
	}

	err := c.stream(cfg, sink, cancel)
	switch {
	case err == nil:
		return
	case errors.Is(err, ErrCancelled):
		c.logger.Debug().Str("session_id", cfg.SessionID).Msg("stream cancelled")
		return
	}

	c.logger.Error().Err(err).Str("session_id", cfg.SessionID).Msg("stream failed")
	sink.HandleEvent(protocol.Error{Content: err.Error()})
}

func (c *Client) stream(cfg QueryConfig, sink EventSink, cancel *Cancellation) error {
	body, err := json.Marshal(runRequest{
		AppName:    cfg.AppName,
		UserID:     cfg.UserID,
		SessionID:  cfg.SessionID,
		NewMessage: genai.NewContentFromText(cfg.Message, genai.RoleUser),
		Streaming:  true,
	})
	if err != nil {
		return &StreamTransportError{Err: fmt.Errorf("failed to encode request: %w", err)}
	}

	req, err := http.NewRequestWithContext(cancel.Context(), http.MethodPost, endpoint(cfg.BackendURL, "run_sse"), bytes.NewReader(body))
	if err != nil {
		return &StreamTransportError{Err: fmt.Errorf("failed to build request: %w", err)}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/event-stream")

	resp, err := c.http.Do(req)
	if err != nil {
		if cancel.IsCancelled() {
			return ErrCancelled
		}
		return &StreamTransportError{Err: err}
	}
	if resp.Body == nil {
		return &StreamTransportError{Err: errNoBody}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		text, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &StreamTransportError{
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(text)),
		}
	}
	if resp.Body == http.NoBody {
		return &StreamTransportError{Err: errNoBody}
	}

	dec := sse.NewDecoder()
	tr := protocol.NewTranslator(c.logger)
	deliver := func(payload string) bool {
		for _, ev := range tr.Translate(payload) {
			if cancel.IsCancelled() {
				return false
			}
			c.logger.Trace().Str("event_type", string(ev.Type())).Msg("stream event")
			sink.HandleEvent(ev)
		}
		return true
	}

	buf := make([]byte, readChunkSize)
	for {
		if cancel.IsCancelled() {
			return ErrCancelled
		}

		n, readErr := resp.Body.Read(buf)
		if n > 0 {
			for payload := range dec.Feed(buf[:n]) {
				if !deliver(payload) {
					return ErrCancelled
				}
			}
		}

		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			if cancel.IsCancelled() {
				return ErrCancelled
			}
			return &StreamTransportError{Err: readErr}
		}
	}

	if n := dec.Buffered(); n > 0 {
		c.logger.Debug().Int("tail_bytes", n).Msg("stream ended without a line terminator")
	}
	for payload := range dec.Flush() {
		if !deliver(payload) {
			return ErrCancelled
		}
	}

	c.logger.Debug().Str("session_id", cfg.SessionID).Msg("stream completed")
	return nil
}

// Ping checks that backendURL answers like an agent server by listing its apps
func (c *Client) Ping(ctx context.Context, backendURL string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint(backendURL, "list-apps"), nil)
	if err != nil {
		return fmt.Errorf("invalid backend URL: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("backend unreachable: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxErrorBody))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("backend returned %s", resp.Status)
	}
	return nil
}
