package protocol

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"google.golang.org/genai"
)

const roleModel = "model"

// errorMarker is looked for in frames that fail to parse. A backend that
// crashes mid-stream tends to emit a truncated or plain-text error frame.
const errorMarker = "error"

// wireEvent is the subset of a backend event the client reads.
// Python agent servers emit snake_case; the Go ones emit camelCase.
type wireEvent struct {
	Content           *wireContent    `json:"content"`
	Error             json.RawMessage `json:"error"`
	ErrorCode         string          `json:"error_code"`
	ErrorCodeCamel    string          `json:"errorCode"`
	ErrorMessage      string          `json:"error_message"`
	ErrorMessageCamel string          `json:"errorMessage"`
}

type wireContent struct {
	Role  string     `json:"role"`
	Parts []wirePart `json:"parts"`
}

type wirePart struct {
	Text              *string             `json:"text"`
	FunctionCall      *genai.FunctionCall `json:"function_call"`
	FunctionCallCamel *genai.FunctionCall `json:"functionCall"`
}

func (p wirePart) functionCall() *genai.FunctionCall {
	if p.FunctionCall != nil {
		return p.FunctionCall
	}
	return p.FunctionCallCamel
}

// FrameError describes a payload that is not valid JSON
type FrameError struct {
	Payload string
	Err     error
}

func (e *FrameError) Error() string {
	return fmt.Sprintf("malformed frame %q: %v", e.Payload, e.Err)
}

func (e *FrameError) Unwrap() error { return e.Err }

// Translator classifies raw event payloads for a single stream. It remembers
// which tool calls it already emitted, so a new Translator is needed per turn.
type Translator struct {
	seen   map[string]struct{}
	logger zerolog.Logger
}

// NewTranslator creates a translator with an empty tool-call history
func NewTranslator(logger zerolog.Logger) *Translator {
	return &Translator{
		seen:   make(map[string]struct{}),
		logger: logger,
	}
}

// Translate parses one payload and returns the events it carries, in order.
// Parsing is best-effort: a bad frame yields no events rather than an error.
func (t *Translator) Translate(payload string) []Event {
	var ev wireEvent
	if err := json.Unmarshal([]byte(payload), &ev); err != nil {
		if strings.Contains(strings.ToLower(payload), errorMarker) {
			return []Event{Error{Content: payload}}
		}
		t.logger.Warn().Err(&FrameError{Payload: payload, Err: err}).Msg("skipping malformed stream frame")
		return nil
	}

	// Text and tool calls of a frame come before its error
	events := t.modelEvents(ev.Content)
	if msg, ok := ev.errorText(); ok {
		events = append(events, Error{Content: msg})
	}
	return events
}

func (t *Translator) modelEvents(content *wireContent) []Event {
	if content == nil || content.Role != roleModel {
		return nil
	}

	var events []Event

	var text strings.Builder
	for _, part := range content.Parts {
		if part.Text != nil {
			text.WriteString(*part.Text)
		}
	}
	if text.Len() > 0 {
		events = append(events, TextChunk{Content: text.String()})
	}

	for _, part := range content.Parts {
		fc := part.functionCall()
		if fc == nil {
			continue
		}

		args := fc.Args
		if args == nil {
			args = map[string]any{}
		}
		call := ToolCall{FunctionName: fc.Name, Args: args}

		id := call.Identity()
		if _, dup := t.seen[id]; dup {
			t.logger.Debug().Str("function", fc.Name).Msg("suppressing repeated tool call")
			continue
		}
		t.seen[id] = struct{}{}
		events = append(events, call)
	}

	return events
}

// errorText extracts the in-band error of a frame, if any
func (ev wireEvent) errorText() (string, bool) {
	if raw := bytes.TrimSpace(ev.Error); len(raw) > 0 && !bytes.Equal(raw, []byte("null")) {
		var s string
		if err := json.Unmarshal(raw, &s); err == nil {
			return s, true
		}
		return string(raw), true
	}

	msg := ev.ErrorMessage
	if msg == "" {
		msg = ev.ErrorMessageCamel
	}
	code := ev.ErrorCode
	if code == "" {
		code = ev.ErrorCodeCamel
	}

	switch {
	case msg != "" && code != "":
		return code + ": " + msg, true
	case msg != "":
		return msg, true
	case code != "":
		return code, true
	}
	return "", false
}
