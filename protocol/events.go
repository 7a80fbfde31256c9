// Package protocol maps the agent backend's streamed JSON frames onto a small,
// closed set of client events.
//
// The backend emits one JSON document per SSE data line. Only three things
// matter to the client:
//   - model text, which grows the assistant reply (TextChunk)
//   - function calls the agent decided to make (ToolCall)
//   - errors reported in-band (Error)
//
// Everything else the backend sends (state deltas, usage metadata, partial
// flags, author names) is ignored.
package protocol

import (
	"encoding/json"
	"fmt"
)

// EventType names an Event variant
type EventType string

const (
	EventTextChunk EventType = "text_chunk"
	EventToolCall  EventType = "tool_call"
	EventError     EventType = "error"
)

// Event is the closed set of client-level stream events: TextChunk, ToolCall
// or Error. The unexported method keeps other packages from adding variants.
type Event interface {
	Type() EventType
	isEvent()
}

// TextChunk carries model text to append to the assistant reply
type TextChunk struct {
	Content string
}

// ToolCall reports a function invocation decided by the agent
type ToolCall struct {
	FunctionName string
	Args         map[string]any
}

// Error carries a diagnostic to show inline in the transcript
type Error struct {
	Content string
}

func (TextChunk) Type() EventType { return EventTextChunk }
func (ToolCall) Type() EventType  { return EventToolCall }
func (Error) Type() EventType     { return EventError }

func (TextChunk) isEvent() {}
func (ToolCall) isEvent()  {}
func (Error) isEvent()     {}

// Identity returns the serialized (name, args) pair used to suppress repeated
// notifications for the same call. encoding/json sorts map keys, so equal
// argument maps always serialize identically.
func (c ToolCall) Identity() string {
	data, err := json.Marshal(struct {
		Name string         `json:"name"`
		Args map[string]any `json:"args"`
	}{c.FunctionName, c.Args})
	if err != nil {
		// Unserializable args cannot come from a JSON frame; fall back to Go formatting
		return fmt.Sprintf("%s:%v", c.FunctionName, c.Args)
	}
	return string(data)
}
