package model

import "agentchat/protocol"

// StreamEventMsg carries one event of a streaming turn into the update loop
type StreamEventMsg struct {
	Turn  int
	Event protocol.Event
}

// StreamDoneMsg is sent once a turn's stream has ended, however it ended
type StreamDoneMsg struct {
	Turn int
}

type sessionCreatedMsg struct {
	Generation int
	SessionID  string
	Err        error
}

type connectResultMsg struct {
	Generation int
	Err        error
}

type SessionExportedMsg struct {
	Path string
	Err  error
}
