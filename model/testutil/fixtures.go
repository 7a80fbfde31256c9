package testutil

import (
	"fmt"
	"time"

	"agentchat/protocol"
	"agentchat/storage"
)

// SessionID returns the id the mock backend hands out for its n-th session
func SessionID(n int) string {
	return fmt.Sprintf("session-%d", n)
}

// HelloReply is the streamed answer to "Hello"
func HelloReply() []protocol.Event {
	return []protocol.Event{
		protocol.TextChunk{Content: "Hi"},
		protocol.TextChunk{Content: " there"},
		protocol.TextChunk{Content: "!"},
	}
}

// Transcript returns a finished two-turn conversation
func Transcript() []storage.Message {
	ts := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	return []storage.Message{
		{ID: "u1", Role: storage.RoleUser, Content: "What is Go?", Timestamp: ts},
		{ID: "a1", Role: storage.RoleAssistant, Content: "A programming language.", Timestamp: ts},
		{ID: "u2", Role: storage.RoleUser, Content: "Who made it?", Timestamp: ts},
		{ID: "a2", Role: storage.RoleAssistant, Content: "Google.", Timestamp: ts},
	}
}

// SeedSession stores a finished session under id
func SeedSession(store *storage.SessionStore, id, title string) {
	store.PrependSession(storage.ChatSession{ID: id, Title: title, CreatedAt: time.Now()})
	store.ReplaceMessages(id, Transcript())
}
