package storage

import (
	"strings"
	"time"
)

const previewLength = 100

// MessageMatch is a search hit inside one session
type MessageMatch struct {
	SessionID    string
	SessionTitle string
	MessageIndex int
	Role         string
	Preview      string
	Timestamp    time.Time
}

// Search does a case-insensitive substring search over every session,
// in sidebar order.
func (s *SessionStore) Search(query string) []MessageMatch {
	if query == "" {
		return []MessageMatch{}
	}

	var matches []MessageMatch
	for _, sess := range s.history.Sessions {
		for _, m := range SearchMessages(s.history.Messages[sess.ID], query) {
			m.SessionID = sess.ID
			m.SessionTitle = sess.Title
			matches = append(matches, m)
		}
	}

	return matches
}

// SearchMessages searches a single transcript
func SearchMessages(messages []Message, query string) []MessageMatch {
	if query == "" {
		return []MessageMatch{}
	}

	queryLower := strings.ToLower(query)
	var matches []MessageMatch

	for i, msg := range messages {
		if !strings.Contains(strings.ToLower(msg.Content), queryLower) {
			continue
		}

		matches = append(matches, MessageMatch{
			MessageIndex: i,
			Role:         msg.Role,
			Preview:      preview(msg.Content),
			Timestamp:    msg.Timestamp,
		})
	}

	return matches
}

func preview(content string) string {
	content = strings.ReplaceAll(content, "\n", " ")
	runes := []rune(content)
	if len(runes) > previewLength {
		return string(runes[:previewLength]) + "..."
	}
	return content
}
