package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// DefaultTitle names a session whose first prompt was empty
const DefaultTitle = "New Chat"

const titleLength = 30

// Message represents a chat message
type Message struct {
	ID        string    `json:"id"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// ChatSession is the sidebar metadata of a conversation
type ChatSession struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	CreatedAt    time.Time `json:"created_at"`
	MessageCount int       `json:"message_count"`
}

// History is the persisted shape of everything a user has talked about
type History struct {
	Sessions []ChatSession         `json:"sessions"`
	Messages map[string][]Message `json:"messages"`
}

// SessionStore holds one user's sessions in memory and writes them through a
// KeyValueStore on Save. Message arrays are never mutated in place: every
// change swaps in a new slice, so a slice handed out earlier stays valid.
//
// SessionStore is not safe for concurrent use; the UI loop owns it.
type SessionStore struct {
	kv      KeyValueStore
	key     string
	history History
	logger  zerolog.Logger
}

// NewSessionStore loads the user's history. A missing record starts empty; an
// unreadable one is logged and replaced on the next Save.
func NewSessionStore(kv KeyValueStore, userID string, logger zerolog.Logger) (*SessionStore, error) {
	s := &SessionStore{kv: kv, logger: logger}
	if err := s.load(userID); err != nil {
		return nil, err
	}
	return s, nil
}

// SwitchUser saves the current history, then replaces it with userID's
// record. On error the current history is kept.
func (s *SessionStore) SwitchUser(userID string) error {
	if HistoryKey(userID) == s.key {
		return nil
	}
	if err := s.Save(); err != nil {
		return err
	}
	if err := s.load(userID); err != nil {
		return err
	}
	s.logger.Debug().Str("key", s.key).Int("sessions", len(s.history.Sessions)).Msg("switched chat history")
	return nil
}

func (s *SessionStore) load(userID string) error {
	key := HistoryKey(userID)
	history := History{Messages: make(map[string][]Message)}

	raw, ok, err := s.kv.Get(key)
	if err != nil {
		return fmt.Errorf("failed to load chat history: %w", err)
	}
	if ok {
		if err := json.Unmarshal([]byte(raw), &history); err != nil {
			s.logger.Warn().Err(err).Str("key", key).Msg("discarding unreadable chat history")
			history = History{}
		}
		if history.Messages == nil {
			history.Messages = make(map[string][]Message)
		}
	}

	s.key = key
	s.history = history
	return nil
}

// Save persists the whole history under the user's key
func (s *SessionStore) Save() error {
	data, err := json.Marshal(s.history)
	if err != nil {
		return fmt.Errorf("failed to marshal chat history: %w", err)
	}

	if err := s.kv.Set(s.key, string(data)); err != nil {
		return fmt.Errorf("failed to save chat history: %w", err)
	}

	s.logger.Debug().Int("sessions", len(s.history.Sessions)).Msg("chat history saved")
	return nil
}

// Sessions returns the session list, most recent first
func (s *SessionStore) Sessions() []ChatSession {
	out := make([]ChatSession, len(s.history.Sessions))
	copy(out, s.history.Sessions)
	return out
}

func (s *SessionStore) Session(id string) (ChatSession, bool) {
	for _, sess := range s.history.Sessions {
		if sess.ID == id {
			return sess, true
		}
	}
	return ChatSession{}, false
}

// Messages returns a copy of the session's transcript
func (s *SessionStore) Messages(id string) []Message {
	msgs := s.history.Messages[id]
	out := make([]Message, len(msgs))
	copy(out, msgs)
	return out
}

// PrependSession puts a new session at the top of the list
func (s *SessionStore) PrependSession(sess ChatSession) {
	sess.MessageCount = len(s.history.Messages[sess.ID])
	s.history.Sessions = append([]ChatSession{sess}, s.history.Sessions...)
}

// ReplaceMessages swaps the session's transcript for msgs
func (s *SessionStore) ReplaceMessages(id string, msgs []Message) {
	next := make([]Message, len(msgs))
	copy(next, msgs)
	s.history.Messages[id] = next
	s.refreshCount(id)
}

// AppendToMessage adds text to the session's last message if that message is
// messageID. It reports whether anything changed.
func (s *SessionStore) AppendToMessage(sessionID, messageID, text string) bool {
	msgs := s.history.Messages[sessionID]
	if len(msgs) == 0 || msgs[len(msgs)-1].ID != messageID {
		return false
	}

	next := make([]Message, len(msgs))
	copy(next, msgs)
	next[len(next)-1].Content += text
	s.history.Messages[sessionID] = next

	return true
}

// DeleteSession removes a session's metadata and transcript
func (s *SessionStore) DeleteSession(id string) {
	filtered := make([]ChatSession, 0, len(s.history.Sessions))
	for _, sess := range s.history.Sessions {
		if sess.ID != id {
			filtered = append(filtered, sess)
		}
	}
	s.history.Sessions = filtered
	delete(s.history.Messages, id)
}

// RenameSession updates the title of a session
func (s *SessionStore) RenameSession(id, title string) bool {
	for i := range s.history.Sessions {
		if s.history.Sessions[i].ID == id {
			s.history.Sessions[i].Title = title
			return true
		}
	}
	return false
}

func (s *SessionStore) refreshCount(id string) {
	for i := range s.history.Sessions {
		if s.history.Sessions[i].ID == id {
			s.history.Sessions[i].MessageCount = len(s.history.Messages[id])
			return
		}
	}
}

// TitleFromPrompt derives a sidebar title from the first prompt of a session
func TitleFromPrompt(prompt string) string {
	title := strings.ReplaceAll(prompt, "\r", " ")
	title = strings.ReplaceAll(title, "\n", " ")
	title = strings.TrimSpace(title)

	if title == "" {
		return DefaultTitle
	}

	runes := []rune(title)
	if len(runes) > titleLength {
		return string(runes[:titleLength]) + "..."
	}

	return title
}

// SanitizeFilename removes or replaces characters that are invalid in filenames
func SanitizeFilename(name string) string {
	name = strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|', ' ', '\n', '\r':
			return '-'
		}
		return r
	}, name)

	// Remove leading/trailing hyphens and dots
	name = strings.Trim(name, "-.")

	if runes := []rune(name); len(runes) > 50 {
		name = string(runes[:50])
	}

	if name == "" {
		name = "session"
	}

	return name
}

// GenerateExportPath generates a default export path for a session
func GenerateExportPath(title string) string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		homeDir = "."
	}

	timestamp := time.Now().Format("20060102-150405")
	filename := fmt.Sprintf("agentchat-%s-%s.json", SanitizeFilename(title), timestamp)

	return filepath.Join(homeDir, "Downloads", filename)
}

type sessionExport struct {
	ChatSession
	ExportedAt time.Time `json:"exported_at"`
	Messages   []Message `json:"messages"`
}

// ExportSession writes one session and its transcript as indented JSON
func (s *SessionStore) ExportSession(id, exportPath string) error {
	sess, ok := s.Session(id)
	if !ok {
		return fmt.Errorf("session %s not found", id)
	}

	data, err := json.MarshalIndent(sessionExport{
		ChatSession: sess,
		ExportedAt:  time.Now(),
		Messages:    s.Messages(id),
	}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}

	// 0700/0600: exports contain conversation history
	if err := os.MkdirAll(filepath.Dir(exportPath), 0700); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	if err := os.WriteFile(exportPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}

	return nil
}
