package model

import (
	"context"
	"errors"
	"testing"
	"time"

	"agentchat/client"
	"agentchat/model/testutil"
	"agentchat/protocol"
	"agentchat/storage"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"
)

var testSettings = Settings{
	BackendURL: "http://localhost:8000",
	AppName:    "demo_app",
	UserID:     "user-1",
}

func newTestController(t *testing.T, backend Backend) (*Controller, *storage.SessionStore, *storage.MemoryStore) {
	t.Helper()
	kv := storage.NewMemoryStore()
	store, err := storage.NewSessionStore(kv, testSettings.UserID, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewSessionStore() error: %v", err)
	}
	return NewController(backend, store, testSettings, zerolog.Nop()), store, kv
}

// drive runs cmd the way the bubbletea runtime does: commands execute on
// their own goroutines and every resulting message goes through Update on
// the calling goroutine. observe, when set, sees each message after Update.
func drive(t *testing.T, c *Controller, cmd tea.Cmd, observe func(tea.Msg)) {
	t.Helper()
	if cmd == nil {
		return
	}

	msgs := make(chan tea.Msg)
	pending := 0
	start := func(cmd tea.Cmd) {
		pending++
		go func() { msgs <- cmd() }()
	}
	start(cmd)

	timeout := time.After(5 * time.Second)
	for pending > 0 {
		select {
		case msg := <-msgs:
			pending--
			switch msg := msg.(type) {
			case nil:
			case tea.BatchMsg:
				for _, sub := range msg {
					if sub != nil {
						start(sub)
					}
				}
			default:
				next := c.Update(msg)
				if observe != nil {
					observe(msg)
				}
				if next != nil {
					start(next)
				}
			}
		case <-timeout:
			t.Fatal("commands did not settle")
		}
	}
}

func connect(t *testing.T, c *Controller) {
	t.Helper()
	cmd, err := c.Connect()
	if err != nil {
		t.Fatalf("Connect() error: %v", err)
	}
	if c.Status() != StatusConnecting {
		t.Fatalf("status after Connect() = %v, want %v", c.Status(), StatusConnecting)
	}
	drive(t, c, cmd, nil)
	if c.Status() != StatusConnected {
		t.Fatalf("status after ping = %v, want %v", c.Status(), StatusConnected)
	}
}

func TestSendMessageEndToEnd(t *testing.T) {
	backend := testutil.NewMockBackend()
	c, _, kv := newTestController(t, backend)
	connect(t, c)

	cmd, err := c.SendMessage("Hello", nil)
	if err != nil {
		t.Fatalf("SendMessage() error: %v", err)
	}
	if c.Status() != StatusConnecting {
		t.Errorf("status while creating session = %v, want %v", c.Status(), StatusConnecting)
	}

	sawStreaming := false
	drive(t, c, cmd, func(msg tea.Msg) {
		if _, ok := msg.(sessionCreatedMsg); !ok {
			return
		}
		sawStreaming = c.Status() == StatusStreaming
		msgs := c.Messages()
		if len(msgs) != 2 {
			t.Fatalf("transcript after turn start has %d messages, want 2", len(msgs))
		}
		if msgs[0].Role != storage.RoleUser || msgs[0].Content != "Hello" {
			t.Errorf("user message = %+v", msgs[0])
		}
		if msgs[1].Role != storage.RoleAssistant || msgs[1].Content != "" {
			t.Errorf("assistant placeholder = %+v", msgs[1])
		}
	})

	if !sawStreaming {
		t.Error("status was not streaming once the turn started")
	}
	if c.Status() != StatusConnected {
		t.Errorf("final status = %v, want %v", c.Status(), StatusConnected)
	}

	msgs := c.Messages()
	if len(msgs) != 2 || msgs[1].Content != "Hi there!" {
		t.Fatalf("transcript = %+v, want assistant reply %q", msgs, "Hi there!")
	}

	if backend.CreateCalls() != 1 {
		t.Errorf("CreateSession called %d times, want 1", backend.CreateCalls())
	}
	sessions := c.Sessions()
	if len(sessions) != 1 || sessions[0].ID != testutil.SessionID(1) || sessions[0].Title != "Hello" {
		t.Errorf("sessions = %+v", sessions)
	}
	if sessions[0].MessageCount != 2 {
		t.Errorf("MessageCount = %d, want 2", sessions[0].MessageCount)
	}

	q := backend.Queries()
	if len(q) != 1 || q[0].SessionID != testutil.SessionID(1) || q[0].Message != "Hello" || q[0].AppName != "demo_app" {
		t.Errorf("queries = %+v", q)
	}

	// The finished turn is persisted
	reloaded, err := storage.NewSessionStore(kv, testSettings.UserID, zerolog.Nop())
	if err != nil {
		t.Fatal(err)
	}
	if got := reloaded.Messages(testutil.SessionID(1)); len(got) != 2 || got[1].Content != "Hi there!" {
		t.Errorf("persisted transcript = %+v", got)
	}
}

func TestCreateSessionPrecedesMutation(t *testing.T) {
	backend := testutil.NewMockBackend()
	c, store, _ := newTestController(t, backend)
	connect(t, c)

	backend.CreateSessionFunc = func(ctx context.Context, backendURL, appName, userID string) (string, error) {
		if n := len(store.Sessions()); n != 0 {
			t.Errorf("store had %d sessions before CreateSession", n)
		}
		if c.ActiveSessionID() != "" {
			t.Error("active session set before CreateSession")
		}
		return "fresh", nil
	}

	cmd, err := c.SendMessage("Hello", nil)
	if err != nil {
		t.Fatal(err)
	}
	drive(t, c, cmd, nil)

	if backend.CreateCalls() != 1 {
		t.Errorf("CreateSession called %d times, want 1", backend.CreateCalls())
	}

	// A second prompt reuses the session
	cmd, err = c.SendMessage("Again", nil)
	if err != nil {
		t.Fatal(err)
	}
	drive(t, c, cmd, nil)

	if backend.CreateCalls() != 1 {
		t.Errorf("CreateSession called %d times after second prompt, want 1", backend.CreateCalls())
	}
	if got := len(c.Messages()); got != 4 {
		t.Errorf("transcript has %d messages, want 4", got)
	}
}

func TestSessionCreationFailure(t *testing.T) {
	backend := testutil.NewMockBackend()
	backend.CreateSessionFunc = func(ctx context.Context, backendURL, appName, userID string) (string, error) {
		return "", &client.SessionCreationError{StatusCode: 500}
	}
	c, store, _ := newTestController(t, backend)
	connect(t, c)

	cmd, err := c.SendMessage("Hello", nil)
	if err != nil {
		t.Fatal(err)
	}
	drive(t, c, cmd, nil)

	if c.Status() != StatusConnected {
		t.Errorf("status = %v, want %v", c.Status(), StatusConnected)
	}
	if alert := c.TakeAlert(); alert == "" {
		t.Error("no alert for failed session creation")
	}
	if c.TakeAlert() != "" {
		t.Error("alert not cleared by TakeAlert")
	}
	if len(store.Sessions()) != 0 || c.ActiveSessionID() != "" || len(c.Messages()) != 0 {
		t.Error("failed session creation committed state")
	}
	if len(backend.Queries()) != 0 {
		t.Error("stream started without a session")
	}
}

func TestStaleTurnDoesNotTouchOtherSessions(t *testing.T) {
	release := make(chan struct{})
	backend := testutil.NewMockBackend()
	backend.StreamQueryFunc = func(cfg client.QueryConfig, sink client.EventSink, cancel *client.Cancellation) {
		sink.HandleEvent(protocol.TextChunk{Content: "one"})
		<-release
		// A backend that ignores cancellation and keeps talking
		sink.HandleEvent(protocol.TextChunk{Content: " two"})
		sink.HandleEvent(protocol.ToolCall{FunctionName: "late", Args: map[string]any{}})
	}

	c, store, _ := newTestController(t, backend)
	testutil.SeedSession(store, "A", "Session A")
	testutil.SeedSession(store, "B", "Session B")
	connect(t, c)

	if err := c.SelectSession("A"); err != nil {
		t.Fatal(err)
	}
	cmd, err := c.SendMessage("question", nil)
	if err != nil {
		t.Fatal(err)
	}

	switched := false
	drive(t, c, cmd, func(msg tea.Msg) {
		if _, ok := msg.(StreamEventMsg); ok && !switched {
			switched = true
			if err := c.SelectSession("B"); err != nil {
				t.Errorf("SelectSession(B) error: %v", err)
			}
			close(release)
		}
	})

	if !switched {
		t.Fatal("stream never delivered its first event")
	}

	wantB := testutil.Transcript()
	gotB := store.Messages("B")
	if len(gotB) != len(wantB) || gotB[len(gotB)-1].Content != wantB[len(wantB)-1].Content {
		t.Errorf("session B changed: %+v", gotB)
	}
	if c.ActiveSessionID() != "B" || len(c.Messages()) != len(wantB) {
		t.Errorf("displayed transcript = %+v", c.Messages())
	}

	gotA := store.Messages("A")
	if last := gotA[len(gotA)-1]; last.Content != "one" {
		t.Errorf("session A reply = %q, want partial content %q kept", last.Content, "one")
	}
	if len(c.ToolCalls()) != 0 {
		t.Errorf("tool calls after switch = %+v", c.ToolCalls())
	}
	if c.Status() != StatusConnected {
		t.Errorf("status = %v, want %v", c.Status(), StatusConnected)
	}
}

func TestDeleteActiveSession(t *testing.T) {
	backend := testutil.NewMockBackend()
	c, store, kv := newTestController(t, backend)
	testutil.SeedSession(store, "keep", "Keep")
	testutil.SeedSession(store, "drop", "Drop")
	connect(t, c)

	if err := c.SelectSession("drop"); err != nil {
		t.Fatal(err)
	}
	if err := c.DeleteSession("drop"); err != nil {
		t.Fatal(err)
	}

	if c.Status() != StatusConnected {
		t.Errorf("status = %v, want %v", c.Status(), StatusConnected)
	}
	if c.ActiveSessionID() != "" {
		t.Errorf("active session = %q, want none", c.ActiveSessionID())
	}
	if len(c.Messages()) != 0 {
		t.Errorf("transcript = %+v, want empty", c.Messages())
	}
	if _, ok := store.Session("drop"); ok {
		t.Error("deleted session still stored")
	}

	reloaded, _ := storage.NewSessionStore(kv, testSettings.UserID, zerolog.Nop())
	if sessions := reloaded.Sessions(); len(sessions) != 1 || sessions[0].ID != "keep" {
		t.Errorf("persisted sessions = %+v", sessions)
	}

	if err := c.DeleteSession("missing"); !errors.Is(err, ErrNoSession) {
		t.Errorf("DeleteSession(missing) = %v, want ErrNoSession", err)
	}
}

func TestDeleteInactiveSessionKeepsActive(t *testing.T) {
	c, store, _ := newTestController(t, testutil.NewMockBackend())
	testutil.SeedSession(store, "a", "A")
	testutil.SeedSession(store, "b", "B")

	if err := c.SelectSession("a"); err != nil {
		t.Fatal(err)
	}
	if err := c.DeleteSession("b"); err != nil {
		t.Fatal(err)
	}
	if c.ActiveSessionID() != "a" {
		t.Errorf("active session = %q, want a", c.ActiveSessionID())
	}
}

func TestStreamErrorIsAppendedInline(t *testing.T) {
	backend := testutil.NewMockBackend()
	backend.StreamQueryFunc = func(cfg client.QueryConfig, sink client.EventSink, cancel *client.Cancellation) {
		testutil.Emit(sink, cancel,
			protocol.TextChunk{Content: "Partial"},
			protocol.Error{Content: "HTTP error 502: bad gateway"},
		)
	}
	c, _, _ := newTestController(t, backend)
	connect(t, c)

	cmd, _ := c.SendMessage("Hello", nil)
	drive(t, c, cmd, nil)

	msgs := c.Messages()
	want := "Partial\n\n**Error:** HTTP error 502: bad gateway"
	if msgs[1].Content != want {
		t.Errorf("assistant content = %q, want %q", msgs[1].Content, want)
	}
	if c.Status() != StatusConnected {
		t.Errorf("status = %v", c.Status())
	}
	if c.TakeAlert() != "" {
		t.Error("stream error raised an alert")
	}
}

func TestToolCallsArePerTurn(t *testing.T) {
	backend := testutil.NewMockBackend()
	backend.StreamQueryFunc = func(cfg client.QueryConfig, sink client.EventSink, cancel *client.Cancellation) {
		testutil.Emit(sink, cancel,
			protocol.ToolCall{FunctionName: "lookup", Args: map[string]any{"q": cfg.Message}},
			protocol.TextChunk{Content: "done"},
		)
	}
	c, _, _ := newTestController(t, backend)
	connect(t, c)

	cmd, _ := c.SendMessage("first", nil)
	drive(t, c, cmd, nil)

	calls := c.ToolCalls()
	if len(calls) != 1 || calls[0].FunctionName != "lookup" || calls[0].ID == "" {
		t.Fatalf("tool calls = %+v", calls)
	}

	cmd, _ = c.SendMessage("second", nil)
	drive(t, c, cmd, nil)

	calls = c.ToolCalls()
	if len(calls) != 1 || calls[0].Args["q"] != "second" {
		t.Errorf("tool calls after second turn = %+v", calls)
	}
}

func TestAttachmentsAreNotedInPrompt(t *testing.T) {
	backend := testutil.NewMockBackend()
	c, _, _ := newTestController(t, backend)
	connect(t, c)

	cmd, _ := c.SendMessage("Summarize", []Attachment{{Name: "a.txt"}, {Name: "b.pdf"}})
	drive(t, c, cmd, nil)

	want := "Summarize\n[Attachment: a.txt]\n[Attachment: b.pdf]"
	if got := backend.Queries()[0].Message; got != want {
		t.Errorf("sent message = %q, want %q", got, want)
	}
	if got := c.Messages()[0].Content; got != want {
		t.Errorf("user message = %q, want %q", got, want)
	}
	if got := c.Sessions()[0].Title; got != "Summarize" {
		t.Errorf("title = %q, want Summarize", got)
	}
}

func TestEmptyPromptGetsDefaultTitle(t *testing.T) {
	c, _, _ := newTestController(t, testutil.NewMockBackend())
	connect(t, c)

	cmd, _ := c.SendMessage("", []Attachment{{Name: "photo.png"}})
	drive(t, c, cmd, nil)

	if got := c.Sessions()[0].Title; got != storage.DefaultTitle {
		t.Errorf("title = %q, want %q", got, storage.DefaultTitle)
	}
	if got := c.Messages()[0].Content; got != "[Attachment: photo.png]" {
		t.Errorf("user message = %q", got)
	}
}

func TestNewChatDiscardsPendingSessionCreation(t *testing.T) {
	backend := testutil.NewMockBackend()
	c, store, _ := newTestController(t, backend)
	connect(t, c)

	cmd, _ := c.SendMessage("Hello", nil)
	c.NewChat()

	if c.Status() != StatusConnected {
		t.Errorf("status after NewChat = %v", c.Status())
	}

	drive(t, c, cmd, nil)

	if len(store.Sessions()) != 0 || c.ActiveSessionID() != "" {
		t.Error("late session creation was applied")
	}
	if len(backend.Queries()) != 0 {
		t.Error("late session creation started a stream")
	}
}

func TestSendMessageGuards(t *testing.T) {
	c, _, _ := newTestController(t, testutil.NewMockBackend())

	if _, err := c.SendMessage("hi", nil); !errors.Is(err, ErrNotConnected) {
		t.Errorf("SendMessage() while disconnected = %v, want ErrNotConnected", err)
	}

	connect(t, c)
	if _, err := c.SendMessage("hi", nil); err != nil {
		t.Fatal(err)
	}
	if _, err := c.SendMessage("again", nil); !errors.Is(err, ErrBusy) {
		t.Errorf("SendMessage() while creating session = %v, want ErrBusy", err)
	}
}

func TestConnectAndConfigure(t *testing.T) {
	backend := testutil.NewMockBackend()
	c, _, _ := newTestController(t, backend)

	bad := testSettings
	bad.BackendURL = "localhost:8000"
	if err := c.Configure(bad); err != nil {
		t.Fatal(err)
	}
	if _, err := c.Connect(); err == nil {
		t.Error("Connect() accepted a URL without scheme")
	}
	if c.Status() != StatusDisconnected {
		t.Errorf("status = %v after invalid settings", c.Status())
	}

	if err := c.Configure(testSettings); err != nil {
		t.Fatal(err)
	}
	connect(t, c)

	if err := c.Configure(bad); !errors.Is(err, ErrSettingsLocked) {
		t.Errorf("Configure() while connected = %v, want ErrSettingsLocked", err)
	}

	c.Reset()
	if c.Status() != StatusDisconnected {
		t.Errorf("status after Reset = %v", c.Status())
	}
	if err := c.Configure(bad); err != nil {
		t.Errorf("Configure() after Reset = %v", err)
	}
}

func TestConfigureNewUserSwapsHistory(t *testing.T) {
	backend := testutil.NewMockBackend()
	c, store, _ := newTestController(t, backend)
	testutil.SeedSession(store, "s1", "First")
	if err := c.SelectSession("s1"); err != nil {
		t.Fatal(err)
	}

	bob := testSettings
	bob.UserID = "bob"
	if err := c.Configure(bob); err != nil {
		t.Fatalf("Configure() error: %v", err)
	}
	if got := c.Sessions(); len(got) != 0 {
		t.Fatalf("bob sees sessions of user-1: %+v", got)
	}
	if c.ActiveSessionID() != "" {
		t.Errorf("active session %q kept across users", c.ActiveSessionID())
	}

	connect(t, c)
	cmd, err := c.SendMessage("Hello", nil)
	if err != nil {
		t.Fatal(err)
	}
	drive(t, c, cmd, nil)

	queries := backend.Queries()
	if len(queries) != 1 || queries[0].UserID != "bob" || queries[0].SessionID == "s1" {
		t.Errorf("queries = %+v, want a fresh session for bob", queries)
	}

	c.Reset()
	if err := c.Configure(testSettings); err != nil {
		t.Fatal(err)
	}
	if got := c.Sessions(); len(got) != 1 || got[0].ID != "s1" {
		t.Errorf("user-1 sessions after switching back = %+v", got)
	}
}

func TestConnectFailure(t *testing.T) {
	backend := testutil.NewMockBackend()
	backend.PingFunc = func(ctx context.Context, backendURL string) error {
		return errors.New("connection refused")
	}
	c, _, _ := newTestController(t, backend)

	cmd, err := c.Connect()
	if err != nil {
		t.Fatal(err)
	}
	drive(t, c, cmd, nil)

	if c.Status() != StatusDisconnected {
		t.Errorf("status = %v, want %v", c.Status(), StatusDisconnected)
	}
	if alert := c.TakeAlert(); alert != "Connection failed: connection refused" {
		t.Errorf("alert = %q", alert)
	}
}

func TestResetDuringConnectIgnoresResult(t *testing.T) {
	c, _, _ := newTestController(t, testutil.NewMockBackend())

	cmd, err := c.Connect()
	if err != nil {
		t.Fatal(err)
	}
	c.Reset()
	drive(t, c, cmd, nil)

	if c.Status() != StatusDisconnected {
		t.Errorf("status = %v, want %v", c.Status(), StatusDisconnected)
	}
}

func TestStatusString(t *testing.T) {
	tests := map[Status]string{
		StatusDisconnected: "Disconnected",
		StatusConnecting:   "Connecting...",
		StatusConnected:    "Connected (SSE)",
		StatusStreaming:    "Streaming...",
	}
	for status, want := range tests {
		if got := status.String(); got != want {
			t.Errorf("%d.String() = %q, want %q", status, got, want)
		}
	}
	if !StatusConnected.AcceptsInput() || StatusStreaming.AcceptsInput() {
		t.Error("only connected accepts input")
	}
}

func TestRenameSession(t *testing.T) {
	c, store, kv := newTestController(t, testutil.NewMockBackend())
	testutil.SeedSession(store, "a", "Old")

	if err := c.RenameSession("a", "  Weather in Paris "); err != nil {
		t.Fatalf("RenameSession() error: %v", err)
	}
	reloaded, _ := storage.NewSessionStore(kv, testSettings.UserID, zerolog.Nop())
	if sess, _ := reloaded.Session("a"); sess.Title != "Weather in Paris" {
		t.Errorf("persisted title = %q", sess.Title)
	}

	if err := c.RenameSession("a", "   "); err != nil {
		t.Fatal(err)
	}
	if sess, _ := store.Session("a"); sess.Title != storage.DefaultTitle {
		t.Errorf("blank rename title = %q, want %q", sess.Title, storage.DefaultTitle)
	}

	if err := c.RenameSession("missing", "x"); !errors.Is(err, ErrNoSession) {
		t.Errorf("RenameSession(missing) = %v, want ErrNoSession", err)
	}
}
