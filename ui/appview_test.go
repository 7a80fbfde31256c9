package ui

import (
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"

	"agentchat/auth"
	"agentchat/config"
	"agentchat/model"
	"agentchat/model/testutil"
	"agentchat/storage"
)

type testView struct {
	view     AppView
	store    *storage.SessionStore
	identity *auth.State
	backend  *testutil.MockBackend
}

func newTestView(t *testing.T) *testView {
	t.Helper()

	kv := storage.NewMemoryStore()
	identity := auth.NewState(kv, zerolog.Nop())
	user := auth.Guest(time.Now())
	if err := identity.SignIn(user); err != nil {
		t.Fatalf("SignIn() error: %v", err)
	}

	store, err := storage.NewSessionStore(kv, user.Sub, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewSessionStore() error: %v", err)
	}

	cfg := &config.Config{
		DataDirectory: t.TempDir(),
		BackendURL:    "http://localhost:8000",
		AppName:       "demo_app",
		QuickActions:  []config.QuickAction{{Label: "Hello", Prompt: "Hello"}},
	}
	backend := testutil.NewMockBackend()
	settings := model.Settings{BackendURL: cfg.BackendURL, AppName: cfg.AppName, UserID: user.Sub}
	controller := model.NewController(backend, store, settings, zerolog.Nop())

	tv := &testView{
		view:     NewAppView(controller, identity, cfg, config.DefaultKeybindings(), zerolog.Nop()),
		store:    store,
		identity: identity,
		backend:  backend,
	}
	tv.send(t, tea.WindowSizeMsg{Width: 140, Height: 45})
	return tv
}

// send feeds msg through Update and runs the resulting commands until the
// view goes idle.
func (tv *testView) send(t *testing.T, msg tea.Msg) {
	t.Helper()
	next, cmd := tv.view.Update(msg)
	tv.view = next.(AppView)
	tv.drive(t, cmd)
}

func (tv *testView) press(t *testing.T, keys ...tea.KeyMsg) {
	t.Helper()
	for _, k := range keys {
		tv.send(t, k)
	}
}

// drive runs commands concurrently, like the bubbletea runtime, and applies
// their messages on the test goroutine. Commands that never finish (cursor
// blinks) are abandoned once nothing has arrived for a while.
func (tv *testView) drive(t *testing.T, cmd tea.Cmd) {
	t.Helper()

	msgs := make(chan tea.Msg, 64)
	start := func(cmd tea.Cmd) {
		if cmd != nil {
			go func() { msgs <- cmd() }()
		}
	}
	start(cmd)

	for {
		select {
		case msg := <-msgs:
			switch msg := msg.(type) {
			case nil, tea.QuitMsg:
			case tea.BatchMsg:
				for _, sub := range msg {
					start(sub)
				}
			default:
				next, cmd := tv.view.Update(msg)
				tv.view = next.(AppView)
				start(cmd)
			}
		case <-time.After(300 * time.Millisecond):
			return
		}
	}
}

func altKey(r string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(r), Alt: true}
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

var enterKey = tea.KeyMsg{Type: tea.KeyEnter}

func TestAppViewInputDisabledUntilConnected(t *testing.T) {
	tv := newTestView(t)

	if tv.view.textarea.Focused() {
		t.Fatal("textarea focused while disconnected")
	}
	if !strings.Contains(stripANSI(tv.view.View()), "Disconnected") {
		t.Error("sidebar does not show the disconnected status")
	}

	tv.press(t, altKey("c"))

	if got := tv.view.controller.Status(); got != model.StatusConnected {
		t.Fatalf("status = %v, want Connected", got)
	}
	if !tv.view.textarea.Focused() {
		t.Error("textarea not focused after connecting")
	}
	if !strings.Contains(stripANSI(tv.view.View()), "Connected (SSE)") {
		t.Error("sidebar does not show the connected status")
	}
}

func TestAppViewSendStreamsReply(t *testing.T) {
	tv := newTestView(t)
	tv.press(t, altKey("c"), runes("Hello"), enterKey)

	msgs := tv.view.controller.Messages()
	if len(msgs) != 2 {
		t.Fatalf("got %d messages, want 2", len(msgs))
	}
	if msgs[0].Content != "Hello" || msgs[1].Content != "Hi there!" {
		t.Errorf("transcript = %q / %q", msgs[0].Content, msgs[1].Content)
	}
	if tv.view.textarea.Value() != "" {
		t.Errorf("input not cleared: %q", tv.view.textarea.Value())
	}

	view := stripANSI(tv.view.View())
	if !strings.Contains(view, "Hi there!") {
		t.Error("reply missing from transcript")
	}
	if !strings.Contains(view, "Hello") {
		t.Error("session title missing from sidebar")
	}
}

func TestAppViewQuickAction(t *testing.T) {
	tv := newTestView(t)
	tv.press(t, altKey("c"), altKey("1"))

	if got := len(tv.backend.Queries()); got != 1 {
		t.Fatalf("got %d queries, want 1", got)
	}
	if got := tv.backend.Queries()[0].Message; got != "Hello" {
		t.Errorf("query = %q, want the quick action prompt", got)
	}
}

func TestAppViewSendWhileDisconnectedAlerts(t *testing.T) {
	tv := newTestView(t)

	next, _ := tv.view.submitPrompt("Hello")
	tv.view = next.(AppView)

	if !tv.view.alert.active {
		t.Fatal("no alert for a prompt sent while disconnected")
	}
	if tv.view.alert.message != model.ErrNotConnected.Error() {
		t.Errorf("alert = %q", tv.view.alert.message)
	}

	tv.press(t, enterKey)
	if tv.view.alert.active {
		t.Error("Enter did not dismiss the alert")
	}
}

func TestAppViewSignOut(t *testing.T) {
	tv := newTestView(t)
	tv.press(t, altKey("l"))

	if !tv.view.SignedOut() {
		t.Fatal("SignedOut() = false after sign out")
	}
	if _, ok := tv.identity.Current(); ok {
		t.Error("identity still present after sign out")
	}
}

func TestSessionManagerDelete(t *testing.T) {
	tv := newTestView(t)
	testutil.SeedSession(tv.store, "s1", "First")
	testutil.SeedSession(tv.store, "s2", "Second")

	tv.press(t, altKey("s"))
	if !tv.view.sessions.active {
		t.Fatal("session manager not open")
	}
	if !strings.Contains(stripANSI(tv.view.View()), "2 sessions") {
		t.Error("session count missing")
	}

	tv.press(t, runes("d"))
	if tv.view.sessions.confirmDelete == nil || tv.view.sessions.confirmDelete.ID != "s2" {
		t.Fatalf("confirmDelete = %+v, want s2", tv.view.sessions.confirmDelete)
	}

	tv.press(t, runes("y"))
	sessions := tv.store.Sessions()
	if len(sessions) != 1 || sessions[0].ID != "s1" {
		t.Errorf("sessions after delete = %+v", sessions)
	}
}

func TestSessionManagerOpenSession(t *testing.T) {
	tv := newTestView(t)
	testutil.SeedSession(tv.store, "s1", "First")
	testutil.SeedSession(tv.store, "s2", "Second")

	tv.press(t, altKey("s"), runes("j"), enterKey)

	if got := tv.view.controller.ActiveSessionID(); got != "s1" {
		t.Errorf("active session = %q, want s1", got)
	}
	if tv.view.sessions.active {
		t.Error("session manager still open")
	}
}

func TestSessionManagerRename(t *testing.T) {
	tv := newTestView(t)
	testutil.SeedSession(tv.store, "s1", "First")

	tv.press(t, altKey("s"), runes("r"))
	if !tv.view.sessions.renameMode {
		t.Fatal("rename mode not entered")
	}
	tv.view.sessions.renameInput.SetValue("Renamed")
	tv.press(t, enterKey)

	sess, _ := tv.store.Session("s1")
	if sess.Title != "Renamed" {
		t.Errorf("title = %q, want Renamed", sess.Title)
	}
}

func TestSearchAllSessionsJumpsToMatch(t *testing.T) {
	tv := newTestView(t)
	testutil.SeedSession(tv.store, "s1", "First")

	tv.press(t, altKey("f"), runes("Google"))
	if len(tv.view.search.results) != 1 {
		t.Fatalf("got %d results, want 1", len(tv.view.search.results))
	}

	tv.press(t, enterKey)
	if got := tv.view.controller.ActiveSessionID(); got != "s1" {
		t.Errorf("active session = %q, want s1", got)
	}
	if tv.view.highlightIdx != 3 {
		t.Errorf("highlightIdx = %d, want 3", tv.view.highlightIdx)
	}
}

func TestSettingsReadOnlyWhileConnected(t *testing.T) {
	tv := newTestView(t)
	tv.press(t, altKey("c"), altKey("S"))

	if !tv.view.settings.active || !tv.view.settings.readOnly {
		t.Fatal("settings should open read-only while connected")
	}

	tv.press(t, runes("x"), enterKey)
	if got := tv.view.controller.Settings().BackendURL; got != "http://localhost:8000" {
		t.Errorf("BackendURL changed to %q", got)
	}
}

func TestSettingsSaveConnects(t *testing.T) {
	tv := newTestView(t)
	tv.press(t, altKey("S"))

	tv.view.settings.inputs[settingAppName].SetValue("other_app")
	tv.press(t, enterKey)

	if got := tv.view.controller.Settings().AppName; got != "other_app" {
		t.Errorf("AppName = %q, want other_app", got)
	}
	if got := tv.view.controller.Status(); got != model.StatusConnected {
		t.Errorf("status = %v, want Connected", got)
	}

	saved, err := config.LoadUserConfig(tv.view.cfg.DataDir())
	if err != nil {
		t.Fatalf("LoadUserConfig() error: %v", err)
	}
	if saved.Backend.AppName != "other_app" {
		t.Errorf("persisted app = %q", saved.Backend.AppName)
	}
	if saved.Backend.UserID != "" {
		t.Errorf("default user id was persisted: %q", saved.Backend.UserID)
	}
}

func TestSettingsNewUserIDHidesOtherSessions(t *testing.T) {
	tv := newTestView(t)
	testutil.SeedSession(tv.store, "s1", "Quarterly numbers")
	if !strings.Contains(stripANSI(tv.view.View()), "Quarterly numbers") {
		t.Fatal("seeded session missing from sidebar")
	}

	tv.press(t, altKey("S"))
	tv.view.settings.inputs[settingUserID].SetValue("bob")
	tv.press(t, enterKey)

	if got := tv.view.controller.Settings().UserID; got != "bob" {
		t.Fatalf("UserID = %q, want bob", got)
	}
	if got := tv.view.controller.Sessions(); len(got) != 0 {
		t.Errorf("bob sees sessions of another user: %+v", got)
	}
	if strings.Contains(stripANSI(tv.view.View()), "Quarterly numbers") {
		t.Error("sidebar still lists the previous user's session")
	}

	saved, err := config.LoadUserConfig(tv.view.cfg.DataDir())
	if err != nil {
		t.Fatalf("LoadUserConfig() error: %v", err)
	}
	if saved.Backend.UserID != "bob" {
		t.Errorf("persisted user id = %q, want bob", saved.Backend.UserID)
	}
}

func TestSettingsRejectsInvalidURL(t *testing.T) {
	tv := newTestView(t)
	tv.press(t, altKey("S"))

	tv.view.settings.inputs[settingBackendURL].SetValue("not a url")
	tv.press(t, enterKey)

	if tv.view.settings.err == "" {
		t.Error("no validation error shown")
	}
	if got := tv.view.controller.Status(); got != model.StatusDisconnected {
		t.Errorf("status = %v, want Disconnected", got)
	}
}
