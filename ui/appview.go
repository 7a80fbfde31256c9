package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"github.com/rs/zerolog"

	"agentchat/auth"
	"agentchat/config"
	"agentchat/model"
)

const sidebarWidth = 34

type AppView struct {
	controller *model.Controller
	identity   *auth.State
	user       auth.User
	cfg        *config.Config
	keys       *config.KeyBindingsConfig
	logger     zerolog.Logger

	// UI Components
	viewport viewport.Model
	textarea textarea.Model
	spinner  spinner.Model

	// Window state
	width  int
	height int
	ready  bool

	// Transcript rendering
	rendered      map[string]renderedMessage
	messageLines  []int // first viewport line of each message
	highlightIdx  int
	showToolCalls bool
	toolPanel     string
	lastStatus    model.Status
	lastSession   string

	showHelp bool
	alert    alertState
	notice   string

	attachments  []model.Attachment
	attachPicker FilePickerState

	sessions sessionManagerState
	search   searchState
	settings settingsState

	signedOut bool
}

type alertState struct {
	active  bool
	title   string
	message string
	kind    ModalType
}

func NewAppView(controller *model.Controller, identity *auth.State, cfg *config.Config, keys *config.KeyBindingsConfig, logger zerolog.Logger) AppView {
	user, _ := identity.Current()

	ta := textarea.New()
	ta.Placeholder = "Connect with " + keys.DisplayActionKey("connect") + " to start chatting..."
	ta.CharLimit = 0
	ta.ShowLineNumbers = false
	ta.SetHeight(3)
	ta.SetWidth(80)

	// Custom KeyMap: Alt+Enter for newline, Enter alone sends (handled separately)
	ta.KeyMap.InsertNewline = key.NewBinding(key.WithKeys("alt+enter"))

	// Set dynamic prompt: "> " for first line, "| " for subsequent lines
	ta.SetPromptFunc(2, func(lineIdx int) string {
		if lineIdx == 0 {
			return "> "
		}
		return "| "
	})
	ta.Blur()

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(accentColor)

	return AppView{
		controller:    controller,
		identity:      identity,
		user:          user,
		cfg:           cfg,
		keys:          keys,
		logger:        logger,
		viewport:      viewport.New(0, 0),
		textarea:      ta,
		spinner:       sp,
		rendered:      make(map[string]renderedMessage),
		highlightIdx:  -1,
		showToolCalls: true,
		lastStatus:    controller.Status(),
		attachPicker: NewFilePickerState(FilePickerConfig{
			Title:      "Attach File",
			ShowHidden: false,
		}),
		sessions: newSessionManagerState(),
		search:   newSearchState(),
		settings: newSettingsState(),
	}
}

// SignedOut reports whether the program ended because the user signed out
func (a AppView) SignedOut() bool {
	return a.signedOut
}

func (a AppView) Init() tea.Cmd {
	// Don't render markdown here - wait for WindowSizeMsg to get correct width
	return tea.Batch(textarea.Blink, a.spinner.Tick)
}

func (a AppView) View() string {
	if !a.ready {
		return "Loading agentchat..."
	}

	// Modal rendering order (top to bottom layers):
	// 1. Alerts
	// 2. Help (can peek while in other modals)
	// 3. Settings
	// 4. Session manager
	// 5. Search
	// 6. Attachment picker
	if a.alert.active {
		return RenderAcknowledgeModal(a.alert.title, a.alert.message, a.alert.kind, a.width, a.height)
	}

	if a.showHelp {
		return a.renderHelpModal(a.width, a.height)
	}

	if a.settings.active {
		return a.renderSettings()
	}

	if a.sessions.active {
		return a.renderSessionManager()
	}

	if a.search.active {
		return a.renderSearch()
	}

	if a.attachPicker.Active {
		return RenderFilePickerModal(a.attachPicker, a.width, a.height)
	}

	sidebar := SidebarStyle.
		Width(sidebarWidth).
		Height(a.height).
		Render(a.renderSidebar(sidebarWidth))

	return lipgloss.JoinHorizontal(lipgloss.Top, sidebar, " ", a.renderMain())
}

func (a AppView) renderMain() string {
	// Title bar - "agentchat - App - Session title"
	title := AssistantStyle.Bold(true).Render("agentchat")
	title += TitleStyle.Render(" - " + a.controller.Settings().AppName)
	sessionTitle := "New Chat"
	if id := a.controller.ActiveSessionID(); id != "" {
		if sess, ok := a.controller.Store().Session(id); ok {
			sessionTitle = sess.Title
		}
	}
	title += UserStyle.Render(" - " + sessionTitle)
	title = lipgloss.NewStyle().MaxWidth(a.mainWidth()).Render(title)

	parts := []string{title, a.viewport.View()}

	if a.toolPanel != "" {
		parts = append(parts, a.toolPanel)
	}

	if len(a.attachments) > 0 {
		parts = append(parts, a.renderAttachmentLine())
	}

	parts = append(parts, a.textarea.View(), a.renderStatusBar())

	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

func (a AppView) renderStatusBar() string {
	if a.notice != "" {
		return StatusStyle.Render(a.notice)
	}

	// Status bar with bold user green descriptions (main chat uses user green)
	descStyle := lipgloss.NewStyle().Foreground(successColor).Bold(true)
	kb := a.keys
	bar := fmt.Sprintf("%s %s  %s %s  %s %s  %s %s  %s %s  %s %s",
		kb.DisplayActionKey("quit"), descStyle.Render("Quit"),
		kb.DisplayActionKey("connect"), descStyle.Render("Connect"),
		kb.DisplayActionKey("new_chat"), descStyle.Render("New"),
		kb.DisplayActionKey("session_manager"), descStyle.Render("Sessions"),
		kb.DisplayActionKey("search_all_sessions"), descStyle.Render("Search"),
		kb.DisplayActionKey("help"), descStyle.Render("Help"),
	)
	return StatusStyle.MaxWidth(a.mainWidth()).Render(bar)
}

func (a AppView) renderAttachmentLine() string {
	names := make([]string, len(a.attachments))
	for i, att := range a.attachments {
		names[i] = fmt.Sprintf("%s (%s)", att.Name, humanize.IBytes(uint64(att.Size)))
	}
	line := "📎 " + strings.Join(names, ", ")
	return DimStyle.Render(truncate(line, a.mainWidth()))
}

func (a AppView) mainWidth() int {
	w := a.width - sidebarWidth - 3
	if w < 20 {
		w = 20
	}
	return w
}

// layout sizes the transcript around the fixed-height parts of the main column
func (a *AppView) layout() {
	mainWidth := a.mainWidth()
	a.textarea.SetWidth(mainWidth)

	a.toolPanel = ""
	if a.showToolCalls {
		a.toolPanel = a.renderToolPanel(mainWidth, a.height/3)
	}

	used := 1 + a.textarea.Height() + 1 // title + input + status bar
	if a.toolPanel != "" {
		used += lipgloss.Height(a.toolPanel)
	}
	if len(a.attachments) > 0 {
		used++
	}

	h := a.height - used
	if h < 3 {
		h = 3
	}
	a.viewport.Width = mainWidth
	a.viewport.Height = h
}

// syncInput enables the prompt box only while the controller accepts input
func (a *AppView) syncInput() {
	if a.controller.Status().AcceptsInput() {
		a.textarea.Placeholder = "Ask the agent... (Enter to send, Alt+Enter for a new line)"
		if !a.textarea.Focused() {
			a.textarea.Focus()
		}
		return
	}

	switch a.controller.Status() {
	case model.StatusStreaming:
		a.textarea.Placeholder = "Waiting for the agent to finish..."
	case model.StatusConnecting:
		a.textarea.Placeholder = "Connecting..."
	default:
		a.textarea.Placeholder = "Connect with " + a.keys.DisplayActionKey("connect") + " to start chatting..."
	}
	a.textarea.Blur()
}

func (a *AppView) closeAllModals() {
	a.showHelp = false
	a.settings.close()
	a.sessions.close()
	a.search.close()
	a.attachPicker.Reset()
}

func (a *AppView) showAlert(title, message string, kind ModalType) {
	a.alert = alertState{active: true, title: title, message: message, kind: kind}
}

// collectAlert surfaces any alert the controller raised
func (a *AppView) collectAlert() {
	if msg := a.controller.TakeAlert(); msg != "" {
		a.showAlert("⚠  Alert", msg, ModalTypeError)
	}
}
