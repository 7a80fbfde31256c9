package ui

import (
	"errors"
	"fmt"
	"strings"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"agentchat/model"
)

func (a AppView) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	// Update file picker if active (needs to receive ALL message types EXCEPT KeyMsg)
	// KeyMsg is handled in handleAttachPicker to check the selected path first
	if a.attachPicker.Active {
		if _, isKey := msg.(tea.KeyMsg); !isKey {
			var cmd tea.Cmd
			a.attachPicker.Picker, cmd = a.attachPicker.Picker.Update(msg)
			cmds = append(cmds, cmd)
		}
	}

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.ready = true
		a.layout()
		a.refreshTranscript(true)
		cmd := a.renderPending()
		return a, cmd

	case spinner.TickMsg:
		var cmd tea.Cmd
		a.spinner, cmd = a.spinner.Update(msg)
		if a.controller.Status() == model.StatusStreaming {
			a.refreshTranscript(a.viewport.AtBottom())
		}
		return a, cmd

	case markdownRenderedMsg:
		a.rendered[msg.MessageID] = renderedMessage{content: msg.Content, width: msg.Width, text: msg.Rendered}
		a.refreshTranscript(a.viewport.AtBottom())
		return a, nil

	case model.SessionExportedMsg:
		a.sessions.exporting = false
		a.sessions.exportMode = false
		if msg.Err != nil {
			a.logger.Error().Err(msg.Err).Msg("session export failed")
			a.showAlert("⚠  Export Failed", msg.Err.Error(), ModalTypeError)
			return a, nil
		}
		a.showAlert("Session Exported", "Saved to\n"+msg.Path, ModalTypeInfo)
		return a, nil

	case tea.KeyMsg:
		return a.handleKey(msg)
	}

	// Everything else belongs to the controller: stream events, session
	// creation and connection results.
	cmds = append(cmds, a.controller.Update(msg))
	cmds = append(cmds, a.afterControllerChange())
	batch := tea.Batch(cmds...)

	return a, batch
}

// afterControllerChange re-syncs the view with the controller after any call
// that may have moved its state.
func (a *AppView) afterControllerChange() tea.Cmd {
	a.collectAlert()
	a.syncInput()

	status := a.controller.Status()
	sessionChanged := a.controller.ActiveSessionID() != a.lastSession
	finished := a.lastStatus == model.StatusStreaming && status != model.StatusStreaming
	a.lastStatus = status
	a.lastSession = a.controller.ActiveSessionID()

	a.layout()
	a.refreshTranscript(sessionChanged || status == model.StatusStreaming || finished)

	if finished || sessionChanged {
		return a.renderPending()
	}
	return nil
}

func (a AppView) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	kb := a.keys
	key := msg.String()
	a.notice = ""

	// PRIORITY 0: Always-global shortcuts
	if key == kb.GetActionKey("quit") || key == "ctrl+c" {
		a.controller.Reset()
		return a, tea.Quit
	}

	if a.alert.active {
		if key == "enter" || key == "esc" {
			a.alert = alertState{}
		}
		return a, nil
	}

	if key == kb.GetActionKey("help") {
		a.showHelp = !a.showHelp
		return a, nil
	}
	if a.showHelp {
		if key == "esc" {
			a.showHelp = false
		}
		return a, nil
	}

	// PRIORITY 1: Open modals own the keyboard
	switch {
	case a.settings.active:
		return a.handleSettingsKey(msg)
	case a.sessions.active:
		return a.handleSessionManagerKey(msg)
	case a.search.active:
		return a.handleSearchKey(msg)
	case a.attachPicker.Active:
		return a.handleAttachPicker(msg)
	}

	// PRIORITY 2: Main view actions
	switch key {
	case kb.GetActionKey("new_chat"):
		a.controller.NewChat()
		a.attachments = nil
		a.textarea.Reset()
		a.highlightIdx = -1
		cmd := a.afterControllerChange()
		return a, cmd

	case kb.GetActionKey("session_manager"):
		a.closeAllModals()
		cmd := a.openSessionManager()
		return a, cmd

	case kb.GetActionKey("search_all_sessions"):
		a.closeAllModals()
		cmd := a.openSearch(true)
		return a, cmd

	case kb.GetActionKey("search_messages"):
		a.closeAllModals()
		cmd := a.openSearch(false)
		return a, cmd

	case kb.GetActionKey("settings"):
		a.closeAllModals()
		cmd := a.openSettings()
		return a, cmd

	case kb.GetActionKey("attach_file"):
		a.closeAllModals()
		a.attachPicker.Activate()
		return a, a.attachPicker.Picker.Init()

	case kb.GetActionKey("connect"):
		cmd, err := a.controller.Connect()
		if err != nil {
			a.showAlert("⚠  Invalid Settings", err.Error()+"\n\nOpen settings with "+kb.DisplayActionKey("settings")+" to fix them.", ModalTypeWarning)
			return a, nil
		}
		cmd = tea.Batch(cmd, a.afterControllerChange())
		return a, cmd

	case kb.GetActionKey("disconnect"):
		a.controller.Reset()
		cmd := a.afterControllerChange()
		return a, cmd

	case kb.GetActionKey("sign_out"):
		a.controller.Reset()
		if err := a.identity.SignOut(); err != nil {
			a.logger.Error().Err(err).Msg("sign out failed")
			a.showAlert("⚠  Sign Out Failed", err.Error(), ModalTypeError)
			return a, nil
		}
		a.signedOut = true
		return a, tea.Quit

	case kb.GetActionKey("yank_last_response"):
		return a.copyLastReply()

	case kb.GetActionKey("yank_conversation"):
		return a.copyConversation()

	case kb.GetActionKey("toggle_tool_calls"):
		a.showToolCalls = !a.showToolCalls
		a.layout()
		a.refreshTranscript(false)
		return a, nil

	case kb.GetActionKey("quick_action_1"):
		return a.runQuickAction(0)

	case kb.GetActionKey("quick_action_2"):
		return a.runQuickAction(1)

	case kb.GetActionKey("clear_input"):
		a.textarea.Reset()
		a.attachments = nil
		a.layout()
		return a, nil

	case kb.GetActionKey("scroll_down"):
		a.viewport.ScrollDown(1)
		return a, nil

	case kb.GetActionKey("scroll_up"):
		a.viewport.ScrollUp(1)
		return a, nil

	case kb.GetActionKey("half_page_down"):
		a.viewport.HalfPageDown()
		return a, nil

	case kb.GetActionKey("half_page_up"):
		a.viewport.HalfPageUp()
		return a, nil

	case kb.GetActionKey("page_down"), "pgdown":
		a.viewport.PageDown()
		return a, nil

	case kb.GetActionKey("page_up"), "pgup":
		a.viewport.PageUp()
		return a, nil

	case kb.GetActionKey("scroll_to_top"):
		a.viewport.GotoTop()
		return a, nil

	case kb.GetActionKey("scroll_to_bottom"):
		a.viewport.GotoBottom()
		return a, nil

	case "enter":
		return a.submitPrompt(a.textarea.Value())
	}

	if !a.textarea.Focused() {
		return a, nil
	}

	var cmd tea.Cmd
	a.textarea, cmd = a.textarea.Update(msg)
	return a, cmd
}

func (a AppView) submitPrompt(prompt string) (tea.Model, tea.Cmd) {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" && len(a.attachments) == 0 {
		return a, nil
	}

	cmd, err := a.controller.SendMessage(prompt, a.attachments)
	if err != nil {
		kind := ModalTypeWarning
		if !errors.Is(err, model.ErrNotConnected) && !errors.Is(err, model.ErrBusy) {
			kind = ModalTypeError
		}
		a.showAlert("⚠  Cannot Send", err.Error(), kind)
		return a, nil
	}

	a.textarea.Reset()
	a.attachments = nil
	a.highlightIdx = -1
	cmd = tea.Batch(cmd, a.afterControllerChange())
	return a, cmd
}

func (a AppView) runQuickAction(idx int) (tea.Model, tea.Cmd) {
	if idx >= len(a.cfg.QuickActions) {
		return a, nil
	}
	return a.submitPrompt(a.cfg.QuickActions[idx].Prompt)
}

func (a AppView) copyLastReply() (tea.Model, tea.Cmd) {
	msgs := a.controller.Messages()
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].Role != "assistant" || msgs[i].Content == "" {
			continue
		}
		if err := clipboard.WriteAll(msgs[i].Content); err != nil {
			a.logger.Warn().Err(err).Msg("clipboard write failed")
			a.notice = "Copy failed: " + err.Error()
			return a, nil
		}
		a.notice = "Copied last reply to clipboard"
		return a, nil
	}
	a.notice = "Nothing to copy yet"
	return a, nil
}

func (a AppView) copyConversation() (tea.Model, tea.Cmd) {
	msgs := a.controller.Messages()
	if len(msgs) == 0 {
		a.notice = "Nothing to copy yet"
		return a, nil
	}

	var allText strings.Builder
	for _, msg := range msgs {
		fmt.Fprintf(&allText, "[%s] %s:\n%s\n\n", msg.Timestamp.Format("15:04"), roleLabel(msg.Role), msg.Content)
	}
	if err := clipboard.WriteAll(allText.String()); err != nil {
		a.logger.Warn().Err(err).Msg("clipboard write failed")
		a.notice = "Copy failed: " + err.Error()
		return a, nil
	}
	a.notice = fmt.Sprintf("Copied %d messages to clipboard", len(msgs))
	return a, nil
}
