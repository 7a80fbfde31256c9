package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"github.com/sahilm/fuzzy"

	"agentchat/storage"
)

type sessionManagerState struct {
	active   bool
	list     []storage.ChatSession
	filtered []storage.ChatSession
	selected int

	filterMode  bool
	filterInput textinput.Model

	confirmDelete *storage.ChatSession

	exportMode  bool
	exportInput textinput.Model
	exporting   bool

	renameMode  bool
	renameInput textinput.Model
}

func newSessionManagerState() sessionManagerState {
	filter := textinput.New()
	filter.Placeholder = "Type to filter..."
	filter.Prompt = "/ "

	export := textinput.New()
	export.Prompt = "Path: "
	export.CharLimit = 512

	rename := textinput.New()
	rename.Prompt = ""
	rename.CharLimit = 100

	return sessionManagerState{
		filterInput: filter,
		exportInput: export,
		renameInput: rename,
	}
}

func (s *sessionManagerState) close() {
	s.active = false
	s.filterMode = false
	s.filterInput.Blur()
	s.filterInput.SetValue("")
	s.filtered = nil
	s.confirmDelete = nil
	s.exportMode = false
	s.exportInput.Blur()
	s.exporting = false
	s.renameMode = false
	s.renameInput.Blur()
}

// visible returns the filtered list while filtering, the whole list otherwise
func (s sessionManagerState) visible() []storage.ChatSession {
	if s.filterMode && s.filterInput.Value() != "" {
		return s.filtered
	}
	return s.list
}

func (s sessionManagerState) current() (storage.ChatSession, bool) {
	list := s.visible()
	if s.selected < 0 || s.selected >= len(list) {
		return storage.ChatSession{}, false
	}
	return list[s.selected], true
}

// applyFilter fuzzy-matches session titles against the filter input
func (s *sessionManagerState) applyFilter() {
	s.filtered = filterSessions(s.list, s.filterInput.Value())
	if n := len(s.visible()); s.selected >= n {
		s.selected = max(n-1, 0)
	}
}

func filterSessions(list []storage.ChatSession, query string) []storage.ChatSession {
	if query == "" {
		return list
	}

	targets := make([]string, len(list))
	for i, sess := range list {
		targets[i] = sess.Title
	}

	matches := fuzzy.Find(query, targets)
	out := make([]storage.ChatSession, len(matches))
	for i, match := range matches {
		out[i] = list[match.Index]
	}
	return out
}

func (a *AppView) openSessionManager() tea.Cmd {
	a.sessions.active = true
	a.sessions.list = a.controller.Sessions()
	a.sessions.selected = 0
	active := a.controller.ActiveSessionID()
	for i, sess := range a.sessions.list {
		if sess.ID == active {
			a.sessions.selected = i
			break
		}
	}
	return nil
}

func (a *AppView) reloadSessions() {
	a.sessions.list = a.controller.Sessions()
	a.sessions.applyFilter()
	if n := len(a.sessions.visible()); a.sessions.selected >= n {
		a.sessions.selected = max(n-1, 0)
	}
}

func (a AppView) handleSessionManagerKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	s := &a.sessions
	kb := a.keys
	key := msg.String()

	if s.confirmDelete != nil {
		switch key {
		case "y", "Y":
			id := s.confirmDelete.ID
			s.confirmDelete = nil
			if err := a.controller.DeleteSession(id); err != nil {
				a.showAlert("⚠  Delete Failed", err.Error(), ModalTypeError)
				return a, nil
			}
			a.reloadSessions()
			cmd := a.afterControllerChange()
			return a, cmd
		case "n", "N", "esc":
			s.confirmDelete = nil
		}
		return a, nil
	}

	if s.exporting {
		return a, nil
	}

	if s.exportMode {
		switch key {
		case "esc":
			s.exportMode = false
			s.exportInput.Blur()
			return a, nil
		case "enter":
			sess, ok := s.current()
			path := strings.TrimSpace(s.exportInput.Value())
			if !ok || path == "" {
				return a, nil
			}
			s.exporting = true
			s.exportInput.Blur()
			return a, a.controller.ExportSession(sess.ID, path)
		}
		var cmd tea.Cmd
		s.exportInput, cmd = s.exportInput.Update(msg)
		return a, cmd
	}

	if s.renameMode {
		switch key {
		case "esc":
			s.renameMode = false
			s.renameInput.Blur()
			return a, nil
		case "enter":
			sess, ok := s.current()
			s.renameMode = false
			s.renameInput.Blur()
			if !ok {
				return a, nil
			}
			if err := a.controller.RenameSession(sess.ID, s.renameInput.Value()); err != nil {
				a.showAlert("⚠  Rename Failed", err.Error(), ModalTypeError)
				return a, nil
			}
			a.reloadSessions()
			cmd := a.afterControllerChange()
			return a, cmd
		}
		var cmd tea.Cmd
		s.renameInput, cmd = s.renameInput.Update(msg)
		return a, cmd
	}

	if s.filterMode {
		switch key {
		case "esc":
			s.filterMode = false
			s.filterInput.Blur()
			s.filterInput.SetValue("")
			s.filtered = nil
			s.selected = 0
			return a, nil
		case "enter":
			return a.selectManagedSession()
		case kb.GetActionKey("session_down_filtered"), "down":
			if s.selected < len(s.visible())-1 {
				s.selected++
			}
			return a, nil
		case kb.GetActionKey("session_up_filtered"), "up":
			if s.selected > 0 {
				s.selected--
			}
			return a, nil
		}
		var cmd tea.Cmd
		s.filterInput, cmd = s.filterInput.Update(msg)
		s.applyFilter()
		return a, cmd
	}

	switch key {
	case "esc", kb.GetActionKey("session_manager"):
		s.close()
		return a, nil

	case "/":
		s.filterMode = true
		s.filterInput.SetValue("")
		s.filterInput.Focus()
		s.applyFilter()
		return a, textinput.Blink

	case kb.GetActionKey("session_down"), kb.GetActionKey("session_down_arrow"):
		if s.selected < len(s.visible())-1 {
			s.selected++
		}
		return a, nil

	case kb.GetActionKey("session_up"), kb.GetActionKey("session_up_arrow"):
		if s.selected > 0 {
			s.selected--
		}
		return a, nil

	case "enter":
		return a.selectManagedSession()

	case kb.GetActionKey("session_delete"):
		if sess, ok := s.current(); ok {
			s.confirmDelete = &sess
		}
		return a, nil

	case kb.GetActionKey("session_export"):
		if sess, ok := s.current(); ok {
			s.exportMode = true
			s.exportInput.SetValue(storage.GenerateExportPath(sess.Title))
			s.exportInput.CursorEnd()
			s.exportInput.Focus()
			return a, textinput.Blink
		}
		return a, nil

	case "r":
		if sess, ok := s.current(); ok {
			s.renameMode = true
			s.renameInput.SetValue(sess.Title)
			s.renameInput.CursorEnd()
			s.renameInput.Focus()
			return a, textinput.Blink
		}
		return a, nil
	}

	return a, nil
}

func (a AppView) selectManagedSession() (tea.Model, tea.Cmd) {
	sess, ok := a.sessions.current()
	if !ok {
		return a, nil
	}
	if err := a.controller.SelectSession(sess.ID); err != nil {
		a.showAlert("⚠  Cannot Open Session", err.Error(), ModalTypeError)
		return a, nil
	}
	a.sessions.close()
	a.highlightIdx = -1
	cmd := a.afterControllerChange()
	return a, cmd
}

func (a AppView) renderSessionManager() string {
	s := a.sessions
	width, height := a.width, a.height

	if s.confirmDelete != nil {
		warningText := lipgloss.NewStyle().Foreground(dangerColor).Render("This action cannot be undone.")
		return RenderConfirmationModal(ConfirmationState{
			Active:  true,
			Title:   "⚠ Delete Session",
			Message: fmt.Sprintf("Are you sure you want to delete:\n\n\"%s\"\n\n%s", s.confirmDelete.Title, warningText),
		}, width, height)
	}

	if s.exporting {
		return renderSpinner("Exporting session...", a.spinner.View(), width, height)
	}

	if s.exportMode {
		return renderExportModal(s.exportInput, width, height)
	}

	modalWidth := min(width-10, 110)
	modalHeight := height - 6

	list := s.visible()

	var header string
	switch {
	case s.filterMode:
		header = s.filterInput.View()
	case len(s.list) == 1:
		header = "1 session"
	default:
		header = fmt.Sprintf("%d sessions", len(s.list))
	}
	if s.filterMode && s.filterInput.Value() != "" {
		header += DimStyle.Render(fmt.Sprintf("  (%d of %d)", len(list), len(s.list)))
	}

	var lines []string
	maxLines := max(modalHeight-8, 1)

	if len(list) == 0 {
		emptyMsg := "No sessions yet. Start chatting to create one!"
		if s.filterMode {
			emptyMsg = "No matches found"
		}
		lines = append(lines, lipgloss.NewStyle().
			Foreground(dimColor).
			Italic(true).
			Align(lipgloss.Center).
			Width(modalWidth).
			Render(emptyMsg))
	}

	startIdx, endIdx := scrollWindow(len(list), s.selected, maxLines)
	active := a.controller.ActiveSessionID()
	for i := startIdx; i < endIdx; i++ {
		sess := list[i]

		indicator := "  "
		if i == s.selected {
			indicator = "▶ "
		}

		meta := fmt.Sprintf("%d msgs · %s", sess.MessageCount, humanize.Time(sess.CreatedAt))
		if sess.ID == active {
			meta = "● " + meta
		}
		nameWidth := max(modalWidth-len(indicator)-len(meta)-4, 10)

		var name string
		if s.renameMode && i == s.selected {
			name = lipgloss.NewStyle().Foreground(accentColor).Bold(true).Render(s.renameInput.View())
		} else {
			name = padRight(truncate(sess.Title, nameWidth), nameWidth)
		}

		line := indicator + name + "  " + DimStyle.Render(meta)
		if i == s.selected && !s.renameMode {
			line = SelectedStyle.Render(indicator+name) + "  " + DimStyle.Render(meta)
		}
		lines = append(lines, line)
	}

	footer := FormatFooter(
		"j/k", "Navigate",
		"Enter", "Open",
		"/", "Filter",
		"r", "Rename",
		a.keys.DisplayActionKey("session_export"), "Export",
		a.keys.DisplayActionKey("session_delete"), "Delete",
		"Esc", "Close",
	)
	if s.renameMode {
		footer = FormatFooter("Enter", "Save", "Esc", "Cancel")
	}

	headerLine := lipgloss.NewStyle().
		Foreground(dimColor).
		Align(lipgloss.Center).
		Width(modalWidth).
		Render(header)

	return RenderThreeSectionModal(
		"Session Manager",
		append([]string{headerLine, ""}, lines...),
		footer,
		ModalTypeInfo,
		modalWidth,
		width,
		height,
	)
}

// scrollWindow returns the [start, end) slice of n rows that keeps selected
// on screen when only maxLines fit.
func scrollWindow(n, selected, maxLines int) (int, int) {
	if n <= maxLines {
		return 0, n
	}
	switch {
	case selected < maxLines/2:
		return 0, maxLines
	case selected >= n-maxLines/2:
		return n - maxLines, n
	default:
		start := selected - maxLines/2
		return start, start + maxLines
	}
}

func renderExportModal(exportInput textinput.Model, width, height int) string {
	modalWidth := min(width-10, 80)

	lines := []string{
		"Write this session as JSON to:",
		"",
		lipgloss.NewStyle().Foreground(accentColor).Render(exportInput.View()),
	}

	return RenderThreeSectionModal(
		"Export Session",
		lines,
		FormatFooter("Enter", "Export", "Esc", "Cancel"),
		ModalTypeInfo,
		modalWidth,
		width,
		height,
	)
}
