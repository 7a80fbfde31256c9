package ui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"agentchat/storage"
)

// searchState backs both the current-session and the all-sessions search.
type searchState struct {
	active   bool
	global   bool
	input    textinput.Model
	results  []storage.MessageMatch
	selected int
	scroll   int
}

func newSearchState() searchState {
	input := textinput.New()
	input.Placeholder = "Search messages..."
	input.CharLimit = 200
	return searchState{input: input}
}

func (s *searchState) close() {
	s.active = false
	s.input.Blur()
	s.input.SetValue("")
	s.results = nil
	s.selected = 0
	s.scroll = 0
}

func (a *AppView) openSearch(global bool) tea.Cmd {
	a.search.active = true
	a.search.global = global
	a.search.results = nil
	a.search.selected = 0
	a.search.scroll = 0
	a.search.input.SetValue("")
	a.search.input.Focus()
	return textinput.Blink
}

func (a *AppView) runSearch() {
	query := a.search.input.Value()
	if a.search.global {
		a.search.results = a.controller.Store().Search(query)
	} else {
		a.search.results = storage.SearchMessages(a.controller.Messages(), query)
	}
	a.search.selected = 0
	a.search.scroll = 0
}

// searchPageSize is how many results fit in the modal at once
func (a AppView) searchPageSize() int {
	return max((a.height-16)/3, 1)
}

func (a AppView) handleSearchKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	s := &a.search
	kb := a.keys

	switch msg.String() {
	case "esc":
		s.close()
		return a, nil

	case "down", kb.GetActionKey("session_down_filtered"):
		if s.selected < len(s.results)-1 {
			s.selected++
			if s.selected >= s.scroll+a.searchPageSize() {
				s.scroll++
			}
		}
		return a, nil

	case "up", kb.GetActionKey("session_up_filtered"):
		if s.selected > 0 {
			s.selected--
			if s.selected < s.scroll {
				s.scroll = s.selected
			}
		}
		return a, nil

	case "enter":
		if s.selected < 0 || s.selected >= len(s.results) {
			return a, nil
		}
		match := s.results[s.selected]
		if s.global && match.SessionID != a.controller.ActiveSessionID() {
			if err := a.controller.SelectSession(match.SessionID); err != nil {
				s.close()
				a.showAlert("⚠  Cannot Open Session", err.Error(), ModalTypeError)
				return a, nil
			}
		}
		s.close()
		a.highlightIdx = match.MessageIndex
		cmd := a.afterControllerChange()
		a.refreshTranscript(false)
		a.scrollToMessage(match.MessageIndex)
		return a, cmd
	}

	var cmd tea.Cmd
	s.input, cmd = s.input.Update(msg)
	a.runSearch()
	return a, cmd
}

// scrollToMessage centers the viewport on the first line of a message
func (a *AppView) scrollToMessage(idx int) {
	if idx < 0 || idx >= len(a.messageLines) {
		return
	}
	offset := a.messageLines[idx] - a.viewport.Height/2
	offset = min(offset, a.viewport.TotalLineCount()-a.viewport.Height)
	a.viewport.SetYOffset(max(offset, 0))
}

func (a AppView) renderSearch() string {
	s := a.search
	width, height := a.width, a.height

	modalWidth := min(width-4, 100)

	modalStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(dimColor).
		Padding(1, 2)

	title := TitleStyle.Render("🔍 Search Current Session")
	if s.global {
		title = TitleStyle.Render("🔍 Search All Sessions")
	}

	var resultsView string
	switch {
	case len(s.results) == 0 && s.input.Value() == "":
		resultsView = DimStyle.Render("Type to search...")
	case len(s.results) == 0:
		resultsView = DimStyle.Render("No matches found")
	default:
		page := a.searchPageSize()
		startIdx := s.scroll
		endIdx := min(startIdx+page, len(s.results))

		resultsView = fmt.Sprintf("Found %d matches:\n\n", len(s.results))
		if startIdx > 0 {
			resultsView += DimStyle.Render(fmt.Sprintf("↑ %d more above", startIdx)) + "\n\n"
		}

		for i := startIdx; i < endIdx; i++ {
			match := s.results[i]

			roleStyle := UserStyle
			if match.Role == storage.RoleAssistant {
				roleStyle = AssistantStyle
			}

			heading := roleStyle.Render(roleLabel(match.Role)) + " " + DimStyle.Render(match.Timestamp.Format("Jan 2, 3:04 PM"))
			if s.global {
				heading = truncate(match.SessionTitle, 40) + " · " + heading
			}
			preview := truncate(match.Preview, modalWidth-8)

			if i == s.selected {
				resultsView += SelectedStyle.Render("> ") + heading + "\n  " + preview + "\n\n"
			} else {
				resultsView += "  " + heading + "\n  " + preview + "\n\n"
			}
		}

		if endIdx < len(s.results) {
			resultsView += DimStyle.Render(fmt.Sprintf("↓ %d more below", len(s.results)-endIdx))
		}
	}

	footer := FormatFooter("Type", "to search", a.keys.DisplayActionKey("session_down_filtered")+"/"+a.keys.DisplayActionKey("session_up_filtered"), "Navigate", "Enter", "Select", "Esc", "Close")

	content := lipgloss.JoinVertical(
		lipgloss.Left,
		title,
		"",
		s.input.View(),
		"",
		resultsView,
		"",
		footer,
	)

	return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center,
		modalStyle.Width(modalWidth).Render(content))
}
