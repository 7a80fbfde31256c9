package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

type helpEntry struct {
	action string // keybinding action; empty when key is fixed
	key    string
	desc   string
}

type helpSection struct {
	title   string
	entries []helpEntry
}

// helpColumns is the help screen layout: two columns of sections
var helpColumns = [][]helpSection{
	{
		{"Connection", []helpEntry{
			{action: "connect", desc: "Connect"},
			{action: "disconnect", desc: "Disconnect"},
			{action: "settings", desc: "Backend settings"},
			{action: "sign_out", desc: "Sign out"},
			{action: "help", desc: "Toggle this help"},
			{action: "quit", desc: "Quit"},
		}},
		{"Sessions", []helpEntry{
			{action: "new_chat", desc: "New chat"},
			{action: "session_manager", desc: "Session manager"},
			{action: "search_messages", desc: "Search this chat"},
			{action: "search_all_sessions", desc: "Search all chats"},
		}},
	},
	{
		{"Transcript", []helpEntry{
			{action: "scroll_down", desc: "Scroll down"},
			{action: "scroll_up", desc: "Scroll up"},
			{action: "half_page_down", desc: "Half page down"},
			{action: "half_page_up", desc: "Half page up"},
			{action: "scroll_to_top", desc: "Jump to top"},
			{action: "scroll_to_bottom", desc: "Jump to bottom"},
		}},
		{"Prompt", []helpEntry{
			{key: "Enter", desc: "Send"},
			{key: "Alt+Enter", desc: "New line"},
			{action: "attach_file", desc: "Attach file"},
			{action: "clear_input", desc: "Clear input"},
			{action: "quick_action_1", desc: "Quick action 1"},
			{action: "quick_action_2", desc: "Quick action 2"},
			{action: "toggle_tool_calls", desc: "Tool calls panel"},
			{action: "yank_last_response", desc: "Copy last reply"},
			{action: "yank_conversation", desc: "Copy conversation"},
		}},
	},
}

func (a AppView) renderHelpSection(s helpSection) string {
	lines := []string{lipgloss.NewStyle().Foreground(accentColor).Render("## " + s.title)}
	for _, e := range s.entries {
		key := e.key
		if e.action != "" {
			key = a.keys.DisplayActionKey(e.action)
		}
		lines = append(lines, fmt.Sprintf("• %-13s %s", key, e.desc))
	}
	return strings.Join(lines, "\n")
}

func (a AppView) renderHelpModal(width, height int) string {
	columnStyle := lipgloss.NewStyle().Width(42).PaddingLeft(4)

	var columns []string
	for i, col := range helpColumns {
		var sections []string
		for _, s := range col {
			sections = append(sections, a.renderHelpSection(s))
		}
		if i > 0 {
			columns = append(columns, "  ")
		}
		columns = append(columns, columnStyle.Render(strings.Join(sections, "\n\n")))
	}

	content := lipgloss.JoinVertical(
		lipgloss.Center,
		lipgloss.NewStyle().Bold(true).Foreground(successColor).Render("agentchat - Keyboard Shortcuts"),
		"",
		lipgloss.JoinHorizontal(lipgloss.Top, columns...),
		"",
		DimStyle.Render(fmt.Sprintf("Press %s or Esc to close this help", a.keys.DisplayActionKey("help"))),
	)

	box := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(faintColor).
		Padding(1, 2).
		MaxWidth(width)

	return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center, box.Render(content))
}
