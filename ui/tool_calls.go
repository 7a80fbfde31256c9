package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"agentchat/model"
)

// renderToolPanel lists the current turn's tool calls. Arguments holding a
// list of records are shown as a table, anything else as indented JSON.
// The panel never grows past maxHeight lines.
func (a AppView) renderToolPanel(width, maxHeight int) string {
	calls := a.controller.ToolCalls()
	if len(calls) == 0 || maxHeight < 3 {
		return ""
	}

	var blocks []string
	for _, call := range calls {
		blocks = append(blocks, renderToolCall(call, width))
	}

	lines := strings.Split(strings.Join(blocks, "\n"), "\n")
	// One line goes to the panel border
	if limit := maxHeight - 1; len(lines) > limit {
		hidden := len(lines) - limit + 1
		lines = append(lines[:limit-1], DimStyle.Render(truncate("... "+pluralLines(hidden)+" hidden", width)))
	}

	return ToolPanelStyle.Width(width).Render(strings.Join(lines, "\n"))
}

func renderToolCall(call model.ToolCall, width int) string {
	heading := ToolNameStyle.Render("⚙ " + call.FunctionName)

	headers, rows, ok := call.Table()
	if !ok {
		args := lipgloss.NewStyle().Foreground(dimColor).MaxWidth(width).Render(call.PrettyArgs())
		return heading + "\n" + args
	}

	headerStyle := lipgloss.NewStyle().Foreground(accentColor).Bold(true).Padding(0, 1)
	cellStyle := lipgloss.NewStyle().Padding(0, 1)

	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(faintColor)).
		Headers(headers...).
		Rows(rows...).
		Width(width).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		})

	return heading + "\n" + t.Render()
}

func pluralLines(n int) string {
	if n == 1 {
		return "1 line"
	}
	return fmt.Sprintf("%d lines", n)
}
