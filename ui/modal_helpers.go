package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"
)

// ModalType picks the title color of a modal
type ModalType int

const (
	ModalTypeInfo ModalType = iota
	ModalTypeWarning
	ModalTypeError
)

const defaultModalWidth = 60

func modalTitleColor(modalType ModalType) lipgloss.Color {
	switch modalType {
	case ModalTypeWarning:
		return warningColor
	case ModalTypeError:
		return dangerColor
	default:
		return accentColor
	}
}

// fitModalWidth shrinks want so the modal keeps a margin inside the screen
func fitModalWidth(want, screenWidth int) int {
	if want == 0 {
		want = defaultModalWidth
	}
	if screenWidth < want+10 {
		return max(screenWidth-10, 10)
	}
	return want
}

// RenderAcknowledgeModal shows a centered message dismissed with Enter
func RenderAcknowledgeModal(title, message string, modalType ModalType, width, height int) string {
	modalWidth := fitModalWidth(defaultModalWidth, width)
	return RenderThreeSectionModal(title, centeredLines(message, modalWidth), "Press Enter to acknowledge", modalType, modalWidth, width, height)
}

// centeredLines wraps message to the modal body and centers each line
func centeredLines(message string, modalWidth int) []string {
	center := lipgloss.NewStyle().Width(modalWidth).Align(lipgloss.Center)

	var lines []string
	for _, line := range strings.Split(wordWrap(message, modalWidth-4), "\n") {
		lines = append(lines, center.Render(line))
	}
	return lines
}

// renderSpinner shows a single spinner line for a blocking operation
func renderSpinner(message, spinnerView string, width, height int) string {
	line := lipgloss.NewStyle().
		Width(fitModalWidth(40, width)).
		Align(lipgloss.Center).
		Render(spinnerView + " " + message)
	return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center, line)
}

// RenderThreeSectionModal stacks a title, a bordered body and a footer and
// centers the result on screen. messageLines are rendered as given; pass 0
// as desiredWidth for the default width.
func RenderThreeSectionModal(title string, messageLines []string, footer string, modalType ModalType, desiredWidth, width, height int) string {
	modalWidth := fitModalWidth(desiredWidth, width)

	// lipgloss miscounts some emoji, so the title is padded by hand
	titleWidth := runewidth.StringWidth(title)
	leftPad := max((modalWidth-titleWidth)/2-2, 0)
	rightPad := max(modalWidth-titleWidth-leftPad, 0)
	titleSection := lipgloss.NewStyle().
		Bold(true).
		Foreground(modalTitleColor(modalType)).
		Render(strings.Repeat(" ", leftPad) + title + strings.Repeat(" ", rightPad))

	blank := strings.Repeat(" ", modalWidth)
	body := make([]string, 0, len(messageLines)+2)
	body = append(body, blank)
	body = append(body, messageLines...)
	body = append(body, blank)

	divider := lipgloss.NewStyle().
		BorderTop(true).
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(dimColor).
		Width(modalWidth)

	messageSection := divider.Render(strings.Join(body, "\n"))
	footerSection := divider.
		Foreground(dimColor).
		Align(lipgloss.Center).
		Render(footer)

	content := lipgloss.JoinVertical(lipgloss.Left, titleSection, messageSection, footerSection)
	return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center, content)
}

// wordWrap breaks text on spaces so no line is wider than width cells.
// Existing line breaks are kept; a single word wider than width is left whole.
func wordWrap(text string, width int) string {
	if width <= 0 {
		return text
	}

	paragraphs := strings.Split(text, "\n")
	out := make([]string, 0, len(paragraphs))
	for _, paragraph := range paragraphs {
		words := strings.Fields(paragraph)
		if len(words) == 0 {
			out = append(out, "")
			continue
		}

		line := words[0]
		for _, word := range words[1:] {
			if runewidth.StringWidth(line)+1+runewidth.StringWidth(word) > width {
				out = append(out, line)
				line = word
				continue
			}
			line += " " + word
		}
		out = append(out, line)
	}
	return strings.Join(out, "\n")
}
