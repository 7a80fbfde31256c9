package ui

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	markdown "github.com/MichaelMure/go-term-markdown"
	tea "github.com/charmbracelet/bubbletea"
	gomarkdown "github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/parser"
	"github.com/rs/zerolog"

	"agentchat/model"
	"agentchat/storage"
)

// Pre-compiled regex patterns for better performance
var (
	inlineCodeRegex = regexp.MustCompile(`(?s)\x1b\[44;3m(.*?)\x1b\[0m`)
	mdLinkRegex     = regexp.MustCompile(`\[([^\]]+)\]\((https?://[^\)]+)\)`)
	urlRegex        = regexp.MustCompile(`(https?://[^\s]+)`)
	ansiRegex       = regexp.MustCompile(`\x1b\[[0-9;]*m`)
)

// refreshTranscript rebuilds the viewport from the visible messages and
// records the first line of each so search can jump to it.
func (a *AppView) refreshTranscript(gotoBottom bool) {
	msgs := a.controller.Messages()
	a.messageLines = a.messageLines[:0]

	if len(msgs) == 0 {
		a.viewport.SetContent(a.emptyTranscript())
		return
	}

	streaming := a.controller.Status() == model.StatusStreaming
	width := a.viewport.Width

	var content strings.Builder
	line := 0
	for i, msg := range msgs {
		a.messageLines = append(a.messageLines, line)

		highlightPrefix := ""
		if i == a.highlightIdx {
			highlightPrefix = HighlightStyle.Render(">>> ")
		}

		timestamp := DimStyle.Render(msg.Timestamp.Format("[15:04]"))

		var block string
		if msg.Role == storage.RoleUser {
			block = formatUserMessage(highlightPrefix, timestamp, UserStyle.Render(roleLabel(msg.Role)), msg.Content)
		} else {
			body := msg.Content
			last := i == len(msgs)-1
			switch {
			case last && streaming && body == "":
				body = a.spinner.View()
			case last && streaming:
				body += "▋"
			default:
				if r, ok := a.rendered[msg.ID]; ok && r.matches(msg.Content, width) {
					body = r.text
				}
			}
			block = fmt.Sprintf("%s%s %s\n%s\n\n", highlightPrefix, timestamp, AssistantStyle.Render(roleLabel(msg.Role)), body)
		}

		content.WriteString(block)
		line += strings.Count(block, "\n")
	}

	a.viewport.SetContent(content.String())
	if gotoBottom {
		a.viewport.GotoBottom()
	}
}

func (a AppView) emptyTranscript() string {
	if !a.controller.Status().AcceptsInput() {
		return DimStyle.Render("Not connected. Press " + a.keys.DisplayActionKey("connect") + " to connect to the agent.")
	}
	return DimStyle.Render("No messages yet. Start chatting!")
}

// renderPending starts a markdown render for every finished assistant reply
// whose cached rendering is missing or stale.
func (a *AppView) renderPending() tea.Cmd {
	msgs := a.controller.Messages()
	streaming := a.controller.Status() == model.StatusStreaming
	width := a.viewport.Width
	if width <= 0 {
		return nil
	}

	var cmds []tea.Cmd
	for i, msg := range msgs {
		if msg.Role != storage.RoleAssistant || msg.Content == "" {
			continue
		}
		if streaming && i == len(msgs)-1 {
			continue
		}
		if r, ok := a.rendered[msg.ID]; ok && r.matches(msg.Content, width) {
			continue
		}
		cmds = append(cmds, renderMarkdown(msg.ID, msg.Content, width, a.logger))
	}
	return tea.Batch(cmds...)
}

func renderMarkdown(id, content string, width int, logger zerolog.Logger) tea.Cmd {
	return func() tea.Msg {
		startTime := time.Now()

		// Strip markdown link syntax [text](url) so every link renders as a plain URL
		source := preprocessLinks(content)

		// Autolink off keeps plain URLs as text the terminal can detect
		customExt := markdown.Extensions() &^ parser.Autolink
		p := parser.NewWithExtensions(customExt)
		r := markdown.NewRenderer(width-4, 0)
		doc := p.Parse([]byte(source))
		rendered := gomarkdown.Render(doc, r)

		processed := postProcessMarkdown(string(rendered), width)

		logger.Debug().
			Str("message_id", id).
			Int("length", len(content)).
			Dur("elapsed", time.Since(startTime)).
			Msg("markdown rendered")

		return markdownRenderedMsg{
			MessageID: id,
			Content:   content,
			Width:     width,
			Rendered:  strings.TrimRight(processed, "\n"),
		}
	}
}

func roleLabel(role string) string {
	switch role {
	case storage.RoleUser:
		return "You"
	case storage.RoleAssistant:
		return "Assistant"
	default:
		return "System"
	}
}

func formatUserMessage(highlightPrefix, timestamp, role, content string) string {
	bar := UserStyle.Render("┃")

	var result strings.Builder
	fmt.Fprintf(&result, "%s%s %s %s\n", highlightPrefix, bar, timestamp, role)
	for _, line := range strings.Split(content, "\n") {
		fmt.Fprintf(&result, "%s %s\n", bar, line)
	}
	result.WriteString("\n")

	return result.String()
}

func postProcessMarkdown(rendered string, width int) string {
	// 1. Fix inline code: Blue background → Red text
	rendered = fixInlineCode(rendered)

	// 2. Color plain URLs red (autolink disabled keeps URLs plain)
	rendered = fixMarkdownLinks(rendered)

	// 3. Frame code blocks with horizontal lines
	rendered = frameCodeBlocks(rendered, width)

	return rendered
}

func preprocessLinks(content string) string {
	return mdLinkRegex.ReplaceAllString(content, "$2")
}

func fixInlineCode(s string) string {
	// \x1b[44;3m...\x1b[0m (Blue BG + Italic) becomes \x1b[31m...\x1b[0m (Red text)
	return inlineCodeRegex.ReplaceAllString(s, "\x1b[31m$1\x1b[0m")
}

func fixMarkdownLinks(s string) string {
	redColor := "\x1b[31m"
	reset := "\x1b[0m"

	lines := strings.Split(s, "\n")
	for i, line := range lines {
		// Code block lines carry the ┃ prefix
		if !strings.Contains(line, "┃") {
			lines[i] = urlRegex.ReplaceAllString(line, redColor+"$1"+reset)
		}
	}

	return strings.Join(lines, "\n")
}

func frameCodeBlocks(s string, width int) string {
	lines := strings.Split(s, "\n")
	var result []string
	var codeBlockLines []string
	inCodeBlock := false

	darkGray := "\x1b[90m"
	reset := "\x1b[0m"
	ruleLen := max(width-4, 8)

	closeBlock := func() {
		result = append(result, codeBlockLines...)
		result = append(result, "")
		result = append(result, darkGray+strings.Repeat("━", ruleLen)+reset)
		result = append(result, "")
		codeBlockLines = nil
		inCodeBlock = false
	}

	for _, line := range lines {
		if strings.Contains(line, "┃") {
			if !inCodeBlock {
				inCodeBlock = true
				result = append(result, "")

				label := "[code]"
				leftLen := max((ruleLen-len(label))/2, 0)
				rightLen := max(ruleLen-len(label)-leftLen, 0)
				border := darkGray + strings.Repeat("━", leftLen) + reset + label + darkGray + strings.Repeat("━", rightLen) + reset

				result = append(result, border, "")
			}
			codeBlockLines = append(codeBlockLines, stripCodeBlockPrefix(line))
			continue
		}

		if inCodeBlock {
			closeBlock()
		}
		result = append(result, line)
	}

	if inCodeBlock && len(codeBlockLines) > 0 {
		closeBlock()
	}

	return strings.Join(result, "\n")
}

func stripCodeBlockPrefix(line string) string {
	idx := strings.Index(line, "┃")
	if idx < 0 {
		return line
	}
	after := idx + len("┃")
	if after < len(line) && line[after] == ' ' {
		after++
	}
	return line[after:]
}

// stripANSI removes ANSI escape codes for accurate length calculation
func stripANSI(s string) string {
	return ansiRegex.ReplaceAllString(s, "")
}
