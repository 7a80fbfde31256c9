package ui

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/bubbles/filepicker"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"agentchat/config"
	"agentchat/model"
)

type FilePickerConfig struct {
	Title          string
	AllowedTypes   []string
	StartDirectory string
	ShowHidden     bool
}

type FilePickerState struct {
	Active bool
	Picker filepicker.Model
	Config FilePickerConfig
}

func NewFilePickerState(cfg FilePickerConfig) FilePickerState {
	fp := filepicker.New()
	fp.AllowedTypes = cfg.AllowedTypes
	fp.Height = 10
	fp.DirAllowed = false
	fp.FileAllowed = true
	fp.ShowPermissions = false
	fp.ShowSize = true
	fp.ShowHidden = cfg.ShowHidden

	startDir := cfg.StartDirectory
	if startDir == "" {
		startDir = config.GetHomeDir()
	}
	fp.CurrentDirectory = startDir

	fp.Styles.Directory = lipgloss.NewStyle().
		Foreground(accentColor).
		Bold(true)
	fp.Styles.File = lipgloss.NewStyle().
		Foreground(lipgloss.Color("15"))
	fp.Styles.Selected = lipgloss.NewStyle().
		Foreground(successColor).
		Bold(true)
	fp.Styles.Cursor = lipgloss.NewStyle().
		Foreground(successColor)

	return FilePickerState{
		Picker: fp,
		Config: cfg,
	}
}

func (fps *FilePickerState) Activate() {
	fps.Active = true
}

func (fps *FilePickerState) Reset() {
	fps.Active = false
}

// handleAttachPicker routes keys to the picker and turns a chosen file into
// an attachment for the next prompt.
func (a AppView) handleAttachPicker(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "esc" {
		a.attachPicker.Reset()
		return a, nil
	}

	var cmd tea.Cmd
	a.attachPicker.Picker, cmd = a.attachPicker.Picker.Update(msg)

	didSelect, path := a.attachPicker.Picker.DidSelectFile(msg)
	if !didSelect {
		return a, cmd
	}

	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		a.attachPicker.Reset()
		a.showAlert("⚠  Cannot Attach", "Could not read "+path, ModalTypeError)
		return a, nil
	}

	a.attachments = append(a.attachments, model.Attachment{
		Name: filepath.Base(path),
		Path: path,
		Size: info.Size(),
	})
	a.logger.Debug().Str("path", path).Int64("size", info.Size()).Msg("file attached")

	a.attachPicker.Reset()
	a.layout()
	return a, cmd
}

func RenderFilePickerModal(state FilePickerState, width, height int) string {
	// Guard clause: prevent rendering in tiny terminals
	if width < 20 || height < 10 {
		return "Terminal too small"
	}

	modalWidth := width - 10
	if modalWidth > 80 {
		modalWidth = 80
	}

	var messageLines []string

	dirStyle := lipgloss.NewStyle().Foreground(dimColor)
	messageLines = append(messageLines, dirStyle.Render("  "+truncate(state.Picker.CurrentDirectory, modalWidth-4)))
	messageLines = append(messageLines, strings.Repeat(" ", modalWidth))

	contentStyle := lipgloss.NewStyle().
		Width(modalWidth).
		Align(lipgloss.Left)

	for _, line := range strings.Split(state.Picker.View(), "\n") {
		trimmedLine := strings.TrimRight(line, " ")
		messageLines = append(messageLines, contentStyle.Render("  "+trimmedLine))
	}

	footer := FormatFooter("j/k", "Navigate", "h/l", "Back/Open", "Enter", "Attach", "Esc", "Cancel")

	return RenderThreeSectionModal(
		state.Config.Title,
		messageLines,
		footer,
		ModalTypeInfo,
		modalWidth,
		width,
		height,
	)
}
