package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"agentchat/config"
	"agentchat/model"
)

const settingsLabelWidth = 16

var settingsOrder = []settingsFieldType{settingBackendURL, settingAppName, settingUserID}

// settingsState edits the backend settings. Fields are read-only unless the
// controller is disconnected.
type settingsState struct {
	active   bool
	inputs   []textinput.Model
	focused  int
	readOnly bool
	err      string
}

func newSettingsState() settingsState {
	inputs := make([]textinput.Model, len(settingsOrder))
	for i := range inputs {
		ti := textinput.New()
		ti.Prompt = ""
		ti.CharLimit = 512
		inputs[i] = ti
	}
	inputs[settingBackendURL].Placeholder = "http://localhost:8000"
	inputs[settingAppName].Placeholder = "my_agent"

	return settingsState{inputs: inputs}
}

func (s *settingsState) close() {
	s.active = false
	s.err = ""
	for i := range s.inputs {
		s.inputs[i].Blur()
	}
}

func (s *settingsState) focus(idx int) {
	s.inputs[s.focused].Blur()
	s.focused = (idx + len(s.inputs)) % len(s.inputs)
	if !s.readOnly {
		s.inputs[s.focused].Focus()
	}
}

func (s settingsState) values() model.Settings {
	return model.Settings{
		BackendURL: strings.TrimSpace(s.inputs[settingBackendURL].Value()),
		AppName:    strings.TrimSpace(s.inputs[settingAppName].Value()),
		UserID:     strings.TrimSpace(s.inputs[settingUserID].Value()),
	}
}

func (a *AppView) openSettings() tea.Cmd {
	current := a.controller.Settings()
	s := &a.settings

	s.active = true
	s.err = ""
	s.readOnly = a.controller.Status() != model.StatusDisconnected
	s.inputs[settingBackendURL].SetValue(current.BackendURL)
	s.inputs[settingAppName].SetValue(current.AppName)
	s.inputs[settingUserID].SetValue(current.UserID)
	inputWidth := min(max(a.width-10, 40), 80) - settingsLabelWidth - 4
	for i := range s.inputs {
		s.inputs[i].Width = inputWidth
		s.inputs[i].CursorEnd()
	}
	s.focused = 0
	s.focus(0)

	if s.readOnly {
		return nil
	}
	return textinput.Blink
}

func (a AppView) handleSettingsKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	s := &a.settings

	switch msg.String() {
	case "esc", a.keys.GetActionKey("settings"):
		s.close()
		return a, nil

	case "tab", "down":
		s.focus(s.focused + 1)
		return a, nil

	case "shift+tab", "up":
		s.focus(s.focused - 1)
		return a, nil

	case a.keys.GetActionKey("clear_input"):
		if !s.readOnly {
			s.inputs[s.focused].SetValue("")
		}
		return a, nil

	case "enter":
		if s.readOnly {
			s.close()
			return a, nil
		}
		return a.saveSettings()
	}

	if s.readOnly {
		return a, nil
	}

	var cmd tea.Cmd
	s.inputs[s.focused], cmd = s.inputs[s.focused].Update(msg)
	s.err = ""
	return a, cmd
}

// saveSettings applies the edited settings, persists them and connects
func (a AppView) saveSettings() (tea.Model, tea.Cmd) {
	next := a.settings.values()
	if err := next.Validate(); err != nil {
		a.settings.err = err.Error()
		return a, nil
	}
	if err := a.controller.Configure(next); err != nil {
		a.settings.err = err.Error()
		return a, nil
	}
	// A new user id swaps the session list and may drop the active chat
	refresh := a.afterControllerChange()

	a.cfg.BackendURL = next.BackendURL
	a.cfg.AppName = next.AppName
	// Only an explicit override is persisted; the signed-in identity is the default
	a.cfg.UserID = ""
	if next.UserID != a.user.Sub {
		a.cfg.UserID = next.UserID
	}
	if err := config.SaveUserConfig(a.cfg.UserConfig(), a.cfg.DataDir()); err != nil {
		a.logger.Error().Err(err).Msg("failed to save settings")
		a.settings.err = "Saved for this run only: " + err.Error()
		return a, refresh
	}
	a.logger.Info().Str("backend", next.BackendURL).Str("app", next.AppName).Msg("settings saved")

	a.settings.close()
	cmd, err := a.controller.Connect()
	if err != nil {
		a.showAlert("⚠  Invalid Settings", err.Error(), ModalTypeWarning)
		return a, refresh
	}
	cmd = tea.Batch(cmd, refresh, a.afterControllerChange())
	return a, cmd
}

func (a AppView) renderSettings() string {
	s := a.settings
	width, height := a.width, a.height

	if width < 20 || height < 10 {
		return "Terminal too small"
	}

	modalWidth := min(max(width-10, 40), 80)

	var lines []string
	for i, field := range settingsOrder {
		indicator := "  "
		if i == s.focused {
			indicator = "▶ "
		}
		label := padRight(indicator+settingsLabels[field], settingsLabelWidth)

		var value string
		if s.readOnly {
			value = DimStyle.Render(truncate(s.inputs[i].Value(), modalWidth-settingsLabelWidth-4))
		} else {
			value = s.inputs[i].View()
		}

		lineStyle := lipgloss.NewStyle().Width(modalWidth)
		if i == s.focused {
			label = lipgloss.NewStyle().Foreground(successColor).Bold(true).Render(label)
		}
		lines = append(lines, lineStyle.Render(label+value))
	}

	lines = append(lines, "")
	switch {
	case s.err != "":
		lines = append(lines, ErrorStyle.Render(wordWrap(s.err, modalWidth-4)))
	case s.readOnly:
		lines = append(lines, DimStyle.Render(fmt.Sprintf("Disconnect with %s to change settings.", a.keys.DisplayActionKey("disconnect"))))
	default:
		lines = append(lines, DimStyle.Render("Saved to the config file, then connects."))
	}

	footer := FormatFooter("Tab", "Next", "Enter", "Save & Connect", a.keys.DisplayActionKey("clear_input"), "Clear", "Esc", "Cancel")
	if s.readOnly {
		footer = FormatFooter("Tab", "Next", "Esc", "Close")
	}

	return RenderThreeSectionModal(
		fmt.Sprintf("Settings (%s)", a.keys.DisplayActionKey("settings")),
		lines,
		footer,
		ModalTypeInfo,
		modalWidth,
		width,
		height,
	)
}
