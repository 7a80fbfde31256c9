package ui

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
)

// InstanceLockedModal is shown when another agentchat process holds the data
// directory. The user can exit or remove a stale lock.
type InstanceLockedModal struct {
	runningPID  int
	width       int
	height      int
	forceDelete bool
}

func NewInstanceLockedModal(runningPID int) InstanceLockedModal {
	return InstanceLockedModal{runningPID: runningPID}
}

func (m InstanceLockedModal) Init() tea.Cmd {
	return nil
}

func (m InstanceLockedModal) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "enter", "esc", "ctrl+c":
			return m, tea.Quit
		case "d", "D":
			m.forceDelete = true
			return m, tea.Quit
		}
	}

	return m, nil
}

// ForceDelete returns true if the user chose to force delete the lock file
func (m InstanceLockedModal) ForceDelete() bool {
	return m.forceDelete
}

func (m InstanceLockedModal) View() string {
	if m.width < 20 || m.height < 10 {
		return "Terminal too small"
	}

	modalWidth := fitModalWidth(defaultModalWidth, m.width)

	message := fmt.Sprintf(
		"Another agentchat instance is already running (PID %d).\n\n"+
			"Both would write the same chat history,\n"+
			"so only one may use a data directory at a time.\n\n"+
			"Set AGENTCHAT_DATA_DIR to run a second copy elsewhere.\n\n"+
			"If the other instance crashed, press D to delete\n"+
			"the stale lock file and continue.",
		m.runningPID)

	footer := FormatFooter("Enter", "Exit", "D", "Force delete lock file")
	return RenderThreeSectionModal("⚠  agentchat Already Running", centeredLines(message, modalWidth), footer, ModalTypeError, modalWidth, m.width, m.height)
}
