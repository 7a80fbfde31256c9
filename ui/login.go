package ui

import (
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/rs/zerolog"

	"agentchat/auth"
	"agentchat/storage"
)

type loginStep int

const (
	stepChoose loginStep = iota
	stepToken
	stepClientID
)

var loginOptions = []string{"Paste ID Token", "Continue as Guest", "Set Client ID"}

// LoginModel is the sign-in screen shown when no identity is stored
type LoginModel struct {
	identity *auth.State
	kv       storage.KeyValueStore
	logger   zerolog.Logger

	step           loginStep
	selectedButton int
	clientID       string

	tokenInput    textinput.Model
	clientIDInput textinput.Model

	width  int
	height int

	err      string
	signedIn bool
}

var (
	titleStyle = lipgloss.NewStyle().
			Foreground(successColor).
			Bold(true)

	featureStyle = lipgloss.NewStyle().
			Foreground(dimColor)

	buttonStyle = lipgloss.NewStyle().
			Width(24).
			Align(lipgloss.Center).
			Padding(0, 2).
			Border(lipgloss.RoundedBorder()).
			BorderForeground(faintColor)

	selectedButtonStyle = buttonStyle.
				BorderForeground(successColor).
				Foreground(successColor).
				Bold(true)

	inputStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("6")).
			Padding(0, 1)
)

// NewLoginModel builds the sign-in screen. A client id stored by an earlier
// run wins over the configured one.
func NewLoginModel(identity *auth.State, kv storage.KeyValueStore, configuredClientID string, logger zerolog.Logger) LoginModel {
	clientID := configuredClientID
	if stored, err := storage.LoadClientID(kv); err != nil {
		logger.Warn().Err(err).Msg("failed to read stored client id")
	} else if stored != "" {
		clientID = stored
	}

	token := textinput.New()
	token.Placeholder = "eyJhbGciOi..."
	token.EchoMode = textinput.EchoPassword
	token.EchoCharacter = '•'
	token.Width = 50

	cid := textinput.New()
	cid.Placeholder = "1234-abcd.apps.googleusercontent.com"
	cid.Width = 50
	cid.CharLimit = 256

	return LoginModel{
		identity:      identity,
		kv:            kv,
		logger:        logger,
		clientID:      clientID,
		tokenInput:    token,
		clientIDInput: cid,
	}
}

func (m LoginModel) Init() tea.Cmd {
	return nil
}

// SignedIn reports whether the screen ended with an identity
func (m LoginModel) SignedIn() bool {
	return m.signedIn
}

func (m LoginModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
		switch m.step {
		case stepToken:
			return m.updateTokenScreen(msg)
		case stepClientID:
			return m.updateClientIDScreen(msg)
		default:
			return m.updateChooseScreen(msg)
		}
	}

	return m, nil
}

func (m LoginModel) updateChooseScreen(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "esc":
		return m, tea.Quit

	case "up", "k":
		if m.selectedButton > 0 {
			m.selectedButton--
		}
	case "down", "j":
		if m.selectedButton < len(loginOptions)-1 {
			m.selectedButton++
		}

	case "enter":
		m.err = ""
		switch m.selectedButton {
		case 0:
			m.step = stepToken
			m.tokenInput.SetValue("")
			m.tokenInput.Focus()
			return m, textinput.Blink
		case 1:
			return m.signIn(auth.Guest(time.Now()))
		case 2:
			m.step = stepClientID
			m.clientIDInput.SetValue(m.clientID)
			m.clientIDInput.CursorEnd()
			m.clientIDInput.Focus()
			return m, textinput.Blink
		}
	}
	return m, nil
}

func (m LoginModel) updateTokenScreen(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.step = stepChoose
		m.tokenInput.Blur()
		m.err = ""
		return m, nil

	case "enter":
		user, err := auth.ParseIDToken(strings.TrimSpace(m.tokenInput.Value()), m.clientID)
		if err != nil {
			m.logger.Warn().Err(err).Msg("ID token rejected")
			m.err = err.Error()
			return m, nil
		}
		m.tokenInput.Blur()
		return m.signIn(user)
	}

	var cmd tea.Cmd
	m.tokenInput, cmd = m.tokenInput.Update(msg)
	return m, cmd
}

func (m LoginModel) updateClientIDScreen(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.step = stepChoose
		m.clientIDInput.Blur()
		m.err = ""
		return m, nil

	case "alt+r":
		if err := storage.ClearClientID(m.kv); err != nil {
			m.err = err.Error()
			return m, nil
		}
		m.clientID = ""
		m.clientIDInput.SetValue("")
		m.logger.Info().Msg("client id reset")
		return m, nil

	case "enter":
		id := strings.TrimSpace(m.clientIDInput.Value())
		var err error
		if id == "" {
			err = storage.ClearClientID(m.kv)
		} else {
			err = storage.SaveClientID(m.kv, id)
		}
		if err != nil {
			m.err = err.Error()
			return m, nil
		}
		m.clientID = id
		m.step = stepChoose
		m.clientIDInput.Blur()
		m.err = ""
		m.logger.Info().Bool("set", id != "").Msg("client id saved")
		return m, nil
	}

	var cmd tea.Cmd
	m.clientIDInput, cmd = m.clientIDInput.Update(msg)
	return m, cmd
}

func (m LoginModel) signIn(user auth.User) (tea.Model, tea.Cmd) {
	if err := m.identity.SignIn(user); err != nil {
		m.err = err.Error()
		return m, nil
	}
	m.signedIn = true
	return m, tea.Quit
}

func (m LoginModel) View() string {
	var sb strings.Builder

	sb.WriteString(centerText(titleStyle.Render("agentchat"), m.width))
	sb.WriteString("\n")
	sb.WriteString(centerText(featureStyle.Render("Chat with your agent from the terminal"), m.width))
	sb.WriteString("\n\n")

	switch m.step {
	case stepToken:
		sb.WriteString(centerText("Paste a Google ID token:", m.width))
		sb.WriteString("\n\n")
		sb.WriteString(centerText(inputStyle.Render(m.tokenInput.View()), m.width))
		sb.WriteString("\n\n")
		sb.WriteString(centerText(featureStyle.Render("Enter Sign in • Esc Back"), m.width))

	case stepClientID:
		sb.WriteString(centerText("OAuth client id the token must be issued for:", m.width))
		sb.WriteString("\n\n")
		sb.WriteString(centerText(inputStyle.Render(m.clientIDInput.View()), m.width))
		sb.WriteString("\n\n")
		sb.WriteString(centerText(featureStyle.Render("Enter Save • Alt+R Reset • Esc Back"), m.width))

	default:
		clientLine := "Client ID: not set (any audience accepted)"
		if m.clientID != "" {
			clientLine = "Client ID: " + truncate(m.clientID, 48)
		}
		sb.WriteString(centerText(featureStyle.Render(clientLine), m.width))
		sb.WriteString("\n\n")

		var buttons []string
		for i, label := range loginOptions {
			if i == m.selectedButton {
				buttons = append(buttons, selectedButtonStyle.Render(label))
			} else {
				buttons = append(buttons, buttonStyle.Render(label))
			}
		}
		sb.WriteString(centerText(lipgloss.JoinVertical(lipgloss.Left, buttons...), m.width))
		sb.WriteString("\n\n")
		sb.WriteString(centerText(featureStyle.Render("↑/↓ or j/k to switch • Enter to select • q to exit"), m.width))
	}

	if m.err != "" {
		sb.WriteString("\n\n")
		sb.WriteString(centerText(ErrorStyle.Render(m.err), m.width))
	}

	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, sb.String())
}

func centerText(text string, width int) string {
	lines := strings.Split(text, "\n")
	if len(lines) > 1 {
		var sb strings.Builder
		for i, line := range lines {
			sb.WriteString(centerText(line, width))
			if i < len(lines)-1 {
				sb.WriteString("\n")
			}
		}
		return sb.String()
	}

	textWidth := lipgloss.Width(text)
	if textWidth >= width {
		return text
	}

	padding := (width - textWidth) / 2
	return strings.Repeat(" ", padding) + text
}
