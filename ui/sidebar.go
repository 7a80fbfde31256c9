package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"agentchat/model"
)

// maxSidebarSessions caps the recent list; the session manager shows the rest
const maxSidebarSessions = 12

func (a AppView) renderSidebar(width int) string {
	var b strings.Builder

	b.WriteString(SidebarHeadingStyle.Render("agentchat") + "\n\n")

	// Connection
	status := a.controller.Status()
	label := status.String()
	dot := lipgloss.NewStyle().Foreground(statusColor(label)).Render("●")
	if status == model.StatusConnecting || status == model.StatusStreaming {
		dot = a.spinner.View()
	}
	b.WriteString(dot + " " + label + "\n")
	if id := a.controller.ActiveSessionID(); id != "" {
		short := id
		if len(short) > 12 {
			short = short[:12]
		}
		b.WriteString(DimStyle.Render("Session: "+short) + "\n")
	}
	b.WriteString("\n")

	settings := a.controller.Settings()
	b.WriteString(SidebarHeadingStyle.Render("Backend") + "\n")
	b.WriteString(DimStyle.Render(truncate(settings.BackendURL, width)) + "\n")
	b.WriteString(DimStyle.Render(truncate("App: "+settings.AppName, width)) + "\n")
	b.WriteString(DimStyle.Render(truncate("User: "+settings.UserID, width)) + "\n\n")

	// Identity
	b.WriteString(SidebarHeadingStyle.Render("Signed in") + "\n")
	name := a.user.Name
	if a.user.IsGuest() {
		name += " " + DimStyle.Render("(guest)")
	}
	b.WriteString(truncate(fmt.Sprintf("[%s] %s", a.user.Initials(), name), width) + "\n")
	if a.user.Email != "" {
		b.WriteString(DimStyle.Render(truncate(a.user.Email, width)) + "\n")
	}
	b.WriteString("\n")

	// Recent sessions
	sessions := a.controller.Sessions()
	b.WriteString(SidebarHeadingStyle.Render(fmt.Sprintf("Sessions (%d)", len(sessions))) + "\n")
	if len(sessions) == 0 {
		b.WriteString(DimStyle.Render("No sessions yet") + "\n")
	}
	active := a.controller.ActiveSessionID()
	for i, sess := range sessions {
		if i == maxSidebarSessions {
			more := fmt.Sprintf("+%d more (%s)", len(sessions)-i, a.keys.DisplayActionKey("session_manager"))
			b.WriteString(DimStyle.Render(more) + "\n")
			break
		}
		line := truncate(sess.Title, width-2)
		if sess.ID == active {
			b.WriteString(SelectedStyle.Render("▶ "+line) + "\n")
			continue
		}
		b.WriteString("  " + line + "\n")
		b.WriteString(DimStyle.Render("  "+humanize.Time(sess.CreatedAt)) + "\n")
	}
	b.WriteString("\n")

	// Quick actions
	if len(a.cfg.QuickActions) > 0 {
		b.WriteString(SidebarHeadingStyle.Render("Quick actions") + "\n")
		for i, qa := range a.cfg.QuickActions {
			if i >= 2 {
				break
			}
			keyLabel := a.keys.DisplayActionKey(fmt.Sprintf("quick_action_%d", i+1))
			b.WriteString(truncate(keyLabel+" "+qa.Label, width) + "\n")
		}
	}

	return b.String()
}
