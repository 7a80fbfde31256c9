package ui

// markdownRenderedMsg carries a rendered assistant reply back to the view.
// Content and Width identify what was rendered so stale results are ignored.
type markdownRenderedMsg struct {
	MessageID string
	Content   string
	Width     int
	Rendered  string
}

// renderedMessage caches the terminal rendering of one message
type renderedMessage struct {
	content string
	width   int
	text    string
}

func (r renderedMessage) matches(content string, width int) bool {
	return r.content == content && r.width == width
}

type settingsFieldType int

const (
	settingBackendURL settingsFieldType = iota
	settingAppName
	settingUserID
)

var settingsLabels = map[settingsFieldType]string{
	settingBackendURL: "Backend URL",
	settingAppName:    "App Name",
	settingUserID:     "User ID",
}
