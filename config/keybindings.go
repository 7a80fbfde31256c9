package config

import (
	"fmt"
	"path/filepath"
	"strings"
	"unicode"
)

const (
	defaultPrimary   = "alt"
	defaultSecondary = "alt+shift"
)

// KeyBindingsConfig is keybindings.toml: two modifiers plus optional
// per-action overrides.
type KeyBindingsConfig struct {
	Modifiers ModifierConfig    `toml:"modifiers"`
	Actions   map[string]string `toml:"actions"`
}

type ModifierConfig struct {
	Primary   string `toml:"primary"`
	Secondary string `toml:"secondary"`
}

type modifierSlot int

const (
	bare modifierSlot = iota
	primary
	secondary
)

type binding struct {
	slot modifierSlot
	key  string
}

// actions lists every bindable action with its default binding
var actions = map[string]binding{
	// Main view
	"help":                {primary, "h"},
	"quit":                {primary, "q"},
	"new_chat":            {primary, "n"},
	"session_manager":     {primary, "s"},
	"search_all_sessions": {primary, "f"},
	"search_messages":     {secondary, "f"},
	"settings":            {secondary, "s"},
	"attach_file":         {primary, "a"},
	"connect":             {primary, "c"},
	"disconnect":          {primary, "d"},
	"sign_out":            {primary, "l"},
	"toggle_tool_calls":   {primary, "t"},
	"quick_action_1":      {primary, "1"},
	"quick_action_2":      {primary, "2"},
	"yank_last_response":  {primary, "y"},
	"yank_conversation":   {secondary, "y"},
	"clear_input":         {primary, "u"},

	// Transcript scrolling
	"scroll_down":      {primary, "j"},
	"scroll_up":        {primary, "k"},
	"half_page_down":   {secondary, "j"},
	"half_page_up":     {secondary, "k"},
	"page_down":        {primary, "pgdown"},
	"page_up":          {primary, "pgup"},
	"scroll_to_top":    {primary, "g"},
	"scroll_to_bottom": {secondary, "g"},

	// Session manager; a modifier is needed while the filter has focus
	"session_down":          {bare, "j"},
	"session_up":            {bare, "k"},
	"session_down_arrow":    {bare, "down"},
	"session_up_arrow":      {bare, "up"},
	"session_delete":        {bare, "d"},
	"session_export":        {bare, "x"},
	"session_down_filtered": {primary, "j"},
	"session_up_filtered":   {primary, "k"},
}

func DefaultKeybindings() *KeyBindingsConfig {
	return &KeyBindingsConfig{
		Modifiers: ModifierConfig{
			Primary:   defaultPrimary,
			Secondary: defaultSecondary,
		},
	}
}

// LoadKeybindings reads <dataDir>/keybindings.toml, writing the commented
// template on first run. Modifiers left blank fall back to the defaults.
func LoadKeybindings(dataDir string) (*KeyBindingsConfig, error) {
	cfg := DefaultKeybindings()
	if err := loadOrCreate(filepath.Join(dataDir, "keybindings.toml"), GenerateKeybindingsTemplate(), cfg); err != nil {
		return nil, fmt.Errorf("keybindings: %w", err)
	}
	return cfg, nil
}

func GenerateKeybindingsTemplate() string {
	return `# agentchat Keybindings Configuration
# Location: <data_directory>/keybindings.toml
# This file uses TOML format: https://toml.io

# Every shortcut is built from one of these two modifiers.
# Change them if your terminal or window manager already uses Alt.
[modifiers]
primary = "alt"          # alt, ctrl, meta or super
secondary = "alt+shift"

# Examples:
#   tmux:     primary = "ctrl",  secondary = "ctrl+shift"
#   i3/sway:  primary = "super", secondary = "super+shift"

# Rebind individual actions (uncomment to use)
[actions]
#   connect = "ctrl+o"
#   new_chat = "ctrl+t"
#   quick_action_1 = "f1"
#   quit = "ctrl+shift+q"
`
}

// Primary returns the primary modifier
func (kb *KeyBindingsConfig) Primary() string {
	return orDefault(kb.Modifiers.Primary, defaultPrimary)
}

// Secondary returns the secondary modifier
func (kb *KeyBindingsConfig) Secondary() string {
	return orDefault(kb.Modifiers.Secondary, defaultSecondary)
}

func orDefault(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}

// GetActionKey returns the key string bubbletea reports for action, or ""
// for an unknown action. A user override wins over the default binding.
func (kb *KeyBindingsConfig) GetActionKey(action string) string {
	if override := kb.Actions[action]; override != "" {
		return override
	}

	b, ok := actions[action]
	if !ok {
		return ""
	}
	switch b.slot {
	case primary:
		return kb.Primary() + "+" + b.key
	case secondary:
		return withShift(kb.Secondary(), b.key)
	default:
		return b.key
	}
}

// withShift joins a modifier and key. Terminals report shift plus a letter
// as the uppercase letter, so "alt+shift" and "s" become "alt+S".
func withShift(modifier, key string) string {
	mods := strings.Split(modifier, "+")
	if len(key) != 1 || !unicode.IsLower(rune(key[0])) {
		return modifier + "+" + key
	}

	kept := mods[:0]
	shifted := false
	for _, m := range mods {
		if strings.EqualFold(m, "shift") {
			shifted = true
			continue
		}
		kept = append(kept, m)
	}
	if !shifted {
		return modifier + "+" + key
	}
	return strings.Join(append(kept, strings.ToUpper(key)), "+")
}

// DisplayActionKey formats an action's binding for the UI, e.g. "alt+S"
// becomes "Alt+Shift+S".
func (kb *KeyBindingsConfig) DisplayActionKey(action string) string {
	key := kb.GetActionKey(action)
	if key == "" {
		return ""
	}

	parts := strings.Split(key, "+")
	hasShift := false
	for _, p := range parts {
		if strings.EqualFold(p, "shift") {
			hasShift = true
		}
	}

	var out []string
	for i, p := range parts {
		if p == "" {
			continue
		}
		if i > 0 && !hasShift && len(p) == 1 && unicode.IsUpper(rune(p[0])) {
			out = append(out, "Shift")
		}
		out = append(out, strings.ToUpper(p[:1])+p[1:])
	}
	return strings.Join(out, "+")
}

// Validate rejects unusable modifiers. A non-empty message with ok=true is
// a warning.
func (kb *KeyBindingsConfig) Validate() (ok bool, message string) {
	p, s := kb.Primary(), kb.Secondary()

	if p == "shift" || s == "shift" {
		return false, "Shift alone conflicts with typing"
	}
	if strings.Contains(p, "ctrl") || strings.Contains(s, "ctrl") {
		return true, "Warning: Ctrl may conflict with terminal shortcuts (Ctrl+C, Ctrl+Z, Ctrl+D)"
	}
	return true, ""
}
