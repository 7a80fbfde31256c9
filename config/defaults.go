package config

func DefaultSystemConfig() *SystemConfig {
	return &SystemConfig{
		DataDirectory: GetDefaultDataDir(),
	}
}

func DefaultUserConfig() *UserConfig {
	return &UserConfig{
		Backend: BackendConfig{
			URL:     "http://localhost:8000",
			AppName: "my_agent",
		},
		QuickActions: []QuickAction{
			{Label: "What can you do?", Prompt: "What can you do? List your tools."},
			{Label: "Summarize", Prompt: "Summarize our conversation so far."},
		},
	}
}

func GenerateSystemConfigTemplate() string {
	return `# agentchat System Configuration
# Location: ~/.config/agentchat/settings.toml
# This file uses TOML format: https://toml.io

# Directory where the local store, user config and debug log live
data_directory = "~/.local/share/agentchat"
`
}

func GenerateUserConfigTemplate() string {
	return `# agentchat User Configuration
# Location: <data_directory>/config.toml
# This file uses TOML format: https://toml.io

# OAuth client id used to validate pasted Google ID tokens (optional)
# Can also be set from the login screen
google_client_id = ""

[backend]
# Agent server base URL (serves /run_sse and /apps/...)
url = "http://localhost:8000"

# Agent app to talk to
app_name = "my_agent"

# Backend user id (optional)
# Defaults to the signed-in identity
user_id = ""

# Canned prompts, bound to Alt+1 and Alt+2
[[quick_actions]]
label = "What can you do?"
prompt = "What can you do? List your tools."

[[quick_actions]]
label = "Summarize"
prompt = "Summarize our conversation so far."
`
}
