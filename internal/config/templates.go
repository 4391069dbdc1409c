package config

import (
	"fmt"
	"os"
	"path/filepath"
)

const configTemplate = `# Tradedesk Configuration

[api]
# Base URL of the trading-assistant backend
base_url = "https://api.tradedesk.dev"
# Per-request HTTP timeout (e.g., "15s")
timeout = "15s"

[dashboard]
# Symbols per quote request (the backend caps requests at 50 symbols)
quote_batch_size = 40
# Pause between consecutive quote batches
quote_batch_pause = "100ms"
# Maximum recommendations fetched per sync (backend caps at 500)
recommendation_limit = 500
# Generation-status polling interval
poll_interval = "3s"
# Wall-clock limit on a generation job
generation_timeout = "5m"
# Cached recommendation snapshot age limit for fallback, in minutes
recommendation_stale_minutes = 60

[ui]
# Enable colored output
color_enabled = true
# Time format
time_format = "15:04:05"
`

const credentialsTemplate = `# Tradedesk Credentials
# Keep this file private (chmod 600).

api_token = ""
user_id = ""
`

func createTemplateConfig(configDir string) error {
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	path := filepath.Join(configDir, "config.toml")
	if _, err := os.Stat(path); err == nil {
		return nil
	}

	if err := os.WriteFile(path, []byte(configTemplate), 0644); err != nil {
		return fmt.Errorf("writing config template: %w", err)
	}
	return nil
}

func createTemplateCredentials(configDir string) error {
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	path := filepath.Join(configDir, "credentials.toml")
	if _, err := os.Stat(path); err == nil {
		return nil
	}

	// Credentials are secrets, restrict permissions
	if err := os.WriteFile(path, []byte(credentialsTemplate), 0600); err != nil {
		return fmt.Errorf("writing credentials template: %w", err)
	}
	return nil
}
