package config

import (
	"os"
	"strings"
)

// Environment variables read by ApplyEnv.
const (
	EnvTelegramToken = "TELEGRAM_TOKEN"
	EnvChatID        = "CHAT_ID"
	EnvStatePath     = "JOBWATCH_STATE_PATH"
	EnvLogLevel      = "JOBWATCH_LOG_LEVEL"
)

// ApplyEnv overlays process environment on cfg. Secrets only ever come from here
// (or the keychain), never from the YAML file.
func ApplyEnv(cfg *Config) {
	if v := getenv(EnvTelegramToken); v != "" {
		cfg.Telegram.Token = v
	}
	if v := getenv(EnvChatID); v != "" {
		cfg.Telegram.ChatID = v
	}
	if v := getenv(EnvStatePath); v != "" {
		cfg.State.Path = v
	}
	if v := getenv(EnvLogLevel); v != "" {
		cfg.Logging.Level = v
	}
}

func getenv(k string) string {
	return strings.TrimSpace(os.Getenv(k))
}
