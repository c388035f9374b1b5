package secrets

import (
	"errors"
	"strings"

	"github.com/zalando/go-keyring"
)

const (
	// “Service” groups the app’s secrets in the OS keychain.
	KeyringService = "jobwatch"
)

var ErrTokenNotFound = errors.New("telegram bot token not found in keychain")

// BotToken returns envToken when set; otherwise it looks the token up in the
// keychain under account.
func BotToken(envToken, account string) (string, error) {
	if t := strings.TrimSpace(envToken); t != "" {
		return t, nil
	}
	if strings.TrimSpace(account) == "" {
		return "", ErrTokenNotFound
	}

	tok, err := keyring.Get(KeyringService, account)
	if err != nil || strings.TrimSpace(tok) == "" {
		return "", ErrTokenNotFound
	}
	return strings.TrimSpace(tok), nil
}

func SetBotToken(account, token string) error {
	if strings.TrimSpace(account) == "" {
		return errors.New("keyring account name is empty")
	}
	if strings.TrimSpace(token) == "" {
		return errors.New("token is empty")
	}
	return keyring.Set(KeyringService, account, token)
}
