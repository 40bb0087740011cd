// Package secrets resolves credentials from the OS keychain with env-var
// fallbacks for containerized runs. Every credential except the site session
// token is optional: adapters degrade to unauthenticated quotas and the
// answer generator falls back to blank answers.
package secrets

import (
	"errors"
	"os"
	"strings"

	"github.com/zalando/go-keyring"
)

const KeyringService = "jobpilot"

const (
	AccountSessionToken = "session_token"
	AccountGeminiKey    = "gemini_api_key"
	AccountAdzunaID     = "adzuna_app_id"
	AccountAdzunaKey    = "adzuna_app_key"
	AccountReedKey      = "reed_api_key"
	AccountIMAPPassword = "imap_password"
)

// envFor maps keyring accounts to their env-var overrides.
var envFor = map[string]string{
	AccountSessionToken: "JOBPILOT_SESSION_TOKEN",
	AccountGeminiKey:    "GEMINI_API_KEY",
	AccountAdzunaID:     "ADZUNA_APP_ID",
	AccountAdzunaKey:    "ADZUNA_APP_KEY",
	AccountReedKey:      "REED_API_KEY",
	AccountIMAPPassword: "JOBPILOT_IMAP_PASSWORD",
}

// Get returns the credential for account, or "" when it is not set anywhere.
func Get(account string) string {
	if env := envFor[account]; env != "" {
		if v := strings.TrimSpace(os.Getenv(env)); v != "" {
			return v
		}
	}
	v, err := keyring.Get(KeyringService, account)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(v)
}

func Set(account, value string) error {
	if strings.TrimSpace(account) == "" {
		return errors.New("keyring account name is empty")
	}
	if strings.TrimSpace(value) == "" {
		return errors.New("secret value is empty")
	}
	return keyring.Set(KeyringService, account, value)
}

func Delete(account string) error {
	if strings.TrimSpace(account) == "" {
		return errors.New("keyring account name is empty")
	}
	return keyring.Delete(KeyringService, account)
}
