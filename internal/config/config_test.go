package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() Config {
	var cfg Config
	cfg.App.Port = 38562
	cfg.Search.Roles = []string{"software engineer"}
	cfg.Search.Regions = []string{"uk"}
	cfg.Search.MaxPages = 2
	cfg.Apply.MaxPerRun = 5
	cfg.Apply.MaxAttempts = 3
	cfg.Apply.SessionDomain = ".example.com"
	cfg.Apply.SessionCookie = "session"
	return cfg
}

func TestValidateAcceptsDefaults(t *testing.T) {
	assert.NoError(t, Validate(validConfig()))
}

func TestValidateCollectsAllErrors(t *testing.T) {
	var cfg Config // zero values violate several rules at once

	err := Validate(cfg)
	require.Error(t, err)
	msg := err.Error()
	assert.Contains(t, msg, "app.port")
	assert.Contains(t, msg, "search.roles")
	assert.Contains(t, msg, "apply.max_per_run")
	assert.Contains(t, msg, "apply.session_domain")
}

func TestValidateJobAlertsRequirements(t *testing.T) {
	cfg := validConfig()
	cfg.Sources.JobAlerts.Enabled = true

	err := Validate(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "imap_host")

	cfg.Sources.JobAlerts.IMAPHost = "imap.example.com"
	cfg.Sources.JobAlerts.IMAPPort = 993
	cfg.Sources.JobAlerts.Username = "me@example.com"
	cfg.Sources.JobAlerts.Mailbox = "INBOX"
	assert.NoError(t, Validate(cfg))
}

func TestSaveAtomicRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yml")
	cfg := validConfig()
	cfg.Profile.FullName = "Jane Doe"

	require.NoError(t, SaveAtomic(path, cfg))

	got, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "Jane Doe", got.Profile.FullName)
	assert.Equal(t, 38562, got.App.Port)

	// a second save keeps a .bak of the previous file
	cfg.Profile.FullName = "Janet Doe"
	require.NoError(t, SaveAtomic(path, cfg))
	_, err = os.Stat(path + ".bak")
	assert.NoError(t, err)
}

func TestSaveAtomicRejectsInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yml")
	assert.Error(t, SaveAtomic(path, Config{}))
	_, err := os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}

func TestEnsureUserConfigCopiesDefaultOnce(t *testing.T) {
	dataDir := t.TempDir()
	defaultPath := filepath.Join(t.TempDir(), "default.yml")
	require.NoError(t, os.WriteFile(defaultPath, []byte("app:\n  port: 38562\n"), 0o644))

	userPath, err := EnsureUserConfig(dataDir, defaultPath)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dataDir, "config.yml"), userPath)

	// an existing user config is never overwritten
	require.NoError(t, os.WriteFile(userPath, []byte("app:\n  port: 40000\n"), 0o644))
	again, err := EnsureUserConfig(dataDir, defaultPath)
	require.NoError(t, err)
	assert.Equal(t, userPath, again)

	cfg, err := Load(again)
	require.NoError(t, err)
	assert.Equal(t, 40000, cfg.App.Port)
}

func TestDurationHelpers(t *testing.T) {
	var cfg Config
	assert.Equal(t, 20*time.Second, cfg.AnswerTimeout())
	assert.Equal(t, 30*time.Second, cfg.StepTimeout())
	assert.Equal(t, 4*time.Second, cfg.MinApplyDelay())

	cfg.Apply.AnswerTimeoutS = 5
	cfg.Apply.StepTimeoutS = 10
	cfg.Apply.MinDelaySeconds = 1.5
	assert.Equal(t, 5*time.Second, cfg.AnswerTimeout())
	assert.Equal(t, 10*time.Second, cfg.StepTimeout())
	assert.Equal(t, 1500*time.Millisecond, cfg.MinApplyDelay())
}
