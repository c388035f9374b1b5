package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zalando/go-keyring"

	"jobwatch/internal/config"
	"jobwatch/internal/logger"
	"jobwatch/internal/secrets"
	"jobwatch/internal/state"
)

const listing = `<html><body>
<div class="job-search-card" data-entity-urn="urn:li:jobPosting:123">
  <a class="base-card__full-link" href="https://www.linkedin.com/jobs/view/123?refId=a"></a>
  <h3 class="base-search-card__title">Software Engineer Intern</h3>
  <h4 class="base-search-card__subtitle"><a class="hidden-nested-link">Acme</a></h4>
</div>
<div class="job-search-card" data-entity-urn="urn:li:jobPosting:456">
  <h3 class="base-search-card__title">Staff Engineer</h3>
</div>
</body></html>`

func writeConfig(t *testing.T, dir, body string) string {
	t.Helper()
	path := filepath.Join(dir, "config.yml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestRealMainEndToEnd(t *testing.T) {
	page := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(listing))
	}))
	defer page.Close()

	var sends atomic.Int32
	tg := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sends.Add(1)
		assert.Equal(t, "/botTOKEN/sendMessage", r.URL.Path)
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer tg.Close()

	t.Setenv(config.EnvTelegramToken, "TOKEN")
	t.Setenv(config.EnvChatID, "1")
	t.Setenv(config.EnvStatePath, "")
	t.Setenv(config.EnvLogLevel, "error")

	dir := t.TempDir()
	cfgPath := writeConfig(t, dir, fmt.Sprintf(`
search:
  base_url: %q
telegram:
  base_url: %q
  min_interval_ms: 0
state:
  path: state/seen.json
`, page.URL, tg.URL))

	args := []string{"-config", cfgPath, "-data-dir", dir, "-no-jitter"}
	require.Equal(t, 0, realMain(args))
	assert.Equal(t, int32(1), sends.Load())

	b, err := os.ReadFile(filepath.Join(dir, "state", "seen.json"))
	require.NoError(t, err)
	var keys []string
	require.NoError(t, json.Unmarshal(b, &keys))
	assert.Equal(t, []string{"job:123", "job:456"}, keys)

	// Second invocation is a no-op for notifications
	require.Equal(t, 0, realMain(args))
	assert.Equal(t, int32(1), sends.Load())
}

func TestRealMainFetchFailureExitsNonZero(t *testing.T) {
	page := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer page.Close()

	t.Setenv(config.EnvLogLevel, "error")
	dir := t.TempDir()
	cfgPath := writeConfig(t, dir, fmt.Sprintf("search:\n  base_url: %q\nfetch:\n  retries: 0\n", page.URL))

	assert.Equal(t, 1, realMain([]string{"-config", cfgPath, "-data-dir", dir, "-no-jitter", "-dry-run"}))

	// State is still written on the failure path
	_, err := os.Stat(filepath.Join(dir, "state", "seen.json"))
	assert.NoError(t, err)
}

func TestRealMainMissingCredentials(t *testing.T) {
	t.Setenv(config.EnvTelegramToken, "")
	t.Setenv(config.EnvChatID, "")
	dir := t.TempDir()

	// Bootstraps a default config, then refuses to run without credentials
	assert.Equal(t, 1, realMain([]string{"-data-dir", dir, "-no-jitter"}))
	_, err := os.Stat(filepath.Join(dir, "config.yml"))
	assert.NoError(t, err)
}

func TestRealMainBadFlag(t *testing.T) {
	assert.Equal(t, 2, realMain([]string{"-nope"}))
}

func TestRealMainSetToken(t *testing.T) {
	keyring.MockInit()
	dir := t.TempDir()
	cfgPath := writeConfig(t, dir, "telegram:\n  keyring_account: bot\n")

	old := stdin
	stdin = strings.NewReader("  kc-token \n")
	defer func() { stdin = old }()

	require.Equal(t, 0, realMain([]string{"-config", cfgPath, "-data-dir", dir, "-set-token"}))

	tok, err := secrets.BotToken("", "bot")
	require.NoError(t, err)
	assert.Equal(t, "kc-token", tok)
}

func TestRealMainSetTokenNeedsAccount(t *testing.T) {
	keyring.MockInit()
	dir := t.TempDir()
	cfgPath := writeConfig(t, dir, "logging:\n  level: error\n")

	old := stdin
	stdin = strings.NewReader("kc-token\n")
	defer func() { stdin = old }()

	assert.Equal(t, 1, realMain([]string{"-config", cfgPath, "-data-dir", dir, "-set-token"}))
}

func TestBuildDepsSQLite(t *testing.T) {
	cfg := config.Default()
	cfg.App.DryRun = true
	cfg.State.Backend = "sqlite"
	cfg.State.Path = "seen.db"
	dir := t.TempDir()

	d, err := buildDeps(cfg, dir, logger.Discard())
	require.NoError(t, err)
	assert.IsType(t, &state.SQLiteStore{}, d.Store)
	assert.Equal(t, filepath.Join(dir, "seen.db.lock"), d.LockPath)
}

func TestBuildDepsRejectsMissingToken(t *testing.T) {
	cfg := config.Default()
	cfg.Telegram.ChatID = "1"
	_, err := buildDeps(cfg, t.TempDir(), logger.Discard())
	assert.Error(t, err)
}
