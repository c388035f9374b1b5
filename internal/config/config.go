package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	App struct {
		DryRun bool `yaml:"-"`
	} `yaml:"app"`

	Logging struct {
		Level string `yaml:"level"`
	} `yaml:"logging"`

	Search struct {
		BaseURL  string `yaml:"base_url"`
		Keywords string `yaml:"keywords"`
		Location string `yaml:"location"`
		GeoID    string `yaml:"geo_id"`
		Recency  string `yaml:"recency"`
	} `yaml:"search"`

	Fetch struct {
		TimeoutSeconds    int     `yaml:"timeout_seconds"`
		RequestsPerSecond float64 `yaml:"requests_per_second"`
		Retries           int     `yaml:"retries"`
		UserAgent         string  `yaml:"user_agent"`
	} `yaml:"fetch"`

	Relevance struct {
		Keywords     []string `yaml:"keywords"`
		Exclude      []string `yaml:"exclude"`
		MissingTitle string   `yaml:"missing_title"` // pass | fail
	} `yaml:"relevance"`

	State struct {
		Backend  string `yaml:"backend"` // json | sqlite
		Path     string `yaml:"path"`
		LockPath string `yaml:"lock_path"`
	} `yaml:"state"`

	Dedup struct {
		CommitPolicy     string `yaml:"commit_policy"` // mark_before_notify | commit_on_delivery
		MaxNotifications int    `yaml:"max_notifications"`
	} `yaml:"dedup"`

	Jitter struct {
		MinSeconds int `yaml:"min_seconds"`
		MaxSeconds int `yaml:"max_seconds"`
	} `yaml:"jitter"`

	Telegram struct {
		BaseURL        string `yaml:"base_url"`
		ChatID         string `yaml:"chat_id"`
		TimeoutSeconds int    `yaml:"timeout_seconds"`
		MinIntervalMS  int    `yaml:"min_interval_ms"`
		KeyringAccount string `yaml:"keyring_account"`

		// Token never lives in the config file; it comes from env or the keychain.
		Token string `yaml:"-"`
	} `yaml:"telegram"`
}

// Default is the config written on first start.
func Default() Config {
	var cfg Config
	cfg.Logging.Level = "info"

	cfg.Search.BaseURL = "https://www.linkedin.com/jobs/search"
	cfg.Search.Keywords = "Software Engineer Intern"
	cfg.Search.Location = "United States"
	cfg.Search.GeoID = "103644278"
	cfg.Search.Recency = "r86400"

	cfg.Fetch.TimeoutSeconds = 30
	cfg.Fetch.RequestsPerSecond = 0.5
	cfg.Fetch.Retries = 2

	cfg.Relevance.Keywords = []string{"intern"}
	cfg.Relevance.MissingTitle = "pass"

	cfg.State.Backend = "json"
	cfg.State.Path = "state/seen.json"

	cfg.Dedup.CommitPolicy = "mark_before_notify"

	cfg.Jitter.MinSeconds = 5
	cfg.Jitter.MaxSeconds = 45

	cfg.Telegram.BaseURL = "https://api.telegram.org"
	cfg.Telegram.TimeoutSeconds = 10
	cfg.Telegram.MinIntervalMS = 1000
	return cfg
}

// Load reads path over the defaults, so a partial file is fine.
func Load(path string) (Config, error) {
	cfg := Default()
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	err = yaml.Unmarshal(b, &cfg)
	return cfg, err
}

func (c Config) FetchTimeout() time.Duration {
	return time.Duration(c.Fetch.TimeoutSeconds) * time.Second
}

func (c Config) NotifyTimeout() time.Duration {
	return time.Duration(c.Telegram.TimeoutSeconds) * time.Second
}

func (c Config) NotifyMinInterval() time.Duration {
	return time.Duration(c.Telegram.MinIntervalMS) * time.Millisecond
}

func (c Config) JitterRange() (min, max time.Duration) {
	return time.Duration(c.Jitter.MinSeconds) * time.Second, time.Duration(c.Jitter.MaxSeconds) * time.Second
}
