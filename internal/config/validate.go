package config

import (
	"errors"
	"fmt"
	"strings"
)

type Validation struct {
	Errors   []string `json:"errors"`
	Warnings []string `json:"warnings"`
}

func (v *Validation) addErr(format string, args ...any) {
	v.Errors = append(v.Errors, fmt.Sprintf(format, args...))
}
func (v *Validation) addWarn(format string, args ...any) {
	v.Warnings = append(v.Warnings, fmt.Sprintf(format, args...))
}
func (v Validation) OK() bool { return len(v.Errors) == 0 }

// Err folds the errors into one, or nil.
func (v Validation) Err() error {
	if v.OK() {
		return nil
	}
	return errors.New("config validation failed:\n- " + strings.Join(v.Errors, "\n- "))
}

// NormalizeAndValidate returns a normalized copy of cfg and what is wrong with it.
func NormalizeAndValidate(cfg Config) (Config, Validation) {
	var out = cfg
	var res Validation

	trimList := func(xs []string) []string {
		seen := map[string]bool{}
		var ys []string
		for _, x := range xs {
			x = strings.TrimSpace(x)
			if x == "" {
				continue
			}
			key := strings.ToLower(x)
			if seen[key] {
				continue
			}
			seen[key] = true
			ys = append(ys, x)
		}
		return ys
	}

	out.Relevance.Keywords = trimList(out.Relevance.Keywords)
	out.Relevance.Exclude = trimList(out.Relevance.Exclude)
	out.Relevance.MissingTitle = strings.ToLower(strings.TrimSpace(out.Relevance.MissingTitle))
	out.State.Backend = strings.ToLower(strings.TrimSpace(out.State.Backend))
	out.State.Path = strings.TrimSpace(out.State.Path)
	out.Dedup.CommitPolicy = strings.ToLower(strings.TrimSpace(out.Dedup.CommitPolicy))
	out.Telegram.ChatID = strings.TrimSpace(out.Telegram.ChatID)
	out.Telegram.Token = strings.TrimSpace(out.Telegram.Token)

	// ---- Validation rules ----

	if strings.TrimSpace(out.Search.BaseURL) == "" {
		res.addErr("search.base_url is required")
	}
	if strings.TrimSpace(out.Search.Keywords) == "" {
		res.addWarn("search.keywords is empty; the search will return generic results.")
	}

	if out.Fetch.TimeoutSeconds <= 0 {
		res.addErr("fetch.timeout_seconds must be > 0")
	}
	if out.Fetch.RequestsPerSecond < 0 {
		res.addErr("fetch.requests_per_second must be >= 0")
	}
	if out.Fetch.Retries < 0 {
		res.addErr("fetch.retries must be >= 0")
	}

	switch out.Relevance.MissingTitle {
	case "", "pass", "fail":
	default:
		res.addErr("relevance.missing_title must be pass or fail, got %q", out.Relevance.MissingTitle)
	}
	if len(out.Relevance.Keywords) == 0 {
		res.addWarn("relevance.keywords is empty; every titled listing will be notified.")
	}
	excl := map[string]bool{}
	for _, x := range out.Relevance.Exclude {
		excl[strings.ToLower(x)] = true
	}
	for _, k := range out.Relevance.Keywords {
		if excl[strings.ToLower(k)] {
			res.addWarn("term appears in both relevance.keywords and relevance.exclude: %q", k)
		}
	}

	switch out.State.Backend {
	case "", "json", "sqlite":
	default:
		res.addErr("state.backend must be json or sqlite, got %q", out.State.Backend)
	}
	if out.State.Path == "" {
		res.addErr("state.path is required")
	}

	switch out.Dedup.CommitPolicy {
	case "", "mark_before_notify", "commit_on_delivery":
	default:
		res.addErr("dedup.commit_policy must be mark_before_notify or commit_on_delivery, got %q", out.Dedup.CommitPolicy)
	}
	if out.Dedup.MaxNotifications < 0 {
		res.addErr("dedup.max_notifications must be >= 0")
	}

	if out.Jitter.MinSeconds < 0 || out.Jitter.MaxSeconds < 0 {
		res.addErr("jitter bounds must be >= 0")
	} else if out.Jitter.MinSeconds > out.Jitter.MaxSeconds {
		res.addErr("jitter.min_seconds (%d) cannot exceed jitter.max_seconds (%d)", out.Jitter.MinSeconds, out.Jitter.MaxSeconds)
	}

	if out.Telegram.TimeoutSeconds <= 0 {
		res.addErr("telegram.timeout_seconds must be > 0")
	} else if out.Telegram.TimeoutSeconds > 60 {
		res.addWarn("telegram.timeout_seconds is high (%d); a hung send delays the whole run.", out.Telegram.TimeoutSeconds)
	}
	if out.Telegram.MinIntervalMS < 0 {
		res.addErr("telegram.min_interval_ms must be >= 0")
	}

	return out, res
}

// RequireCredentials checks the delivery settings a real run needs. Dry runs
// never touch the Bot API, so they pass.
func RequireCredentials(cfg Config) error {
	if cfg.App.DryRun {
		return nil
	}
	var missing []string
	if strings.TrimSpace(cfg.Telegram.Token) == "" {
		missing = append(missing, EnvTelegramToken+" (or keychain entry)")
	}
	if strings.TrimSpace(cfg.Telegram.ChatID) == "" {
		missing = append(missing, EnvChatID+" (or telegram.chat_id)")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrMissingCredentials, strings.Join(missing, ", "))
	}
	return nil
}

var ErrMissingCredentials = errors.New("missing notifier credentials")
