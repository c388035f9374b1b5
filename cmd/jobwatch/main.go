package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"jobwatch/internal/config"
	"jobwatch/internal/dedup"
	"jobwatch/internal/logger"
	"jobwatch/internal/notify"
	"jobwatch/internal/relevance"
	"jobwatch/internal/run"
	"jobwatch/internal/scrape/linkedin"
	"jobwatch/internal/secrets"
	"jobwatch/internal/state"
)

// stdin is where -set-token reads the bot token from.
var stdin io.Reader = os.Stdin

func main() {
	os.Exit(realMain(os.Args[1:]))
}

func realMain(args []string) int {
	fs := flag.NewFlagSet("jobwatch", flag.ContinueOnError)
	cfgPath := fs.String("config", "", "path to config.yml (default: <data dir>/config.yml, created if missing)")
	dataDir := fs.String("data-dir", "", "data directory (default: $JOBWATCH_DATA_DIR or .)")
	noJitter := fs.Bool("no-jitter", false, "skip the randomized start delay")
	dryRun := fs.Bool("dry-run", false, "log notifications instead of sending them")
	setToken := fs.Bool("set-token", false, "read the bot token from stdin, store it in the OS keychain and exit")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	// Data dir: flag, then env (a CI job can pass one), else local folder.
	dir := *dataDir
	if dir == "" {
		dir = os.Getenv("JOBWATCH_DATA_DIR")
	}
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		fmt.Fprintf(os.Stderr, "data dir: %v\n", err)
		return 1
	}

	path := *cfgPath
	if path == "" {
		p, created, err := config.EnsureUserConfig(dir)
		if err != nil {
			fmt.Fprintf(os.Stderr, "config bootstrap failed: %v\n", err)
			return 1
		}
		if created {
			fmt.Fprintf(os.Stderr, "wrote default config to %s\n", p)
		}
		path = p
	}

	if *setToken {
		if err := storeToken(path, stdin); err != nil {
			fmt.Fprintf(os.Stderr, "set token: %v\n", err)
			return 1
		}
		fmt.Fprintln(os.Stderr, "bot token stored in keychain")
		return 0
	}

	cfg, err := loadConfig(path, *dryRun)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		return 1
	}

	log := logger.New(cfg.Logging.Level).With("app", "jobwatch")
	log.Info("config loaded", "path", path, "dry_run", cfg.App.DryRun)

	deps, err := buildDeps(cfg, dir, log)
	if err != nil {
		log.Error("startup failed", "err", err)
		return 1
	}
	if *noJitter {
		deps.JitterMin, deps.JitterMax = 0, 0
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	res, err := run.Once(ctx, deps)
	if run.IsLocked(err) {
		log.Warn("another run is in progress; exiting", "lock", deps.LockPath)
		return 0
	}
	if err != nil {
		log.Error("run failed", "err", err, "state_saved", res.Saved)
		return 1
	}

	log.Info("run complete",
		"records", len(res.Scrape.Records),
		"notified", res.Report.Notified,
		"failed", res.Report.Failed,
		"state_saved", res.Saved)
	return 0
}

// loadConfig reads the file, overlays env and keychain secrets, then validates
// everything up front.
func loadConfig(path string, dryRun bool) (config.Config, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return cfg, fmt.Errorf("config load failed (%s): %w", path, err)
	}
	config.ApplyEnv(&cfg)
	cfg.App.DryRun = dryRun

	if tok, err := secrets.BotToken(cfg.Telegram.Token, cfg.Telegram.KeyringAccount); err == nil {
		cfg.Telegram.Token = tok
	}

	cfg, v := config.NormalizeAndValidate(cfg)
	for _, w := range v.Warnings {
		fmt.Fprintf(os.Stderr, "config warning: %s\n", w)
	}
	if err := v.Err(); err != nil {
		return cfg, err
	}
	if err := config.RequireCredentials(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// storeToken saves the first line of r under the configured keychain account.
func storeToken(path string, r io.Reader) error {
	cfg, err := config.Load(path)
	if err != nil {
		return fmt.Errorf("config load failed (%s): %w", path, err)
	}
	account := strings.TrimSpace(cfg.Telegram.KeyringAccount)
	if account == "" {
		return fmt.Errorf("telegram.keyring_account is not set in %s", path)
	}

	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && err != io.EOF {
		return fmt.Errorf("read token: %w", err)
	}
	return secrets.SetBotToken(account, strings.TrimSpace(line))
}

func buildDeps(cfg config.Config, dataDir string, log *logger.Logger) (run.Deps, error) {
	statePath := cfg.State.Path
	if !filepath.IsAbs(statePath) {
		statePath = filepath.Join(dataDir, statePath)
	}
	store, err := state.Open(cfg.State.Backend, statePath)
	if err != nil {
		return run.Deps{}, err
	}

	lockPath := cfg.State.LockPath
	if lockPath == "" {
		lockPath = state.LockPathFor(statePath)
	}

	policy, err := dedup.ParseCommitPolicy(cfg.Dedup.CommitPolicy)
	if err != nil {
		return run.Deps{}, err
	}

	var notifier notify.Notifier
	if cfg.App.DryRun {
		notifier = notify.LogNotifier{Log: log.Component("dry-run")}
	} else {
		tg := notify.NewTelegram(notify.TelegramConfig{
			BaseURL:     cfg.Telegram.BaseURL,
			Token:       cfg.Telegram.Token,
			ChatID:      cfg.Telegram.ChatID,
			Timeout:     cfg.NotifyTimeout(),
			MinInterval: cfg.NotifyMinInterval(),
		}, log)
		if err := tg.Validate(); err != nil {
			return run.Deps{}, err
		}
		notifier = tg
	}

	fetcher := linkedin.NewFetcher(linkedin.Config{
		Search: linkedin.Search{
			BaseURL:  cfg.Search.BaseURL,
			Keywords: cfg.Search.Keywords,
			Location: cfg.Search.Location,
			GeoID:    cfg.Search.GeoID,
			Recency:  cfg.Search.Recency,
		},
		Timeout:           cfg.FetchTimeout(),
		UserAgent:         cfg.Fetch.UserAgent,
		RequestsPerSecond: cfg.Fetch.RequestsPerSecond,
		Retries:           cfg.Fetch.Retries,
	})

	jMin, jMax := cfg.JitterRange()

	return run.Deps{
		Store:     store,
		Fetcher:   fetcher,
		Extractor: linkedin.CardExtractor{},
		Pipeline: dedup.Pipeline{
			Relevance: relevance.NewKeywordPredicate(
				cfg.Relevance.Keywords,
				cfg.Relevance.Exclude,
				relevance.MissingTitle(cfg.Relevance.MissingTitle),
			),
			Notifier:         notifier,
			Policy:           policy,
			MaxNotifications: cfg.Dedup.MaxNotifications,
			Log:              log,
		},
		LockPath:  lockPath,
		JitterMin: jMin,
		JitterMax: jMax,
		Log:       log,
	}, nil
}
